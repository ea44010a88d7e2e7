package pgnative

import (
	"net"
	"testing"

	"github.com/pgnative/pgnative/internal/authn"
	"github.com/pgnative/pgnative/internal/protocol"
	"github.com/pgnative/pgnative/internal/wire"
)

// cannedStatement is the fixed response a fakeBackend gives for one SQL
// text: its Describe response (columns, or none for a DDL/DML statement)
// and the rows/command tag an Execute against it produces.
type cannedStatement struct {
	columns    []protocol.ColumnDescriptor // nil => NoData
	rows       [][][]byte
	commandTag string
}

// fakeBackend is a minimal PostgreSQL backend simulator driving the wire
// protocol directly over a real TCP socket, so Connection exercises its
// actual transport path exactly as it would against a real server.
type fakeBackend struct {
	t          *testing.T
	authMode   string // "trust", "cleartext", "md5"
	password   string
	statements map[string]cannedStatement // sql text -> canned response
}

// listenFakeBackend starts fb on a one-shot TCP listener and returns its
// address. fb.serve runs on its own goroutine per accepted connection.
func listenFakeBackend(t *testing.T, fb *fakeBackend) (host string, port int) {
	t.Helper()
	return listenFakeBackendMulti(t, fb, 1)
}

// listenFakeBackendMulti is listenFakeBackend, but accepts up to max
// connections concurrently, each served by its own copy of fb's behavior
// (sharing its cannedStatement table) - for tests that need a Pool to open
// more than one backend session.
func listenFakeBackendMulti(t *testing.T, fb *fakeBackend, max int) (host string, port int) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	go func() {
		defer ln.Close()
		for i := 0; i < max; i++ {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go fb.serve(conn)
		}
	}()
	addr := ln.Addr().(*net.TCPAddr)
	return "127.0.0.1", addr.Port
}

func (fb *fakeBackend) serve(conn net.Conn) {
	defer conn.Close()

	// StartupMessage: length-prefixed, no type byte.
	lenBuf := make([]byte, 4)
	if _, err := readFullConn(conn, lenBuf); err != nil {
		return
	}
	total := int(be32(lenBuf))
	rest := make([]byte, total-4)
	if _, err := readFullConn(conn, rest); err != nil {
		return
	}

	if !fb.handleAuth(conn) {
		return
	}

	send(conn, wire.ToTagged(protocol.TagParameterStatus, mustParamStatus("client_encoding", "UTF8")))
	send(conn, wire.ToTagged(protocol.TagParameterStatus, mustParamStatus("DateStyle", "ISO, MDY")))
	send(conn, wire.ToTagged(protocol.TagParameterStatus, mustParamStatus("TimeZone", "UTC")))
	send(conn, wire.ToTagged(protocol.TagBackendKeyData, mustBackendKeyData(4242, 9999)))
	send(conn, wire.ToTagged(protocol.TagReadyForQuery, []byte{'I'}))

	fb.loop(conn)
}

func (fb *fakeBackend) handleAuth(conn net.Conn) bool {
	switch fb.authMode {
	case "", "trust":
		send(conn, wire.ToTagged(protocol.TagAuthentication, be32Bytes(protocol.AuthOK)))
		return true

	case "cleartext":
		send(conn, wire.ToTagged(protocol.TagAuthentication, be32Bytes(protocol.AuthCleartextPassword)))
		_, body, err := wire.ReadMessage(conn)
		if err != nil {
			return false
		}
		r := wire.NewReader(body)
		got, _ := r.CString()
		if got != fb.password {
			fb.t.Errorf("cleartext password mismatch: got %q want %q", got, fb.password)
			return false
		}
		send(conn, wire.ToTagged(protocol.TagAuthentication, be32Bytes(protocol.AuthOK)))
		return true

	case "md5":
		salt := [4]byte{0xAA, 0xBB, 0xCC, 0xDD}
		body := append(be32Bytes(protocol.AuthMD5Password), salt[:]...)
		send(conn, wire.ToTagged(protocol.TagAuthentication, body))
		_, respBody, err := wire.ReadMessage(conn)
		if err != nil {
			return false
		}
		r := wire.NewReader(respBody)
		got, _ := r.CString()
		want := authn.MD5PasswordResponse("tester", fb.password, salt)
		if got != want {
			fb.t.Errorf("md5 password response mismatch: got %q want %q", got, want)
			return false
		}
		send(conn, wire.ToTagged(protocol.TagAuthentication, be32Bytes(protocol.AuthOK)))
		return true
	}
	fb.t.Fatalf("unsupported fakeBackend authMode %q", fb.authMode)
	return false
}

// loop answers Parse/Describe/Sync, Bind/Execute/Sync, and Close/Sync
// sequences keyed by the SQL text last seen in a Parse message, tracking
// which statement the unnamed portal is currently bound to.
func (fb *fakeBackend) loop(conn net.Conn) {
	stmtSQL := make(map[string]string)
	var boundSQL string
	var rowsIdx int
	status := byte('I') // ReadyForQuery status this connection reports: idle until BEGIN

	for {
		tag, body, err := wire.ReadMessage(conn)
		if err != nil {
			return
		}
		switch tag {
		case protocol.TagParse:
			r := wire.NewReader(body)
			name, _ := r.CString()
			sql, _ := r.CString()
			stmtSQL[name] = sql
			send(conn, wire.ToTagged(protocol.TagParseComplete, nil))

		case protocol.TagDescribe:
			r := wire.NewReader(body)
			kind, _ := r.Byte()
			name, _ := r.CString()
			if kind == protocol.DescribeStatement {
				c, ok := fb.statements[stmtSQL[name]]
				if ok && c.columns != nil {
					send(conn, wire.ToTagged(protocol.TagRowDescription, encodeRowDescription(c.columns)))
				} else {
					send(conn, wire.ToTagged(protocol.TagNoData, nil))
				}
			}

		case protocol.TagBind:
			r := wire.NewReader(body)
			r.CString() // destination portal
			name, _ := r.CString()
			boundSQL = stmtSQL[name]
			rowsIdx = 0
			send(conn, wire.ToTagged(protocol.TagBindComplete, nil))

		case protocol.TagExecute:
			c := fb.statements[boundSQL]
			for ; rowsIdx < len(c.rows); rowsIdx++ {
				send(conn, wire.ToTagged(protocol.TagDataRow, encodeDataRow(c.rows[rowsIdx])))
			}
			tagStr := c.commandTag
			if tagStr == "" {
				tagStr = "SELECT 0"
			}
			switch boundSQL {
			case "BEGIN":
				status = 'T'
			case "COMMIT", "ROLLBACK":
				status = 'I'
			}
			w := wire.NewWriter(len(tagStr) + 1)
			w.CString(tagStr)
			send(conn, wire.ToTagged(protocol.TagCommandComplete, w.Bytes()))

		case protocol.TagClose:
			send(conn, wire.ToTagged(protocol.TagCloseComplete, nil))

		case protocol.TagSync:
			send(conn, wire.ToTagged(protocol.TagReadyForQuery, []byte{status}))

		case protocol.TagTerminate:
			return
		}
	}
}

func send(conn net.Conn, msg []byte) {
	conn.Write(msg)
}

func readFullConn(conn net.Conn, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := conn.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func be32(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}

func be32Bytes(v int32) []byte {
	return []byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)}
}

func mustParamStatus(name, value string) []byte {
	w := wire.NewWriter(len(name) + len(value) + 2)
	w.CString(name)
	w.CString(value)
	return w.Bytes()
}

func mustBackendKeyData(pid, secret int32) []byte {
	w := wire.NewWriter(8)
	w.Int32(pid)
	w.Int32(secret)
	return w.Bytes()
}

func encodeRowDescription(cols []protocol.ColumnDescriptor) []byte {
	w := wire.NewWriter(64)
	w.Int16(int16(len(cols)))
	for _, c := range cols {
		w.CString(c.Name)
		w.Int32(c.TableOID)
		w.Int16(c.ColumnNumber)
		w.Int32(c.TypeOID)
		w.Int16(c.TypeSize)
		w.Int32(c.TypeModifier)
		w.Int16(c.FormatCode)
	}
	return w.Bytes()
}

func encodeDataRow(vals [][]byte) []byte {
	w := wire.NewWriter(32)
	w.Int16(int16(len(vals)))
	for _, v := range vals {
		w.CountedBytes(v)
	}
	return w.Bytes()
}
