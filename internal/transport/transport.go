// Package transport owns the raw socket (and, when requested, the TLS
// layer wrapped around it) for one PostgreSQL session. It knows nothing
// about message framing or the protocol state machine — callers serialise
// their own access and interpret the bytes.
package transport

import (
	"crypto/tls"
	"encoding/binary"
	"fmt"
	"net"
	"time"
)

// Provider wraps an already-connected net.Conn and returns a stream with
// the same read/write interface, encrypted. The core specifies only the
// handshake sequence that invokes a Provider; the actual encryption is an
// external collaborator. The default Provider uses crypto/tls; callers
// needing custom certificate verification, SNI, or a non-stdlib TLS stack
// supply their own.
type Provider func(conn net.Conn, serverName string) (net.Conn, error)

// DefaultProvider wraps conn with crypto/tls.Client using cfg, cloned and
// given ServerName if cfg.ServerName is empty.
func DefaultProvider(cfg *tls.Config) Provider {
	return func(conn net.Conn, serverName string) (net.Conn, error) {
		c := cfg.Clone()
		if c == nil {
			c = &tls.Config{}
		}
		if c.ServerName == "" {
			c.ServerName = serverName
		}
		tlsConn := tls.Client(conn, c)
		if err := tlsConn.Handshake(); err != nil {
			return nil, err
		}
		return tlsConn, nil
	}
}

// Transport is a blocking, non-thread-safe byte stream to one PostgreSQL
// backend. Open performs the TCP connect and, if requested, the SSLRequest
// byte-exchange negotiation followed by a TLS handshake over the same
// socket.
type Transport struct {
	conn    net.Conn
	timeout time.Duration
}

// sslRequestMessage is the fixed SSLRequest payload: length=8,
// code=80877103.
var sslRequestMessage = func() []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint32(buf[0:4], 8)
	binary.BigEndian.PutUint32(buf[4:8], 80877103)
	return buf
}()

// Open dials host:port, optionally negotiates TLS, and returns a Transport
// ready for framed message exchange. timeout (0 = none) bounds every
// subsequent Receive call.
func Open(host string, port int, tlsRequired bool, provider Provider, timeout time.Duration) (*Transport, error) {
	addr := net.JoinHostPort(host, fmt.Sprintf("%d", port))
	dialer := net.Dialer{Timeout: connectTimeout(timeout)}
	conn, err := dialer.Dial("tcp", addr)
	if err != nil {
		return nil, err
	}

	if tlsRequired {
		if _, err := conn.Write(sslRequestMessage); err != nil {
			conn.Close()
			return nil, err
		}
		reply := make([]byte, 1)
		if _, err := readFull(conn, reply); err != nil {
			conn.Close()
			return nil, err
		}
		switch reply[0] {
		case 'S':
			if provider == nil {
				provider = DefaultProvider(nil)
			}
			tlsConn, err := provider(conn, host)
			if err != nil {
				conn.Close()
				return nil, err
			}
			conn = tlsConn
		case 'N':
			conn.Close()
			return nil, errTLSNotAvailable
		default:
			conn.Close()
			return nil, fmt.Errorf("transport: unexpected SSLRequest reply byte %q", reply[0])
		}
	}

	return &Transport{conn: conn, timeout: timeout}, nil
}

func connectTimeout(timeout time.Duration) time.Duration {
	if timeout <= 0 {
		return 0
	}
	return timeout
}

// errTLSNotAvailable is returned by Open when the server refuses TLS with
// 'N'. Exported via IsTLSNotAvailable so the root package can classify it
// without importing an unexported sentinel.
var errTLSNotAvailable = fmt.Errorf("transport: server refused TLS (SSLRequest got 'N')")

// IsTLSNotAvailable reports whether err is the TLS-refused sentinel.
func IsTLSNotAvailable(err error) bool { return err == errTLSNotAvailable }

// Send writes a complete framed message. Not safe for concurrent use.
func (t *Transport) Send(b []byte) error {
	_, err := t.conn.Write(b)
	return err
}

// ReceiveExact reads exactly n bytes, applying the configured receive
// timeout to the read.
func (t *Transport) ReceiveExact(n int) ([]byte, error) {
	if t.timeout > 0 {
		t.conn.SetReadDeadline(time.Now().Add(t.timeout))
	}
	buf := make([]byte, n)
	if _, err := readFull(t.conn, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// Conn exposes the underlying net.Conn so callers can use io.Reader-based
// framing helpers (internal/wire.ReadMessage) directly, applying the
// per-read deadline first.
func (t *Transport) Conn() net.Conn {
	if t.timeout > 0 {
		t.conn.SetReadDeadline(time.Now().Add(t.timeout))
	}
	return t.conn
}

// Close closes the underlying connection.
func (t *Transport) Close() error {
	return t.conn.Close()
}

func readFull(conn net.Conn, buf []byte) (int, error) {
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
