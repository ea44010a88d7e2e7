package pgnative

import (
	"fmt"
	"io"
	"sync/atomic"

	"github.com/pgnative/pgnative/internal/authn"
	"github.com/pgnative/pgnative/internal/protocol"
	"github.com/pgnative/pgnative/internal/transport"
	"github.com/pgnative/pgnative/internal/wire"
)

var connectionSeq int64

func nextConnectionID() string {
	return fmt.Sprintf("conn-%d", atomic.AddInt64(&connectionSeq, 1))
}

// Connection is one authenticated session against a PostgreSQL backend.
// All operations on a Connection must be serialised by the caller; a
// Connection is never safely shared across goroutines concurrently.
type Connection struct {
	id        string
	cfg       Config
	transport *transport.Transport
	delegate  Delegate

	txStatus  protocol.TransactionStatus
	processID int32
	secretKey int32

	// generation increments every time the current cursor is superseded
	// or force-closed, so a Cursor can detect staleness without the
	// Connection needing to track it.
	generation  int
	openCursor  *Cursor
	statements  []*Statement
	closed      bool
	stmtCounter int
}

// Open performs the full startup handshake: TCP (+TLS) connect, Startup
// message, authentication, and reads until ReadyForQuery.
func Open(cfg Config) (*Connection, error) {
	tr, err := transport.Open(cfg.Host, cfg.Port, cfg.SSL, nil, cfg.SocketTimeout)
	if err != nil {
		if transport.IsTLSNotAvailable(err) {
			return nil, newError(CodeTLSNotAvailable, "server does not support TLS")
		}
		return nil, wrapError(CodeSocketError, "connecting to "+cfg.Host, err)
	}

	c := &Connection{
		id:        nextConnectionID(),
		cfg:       cfg,
		transport: tr,
		delegate:  cfg.Delegate,
		txStatus:  protocol.TxIdle,
	}

	if err := c.startup(); err != nil {
		tr.Close()
		return nil, err
	}
	return c, nil
}

// ID returns the connection's monotonically assigned identity.
func (c *Connection) ID() string { return c.id }

// IsClosed reports whether the connection has been closed.
func (c *Connection) IsClosed() bool { return c.closed }

// TransactionStatus reports the last transaction status observed on
// ReadyForQuery: idle, in-transaction, or failed.
func (c *Connection) TransactionStatus() protocol.TransactionStatus { return c.txStatus }

func (c *Connection) startup() error {
	params := map[string]string{
		"user":             c.cfg.User,
		"database":         c.cfg.Database,
		"application_name": "pgnative",
		"client_encoding":  "UTF8",
		"DateStyle":        "ISO, MDY",
		"TimeZone":         "UTC",
	}
	if err := c.transport.Send(protocol.StartupMessage(params)); err != nil {
		return wrapError(CodeSocketError, "sending startup message", err)
	}

	for {
		tag, body, err := c.readRaw()
		if err != nil {
			return err
		}
		switch tag {
		case protocol.TagAuthentication:
			done, err := c.handleAuth(body)
			if err != nil {
				return err
			}
			if done {
				continue
			}
		case protocol.TagParameterStatus:
			if err := c.handleParameterStatus(body); err != nil {
				return err
			}
		case protocol.TagBackendKeyData:
			pid, secret, err := protocol.BackendKeyData(body)
			if err != nil {
				return wrapError(CodeMalformedMessage, "BackendKeyData", err)
			}
			c.processID, c.secretKey = pid, secret
		case protocol.TagNoticeResponse:
			c.dispatchNotice(body)
		case protocol.TagErrorResponse:
			return c.errorResponseAsFatal(body)
		case protocol.TagReadyForQuery:
			if len(body) != 1 {
				return newError(CodeMalformedMessage, "ReadyForQuery: bad length")
			}
			c.txStatus = protocol.TransactionStatus(body[0])
			return nil
		default:
			return newError(CodeUnexpectedMessage, fmt.Sprintf("unexpected message %q during startup", tag))
		}
	}
}

// handleAuth dispatches one AuthenticationXxx message to the configured
// credential flow. Returns done=true once AuthenticationOk has
// been observed (there may be further AuthenticationXxx challenges before
// that for SASL).
func (c *Connection) handleAuth(body []byte) (done bool, err error) {
	code, rest, err := protocol.AuthMessage(body)
	if err != nil {
		return false, wrapError(CodeMalformedMessage, "Authentication message", err)
	}

	if code != protocol.AuthOK && c.cfg.Credential.Kind == CredentialTrust {
		return false, newError(CodeTrustCredentialRequired,
			"server demanded a password/SASL challenge but connection is configured for trust")
	}

	switch code {
	case protocol.AuthOK:
		return true, nil

	case protocol.AuthCleartextPassword:
		if c.cfg.Credential.Kind != CredentialCleartext {
			return false, newError(CodeCleartextPasswordCredentialRequired,
				"server requires a cleartext password credential")
		}
		if err := c.transport.Send(protocol.PasswordMessage(c.cfg.Credential.Password)); err != nil {
			return false, wrapError(CodeSocketError, "sending PasswordMessage", err)
		}
		return false, nil

	case protocol.AuthMD5Password:
		if c.cfg.Credential.Kind != CredentialMD5 {
			return false, newError(CodeMd5PasswordCredentialRequired,
				"server requires an MD5 password credential")
		}
		salt, err := protocol.MD5Salt(rest)
		if err != nil {
			return false, wrapError(CodeMalformedMessage, "AuthenticationMD5Password salt", err)
		}
		resp := authn.MD5PasswordResponse(c.cfg.User, c.cfg.Credential.Password, salt)
		if err := c.transport.Send(protocol.PasswordMessage(resp)); err != nil {
			return false, wrapError(CodeSocketError, "sending PasswordMessage", err)
		}
		return false, nil

	case protocol.AuthSASL:
		if c.cfg.Credential.Kind != CredentialScramSHA256 {
			return false, newError(CodeScramSha256CredentialRequired,
				"server requires a SCRAM-SHA-256 credential")
		}
		mechs, err := protocol.SASLMechanisms(rest)
		if err != nil {
			return false, wrapError(CodeMalformedMessage, "AuthenticationSASL mechanism list", err)
		}
		if !containsMechanism(mechs, protocol.SCRAMMechanism) {
			return false, newError(CodeUnsupportedAuthenticationType,
				"server did not offer SCRAM-SHA-256 (offered: "+fmt.Sprint(mechs)+")")
		}
		return false, c.runScram()

	default:
		return false, newError(CodeUnsupportedAuthenticationType, fmt.Sprintf("authentication type %d", code))
	}
}

func containsMechanism(mechs []string, want string) bool {
	for _, m := range mechs {
		if m == want {
			return true
		}
	}
	return false
}

// runScram drives the full SCRAM-SHA-256 exchange:
// client-first, read server-first, client-final, read server-final. The
// trust/cleartext/md5 credential checks above only had to classify the
// *first* AuthenticationXxx message; SCRAM additionally validates its own
// two subsequent challenges here.
func (c *Connection) runScram() error {
	client, err := authn.NewScramClient(c.cfg.User, c.cfg.Credential.Password)
	if err != nil {
		switch {
		case errIsInvalidUsername(err):
			return wrapError(CodeInvalidUsername, "SASLprep(username)", err)
		default:
			return wrapError(CodeInvalidPassword, "SASLprep(password)", err)
		}
	}

	first := client.ClientFirstMessage()
	if err := c.transport.Send(protocol.SASLInitialResponse(protocol.SCRAMMechanism, []byte(first))); err != nil {
		return wrapError(CodeSocketError, "sending SASLInitialResponse", err)
	}

	tag, body, err := c.readRaw()
	if err != nil {
		return err
	}
	if tag != protocol.TagAuthentication {
		return newError(CodeUnexpectedMessage, "expected AuthenticationSASLContinue")
	}
	code, rest, err := protocol.AuthMessage(body)
	if err != nil {
		return wrapError(CodeMalformedMessage, "AuthenticationSASLContinue", err)
	}
	if code != protocol.AuthSASLContinue {
		return newError(CodeUnexpectedMessage, "expected AuthenticationSASLContinue")
	}
	if err := client.HandleServerFirst(string(rest)); err != nil {
		return classifyScramError(err)
	}

	final := client.ClientFinalMessage()
	if err := c.transport.Send(protocol.SASLResponse([]byte(final))); err != nil {
		return wrapError(CodeSocketError, "sending SASLResponse", err)
	}

	tag, body, err = c.readRaw()
	if err != nil {
		return err
	}
	if tag != protocol.TagAuthentication {
		return newError(CodeUnexpectedMessage, "expected AuthenticationSASLFinal")
	}
	code, rest, err = protocol.AuthMessage(body)
	if err != nil {
		return wrapError(CodeMalformedMessage, "AuthenticationSASLFinal", err)
	}
	if code != protocol.AuthSASLFinal {
		return newError(CodeUnexpectedMessage, "expected AuthenticationSASLFinal")
	}
	if err := client.VerifyServerFinal(string(rest)); err != nil {
		return classifyScramError(err)
	}
	return nil
}

func errIsInvalidUsername(err error) bool {
	return err != nil && isWrapped(err, authn.ErrInvalidUsername)
}

func isWrapped(err, target error) bool {
	for err != nil {
		if err == target {
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

func classifyScramError(err error) error {
	switch {
	case isWrapped(err, authn.ErrServerNonceMismatch):
		return wrapError(CodeServerNonceMismatch, "SCRAM server-first-message", err)
	case isWrapped(err, authn.ErrScramIterationsTooLow):
		return wrapError(CodeScramIterationsTooLow, "SCRAM server-first-message", err)
	case isWrapped(err, authn.ErrServerSignatureMismatch):
		return wrapError(CodeServerSignatureMismatch, "SCRAM server-final-message", err)
	case isWrapped(err, authn.ErrInvalidUsername):
		return wrapError(CodeInvalidUsername, "SASLprep(username)", err)
	case isWrapped(err, authn.ErrInvalidPassword):
		return wrapError(CodeInvalidPassword, "SASLprep(password)", err)
	default:
		return wrapError(CodeMalformedMessage, "SCRAM exchange", err)
	}
}

// handleParameterStatus forwards a ParameterStatus to the delegate, both
// during the handshake and afterwards. On every ParameterStatus it also
// enforces the three settings pinned at startup: a drift in
// client_encoding, DateStyle, or TimeZone closes the connection and
// returns InvalidParameterValue.
func (c *Connection) handleParameterStatus(body []byte) error {
	name, value, err := protocol.ParameterStatus(body)
	if err != nil {
		return wrapError(CodeMalformedMessage, "ParameterStatus", err)
	}
	switch name {
	case "client_encoding":
		if value != "UTF8" {
			c.forceClose()
			return newError(CodeInvalidParameterValue, "server client_encoding is "+value+", not UTF8")
		}
	case "DateStyle":
		if len(value) < 3 || value[:3] != "ISO" {
			c.forceClose()
			return newError(CodeInvalidParameterValue, "server DateStyle is "+value+", not ISO")
		}
	case "TimeZone":
		if value != "UTC" {
			c.forceClose()
			return newError(CodeInvalidParameterValue, "server TimeZone is "+value+", not UTC")
		}
	}
	if c.delegate != nil {
		c.delegate.OnParameterChange(ParameterChange{Name: name, Value: value})
	}
	return nil
}

func (c *Connection) dispatchNotice(body []byte) {
	if c.delegate == nil {
		return
	}
	fields, err := protocol.ParseNoticeFields(body)
	if err != nil {
		return
	}
	c.delegate.OnNotice(noticeFromFields(fields))
}

func (c *Connection) dispatchNotification(body []byte) {
	pid, channel, payload, err := protocol.NotificationResponse(body)
	if err != nil || c.delegate == nil {
		return
	}
	c.delegate.OnNotification(Notification{ProcessID: pid, Channel: channel, Payload: payload})
}

func noticeFromFields(f protocol.NoticeFields) Notice {
	return Notice{
		Severity: f.Severity, SeverityLocalized: f.SeverityLocalized, Code: f.Code,
		Message: f.Message, Detail: f.Detail, Hint: f.Hint, Position: f.Position,
		InternalPosition: f.InternalPosition, InternalQuery: f.InternalQuery, Where: f.Where,
		Schema: f.Schema, Table: f.Table, Column: f.Column, DataType: f.DataType,
		Constraint: f.Constraint, File: f.File, Line: f.Line, Routine: f.Routine,
	}
}

func (c *Connection) errorResponseAsFatal(body []byte) error {
	fields, err := protocol.ParseNoticeFields(body)
	if err != nil {
		return wrapError(CodeMalformedMessage, "ErrorResponse", err)
	}
	n := noticeFromFields(fields)
	return sqlError(&n)
}

// readRaw reads one backend message, translating I/O failure into a
// classified SocketError and force-closing the connection.
func (c *Connection) readRaw() (tag byte, body []byte, err error) {
	tag, body, ioErr := wire.ReadMessage(c.transport.Conn())
	if ioErr != nil {
		c.forceClose()
		if ioErr == io.EOF {
			return 0, nil, wrapError(CodeSocketError, "connection closed by server", ioErr)
		}
		return 0, nil, wrapError(CodeSocketError, "reading from socket", ioErr)
	}
	return tag, body, nil
}

func (c *Connection) forceClose() {
	if c.closed {
		return
	}
	c.closed = true
	c.bumpGeneration()
	c.transport.Close()
}

// checkOpen returns ErrConnectionClosed if c is closed.
func (c *Connection) checkOpen() error {
	if c.closed {
		return ErrConnectionClosed
	}
	return nil
}

// closeCurrentCursor force-closes the currently open cursor, if any, as
// required before prepare, execute, begin/commit/rollback, and Close
// .
func (c *Connection) closeCurrentCursor() error {
	if c.openCursor == nil {
		return nil
	}
	cur := c.openCursor
	c.openCursor = nil
	err := cur.closeInternal()
	c.bumpGeneration()
	return err
}

// bumpGeneration invalidates any handle still referencing the prior
// generation.
func (c *Connection) bumpGeneration() {
	c.generation++
}

// drainUntilReady reads and discards messages until ReadyForQuery,
// dispatching asynchronous messages to the delegate along the way and
// updating the cached transaction status. If an ErrorResponse is seen, its
// Notice is remembered and returned once ReadyForQuery arrives.
func (c *Connection) drainUntilReady() (*Notice, error) {
	var sqlErr *Notice
	for {
		tag, body, err := c.readRaw()
		if err != nil {
			return nil, err
		}
		switch tag {
		case protocol.TagReadyForQuery:
			if len(body) != 1 {
				return nil, newError(CodeMalformedMessage, "ReadyForQuery: bad length")
			}
			c.txStatus = protocol.TransactionStatus(body[0])
			return sqlErr, nil
		case protocol.TagErrorResponse:
			fields, ferr := protocol.ParseNoticeFields(body)
			if ferr != nil {
				return nil, wrapError(CodeMalformedMessage, "ErrorResponse", ferr)
			}
			n := noticeFromFields(fields)
			sqlErr = &n
		case protocol.TagNoticeResponse:
			c.dispatchNotice(body)
		case protocol.TagParameterStatus:
			if perr := c.handleParameterStatus(body); perr != nil {
				return nil, perr
			}
		case protocol.TagNotificationResponse:
			c.dispatchNotification(body)
		default:
			// DataRow, CommandComplete, PortalSuspended, CloseComplete,
			// ParseComplete, BindComplete, NoData, ParameterDescription,
			// RowDescription: discarded while draining.
		}
	}
}

// nextStatementName generates a fresh server-side prepared-statement name.
func (c *Connection) nextStatementName() string {
	c.stmtCounter++
	return fmt.Sprintf("%s_stmt_%d", c.id, c.stmtCounter)
}

// Close terminates the session: closes the current cursor and every open
// statement, sends Terminate, and closes the transport. Idempotent.
func (c *Connection) Close() error {
	if c.closed {
		return nil
	}
	_ = c.closeCurrentCursor()
	for _, stmt := range c.statements {
		stmt.closed = true
		if stmt.cursor != nil {
			stmt.cursor.closed = true
		}
	}
	c.statements = nil
	c.closed = true
	_ = c.transport.Send(protocol.Terminate())
	return c.transport.Close()
}

// Prepare parses sql into a new server-side prepared statement. Force-closes any open cursor first.
func (c *Connection) Prepare(sql string) (*Statement, error) {
	if err := c.checkOpen(); err != nil {
		return nil, err
	}
	if err := c.closeCurrentCursor(); err != nil {
		return nil, err
	}

	name := c.nextStatementName()
	if err := c.transport.Send(protocol.Parse(name, sql)); err != nil {
		return nil, wrapError(CodeSocketError, "sending Parse", err)
	}
	if err := c.transport.Send(protocol.Describe(protocol.DescribeStatement, name)); err != nil {
		return nil, wrapError(CodeSocketError, "sending Describe", err)
	}
	if err := c.transport.Send(protocol.Sync()); err != nil {
		return nil, wrapError(CodeSocketError, "sending Sync", err)
	}

	stmt := &Statement{conn: c, name: name, sql: sql, generation: c.generation}

	for {
		tag, body, err := c.readRaw()
		if err != nil {
			return nil, err
		}
		switch tag {
		case protocol.TagParseComplete:
			// continue
		case protocol.TagParameterDescription:
			oids, derr := protocol.ParameterOIDs(body)
			if derr != nil {
				return nil, wrapError(CodeMalformedMessage, "ParameterDescription", derr)
			}
			stmt.paramOIDs = oids
		case protocol.TagRowDescription:
			cols, derr := protocol.RowDescription(body)
			if derr != nil {
				return nil, wrapError(CodeMalformedMessage, "RowDescription", derr)
			}
			stmt.columns = cols
			stmt.hasColumns = true
		case protocol.TagNoData:
			stmt.hasColumns = true
		case protocol.TagNoticeResponse:
			c.dispatchNotice(body)
		case protocol.TagParameterStatus:
			if perr := c.handleParameterStatus(body); perr != nil {
				return nil, perr
			}
		case protocol.TagErrorResponse:
			n, derr := c.errorResponseNotice(body)
			if derr != nil {
				return nil, derr
			}
			if _, err := c.drainUntilReady(); err != nil {
				return nil, err
			}
			return nil, sqlError(n)
		case protocol.TagReadyForQuery:
			if len(body) != 1 {
				return nil, newError(CodeMalformedMessage, "ReadyForQuery: bad length")
			}
			c.txStatus = protocol.TransactionStatus(body[0])
			c.statements = append(c.statements, stmt)
			return stmt, nil
		default:
			return nil, newError(CodeUnexpectedMessage, fmt.Sprintf("unexpected message %q during Prepare", tag))
		}
	}
}

func (c *Connection) errorResponseNotice(body []byte) (*Notice, error) {
	fields, err := protocol.ParseNoticeFields(body)
	if err != nil {
		return nil, wrapError(CodeMalformedMessage, "ErrorResponse", err)
	}
	n := noticeFromFields(fields)
	return &n, nil
}

// beginExtendedQuery sends Bind/Execute/Sync for stmt's unnamed portal
// with params as text-encoded parameter values, reads BindComplete, and
// returns a Cursor that lazily consumes the resulting DataRow stream.
func (c *Connection) beginExtendedQuery(stmt *Statement, params [][]byte) (*Cursor, error) {
	if err := c.transport.Send(protocol.Bind(stmt.name, params)); err != nil {
		return nil, wrapError(CodeSocketError, "sending Bind", err)
	}
	if err := c.transport.Send(protocol.Execute(0)); err != nil {
		return nil, wrapError(CodeSocketError, "sending Execute", err)
	}
	if err := c.transport.Send(protocol.Sync()); err != nil {
		return nil, wrapError(CodeSocketError, "sending Sync", err)
	}

	for {
		tag, body, err := c.readRaw()
		if err != nil {
			return nil, err
		}
		switch tag {
		case protocol.TagBindComplete:
			cur := &Cursor{conn: c, stmt: stmt, generation: c.generation}
			c.openCursor = cur
			stmt.cursor = cur
			return cur, nil
		case protocol.TagNoticeResponse:
			c.dispatchNotice(body)
		case protocol.TagParameterStatus:
			if perr := c.handleParameterStatus(body); perr != nil {
				return nil, perr
			}
		case protocol.TagErrorResponse:
			n, derr := c.errorResponseNotice(body)
			if derr != nil {
				return nil, derr
			}
			if _, err := c.drainUntilReady(); err != nil {
				return nil, err
			}
			return nil, sqlError(n)
		default:
			return nil, newError(CodeUnexpectedMessage, fmt.Sprintf("unexpected message %q awaiting BindComplete", tag))
		}
	}
}

// advanceCursor reads the next protocol message for an open, undrained
// cursor: a DataRow yields a Row; CommandComplete/EmptyQueryResponse marks
// the cursor drained (after consuming the following ReadyForQuery) and
// yields no row; PortalSuspended is treated the same as drained, since
// this client always executes with rowLimit=0 (no suspension is ever
// actually requested, but the message is still handled defensively).
func (c *Connection) advanceCursor(cur *Cursor) (row Row, drained bool, err error) {
	for {
		tag, body, rerr := c.readRaw()
		if rerr != nil {
			return Row{}, false, rerr
		}
		switch tag {
		case protocol.TagDataRow:
			vals, derr := protocol.DataRow(body)
			if derr != nil {
				return Row{}, false, wrapError(CodeMalformedMessage, "DataRow", derr)
			}
			values := make([]Value, len(vals))
			for i, v := range vals {
				values[i] = TextValue(v)
			}
			return Row{Values: values}, false, nil
		case protocol.TagCommandComplete:
			tagStr, cerr := protocol.CommandComplete(body)
			if cerr != nil {
				return Row{}, false, wrapError(CodeMalformedMessage, "CommandComplete", cerr)
			}
			if n, ok := protocol.CommandTagRowCount(tagStr); ok {
				cur.rowCount = n
				cur.hasRowCount = true
			}
			if rerr := c.readReadyForQuery(); rerr != nil {
				return Row{}, false, rerr
			}
			return Row{}, true, nil
		case protocol.TagEmptyQueryResponse:
			if rerr := c.readReadyForQuery(); rerr != nil {
				return Row{}, false, rerr
			}
			return Row{}, true, nil
		case protocol.TagPortalSuspended:
			if rerr := c.readReadyForQuery(); rerr != nil {
				return Row{}, false, rerr
			}
			return Row{}, true, nil
		case protocol.TagNoticeResponse:
			c.dispatchNotice(body)
		case protocol.TagParameterStatus:
			if perr := c.handleParameterStatus(body); perr != nil {
				return Row{}, false, perr
			}
		case protocol.TagNotificationResponse:
			c.dispatchNotification(body)
		case protocol.TagErrorResponse:
			n, derr := c.errorResponseNotice(body)
			if derr != nil {
				return Row{}, false, derr
			}
			if _, rerr := c.drainUntilReady(); rerr != nil {
				return Row{}, false, rerr
			}
			return Row{}, true, sqlError(n)
		default:
			return Row{}, false, newError(CodeUnexpectedMessage, fmt.Sprintf("unexpected message %q during result streaming", tag))
		}
	}
}

func (c *Connection) readReadyForQuery() error {
	for {
		tag, body, err := c.readRaw()
		if err != nil {
			return err
		}
		switch tag {
		case protocol.TagReadyForQuery:
			if len(body) != 1 {
				return newError(CodeMalformedMessage, "ReadyForQuery: bad length")
			}
			c.txStatus = protocol.TransactionStatus(body[0])
			return nil
		case protocol.TagNoticeResponse:
			c.dispatchNotice(body)
		case protocol.TagParameterStatus:
			if perr := c.handleParameterStatus(body); perr != nil {
				return perr
			}
		default:
			// tolerate stray async traffic before ReadyForQuery
		}
	}
}

// execLiteral runs sql with no parameters through the normal extended
// query path and discards any result rows, updating the cached
// transaction status. Used for BEGIN/COMMIT/ROLLBACK.
func (c *Connection) execLiteral(sql string) error {
	stmt, err := c.Prepare(sql)
	if err != nil {
		return err
	}
	cur, err := stmt.Execute()
	if err != nil {
		return err
	}
	for {
		_, drained, err := cur.Next()
		if err != nil {
			return err
		}
		if drained {
			break
		}
	}
	return stmt.Close()
}

// Begin issues "BEGIN" through the extended query path.
func (c *Connection) Begin() error {
	if err := c.checkOpen(); err != nil {
		return err
	}
	return c.execLiteral("BEGIN")
}

// Commit issues "COMMIT".
func (c *Connection) Commit() error {
	if err := c.checkOpen(); err != nil {
		return err
	}
	return c.execLiteral("COMMIT")
}

// Rollback issues "ROLLBACK".
func (c *Connection) Rollback() error {
	if err := c.checkOpen(); err != nil {
		return err
	}
	return c.execLiteral("ROLLBACK")
}
