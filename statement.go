package pgnative

import "github.com/pgnative/pgnative/internal/protocol"

// Statement is a user-visible handle over a server-side prepared statement
// bound to one Connection. Closing a Statement closes any Cursor it
// produced; closing a Connection closes all its Statements.
type Statement struct {
	conn *Connection
	name string
	sql  string

	paramOIDs  []int32
	columns    []protocol.ColumnDescriptor
	hasColumns bool

	generation int
	cursor     *Cursor
	closed     bool
}

// SQL returns the prepared statement's source text.
func (s *Statement) SQL() string { return s.sql }

// ParameterCount returns the number of parameters the server inferred.
func (s *Statement) ParameterCount() int { return len(s.paramOIDs) }

// ColumnCount returns the number of result columns, or an error if the
// Describe response has not been retained.
func (s *Statement) ColumnCount() (int, error) {
	if !s.hasColumns {
		return 0, ErrColumnMetadataNotReady
	}
	return len(s.columns), nil
}

// ColumnNames returns the result column names in order.
func (s *Statement) ColumnNames() ([]string, error) {
	if !s.hasColumns {
		return nil, ErrColumnMetadataNotReady
	}
	names := make([]string, len(s.columns))
	for i, c := range s.columns {
		names[i] = c.Name
	}
	return names, nil
}

func (s *Statement) checkUsable() error {
	if s.conn.closed {
		return ErrConnectionClosed
	}
	if s.closed {
		return ErrStatementClosed
	}
	return nil
}

// Execute binds params (sent as text-format values; a nil entry is SQL
// NULL) and runs the statement through Bind/Execute/Sync. Force-closes any
// cursor currently open on the connection first.
func (s *Statement) Execute(params ...[]byte) (*Cursor, error) {
	if err := s.checkUsable(); err != nil {
		return nil, err
	}
	if err := s.conn.closeCurrentCursor(); err != nil {
		return nil, err
	}
	return s.conn.beginExtendedQuery(s, params)
}

// Close sends Close(statement)/Sync if the connection is still open, and
// closes any cursor this statement produced. Idempotent.
func (s *Statement) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if s.cursor != nil {
		_ = s.cursor.closeInternal()
		if s.conn.openCursor == s.cursor {
			s.conn.openCursor = nil
		}
	}
	if s.conn.closed {
		return nil
	}
	if err := s.conn.transport.Send(protocol.Close(protocol.DescribeStatement, s.name)); err != nil {
		return wrapError(CodeSocketError, "sending Close(statement)", err)
	}
	if err := s.conn.transport.Send(protocol.Sync()); err != nil {
		return wrapError(CodeSocketError, "sending Sync", err)
	}
	_, err := s.conn.drainUntilReady()
	return err
}
