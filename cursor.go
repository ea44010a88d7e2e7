package pgnative

import "github.com/pgnative/pgnative/internal/protocol"

// Cursor lazily consumes the DataRow stream produced by one Statement
// Execute call. A Cursor becomes drained once CommandComplete has been
// read, but remains iterable (yielding nothing) until it is explicitly
// closed or superseded by a new cursor on the same connection.
//
// generation captures the owning Connection's generation counter at
// creation time; if the Connection has since force-closed this cursor to
// open another, the counters diverge and every operation fails with
// CursorClosed without the Connection needing to track the Cursor
// directly.
type Cursor struct {
	conn       *Connection
	stmt       *Statement
	generation int

	rowCount    int64
	hasRowCount bool
	drained     bool
	closed      bool
}

// Statement returns the Statement this cursor was produced from.
func (c *Cursor) Statement() *Statement { return c.stmt }

// IsDrained reports whether CommandComplete has been consumed.
func (c *Cursor) IsDrained() bool { return c.drained }

// IsClosed reports whether the cursor is closed, including the implicit
// closure that happens when a later cursor supersedes it.
func (c *Cursor) IsClosed() bool {
	return c.closed || c.generation != c.conn.generation
}

// RowCount returns the command tag's row count and whether it is known
// yet (only available once the cursor is drained).
func (c *Cursor) RowCount() (count int64, ok bool) {
	return c.rowCount, c.hasRowCount
}

func (c *Cursor) checkUsable() error {
	if c.conn.closed {
		return ErrConnectionClosed
	}
	if c.stmt.closed {
		return ErrStatementClosed
	}
	if c.IsClosed() {
		return ErrCursorClosed
	}
	return nil
}

// Next advances the cursor by one message: a DataRow yields (row, false,
// nil); CommandComplete drains the cursor and yields (Row{}, true, nil);
// an ErrorResponse closes the cursor and returns the SQL error.
func (c *Cursor) Next() (row Row, drained bool, err error) {
	if err := c.checkUsable(); err != nil {
		return Row{}, false, err
	}
	if c.drained {
		return Row{}, true, nil
	}
	row, drained, err = c.conn.advanceCursor(c)
	if drained {
		c.drained = true
	}
	if err != nil {
		c.closed = true
	}
	return row, drained, err
}

// Close closes the cursor: if not yet drained, sends Close(portal)/Sync
// and reads through ReadyForQuery; if already drained, no protocol
// traffic is required. Idempotent.
func (c *Cursor) Close() error {
	if c.IsClosed() {
		return nil
	}
	err := c.closeInternal()
	if c.conn.openCursor == c {
		c.conn.openCursor = nil
	}
	return err
}

// closeInternal performs the actual close without touching
// conn.openCursor, so it can be called both from the public Close and from
// the Connection's forced-close path.
func (c *Cursor) closeInternal() error {
	if c.closed {
		return nil
	}
	c.closed = true
	if c.conn.closed {
		return nil
	}
	if c.drained {
		return nil
	}
	if err := c.conn.transport.Send(protocol.Close(protocol.DescribePortal, "")); err != nil {
		return wrapError(CodeSocketError, "sending Close(portal)", err)
	}
	if err := c.conn.transport.Send(protocol.Sync()); err != nil {
		return wrapError(CodeSocketError, "sending Sync", err)
	}
	// Two ReadyForQuery messages are outstanding: the one ending the
	// Bind/Execute/Sync cycle that produced this cursor, and the one
	// answering this Close/Sync.
	_, err := c.conn.drainUntilReady()
	if err == nil {
		_, err = c.conn.drainUntilReady()
	}
	c.drained = true
	return err
}
