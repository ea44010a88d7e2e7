// Package wire implements the framing primitives shared by every PostgreSQL
// frontend/backend message: big-endian integers, length-prefixed byte
// strings, and zero-terminated strings.
package wire

import (
	"encoding/binary"
	"errors"
	"io"
	"unicode/utf8"
)

// ErrTruncated is returned by Reader methods when the buffer runs out of
// bytes before a field can be fully decoded.
var ErrTruncated = errors.New("wire: truncated message")

// ErrInvalidUTF8 is returned by Reader.CString when the decoded bytes are
// not valid UTF-8, per the protocol's requirement that every string-typed
// field is UTF-8 text.
var ErrInvalidUTF8 = errors.New("wire: invalid UTF-8 in string field")

// MaxMessageLength bounds the length field of a single backend message.
// PostgreSQL messages are not expected to exceed this in normal operation;
// it exists to reject obviously-corrupt length prefixes before allocating.
const MaxMessageLength = 1 << 28

// Writer accumulates a single frontend message body. Callers build the body
// with Writer, then wrap it with ToTagged/ToUntagged to add the
// envelope (tag byte and/or length prefix).
type Writer struct {
	buf []byte
}

// NewWriter returns a Writer with capacity pre-reserved.
func NewWriter(capacity int) *Writer {
	return &Writer{buf: make([]byte, 0, capacity)}
}

// Bytes returns the accumulated body.
func (w *Writer) Bytes() []byte { return w.buf }

// Len returns the number of bytes written so far.
func (w *Writer) Len() int { return len(w.buf) }

// Byte appends a single byte.
func (w *Writer) Byte(b byte) *Writer {
	w.buf = append(w.buf, b)
	return w
}

// Int16 appends a big-endian int16.
func (w *Writer) Int16(v int16) *Writer {
	w.buf = append(w.buf, byte(v>>8), byte(v))
	return w
}

// Int32 appends a big-endian int32.
func (w *Writer) Int32(v int32) *Writer {
	w.buf = append(w.buf, byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
	return w
}

// Uint32 appends a big-endian uint32.
func (w *Writer) Uint32(v uint32) *Writer {
	return w.Int32(int32(v))
}

// RawBytes appends raw bytes with no terminator.
func (w *Writer) RawBytes(b []byte) *Writer {
	w.buf = append(w.buf, b...)
	return w
}

// CString appends s followed by a NUL terminator.
func (w *Writer) CString(s string) *Writer {
	w.buf = append(w.buf, s...)
	w.buf = append(w.buf, 0)
	return w
}

// CountedBytes appends an int32 length prefix followed by b. A nil b is
// encoded as length -1 with no following bytes, matching the wire
// representation PostgreSQL uses for a NULL parameter value.
func (w *Writer) CountedBytes(b []byte) *Writer {
	if b == nil {
		return w.Int32(-1)
	}
	w.Int32(int32(len(b)))
	return w.RawBytes(b)
}

// ToTagged renders body as a tagged frontend message: one type byte,
// followed by a 4-byte big-endian length (inclusive of itself), followed by
// the body.
func ToTagged(tag byte, body []byte) []byte {
	msg := make([]byte, 1+4+len(body))
	msg[0] = tag
	binary.BigEndian.PutUint32(msg[1:5], uint32(4+len(body)))
	copy(msg[5:], body)
	return msg
}

// ToUntagged renders body as an untagged message (startup message, SSL
// request): a 4-byte big-endian length (inclusive of itself) followed by
// the body, with no type byte.
func ToUntagged(body []byte) []byte {
	msg := make([]byte, 4+len(body))
	binary.BigEndian.PutUint32(msg[0:4], uint32(4+len(body)))
	copy(msg[4:], body)
	return msg
}

// Reader decodes fields sequentially from a fixed byte slice: a message
// payload already split from its envelope by the transport layer.
type Reader struct {
	buf []byte
	pos int
}

// NewReader wraps buf for sequential decoding.
func NewReader(buf []byte) *Reader {
	return &Reader{buf: buf}
}

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int { return len(r.buf) - r.pos }

// Rest returns every remaining byte without advancing further (peeking).
func (r *Reader) Rest() []byte { return r.buf[r.pos:] }

// Byte reads a single byte.
func (r *Reader) Byte() (byte, error) {
	if r.pos >= len(r.buf) {
		return 0, ErrTruncated
	}
	b := r.buf[r.pos]
	r.pos++
	return b, nil
}

// Int16 reads a big-endian int16.
func (r *Reader) Int16() (int16, error) {
	if r.pos+2 > len(r.buf) {
		return 0, ErrTruncated
	}
	v := int16(binary.BigEndian.Uint16(r.buf[r.pos:]))
	r.pos += 2
	return v, nil
}

// Int32 reads a big-endian int32.
func (r *Reader) Int32() (int32, error) {
	if r.pos+4 > len(r.buf) {
		return 0, ErrTruncated
	}
	v := int32(binary.BigEndian.Uint32(r.buf[r.pos:]))
	r.pos += 4
	return v, nil
}

// Uint32 reads a big-endian uint32.
func (r *Reader) Uint32() (uint32, error) {
	v, err := r.Int32()
	return uint32(v), err
}

// Bytes reads exactly n raw bytes.
func (r *Reader) Bytes(n int) ([]byte, error) {
	if n < 0 || r.pos+n > len(r.buf) {
		return nil, ErrTruncated
	}
	b := r.buf[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

// CountedBytes reads an int32 length prefix followed by that many bytes. A
// length of -1 (the NULL marker) yields a nil slice with no error.
func (r *Reader) CountedBytes() ([]byte, error) {
	n, err := r.Int32()
	if err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, nil
	}
	return r.Bytes(int(n))
}

// CString reads a NUL-terminated string, validating it as UTF-8.
func (r *Reader) CString() (string, error) {
	start := r.pos
	for r.pos < len(r.buf) {
		if r.buf[r.pos] == 0 {
			s := r.buf[start:r.pos]
			r.pos++
			if !utf8.Valid(s) {
				return "", ErrInvalidUTF8
			}
			return string(s), nil
		}
		r.pos++
	}
	return "", ErrTruncated
}

// ReadMessage reads one tagged backend message from r: a type byte, a
// 4-byte big-endian length (inclusive of itself), and the payload. It fails
// with ErrTruncated-equivalent I/O errors on a short read and rejects
// implausible lengths before allocating the payload buffer.
func ReadMessage(r io.Reader) (tag byte, payload []byte, err error) {
	var hdr [5]byte
	if _, err = io.ReadFull(r, hdr[:]); err != nil {
		return 0, nil, err
	}
	tag = hdr[0]
	length := int(binary.BigEndian.Uint32(hdr[1:5])) - 4
	if length < 0 || length > MaxMessageLength {
		return 0, nil, errors.New("wire: invalid message length")
	}
	if length == 0 {
		return tag, nil, nil
	}
	payload = make([]byte, length)
	if _, err = io.ReadFull(r, payload); err != nil {
		return 0, nil, err
	}
	return tag, payload, nil
}
