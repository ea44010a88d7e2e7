package pgnative

import (
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/pgnative/pgnative/internal/textcodec"
)

// Value is the narrow value abstraction the core operates on: an opaque
// UTF-8 byte string exactly as the server emitted it in text format, or the
// null marker. The core itself only ever needs equality with the
// null/non-null distinction; the typed accessors below perform conversion
// lazily, on demand, and report failures as CodeValueConversionError rather
// than anything protocol-shaped (spec §3: "failures are classified as
// conversion errors, not protocol errors").
type Value struct {
	text []byte
	null bool
}

// NullValue is the null marker.
var NullValue = Value{null: true}

// TextValue wraps a server-supplied text-format field. A nil b is treated
// as NULL, matching the wire representation (-1 length prefix).
func TextValue(b []byte) Value {
	if b == nil {
		return NullValue
	}
	return Value{text: b}
}

// IsNull reports whether v is the null marker.
func (v Value) IsNull() bool { return v.null }

// Text returns the raw text-format bytes. Panics semantics are avoided:
// callers must check IsNull first; Text on a null Value returns nil.
func (v Value) Text() []byte {
	if v.null {
		return nil
	}
	return v.text
}

// String returns the text-format value as a Go string, or "" if null.
func (v Value) String() string {
	if v.null {
		return ""
	}
	return string(v.text)
}

// Int64 converts the text value as a base-10 signed integer (PostgreSQL's
// text format for int2/int4/int8). Returns ErrValueIsNull for a null Value.
func (v Value) Int64() (int64, error) {
	if v.null {
		return 0, ErrValueIsNull
	}
	n, err := strconv.ParseInt(string(v.text), 10, 64)
	if err != nil {
		return 0, conversionError("int64", string(v.text), err)
	}
	return n, nil
}

// Float64 converts the text value as a floating-point literal (PostgreSQL's
// text format for float4/float8, including "NaN"/"Infinity"/"-Infinity").
func (v Value) Float64() (float64, error) {
	if v.null {
		return 0, ErrValueIsNull
	}
	s := string(v.text)
	switch s {
	case "NaN":
		return strconv.ParseFloat("NaN", 64)
	case "Infinity":
		return strconv.ParseFloat("+Inf", 64)
	case "-Infinity":
		return strconv.ParseFloat("-Inf", 64)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, conversionError("float64", s, err)
	}
	return f, nil
}

// Bool converts PostgreSQL's boolean text format ("t"/"f").
func (v Value) Bool() (bool, error) {
	if v.null {
		return false, ErrValueIsNull
	}
	switch string(v.text) {
	case "t":
		return true, nil
	case "f":
		return false, nil
	default:
		return false, conversionError("bool", string(v.text), nil)
	}
}

// Bytes decodes a bytea column in hex format ("\x..."), the default
// bytea_output since PostgreSQL 9.0. bytea_output is not among the
// settings pinned at startup; the escape format is rejected as a
// conversion error.
func (v Value) Bytes() ([]byte, error) {
	if v.null {
		return nil, ErrValueIsNull
	}
	s := string(v.text)
	if !strings.HasPrefix(s, `\x`) {
		return nil, conversionError("bytea", s, nil)
	}
	b, err := hex.DecodeString(s[2:])
	if err != nil {
		return nil, conversionError("bytea", s, err)
	}
	return b, nil
}

// Date converts a "date" column via internal/textcodec's strict ISO-8601
// grammar.
func (v Value) Date() (textcodec.Date, error) {
	if v.null {
		return textcodec.Date{}, ErrValueIsNull
	}
	d, err := textcodec.ParseDate(string(v.text))
	if err != nil {
		return textcodec.Date{}, conversionError("date", string(v.text), err)
	}
	return d, nil
}

// Time converts a "time" (no time zone) column.
func (v Value) Time() (textcodec.Time, error) {
	if v.null {
		return textcodec.Time{}, ErrValueIsNull
	}
	t, err := textcodec.ParseTime(string(v.text))
	if err != nil {
		return textcodec.Time{}, conversionError("time", string(v.text), err)
	}
	return t, nil
}

// Timestamp converts a "timestamp" (no time zone) column.
func (v Value) Timestamp() (textcodec.Timestamp, error) {
	if v.null {
		return textcodec.Timestamp{}, ErrValueIsNull
	}
	ts, err := textcodec.ParseTimestamp(string(v.text))
	if err != nil {
		return textcodec.Timestamp{}, conversionError("timestamp", string(v.text), err)
	}
	return ts, nil
}

// TimestampTZ converts a "timestamp with time zone" column. Since the
// session's TimeZone is pinned to UTC at startup (spec §4.6), the zone
// offset returned is always +00:00.
func (v Value) TimestampTZ() (textcodec.Timestamp, error) {
	if v.null {
		return textcodec.Timestamp{}, ErrValueIsNull
	}
	ts, err := textcodec.ParseTimestampTZ(string(v.text))
	if err != nil {
		return textcodec.Timestamp{}, conversionError("timestamptz", string(v.text), err)
	}
	return ts, nil
}

// Row is an ordered sequence of Values sharing the lifetime of the row in
// which they were produced. A Row is independent of the Cursor's future
// state: values already handed to the caller remain valid even after the
// cursor is drained or closed.
type Row struct {
	Values []Value
}
