package protocol

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/pgnative/pgnative/internal/wire"
)

// NoticeFields holds every field of an ErrorResponse or NoticeResponse
// message, keyed by the protocol's single-byte field identifiers. Both
// message types share this exact encoding.
type NoticeFields struct {
	Severity          string
	SeverityLocalized string
	Code              string
	Message           string
	Detail            string
	Hint              string
	Position          string
	InternalPosition  string
	InternalQuery     string
	Where             string
	Schema            string
	Table             string
	Column            string
	DataType          string
	Constraint        string
	File              string
	Line              string
	Routine           string
}

// ParseNoticeFields decodes the field-identifier/C-string pairs that make
// up an ErrorResponse or NoticeResponse body, terminated by a zero byte.
func ParseNoticeFields(body []byte) (NoticeFields, error) {
	var n NoticeFields
	r := wire.NewReader(body)
	for {
		id, err := r.Byte()
		if err != nil {
			return n, err
		}
		if id == 0 {
			break
		}
		val, err := r.CString()
		if err != nil {
			return n, err
		}
		switch id {
		case 'S':
			n.Severity = val
		case 'V':
			n.SeverityLocalized = val
		case 'C':
			n.Code = val
		case 'M':
			n.Message = val
		case 'D':
			n.Detail = val
		case 'H':
			n.Hint = val
		case 'P':
			n.Position = val
		case 'p':
			n.InternalPosition = val
		case 'q':
			n.InternalQuery = val
		case 'W':
			n.Where = val
		case 's':
			n.Schema = val
		case 't':
			n.Table = val
		case 'c':
			n.Column = val
		case 'd':
			n.DataType = val
		case 'n':
			n.Constraint = val
		case 'F':
			n.File = val
		case 'L':
			n.Line = val
		case 'R':
			n.Routine = val
		}
	}
	return n, nil
}

// ParameterStatus decodes a ParameterStatus message body: name, value.
func ParameterStatus(body []byte) (name, value string, err error) {
	r := wire.NewReader(body)
	if name, err = r.CString(); err != nil {
		return "", "", err
	}
	if value, err = r.CString(); err != nil {
		return "", "", err
	}
	return name, value, nil
}

// BackendKeyData decodes a BackendKeyData message body.
func BackendKeyData(body []byte) (processID, secretKey int32, err error) {
	r := wire.NewReader(body)
	if processID, err = r.Int32(); err != nil {
		return 0, 0, err
	}
	if secretKey, err = r.Int32(); err != nil {
		return 0, 0, err
	}
	return processID, secretKey, nil
}

// AuthMessage decodes the leading int32 auth type code of an
// AuthenticationXxx message, returning the code and the remaining payload.
func AuthMessage(body []byte) (code int32, rest []byte, err error) {
	r := wire.NewReader(body)
	if code, err = r.Int32(); err != nil {
		return 0, nil, err
	}
	return code, r.Rest(), nil
}

// MD5Salt extracts the 4-byte salt from an AuthenticationMD5Password
// payload (the bytes following the auth type code).
func MD5Salt(rest []byte) (salt [4]byte, err error) {
	r := wire.NewReader(rest)
	b, err := r.Bytes(4)
	if err != nil {
		return salt, err
	}
	copy(salt[:], b)
	return salt, nil
}

// SASLMechanisms parses the NUL-terminated list of mechanism names
// following the auth type code of an AuthenticationSASL message,
// terminated by an extra NUL.
func SASLMechanisms(rest []byte) ([]string, error) {
	r := wire.NewReader(rest)
	var mechs []string
	for {
		s, err := r.CString()
		if err != nil {
			return nil, err
		}
		if s == "" {
			break
		}
		mechs = append(mechs, s)
	}
	return mechs, nil
}

// ColumnDescriptor is one field of a RowDescription message.
type ColumnDescriptor struct {
	Name         string
	TableOID     int32
	ColumnNumber int16
	TypeOID      int32
	TypeSize     int16
	TypeModifier int32
	FormatCode   int16
}

// RowDescription decodes a RowDescription message body.
func RowDescription(body []byte) ([]ColumnDescriptor, error) {
	r := wire.NewReader(body)
	n, err := r.Int16()
	if err != nil {
		return nil, err
	}
	cols := make([]ColumnDescriptor, n)
	for i := range cols {
		var c ColumnDescriptor
		if c.Name, err = r.CString(); err != nil {
			return nil, err
		}
		if c.TableOID, err = r.Int32(); err != nil {
			return nil, err
		}
		if c.ColumnNumber, err = r.Int16(); err != nil {
			return nil, err
		}
		if c.TypeOID, err = r.Int32(); err != nil {
			return nil, err
		}
		if c.TypeSize, err = r.Int16(); err != nil {
			return nil, err
		}
		if c.TypeModifier, err = r.Int32(); err != nil {
			return nil, err
		}
		if c.FormatCode, err = r.Int16(); err != nil {
			return nil, err
		}
		cols[i] = c
	}
	return cols, nil
}

// ParameterOIDs decodes a ParameterDescription message body.
func ParameterOIDs(body []byte) ([]int32, error) {
	r := wire.NewReader(body)
	n, err := r.Int16()
	if err != nil {
		return nil, err
	}
	oids := make([]int32, n)
	for i := range oids {
		if oids[i], err = r.Int32(); err != nil {
			return nil, err
		}
	}
	return oids, nil
}

// DataRow decodes a DataRow message body into raw text-format column
// values; a nil entry denotes SQL NULL.
func DataRow(body []byte) ([][]byte, error) {
	r := wire.NewReader(body)
	n, err := r.Int16()
	if err != nil {
		return nil, err
	}
	vals := make([][]byte, n)
	for i := range vals {
		if vals[i], err = r.CountedBytes(); err != nil {
			return nil, err
		}
	}
	return vals, nil
}

var commandTagRowCount = regexp.MustCompile(`(\d+)$`)

// CommandTagRowCount extracts the row count from a CommandComplete tag,
// e.g. "SELECT 2", "INSERT 0 1", "UPDATE 3", "DELETE 1". Tags with no
// trailing count (e.g. "BEGIN", "COMMIT") return ok==false.
func CommandTagRowCount(tag string) (count int64, ok bool) {
	fields := strings.Fields(tag)
	if len(fields) == 0 {
		return 0, false
	}
	m := commandTagRowCount.FindString(fields[len(fields)-1])
	if m == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(m, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// CommandComplete decodes a CommandComplete message body into its tag
// string.
func CommandComplete(body []byte) (tag string, err error) {
	r := wire.NewReader(body)
	return r.CString()
}

// NotificationResponse decodes a NotificationResponse message body.
func NotificationResponse(body []byte) (processID int32, channel, payload string, err error) {
	r := wire.NewReader(body)
	if processID, err = r.Int32(); err != nil {
		return 0, "", "", err
	}
	if channel, err = r.CString(); err != nil {
		return 0, "", "", err
	}
	if payload, err = r.CString(); err != nil {
		return 0, "", "", err
	}
	return processID, channel, payload, nil
}
