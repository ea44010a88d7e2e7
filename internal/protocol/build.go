package protocol

import "github.com/pgnative/pgnative/internal/wire"

// SSLRequest is the fixed 8-byte untagged message: length=8, request
// code=80877103.
func SSLRequest() []byte {
	w := wire.NewWriter(8)
	w.Int32(8)
	w.Int32(80877103)
	return w.Bytes()
}

// StartupMessage builds the untagged StartupMessage: protocol version 3.0
// followed by alternating parameter name/value C-strings, terminated by a
// zero byte.
func StartupMessage(params map[string]string) []byte {
	w := wire.NewWriter(64)
	w.Int32(ProtocolVersion3)
	for k, v := range params {
		w.CString(k)
		w.CString(v)
	}
	w.Byte(0)
	return wire.ToUntagged(w.Bytes())
}

// PasswordMessage builds a tagged PasswordMessage carrying s (used for
// cleartext and MD5 responses; the SASL messages below share its tag).
func PasswordMessage(s string) []byte {
	w := wire.NewWriter(len(s) + 1)
	w.CString(s)
	return wire.ToTagged(TagPasswordMessage, w.Bytes())
}

// SASLInitialResponse builds the initial SASL response: mechanism name,
// then a counted byte string carrying the client-first-message.
func SASLInitialResponse(mechanism string, clientFirst []byte) []byte {
	w := wire.NewWriter(len(mechanism) + len(clientFirst) + 8)
	w.CString(mechanism)
	w.CountedBytes(clientFirst)
	return wire.ToTagged(TagPasswordMessage, w.Bytes())
}

// SASLResponse builds a SASL response message: raw bytes, no length prefix
// beyond the envelope.
func SASLResponse(data []byte) []byte {
	w := wire.NewWriter(len(data))
	w.RawBytes(data)
	return wire.ToTagged(TagPasswordMessage, w.Bytes())
}

// Parse builds a Parse message: statement name, query text, and a count of
// explicit parameter type OIDs (always 0 here — parameters are always sent
// as text and the server infers types).
func Parse(statementName, query string) []byte {
	w := wire.NewWriter(len(query) + len(statementName) + 8)
	w.CString(statementName)
	w.CString(query)
	w.Int16(0)
	return wire.ToTagged(TagParse, w.Bytes())
}

// Bind builds a Bind message for the unnamed portal against statementName,
// with params text-encoded. A nil entry in params encodes as NULL.
func Bind(statementName string, params [][]byte) []byte {
	w := wire.NewWriter(32)
	w.CString("") // destination portal: always unnamed
	w.CString(statementName)
	w.Int16(0) // zero parameter format codes => all text
	w.Int16(int16(len(params)))
	for _, p := range params {
		w.CountedBytes(p)
	}
	w.Int16(0) // zero result format codes => all text
	return wire.ToTagged(TagBind, w.Bytes())
}

// Describe builds a Describe message for either the named statement
// (kind==DescribeStatement) or the unnamed portal (kind==DescribePortal).
func Describe(kind byte, name string) []byte {
	w := wire.NewWriter(len(name) + 2)
	w.Byte(kind)
	w.CString(name)
	return wire.ToTagged(TagDescribe, w.Bytes())
}

// Execute builds an Execute message for the unnamed portal. rowLimit==0
// means "no limit".
func Execute(rowLimit int32) []byte {
	w := wire.NewWriter(8)
	w.CString("")
	w.Int32(rowLimit)
	return wire.ToTagged(TagExecute, w.Bytes())
}

// Sync builds a Sync message.
func Sync() []byte {
	return wire.ToTagged(TagSync, nil)
}

// Close builds a Close message for either the named statement or the
// unnamed portal.
func Close(kind byte, name string) []byte {
	w := wire.NewWriter(len(name) + 2)
	w.Byte(kind)
	w.CString(name)
	return wire.ToTagged(TagClose, w.Bytes())
}

// Terminate builds a Terminate message.
func Terminate() []byte {
	return wire.ToTagged(TagTerminate, nil)
}
