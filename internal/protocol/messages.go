// Package protocol defines the PostgreSQL frontend/backend message tags,
// builders, and parsers. It depends only on internal/wire for framing;
// the extended-query state machine itself lives in the root package,
// which is the only place that owns the transport.
package protocol

// ProtocolVersion3 is the startup message's protocol version: major 3,
// minor 0, packed as one int32.
const ProtocolVersion3 = 3 << 16

// Frontend message type tags.
const (
	TagPasswordMessage = 'p' // also SASLInitialResponse / SASLResponse
	TagParse           = 'P'
	TagBind            = 'B'
	TagDescribe        = 'D'
	TagExecute         = 'E'
	TagSync            = 'S'
	TagClose           = 'C'
	TagTerminate       = 'X'
	TagQuery           = 'Q'
)

// Backend message type tags.
const (
	TagAuthentication       = 'R'
	TagBackendKeyData       = 'K'
	TagBindComplete         = '2'
	TagCloseComplete        = '3'
	TagCommandComplete      = 'C'
	TagDataRow              = 'D'
	TagEmptyQueryResponse   = 'I'
	TagErrorResponse        = 'E'
	TagNoData               = 'n'
	TagNoticeResponse       = 'N'
	TagNotificationResponse = 'A'
	TagParameterDescription = 't'
	TagParameterStatus      = 'S'
	TagParseComplete        = '1'
	TagPortalSuspended      = 's'
	TagReadyForQuery        = 'Z'
	TagRowDescription       = 'T'
)

// Authentication sub-message codes carried in the first int32 of an
// AuthenticationXxx ('R') message body.
const (
	AuthOK                = 0
	AuthCleartextPassword = 3
	AuthMD5Password       = 5
	AuthSASL              = 10
	AuthSASLContinue      = 11
	AuthSASLFinal         = 12
)

// DescribeKind selects the target of a Describe/Close message.
const (
	DescribeStatement = 'S'
	DescribePortal    = 'P'
)

// SCRAMMechanism is the only SASL mechanism this client offers.
const SCRAMMechanism = "SCRAM-SHA-256"

// TransactionStatus is the single byte ReadyForQuery carries: 'I' idle, 'T'
// in a transaction, 'E' a failed transaction.
type TransactionStatus byte

const (
	TxIdle   TransactionStatus = 'I'
	TxActive TransactionStatus = 'T'
	TxFailed TransactionStatus = 'E'
)
