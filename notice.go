package pgnative

// Notice carries every field of a PostgreSQL NoticeResponse or
// ErrorResponse message (protocol version 3.0, message field identifiers
// 'S' through 'R'). All fields but Severity, SeverityLocalized, Code, and
// Message are optional and may be empty.
type Notice struct {
	Severity          string // 'S': ERROR, FATAL, PANIC, WARNING, NOTICE, DEBUG, INFO, LOG
	SeverityLocalized string // 'V': non-localized, always present since protocol 3.0
	Code              string // 'C': SQLSTATE code
	Message           string // 'M'
	Detail            string // 'D'
	Hint              string // 'H'
	Position          string // 'P'
	InternalPosition  string // 'p'
	InternalQuery     string // 'q'
	Where             string // 'W'
	Schema            string // 's'
	Table             string // 't'
	Column            string // 'c'
	DataType          string // 'd'
	Constraint        string // 'n'
	File              string // 'F'
	Line              string // 'L'
	Routine           string // 'R'
}

// Notification is a LISTEN/NOTIFY payload delivered out of band from any
// request/response cycle. Distinct from Notice: a NotificationResponse
// never carries SQLSTATE or severity, only a channel and a payload.
type Notification struct {
	ProcessID int32
	Channel   string
	Payload   string
}

// ParameterChange is forwarded to the Delegate whenever a ParameterStatus
// message arrives, both during the startup handshake and afterwards (the
// server changing a session parameter mid-session). The three parameters
// pinned at startup (client_encoding, DateStyle, TimeZone) are handled
// specially: drift on those closes the connection rather than merely
// notifying the delegate.
type ParameterChange struct {
	Name  string
	Value string
}

// Delegate receives asynchronous server messages. It is a non-owning
// back-reference: the core tolerates a nil or absent Delegate with no
// branching logic elsewhere (every dispatch site nil-checks once). The
// delegate's lifetime is owned and managed by the application, never by
// the Connection.
type Delegate interface {
	// OnNotice is invoked for every NoticeResponse.
	OnNotice(n Notice)

	// OnParameterChange is invoked for every ParameterStatus, including
	// those sent during startup.
	OnParameterChange(p ParameterChange)

	// OnNotification is invoked for a NotificationResponse (LISTEN/NOTIFY).
	OnNotification(n Notification)
}

// NopDelegate discards every callback. Embed it to satisfy Delegate while
// overriding only the methods of interest.
type NopDelegate struct{}

func (NopDelegate) OnNotice(Notice)                   {}
func (NopDelegate) OnParameterChange(ParameterChange) {}
func (NopDelegate) OnNotification(Notification)       {}
