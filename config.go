package pgnative

import "time"

// CredentialKind selects which authentication flow Connect performs.
type CredentialKind int

const (
	CredentialTrust CredentialKind = iota
	CredentialCleartext
	CredentialMD5
	CredentialScramSHA256
)

// Credential is a tagged variant: {trust; cleartext(password);
// md5(password); scram-sha-256(password)}.
type Credential struct {
	Kind     CredentialKind
	Password string
}

// TrustCredential accepts only AuthenticationOk with no password exchange.
func TrustCredential() Credential { return Credential{Kind: CredentialTrust} }

// CleartextCredential sends the password unencrypted in response to
// AuthenticationCleartextPassword.
func CleartextCredential(password string) Credential {
	return Credential{Kind: CredentialCleartext, Password: password}
}

// MD5Credential sends an MD5-hashed password in response to
// AuthenticationMD5Password.
func MD5Credential(password string) Credential {
	return Credential{Kind: CredentialMD5, Password: password}
}

// ScramSHA256Credential performs the full SCRAM-SHA-256 SASL exchange.
func ScramSHA256Credential(password string) Credential {
	return Credential{Kind: CredentialScramSHA256, Password: password}
}

// Config describes a single connection's target and credentials.
type Config struct {
	Host          string
	Port          int
	SSL           bool
	SocketTimeout time.Duration // 0 = none
	Database      string
	User          string
	Credential    Credential
	Delegate      Delegate
}

// DefaultConfig returns the library's connection defaults: host "localhost",
// port 5432, ssl true, no socket timeout, database "postgres", user "",
// trust credential.
func DefaultConfig() Config {
	return Config{
		Host:       "localhost",
		Port:       5432,
		SSL:        true,
		Database:   "postgres",
		User:       "",
		Credential: TrustCredential(),
	}
}

// PoolConfig describes a connection pool's limits and lifecycle timeouts.
type PoolConfig struct {
	ConnectionConfig Config

	MaxSessions             int           // default 10
	MaxPendingRequests      int           // 0 = unbounded
	PendingRequestTimeout   time.Duration // 0 = none
	AllocatedSessionTimeout time.Duration // 0 = none
	MetricsFlushInterval    time.Duration // default 1h
	MetricsResetWhenFlushed bool          // default true
}

// DefaultPoolConfig returns the library's pool defaults: maximumConnections
// 10, no pending cap, no pending/allocation timeout, a one-hour metrics
// flush interval with reset-on-flush enabled.
func DefaultPoolConfig(connCfg Config) PoolConfig {
	return PoolConfig{
		ConnectionConfig:        connCfg,
		MaxSessions:             10,
		MetricsFlushInterval:    time.Hour,
		MetricsResetWhenFlushed: true,
	}
}
