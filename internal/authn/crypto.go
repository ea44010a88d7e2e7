// Package authn implements the credential-side computations for every
// PostgreSQL authentication flow: trust, cleartext, MD5, and
// SCRAM-SHA-256. It is a pure computation layer — given a challenge it
// returns the response bytes or a classified error — and never touches a
// socket; the protocol driver in the root package owns all message I/O and
// calls into this package only for the cryptographic steps.
package authn

import (
	"crypto/hmac"
	"crypto/md5" //nolint:gosec // required by the PostgreSQL wire protocol
	"crypto/sha256"
	"encoding/hex"

	"golang.org/x/crypto/pbkdf2"
)

// MD5Hex returns the lowercase hex MD5 digest of b, as used by both layers
// of the PostgreSQL MD5 password hash.
func MD5Hex(b []byte) string {
	sum := md5.Sum(b) //nolint:gosec
	return hex.EncodeToString(sum[:])
}

// MD5PasswordResponse computes "md5" || hex(md5(hex(md5(password||user)) ||
// salt)), the PasswordMessage payload for AuthenticationMD5Password.
func MD5PasswordResponse(user, password string, salt [4]byte) string {
	inner := MD5Hex([]byte(password + user))
	outer := MD5Hex(append([]byte(inner), salt[:]...))
	return "md5" + outer
}

// HMACSHA256 computes HMAC-SHA-256(key, data).
func HMACSHA256(key, data []byte) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write(data)
	return mac.Sum(nil)
}

// SHA256 computes the SHA-256 digest of b.
func SHA256(b []byte) []byte {
	sum := sha256.Sum256(b)
	return sum[:]
}

// PBKDF2HMACSHA256 computes PBKDF2-HMAC-SHA-256(password, salt, iterations,
// dkLen=32), the SaltedPassword derivation of RFC 5802 §3.
func PBKDF2HMACSHA256(password, salt []byte, iterations int) []byte {
	return pbkdf2.Key(password, salt, iterations, 32, sha256.New)
}
