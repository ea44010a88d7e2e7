package authn

import (
	"crypto/sha256"
	"encoding/base64"
	"strings"
	"testing"

	"golang.org/x/crypto/pbkdf2"
)

// scramServer simulates the server side of one SCRAM-SHA-256 exchange
// against a known password, mirroring the arithmetic an actual backend
// performs so ScramClient can be exercised without a socket.
type scramServer struct {
	password   string
	salt       []byte
	iterations int

	clientNonce     string
	clientFirstBare string
	serverNonce     string
	serverFirst     string
}

func newScramServer(password string, salt []byte, iterations int) *scramServer {
	return &scramServer{password: password, salt: salt, iterations: iterations}
}

func (s *scramServer) firstMessage(clientFirst string) string {
	bare := strings.TrimPrefix(clientFirst, "n,,")
	s.clientFirstBare = bare
	for _, part := range strings.Split(bare, ",") {
		if strings.HasPrefix(part, "r=") {
			s.clientNonce = part[2:]
		}
	}
	s.serverNonce = s.clientNonce + "server-extension"
	s.serverFirst = "r=" + s.serverNonce + ",s=" + base64.StdEncoding.EncodeToString(s.salt) + ",i=" + itoa(s.iterations)
	return s.serverFirst
}

func (s *scramServer) finalMessage(clientFinal string) (string, bool) {
	saltedPassword := pbkdf2.Key([]byte(s.password), s.salt, s.iterations, 32, sha256.New)
	clientKey := HMACSHA256(saltedPassword, []byte("Client Key"))
	storedKey := SHA256(clientKey)

	withoutProof := "c=biws,r=" + s.serverNonce
	authMessage := s.clientFirstBare + "," + s.serverFirst + "," + withoutProof
	expectedSig := HMACSHA256(storedKey, []byte(authMessage))

	idx := strings.LastIndex(clientFinal, ",p=")
	if idx < 0 {
		return "", false
	}
	proofB64 := clientFinal[idx+3:]
	proof, err := base64.StdEncoding.DecodeString(proofB64)
	if err != nil || len(proof) != len(clientKey) {
		return "", false
	}
	gotClientKey := make([]byte, len(proof))
	for i := range proof {
		gotClientKey[i] = proof[i] ^ expectedSig[i]
	}
	if string(SHA256(gotClientKey)) != string(storedKey) {
		return "", false
	}

	serverKey := HMACSHA256(saltedPassword, []byte("Server Key"))
	serverSignature := HMACSHA256(serverKey, []byte(authMessage))
	return "v=" + base64.StdEncoding.EncodeToString(serverSignature), true
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}

func TestScramClientFullExchangeSucceeds(t *testing.T) {
	srv := newScramServer("s3cr3t", []byte("randomsaltvalue"), 4096)

	client, err := NewScramClient("alice", "s3cr3t")
	if err != nil {
		t.Fatalf("NewScramClient: %v", err)
	}

	first := client.ClientFirstMessage()
	if !strings.HasPrefix(first, "n,,n=alice,r=") {
		t.Fatalf("unexpected client-first-message: %q", first)
	}

	serverFirst := srv.firstMessage(first)
	if err := client.HandleServerFirst(serverFirst); err != nil {
		t.Fatalf("HandleServerFirst: %v", err)
	}

	final := client.ClientFinalMessage()
	serverFinal, ok := srv.finalMessage(final)
	if !ok {
		t.Fatal("server rejected client proof")
	}

	if err := client.VerifyServerFinal(serverFinal); err != nil {
		t.Fatalf("VerifyServerFinal: %v", err)
	}
}

func TestScramClientRejectsWrongPassword(t *testing.T) {
	srv := newScramServer("correct-password", []byte("salt1234"), 4096)

	client, err := NewScramClient("bob", "wrong-password")
	if err != nil {
		t.Fatalf("NewScramClient: %v", err)
	}

	serverFirst := srv.firstMessage(client.ClientFirstMessage())
	if err := client.HandleServerFirst(serverFirst); err != nil {
		t.Fatalf("HandleServerFirst: %v", err)
	}
	final := client.ClientFinalMessage()
	if _, ok := srv.finalMessage(final); ok {
		t.Fatal("server accepted a proof computed from the wrong password")
	}
}

func TestScramClientRejectsServerNonceNotExtendingClientNonce(t *testing.T) {
	client, err := NewScramClient("alice", "s3cr3t")
	if err != nil {
		t.Fatalf("NewScramClient: %v", err)
	}
	client.ClientFirstMessage()

	bogusFirst := "r=totally-unrelated-nonce,s=" + base64.StdEncoding.EncodeToString([]byte("salt")) + ",i=4096"
	if err := client.HandleServerFirst(bogusFirst); err != ErrServerNonceMismatch {
		t.Fatalf("expected ErrServerNonceMismatch, got %v", err)
	}
}

func TestScramClientRejectsLowIterationCount(t *testing.T) {
	client, err := NewScramClient("alice", "s3cr3t")
	if err != nil {
		t.Fatalf("NewScramClient: %v", err)
	}
	first := client.ClientFirstMessage()
	parts := strings.Split(first, ",")
	cnonce := strings.TrimPrefix(parts[len(parts)-1], "r=")

	weakFirst := "r=" + cnonce + "x,s=" + base64.StdEncoding.EncodeToString([]byte("salt")) + ",i=100"
	if err := client.HandleServerFirst(weakFirst); err != ErrScramIterationsTooLow {
		t.Fatalf("expected ErrScramIterationsTooLow, got %v", err)
	}
}

func TestScramClientRejectsMalformedServerFirst(t *testing.T) {
	client, _ := NewScramClient("alice", "s3cr3t")
	client.ClientFirstMessage()
	if err := client.HandleServerFirst("garbage"); err != ErrMalformedServerMessage {
		t.Fatalf("expected ErrMalformedServerMessage, got %v", err)
	}
}

func TestScramClientRejectsForgedServerSignature(t *testing.T) {
	srv := newScramServer("s3cr3t", []byte("salt-bytes"), 4096)
	client, _ := NewScramClient("alice", "s3cr3t")

	serverFirst := srv.firstMessage(client.ClientFirstMessage())
	if err := client.HandleServerFirst(serverFirst); err != nil {
		t.Fatalf("HandleServerFirst: %v", err)
	}
	client.ClientFinalMessage()

	forged := "v=" + base64.StdEncoding.EncodeToString([]byte("not-the-real-signature!!"))
	if err := client.VerifyServerFinal(forged); err != ErrServerSignatureMismatch {
		t.Fatalf("expected ErrServerSignatureMismatch, got %v", err)
	}
}

// TestScramClientRFC7677KnownAnswerVector reproduces the worked example from
// RFC 7677 §3 verbatim, pinning the client nonce the RFC uses so the
// client-first and client-final messages can be compared byte for byte
// against the published wire strings.
func TestScramClientRFC7677KnownAnswerVector(t *testing.T) {
	client, err := NewScramClient("user", "pencil")
	if err != nil {
		t.Fatalf("NewScramClient: %v", err)
	}
	client.cnonce = "rOprNGfwEbeRWgbNEkqO"

	const wantClientFirst = "n,,n=user,r=rOprNGfwEbeRWgbNEkqO"
	if first := client.ClientFirstMessage(); first != wantClientFirst {
		t.Fatalf("client-first-message = %q, want %q", first, wantClientFirst)
	}

	const serverFirst = "r=rOprNGfwEbeRWgbNEkqO%hvYDpWUa2RaTCAfuxFIlj)hNlF$k0,s=W22ZaJ0SNY7soEsUEjb6gQ==,i=4096"
	if err := client.HandleServerFirst(serverFirst); err != nil {
		t.Fatalf("HandleServerFirst: %v", err)
	}

	const wantClientFinal = "c=biws,r=rOprNGfwEbeRWgbNEkqO%hvYDpWUa2RaTCAfuxFIlj)hNlF$k0,p=dHzbZapWIk4jUhN+Ute9ytag9zjfMHgsqmmiz7AndVQ="
	if final := client.ClientFinalMessage(); final != wantClientFinal {
		t.Fatalf("client-final-message = %q, want %q", final, wantClientFinal)
	}

	const serverFinal = "v=6rriTRBi23WpRR/wtup+mMhUZUn/dB5nLTJRsjl95G4="
	if err := client.VerifyServerFinal(serverFinal); err != nil {
		t.Fatalf("VerifyServerFinal: %v", err)
	}
}

func TestGenerateNonceIsUniqueAndWithinAlphabet(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		n, err := generateNonce(24)
		if err != nil {
			t.Fatalf("generateNonce: %v", err)
		}
		if len(n) != 24 {
			t.Fatalf("expected length 24, got %d", len(n))
		}
		for _, r := range n {
			if !strings.ContainsRune(nonceAlphabet, r) {
				t.Fatalf("nonce contains character outside the printable-non-comma alphabet: %q", r)
			}
		}
		if seen[n] {
			t.Fatalf("generateNonce produced a repeat: %q", n)
		}
		seen[n] = true
	}
}
