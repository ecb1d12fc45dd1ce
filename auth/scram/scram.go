// Package scram implements the SCRAM-SHA-256 SASL mechanism (RFC 5802,
// RFC 7677).
package scram

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/pbkdf2"

	"github.com/meszmate/imap-flow/auth"
)

// Mechanism name.
const Name = "SCRAM-SHA-256"

// scramStep tracks where a ClientMechanism is in the four-message
// exchange: client-first -> server-first -> client-final -> server-final.
type scramStep int

const (
	stepClientFirst scramStep = iota
	stepClientFinal
	stepServerFinal
)

// ClientMechanism implements SCRAM-SHA-256 authentication for clients.
type ClientMechanism struct {
	Username string
	Password string

	step               scramStep
	clientNonce        string
	clientFirstMsgBare string
	serverSig          []byte
}

// Name returns "SCRAM-SHA-256".
func (m *ClientMechanism) Name() string { return Name }

// Start returns the client-first-message.
func (m *ClientMechanism) Start() ([]byte, error) {
	nonce, err := generateNonce()
	if err != nil {
		return nil, fmt.Errorf("scram: %w", err)
	}
	m.clientNonce = nonce
	m.clientFirstMsgBare = "n=" + saslName(m.Username) + ",r=" + m.clientNonce
	m.step = stepClientFirst
	return []byte("n,," + m.clientFirstMsgBare), nil
}

// Next processes the server-first-message or server-final-message and
// returns the corresponding client response.
func (m *ClientMechanism) Next(challenge []byte) ([]byte, error) {
	switch m.step {
	case stepClientFirst:
		return m.handleServerFirst(challenge)
	case stepClientFinal:
		return m.handleServerFinal(challenge)
	default:
		return nil, fmt.Errorf("scram: unexpected challenge")
	}
}

func (m *ClientMechanism) handleServerFirst(challenge []byte) ([]byte, error) {
	fields, err := parseFields(string(challenge))
	if err != nil {
		return nil, fmt.Errorf("scram: server-first-message: %w", err)
	}
	serverNonce := fields["r"]
	saltB64 := fields["s"]
	iterCountStr := fields["i"]
	if serverNonce == "" || saltB64 == "" || iterCountStr == "" {
		return nil, fmt.Errorf("scram: server-first-message missing r/s/i")
	}
	if !strings.HasPrefix(serverNonce, m.clientNonce) {
		return nil, fmt.Errorf("scram: server nonce does not extend client nonce")
	}
	salt, err := base64.StdEncoding.DecodeString(saltB64)
	if err != nil {
		return nil, fmt.Errorf("scram: invalid salt: %w", err)
	}
	iterCount, err := strconv.Atoi(iterCountStr)
	if err != nil || iterCount <= 0 {
		return nil, fmt.Errorf("scram: invalid iteration count")
	}

	channelBinding := base64.StdEncoding.EncodeToString([]byte("n,,"))
	clientFinalMsgWithoutProof := "c=" + channelBinding + ",r=" + serverNonce

	saltedPassword := pbkdf2.Key([]byte(m.Password), salt, iterCount, sha256.Size, sha256.New)
	clientKey := hmacSum(saltedPassword, []byte("Client Key"))
	storedKey := sha256.Sum256(clientKey)

	authMessage := m.clientFirstMsgBare + "," + string(challenge) + "," + clientFinalMsgWithoutProof
	clientSignature := hmacSum(storedKey[:], []byte(authMessage))
	clientProof := xorBytes(clientKey, clientSignature)

	serverKey := hmacSum(saltedPassword, []byte("Server Key"))
	serverSig := hmacSum(serverKey, []byte(authMessage))
	m.serverSig = serverSig

	m.step = stepClientFinal
	resp := clientFinalMsgWithoutProof + ",p=" + base64.StdEncoding.EncodeToString(clientProof)
	return []byte(resp), nil
}

func (m *ClientMechanism) handleServerFinal(challenge []byte) ([]byte, error) {
	fields, err := parseFields(string(challenge))
	if err != nil {
		return nil, fmt.Errorf("scram: server-final-message: %w", err)
	}
	if errMsg, ok := fields["e"]; ok {
		return nil, fmt.Errorf("scram: server reported error: %s", errMsg)
	}
	v, ok := fields["v"]
	if !ok {
		return nil, fmt.Errorf("scram: server-final-message missing v")
	}
	sig, err := base64.StdEncoding.DecodeString(v)
	if err != nil {
		return nil, fmt.Errorf("scram: invalid server signature: %w", err)
	}
	if !hmac.Equal(sig, m.serverSig) {
		return nil, fmt.Errorf("scram: server signature mismatch")
	}
	m.step = stepServerFinal
	return nil, nil
}

func hmacSum(key, data []byte) []byte {
	h := hmac.New(sha256.New, key)
	h.Write(data)
	return h.Sum(nil)
}

func xorBytes(a, b []byte) []byte {
	out := make([]byte, len(a))
	for i := range a {
		out[i] = a[i] ^ b[i]
	}
	return out
}

func generateNonce() (string, error) {
	raw := make([]byte, 18)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return base64.RawStdEncoding.EncodeToString(raw), nil
}

// saslName escapes ',' and '=' per RFC 5802 section 5.1.
func saslName(s string) string {
	s = strings.ReplaceAll(s, "=", "=3D")
	s = strings.ReplaceAll(s, ",", "=2C")
	return s
}

func parseFields(msg string) (map[string]string, error) {
	fields := make(map[string]string)
	for _, part := range strings.Split(msg, ",") {
		if part == "" {
			continue
		}
		kv := strings.SplitN(part, "=", 2)
		if len(kv) != 2 {
			return nil, fmt.Errorf("malformed attribute %q", part)
		}
		fields[kv[0]] = kv[1]
	}
	return fields, nil
}

func init() {
	auth.DefaultRegistry.RegisterClient(Name, func() auth.ClientMechanism {
		return &ClientMechanism{}
	})
}
