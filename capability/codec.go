package capability

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/flowmesh/flowmesh/core"
)

// jwtHeader is the fixed base64url-encoded header for HS256.
var jwtHeader = base64URLEncode([]byte(`{"alg":"HS256","typ":"JWT"}`))

// Codec signs and decodes capability tokens with an HMAC-SHA256 shared
// secret. Sign exists for tests and local tooling; production tokens come
// from the external issuer that shares the secret.
type Codec struct {
	secret []byte
}

// NewCodec creates a Codec from the shared signing secret.
func NewCodec(secret string) *Codec {
	return &Codec{secret: []byte(secret)}
}

// Sign serializes and signs a capability token into its compact wire form.
func (c *Codec) Sign(token *core.CapabilityToken) (string, error) {
	payload, err := json.Marshal(token)
	if err != nil {
		return "", fmt.Errorf("marshal token: %w", err)
	}

	signingInput := jwtHeader + "." + base64URLEncode(payload)

	mac := hmac.New(sha256.New, c.secret)
	mac.Write([]byte(signingInput))
	sig := base64URLEncode(mac.Sum(nil))

	return signingInput + "." + sig, nil
}

// Decode verifies the signature of a compact token string and returns the
// embedded capability token. A malformed or tampered token yields an
// AuthorizationError.
func (c *Codec) Decode(raw string) (*core.CapabilityToken, error) {
	parts := strings.SplitN(raw, ".", 3)
	if len(parts) != 3 {
		return nil, &core.AuthorizationError{Reason: "malformed token"}
	}

	signingInput := parts[0] + "." + parts[1]
	mac := hmac.New(sha256.New, c.secret)
	mac.Write([]byte(signingInput))
	expectedSig := base64URLEncode(mac.Sum(nil))

	if !hmac.Equal([]byte(parts[2]), []byte(expectedSig)) {
		return nil, &core.AuthorizationError{Reason: "invalid token signature"}
	}

	payload, err := base64URLDecode(parts[1])
	if err != nil {
		return nil, &core.AuthorizationError{Reason: "undecodable token payload"}
	}

	var token core.CapabilityToken
	if err := json.Unmarshal(payload, &token); err != nil {
		return nil, &core.AuthorizationError{Reason: "invalid token payload"}
	}
	if token.TenantID == "" {
		return nil, &core.AuthorizationError{Subject: token.Subject, Reason: "token missing tenant"}
	}

	return &token, nil
}

func base64URLEncode(b []byte) string {
	return base64.RawURLEncoding.EncodeToString(b)
}

func base64URLDecode(s string) ([]byte, error) {
	b, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, errors.New("invalid base64url")
	}
	return b, nil
}
