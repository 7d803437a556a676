// Package auth implements two related but distinct concerns for the
// uploader agent: signed loopback tokens that gate the local event bridge
// (internal/eventbus) against any other process on the machine, and
// persisted device-authorization credentials for the Ladder Legends API
// (C4's companion: the desktop app never sees a password, only a device
// code the user approves in a browser).
//
// The HMAC token format in this file is adapted from the teacher's
// WebSocket authenticator, originally used to authenticate remote
// multiplayer clients against a broker. Here the same signer verifies its
// own tokens for a single loopback listener, so Issue and Verify live on
// one type instead of being split across a remote issuer and a local
// verifier.
package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrInvalidToken indicates the token failed signature checks or had malformed structure.
	ErrInvalidToken = errors.New("invalid token")
	// ErrExpiredToken signals that the token's expiry is in the past.
	ErrExpiredToken = errors.New("token expired")
)

// TokenClaims captures the minimal JWT-style payload carried by a loopback
// event-bridge token.
type TokenClaims struct {
	Subject   string
	ExpiresAt time.Time
	IssuedAt  time.Time
	Audience  string
}

// LoopbackTokenAuthenticator issues and verifies HS256 tokens scoped to a
// single agent process. The secret is generated fresh at startup and never
// persisted; the local UI receives a token issued with it, not the secret.
type LoopbackTokenAuthenticator struct {
	secret []byte
	now    func() time.Time
	leeway time.Duration
}

// NewLoopbackTokenAuthenticator constructs an authenticator for the supplied
// shared secret and clock skew allowance.
func NewLoopbackTokenAuthenticator(secret string, leeway time.Duration) (*LoopbackTokenAuthenticator, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, errors.New("hmac secret must not be empty")
	}
	if leeway < 0 {
		leeway = 0
	}
	return &LoopbackTokenAuthenticator{secret: []byte(secret), now: time.Now, leeway: leeway}, nil
}

// GenerateSecret returns a random base64url secret suitable for a fresh
// per-process loopback authenticator.
func GenerateSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// Issue mints a token for subject, valid for ttl.
func (a *LoopbackTokenAuthenticator) Issue(subject, audience string, ttl time.Duration) (string, error) {
	if a == nil || len(a.secret) == 0 {
		return "", errors.New("authenticator not initialised")
	}
	now := a.now()
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"HS256","typ":"JWT"}`))
	payload, err := json.Marshal(struct {
		Subject  string `json:"sub"`
		Expires  int64  `json:"exp"`
		Issued   int64  `json:"iat"`
		Audience string `json:"aud,omitempty"`
	}{Subject: subject, Expires: now.Add(ttl).Unix(), Issued: now.Unix(), Audience: audience})
	if err != nil {
		return "", err
	}
	encodedPayload := base64.RawURLEncoding.EncodeToString(payload)
	signingInput := header + "." + encodedPayload
	sig, err := a.sign([]byte(signingInput))
	if err != nil {
		return "", err
	}
	return signingInput + "." + base64.RawURLEncoding.EncodeToString(sig), nil
}

// Verify parses the token and validates the signature and expiry, returning the embedded claims.
func (a *LoopbackTokenAuthenticator) Verify(token string) (*TokenClaims, error) {
	if a == nil || len(a.secret) == 0 {
		return nil, errors.New("authenticator not initialised")
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrInvalidToken
	}

	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return nil, ErrInvalidToken
	}
	headerPayload := strings.Join(parts[:2], ".")
	signaturePart := parts[2]

	headerBytes, err := decodeSegment(parts[0])
	if err != nil {
		return nil, ErrInvalidToken
	}
	var header struct {
		Algorithm string `json:"alg"`
		Type      string `json:"typ"`
	}
	if err := json.Unmarshal(headerBytes, &header); err != nil {
		return nil, ErrInvalidToken
	}
	if header.Algorithm != "HS256" {
		return nil, fmt.Errorf("%w: unexpected algorithm %q", ErrInvalidToken, header.Algorithm)
	}

	expectedSig, err := a.sign([]byte(headerPayload))
	if err != nil {
		return nil, err
	}
	signatureBytes, err := decodeSegment(signaturePart)
	if err != nil {
		return nil, ErrInvalidToken
	}
	if !hmac.Equal(signatureBytes, expectedSig) {
		return nil, ErrInvalidToken
	}

	payloadBytes, err := decodeSegment(parts[1])
	if err != nil {
		return nil, ErrInvalidToken
	}
	var payload struct {
		Subject  string `json:"sub"`
		Expires  int64  `json:"exp"`
		Issued   int64  `json:"iat"`
		Audience string `json:"aud"`
	}
	if err := json.Unmarshal(payloadBytes, &payload); err != nil {
		return nil, ErrInvalidToken
	}
	if strings.TrimSpace(payload.Subject) == "" {
		return nil, ErrInvalidToken
	}
	if payload.Expires <= 0 {
		return nil, ErrInvalidToken
	}
	now := a.now()
	expiresAt := time.Unix(payload.Expires, 0)
	if expiresAt.Add(a.leeway).Before(now) {
		return nil, ErrExpiredToken
	}

	issuedAt := time.Unix(payload.Issued, 0)
	claims := &TokenClaims{
		Subject:   payload.Subject,
		ExpiresAt: expiresAt,
		IssuedAt:  issuedAt,
		Audience:  payload.Audience,
	}
	return claims, nil
}

func (a *LoopbackTokenAuthenticator) sign(payload []byte) ([]byte, error) {
	mac := hmac.New(sha256.New, a.secret)
	if _, err := mac.Write(payload); err != nil {
		return nil, err
	}
	return mac.Sum(nil), nil
}

func decodeSegment(segment string) ([]byte, error) {
	return base64.RawURLEncoding.DecodeString(segment)
}

// WithClock overrides the authenticator's clock, enabling deterministic unit tests.
func (a *LoopbackTokenAuthenticator) WithClock(clock func() time.Time) {
	if clock == nil {
		return
	}
	a.now = clock
}
