package auth

import (
	"errors"
	"testing"
	"time"
)

func TestLoopbackTokenRoundTrip(t *testing.T) {
	authenticator, err := NewLoopbackTokenAuthenticator("secret", time.Second)
	if err != nil {
		t.Fatalf("NewLoopbackTokenAuthenticator: %v", err)
	}
	fixedNow := time.Unix(1700000000, 0)
	authenticator.WithClock(func() time.Time { return fixedNow })

	token, err := authenticator.Issue("ui-client", "eventbus", time.Minute)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	claims, err := authenticator.Verify(token)
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
	if claims.Subject != "ui-client" {
		t.Fatalf("unexpected subject: %q", claims.Subject)
	}
	if claims.ExpiresAt.Before(fixedNow) {
		t.Fatal("expected expiry in the future")
	}
}

func TestLoopbackTokenRejectsExpiredToken(t *testing.T) {
	authenticator, err := NewLoopbackTokenAuthenticator("secret", 0)
	if err != nil {
		t.Fatalf("NewLoopbackTokenAuthenticator: %v", err)
	}
	now := time.Unix(1700000000, 0)
	authenticator.WithClock(func() time.Time { return now })

	token, err := authenticator.Issue("ui-client", "eventbus", -time.Second)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	if _, err := authenticator.Verify(token); !errors.Is(err, ErrExpiredToken) {
		t.Fatalf("expected ErrExpiredToken, got %v", err)
	}
}

func TestLoopbackTokenRejectsWrongSecret(t *testing.T) {
	issuer, err := NewLoopbackTokenAuthenticator("secret-a", time.Second)
	if err != nil {
		t.Fatalf("NewLoopbackTokenAuthenticator: %v", err)
	}
	verifier, err := NewLoopbackTokenAuthenticator("secret-b", time.Second)
	if err != nil {
		t.Fatalf("NewLoopbackTokenAuthenticator: %v", err)
	}
	now := time.Unix(1700000000, 0)
	issuer.WithClock(func() time.Time { return now })
	verifier.WithClock(func() time.Time { return now })

	token, err := issuer.Issue("ui-client", "eventbus", time.Minute)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := verifier.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestGenerateSecretProducesDistinctValues(t *testing.T) {
	a, err := GenerateSecret()
	if err != nil {
		t.Fatalf("GenerateSecret: %v", err)
	}
	b, err := GenerateSecret()
	if err != nil {
		t.Fatalf("GenerateSecret: %v", err)
	}
	if a == b {
		t.Fatal("expected distinct secrets")
	}
}
