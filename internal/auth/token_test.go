package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestIssueAndVerifyRoundTrip(t *testing.T) {
	svc := NewTokenService([]byte("test-secret"), time.Minute)

	token, err := svc.Issue("alice", 0)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	subject, err := svc.Verify(token)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if subject != "alice" {
		t.Fatalf("expected subject %q, got %q", "alice", subject)
	}
}

func TestVerifyExpiredToken(t *testing.T) {
	svc := NewTokenService([]byte("test-secret"), time.Minute)

	token, err := svc.Issue("alice", -time.Minute)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	if _, err := svc.Verify(token); !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired, got %v", err)
	}
}

func TestVerifyWrongSecret(t *testing.T) {
	issuer := NewTokenService([]byte("secret-a"), time.Minute)
	verifier := NewTokenService([]byte("secret-b"), time.Minute)

	token, err := issuer.Issue("alice", 0)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	if _, err := verifier.Verify(token); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestVerifyMalformedToken(t *testing.T) {
	svc := NewTokenService([]byte("test-secret"), time.Minute)

	for _, token := range []string{"", "not-a-token", "a.b.c"} {
		if _, err := svc.Verify(token); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("token %q: expected ErrInvalidCredentials, got %v", token, err)
		}
	}
}

func TestVerifyMissingSubject(t *testing.T) {
	secret := []byte("test-secret")
	svc := NewTokenService(secret, time.Minute)

	// Well-signed token with exp but no sub claim.
	raw := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": time.Now().Add(time.Minute).Unix(),
	})
	token, err := raw.SignedString(secret)
	if err != nil {
		t.Fatalf("SignedString failed: %v", err)
	}

	if _, err := svc.Verify(token); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestVerifyRejectsNonHMACAlgorithm(t *testing.T) {
	svc := NewTokenService([]byte("test-secret"), time.Minute)

	// alg=none with an empty signature must not verify.
	raw := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"sub": "alice",
		"exp": time.Now().Add(time.Minute).Unix(),
	})
	token, err := raw.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("SignedString failed: %v", err)
	}

	if _, err := svc.Verify(token); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestDefaultTTLApplied(t *testing.T) {
	svc := NewTokenService([]byte("test-secret"), 0)

	token, err := svc.Issue("alice", 0)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if _, err := svc.Verify(token); err != nil {
		t.Fatalf("token with default ttl should verify, got %v", err)
	}
}
