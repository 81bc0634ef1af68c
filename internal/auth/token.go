package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const DefaultTokenTTL = 15 * time.Minute

// TokenService issues and verifies HS256 bearer tokens carrying the username
// as the subject claim. Verification is stateless: there is no revocation
// list, tokens stay valid until natural expiry.
type TokenService struct {
	secret     []byte
	defaultTTL time.Duration
}

// NewTokenService builds a TokenService around a process-wide signing
// secret. A ttl <= 0 falls back to DefaultTokenTTL.
func NewTokenService(secret []byte, ttl time.Duration) *TokenService {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenService{secret: secret, defaultTTL: ttl}
}

// Issue signs a token for subject expiring after ttl. A ttl of zero uses
// the service default; a negative ttl produces an already-expired token,
// which is handy in tests.
func (s *TokenService) Issue(subject string, ttl time.Duration) (string, error) {
	if ttl == 0 {
		ttl = s.defaultTTL
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": subject,
		"exp": time.Now().Add(ttl).Unix(),
	})
	return token.SignedString(s.secret)
}

// Verify checks the signature and expiry and returns the subject claim.
// It returns ErrExpired for a well-signed but stale token and
// ErrInvalidCredentials for everything else (bad signature, malformed
// token, wrong algorithm, missing subject).
func (s *TokenService) Verify(tokenStr string) (string, error) {
	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrExpired
		}
		return "", ErrInvalidCredentials
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", ErrInvalidCredentials
	}

	subject, ok := claims["sub"].(string)
	if !ok || subject == "" {
		return "", ErrInvalidCredentials
	}
	return subject, nil
}
