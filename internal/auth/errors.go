package auth

import "errors"

// All three collapse to 401 at the HTTP layer; they stay distinct here so
// logs and tests can tell them apart.
var (
	// ErrInvalidCredentials covers a bad signature, a malformed token, a
	// missing subject claim, or a failed username/password check.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrExpired means the token's signature was fine but its expiry passed.
	ErrExpired = errors.New("token expired")

	// ErrUserNotFound means a verified token's subject no longer resolves
	// to a stored user.
	ErrUserNotFound = errors.New("user not found")
)
