package auth

import "errors"

// Error kinds returned by the auth core. Handlers translate them to HTTP
// responses in toAppError; nothing below the handler knows about status codes.
var (
	// ErrInvalidCredentials covers both an unknown email and a wrong
	// password. Callers must not be able to tell the two apart.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrTokenExpired and ErrTokenInvalid are bearer token failures.
	ErrTokenExpired = errors.New("token expired")
	ErrTokenInvalid = errors.New("token invalid")

	// ErrAccountDisabled is returned for a valid identity whose account
	// has been deactivated.
	ErrAccountDisabled = errors.New("account disabled")

	// ErrResetTokenInvalid covers unknown, expired and already-used reset tokens.
	ErrResetTokenInvalid = errors.New("reset token invalid or expired")

	ErrDuplicateEmail    = errors.New("email already registered")
	ErrDuplicateUsername = errors.New("username already registered")

	// ErrUserNotFound is a storage-level result. It never leaves the
	// package as-is; login and token checks convert it first.
	ErrUserNotFound = errors.New("user not found")

	// errResetTokenNotFound is the storage-level miss for reset tokens.
	errResetTokenNotFound = errors.New("reset token not found")
)

// ValidationError is returned for malformed registration or reset input.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func newValidationError(msg string) error {
	return &ValidationError{Message: msg}
}
