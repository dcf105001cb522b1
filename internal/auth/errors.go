package auth

import "errors"

var (
	// ErrConflict means the normalized email is already registered.
	ErrConflict = errors.New("email already registered")

	// ErrInvalidCredentials is returned for unknown emails, inactive users and
	// wrong passwords alike.
	ErrInvalidCredentials = errors.New("invalid credentials")

	ErrInvalidRefreshToken = errors.New("invalid refresh token")

	// ErrInternal hides storage and crypto failures from callers. Details are
	// logged where the failure happens.
	ErrInternal = errors.New("internal error")
)

// ValidationError reports user-correctable input problems.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}
