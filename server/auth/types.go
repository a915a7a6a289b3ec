package auth

import (
	"context"
	"errors"
	"fmt"
)

// Principal represents an authenticated user or entity
type Principal struct {
	ID string
	// ReadOnly principals may only use safe methods.
	ReadOnly bool
}

// Credentials represents authentication credentials. Token is set for
// bearer authentication, Username/Password for basic.
type Credentials struct {
	Username string
	Password string
	Token    string
}

// ErrorType represents the type of authentication error
type ErrorType string

const (
	ErrInvalidCredentials ErrorType = "invalid_credentials"
	ErrUnauthorized       ErrorType = "unauthorized"
	ErrForbidden          ErrorType = "forbidden"
)

// Error represents an authentication-related error
type Error struct {
	Type    ErrorType
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsForbidden reports whether err is an auth error of type ErrForbidden.
func IsForbidden(err error) bool {
	var aerr *Error
	return errors.As(err, &aerr) && aerr.Type == ErrForbidden
}

// Authenticator defines the interface for authentication providers
type Authenticator interface {
	// Authenticate validates credentials and returns a Principal if successful
	Authenticate(ctx context.Context, creds Credentials) (*Principal, error)

	// ValidateAccess checks if a principal may use method on path
	ValidateAccess(ctx context.Context, principal *Principal, method, path string) error
}
