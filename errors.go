package authkit

import (
	"errors"
	"fmt"
)

// Sentinel results for the normal negative outcomes. These are not faults:
// callers branch on them to decide an HTTP status, they are never logged as
// errors by the engine itself.
var (
	// ErrNotFound means the session, token or user does not exist.
	ErrNotFound = errors.New("not found")

	// ErrExpired means the record exists but its expiry has passed.
	ErrExpired = errors.New("expired")

	// ErrInvalidState means an OAuth callback state did not match the one
	// issued at the start of the flow. Always fail closed on this.
	ErrInvalidState = errors.New("invalid oauth state")

	// ErrCsrfMismatch means the double-submit cookie and header values
	// did not match. Always fail closed on this.
	ErrCsrfMismatch = errors.New("csrf token mismatch")

	// ErrInvalidCredentials is the single generic rejection for every
	// credential failure. Wrong password, unknown user and expired token
	// all resolve to it so responses leak nothing.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// StorageError wraps an Adapter I/O failure. The engine never retries or
// swallows these - retry semantics belong to the backing store.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// NewStorageError wraps err as a StorageError for the given adapter op.
// A nil err returns nil so adapter call sites can wrap unconditionally.
func NewStorageError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}

// IsStorageError reports whether err (or anything it wraps) is an Adapter
// I/O failure rather than a normal negative result.
func IsStorageError(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}

// ProviderError is a non-2xx or malformed response from an external OAuth
// endpoint. StatusCode is 0 for transport failures, which lets callers
// tell "authorization denied" apart from "could not reach the provider".
type ProviderError struct {
	Provider   string
	Endpoint   string // "token" or "userinfo"
	StatusCode int
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("provider %s: %s endpoint returned %d", e.Provider, e.Endpoint, e.StatusCode)
	}
	return fmt.Sprintf("provider %s: %s endpoint: %v", e.Provider, e.Endpoint, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Error codes used by the HTTP surface when converting engine results into
// JSON error bodies.
const (
	ErrCodeInvalidCreds  = "invalid_credentials"
	ErrCodeMissingField  = "missing_field"
	ErrCodeInvalidEmail  = "invalid_email"
	ErrCodeWeakPassword  = "weak_password"
	ErrCodeEmailExists   = "email_exists"
	ErrCodeCsrfRejected  = "csrf_rejected"
	ErrCodeInvalidState  = "invalid_state"
	ErrCodeProviderError = "provider_error"
)

// AuthError is the structured error the HTTP surface returns to clients.
type AuthError struct {
	Code    string `json:"code"`
	Message string `json:"error"`
	Field   string `json:"field,omitempty"`
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewAuthError creates an AuthError with the given code, message and the
// form field it relates to (may be empty).
func NewAuthError(code, message, field string) *AuthError {
	return &AuthError{Code: code, Message: message, Field: field}
}
