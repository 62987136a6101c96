package storage

import (
	"errors"
	"fmt"
)

// StorageError carries a machine-readable code plus optional cause and
// context. Matching with errors.Is compares codes only, so wrapped variants
// of the same sentinel still match.
type StorageError struct {
	Code    string
	Message string
	Cause   error
	Context map[string]interface{}
}

// Sentinel errors for the storage layer. Wrap them with WithMessage or
// WithCause rather than mutating them.
var (
	ErrNotConnected        = &StorageError{Code: "NOT_CONNECTED", Message: "storage client is not connected"}
	ErrConnectionFailed    = &StorageError{Code: "CONNECTION_FAILED", Message: "failed to connect to storage backend"}
	ErrTimeout             = &StorageError{Code: "TIMEOUT", Message: "storage operation timed out"}
	ErrInvalidConfig       = &StorageError{Code: "INVALID_CONFIG", Message: "invalid storage configuration"}
	ErrClientNotFound      = &StorageError{Code: "CLIENT_NOT_FOUND", Message: "storage client not found"}
	ErrClientAlreadyExists = &StorageError{Code: "CLIENT_ALREADY_EXISTS", Message: "storage client already exists"}
	ErrOperationFailed     = &StorageError{Code: "OPERATION_FAILED", Message: "storage operation failed"}
)

func (e *StorageError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap exposes the cause to errors.Is and errors.As.
func (e *StorageError) Unwrap() error {
	return e.Cause
}

// Is matches on the code, ignoring message, cause, and context.
func (e *StorageError) Is(target error) bool {
	t, ok := target.(*StorageError)
	return ok && e.Code == t.Code
}

func (e *StorageError) clone() *StorageError {
	return &StorageError{Code: e.Code, Message: e.Message, Cause: e.Cause, Context: e.Context}
}

// WithMessage returns a copy with the message replaced.
func (e *StorageError) WithMessage(msg string) *StorageError {
	c := e.clone()
	c.Message = msg
	return c
}

// WithCause returns a copy wrapping the given underlying error.
func (e *StorageError) WithCause(cause error) *StorageError {
	c := e.clone()
	c.Cause = cause
	return c
}

// WithContext returns a copy with ctx merged over the existing context map.
func (e *StorageError) WithContext(ctx map[string]interface{}) *StorageError {
	merged := make(map[string]interface{}, len(e.Context)+len(ctx))
	for k, v := range e.Context {
		merged[k] = v
	}
	for k, v := range ctx {
		merged[k] = v
	}
	c := e.clone()
	c.Context = merged
	return c
}

// GetContext looks up a context value by key.
func (e *StorageError) GetContext(key string) (interface{}, bool) {
	if e.Context == nil {
		return nil, false
	}
	v, ok := e.Context[key]
	return v, ok
}

// IsStorageError reports whether err has a StorageError in its chain.
func IsStorageError(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}

// GetStorageError extracts the StorageError from err's chain.
func GetStorageError(err error) (*StorageError, bool) {
	var se *StorageError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}
