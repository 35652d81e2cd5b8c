package relay_errors

import (
	"errors"
	"fmt"
	"time"
)

// Error taxonomy shared by the store, the realtime adapter and the HTTP
// layer. Repositories and brokers map driver errors onto these so callers
// can branch with errors.Is.
var (
	ErrValidation    = errors.New("validation failed")
	ErrPermission    = errors.New("permission denied")
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrTransport     = errors.New("transport failure")
	ErrState         = errors.New("invalid handle state")
	ErrUnauthorized  = errors.New("unauthorized")
)

// Transport wraps a backend failure so callers can match ErrTransport
// with errors.Is while keeping the cause in the message.
func Transport(err error) error {
	if err == nil {
		return ErrTransport
	}
	return fmt.Errorf("%w: %v", ErrTransport, err)
}

// NowPtr returns a pointer to current time
func NowPtr() *time.Time {
	now := time.Now()
	return &now
}
