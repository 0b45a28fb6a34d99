package okx

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument is returned before any request is made.
	ErrInvalidArgument = errors.New("okx: invalid argument")
	// ErrSchemaMismatch means the response fields are not the expected set.
	ErrSchemaMismatch = errors.New("okx: schema mismatch")
	// ErrTransport covers connection failures, non-2xx responses, bodies
	// that cannot be decoded and exchange error codes.
	ErrTransport = errors.New("okx: transport error")
)

// APIError is an unsuccessful reply from the exchange.
type APIError struct {
	Status int
	Code   string
	Msg    string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("okx http %d: code %s: %s", e.Status, e.Code, e.Msg)
	}
	return fmt.Sprintf("okx http %d: %s", e.Status, e.Msg)
}

func (e *APIError) Unwrap() error {
	return ErrTransport
}
