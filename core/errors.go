package core

import (
	"errors"
	"fmt"
)

var (
	// ErrConnectionFailure wraps transport level failures (dns, refused connections, resets).
	ErrConnectionFailure = errors.New("connection failure")
	// ErrUnexpectedStatus matches every *UnexpectedStatusError.
	ErrUnexpectedStatus = errors.New("unexpected status")
	// ErrMalformedResponse is returned when a response body can't be decoded.
	ErrMalformedResponse = errors.New("malformed response")
	// ErrSessionNotOpen is returned when dispatching on a session without a handle.
	ErrSessionNotOpen = errors.New("session is not open")
	// ErrInvalidFetchOptions is returned from NewFetchOptions for out of range values.
	ErrInvalidFetchOptions = errors.New("invalid fetch options")
	// ErrUnexpectedRowKind is returned under RowKindsStrict for any non insert row.
	ErrUnexpectedRowKind = errors.New("unexpected row kind")
)

// UnexpectedStatusError carries an undocumented http status returned by the gateway.
type UnexpectedStatusError struct {
	StatusCode int
	Body       []byte
}

func (e *UnexpectedStatusError) Error() string {
	if len(e.Body) == 0 {
		return fmt.Sprintf("unexpected status code: %d", e.StatusCode)
	}
	return fmt.Sprintf("unexpected status code: %d: %s", e.StatusCode, e.Body)
}

func (e *UnexpectedStatusError) Is(target error) bool {
	return target == ErrUnexpectedStatus
}

// TypeConversionWarning is a non-fatal coercion failure. The affected value is
// kept in its raw form.
type TypeConversionWarning struct {
	Column      string
	LogicalType string
	Row         int
	Value       any
	Err         error
}

func (w *TypeConversionWarning) Error() string {
	return fmt.Sprintf("row %d, column %q: could not convert %v (%T) to %s: %s",
		w.Row, w.Column, w.Value, w.Value, w.LogicalType, w.Err)
}

func (w *TypeConversionWarning) Unwrap() error {
	return w.Err
}
