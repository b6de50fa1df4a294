package domain

import (
	"errors"
	"fmt"
)

// ErrBlankInput is returned when a submission is attempted with empty or whitespace-only input.
// The attempt changes no state.
var ErrBlankInput = errors.New("input is blank")

// ErrSessionBusy is returned when a submission is attempted while an exchange is outstanding.
// The attempt changes no state.
var ErrSessionBusy = errors.New("an exchange is already in flight")

// ErrNoExchange is returned when an exchange outcome arrives while no exchange is outstanding.
var ErrNoExchange = errors.New("no exchange in flight")

// ErrSessionClosed is returned by operations on a closed session.
var ErrSessionClosed = errors.New("session closed")

// Failure classes of a remote exchange. Match them with errors.Is.
var (
	ErrHTTP      = errors.New("http failure")
	ErrTransport = errors.New("transport failure")
	ErrDecode    = errors.New("decode failure")
)

// FailureKind classifies a failed exchange.
type FailureKind string

const (
	FailureHTTP      FailureKind = "http"
	FailureTransport FailureKind = "transport"
	FailureDecode    FailureKind = "decode"
)

// ExchangeError describes a failed exchange with the answer endpoint.
// Detail and the wrapped error are diagnostics only; users see FailureMessage.
type ExchangeError struct {
	Kind FailureKind

	// Status is the HTTP status code for FailureHTTP, zero otherwise.
	Status int

	// Detail is the response body text (HTTP) or a short description.
	Detail string

	// Err is the underlying cause, if any.
	Err error
}

func (e *ExchangeError) Error() string {
	switch {
	case e.Kind == FailureHTTP:
		return fmt.Sprintf("%s: status %d: %s", e.Kind, e.Status, e.Detail)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	default:
		return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
	}
}

func (e *ExchangeError) Unwrap() error {
	return e.Err
}

// Is matches the sentinel of the failure class.
func (e *ExchangeError) Is(target error) bool {
	switch target {
	case ErrHTTP:
		return e.Kind == FailureHTTP
	case ErrTransport:
		return e.Kind == FailureTransport
	case ErrDecode:
		return e.Kind == FailureDecode
	}
	return false
}

// KindOf extracts the failure class of err. Unclassified errors count as transport failures.
func KindOf(err error) FailureKind {
	var xerr *ExchangeError
	if errors.As(err, &xerr) {
		return xerr.Kind
	}
	return FailureTransport
}
