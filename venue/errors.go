package venue

import (
	"errors"
	"fmt"
)

// ErrUnknownSymbol is returned by SymbolInfo for instruments the venue does
// not quote.
var ErrUnknownSymbol = errors.New("unknown symbol")

// ErrorKind splits venue failures into the two classes the retry policy
// cares about.
type ErrorKind int

const (
	// Transient failures (timeouts, 5xx, disconnects) may be retried with
	// the same idempotency key.
	Transient ErrorKind = iota
	// Permanent failures (validation, rejection) must never be retried.
	Permanent
)

func (k ErrorKind) String() string {
	if k == Transient {
		return "transient"
	}
	return "permanent"
}

// Error is a classified venue failure.
type Error struct {
	Kind ErrorKind
	Op   string // "submit", "poll_fills", "close", ...
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("venue %s (%s): %s: %v", e.Op, e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("venue %s (%s): %s", e.Op, e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// NewTransient wraps err as a retryable venue failure.
func NewTransient(op, msg string, err error) *Error {
	return &Error{Kind: Transient, Op: op, Msg: msg, Err: err}
}

// NewPermanent wraps err as a non-retryable venue failure.
func NewPermanent(op, msg string, err error) *Error {
	return &Error{Kind: Permanent, Op: op, Msg: msg, Err: err}
}

// IsTransient reports whether err is a retryable venue failure. Anything
// that is not a classified venue error is treated as permanent.
func IsTransient(err error) bool {
	var verr *Error
	return errors.As(err, &verr) && verr.Kind == Transient
}
