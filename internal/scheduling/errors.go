package scheduling

import (
	"errors"
	"fmt"
)

// Sentinel errors. Every error returned by the Service is an *Error whose
// Kind matches one of these with errors.Is.
var (
	// ErrAuth means no usable credential could be obtained. Not retried.
	ErrAuth = errors.New("calendar authorization failed")
	// ErrTransient is a network, rate limit or server failure. Retried once.
	ErrTransient = errors.New("transient calendar failure")
	// ErrMalformedResponse means the backend answered with something
	// unusable. Not retried.
	ErrMalformedResponse = errors.New("malformed calendar response")
	// ErrInvalidRequest is rejected before any backend call.
	ErrInvalidRequest = errors.New("invalid scheduling request")
	// ErrNotFound means no active event exists for the key.
	ErrNotFound = errors.New("event not found")
	// ErrConflict means the deterministic event ID is taken by an event
	// that cannot be reused.
	ErrConflict = errors.New("calendar event conflict")
)

// Kind classifies a scheduling failure.
type Kind int

const (
	KindTransient Kind = iota
	KindAuth
	KindMalformed
	KindInvalid
	KindNotFound
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindAuth:
		return "auth"
	case KindMalformed:
		return "malformed"
	case KindInvalid:
		return "invalid"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	}
	return "transient"
}

func (k Kind) sentinel() error {
	switch k {
	case KindAuth:
		return ErrAuth
	case KindMalformed:
		return ErrMalformedResponse
	case KindInvalid:
		return ErrInvalidRequest
	case KindNotFound:
		return ErrNotFound
	case KindConflict:
		return ErrConflict
	}
	return ErrTransient
}

// Error is a classified scheduling failure.
type Error struct {
	Op   string
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Kind.sentinel())
	}
	return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind.sentinel(), e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the sentinel for the error's Kind.
func (e *Error) Is(target error) bool {
	return target == e.Kind.sentinel()
}

// KindOf returns the Kind of err, or KindTransient with ok false when err is
// not an *Error.
func KindOf(err error) (Kind, bool) {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind, true
	}
	return KindTransient, false
}

func newError(op string, kind Kind, err error) *Error {
	return &Error{Op: op, Kind: kind, Err: err}
}
