package wardrobe

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures surfaced to the UI.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindNetwork
	KindDecode
	KindEmptyResult
	KindInvariantViolation
	KindDuplicateID
	KindLocationUnavailable
)

// Sentinel errors, one per kind, for use with errors.Is.
var (
	ErrNetwork             = errors.New("network error")
	ErrDecode              = errors.New("decode error")
	ErrEmptyResult         = errors.New("empty result")
	ErrInvariantViolation  = errors.New("invariant violation")
	ErrDuplicateID         = errors.New("duplicate id")
	ErrLocationUnavailable = errors.New("location unavailable")
)

func (k ErrorKind) String() string {
	switch k {
	case KindNetwork:
		return "NetworkError"
	case KindDecode:
		return "DecodeError"
	case KindEmptyResult:
		return "EmptyResult"
	case KindInvariantViolation:
		return "InvariantViolation"
	case KindDuplicateID:
		return "DuplicateId"
	case KindLocationUnavailable:
		return "LocationUnavailable"
	default:
		return "Unknown"
	}
}

func (k ErrorKind) sentinel() error {
	switch k {
	case KindNetwork:
		return ErrNetwork
	case KindDecode:
		return ErrDecode
	case KindEmptyResult:
		return ErrEmptyResult
	case KindInvariantViolation:
		return ErrInvariantViolation
	case KindDuplicateID:
		return ErrDuplicateID
	case KindLocationUnavailable:
		return ErrLocationUnavailable
	default:
		return nil
	}
}

// Error carries a kind plus the operation that failed.
type Error struct {
	Kind   ErrorKind
	Op     string
	Status int // HTTP status when the failure came from a response
	Err    error
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Status > 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.Status)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the sentinel for the error's kind.
func (e *Error) Is(target error) bool {
	s := e.Kind.sentinel()
	return s != nil && target == s
}

// Retryable reports whether the user can sensibly retry the operation.
func (e *Error) Retryable() bool {
	switch e.Kind {
	case KindNetwork, KindDecode, KindLocationUnavailable:
		return true
	default:
		return false
	}
}

// NewError builds an *Error for op.
func NewError(kind ErrorKind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf extracts the ErrorKind from err, or KindUnknown.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindUnknown
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	for _, k := range []ErrorKind{
		KindNetwork, KindDecode, KindEmptyResult, KindInvariantViolation,
		KindDuplicateID, KindLocationUnavailable,
	} {
		if errors.Is(err, k.sentinel()) {
			return k
		}
	}
	return KindUnknown
}
