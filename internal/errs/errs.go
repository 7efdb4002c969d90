// Package errs defines the error kinds returned by the ledger core.
//
// Every failure leaving the core carries one of the kinds below so the
// transport layer can map it to a status code without string matching.
package errs

import (
	"errors"
	"fmt"
)

// Kind classifies a ledger error.
type Kind int

const (
	// Unknown is the kind of any error not created by this package.
	Unknown Kind = iota
	// Validation means the caller sent bad input.
	Validation
	// NotFound means a referenced expense, settlement, user or tag is absent.
	NotFound
	// Authorization means the actor may not perform the operation.
	Authorization
	// Conflict means the request clashes with current state.
	Conflict
	// InternalConsistency means a computed result broke a ledger invariant.
	InternalConsistency
)

func (k Kind) String() string {
	switch k {
	case Validation:
		return "validation"
	case NotFound:
		return "not_found"
	case Authorization:
		return "authorization"
	case Conflict:
		return "conflict"
	case InternalConsistency:
		return "internal_consistency"
	default:
		return "unknown"
	}
}

// Error is a ledger error with a kind.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same kind with no message,
// which lets callers write errors.Is(err, errs.ErrConflict).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Message == "" && t.Err == nil && t.Kind == e.Kind
}

// Kind sentinels for use with errors.Is.
var (
	ErrValidation          = &Error{Kind: Validation}
	ErrNotFound            = &Error{Kind: NotFound}
	ErrAuthorization       = &Error{Kind: Authorization}
	ErrConflict            = &Error{Kind: Conflict}
	ErrInternalConsistency = &Error{Kind: InternalConsistency}
)

// New returns an error of the given kind.
func New(kind Kind, msg string) error {
	return &Error{Kind: kind, Message: msg}
}

// Newf returns an error of the given kind with a formatted message.
func Newf(kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind and message to err.
func Wrap(kind Kind, err error, msg string) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Message: msg, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Unknown
}
