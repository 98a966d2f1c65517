// Package dserr defines the error-kind taxonomy used across the
// compositor core. Model operations that fail in one of a small set of
// well-known ways wrap the underlying cause with a Kind so that protocol
// façades can translate it onto the wire without string matching.
package dserr

import (
	"errors"
	"fmt"

	pkgerrors "github.com/pkg/errors"
)

// Kind classifies why an operation failed.
type Kind int

const (
	// KindOutOfMemory means a pixel or event allocation failed.
	KindOutOfMemory Kind = iota
	// KindNotFound means a window/seat/device id did not resolve.
	KindNotFound
	// KindInvalid means an out-of-range cursor code, malformed config,
	// or illegal resize offset was supplied.
	KindInvalid
	// KindBusy means the last remaining seat was about to be deleted.
	KindBusy
	// KindExists means a seat name collision occurred.
	KindExists
	// KindNoSpace means an id space or similar bounded resource was
	// exhausted.
	KindNoSpace
	// KindIO means the underlying GC or config I/O failed.
	KindIO
)

func (k Kind) String() string {
	switch k {
	case KindOutOfMemory:
		return "out-of-memory"
	case KindNotFound:
		return "not-found"
	case KindInvalid:
		return "invalid"
	case KindBusy:
		return "busy"
	case KindExists:
		return "exists"
	case KindNoSpace:
		return "no-space"
	case KindIO:
		return "i/o"
	default:
		return "unknown"
	}
}

// Error pairs a Kind with the operation that raised it and an optional
// wrapped cause.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds a *Error with no wrapped cause.
func New(kind Kind, op string) error {
	return &Error{Kind: kind, Op: op}
}

// Wrap builds a *Error around cause, always stamping in a stack trace via
// github.com/pkg/errors.WithStack. A nil cause yields nil.
func Wrap(kind Kind, op string, cause error) error {
	if cause == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: pkgerrors.WithStack(cause)}
}

// Is reports whether the first *Error in err's chain has the given Kind.
// A *Error wrapped inside that first one is not consulted.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// KindOf extracts the Kind from err, defaulting to KindIO for errors that
// carry none — an unclassified failure from a collaborator (GC, file
// system) is treated as an I/O error rather than silently swallowed.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindIO
}
