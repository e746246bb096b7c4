// Package efserr defines the error taxonomy shared by the volume and efs
// packages. Every failure that crosses a component boundary is classified
// into one of a small number of kinds so that callers (in particular the
// FUSE host adapter) can map it onto the right errno without inspecting
// message text.
package efserr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure the way the design splits them: IO failures,
// malformed on-disk structures, missing names, wrong node type, reads past
// EOF, and allocation failures. BadFile is not returned as an error kind on
// its own; it is surfaced as IO once attached to an inode (see efs.Inode).
type Kind int

const (
	// Unknown covers callers that have not classified their error; it
	// should not appear from the core components described by the design.
	Unknown Kind = iota
	IO
	Invalid
	NotFound
	NotDir
	OutOfRange
	OutOfMemory
)

func (k Kind) String() string {
	switch k {
	case IO:
		return "IO"
	case Invalid:
		return "INVALID"
	case NotFound:
		return "NOT_FOUND"
	case NotDir:
		return "NOT_DIR"
	case OutOfRange:
		return "OUT_OF_RANGE"
	case OutOfMemory:
		return "OUT_OF_MEMORY"
	default:
		return "UNKNOWN"
	}
}

// Error pairs a Kind with a human-readable message and an optional
// underlying cause, so %w-style wrapping and errors.Is keep working.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// New builds an *Error of the given kind with a formatted message.
func New(kind Kind, format string, args ...interface{}) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap builds an *Error of the given kind around an underlying cause.
func Wrap(kind Kind, cause error, format string, args ...interface{}) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// KindOf extracts the Kind of err if it (or something it wraps) is an
// *Error, and Unknown otherwise.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Unknown
}

// Is reports whether err is classified with the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}
