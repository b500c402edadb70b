package core

import (
	"errors"
	"fmt"
)

// Code is the caller-visible error classification.
type Code int

// Error codes. The numeric values are part of the public contract.
const (
	None Code = iota
	Unknown
	InvalidArgument
	InvalidOperation
	OutOfMemory
	UnsupportedHardware
	Cancelled
)

// String returns a human-readable name for the code.
func (c Code) String() string {
	switch c {
	case None:
		return "none"
	case Unknown:
		return "unknown"
	case InvalidArgument:
		return "invalid argument"
	case InvalidOperation:
		return "invalid operation"
	case OutOfMemory:
		return "out of memory"
	case UnsupportedHardware:
		return "unsupported hardware"
	case Cancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("Code(%d)", int(c))
	}
}

// Common errors.
var (
	// ErrOutOfMemory marks an allocation failure anywhere in an error chain.
	ErrOutOfMemory = errors.New("out of memory")

	// ErrRange is returned when a view no longer fits its backing buffer.
	ErrRange = errors.New("buffer region out of range")

	// ErrInvalidHandle is reported for nil or already destroyed handles.
	ErrInvalidHandle = &Error{Code: InvalidArgument, Message: "invalid handle"}
)

// Error is a domain failure that carries its own code and message.
// It crosses the public boundary unchanged.
type Error struct {
	Code    Code
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Message
}

// Errorf creates an *Error with a formatted message.
func Errorf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// LogicError reports a violated internal invariant. It is a programming
// error rather than a recoverable runtime condition and is raised with panic.
type LogicError struct {
	Message string
}

// Error implements the error interface.
func (e LogicError) Error() string {
	return e.Message
}

// BackendError is implemented by failures coming from a backend compute
// library, which distinguish out-of-memory from everything else.
type BackendError interface {
	error
	OutOfMemory() bool
}
