// Package corefault provides the shared error-code/detail-map shape used by
// the cpu, memory, and btrieve packages, grounded on the fluent structured
// error style used for storage and validation failures across the wider
// retrieval pack. Each subsystem defines its own code space and wraps Base
// rather than sharing one global taxonomy, since a CPU decode fault and a
// Btrieve record-length mismatch have nothing in common beyond "this needs
// a code, a message, and a detail bag that a log line can render".
package corefault

import "fmt"

// Code identifies a class of failure within a subsystem's own code space.
// Subsystems define their own Code constants of this type (cpu.CodeDecodeError,
// memory.CodeSegmentationFault, ...); corefault only standardizes how they
// print and carry detail.
type Code string

// Base is embedded by subsystem-specific error types. It is not meant to be
// constructed or returned directly.
type Base struct {
	code    Code
	message string
	cause   error
	details map[string]any
}

// New creates a Base error with the given code and message.
func New(code Code, message string) Base {
	return Base{code: code, message: message}
}

// Wrap creates a Base error that chains an underlying cause.
func Wrap(cause error, code Code, message string) Base {
	return Base{code: code, message: message, cause: cause}
}

// Code returns the error's classification code.
func (e Base) Code() Code { return e.code }

// Unwrap exposes the wrapped cause, if any, to errors.Is/errors.As.
func (e Base) Unwrap() error { return e.cause }

// WithDetail attaches a structured key/value pair and returns the receiver,
// enabling a fluent builder chain at the call site.
func (e Base) WithDetail(key string, value any) Base {
	if e.details == nil {
		e.details = make(map[string]any, 4)
	}
	e.details[key] = value
	return e
}

// Detail returns a previously attached detail and whether it was present.
func (e Base) Detail(key string) (any, bool) {
	v, ok := e.details[key]
	return v, ok
}

// Details returns a copy of the attached detail map for structured logging.
func (e Base) Details() map[string]any {
	out := make(map[string]any, len(e.details))
	for k, v := range e.details {
		out[k] = v
	}
	return out
}

func (e Base) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.code, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.code, e.message)
}
