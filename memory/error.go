package memory

import "github.com/mbbscore/emucore/corefault"

const (
	CodeAllocationFailure  corefault.Code = "memory.allocation_failure"
	CodeMalformedCString   corefault.Code = "memory.malformed_cstring"
	CodeSegmentationFault  corefault.Code = "memory.segmentation_fault"
	CodeDoubleFree         corefault.Code = "memory.double_free"
	CodeUnknownVariable    corefault.Code = "memory.unknown_variable"
)

// Error is the memory subsystem's error type, a corefault.Base carrying one
// of the Code constants above.
type Error struct {
	corefault.Base
}

func newError(code corefault.Code, message string) Error {
	return Error{corefault.New(code, message)}
}

// WithDetail shadows corefault.Base's promoted method so the fluent chain
// stays a memory.Error instead of widening to corefault.Base.
func (e Error) WithDetail(key string, value any) Error {
	return Error{e.Base.WithDetail(key, value)}
}
