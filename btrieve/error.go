package btrieve

import "github.com/mbbscore/emucore/corefault"

const (
	CodeMalformedRecord       corefault.Code = "btrieve.malformed_record"
	CodeMalformedFile         corefault.Code = "btrieve.malformed_file"
	CodeUnsupportedOperation  corefault.Code = "btrieve.unsupported_operation"
)

// Error is the Btrieve subsystem's error type, a corefault.Base carrying
// one of the Code constants above plus whatever file/key/offset detail the
// call site attached with WithDetail.
type Error struct {
	corefault.Base
}

func newError(code corefault.Code, message string) Error {
	return Error{corefault.New(code, message)}
}

// WithDetail shadows corefault.Base's promoted method so the fluent chain
// stays a btrieve.Error instead of widening to corefault.Base.
func (e Error) WithDetail(key string, value any) Error {
	return Error{e.Base.WithDetail(key, value)}
}
