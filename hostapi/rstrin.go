package hostapi

import (
	"github.com/mbbscore/emucore/farptr"
	"github.com/mbbscore/emucore/memory"
)

// Rstrin implements the MAJORBBS rstrin() export: given a buffer holding a
// sequence of NUL-separated tokens, it rewrites every interior NUL to a
// space in place, leaving the buffer's final byte a NUL and its length
// unchanged. It is registered as a Handler by a host build's hostapi
// wiring rather than invoked directly by the CPU core, but lives here
// since its in-place rewrite only needs a memory.Memory and a FarPtr, not
// any CPU register convention.
func Rstrin(mem memory.Memory, ptr farptr.FarPtr, length uint16) error {
	if length == 0 {
		return nil
	}
	// GetString stops at the first NUL, which is exactly the bytes this
	// function needs to rewrite; read the raw fixed-length span instead.
	buf := mem.GetArray(ptr, length)

	for i := 0; i < len(buf)-1; i++ {
		if buf[i] == 0 {
			buf[i] = ' '
		}
	}
	buf[len(buf)-1] = 0

	mem.SetArray(ptr, buf)
	return nil
}
