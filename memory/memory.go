// Package memory implements the two interchangeable memory models DOS-era
// 16-bit code runs against: Segmented (independent 64 KiB byte arrays per
// segment ordinal) and RealMode (one flat 1 MiB buffer addressed as
// seg*16+off). Both satisfy the Memory interface below and share a heap
// allocator, a named-variable directory, big-memory-block pseudo-pointers,
// and a per-segment decoded-instruction cache built on internal/x86asm.
package memory

import (
	"github.com/mbbscore/emucore/farptr"
	"github.com/mbbscore/emucore/internal/x86asm"
)

// SegmentDescriptor is what a module loader hands the memory core for one
// code or data segment. Relocation is resolved before the core sees it.
type SegmentDescriptor struct {
	Ordinal uint16
	Data    []byte
	Code    bool
}

// SegmentInfo is a read-only snapshot returned by PeekSegment, for
// diagnostic tooling that must not mutate segment state.
type SegmentInfo struct {
	Ordinal uint16
	Size    uint16
	Code    bool
	Heap    bool
}

// Memory is the contract both the Segmented and RealMode models satisfy.
// All byte/word/dword access is little-endian; out-of-range (seg, off)
// pairs are a caller bug, not a recoverable condition — callers must have
// allocated the segment first.
type Memory interface {
	GetByte(ptr farptr.FarPtr) byte
	SetByte(ptr farptr.FarPtr, v byte)
	GetWord(ptr farptr.FarPtr) uint16
	SetWord(ptr farptr.FarPtr, v uint16)
	GetDword(ptr farptr.FarPtr) uint32
	SetDword(ptr farptr.FarPtr, v uint32)

	GetArray(ptr farptr.FarPtr, n uint16) []byte
	SetArray(ptr farptr.FarPtr, src []byte)
	GetString(ptr farptr.FarPtr, stripNull bool) ([]byte, error)
	Fill(ptr farptr.FarPtr, n uint16, v byte)

	Malloc(size uint16) (farptr.FarPtr, error)
	Free(ptr farptr.FarPtr) error

	AllocateVariable(name string, size uint16, declarePointer bool) (farptr.FarPtr, error)
	GetVariablePointer(name string) (farptr.FarPtr, bool)

	AllocateBigBlock(quantity, size uint16) (farptr.FarPtr, error)
	GetBigBlock(ptr farptr.FarPtr, index uint16) (farptr.FarPtr, error)

	AddSegment(desc SegmentDescriptor) error
	GetInstruction(seg, ip uint16) (x86asm.Instruction, error)
	Recompile(seg, ip uint16) error

	Segments() []uint16
	PeekSegment(ordinal uint16) (SegmentInfo, bool)
}

// bigBlockSegment is the reserved pseudo-pointer segment ordinal for
// allocate_big_block/get_big_block handles.
const bigBlockSegment uint16 = 0xFFFF

func align2(size uint16) uint16 {
	if size%2 != 0 {
		return size + 1
	}
	return size
}
