package memory

import (
	"sync"

	"go.uber.org/zap"

	"github.com/mbbscore/emucore/farptr"
	"github.com/mbbscore/emucore/internal/x86asm"
)

// realModeImageSize is the full 1 MiB real-mode address space.
const realModeImageSize = 1 << 20

// realModeHeapBase/realModeHeapSize bound the single heap allocator over
// 0x1000:0000..0x1FFF:FFFF, sized to the "64 KiB effective" span spec.md
// calls out rather than the full ~128 KiB the segment:offset range could
// otherwise reach.
const (
	realModeHeapBase = 0x10000
	realModeHeapSize = 0x10000
)

// RealMode is the flat memory model: one 1 MiB buffer addressed as
// seg*16+off, with a single heap allocator and a single instruction cache
// keyed by CS segment value (a code segment under this model is just a
// range of the flat buffer the loader placed code into).
type RealMode struct {
	mu    sync.RWMutex
	image []byte
	heap  *heap

	codeCache map[uint16]map[uint16]x86asm.Instruction // CS -> IP -> instruction
	vars      *varDir

	log *zap.SugaredLogger
}

func newRealMode(cfg Config) *RealMode {
	r := &RealMode{
		image:     make([]byte, realModeImageSize),
		codeCache: make(map[uint16]map[uint16]x86asm.Instruction),
		vars:      newVarDir(),
		log:       cfg.logger(),
	}
	r.heap = newHeap(r.image[realModeHeapBase : realModeHeapBase+realModeHeapSize])
	return r
}

func linear(ptr farptr.FarPtr) uint32 {
	return uint32(ptr.Segment)<<4 + uint32(ptr.Offset)
}

func (r *RealMode) GetByte(ptr farptr.FarPtr) byte {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.image[linear(ptr)]
}

func (r *RealMode) SetByte(ptr farptr.FarPtr, v byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.image[linear(ptr)] = v
}

func (r *RealMode) GetWord(ptr farptr.FarPtr) uint16 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a := linear(ptr)
	return uint16(r.image[a]) | uint16(r.image[a+1])<<8
}

func (r *RealMode) SetWord(ptr farptr.FarPtr, v uint16) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a := linear(ptr)
	r.image[a] = byte(v)
	r.image[a+1] = byte(v >> 8)
}

func (r *RealMode) GetDword(ptr farptr.FarPtr) uint32 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a := linear(ptr)
	return uint32(r.image[a]) | uint32(r.image[a+1])<<8 |
		uint32(r.image[a+2])<<16 | uint32(r.image[a+3])<<24
}

func (r *RealMode) SetDword(ptr farptr.FarPtr, v uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a := linear(ptr)
	r.image[a] = byte(v)
	r.image[a+1] = byte(v >> 8)
	r.image[a+2] = byte(v >> 16)
	r.image[a+3] = byte(v >> 24)
}

func (r *RealMode) GetArray(ptr farptr.FarPtr, n uint16) []byte {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a := linear(ptr)
	return r.image[a : a+uint32(n)]
}

func (r *RealMode) SetArray(ptr farptr.FarPtr, src []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a := linear(ptr)
	copy(r.image[a:], src)
}

func (r *RealMode) GetString(ptr farptr.FarPtr, stripNull bool) ([]byte, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a := linear(ptr)
	for i := a; i < realModeImageSize; i++ {
		if r.image[i] == 0 {
			end := i
			if !stripNull {
				end = i + 1
			}
			return r.image[a:end], nil
		}
	}
	return nil, newError(CodeMalformedCString, "no NUL terminator before end of address space").
		WithDetail("segment", ptr.Segment).WithDetail("offset", ptr.Offset)
}

func (r *RealMode) Fill(ptr farptr.FarPtr, n uint16, v byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a := linear(ptr)
	for i := a; i < a+uint32(n); i++ {
		r.image[i] = v
	}
}

func (r *RealMode) Malloc(size uint16) (farptr.FarPtr, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	off, ok := r.heap.alloc(size)
	if !ok {
		return farptr.Null, newError(CodeAllocationFailure, "heap exhausted").WithDetail("size", size)
	}
	seg := uint16(realModeHeapBase >> 4)
	return farptr.New(seg, off), nil
}

func (r *RealMode) Free(ptr farptr.FarPtr) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.heap.release(ptr.Offset); err != nil {
		r.log.Warnw("free of unknown pointer", "segment", ptr.Segment, "offset", ptr.Offset)
		return nil
	}
	return nil
}

func (r *RealMode) AllocateVariable(name string, size uint16, declarePointer bool) (farptr.FarPtr, error) {
	return allocateVariable(r, r.vars, name, size, declarePointer)
}

func (r *RealMode) GetVariablePointer(name string) (farptr.FarPtr, bool) {
	return getVariablePointer(r.vars, name)
}

func (r *RealMode) AllocateBigBlock(quantity, size uint16) (farptr.FarPtr, error) {
	return allocateBigBlock(r, r.vars, quantity, size)
}

func (r *RealMode) GetBigBlock(ptr farptr.FarPtr, index uint16) (farptr.FarPtr, error) {
	return getBigBlock(r.vars, ptr, index)
}

// AddSegment places desc.Data at the flat address seg*16 and, for code
// segments, decodes it into a per-segment cache keyed by CS value.
func (r *RealMode) AddSegment(desc SegmentDescriptor) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	base := uint32(desc.Ordinal) << 4
	if base+uint32(len(desc.Data)) > realModeImageSize {
		return newError(CodeSegmentationFault, "segment placement exceeds address space").
			WithDetail("segment", desc.Ordinal).WithDetail("size", len(desc.Data))
	}
	copy(r.image[base:], desc.Data)
	if desc.Code {
		r.codeCache[desc.Ordinal] = decodeSegment(desc.Data)
	}
	return nil
}

func (r *RealMode) GetInstruction(seg, ip uint16) (x86asm.Instruction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cache, ok := r.codeCache[seg]
	if !ok {
		return x86asm.Instruction{}, newError(CodeSegmentationFault, "not a code segment").
			WithDetail("segment", seg)
	}
	inst, ok := cache[ip]
	if !ok {
		return x86asm.Instruction{}, newError(CodeSegmentationFault, "no decoded instruction at IP").
			WithDetail("segment", seg).WithDetail("ip", ip)
	}
	return inst, nil
}

func (r *RealMode) Recompile(seg, ip uint16) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cache, ok := r.codeCache[seg]
	if !ok {
		return newError(CodeSegmentationFault, "not a code segment").WithDetail("segment", seg)
	}
	base := uint32(seg) << 4
	end := base + 0x10000
	if end > realModeImageSize {
		end = realModeImageSize
	}
	return recompileAt(cache, r.image[base:end], ip)
}

func (r *RealMode) Segments() []uint16 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]uint16, 0, len(r.codeCache))
	for seg := range r.codeCache {
		out = append(out, seg)
	}
	return out
}

func (r *RealMode) PeekSegment(seg uint16) (SegmentInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cache, ok := r.codeCache[seg]
	if !ok {
		return SegmentInfo{}, false
	}
	_ = cache
	return SegmentInfo{Ordinal: seg, Size: 0x10000, Code: true, Heap: false}, true
}
