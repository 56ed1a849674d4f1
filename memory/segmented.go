package memory

import (
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/mbbscore/emucore/farptr"
	"github.com/mbbscore/emucore/internal/x86asm"
)

const (
	firstHeapSegment     uint16 = 0x1000
	firstRealModeSegment uint16 = 0x2000
)

// segment is one entry in Segmented's ordinal table.
type segment struct {
	ordinal uint16
	data    []byte
	code    bool
	heap    *heap                         // non-nil for heap segments
	cache   map[uint16]x86asm.Instruction // non-nil for code segments
}

// Segmented is the "protected" memory model: every segment ordinal owns an
// independently allocated byte buffer. Segment 0 (the stack segment) is
// always present. Table lookups are safe under a write lock held briefly
// during insertion, per spec's concurrency requirement for diagnostic
// tooling; the allocators themselves are single-owner and not otherwise
// synchronized.
type Segmented struct {
	mu    sync.RWMutex
	table map[uint16]*segment

	vars *varDir

	nextHeap     uint16
	nextRealMode uint16
	dirty        atomic.Bool

	log *zap.SugaredLogger
}

func newSegmented(cfg Config) *Segmented {
	s := &Segmented{
		table:        make(map[uint16]*segment),
		vars:         newVarDir(),
		nextHeap:     firstHeapSegment,
		nextRealMode: firstRealModeSegment,
		log:          cfg.logger(),
	}
	s.table[0] = &segment{ordinal: 0, data: make([]byte, 0x10000)}
	return s
}

func (s *Segmented) get(ord uint16) *segment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.table[ord]
}

func (s *Segmented) put(seg *segment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.table[seg.ordinal] = seg
}

func (s *Segmented) mustGet(ptr farptr.FarPtr) *segment {
	seg := s.get(ptr.Segment)
	if seg == nil {
		s.log.Errorw("access to unmapped segment", "segment", ptr.Segment, "offset", ptr.Offset)
		panic(newError(CodeSegmentationFault, "access to unmapped segment").
			WithDetail("segment", ptr.Segment).WithDetail("offset", ptr.Offset))
	}
	return seg
}

func (s *Segmented) GetByte(ptr farptr.FarPtr) byte {
	return s.mustGet(ptr).data[ptr.Offset]
}

func (s *Segmented) SetByte(ptr farptr.FarPtr, v byte) {
	s.mustGet(ptr).data[ptr.Offset] = v
}

func (s *Segmented) GetWord(ptr farptr.FarPtr) uint16 {
	seg := s.mustGet(ptr)
	return uint16(seg.data[ptr.Offset]) | uint16(seg.data[ptr.Offset+1])<<8
}

func (s *Segmented) SetWord(ptr farptr.FarPtr, v uint16) {
	seg := s.mustGet(ptr)
	seg.data[ptr.Offset] = byte(v)
	seg.data[ptr.Offset+1] = byte(v >> 8)
}

func (s *Segmented) GetDword(ptr farptr.FarPtr) uint32 {
	seg := s.mustGet(ptr)
	o := ptr.Offset
	return uint32(seg.data[o]) | uint32(seg.data[o+1])<<8 |
		uint32(seg.data[o+2])<<16 | uint32(seg.data[o+3])<<24
}

func (s *Segmented) SetDword(ptr farptr.FarPtr, v uint32) {
	seg := s.mustGet(ptr)
	o := ptr.Offset
	seg.data[o] = byte(v)
	seg.data[o+1] = byte(v >> 8)
	seg.data[o+2] = byte(v >> 16)
	seg.data[o+3] = byte(v >> 24)
}

func (s *Segmented) GetArray(ptr farptr.FarPtr, n uint16) []byte {
	seg := s.mustGet(ptr)
	return seg.data[ptr.Offset : uint32(ptr.Offset)+uint32(n)]
}

func (s *Segmented) SetArray(ptr farptr.FarPtr, src []byte) {
	seg := s.mustGet(ptr)
	copy(seg.data[ptr.Offset:], src)
}

func (s *Segmented) GetString(ptr farptr.FarPtr, stripNull bool) ([]byte, error) {
	seg := s.mustGet(ptr)
	for i := int(ptr.Offset); i < len(seg.data); i++ {
		if seg.data[i] == 0 {
			end := i
			if !stripNull {
				end = i + 1
			}
			return seg.data[ptr.Offset:end], nil
		}
	}
	return nil, newError(CodeMalformedCString, "no NUL terminator before end of segment").
		WithDetail("segment", ptr.Segment).WithDetail("offset", ptr.Offset)
}

func (s *Segmented) Fill(ptr farptr.FarPtr, n uint16, v byte) {
	seg := s.mustGet(ptr)
	end := uint32(ptr.Offset) + uint32(n)
	for i := uint32(ptr.Offset); i < end; i++ {
		seg.data[i] = v
	}
}

// Malloc iterates existing heap segments looking for one with enough free
// space; if none qualifies, it creates a new heap segment and allocates
// there.
func (s *Segmented) Malloc(size uint16) (farptr.FarPtr, error) {
	want := align2(size)

	s.mu.RLock()
	var candidates []*segment
	for ord := firstHeapSegment; ord < firstRealModeSegment; ord++ {
		if seg, ok := s.table[ord]; ok && seg.heap != nil {
			candidates = append(candidates, seg)
		}
	}
	s.mu.RUnlock()

	for _, seg := range candidates {
		if seg.heap.bytesFree() >= want {
			off, ok := seg.heap.alloc(size)
			if ok {
				return farptr.New(seg.ordinal, off), nil
			}
		}
	}

	s.mu.Lock()
	ord := s.nextHeap
	s.nextHeap++
	seg := &segment{ordinal: ord, data: make([]byte, 0x10000)}
	seg.heap = newHeap(seg.data)
	s.table[ord] = seg
	s.mu.Unlock()

	off, ok := seg.heap.alloc(size)
	if !ok {
		return farptr.Null, newError(CodeAllocationFailure, "allocation exceeds fresh heap segment capacity").
			WithDetail("size", size)
	}
	return farptr.New(seg.ordinal, off), nil
}

func (s *Segmented) Free(ptr farptr.FarPtr) error {
	seg := s.get(ptr.Segment)
	if seg == nil || seg.heap == nil {
		s.log.Warnw("free of unknown segment", "segment", ptr.Segment, "offset", ptr.Offset)
		return nil
	}
	return seg.heap.release(ptr.Offset)
}

func (s *Segmented) AllocateVariable(name string, size uint16, declarePointer bool) (farptr.FarPtr, error) {
	return allocateVariable(s, s.vars, name, size, declarePointer)
}

func (s *Segmented) GetVariablePointer(name string) (farptr.FarPtr, bool) {
	return getVariablePointer(s.vars, name)
}

func (s *Segmented) AllocateBigBlock(quantity, size uint16) (farptr.FarPtr, error) {
	return allocateBigBlock(s, s.vars, quantity, size)
}

func (s *Segmented) GetBigBlock(ptr farptr.FarPtr, index uint16) (farptr.FarPtr, error) {
	return getBigBlock(s.vars, ptr, index)
}

func (s *Segmented) AddSegment(desc SegmentDescriptor) error {
	seg := &segment{ordinal: desc.Ordinal, data: append([]byte(nil), desc.Data...), code: desc.Code}
	if desc.Code {
		seg.cache = decodeSegment(seg.data)
	}
	s.put(seg)
	return nil
}

func (s *Segmented) GetInstruction(ord, ip uint16) (x86asm.Instruction, error) {
	seg := s.get(ord)
	if seg == nil || seg.cache == nil {
		return x86asm.Instruction{}, newError(CodeSegmentationFault, "not a code segment").
			WithDetail("segment", ord)
	}
	inst, ok := seg.cache[ip]
	if !ok {
		return x86asm.Instruction{}, newError(CodeSegmentationFault, "no decoded instruction at IP").
			WithDetail("segment", ord).WithDetail("ip", ip)
	}
	return inst, nil
}

func (s *Segmented) Recompile(ord, ip uint16) error {
	seg := s.get(ord)
	if seg == nil || seg.cache == nil {
		return newError(CodeSegmentationFault, "not a code segment").WithDetail("segment", ord)
	}
	return recompileAt(seg.cache, seg.data, ip)
}

func (s *Segmented) Segments() []uint16 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]uint16, 0, len(s.table))
	for ord := range s.table {
		out = append(out, ord)
	}
	return out
}

func (s *Segmented) PeekSegment(ord uint16) (SegmentInfo, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seg, ok := s.table[ord]
	if !ok {
		return SegmentInfo{}, false
	}
	return SegmentInfo{Ordinal: ord, Size: uint16(len(seg.data)), Code: seg.code, Heap: seg.heap != nil}, true
}
