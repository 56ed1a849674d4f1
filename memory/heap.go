package memory

// memRange is a contiguous free byte range within a heap's backing buffer.
type memRange struct {
	offset uint16
	size   uint16
}

// heap is a first-fit intrusive free-list allocator over a fixed-size byte
// buffer, with 2-byte alignment per spec. It does not own the buffer — the
// owning segment does — so heap.buf is always a view into segment storage.
type heap struct {
	buf  []byte
	free []memRange
	live map[uint16]uint16
}

func newHeap(buf []byte) *heap {
	return &heap{
		buf:  buf,
		free: []memRange{{offset: 0, size: uint16(len(buf))}},
		live: make(map[uint16]uint16),
	}
}

// bytesFree returns the total free capacity remaining in the heap, used by
// malloc to pick which heap segment to try.
func (h *heap) bytesFree() uint16 {
	var total uint32
	for _, r := range h.free {
		total += uint32(r.size)
	}
	if total > 0xFFFF {
		return 0xFFFF
	}
	return uint16(total)
}

// alloc reserves size bytes (rounded up to 2-byte alignment), zeroes them,
// and returns their offset within the heap's buffer. ok is false if no
// single free range is large enough.
func (h *heap) alloc(size uint16) (offset uint16, ok bool) {
	want := align2(size)
	for i, r := range h.free {
		if r.size < want {
			continue
		}
		offset = r.offset
		if r.size == want {
			h.free = append(h.free[:i], h.free[i+1:]...)
		} else {
			h.free[i] = memRange{offset: r.offset + want, size: r.size - want}
		}
		for j := uint16(0); j < size; j++ {
			h.buf[offset+j] = 0
		}
		h.live[offset] = size
		return offset, true
	}
	return 0, false
}

// release frees a previously allocated offset, merging it back into the
// free list. It errors on double-free or an offset this heap never handed
// out.
func (h *heap) release(offset uint16) error {
	size, ok := h.live[offset]
	if !ok {
		return newError(CodeDoubleFree, "free of unknown or already-freed pointer")
	}
	delete(h.live, offset)
	h.insertFree(memRange{offset: offset, size: align2(size)})
	return nil
}

func (h *heap) insertFree(r memRange) {
	i := 0
	for i < len(h.free) && h.free[i].offset < r.offset {
		i++
	}
	h.free = append(h.free, memRange{})
	copy(h.free[i+1:], h.free[i:])
	h.free[i] = r
	h.coalesce()
}

// coalesce merges adjacent free ranges after an insert. The free list is
// kept sorted by offset so this is a single linear pass.
func (h *heap) coalesce() {
	merged := h.free[:0]
	for _, r := range h.free {
		if n := len(merged); n > 0 && merged[n-1].offset+merged[n-1].size == r.offset {
			merged[n-1].size += r.size
			continue
		}
		merged = append(merged, r)
	}
	h.free = merged
}
