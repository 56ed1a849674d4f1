package memory

import "github.com/mbbscore/emucore/farptr"

// bigBlockState tracks one allocate_big_block handle: quantity named
// elements, each of size bytes, each itself an ordinary named variable.
type bigBlockState struct {
	quantity uint16
	elements []farptr.FarPtr
}

// varDir is the named-variable directory and big-memory-block registry,
// shared in shape between Segmented and RealMode. Names are opaque to this
// package; the host-API layer owns their meaning.
type varDir struct {
	vars       map[string]farptr.FarPtr
	bigBlocks  map[uint16]bigBlockState
	nextHandle uint16
}

func newVarDir() *varDir {
	return &varDir{
		vars:      make(map[string]farptr.FarPtr),
		bigBlocks: make(map[uint16]bigBlockState),
	}
}

// allocateVariable implements AllocateVariable against m's own Malloc, so
// it works unchanged for both Segmented and RealMode. Re-allocating an
// existing name returns the existing pointer rather than erroring.
func allocateVariable(m Memory, vd *varDir, name string, size uint16, declarePointer bool) (farptr.FarPtr, error) {
	if existing, ok := vd.vars[name]; ok {
		return existing, nil
	}
	ptr, err := m.Malloc(size)
	if err != nil {
		return farptr.Null, err
	}
	vd.vars[name] = ptr

	if declarePointer {
		pname := "*" + name
		pptr, err := m.Malloc(4)
		if err != nil {
			return ptr, err
		}
		vd.vars[pname] = pptr
		b := ptr.Bytes()
		m.SetArray(pptr, b[:])
	}
	return ptr, nil
}

func getVariablePointer(vd *varDir, name string) (farptr.FarPtr, bool) {
	p, ok := vd.vars[name]
	return p, ok
}

// allocateBigBlock creates quantity named elements of size bytes each and
// returns a pseudo-pointer (0xFFFF, handle) identifying the group.
func allocateBigBlock(m Memory, vd *varDir, quantity, size uint16) (farptr.FarPtr, error) {
	handle := vd.nextHandle
	vd.nextHandle++

	elems := make([]farptr.FarPtr, quantity)
	for i := range elems {
		p, err := m.Malloc(size)
		if err != nil {
			return farptr.Null, err
		}
		elems[i] = p
	}
	vd.bigBlocks[handle] = bigBlockState{quantity: quantity, elements: elems}
	return farptr.New(bigBlockSegment, handle), nil
}

func getBigBlock(vd *varDir, ptr farptr.FarPtr, index uint16) (farptr.FarPtr, error) {
	if ptr.Segment != bigBlockSegment {
		return farptr.Null, newError(CodeSegmentationFault, "not a big-block pseudo-pointer").
			WithDetail("segment", ptr.Segment)
	}
	bb, ok := vd.bigBlocks[ptr.Offset]
	if !ok || index >= bb.quantity {
		return farptr.Null, newError(CodeSegmentationFault, "big-block index out of range").
			WithDetail("handle", ptr.Offset).WithDetail("index", index)
	}
	return bb.elements[index], nil
}
