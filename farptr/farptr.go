// Package farptr implements the 16-bit x86 segment:offset pointer used
// throughout the memory, CPU, and Btrieve packages.
package farptr

import "fmt"

// FarPtr is a segment:offset pointer as used by 16-bit real-mode and
// protected-mode-style segmented addressing.
type FarPtr struct {
	Segment uint16
	Offset  uint16
}

// Null is the zero FarPtr.
var Null = FarPtr{}

// IsNull reports whether both Segment and Offset are zero.
func (p FarPtr) IsNull() bool {
	return p.Segment == 0 && p.Offset == 0
}

// String renders the pointer in the conventional SEG:OFF hex form.
func (p FarPtr) String() string {
	return fmt.Sprintf("%04X:%04X", p.Segment, p.Offset)
}

// Add returns p with Offset advanced by n, wrapping modulo 65536. Segment
// is left unchanged; callers that need segment-crossing arithmetic must do
// it themselves (Segment wraparound is a guest bug, not something this
// type should paper over).
func (p FarPtr) Add(n uint16) FarPtr {
	return FarPtr{Segment: p.Segment, Offset: p.Offset + n}
}

// Bytes serializes the pointer as 4 little-endian bytes: offset_lo,
// offset_hi, seg_lo, seg_hi.
func (p FarPtr) Bytes() [4]byte {
	return [4]byte{
		byte(p.Offset),
		byte(p.Offset >> 8),
		byte(p.Segment),
		byte(p.Segment >> 8),
	}
}

// FromBytes parses the 4-byte little-endian wire form produced by Bytes.
func FromBytes(b []byte) FarPtr {
	return FarPtr{
		Offset:  uint16(b[0]) | uint16(b[1])<<8,
		Segment: uint16(b[2]) | uint16(b[3])<<8,
	}
}

// New builds a FarPtr from a segment and offset.
func New(segment, offset uint16) FarPtr {
	return FarPtr{Segment: segment, Offset: offset}
}
