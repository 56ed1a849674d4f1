package btrieve

import (
	"bytes"
	"encoding/binary"
)

// extractKeySlice concatenates the bytes of every segment of key out of
// record, in segment order, producing the key-slice operations compare
// against.
func extractKeySlice(record []byte, key KeyDefinition) []byte {
	out := make([]byte, 0, key.Length())
	for _, seg := range key.Segments {
		end := int(seg.Offset) + int(seg.Length)
		if end > len(record) {
			end = len(record)
		}
		if int(seg.Offset) >= len(record) {
			continue
		}
		out = append(out, record[seg.Offset:end]...)
	}
	return out
}

func isStringType(t DataType) bool {
	return t == DataTypeString || t == DataTypeZstring
}

// firstSegmentType reports the data type of a key's first segment, which
// is what every query and comparison operation treats as the key's type
// (a multi-segment key is compared across its whole concatenated value
// using the first segment's type; the types of later segments are not
// consulted).
func firstSegmentType(key KeyDefinition) DataType {
	if len(key.Segments) == 0 {
		return DataTypeString
	}
	return key.Segments[0].DataType
}

// compareKeys orders a against b the way GetKeyFirst/Last and the
// Greater/Less family do: numeric keys (Integer/UnsignedBinary) compare
// as unsigned little-endian integers (spec.md §9's bug-compatible
// unsigned-ordering decision, even for the nominally signed Integer
// type), string/zstring keys compare byte-wise with trailing NULs
// stripped first.
func compareKeys(a, b []byte, dt DataType) int {
	if isStringType(dt) {
		return bytes.Compare(stripTrailingNUL(a), stripTrailingNUL(b))
	}
	return compareUnsigned(a, b)
}

func stripTrailingNUL(b []byte) []byte {
	end := len(b)
	for end > 0 && b[end-1] == 0 {
		end--
	}
	return b[:end]
}

// compareUnsigned compares two little-endian byte strings of equal
// length as unsigned integers. Empty keys (length 0) are treated as
// zero, per spec.md §9.
func compareUnsigned(a, b []byte) int {
	av := unsignedValue(a)
	bv := unsignedValue(b)
	switch {
	case av < bv:
		return -1
	case av > bv:
		return 1
	default:
		return 0
	}
}

func unsignedValue(b []byte) uint64 {
	switch len(b) {
	case 0:
		return 0
	case 1:
		return uint64(b[0])
	case 2:
		return uint64(binary.LittleEndian.Uint16(b))
	case 4:
		return uint64(binary.LittleEndian.Uint32(b))
	default:
		// Wider numeric keys than 4 bytes are not modeled by the source
		// format; fall back to the low 8 bytes little-endian.
		buf := make([]byte, 8)
		copy(buf, b)
		return binary.LittleEndian.Uint64(buf)
	}
}

// incrementKey adds 1 to the little-endian unsigned value mod 2^(8*len),
// used by GetKeyNext on numeric keys.
func incrementKey(b []byte) []byte {
	out := append([]byte(nil), b...)
	for i := range out {
		out[i]++
		if out[i] != 0 {
			break
		}
	}
	return out
}
