package btrieve

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCompareKeysStringStripsTrailingNUL(t *testing.T) {
	a := []byte("TEST\x00\x00\x00\x00")
	b := []byte("TEST")
	require.Equal(t, 0, compareKeys(a, b, DataTypeZstring))
}

func TestCompareKeysNumericUnsignedLittleEndian(t *testing.T) {
	// 0xFFFF as a little-endian uint16 is the maximum value, not -1:
	// Integer keys preserve unsigned ordering per the documented
	// bug-compatible decision even though Integer nominally means signed.
	small := []byte{0x01, 0x00}
	large := []byte{0xFF, 0xFF}
	require.Equal(t, -1, compareKeys(small, large, DataTypeInteger))
}

func TestCompareKeysEmptyTreatedAsZero(t *testing.T) {
	require.Equal(t, 0, compareKeys(nil, []byte{0x00, 0x00}, DataTypeInteger))
}

func TestIncrementKeyWrapsModuloWidth(t *testing.T) {
	require.Equal(t, []byte{0x00, 0x00}, incrementKey([]byte{0xFF, 0xFF}))
	require.Equal(t, []byte{0x01, 0x00}, incrementKey([]byte{0x00, 0x00}))
}

func TestExtractKeySliceConcatenatesSegments(t *testing.T) {
	key := KeyDefinition{Segments: []KeySegment{
		{Offset: 0, Length: 2},
		{Offset: 4, Length: 2},
	}}
	record := []byte{0xAA, 0xBB, 0x00, 0x00, 0xCC, 0xDD}
	require.Equal(t, []byte{0xAA, 0xBB, 0xCC, 0xDD}, extractKeySlice(record, key))
}
