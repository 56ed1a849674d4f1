package btrieve

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

// buildKeyDef writes one 0x1E-byte key definition at raw[off:].
func buildKeyDef(raw []byte, off int, keyOffset, length uint16, attrs Attribute, dt DataType) {
	binary.LittleEndian.PutUint16(raw[off+keyDefOffsetFieldOffset:], keyOffset)
	binary.LittleEndian.PutUint16(raw[off+keyDefLengthFieldOffset:], length)
	binary.LittleEndian.PutUint16(raw[off+keyDefAttrFieldOffset:], uint16(attrs))
	raw[off+keyDefTypeFieldOffset] = byte(dt)
}

// referenceHeader builds the header+key-definition bytes matching
// spec.md's worked MBBSEMU.DAT scenario: key_count=3, record_length=70,
// physical_record_length=86, page_length=512, page_count=4,
// log_key_present=false, with the three documented key definitions.
func referenceHeader(t *testing.T) []byte {
	t.Helper()
	raw := make([]byte, offsetFirstKeyDefinition+3*keyDefinitionSize)
	binary.LittleEndian.PutUint16(raw[offsetPageLength:], 512)
	binary.LittleEndian.PutUint16(raw[offsetPageCount:], 4)
	binary.LittleEndian.PutUint16(raw[offsetRecordLength:], 70)
	binary.LittleEndian.PutUint16(raw[offsetPhysicalRecordLength:], 86)
	binary.LittleEndian.PutUint16(raw[offsetKeyCount:], 3)
	raw[offsetLogKeyPresent] = 0

	buildKeyDef(raw, offsetFirstKeyDefinition+0*keyDefinitionSize, 2, 32, AttrDuplicates, DataTypeZstring)
	buildKeyDef(raw, offsetFirstKeyDefinition+1*keyDefinitionSize, 34, 4, AttrModifiable, DataTypeInteger)
	buildKeyDef(raw, offsetFirstKeyDefinition+2*keyDefinitionSize, 38, 32, AttrDuplicates|AttrModifiable, DataTypeZstring)
	return raw
}

func TestParseDATHeaderMatchesReferenceScenario(t *testing.T) {
	raw := referenceHeader(t)
	meta, keys, records, err := parseDAT(raw)
	require.NoError(t, err)
	require.Empty(t, records)

	require.Equal(t, Metadata{
		PageLength:           512,
		PageCount:            4,
		RecordLength:         70,
		PhysicalRecordLength: 86,
		KeyCount:             3,
		LogKeyPresent:        false,
	}, meta)

	require.Len(t, keys, 3)
	require.Equal(t, DataTypeZstring, keys[0].Segments[0].DataType)
	require.EqualValues(t, 32, keys[0].Segments[0].Length)
	require.EqualValues(t, 2, keys[0].Segments[0].Offset)
	require.True(t, keys[0].Duplicates())

	require.Equal(t, DataTypeInteger, keys[1].Segments[0].DataType)
	require.EqualValues(t, 4, keys[1].Segments[0].Length)
	require.EqualValues(t, 34, keys[1].Segments[0].Offset)
	require.True(t, keys[1].Modifiable())

	require.Equal(t, DataTypeZstring, keys[2].Segments[0].DataType)
	require.EqualValues(t, 32, keys[2].Segments[0].Length)
	require.EqualValues(t, 38, keys[2].Segments[0].Offset)
	require.True(t, keys[2].Duplicates())
	require.True(t, keys[2].Modifiable())
}

func TestParseDATSegmentedKeyAppendsToPreviousKey(t *testing.T) {
	raw := make([]byte, offsetFirstKeyDefinition+2*keyDefinitionSize)
	binary.LittleEndian.PutUint16(raw[offsetKeyCount:], 2)
	buildKeyDef(raw, offsetFirstKeyDefinition+0*keyDefinitionSize, 0, 4, 0, DataTypeInteger)
	buildKeyDef(raw, offsetFirstKeyDefinition+1*keyDefinitionSize, 4, 4, AttrSegmentedKey, DataTypeInteger)

	_, keys, _, err := parseDAT(raw)
	require.NoError(t, err)
	require.Len(t, keys, 1, "the segmented definition should extend key 0, not start key 1")
	require.Len(t, keys[0].Segments, 2)
	require.EqualValues(t, 8, keys[0].Length())
}

// buildDataPage writes one data page (marker set, no key/constraint
// markers) at raw[pageOffset:] containing the given records, each padded
// to physicalRecordLength, and marks every remaining slot of the page
// empty (0xFFFFFFFF), since the parser reads any unmarked slot as a record.
func buildDataPage(raw []byte, pageOffset uint32, pageLength, physicalRecordLength uint16, records [][]byte) {
	raw[pageOffset+pageDataMSBOffset] = 0x80
	slot := pageOffset + pageDataHeaderLen
	for _, rec := range records {
		copy(raw[slot:], rec)
		slot += uint32(physicalRecordLength)
	}
	for ; slot+uint32(physicalRecordLength) <= pageOffset+uint32(pageLength); slot += uint32(physicalRecordLength) {
		binary.LittleEndian.PutUint32(raw[slot:], emptySlotMarker)
	}
}

func TestParseDATReadsDataPageRecords(t *testing.T) {
	const pageLength = 64
	const recordLength = 8
	const physicalRecordLength = 10

	raw := make([]byte, offsetFirstKeyDefinition+pageLength*3)
	binary.LittleEndian.PutUint16(raw[offsetPageLength:], pageLength)
	binary.LittleEndian.PutUint16(raw[offsetPageCount:], 2)
	binary.LittleEndian.PutUint16(raw[offsetRecordLength:], recordLength)
	binary.LittleEndian.PutUint16(raw[offsetPhysicalRecordLength:], physicalRecordLength)
	binary.LittleEndian.PutUint16(raw[offsetKeyCount:], 0)

	rec1 := []byte("AAAAAAAA")
	rec2 := []byte("BBBBBBBB")
	buildDataPage(raw, pageLength, pageLength, physicalRecordLength, [][]byte{rec1, rec2})

	_, _, records, err := parseDAT(raw)
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, rec1, records[0].Data)
	require.Equal(t, rec2, records[1].Data)
	require.EqualValues(t, 1, records[0].Offset)
	require.EqualValues(t, 2, records[1].Offset)
}

func TestParseDATSkipsKeyAndConstraintPages(t *testing.T) {
	const pageLength = 64
	raw := make([]byte, offsetFirstKeyDefinition+pageLength*3)
	binary.LittleEndian.PutUint16(raw[offsetPageLength:], pageLength)
	binary.LittleEndian.PutUint16(raw[offsetPageCount:], 2)
	binary.LittleEndian.PutUint16(raw[offsetRecordLength:], 4)
	binary.LittleEndian.PutUint16(raw[offsetPhysicalRecordLength:], 6)

	// Page 1: key page (dword at +8 == 0xFFFFFFFF).
	binary.LittleEndian.PutUint32(raw[pageLength+pageKeyMarkerOffset:], emptySlotMarker)
	// Page 2: constraint page (byte at +6 == 0xAC).
	raw[pageLength*2+pageConstraintOffset] = pageConstraintByte

	_, _, records, err := parseDAT(raw)
	require.NoError(t, err)
	require.Empty(t, records)
}
