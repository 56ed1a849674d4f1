package btrieve

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// writeSyntheticDAT builds a minimal but complete .DAT file with one
// Zstring key spanning the whole 8-byte record, three records placed on
// a single data page in insertion order BBBB, AAAA, CCCC so that ordering
// operations have something to prove.
func writeSyntheticDAT(t *testing.T, path string) {
	t.Helper()
	const pageLength = 128
	const recordLength = 8
	const physicalRecordLength = 10

	raw := make([]byte, offsetFirstKeyDefinition+keyDefinitionSize+pageLength*2)
	binary.LittleEndian.PutUint16(raw[offsetPageLength:], pageLength)
	binary.LittleEndian.PutUint16(raw[offsetPageCount:], 1)
	binary.LittleEndian.PutUint16(raw[offsetRecordLength:], recordLength)
	binary.LittleEndian.PutUint16(raw[offsetPhysicalRecordLength:], physicalRecordLength)
	binary.LittleEndian.PutUint16(raw[offsetKeyCount:], 1)
	buildKeyDef(raw, offsetFirstKeyDefinition, 0, recordLength, AttrDuplicates, DataTypeZstring)

	pageOffset := uint32(1) * pageLength
	buildDataPage(raw, pageOffset, pageLength, physicalRecordLength, [][]byte{
		[]byte("BBBB\x00\x00\x00\x00"),
		[]byte("AAAA\x00\x00\x00\x00"),
		[]byte("CCCC\x00\x00\x00\x00"),
	})

	require.NoError(t, os.WriteFile(path, raw, 0o644))
}

func newTestFile(t *testing.T) *File {
	t.Helper()
	dir := t.TempDir()
	writeSyntheticDAT(t, filepath.Join(dir, "TESTFILE.DAT"))
	f, err := New(Config{Path: dir, FileName: "TESTFILE"})
	require.NoError(t, err)
	return f
}

func TestNewParsesDATAndWritesMirror(t *testing.T) {
	dir := t.TempDir()
	writeSyntheticDAT(t, filepath.Join(dir, "TESTFILE.DAT"))

	f, err := New(Config{Path: dir, FileName: "TESTFILE"})
	require.NoError(t, err)
	require.Equal(t, 3, f.RecordCount())
	require.FileExists(t, filepath.Join(dir, "TESTFILE.EMU"))
}

func TestEMUMirrorRoundTrip(t *testing.T) {
	dir := t.TempDir()
	writeSyntheticDAT(t, filepath.Join(dir, "TESTFILE.DAT"))

	first, err := New(Config{Path: dir, FileName: "TESTFILE"})
	require.NoError(t, err)

	// Remove the .DAT so the second open is forced through the .EMU path.
	require.NoError(t, os.Remove(filepath.Join(dir, "TESTFILE.DAT")))

	second, err := New(Config{Path: dir, FileName: "TESTFILE"})
	require.NoError(t, err)

	require.Equal(t, first.Metadata(), second.Metadata())
	require.Equal(t, first.Keys(), second.Keys())
	require.Equal(t, first.records, second.records)
}

func TestStepFirstNextVisitsIncreasingOffsetsOnce(t *testing.T) {
	f := newTestFile(t)
	var seen []uint32
	require.True(t, f.StepFirst())
	seen = append(seen, f.Position)
	for f.StepNext() {
		seen = append(seen, f.Position)
	}
	require.Equal(t, []uint32{1, 2, 3}, seen)
}

func TestStepLastPreviousVisitsDecreasingOffsetsOnce(t *testing.T) {
	f := newTestFile(t)
	var seen []uint32
	require.True(t, f.StepLast())
	seen = append(seen, f.Position)
	for f.StepPrevious() {
		seen = append(seen, f.Position)
	}
	require.Equal(t, []uint32{3, 2, 1}, seen)
}

func TestGetKeyFirstAndLastOrderByKeyNotOffset(t *testing.T) {
	f := newTestFile(t)
	// Insertion order was BBBB(1), AAAA(2), CCCC(3); key order is AAAA <
	// BBBB < CCCC, independent of offset.
	require.True(t, f.GetKeyFirst(0))
	require.EqualValues(t, 2, f.Position)

	require.True(t, f.GetKeyLast(0))
	require.EqualValues(t, 3, f.Position)
}

func TestGetEqualFindsMatchingRecord(t *testing.T) {
	f := newTestFile(t)
	require.True(t, f.GetEqual(0, []byte("AAAA\x00\x00\x00\x00")))
	require.EqualValues(t, 2, f.Position)
}

func TestInsertAppendsAtMaxOffsetPlusOne(t *testing.T) {
	f := newTestFile(t)
	offset := f.Insert([]byte("DDDD\x00\x00\x00\x00"))
	require.EqualValues(t, 4, offset)
	require.Equal(t, 4, f.RecordCount())
}

func TestDeleteLeavesPositionForNextStepNext(t *testing.T) {
	f := newTestFile(t)
	require.True(t, f.StepFirst())
	require.True(t, f.StepNext()) // now at offset 2

	require.True(t, f.Delete())
	require.Equal(t, 2, f.RecordCount())
	require.EqualValues(t, 2, f.Position, "Position is left unchanged by delete")

	require.True(t, f.StepNext())
	require.EqualValues(t, 3, f.Position)
}

func TestUpdateRejectsLengthMismatch(t *testing.T) {
	f := newTestFile(t)
	err := f.Update(1, []byte("short"))
	require.Error(t, err)
	var btErr Error
	require.ErrorAs(t, err, &btErr)
	require.Equal(t, CodeMalformedRecord, btErr.Code())
}

func TestRecoveryDumpFormat(t *testing.T) {
	f := newTestFile(t)
	var buf bytes.Buffer
	require.NoError(t, f.WriteRecoveryDump(&buf))

	out := buf.Bytes()
	require.Equal(t, byte(0x1A), out[len(out)-1])
	require.Contains(t, buf.String(), "8,BBBB")
}

func TestVirginFileRecoveryWhenDATMissing(t *testing.T) {
	dir := t.TempDir()
	writeSyntheticDAT(t, filepath.Join(dir, "TESTFILE.VIR"))

	f, err := New(Config{Path: dir, FileName: "TESTFILE"})
	require.NoError(t, err)
	require.Equal(t, 3, f.RecordCount())
	require.FileExists(t, filepath.Join(dir, "TESTFILE.DAT"))
}

func TestMalformedFileWhenNeitherDATNorVIRExists(t *testing.T) {
	dir := t.TempDir()
	_, err := New(Config{Path: dir, FileName: "MISSING"})
	require.Error(t, err)
	var btErr Error
	require.ErrorAs(t, err, &btErr)
	require.Equal(t, CodeMalformedFile, btErr.Code())
}
