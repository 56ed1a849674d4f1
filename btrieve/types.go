// Package btrieve implements the legacy Btrieve ISAM file engine that
// MAJORBBS/Worldgroup door modules use for their on-disk record storage:
// parsing the classic .DAT binary format, mirroring it to a faster-loading
// structured file and an optional SQLite shadow copy for external
// inspection, and servicing the Step/Get cursor operations and
// insert/update/delete mutations a guest module drives through the
// host-API dispatch boundary. Its cursor/key state follows the same small
// typed-fields-mutated-by-narrow-methods discipline as a register file and
// flag bookkeeping, applied here to records, keys, and cursor position
// instead of registers and flags.
package btrieve

// DataType classifies how a key's bytes compare to other keys of the same
// kind.
type DataType int

const (
	DataTypeString DataType = iota
	DataTypeZstring
	DataTypeInteger
	DataTypeUnsignedBinary
	DataTypeFloat
	DataTypeDate
	DataTypeTime
	DataTypeAutoincrement
)

// Attribute is a bitmask of key-definition flags, decoded from the legacy
// .DAT key-definition attribute word.
type Attribute uint16

const (
	AttrDuplicates   Attribute = 1 << 0
	AttrModifiable   Attribute = 1 << 1
	AttrBinary       Attribute = 1 << 2
	AttrNullable     Attribute = 1 << 3
	AttrSegmentedKey Attribute = 1 << 4
	AttrDescending   Attribute = 1 << 5
)

func (a Attribute) Has(flag Attribute) bool { return a&flag != 0 }

// KeySegment is one physically contiguous span contributing to a key;
// most keys have exactly one, but a SegmentedKey-flagged definition
// appends additional segments to the previously numbered key instead of
// starting a new one.
type KeySegment struct {
	Offset     uint16
	Length     uint16
	DataType   DataType
	Attributes Attribute
}

// KeyDefinition is one numbered key, 1..N ordered segments concatenated
// in definition order to form the key-slice compared during a query.
type KeyDefinition struct {
	Number   int
	Segments []KeySegment
}

// Duplicates/Modifiable report the attributes of the key's first segment,
// matching how the legacy format stores per-segment attributes even
// though callers reason about them at the key level.
func (k KeyDefinition) Duplicates() bool {
	return len(k.Segments) > 0 && k.Segments[0].Attributes.Has(AttrDuplicates)
}

func (k KeyDefinition) Modifiable() bool {
	return len(k.Segments) > 0 && k.Segments[0].Attributes.Has(AttrModifiable)
}

// Length is the total byte length of the concatenated key, summed across
// segments.
func (k KeyDefinition) Length() uint16 {
	var total uint16
	for _, seg := range k.Segments {
		total += seg.Length
	}
	return total
}

// Record is one logical Btrieve record. Offset is the stable integer
// identifier used as cursor Position, not a byte offset into a page.
type Record struct {
	Offset uint32
	Data   []byte
}

// Query is the stored previous-query descriptor that GetKeyNext and the
// other continuation operations advance without the caller re-specifying
// the key.
type Query struct {
	KeyNumber int
	Key       []byte
}

// Metadata carries the header fields read from (or mirrored alongside)
// the legacy .DAT file.
type Metadata struct {
	RecordLength         uint16
	PhysicalRecordLength uint16
	PageLength           uint16
	PageCount            uint16
	KeyCount             int
	LogKeyPresent        bool
}
