package btrieve

import "encoding/binary"

// Legacy .DAT header field offsets. Only the log-key-present flag byte
// (0x10C) and the first key definition (0x110, 0x1E bytes per
// definition) are pinned down; the remaining header fields are not given
// explicit offsets, so this file picks a consistent layout modeled on the
// classic Btrieve 6.x file header and documents the choice rather than
// guessing silently.
const (
	offsetPageLength           = 0x00 // u16
	offsetPageCount            = 0x02 // u16
	offsetRecordLength         = 0x04 // u16
	offsetPhysicalRecordLength = 0x06 // u16
	offsetKeyCount             = 0x08 // u16
	offsetLogKeyPresent        = 0x10C
	offsetFirstKeyDefinition   = 0x110
	keyDefinitionSize          = 0x1E

	keyDefOffsetFieldOffset = 0x00 // u16, key offset in record
	keyDefLengthFieldOffset = 0x02 // u16
	keyDefAttrFieldOffset   = 0x04 // u16
	keyDefTypeFieldOffset   = 0x06 // byte
)

// pageDataMSBOffset/pageConstraintOffset/pageKeyMarkerOffset are the fixed
// offsets spec.md gives for classifying a page.
const (
	pageDataHeaderLen    = 6
	pageDataMSBOffset    = 5
	pageConstraintOffset = 6
	pageKeyMarkerOffset  = 8
	pageConstraintByte   = 0xAC
	emptySlotMarker      = 0xFFFFFFFF
)

// parseDAT reads the legacy binary format: header, key definitions, and
// data pages, per spec.md §4.3/§6.
func parseDAT(raw []byte) (Metadata, []KeyDefinition, []Record, error) {
	if len(raw) < offsetFirstKeyDefinition {
		return Metadata{}, nil, nil, newError(CodeMalformedFile, "file too short for a Btrieve header")
	}

	meta := Metadata{
		PageLength:           binary.LittleEndian.Uint16(raw[offsetPageLength:]),
		PageCount:            binary.LittleEndian.Uint16(raw[offsetPageCount:]),
		RecordLength:         binary.LittleEndian.Uint16(raw[offsetRecordLength:]),
		PhysicalRecordLength: binary.LittleEndian.Uint16(raw[offsetPhysicalRecordLength:]),
		KeyCount:             int(binary.LittleEndian.Uint16(raw[offsetKeyCount:])),
		LogKeyPresent:        raw[offsetLogKeyPresent] != 0,
	}

	keys, err := parseKeyDefinitions(raw, meta.KeyCount)
	if err != nil {
		return Metadata{}, nil, nil, err
	}

	records := parseDataPages(raw, meta)
	return meta, keys, records, nil
}

func parseKeyDefinitions(raw []byte, keyCount int) ([]KeyDefinition, error) {
	var defs []KeyDefinition
	off := offsetFirstKeyDefinition
	for i := 0; i < keyCount; i++ {
		end := off + keyDefinitionSize
		if end > len(raw) {
			return nil, newError(CodeMalformedFile, "file too short for declared key count").WithDetail("key_index", i)
		}
		raw := raw[off:end]
		seg := KeySegment{
			Offset:     binary.LittleEndian.Uint16(raw[keyDefOffsetFieldOffset:]),
			Length:     binary.LittleEndian.Uint16(raw[keyDefLengthFieldOffset:]),
			Attributes: Attribute(binary.LittleEndian.Uint16(raw[keyDefAttrFieldOffset:])),
			DataType:   DataType(raw[keyDefTypeFieldOffset]),
		}

		if seg.Attributes.Has(AttrSegmentedKey) && len(defs) > 0 {
			last := &defs[len(defs)-1]
			last.Segments = append(last.Segments, seg)
		} else {
			defs = append(defs, KeyDefinition{Number: len(defs), Segments: []KeySegment{seg}})
		}
		off = end
	}
	return defs, nil
}

func parseDataPages(raw []byte, meta Metadata) []Record {
	var records []Record
	if meta.PageLength == 0 {
		return records
	}

	for page := uint32(1); page <= uint32(meta.PageCount); page++ {
		pageOffset := page * uint32(meta.PageLength)
		if int(pageOffset)+pageDataHeaderLen > len(raw) {
			break
		}

		keyMarker := binary.LittleEndian.Uint32(raw[pageOffset+pageKeyMarkerOffset:])
		if keyMarker == emptySlotMarker {
			continue // key page
		}
		if raw[pageOffset+pageConstraintOffset] == pageConstraintByte {
			continue // key-constraint page
		}
		if raw[pageOffset+pageDataMSBOffset]&0x80 == 0 {
			continue // not a data page; skipped silently, nothing is logged
		}

		// No header record count is read: every slot on every non-skipped
		// page is scanned until the page is exhausted. Only slots whose
		// first four bytes are 0xFFFFFFFF are treated as empty; any other
		// slot, including a zero-filled one, is read as a record.
		slot := pageOffset + pageDataHeaderLen
		end := pageOffset + uint32(meta.PageLength)
		for slot+uint32(meta.PhysicalRecordLength) <= end && int(slot+uint32(meta.PhysicalRecordLength)) <= len(raw) {
			marker := binary.LittleEndian.Uint32(raw[slot:])
			if marker == emptySlotMarker {
				slot += uint32(meta.PhysicalRecordLength)
				continue
			}
			data := append([]byte(nil), raw[slot:slot+uint32(meta.RecordLength)]...)
			records = append(records, Record{Offset: uint32(len(records)) + 1, Data: data})
			slot += uint32(meta.PhysicalRecordLength)
		}
	}
	return records
}
