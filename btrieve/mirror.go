package btrieve

import (
	"encoding/gob"
	"os"
)

// mirrorDoc is the gob-serialized shape of the .EMU structured mirror: the
// fully deserialized file, ready to reload without re-parsing the legacy
// .DAT. protobuf appears elsewhere in the retrieval pack, but a wire
// schema change here never crosses a process boundary (the mirror is read
// back by the same binary that wrote it), so gob's reflection-based codec
// gives the same round-trip guarantee with none of the .proto maintenance
// burden; see DESIGN.md for the full reasoning.
type mirrorDoc struct {
	Metadata Metadata
	Keys     []KeyDefinition
	Records  []Record
}

// loadMirror reads a .EMU file previously written by saveMirror.
func loadMirror(path string) (Metadata, []KeyDefinition, []Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return Metadata{}, nil, nil, err
	}
	defer f.Close()

	var doc mirrorDoc
	if err := gob.NewDecoder(f).Decode(&doc); err != nil {
		return Metadata{}, nil, nil, newError(CodeMalformedFile, "corrupt .EMU mirror").WithDetail("path", path)
	}
	return doc.Metadata, doc.Keys, doc.Records, nil
}

// saveMirror writes (or overwrites) the .EMU structured mirror, called
// after every successful load from .DAT and after every mutation.
func saveMirror(path string, meta Metadata, keys []KeyDefinition, records []Record) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	doc := mirrorDoc{Metadata: meta, Keys: keys, Records: records}
	return gob.NewEncoder(f).Encode(&doc)
}
