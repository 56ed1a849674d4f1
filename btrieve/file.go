package btrieve

import (
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"go.uber.org/zap"
)

// Config constructs a File.
type Config struct {
	// Path is the directory containing FileName.DAT/.EMU/.VIR/.DB.
	Path string
	// FileName is the base name, without extension (e.g. "MBBSEMU" for
	// "MBBSEMU.DAT").
	FileName string
	Logger   *zap.SugaredLogger
	// SQLiteMirror writes a .DB companion file on load and after every
	// mutation, for external inspection. Off by default since most
	// callers never open the mirror.
	SQLiteMirror bool
	// StrictLessGreater disables the bug-compatible restriction (spec.md
	// §9) that GetKeyLess/GetKeyLessOrEqual only consider records whose
	// offset is strictly greater than Position. GetKeyGreater and
	// GetKeyGreaterOrEqual keep that restriction either way. Named as an
	// opt-in to the non-default behavior so the Config zero value
	// preserves the original (bug-compatible) semantics.
	StrictLessGreater bool
}

func (c Config) logger() *zap.SugaredLogger {
	if c.Logger != nil {
		return c.Logger
	}
	return zap.NewNop().Sugar()
}

// File is one open Btrieve ISAM file: metadata, key definitions, the
// in-memory record set kept sorted by offset, and the cursor state a
// guest module drives through Step/Get/mutation operations. Not safe for
// concurrent use; spec.md §5 gives each guest execution context its own
// processor instance even against the same on-disk file.
type File struct {
	cfg Config
	log *zap.SugaredLogger

	meta    Metadata
	keys    []KeyDefinition
	records []Record // kept sorted by Offset

	Position      uint32
	hasPosition   bool
	previousQuery *Query
}

func (c Config) datPath() string  { return filepath.Join(c.Path, c.FileName+".DAT") }
func (c Config) emuPath() string  { return filepath.Join(c.Path, c.FileName+".EMU") }
func (c Config) virPath() string  { return filepath.Join(c.Path, c.FileName+".VIR") }
func (c Config) dbPath() string   { return filepath.Join(c.Path, c.FileName+".DB") }

// New opens (or bootstraps) the file described by cfg, preferring the
// structured .EMU mirror when present, falling back to the legacy .DAT
// parser, and recovering from a sibling .VIR virgin-file copy when even
// the .DAT is missing, per spec.md §4.3 step 1-2 and §9's MalformedFile
// recovery path.
func New(cfg Config) (*File, error) {
	f := &File{cfg: cfg, log: cfg.logger()}

	if _, err := os.Stat(cfg.emuPath()); err == nil {
		meta, keys, records, err := loadMirror(cfg.emuPath())
		if err != nil {
			return nil, err
		}
		f.meta, f.keys, f.records = meta, keys, records
	} else {
		raw, err := f.readOrRecoverDAT()
		if err != nil {
			return nil, err
		}
		meta, keys, records, err := parseDAT(raw)
		if err != nil {
			return nil, err
		}
		f.meta, f.keys, f.records = meta, keys, records
		if err := saveMirror(cfg.emuPath(), f.meta, f.keys, f.records); err != nil {
			f.log.Warnw("failed to write .EMU mirror", "error", err, "file", cfg.FileName)
		}
	}

	sort.Slice(f.records, func(i, j int) bool { return f.records[i].Offset < f.records[j].Offset })
	if len(f.records) > 0 {
		f.Position = f.records[0].Offset
		f.hasPosition = true
	}

	if cfg.SQLiteMirror {
		if err := writeSQLiteMirror(cfg.dbPath(), f.meta, f.keys, f.records); err != nil {
			f.log.Warnw("failed to write SQLite mirror", "error", err, "file", cfg.FileName)
		}
	}

	return f, nil
}

// readOrRecoverDAT reads the .DAT file, copying a sibling .VIR virgin
// file over it first when the .DAT itself is missing.
func (f *File) readOrRecoverDAT() ([]byte, error) {
	raw, err := os.ReadFile(f.cfg.datPath())
	if err == nil {
		return raw, nil
	}
	if !os.IsNotExist(err) {
		return nil, err
	}

	virRaw, virErr := os.ReadFile(f.cfg.virPath())
	if virErr != nil {
		return nil, newError(CodeMalformedFile, "neither .DAT nor .VIR present").
			WithDetail("file", f.cfg.FileName)
	}
	f.log.Warnw("recovering .DAT from virgin .VIR copy", "file", f.cfg.FileName)
	if err := os.WriteFile(f.cfg.datPath(), virRaw, 0o644); err != nil {
		return nil, err
	}
	return virRaw, nil
}

func (f *File) flushMirror() {
	if err := saveMirror(f.cfg.emuPath(), f.meta, f.keys, f.records); err != nil {
		f.log.Warnw("failed to flush .EMU mirror", "error", err, "file", f.cfg.FileName)
	}
	if f.cfg.SQLiteMirror {
		if err := writeSQLiteMirror(f.cfg.dbPath(), f.meta, f.keys, f.records); err != nil {
			f.log.Warnw("failed to flush SQLite mirror", "error", err, "file", f.cfg.FileName)
		}
	}
}

// Metadata returns the file's header metadata.
func (f *File) Metadata() Metadata { return f.meta }

// Keys returns the file's key definitions.
func (f *File) Keys() []KeyDefinition { return f.keys }

// RecordCount returns the number of live records.
func (f *File) RecordCount() int { return len(f.records) }

func (f *File) indexOf(offset uint32) (int, bool) {
	i := sort.Search(len(f.records), func(i int) bool { return f.records[i].Offset >= offset })
	if i < len(f.records) && f.records[i].Offset == offset {
		return i, true
	}
	return i, false
}

func (f *File) keyByNumber(number int) (KeyDefinition, bool) {
	for _, k := range f.keys {
		if k.Number == number {
			return k, true
		}
	}
	return KeyDefinition{}, false
}

// WriteRecoveryDump writes the debug recovery format: for each record,
// ASCII "<len>," then raw bytes then CRLF, file terminated with 0x1A, per
// spec.md §6.
func (f *File) WriteRecoveryDump(w io.Writer) error {
	for _, rec := range f.records {
		if _, err := io.WriteString(w, strconv.Itoa(len(rec.Data))+","); err != nil {
			return err
		}
		if _, err := w.Write(rec.Data); err != nil {
			return err
		}
		if _, err := w.Write([]byte{0x0D, 0x0A}); err != nil {
			return err
		}
	}
	_, err := w.Write([]byte{0x1A})
	return err
}
