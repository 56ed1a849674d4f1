package btrieve

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite" // pure-Go driver, registers as "sqlite"
)

// writeSQLiteMirror creates (overwriting) a .DB companion file for
// external inspection tooling: metadata_t, keys_t, and a data_t table
// with one key_N column per defined key, per spec.md §6. This mirror is
// write-only from this package's perspective; Btrieve operations never
// read it back.
func writeSQLiteMirror(path string, meta Metadata, keys []KeyDefinition, records []Record) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return err
	}
	defer db.Close()

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS metadata_t (
		record_length INTEGER,
		physical_record_length INTEGER,
		page_length INTEGER
	)`); err != nil {
		return err
	}
	if _, err := db.Exec(`DELETE FROM metadata_t`); err != nil {
		return err
	}
	if _, err := db.Exec(`INSERT INTO metadata_t (record_length, physical_record_length, page_length) VALUES (?, ?, ?)`,
		meta.RecordLength, meta.PhysicalRecordLength, meta.PageLength); err != nil {
		return err
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS keys_t (
		id INTEGER,
		attributes INTEGER,
		data_type INTEGER,
		offset INTEGER,
		length INTEGER
	)`); err != nil {
		return err
	}
	if _, err := db.Exec(`DELETE FROM keys_t`); err != nil {
		return err
	}
	for _, k := range keys {
		for _, seg := range k.Segments {
			if _, err := db.Exec(`INSERT INTO keys_t (id, attributes, data_type, offset, length) VALUES (?, ?, ?, ?, ?)`,
				k.Number, seg.Attributes, seg.DataType, seg.Offset, seg.Length); err != nil {
				return err
			}
		}
	}

	dataCols := make([]string, len(keys))
	for i := range keys {
		dataCols[i] = fmt.Sprintf("key_%d BLOB", i)
	}
	createData := "CREATE TABLE IF NOT EXISTS data_t (id INTEGER, data BLOB"
	for _, col := range dataCols {
		createData += ", " + col
	}
	createData += ")"
	if _, err := db.Exec(createData); err != nil {
		return err
	}
	if _, err := db.Exec(`DELETE FROM data_t`); err != nil {
		return err
	}

	placeholders := "?, ?"
	cols := "id, data"
	for i := range keys {
		cols += fmt.Sprintf(", key_%d", i)
		placeholders += ", ?"
	}
	insertStmt := fmt.Sprintf("INSERT INTO data_t (%s) VALUES (%s)", cols, placeholders)

	for _, rec := range records {
		args := make([]any, 0, 2+len(keys))
		args = append(args, rec.Offset, rec.Data)
		for _, k := range keys {
			args = append(args, extractKeySlice(rec.Data, k))
		}
		if _, err := db.Exec(insertStmt, args...); err != nil {
			return err
		}
	}
	return nil
}
