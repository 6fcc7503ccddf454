// Package manifest implements spec.md §4.8: an append-only log of
// length-delimited, tagged entries recording every table and rowset
// lifecycle change, replayed on recovery to rebuild the in-memory catalog
// and version snapshot.
package manifest

import (
	"encoding/binary"
	"os"
	"sync"

	"github.com/coldb/coldb/pkg/catalog"
	"github.com/coldb/coldb/pkg/storage/errs"
)

type Tag uint8

const (
	TagCreateTable Tag = iota
	TagDropTable
	TagAddRowSet
	TagDeleteRowSet
	TagAddDV
	TagDeleteDV
)

// Entry is one manifest log record. Only the fields relevant to Tag are
// populated; the rest are zero.
type Entry struct {
	Tag Tag

	TableID   uint32
	TableName string                 // CreateTable
	Columns   []catalog.ColumnCatalog // CreateTable

	RowsetID uint32 // AddRowSet, DeleteRowSet; target rowset for AddDV, DeleteDV
	DVID     uint32 // AddDV, DeleteDV
}

func CreateTable(tableID uint32, name string, cols []catalog.ColumnCatalog) Entry {
	return Entry{Tag: TagCreateTable, TableID: tableID, TableName: name, Columns: cols}
}

func DropTable(tableID uint32) Entry { return Entry{Tag: TagDropTable, TableID: tableID} }

func AddRowSet(tableID, rowsetID uint32) Entry {
	return Entry{Tag: TagAddRowSet, TableID: tableID, RowsetID: rowsetID}
}

func DeleteRowSet(tableID, rowsetID uint32) Entry {
	return Entry{Tag: TagDeleteRowSet, TableID: tableID, RowsetID: rowsetID}
}

func AddDV(tableID, rowsetID, dvID uint32) Entry {
	return Entry{Tag: TagAddDV, TableID: tableID, RowsetID: rowsetID, DVID: dvID}
}

func DeleteDV(tableID, rowsetID, dvID uint32) Entry {
	return Entry{Tag: TagDeleteDV, TableID: tableID, RowsetID: rowsetID, DVID: dvID}
}

func putU32(buf []byte, v uint32) []byte {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	return append(buf, tmp[:]...)
}

func encodeEntry(e Entry) []byte {
	rec := []byte{byte(e.Tag)}
	rec = putU32(rec, e.TableID)
	switch e.Tag {
	case TagCreateTable:
		rec = putU32(rec, uint32(len(e.TableName)))
		rec = append(rec, e.TableName...)
		rec = append(rec, catalog.EncodeColumns(e.Columns)...)
	case TagDropTable:
	case TagAddRowSet, TagDeleteRowSet:
		rec = putU32(rec, e.RowsetID)
	case TagAddDV, TagDeleteDV:
		rec = putU32(rec, e.RowsetID)
		rec = putU32(rec, e.DVID)
	}

	var recLen [4]byte
	binary.LittleEndian.PutUint32(recLen[:], uint32(len(rec)))
	return append(recLen[:], rec...)
}

func decodeEntry(rec []byte) (Entry, error) {
	if len(rec) < 5 {
		return Entry{}, &errs.DecodeError{Reason: "truncated manifest entry"}
	}
	e := Entry{Tag: Tag(rec[0])}
	e.TableID = binary.LittleEndian.Uint32(rec[1:5])
	off := 5
	switch e.Tag {
	case TagCreateTable:
		if off+4 > len(rec) {
			return Entry{}, &errs.DecodeError{Reason: "truncated CreateTable entry"}
		}
		nameLen := int(binary.LittleEndian.Uint32(rec[off : off+4]))
		off += 4
		if off+nameLen > len(rec) {
			return Entry{}, &errs.DecodeError{Reason: "truncated CreateTable name"}
		}
		e.TableName = string(rec[off : off+nameLen])
		off += nameLen
		cols, err := catalog.DecodeColumns(rec[off:])
		if err != nil {
			return Entry{}, err
		}
		e.Columns = cols
	case TagDropTable:
	case TagAddRowSet, TagDeleteRowSet:
		if off+4 > len(rec) {
			return Entry{}, &errs.DecodeError{Reason: "truncated rowset manifest entry"}
		}
		e.RowsetID = binary.LittleEndian.Uint32(rec[off : off+4])
	case TagAddDV, TagDeleteDV:
		if off+8 > len(rec) {
			return Entry{}, &errs.DecodeError{Reason: "truncated dv manifest entry"}
		}
		e.RowsetID = binary.LittleEndian.Uint32(rec[off : off+4])
		e.DVID = binary.LittleEndian.Uint32(rec[off+4 : off+8])
	default:
		return Entry{}, &errs.DecodeError{Reason: "unknown manifest entry tag"}
	}
	return e, nil
}

// Manifest is the append-only log handle. append is serialized by mu so
// concurrent commits (spec.md §5: "commits on one table are serialized by
// a single manifest lock") produce a well-formed byte stream.
type Manifest struct {
	path string
	mu   sync.Mutex
	f    *os.File
}

func Open(path string) (*Manifest, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return nil, &errs.IoError{Op: "open", Path: path, Err: err}
	}
	return &Manifest{path: path, f: f}, nil
}

// Append serializes, writes, flushes and fsyncs entries before returning
// (spec.md §4.8).
func (m *Manifest) Append(entries []Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var buf []byte
	for _, e := range entries {
		buf = append(buf, encodeEntry(e)...)
	}
	if _, err := m.f.Write(buf); err != nil {
		return &errs.IoError{Op: "write", Path: m.path, Err: err}
	}
	if err := m.f.Sync(); err != nil {
		return &errs.IoError{Op: "fsync", Path: m.path, Err: err}
	}
	return nil
}

func (m *Manifest) Close() error { return m.f.Close() }

// Replay reads the manifest log at path (which need not exist yet) and
// returns every entry in order, for recovery.
func Replay(path string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, &errs.IoError{Op: "read", Path: path, Err: err}
	}
	var entries []Entry
	off := 0
	for off < len(data) {
		if off+4 > len(data) {
			return nil, &errs.DecodeError{Reason: "truncated manifest record length"}
		}
		recLen := int(binary.LittleEndian.Uint32(data[off : off+4]))
		off += 4
		if off+recLen > len(data) {
			return nil, &errs.DecodeError{Reason: "truncated manifest record"}
		}
		e, err := decodeEntry(data[off : off+recLen])
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
		off += recLen
	}
	return entries, nil
}

// Rewrite atomically replaces the manifest log with a compacted entry set:
// write MANIFEST.new, fsync, rename over MANIFEST, fsync the directory.
// Callers must ensure no transaction is outstanding (spec.md §4.8).
func Rewrite(dir, name string, entries []Entry) error {
	newPath := dir + string(os.PathSeparator) + name + ".new"
	finalPath := dir + string(os.PathSeparator) + name

	var buf []byte
	for _, e := range entries {
		buf = append(buf, encodeEntry(e)...)
	}
	f, err := os.OpenFile(newPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return &errs.IoError{Op: "create", Path: newPath, Err: err}
	}
	if _, err := f.Write(buf); err != nil {
		f.Close()
		return &errs.IoError{Op: "write", Path: newPath, Err: err}
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return &errs.IoError{Op: "fsync", Path: newPath, Err: err}
	}
	if err := f.Close(); err != nil {
		return &errs.IoError{Op: "close", Path: newPath, Err: err}
	}
	if err := os.Rename(newPath, finalPath); err != nil {
		return &errs.IoError{Op: "rename", Path: finalPath, Err: err}
	}
	d, err := os.Open(dir)
	if err != nil {
		return &errs.IoError{Op: "open", Path: dir, Err: err}
	}
	defer d.Close()
	if err := d.Sync(); err != nil {
		return &errs.IoError{Op: "fsync", Path: dir, Err: err}
	}
	return nil
}
