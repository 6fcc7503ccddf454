package rowset

import (
	"os"

	"github.com/coldb/coldb/pkg/array"
	"github.com/coldb/coldb/pkg/catalog"
	"github.com/coldb/coldb/pkg/storage/column"
	"github.com/coldb/coldb/pkg/storage/errs"
	"path/filepath"
)

// Writer accumulates DataChunks into one column builder per table column
// and, on FinishAndFlush, writes the rowset's .col/.idx files plus its
// catalog snapshot (spec.md §4.4).
type Writer struct {
	dir      string
	table    *catalog.TableCatalog
	opts     column.BuilderOptions
	builders []column.Builder
	rowCount int
}

func NewWriter(dir string, table *catalog.TableCatalog, opts column.BuilderOptions) *Writer {
	builders := make([]column.Builder, len(table.Columns))
	for i, c := range table.Columns {
		builders[i] = column.NewBuilder(c, opts)
	}
	return &Writer{dir: dir, table: table, opts: opts, builders: builders}
}

// Append feeds one chunk's arrays column-wise into the per-column builders.
func (w *Writer) Append(chunk *array.Chunk) error {
	if len(chunk.Columns) != len(w.builders) {
		return &errs.LengthMismatchError{Expected: len(w.builders), Got: len(chunk.Columns)}
	}
	for i, arr := range chunk.Columns {
		if err := w.builders[i].Append(arr); err != nil {
			return err
		}
	}
	w.rowCount += chunk.Cardinality
	return nil
}

// FinishAndFlush writes every column's block file and index file, the
// rowset's catalog snapshot, then fsyncs the directory. Empty rowsets panic
// — callers must not commit empty transactions (spec.md §4.4).
func (w *Writer) FinishAndFlush() error {
	if w.rowCount == 0 {
		panic("rowset: cannot flush an empty rowset")
	}
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return &errs.IoError{Op: "mkdir", Path: w.dir, Err: err}
	}
	for i, c := range w.table.Columns {
		entries, data := w.builders[i].Finish()
		idxBytes := column.EncodeIndex(entries, w.opts.ChecksumType)
		if err := writeFileFsync(filepath.Join(w.dir, colFileName(c.ID)), data); err != nil {
			return err
		}
		if err := writeFileFsync(filepath.Join(w.dir, idxFileName(c.ID)), idxBytes); err != nil {
			return err
		}
	}
	if err := writeFileFsync(filepath.Join(w.dir, catalogFileName), encodeCatalog(w.table.Columns)); err != nil {
		return err
	}
	return fsyncDir(w.dir)
}

// RowCount reports rows appended so far, used by callers deciding whether a
// pending transaction has anything to flush.
func (w *Writer) RowCount() int { return w.rowCount }
