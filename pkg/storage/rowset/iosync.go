package rowset

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/coldb/coldb/pkg/storage/errs"
)

// writeFileFsync writes data to a fresh file at path, flushing and fsyncing
// before returning, matching spec.md §4.4's "buffered, flushed, fsynced".
func writeFileFsync(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return &errs.IoError{Op: "create", Path: path, Err: err}
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return &errs.IoError{Op: "write", Path: path, Err: err}
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return &errs.IoError{Op: "fsync", Path: path, Err: err}
	}
	return f.Close()
}

// fsyncDir fsyncs a directory entry after files within it change, so a
// crash can't observe the new files without the directory entry for them.
func fsyncDir(dir string) error {
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

// Dir returns the on-disk directory for one rowset, spec.md §6's
// "<table_id>_<rowset_id>/" naming.
func Dir(root string, tableID, rowsetID uint32) string {
	return filepath.Join(root, dirName(tableID, rowsetID))
}

func dirName(tableID, rowsetID uint32) string {
	return itoa(tableID) + "_" + itoa(rowsetID)
}

func itoa(v uint32) string { return strconv.FormatUint(uint64(v), 10) }

func colFileName(columnID uint32) string { return itoa(columnID) + ".col" }
func idxFileName(columnID uint32) string { return itoa(columnID) + ".idx" }
