package cache

import (
	"io"
	"os"
	"sync"

	"github.com/coldb/coldb/pkg/storage/config"
	"github.com/coldb/coldb/pkg/storage/errs"
)

// FileHandle wraps one open `.col` file, satisfying reads per the
// configured IOBackend (spec.md §4.3): IOBackendNormalRead serializes
// Seek+Read under a per-file mutex; IOBackendPositionedRead issues
// concurrent os.File.ReadAt calls needing no cursor lock.
type FileHandle struct {
	f       *os.File
	backend config.IOBackend
	mu      sync.Mutex
}

func OpenFileHandle(path string, backend config.IOBackend) (*FileHandle, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &errs.IoError{Op: "open", Path: path, Err: err}
	}
	return &FileHandle{f: f, backend: backend}, nil
}

// ReadAt reads exactly length bytes starting at off, per the index
// entry's (offset, length) (spec.md §4.3 "reads are length-exact").
func (fh *FileHandle) ReadAt(off int64, length int) ([]byte, error) {
	buf := make([]byte, length)
	var err error
	switch fh.backend {
	case config.IOBackendPositionedRead:
		_, err = fh.f.ReadAt(buf, off)
	default:
		fh.mu.Lock()
		if _, serr := fh.f.Seek(off, io.SeekStart); serr != nil {
			fh.mu.Unlock()
			return nil, &errs.IoError{Op: "seek", Path: fh.f.Name(), Err: serr}
		}
		_, err = io.ReadFull(fh.f, buf)
		fh.mu.Unlock()
	}
	if err != nil {
		return nil, &errs.IoError{Op: "read", Path: fh.f.Name(), Err: err}
	}
	return buf, nil
}

func (fh *FileHandle) Close() error { return fh.f.Close() }
