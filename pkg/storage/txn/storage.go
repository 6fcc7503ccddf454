// Package txn implements spec.md §4.11: the Storage/Table/Transaction
// facade external callers drive — the only package outside this module
// meant to be imported directly.
package txn

import (
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/coldb/coldb/pkg/catalog"
	"github.com/coldb/coldb/pkg/storage/cache"
	"github.com/coldb/coldb/pkg/storage/config"
	"github.com/coldb/coldb/pkg/storage/errs"
	"github.com/coldb/coldb/pkg/storage/version"
)

const manifestFileName = "MANIFEST"

// Storage is the top-level handle for one on-disk engine instance: it
// owns the version manager, the block cache, and every table's catalog.
type Storage struct {
	cfg config.StorageConfig
	bc  *cache.BlockCache
	mgr *version.Manager
	Log *log.Logger

	mu     sync.Mutex
	tables map[uint32]*Table
}

// Open recovers (or creates, if empty) the engine at cfg.Path. The stderr
// logger it creates is stored in the Log field and handed to the version
// manager for vacuum diagnostics; the manager keeps that logger, so
// overwriting Log afterwards does not change where vacuum messages go.
func Open(cfg config.StorageConfig) (*Storage, error) {
	bc, err := cache.NewBlockCache(cfg.Cache)
	if err != nil {
		return nil, err
	}
	logger := log.New(os.Stderr, "coldb: ", log.LstdFlags)
	mgr, err := version.Recover(filepath.Join(cfg.Path, manifestFileName), cfg.Path, bc, cfg.IOBackend, logger)
	if err != nil {
		return nil, err
	}
	return &Storage{cfg: cfg, bc: bc, mgr: mgr, Log: logger, tables: map[uint32]*Table{}}, nil
}

// Manager exposes the version manager for the compactor to drive.
func (s *Storage) Manager() *version.Manager { return s.mgr }

// Cache exposes the block cache, for wiring the same cache into the
// compactor's newly opened rowsets.
func (s *Storage) Cache() *cache.BlockCache { return s.bc }

// Path is the storage root, for wiring the compactor and any other
// out-of-process tooling that needs it.
func (s *Storage) Path() string { return s.cfg.Path }

// Config returns the storage configuration Storage was opened with.
func (s *Storage) Config() config.StorageConfig { return s.cfg }

// CreateTable registers a new table's schema via the manifest, the only
// way a table comes into existence (spec.md §4.8, §4.11).
func (s *Storage) CreateTable(tableID uint32, name string, cols []catalog.ColumnCatalog) error {
	_, err := s.mgr.CommitChanges([]version.EpochOp{{
		Kind: version.OpCreateTable, TableID: tableID, TableName: name, Columns: cols,
	}})
	return err
}

// DropTable removes a table's schema and every rowset it owns from the
// live snapshot; physical cleanup happens through the normal vacuum path.
func (s *Storage) DropTable(tableID uint32) error {
	v := s.mgr.Pin()
	ts, ok := v.Snapshot.Tables[tableID]
	var rowsetIDs []uint32
	if ok {
		rowsetIDs = append(rowsetIDs, ts.RowsetIDs...)
	}
	v.Release()

	// Rowset deletions go first: they update the table's snapshot entry,
	// which OpDropTable removes.
	var ops []version.EpochOp
	for _, id := range rowsetIDs {
		ops = append(ops, version.EpochOp{Kind: version.OpDeleteRowSet, TableID: tableID, RowsetID: id})
	}
	ops = append(ops, version.EpochOp{Kind: version.OpDropTable, TableID: tableID})
	_, err := s.mgr.CommitChanges(ops)
	if err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.tables, tableID)
	s.mu.Unlock()
	return nil
}

// GetTable returns a handle for an existing table, caching it so repeated
// lookups don't re-pin a snapshot just to read the catalog.
func (s *Storage) GetTable(tableID uint32) (*Table, error) {
	s.mu.Lock()
	if t, ok := s.tables[tableID]; ok {
		s.mu.Unlock()
		return t, nil
	}
	s.mu.Unlock()

	v := s.mgr.Pin()
	ts, ok := v.Snapshot.Tables[tableID]
	v.Release()
	if !ok {
		return nil, &errs.TableNotFoundError{TableID: tableID}
	}

	t := &Table{storage: s, tableID: tableID, catalog: ts.Catalog}
	s.mu.Lock()
	s.tables[tableID] = t
	s.mu.Unlock()
	return t, nil
}
