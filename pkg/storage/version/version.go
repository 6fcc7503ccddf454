// Package version implements spec.md §4.9: the epoch-based multi-version
// snapshot manager giving every transaction a consistent view of the
// table/rowset/DV object pools while compaction and vacuum run underneath.
package version

import (
	"log"
	"os"
	"strconv"
	"sync"

	"go.uber.org/atomic"

	"github.com/coldb/coldb/pkg/catalog"
	"github.com/coldb/coldb/pkg/storage/cache"
	"github.com/coldb/coldb/pkg/storage/config"
	"github.com/coldb/coldb/pkg/storage/deletevector"
	"github.com/coldb/coldb/pkg/storage/errs"
	"github.com/coldb/coldb/pkg/storage/manifest"
	"github.com/coldb/coldb/pkg/storage/rowset"
)

// DVPath is where a delete vector's persisted record stream lives,
// spec.md §6's "<table_id>_<dv_id>.dv" naming, directly under the storage
// root.
func DVPath(root string, tableID, dvID uint32) string {
	return root + string(os.PathSeparator) + strconv.FormatUint(uint64(tableID), 10) + "_" + strconv.FormatUint(uint64(dvID), 10) + ".dv"
}

type rowsetKey struct {
	TableID, RowsetID uint32
}

type dvKey struct {
	TableID, DVID uint32
}

// TableSnapshot is one table's view within a Snapshot: its catalog at
// creation time, its live rowset ids in id order, and which DV ids apply
// to each rowset.
type TableSnapshot struct {
	Catalog   *catalog.TableCatalog
	RowsetIDs []uint32
	RowsetDVs map[uint32][]uint32
}

func (t *TableSnapshot) clone() *TableSnapshot {
	out := &TableSnapshot{
		Catalog:   t.Catalog,
		RowsetIDs: append([]uint32(nil), t.RowsetIDs...),
		RowsetDVs: make(map[uint32][]uint32, len(t.RowsetDVs)),
	}
	for k, v := range t.RowsetDVs {
		out.RowsetDVs[k] = append([]uint32(nil), v...)
	}
	return out
}

// Snapshot is spec.md §4.9's `status[epoch]`: a full per-epoch view, kept
// whole rather than as deltas for simplicity (the spec explicitly allows
// an optimized implementation to use deltas instead).
type Snapshot struct {
	Tables map[uint32]*TableSnapshot
}

func emptySnapshot() *Snapshot { return &Snapshot{Tables: map[uint32]*TableSnapshot{}} }

func (s *Snapshot) clone() *Snapshot {
	out := emptySnapshot()
	for id, t := range s.Tables {
		out.Tables[id] = t.clone()
	}
	return out
}

func removeID(ids []uint32, target uint32) []uint32 {
	out := ids[:0:0]
	for _, id := range ids {
		if id != target {
			out = append(out, id)
		}
	}
	return out
}

// OpKind tags one EpochOp, mirroring manifest.Tag but carrying the live
// in-memory objects (*rowset.Rowset, *deletevector.DV) a commit registers.
type OpKind int

const (
	OpCreateTable OpKind = iota
	OpDropTable
	OpAddRowSet
	OpDeleteRowSet
	OpAddDV
	OpDeleteDV
)

type EpochOp struct {
	Kind OpKind

	TableID   uint32
	TableName string
	Columns   []catalog.ColumnCatalog

	RowsetID uint32
	Rowset   *rowset.Rowset

	DVID uint32
	DV   *deletevector.DV
}

// Version is a pinned snapshot handle. Callers must call Release exactly
// once when done scanning; Release is idempotent.
type Version struct {
	mgr      *Manager
	Epoch    uint64
	Snapshot *Snapshot
	once     sync.Once
}

func (v *Version) Release() {
	v.once.Do(func() { v.mgr.release(v.Epoch) })
}

// Manager is spec.md §4.9's version manager: one mutex guards the
// snapshot/pool maps. Pin and Release take it only to look up the epoch's
// counter; the per-epoch pin counts themselves are atomic and are changed
// outside the lock.
type Manager struct {
	mf  *manifest.Manifest
	dir string
	log *log.Logger

	mu              sync.Mutex
	epoch           atomic.Uint64
	status          map[uint64]*Snapshot
	refCnt          map[uint64]*atomic.Int64
	rowsets         map[rowsetKey]*rowset.Rowset
	dvs             map[dvKey]*deletevector.DV
	deletionToApply map[uint64][]rowsetKey

	nextRowsetID map[uint32]*atomic.Uint32
	nextDVID     map[uint32]*atomic.Uint32

	vacuumCh chan struct{}
}

func newManager(mf *manifest.Manifest, dir string, logger *log.Logger) *Manager {
	m := &Manager{
		mf:              mf,
		dir:             dir,
		log:             logger,
		status:          map[uint64]*Snapshot{0: emptySnapshot()},
		refCnt:          map[uint64]*atomic.Int64{0: atomic.NewInt64(0)},
		rowsets:         map[rowsetKey]*rowset.Rowset{},
		dvs:             map[dvKey]*deletevector.DV{},
		deletionToApply: map[uint64][]rowsetKey{},
		nextRowsetID:    map[uint32]*atomic.Uint32{},
		nextDVID:        map[uint32]*atomic.Uint32{},
		vacuumCh:        make(chan struct{}, 1),
	}
	return m
}

// bumpCounter ensures the per-table counter for a just-seen id is at least
// id+1, so ids allocated after recovery never collide with replayed ones.
func bumpCounter(counters map[uint32]*atomic.Uint32, tableID, id uint32) {
	c, ok := counters[tableID]
	if !ok {
		c = atomic.NewUint32(0)
		counters[tableID] = c
	}
	for {
		cur := c.Load()
		if id < cur {
			return
		}
		if c.CAS(cur, id+1) {
			return
		}
	}
}

// NextRowsetID allocates the next unused rowset id for a table, for the
// compactor and transaction commit paths that create new rowsets.
func (m *Manager) NextRowsetID(tableID uint32) uint32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.nextRowsetID[tableID]
	if !ok {
		c = atomic.NewUint32(0)
		m.nextRowsetID[tableID] = c
	}
	return c.Inc() - 1
}

// NextDVID allocates the next unused delete-vector id for a table.
func (m *Manager) NextDVID(tableID uint32) uint32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.nextDVID[tableID]
	if !ok {
		c = atomic.NewUint32(0)
		m.nextDVID[tableID] = c
	}
	return c.Inc() - 1
}

// Recover replays the manifest log to rebuild epoch 0's snapshot and
// reopen every live rowset (spec.md §4.8 "on recovery, replay in order").
func Recover(manifestPath, rowsetRoot string, bc *cache.BlockCache, ioBackend config.IOBackend, logger *log.Logger) (*Manager, error) {
	mf, err := manifest.Open(manifestPath)
	if err != nil {
		return nil, err
	}
	m := newManager(mf, rowsetRoot, logger)
	entries, err := manifest.Replay(manifestPath)
	if err != nil {
		return nil, err
	}
	snap := m.status[0]
	for _, e := range entries {
		switch e.Tag {
		case manifest.TagCreateTable:
			snap.Tables[e.TableID] = &TableSnapshot{
				Catalog:   &catalog.TableCatalog{ID: e.TableID, Name: e.TableName, Columns: e.Columns},
				RowsetDVs: map[uint32][]uint32{},
			}
		case manifest.TagDropTable:
			delete(snap.Tables, e.TableID)
		case manifest.TagAddRowSet:
			ts := snap.Tables[e.TableID]
			ts.RowsetIDs = append(ts.RowsetIDs, e.RowsetID)
			rs, err := rowset.Open(rowsetRoot, e.TableID, e.RowsetID, bc, ioBackend)
			if err != nil {
				return nil, err
			}
			m.rowsets[rowsetKey{e.TableID, e.RowsetID}] = rs
			bumpCounter(m.nextRowsetID, e.TableID, e.RowsetID)
		case manifest.TagDeleteRowSet:
			ts := snap.Tables[e.TableID]
			ts.RowsetIDs = removeID(ts.RowsetIDs, e.RowsetID)
			key := rowsetKey{e.TableID, e.RowsetID}
			if rs, ok := m.rowsets[key]; ok {
				rs.Close()
				delete(m.rowsets, key)
			}
		case manifest.TagAddDV:
			ts := snap.Tables[e.TableID]
			ts.RowsetDVs[e.RowsetID] = append(ts.RowsetDVs[e.RowsetID], e.DVID)
			path := DVPath(rowsetRoot, e.TableID, e.DVID)
			data, rerr := os.ReadFile(path)
			if rerr != nil {
				return nil, &errs.IoError{Op: "read", Path: path, Err: rerr}
			}
			dv, derr := deletevector.Decode(data)
			if derr != nil {
				return nil, derr
			}
			m.dvs[dvKey{e.TableID, e.DVID}] = dv
			bumpCounter(m.nextDVID, e.TableID, e.DVID)
		case manifest.TagDeleteDV:
			ts := snap.Tables[e.TableID]
			ts.RowsetDVs[e.RowsetID] = removeID(ts.RowsetDVs[e.RowsetID], e.DVID)
			delete(m.dvs, dvKey{e.TableID, e.DVID})
		}
	}
	return m, nil
}

// Pin atomically reads the current epoch, clones the snapshot handle, and
// increments its ref count.
func (m *Manager) Pin() *Version {
	m.mu.Lock()
	e := m.epoch.Load()
	snap := m.status[e]
	cnt := m.refCnt[e]
	m.mu.Unlock()
	cnt.Inc()
	return &Version{mgr: m, Epoch: e, Snapshot: snap}
}

func (m *Manager) release(epoch uint64) {
	m.mu.Lock()
	cnt := m.refCnt[epoch]
	m.mu.Unlock()
	if cnt == nil {
		return
	}
	if cnt.Dec() == 0 && epoch != m.epoch.Load() {
		select {
		case m.vacuumCh <- struct{}{}:
		default:
		}
	}
}

// VacuumSignal fires whenever a pinned epoch older than current drops to
// zero refs, a hint that DoVacuum has work to do.
func (m *Manager) VacuumSignal() <-chan struct{} { return m.vacuumCh }

// Rowset looks up a pooled rowset by (table, id).
func (m *Manager) Rowset(tableID, rowsetID uint32) (*rowset.Rowset, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rs, ok := m.rowsets[rowsetKey{tableID, rowsetID}]
	return rs, ok
}

// DV looks up a pooled delete vector by (table, id).
func (m *Manager) DV(tableID, dvID uint32) (*deletevector.DV, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	dv, ok := m.dvs[dvKey{tableID, dvID}]
	return dv, ok
}

// CommitChanges applies ops atomically: clone the latest snapshot, apply
// every op against the clone and a pending set of pool registrations, then
// persist the manifest entries in one append. The object pools and
// published epoch only change after the manifest append succeeds (spec.md
// §4.9: "if the manifest append fails, the in-memory state is rolled
// back").
func (m *Manager) CommitChanges(ops []EpochOp) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur := m.epoch.Load()
	next := m.status[cur].clone()

	var manifestEntries []manifest.Entry
	var deletions []rowsetKey
	pendingRowsets := map[rowsetKey]*rowset.Rowset{}
	pendingDVs := map[dvKey]*deletevector.DV{}

	for _, op := range ops {
		switch op.Kind {
		case OpCreateTable:
			next.Tables[op.TableID] = &TableSnapshot{
				Catalog:   &catalog.TableCatalog{ID: op.TableID, Name: op.TableName, Columns: op.Columns},
				RowsetDVs: map[uint32][]uint32{},
			}
			manifestEntries = append(manifestEntries, manifest.CreateTable(op.TableID, op.TableName, op.Columns))
		case OpDropTable:
			delete(next.Tables, op.TableID)
			manifestEntries = append(manifestEntries, manifest.DropTable(op.TableID))
		case OpAddRowSet:
			ts := next.Tables[op.TableID]
			ts.RowsetIDs = append(ts.RowsetIDs, op.RowsetID)
			pendingRowsets[rowsetKey{op.TableID, op.RowsetID}] = op.Rowset
			manifestEntries = append(manifestEntries, manifest.AddRowSet(op.TableID, op.RowsetID))
		case OpDeleteRowSet:
			ts := next.Tables[op.TableID]
			ts.RowsetIDs = removeID(ts.RowsetIDs, op.RowsetID)
			deletions = append(deletions, rowsetKey{op.TableID, op.RowsetID})
			manifestEntries = append(manifestEntries, manifest.DeleteRowSet(op.TableID, op.RowsetID))
		case OpAddDV:
			ts := next.Tables[op.TableID]
			ts.RowsetDVs[op.RowsetID] = append(ts.RowsetDVs[op.RowsetID], op.DVID)
			pendingDVs[dvKey{op.TableID, op.DVID}] = op.DV
			manifestEntries = append(manifestEntries, manifest.AddDV(op.TableID, op.RowsetID, op.DVID))
		case OpDeleteDV:
			ts := next.Tables[op.TableID]
			ts.RowsetDVs[op.RowsetID] = removeID(ts.RowsetDVs[op.RowsetID], op.DVID)
			manifestEntries = append(manifestEntries, manifest.DeleteDV(op.TableID, op.RowsetID, op.DVID))
		}
	}

	if err := m.mf.Append(manifestEntries); err != nil {
		return 0, err
	}

	for k, v := range pendingRowsets {
		m.rowsets[k] = v
	}
	for k, v := range pendingDVs {
		m.dvs[k] = v
	}
	newEpoch := cur + 1
	m.status[newEpoch] = next
	m.refCnt[newEpoch] = atomic.NewInt64(0)
	if len(deletions) > 0 {
		m.deletionToApply[newEpoch] = deletions
	}
	m.epoch.Store(newEpoch)
	return newEpoch, nil
}

// DoVacuum physically removes rowsets deleted at or before the oldest
// still-pinned epoch (spec.md §4.9).
func (m *Manager) DoVacuum() error {
	m.mu.Lock()
	minPinned := m.epoch.Load()
	for e, cnt := range m.refCnt {
		if cnt.Load() > 0 && e < minPinned {
			minPinned = e
		}
	}
	var toRemove []rowsetKey
	seen := make(map[rowsetKey]struct{})
	for e, keys := range m.deletionToApply {
		if e > minPinned {
			continue
		}
		for _, k := range keys {
			if _, dup := seen[k]; dup {
				if m.log != nil {
					m.log.Printf("vacuum: duplicated deletion of table %d rowset %d, skipping", k.TableID, k.RowsetID)
				}
				continue
			}
			seen[k] = struct{}{}
			toRemove = append(toRemove, k)
		}
		delete(m.deletionToApply, e)
	}
	m.mu.Unlock()

	for _, k := range toRemove {
		m.mu.Lock()
		rs, ok := m.rowsets[k]
		if ok {
			delete(m.rowsets, k)
		}
		m.mu.Unlock()
		if !ok {
			if m.log != nil {
				m.log.Printf("vacuum: duplicated deletion of table %d rowset %d, already removed", k.TableID, k.RowsetID)
			}
			continue
		}
		rs.Close()
		if err := os.RemoveAll(rowset.Dir(m.dir, k.TableID, k.RowsetID)); err != nil {
			return err
		}
	}
	return nil
}
