package txn

import (
	"os"
	"sync"

	"github.com/coldb/coldb/pkg/array"
	"github.com/coldb/coldb/pkg/storage/column"
	"github.com/coldb/coldb/pkg/storage/deletevector"
	"github.com/coldb/coldb/pkg/storage/errs"
	"github.com/coldb/coldb/pkg/storage/memtable"
	"github.com/coldb/coldb/pkg/storage/rowset"
	"github.com/coldb/coldb/pkg/storage/version"
)

// State is a transaction's position in spec.md §4.11's state machine:
// Open -> (Append|Delete)* -> Committing -> Committed, or Open -> Aborted.
type State int

const (
	StateOpen State = iota
	StateCommitting
	StateCommitted
	StateAborted
)

// Transaction is a single read or read-write session against one table,
// pinned to the version snapshot it was opened with for its entire
// lifetime (spec.md §4.9, §4.11).
type Transaction struct {
	table    *Table
	version  *version.Version
	writable bool

	mu      sync.Mutex
	state   State
	mt      memtable.Memtable
	deletes map[uint32]map[uint32]struct{} // rowsetID -> rowIDs
}

func (tx *Transaction) State() State { return tx.state }

// Append buffers chunk into the transaction's memtable. Nothing reaches
// disk until Commit.
func (tx *Transaction) Append(chunk *array.Chunk) error {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	if !tx.writable {
		return &errs.AbortError{Reason: "append on a read-only transaction"}
	}
	if tx.state != StateOpen {
		return &errs.AbortError{Reason: "append on a transaction that is not open"}
	}
	if tx.mt == nil {
		tx.mt = memtable.New(tx.table.catalog)
	}
	return tx.mt.AppendChunk(chunk)
}

// Delete marks a row handle (as produced by a RowHandler column ref) for
// removal. Deletes accumulate per source rowset and are materialized as
// delete vectors at Commit.
func (tx *Transaction) Delete(rowHandle int64) error {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	if !tx.writable {
		return &errs.AbortError{Reason: "delete on a read-only transaction"}
	}
	if tx.state != StateOpen {
		return &errs.AbortError{Reason: "delete on a transaction that is not open"}
	}
	rowsetID, rowID := rowset.UnpackRowHandle(rowHandle)
	set, ok := tx.deletes[rowsetID]
	if !ok {
		set = map[uint32]struct{}{}
		tx.deletes[rowsetID] = set
	}
	set[rowID] = struct{}{}
	return nil
}

// Scan opens a TxnIterator over every rowset live in the transaction's
// pinned snapshot, merged by the table's primary sort column when one
// exists and concatenated otherwise (spec.md §4.6, §4.11).
func (tx *Transaction) Scan(refs []rowset.ColumnRef) (*TxnIterator, error) {
	ts, ok := tx.version.Snapshot.Tables[tx.table.tableID]
	if !ok {
		return &TxnIterator{src: rowset.NewConcatIterator(nil)}, nil
	}

	sources := make([]rowset.ChunkSource, 0, len(ts.RowsetIDs))
	for _, id := range ts.RowsetIDs {
		rs, ok := tx.table.storage.mgr.Rowset(tx.table.tableID, id)
		if !ok {
			continue
		}
		var dvs []*deletevector.DV
		for _, dvID := range ts.RowsetDVs[id] {
			if dv, ok := tx.table.storage.mgr.DV(tx.table.tableID, dvID); ok {
				dvs = append(dvs, dv)
			}
		}
		it, err := rowset.NewIterator(rs, refs, dvs, 0)
		if err != nil {
			return nil, err
		}
		sources = append(sources, it)
	}

	var src rowset.ChunkSource
	if sortIdx, ok := tx.table.catalog.PrimarySortColumn(); ok {
		src = rowset.NewMergeIterator(sources, sortIdx)
	} else {
		src = rowset.NewConcatIterator(sources)
	}
	return &TxnIterator{src: src}, nil
}

// Commit flushes any buffered memtable and delete vectors through the
// version manager as one epoch, then releases the pinned snapshot. A
// read-only transaction simply releases its pin.
func (tx *Transaction) Commit() error {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	if tx.state != StateOpen {
		return &errs.AbortError{Reason: "commit on a transaction that is not open"}
	}
	if !tx.writable {
		tx.state = StateCommitted
		tx.version.Release()
		return nil
	}
	tx.state = StateCommitting

	var ops []version.EpochOp
	cfg := tx.table.storage.cfg

	if tx.mt != nil && tx.mt.Len() > 0 {
		chunk := tx.mt.Flush()
		newID := tx.table.storage.mgr.NextRowsetID(tx.table.tableID)
		dir := rowset.Dir(cfg.Path, tx.table.tableID, newID)
		w := rowset.NewWriter(dir, tx.table.catalog, column.DefaultBuilderOptions(false))
		if err := w.Append(chunk); err != nil {
			tx.state = StateAborted
			return err
		}
		if err := w.FinishAndFlush(); err != nil {
			tx.state = StateAborted
			return err
		}
		rs, err := rowset.Open(cfg.Path, tx.table.tableID, newID, tx.table.storage.bc, cfg.IOBackend)
		if err != nil {
			tx.state = StateAborted
			return err
		}
		ops = append(ops, version.EpochOp{
			Kind: version.OpAddRowSet, TableID: tx.table.tableID, RowsetID: newID, Rowset: rs,
		})
	}

	for rowsetID, rows := range tx.deletes {
		ids := make([]uint32, 0, len(rows))
		for id := range rows {
			ids = append(ids, id)
		}
		dv := deletevector.New(ids)
		dvID := tx.table.storage.mgr.NextDVID(tx.table.tableID)
		path := version.DVPath(cfg.Path, tx.table.tableID, dvID)
		if err := os.WriteFile(path, dv.Encode(), 0o644); err != nil {
			tx.state = StateAborted
			return &errs.IoError{Op: "write", Path: path, Err: err}
		}
		ops = append(ops, version.EpochOp{
			Kind: version.OpAddDV, TableID: tx.table.tableID, RowsetID: rowsetID, DVID: dvID, DV: dv,
		})
	}

	if len(ops) == 0 {
		tx.state = StateCommitted
		tx.version.Release()
		return nil
	}
	if _, err := tx.table.storage.mgr.CommitChanges(ops); err != nil {
		tx.state = StateAborted
		return err
	}
	tx.state = StateCommitted
	tx.version.Release()
	return nil
}

// Abort discards any buffered memtable contents and pending deletes
// without ever touching the manifest or writing a rowset directory, and
// releases the pinned snapshot.
func (tx *Transaction) Abort() error {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	if tx.state != StateOpen {
		return nil
	}
	tx.state = StateAborted
	tx.version.Release()
	return nil
}

// TxnIterator adapts a rowset.ChunkSource (DV-aware) into plain
// array.Chunk batches for callers outside the storage engine.
type TxnIterator struct {
	src rowset.ChunkSource
}

func (it *TxnIterator) NextBatch(expected int) (*array.Chunk, bool) {
	chunk, ok := it.src.NextBatch(expected)
	if !ok {
		return nil, false
	}
	return chunk.ToArrayChunk(), true
}
