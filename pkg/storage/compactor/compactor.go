// Package compactor implements spec.md §4.10: a background loop that packs
// small adjacent rowsets of each table into fewer, larger ones, committing
// the replacement through the version manager exactly like any other
// transaction.
package compactor

import (
	"context"
	"log"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/coldb/coldb/pkg/catalog"
	"github.com/coldb/coldb/pkg/storage/cache"
	"github.com/coldb/coldb/pkg/storage/column"
	"github.com/coldb/coldb/pkg/storage/config"
	"github.com/coldb/coldb/pkg/storage/deletevector"
	"github.com/coldb/coldb/pkg/storage/rowset"
	"github.com/coldb/coldb/pkg/storage/version"
)

// Compactor drives the tick loop described in spec.md §4.10: one errgroup
// fan-out per tick, one goroutine per table, guarded so a table already being
// compacted is skipped rather than queued twice.
type Compactor struct {
	mgr        *version.Manager
	bc         *cache.BlockCache
	rowsetRoot string
	cfg        config.CompactionConfig
	ioBackend  config.IOBackend
	log        *log.Logger

	active sync.Map // tableID uint32 -> struct{}
}

func New(mgr *version.Manager, bc *cache.BlockCache, rowsetRoot string, cfg config.CompactionConfig, ioBackend config.IOBackend) *Compactor {
	return &Compactor{
		mgr: mgr, bc: bc, rowsetRoot: rowsetRoot, cfg: cfg, ioBackend: ioBackend,
		log: log.New(os.Stderr, "coldb-compactor: ", log.LstdFlags),
	}
}

// WithLogger overrides the compactor's default stderr logger, for callers
// that want batch-compaction diagnostics routed through Storage.Log
// instead.
func (c *Compactor) WithLogger(logger *log.Logger) *Compactor {
	c.log = logger
	return c
}

// Run ticks until ctx is cancelled, fanning out one goroutine per table via
// errgroup so a slow compaction on one table never blocks another.
func (c *Compactor) Run(ctx context.Context) error {
	ticker := time.NewTicker(time.Duration(c.cfg.Tick))
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := c.tick(ctx); err != nil {
				return err
			}
		}
	}
}

func (c *Compactor) tick(ctx context.Context) error {
	v := c.mgr.Pin()
	tableIDs := make([]uint32, 0, len(v.Snapshot.Tables))
	for id := range v.Snapshot.Tables {
		tableIDs = append(tableIDs, id)
	}
	v.Release()

	g, gctx := errgroup.WithContext(ctx)
	for _, id := range tableIDs {
		id := id
		g.Go(func() error { return c.compactTable(gctx, id) })
	}
	return g.Wait()
}

func (c *Compactor) compactTable(ctx context.Context, tableID uint32) error {
	if _, loaded := c.active.LoadOrStore(tableID, struct{}{}); loaded {
		return nil
	}
	defer c.active.Delete(tableID)

	v := c.mgr.Pin()
	ts, ok := v.Snapshot.Tables[tableID]
	if !ok {
		v.Release()
		return nil
	}
	tableCatalog := ts.Catalog
	ids := append([]uint32(nil), ts.RowsetIDs...)
	dvsByRowset := make(map[uint32][]uint32, len(ts.RowsetDVs))
	for id, dvIDs := range ts.RowsetDVs {
		dvsByRowset[id] = append([]uint32(nil), dvIDs...)
	}
	v.Release()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, batch := range c.planBatches(tableID, ids) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err := c.compactBatch(tableCatalog, batch, dvsByRowset); err != nil {
			return err
		}
	}
	return nil
}

// planBatches greedily packs adjacent rowset ids whose combined on-disk
// size stays under TargetRowsetSize, discarding any run shorter than
// MinBatchSize (spec.md §4.10: merging a single rowset on its own is not
// compaction).
func (c *Compactor) planBatches(tableID uint32, ids []uint32) [][]uint32 {
	var batches [][]uint32
	var cur []uint32
	var curSize int64
	flush := func() {
		if len(cur) >= c.cfg.MinBatchSize {
			batches = append(batches, cur)
		}
		cur, curSize = nil, 0
	}
	for _, id := range ids {
		rs, ok := c.mgr.Rowset(tableID, id)
		if !ok {
			continue
		}
		if len(cur) > 0 && curSize+rs.SizeBytes > c.cfg.TargetRowsetSize {
			flush()
		}
		cur = append(cur, id)
		curSize += rs.SizeBytes
	}
	flush()
	return batches
}

func (c *Compactor) liveDVs(tableID uint32, rowsetID uint32, dvsByRowset map[uint32][]uint32) []*deletevector.DV {
	var out []*deletevector.DV
	for _, dvID := range dvsByRowset[rowsetID] {
		if dv, ok := c.mgr.DV(tableID, dvID); ok {
			out = append(out, dv)
		}
	}
	return out
}

// compactBatch merges one batch's visible rows into a single new rowset and
// commits AddRowSet(new)+DeleteRowSet(old...) as one version epoch. A batch
// token identifies the run in logs; it carries no on-disk meaning.
func (c *Compactor) compactBatch(table *catalog.TableCatalog, ids []uint32, dvsByRowset map[uint32][]uint32) error {
	batchID := uuid.New()
	if c.log != nil {
		c.log.Printf("batch %s: compacting table %d, rowsets %v", batchID, table.ID, ids)
	}

	refs := make([]rowset.ColumnRef, len(table.Columns))
	for i := range table.Columns {
		refs[i] = rowset.Idx(uint32(i))
	}

	sources := make([]rowset.ChunkSource, 0, len(ids))
	for _, id := range ids {
		rs, ok := c.mgr.Rowset(table.ID, id)
		if !ok {
			continue
		}
		it, err := rowset.NewIterator(rs, refs, c.liveDVs(table.ID, id, dvsByRowset), 0)
		if err != nil {
			return err
		}
		sources = append(sources, it)
	}
	if len(sources) == 0 {
		return nil
	}

	var merged rowset.ChunkSource
	if sortIdx, ok := table.PrimarySortColumn(); ok {
		merged = rowset.NewMergeIterator(sources, sortIdx)
	} else {
		merged = rowset.NewConcatIterator(sources)
	}

	newID := c.mgr.NextRowsetID(table.ID)
	dir := rowset.Dir(c.rowsetRoot, table.ID, newID)
	w := rowset.NewWriter(dir, table, column.DefaultBuilderOptions(false))

	rows := 0
	for {
		chunk, ok := merged.NextBatch(4096)
		if !ok {
			break
		}
		if chunk.Cardinality() == 0 {
			continue
		}
		if err := w.Append(chunk.ToArrayChunk()); err != nil {
			return err
		}
		rows += chunk.Cardinality()
	}
	if rows == 0 {
		return nil
	}
	if err := w.FinishAndFlush(); err != nil {
		return err
	}

	newRS, err := rowset.Open(c.rowsetRoot, table.ID, newID, c.bc, c.ioBackend)
	if err != nil {
		return err
	}

	ops := []version.EpochOp{{Kind: version.OpAddRowSet, TableID: table.ID, RowsetID: newID, Rowset: newRS}}
	for _, id := range ids {
		ops = append(ops, version.EpochOp{Kind: version.OpDeleteRowSet, TableID: table.ID, RowsetID: id})
	}
	_, err = c.mgr.CommitChanges(ops)
	return err
}
