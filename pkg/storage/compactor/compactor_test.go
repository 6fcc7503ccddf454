package compactor

import (
	"bytes"
	"context"
	"log"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coldb/coldb/pkg/array"
	"github.com/coldb/coldb/pkg/catalog"
	"github.com/coldb/coldb/pkg/storage/cache"
	"github.com/coldb/coldb/pkg/storage/column"
	"github.com/coldb/coldb/pkg/storage/config"
	"github.com/coldb/coldb/pkg/storage/rowset"
	"github.com/coldb/coldb/pkg/storage/version"
)

func openTestManager(t *testing.T, dir string) *version.Manager {
	t.Helper()
	logger := log.New(&bytes.Buffer{}, "", 0)
	mgr, err := version.Recover(filepath.Join(dir, "MANIFEST"), dir, nil, config.IOBackendNormalRead, logger)
	require.NoError(t, err)
	return mgr
}

func writeCompactorRowset(t *testing.T, dir string, tableID, rowsetID uint32, cols []catalog.ColumnCatalog, ids []int64) *rowset.Rowset {
	t.Helper()
	table := &catalog.TableCatalog{ID: tableID, Columns: cols}
	w := rowset.NewWriter(rowset.Dir(dir, tableID, rowsetID), table, column.DefaultBuilderOptions(false))
	b := array.NewPrimitiveBuilder[int64](array.Int64(false))
	for _, id := range ids {
		b.Append(id)
	}
	require.NoError(t, w.Append(array.NewChunk([]array.Array{b.Finish()})))
	require.NoError(t, w.FinishAndFlush())
	rs, err := rowset.Open(dir, tableID, rowsetID, nil, config.IOBackendNormalRead)
	require.NoError(t, err)
	return rs
}

func TestCompactor_PlanBatchesPacksUnderTarget(t *testing.T) {
	dir := t.TempDir()
	mgr := openTestManager(t, dir)
	cols := []catalog.ColumnCatalog{{ID: 0, Name: "id", Type: array.Int64(false)}}
	_, err := mgr.CommitChanges([]version.EpochOp{{Kind: version.OpCreateTable, TableID: 1, TableName: "t", Columns: cols}})
	require.NoError(t, err)

	var ids []uint32
	for i := uint32(0); i < 4; i++ {
		rs := writeCompactorRowset(t, dir, 1, i, cols, []int64{int64(i)})
		_, err := mgr.CommitChanges([]version.EpochOp{{Kind: version.OpAddRowSet, TableID: 1, RowsetID: i, Rowset: rs}})
		require.NoError(t, err)
		ids = append(ids, i)
	}

	cfg := config.CompactionConfig{Tick: int64(time.Second), TargetRowsetSize: 1 << 30, MinBatchSize: 2}
	c := New(mgr, nil, dir, cfg, config.IOBackendNormalRead)

	batches := c.planBatches(1, ids)
	require.Len(t, batches, 1)
	assert.Equal(t, ids, batches[0])
}

func TestCompactor_PlanBatchesDropsRunsBelowMinBatchSize(t *testing.T) {
	dir := t.TempDir()
	mgr := openTestManager(t, dir)
	cols := []catalog.ColumnCatalog{{ID: 0, Name: "id", Type: array.Int64(false)}}
	_, err := mgr.CommitChanges([]version.EpochOp{{Kind: version.OpCreateTable, TableID: 1, TableName: "t", Columns: cols}})
	require.NoError(t, err)
	rs := writeCompactorRowset(t, dir, 1, 0, cols, []int64{1})
	_, err = mgr.CommitChanges([]version.EpochOp{{Kind: version.OpAddRowSet, TableID: 1, RowsetID: 0, Rowset: rs}})
	require.NoError(t, err)

	cfg := config.CompactionConfig{Tick: int64(time.Second), TargetRowsetSize: 1 << 30, MinBatchSize: 2}
	c := New(mgr, nil, dir, cfg, config.IOBackendNormalRead)

	batches := c.planBatches(1, []uint32{0})
	assert.Empty(t, batches, "a single rowset is not worth compacting on its own")
}

func TestCompactor_CompactBatchMergesAndLogsBatchID(t *testing.T) {
	dir := t.TempDir()
	mgr := openTestManager(t, dir)
	bc, err := cache.NewBlockCache(config.DefaultCacheConfig())
	require.NoError(t, err)
	defer bc.Close()

	cols := []catalog.ColumnCatalog{{ID: 0, Name: "id", Type: array.Int64(false), IsSortKey: true, SortKeyOrdinal: 0}}
	_, err = mgr.CommitChanges([]version.EpochOp{{Kind: version.OpCreateTable, TableID: 1, TableName: "t", Columns: cols}})
	require.NoError(t, err)

	rsA := writeCompactorRowset(t, dir, 1, 0, cols, []int64{1, 4})
	rsB := writeCompactorRowset(t, dir, 1, 1, cols, []int64{2, 3})
	_, err = mgr.CommitChanges([]version.EpochOp{{Kind: version.OpAddRowSet, TableID: 1, RowsetID: 0, Rowset: rsA}})
	require.NoError(t, err)
	_, err = mgr.CommitChanges([]version.EpochOp{{Kind: version.OpAddRowSet, TableID: 1, RowsetID: 1, Rowset: rsB}})
	require.NoError(t, err)

	cfg := config.CompactionConfig{Tick: int64(time.Second), TargetRowsetSize: 1 << 30, MinBatchSize: 2}
	c := New(mgr, bc, dir, cfg, config.IOBackendPositionedRead)
	var logBuf bytes.Buffer
	c.WithLogger(log.New(&logBuf, "", 0))

	v := mgr.Pin()
	tableCatalog := v.Snapshot.Tables[1].Catalog
	v.Release()

	err = c.compactBatch(tableCatalog, []uint32{0, 1}, map[uint32][]uint32{})
	require.NoError(t, err)
	assert.Contains(t, logBuf.String(), "compacting table 1")

	v2 := mgr.Pin()
	defer v2.Release()
	ts := v2.Snapshot.Tables[1]
	assert.NotContains(t, ts.RowsetIDs, uint32(0))
	assert.NotContains(t, ts.RowsetIDs, uint32(1))
	require.Len(t, ts.RowsetIDs, 1)

	merged, ok := mgr.Rowset(1, ts.RowsetIDs[0])
	require.True(t, ok)
	assert.Equal(t, uint32(4), merged.RowCount)

	it, err := merged.NewColumnIterator(0, 0)
	require.NoError(t, err)
	_, arr, ok := it.NextBatch(16)
	require.True(t, ok)
	pa := arr.(*array.PrimitiveArray[int64])
	var got []int64
	for i := 0; i < pa.Len(); i++ {
		got = append(got, pa.Values[i])
	}
	assert.Equal(t, []int64{1, 2, 3, 4}, got)
}

func TestCompactor_RunTicksUntilCancelled(t *testing.T) {
	dir := t.TempDir()
	mgr := openTestManager(t, dir)
	cfg := config.CompactionConfig{Tick: int64(5 * time.Millisecond), TargetRowsetSize: 1 << 30, MinBatchSize: 2}
	c := New(mgr, nil, dir, cfg, config.IOBackendNormalRead)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	err := c.Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
