package version

import (
	"bytes"
	"log"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coldb/coldb/pkg/array"
	"github.com/coldb/coldb/pkg/catalog"
	"github.com/coldb/coldb/pkg/storage/column"
	"github.com/coldb/coldb/pkg/storage/config"
	"github.com/coldb/coldb/pkg/storage/rowset"
)

func testLogger() (*log.Logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	return log.New(buf, "", 0), buf
}

func openManager(t *testing.T) (*Manager, string) {
	t.Helper()
	dir := t.TempDir()
	logger, _ := testLogger()
	mgr, err := Recover(filepath.Join(dir, "MANIFEST"), dir, nil, config.IOBackendNormalRead, logger)
	require.NoError(t, err)
	return mgr, dir
}

func writeTestRowset(t *testing.T, dir string, tableID, rowsetID uint32, cols []catalog.ColumnCatalog, ids []int64) {
	t.Helper()
	table := &catalog.TableCatalog{ID: tableID, Columns: cols}
	w := rowset.NewWriter(rowset.Dir(dir, tableID, rowsetID), table, column.DefaultBuilderOptions(false))
	b := array.NewPrimitiveBuilder[int64](array.Int64(false))
	for _, id := range ids {
		b.Append(id)
	}
	require.NoError(t, w.Append(array.NewChunk([]array.Array{b.Finish()})))
	require.NoError(t, w.FinishAndFlush())
}

func TestManager_CreateTableAndPin(t *testing.T) {
	mgr, _ := openManager(t)
	cols := []catalog.ColumnCatalog{{ID: 0, Name: "id", Type: array.Int64(false)}}
	_, err := mgr.CommitChanges([]EpochOp{{Kind: OpCreateTable, TableID: 1, TableName: "t", Columns: cols}})
	require.NoError(t, err)

	v := mgr.Pin()
	defer v.Release()
	ts, ok := v.Snapshot.Tables[1]
	require.True(t, ok)
	assert.Equal(t, "t", ts.Catalog.Name)
}

func TestManager_AddAndDeleteRowSet(t *testing.T) {
	mgr, dir := openManager(t)
	cols := []catalog.ColumnCatalog{{ID: 0, Name: "id", Type: array.Int64(false)}}
	_, err := mgr.CommitChanges([]EpochOp{{Kind: OpCreateTable, TableID: 1, TableName: "t", Columns: cols}})
	require.NoError(t, err)

	writeTestRowset(t, dir, 1, 0, cols, []int64{1, 2, 3})
	rs, err := rowset.Open(dir, 1, 0, nil, config.IOBackendNormalRead)
	require.NoError(t, err)

	_, err = mgr.CommitChanges([]EpochOp{{Kind: OpAddRowSet, TableID: 1, RowsetID: 0, Rowset: rs}})
	require.NoError(t, err)

	got, ok := mgr.Rowset(1, 0)
	require.True(t, ok)
	assert.Equal(t, uint32(3), got.RowCount)

	_, err = mgr.CommitChanges([]EpochOp{{Kind: OpDeleteRowSet, TableID: 1, RowsetID: 0}})
	require.NoError(t, err)

	v := mgr.Pin()
	defer v.Release()
	assert.NotContains(t, v.Snapshot.Tables[1].RowsetIDs, uint32(0))
}

func TestManager_RecoverReplaysManifest(t *testing.T) {
	dir := t.TempDir()
	logger, _ := testLogger()
	mgr, err := Recover(filepath.Join(dir, "MANIFEST"), dir, nil, config.IOBackendNormalRead, logger)
	require.NoError(t, err)

	cols := []catalog.ColumnCatalog{{ID: 0, Name: "id", Type: array.Int64(false)}}
	_, err = mgr.CommitChanges([]EpochOp{{Kind: OpCreateTable, TableID: 5, TableName: "events", Columns: cols}})
	require.NoError(t, err)
	writeTestRowset(t, dir, 5, 0, cols, []int64{9})
	rs, err := rowset.Open(dir, 5, 0, nil, config.IOBackendNormalRead)
	require.NoError(t, err)
	_, err = mgr.CommitChanges([]EpochOp{{Kind: OpAddRowSet, TableID: 5, RowsetID: 0, Rowset: rs}})
	require.NoError(t, err)

	logger2, _ := testLogger()
	reopened, err := Recover(filepath.Join(dir, "MANIFEST"), dir, nil, config.IOBackendNormalRead, logger2)
	require.NoError(t, err)

	v := reopened.Pin()
	defer v.Release()
	ts, ok := v.Snapshot.Tables[5]
	require.True(t, ok)
	assert.Equal(t, "events", ts.Catalog.Name)
	assert.Contains(t, ts.RowsetIDs, uint32(0))

	got, ok := reopened.Rowset(5, 0)
	require.True(t, ok)
	assert.Equal(t, uint32(1), got.RowCount)
}

func TestManager_DoVacuumRemovesDeletedRowsetAfterRelease(t *testing.T) {
	mgr, dir := openManager(t)
	cols := []catalog.ColumnCatalog{{ID: 0, Name: "id", Type: array.Int64(false)}}
	_, err := mgr.CommitChanges([]EpochOp{{Kind: OpCreateTable, TableID: 1, TableName: "t", Columns: cols}})
	require.NoError(t, err)
	writeTestRowset(t, dir, 1, 0, cols, []int64{1})
	rs, err := rowset.Open(dir, 1, 0, nil, config.IOBackendNormalRead)
	require.NoError(t, err)
	_, err = mgr.CommitChanges([]EpochOp{{Kind: OpAddRowSet, TableID: 1, RowsetID: 0, Rowset: rs}})
	require.NoError(t, err)
	pinned := mgr.Pin() // an epoch that still lists the rowset

	_, err = mgr.CommitChanges([]EpochOp{{Kind: OpDeleteRowSet, TableID: 1, RowsetID: 0}})
	require.NoError(t, err)

	pinned.Release()
	require.NoError(t, mgr.DoVacuum())

	_, statErr := os.Stat(rowset.Dir(dir, 1, 0))
	assert.True(t, os.IsNotExist(statErr))
}

func TestManager_DoVacuumLogsDuplicateDeletion(t *testing.T) {
	mgr, dir := openManager(t)
	logger, buf := testLogger()
	mgr.log = logger

	cols := []catalog.ColumnCatalog{{ID: 0, Name: "id", Type: array.Int64(false)}}
	_, err := mgr.CommitChanges([]EpochOp{{Kind: OpCreateTable, TableID: 1, TableName: "t", Columns: cols}})
	require.NoError(t, err)
	writeTestRowset(t, dir, 1, 0, cols, []int64{1})
	rs, err := rowset.Open(dir, 1, 0, nil, config.IOBackendNormalRead)
	require.NoError(t, err)
	_, err = mgr.CommitChanges([]EpochOp{{Kind: OpAddRowSet, TableID: 1, RowsetID: 0, Rowset: rs}})
	require.NoError(t, err)
	_, err = mgr.CommitChanges([]EpochOp{{Kind: OpDeleteRowSet, TableID: 1, RowsetID: 0}})
	require.NoError(t, err)

	// Manually duplicate the pending deletion within the same epoch,
	// simulating the same rowset key queued for removal twice.
	mgr.mu.Lock()
	for e, keys := range mgr.deletionToApply {
		mgr.deletionToApply[e] = append(keys, keys...)
	}
	mgr.mu.Unlock()

	require.NoError(t, mgr.DoVacuum())
	assert.Contains(t, buf.String(), "duplicated deletion")
}
