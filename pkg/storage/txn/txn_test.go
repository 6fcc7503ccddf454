package txn

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coldb/coldb/pkg/array"
	"github.com/coldb/coldb/pkg/catalog"
	"github.com/coldb/coldb/pkg/storage/config"
	"github.com/coldb/coldb/pkg/storage/rowset"
)

func openTestStorage(t *testing.T) *Storage {
	t.Helper()
	st, err := Open(config.DefaultStorageConfig(t.TempDir()))
	require.NoError(t, err)
	return st
}

func scanInt64Column(t *testing.T, it *TxnIterator, colIdx int) []int64 {
	t.Helper()
	var out []int64
	for {
		chunk, ok := it.NextBatch(1024)
		if !ok {
			break
		}
		pa := chunk.Columns[colIdx].(*array.PrimitiveArray[int64])
		for i := 0; i < pa.Len(); i++ {
			out = append(out, pa.Values[i])
		}
	}
	return out
}

// TestScenario1_InsertAndScanInOrder is spec.md §8 scenario 1: create a
// table, insert four rows as one transaction, commit, then scan sees
// exactly those rows in insertion order.
func TestScenario1_InsertAndScanInOrder(t *testing.T) {
	st := openTestStorage(t)
	cols := []catalog.ColumnCatalog{
		{ID: 0, Name: "v1", Type: array.Int32(false)},
		{ID: 1, Name: "v2", Type: array.Int32(false)},
	}
	require.NoError(t, st.CreateTable(1, "t", cols))
	table, err := st.GetTable(1)
	require.NoError(t, err)

	tx := table.Write()
	v1 := array.NewPrimitiveBuilder[int32](array.Int32(false))
	v2 := array.NewPrimitiveBuilder[int32](array.Int32(false))
	rows := [][2]int32{{0, 100}, {1, 101}, {2, 102}, {3, 103}}
	for _, r := range rows {
		v1.Append(r[0])
		v2.Append(r[1])
	}
	chunk := array.NewChunk([]array.Array{v1.Finish(), v2.Finish()})
	require.NoError(t, tx.Append(chunk))
	require.NoError(t, tx.Commit())

	read := table.Read()
	it, err := read.Scan([]rowset.ColumnRef{rowset.Idx(0), rowset.Idx(1)})
	require.NoError(t, err)

	var gotV1, gotV2 []int32
	for {
		c, ok := it.NextBatch(1024)
		if !ok {
			break
		}
		a1 := c.Columns[0].(*array.PrimitiveArray[int32])
		a2 := c.Columns[1].(*array.PrimitiveArray[int32])
		for i := 0; i < a1.Len(); i++ {
			gotV1 = append(gotV1, a1.Values[i])
			gotV2 = append(gotV2, a2.Values[i])
		}
	}
	require.NoError(t, read.Commit())

	assert.Equal(t, []int32{0, 1, 2, 3}, gotV1)
	assert.Equal(t, []int32{100, 101, 102, 103}, gotV2)
}

// TestScenario5_DeleteVectorHidesMarkedRow is spec.md §8 scenario 5: a
// rowset with 3 rows and a delete marking row 1 scans back exactly rows 0
// and 2.
func TestScenario5_DeleteVectorHidesMarkedRow(t *testing.T) {
	st := openTestStorage(t)
	cols := []catalog.ColumnCatalog{{ID: 0, Name: "id", Type: array.Int64(false)}}
	require.NoError(t, st.CreateTable(1, "t", cols))
	table, err := st.GetTable(1)
	require.NoError(t, err)

	tx := table.Write()
	idCol := array.NewPrimitiveBuilder[int64](array.Int64(false))
	idCol.Append(10)
	idCol.Append(20)
	idCol.Append(30)
	require.NoError(t, tx.Append(array.NewChunk([]array.Array{idCol.Finish()})))
	require.NoError(t, tx.Commit())

	// Find row 1's handle via a RowHandler-projecting scan, then delete it.
	findTx := table.Read()
	fit, err := findTx.Scan([]rowset.ColumnRef{rowset.RowHandlerRef(), rowset.Idx(0)})
	require.NoError(t, err)
	chunk, ok := fit.NextBatch(1024)
	require.True(t, ok)
	require.NoError(t, findTx.Commit())
	handles := chunk.Columns[0].(*array.PrimitiveArray[int64])

	delTx := table.Write()
	require.NoError(t, delTx.Delete(handles.Values[1]))
	require.NoError(t, delTx.Commit())

	read := table.Read()
	it, err := read.Scan([]rowset.ColumnRef{rowset.Idx(0)})
	require.NoError(t, err)
	got := scanInt64Column(t, it, 0)
	require.NoError(t, read.Commit())

	assert.Equal(t, []int64{10, 30}, got)
}

// TestScenario6_VacuumOnlyAfterPinReleased is spec.md §8 scenario 6: commit
// an AddRowSet, pin a version, commit a DeleteRowSet for the same rowset,
// then release — vacuum removes the rowset directory only after release.
func TestScenario6_VacuumOnlyAfterPinReleased(t *testing.T) {
	st := openTestStorage(t)
	cols := []catalog.ColumnCatalog{{ID: 0, Name: "id", Type: array.Int64(false)}}
	require.NoError(t, st.CreateTable(1, "t", cols))
	table, err := st.GetTable(1)
	require.NoError(t, err)

	tx := table.Write()
	idCol := array.NewPrimitiveBuilder[int64](array.Int64(false))
	idCol.Append(1)
	require.NoError(t, tx.Append(array.NewChunk([]array.Array{idCol.Finish()})))
	require.NoError(t, tx.Commit())

	pinned := table.Read() // pins the epoch that still has the rowset

	require.NoError(t, st.DropTable(1))
	require.NoError(t, st.Manager().DoVacuum())

	v, ok := st.Manager().Rowset(1, 0)
	_ = v
	assert.True(t, ok, "rowset must still be pooled while an older epoch is pinned")

	require.NoError(t, pinned.Commit()) // releases the pin
	require.NoError(t, st.Manager().DoVacuum())

	_, ok = st.Manager().Rowset(1, 0)
	assert.False(t, ok, "rowset must be gone once no pinned epoch needs it")
}

func TestTransaction_AppendOnReadOnlyFails(t *testing.T) {
	st := openTestStorage(t)
	cols := []catalog.ColumnCatalog{{ID: 0, Name: "id", Type: array.Int64(false)}}
	require.NoError(t, st.CreateTable(1, "t", cols))
	table, err := st.GetTable(1)
	require.NoError(t, err)

	tx := table.Read()
	defer tx.Abort()
	idCol := array.NewPrimitiveBuilder[int64](array.Int64(false))
	idCol.Append(1)
	err = tx.Append(array.NewChunk([]array.Array{idCol.Finish()}))
	assert.Error(t, err)
}

func TestTransaction_AbortDiscardsBufferedRows(t *testing.T) {
	st := openTestStorage(t)
	cols := []catalog.ColumnCatalog{{ID: 0, Name: "id", Type: array.Int64(false)}}
	require.NoError(t, st.CreateTable(1, "t", cols))
	table, err := st.GetTable(1)
	require.NoError(t, err)

	tx := table.Write()
	idCol := array.NewPrimitiveBuilder[int64](array.Int64(false))
	idCol.Append(1)
	require.NoError(t, tx.Append(array.NewChunk([]array.Array{idCol.Finish()})))
	require.NoError(t, tx.Abort())

	read := table.Read()
	it, err := read.Scan([]rowset.ColumnRef{rowset.Idx(0)})
	require.NoError(t, err)
	got := scanInt64Column(t, it, 0)
	require.NoError(t, read.Commit())
	assert.Empty(t, got)
}

func TestStorage_GetTableUnknownFails(t *testing.T) {
	st := openTestStorage(t)
	_, err := st.GetTable(999)
	assert.Error(t, err)
}
