package rowset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coldb/coldb/pkg/array"
	"github.com/coldb/coldb/pkg/catalog"
	"github.com/coldb/coldb/pkg/storage/column"
	"github.com/coldb/coldb/pkg/storage/config"
)

func testTable() *catalog.TableCatalog {
	return &catalog.TableCatalog{
		ID:   1,
		Name: "events",
		Columns: []catalog.ColumnCatalog{
			{ID: 0, Name: "id", Type: array.Int64(false), IsSortKey: true, SortKeyOrdinal: 0},
			{ID: 1, Name: "label", Type: array.String(true), Nullable: true},
		},
	}
}

func writeRowset(t *testing.T, dir string, table *catalog.TableCatalog, ids []int64, labels []string) {
	t.Helper()
	w := NewWriter(dir, table, column.DefaultBuilderOptions(false))

	idCol := array.NewPrimitiveBuilder[int64](array.Int64(false))
	labelCol := array.NewBytesBuilder(array.String(true))
	for i, id := range ids {
		idCol.Append(id)
		if labels[i] == "" {
			labelCol.AppendNull()
		} else {
			labelCol.Append([]byte(labels[i]))
		}
	}
	chunk := array.NewChunk([]array.Array{idCol.Finish(), labelCol.Finish()})
	require.NoError(t, w.Append(chunk))
	require.NoError(t, w.FinishAndFlush())
}

func TestWriterReaderRoundTrip(t *testing.T) {
	dir := t.TempDir()
	table := testTable()
	writeRowset(t, Dir(dir, table.ID, 1), table, []int64{10, 20, 30}, []string{"a", "", "c"})

	rs, err := Open(dir, table.ID, 1, nil, config.IOBackendNormalRead)
	require.NoError(t, err)
	defer rs.Close()

	assert.Equal(t, uint32(3), rs.RowCount)
	assert.True(t, rs.SizeBytes > 0)

	refs := []ColumnRef{Idx(0), Idx(1)}
	it, err := NewIterator(rs, refs, nil, 0)
	require.NoError(t, err)

	var gotIDs []int64
	var gotLabels []string
	var gotNulls []bool
	for {
		chunk, ok := it.NextBatch(1024)
		if !ok {
			break
		}
		idArr := chunk.Columns[0].(*array.PrimitiveArray[int64])
		labelArr := chunk.Columns[1].(*array.BytesArray)
		for r := 0; r < chunk.Length; r++ {
			gotIDs = append(gotIDs, idArr.Values[r])
			gotNulls = append(gotNulls, !labelArr.IsValid(r))
			if labelArr.IsValid(r) {
				gotLabels = append(gotLabels, string(labelArr.At(r)))
			} else {
				gotLabels = append(gotLabels, "")
			}
		}
	}
	assert.Equal(t, []int64{10, 20, 30}, gotIDs)
	assert.Equal(t, []bool{false, true, false}, gotNulls)
	assert.Equal(t, "a", gotLabels[0])
	assert.Equal(t, "c", gotLabels[2])
}

func TestWriter_LengthMismatchError(t *testing.T) {
	dir := t.TempDir()
	table := testTable()
	w := NewWriter(dir, table, column.DefaultBuilderOptions(false))

	idCol := array.NewPrimitiveBuilder[int64](array.Int64(false))
	idCol.Append(1)
	// Only one column supplied for a two-column table.
	chunk := array.NewChunk([]array.Array{idCol.Finish()})
	err := w.Append(chunk)
	assert.Error(t, err)
}

func TestWriter_EmptyFlushPanics(t *testing.T) {
	dir := t.TempDir()
	table := testTable()
	w := NewWriter(dir, table, column.DefaultBuilderOptions(false))
	assert.Panics(t, func() { _ = w.FinishAndFlush() })
}

func TestConcatIterator(t *testing.T) {
	dir := t.TempDir()
	table := testTable()
	writeRowset(t, Dir(dir, table.ID, 1), table, []int64{1, 2}, []string{"a", "b"})
	writeRowset(t, Dir(dir, table.ID, 2), table, []int64{3, 4}, []string{"c", "d"})

	rs1, err := Open(dir, table.ID, 1, nil, config.IOBackendNormalRead)
	require.NoError(t, err)
	defer rs1.Close()
	rs2, err := Open(dir, table.ID, 2, nil, config.IOBackendNormalRead)
	require.NoError(t, err)
	defer rs2.Close()

	refs := []ColumnRef{Idx(0)}
	it1, err := NewIterator(rs1, refs, nil, 0)
	require.NoError(t, err)
	it2, err := NewIterator(rs2, refs, nil, 0)
	require.NoError(t, err)

	cc := NewConcatIterator([]ChunkSource{it1, it2})
	var ids []int64
	for {
		chunk, ok := cc.NextBatch(1024)
		if !ok {
			break
		}
		arr := chunk.Columns[0].(*array.PrimitiveArray[int64])
		for r := 0; r < chunk.Length; r++ {
			ids = append(ids, arr.Values[r])
		}
	}
	assert.Equal(t, []int64{1, 2, 3, 4}, ids)
}

func TestMergeIterator_OrdersBySortKey(t *testing.T) {
	dir := t.TempDir()
	table := testTable()
	// Two rowsets with interleaved, unsorted-across-each-other id ranges.
	writeRowset(t, Dir(dir, table.ID, 1), table, []int64{5, 20}, []string{"a", "b"})
	writeRowset(t, Dir(dir, table.ID, 2), table, []int64{1, 10}, []string{"c", "d"})

	rs1, err := Open(dir, table.ID, 1, nil, config.IOBackendNormalRead)
	require.NoError(t, err)
	defer rs1.Close()
	rs2, err := Open(dir, table.ID, 2, nil, config.IOBackendNormalRead)
	require.NoError(t, err)
	defer rs2.Close()

	refs := []ColumnRef{Idx(0)}
	it1, err := NewIterator(rs1, refs, nil, 0)
	require.NoError(t, err)
	it2, err := NewIterator(rs2, refs, nil, 0)
	require.NoError(t, err)

	mi := NewMergeIterator([]ChunkSource{it1, it2}, 0)
	var ids []int64
	for {
		chunk, ok := mi.NextBatch(1024)
		if !ok {
			break
		}
		arr := chunk.Columns[0].(*array.PrimitiveArray[int64])
		for r := 0; r < chunk.Length; r++ {
			ids = append(ids, arr.Values[r])
		}
	}
	assert.Equal(t, []int64{1, 5, 10, 20}, ids)
}

func TestRowHandlePackUnpack(t *testing.T) {
	h := PackRowHandle(7, 42)
	rowsetID, rowID := UnpackRowHandle(h)
	assert.Equal(t, uint32(7), rowsetID)
	assert.Equal(t, uint32(42), rowID)
}

func TestRowSetIterator_RowHandlerRef(t *testing.T) {
	dir := t.TempDir()
	table := testTable()
	writeRowset(t, Dir(dir, table.ID, 1), table, []int64{1, 2, 3}, []string{"a", "b", "c"})

	rs, err := Open(dir, table.ID, 1, nil, config.IOBackendNormalRead)
	require.NoError(t, err)
	defer rs.Close()

	refs := []ColumnRef{Idx(0), RowHandlerRef()}
	it, err := NewIterator(rs, refs, nil, 0)
	require.NoError(t, err)

	chunk, ok := it.NextBatch(1024)
	require.True(t, ok)
	handles := chunk.Columns[1].(*array.PrimitiveArray[int64])
	for r := 0; r < chunk.Length; r++ {
		rowsetID, rowID := UnpackRowHandle(handles.Values[r])
		assert.Equal(t, rs.ID, rowsetID)
		assert.Equal(t, uint32(r), rowID)
	}
}
