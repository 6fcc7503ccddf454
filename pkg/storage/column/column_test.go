package column

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coldb/coldb/pkg/array"
	"github.com/coldb/coldb/pkg/catalog"
	"github.com/coldb/coldb/pkg/storage/errs"
)

// memBlockSource slices framed block bytes straight out of a single
// in-memory buffer by entry offset/length, standing in for the rowset
// cache/file layer (spec.md §4.3) in these column-level tests.
type memBlockSource struct{ data []byte }

func (s memBlockSource) Fetch(e Entry) ([]byte, error) {
	return s.data[e.Offset : e.Offset+e.Length], nil
}

func drainIterator(t *testing.T, it Iterator) (rowIDs []uint32, arrs []array.Array) {
	t.Helper()
	for {
		first, arr, ok := it.NextBatch(4)
		if !ok {
			break
		}
		rowIDs = append(rowIDs, first)
		arrs = append(arrs, arr)
	}
	return
}

func TestColumn_Int64RoundTrip(t *testing.T) {
	col := catalog.ColumnCatalog{ID: 0, Name: "id", Type: array.Int64(false)}
	opts := DefaultBuilderOptions(false)
	opts.TargetBlockSize = 1 << 20 // force a single block so row IDs stay simple

	b := NewBuilder(col, opts)
	arr := array.NewPrimitiveBuilder[int64](array.Int64(false))
	for i := int64(0); i < 10; i++ {
		arr.Append(i * 2)
	}
	require.NoError(t, b.Append(arr.Finish()))
	entries, data := b.Finish()
	require.Len(t, entries, 1)

	it, err := NewIterator(col, entries, memBlockSource{data}, 0)
	require.NoError(t, err)
	// drainIterator asks for 4 rows per batch: 10 rows arrive as 4+4+2.
	rowIDs, arrs := drainIterator(t, it)
	require.Equal(t, []uint32{0, 4, 8}, rowIDs)
	var vals []int64
	for _, a := range arrs {
		pa, ok := a.(*array.PrimitiveArray[int64])
		require.True(t, ok)
		for i := 0; i < pa.Len(); i++ {
			assert.True(t, pa.IsValid(i))
			vals = append(vals, pa.Values[i])
		}
	}
	require.Len(t, vals, 10)
	for i := 0; i < 10; i++ {
		assert.Equal(t, int64(i*2), vals[i])
	}
}

func TestColumn_NullableStringRoundTrip(t *testing.T) {
	col := catalog.ColumnCatalog{ID: 1, Name: "label", Type: array.String(true), Nullable: true}
	opts := DefaultBuilderOptions(true)

	b := NewBuilder(col, opts)
	arr := array.NewBytesBuilder(array.String(true))
	arr.Append([]byte("one"))
	arr.AppendNull()
	arr.Append([]byte("three"))
	require.NoError(t, b.Append(arr.Finish()))
	entries, data := b.Finish()

	it, err := NewIterator(col, entries, memBlockSource{data}, 0)
	require.NoError(t, err)
	_, arrs := drainIterator(t, it)

	var got []string
	var nulls []bool
	for _, a := range arrs {
		ba := a.(*array.BytesArray)
		for i := 0; i < ba.Len(); i++ {
			nulls = append(nulls, !ba.IsValid(i))
			if ba.IsValid(i) {
				got = append(got, string(ba.At(i)))
			} else {
				got = append(got, "")
			}
		}
	}
	require.Equal(t, []bool{false, true, false}, nulls)
	assert.Equal(t, "one", got[0])
	assert.Equal(t, "three", got[2])
}

func TestColumn_NotNullableErrorOnNullAppend(t *testing.T) {
	col := catalog.ColumnCatalog{ID: 2, Name: "required", Type: array.Int32(false)}
	opts := DefaultBuilderOptions(false)

	b := NewBuilder(col, opts)
	arr := array.NewPrimitiveBuilder[int32](array.Int32(false))
	arr.Append(1)
	arr.AppendNull()

	err := b.Append(arr.Finish())
	require.Error(t, err)
	var nn *errs.NotNullableError
	require.ErrorAs(t, err, &nn)
	assert.Equal(t, "required", nn.Column)
}

func TestColumn_ConversionErrorOnWrongArrayType(t *testing.T) {
	col := catalog.ColumnCatalog{ID: 3, Name: "amount", Type: array.Int64(false)}
	opts := DefaultBuilderOptions(false)

	b := NewBuilder(col, opts)
	// Int64 column fed a float64 array: a physical-kind mismatch.
	wrong := array.NewPrimitiveBuilder[float64](array.Float64(false))
	wrong.Append(1.5)

	err := b.Append(wrong.Finish())
	require.Error(t, err)
	var conv *errs.ConversionError
	require.ErrorAs(t, err, &conv)
	assert.Equal(t, "int64", conv.To)
}

func TestColumn_FixedCharExceedsWidthGetsColumnName(t *testing.T) {
	col := catalog.ColumnCatalog{ID: 4, Name: "code", Type: array.FixedChar(3, false)}
	opts := DefaultBuilderOptions(false)

	b := NewBuilder(col, opts)
	// A char(7) array fed into a char(3) column: array.FixedCharBuilder
	// pads or cuts every value to its own width, so the over-long value
	// has to come from a wider array.
	arr := array.NewFixedCharBuilder(array.FixedChar(7, false), 7)
	arr.Append([]byte("toolong"))

	err := b.Append(arr.Finish())
	require.Error(t, err)
	var lim *errs.ExceedLengthLimitError
	require.ErrorAs(t, err, &lim)
	assert.Equal(t, "code", lim.Column)
	assert.Equal(t, 3, lim.Limit)
	assert.Equal(t, 7, lim.Got)
}

// TestBlockOfRow_Property is spec.md §8's named block_of_row monotonicity
// property test: for any set of contiguous, non-overlapping entries,
// BlockOfRow must return the unique entry whose [FirstRow, FirstRow+RowCount)
// range covers a given row id, and false for rows past the end.
func TestBlockOfRow_Property(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for trial := 0; trial < 50; trial++ {
		numEntries := 1 + rng.Intn(12)
		entries := make([]Entry, numEntries)
		var row uint32
		for i := range entries {
			count := uint32(1 + rng.Intn(20))
			entries[i] = Entry{FirstRow: row, RowCount: count}
			row += count
		}
		totalRows := row

		for check := 0; check < 30; check++ {
			rowid := uint32(rng.Intn(int(totalRows) + 5))
			idx, ok := BlockOfRow(entries, rowid)
			if rowid >= totalRows {
				assert.False(t, ok, "row %d is past the end of %d total rows", rowid, totalRows)
				continue
			}
			require.True(t, ok, "row %d should resolve to a block", rowid)
			e := entries[idx]
			assert.True(t, rowid >= e.FirstRow && rowid < e.FirstRow+e.RowCount,
				"row %d not covered by resolved entry [%d, %d)", rowid, e.FirstRow, e.FirstRow+e.RowCount)
			if idx > 0 {
				prev := entries[idx-1]
				assert.True(t, rowid >= prev.FirstRow+prev.RowCount, "resolved block is not the earliest covering one")
			}
		}
	}
}

func TestBlockOfRow_EmptyEntries(t *testing.T) {
	_, ok := BlockOfRow(nil, 0)
	assert.False(t, ok)
}
