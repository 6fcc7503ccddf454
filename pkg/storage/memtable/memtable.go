package memtable

import (
	"github.com/coldb/coldb/pkg/array"
	"github.com/coldb/coldb/pkg/catalog"
)

// Memtable is the common interface Sorted and Unsorted satisfy, so a
// writable transaction can hold one without caring which variant a table's
// schema picked (spec.md §4.4).
type Memtable interface {
	AppendChunk(chunk *array.Chunk) error
	Flush() *array.Chunk
	Len() int
}

// New picks Sorted for tables with a declared sort key and Unsorted
// otherwise.
func New(table *catalog.TableCatalog) Memtable {
	if _, ok := table.PrimarySortColumn(); ok {
		return NewSorted(table)
	}
	return NewUnsorted(table)
}

// extractRow pulls one row out of arr at index i as a raw Go value,
// mirroring appendValue's accepted shapes in reverse.
func extractRow(arr array.Array, i int) any {
	if !arr.IsValid(i) {
		return nil
	}
	switch a := arr.(type) {
	case *array.PrimitiveArray[bool]:
		return a.Values[i]
	case *array.PrimitiveArray[int32]:
		return a.Values[i]
	case *array.PrimitiveArray[int64]:
		return a.Values[i]
	case *array.PrimitiveArray[float64]:
		return a.Values[i]
	case *array.BytesArray:
		return append([]byte(nil), a.At(i)...)
	case *array.FixedCharArray:
		return append([]byte(nil), a.At(i)...)
	case *array.VectorArray:
		return append([]float64(nil), a.At(i)...)
	default:
		return nil
	}
}

// AppendChunk decomposes chunk row-wise into the sorted tree.
func (s *Sorted) AppendChunk(chunk *array.Chunk) error {
	n := 0
	if len(chunk.Columns) > 0 {
		n = chunk.Columns[0].Len()
	}
	for r := 0; r < n; r++ {
		row := make([]any, len(chunk.Columns))
		for i, arr := range chunk.Columns {
			row[i] = extractRow(arr, r)
		}
		s.Append(row)
	}
	return nil
}

// AppendChunk is Unsorted's own Append, renamed to satisfy Memtable.
func (u *Unsorted) AppendChunk(chunk *array.Chunk) error { return u.Append(chunk) }
