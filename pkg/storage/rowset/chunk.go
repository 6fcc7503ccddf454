package rowset

import "github.com/coldb/coldb/pkg/array"

// Chunk is a batch produced by a ChunkSource: FirstRowID anchors the batch
// within its rowset, Visibility is the DV-applied bitmap of spec.md §4.5
// (nil means every physical row is visible).
type Chunk struct {
	FirstRowID uint32
	Columns    []array.Array
	Visibility *array.Bitmap
	Length     int // physical row count, before visibility filtering
}

func (c *Chunk) IsVisible(i int) bool {
	return c.Visibility == nil || c.Visibility.Get(i)
}

// Cardinality is the number of visible rows in the chunk.
func (c *Chunk) Cardinality() int {
	if c.Visibility == nil {
		return c.Length
	}
	return c.Visibility.PopCount()
}

// ToArrayChunk materializes an array.Chunk containing only this chunk's
// visible rows, for callers (the compactor, transaction scans) that need a
// plain array.Chunk rather than a DV-aware rowset.Chunk. When every row is
// visible the columns are reused as-is.
func (c *Chunk) ToArrayChunk() *array.Chunk {
	if c.Visibility == nil {
		return array.NewChunk(c.Columns)
	}
	builders := make([]array.Builder, len(c.Columns))
	for i, col := range c.Columns {
		builders[i] = array.NewBuilder(col.Type())
	}
	for r := 0; r < c.Length; r++ {
		if !c.IsVisible(r) {
			continue
		}
		for i, col := range c.Columns {
			appendRow(builders[i], col, r)
		}
	}
	cols := make([]array.Array, len(builders))
	for i, b := range builders {
		cols[i] = b.Finish()
	}
	return array.NewChunk(cols)
}

// ChunkSource is the common interface RowSetIterator, ConcatIterator and
// MergeIterator all satisfy.
type ChunkSource interface {
	NextBatch(expected int) (*Chunk, bool)
}

// appendRow copies one row from src at index row into dst, preserving
// nullability. One case per physical array kind (pkg/array).
func appendRow(dst array.Builder, src array.Array, row int) {
	if !src.IsValid(row) {
		dst.AppendNull()
		return
	}
	switch s := src.(type) {
	case *array.PrimitiveArray[bool]:
		dst.(*array.PrimitiveBuilder[bool]).Append(s.Values[row])
	case *array.PrimitiveArray[int32]:
		dst.(*array.PrimitiveBuilder[int32]).Append(s.Values[row])
	case *array.PrimitiveArray[int64]:
		dst.(*array.PrimitiveBuilder[int64]).Append(s.Values[row])
	case *array.PrimitiveArray[float64]:
		dst.(*array.PrimitiveBuilder[float64]).Append(s.Values[row])
	case *array.BytesArray:
		dst.(*array.BytesBuilder).Append(s.At(row))
	case *array.FixedCharArray:
		dst.(*array.FixedCharBuilder).Append(s.At(row))
	case *array.VectorArray:
		dst.(*array.VectorBuilder).Append(s.At(row))
	}
}

// compareKey orders two rows (possibly from different arrays/chunks) by
// value, used by MergeIterator to order its heap on the sort-key column.
// Nulls sort first.
func compareKey(a array.Array, ia int, b array.Array, ib int) int {
	av, bv := a.IsValid(ia), b.IsValid(ib)
	switch {
	case !av && !bv:
		return 0
	case !av:
		return -1
	case !bv:
		return 1
	}
	switch sa := a.(type) {
	case *array.PrimitiveArray[int32]:
		sb := b.(*array.PrimitiveArray[int32])
		return cmpOrdered(sa.Values[ia], sb.Values[ib])
	case *array.PrimitiveArray[int64]:
		sb := b.(*array.PrimitiveArray[int64])
		return cmpOrdered(sa.Values[ia], sb.Values[ib])
	case *array.PrimitiveArray[float64]:
		sb := b.(*array.PrimitiveArray[float64])
		return cmpOrdered(sa.Values[ia], sb.Values[ib])
	case *array.PrimitiveArray[bool]:
		sb := b.(*array.PrimitiveArray[bool])
		return cmpBool(sa.Values[ia], sb.Values[ib])
	case *array.BytesArray:
		sb := b.(*array.BytesArray)
		return cmpBytes(sa.At(ia), sb.At(ib))
	case *array.FixedCharArray:
		sb := b.(*array.FixedCharArray)
		return cmpBytes(sa.At(ia), sb.At(ib))
	default:
		return 0
	}
}

type ordered interface{ ~int32 | ~int64 | ~float64 }

func cmpOrdered[T ordered](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func cmpBool(a, b bool) int {
	switch {
	case a == b:
		return 0
	case !a:
		return -1
	default:
		return 1
	}
}

func cmpBytes(a, b []byte) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	default:
		return 0
	}
}
