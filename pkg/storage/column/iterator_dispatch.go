package column

import (
	"github.com/coldb/coldb/pkg/array"
	"github.com/coldb/coldb/pkg/catalog"
	"github.com/coldb/coldb/pkg/storage/block"
)

// stringBytesSink adapts array.BytesBuilder (Append([]byte)) to
// block.OuterSink[string], mirroring block.stringVarcharBuilder on the
// write side: the column-level element type for String/Blob is `string`
// (comparable, so RLE/Dict can wrap it) even though the backing array
// builder stores raw bytes.
type stringBytesSink struct{ b *array.BytesBuilder }

func (s stringBytesSink) Append(v string) { s.b.Append([]byte(v)) }
func (s stringBytesSink) AppendNull()     { s.b.AppendNull() }

// NewIterator dispatches on the table column's physical kind to the right
// concrete column iterator, seeking to startRowID (spec.md §4.2).
func NewIterator(col catalog.ColumnCatalog, entries []Entry, source BlockSource, startRowID uint32) (Iterator, error) {
	typ := col.Type
	switch typ.Kind.Physical() {
	case array.PhysBool:
		return newGenIterator[bool](entries, source, startRowID, block.NewBoolOuterIterator,
			func() (block.OuterSink[bool], func() array.Array) {
				b := array.NewPrimitiveBuilder[bool](typ)
				return b, func() array.Array { return b.Finish() }
			})
	case array.PhysI32:
		return newGenIterator[int32](entries, source, startRowID, block.NewInt32OuterIterator,
			func() (block.OuterSink[int32], func() array.Array) {
				b := array.NewPrimitiveBuilder[int32](typ)
				return b, func() array.Array { return b.Finish() }
			})
	case array.PhysI64:
		return newGenIterator[int64](entries, source, startRowID, block.NewInt64OuterIterator,
			func() (block.OuterSink[int64], func() array.Array) {
				b := array.NewPrimitiveBuilder[int64](typ)
				return b, func() array.Array { return b.Finish() }
			})
	case array.PhysF64:
		return newGenIterator[float64](entries, source, startRowID, block.NewFloat64OuterIterator,
			func() (block.OuterSink[float64], func() array.Array) {
				b := array.NewPrimitiveBuilder[float64](typ)
				return b, func() array.Array { return b.Finish() }
			})
	case array.PhysVector:
		dim := typ.Dim
		return newGenIterator[[]float64](entries, source, startRowID,
			func(bt block.Type, body []byte, n int) (block.OuterIterator[[]float64], error) {
				return block.NewVectorOuterIterator(bt, body, dim)
			},
			func() (block.OuterSink[[]float64], func() array.Array) {
				b := array.NewVectorBuilder(typ, dim)
				return b, func() array.Array { return b.Finish() }
			})
	case array.PhysBytes:
		if typ.IsFixedChar() {
			width := typ.Width
			return newGenIterator[[]byte](entries, source, startRowID,
				func(bt block.Type, body []byte, n int) (block.OuterIterator[[]byte], error) {
					return block.NewFixedCharOuterIterator(bt, body, width)
				},
				func() (block.OuterSink[[]byte], func() array.Array) {
					b := array.NewFixedCharBuilder(typ, width)
					return b, func() array.Array { return b.Finish() }
				})
		}
		return newGenIterator[string](entries, source, startRowID, block.NewVarcharOuterIterator,
			func() (block.OuterSink[string], func() array.Array) {
				b := array.NewBytesBuilder(typ)
				return stringBytesSink{b}, func() array.Array { return b.Finish() }
			})
	default:
		return newGenIterator[string](entries, source, startRowID, block.NewVarcharOuterIterator,
			func() (block.OuterSink[string], func() array.Array) {
				b := array.NewBytesBuilder(typ)
				return stringBytesSink{b}, func() array.Array { return b.Finish() }
			})
	}
}

// NewFakeIterator yields n nulls for col without touching any block
// (spec.md §4.2 "fake iterator").
func NewFakeIterator(col catalog.ColumnCatalog, n int, startRowID uint32) Iterator {
	typ := col.Type
	switch typ.Kind.Physical() {
	case array.PhysBool:
		return newFakeColumnIterator[bool](n, startRowID, func() (block.OuterSink[bool], func() array.Array) {
			b := array.NewPrimitiveBuilder[bool](typ)
			return b, func() array.Array { return b.Finish() }
		})
	case array.PhysI32:
		return newFakeColumnIterator[int32](n, startRowID, func() (block.OuterSink[int32], func() array.Array) {
			b := array.NewPrimitiveBuilder[int32](typ)
			return b, func() array.Array { return b.Finish() }
		})
	case array.PhysI64:
		return newFakeColumnIterator[int64](n, startRowID, func() (block.OuterSink[int64], func() array.Array) {
			b := array.NewPrimitiveBuilder[int64](typ)
			return b, func() array.Array { return b.Finish() }
		})
	case array.PhysF64:
		return newFakeColumnIterator[float64](n, startRowID, func() (block.OuterSink[float64], func() array.Array) {
			b := array.NewPrimitiveBuilder[float64](typ)
			return b, func() array.Array { return b.Finish() }
		})
	case array.PhysVector:
		dim := typ.Dim
		return newFakeColumnIterator[[]float64](n, startRowID, func() (block.OuterSink[[]float64], func() array.Array) {
			b := array.NewVectorBuilder(typ, dim)
			return b, func() array.Array { return b.Finish() }
		})
	case array.PhysBytes:
		if typ.IsFixedChar() {
			width := typ.Width
			return newFakeColumnIterator[[]byte](n, startRowID, func() (block.OuterSink[[]byte], func() array.Array) {
				b := array.NewFixedCharBuilder(typ, width)
				return b, func() array.Array { return b.Finish() }
			})
		}
		return newFakeColumnIterator[string](n, startRowID, func() (block.OuterSink[string], func() array.Array) {
			b := array.NewBytesBuilder(typ)
			return stringBytesSink{b}, func() array.Array { return b.Finish() }
		})
	default:
		return newFakeColumnIterator[string](n, startRowID, func() (block.OuterSink[string], func() array.Array) {
			b := array.NewBytesBuilder(typ)
			return stringBytesSink{b}, func() array.Array { return b.Finish() }
		})
	}
}
