package column

import (
	"fmt"

	"github.com/coldb/coldb/pkg/array"
	"github.com/coldb/coldb/pkg/catalog"
	"github.com/coldb/coldb/pkg/storage/block"
	"github.com/coldb/coldb/pkg/storage/errs"
)

// NewBuilder dispatches on the table column's physical kind to the right
// concrete column builder, going through block's per-kind
// block-iterator-factory (spec.md §4.2) to wire Plain/RLE/Dict per
// opts.EncodeType and Nullable/Direct per the column catalog's
// nullability. char(w) and vector columns are always Plain: spec.md §3's
// block-type list never pairs RLE or Dict with them.
//
// Every extract closure below uses a comma-ok type assertion and returns
// *errs.ConversionError on a physical-kind mismatch (spec.md §7) instead
// of panicking.
func NewBuilder(col catalog.ColumnCatalog, opts BuilderOptions) Builder {
	opts.Nullable = col.Nullable
	opts.ColumnName = col.Name
	typ := col.Type
	switch typ.Kind.Physical() {
	case array.PhysBool:
		return newGenBuilder[bool](opts,
			func() block.OuterBuilder[bool] { return block.NewBoolOuterBuilder(opts.EncodeType, opts.Nullable) },
			func(arr array.Array, i int) (*bool, error) {
				pa, ok := arr.(*array.PrimitiveArray[bool])
				if !ok {
					return nil, &errs.ConversionError{From: fmt.Sprintf("%T", arr), To: "bool"}
				}
				if !pa.IsValid(i) {
					return nil, nil
				}
				v := pa.Values[i]
				return &v, nil
			}, nil)
	case array.PhysI32:
		return newGenBuilder[int32](opts,
			func() block.OuterBuilder[int32] { return block.NewInt32OuterBuilder(opts.EncodeType, opts.Nullable) },
			func(arr array.Array, i int) (*int32, error) {
				pa, ok := arr.(*array.PrimitiveArray[int32])
				if !ok {
					return nil, &errs.ConversionError{From: fmt.Sprintf("%T", arr), To: "int32"}
				}
				if !pa.IsValid(i) {
					return nil, nil
				}
				v := pa.Values[i]
				return &v, nil
			}, int32KeyOf)
	case array.PhysI64:
		return newGenBuilder[int64](opts,
			func() block.OuterBuilder[int64] { return block.NewInt64OuterBuilder(opts.EncodeType, opts.Nullable) },
			func(arr array.Array, i int) (*int64, error) {
				pa, ok := arr.(*array.PrimitiveArray[int64])
				if !ok {
					return nil, &errs.ConversionError{From: fmt.Sprintf("%T", arr), To: "int64"}
				}
				if !pa.IsValid(i) {
					return nil, nil
				}
				v := pa.Values[i]
				return &v, nil
			}, int64KeyOf)
	case array.PhysF64:
		return newGenBuilder[float64](opts,
			func() block.OuterBuilder[float64] { return block.NewFloat64OuterBuilder(opts.EncodeType, opts.Nullable) },
			func(arr array.Array, i int) (*float64, error) {
				pa, ok := arr.(*array.PrimitiveArray[float64])
				if !ok {
					return nil, &errs.ConversionError{From: fmt.Sprintf("%T", arr), To: "float64"}
				}
				if !pa.IsValid(i) {
					return nil, nil
				}
				v := pa.Values[i]
				return &v, nil
			}, nil)
	case array.PhysVector:
		dim := typ.Dim
		return newGenBuilder[[]float64](opts,
			func() block.OuterBuilder[[]float64] { return block.NewVectorOuterBuilder(dim, opts.Nullable) },
			func(arr array.Array, i int) (*[]float64, error) {
				va, ok := arr.(*array.VectorArray)
				if !ok {
					return nil, &errs.ConversionError{From: fmt.Sprintf("%T", arr), To: "vector"}
				}
				if !va.IsValid(i) {
					return nil, nil
				}
				v := va.At(i)
				return &v, nil
			}, nil)
	case array.PhysBytes:
		if typ.IsFixedChar() {
			width := typ.Width
			return newGenBuilder[[]byte](opts,
				func() block.OuterBuilder[[]byte] { return block.NewFixedCharOuterBuilder(width, opts.Nullable) },
				func(arr array.Array, i int) (*[]byte, error) {
					fa, ok := arr.(*array.FixedCharArray)
					if !ok {
						return nil, &errs.ConversionError{From: fmt.Sprintf("%T", arr), To: "fixedchar"}
					}
					if !fa.IsValid(i) {
						return nil, nil
					}
					v := fa.At(i)
					return &v, nil
				}, bytesKeyOf)
		}
		return newGenBuilder[string](opts,
			func() block.OuterBuilder[string] { return block.NewVarcharOuterBuilder(opts.EncodeType, opts.Nullable) },
			func(arr array.Array, i int) (*string, error) {
				ba, ok := arr.(*array.BytesArray)
				if !ok {
					return nil, &errs.ConversionError{From: fmt.Sprintf("%T", arr), To: "varchar"}
				}
				if !ba.IsValid(i) {
					return nil, nil
				}
				s := string(ba.At(i))
				return &s, nil
			}, stringKeyOf)
	default:
		return newGenBuilder[string](opts,
			func() block.OuterBuilder[string] { return block.NewVarcharOuterBuilder(opts.EncodeType, opts.Nullable) },
			func(arr array.Array, i int) (*string, error) {
				ba, ok := arr.(*array.BytesArray)
				if !ok {
					return nil, &errs.ConversionError{From: fmt.Sprintf("%T", arr), To: "varchar"}
				}
				if !ba.IsValid(i) {
					return nil, nil
				}
				s := string(ba.At(i))
				return &s, nil
			}, stringKeyOf)
	}
}
