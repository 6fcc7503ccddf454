package memtable

import (
	"encoding/binary"
	"math"

	"github.com/coldb/coldb/pkg/array"
)

// appendValue pushes one raw row value (nil, bool, int32, int64, float64,
// []byte, or []float64, per the column's physical kind) into a builder.
func appendValue(b array.Builder, v any) {
	if v == nil {
		b.AppendNull()
		return
	}
	switch bb := b.(type) {
	case *array.PrimitiveBuilder[bool]:
		bb.Append(v.(bool))
	case *array.PrimitiveBuilder[int32]:
		bb.Append(v.(int32))
	case *array.PrimitiveBuilder[int64]:
		bb.Append(v.(int64))
	case *array.PrimitiveBuilder[float64]:
		bb.Append(v.(float64))
	case *array.BytesBuilder:
		switch vv := v.(type) {
		case []byte:
			bb.Append(vv)
		case string:
			bb.Append([]byte(vv))
		}
	case *array.FixedCharBuilder:
		bb.Append(v.([]byte))
	case *array.VectorBuilder:
		bb.Append(v.([]float64))
	}
}

// copyRow appends one row of src at index i into dst, used by the unsorted
// memtable's wholesale chunk copy.
func copyRow(dst array.Builder, src array.Array, i int) {
	if !src.IsValid(i) {
		dst.AppendNull()
		return
	}
	switch s := src.(type) {
	case *array.PrimitiveArray[bool]:
		dst.(*array.PrimitiveBuilder[bool]).Append(s.Values[i])
	case *array.PrimitiveArray[int32]:
		dst.(*array.PrimitiveBuilder[int32]).Append(s.Values[i])
	case *array.PrimitiveArray[int64]:
		dst.(*array.PrimitiveBuilder[int64]).Append(s.Values[i])
	case *array.PrimitiveArray[float64]:
		dst.(*array.PrimitiveBuilder[float64]).Append(s.Values[i])
	case *array.BytesArray:
		dst.(*array.BytesBuilder).Append(s.At(i))
	case *array.FixedCharArray:
		dst.(*array.FixedCharBuilder).Append(s.At(i))
	case *array.VectorArray:
		dst.(*array.VectorBuilder).Append(s.At(i))
	}
}

// sortKeyOf encodes a raw row value into a byte-lexicographic sort key.
// For int32, int64 and string/blob values the encoding matches
// pkg/storage/column/firstkey.go's, so the sorted memtable's btree orders
// rows exactly as the flushed column's first_key index will; firstkey.go
// records no first key for float or bool columns. Nil sorts first.
func sortKeyOf(v any) []byte {
	if v == nil {
		return nil
	}
	switch vv := v.(type) {
	case int32:
		buf := make([]byte, 4)
		binary.BigEndian.PutUint32(buf, uint32(vv)^0x80000000)
		return buf
	case int64:
		buf := make([]byte, 8)
		binary.BigEndian.PutUint64(buf, uint64(vv)^0x8000000000000000)
		return buf
	case float64:
		bits := math.Float64bits(vv)
		if vv >= 0 {
			bits ^= 0x8000000000000000
		} else {
			bits = ^bits
		}
		buf := make([]byte, 8)
		binary.BigEndian.PutUint64(buf, bits)
		return buf
	case string:
		return []byte(vv)
	case []byte:
		return append([]byte(nil), vv...)
	default:
		return nil
	}
}
