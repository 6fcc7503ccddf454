package block

import (
	"github.com/coldb/coldb/pkg/storage/config"
	"github.com/coldb/coldb/pkg/storage/errs"
)

// The New*OuterBuilder/New*OuterIterator functions below are the
// block-iterator-factory of spec.md §4.2: one pair per physical kind,
// each picking Plain/RLE/Dict per config.EncodeType and wrapping it with
// Nullable or Direct per the column's nullability. Column builders and
// iterators never construct a codec directly; they go through these.

func NewBoolOuterBuilder(enc config.EncodeType, nullable bool) OuterBuilder[bool] {
	var inner innerBuilder[bool]
	switch enc {
	case config.EncodeRunLength:
		inner = NewRLEBoolBuilder()
	case config.EncodeDictionary:
		inner = NewDictBoolBuilder()
	default:
		inner = NewPlainBoolBuilder()
	}
	if nullable {
		return NewNullableBuilder[bool](inner)
	}
	return NewDirectBuilder[bool](inner)
}

func NewInt32OuterBuilder(enc config.EncodeType, nullable bool) OuterBuilder[int32] {
	var inner innerBuilder[int32]
	switch enc {
	case config.EncodeRunLength:
		inner = NewRLEInt32Builder()
	case config.EncodeDictionary:
		inner = NewDictInt32Builder()
	default:
		inner = NewPlainInt32Builder()
	}
	if nullable {
		return NewNullableBuilder[int32](inner)
	}
	return NewDirectBuilder[int32](inner)
}

func NewInt64OuterBuilder(enc config.EncodeType, nullable bool) OuterBuilder[int64] {
	var inner innerBuilder[int64]
	switch enc {
	case config.EncodeRunLength:
		inner = NewRLEInt64Builder()
	case config.EncodeDictionary:
		inner = NewDictInt64Builder()
	default:
		inner = NewPlainInt64Builder()
	}
	if nullable {
		return NewNullableBuilder[int64](inner)
	}
	return NewDirectBuilder[int64](inner)
}

func NewFloat64OuterBuilder(enc config.EncodeType, nullable bool) OuterBuilder[float64] {
	var inner innerBuilder[float64]
	switch enc {
	case config.EncodeRunLength:
		inner = NewRLEFloat64Builder()
	case config.EncodeDictionary:
		inner = NewDictFloat64Builder()
	default:
		inner = NewPlainFloat64Builder()
	}
	if nullable {
		return NewNullableBuilder[float64](inner)
	}
	return NewDirectBuilder[float64](inner)
}

func NewVarcharOuterBuilder(enc config.EncodeType, nullable bool) OuterBuilder[string] {
	var inner innerBuilder[string]
	switch enc {
	case config.EncodeRunLength:
		inner = NewRLEVarcharBuilder()
	case config.EncodeDictionary:
		inner = NewDictVarcharBuilder()
	default:
		inner = NewPlainVarcharInner()
	}
	if nullable {
		return NewNullableBuilder[string](inner)
	}
	return NewDirectBuilder[string](inner)
}

func NewFixedCharOuterBuilder(width int, nullable bool) OuterBuilder[[]byte] {
	inner := NewPlainFixedCharBuilder(width)
	if nullable {
		return NewNullableBuilder[[]byte](inner)
	}
	return NewDirectBuilder[[]byte](inner)
}

func NewVectorOuterBuilder(dim int, nullable bool) OuterBuilder[[]float64] {
	inner := NewPlainVectorBuilder(dim)
	if nullable {
		return NewNullableBuilder[[]float64](inner)
	}
	return NewDirectBuilder[[]float64](inner)
}

// --- iterator-side dispatch, keyed by the persisted block Type tag ---

func boolInnerIterator(base Type, body []byte, n int) (innerIterator[bool], error) {
	switch base {
	case TypePlain:
		return NewPlainBoolIterator(body), nil
	case TypeRLE:
		return NewRLEBoolIterator(body), nil
	case TypeDict:
		return NewDictBoolIterator(body, n), nil
	default:
		return nil, &errs.DecodeError{Reason: "unexpected block type for bool column"}
	}
}

func NewBoolOuterIterator(bt Type, body []byte, n int) (OuterIterator[bool], error) {
	if bt.IsNullable() {
		var innerErr error
		it := NewNullableIterator[bool](body, func(ib []byte, rn int) innerIterator[bool] {
			var v innerIterator[bool]
			v, innerErr = boolInnerIterator(bt.Base(), ib, rn)
			return v
		})
		return it, innerErr
	}
	v, err := boolInnerIterator(bt.Base(), body, n)
	if err != nil {
		return nil, err
	}
	return NewDirectIterator[bool](v), nil
}

func int32InnerIterator(base Type, body []byte, n int) (innerIterator[int32], error) {
	switch base {
	case TypePlain:
		return NewPlainInt32Iterator(body), nil
	case TypeRLE:
		return NewRLEInt32Iterator(body), nil
	case TypeDict:
		return NewDictInt32Iterator(body, n), nil
	default:
		return nil, &errs.DecodeError{Reason: "unexpected block type for int32 column"}
	}
}

func NewInt32OuterIterator(bt Type, body []byte, n int) (OuterIterator[int32], error) {
	if bt.IsNullable() {
		var innerErr error
		it := NewNullableIterator[int32](body, func(ib []byte, rn int) innerIterator[int32] {
			var v innerIterator[int32]
			v, innerErr = int32InnerIterator(bt.Base(), ib, rn)
			return v
		})
		return it, innerErr
	}
	v, err := int32InnerIterator(bt.Base(), body, n)
	if err != nil {
		return nil, err
	}
	return NewDirectIterator[int32](v), nil
}

func int64InnerIterator(base Type, body []byte, n int) (innerIterator[int64], error) {
	switch base {
	case TypePlain:
		return NewPlainInt64Iterator(body), nil
	case TypeRLE:
		return NewRLEInt64Iterator(body), nil
	case TypeDict:
		return NewDictInt64Iterator(body, n), nil
	default:
		return nil, &errs.DecodeError{Reason: "unexpected block type for int64 column"}
	}
}

func NewInt64OuterIterator(bt Type, body []byte, n int) (OuterIterator[int64], error) {
	if bt.IsNullable() {
		var innerErr error
		it := NewNullableIterator[int64](body, func(ib []byte, rn int) innerIterator[int64] {
			var v innerIterator[int64]
			v, innerErr = int64InnerIterator(bt.Base(), ib, rn)
			return v
		})
		return it, innerErr
	}
	v, err := int64InnerIterator(bt.Base(), body, n)
	if err != nil {
		return nil, err
	}
	return NewDirectIterator[int64](v), nil
}

func float64InnerIterator(base Type, body []byte, n int) (innerIterator[float64], error) {
	switch base {
	case TypePlain:
		return NewPlainFloat64Iterator(body), nil
	case TypeRLE:
		return NewRLEFloat64Iterator(body), nil
	case TypeDict:
		return NewDictFloat64Iterator(body, n), nil
	default:
		return nil, &errs.DecodeError{Reason: "unexpected block type for float64 column"}
	}
}

func NewFloat64OuterIterator(bt Type, body []byte, n int) (OuterIterator[float64], error) {
	if bt.IsNullable() {
		var innerErr error
		it := NewNullableIterator[float64](body, func(ib []byte, rn int) innerIterator[float64] {
			var v innerIterator[float64]
			v, innerErr = float64InnerIterator(bt.Base(), ib, rn)
			return v
		})
		return it, innerErr
	}
	v, err := float64InnerIterator(bt.Base(), body, n)
	if err != nil {
		return nil, err
	}
	return NewDirectIterator[float64](v), nil
}

func varcharInnerIterator(base Type, body []byte, n int) (innerIterator[string], error) {
	switch base {
	case TypePlainVarchar:
		return NewStringVarcharIteratorN(body, n), nil
	case TypeRLE:
		return NewRLEVarcharIterator(body), nil
	case TypeDict:
		return NewDictVarcharIterator(body, n), nil
	default:
		return nil, &errs.DecodeError{Reason: "unexpected block type for varchar column"}
	}
}

func NewVarcharOuterIterator(bt Type, body []byte, n int) (OuterIterator[string], error) {
	if bt.IsNullable() {
		var innerErr error
		it := NewNullableIterator[string](body, func(ib []byte, rn int) innerIterator[string] {
			var v innerIterator[string]
			v, innerErr = varcharInnerIterator(bt.Base(), ib, rn)
			return v
		})
		return it, innerErr
	}
	v, err := varcharInnerIterator(bt.Base(), body, n)
	if err != nil {
		return nil, err
	}
	return NewDirectIterator[string](v), nil
}

func NewFixedCharOuterIterator(bt Type, body []byte, width int) (OuterIterator[[]byte], error) {
	if bt.IsNullable() {
		it := NewNullableIterator[[]byte](body, func(ib []byte, _ int) innerIterator[[]byte] {
			return NewPlainFixedCharIterator(ib, width)
		})
		return it, nil
	}
	return NewDirectIterator[[]byte](NewPlainFixedCharIterator(body, width)), nil
}

func NewVectorOuterIterator(bt Type, body []byte, dim int) (OuterIterator[[]float64], error) {
	if bt.IsNullable() {
		it := NewNullableIterator[[]float64](body, func(ib []byte, _ int) innerIterator[[]float64] {
			return NewPlainVectorIterator(ib, dim)
		})
		return it, nil
	}
	return NewDirectIterator[[]float64](NewPlainVectorIterator(body, dim)), nil
}
