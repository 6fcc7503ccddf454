package block

// Per-physical-kind constructors for the four primitive codecs. primCodec
// itself stays unexported; these give other packages (column) a typed
// entry point without having to name it.

func NewPlainBoolBuilder() *PlainPrimitiveBuilder[bool] {
	return NewPlainPrimitiveBuilder[bool](boolCodec)
}
func NewPlainInt32Builder() *PlainPrimitiveBuilder[int32] {
	return NewPlainPrimitiveBuilder[int32](int32Codec)
}
func NewPlainInt64Builder() *PlainPrimitiveBuilder[int64] {
	return NewPlainPrimitiveBuilder[int64](int64Codec)
}
func NewPlainFloat64Builder() *PlainPrimitiveBuilder[float64] {
	return NewPlainPrimitiveBuilder[float64](float64Codec)
}

func NewPlainBoolIterator(body []byte) *PlainPrimitiveIterator[bool] {
	return NewPlainPrimitiveIterator[bool](boolCodec, body)
}
func NewPlainInt32Iterator(body []byte) *PlainPrimitiveIterator[int32] {
	return NewPlainPrimitiveIterator[int32](int32Codec, body)
}
func NewPlainInt64Iterator(body []byte) *PlainPrimitiveIterator[int64] {
	return NewPlainPrimitiveIterator[int64](int64Codec, body)
}
func NewPlainFloat64Iterator(body []byte) *PlainPrimitiveIterator[float64] {
	return NewPlainPrimitiveIterator[float64](float64Codec, body)
}

func NewRLEBoolBuilder() *RLEBuilder[bool]       { return NewRLEBuilder[bool](NewPlainBoolBuilder()) }
func NewRLEInt32Builder() *RLEBuilder[int32]     { return NewRLEBuilder[int32](NewPlainInt32Builder()) }
func NewRLEInt64Builder() *RLEBuilder[int64]     { return NewRLEBuilder[int64](NewPlainInt64Builder()) }
func NewRLEFloat64Builder() *RLEBuilder[float64] { return NewRLEBuilder[float64](NewPlainFloat64Builder()) }

func NewRLEBoolIterator(body []byte) *RLEIterator[bool] {
	return NewRLEIterator[bool](body, func(rb []byte, _ int) innerIterator[bool] { return NewPlainBoolIterator(rb) })
}
func NewRLEInt32Iterator(body []byte) *RLEIterator[int32] {
	return NewRLEIterator[int32](body, func(rb []byte, _ int) innerIterator[int32] { return NewPlainInt32Iterator(rb) })
}
func NewRLEInt64Iterator(body []byte) *RLEIterator[int64] {
	return NewRLEIterator[int64](body, func(rb []byte, _ int) innerIterator[int64] { return NewPlainInt64Iterator(rb) })
}
func NewRLEFloat64Iterator(body []byte) *RLEIterator[float64] {
	return NewRLEIterator[float64](body, func(rb []byte, _ int) innerIterator[float64] { return NewPlainFloat64Iterator(rb) })
}

func NewDictBoolBuilder() *DictBuilder[bool]       { return NewDictBuilder[bool](NewPlainBoolBuilder()) }
func NewDictInt32Builder() *DictBuilder[int32]     { return NewDictBuilder[int32](NewPlainInt32Builder()) }
func NewDictInt64Builder() *DictBuilder[int64]     { return NewDictBuilder[int64](NewPlainInt64Builder()) }
func NewDictFloat64Builder() *DictBuilder[float64] { return NewDictBuilder[float64](NewPlainFloat64Builder()) }

func NewDictBoolIterator(body []byte, n int) *DictIterator[bool] {
	return NewDictIterator[bool](body, n, func(vb []byte, _ int) innerIterator[bool] { return NewPlainBoolIterator(vb) })
}
func NewDictInt32Iterator(body []byte, n int) *DictIterator[int32] {
	return NewDictIterator[int32](body, n, func(vb []byte, _ int) innerIterator[int32] { return NewPlainInt32Iterator(vb) })
}
func NewDictInt64Iterator(body []byte, n int) *DictIterator[int64] {
	return NewDictIterator[int64](body, n, func(vb []byte, _ int) innerIterator[int64] { return NewPlainInt64Iterator(vb) })
}
func NewDictFloat64Iterator(body []byte, n int) *DictIterator[float64] {
	return NewDictIterator[float64](body, n, func(vb []byte, _ int) innerIterator[float64] { return NewPlainFloat64Iterator(vb) })
}

func NewPlainVarcharInner() *stringVarcharBuilder { return NewStringVarcharBuilder() }
func NewRLEVarcharBuilder() *RLEBuilder[string]   { return NewRLEBuilder[string](NewPlainVarcharInner()) }
func NewDictVarcharBuilder() *DictBuilder[string] { return NewDictBuilder[string](NewPlainVarcharInner()) }

// NewRLEVarcharIterator decodes an RLE-over-varchar block. The inner
// varchar iterator is sized by the number of runs, not the logical row
// count (RemainingItems() reports the logical row count once the count
// stream is parsed).
func NewRLEVarcharIterator(body []byte) *RLEIterator[string] {
	return NewRLEIterator[string](body, func(rb []byte, runCount int) innerIterator[string] {
		return NewStringVarcharIteratorN(rb, runCount)
	})
}

func NewDictVarcharIterator(body []byte, n int) *DictIterator[string] {
	return NewDictIterator[string](body, n, func(vb []byte, distinctCount int) innerIterator[string] {
		return NewStringVarcharIteratorN(vb, distinctCount)
	})
}
