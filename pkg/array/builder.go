package array

// Builder accumulates values one at a time (or by wholesale append of
// another array) and produces an immutable Array.
type Builder interface {
	Len() int
	AppendNull()
	Finish() Array
}

// PrimitiveBuilder builds a PrimitiveArray[T].
type PrimitiveBuilder[T Number] struct {
	typ    DataType
	values []T
	valid  []bool
	anyNull bool
}

func NewPrimitiveBuilder[T Number](typ DataType) *PrimitiveBuilder[T] {
	return &PrimitiveBuilder[T]{typ: typ}
}

func (b *PrimitiveBuilder[T]) Len() int { return len(b.values) }

func (b *PrimitiveBuilder[T]) Append(v T) {
	b.values = append(b.values, v)
	b.valid = append(b.valid, true)
}

func (b *PrimitiveBuilder[T]) AppendNull() {
	var zero T
	b.values = append(b.values, zero)
	b.valid = append(b.valid, false)
	b.anyNull = true
}

// AppendArray copies another array of the same type wholesale.
func (b *PrimitiveBuilder[T]) AppendArray(a *PrimitiveArray[T]) {
	for i := 0; i < a.Len(); i++ {
		if a.IsValid(i) {
			b.Append(a.Values[i])
		} else {
			b.AppendNull()
		}
	}
}

func (b *PrimitiveBuilder[T]) Finish() Array {
	var valid *Bitmap
	if b.anyNull {
		valid = NewBitmap(len(b.valid), false)
		for i, v := range b.valid {
			valid.Set(i, v)
		}
	}
	values := b.values
	b.values, b.valid, b.anyNull = nil, nil, false
	return NewPrimitiveArray(b.typ, values, valid)
}

// BytesBuilder builds a BytesArray (String or Blob).
type BytesBuilder struct {
	typ     DataType
	offsets []uint32
	data    []byte
	valid   []bool
	anyNull bool
}

func NewBytesBuilder(typ DataType) *BytesBuilder { return &BytesBuilder{typ: typ} }

func (b *BytesBuilder) Len() int { return len(b.offsets) }

func (b *BytesBuilder) Append(v []byte) {
	b.data = append(b.data, v...)
	b.offsets = append(b.offsets, uint32(len(b.data)))
	b.valid = append(b.valid, true)
}

func (b *BytesBuilder) AppendNull() {
	b.offsets = append(b.offsets, uint32(len(b.data)))
	b.valid = append(b.valid, false)
	b.anyNull = true
}

func (b *BytesBuilder) AppendArray(a *BytesArray) {
	for i := 0; i < a.Len(); i++ {
		if a.IsValid(i) {
			b.Append(a.At(i))
		} else {
			b.AppendNull()
		}
	}
}

func (b *BytesBuilder) Finish() Array {
	var valid *Bitmap
	if b.anyNull {
		valid = NewBitmap(len(b.valid), false)
		for i, v := range b.valid {
			valid.Set(i, v)
		}
	}
	offsets, data := b.offsets, b.data
	b.offsets, b.data, b.valid, b.anyNull = nil, nil, nil, false
	return NewBytesArray(b.typ, offsets, data, valid)
}

// FixedCharBuilder builds a FixedCharArray.
type FixedCharBuilder struct {
	typ     DataType
	width   int
	data    []byte
	valid   []bool
	anyNull bool
}

func NewFixedCharBuilder(typ DataType, width int) *FixedCharBuilder {
	return &FixedCharBuilder{typ: typ, width: width}
}

func (b *FixedCharBuilder) Len() int { return len(b.data) / b.width }

func (b *FixedCharBuilder) Append(v []byte) {
	padded := make([]byte, b.width)
	copy(padded, v)
	b.data = append(b.data, padded...)
	b.valid = append(b.valid, true)
}

func (b *FixedCharBuilder) AppendNull() {
	b.data = append(b.data, make([]byte, b.width)...)
	b.valid = append(b.valid, false)
	b.anyNull = true
}

func (b *FixedCharBuilder) Finish() Array {
	var valid *Bitmap
	if b.anyNull {
		valid = NewBitmap(len(b.valid), false)
		for i, v := range b.valid {
			valid.Set(i, v)
		}
	}
	data := b.data
	b.data, b.valid, b.anyNull = nil, nil, false
	return NewFixedCharArray(b.typ, b.width, data, valid)
}

// VectorBuilder builds a VectorArray.
type VectorBuilder struct {
	typ     DataType
	dim     int
	data    []float64
	valid   []bool
	anyNull bool
}

func NewVectorBuilder(typ DataType, dim int) *VectorBuilder {
	return &VectorBuilder{typ: typ, dim: dim}
}

func (b *VectorBuilder) Len() int { return len(b.data) / b.dim }

func (b *VectorBuilder) Append(v []float64) {
	b.data = append(b.data, v...)
	b.valid = append(b.valid, true)
}

func (b *VectorBuilder) AppendNull() {
	b.data = append(b.data, make([]float64, b.dim)...)
	b.valid = append(b.valid, false)
	b.anyNull = true
}

func (b *VectorBuilder) Finish() Array {
	var valid *Bitmap
	if b.anyNull {
		valid = NewBitmap(len(b.valid), false)
		for i, v := range b.valid {
			valid.Set(i, v)
		}
	}
	data := b.data
	b.data, b.valid, b.anyNull = nil, nil, false
	return NewVectorArray(b.typ, b.dim, data, valid)
}

// NewBuilder dispatches on DataType to the right concrete builder,
// returning it as the generic Builder interface boundary.
func NewBuilder(typ DataType) Builder {
	switch typ.Kind.Physical() {
	case PhysBool:
		return NewPrimitiveBuilder[bool](typ)
	case PhysI32:
		return NewPrimitiveBuilder[int32](typ)
	case PhysI64:
		return NewPrimitiveBuilder[int64](typ)
	case PhysF64:
		return NewPrimitiveBuilder[float64](typ)
	case PhysVector:
		return NewVectorBuilder(typ, typ.Dim)
	case PhysBytes:
		if typ.IsFixedChar() {
			return NewFixedCharBuilder(typ, typ.Width)
		}
		return NewBytesBuilder(typ)
	default:
		return NewBytesBuilder(typ)
	}
}
