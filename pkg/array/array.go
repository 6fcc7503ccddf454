package array

// Array is a typed, length-N contiguous vector plus a valid-bit bitmap.
// Arrays are immutable once built.
type Array interface {
	Len() int
	Type() DataType
	IsValid(i int) bool
	Validity() *Bitmap // nil means "all valid"
}

// Number is the set of primitive scalar kinds stored as fixed-width arrays.
type Number interface {
	~bool | ~int32 | ~int64 | ~float64
}

// PrimitiveArray backs Bool, Int32, Int64, Float64, Date and Decimal (as
// int64) and Interval (as int64) columns: all of these collapse to one of
// four physical widths.
type PrimitiveArray[T Number] struct {
	typ    DataType
	Values []T
	valid  *Bitmap
}

func NewPrimitiveArray[T Number](typ DataType, values []T, valid *Bitmap) *PrimitiveArray[T] {
	return &PrimitiveArray[T]{typ: typ, Values: values, valid: valid}
}

func (a *PrimitiveArray[T]) Len() int        { return len(a.Values) }
func (a *PrimitiveArray[T]) Type() DataType  { return a.typ }
func (a *PrimitiveArray[T]) Validity() *Bitmap { return a.valid }
func (a *PrimitiveArray[T]) IsValid(i int) bool {
	if a.valid == nil {
		return true
	}
	return a.valid.Get(i)
}

// BytesArray backs String and Blob columns: offset[i] is the end of
// element i, element 0 spans [0, offset[0]).
type BytesArray struct {
	typ     DataType
	Offsets []uint32
	Data    []byte
	valid   *Bitmap
}

func NewBytesArray(typ DataType, offsets []uint32, data []byte, valid *Bitmap) *BytesArray {
	return &BytesArray{typ: typ, Offsets: offsets, Data: data, valid: valid}
}

func (a *BytesArray) Len() int         { return len(a.Offsets) }
func (a *BytesArray) Type() DataType   { return a.typ }
func (a *BytesArray) Validity() *Bitmap { return a.valid }
func (a *BytesArray) IsValid(i int) bool {
	if a.valid == nil {
		return true
	}
	return a.valid.Get(i)
}

func (a *BytesArray) At(i int) []byte {
	start := uint32(0)
	if i > 0 {
		start = a.Offsets[i-1]
	}
	return a.Data[start:a.Offsets[i]]
}

// FixedCharArray backs char(w) columns: every element occupies exactly
// Width bytes, right-padded with \0.
type FixedCharArray struct {
	typ   DataType
	Width int
	Data  []byte
	valid *Bitmap
}

func NewFixedCharArray(typ DataType, width int, data []byte, valid *Bitmap) *FixedCharArray {
	return &FixedCharArray{typ: typ, Width: width, Data: data, valid: valid}
}

func (a *FixedCharArray) Len() int         { return len(a.Data) / a.Width }
func (a *FixedCharArray) Type() DataType   { return a.typ }
func (a *FixedCharArray) Validity() *Bitmap { return a.valid }
func (a *FixedCharArray) IsValid(i int) bool {
	if a.valid == nil {
		return true
	}
	return a.valid.Get(i)
}

func (a *FixedCharArray) At(i int) []byte {
	return a.Data[i*a.Width : (i+1)*a.Width]
}

// VectorArray backs fixed-dimension Vector(dim) columns.
type VectorArray struct {
	typ   DataType
	Dim   int
	Data  []float64 // len = N*Dim
	valid *Bitmap
}

func NewVectorArray(typ DataType, dim int, data []float64, valid *Bitmap) *VectorArray {
	return &VectorArray{typ: typ, Dim: dim, Data: data, valid: valid}
}

func (a *VectorArray) Len() int         { return len(a.Data) / a.Dim }
func (a *VectorArray) Type() DataType   { return a.typ }
func (a *VectorArray) Validity() *Bitmap { return a.valid }
func (a *VectorArray) IsValid(i int) bool {
	if a.valid == nil {
		return true
	}
	return a.valid.Get(i)
}

func (a *VectorArray) At(i int) []float64 {
	return a.Data[i*a.Dim : (i+1)*a.Dim]
}
