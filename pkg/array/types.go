// Package array defines the typed columnar value vectors that flow through
// the executor layer and the column builders/iterators of pkg/storage.
package array

// Kind is the logical type of a column's values.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindInt32
	KindInt64
	KindFloat64
	KindDecimal
	KindString
	KindBlob
	KindDate
	KindInterval
	KindVector
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt32:
		return "int32"
	case KindInt64:
		return "int64"
	case KindFloat64:
		return "float64"
	case KindDecimal:
		return "decimal"
	case KindString:
		return "string"
	case KindBlob:
		return "blob"
	case KindDate:
		return "date"
	case KindInterval:
		return "interval"
	case KindVector:
		return "vector"
	default:
		return "unknown"
	}
}

// Physical is the storage-level family a Kind collapses to. Two Kinds that
// share a Physical value are interchangeable at the block-codec layer: a
// Decimal is stored exactly like an Int64, a Date exactly like an Int32.
type Physical int

const (
	PhysBool Physical = iota
	PhysI32
	PhysI64
	PhysF64
	PhysBytes      // String, Blob: offset+data
	PhysFixedChar  // fixed-width char(w)
	PhysVector     // fixed-dim []float64
)

func (k Kind) Physical() Physical {
	switch k {
	case KindBool:
		return PhysBool
	case KindInt32, KindDate:
		return PhysI32
	case KindInt64, KindDecimal, KindInterval:
		return PhysI64
	case KindFloat64:
		return PhysF64
	case KindString, KindBlob:
		return PhysBytes
	case KindVector:
		return PhysVector
	default:
		return PhysI32
	}
}

// DataType describes one column's type fully: kind, nullability and the
// type parameters that affect physical layout (decimal scale, char width,
// vector dimension).
type DataType struct {
	Kind      Kind
	Nullable  bool
	Precision int // Decimal
	Scale     int // Decimal
	Width     int // fixed char width, 0 = not fixed-char
	Dim       int // Vector dimension
}

func Bool(nullable bool) DataType     { return DataType{Kind: KindBool, Nullable: nullable} }
func Int32(nullable bool) DataType    { return DataType{Kind: KindInt32, Nullable: nullable} }
func Int64(nullable bool) DataType    { return DataType{Kind: KindInt64, Nullable: nullable} }
func Float64(nullable bool) DataType  { return DataType{Kind: KindFloat64, Nullable: nullable} }
func String(nullable bool) DataType   { return DataType{Kind: KindString, Nullable: nullable} }
func Blob(nullable bool) DataType     { return DataType{Kind: KindBlob, Nullable: nullable} }
func Date(nullable bool) DataType     { return DataType{Kind: KindDate, Nullable: nullable} }
func Interval(nullable bool) DataType { return DataType{Kind: KindInterval, Nullable: nullable} }

func Decimal(precision, scale int, nullable bool) DataType {
	return DataType{Kind: KindDecimal, Nullable: nullable, Precision: precision, Scale: scale}
}

func FixedChar(width int, nullable bool) DataType {
	return DataType{Kind: KindString, Nullable: nullable, Width: width}
}

func Vector(dim int, nullable bool) DataType {
	return DataType{Kind: KindVector, Nullable: nullable, Dim: dim}
}

// IsFixedChar reports whether this string column is a fixed-width char(w)
// rather than a variable-width varchar.
func (t DataType) IsFixedChar() bool {
	return t.Kind == KindString && t.Width > 0
}
