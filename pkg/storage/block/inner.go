package block

import "github.com/coldb/coldb/pkg/array"

// innerBuilder is the contract spec.md §4.1 describes as the "additional"
// surface of non-nullable inner builders: append_value/append_default plus
// the size/statistics hooks a NullableBuilder (or an un-wrapped, NOT NULL
// column) needs to drive it. PlainPrimitiveBuilder, RLEBuilder, DictBuilder
// and PlainVarcharBuilder all satisfy it, so they can wrap one another
// (RLE over Plain, Dict over RLE-of-codes, Nullable over any of them).
type innerBuilder[T any] interface {
	AppendValue(v T) error
	AppendDefault()
	EstimatedSize() int64
	EstimatedSizeWithNext(v T) int64
	IsEmpty() bool
	// Statistics receives the validity bitmap so it can skip nulled slots
	// when computing min/max and distinct counts; pass nil when unwrapped.
	Statistics(valid *array.Bitmap) []Statistic
	Finish() []byte
	BlockType() Type
}

// innerIterator is the read-side counterpart: NextBatch decodes up to
// `want` logical values into dst (via dst.Append; a NullableIterator's
// sink turns rows its validity bitmap marks as null into AppendNull
// calls), returning how many were produced.
type innerIterator[T any] interface {
	NextBatch(want int, dst innerSink[T]) int
	Skip(n int)
	RemainingItems() int
}

// innerSink is what an innerIterator writes decoded values into. The outer
// iterators in outer.go supply it (valueOnlySink, nullAwareSink), each
// forwarding values to an OuterSink such as an array builder.
type innerSink[T any] interface {
	Append(v T)
}
