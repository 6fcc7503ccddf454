package block

import (
	"encoding/binary"

	"github.com/coldb/coldb/pkg/array"
)

// OuterBuilder is the full BlockBuilder<A> contract of spec.md §4.1:
// Append(*T), EstimatedSize, ShouldFinish, Statistics, Finish, BlockType.
// Every concrete column builder is a DirectBuilder or NullableBuilder over
// one of Plain/RLE/Dict/Varchar/FixedChar/Vector's inner builder.
type OuterBuilder[T any] interface {
	Append(v *T) error
	EstimatedSize() int64
	ShouldFinish(next *T, targetSize int64) bool
	Statistics() []Statistic
	Finish() []byte
	BlockType() Type
}

// DirectBuilder is the non-nullable outer wrapper: a NOT NULL column backed
// directly by its inner codec, with no validity bitmap in the block body.
type DirectBuilder[T any] struct {
	inner innerBuilder[T]
}

func NewDirectBuilder[T any](inner innerBuilder[T]) *DirectBuilder[T] {
	return &DirectBuilder[T]{inner: inner}
}

func (b *DirectBuilder[T]) Append(v *T) error {
	if v == nil {
		b.inner.AppendDefault()
		return nil
	}
	return b.inner.AppendValue(*v)
}

func (b *DirectBuilder[T]) EstimatedSize() int64 { return b.inner.EstimatedSize() }

func (b *DirectBuilder[T]) ShouldFinish(next *T, targetSize int64) bool {
	if b.inner.IsEmpty() {
		return false
	}
	var zero T
	v := zero
	if next != nil {
		v = *next
	}
	return b.inner.EstimatedSizeWithNext(v) > targetSize
}

func (b *DirectBuilder[T]) Statistics() []Statistic { return b.inner.Statistics(nil) }

func (b *DirectBuilder[T]) Finish() []byte { return b.inner.Finish() }

func (b *DirectBuilder[T]) BlockType() Type { return b.inner.BlockType() }

// NullableBuilder wraps any inner non-nullable builder with an explicit
// validity bitmap (spec.md §4.1 "Plain nullable (wrapper)"): a null row
// pushes a placeholder (AppendDefault) into the inner builder so the inner
// codec never has to reason about nulls itself, and records the row's
// validity in a side bitmap instead of relying on the inner codec to
// reconstruct it. Layout: <inner-data-bytes><bitmap-bytes><bitmap-len:u32-le>.
type NullableBuilder[T any] struct {
	inner innerBuilder[T]
	valid []bool
}

func NewNullableBuilder[T any](inner innerBuilder[T]) *NullableBuilder[T] {
	return &NullableBuilder[T]{inner: inner}
}

func (b *NullableBuilder[T]) Append(v *T) error {
	if v == nil {
		b.inner.AppendDefault()
		b.valid = append(b.valid, false)
		return nil
	}
	if err := b.inner.AppendValue(*v); err != nil {
		return err
	}
	b.valid = append(b.valid, true)
	return nil
}

func bitmapByteLen(n int) int64 { return int64(((n + 63) / 64) * 8) }

func (b *NullableBuilder[T]) EstimatedSize() int64 {
	return b.inner.EstimatedSize() + bitmapByteLen(len(b.valid)) + 4
}

func (b *NullableBuilder[T]) ShouldFinish(next *T, targetSize int64) bool {
	if b.inner.IsEmpty() {
		return false
	}
	var zero T
	v := zero
	if next != nil {
		v = *next
	}
	bitmapBytes := bitmapByteLen(len(b.valid)+1) + 4
	return b.inner.EstimatedSizeWithNext(v)+bitmapBytes > targetSize
}

func (b *NullableBuilder[T]) bitmap() *array.Bitmap {
	bm := array.NewBitmap(len(b.valid), false)
	for i, v := range b.valid {
		bm.Set(i, v)
	}
	return bm
}

func (b *NullableBuilder[T]) Statistics() []Statistic { return b.inner.Statistics(b.bitmap()) }

func (b *NullableBuilder[T]) Finish() []byte {
	inner := b.inner.Finish()
	bm := b.bitmap()
	bmBytes := bm.Bytes()

	out := make([]byte, 0, len(inner)+len(bmBytes)+4)
	out = append(out, inner...)
	out = append(out, bmBytes...)
	var lenBytes [4]byte
	binary.LittleEndian.PutUint32(lenBytes[:], uint32(len(b.valid)))
	out = append(out, lenBytes[:]...)

	b.valid = nil
	return out
}

func (b *NullableBuilder[T]) BlockType() Type { return b.inner.BlockType() | NullableFlag }

// OuterIterator is the full BlockIterator<A> contract: decode into an
// array.Builder-shaped sink that accepts both values and explicit nulls.
type OuterIterator[T any] interface {
	NextBatch(want int, dst OuterSink[T]) int
	Skip(n int)
	RemainingItems() int
}

// OuterSink receives decoded rows, nulls included.
type OuterSink[T any] interface {
	Append(v T)
	AppendNull()
}

// DirectIterator decodes a non-nullable block: every row is valid.
type DirectIterator[T any] struct {
	inner innerIterator[T]
}

func NewDirectIterator[T any](inner innerIterator[T]) *DirectIterator[T] {
	return &DirectIterator[T]{inner: inner}
}

type valueOnlySink[T any] struct{ dst OuterSink[T] }

func (s valueOnlySink[T]) Append(v T) { s.dst.Append(v) }

func (it *DirectIterator[T]) NextBatch(want int, dst OuterSink[T]) int {
	return it.inner.NextBatch(want, valueOnlySink[T]{dst})
}

func (it *DirectIterator[T]) Skip(n int) { it.inner.Skip(n) }

func (it *DirectIterator[T]) RemainingItems() int { return it.inner.RemainingItems() }

// NullableIterator decodes the inner builder, then overwrites the output's
// validity per-row from the persisted bitmap instead of trusting whatever
// placeholder value the inner codec produced for a null row.
type NullableIterator[T any] struct {
	inner innerIterator[T]
	valid *array.Bitmap
	pos   int
}

// NewNullableIterator splits a nullable block body (produced by
// NullableBuilder.Finish) into the inner body and validity bitmap, and
// wraps it with an inner iterator built by newInner.
func NewNullableIterator[T any](body []byte, newInner func(innerBody []byte, n int) innerIterator[T]) *NullableIterator[T] {
	n := int(binary.LittleEndian.Uint32(body[len(body)-4:]))
	bmLen := ((n + 63) / 64) * 8 // word-aligned, matching array.Bitmap.Bytes()
	bmBytes := body[len(body)-4-bmLen : len(body)-4]
	innerBody := body[:len(body)-4-bmLen]
	valid := array.BitmapFromBytes(bmBytes, n)
	return &NullableIterator[T]{inner: newInner(innerBody, n), valid: valid}
}

type nullAwareSink[T any] struct {
	dst   OuterSink[T]
	valid *array.Bitmap
	pos   *int
}

func (s nullAwareSink[T]) Append(v T) {
	if s.valid.Get(*s.pos) {
		s.dst.Append(v)
	} else {
		s.dst.AppendNull()
	}
	*s.pos++
}

func (it *NullableIterator[T]) NextBatch(want int, dst OuterSink[T]) int {
	return it.inner.NextBatch(want, nullAwareSink[T]{dst: dst, valid: it.valid, pos: &it.pos})
}

func (it *NullableIterator[T]) Skip(n int) {
	it.inner.Skip(n)
	it.pos += n
}

func (it *NullableIterator[T]) RemainingItems() int { return it.inner.RemainingItems() }

// FakeIterator replays `n` nulls without touching the underlying block body
// at all (spec.md §4.1 "Fake"): used when a filter predicate proves, from
// block statistics alone, that no row in the block can be visible.
type FakeIterator[T any] struct {
	remaining int
}

func NewFakeIterator[T any](n int) *FakeIterator[T] { return &FakeIterator[T]{remaining: n} }

func (it *FakeIterator[T]) NextBatch(want int, dst OuterSink[T]) int {
	n := it.remaining
	if want >= 0 && want < n {
		n = want
	}
	for i := 0; i < n; i++ {
		dst.AppendNull()
	}
	it.remaining -= n
	return n
}

func (it *FakeIterator[T]) Skip(n int) {
	it.remaining -= n
	if it.remaining < 0 {
		it.remaining = 0
	}
}

func (it *FakeIterator[T]) RemainingItems() int { return it.remaining }
