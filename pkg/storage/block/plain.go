package block

import "github.com/coldb/coldb/pkg/array"

// PlainPrimitiveBuilder is the fixed-width, non-nullable inner builder for
// bool/int32/int64/float64 columns (spec.md §4.1 "Plain primitive").
type PlainPrimitiveBuilder[T array.Number] struct {
	codec primCodec[T]
	data  []byte
	count int
}

func NewPlainPrimitiveBuilder[T array.Number](codec primCodec[T]) *PlainPrimitiveBuilder[T] {
	return &PlainPrimitiveBuilder[T]{codec: codec}
}

func (b *PlainPrimitiveBuilder[T]) AppendValue(v T) error {
	off := len(b.data)
	b.data = append(b.data, make([]byte, b.codec.width)...)
	b.codec.put(b.data[off:], v)
	b.count++
	return nil
}

func (b *PlainPrimitiveBuilder[T]) AppendDefault() {
	var zero T
	_ = b.AppendValue(zero)
}

func (b *PlainPrimitiveBuilder[T]) EstimatedSize() int64 { return int64(len(b.data)) }

func (b *PlainPrimitiveBuilder[T]) EstimatedSizeWithNext(T) int64 {
	return int64(len(b.data) + b.codec.width)
}

func (b *PlainPrimitiveBuilder[T]) IsEmpty() bool { return b.count == 0 }

func (b *PlainPrimitiveBuilder[T]) Statistics(valid *array.Bitmap) []Statistic {
	if b.count == 0 {
		return nil
	}
	var min, max T
	have := false
	for i := 0; i < b.count; i++ {
		if valid != nil && !valid.Get(i) {
			continue
		}
		v := b.codec.get(b.data[i*b.codec.width:])
		if !have {
			min, max, have = v, v, true
			continue
		}
		if b.codec.less(v, min) {
			min = v
		}
		if b.codec.less(max, v) {
			max = v
		}
	}
	if !have {
		return nil
	}
	minB := make([]byte, b.codec.width)
	maxB := make([]byte, b.codec.width)
	b.codec.put(minB, min)
	b.codec.put(maxB, max)
	return []Statistic{MinMaxStat(b.codec.width, minB, maxB)}
}

func (b *PlainPrimitiveBuilder[T]) Finish() []byte {
	out := b.data
	b.data, b.count = nil, 0
	return out
}

func (b *PlainPrimitiveBuilder[T]) BlockType() Type { return TypePlain }

// PlainPrimitiveIterator decodes a Plain primitive block body by slicing
// row*width (spec.md §4.1: "iterator slices by row*width").
type PlainPrimitiveIterator[T array.Number] struct {
	codec  primCodec[T]
	body   []byte
	pos    int // current row index
	total  int
}

func NewPlainPrimitiveIterator[T array.Number](codec primCodec[T], body []byte) *PlainPrimitiveIterator[T] {
	return &PlainPrimitiveIterator[T]{codec: codec, body: body, total: len(body) / codec.width}
}

func (it *PlainPrimitiveIterator[T]) NextBatch(want int, dst innerSink[T]) int {
	n := it.total - it.pos
	if want >= 0 && want < n {
		n = want
	}
	for i := 0; i < n; i++ {
		off := (it.pos + i) * it.codec.width
		dst.Append(it.codec.get(it.body[off : off+it.codec.width]))
	}
	it.pos += n
	return n
}

func (it *PlainPrimitiveIterator[T]) Skip(n int) {
	it.pos += n
	if it.pos > it.total {
		it.pos = it.total
	}
}

func (it *PlainPrimitiveIterator[T]) RemainingItems() int { return it.total - it.pos }
