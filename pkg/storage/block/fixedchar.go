package block

import (
	"github.com/coldb/coldb/pkg/array"
	"github.com/coldb/coldb/pkg/storage/errs"
)

// PlainFixedCharBuilder is the non-nullable inner builder for char(w)
// columns (spec.md §4.1): values right-padded with \0 to width w. Never
// nullable at this layer; a nullable char(w) column wraps this with
// NullableBuilder like any other inner builder.
type PlainFixedCharBuilder struct {
	width int
	data  []byte
}

func NewPlainFixedCharBuilder(width int) *PlainFixedCharBuilder {
	return &PlainFixedCharBuilder{width: width}
}

func (b *PlainFixedCharBuilder) AppendValue(v []byte) error {
	if len(v) > b.width {
		return &errs.ExceedLengthLimitError{Limit: b.width, Got: len(v)}
	}
	start := len(b.data)
	b.data = append(b.data, make([]byte, b.width)...)
	copy(b.data[start:], v)
	return nil
}

func (b *PlainFixedCharBuilder) AppendDefault() { _ = b.AppendValue(nil) }

func (b *PlainFixedCharBuilder) EstimatedSize() int64 { return int64(len(b.data)) }

func (b *PlainFixedCharBuilder) EstimatedSizeWithNext([]byte) int64 {
	return int64(len(b.data) + b.width)
}

func (b *PlainFixedCharBuilder) IsEmpty() bool { return len(b.data) == 0 }

func (b *PlainFixedCharBuilder) Statistics(valid *array.Bitmap) []Statistic {
	if len(b.data) == 0 {
		return nil
	}
	seen := make(map[string]struct{})
	n := len(b.data) / b.width
	for i := 0; i < n; i++ {
		if valid != nil && !valid.Get(i) {
			continue
		}
		seen[string(b.data[i*b.width:(i+1)*b.width])] = struct{}{}
	}
	return []Statistic{DistinctValueStat(len(seen))}
}

func (b *PlainFixedCharBuilder) Finish() []byte {
	out := b.data
	b.data = nil
	return out
}

func (b *PlainFixedCharBuilder) BlockType() Type { return TypePlainFixedChar }

// PlainFixedCharIterator decodes a char(w) block body.
type PlainFixedCharIterator struct {
	width int
	data  []byte
	pos   int
	total int
}

func NewPlainFixedCharIterator(body []byte, width int) *PlainFixedCharIterator {
	return &PlainFixedCharIterator{width: width, data: body, total: len(body) / width}
}

func (it *PlainFixedCharIterator) NextBatch(want int, dst innerSink[[]byte]) int {
	n := it.total - it.pos
	if want >= 0 && want < n {
		n = want
	}
	for i := 0; i < n; i++ {
		off := (it.pos + i) * it.width
		dst.Append(it.data[off : off+it.width])
	}
	it.pos += n
	return n
}

func (it *PlainFixedCharIterator) Skip(n int) {
	it.pos += n
	if it.pos > it.total {
		it.pos = it.total
	}
}

func (it *PlainFixedCharIterator) RemainingItems() int { return it.total - it.pos }
