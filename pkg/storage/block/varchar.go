package block

import (
	"encoding/binary"

	"github.com/coldb/coldb/pkg/array"
)

// PlainVarcharBuilder is the non-nullable inner builder for String and
// Blob columns (spec.md §4.1 "Plain varchar/blob"): layout
// <offset[u32] x N><data bytes>, offset[i] is the end of element i.
type PlainVarcharBuilder struct {
	offsets []uint32
	data    []byte
	distinct map[string]struct{}
}

func NewPlainVarcharBuilder() *PlainVarcharBuilder {
	return &PlainVarcharBuilder{distinct: make(map[string]struct{})}
}

func (b *PlainVarcharBuilder) AppendValue(v []byte) error {
	b.data = append(b.data, v...)
	b.offsets = append(b.offsets, uint32(len(b.data)))
	b.distinct[string(v)] = struct{}{}
	return nil
}

func (b *PlainVarcharBuilder) AppendDefault() { _ = b.AppendValue(nil) }

func (b *PlainVarcharBuilder) EstimatedSize() int64 {
	return int64(len(b.offsets)*4 + len(b.data))
}

func (b *PlainVarcharBuilder) EstimatedSizeWithNext(v []byte) int64 {
	return int64((len(b.offsets)+1)*4 + len(b.data) + len(v))
}

func (b *PlainVarcharBuilder) IsEmpty() bool { return len(b.offsets) == 0 }

func (b *PlainVarcharBuilder) Statistics(valid *array.Bitmap) []Statistic {
	distinct := b.distinct
	if valid != nil {
		distinct = make(map[string]struct{})
		for i := range b.offsets {
			if !valid.Get(i) {
				continue
			}
			start := uint32(0)
			if i > 0 {
				start = b.offsets[i-1]
			}
			distinct[string(b.data[start:b.offsets[i]])] = struct{}{}
		}
	}
	count := len(distinct)
	if count == 0 {
		return nil
	}
	return []Statistic{DistinctValueStat(count)}
}

func (b *PlainVarcharBuilder) Finish() []byte {
	out := make([]byte, 0, len(b.offsets)*4+len(b.data))
	for _, off := range b.offsets {
		var tmp [4]byte
		binary.LittleEndian.PutUint32(tmp[:], off)
		out = append(out, tmp[:]...)
	}
	out = append(out, b.data...)
	b.offsets, b.data, b.distinct = nil, nil, make(map[string]struct{})
	return out
}

func (b *PlainVarcharBuilder) BlockType() Type { return TypePlainVarchar }

// PlainVarcharIterator decodes a Plain varchar/blob block body. The row
// count is always known up front from the block index entry (spec.md §4.2).
type PlainVarcharIterator struct {
	offsets []uint32
	data    []byte
	pos     int
	total   int
}

func NewPlainVarcharIteratorN(body []byte, n int) *PlainVarcharIterator {
	offsets := make([]uint32, n)
	for i := 0; i < n; i++ {
		offsets[i] = binary.LittleEndian.Uint32(body[i*4 : i*4+4])
	}
	dataStart := n * 4
	return &PlainVarcharIterator{offsets: offsets, data: body[dataStart:], total: n}
}

func (it *PlainVarcharIterator) elementAt(i int) []byte {
	start := uint32(0)
	if i > 0 {
		start = it.offsets[i-1]
	}
	return it.data[start:it.offsets[i]]
}

func (it *PlainVarcharIterator) NextBatch(want int, dst innerSink[[]byte]) int {
	n := it.total - it.pos
	if want >= 0 && want < n {
		n = want
	}
	for i := 0; i < n; i++ {
		dst.Append(it.elementAt(it.pos + i))
	}
	it.pos += n
	return n
}

func (it *PlainVarcharIterator) Skip(n int) {
	it.pos += n
	if it.pos > it.total {
		it.pos = it.total
	}
}

func (it *PlainVarcharIterator) RemainingItems() int { return it.total - it.pos }

// stringVarcharBuilder/-Iterator adapt PlainVarcharBuilder/-Iterator (whose
// natural element type is []byte, not comparable) to innerBuilder[string] /
// innerIterator[string] so RLE and Dict — both of which need a comparable
// T — can wrap varchar/blob columns.
type stringVarcharBuilder struct{ inner *PlainVarcharBuilder }

func NewStringVarcharBuilder() *stringVarcharBuilder {
	return &stringVarcharBuilder{inner: NewPlainVarcharBuilder()}
}

func (b *stringVarcharBuilder) AppendValue(v string) error { return b.inner.AppendValue([]byte(v)) }
func (b *stringVarcharBuilder) AppendDefault()           { b.inner.AppendDefault() }
func (b *stringVarcharBuilder) EstimatedSize() int64     { return b.inner.EstimatedSize() }
func (b *stringVarcharBuilder) EstimatedSizeWithNext(v string) int64 {
	return b.inner.EstimatedSizeWithNext([]byte(v))
}
func (b *stringVarcharBuilder) IsEmpty() bool { return b.inner.IsEmpty() }
func (b *stringVarcharBuilder) Statistics(valid *array.Bitmap) []Statistic {
	return b.inner.Statistics(valid)
}
func (b *stringVarcharBuilder) Finish() []byte  { return b.inner.Finish() }
func (b *stringVarcharBuilder) BlockType() Type { return b.inner.BlockType() }

type stringVarcharIterator struct{ inner *PlainVarcharIterator }

func NewStringVarcharIteratorN(body []byte, n int) *stringVarcharIterator {
	return &stringVarcharIterator{inner: NewPlainVarcharIteratorN(body, n)}
}

type stringSink struct{ dst innerSink[string] }

func (s stringSink) Append(v []byte) { s.dst.Append(string(v)) }

func (it *stringVarcharIterator) NextBatch(want int, dst innerSink[string]) int {
	return it.inner.NextBatch(want, stringSink{dst})
}
func (it *stringVarcharIterator) Skip(n int)        { it.inner.Skip(n) }
func (it *stringVarcharIterator) RemainingItems() int { return it.inner.RemainingItems() }
