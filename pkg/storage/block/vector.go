package block

import (
	"encoding/binary"
	"math"

	"github.com/coldb/coldb/pkg/array"
)

// PlainVectorBuilder is the non-nullable inner builder for Vector(dim)
// columns (spec.md §4.1): layout <f64-le x dim x N><dim:u32-le>.
type PlainVectorBuilder struct {
	dim  int
	data []byte
}

func NewPlainVectorBuilder(dim int) *PlainVectorBuilder {
	return &PlainVectorBuilder{dim: dim}
}

func (b *PlainVectorBuilder) AppendValue(v []float64) error {
	for i := 0; i < b.dim; i++ {
		var x float64
		if i < len(v) {
			x = v[i]
		}
		var tmp [8]byte
		binary.LittleEndian.PutUint64(tmp[:], math.Float64bits(x))
		b.data = append(b.data, tmp[:]...)
	}
	return nil
}

func (b *PlainVectorBuilder) AppendDefault() { _ = b.AppendValue(nil) }

func (b *PlainVectorBuilder) EstimatedSize() int64 { return int64(len(b.data)) }

func (b *PlainVectorBuilder) EstimatedSizeWithNext([]float64) int64 {
	return int64(len(b.data) + b.dim*8)
}

func (b *PlainVectorBuilder) IsEmpty() bool { return len(b.data) == 0 }

func (b *PlainVectorBuilder) Statistics(*array.Bitmap) []Statistic { return nil }

func (b *PlainVectorBuilder) Finish() []byte {
	var dimBytes [4]byte
	binary.LittleEndian.PutUint32(dimBytes[:], uint32(b.dim))
	out := append(b.data, dimBytes[:]...)
	b.data = nil
	return out
}

func (b *PlainVectorBuilder) BlockType() Type { return TypeVector }

// PlainVectorIterator decodes a Vector(dim) block body.
type PlainVectorIterator struct {
	dim   int
	data  []byte
	pos   int
	total int
}

func NewPlainVectorIterator(body []byte, dim int) *PlainVectorIterator {
	stride := dim * 8
	data := body
	if len(body) >= 4 {
		data = body[:len(body)-4] // trailing dim:u32 already known from caller
	}
	return &PlainVectorIterator{dim: dim, data: data, total: len(data) / stride}
}

func (it *PlainVectorIterator) NextBatch(want int, dst innerSink[[]float64]) int {
	n := it.total - it.pos
	if want >= 0 && want < n {
		n = want
	}
	stride := it.dim * 8
	for i := 0; i < n; i++ {
		off := (it.pos + i) * stride
		v := make([]float64, it.dim)
		for j := 0; j < it.dim; j++ {
			v[j] = math.Float64frombits(binary.LittleEndian.Uint64(it.data[off+j*8:]))
		}
		dst.Append(v)
	}
	it.pos += n
	return n
}

func (it *PlainVectorIterator) Skip(n int) {
	it.pos += n
	if it.pos > it.total {
		it.pos = it.total
	}
}

func (it *PlainVectorIterator) RemainingItems() int { return it.total - it.pos }
