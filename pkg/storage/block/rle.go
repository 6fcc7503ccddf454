package block

import (
	"encoding/binary"

	"github.com/coldb/coldb/pkg/array"
)

// RLEBuilder wraps any inner non-nullable builder (Plain primitive, Plain
// varchar, ...) and run-length-encodes the *logical* append stream before
// forwarding one representative value per run to the wrapped builder
// (spec.md §4.1 "RLE"). Layout: <rle_count_len:u32-le><varint counts...><inner-bytes>.
type RLEBuilder[T comparable] struct {
	inner innerBuilder[T]

	runLengths []uint32
	runStarts  []int
	countAcc   int

	cur      T
	curCount uint32
	hasCur   bool
}

func NewRLEBuilder[T comparable](inner innerBuilder[T]) *RLEBuilder[T] {
	return &RLEBuilder[T]{inner: inner}
}

func (b *RLEBuilder[T]) flushPending() error {
	if !b.hasCur {
		return nil
	}
	if err := b.inner.AppendValue(b.cur); err != nil {
		return err
	}
	b.runStarts = append(b.runStarts, b.countAcc)
	b.runLengths = append(b.runLengths, b.curCount)
	b.countAcc += int(b.curCount)
	b.hasCur = false
	b.curCount = 0
	return nil
}

func (b *RLEBuilder[T]) AppendValue(v T) error {
	if b.hasCur && v == b.cur && b.curCount < ^uint32(0) {
		b.curCount++
		return nil
	}
	if err := b.flushPending(); err != nil {
		return err
	}
	b.cur, b.curCount, b.hasCur = v, 1, true
	return nil
}

func (b *RLEBuilder[T]) AppendDefault() {
	var zero T
	_ = b.AppendValue(zero)
}

// EstimatedSize and EstimatedSizeWithNext defer to the wrapped inner
// builder (spec.md §4.1: "should_finish defers to the inner builder").
// The inner builder holds one value per completed run, so neither the
// varint count stream nor the still-open run is counted.
func (b *RLEBuilder[T]) EstimatedSize() int64 { return b.inner.EstimatedSize() }

func (b *RLEBuilder[T]) EstimatedSizeWithNext(v T) int64 {
	return b.inner.EstimatedSizeWithNext(v)
}

func (b *RLEBuilder[T]) IsEmpty() bool { return len(b.runLengths) == 0 && !b.hasCur }

func (b *RLEBuilder[T]) Statistics(valid *array.Bitmap) []Statistic {
	_ = b.flushPending()
	if valid == nil {
		return b.inner.Statistics(nil)
	}
	runValid := array.NewBitmap(len(b.runStarts), false)
	for i, start := range b.runStarts {
		runValid.Set(i, valid.Get(start))
	}
	return b.inner.Statistics(runValid)
}

func (b *RLEBuilder[T]) Finish() []byte {
	_ = b.flushPending()
	counts := make([]byte, 0, len(b.runLengths)*2)
	var tmp [binary.MaxVarintLen64]byte
	for _, n := range b.runLengths {
		k := binary.PutUvarint(tmp[:], uint64(n))
		counts = append(counts, tmp[:k]...)
	}
	inner := b.inner.Finish()

	out := make([]byte, 0, 4+len(counts)+len(inner))
	var lenBytes [4]byte
	binary.LittleEndian.PutUint32(lenBytes[:], uint32(len(counts)))
	out = append(out, lenBytes[:]...)
	out = append(out, counts...)
	out = append(out, inner...)

	b.runLengths, b.runStarts, b.countAcc = nil, nil, 0
	return out
}

func (b *RLEBuilder[T]) BlockType() Type { return TypeRLE }

// RLEIterator decodes the run-length stream and replays each run's value
// `count` times into the destination sink.
type RLEIterator[T any] struct {
	counts []uint32
	inner  innerIterator[T]

	runIdx     int
	posInRun   int
	curVal     T
	haveCurVal bool
	total      int
}

// NewRLEIterator parses the run-length count stream and wraps `inner`,
// which must decode exactly len(counts) values (one per run) in order.
// newInner also receives the run count, since variable-width inner codecs
// (e.g. varchar) cannot derive their own element count from body length.
func NewRLEIterator[T any](body []byte, newInner func(runBody []byte, n int) innerIterator[T]) *RLEIterator[T] {
	countLen := binary.LittleEndian.Uint32(body[:4])
	countBytes := body[4 : 4+countLen]
	innerBody := body[4+countLen:]

	var counts []uint32
	total := 0
	for off := 0; off < len(countBytes); {
		v, n := binary.Uvarint(countBytes[off:])
		counts = append(counts, uint32(v))
		total += int(v)
		off += n
	}
	return &RLEIterator[T]{counts: counts, inner: newInner(innerBody, len(counts)), total: total}
}

func (it *RLEIterator[T]) nextRunValue() (T, bool) {
	var zero T
	if it.runIdx >= len(it.counts) {
		return zero, false
	}
	s := &singleSinkImpl[T]{}
	n := it.inner.NextBatch(1, s)
	if n == 0 {
		return zero, false
	}
	return s.v, true
}

type singleSinkImpl[T any] struct{ v T }

func (s *singleSinkImpl[T]) Append(v T) { s.v = v }

func (it *RLEIterator[T]) NextBatch(want int, dst innerSink[T]) int {
	produced := 0
	for (want < 0 || produced < want) && it.runIdx < len(it.counts) {
		if !it.haveCurVal {
			v, ok := it.nextRunValue()
			if !ok {
				break
			}
			it.curVal = v
			it.haveCurVal = true
		}
		remain := int(it.counts[it.runIdx]) - it.posInRun
		take := remain
		if want >= 0 && want-produced < take {
			take = want - produced
		}
		for i := 0; i < take; i++ {
			dst.Append(it.curVal)
		}
		produced += take
		it.posInRun += take
		if it.posInRun >= int(it.counts[it.runIdx]) {
			it.runIdx++
			it.posInRun = 0
			it.haveCurVal = false
		}
	}
	return produced
}

func (it *RLEIterator[T]) Skip(n int) {
	var sink discardSink[T]
	it.NextBatch(n, &sink)
}

func (it *RLEIterator[T]) RemainingItems() int {
	total := 0
	if it.runIdx < len(it.counts) {
		total += int(it.counts[it.runIdx]) - it.posInRun
		for i := it.runIdx + 1; i < len(it.counts); i++ {
			total += int(it.counts[i])
		}
	}
	return total
}

type discardSink[T any] struct{}

func (discardSink[T]) Append(T) {}
