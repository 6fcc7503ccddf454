package block

import (
	"encoding/binary"
	"math"

	"github.com/coldb/coldb/pkg/array"
)

const dictNullCode = math.MinInt32
const dictFirstCode = math.MinInt32 + 1

// DictBuilder wraps an inner dictionary-values builder with an RLE-encoded
// int32 code stream (spec.md §4.1 "Dict"). Codes are assigned in
// first-seen order starting at i32.MIN+1; i32.MIN is reserved as the
// sentinel code for a defaulted (null placeholder) row, so Dict never has
// to look a null value up in the dictionary.
//
// Layout: <rle_block_len:u64-le><dict_distinct_count:u32-le>
//
//	<rle-encoded code block><inner dict-values block>
type DictBuilder[T comparable] struct {
	codes  *RLEBuilder[int32]
	values innerBuilder[T]

	valueToCode map[T]int32
	nextCode    int32
	seqCodes    []int32
}

func NewDictBuilder[T comparable](values innerBuilder[T]) *DictBuilder[T] {
	return &DictBuilder[T]{
		codes:       NewRLEBuilder[int32](NewPlainPrimitiveBuilder[int32](int32Codec)),
		values:      values,
		valueToCode: make(map[T]int32),
		nextCode:    dictFirstCode,
	}
}

func (b *DictBuilder[T]) AppendValue(v T) error {
	code, ok := b.valueToCode[v]
	if !ok {
		code = b.nextCode
		b.nextCode++
		b.valueToCode[v] = code
		if err := b.values.AppendValue(v); err != nil {
			return err
		}
	}
	_ = b.codes.AppendValue(code)
	b.seqCodes = append(b.seqCodes, code)
	return nil
}

func (b *DictBuilder[T]) AppendDefault() {
	_ = b.codes.AppendValue(dictNullCode)
	b.seqCodes = append(b.seqCodes, dictNullCode)
}

func (b *DictBuilder[T]) EstimatedSize() int64 {
	return b.codes.EstimatedSize() + b.values.EstimatedSize()
}

func (b *DictBuilder[T]) EstimatedSizeWithNext(v T) int64 {
	size := b.codes.EstimatedSizeWithNext(0) + b.values.EstimatedSize()
	if _, ok := b.valueToCode[v]; !ok {
		size += b.values.EstimatedSizeWithNext(v) - b.values.EstimatedSize()
	}
	return size
}

func (b *DictBuilder[T]) IsEmpty() bool { return len(b.seqCodes) == 0 }

func (b *DictBuilder[T]) Statistics(valid *array.Bitmap) []Statistic {
	distinct := make(map[int32]struct{})
	for i, c := range b.seqCodes {
		if valid != nil && !valid.Get(i) {
			continue
		}
		if c == dictNullCode {
			continue
		}
		distinct[c] = struct{}{}
	}
	if len(distinct) == 0 {
		return nil
	}
	return []Statistic{DistinctValueStat(len(distinct))}
}

func (b *DictBuilder[T]) Finish() []byte {
	distinctCount := uint32(len(b.valueToCode))
	codesBody := b.codes.Finish()
	valuesBody := b.values.Finish()

	out := make([]byte, 0, 12+len(codesBody)+len(valuesBody))
	var head [12]byte
	binary.LittleEndian.PutUint64(head[0:8], uint64(len(codesBody)))
	binary.LittleEndian.PutUint32(head[8:12], distinctCount)
	out = append(out, head[:]...)
	out = append(out, codesBody...)
	out = append(out, valuesBody...)

	b.valueToCode = make(map[T]int32)
	b.nextCode = dictFirstCode
	b.seqCodes = nil
	return out
}

func (b *DictBuilder[T]) BlockType() Type { return TypeDict }

// DictIterator decodes a Dict block: materializes the full dictionary up
// front, then maps each decoded code to its value (or the zero value for
// the null sentinel code).
type DictIterator[T any] struct {
	dict  []T
	codes *RLEIterator[int32]
}

func NewDictIterator[T any](body []byte, n int, newValuesIter func(valuesBody []byte, distinctCount int) innerIterator[T]) *DictIterator[T] {
	rleLen := binary.LittleEndian.Uint64(body[0:8])
	distinctCount := binary.LittleEndian.Uint32(body[8:12])
	codesBody := body[12 : 12+rleLen]
	valuesBody := body[12+rleLen:]

	valuesIt := newValuesIter(valuesBody, int(distinctCount))
	dict := make([]T, 0, distinctCount)
	dst := &appendSink[T]{}
	valuesIt.NextBatch(int(distinctCount), dst)
	dict = append(dict, dst.items...)

	codesIt := NewRLEIterator[int32](codesBody, func(runBody []byte, _ int) innerIterator[int32] {
		return NewPlainPrimitiveIterator[int32](int32Codec, runBody)
	})
	_ = n
	return &DictIterator[T]{dict: dict, codes: codesIt}
}

type appendSink[T any] struct{ items []T }

func (s *appendSink[T]) Append(v T) { s.items = append(s.items, v) }

func (it *DictIterator[T]) valueForCode(code int32) T {
	var zero T
	if code == dictNullCode {
		return zero
	}
	idx := code - dictFirstCode
	if idx < 0 || int(idx) >= len(it.dict) {
		return zero
	}
	return it.dict[idx]
}

type dictCodeSink[T any] struct {
	dst  innerSink[T]
	iter *DictIterator[T]
}

func (s *dictCodeSink[T]) Append(code int32) { s.dst.Append(s.iter.valueForCode(code)) }

func (it *DictIterator[T]) NextBatch(want int, dst innerSink[T]) int {
	sink := &dictCodeSink[T]{dst: dst, iter: it}
	return it.codes.NextBatch(want, sink)
}

func (it *DictIterator[T]) Skip(n int) { it.codes.Skip(n) }

func (it *DictIterator[T]) RemainingItems() int { return it.codes.RemainingItems() }
