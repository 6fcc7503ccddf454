package column

import (
	"github.com/coldb/coldb/pkg/array"
	"github.com/coldb/coldb/pkg/storage/block"
	"github.com/coldb/coldb/pkg/storage/errs"
)

// Builder is the column builder contract of spec.md §4.2:
// append(array) / finish() -> (index_entries, column_file_bytes). Append
// surfaces NotNullableError, ExceedLengthLimitError and ConversionError
// (spec.md §7) at the row that violates them rather than deferring to
// Finish.
type Builder interface {
	Append(arr array.Array) error
	Finish() ([]Entry, []byte)
}

// genBuilder is the per-physical-kind skeleton: it owns the current block
// builder and a growing index, and knows nothing about the concrete codec
// (Plain/RLE/Dict/...) beyond the factory it was constructed with. One
// instantiation per physical kind (see dispatch.go) drives primitives,
// varchar/blob, char(w) and vector columns alike.
type genBuilder[T any] struct {
	opts    BuilderOptions
	newBlk  func() block.OuterBuilder[T]
	extract func(arr array.Array, i int) (*T, error)
	keyOf   func(v *T) []byte

	cur         block.OuterBuilder[T]
	curFirstRow uint32
	haveFirstKey bool
	firstKey    []byte

	rowID   uint32
	entries []Entry
	data    []byte
}

func newGenBuilder[T any](
	opts BuilderOptions,
	newBlk func() block.OuterBuilder[T],
	extract func(arr array.Array, i int) (*T, error),
	keyOf func(v *T) []byte,
) *genBuilder[T] {
	return &genBuilder[T]{opts: opts, newBlk: newBlk, extract: extract, keyOf: keyOf}
}

func (b *genBuilder[T]) startBlock(v *T) {
	b.cur = b.newBlk()
	b.curFirstRow = b.rowID
	b.haveFirstKey = false
	b.firstKey = nil
	b.noteFirstKey(v)
}

func (b *genBuilder[T]) noteFirstKey(v *T) {
	if !b.opts.RecordFirstKey || b.haveFirstKey {
		return
	}
	if v != nil && b.keyOf != nil {
		b.firstKey = b.keyOf(v)
	}
	b.haveFirstKey = true
}

func (b *genBuilder[T]) Append(arr array.Array) error {
	n := arr.Len()
	for i := 0; i < n; i++ {
		v, err := b.extract(arr, i)
		if err != nil {
			return err
		}
		if v == nil && !b.opts.Nullable {
			return &errs.NotNullableError{Column: b.opts.ColumnName}
		}
		if b.cur == nil {
			b.startBlock(v)
		} else if b.cur.ShouldFinish(v, b.opts.TargetBlockSize) {
			b.flush()
			b.startBlock(v)
		} else {
			b.noteFirstKey(v)
		}
		if err := b.cur.Append(v); err != nil {
			if lim, ok := err.(*errs.ExceedLengthLimitError); ok && lim.Column == "" {
				lim.Column = b.opts.ColumnName
			}
			return err
		}
		b.rowID++
	}
	return nil
}

func (b *genBuilder[T]) flush() {
	rowCount := b.rowID - b.curFirstRow
	if rowCount == 0 {
		return
	}
	bt := b.cur.BlockType()
	stats := append(b.cur.Statistics(), block.RowCountStat(int(rowCount)))
	body := b.cur.Finish()
	framed := block.Frame(body, bt, b.opts.ChecksumType)

	entry := Entry{
		Offset:   uint64(len(b.data)),
		Length:   uint64(len(framed)),
		FirstRow: b.curFirstRow,
		RowCount: rowCount,
		FirstKey: b.firstKey,
		Stats:    stats,
	}
	b.entries = append(b.entries, entry)
	b.data = append(b.data, framed...)
	b.cur = nil
}

func (b *genBuilder[T]) Finish() ([]Entry, []byte) {
	if b.cur != nil {
		b.flush()
	}
	return b.entries, b.data
}
