package column

import (
	"github.com/coldb/coldb/pkg/array"
	"github.com/coldb/coldb/pkg/storage/block"
)

// BlockSource fetches the raw framed bytes (body + footer) of one index
// entry's block. The rowset/cache layer supplies the concrete
// implementation (spec.md §4.3); column iterators never touch files or
// the cache directly.
type BlockSource interface {
	Fetch(entry Entry) ([]byte, error)
}

// Iterator is the column iterator contract of spec.md §4.2: { column,
// current_block_id, block_iter, current_row_id, finished, factory,
// block_type }, exposed as next_batch/fetch_hint/fetch_current_row_id/skip.
type Iterator interface {
	NextBatch(expected int) (firstRowID uint32, arr array.Array, ok bool)
	FetchHint() int
	CurrentRowID() uint32
	Skip(n int)
}

// genIterator is the per-physical-kind skeleton, parameterized over a
// block-iterator-factory (newOuterIter) so the same loop drives
// primitives, varchar/blob, char(w) and vector columns.
type genIterator[T any] struct {
	entries []Entry
	source  BlockSource

	newOuterIter func(bt block.Type, body []byte, rowCount int) (block.OuterIterator[T], error)
	newSink      func() (block.OuterSink[T], func() array.Array)

	blockIdx  int
	curIter   block.OuterIterator[T]
	curRowID  uint32
	finished  bool
}

// newGenIterator seeks to startRowID using BlockOfRow (spec.md §4.2
// "partition_point(index.first_rowid <= rowid)") and primes the initial
// skip distance within the target block.
func newGenIterator[T any](
	entries []Entry,
	source BlockSource,
	startRowID uint32,
	newOuterIter func(bt block.Type, body []byte, rowCount int) (block.OuterIterator[T], error),
	newSink func() (block.OuterSink[T], func() array.Array),
) (*genIterator[T], error) {
	it := &genIterator[T]{entries: entries, source: source, newOuterIter: newOuterIter, newSink: newSink}
	if len(entries) == 0 {
		it.finished = true
		return it, nil
	}
	idx, ok := BlockOfRow(entries, startRowID)
	if !ok {
		it.finished = true
		return it, nil
	}
	it.blockIdx = idx
	it.curRowID = startRowID
	if err := it.loadBlock(idx); err != nil {
		return nil, err
	}
	it.curIter.Skip(int(startRowID - entries[idx].FirstRow))
	return it, nil
}

func (it *genIterator[T]) loadBlock(idx int) error {
	raw, err := it.source.Fetch(it.entries[idx])
	if err != nil {
		return err
	}
	bt, body, err := block.Split(raw)
	if err != nil {
		return err
	}
	outer, err := it.newOuterIter(bt, body, int(it.entries[idx].RowCount))
	if err != nil {
		return err
	}
	it.curIter = outer
	return nil
}

func (it *genIterator[T]) advanceBlock() error {
	it.blockIdx++
	if it.blockIdx >= len(it.entries) {
		it.finished = true
		it.curIter = nil
		return nil
	}
	return it.loadBlock(it.blockIdx)
}

func (it *genIterator[T]) FetchHint() int {
	if it.curIter == nil {
		return 0
	}
	return it.curIter.RemainingItems()
}

func (it *genIterator[T]) CurrentRowID() uint32 { return it.curRowID }

func (it *genIterator[T]) NextBatch(expected int) (uint32, array.Array, bool) {
	if it.finished || it.curIter == nil {
		return 0, nil, false
	}
	firstRowID := it.curRowID
	sink, finishArr := it.newSink()
	produced := 0
	for produced < expected {
		if it.curIter == nil {
			break
		}
		remaining := it.curIter.RemainingItems()
		if remaining == 0 {
			if err := it.advanceBlock(); err != nil || it.finished {
				break
			}
			continue
		}
		want := expected - produced
		if want > remaining {
			want = remaining
		}
		n := it.curIter.NextBatch(want, sink)
		produced += n
		it.curRowID += uint32(n)
		if n == 0 {
			break
		}
	}
	if produced == 0 {
		return 0, nil, false
	}
	return firstRowID, finishArr(), true
}

func (it *genIterator[T]) Skip(n int) {
	remaining := n
	for remaining > 0 && !it.finished && it.curIter != nil {
		avail := it.curIter.RemainingItems()
		if avail == 0 {
			if err := it.advanceBlock(); err != nil || it.finished {
				return
			}
			continue
		}
		take := avail
		if take > remaining {
			take = remaining
		}
		it.curIter.Skip(take)
		it.curRowID += uint32(take)
		remaining -= take
	}
}

// fakeColumnIterator replays n nulls directly, never touching BlockSource
// (spec.md §4.2 "fake iterator"): used when a filter predicate has
// already proven no row in a column's candidate blocks is visible.
type fakeColumnIterator[T any] struct {
	inner    block.OuterIterator[T]
	newSink  func() (block.OuterSink[T], func() array.Array)
	rowID    uint32
}

func newFakeColumnIterator[T any](n int, startRowID uint32, newSink func() (block.OuterSink[T], func() array.Array)) *fakeColumnIterator[T] {
	return &fakeColumnIterator[T]{inner: block.NewFakeIterator[T](n), newSink: newSink, rowID: startRowID}
}

func (it *fakeColumnIterator[T]) FetchHint() int        { return it.inner.RemainingItems() }
func (it *fakeColumnIterator[T]) CurrentRowID() uint32  { return it.rowID }
func (it *fakeColumnIterator[T]) Skip(n int)            { it.inner.Skip(n); it.rowID += uint32(n) }

func (it *fakeColumnIterator[T]) NextBatch(expected int) (uint32, array.Array, bool) {
	if it.inner.RemainingItems() == 0 {
		return 0, nil, false
	}
	firstRowID := it.rowID
	sink, finishArr := it.newSink()
	n := it.inner.NextBatch(expected, sink)
	if n == 0 {
		return 0, nil, false
	}
	it.rowID += uint32(n)
	return firstRowID, finishArr(), true
}
