package rowset

import (
	"container/heap"

	"github.com/coldb/coldb/pkg/array"
)

// mergeFetchSize is the batch size MergeIterator pulls from each source
// when its buffered chunk runs out.
const mergeFetchSize = 1024

// mergeSource tracks one input's current buffered chunk and cursor, always
// parked on its next visible row (or exhausted).
type mergeSource struct {
	src        ChunkSource
	sortColIdx int
	chunk      *Chunk
	pos        int
	exhausted  bool
}

func newMergeSource(src ChunkSource, sortColIdx int) *mergeSource {
	ms := &mergeSource{src: src, sortColIdx: sortColIdx}
	ms.advance()
	return ms
}

// advance moves to the next visible row, refilling from the source as
// needed, leaving ms parked on a visible row or exhausted.
func (ms *mergeSource) advance() {
	for {
		if ms.chunk != nil {
			ms.pos++
			for ms.pos < ms.chunk.Length {
				if ms.chunk.IsVisible(ms.pos) {
					return
				}
				ms.pos++
			}
		}
		chunk, ok := ms.src.NextBatch(mergeFetchSize)
		if !ok {
			ms.exhausted = true
			ms.chunk = nil
			return
		}
		ms.chunk = chunk
		ms.pos = -1
	}
}

type mergeHeap []*mergeSource

func (h mergeHeap) Len() int { return len(h) }
func (h mergeHeap) Less(i, j int) bool {
	a, b := h[i], h[j]
	return compareKey(a.chunk.Columns[a.sortColIdx], a.pos, b.chunk.Columns[b.sortColIdx], b.pos) < 0
}
func (h mergeHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *mergeHeap) Push(x any)   { *h = append(*h, x.(*mergeSource)) }
func (h *mergeHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

type pick struct {
	chunk *Chunk
	row   int
}

// MergeIterator implements spec.md §4.6's k-way merge by sort-key column: a
// min-heap over each source's current row, replacing the root in O(log k)
// as rows are consumed instead of re-sorting the whole frontier.
type MergeIterator struct {
	heap mergeHeap
}

// NewMergeIterator merges sources, ordering by the value of column
// sortColIdx (an index into each source's produced Chunk.Columns, i.e. the
// position of the sort-key ref within the requested column list).
func NewMergeIterator(sources []ChunkSource, sortColIdx int) *MergeIterator {
	mi := &MergeIterator{}
	for _, s := range sources {
		ms := newMergeSource(s, sortColIdx)
		if !ms.exhausted {
			mi.heap = append(mi.heap, ms)
		}
	}
	heap.Init(&mi.heap)
	return mi
}

func (mi *MergeIterator) NextBatch(expected int) (*Chunk, bool) {
	picks := make([]pick, 0, expected)
	for len(picks) < expected && mi.heap.Len() > 0 {
		top := mi.heap[0]
		picks = append(picks, pick{chunk: top.chunk, row: top.pos})
		top.advance()
		if top.exhausted {
			heap.Pop(&mi.heap)
		} else {
			heap.Fix(&mi.heap, 0)
		}
	}
	if len(picks) == 0 {
		return nil, false
	}

	ncols := len(picks[0].chunk.Columns)
	builders := make([]array.Builder, ncols)
	for c := 0; c < ncols; c++ {
		builders[c] = array.NewBuilder(picks[0].chunk.Columns[c].Type())
	}
	for _, p := range picks {
		for c := 0; c < ncols; c++ {
			appendRow(builders[c], p.chunk.Columns[c], p.row)
		}
	}
	columns := make([]array.Array, ncols)
	for c := 0; c < ncols; c++ {
		columns[c] = builders[c].Finish()
	}

	return &Chunk{FirstRowID: 0, Columns: columns, Visibility: nil, Length: len(picks)}, true
}
