package memtable

import (
	"bytes"

	"github.com/coldb/coldb/pkg/array"
	"github.com/coldb/coldb/pkg/catalog"
	"github.com/google/btree"
)

// sortedItem is one row parked in the ordered multimap. seq breaks ties
// between rows that share a sort key, preserving insertion order among
// them (a multimap, not a map).
type sortedItem struct {
	key []byte
	row []any
	seq uint64
}

// Sorted is the sort-key-ordered memtable of spec.md §4.4: an ordered
// multimap from sort-key to row, flushed into a single sorted chunk ready
// to feed a rowset.Writer without any further sort pass.
type Sorted struct {
	table      *catalog.TableCatalog
	sortColIdx int
	tree       *btree.BTreeG[sortedItem]
	seq        uint64
}

func NewSorted(table *catalog.TableCatalog) *Sorted {
	idx, _ := table.PrimarySortColumn()
	less := func(a, b sortedItem) bool {
		if c := bytes.Compare(a.key, b.key); c != 0 {
			return c < 0
		}
		return a.seq < b.seq
	}
	return &Sorted{table: table, sortColIdx: idx, tree: btree.NewG(32, less)}
}

// Append inserts one row, keyed by the table's primary sort column.
func (s *Sorted) Append(row []any) {
	s.seq++
	key := sortKeyOf(row[s.sortColIdx])
	s.tree.ReplaceOrInsert(sortedItem{key: key, row: row, seq: s.seq})
}

func (s *Sorted) Len() int { return s.tree.Len() }

// Flush walks the tree in sort-key order and rebuilds column arrays,
// producing a chunk whose rows are already in sort-key order.
func (s *Sorted) Flush() *array.Chunk {
	builders := make([]array.Builder, len(s.table.Columns))
	for i, c := range s.table.Columns {
		builders[i] = array.NewBuilder(c.Type)
	}
	s.tree.Ascend(func(item sortedItem) bool {
		for i, v := range item.row {
			appendValue(builders[i], v)
		}
		return true
	})
	cols := make([]array.Array, len(builders))
	for i, b := range builders {
		cols[i] = b.Finish()
	}
	return array.NewChunk(cols)
}
