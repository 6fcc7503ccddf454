package memtable

import (
	"github.com/coldb/coldb/pkg/array"
	"github.com/coldb/coldb/pkg/catalog"
	"github.com/coldb/coldb/pkg/storage/errs"
)

// Unsorted is the append-order memtable of spec.md §4.4: one builder per
// column, appended to in arrival order, with no sort-key requirement.
type Unsorted struct {
	table    *catalog.TableCatalog
	builders []array.Builder
	rows     int
}

func NewUnsorted(table *catalog.TableCatalog) *Unsorted {
	builders := make([]array.Builder, len(table.Columns))
	for i, c := range table.Columns {
		builders[i] = array.NewBuilder(c.Type)
	}
	return &Unsorted{table: table, builders: builders}
}

// Append copies chunk column-wise into the builders.
func (u *Unsorted) Append(chunk *array.Chunk) error {
	if len(chunk.Columns) != len(u.builders) {
		return &errs.LengthMismatchError{
			Expected: len(u.builders),
			Got:      len(chunk.Columns),
		}
	}
	n := 0
	if len(chunk.Columns) > 0 {
		n = chunk.Columns[0].Len()
	}
	for i, arr := range chunk.Columns {
		for row := 0; row < n; row++ {
			copyRow(u.builders[i], arr, row)
		}
	}
	u.rows += n
	return nil
}

func (u *Unsorted) Len() int { return u.rows }

func (u *Unsorted) Flush() *array.Chunk {
	cols := make([]array.Array, len(u.builders))
	for i, b := range u.builders {
		cols[i] = b.Finish()
	}
	return array.NewChunk(cols)
}
