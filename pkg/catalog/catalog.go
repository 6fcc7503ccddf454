// Package catalog holds the thin, static schema metadata the storage core
// consumes from and exposes to the external binder/planner layers: column
// and table definitions. It intentionally carries no SQL type resolution
// logic — that belongs to the out-of-scope binder.
package catalog

import "github.com/coldb/coldb/pkg/array"

// ColumnCatalog describes one column of a table's schema as it existed
// when a rowset was created. Rowsets embed a copy of this alongside their
// data so that old rowsets remain readable across schema evolution that
// only appends columns.
type ColumnCatalog struct {
	ID       uint32
	Name     string
	Type     array.DataType
	Nullable bool
	IsSortKey bool
	SortKeyOrdinal int // position within the composite sort key, -1 if not a sort key
}

func (c ColumnCatalog) WithNullable() ColumnCatalog {
	c.Nullable = true
	c.Type.Nullable = true
	return c
}

// TableCatalog describes one table: its id, name and column schema in
// declaration order. Column IDs are stable across ALTER TABLE ADD COLUMN;
// StorageColumnRef.Idx indexes into Columns, not ID, matching spec.md's
// "requested columns as StorageColumnRef" boundary.
type TableCatalog struct {
	ID      uint32
	Name    string
	Columns []ColumnCatalog
}

// SortKeyColumns returns the columns that form the table's sort key, in
// sort-key ordinal order. An empty result means the table is unordered
// (memtables flush unsorted, reads only ever concat rowsets).
func (t *TableCatalog) SortKeyColumns() []ColumnCatalog {
	var out []ColumnCatalog
	for _, c := range t.Columns {
		if c.IsSortKey {
			out = append(out, c)
		}
	}
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if out[j].SortKeyOrdinal < out[i].SortKeyOrdinal {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	return out
}

// PrimarySortColumn returns the first (most significant) sort-key column
// index within Columns, and whether one exists. The merge iterator
// (pkg/storage/rowset) only ever merges on this single column, matching
// spec.md §4.6.
func (t *TableCatalog) PrimarySortColumn() (idx int, ok bool) {
	best := -1
	bestOrdinal := int(^uint(0) >> 1)
	for i, c := range t.Columns {
		if c.IsSortKey && c.SortKeyOrdinal < bestOrdinal {
			best = i
			bestOrdinal = c.SortKeyOrdinal
		}
	}
	if best < 0 {
		return 0, false
	}
	return best, true
}
