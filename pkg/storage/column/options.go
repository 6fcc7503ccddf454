// Package column implements spec.md §4.2: a column builder that chunks a
// logical array into blocks plus a block index, and a column iterator that
// reassembles blocks back into arrays.
package column

import "github.com/coldb/coldb/pkg/storage/config"

// BuilderOptions configures a column builder (spec.md §4.2). Nullable
// comes from the table column catalog, not the block config.
type BuilderOptions struct {
	config.BlockConfig
	Nullable   bool
	ColumnName string
}

func DefaultBuilderOptions(nullable bool) BuilderOptions {
	return BuilderOptions{BlockConfig: config.DefaultBlockConfig(), Nullable: nullable}
}
