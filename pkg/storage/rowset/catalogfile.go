package rowset

import "github.com/coldb/coldb/pkg/catalog"

// catalogFileName is the per-rowset column catalog snapshot spec.md §6
// names "MANIFEST" inside the rowset directory — distinct from the
// storage-root MANIFEST log.
const catalogFileName = "MANIFEST"

func encodeCatalog(cols []catalog.ColumnCatalog) []byte { return catalog.EncodeColumns(cols) }

func decodeCatalog(data []byte) ([]catalog.ColumnCatalog, error) { return catalog.DecodeColumns(data) }
