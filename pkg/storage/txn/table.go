package txn

import "github.com/coldb/coldb/pkg/catalog"

// Table is a lightweight handle bound to one table's (cached) schema. The
// schema snapshot is taken once in Storage.GetTable, which caches the
// handle and returns the same one on later calls until DropTable evicts
// it — spec.md §4.11 scopes schema evolution to create/drop only, so this
// does not track schema changes.
type Table struct {
	storage *Storage
	tableID uint32
	catalog *catalog.TableCatalog
}

func (t *Table) ID() uint32                     { return t.tableID }
func (t *Table) Catalog() *catalog.TableCatalog { return t.catalog }

// Read opens a read-only transaction pinned to the current snapshot.
func (t *Table) Read() *Transaction {
	return &Transaction{table: t, version: t.storage.mgr.Pin(), writable: false, state: StateOpen}
}

// Write opens a writable transaction: an empty memtable accumulates
// Append()s, and Delete()s accumulate per target rowset, until Commit
// flushes them as one version epoch.
func (t *Table) Write() *Transaction {
	return &Transaction{
		table:    t,
		version:  t.storage.mgr.Pin(),
		writable: true,
		state:    StateOpen,
		deletes:  map[uint32]map[uint32]struct{}{},
	}
}

// Update is an alias for Write: every writable transaction in this engine
// behaves as read-modify-write against the pinned snapshot it opened
// against (spec.md §4.11 does not distinguish a separate update mode).
func (t *Table) Update() *Transaction { return t.Write() }
