package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/coldb/coldb/pkg/array"
	"github.com/coldb/coldb/pkg/catalog"
	"github.com/coldb/coldb/pkg/storage/compactor"
	"github.com/coldb/coldb/pkg/storage/config"
	"github.com/coldb/coldb/pkg/storage/rowset"
	"github.com/coldb/coldb/pkg/storage/txn"
)

func main() {
	dir, err := os.MkdirTemp("", "coldb-demo-*")
	if err != nil {
		log.Fatal("create storage dir failed:", err)
	}
	defer os.RemoveAll(dir)

	cfg := config.DefaultStorageConfig(dir)
	st, err := txn.Open(cfg)
	if err != nil {
		log.Fatal("open storage failed:", err)
	}

	cols := []catalog.ColumnCatalog{
		{ID: 0, Name: "id", Type: array.Int64(false), IsSortKey: true, SortKeyOrdinal: 0},
		{ID: 1, Name: "name", Type: array.String(true), Nullable: true},
	}
	if err := st.CreateTable(1, "events", cols); err != nil {
		log.Fatal("create table failed:", err)
	}

	table, err := st.GetTable(1)
	if err != nil {
		log.Fatal("get table failed:", err)
	}

	tx := table.Write()
	idCol := array.NewPrimitiveBuilder[int64](array.Int64(false))
	nameCol := array.NewBuilder(cols[1].Type).(*array.BytesBuilder)
	for i := int64(0); i < 5; i++ {
		idCol.Append(i)
		nameCol.Append([]byte(fmt.Sprintf("row-%d", i)))
	}
	chunk := array.NewChunk([]array.Array{idCol.Finish(), nameCol.Finish()})
	if err := tx.Append(chunk); err != nil {
		log.Fatal("append failed:", err)
	}
	if err := tx.Commit(); err != nil {
		log.Fatal("commit failed:", err)
	}

	fmt.Println("committed 5 rows to table \"events\"")

	read := table.Read()
	it, err := read.Scan([]rowset.ColumnRef{rowset.Idx(0), rowset.Idx(1)})
	if err != nil {
		log.Fatal("scan failed:", err)
	}
	for {
		c, ok := it.NextBatch(1024)
		if !ok {
			break
		}
		fmt.Printf("scanned batch of %d rows\n", c.Cardinality)
	}
	read.Commit()

	comp := compactor.New(st.Manager(), st.Cache(), st.Path(), cfg.Compaction, cfg.IOBackend).WithLogger(st.Log)
	tick := time.Duration(cfg.Compaction.Tick)
	ctx, cancel := context.WithTimeout(context.Background(), 2*tick)
	defer cancel()
	if err := comp.Run(ctx); err != nil && ctx.Err() == nil {
		log.Fatal("compactor run failed:", err)
	}

	fmt.Println("demo complete")
}
