// Inspect prints a table's schema and every live row via a full
// sequential scan.
// Usage: go run ./cmd/inspect --base databases --db demo --table students
package main

import (
	"fmt"
	stdlog "log"

	"github.com/spf13/pflag"

	"relstore/catalog"
	"relstore/exec"
	"relstore/storage/cache"
	"relstore/storage/diskmgr"
)

func main() {
	baseDir := pflag.String("base", "databases", "root directory holding all databases")
	dbName := pflag.String("db", "demo", "database to open")
	table := pflag.String("table", "", "table to inspect (required)")
	poolSize := pflag.Int64("pool-size", 256, "page cache capacity, in pages")
	pflag.Parse()

	if *table == "" {
		stdlog.Fatal("--table is required")
	}

	disk := diskmgr.New()
	pool, err := cache.New(disk, *poolSize)
	if err != nil {
		stdlog.Fatalf("build cache: %v", err)
	}
	cat, err := catalog.New(*baseDir, disk, pool)
	if err != nil {
		stdlog.Fatalf("build catalog: %v", err)
	}
	if err := cat.OpenDB(*dbName); err != nil {
		stdlog.Fatalf("open db: %v", err)
	}
	defer cat.CloseDB()

	tm, hf, _, err := cat.Table(*table)
	if err != nil {
		stdlog.Fatalf("table %s: %v", *table, err)
	}

	fmt.Printf("table %s (record size %d bytes)\n", tm.Name, tm.RecordSize())
	for _, c := range tm.Cols {
		fmt.Printf("  %s\n", c)
	}

	scan := exec.NewSeqScan(hf, tm.Cols, nil, nil)
	if err := scan.Begin(); err != nil {
		stdlog.Fatalf("scan: %v", err)
	}
	fmt.Println("rows:")
	for !scan.IsEnd() {
		rec, err := scan.Record()
		if err != nil {
			stdlog.Fatalf("record: %v", err)
		}
		fmt.Printf("  %s: ", scan.Rid())
		for _, c := range tm.Cols {
			fmt.Printf("%s=%v ", c.Name, rec.Get(&c))
		}
		fmt.Println()
		if err := scan.Advance(); err != nil {
			stdlog.Fatalf("advance: %v", err)
		}
	}
}
