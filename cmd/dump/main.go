// Dump walks every table in a database and prints its full contents —
// a quick way to eyeball a seeded database without a SQL front end.
// Usage: go run ./cmd/dump --base databases --db demo
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
	dbName := pflag.String("db", "demo", "database to dump")
	poolSize := pflag.Int64("pool-size", 256, "page cache capacity, in pages")
	pflag.Parse()

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

	for _, name := range cat.ShowTables() {
		tm, hf, _, err := cat.Table(name)
		if err != nil {
			stdlog.Fatalf("table %s: %v", name, err)
		}
		fmt.Printf("== %s ==\n", name)

		scan := exec.NewSeqScan(hf, tm.Cols, nil, nil)
		if err := scan.Begin(); err != nil {
			stdlog.Fatalf("scan %s: %v", name, err)
		}
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
}
