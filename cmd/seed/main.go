// Seed program: creates a database with a couple of tables and sample
// rows so cmd/inspect and cmd/dump have something to look at.
// Run: go run ./cmd/seed --base ./databases --db demo
package main

import (
	stdlog "log"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"

	"relstore/catalog"
	"relstore/concurrency/lock"
	"relstore/concurrency/txn"
	"relstore/storage/cache"
	"relstore/storage/diskmgr"
	"relstore/types"
)

func main() {
	baseDir := pflag.String("base", "databases", "root directory holding all databases")
	dbName := pflag.String("db", "demo", "database name to create and seed")
	poolSize := pflag.Int64("pool-size", 256, "page cache capacity, in pages")
	pflag.Parse()

	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	disk := diskmgr.New()
	pool, err := cache.New(disk, *poolSize)
	if err != nil {
		stdlog.Fatalf("build cache: %v", err)
	}

	cat, err := catalog.New(*baseDir, disk, pool)
	if err != nil {
		stdlog.Fatalf("build catalog: %v", err)
	}

	if err := cat.CreateDB(*dbName); err != nil {
		log.Warn().Err(err).Msg("create_db (continuing — may already exist)")
	}
	if err := cat.OpenDB(*dbName); err != nil {
		stdlog.Fatalf("open db: %v", err)
	}
	defer cat.CloseDB()

	txns := txn.NewManager()
	t := txns.Begin(1)
	lc := &lock.Ctx{TxnID: t.ID(), Locks: cat.Locks()}

	studentsCols := []types.ColMeta{
		{Name: "id", Type: types.TagInt32, Len: 4},
		{Name: "name", Type: types.TagString, Len: 16},
		{Name: "age", Type: types.TagInt32, Len: 4},
	}
	if err := cat.CreateTable("students", studentsCols, [][]string{{"id"}}); err != nil {
		log.Warn().Err(err).Msg("create_table students")
	}

	coursesCols := []types.ColMeta{
		{Name: "code", Type: types.TagString, Len: 8},
		{Name: "title", Type: types.TagString, Len: 32},
	}
	if err := cat.CreateTable("courses", coursesCols, nil); err != nil {
		log.Warn().Err(err).Msg("create_table courses")
	}

	insertStudent := func(id int32, name string, age int32) {
		_, hf, idxs, err := cat.Table("students")
		if err != nil {
			stdlog.Fatalf("table students: %v", err)
		}
		tm, _ := cat.DescTable("students")
		rec := types.NewRecord(tm.RecordSize())
		idCol, _ := tm.GetCol("id")
		nameCol, _ := tm.GetCol("name")
		ageCol, _ := tm.GetCol("age")
		rec.Set(idCol, types.IntValue(id))
		rec.Set(nameCol, types.StringValue(name))
		rec.Set(ageCol, types.IntValue(age))
		rid, err := hf.Insert(rec.Data, lc)
		if err != nil {
			stdlog.Fatalf("insert student: %v", err)
		}
		if idx, ok := idxs[types.IndexName("students", []string{"id"})]; ok {
			idx.InsertEntry(rec.Get(idCol), rid)
		}
	}

	insertCourse := func(code, title string) {
		_, hf, _, err := cat.Table("courses")
		if err != nil {
			stdlog.Fatalf("table courses: %v", err)
		}
		tm, _ := cat.DescTable("courses")
		rec := types.NewRecord(tm.RecordSize())
		codeCol, _ := tm.GetCol("code")
		titleCol, _ := tm.GetCol("title")
		rec.Set(codeCol, types.StringValue(code))
		rec.Set(titleCol, types.StringValue(title))
		if _, err := hf.Insert(rec.Data, lc); err != nil {
			stdlog.Fatalf("insert course: %v", err)
		}
	}

	insertStudent(1, "Alice", 20)
	insertStudent(2, "Bob", 21)
	insertStudent(3, "Carol", 19)
	insertCourse("CS101", "Intro to CS")
	insertCourse("CS102", "Data Structures")

	txns.Commit(t.ID())

	if err := pool.FlushAll(); err != nil {
		stdlog.Fatalf("flush: %v", err)
	}

	log.Info().Str("base", *baseDir).Str("db", *dbName).Msg("seed complete")
}
