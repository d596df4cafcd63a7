// relstore has no SQL front end — building and running the pull-model
// operators in exec is the caller's job. This entry point is a smoke test:
// it seeds a scratch database, joins two tables with a nested-loop join,
// sorts the result, and prints it, so a reader can see the storage and
// execution layers working together without any of the cmd/ tools.
package main

import (
	"fmt"
	stdlog "log"

	"relstore/catalog"
	"relstore/concurrency/lock"
	"relstore/concurrency/txn"
	"relstore/exec"
	"relstore/storage/cache"
	"relstore/storage/diskmgr"
	"relstore/types"
)

func main() {
	const baseDir = "databases"
	const dbName = "scratch"

	disk := diskmgr.New()
	pool, err := cache.New(disk, 256)
	if err != nil {
		stdlog.Fatalf("build cache: %v", err)
	}
	cat, err := catalog.New(baseDir, disk, pool)
	if err != nil {
		stdlog.Fatalf("build catalog: %v", err)
	}

	if err := cat.CreateDB(dbName); err != nil {
		stdlog.Printf("create_db: %v (continuing)", err)
	}
	if err := cat.OpenDB(dbName); err != nil {
		stdlog.Fatalf("open_db: %v", err)
	}
	defer cat.CloseDB()

	txns := txn.NewManager()
	t := txns.Begin(1)
	lc := &lock.Ctx{TxnID: t.ID(), Locks: cat.Locks()}

	studentsCols := []types.ColMeta{
		{Name: "id", Type: types.TagInt32, Len: 4},
		{Name: "name", Type: types.TagString, Len: 16},
	}
	if err := cat.CreateTable("students", studentsCols, nil); err != nil {
		stdlog.Printf("create_table students: %v (continuing)", err)
	}

	enrolledCols := []types.ColMeta{
		{Name: "student_id", Type: types.TagInt32, Len: 4},
		{Name: "course", Type: types.TagString, Len: 8},
	}
	if err := cat.CreateTable("enrolled", enrolledCols, nil); err != nil {
		stdlog.Printf("create_table enrolled: %v (continuing)", err)
	}

	stm, shf, _, err := cat.Table("students")
	if err != nil {
		stdlog.Fatalf("table students: %v", err)
	}
	etm, ehf, _, err := cat.Table("enrolled")
	if err != nil {
		stdlog.Fatalf("table enrolled: %v", err)
	}

	idCol, _ := stm.GetCol("id")
	nameCol, _ := stm.GetCol("name")
	for _, row := range []struct {
		id   int32
		name string
	}{{2, "Bob"}, {1, "Alice"}, {3, "Carol"}} {
		rec := types.NewRecord(stm.RecordSize())
		rec.Set(idCol, types.IntValue(row.id))
		rec.Set(nameCol, types.StringValue(row.name))
		if _, err := shf.Insert(rec.Data, lc); err != nil {
			stdlog.Fatalf("insert student: %v", err)
		}
	}

	studentIDCol, _ := etm.GetCol("student_id")
	courseCol, _ := etm.GetCol("course")
	for _, row := range []struct {
		studentID int32
		course    string
	}{{1, "CS101"}, {2, "CS101"}, {2, "CS102"}} {
		rec := types.NewRecord(etm.RecordSize())
		rec.Set(studentIDCol, types.IntValue(row.studentID))
		rec.Set(courseCol, types.StringValue(row.course))
		if _, err := ehf.Insert(rec.Data, lc); err != nil {
			stdlog.Fatalf("insert enrollment: %v", err)
		}
	}

	left := exec.NewSeqScan(shf, stm.Cols, nil, lc)
	right := exec.NewSeqScan(ehf, etm.Cols, nil, lc)
	join := exec.NewNLJoin(left, right, []exec.Condition{
		{
			Lhs: exec.ColRef{Table: "students", Name: "id"},
			Op:  exec.OpEq,
			Rhs: exec.ColRef{Table: "enrolled", Name: "student_id"},
		},
	})

	sorted, err := exec.NewSort(join, exec.ColRef{Name: "name"}, false)
	if err != nil {
		stdlog.Fatalf("sort: %v", err)
	}
	if err := sorted.Begin(); err != nil {
		stdlog.Fatalf("begin: %v", err)
	}

	nameOut, _ := findCol(sorted.Columns(), "name")
	courseOut, _ := findCol(sorted.Columns(), "course")

	fmt.Println("enrollments, sorted by student name:")
	for !sorted.IsEnd() {
		rec, err := sorted.Record()
		if err != nil {
			stdlog.Fatalf("record: %v", err)
		}
		fmt.Printf("  %s -> %s\n", rec.Get(nameOut).S, rec.Get(courseOut).S)
		if err := sorted.Advance(); err != nil {
			stdlog.Fatalf("advance: %v", err)
		}
	}

	txns.Commit(t.ID())

	if err := pool.FlushAll(); err != nil {
		stdlog.Fatalf("flush: %v", err)
	}
}

func findCol(cols []types.ColMeta, name string) (*types.ColMeta, bool) {
	for i := range cols {
		if cols[i].Name == name {
			return &cols[i], true
		}
	}
	return nil, false
}
