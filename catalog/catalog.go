// Package catalog is the storage-manager component: database and table
// directory lifecycle, schema persistence, and heap-file/index wiring for
// each open table. It threads an absolute base path throughout instead of
// os.Chdir-ing into the active database, per the reference implementation's
// noted directory-switching wart.
package catalog

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"relstore/concurrency/lock"
	"relstore/index"
	"relstore/storage/cache"
	"relstore/storage/diskmgr"
	"relstore/storage/heap"
	"relstore/types"
)

// dbMeta is the on-disk descriptor for one database directory: every
// table's schema, persisted as a single JSON document rewritten
// atomically on every schema-changing operation.
type dbMeta struct {
	Tables map[string]types.TabMeta `json:"tables"`
}

const metaFileName = "catalog.json"

// openTable bundles a table's schema with its live heap file and
// secondary index handles.
type openTable struct {
	meta    types.TabMeta
	heap    *heap.File
	indexes map[string]*index.BTreeIndex // indexName -> handle
}

// Catalog owns one open database: its directory, its table metadata, and
// every open table's heap file and indexes.
type Catalog struct {
	baseDir string // absolute path to the directory holding all databases
	disk    *diskmgr.Manager
	cache   cache.PageCache
	locks   *lock.Manager

	dbName string
	meta   dbMeta
	tables map[string]*openTable
}

// New builds a Catalog rooted at an absolute baseDir, with no database
// open yet. The catalog owns one lock manager shared by every table it
// opens, since resources are already keyed by fileID and a single manager
// avoids reconstructing lock state across CloseDB/OpenDB cycles.
func New(baseDir string, disk *diskmgr.Manager, c cache.PageCache) (*Catalog, error) {
	if !filepath.IsAbs(baseDir) {
		abs, err := filepath.Abs(baseDir)
		if err != nil {
			return nil, types.Errorf(types.KindIoError, "resolve base dir: %v", err)
		}
		baseDir = abs
	}
	return &Catalog{baseDir: baseDir, disk: disk, cache: c, locks: lock.NewManager(), tables: make(map[string]*openTable)}, nil
}

// Locks returns the lock manager shared by every table this catalog opens,
// for callers building a *lock.Ctx to pass into heap/exec operations.
func (c *Catalog) Locks() *lock.Manager { return c.locks }

func (c *Catalog) dbDir(name string) string { return filepath.Join(c.baseDir, name) }
func (c *Catalog) metaPath(name string) string {
	return filepath.Join(c.dbDir(name), metaFileName)
}
func (c *Catalog) heapPath(name, table string) string {
	return filepath.Join(c.dbDir(name), table+".heap")
}
func (c *Catalog) logPath(name string) string {
	return filepath.Join(c.dbDir(name), "LOG")
}

// CreateDB creates a new, empty database directory, its metadata file, and
// its empty log file. The log file is only touched into existence here —
// it is opened for append/read through the disk manager's single log slot
// by OpenDB, so creating one database's log can't clobber another
// database's already-open log handle.
func (c *Catalog) CreateDB(name string) error {
	dir := c.dbDir(name)
	if _, err := os.Stat(dir); err == nil {
		return types.Errorf(types.KindDatabaseExists, "database %q already exists", name)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return types.Errorf(types.KindIoError, "mkdir %s: %v", dir, err)
	}
	if err := c.writeMeta(name, dbMeta{Tables: make(map[string]types.TabMeta)}); err != nil {
		return err
	}
	logFile, err := os.OpenFile(c.logPath(name), os.O_RDWR|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return types.Errorf(types.KindIoError, "create log %s: %v", c.logPath(name), err)
	}
	return logFile.Close()
}

// DropDB removes a closed database directory entirely.
func (c *Catalog) DropDB(name string) error {
	if c.dbName == name {
		return types.Errorf(types.KindDatabaseExists, "database %q is open, close it first", name)
	}
	dir := c.dbDir(name)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return types.Errorf(types.KindDatabaseNotFound, "database %q not found", name)
	}
	if err := os.RemoveAll(dir); err != nil {
		return types.Errorf(types.KindIoError, "remove %s: %v", dir, err)
	}
	return nil
}

// OpenDB loads name's metadata and every table's heap file into memory,
// and opens the database's log file for appends.
func (c *Catalog) OpenDB(name string) error {
	meta, err := c.readMeta(name)
	if err != nil {
		return err
	}
	if err := c.disk.OpenLog(c.logPath(name)); err != nil {
		return err
	}
	c.dbName = name
	c.meta = meta
	c.tables = make(map[string]*openTable)

	for tableName, tm := range meta.Tables {
		hf, err := heap.Open(c.disk, c.cache, c.heapPath(name, tableName))
		if err != nil {
			return err
		}
		c.tables[tableName] = &openTable{meta: tm, heap: hf, indexes: make(map[string]*index.BTreeIndex)}
		for _, cols := range tm.IndexCols {
			c.tables[tableName].indexes[types.IndexName(tableName, cols)] = index.New()
		}
	}
	log.Info().Str("component", "catalog").Str("db", name).Int("tables", len(meta.Tables)).Msg("open_db")
	return nil
}

// CloseDB flushes and closes every open table's heap file, and the
// database's log file.
func (c *Catalog) CloseDB() error {
	if c.dbName == "" {
		return nil
	}
	var firstErr error
	for _, t := range c.tables {
		if err := t.heap.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if err := c.disk.CloseLog(); err != nil && firstErr == nil {
		firstErr = err
	}
	c.dbName = ""
	c.tables = make(map[string]*openTable)
	return firstErr
}

// CreateTable adds a new table to the open database: assigns byte offsets
// to its columns, creates its heap file, registers any declared secondary
// indexes, and persists the updated schema.
func (c *Catalog) CreateTable(name string, cols []types.ColMeta, indexCols [][]string) error {
	if c.dbName == "" {
		return types.Errorf(types.KindDatabaseNotFound, "no database open")
	}
	if _, exists := c.tables[name]; exists {
		return types.Errorf(types.KindTableExists, "table %q already exists", name)
	}

	assigned, recordSize := types.AssignOffsets(name, cols)
	tm := types.TabMeta{Name: name, Cols: assigned, IndexCols: indexCols}

	hf, err := heap.Create(c.disk, c.cache, c.heapPath(c.dbName, name), recordSize)
	if err != nil {
		return err
	}

	ot := &openTable{meta: tm, heap: hf, indexes: make(map[string]*index.BTreeIndex)}
	for _, cols := range indexCols {
		ot.indexes[types.IndexName(name, cols)] = index.New()
	}
	c.tables[name] = ot

	if c.meta.Tables == nil {
		c.meta.Tables = make(map[string]types.TabMeta)
	}
	c.meta.Tables[name] = tm
	if err := c.writeMeta(c.dbName, c.meta); err != nil {
		delete(c.tables, name)
		return err
	}
	log.Info().Str("component", "catalog").Str("table", name).Int("record_size", recordSize).Msg("create_table")
	return nil
}

// DropTable removes a table's heap file and schema entry.
func (c *Catalog) DropTable(name string) error {
	ot, ok := c.tables[name]
	if !ok {
		return types.Errorf(types.KindTableNotFound, "table %q not found", name)
	}
	if err := ot.heap.Close(); err != nil {
		return err
	}
	if err := c.disk.DestroyFile(c.heapPath(c.dbName, name)); err != nil {
		return err
	}
	delete(c.tables, name)
	delete(c.meta.Tables, name)
	return c.writeMeta(c.dbName, c.meta)
}

// Table returns the schema, heap file, and index set for an open table.
func (c *Catalog) Table(name string) (*types.TabMeta, *heap.File, map[string]*index.BTreeIndex, error) {
	ot, ok := c.tables[name]
	if !ok {
		return nil, nil, nil, types.Errorf(types.KindTableNotFound, "table %q not found", name)
	}
	return &ot.meta, ot.heap, ot.indexes, nil
}

// ShowTables lists every table in the open database.
func (c *Catalog) ShowTables() []string {
	names := make([]string, 0, len(c.tables))
	for n := range c.tables {
		names = append(names, n)
	}
	return names
}

// DescTable returns a table's column schema.
func (c *Catalog) DescTable(name string) (*types.TabMeta, error) {
	ot, ok := c.tables[name]
	if !ok {
		return nil, types.Errorf(types.KindTableNotFound, "table %q not found", name)
	}
	return &ot.meta, nil
}

func (c *Catalog) readMeta(name string) (dbMeta, error) {
	path := c.metaPath(name)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return dbMeta{}, types.Errorf(types.KindDatabaseNotFound, "database %q not found", name)
		}
		return dbMeta{}, types.Errorf(types.KindIoError, "read %s: %v", path, err)
	}
	var m dbMeta
	if err := json.Unmarshal(data, &m); err != nil {
		return dbMeta{}, types.Errorf(types.KindIoError, "parse %s: %v", path, err)
	}
	if m.Tables == nil {
		m.Tables = make(map[string]types.TabMeta)
	}
	return m, nil
}

// writeMeta persists m via a temp-file-then-rename swap so a crash never
// leaves a half-written catalog.json behind.
func (c *Catalog) writeMeta(name string, m dbMeta) error {
	path := c.metaPath(name)
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return types.Errorf(types.KindInternal, "marshal catalog: %v", err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return types.Errorf(types.KindIoError, "write temp catalog: %v", err)
	}
	tmpFile, err := os.OpenFile(tmpPath, os.O_RDWR, 0644)
	if err != nil {
		return types.Errorf(types.KindIoError, "reopen temp catalog: %v", err)
	}
	if err := tmpFile.Sync(); err != nil {
		tmpFile.Close()
		return types.Errorf(types.KindIoError, "sync temp catalog: %v", err)
	}
	tmpFile.Close()

	if err := os.Rename(tmpPath, path); err != nil {
		return types.Errorf(types.KindIoError, "rename temp catalog: %v", err)
	}
	return nil
}
