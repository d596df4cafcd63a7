// Package diskmgr owns raw file descriptors and positional page I/O: the
// disk manager component. It knows nothing about record layout — callers
// hand it whole PageSize-byte buffers.
package diskmgr

import (
	"errors"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"syscall"

	"github.com/rs/zerolog/log"

	"relstore/storage/page"
	"relstore/types"
)

// fileHandle is one open OS file plus its page-count counter. Page IDs
// within a file are dense and monotonically assigned by AllocatePage;
// DeallocatePage never shrinks the counter, matching the reference disk
// manager's page-slot model where a "freed" page is reused through the
// heap layer's free list, not returned to the OS.
type fileHandle struct {
	path     string
	file     *os.File
	numPages int32
	mu       sync.Mutex
}

// Manager is the disk manager: a registry of open files keyed by a
// small integer file ID, plus positional read/write of fixed-size pages.
// Global page IDs are encoded exactly the way the teacher's disk manager
// does it: fileID<<32 | localPageNo, so the encoding is deterministic and
// needs no persisted counter across restarts.
type Manager struct {
	mu      sync.RWMutex
	files   map[uint32]*fileHandle
	nextID  uint32
	logFile *os.File
	logSize int64
	logMu   sync.Mutex
}

func New() *Manager {
	return &Manager{
		files:  make(map[uint32]*fileHandle),
		nextID: 1,
	}
}

// CreateFile creates a new, empty heap/index file at path. It is an error
// for the file to already exist.
//
// This does not preallocate headroom beyond the file's logical size. This
// manager derives numPages straight from the physical file size at
// OpenFile time (see OpenFile below) with no separate on-disk page count,
// so padding the file here would make freshly created files look like
// they already had pages allocated — AllocatePage would hand out page
// numbers into that padding as though it were real content. Preallocating
// safely needs a persisted logical page count independent of physical
// size, which this manager doesn't keep; growth stays one page per
// AllocatePage call instead.
func (m *Manager) CreateFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return types.Errorf(types.KindFileExists, "file already exists: %s", path)
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return types.Errorf(types.KindIoError, "create %s: %v", path, err)
	}
	return f.Close()
}

// DestroyFile removes a closed file from disk.
func (m *Manager) DestroyFile(path string) error {
	m.mu.RLock()
	for _, fh := range m.files {
		if fh.path == path {
			m.mu.RUnlock()
			return types.Errorf(types.KindFileStillOpen, "file still open: %s", path)
		}
	}
	m.mu.RUnlock()
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return types.Errorf(types.KindFileNotFound, "file not found: %s", path)
		}
		return types.Errorf(types.KindIoError, "remove %s: %v", path, err)
	}
	return nil
}

// OpenFile opens an existing file and returns its file ID, allocating a
// fresh ID unless it is already open (idempotent by path, like the
// teacher's OpenFile/OpenFileWithID pair).
func (m *Manager) OpenFile(path string) (uint32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, fh := range m.files {
		if fh.path == path {
			return id, nil
		}
	}

	f, err := os.OpenFile(path, os.O_RDWR, 0644)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, types.Errorf(types.KindFileNotFound, "file not found: %s", path)
		}
		return 0, types.Errorf(types.KindIoError, "open %s: %v", path, err)
	}
	stat, err := f.Stat()
	if err != nil {
		f.Close()
		return 0, types.Errorf(types.KindIoError, "stat %s: %v", path, err)
	}

	id := m.nextID
	m.nextID++
	m.files[id] = &fileHandle{
		path:     path,
		file:     f,
		numPages: int32(stat.Size() / page.Size),
	}
	log.Debug().Str("component", "diskmgr").Str("path", path).Uint32("file_id", id).Msg("open_file")
	return id, nil
}

// CloseFile syncs and closes fileID's underlying descriptor.
func (m *Manager) CloseFile(fileID uint32) error {
	m.mu.Lock()
	fh, ok := m.files[fileID]
	if !ok {
		m.mu.Unlock()
		return types.Errorf(types.KindFileNotOpen, "file %d not open", fileID)
	}
	delete(m.files, fileID)
	m.mu.Unlock()

	fh.mu.Lock()
	defer fh.mu.Unlock()
	if err := fh.file.Sync(); err != nil {
		return types.Errorf(types.KindIoError, "sync fd %d: %v", fileID, err)
	}
	if err := fh.file.Close(); err != nil {
		return types.Errorf(types.KindIoError, "close fd %d: %v", fileID, err)
	}
	return nil
}

func (m *Manager) handle(fileID uint32) (*fileHandle, error) {
	m.mu.RLock()
	fh, ok := m.files[fileID]
	m.mu.RUnlock()
	if !ok {
		return nil, types.Errorf(types.KindFileNotOpen, "file %d not open", fileID)
	}
	return fh, nil
}

// ReadPage reads pageNo of fileID into a fresh page.Page. A short read past
// EOF is zero-filled rather than treated as an error, matching the
// reference disk manager's read-past-end semantics.
func (m *Manager) ReadPage(fileID uint32, pageNo int32) (*page.Page, error) {
	fh, err := m.handle(fileID)
	if err != nil {
		return nil, err
	}
	fh.mu.Lock()
	defer fh.mu.Unlock()

	if pageNo < 0 || pageNo >= fh.numPages {
		return nil, types.Errorf(types.KindPageNotExist, "page %d does not exist in file %d", pageNo, fileID)
	}

	pg := page.New(fileID, pageNo)
	off := int64(pageNo) * page.Size
	n, err := fh.file.ReadAt(pg.Data, off)
	if err != nil && err != io.EOF {
		return nil, types.Errorf(types.KindIoError, "read page %d of file %d: %v", pageNo, fileID, err)
	}
	for i := n; i < len(pg.Data); i++ {
		pg.Data[i] = 0
	}
	return pg, nil
}

// WritePage writes pg's contents to its (FileID, PageNo) slot.
func (m *Manager) WritePage(pg *page.Page) error {
	fh, err := m.handle(pg.FileID)
	if err != nil {
		return err
	}
	fh.mu.Lock()
	defer fh.mu.Unlock()

	off := int64(pg.PageNo) * page.Size
	if _, err := fh.file.WriteAt(pg.Data, off); err != nil {
		if isNoSpace(err) {
			return types.Errorf(types.KindNoSpace, "write page %d of file %d: %v", pg.PageNo, pg.FileID, err)
		}
		return types.Errorf(types.KindIoError, "write page %d of file %d: %v", pg.PageNo, pg.FileID, err)
	}
	pg.IsDirty = false
	return nil
}

// AllocatePage grows fileID by one page and returns its new page number.
// The caller is responsible for initializing the page's contents and
// writing it back — AllocatePage only reserves the slot.
func (m *Manager) AllocatePage(fileID uint32) (int32, error) {
	fh, err := m.handle(fileID)
	if err != nil {
		return 0, err
	}
	fh.mu.Lock()
	defer fh.mu.Unlock()
	pageNo := fh.numPages
	fh.numPages++
	return pageNo, nil
}

// DeallocatePage is a bookkeeping no-op: reclaimed pages are recycled by
// the heap layer's intrusive free list, not returned to the filesystem.
// It only validates that the page is in range.
func (m *Manager) DeallocatePage(fileID uint32, pageNo int32) error {
	fh, err := m.handle(fileID)
	if err != nil {
		return err
	}
	fh.mu.Lock()
	defer fh.mu.Unlock()
	if pageNo < 0 || pageNo >= fh.numPages {
		return types.Errorf(types.KindPageNotExist, "page %d does not exist in file %d", pageNo, fileID)
	}
	return nil
}

// NumPages reports how many pages fileID currently spans.
func (m *Manager) NumPages(fileID uint32) (int32, error) {
	fh, err := m.handle(fileID)
	if err != nil {
		return 0, err
	}
	fh.mu.Lock()
	defer fh.mu.Unlock()
	return fh.numPages, nil
}

// OpenLog opens (creating if needed) the append-only log file used for
// write_log/read_log, grounded on the teacher's wal_manager append/sync
// discipline minus checkpoint replay, which is out of scope here.
func (m *Manager) OpenLog(path string) error {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return types.Errorf(types.KindIoError, "open log %s: %v", path, err)
	}
	stat, err := f.Stat()
	if err != nil {
		f.Close()
		return types.Errorf(types.KindIoError, "stat log %s: %v", path, err)
	}
	m.logMu.Lock()
	m.logFile = f
	m.logSize = stat.Size()
	m.logMu.Unlock()
	return nil
}

// WriteLog appends buf to the log file and returns the byte offset it was
// written at.
func (m *Manager) WriteLog(buf []byte) (int64, error) {
	m.logMu.Lock()
	defer m.logMu.Unlock()
	if m.logFile == nil {
		return 0, types.Errorf(types.KindFileNotOpen, "log file not open")
	}
	off := m.logSize
	n, err := m.logFile.Write(buf)
	if err != nil {
		return 0, types.Errorf(types.KindIoError, "write log: %v", err)
	}
	atomic.AddInt64(&m.logSize, int64(n))
	return off, nil
}

// ReadLog reads length bytes starting at offset from the log file.
func (m *Manager) ReadLog(offset int64, length int) ([]byte, error) {
	m.logMu.Lock()
	f := m.logFile
	m.logMu.Unlock()
	if f == nil {
		return nil, types.Errorf(types.KindFileNotOpen, "log file not open")
	}
	buf := make([]byte, length)
	n, err := f.ReadAt(buf, offset)
	if err != nil && err != io.EOF {
		return nil, types.Errorf(types.KindIoError, "read log: %v", err)
	}
	return buf[:n], nil
}

// SyncLog flushes the log file to stable storage.
func (m *Manager) SyncLog() error {
	m.logMu.Lock()
	f := m.logFile
	m.logMu.Unlock()
	if f == nil {
		return nil
	}
	if err := f.Sync(); err != nil {
		return types.Errorf(types.KindIoError, "sync log: %v", err)
	}
	return nil
}

// CloseLog syncs and closes the log file, if one is open. Safe to call
// when no log is open.
func (m *Manager) CloseLog() error {
	m.logMu.Lock()
	defer m.logMu.Unlock()
	if m.logFile == nil {
		return nil
	}
	syncErr := m.logFile.Sync()
	closeErr := m.logFile.Close()
	m.logFile = nil
	if syncErr != nil {
		return types.Errorf(types.KindIoError, "sync log: %v", syncErr)
	}
	if closeErr != nil {
		return types.Errorf(types.KindIoError, "close log: %v", closeErr)
	}
	return nil
}

// CloseAll syncs and closes every open file, including the log.
func (m *Manager) CloseAll() error {
	m.mu.Lock()
	ids := make([]uint32, 0, len(m.files))
	for id := range m.files {
		ids = append(ids, id)
	}
	m.mu.Unlock()
	var firstErr error
	for _, id := range ids {
		if err := m.CloseFile(id); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if err := m.CloseLog(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

func isNoSpace(err error) bool {
	return errors.Is(err, syscall.ENOSPC) || errors.Is(err, syscall.EDQUOT)
}
