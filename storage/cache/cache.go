// Package cache implements the page cache external collaborator: the
// buffer pool contract (fetch_page/new_page/unpin_page) that storage/heap
// depends on. Eviction-candidate selection is delegated to ristretto's
// TinyLFU policy; pin-count, dirty bookkeeping, and cache-membership —
// which ristretto has no concept of, since it is a hint cache rather than
// a map — stay hand-written, in the same Page.Lock/Unlock/PinCount idiom
// the teacher's own bufferpool uses.
package cache

import (
	"sync"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/rs/zerolog/log"

	"relstore/storage/diskmgr"
	"relstore/storage/page"
	"relstore/types"
)

// PageCache is the external page-cache contract every heap file is built
// against — the same shape whether backed by this ristretto-based pool or
// a test double.
type PageCache interface {
	FetchPage(fileID uint32, pageNo int32) (*page.Page, error)
	NewPage(fileID uint32) (*page.Page, error)
	UnpinPage(pageID int64, dirty bool) error
	FlushPage(pageID int64) error
	FlushAll() error
	Close() error
}

// Pool is the concrete PageCache. pages holds every page currently
// resident in the pool, pinned or not — this is the source of truth for
// FlushAll and Close, since ristretto exposes no way to enumerate its own
// contents. cold additionally tracks the subset of pages with a zero pin
// count as eviction candidates for TinyLFU; a page leaves pages only when
// ristretto's OnEvict hook actually reclaims it.
type Pool struct {
	mu    sync.Mutex
	pages map[int64]*page.Page
	cold  *ristretto.Cache[int64, *page.Page]
	disk  *diskmgr.Manager
}

// New builds a pool backed by disk with room for roughly capacity pages in
// the cold (unpinned) tier.
func New(disk *diskmgr.Manager, capacity int64) (*Pool, error) {
	pool := &Pool{
		pages: make(map[int64]*page.Page),
		disk:  disk,
	}
	cold, err := ristretto.NewCache(&ristretto.Config[int64, *page.Page]{
		NumCounters: capacity * 10,
		MaxCost:     capacity,
		BufferItems: 64,
		OnEvict: func(item *ristretto.Item[*page.Page]) {
			pg := item.Value
			if pg == nil {
				return
			}
			if pg.IsDirty {
				if err := disk.WritePage(pg); err != nil {
					log.Error().Str("component", "cache").Int64("page_id", pg.ID).Err(err).Msg("evict flush failed")
				}
			}
			pool.mu.Lock()
			delete(pool.pages, pg.ID)
			pool.mu.Unlock()
		},
	})
	if err != nil {
		return nil, types.Errorf(types.KindInternal, "build page cache: %v", err)
	}
	pool.cold = cold
	return pool, nil
}

// FetchPage returns pageNo of fileID, pinned, loading it from disk on a
// miss and reclaiming it from eviction candidacy if it was cold.
func (p *Pool) FetchPage(fileID uint32, pageNo int32) (*page.Page, error) {
	id := page.GlobalID(fileID, pageNo)

	p.mu.Lock()
	if pg, ok := p.pages[id]; ok {
		if pg.PinCount == 0 {
			p.cold.Del(id)
		}
		pg.Pin()
		p.mu.Unlock()
		log.Debug().Str("component", "cache").Int64("page_id", id).Msg("hit")
		return pg, nil
	}
	p.mu.Unlock()

	log.Debug().Str("component", "cache").Int64("page_id", id).Msg("miss")
	pg, err := p.disk.ReadPage(fileID, pageNo)
	if err != nil {
		return nil, err
	}
	pg.Pin()

	p.mu.Lock()
	p.pages[id] = pg
	p.mu.Unlock()
	return pg, nil
}

// NewPage allocates a fresh page in fileID via the disk manager and
// returns it pinned and marked dirty, ready for the heap layer to
// initialize.
func (p *Pool) NewPage(fileID uint32) (*page.Page, error) {
	pageNo, err := p.disk.AllocatePage(fileID)
	if err != nil {
		return nil, err
	}
	pg := page.New(fileID, pageNo)
	pg.IsDirty = true
	pg.Pin()

	p.mu.Lock()
	p.pages[pg.ID] = pg
	p.mu.Unlock()
	log.Debug().Str("component", "cache").Int64("page_id", pg.ID).Msg("new_page")
	return pg, nil
}

// UnpinPage decrements pageID's pin count. Once it reaches zero the page
// stays resident in pages but is handed to ristretto as an eviction
// candidate; it is not removed until OnEvict actually reclaims it.
func (p *Pool) UnpinPage(pageID int64, dirty bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	pg, ok := p.pages[pageID]
	if !ok {
		return types.Errorf(types.KindPageNotExist, "page %d not pinned in cache", pageID)
	}
	pg.Unpin(dirty)
	if pg.PinCount == 0 {
		p.cold.Set(pageID, pg, 1)
	}
	return nil
}

// FlushPage writes pageID to disk if dirty, wherever it currently lives.
func (p *Pool) FlushPage(pageID int64) error {
	p.mu.Lock()
	pg, ok := p.pages[pageID]
	p.mu.Unlock()
	if !ok {
		return types.Errorf(types.KindPageNotExist, "page %d not in cache", pageID)
	}
	return flushOne(p.disk, pg)
}

// FlushAll writes every dirty page in the pool to disk, pinned or cold —
// there is no tier ristretto can hide a dirty page in that this misses.
func (p *Pool) FlushAll() error {
	p.mu.Lock()
	pages := make([]*page.Page, 0, len(p.pages))
	for _, pg := range p.pages {
		pages = append(pages, pg)
	}
	p.mu.Unlock()

	for _, pg := range pages {
		if err := flushOne(p.disk, pg); err != nil {
			return err
		}
	}
	return nil
}

func flushOne(disk *diskmgr.Manager, pg *page.Page) error {
	pg.RLock()
	dirty := pg.IsDirty
	pg.RUnlock()
	if !dirty {
		return nil
	}
	if err := disk.WritePage(pg); err != nil {
		return err
	}
	pg.Lock()
	pg.IsDirty = false
	pg.Unlock()
	return nil
}

// Close flushes everything and releases the ristretto cache.
func (p *Pool) Close() error {
	err := p.FlushAll()
	p.cold.Close()
	return err
}
