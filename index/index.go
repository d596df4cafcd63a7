// Package index provides the secondary-index handle external collaborator:
// an ordered insert_entry/delete_entry contract backed by an in-memory
// B-tree. This stands in for the on-disk B+-tree, which is out of scope —
// the Update operator only needs a real ordered index to exercise, not a
// paged one.
package index

import (
	"sync"

	"github.com/google/btree"

	"relstore/types"
)

const degree = 32

// entry is one (key, rid) pair stored in the tree. Ties on Key are broken
// by Rid so an index can hold multiple rows under an equal key, the same
// way a non-unique secondary index does on disk.
type entry struct {
	key types.Value
	rid types.Rid
}

func (e *entry) Less(than btree.Item) bool {
	other := than.(*entry)
	if c := types.CompareValues(e.key, other.key); c != 0 {
		return c < 0
	}
	if e.rid.PageNo != other.rid.PageNo {
		return e.rid.PageNo < other.rid.PageNo
	}
	return e.rid.SlotNo < other.rid.SlotNo
}

// BTreeIndex is the concrete secondary-index handle.
type BTreeIndex struct {
	mu   sync.RWMutex
	tree *btree.BTree
}

func New() *BTreeIndex {
	return &BTreeIndex{tree: btree.New(degree)}
}

// InsertEntry records that key maps to rid.
func (idx *BTreeIndex) InsertEntry(key types.Value, rid types.Rid) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.tree.ReplaceOrInsert(&entry{key: key, rid: rid})
}

// DeleteEntry removes the (key, rid) pair, if present.
func (idx *BTreeIndex) DeleteEntry(key types.Value, rid types.Rid) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.tree.Delete(&entry{key: key, rid: rid})
}

// Find returns every rid stored under key, in rid order.
func (idx *BTreeIndex) Find(key types.Value) []types.Rid {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	var rids []types.Rid
	pivot := &entry{key: key, rid: types.Rid{PageNo: types.NoPage, SlotNo: types.NoSlot}}
	idx.tree.AscendGreaterOrEqual(pivot, func(item btree.Item) bool {
		e := item.(*entry)
		if types.CompareValues(e.key, key) != 0 {
			return false
		}
		rids = append(rids, e.rid)
		return true
	})
	return rids
}

// Len reports the number of entries currently indexed.
func (idx *BTreeIndex) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.tree.Len()
}
