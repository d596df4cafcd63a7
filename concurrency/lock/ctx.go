package lock

// Ctx bundles the identity a lock acquisition needs: which transaction is
// asking, and which manager to ask. Passing a nil *Ctx into a locking call
// site is the specification's "Context not supplied" case — the caller is
// relying on the single-writer-per-table convention instead of the lock
// manager.
type Ctx struct {
	TxnID uint64
	Locks *Manager
}
