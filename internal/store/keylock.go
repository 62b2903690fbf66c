package store

import "sync"

// keyLocks hands out exclusive locks scoped to individual keys. Entries
// are refcounted and removed when the last holder releases, so the table
// only contains keys with an update in flight. Locks for distinct keys
// never contend.
type keyLocks struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

func newKeyLocks() *keyLocks {
	return &keyLocks{locks: make(map[string]*keyLock)}
}

// acquire blocks until the exclusive lock for key is held. The refcount
// includes waiters, which keeps the entry alive until every acquirer has
// released.
func (kl *keyLocks) acquire(key string) {
	kl.mu.Lock()
	l, ok := kl.locks[key]
	if !ok {
		l = &keyLock{}
		kl.locks[key] = l
	}
	l.refs++
	kl.mu.Unlock()

	l.mu.Lock()
}

// release drops the exclusive lock for key
func (kl *keyLocks) release(key string) {
	kl.mu.Lock()
	l := kl.locks[key]
	l.refs--
	if l.refs == 0 {
		delete(kl.locks, key)
	}
	kl.mu.Unlock()

	l.mu.Unlock()
}

// size returns the number of keys with an acquired or contended lock
func (kl *keyLocks) size() int {
	kl.mu.Lock()
	defer kl.mu.Unlock()
	return len(kl.locks)
}
