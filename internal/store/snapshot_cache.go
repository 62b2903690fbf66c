package store

import (
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/tesserakv/tessera/internal/model"
)

// KeySource enumerates the current keys of a bucket. It stands in for a
// direct bucket dependency so the cache can be exercised against fakes.
type KeySource interface {
	Keys() []string
}

// SnapshotCache holds at most one Snapshot per id and recomputes lazily
// when the cached entry is stale. Recomputation is single-flight per id:
// concurrent callers for one id serialize on a per-id critical section,
// and callers that waited re-check the cache so a fresh entry produced
// by the winner is shared rather than recomputed. Callers asking for
// distinct ids never block each other.
type SnapshotCache struct {
	mu        sync.RWMutex
	snapshots map[string]*Snapshot
	flights   map[string]*sync.Mutex
	logger    *zap.Logger

	hits         uint64
	computations uint64
}

// CacheStats is a point-in-time view of cache activity
type CacheStats struct {
	Snapshots    int
	Hits         uint64
	Computations uint64
}

// NewSnapshotCache creates an empty cache
func NewSnapshotCache(logger *zap.Logger) *SnapshotCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SnapshotCache{
		snapshots: make(map[string]*Snapshot),
		flights:   make(map[string]*sync.Mutex),
		logger:    logger,
	}
}

// GetOrCompute returns the snapshot cached under id if it is still
// fresh, otherwise computes a replacement from src sorted by cmp. The
// ttl stamped onto a new snapshot is the requesting caller's; it governs
// all later freshness checks for that snapshot.
func (c *SnapshotCache) GetOrCompute(src KeySource, cmp model.KeyComparator, id string, ttl time.Duration) *Snapshot {
	if snap := c.lookup(id); snap != nil {
		atomic.AddUint64(&c.hits, 1)
		return snap
	}

	flight := c.flight(id)
	flight.Lock()
	defer flight.Unlock()

	// A caller that held the flight lock first may have refreshed the
	// entry while this one waited.
	if snap := c.lookup(id); snap != nil {
		atomic.AddUint64(&c.hits, 1)
		return snap
	}

	start := time.Now()
	snap := newSnapshot(id, src.Keys(), cmp, time.Now(), ttl)

	c.mu.Lock()
	c.snapshots[id] = snap
	c.mu.Unlock()

	atomic.AddUint64(&c.computations, 1)
	c.logger.Debug("Snapshot computed",
		zap.String("snapshot_id", id),
		zap.Int("keys", snap.Len()),
		zap.Duration("ttl", ttl),
		zap.Duration("latency", time.Since(start)))

	return snap
}

// Get returns the snapshot cached under id if present and fresh
func (c *SnapshotCache) Get(id string) (*Snapshot, bool) {
	snap := c.lookup(id)
	return snap, snap != nil
}

// Invalidate drops the snapshot cached under id
func (c *SnapshotCache) Invalidate(id string) {
	c.mu.Lock()
	delete(c.snapshots, id)
	c.mu.Unlock()
}

// Stats returns a point-in-time view of cache activity
func (c *SnapshotCache) Stats() CacheStats {
	c.mu.RLock()
	entries := len(c.snapshots)
	c.mu.RUnlock()
	return CacheStats{
		Snapshots:    entries,
		Hits:         atomic.LoadUint64(&c.hits),
		Computations: atomic.LoadUint64(&c.computations),
	}
}

// lookup returns the cached snapshot for id unless absent or stale
func (c *SnapshotCache) lookup(id string) *Snapshot {
	c.mu.RLock()
	snap := c.snapshots[id]
	c.mu.RUnlock()
	if snap != nil && !snap.Expired(time.Now()) {
		return snap
	}
	return nil
}

// flight returns the critical-section lock for id, creating it on first
// use. Ids are comparator names, a closed set, so the table stays small.
func (c *SnapshotCache) flight(id string) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	f, ok := c.flights[id]
	if !ok {
		f = &sync.Mutex{}
		c.flights[id] = f
	}
	return f
}
