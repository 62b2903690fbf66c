package store

import (
	"sort"
	"time"

	"github.com/tesserakv/tessera/internal/model"
)

// Snapshot is an immutable view of a bucket's keys sorted by one
// comparator, stamped with its creation time and the staleness budget it
// was requested with. Snapshots are never mutated, only replaced
// wholesale by the cache that owns them.
type Snapshot struct {
	id        string
	keys      []string
	cmp       model.KeyComparator
	createdAt time.Time
	ttl       time.Duration
}

// newSnapshot copies and sorts keys under cmp
func newSnapshot(id string, keys []string, cmp model.KeyComparator, createdAt time.Time, ttl time.Duration) *Snapshot {
	sorted := make([]string, len(keys))
	copy(sorted, keys)
	sort.Slice(sorted, func(i, j int) bool {
		return cmp.Compare(sorted[i], sorted[j]) < 0
	})
	return &Snapshot{
		id:        id,
		keys:      sorted,
		cmp:       cmp,
		createdAt: createdAt,
		ttl:       ttl,
	}
}

// ID returns the cache id the snapshot was computed for
func (s *Snapshot) ID() string {
	return s.id
}

// CreatedAt returns the snapshot's creation time
func (s *Snapshot) CreatedAt() time.Time {
	return s.createdAt
}

// TTL returns the staleness budget the snapshot was created with
func (s *Snapshot) TTL() time.Duration {
	return s.ttl
}

// Len returns the number of keys captured
func (s *Snapshot) Len() int {
	return len(s.keys)
}

// Keys returns the captured keys in snapshot order
func (s *Snapshot) Keys() []string {
	keys := make([]string, len(s.keys))
	copy(keys, s.keys)
	return keys
}

// Expired reports whether the snapshot is stale at now. Staleness is
// strict: a snapshot is stale only once now lies beyond creation plus
// the ttl it was created with, so a zero ttl keeps the snapshot fresh
// for the instant of its creation and no longer.
func (s *Snapshot) Expired(now time.Time) bool {
	return now.After(s.createdAt.Add(s.ttl))
}

// KeysInRange returns the keys between start and end in snapshot order.
// The end bound is inclusive and empty means unbounded; limit > 0 caps
// the result length. An empty start means the range begins at the first
// key regardless of ordering.
func (s *Snapshot) KeysInRange(start, end string, limit int) []string {
	first := 0
	if start != "" {
		first = sort.Search(len(s.keys), func(i int) bool {
			return s.cmp.Compare(s.keys[i], start) >= 0
		})
	}

	result := make([]string, 0)
	for i := first; i < len(s.keys); i++ {
		if end != "" && s.cmp.Compare(s.keys[i], end) > 0 {
			break
		}
		result = append(result, s.keys[i])
		if limit > 0 && len(result) == limit {
			break
		}
	}
	return result
}
