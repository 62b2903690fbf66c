package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tesserakv/tessera/internal/errors"
	"github.com/tesserakv/tessera/internal/model"
	"github.com/tesserakv/tessera/internal/storage/kvmap"
	"github.com/tesserakv/tessera/internal/storage/persist"
	"github.com/tesserakv/tessera/internal/util/workerpool"
)

// Bucket owns one partition's keys and values. Point operations go
// straight to the backing map; range queries are answered from cached
// snapshots; updates run on the shared worker pool under a per-key
// exclusive lock.
type Bucket struct {
	name    string
	data    *kvmap.Map
	locks   *keyLocks
	pool    *workerpool.WorkerPool
	flusher persist.Flusher
	logger  *zap.Logger

	cacheOnce sync.Once
	cache     *SnapshotCache
}

// NewBucket creates an empty bucket backed by the given pool and
// persistence hook. A nil flusher disables persistence.
func NewBucket(name string, pool *workerpool.WorkerPool, flusher persist.Flusher, logger *zap.Logger) *Bucket {
	if flusher == nil {
		flusher = persist.NewNopFlusher()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bucket{
		name:    name,
		data:    kvmap.New(),
		locks:   newKeyLocks(),
		pool:    pool,
		flusher: flusher,
		logger:  logger,
	}
}

// Name returns the bucket's name
func (b *Bucket) Name() string {
	return b.name
}

// Put stores value under key, replacing any existing value
func (b *Bucket) Put(key string, value model.Value) {
	b.data.Put(key, value)
}

// Get returns the value stored under key
func (b *Bucket) Get(key string) (model.Value, error) {
	v, ok := b.data.Get(key)
	if !ok {
		return nil, errors.KeyNotFound(b.name, key)
	}
	return v, nil
}

// ConditionalGet returns the value under key if it satisfies the
// predicate. A missing key is an error; a present value that fails the
// predicate is an empty, non-error result. The bool reports whether a
// value was returned.
func (b *Bucket) ConditionalGet(key string, predicate model.Predicate, condition model.Condition) (model.Value, bool, error) {
	v, ok := b.data.Get(key)
	if !ok {
		return nil, false, errors.KeyNotFound(b.name, key)
	}

	matched, err := v.Satisfies(key, predicate, condition)
	if err != nil {
		if errors.IsStorageError(err) {
			return nil, false, err
		}
		return nil, false, errors.InternalError("predicate evaluation failed", err)
	}
	if !matched {
		return nil, false, nil
	}
	return v, true, nil
}

// Remove deletes key. Removing an absent key is an error.
func (b *Bucket) Remove(key string) error {
	if !b.data.Delete(key) {
		return errors.KeyNotFound(b.name, key)
	}
	return nil
}

// Update applies a bounded read-modify-write to key. The function runs
// on the worker pool while the caller holds the key's exclusive lock; if
// it completes within update.Timeout the result replaces the stored
// value, otherwise the task is cancelled and the stored value stays
// untouched. Cancellation is best-effort: an evaluation already running
// is not preempted, its result is discarded.
func (b *Bucket) Update(ctx context.Context, key string, update model.Update, function model.Function) (model.Value, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.UpdateCancelled(b.name, key, err)
	}
	if !b.data.Has(key) {
		return nil, errors.KeyNotFound(b.name, key)
	}

	b.locks.acquire(key)
	defer b.locks.release(key)

	// The key may have been removed between the existence check and
	// lock acquisition.
	current, ok := b.data.Get(key)
	if !ok {
		return nil, errors.KeyNotFound(b.name, key)
	}

	handle, err := b.pool.Submit(workerpool.Task{
		ID: uuid.NewString(),
		Fn: func(context.Context) (interface{}, error) {
			return current.Apply(key, update, function)
		},
	})
	if err != nil {
		return nil, errors.UpdateCancelled(b.name, key, err)
	}

	result, err := handle.Await(update.Timeout)
	if err != nil {
		handle.Cancel()
		b.logger.Warn("Update cancelled",
			zap.String("bucket", b.name),
			zap.String("key", key),
			zap.String("function", update.Function),
			zap.Duration("timeout", update.Timeout),
			zap.Error(err))
		return nil, errors.UpdateCancelled(b.name, key, err)
	}

	value, ok := result.(model.Value)
	if !ok || value == nil {
		return nil, errors.InternalError("update produced no value", nil)
	}

	b.data.Put(key, value)
	return value, nil
}

// Keys returns a point-in-time copy of the present keys, unordered
func (b *Bucket) Keys() []string {
	return b.data.Keys()
}

// Size returns the number of keys currently present
func (b *Bucket) Size() int {
	return b.data.Len()
}

// KeysInRange answers a sorted range query from a snapshot cached under
// the comparator's name, recomputing it only when older than ttl.
func (b *Bucket) KeysInRange(r model.KeyRange, cmp model.KeyComparator, ttl time.Duration) []string {
	snap := b.snapshotCache().GetOrCompute(b, cmp, cmp.Name(), ttl)
	return snap.KeysInRange(r.Start, r.End, r.Limit)
}

// Flush pushes each listed key still present through the persistence
// hook. Keys absent at flush time are skipped; hook failures are logged
// and do not abort the sweep. Returns the number of keys flushed.
func (b *Bucket) Flush(ctx context.Context, keys []string) int {
	flushed := 0
	for _, key := range keys {
		value, ok := b.data.Get(key)
		if !ok {
			continue
		}
		if err := b.flusher.Flush(ctx, b.name, key, value); err != nil {
			b.logger.Warn("Flush failed",
				zap.String("bucket", b.name),
				zap.String("key", key),
				zap.Error(err))
			continue
		}
		flushed++
	}
	return flushed
}

// SnapshotStats reports the bucket's snapshot cache activity
func (b *Bucket) SnapshotStats() CacheStats {
	return b.snapshotCache().Stats()
}

// snapshotCache lazily creates the bucket's cache; sync.Once guarantees
// a single instance under concurrent first access
func (b *Bucket) snapshotCache() *SnapshotCache {
	b.cacheOnce.Do(func() {
		b.cache = NewSnapshotCache(b.logger)
	})
	return b.cache
}
