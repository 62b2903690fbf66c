// Package store implements the in-memory partition store: named buckets
// of schemaless values with point operations, predicate evaluation,
// atomic bounded updates, and snapshot-backed range queries.
package store

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/tesserakv/tessera/internal/errors"
	"github.com/tesserakv/tessera/internal/model"
	"github.com/tesserakv/tessera/internal/operators"
	"github.com/tesserakv/tessera/internal/storage/persist"
	"github.com/tesserakv/tessera/internal/util/workerpool"
)

// Store is this node's registry of buckets plus the closed sets of
// comparators, conditions and update functions operations resolve
// against. Buckets spring into existence on first write and share the
// store's worker pool and persistence hook.
type Store struct {
	mu      sync.RWMutex
	buckets map[string]*Bucket

	comparators map[string]model.KeyComparator
	conditions  map[string]model.Condition
	functions   map[string]model.Function
	defaultCmp  model.KeyComparator

	pool    *workerpool.WorkerPool
	flusher persist.Flusher
	logger  *zap.Logger
}

// Options configures a Store. Zero-value fields fall back to the
// built-in operator sets, a nop flusher and a nop logger.
type Options struct {
	Comparators       map[string]model.KeyComparator
	Conditions        map[string]model.Condition
	Functions         map[string]model.Function
	DefaultComparator string
	Flusher           persist.Flusher
	Logger            *zap.Logger
}

// Stats is a point-in-time view of the store's contents
type Stats struct {
	Buckets              int
	Keys                 int
	SnapshotEntries      int
	SnapshotHits         uint64
	SnapshotComputations uint64
}

// NewStore creates an empty store sharing the given worker pool
func NewStore(pool *workerpool.WorkerPool, opts Options) (*Store, error) {
	if opts.Comparators == nil {
		opts.Comparators = operators.DefaultComparators()
	}
	if opts.Conditions == nil {
		opts.Conditions = operators.DefaultConditions()
	}
	if opts.Functions == nil {
		opts.Functions = operators.DefaultFunctions()
	}
	if opts.DefaultComparator == "" {
		opts.DefaultComparator = operators.ComparatorLexicalAsc
	}
	if opts.Flusher == nil {
		opts.Flusher = persist.NewNopFlusher()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	defaultCmp, ok := opts.Comparators[opts.DefaultComparator]
	if !ok {
		return nil, errors.UnknownComparator(opts.DefaultComparator)
	}

	return &Store{
		buckets:     make(map[string]*Bucket),
		comparators: opts.Comparators,
		conditions:  opts.Conditions,
		functions:   opts.Functions,
		defaultCmp:  defaultCmp,
		pool:        pool,
		flusher:     opts.Flusher,
		logger:      opts.Logger,
	}, nil
}

// GetOrCreateBucket returns the bucket named name, creating it if absent
func (s *Store) GetOrCreateBucket(name string) *Bucket {
	s.mu.RLock()
	b := s.buckets[name]
	s.mu.RUnlock()
	if b != nil {
		return b
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if b := s.buckets[name]; b != nil {
		return b
	}
	b = NewBucket(name, s.pool, s.flusher, s.logger)
	s.buckets[name] = b
	s.logger.Info("Bucket created", zap.String("bucket", name))
	return b
}

// Bucket returns the bucket named name
func (s *Store) Bucket(name string) (*Bucket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b := s.buckets[name]
	if b == nil {
		return nil, errors.BucketNotFound(name)
	}
	return b, nil
}

// RemoveBucket drops the bucket named name and everything in it
func (s *Store) RemoveBucket(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.buckets[name]; !ok {
		return errors.BucketNotFound(name)
	}
	delete(s.buckets, name)
	s.logger.Info("Bucket removed", zap.String("bucket", name))
	return nil
}

// BucketNames returns the names of all live buckets, unordered
func (s *Store) BucketNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.buckets))
	for name := range s.buckets {
		names = append(names, name)
	}
	return names
}

// Buckets returns all live buckets, unordered
func (s *Store) Buckets() []*Bucket {
	s.mu.RLock()
	defer s.mu.RUnlock()
	buckets := make([]*Bucket, 0, len(s.buckets))
	for _, b := range s.buckets {
		buckets = append(buckets, b)
	}
	return buckets
}

// Comparator resolves a comparator by name; the empty name selects the
// store's default ordering
func (s *Store) Comparator(name string) (model.KeyComparator, error) {
	if name == "" {
		return s.defaultCmp, nil
	}
	cmp, ok := s.comparators[name]
	if !ok {
		return nil, errors.UnknownComparator(name)
	}
	return cmp, nil
}

// Condition resolves a condition by name
func (s *Store) Condition(name string) (model.Condition, error) {
	cond, ok := s.conditions[name]
	if !ok {
		return nil, errors.UnknownCondition(name)
	}
	return cond, nil
}

// Function resolves an update function by name
func (s *Store) Function(name string) (model.Function, error) {
	fn, ok := s.functions[name]
	if !ok {
		return nil, errors.UnknownFunction(name)
	}
	return fn, nil
}

// DefaultComparator returns the store's default key ordering
func (s *Store) DefaultComparator() model.KeyComparator {
	return s.defaultCmp
}

// Flush runs a sweep of every bucket through the persistence hook using
// the given strategy and key condition
func (s *Store) Flush(ctx context.Context, strategy FlushStrategy, condition FlushCondition) (int, error) {
	if strategy == nil {
		strategy = ParallelFlushStrategy{}
	}
	return strategy.Flush(ctx, s, condition)
}

// Stats aggregates bucket sizes and snapshot cache activity
func (s *Store) Stats() Stats {
	stats := Stats{}
	for _, b := range s.Buckets() {
		stats.Buckets++
		stats.Keys += b.Size()
		cs := b.SnapshotStats()
		stats.SnapshotEntries += cs.Snapshots
		stats.SnapshotHits += cs.Hits
		stats.SnapshotComputations += cs.Computations
	}
	return stats
}
