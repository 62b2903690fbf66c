package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/tesserakv/tessera/internal/metrics"
	"github.com/tesserakv/tessera/internal/model"
	"github.com/tesserakv/tessera/internal/partition"
	"github.com/tesserakv/tessera/internal/store"
	"github.com/tesserakv/tessera/internal/validation"
)

// StoreService is the name-addressed orchestration layer over the store.
// It validates inputs, resolves operators by name, records metrics and
// logs operation latencies. All domain semantics live in the store.
type StoreService struct {
	store            *store.Store
	validator        *validation.Validator
	metrics          *metrics.Metrics
	logger           *zap.Logger
	nodeID           string
	defaultTTL       time.Duration
	flushConcurrency int
}

// StoreServiceConfig holds the service-level tuning knobs
type StoreServiceConfig struct {
	NodeID string
	// DefaultSnapshotTTL is applied when a range query carries no ttl.
	DefaultSnapshotTTL time.Duration
	// FlushConcurrency bounds bucket fan-out during flush sweeps.
	FlushConcurrency int
}

// NewStoreService creates a new store service. The validator and metrics
// are optional; a nil validator gets default limits and nil metrics
// disables recording.
func NewStoreService(cfg *StoreServiceConfig, st *store.Store, validator *validation.Validator, m *metrics.Metrics, logger *zap.Logger) *StoreService {
	if validator == nil {
		validator = validation.NewValidator()
	}

	return &StoreService{
		store:            st,
		validator:        validator,
		metrics:          m,
		logger:           logger,
		nodeID:           cfg.NodeID,
		defaultTTL:       cfg.DefaultSnapshotTTL,
		flushConcurrency: cfg.FlushConcurrency,
	}
}

// Put validates and writes a value, creating the bucket on demand
func (s *StoreService) Put(ctx context.Context, bucket, key string, value model.Value) (err error) {
	start := time.Now()
	defer func() { s.record(metrics.OpPut, start, err) }()

	if err = s.validateEntry(bucket, key); err != nil {
		s.logger.Warn("Put validation failed",
			zap.String("bucket", bucket),
			zap.String("key", key),
			zap.Error(err))
		return err
	}
	if err = s.validator.ValidateValue(value); err != nil {
		s.logger.Warn("Put validation failed",
			zap.String("bucket", bucket),
			zap.String("key", key),
			zap.Error(err))
		return err
	}

	s.store.GetOrCreateBucket(bucket).Put(key, value)

	if s.metrics != nil {
		s.metrics.RecordDocumentWrite(len(value.Bytes()))
	}

	s.logger.Debug("Put completed",
		zap.String("bucket", bucket),
		zap.String("key", key),
		zap.Duration("latency", time.Since(start)))

	return nil
}

// Get returns the value stored under bucket/key
func (s *StoreService) Get(ctx context.Context, bucket, key string) (value model.Value, err error) {
	start := time.Now()
	defer func() { s.record(metrics.OpGet, start, err) }()

	b, err := s.store.Bucket(bucket)
	if err != nil {
		return nil, err
	}

	value, err = b.Get(key)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("Get completed",
		zap.String("bucket", bucket),
		zap.String("key", key),
		zap.Duration("latency", time.Since(start)))

	return value, nil
}

// ConditionalGet returns the value under bucket/key if it satisfies the
// predicate, parsed from its "type:expression" form. A stored value that
// fails the predicate yields (nil, false, nil) so callers can tell
// predicate misses from absent keys.
func (s *StoreService) ConditionalGet(ctx context.Context, bucket, key, predicate string) (value model.Value, matched bool, err error) {
	start := time.Now()
	defer func() { s.record(metrics.OpConditionalGet, start, err) }()

	p, err := model.ParsePredicate(predicate)
	if err != nil {
		return nil, false, err
	}

	condition, err := s.store.Condition(p.Type)
	if err != nil {
		return nil, false, err
	}

	b, err := s.store.Bucket(bucket)
	if err != nil {
		return nil, false, err
	}

	value, matched, err = b.ConditionalGet(key, p, condition)
	if err != nil {
		return nil, false, err
	}

	s.logger.Debug("Conditional get completed",
		zap.String("bucket", bucket),
		zap.String("key", key),
		zap.String("predicate", predicate),
		zap.Bool("matched", matched),
		zap.Duration("latency", time.Since(start)))

	return value, matched, nil
}

// Remove deletes the value stored under bucket/key
func (s *StoreService) Remove(ctx context.Context, bucket, key string) (err error) {
	start := time.Now()
	defer func() { s.record(metrics.OpRemove, start, err) }()

	if err = s.validateEntry(bucket, key); err != nil {
		return err
	}

	b, err := s.store.Bucket(bucket)
	if err != nil {
		return err
	}

	if err = b.Remove(key); err != nil {
		return err
	}

	s.logger.Debug("Remove completed",
		zap.String("bucket", bucket),
		zap.String("key", key),
		zap.Duration("latency", time.Since(start)))

	return nil
}

// Update atomically applies the named update function to the value under
// bucket/key, bounded by the update timeout
func (s *StoreService) Update(ctx context.Context, bucket, key string, update model.Update) (value model.Value, err error) {
	start := time.Now()
	defer func() { s.record(metrics.OpUpdate, start, err) }()

	if err = s.validateEntry(bucket, key); err != nil {
		return nil, err
	}
	if err = s.validator.ValidateUpdate(update); err != nil {
		return nil, err
	}

	function, err := s.store.Function(update.Function)
	if err != nil {
		return nil, err
	}

	b, err := s.store.Bucket(bucket)
	if err != nil {
		return nil, err
	}

	value, err = b.Update(ctx, key, update, function)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("Update completed",
		zap.String("bucket", bucket),
		zap.String("key", key),
		zap.String("function", update.Function),
		zap.Duration("latency", time.Since(start)))

	return value, nil
}

// Keys returns a point-in-time key set of the bucket, unordered
func (s *StoreService) Keys(ctx context.Context, bucket string) (keys []string, err error) {
	start := time.Now()
	defer func() { s.record(metrics.OpKeys, start, err) }()

	b, err := s.store.Bucket(bucket)
	if err != nil {
		return nil, err
	}

	return b.Keys(), nil
}

// RangeQuery returns the bucket's keys inside the range, ordered by the
// range's comparator. A zero TimeToLive selects the configured default;
// the snapshot serving the query may be as stale as that ttl allows.
func (s *StoreService) RangeQuery(ctx context.Context, bucket string, r model.KeyRange) (keys []string, err error) {
	start := time.Now()
	defer func() { s.record(metrics.OpRange, start, err) }()

	if err = s.validator.ValidateRange(r); err != nil {
		return nil, err
	}

	comparator, err := s.store.Comparator(r.Comparator)
	if err != nil {
		return nil, err
	}

	b, err := s.store.Bucket(bucket)
	if err != nil {
		return nil, err
	}

	ttl := r.TimeToLive
	if ttl == 0 {
		ttl = s.defaultTTL
	}

	keys = b.KeysInRange(r, comparator, ttl)

	s.logger.Debug("Range query completed",
		zap.String("bucket", bucket),
		zap.String("comparator", comparator.Name()),
		zap.Int("keys", len(keys)),
		zap.Duration("latency", time.Since(start)))

	return keys, nil
}

// RemoveBucket drops a bucket and everything in it
func (s *StoreService) RemoveBucket(ctx context.Context, bucket string) (err error) {
	start := time.Now()
	defer func() { s.record(metrics.OpRemoveBucket, start, err) }()

	if err = s.store.RemoveBucket(bucket); err != nil {
		return err
	}

	s.logger.Debug("Bucket removed",
		zap.String("bucket", bucket),
		zap.Duration("latency", time.Since(start)))

	return nil
}

// BucketNames returns the names of all live buckets
func (s *StoreService) BucketNames(ctx context.Context) []string {
	return s.store.BucketNames()
}

// Flush sweeps every bucket through the persistence hook. A non-empty
// prefix restricts the sweep to keys carrying it. Returns the number of
// keys flushed; hook failures on individual keys are skipped, not fatal.
func (s *StoreService) Flush(ctx context.Context, prefix string) (flushed int, err error) {
	start := time.Now()

	var condition store.FlushCondition = store.AllKeysCondition{}
	if prefix != "" {
		condition = store.PrefixCondition{Prefix: prefix}
	}

	flushed, err = s.store.Flush(ctx, store.ParallelFlushStrategy{Concurrency: s.flushConcurrency}, condition)

	if s.metrics != nil {
		status := metrics.StatusSuccess
		if err != nil {
			status = metrics.StatusError
		}
		s.metrics.RecordFlushSweep(status, time.Since(start).Seconds(), flushed, time.Now().Unix())
		s.metrics.RecordOperation(metrics.OpFlush, status, time.Since(start).Seconds())
	}

	return flushed, err
}

// Hash maps a key onto [0, maxValue), matching the router's placement
// function for this node's cluster
func (s *StoreService) Hash(key string, maxValue int) int {
	return partition.Hash(key, maxValue)
}

// validateEntry validates a bucket name and key together
func (s *StoreService) validateEntry(bucket, key string) error {
	if err := s.validator.ValidateBucketName(bucket); err != nil {
		return err
	}
	return s.validator.ValidateKey(key)
}

// record tracks one operation outcome when metrics are enabled
func (s *StoreService) record(operation string, start time.Time, err error) {
	if s.metrics == nil {
		return
	}
	status := metrics.StatusSuccess
	if err != nil {
		status = metrics.StatusError
	}
	s.metrics.RecordOperation(operation, status, time.Since(start).Seconds())
}
