package store

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// FlushCondition decides whether a key participates in a flush sweep
type FlushCondition interface {
	ShouldFlush(bucket, key string) bool
}

// AllKeysCondition selects every key
type AllKeysCondition struct{}

func (AllKeysCondition) ShouldFlush(string, string) bool {
	return true
}

// PrefixCondition selects keys carrying a prefix
type PrefixCondition struct {
	Prefix string
}

func (c PrefixCondition) ShouldFlush(_ string, key string) bool {
	return strings.HasPrefix(key, c.Prefix)
}

// FlushStrategy sweeps a store's buckets through their persistence hook
type FlushStrategy interface {
	Flush(ctx context.Context, s *Store, condition FlushCondition) (int, error)
}

// ParallelFlushStrategy flushes buckets concurrently. Concurrency > 0
// bounds the number of buckets in flight at once; zero or negative
// means one goroutine per bucket.
type ParallelFlushStrategy struct {
	Concurrency int
}

// Flush selects each bucket's keys with condition and flushes them,
// fanning out across buckets. It returns the total number of keys
// flushed and the context error if the sweep was cut short.
func (f ParallelFlushStrategy) Flush(ctx context.Context, s *Store, condition FlushCondition) (int, error) {
	if condition == nil {
		condition = AllKeysCondition{}
	}

	start := time.Now()
	g, ctx := errgroup.WithContext(ctx)
	if f.Concurrency > 0 {
		g.SetLimit(f.Concurrency)
	}

	var flushed int64
	for _, b := range s.Buckets() {
		b := b
		g.Go(func() error {
			keys := make([]string, 0, b.Size())
			for _, key := range b.Keys() {
				if condition.ShouldFlush(b.Name(), key) {
					keys = append(keys, key)
				}
			}
			atomic.AddInt64(&flushed, int64(b.Flush(ctx, keys)))
			return ctx.Err()
		})
	}

	err := g.Wait()
	total := int(atomic.LoadInt64(&flushed))
	s.logger.Info("Flush sweep finished",
		zap.Int("keys_flushed", total),
		zap.Duration("latency", time.Since(start)),
		zap.Error(err))
	return total, err
}
