package store

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tesserakv/tessera/internal/errors"
	"github.com/tesserakv/tessera/internal/model"
	"github.com/tesserakv/tessera/internal/operators"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(newTestPool(t), Options{Logger: zap.NewNop()})
	require.NoError(t, err)
	return s
}

func TestStoreGetOrCreateBucket(t *testing.T) {
	s := newTestStore(t)

	first := s.GetOrCreateBucket("customers")
	second := s.GetOrCreateBucket("customers")

	assert.Same(t, first, second)
	assert.Equal(t, []string{"customers"}, s.BucketNames())
}

func TestStoreGetOrCreateBucketConcurrent(t *testing.T) {
	s := newTestStore(t)

	const goroutines = 50
	buckets := make([]*Bucket, goroutines)
	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			buckets[n] = s.GetOrCreateBucket("customers")
		}(i)
	}
	wg.Wait()

	for i := 1; i < goroutines; i++ {
		assert.Same(t, buckets[0], buckets[i])
	}
	assert.Len(t, s.BucketNames(), 1)
}

func TestStoreBucketLookup(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Bucket("customers")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeBucketNotFound))

	created := s.GetOrCreateBucket("customers")
	found, err := s.Bucket("customers")
	require.NoError(t, err)
	assert.Same(t, created, found)
}

func TestStoreRemoveBucket(t *testing.T) {
	s := newTestStore(t)
	s.GetOrCreateBucket("customers").Put("c-1", testDoc(t, map[string]interface{}{"v": 1}))

	require.NoError(t, s.RemoveBucket("customers"))
	assert.Empty(t, s.BucketNames())

	err := s.RemoveBucket("customers")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeBucketNotFound))
}

func TestStoreBucketNames(t *testing.T) {
	s := newTestStore(t)
	s.GetOrCreateBucket("customers")
	s.GetOrCreateBucket("orders")

	assert.ElementsMatch(t, []string{"customers", "orders"}, s.BucketNames())
}

func TestStoreComparatorResolution(t *testing.T) {
	s := newTestStore(t)

	cmp, err := s.Comparator("")
	require.NoError(t, err)
	assert.Equal(t, operators.ComparatorLexicalAsc, cmp.Name())
	assert.Same(t, s.DefaultComparator(), cmp)

	cmp, err = s.Comparator(operators.ComparatorLexicalDesc)
	require.NoError(t, err)
	assert.Equal(t, operators.ComparatorLexicalDesc, cmp.Name())

	_, err = s.Comparator("unknown")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeUnknownComparator))
}

func TestStoreConditionResolution(t *testing.T) {
	s := newTestStore(t)

	cond, err := s.Condition(operators.ConditionKeyPrefix)
	require.NoError(t, err)
	assert.NotNil(t, cond)

	_, err = s.Condition("unknown")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeUnknownCondition))
}

func TestStoreFunctionResolution(t *testing.T) {
	s := newTestStore(t)

	fn, err := s.Function(operators.FunctionCounter)
	require.NoError(t, err)
	assert.NotNil(t, fn)

	_, err = s.Function("unknown")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeUnknownFunction))
}

func TestNewStoreRejectsUnknownDefaultComparator(t *testing.T) {
	_, err := NewStore(newTestPool(t), Options{DefaultComparator: "unknown", Logger: zap.NewNop()})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeUnknownComparator))
}

func TestNewStoreCustomOperators(t *testing.T) {
	cmp, ok := operators.DefaultComparators()[operators.ComparatorNumericAsc]
	require.True(t, ok)

	s, err := NewStore(newTestPool(t), Options{
		Comparators:       map[string]model.KeyComparator{operators.ComparatorNumericAsc: cmp},
		DefaultComparator: operators.ComparatorNumericAsc,
		Logger:            zap.NewNop(),
	})
	require.NoError(t, err)

	assert.Equal(t, operators.ComparatorNumericAsc, s.DefaultComparator().Name())

	_, err = s.Comparator(operators.ComparatorLexicalAsc)
	require.Error(t, err)
}

func TestStoreStats(t *testing.T) {
	s := newTestStore(t)
	customers := s.GetOrCreateBucket("customers")
	customers.Put("c-1", testDoc(t, map[string]interface{}{"v": 1}))
	customers.Put("c-2", testDoc(t, map[string]interface{}{"v": 2}))
	s.GetOrCreateBucket("orders").Put("o-1", testDoc(t, map[string]interface{}{"v": 3}))

	customers.KeysInRange(model.KeyRange{}, s.DefaultComparator(), time.Hour)
	customers.KeysInRange(model.KeyRange{}, s.DefaultComparator(), time.Hour)

	stats := s.Stats()
	assert.Equal(t, 2, stats.Buckets)
	assert.Equal(t, 3, stats.Keys)
	assert.Equal(t, 1, stats.SnapshotEntries)
	assert.Equal(t, uint64(1), stats.SnapshotHits)
	assert.Equal(t, uint64(1), stats.SnapshotComputations)
}
