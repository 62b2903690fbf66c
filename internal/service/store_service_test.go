package service_test

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tesserakv/tessera/internal/errors"
	"github.com/tesserakv/tessera/internal/model"
	"github.com/tesserakv/tessera/internal/partition"
	"github.com/tesserakv/tessera/internal/service"
	"github.com/tesserakv/tessera/internal/store"
	"github.com/tesserakv/tessera/internal/util/workerpool"
	"github.com/tesserakv/tessera/internal/validation"
)

// countFlusher records flushed bucket/key pairs
type countFlusher struct {
	mu     sync.Mutex
	writes map[string]int
}

func newCountFlusher() *countFlusher {
	return &countFlusher{writes: make(map[string]int)}
}

func (f *countFlusher) Flush(ctx context.Context, bucket, key string, value model.Value) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes[bucket+"/"+key]++
	return nil
}

func (f *countFlusher) Ping(ctx context.Context) error { return nil }

func (f *countFlusher) Close() error { return nil }

func (f *countFlusher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, n := range f.writes {
		total += n
	}
	return total
}

// setupStoreService creates a test store service backed by a real store
func setupStoreService(t *testing.T, cfg *service.StoreServiceConfig, flusher *countFlusher) *service.StoreService {
	t.Helper()
	logger := zap.NewNop()

	pool := workerpool.NewWorkerPool(&workerpool.Config{
		Name:   "service-test",
		Logger: logger,
	})
	t.Cleanup(func() { pool.Stop(2 * time.Second) })

	opts := store.Options{Logger: logger}
	if flusher != nil {
		opts.Flusher = flusher
	}

	st, err := store.NewStore(pool, opts)
	require.NoError(t, err)

	if cfg == nil {
		cfg = &service.StoreServiceConfig{NodeID: "test-node", FlushConcurrency: 2}
	}

	return service.NewStoreService(cfg, st, validation.NewValidator(), nil, logger)
}

func doc(t *testing.T, fields map[string]interface{}) *model.Document {
	t.Helper()
	d, err := model.NewDocument(fields)
	require.NoError(t, err)
	return d
}

func TestStoreService_PutGet(t *testing.T) {
	svc := setupStoreService(t, nil, nil)
	ctx := context.Background()

	err := svc.Put(ctx, "users", "u1", doc(t, map[string]interface{}{"name": "alice"}))
	require.NoError(t, err)

	value, err := svc.Get(ctx, "users", "u1")
	require.NoError(t, err)

	fields, err := model.DocumentFromBytes(value.Bytes()).Fields()
	require.NoError(t, err)
	assert.Equal(t, "alice", fields["name"])

	// Put creates the bucket on demand
	assert.Contains(t, svc.BucketNames(ctx), "users")
}

func TestStoreService_PutValidation(t *testing.T) {
	svc := setupStoreService(t, nil, nil)
	ctx := context.Background()
	value := doc(t, map[string]interface{}{"a": 1})

	tests := []struct {
		name     string
		bucket   string
		key      string
		wantCode errors.ErrorCode
	}{
		{name: "bucket with slash", bucket: "a/b", key: "k", wantCode: errors.ErrCodeInvalidBucketName},
		{name: "empty bucket", bucket: "", key: "k", wantCode: errors.ErrCodeInvalidBucketName},
		{name: "empty key", bucket: "users", key: "", wantCode: errors.ErrCodeInvalidKey},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.Put(ctx, tt.bucket, tt.key, value)
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, tt.wantCode))
		})
	}
}

func TestStoreService_GetMissing(t *testing.T) {
	svc := setupStoreService(t, nil, nil)
	ctx := context.Background()

	_, err := svc.Get(ctx, "nope", "k")
	assert.True(t, errors.IsCode(err, errors.ErrCodeBucketNotFound))

	require.NoError(t, svc.Put(ctx, "users", "u1", doc(t, map[string]interface{}{"a": 1})))
	_, err = svc.Get(ctx, "users", "missing")
	assert.True(t, errors.IsCode(err, errors.ErrCodeKeyNotFound))
}

func TestStoreService_ConditionalGet(t *testing.T) {
	svc := setupStoreService(t, nil, nil)
	ctx := context.Background()

	require.NoError(t, svc.Put(ctx, "users", "user:1", doc(t, map[string]interface{}{"city": "Milan"})))

	t.Run("matched", func(t *testing.T) {
		value, matched, err := svc.ConditionalGet(ctx, "users", "user:1", "key-prefix:user:")
		require.NoError(t, err)
		assert.True(t, matched)
		assert.NotNil(t, value)
	})

	t.Run("predicate miss is not an error", func(t *testing.T) {
		value, matched, err := svc.ConditionalGet(ctx, "users", "user:1", "key-prefix:admin:")
		require.NoError(t, err)
		assert.False(t, matched)
		assert.Nil(t, value)
	})

	t.Run("field equality", func(t *testing.T) {
		_, matched, err := svc.ConditionalGet(ctx, "users", "user:1", "field-eq:city=Milan")
		require.NoError(t, err)
		assert.True(t, matched)
	})

	t.Run("unknown condition type", func(t *testing.T) {
		_, _, err := svc.ConditionalGet(ctx, "users", "user:1", "regex:^u")
		assert.True(t, errors.IsCode(err, errors.ErrCodeUnknownCondition))
	})

	t.Run("malformed predicate", func(t *testing.T) {
		_, _, err := svc.ConditionalGet(ctx, "users", "user:1", "no-separator")
		assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidArgument))
	})

	t.Run("missing key", func(t *testing.T) {
		_, _, err := svc.ConditionalGet(ctx, "users", "missing", "key-prefix:user:")
		assert.True(t, errors.IsCode(err, errors.ErrCodeKeyNotFound))
	})
}

func TestStoreService_Remove(t *testing.T) {
	svc := setupStoreService(t, nil, nil)
	ctx := context.Background()

	require.NoError(t, svc.Put(ctx, "users", "u1", doc(t, map[string]interface{}{"a": 1})))
	require.NoError(t, svc.Remove(ctx, "users", "u1"))

	_, err := svc.Get(ctx, "users", "u1")
	assert.True(t, errors.IsCode(err, errors.ErrCodeKeyNotFound))

	err = svc.Remove(ctx, "users", "u1")
	assert.True(t, errors.IsCode(err, errors.ErrCodeKeyNotFound))

	err = svc.Remove(ctx, "nope", "u1")
	assert.True(t, errors.IsCode(err, errors.ErrCodeBucketNotFound))
}

func TestStoreService_Update(t *testing.T) {
	svc := setupStoreService(t, nil, nil)
	ctx := context.Background()

	require.NoError(t, svc.Put(ctx, "counters", "page", doc(t, map[string]interface{}{"visits": 10})))

	value, err := svc.Update(ctx, "counters", "page", model.Update{
		Function:   "counter",
		Timeout:    time.Second,
		Parameters: map[string]interface{}{"visits": 5},
	})
	require.NoError(t, err)

	fields, err := model.DocumentFromBytes(value.Bytes()).Fields()
	require.NoError(t, err)
	assert.EqualValues(t, 15, fields["visits"])

	// The written value is visible through Get
	stored, err := svc.Get(ctx, "counters", "page")
	require.NoError(t, err)
	storedFields, err := model.DocumentFromBytes(stored.Bytes()).Fields()
	require.NoError(t, err)
	assert.EqualValues(t, 15, storedFields["visits"])
}

func TestStoreService_UpdateErrors(t *testing.T) {
	svc := setupStoreService(t, nil, nil)
	ctx := context.Background()

	require.NoError(t, svc.Put(ctx, "counters", "page", doc(t, map[string]interface{}{"visits": 10})))

	tests := []struct {
		name     string
		bucket   string
		key      string
		update   model.Update
		wantCode errors.ErrorCode
	}{
		{
			name:     "unknown function",
			bucket:   "counters",
			key:      "page",
			update:   model.Update{Function: "javascript", Timeout: time.Second},
			wantCode: errors.ErrCodeUnknownFunction,
		},
		{
			name:     "missing bucket",
			bucket:   "nope",
			key:      "page",
			update:   model.Update{Function: "counter", Timeout: time.Second},
			wantCode: errors.ErrCodeBucketNotFound,
		},
		{
			name:     "missing key",
			bucket:   "counters",
			key:      "missing",
			update:   model.Update{Function: "counter", Timeout: time.Second},
			wantCode: errors.ErrCodeKeyNotFound,
		},
		{
			name:     "zero timeout rejected",
			bucket:   "counters",
			key:      "page",
			update:   model.Update{Function: "counter"},
			wantCode: errors.ErrCodeInvalidArgument,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Update(ctx, tt.bucket, tt.key, tt.update)
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, tt.wantCode))
		})
	}
}

func TestStoreService_Keys(t *testing.T) {
	svc := setupStoreService(t, nil, nil)
	ctx := context.Background()

	for _, key := range []string{"a", "b", "c"} {
		require.NoError(t, svc.Put(ctx, "letters", key, doc(t, map[string]interface{}{"k": key})))
	}

	keys, err := svc.Keys(ctx, "letters")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b", "c"}, keys)

	_, err = svc.Keys(ctx, "nope")
	assert.True(t, errors.IsCode(err, errors.ErrCodeBucketNotFound))
}

func TestStoreService_RangeQuery(t *testing.T) {
	svc := setupStoreService(t, nil, nil)
	ctx := context.Background()

	for _, key := range []string{"a", "c", "v"} {
		require.NoError(t, svc.Put(ctx, "letters", key, doc(t, map[string]interface{}{"k": key})))
	}

	t.Run("inclusive window", func(t *testing.T) {
		keys, err := svc.RangeQuery(ctx, "letters", model.KeyRange{Start: "b", End: "v"})
		require.NoError(t, err)
		assert.Equal(t, []string{"c", "v"}, keys)
	})

	t.Run("limit truncates", func(t *testing.T) {
		keys, err := svc.RangeQuery(ctx, "letters", model.KeyRange{Start: "b", End: "v", Limit: 1})
		require.NoError(t, err)
		assert.Equal(t, []string{"c"}, keys)
	})

	t.Run("descending comparator", func(t *testing.T) {
		keys, err := svc.RangeQuery(ctx, "letters", model.KeyRange{Comparator: "lexical-desc"})
		require.NoError(t, err)
		assert.Equal(t, []string{"v", "c", "a"}, keys)
	})

	t.Run("unknown comparator", func(t *testing.T) {
		_, err := svc.RangeQuery(ctx, "letters", model.KeyRange{Comparator: "random"})
		assert.True(t, errors.IsCode(err, errors.ErrCodeUnknownComparator))
	})

	t.Run("negative ttl rejected", func(t *testing.T) {
		_, err := svc.RangeQuery(ctx, "letters", model.KeyRange{TimeToLive: -time.Second})
		assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidArgument))
	})

	t.Run("missing bucket", func(t *testing.T) {
		_, err := svc.RangeQuery(ctx, "nope", model.KeyRange{})
		assert.True(t, errors.IsCode(err, errors.ErrCodeBucketNotFound))
	})
}

func TestStoreService_RangeQueryDefaultTTL(t *testing.T) {
	cfg := &service.StoreServiceConfig{
		NodeID:             "test-node",
		DefaultSnapshotTTL: time.Hour,
	}
	svc := setupStoreService(t, cfg, nil)
	ctx := context.Background()

	require.NoError(t, svc.Put(ctx, "letters", "a", doc(t, map[string]interface{}{"k": "a"})))

	keys, err := svc.RangeQuery(ctx, "letters", model.KeyRange{})
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, keys)

	// A zero-ttl request picks up the configured default, so the cached
	// view keeps serving and the new key stays invisible.
	require.NoError(t, svc.Put(ctx, "letters", "b", doc(t, map[string]interface{}{"k": "b"})))
	keys, err = svc.RangeQuery(ctx, "letters", model.KeyRange{})
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, keys)
}

func TestStoreService_RemoveBucket(t *testing.T) {
	svc := setupStoreService(t, nil, nil)
	ctx := context.Background()

	require.NoError(t, svc.Put(ctx, "users", "u1", doc(t, map[string]interface{}{"a": 1})))
	require.NoError(t, svc.RemoveBucket(ctx, "users"))
	assert.NotContains(t, svc.BucketNames(ctx), "users")

	err := svc.RemoveBucket(ctx, "users")
	assert.True(t, errors.IsCode(err, errors.ErrCodeBucketNotFound))
}

func TestStoreService_Flush(t *testing.T) {
	flusher := newCountFlusher()
	svc := setupStoreService(t, nil, flusher)
	ctx := context.Background()

	require.NoError(t, svc.Put(ctx, "users", "u1", doc(t, map[string]interface{}{"a": 1})))
	require.NoError(t, svc.Put(ctx, "users", "u2", doc(t, map[string]interface{}{"a": 2})))
	require.NoError(t, svc.Put(ctx, "orders", "o1", doc(t, map[string]interface{}{"a": 3})))

	flushed, err := svc.Flush(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 3, flushed)
	assert.Equal(t, 3, flusher.count())
}

func TestStoreService_FlushWithPrefix(t *testing.T) {
	flusher := newCountFlusher()
	svc := setupStoreService(t, nil, flusher)
	ctx := context.Background()

	require.NoError(t, svc.Put(ctx, "users", "user:1", doc(t, map[string]interface{}{"a": 1})))
	require.NoError(t, svc.Put(ctx, "users", "session:1", doc(t, map[string]interface{}{"a": 2})))

	flushed, err := svc.Flush(ctx, "user:")
	require.NoError(t, err)
	assert.Equal(t, 1, flushed)
}

func TestStoreService_Hash(t *testing.T) {
	svc := setupStoreService(t, nil, nil)

	assert.Equal(t, partition.Hash("some-key", 16), svc.Hash("some-key", 16))

	for _, key := range []string{"a", "b", "key:1", "key:2"} {
		h := svc.Hash(key, 8)
		assert.GreaterOrEqual(t, h, 0)
		assert.Less(t, h, 8)
	}
}

func BenchmarkStoreService_Put(b *testing.B) {
	logger := zap.NewNop()

	pool := workerpool.NewWorkerPool(&workerpool.Config{
		Name:   "service-bench",
		Logger: logger,
	})
	defer pool.Stop(2 * time.Second)

	st, err := store.NewStore(pool, store.Options{Logger: logger})
	require.NoError(b, err)

	cfg := &service.StoreServiceConfig{NodeID: "bench-node", FlushConcurrency: 2}
	svc := service.NewStoreService(cfg, st, validation.NewValidator(), nil, logger)

	ctx := context.Background()
	value, err := model.NewDocument(map[string]interface{}{"name": "alice", "visits": 1})
	require.NoError(b, err)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		svc.Put(ctx, "bench", "key"+strconv.Itoa(i), value)
	}
}

func BenchmarkStoreService_Get(b *testing.B) {
	logger := zap.NewNop()

	pool := workerpool.NewWorkerPool(&workerpool.Config{
		Name:   "service-bench",
		Logger: logger,
	})
	defer pool.Stop(2 * time.Second)

	st, err := store.NewStore(pool, store.Options{Logger: logger})
	require.NoError(b, err)

	cfg := &service.StoreServiceConfig{NodeID: "bench-node", FlushConcurrency: 2}
	svc := service.NewStoreService(cfg, st, validation.NewValidator(), nil, logger)

	ctx := context.Background()
	value, err := model.NewDocument(map[string]interface{}{"name": "alice", "visits": 1})
	require.NoError(b, err)
	require.NoError(b, svc.Put(ctx, "bench", "key1", value))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		svc.Get(ctx, "bench", "key1")
	}
}
