package persist

import (
	"context"
	"time"

	bolt "go.etcd.io/bbolt"
	"go.uber.org/zap"

	"github.com/tesserakv/tessera/internal/errors"
	"github.com/tesserakv/tessera/internal/model"
)

// BoltFlusher persists records to a bbolt B+tree file, one bolt bucket
// per store bucket.
type BoltFlusher struct {
	db     *bolt.DB
	logger *zap.Logger
}

// NewBoltFlusher opens or creates the bbolt file at cfg.Path
func NewBoltFlusher(cfg Config, logger *zap.Logger) (*BoltFlusher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := bolt.Open(cfg.Path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, errors.PersistenceFailed("failed to open bolt database", err)
	}

	logger.Info("Bolt persistence opened", zap.String("path", cfg.Path))

	return &BoltFlusher{db: db, logger: logger}, nil
}

// Flush writes the framed record under its store bucket, creating the
// bolt bucket on first use
func (f *BoltFlusher) Flush(ctx context.Context, bucket, key string, value model.Value) error {
	if err := ctx.Err(); err != nil {
		return errors.PersistenceFailed("flush aborted", err)
	}

	data, err := encodeRecord(bucket, key, value)
	if err != nil {
		return err
	}

	err = f.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(bucket))
		if err != nil {
			return err
		}
		return b.Put([]byte(key), data)
	})
	if err != nil {
		return errors.PersistenceFailed("failed to write record", err)
	}
	return nil
}

// Ping runs an empty read transaction against the file
func (f *BoltFlusher) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return errors.Unavailable("bolt unavailable", err)
	}
	if err := f.db.View(func(*bolt.Tx) error { return nil }); err != nil {
		return errors.Unavailable("bolt unavailable", err)
	}
	return nil
}

// Close closes the underlying file
func (f *BoltFlusher) Close() error {
	return f.db.Close()
}

// load reads back the record for bucket/key; used in tests
func (f *BoltFlusher) load(bucket, key string) (*record, error) {
	var framed []byte
	err := f.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucket))
		if b == nil {
			return errors.BucketNotFound(bucket)
		}
		data := b.Get([]byte(key))
		if data == nil {
			return errors.KeyNotFound(bucket, key)
		}
		framed = make([]byte, len(data))
		copy(framed, data)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return decodeRecord(framed)
}
