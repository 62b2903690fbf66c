package persist

import (
	"context"

	badger "github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"

	"github.com/tesserakv/tessera/internal/errors"
	"github.com/tesserakv/tessera/internal/model"
)

// BadgerFlusher persists records to a badger LSM store. Records for all
// buckets share one keyspace under bucket/key keys.
type BadgerFlusher struct {
	db     *badger.DB
	logger *zap.Logger
}

// NewBadgerFlusher opens the badger database at cfg.Path. With
// cfg.InMemory set the store lives entirely in memory, which is only
// useful in tests.
func NewBadgerFlusher(cfg Config, logger *zap.Logger) (*BadgerFlusher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	path := cfg.Path
	if cfg.InMemory {
		path = ""
	}
	opts := badger.DefaultOptions(path).
		WithInMemory(cfg.InMemory).
		WithSyncWrites(cfg.SyncWrites).
		WithLogger(badgerLogger{logger.Named("badger").Sugar()})

	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.PersistenceFailed("failed to open badger database", err)
	}

	logger.Info("Badger persistence opened",
		zap.String("path", cfg.Path),
		zap.Bool("in_memory", cfg.InMemory),
		zap.Bool("sync_writes", cfg.SyncWrites))

	return &BadgerFlusher{db: db, logger: logger}, nil
}

// Flush writes the framed record for bucket/key in a single transaction
func (f *BadgerFlusher) Flush(ctx context.Context, bucket, key string, value model.Value) error {
	if err := ctx.Err(); err != nil {
		return errors.PersistenceFailed("flush aborted", err)
	}

	data, err := encodeRecord(bucket, key, value)
	if err != nil {
		return err
	}

	err = f.db.Update(func(txn *badger.Txn) error {
		return txn.Set(recordKey(bucket, key), data)
	})
	if err != nil {
		return errors.PersistenceFailed("failed to write record", err)
	}
	return nil
}

// Ping runs an empty read transaction against the database
func (f *BadgerFlusher) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return errors.Unavailable("badger unavailable", err)
	}
	if f.db.IsClosed() {
		return errors.Unavailable("badger database is closed", nil)
	}
	if err := f.db.View(func(*badger.Txn) error { return nil }); err != nil {
		return errors.Unavailable("badger unavailable", err)
	}
	return nil
}

// Close flushes badger's own buffers and closes the database
func (f *BadgerFlusher) Close() error {
	return f.db.Close()
}

// load reads back the record for bucket/key; used in tests
func (f *BadgerFlusher) load(bucket, key string) (*record, error) {
	var framed []byte
	err := f.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(recordKey(bucket, key))
		if err != nil {
			return err
		}
		framed, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, errors.PersistenceFailed("failed to read record", err)
	}
	return decodeRecord(framed)
}

// badgerLogger adapts zap to badger's logger interface. Badger is noisy
// at info level, so info output is demoted to debug.
type badgerLogger struct {
	s *zap.SugaredLogger
}

func (b badgerLogger) Errorf(format string, args ...interface{}) { b.s.Errorf(format, args...) }

func (b badgerLogger) Warningf(format string, args ...interface{}) { b.s.Warnf(format, args...) }

func (b badgerLogger) Infof(format string, args ...interface{}) { b.s.Debugf(format, args...) }

func (b badgerLogger) Debugf(format string, args ...interface{}) { b.s.Debugf(format, args...) }
