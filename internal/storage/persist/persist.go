// Package persist implements the persistence hook buckets flush
// through. A Flusher writes point-in-time copies of values to durable
// storage on demand; it is an outbound hook only and is never consulted
// on the read path, which is served entirely from memory.
package persist

import (
	"context"
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"

	"github.com/tesserakv/tessera/internal/errors"
	"github.com/tesserakv/tessera/internal/model"
	"github.com/tesserakv/tessera/internal/util"
)

// Backend names accepted by Open
const (
	BackendBadger = "badger"
	BackendBolt   = "bolt"
	BackendNone   = "none"
)

// Flusher persists single values on demand
type Flusher interface {
	// Flush durably records the value stored under bucket/key
	Flush(ctx context.Context, bucket, key string, value model.Value) error
	// Ping reports whether the backend can serve writes
	Ping(ctx context.Context) error
	// Close releases backend resources
	Close() error
}

// Config selects and tunes a persistence backend
type Config struct {
	Backend    string `yaml:"backend"`
	Path       string `yaml:"path"`
	SyncWrites bool   `yaml:"sync_writes"`
	InMemory   bool   `yaml:"in_memory"`
}

// Open creates the Flusher named by cfg.Backend
func Open(cfg Config, logger *zap.Logger) (Flusher, error) {
	switch cfg.Backend {
	case BackendBadger:
		return NewBadgerFlusher(cfg, logger)
	case BackendBolt:
		return NewBoltFlusher(cfg, logger)
	case BackendNone, "":
		return NewNopFlusher(), nil
	default:
		return nil, errors.InvalidArgument(fmt.Sprintf("unknown persistence backend: %s", cfg.Backend), nil)
	}
}

// record is the durable form of one flushed value
type record struct {
	Bucket    string `msgpack:"bucket"`
	Key       string `msgpack:"key"`
	Value     []byte `msgpack:"value"`
	FlushedAt int64  `msgpack:"flushed_at"`
}

// encodeRecord serializes a record and frames it with a checksum trailer
func encodeRecord(bucket, key string, value model.Value) ([]byte, error) {
	raw, err := msgpack.Marshal(record{
		Bucket:    bucket,
		Key:       key,
		Value:     value.Bytes(),
		FlushedAt: time.Now().UnixNano(),
	})
	if err != nil {
		return nil, errors.PersistenceFailed("failed to encode record", err)
	}
	return util.Frame(raw), nil
}

// decodeRecord validates the checksum trailer and deserializes a record
func decodeRecord(framed []byte) (*record, error) {
	raw, err := util.Unframe(framed)
	if err != nil {
		return nil, err
	}
	var rec record
	if err := msgpack.Unmarshal(raw, &rec); err != nil {
		return nil, errors.PersistenceFailed("failed to decode record", err)
	}
	return &rec, nil
}

// recordKey is the flat backend key for bucket/key
func recordKey(bucket, key string) []byte {
	return []byte(bucket + "/" + key)
}

// nopFlusher discards flushes; used when persistence is disabled
type nopFlusher struct{}

// NewNopFlusher returns a Flusher that accepts and discards every write
func NewNopFlusher() Flusher {
	return nopFlusher{}
}

func (nopFlusher) Flush(context.Context, string, string, model.Value) error { return nil }

func (nopFlusher) Ping(context.Context) error { return nil }

func (nopFlusher) Close() error { return nil }
