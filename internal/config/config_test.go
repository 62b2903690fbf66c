package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tesserakv/tessera/internal/config"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	path := writeConfig(t, `
node:
  node_id: store-1
`)

	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "store-1", cfg.Node.NodeID)
	assert.Equal(t, "./data", cfg.Node.DataDir)
	assert.Equal(t, 30*time.Second, cfg.Node.ShutdownTimeout)
	assert.Equal(t, "lexical-asc", cfg.Store.DefaultComparator)
	assert.Equal(t, 1024, cfg.Store.MaxKeySize)
	assert.Equal(t, 1048576, cfg.Store.MaxDocumentSize)
	assert.Equal(t, 30*time.Second, cfg.Store.MaxUpdateTimeout)
	assert.Equal(t, 10*time.Second, cfg.Snapshot.DefaultTTL)
	assert.Equal(t, 10, cfg.WorkerPool.MaxWorkers)
	assert.Equal(t, 100, cfg.WorkerPool.QueueSize)
	assert.Equal(t, "none", cfg.Persistence.Backend)
	assert.Equal(t, "./data/persist", cfg.Persistence.Path)
	assert.Equal(t, 4, cfg.Persistence.FlushConcurrency)
	assert.Equal(t, 9090, cfg.Metrics.Port)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoadConfigOverrides(t *testing.T) {
	path := writeConfig(t, `
node:
  node_id: store-7
  data_dir: /srv/tessera
store:
  default_comparator: numeric-asc
  max_key_size: 256
snapshot:
  default_ttl: 5000000000
worker_pool:
  max_workers: 4
  queue_size: 32
persistence:
  backend: badger
  path: /srv/tessera/flush
  sync_writes: true
metrics:
  enabled: true
  port: 9191
logging:
  level: debug
`)

	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "/srv/tessera", cfg.Node.DataDir)
	assert.Equal(t, "numeric-asc", cfg.Store.DefaultComparator)
	assert.Equal(t, 256, cfg.Store.MaxKeySize)
	assert.Equal(t, 5*time.Second, cfg.Snapshot.DefaultTTL)
	assert.Equal(t, 4, cfg.WorkerPool.MaxWorkers)
	assert.Equal(t, 32, cfg.WorkerPool.QueueSize)
	assert.Equal(t, "badger", cfg.Persistence.Backend)
	assert.Equal(t, "/srv/tessera/flush", cfg.Persistence.Path)
	assert.True(t, cfg.Persistence.SyncWrites)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, 9191, cfg.Metrics.Port)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := config.LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoadConfigMalformedYAML(t *testing.T) {
	path := writeConfig(t, "node: [not, a, mapping")

	_, err := config.LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config file")
}

func TestLoadConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "missing node id",
			content: "store:\n  max_key_size: 10\n",
			wantErr: "node.node_id is required",
		},
		{
			name:    "unknown backend",
			content: "node:\n  node_id: n1\npersistence:\n  backend: papyrus\n",
			wantErr: "persistence.backend",
		},
		{
			name:    "negative workers",
			content: "node:\n  node_id: n1\nworker_pool:\n  max_workers: -2\n",
			wantErr: "worker_pool.max_workers",
		},
		{
			name:    "bad logging level",
			content: "node:\n  node_id: n1\nlogging:\n  level: verbose\n",
			wantErr: "logging.level",
		},
		{
			name:    "metrics port out of range",
			content: "node:\n  node_id: n1\nmetrics:\n  port: 70000\n",
			wantErr: "metrics.port",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.LoadConfig(writeConfig(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
