package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// NodeConfig identifies this node and its on-disk footprint
type NodeConfig struct {
	NodeID          string        `yaml:"node_id"`
	DataDir         string        `yaml:"data_dir"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// StoreConfig bounds what store operations accept
type StoreConfig struct {
	DefaultComparator string        `yaml:"default_comparator"`
	MaxBucketNameSize int           `yaml:"max_bucket_name_size"`
	MaxKeySize        int           `yaml:"max_key_size"`
	MaxDocumentSize   int           `yaml:"max_document_size"`
	MaxUpdateTimeout  time.Duration `yaml:"max_update_timeout"`
}

// SnapshotConfig tunes range-query snapshots
type SnapshotConfig struct {
	DefaultTTL time.Duration `yaml:"default_ttl"`
}

// WorkerPoolConfig sizes the update worker pool
type WorkerPoolConfig struct {
	MaxWorkers int `yaml:"max_workers"`
	QueueSize  int `yaml:"queue_size"`
}

// PersistenceConfig selects and tunes the flush backend
type PersistenceConfig struct {
	Backend          string `yaml:"backend"`
	Path             string `yaml:"path"`
	SyncWrites       bool   `yaml:"sync_writes"`
	FlushConcurrency int    `yaml:"flush_concurrency"`
}

// MetricsConfig holds metrics endpoint configuration
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Port    int    `yaml:"port"`
	Path    string `yaml:"path"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Config represents the complete configuration for the store node
type Config struct {
	Node        NodeConfig        `yaml:"node"`
	Store       StoreConfig       `yaml:"store"`
	Snapshot    SnapshotConfig    `yaml:"snapshot"`
	WorkerPool  WorkerPoolConfig  `yaml:"worker_pool"`
	Persistence PersistenceConfig `yaml:"persistence"`
	Metrics     MetricsConfig     `yaml:"metrics"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// LoadConfig loads configuration from a file
func LoadConfig(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Set defaults if not specified
	setDefaults(&cfg)

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default values for unspecified configuration
func setDefaults(cfg *Config) {
	if cfg.Node.DataDir == "" {
		cfg.Node.DataDir = "./data"
	}
	if cfg.Node.ShutdownTimeout == 0 {
		cfg.Node.ShutdownTimeout = 30 * time.Second
	}

	if cfg.Store.DefaultComparator == "" {
		cfg.Store.DefaultComparator = "lexical-asc"
	}
	if cfg.Store.MaxBucketNameSize == 0 {
		cfg.Store.MaxBucketNameSize = 128
	}
	if cfg.Store.MaxKeySize == 0 {
		cfg.Store.MaxKeySize = 1024
	}
	if cfg.Store.MaxDocumentSize == 0 {
		cfg.Store.MaxDocumentSize = 1048576 // 1MB
	}
	if cfg.Store.MaxUpdateTimeout == 0 {
		cfg.Store.MaxUpdateTimeout = 30 * time.Second
	}

	if cfg.Snapshot.DefaultTTL == 0 {
		cfg.Snapshot.DefaultTTL = 10 * time.Second
	}

	if cfg.WorkerPool.MaxWorkers == 0 {
		cfg.WorkerPool.MaxWorkers = 10
	}
	if cfg.WorkerPool.QueueSize == 0 {
		cfg.WorkerPool.QueueSize = 100
	}

	if cfg.Persistence.Backend == "" {
		cfg.Persistence.Backend = "none"
	}
	if cfg.Persistence.Path == "" {
		cfg.Persistence.Path = cfg.Node.DataDir + "/persist"
	}
	if cfg.Persistence.FlushConcurrency == 0 {
		cfg.Persistence.FlushConcurrency = 4
	}

	if cfg.Metrics.Port == 0 {
		cfg.Metrics.Port = 9090
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Node.NodeID == "" {
		return fmt.Errorf("node.node_id is required")
	}
	switch c.Persistence.Backend {
	case "none", "badger", "bolt":
	default:
		return fmt.Errorf("persistence.backend must be one of none, badger, bolt")
	}
	if c.WorkerPool.MaxWorkers < 1 {
		return fmt.Errorf("worker_pool.max_workers must be at least 1")
	}
	if c.WorkerPool.QueueSize < 1 {
		return fmt.Errorf("worker_pool.queue_size must be at least 1")
	}
	if c.Snapshot.DefaultTTL < 0 {
		return fmt.Errorf("snapshot.default_ttl cannot be negative")
	}
	if c.Store.MaxUpdateTimeout <= 0 {
		return fmt.Errorf("store.max_update_timeout must be positive")
	}
	if c.Metrics.Port < 1 || c.Metrics.Port > 65535 {
		return fmt.Errorf("metrics.port must be between 1 and 65535")
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error")
	}
	return nil
}
