package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/tesserakv/tessera/internal/config"
	"github.com/tesserakv/tessera/internal/health"
	"github.com/tesserakv/tessera/internal/metrics"
	"github.com/tesserakv/tessera/internal/server"
	"github.com/tesserakv/tessera/internal/service"
	"github.com/tesserakv/tessera/internal/storage/persist"
	"github.com/tesserakv/tessera/internal/store"
	"github.com/tesserakv/tessera/internal/util/workerpool"
	"github.com/tesserakv/tessera/internal/validation"
)

func main() {
	// Bootstrap logger, replaced once configuration is loaded
	logger, err := initLogger(nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	// Load configuration
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config.yaml"
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	logger, err = initLogger(&cfg.Logging)
	if err != nil {
		logger.Fatal("Failed to configure logger", zap.Error(err))
	}
	defer logger.Sync()

	logger.Info("Configuration loaded",
		zap.String("node_id", cfg.Node.NodeID),
		zap.String("data_dir", cfg.Node.DataDir),
		zap.String("persistence_backend", cfg.Persistence.Backend))

	// Create data directories
	if err := os.MkdirAll(cfg.Node.DataDir, 0o755); err != nil {
		logger.Fatal("Failed to create data directory", zap.Error(err))
	}
	if dir := persistenceDir(cfg.Persistence); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			logger.Fatal("Failed to create persistence directory", zap.Error(err))
		}
	}

	// Open the flush backend
	flusher, err := persist.Open(persist.Config{
		Backend:    cfg.Persistence.Backend,
		Path:       cfg.Persistence.Path,
		SyncWrites: cfg.Persistence.SyncWrites,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to open persistence backend", zap.Error(err))
	}

	// Worker pool executing update functions
	pool := workerpool.NewWorkerPool(&workerpool.Config{
		Name:       "updates",
		MaxWorkers: cfg.WorkerPool.MaxWorkers,
		QueueSize:  cfg.WorkerPool.QueueSize,
		Logger:     logger,
	})

	// Store and service layers
	st, err := store.NewStore(pool, store.Options{
		DefaultComparator: cfg.Store.DefaultComparator,
		Flusher:           flusher,
		Logger:            logger,
	})
	if err != nil {
		logger.Fatal("Failed to initialize store", zap.Error(err))
	}

	validator := validation.NewValidatorWithLimits(
		cfg.Store.MaxBucketNameSize,
		cfg.Store.MaxKeySize,
		cfg.Store.MaxDocumentSize,
		cfg.Store.MaxUpdateTimeout,
	)

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.NewMetrics(cfg.Node.NodeID)
	}

	svc := service.NewStoreService(&service.StoreServiceConfig{
		NodeID:             cfg.Node.NodeID,
		DefaultSnapshotTTL: cfg.Snapshot.DefaultTTL,
		FlushConcurrency:   cfg.Persistence.FlushConcurrency,
	}, st, validator, m, logger)

	// Health checks
	checker := health.NewHealthChecker(&health.HealthCheckConfig{
		NodeID:  cfg.Node.NodeID,
		DataDir: cfg.Node.DataDir,
	}, st, flusher, pool, logger)

	healthCtx, stopHealth := context.WithCancel(context.Background())
	go checker.Start(healthCtx)

	// Metrics and probe endpoints
	var metricsServer *server.MetricsServer
	if cfg.Metrics.Enabled {
		metricsServer = server.NewMetricsServer(&server.MetricsServerConfig{
			Port:    cfg.Metrics.Port,
			Path:    cfg.Metrics.Path,
			DataDir: cfg.Node.DataDir,
		}, m, st, pool, checker, logger)
		if err := metricsServer.Start(); err != nil {
			logger.Fatal("Failed to start metrics server", zap.Error(err))
		}
	}

	logger.Info("Store node ready",
		zap.String("node_id", cfg.Node.NodeID),
		zap.Int("max_workers", cfg.WorkerPool.MaxWorkers),
		zap.Bool("metrics_enabled", cfg.Metrics.Enabled))

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan

	logger.Info("Shutting down gracefully", zap.String("signal", sig.String()))
	checker.SetReadiness(false)

	// Final flush sweep so the persistence backend holds the latest state
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Node.ShutdownTimeout)
	defer cancel()

	if flushed, err := svc.Flush(shutdownCtx, ""); err != nil {
		logger.Error("Final flush failed", zap.Int("keys_flushed", flushed), zap.Error(err))
	} else {
		logger.Info("Final flush completed", zap.Int("keys_flushed", flushed))
	}

	if metricsServer != nil {
		if err := metricsServer.Stop(); err != nil {
			logger.Error("Failed to stop metrics server", zap.Error(err))
		}
	}

	stopHealth()

	if err := pool.Stop(cfg.Node.ShutdownTimeout); err != nil {
		logger.Error("Worker pool did not drain in time", zap.Error(err))
	}

	if err := flusher.Close(); err != nil {
		logger.Error("Failed to close persistence backend", zap.Error(err))
	}

	logger.Info("Shutdown complete")
}

// persistenceDir returns the directory that must exist before the flush
// backend opens, or empty when no directory is needed. Badger treats the
// configured path as a directory; bolt treats it as a file.
func persistenceDir(cfg config.PersistenceConfig) string {
	switch cfg.Backend {
	case persist.BackendBadger:
		return cfg.Path
	case persist.BackendBolt:
		return filepath.Dir(cfg.Path)
	default:
		return ""
	}
}

// initLogger builds the zap logger. A nil config yields production
// defaults at info level.
func initLogger(cfg *config.LoggingConfig) (*zap.Logger, error) {
	zapCfg := zap.NewProductionConfig()
	if cfg != nil {
		if cfg.Format == "console" {
			zapCfg = zap.NewDevelopmentConfig()
		}
		var level zapcore.Level
		if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
		}
		zapCfg.Level = zap.NewAtomicLevelAt(level)
	}
	return zapCfg.Build()
}
