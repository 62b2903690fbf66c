package server

import (
	"context"
	"fmt"
	"net/http"
	"runtime"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/tesserakv/tessera/internal/health"
	"github.com/tesserakv/tessera/internal/metrics"
	"github.com/tesserakv/tessera/internal/store"
	"github.com/tesserakv/tessera/internal/util/workerpool"
)

// MetricsServer serves Prometheus metrics and health probes via HTTP
type MetricsServer struct {
	httpServer *http.Server
	metrics    *metrics.Metrics
	store      *store.Store
	pool       *workerpool.WorkerPool
	logger     *zap.Logger
	dataDir    string
	stopChan   chan struct{}
}

// MetricsServerConfig holds configuration for the metrics server
type MetricsServerConfig struct {
	Port    int
	Path    string
	DataDir string
}

// NewMetricsServer creates a new metrics server. The health checker is
// optional; when absent the probe endpoints report a static healthy state.
func NewMetricsServer(cfg *MetricsServerConfig, m *metrics.Metrics, st *store.Store, pool *workerpool.WorkerPool, checker *health.HealthChecker, logger *zap.Logger) *MetricsServer {
	mux := http.NewServeMux()

	ms := &MetricsServer{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		metrics:  m,
		store:    st,
		pool:     pool,
		logger:   logger,
		dataDir:  cfg.DataDir,
		stopChan: make(chan struct{}),
	}

	path := cfg.Path
	if path == "" {
		path = "/metrics"
	}
	mux.Handle(path, promhttp.Handler())

	if checker != nil {
		mux.HandleFunc("/health/live", checker.LivenessHandler)
		mux.HandleFunc("/health/ready", checker.ReadinessHandler)
	} else {
		mux.HandleFunc("/health/live", ms.staticHealthHandler)
		mux.HandleFunc("/health/ready", ms.staticHealthHandler)
	}

	return ms
}

// Start starts the metrics server and the stats collector
func (s *MetricsServer) Start() error {
	s.logger.Info("Starting metrics server", zap.String("addr", s.httpServer.Addr))

	go s.collectStats()

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("Metrics server failed", zap.Error(err))
		}
	}()

	return nil
}

// Stop gracefully stops the metrics server
func (s *MetricsServer) Stop() error {
	s.logger.Info("Stopping metrics server")

	close(s.stopChan)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("metrics server shutdown failed: %w", err)
	}

	return nil
}

// staticHealthHandler reports healthy without consulting a checker
func (s *MetricsServer) staticHealthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status":"healthy","timestamp":"%s"}`, time.Now().Format(time.RFC3339))
}

// collectStats periodically refreshes gauge metrics
func (s *MetricsServer) collectStats() {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.updateStoreMetrics()
			s.updateSystemMetrics()
		case <-s.stopChan:
			return
		}
	}
}

// updateStoreMetrics refreshes store, snapshot and worker pool gauges
func (s *MetricsServer) updateStoreMetrics() {
	if s.store != nil {
		stats := s.store.Stats()
		s.metrics.UpdateStoreStats(stats.Buckets, stats.Keys)
		s.metrics.UpdateSnapshotStats(stats.SnapshotEntries, stats.SnapshotHits, stats.SnapshotComputations)
	}

	if s.pool != nil {
		stats := s.pool.Stats()
		s.metrics.UpdatePoolStats(
			stats.ActiveWorkers,
			stats.QueuedTasks,
			stats.TotalTasks,
			stats.CompletedTasks,
			stats.FailedTasks,
			stats.CancelledTasks,
			stats.RejectedTasks,
			stats.QueueUtilization(),
		)
	}
}

// updateSystemMetrics refreshes system-level gauges
func (s *MetricsServer) updateSystemMetrics() {
	diskUsage, diskAvailable, err := s.getDiskStats()
	if err != nil {
		s.logger.Error("Failed to get disk stats", zap.Error(err))
	}

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	goroutines := runtime.NumGoroutine()

	s.metrics.UpdateSystemStats(diskUsage, diskAvailable, int64(memStats.Alloc), goroutines)
}

// getDiskStats returns disk usage statistics for the data directory
func (s *MetricsServer) getDiskStats() (used int64, available int64, err error) {
	var stat syscall.Statfs_t
	if err := syscall.Statfs(s.dataDir, &stat); err != nil {
		return 0, 0, fmt.Errorf("failed to stat filesystem: %w", err)
	}

	available = int64(stat.Bavail) * int64(stat.Bsize)
	total := int64(stat.Blocks) * int64(stat.Bsize)
	used = total - int64(stat.Bfree)*int64(stat.Bsize)

	return used, available, nil
}
