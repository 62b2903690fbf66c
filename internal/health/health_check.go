package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"runtime"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/tesserakv/tessera/internal/model"
	"github.com/tesserakv/tessera/internal/storage/persist"
	"github.com/tesserakv/tessera/internal/store"
	"github.com/tesserakv/tessera/internal/util/workerpool"
)

// HealthChecker performs periodic health checks for the store node
type HealthChecker struct {
	nodeID   string
	dataDir  string
	interval time.Duration
	store    *store.Store
	flusher  persist.Flusher
	pool     *workerpool.WorkerPool
	logger   *zap.Logger

	mu          sync.RWMutex
	lastCheck   time.Time
	lastDiskUse float64
	status      model.NodeStatus
	checks      map[string]CheckResult
	livenessOK  bool
	readinessOK bool
}

// CheckResult represents the result of a single health check
type CheckResult struct {
	Name      string
	Status    string
	Message   string
	Timestamp time.Time
}

// HealthCheckConfig holds configuration for health checks
type HealthCheckConfig struct {
	NodeID   string
	DataDir  string
	Interval time.Duration
}

// NewHealthChecker creates a new health checker. Store, flusher and pool
// are optional; checks for absent components report healthy.
func NewHealthChecker(cfg *HealthCheckConfig, st *store.Store, flusher persist.Flusher, pool *workerpool.WorkerPool, logger *zap.Logger) *HealthChecker {
	interval := cfg.Interval
	if interval <= 0 {
		interval = 10 * time.Second
	}

	return &HealthChecker{
		nodeID:      cfg.NodeID,
		dataDir:     cfg.DataDir,
		interval:    interval,
		store:       st,
		flusher:     flusher,
		pool:        pool,
		logger:      logger,
		checks:      make(map[string]CheckResult),
		livenessOK:  true,
		readinessOK: true,
		status:      model.NodeStatusHealthy,
	}
}

// Start runs health checks until the context is cancelled
func (h *HealthChecker) Start(ctx context.Context) {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	// Run initial check
	h.runHealthChecks(ctx)

	for {
		select {
		case <-ticker.C:
			h.runHealthChecks(ctx)
		case <-ctx.Done():
			h.logger.Info("Health checker stopped")
			return
		}
	}
}

// runHealthChecks runs all health checks
func (h *HealthChecker) runHealthChecks(ctx context.Context) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.lastCheck = time.Now()

	checks := []func(context.Context) CheckResult{
		h.checkDiskSpace,
		h.checkDataDirWritable,
		h.checkPersistence,
		h.checkWorkerPool,
	}

	allHealthy := true
	allReady := true

	for _, check := range checks {
		result := check(ctx)
		h.checks[result.Name] = result

		if result.Status != "healthy" {
			allHealthy = false
			if result.Status == "critical" {
				allReady = false
			}
		}
	}

	// Update overall status
	if !allHealthy {
		if !allReady {
			h.status = model.NodeStatusUnhealthy
		} else {
			h.status = model.NodeStatusDegraded
		}
	} else {
		h.status = model.NodeStatusHealthy
	}

	// Liveness: the check loop itself is running
	h.livenessOK = true

	// Readiness: no critical failures
	h.readinessOK = allReady

	h.logger.Debug("Health check completed",
		zap.String("status", string(h.status)),
		zap.Bool("liveness", h.livenessOK),
		zap.Bool("readiness", h.readinessOK))
}

// checkDiskSpace checks if disk space is sufficient
func (h *HealthChecker) checkDiskSpace(_ context.Context) CheckResult {
	var stat syscall.Statfs_t
	if err := syscall.Statfs(h.dataDir, &stat); err != nil {
		return CheckResult{
			Name:      "disk_space",
			Status:    "critical",
			Message:   fmt.Sprintf("Failed to stat filesystem: %v", err),
			Timestamp: time.Now(),
		}
	}

	available := stat.Bavail * uint64(stat.Bsize)
	total := stat.Blocks * uint64(stat.Bsize)
	used := total - (stat.Bfree * uint64(stat.Bsize))
	usagePercent := float64(used) / float64(total) * 100
	h.lastDiskUse = usagePercent

	if usagePercent > 95 {
		return CheckResult{
			Name:      "disk_space",
			Status:    "critical",
			Message:   fmt.Sprintf("Disk usage critical: %.2f%%", usagePercent),
			Timestamp: time.Now(),
		}
	} else if usagePercent > 90 {
		return CheckResult{
			Name:      "disk_space",
			Status:    "warning",
			Message:   fmt.Sprintf("Disk usage high: %.2f%%", usagePercent),
			Timestamp: time.Now(),
		}
	}

	return CheckResult{
		Name:      "disk_space",
		Status:    "healthy",
		Message:   fmt.Sprintf("Disk usage: %.2f%%, available: %.2f GB", usagePercent, float64(available)/1024/1024/1024),
		Timestamp: time.Now(),
	}
}

// checkDataDirWritable checks if the data directory is accessible and writable
func (h *HealthChecker) checkDataDirWritable(_ context.Context) CheckResult {
	info, err := os.Stat(h.dataDir)
	if err != nil {
		return CheckResult{
			Name:      "data_dir_writable",
			Status:    "critical",
			Message:   fmt.Sprintf("Data directory not accessible: %v", err),
			Timestamp: time.Now(),
		}
	}

	if !info.IsDir() {
		return CheckResult{
			Name:      "data_dir_writable",
			Status:    "critical",
			Message:   "Data path is not a directory",
			Timestamp: time.Now(),
		}
	}

	f, err := os.CreateTemp(h.dataDir, ".health_check_*")
	if err != nil {
		return CheckResult{
			Name:      "data_dir_writable",
			Status:    "critical",
			Message:   fmt.Sprintf("Cannot write to data directory: %v", err),
			Timestamp: time.Now(),
		}
	}
	f.Close()
	os.Remove(f.Name())

	return CheckResult{
		Name:      "data_dir_writable",
		Status:    "healthy",
		Message:   "Data directory is accessible and writable",
		Timestamp: time.Now(),
	}
}

// checkPersistence pings the persistence backend used by flush operations
func (h *HealthChecker) checkPersistence(ctx context.Context) CheckResult {
	if h.flusher == nil {
		return CheckResult{
			Name:      "persistence",
			Status:    "healthy",
			Message:   "Persistence disabled",
			Timestamp: time.Now(),
		}
	}

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := h.flusher.Ping(pingCtx); err != nil {
		return CheckResult{
			Name:      "persistence",
			Status:    "critical",
			Message:   fmt.Sprintf("Persistence backend unreachable: %v", err),
			Timestamp: time.Now(),
		}
	}

	return CheckResult{
		Name:      "persistence",
		Status:    "healthy",
		Message:   "Persistence backend reachable",
		Timestamp: time.Now(),
	}
}

// checkWorkerPool checks update executor queue pressure
func (h *HealthChecker) checkWorkerPool(_ context.Context) CheckResult {
	if h.pool == nil {
		return CheckResult{
			Name:      "worker_pool",
			Status:    "healthy",
			Message:   "Worker pool not configured",
			Timestamp: time.Now(),
		}
	}

	stats := h.pool.Stats()
	utilization := stats.QueueUtilization()

	if utilization >= 100 {
		return CheckResult{
			Name:      "worker_pool",
			Status:    "critical",
			Message:   fmt.Sprintf("Update queue full: %d/%d tasks queued", stats.QueuedTasks, stats.QueueSize),
			Timestamp: time.Now(),
		}
	} else if utilization > 80 {
		return CheckResult{
			Name:      "worker_pool",
			Status:    "warning",
			Message:   fmt.Sprintf("Update queue pressure high: %.2f%%", utilization),
			Timestamp: time.Now(),
		}
	}

	return CheckResult{
		Name:      "worker_pool",
		Status:    "healthy",
		Message:   fmt.Sprintf("Queue utilization: %.2f%%, success rate: %.2f%%", utilization, stats.SuccessRate()),
		Timestamp: time.Now(),
	}
}

// IsLive returns whether the node is live (liveness probe)
func (h *HealthChecker) IsLive() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.livenessOK
}

// IsReady returns whether the node is ready (readiness probe)
func (h *HealthChecker) IsReady() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.readinessOK
}

// GetStatus returns the current health status
func (h *HealthChecker) GetStatus() model.HealthStatus {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return model.HealthStatus{
		NodeID:    h.nodeID,
		Status:    h.status,
		Timestamp: h.lastCheck.Unix(),
		Metrics:   h.collectMetrics(),
	}
}

// collectMetrics gathers live health metrics. Caller must hold h.mu.
func (h *HealthChecker) collectMetrics() model.HealthMetrics {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	m := model.HealthMetrics{
		MemoryUsage: float64(memStats.Alloc),
		DiskUsage:   h.lastDiskUse,
	}

	if h.store != nil {
		stats := h.store.Stats()
		m.BucketCount = int64(stats.Buckets)
		m.KeyCount = int64(stats.Keys)
	}

	if h.pool != nil {
		stats := h.pool.Stats()
		m.PoolUtilization = stats.QueueUtilization()
		if stats.TotalTasks > 0 {
			m.ErrorRate = 100 - stats.SuccessRate()
		}
	}

	return m
}

// GetChecks returns a copy of all check results
func (h *HealthChecker) GetChecks() map[string]CheckResult {
	h.mu.RLock()
	defer h.mu.RUnlock()

	checks := make(map[string]CheckResult, len(h.checks))
	for k, v := range h.checks {
		checks[k] = v
	}

	return checks
}

// SetLiveness manually sets liveness status (for testing)
func (h *HealthChecker) SetLiveness(live bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.livenessOK = live
}

// SetReadiness manually sets readiness status (for graceful shutdown)
func (h *HealthChecker) SetReadiness(ready bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.readinessOK = ready
}

// HTTP handler functions for Kubernetes probes

// LivenessHandler handles HTTP liveness probe requests
func (h *HealthChecker) LivenessHandler(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	live := h.livenessOK
	status := h.status
	h.mu.RUnlock()

	w.Header().Set("Content-Type", "application/json")

	if !live {
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}

	json.NewEncoder(w).Encode(map[string]interface{}{
		"healthy": live,
		"status":  status,
	})
}

// ReadinessHandler handles HTTP readiness probe requests
func (h *HealthChecker) ReadinessHandler(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	ready := h.readinessOK
	status := h.status
	h.mu.RUnlock()

	w.Header().Set("Content-Type", "application/json")

	if !ready {
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}

	json.NewEncoder(w).Encode(map[string]interface{}{
		"ready":  ready,
		"status": status,
	})
}
