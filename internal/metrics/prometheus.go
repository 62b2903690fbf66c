package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Operation label values recorded by the store service
const (
	OpPut            = "put"
	OpGet            = "get"
	OpConditionalGet = "conditional_get"
	OpRemove         = "remove"
	OpUpdate         = "update"
	OpKeys           = "keys"
	OpRange          = "range"
	OpRemoveBucket   = "remove_bucket"
	OpFlush          = "flush"
)

// Status label values
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Metrics holds all Prometheus metrics for the store node
type Metrics struct {
	// Store operation metrics
	OperationsTotal   prometheus.CounterVec
	OperationDuration prometheus.HistogramVec
	DocumentBytes     prometheus.Histogram
	BucketsTotal      prometheus.Gauge
	KeysTotal         prometheus.Gauge

	// Snapshot cache metrics
	SnapshotEntriesTotal      prometheus.Gauge
	SnapshotHitsTotal         prometheus.Gauge
	SnapshotComputationsTotal prometheus.Gauge

	// Worker pool metrics
	PoolActiveWorkers    prometheus.Gauge
	PoolQueuedTasks      prometheus.Gauge
	PoolTasksTotal       prometheus.Gauge
	PoolTasksCompleted   prometheus.Gauge
	PoolTasksFailed      prometheus.Gauge
	PoolTasksCancelled   prometheus.Gauge
	PoolTasksRejected    prometheus.Gauge
	PoolQueueUtilization prometheus.Gauge

	// Flush metrics
	FlushSweepsTotal prometheus.CounterVec
	FlushKeysTotal   prometheus.Counter
	FlushDuration    prometheus.Histogram
	FlushLastSuccess prometheus.Gauge

	// System metrics
	DiskUsageBytes     prometheus.Gauge
	DiskAvailableBytes prometheus.Gauge
	DiskUsagePercent   prometheus.Gauge
	MemoryUsageBytes   prometheus.Gauge
	GoroutinesTotal    prometheus.Gauge
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(nodeID string) *Metrics {
	labels := prometheus.Labels{"node_id": nodeID}

	return &Metrics{
		// Store operation metrics
		OperationsTotal: *promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "tessera",
			Subsystem:   "store",
			Name:        "operations_total",
			Help:        "Total number of store operations by operation and status",
			ConstLabels: labels,
		}, []string{"operation", "status"}),
		OperationDuration: *promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   "tessera",
			Subsystem:   "store",
			Name:        "operation_duration_seconds",
			Help:        "Histogram of store operation durations",
			ConstLabels: labels,
			Buckets:     prometheus.DefBuckets,
		}, []string{"operation"}),
		DocumentBytes: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace:   "tessera",
			Subsystem:   "store",
			Name:        "document_bytes",
			Help:        "Histogram of written document sizes in bytes",
			ConstLabels: labels,
			Buckets:     prometheus.ExponentialBuckets(256, 2, 10), // 256B to 128KB
		}),
		BucketsTotal: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace:   "tessera",
			Subsystem:   "store",
			Name:        "buckets_total",
			Help:        "Current number of buckets",
			ConstLabels: labels,
		}),
		KeysTotal: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace:   "tessera",
			Subsystem:   "store",
			Name:        "keys_total",
			Help:        "Current number of keys across all buckets",
			ConstLabels: labels,
		}),

		// Snapshot cache metrics
		SnapshotEntriesTotal: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace:   "tessera",
			Subsystem:   "snapshot",
			Name:        "entries_total",
			Help:        "Current number of cached snapshots",
			ConstLabels: labels,
		}),
		SnapshotHitsTotal: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace:   "tessera",
			Subsystem:   "snapshot",
			Name:        "hits_total",
			Help:        "Cumulative snapshot cache hits, collected from the store",
			ConstLabels: labels,
		}),
		SnapshotComputationsTotal: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace:   "tessera",
			Subsystem:   "snapshot",
			Name:        "computations_total",
			Help:        "Cumulative snapshot computations, collected from the store",
			ConstLabels: labels,
		}),

		// Worker pool metrics
		PoolActiveWorkers: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace:   "tessera",
			Subsystem:   "pool",
			Name:        "active_workers",
			Help:        "Current number of busy workers",
			ConstLabels: labels,
		}),
		PoolQueuedTasks: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace:   "tessera",
			Subsystem:   "pool",
			Name:        "queued_tasks",
			Help:        "Current number of queued tasks",
			ConstLabels: labels,
		}),
		PoolTasksTotal: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace:   "tessera",
			Subsystem:   "pool",
			Name:        "tasks_total",
			Help:        "Cumulative number of submitted tasks",
			ConstLabels: labels,
		}),
		PoolTasksCompleted: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace:   "tessera",
			Subsystem:   "pool",
			Name:        "tasks_completed",
			Help:        "Cumulative number of completed tasks",
			ConstLabels: labels,
		}),
		PoolTasksFailed: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace:   "tessera",
			Subsystem:   "pool",
			Name:        "tasks_failed",
			Help:        "Cumulative number of failed tasks",
			ConstLabels: labels,
		}),
		PoolTasksCancelled: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace:   "tessera",
			Subsystem:   "pool",
			Name:        "tasks_cancelled",
			Help:        "Cumulative number of tasks cancelled before running",
			ConstLabels: labels,
		}),
		PoolTasksRejected: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace:   "tessera",
			Subsystem:   "pool",
			Name:        "tasks_rejected",
			Help:        "Cumulative number of tasks rejected by a full queue",
			ConstLabels: labels,
		}),
		PoolQueueUtilization: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace:   "tessera",
			Subsystem:   "pool",
			Name:        "queue_utilization_percent",
			Help:        "Queue fill level as a percentage",
			ConstLabels: labels,
		}),

		// Flush metrics
		FlushSweepsTotal: *promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "tessera",
			Subsystem:   "flush",
			Name:        "sweeps_total",
			Help:        "Total number of flush sweeps by status",
			ConstLabels: labels,
		}, []string{"status"}),
		FlushKeysTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace:   "tessera",
			Subsystem:   "flush",
			Name:        "keys_flushed_total",
			Help:        "Total number of keys pushed through the persistence hook",
			ConstLabels: labels,
		}),
		FlushDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace:   "tessera",
			Subsystem:   "flush",
			Name:        "sweep_duration_seconds",
			Help:        "Histogram of flush sweep durations",
			ConstLabels: labels,
			Buckets:     prometheus.DefBuckets,
		}),
		FlushLastSuccess: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace:   "tessera",
			Subsystem:   "flush",
			Name:        "last_success_timestamp_seconds",
			Help:        "Unix timestamp of the last successful flush sweep",
			ConstLabels: labels,
		}),

		// System metrics
		DiskUsageBytes: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace:   "tessera",
			Subsystem:   "system",
			Name:        "disk_usage_bytes",
			Help:        "Current disk usage in bytes",
			ConstLabels: labels,
		}),
		DiskAvailableBytes: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace:   "tessera",
			Subsystem:   "system",
			Name:        "disk_available_bytes",
			Help:        "Available disk space in bytes",
			ConstLabels: labels,
		}),
		DiskUsagePercent: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace:   "tessera",
			Subsystem:   "system",
			Name:        "disk_usage_percent",
			Help:        "Disk usage percentage",
			ConstLabels: labels,
		}),
		MemoryUsageBytes: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace:   "tessera",
			Subsystem:   "system",
			Name:        "memory_usage_bytes",
			Help:        "Current memory usage in bytes",
			ConstLabels: labels,
		}),
		GoroutinesTotal: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace:   "tessera",
			Subsystem:   "system",
			Name:        "goroutines_total",
			Help:        "Current number of goroutines",
			ConstLabels: labels,
		}),
	}
}

// RecordOperation records one store operation outcome
func (m *Metrics) RecordOperation(operation, status string, duration float64) {
	m.OperationsTotal.WithLabelValues(operation, status).Inc()
	m.OperationDuration.WithLabelValues(operation).Observe(duration)
}

// RecordDocumentWrite records the size of a written document
func (m *Metrics) RecordDocumentWrite(bytes int) {
	m.DocumentBytes.Observe(float64(bytes))
}

// UpdateStoreStats updates bucket and key population gauges
func (m *Metrics) UpdateStoreStats(buckets, keys int) {
	m.BucketsTotal.Set(float64(buckets))
	m.KeysTotal.Set(float64(keys))
}

// UpdateSnapshotStats updates snapshot cache gauges from store counters
func (m *Metrics) UpdateSnapshotStats(entries int, hits, computations uint64) {
	m.SnapshotEntriesTotal.Set(float64(entries))
	m.SnapshotHitsTotal.Set(float64(hits))
	m.SnapshotComputationsTotal.Set(float64(computations))
}

// UpdatePoolStats updates worker pool gauges from pool counters
func (m *Metrics) UpdatePoolStats(activeWorkers, queuedTasks int, total, completed, failed, cancelled, rejected uint64, queueUtilization float64) {
	m.PoolActiveWorkers.Set(float64(activeWorkers))
	m.PoolQueuedTasks.Set(float64(queuedTasks))
	m.PoolTasksTotal.Set(float64(total))
	m.PoolTasksCompleted.Set(float64(completed))
	m.PoolTasksFailed.Set(float64(failed))
	m.PoolTasksCancelled.Set(float64(cancelled))
	m.PoolTasksRejected.Set(float64(rejected))
	m.PoolQueueUtilization.Set(queueUtilization)
}

// RecordFlushSweep records a flush sweep outcome
func (m *Metrics) RecordFlushSweep(status string, duration float64, keys int, completedAt int64) {
	m.FlushSweepsTotal.WithLabelValues(status).Inc()
	m.FlushDuration.Observe(duration)
	m.FlushKeysTotal.Add(float64(keys))
	if status == StatusSuccess {
		m.FlushLastSuccess.Set(float64(completedAt))
	}
}

// UpdateSystemStats updates system-level statistics
func (m *Metrics) UpdateSystemStats(diskUsage, diskAvailable, memoryUsage int64, goroutines int) {
	m.DiskUsageBytes.Set(float64(diskUsage))
	m.DiskAvailableBytes.Set(float64(diskAvailable))
	if diskUsage+diskAvailable > 0 {
		m.DiskUsagePercent.Set(float64(diskUsage) / float64(diskUsage+diskAvailable) * 100)
	}
	m.MemoryUsageBytes.Set(float64(memoryUsage))
	m.GoroutinesTotal.Set(float64(goroutines))
}
