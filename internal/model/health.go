package model

// HealthStatus represents the health state of a partition node
type HealthStatus struct {
	NodeID    string
	Status    NodeStatus
	Timestamp int64
	Metrics   HealthMetrics
}

// NodeStatus defines the operational status of a node
type NodeStatus string

const (
	NodeStatusHealthy   NodeStatus = "healthy"
	NodeStatusDegraded  NodeStatus = "degraded"
	NodeStatusUnhealthy NodeStatus = "unhealthy"
)

// HealthMetrics contains various health metrics
type HealthMetrics struct {
	MemoryUsage     float64
	DiskUsage       float64
	BucketCount     int64
	KeyCount        int64
	PoolUtilization float64
	ErrorRate       float64
}
