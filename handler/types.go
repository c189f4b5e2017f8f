package handler

// HealthStatus is the body of GET /health.
type HealthStatus struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Version string `json:"version"`
}

// MetricsSnapshot is the body of GET /metrics.
type MetricsSnapshot struct {
	CPUUsage     float64 `json:"cpu_usage"`
	MemoryUsage  float64 `json:"memory_usage"`
	RequestCount uint64  `json:"request_count"`
}

// ProcessResult is the body of a successful POST /api/process.
type ProcessResult struct {
	Status string `json:"status"`
	Data   any    `json:"data"`
}
