// Package handler implements the service endpoints.
package handler

import (
	"github.com/searchktools/fast-backend/apperror"
	"github.com/searchktools/fast-backend/core/http"
	"github.com/searchktools/fast-backend/logger"
)

// Route paths.
const (
	PathHealth      = "/health"
	PathMetrics     = "/metrics"
	PathProcess     = "/api/process"
	PathPassthrough = "/api/grpc"
)

// Fixed figures reported by the metrics endpoint.
const (
	reportedCPUUsage     = 45.2
	reportedMemoryUsage  = 512.0
	reportedRequestCount = 12345
)

// Info identifies the running service.
type Info struct {
	Service string
	Version string
}

// Registrar is the route registration surface the handlers need.
type Registrar interface {
	GET(path string, h http.HandlerFunc)
	POST(path string, h http.HandlerFunc)
}

// Handlers holds the endpoint implementations. They keep no mutable state
// and are safe for concurrent use.
type Handlers struct {
	info Info
	log  logger.Logger
}

// New creates the handlers.
func New(info Info, log logger.Logger) *Handlers {
	if log == nil {
		log = logger.NewNop()
	}
	return &Handlers{info: info, log: log}
}

// Register mounts every endpoint on r.
func (h *Handlers) Register(r Registrar) {
	r.GET(PathHealth, h.Health)
	r.GET(PathMetrics, h.Metrics)
	r.POST(PathProcess, h.ProcessData)
	r.POST(PathPassthrough, h.Passthrough)
}

// Health reports liveness with the service identity.
func (h *Handlers) Health(ctx *http.Context) error {
	return ctx.JSON(200, HealthStatus{
		Status:  "healthy",
		Service: h.info.Service,
		Version: h.info.Version,
	})
}

// Metrics returns a static snapshot.
func (h *Handlers) Metrics(ctx *http.Context) error {
	return ctx.JSON(200, MetricsSnapshot{
		CPUUsage:     reportedCPUUsage,
		MemoryUsage:  reportedMemoryUsage,
		RequestCount: reportedRequestCount,
	})
}

// ProcessData echoes any valid JSON value back wrapped in a ProcessResult.
func (h *Handlers) ProcessData(ctx *http.Context) error {
	var data any
	if err := ctx.BindJSON(&data); err != nil {
		return apperror.MalformedInput(err)
	}

	h.log.Info("processing data", logger.Any("data", data))

	return ctx.JSON(200, ProcessResult{
		Status: "processed",
		Data:   data,
	})
}

// Passthrough returns the request body unchanged as an octet stream.
func (h *Handlers) Passthrough(ctx *http.Context) error {
	body := ctx.Body()
	h.log.Debug("grpc-style request", logger.Int("bytes", len(body)))

	return ctx.Data(200, "application/octet-stream", body)
}
