package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/computeuse/backend/internal/infrastructure/monitoring"
	"github.com/computeuse/backend/internal/llm"
	"github.com/computeuse/backend/internal/providers/terminal"
	"github.com/computeuse/backend/internal/service"
)

// MetricsAggregator assembles the JSON snapshot served next to the
// Prometheus endpoint, for consumers that want one document instead of
// an exposition format.
type MetricsAggregator struct {
	metrics   *monitoring.Metrics
	registry  *service.Registry
	model     *llm.Client
	terminals *terminal.Manager
}

// NewMetricsAggregator creates a metrics aggregator. Model and terminals
// may be nil and are then left out of the snapshot.
func NewMetricsAggregator(
	metrics *monitoring.Metrics,
	registry *service.Registry,
	model *llm.Client,
	terminals *terminal.Manager,
) *MetricsAggregator {
	return &MetricsAggregator{
		metrics:   metrics,
		registry:  registry,
		model:     model,
		terminals: terminals,
	}
}

// MetricsSnapshot represents a point-in-time view of the backend
type MetricsSnapshot struct {
	Timestamp time.Time              `json:"timestamp"`
	Backend   map[string]interface{} `json:"backend"`
	Summary   MetricsSummary         `json:"summary"`
}

// MetricsSummary provides high-level metrics
type MetricsSummary struct {
	TotalRequests    int64   `json:"total_requests"`
	TotalCommands    int64   `json:"total_commands"`
	AverageLatencyMs float64 `json:"average_latency_ms"`
	ErrorRate        float64 `json:"error_rate"`
	UptimeSeconds    float64 `json:"uptime_seconds"`
}

// GetAggregatedMetrics returns the combined snapshot
func (ma *MetricsAggregator) GetAggregatedMetrics(c *gin.Context) {
	c.JSON(http.StatusOK, MetricsSnapshot{
		Timestamp: time.Now(),
		Backend:   ma.getBackendMetrics(),
		Summary:   ma.calculateSummary(),
	})
}

func (ma *MetricsAggregator) getBackendMetrics() map[string]interface{} {
	snap := ma.metrics.Snapshot()

	backend := map[string]interface{}{
		"status":         "operational",
		"total_requests": snap.TotalRequests,
		"total_errors":   snap.TotalErrors,
		"total_commands": snap.TotalCommands,
	}
	if ma.registry != nil {
		backend["services"] = ma.registry.Stats()
	}
	if ma.model != nil {
		backend["model_circuit"] = ma.model.BreakerState().String()
	}
	if ma.terminals != nil {
		backend["terminal_sessions"] = ma.terminals.ActiveCount()
	}
	return backend
}

func (ma *MetricsAggregator) calculateSummary() MetricsSummary {
	snap := ma.metrics.Snapshot()

	var errorRate float64
	if snap.TotalRequests > 0 {
		errorRate = float64(snap.TotalErrors) / float64(snap.TotalRequests)
	}

	return MetricsSummary{
		TotalRequests:    snap.TotalRequests,
		TotalCommands:    snap.TotalCommands,
		AverageLatencyMs: ma.metrics.AverageLatencySeconds() * 1000,
		ErrorRate:        errorRate,
		UptimeSeconds:    ma.metrics.UptimeSeconds(),
	}
}
