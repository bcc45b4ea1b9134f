package monitoring

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	RequestSize     *prometheus.HistogramVec
	ResponseSize    *prometheus.HistogramVec

	// Command execution metrics
	CommandsTotal    *prometheus.CounterVec
	CommandDuration  prometheus.Histogram
	CommandTimeouts  prometheus.Counter
	SessionRestarts  prometheus.Counter
	SessionsActive   prometheus.Gauge
	TerminalSessions prometheus.Gauge

	// Model call metrics
	ModelRequests *prometheus.CounterVec
	ModelDuration prometheus.Histogram
	ModelTokens   *prometheus.CounterVec

	// Agent loop metrics
	LoopRuns       *prometheus.CounterVec
	LoopOperations prometheus.Histogram

	// Service metrics
	ServiceCalls    *prometheus.CounterVec
	ServiceDuration *prometheus.HistogramVec
	ServiceErrors   *prometheus.CounterVec

	// WebSocket metrics
	WSConnections prometheus.Gauge
	WSMessages    *prometheus.CounterVec

	// System metrics
	Uptime    prometheus.Gauge
	startTime time.Time

	// Snapshot for JSON API - track current values
	snapshot MetricsSnapshot

	mu sync.RWMutex
}

// MetricsSnapshot holds current metric values for JSON API
type MetricsSnapshot struct {
	TotalRequests int64
	TotalErrors   int64
	TotalCommands int64
	TotalDuration float64 // sum of all request durations
	RequestCount  int64   // count for averaging
}

// NewMetrics creates a metrics collector registered with the default
// Prometheus registry
func NewMetrics() *Metrics {
	return NewMetricsWith(prometheus.DefaultRegisterer)
}

// NewMetricsWith creates a metrics collector registered with reg. Tests use
// isolated registries so collectors never collide.
func NewMetricsWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	m := &Metrics{
		startTime: time.Now(),

		// HTTP metrics
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "backend_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "backend_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		RequestSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "backend_http_request_size_bytes",
				Help:    "HTTP request size in bytes",
				Buckets: []float64{100, 1000, 10000, 100000, 1000000, 10000000},
			},
			[]string{"method", "path"},
		),
		ResponseSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "backend_http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: []float64{100, 1000, 10000, 100000, 1000000, 10000000},
			},
			[]string{"method", "path"},
		),

		// Command execution metrics
		CommandsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "backend_commands_total",
				Help: "Total number of shell commands executed",
			},
			[]string{"status"},
		),
		CommandDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "backend_command_duration_seconds",
				Help:    "Shell command duration in seconds",
				Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
			},
		),
		CommandTimeouts: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "backend_command_timeouts_total",
				Help: "Total number of commands that timed out and poisoned a session",
			},
		),
		SessionRestarts: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "backend_session_restarts_total",
				Help: "Total number of shell session restarts",
			},
		),
		SessionsActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "backend_sessions_active",
				Help: "Number of active shell sessions",
			},
		),
		TerminalSessions: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "backend_terminal_sessions_active",
				Help: "Number of active PTY terminal sessions",
			},
		),

		// Model call metrics
		ModelRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "backend_model_requests_total",
				Help: "Total number of model API requests",
			},
			[]string{"model", "status"},
		),
		ModelDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "backend_model_request_duration_seconds",
				Help:    "Model API request duration in seconds",
				Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60},
			},
		),
		ModelTokens: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "backend_model_tokens_total",
				Help: "Total number of tokens exchanged with the model API",
			},
			[]string{"kind"},
		),

		// Agent loop metrics
		LoopRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "backend_loop_runs_total",
				Help: "Total number of agent loop runs",
			},
			[]string{"outcome"},
		),
		LoopOperations: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "backend_loop_operations",
				Help:    "Tool operations consumed per agent loop run",
				Buckets: []float64{0, 1, 2, 3, 4, 5, 8, 13, 21},
			},
		),

		// Service metrics
		ServiceCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "backend_service_calls_total",
				Help: "Total number of service calls",
			},
			[]string{"service", "method", "status"},
		),
		ServiceDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "backend_service_duration_seconds",
				Help:    "Service call duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"service", "method"},
		),
		ServiceErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "backend_service_errors_total",
				Help: "Total number of service errors",
			},
			[]string{"service", "method", "error_type"},
		),

		// WebSocket metrics
		WSConnections: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "backend_ws_connections",
				Help: "Number of active WebSocket connections",
			},
		),
		WSMessages: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "backend_ws_messages_total",
				Help: "Total number of WebSocket messages",
			},
			[]string{"direction", "type"},
		),

		// System metrics
		Uptime: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "backend_uptime_seconds",
				Help: "Backend uptime in seconds",
			},
		),
	}

	// Start uptime updater
	go m.updateUptime()

	return m
}

// updateUptime continuously updates the uptime metric
func (m *Metrics) updateUptime() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for range ticker.C {
		m.Uptime.Set(time.Since(m.startTime).Seconds())
	}
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration, reqSize, respSize int64) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	m.RequestSize.WithLabelValues(method, path).Observe(float64(reqSize))
	m.ResponseSize.WithLabelValues(method, path).Observe(float64(respSize))

	// Update snapshot
	m.mu.Lock()
	m.snapshot.TotalRequests++
	m.snapshot.TotalDuration += duration.Seconds()
	m.snapshot.RequestCount++
	if len(status) > 0 && (status[0] == '4' || status[0] == '5') {
		m.snapshot.TotalErrors++
	}
	m.mu.Unlock()
}

// RecordCommand records a shell command execution
func (m *Metrics) RecordCommand(status string, duration time.Duration) {
	m.CommandsTotal.WithLabelValues(status).Inc()
	m.CommandDuration.Observe(duration.Seconds())

	m.mu.Lock()
	m.snapshot.TotalCommands++
	m.mu.Unlock()
}

// RecordCommandTimeout records a command timeout
func (m *Metrics) RecordCommandTimeout() {
	m.CommandTimeouts.Inc()
}

// RecordSessionRestart records a shell session restart
func (m *Metrics) RecordSessionRestart() {
	m.SessionRestarts.Inc()
}

// SetSessionsActive sets the number of active shell sessions
func (m *Metrics) SetSessionsActive(count int) {
	m.SessionsActive.Set(float64(count))
}

// SetTerminalSessions sets the number of active PTY terminal sessions
func (m *Metrics) SetTerminalSessions(count int) {
	m.TerminalSessions.Set(float64(count))
}

// RecordModelRequest records a model API request
func (m *Metrics) RecordModelRequest(model, status string, duration time.Duration) {
	m.ModelRequests.WithLabelValues(model, status).Inc()
	m.ModelDuration.Observe(duration.Seconds())
}

// AddModelTokens adds to the token counter for one usage kind
func (m *Metrics) AddModelTokens(kind string, n int64) {
	if n <= 0 {
		return
	}
	m.ModelTokens.WithLabelValues(kind).Add(float64(n))
}

// RecordLoopRun records a completed agent loop run
func (m *Metrics) RecordLoopRun(outcome string, operations int) {
	m.LoopRuns.WithLabelValues(outcome).Inc()
	m.LoopOperations.Observe(float64(operations))
}

// RecordServiceCall records a service call
func (m *Metrics) RecordServiceCall(service, method, status string, duration time.Duration) {
	m.ServiceCalls.WithLabelValues(service, method, status).Inc()
	m.ServiceDuration.WithLabelValues(service, method).Observe(duration.Seconds())
}

// RecordServiceError records a service error
func (m *Metrics) RecordServiceError(service, method, errorType string) {
	m.ServiceErrors.WithLabelValues(service, method, errorType).Inc()
}

// RecordWSMessage records a WebSocket message
func (m *Metrics) RecordWSMessage(direction, msgType string) {
	m.WSMessages.WithLabelValues(direction, msgType).Inc()
}

// IncWSConnections increments WebSocket connections
func (m *Metrics) IncWSConnections() {
	m.WSConnections.Inc()
}

// DecWSConnections decrements WebSocket connections
func (m *Metrics) DecWSConnections() {
	m.WSConnections.Dec()
}
