package monitoring

import "time"

// Snapshot returns a copy of the aggregate counters for the JSON API
func (m *Metrics) Snapshot() MetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.snapshot
}

// AverageLatencySeconds returns the mean HTTP request duration so far
func (m *Metrics) AverageLatencySeconds() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.snapshot.RequestCount == 0 {
		return 0
	}
	return m.snapshot.TotalDuration / float64(m.snapshot.RequestCount)
}

// UptimeSeconds returns how long this process has been serving
func (m *Metrics) UptimeSeconds() float64 {
	return time.Since(m.startTime).Seconds()
}
