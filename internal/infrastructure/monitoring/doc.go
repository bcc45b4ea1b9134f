/*
Package monitoring provides performance monitoring and metrics collection.

# Overview

This package implements Prometheus-based metrics collection for the backend
service, tracking HTTP requests, shell command execution, model API calls,
agent loop runs, and system metrics.

# Features

- HTTP request metrics (latency, throughput, size)
- Command execution metrics (duration, timeouts, restarts)
- Model API metrics (latency, token usage)
- Agent loop metrics (runs, operations per run)
- Service call metrics (duration, errors)
- WebSocket connection metrics
- System metrics (uptime)

# Usage

	// Create metrics collector
	metrics := monitoring.NewMetrics()

	// Add middleware to Gin router
	router.Use(monitoring.Middleware(metrics))

	// Record custom metrics
	metrics.RecordCommand("ok", elapsed)
	metrics.RecordSessionRestart()

	// Time operations
	timer := monitoring.NewTimer(metrics, "bash", "bash")
	// ... perform operation ...
	timer.Stop("success")

# Metrics Endpoint

Expose metrics via the standard Prometheus endpoint:

	import "github.com/prometheus/client_golang/prometheus/promhttp"
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
*/
package monitoring
