/*
Package tracing provides lightweight request tracing for the backend.

# Overview

Each HTTP request gets a span carrying a trace id, and callers can thread
their own trace through the X-Trace-ID / X-Span-ID headers so one id
follows a task from the client through the API into the agent machinery.
The implementation follows OpenTelemetry concepts but stays minimal:
spans are structured log lines, not an export pipeline.

# Usage

	// Create tracer
	tracer := tracing.New("backend", logger)

	// HTTP middleware
	router.Use(tracing.HTTPMiddleware(tracer))

	// Manual span creation
	span, ctx := tracer.StartSpan(ctx, "operation")
	defer func() {
		span.Finish()
		tracer.Submit(span)
	}()

	span.SetTag("key", "value")

# Trace Format

Traces use standard HTTP headers for propagation:
  - X-Trace-ID: Unique identifier for the entire request flow
  - X-Span-ID: Identifier for the current operation

# Performance

Span collection is buffered (1000 spans) and processed off the request
path; when the buffer is full, spans are dropped rather than blocking.
*/
package tracing
