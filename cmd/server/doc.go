// Package main is the entry point for the compute backend server.
//
// The server hosts an agent loop over a persistent shell session and
// exposes it through REST and WebSocket APIs.
//
// Architecture:
//
//	Client (HTTP/WS) → Agent Loop → Anthropic Messages API
//	                             → Shell Session (bash)
//	                             → PTY Terminal Sessions
//
// The server provides:
//   - Synchronous chat endpoint returning the full task transcript
//   - WebSocket streaming of loop events (tokens, tool calls, results)
//   - Service provider registry with direct tool execution
//   - Prometheus metrics and a JSON metrics snapshot
//   - Rate limiting and request ids
//
// Configuration:
//   - Environment variables (12-factor)
//   - CLI flags (override env vars)
//   - Defaults for development
//
// Usage:
//
//	# Production mode
//	./server -port 8000
//
//	# Development mode (colored logs, debug level)
//	./server -dev
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown
package main
