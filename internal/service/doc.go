// Package service provides the registry that backs the sandbox's tool surface.
//
// The registry maintains a catalog of service providers (bash sessions,
// terminals) and handles service discovery, tool execution, and relevance
// scoring for intent queries.
//
// Components:
//   - Registry: Central service catalog
//   - Provider: Interface for service implementations
//   - Service discovery with relevance scoring
//
// Features:
//   - Thread-safe service registration
//   - Category-based filtering
//   - Intent-based discovery with scoring
//   - Tool execution with context passing
//   - Service statistics and health
//
// Tool IDs take the form "service.tool"; a bare service ID is accepted for
// services that publish a single tool under their own name.
//
// Example Usage:
//
//	registry := service.NewRegistry()
//	registry.Register(bashProvider)
//	services := registry.Discover("run command", 5)
//	result, err := registry.Execute(ctx, "bash", params, appCtx)
package service
