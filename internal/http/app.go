// Package http provides HTTP server infrastructure including module registration.
package http

import (
	"context"

	"leadflow_backend/internal/config"
	"leadflow_backend/internal/events"
	"leadflow_backend/platform/logger"
)

// HealthChecker exposes minimal functionality for readiness checks.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// App holds the fully initialized application dependencies.
// This is populated by main.go (the composition root) and passed to the router.
type App struct {
	// Config holds the application configuration.
	Config *config.Config
	// Logger is the structured logger.
	Logger *logger.Logger
	// Health is used for readiness checks (lead store ping).
	Health HealthChecker
	// EventBus is the domain event bus for cross-module communication.
	EventBus events.Bus
	// Modules contains all HTTP-facing domain modules.
	Modules []Module
}
