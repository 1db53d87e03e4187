// Package leads provides the lead conversation bounded context module.
// This file defines the module that encapsulates all leads setup and route registration.
package leads

import (
	"leadflow_backend/internal/events"
	"leadflow_backend/internal/followup"
	apphttp "leadflow_backend/internal/http"
	"leadflow_backend/internal/leads/engine"
	"leadflow_backend/internal/leads/handler"
	"leadflow_backend/internal/leads/session"
	"leadflow_backend/internal/leads/store"
	"leadflow_backend/platform/logger"
	"leadflow_backend/platform/validator"
)

// Module is the leads bounded context module implementing http.Module.
type Module struct {
	handler     *handler.Handler
	coordinator *session.Coordinator
	engine      *engine.Engine
	store       *store.Store
}

// NewModule creates and initializes the leads module with all its dependencies.
func NewModule(st *store.Store, queue followup.Queue, eng *engine.Engine, eventBus events.Bus, val *validator.Validator, log *logger.Logger) *Module {
	coord := session.New(st, eng, eventBus, log)
	h := handler.New(coord, queue, st, val)

	return &Module{
		handler:     h,
		coordinator: coord,
		engine:      eng,
		store:       st,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "leads"
}

// Coordinator returns the session coordinator for external use.
func (m *Module) Coordinator() *session.Coordinator {
	return m.coordinator
}

// Store returns the durable lead store for external use.
func (m *Module) Store() *store.Store {
	return m.store
}

// RegisterRoutes mounts leads routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	leadsGroup := ctx.V1.Group("/leads")
	m.handler.RegisterRoutes(leadsGroup, ctx.TurnRateLimiter)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
