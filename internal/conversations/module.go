// Package conversations provides discussion threads attached to interventions.
package conversations

import (
	"property_portal_backend/internal/conversations/handler"
	"property_portal_backend/internal/conversations/repository"
	"property_portal_backend/internal/conversations/service"
	"property_portal_backend/internal/events"
	apphttp "property_portal_backend/internal/http"
	"property_portal_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module represents the conversations domain module
type Module struct {
	handler *handler.Handler
	service *service.Service
	repo    *repository.Repository
}

// NewModule creates a new conversations module with all dependencies wired
func NewModule(pool *pgxpool.Pool, interventions service.InterventionReader, eventBus events.Bus, runner service.EffectRunner, val *validator.Validator) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, interventions, eventBus, runner)

	return &Module{
		handler: handler.New(svc, val),
		service: svc,
		repo:    repo,
	}
}

// Name returns the module name for logging
func (m *Module) Name() string {
	return "conversations"
}

// Repository exposes thread participants to the notification module.
func (m *Module) Repository() *repository.Repository {
	return m.repo
}

// RegisterRoutes registers the module's routes
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterInterventionRoutes(ctx.Protected.Group("/interventions"))
	m.handler.RegisterRoutes(ctx.Protected.Group("/threads"))
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
