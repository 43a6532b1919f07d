// Package interventions provides the intervention workflow module: the
// status registry, the transition executor and the CRUD around them.
package interventions

import (
	"property_portal_backend/internal/events"
	apphttp "property_portal_backend/internal/http"
	"property_portal_backend/internal/interventions/handler"
	"property_portal_backend/internal/interventions/repository"
	"property_portal_backend/internal/interventions/service"
	"property_portal_backend/platform/logger"
	"property_portal_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module represents the interventions domain module
type Module struct {
	handler *handler.Handler
	service *service.Service
	repo    *repository.Repository
}

// NewModule creates a new interventions module with all dependencies wired
func NewModule(pool *pgxpool.Pool, eventBus events.Bus, runner service.EffectRunner, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, eventBus, runner, log)

	return &Module{
		handler: handler.New(svc, val),
		service: svc,
		repo:    repo,
	}
}

// Name returns the module name for logging
func (m *Module) Name() string {
	return "interventions"
}

// Service returns the service layer for external use
func (m *Module) Service() *service.Service {
	return m.service
}

// Repository exposes intervention lookups to other modules.
func (m *Module) Repository() *repository.Repository {
	return m.repo
}

// RegisterRoutes registers the module's routes
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/interventions"))
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
