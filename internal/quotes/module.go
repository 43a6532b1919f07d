// Package quotes provides the quote competition module.
package quotes

import (
	"property_portal_backend/internal/events"
	apphttp "property_portal_backend/internal/http"
	"property_portal_backend/internal/quotes/handler"
	"property_portal_backend/internal/quotes/repository"
	"property_portal_backend/internal/quotes/service"
	"property_portal_backend/platform/logger"
	"property_portal_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module represents the quotes domain module
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates a new quotes module with all dependencies wired
func NewModule(
	pool *pgxpool.Pool,
	transitioner service.Transitioner,
	interventions service.InterventionReader,
	eventBus events.Bus,
	runner service.EffectRunner,
	val *validator.Validator,
	log *logger.Logger,
) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, transitioner, interventions, eventBus, runner, log)

	return &Module{
		handler: handler.New(svc, val),
		service: svc,
	}
}

// Name returns the module name for logging
func (m *Module) Name() string {
	return "quotes"
}

// Service returns the service layer for external use
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes registers the module's routes
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterInterventionRoutes(ctx.Protected.Group("/interventions"))
	m.handler.RegisterRoutes(ctx.Protected.Group("/quotes"))
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
