// Package documents stores files attached to interventions in object storage.
package documents

import (
	"property_portal_backend/internal/documents/handler"
	"property_portal_backend/internal/documents/repository"
	"property_portal_backend/internal/documents/service"
	"property_portal_backend/internal/events"
	apphttp "property_portal_backend/internal/http"
	"property_portal_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module represents the documents domain module
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates a new documents module. store may be nil when object
// storage is not configured; uploads then fail with an internal error.
func NewModule(pool *pgxpool.Pool, store service.ObjectStore, opts service.Options, interventions service.InterventionReader, eventBus events.Bus, runner service.EffectRunner, log *logger.Logger) *Module {
	svc := service.New(repository.New(pool), store, opts, interventions, eventBus, runner, log)
	return &Module{
		handler: handler.New(svc),
		service: svc,
	}
}

// Name returns the module name for logging
func (m *Module) Name() string {
	return "documents"
}

// RegisterRoutes registers the module's routes
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterInterventionRoutes(ctx.Protected.Group("/interventions"))
	m.handler.RegisterRoutes(ctx.Protected.Group("/documents"))
}

var _ apphttp.Module = (*Module)(nil)
