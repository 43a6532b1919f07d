package handler

import (
	"net/http"

	apphttp "property_portal_backend/internal/http"
	"property_portal_backend/internal/quotes/service"
	"property_portal_backend/internal/quotes/transport"
	"property_portal_backend/platform/httpkit"
	"property_portal_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

// Handler handles HTTP requests for quotes
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new quotes handler
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterInterventionRoutes registers the routes nested under an intervention
func (h *Handler) RegisterInterventionRoutes(rg *gin.RouterGroup) {
	rg.GET("/:id/quotes", h.List)
	rg.POST("/:id/quotes", h.Submit)
	rg.POST("/:id/quotes/accept", h.Accept)
}

// RegisterRoutes registers the quote routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/:id/reject", h.Reject)
}

// List handles GET /api/v1/interventions/:id/quotes
func (h *Handler) List(c *gin.Context) {
	interventionID, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	actor, ok := apphttp.ActorFrom(c)
	if !ok {
		return
	}

	quotes, err := h.svc.List(c.Request.Context(), interventionID, actor)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, quotes)
}

// Submit handles POST /api/v1/interventions/:id/quotes
func (h *Handler) Submit(c *gin.Context) {
	interventionID, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	var req transport.SubmitQuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, validator.Fields(err))
		return
	}

	actor, ok := apphttp.ActorFrom(c)
	if !ok {
		return
	}

	quote, err := h.svc.Submit(c.Request.Context(), interventionID, actor, service.SubmitInput{
		AmountCents: req.AmountCents,
		Description: req.Description,
	})
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.Created(c, quote)
}

// Accept handles POST /api/v1/interventions/:id/quotes/accept
func (h *Handler) Accept(c *gin.Context) {
	interventionID, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	var req transport.AcceptQuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, validator.Fields(err))
		return
	}

	actor, ok := apphttp.ActorFrom(c)
	if !ok {
		return
	}

	res, err := h.svc.Resolve(c.Request.Context(), interventionID, req.QuoteID, actor)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, res)
}

// Reject handles POST /api/v1/quotes/:id/reject
func (h *Handler) Reject(c *gin.Context) {
	quoteID, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	var req transport.RejectQuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, validator.Fields(err))
		return
	}

	actor, ok := apphttp.ActorFrom(c)
	if !ok {
		return
	}

	quote, err := h.svc.Reject(c.Request.Context(), quoteID, actor, req.Reason)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, quote)
}

func parseUUID(c *gin.Context, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(param))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid "+param, nil)
		return uuid.Nil, false
	}
	return id, true
}
