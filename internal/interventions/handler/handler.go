package handler

import (
	"net/http"

	apphttp "property_portal_backend/internal/http"
	"property_portal_backend/internal/interventions/domain"
	"property_portal_backend/internal/interventions/service"
	"property_portal_backend/internal/interventions/transport"
	"property_portal_backend/platform/httpkit"
	"property_portal_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInvalidID        = "invalid intervention id"
)

// Handler handles HTTP requests for interventions
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new interventions handler
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterRoutes registers the intervention routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.POST("", h.Create)
	rg.GET("/workflow", h.Workflow)
	rg.GET("/:id", h.Get)
	rg.POST("/:id/transitions", h.Transition)
	rg.POST("/:id/assignments", h.Assign)
	rg.GET("/:id/reports", h.ListReports)
}

// List handles GET /api/v1/interventions
func (h *Handler) List(c *gin.Context) {
	var req transport.ListInterventionsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, validator.Fields(err))
		return
	}

	var status *domain.Status
	if req.Status != "" {
		parsed, err := domain.ParseStatus(req.Status)
		if err != nil {
			httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, map[string]string{"status": "oneof"})
			return
		}
		status = &parsed
	}

	actor, ok := apphttp.ActorFrom(c)
	if !ok {
		return
	}

	result, err := h.svc.List(c.Request.Context(), actor, status, req.Limit, req.Offset)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Create handles POST /api/v1/interventions
func (h *Handler) Create(c *gin.Context) {
	var req transport.CreateInterventionRequest
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

	in := service.CreateInput{
		LotID:       req.LotID,
		TenantID:    req.TenantID,
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Urgency:     req.Urgency,
	}
	for _, a := range req.Assignments {
		in.Assignments = append(in.Assignments, a.ToAssignment(uuid.Nil))
	}

	iv, err := h.svc.Create(c.Request.Context(), actor, in)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.Created(c, iv)
}

// Workflow handles GET /api/v1/interventions/workflow
func (h *Handler) Workflow(c *gin.Context) {
	httpkit.OK(c, transport.ToRuleResponses(domain.DefaultRegistry.Rules()))
}

// Get handles GET /api/v1/interventions/:id
func (h *Handler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	actor, ok := apphttp.ActorFrom(c)
	if !ok {
		return
	}

	detail, err := h.svc.Get(c.Request.Context(), id, actor)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, detail)
}

// Transition handles POST /api/v1/interventions/:id/transitions
func (h *Handler) Transition(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req transport.TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, validator.Fields(err))
		return
	}
	action, err := domain.ParseAction(req.Action)
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, map[string]string{"action": "oneof"})
		return
	}

	actor, ok := apphttp.ActorFrom(c)
	if !ok {
		return
	}

	iv, err := h.svc.Transition(c.Request.Context(), id, action, actor, req.ToPayload())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, iv)
}

// Assign handles POST /api/v1/interventions/:id/assignments
func (h *Handler) Assign(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req transport.AssignmentRequest
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

	assignment := req.ToAssignment(id)
	if httpkit.HandleError(c, h.svc.Assign(c.Request.Context(), actor, assignment)) {
		return
	}
	httpkit.Created(c, assignment)
}

// ListReports handles GET /api/v1/interventions/:id/reports
func (h *Handler) ListReports(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	actor, ok := apphttp.ActorFrom(c)
	if !ok {
		return
	}

	reports, err := h.svc.ListReports(c.Request.Context(), id, actor)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, reports)
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return uuid.Nil, false
	}
	return id, true
}
