package handler

import (
	"net/http"

	"property_portal_backend/internal/conversations/service"
	"property_portal_backend/internal/conversations/transport"
	apphttp "property_portal_backend/internal/http"
	"property_portal_backend/platform/httpkit"
	"property_portal_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInvalidID        = "invalid id"
)

// Handler handles HTTP requests for conversations
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new conversations handler
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterInterventionRoutes registers the routes nested under an intervention
func (h *Handler) RegisterInterventionRoutes(rg *gin.RouterGroup) {
	rg.GET("/:id/threads", h.ListThreads)
	rg.POST("/:id/threads", h.CreateThread)
}

// RegisterRoutes registers the thread routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/:id/messages", h.ListMessages)
	rg.POST("/:id/messages", h.PostMessage)
	rg.POST("/:id/participants", h.AddParticipant)
}

// ListThreads handles GET /api/v1/interventions/:id/threads
func (h *Handler) ListThreads(c *gin.Context) {
	interventionID, ok := parseID(c)
	if !ok {
		return
	}
	actor, ok := apphttp.ActorFrom(c)
	if !ok {
		return
	}

	threads, err := h.svc.ListThreads(c.Request.Context(), actor, interventionID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, threads)
}

// CreateThread handles POST /api/v1/interventions/:id/threads
func (h *Handler) CreateThread(c *gin.Context) {
	interventionID, ok := parseID(c)
	if !ok {
		return
	}

	var req transport.CreateThreadRequest
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

	thread, err := h.svc.CreateThread(c.Request.Context(), actor, interventionID, req.Title, req.Participants)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.Created(c, thread)
}

// ListMessages handles GET /api/v1/threads/:id/messages
func (h *Handler) ListMessages(c *gin.Context) {
	threadID, ok := parseID(c)
	if !ok {
		return
	}

	var req transport.ListMessagesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
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

	messages, err := h.svc.ListMessages(c.Request.Context(), actor, threadID, req.Limit, req.Offset)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, messages)
}

// PostMessage handles POST /api/v1/threads/:id/messages
func (h *Handler) PostMessage(c *gin.Context) {
	threadID, ok := parseID(c)
	if !ok {
		return
	}

	var req transport.PostMessageRequest
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

	msg, err := h.svc.PostMessage(c.Request.Context(), actor, threadID, req.Content)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.Created(c, msg)
}

// AddParticipant handles POST /api/v1/threads/:id/participants
func (h *Handler) AddParticipant(c *gin.Context) {
	threadID, ok := parseID(c)
	if !ok {
		return
	}

	var req transport.AddParticipantRequest
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

	if err := h.svc.AddParticipant(c.Request.Context(), actor, threadID, req.UserID); httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"status": "ok"})
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return uuid.Nil, false
	}
	return id, true
}
