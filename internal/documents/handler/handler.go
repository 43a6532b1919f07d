package handler

import (
	"net/http"

	"property_portal_backend/internal/documents/service"
	apphttp "property_portal_backend/internal/http"
	"property_portal_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidID   = "invalid id"
	msgMissingFile = "missing file"
	formFileField  = "file"
)

// Handler handles HTTP requests for intervention documents
type Handler struct {
	svc *service.Service
}

// New creates a new documents handler
func New(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterInterventionRoutes registers the routes nested under an intervention
func (h *Handler) RegisterInterventionRoutes(rg *gin.RouterGroup) {
	rg.GET("/:id/documents", h.List)
	rg.POST("/:id/documents", h.Upload)
}

// RegisterRoutes registers the document routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/:id/download", h.Download)
}

// Upload handles POST /api/v1/interventions/:id/documents (multipart, field "file")
func (h *Handler) Upload(c *gin.Context) {
	interventionID, ok := parseID(c)
	if !ok {
		return
	}
	actor, ok := apphttp.ActorFrom(c)
	if !ok {
		return
	}

	header, err := c.FormFile(formFileField)
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgMissingFile, nil)
		return
	}
	file, err := header.Open()
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgMissingFile, nil)
		return
	}
	defer file.Close()

	doc, err := h.svc.Upload(c.Request.Context(), actor, interventionID, service.Upload{
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        file,
	})
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.Created(c, doc)
}

// List handles GET /api/v1/interventions/:id/documents
func (h *Handler) List(c *gin.Context) {
	interventionID, ok := parseID(c)
	if !ok {
		return
	}
	actor, ok := apphttp.ActorFrom(c)
	if !ok {
		return
	}

	docs, err := h.svc.List(c.Request.Context(), actor, interventionID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, docs)
}

// Download handles GET /api/v1/documents/:id/download
func (h *Handler) Download(c *gin.Context) {
	documentID, ok := parseID(c)
	if !ok {
		return
	}
	actor, ok := apphttp.ActorFrom(c)
	if !ok {
		return
	}

	dl, err := h.svc.Download(c.Request.Context(), actor, documentID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, dl)
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return uuid.Nil, false
	}
	return id, true
}
