package handler

import (
	"context"
	"net/http"

	"property_portal_backend/internal/notification/inapp"
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

// DeviceStore registers push device tokens.
type DeviceStore interface {
	Register(ctx context.Context, userID uuid.UUID, token, platform string) error
	Unregister(ctx context.Context, userID uuid.UUID, token string) error
}

// ListRequest holds the inbox query parameters.
type ListRequest struct {
	Limit           int  `form:"limit" validate:"min=0,max=100"`
	Offset          int  `form:"offset" validate:"min=0"`
	UnreadOnly      bool `form:"unread"`
	IncludeArchived bool `form:"archived"`
}

// DeviceRequest registers or removes a push token.
type DeviceRequest struct {
	Token    string `json:"token" validate:"required,max=4096"`
	Platform string `json:"platform" validate:"omitempty,oneof=web ios android"`
}

type HTTPHandler struct {
	svc     *inapp.Service
	devices DeviceStore
	stream  gin.HandlerFunc
	val     *validator.Validator
}

func NewHTTPHandler(svc *inapp.Service, devices DeviceStore, stream gin.HandlerFunc, val *validator.Validator) *HTTPHandler {
	return &HTTPHandler{svc: svc, devices: devices, stream: stream, val: val}
}

func (h *HTTPHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.GET("/unread", h.CountUnread)
	if h.stream != nil {
		rg.GET("/stream", h.stream)
	}
	rg.PATCH("/:id/read", h.MarkRead)
	rg.PATCH("/read-all", h.MarkAllRead)
	rg.PATCH("/:id/archive", h.Archive)
}

func (h *HTTPHandler) RegisterDeviceRoutes(rg *gin.RouterGroup) {
	if h.devices == nil {
		return
	}
	rg.POST("", h.RegisterDevice)
	rg.DELETE("", h.UnregisterDevice)
}

func (h *HTTPHandler) List(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	var req ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, validator.Fields(err))
		return
	}

	page, err := h.svc.List(c.Request.Context(), identity.UserID(), inapp.ListFilter{
		Limit:           req.Limit,
		Offset:          req.Offset,
		UnreadOnly:      req.UnreadOnly,
		IncludeArchived: req.IncludeArchived,
	})
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, page)
}

func (h *HTTPHandler) CountUnread(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	count, err := h.svc.CountUnread(c.Request.Context(), identity.UserID())
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, gin.H{"count": count})
}

func (h *HTTPHandler) MarkRead(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}

	if err := h.svc.MarkRead(c.Request.Context(), identity.UserID(), id); httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, gin.H{"status": "ok"})
}

func (h *HTTPHandler) MarkAllRead(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	updated, err := h.svc.MarkAllRead(c.Request.Context(), identity.UserID())
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, gin.H{"updated": updated})
}

func (h *HTTPHandler) Archive(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}

	if err := h.svc.Archive(c.Request.Context(), identity.UserID(), id); httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, gin.H{"status": "ok"})
}

func (h *HTTPHandler) RegisterDevice(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	req, ok := h.bindDevice(c)
	if !ok {
		return
	}
	if req.Platform == "" {
		req.Platform = "web"
	}

	if err := h.devices.Register(c.Request.Context(), identity.UserID(), req.Token, req.Platform); httpkit.HandleError(c, err) {
		return
	}

	httpkit.Created(c, gin.H{"status": "registered"})
}

func (h *HTTPHandler) UnregisterDevice(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	req, ok := h.bindDevice(c)
	if !ok {
		return
	}

	if err := h.devices.Unregister(c.Request.Context(), identity.UserID(), req.Token); httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, gin.H{"status": "ok"})
}

func (h *HTTPHandler) bindDevice(c *gin.Context) (DeviceRequest, bool) {
	var req DeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return req, false
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, validator.Fields(err))
		return req, false
	}
	return req, true
}
