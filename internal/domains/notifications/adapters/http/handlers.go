package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Apurer/agenda-client/internal/domains/notifications/domain"
	"github.com/Apurer/agenda-client/internal/domains/notifications/ports"
	apierrors "github.com/Apurer/agenda-client/internal/shared/errors"
)

type addToastRequest struct {
	Type        string `json:"type"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Handler exposes the toast queue over HTTP.
type Handler struct {
	service   ports.Service
	responder *apierrors.Responder
}

func NewHandler(service ports.Service) *Handler {
	return &Handler{service: service, responder: apierrors.NewResponder()}
}

// Register mounts the toast routes on r.
func (h *Handler) Register(r gin.IRouter) {
	r.GET("/toasts", h.List)
	r.POST("/toasts", h.Add)
	r.DELETE("/toasts/:id", h.Remove)
}

// Get /v1/toasts
func (h *Handler) List(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.Messages())
}

// Post /v1/toasts
func (h *Handler) Add(c *gin.Context) {
	var payload addToastRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		h.responder.BadRequest(c, err.Error())
		return
	}
	if strings.TrimSpace(payload.Title) == "" {
		h.responder.ValidationFailed(c, map[string]string{"title": "title is required"})
		return
	}
	msg := h.service.Add(c.Request.Context(), domain.Draft{
		Kind:        domain.ParseKind(payload.Type),
		Title:       payload.Title,
		Description: payload.Description,
	})
	c.JSON(http.StatusCreated, msg)
}

// Delete /v1/toasts/:id
// Absent ids still answer 204.
func (h *Handler) Remove(c *gin.Context) {
	h.service.Remove(c.Request.Context(), c.Param("id"))
	c.Status(http.StatusNoContent)
}
