// Package handler exposes the staging module's HTTP endpoints.
package handler

import (
	"net/http"

	"greenlight_backend/internal/staging/service"
	"greenlight_backend/internal/staging/transport"
	"greenlight_backend/platform/httpkit"
	"greenlight_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Handler handles staged content HTTP requests.
type Handler struct {
	service *service.Service
	val     *validator.Validator
}

// New creates a new staging handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{service: svc, val: val}
}

// Stage enriches and stores a content item.
// POST /api/v1/projects/:projectId/content
func (h *Handler) Stage(c *gin.Context) {
	projectID, ok := parseProjectID(c)
	if !ok {
		return
	}

	var req transport.StageContentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "validation error", err.Error())
		return
	}

	resp, err := h.service.Stage(c.Request.Context(), req, projectID)
	if httpkit.HandleError(c, err) {
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// List returns all staged items for a project.
// GET /api/v1/projects/:projectId/content
func (h *Handler) List(c *gin.Context) {
	projectID, ok := parseProjectID(c)
	if !ok {
		return
	}

	resp, err := h.service.ListByProject(c.Request.Context(), projectID)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, resp)
}

func parseProjectID(c *gin.Context) (uuid.UUID, bool) {
	projectID, err := uuid.Parse(c.Param("projectId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid project ID", nil)
		return uuid.UUID{}, false
	}
	return projectID, true
}
