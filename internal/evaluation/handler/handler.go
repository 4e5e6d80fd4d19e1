// Package handler exposes the evaluation module's HTTP endpoints.
package handler

import (
	"net/http"
	"strconv"
	"time"

	"greenlight_backend/internal/evaluation/repository"
	"greenlight_backend/internal/evaluation/service"
	"greenlight_backend/internal/evaluation/transport"
	"greenlight_backend/platform/httpkit"
	"greenlight_backend/platform/logger"
	"greenlight_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Handler handles evaluation HTTP requests.
type Handler struct {
	service *service.Service
	val     *validator.Validator
	log     *logger.Logger
}

// New creates a new evaluation handler.
func New(svc *service.Service, val *validator.Validator, log *logger.Logger) *Handler {
	return &Handler{service: svc, val: val, log: log}
}

// Evaluate submits a department for evaluation.
// POST /api/v1/projects/:projectId/departments/:departmentNumber/evaluate
func (h *Handler) Evaluate(c *gin.Context) {
	projectID, departmentNumber, ok := parseStageParams(c)
	if !ok {
		return
	}

	var req transport.EvaluateRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			httpkit.Error(c, http.StatusBadRequest, "invalid request body", err.Error())
			return
		}
	}

	rec, err := h.service.EvaluateDepartment(c.Request.Context(), projectID, departmentNumber, req.UserID)
	if httpkit.HandleError(c, err) {
		return
	}

	taskID := ""
	if rec.TaskID != nil {
		taskID = *rec.TaskID
	}
	c.JSON(http.StatusAccepted, transport.EvaluateResponse{
		TaskID:         taskID,
		DepartmentSlug: rec.DepartmentSlug,
		Status:         string(rec.Status),
	})
}

// Cancel aborts an in-flight department evaluation.
// POST /api/v1/projects/:projectId/departments/:departmentNumber/cancel
func (h *Handler) Cancel(c *gin.Context) {
	projectID, departmentNumber, ok := parseStageParams(c)
	if !ok {
		return
	}

	rec, err := h.service.CancelEvaluation(c.Request.Context(), projectID, departmentNumber)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, toStageResponse(rec))
}

// GetStage returns one department's stage record.
// GET /api/v1/projects/:projectId/departments/:departmentNumber
func (h *Handler) GetStage(c *gin.Context) {
	projectID, departmentNumber, ok := parseStageParams(c)
	if !ok {
		return
	}

	stages, err := h.service.ListStages(c.Request.Context(), projectID)
	if httpkit.HandleError(c, err) {
		return
	}

	for _, rec := range stages {
		if rec.DepartmentNumber == departmentNumber {
			httpkit.OK(c, toStageResponse(rec))
			return
		}
	}
	httpkit.Error(c, http.StatusNotFound, "department not found", nil)
}

// ListStages returns all department stages for a project.
// GET /api/v1/projects/:projectId/departments
func (h *Handler) ListStages(c *gin.Context) {
	projectID, ok := parseProjectID(c)
	if !ok {
		return
	}

	stages, err := h.service.ListStages(c.Request.Context(), projectID)
	if httpkit.HandleError(c, err) {
		return
	}

	resp := transport.StageListResponse{
		Stages: make([]transport.StageResponse, 0, len(stages)),
		Total:  len(stages),
	}
	for _, rec := range stages {
		resp.Stages = append(resp.Stages, toStageResponse(rec))
	}
	httpkit.OK(c, resp)
}

// Readiness returns the aggregate project readiness.
// GET /api/v1/projects/:projectId/readiness
func (h *Handler) Readiness(c *gin.Context) {
	projectID, ok := parseProjectID(c)
	if !ok {
		return
	}

	report, err := h.service.Readiness(c.Request.Context(), projectID)
	if httpkit.HandleError(c, err) {
		return
	}

	resp := transport.ReadinessResponse{
		ProjectID:      report.ProjectID.String(),
		Score:          report.Score,
		Consistency:    report.Consistency,
		Completeness:   report.Completeness,
		Recommendation: string(report.Recommendation),
		Stages:         make([]transport.StageResponse, 0, len(report.Stages)),
	}
	for _, rec := range report.Stages {
		resp.Stages = append(resp.Stages, toStageResponse(rec))
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

func parseStageParams(c *gin.Context) (uuid.UUID, int, bool) {
	projectID, ok := parseProjectID(c)
	if !ok {
		return uuid.UUID{}, 0, false
	}

	departmentNumber, err := strconv.Atoi(c.Param("departmentNumber"))
	if err != nil || departmentNumber < 1 {
		httpkit.Error(c, http.StatusBadRequest, "invalid department number", nil)
		return uuid.UUID{}, 0, false
	}
	return projectID, departmentNumber, true
}

func toStageResponse(rec repository.StageRecord) transport.StageResponse {
	resp := transport.StageResponse{
		ProjectID:         rec.ProjectID.String(),
		DepartmentNumber:  rec.DepartmentNumber,
		DepartmentSlug:    rec.DepartmentSlug,
		Status:            string(rec.Status),
		Rating:            rec.Rating,
		Threshold:         rec.Threshold,
		TaskID:            rec.TaskID,
		EvaluationResult:  rec.EvaluationResult,
		EvaluationSummary: rec.EvaluationSummary,
		Issues:            rec.Issues,
		Suggestions:       rec.Suggestions,
		ProcessingTime:    rec.ProcessingTime,
		IterationCount:    rec.IterationCount,
		Model:             rec.Model,
		Error:             rec.Error,
	}
	if resp.Issues == nil {
		resp.Issues = []string{}
	}
	if resp.Suggestions == nil {
		resp.Suggestions = []string{}
	}
	if rec.LastEvaluatedAt != nil {
		s := rec.LastEvaluatedAt.Format(time.RFC3339)
		resp.LastEvaluatedAt = &s
	}
	if !rec.CreatedAt.IsZero() {
		resp.CreatedAt = rec.CreatedAt.Format(time.RFC3339)
	}
	if !rec.UpdatedAt.IsZero() {
		resp.UpdatedAt = rec.UpdatedAt.Format(time.RFC3339)
	}
	return resp
}
