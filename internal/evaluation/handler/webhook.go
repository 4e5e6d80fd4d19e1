package handler

import (
	"net/http"

	"greenlight_backend/internal/evaluation/service"
	"greenlight_backend/internal/evaluation/transport"
	"greenlight_backend/platform/httpkit"
	"greenlight_backend/platform/taskexec"

	"github.com/gin-gonic/gin"
)

// Webhook receives task status notifications from the task service.
// POST /api/v1/webhooks/evaluation
//
// Any parseable delivery is acknowledged with 200 so the task service does
// not retry; deliveries for unknown or already-terminal tasks are absorbed.
// Only an unparseable body is rejected.
func (h *Handler) Webhook(c *gin.Context) {
	var req transport.WebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid webhook body", err.Error())
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "validation error", err.Error())
		return
	}

	upd := service.TaskUpdate{
		TaskID: req.TaskID,
		Status: req.Status,
		Error:  req.Error,
	}
	if req.Result != nil {
		result := taskexec.Result{
			Rating:            req.Result.Rating,
			EvaluationResult:  req.Result.EvaluationResult,
			EvaluationSummary: req.Result.EvaluationSummary,
			Issues:            req.Result.Issues,
			Suggestions:       req.Result.Suggestions,
			ProcessingTime:    req.Result.ProcessingTime,
			IterationCount:    req.Result.IterationCount,
		}
		result.Metadata.Model = req.Result.Metadata.Model
		upd.Result = &result
	}

	if err := h.service.ApplyTaskUpdate(c.Request.Context(), upd); err != nil {
		// The webhook is acknowledged anyway; the poll loop will retry the
		// reconciliation.
		h.log.TaskEvent("webhook_apply_failed", req.TaskID, "error", err.Error())
	}

	httpkit.OK(c, transport.WebhookAck{Received: true, Status: req.Status})
}
