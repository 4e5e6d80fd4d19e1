// Package transport defines the evaluation module's HTTP request and
// response shapes.
package transport

// EvaluateRequest is the optional body for submitting a department evaluation.
type EvaluateRequest struct {
	UserID string `json:"userId,omitempty"`
}

// EvaluateResponse acknowledges a submitted evaluation.
type EvaluateResponse struct {
	TaskID         string `json:"taskId"`
	DepartmentSlug string `json:"departmentSlug"`
	Status         string `json:"status"`
}

// StageResponse is the serialized state of one department stage.
type StageResponse struct {
	ProjectID         string   `json:"projectId"`
	DepartmentNumber  int      `json:"departmentNumber"`
	DepartmentSlug    string   `json:"departmentSlug"`
	Status            string   `json:"status"`
	Rating            *int     `json:"rating,omitempty"`
	Threshold         int      `json:"threshold"`
	TaskID            *string  `json:"taskId,omitempty"`
	EvaluationResult  string   `json:"evaluationResult,omitempty"`
	EvaluationSummary string   `json:"evaluationSummary,omitempty"`
	Issues            []string `json:"issues"`
	Suggestions       []string `json:"suggestions"`
	ProcessingTime    *float64 `json:"processingTime,omitempty"`
	IterationCount    *int     `json:"iterationCount,omitempty"`
	Model             string   `json:"model,omitempty"`
	Error             string   `json:"error,omitempty"`
	LastEvaluatedAt   *string  `json:"lastEvaluatedAt,omitempty"`
	CreatedAt         string   `json:"createdAt,omitempty"`
	UpdatedAt         string   `json:"updatedAt,omitempty"`
}

// StageListResponse wraps a project's stage records.
type StageListResponse struct {
	Stages []StageResponse `json:"stages"`
	Total  int             `json:"total"`
}

// ReadinessResponse is the aggregate readiness of a project.
type ReadinessResponse struct {
	ProjectID      string          `json:"projectId"`
	Score          int             `json:"score"`
	Consistency    int             `json:"consistency"`
	Completeness   int             `json:"completeness"`
	Recommendation string          `json:"recommendation"`
	Stages         []StageResponse `json:"stages"`
}

// WebhookResult is the evaluation result payload delivered with a completed
// webhook. Field names follow the task service's wire format.
type WebhookResult struct {
	Rating            int      `json:"rating"`
	EvaluationResult  string   `json:"evaluation_result"`
	EvaluationSummary string   `json:"evaluation_summary"`
	Issues            []string `json:"issues,omitempty"`
	Suggestions       []string `json:"suggestions,omitempty"`
	ProcessingTime    float64  `json:"processing_time,omitempty"`
	IterationCount    int      `json:"iteration_count,omitempty"`
	Metadata          struct {
		Model string `json:"model,omitempty"`
	} `json:"metadata,omitempty"`
}

// WebhookRequest is a task status notification from the task service.
type WebhookRequest struct {
	TaskID    string         `json:"task_id" validate:"required"`
	Status    string         `json:"status" validate:"required,oneof=pending in_progress completed failed"`
	ProjectID string         `json:"project_id,omitempty"`
	Result    *WebhookResult `json:"result,omitempty"`
	Error     string         `json:"error,omitempty"`
}

// WebhookAck is the acknowledgement returned for every parseable webhook
// delivery, including ones for unknown tasks.
type WebhookAck struct {
	Received bool   `json:"received"`
	Status   string `json:"status"`
}
