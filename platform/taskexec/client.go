// Package taskexec provides a REST client for the external long-running
// evaluation task service. The service owns the actual computation; this
// client only submits work and reads status.
package taskexec

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Task statuses reported by the task service.
const (
	StatusPending    = "pending"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Client is an HTTP client for the evaluation task service.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// Config configures the task service client.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// NewClient creates a new task service client.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// ContentSnapshot is one staged content item handed to the evaluation task.
type ContentSnapshot struct {
	Content  json.RawMessage `json:"content"`
	Summary  string          `json:"summary,omitempty"`
	Context  string          `json:"context,omitempty"`
	MediaRef string          `json:"media_ref,omitempty"`
}

// PriorDepartment is a completed earlier department's result, handed to the
// task as cascading context.
type PriorDepartment struct {
	Department string `json:"department"`
	Rating     int    `json:"rating"`
	Summary    string `json:"summary"`
}

// SubmitRequest is the request body for submitting an evaluation task.
type SubmitRequest struct {
	ProjectID        string            `json:"project_id"`
	DepartmentSlug   string            `json:"department_slug"`
	DepartmentNumber int               `json:"department_number"`
	DepartmentID     string            `json:"department_id"`
	Content          []ContentSnapshot `json:"content"`
	PriorDepartments []PriorDepartment `json:"prior_departments"`
	Threshold        int               `json:"threshold"`
	UserID           string            `json:"user_id,omitempty"`
}

// SubmitResponse is the task service's acknowledgement of a submission.
type SubmitResponse struct {
	TaskID string `json:"task_id"`
	Status string `json:"status"`
}

// StatusResponse is the task service's report for a single task.
type StatusResponse struct {
	TaskID      string  `json:"task_id"`
	Status      string  `json:"status"`
	Progress    float64 `json:"progress,omitempty"`
	CurrentStep string  `json:"current_step,omitempty"`
	Error       string  `json:"error,omitempty"`
}

// Result is the payload of a completed evaluation, identical in shape to the
// webhook's result object.
type Result struct {
	Rating           int      `json:"rating"`
	EvaluationResult string   `json:"evaluation_result"`
	EvaluationSummary string  `json:"evaluation_summary"`
	Issues           []string `json:"issues,omitempty"`
	Suggestions      []string `json:"suggestions,omitempty"`
	ProcessingTime   float64  `json:"processing_time,omitempty"`
	IterationCount   int      `json:"iteration_count,omitempty"`
	Metadata         struct {
		Model string `json:"model,omitempty"`
	} `json:"metadata,omitempty"`
}

// StatusDetailResponse extends StatusResponse with the terminal result when
// the task has completed.
type StatusDetailResponse struct {
	StatusResponse
	Result *Result `json:"result,omitempty"`
}

// Submit enqueues an evaluation task and returns its external identifier.
func (c *Client) Submit(ctx context.Context, req SubmitRequest) (SubmitResponse, error) {
	var resp SubmitResponse
	if err := c.post(ctx, "/api/v1/tasks", req, &resp); err != nil {
		return SubmitResponse{}, err
	}
	if resp.TaskID == "" {
		return SubmitResponse{}, fmt.Errorf("task service returned empty task id")
	}
	return resp, nil
}

// Status fetches the current status of a task, including the result payload
// once the task is terminal.
func (c *Client) Status(ctx context.Context, taskID string) (StatusDetailResponse, error) {
	url := fmt.Sprintf("%s/api/v1/tasks/%s", c.baseURL, taskID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return StatusDetailResponse{}, fmt.Errorf("failed to create status request: %w", err)
	}
	c.setHeaders(httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return StatusDetailResponse{}, fmt.Errorf("status request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return StatusDetailResponse{}, fmt.Errorf("task service returned %d: %s", resp.StatusCode, string(body))
	}

	var statusResp StatusDetailResponse
	if err := json.NewDecoder(resp.Body).Decode(&statusResp); err != nil {
		return StatusDetailResponse{}, fmt.Errorf("failed to decode status response: %w", err)
	}

	return statusResp, nil
}

// Cancel asks the task service to cancel a running task. Best-effort: a 404
// for an already-finished task is not an error.
func (c *Client) Cancel(ctx context.Context, taskID string) error {
	url := fmt.Sprintf("%s/api/v1/tasks/%s/cancel", c.baseURL, taskID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create cancel request: %w", err)
	}
	c.setHeaders(httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("cancel request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNotFound {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("task service returned %d: %s", resp.StatusCode, string(body))
	}

	return nil
}

func (c *Client) post(ctx context.Context, path string, payload, out interface{}) error {
	bodyBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(bodyBytes))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("task service returned %d: %s", resp.StatusCode, string(body))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}
