// Package repository persists department stage records in PostgreSQL.
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"greenlight_backend/internal/evaluation/domain"
	"greenlight_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const stageNotFoundMessage = "department stage record not found"

// Repo implements the Repository interface with PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new stage record repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// Compile-time check that Repo implements Repository.
var _ Repository = (*Repo)(nil)

const stageColumns = `id, project_id, department_number, department_slug, status, rating, threshold, task_id,
	evaluation_result, evaluation_summary, issues, suggestions, processing_time_secs, iteration_count, model, error,
	project_score, project_consistency, project_completeness, project_recommendation, last_evaluated_at, created_at, updated_at`

// GetByNumber retrieves the stage record for one department of a project.
func (r *Repo) GetByNumber(ctx context.Context, projectID uuid.UUID, departmentNumber int) (StageRecord, error) {
	query := `SELECT ` + stageColumns + ` FROM department_stages WHERE project_id = $1 AND department_number = $2`

	rec, err := scanStage(r.pool.QueryRow(ctx, query, projectID, departmentNumber))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return StageRecord{}, apperr.NotFound(stageNotFoundMessage)
		}
		return StageRecord{}, fmt.Errorf("get stage by number: %w", err)
	}
	return rec, nil
}

// GetByTaskID resolves a stage record by its external task id. The task id
// is the only identifier webhook deliveries carry.
func (r *Repo) GetByTaskID(ctx context.Context, taskID string) (StageRecord, error) {
	query := `SELECT ` + stageColumns + ` FROM department_stages WHERE task_id = $1`

	rec, err := scanStage(r.pool.QueryRow(ctx, query, taskID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return StageRecord{}, apperr.NotFound(stageNotFoundMessage)
		}
		return StageRecord{}, fmt.Errorf("get stage by task id: %w", err)
	}
	return rec, nil
}

// ListByProject retrieves all stage records for a project in department order.
func (r *Repo) ListByProject(ctx context.Context, projectID uuid.UUID) ([]StageRecord, error) {
	query := `SELECT ` + stageColumns + ` FROM department_stages WHERE project_id = $1 ORDER BY department_number ASC`
	return r.queryStages(ctx, query, projectID)
}

// ListCompletedBelow retrieves completed stages with a lower ordinal, in
// department order. These form the cascading context for a new evaluation.
func (r *Repo) ListCompletedBelow(ctx context.Context, projectID uuid.UUID, departmentNumber int) ([]StageRecord, error) {
	query := `SELECT ` + stageColumns + ` FROM department_stages
		WHERE project_id = $1 AND department_number < $2 AND status = 'completed'
		ORDER BY department_number ASC`
	return r.queryStages(ctx, query, projectID, departmentNumber)
}

// ListInProgress retrieves every record with an in-flight external task.
func (r *Repo) ListInProgress(ctx context.Context) ([]StageRecord, error) {
	query := `SELECT ` + stageColumns + ` FROM department_stages WHERE status = 'in_progress' ORDER BY updated_at ASC`
	return r.queryStages(ctx, query)
}

// ListInProgressOlderThan retrieves in-flight records not touched since the
// cutoff; these are candidates for the staleness watchdog.
func (r *Repo) ListInProgressOlderThan(ctx context.Context, cutoff time.Time) ([]StageRecord, error) {
	query := `SELECT ` + stageColumns + ` FROM department_stages WHERE status = 'in_progress' AND updated_at < $1 ORDER BY updated_at ASC`
	return r.queryStages(ctx, query, cutoff)
}

// RecordSubmission creates the stage record on first evaluation or
// overwrites the previous attempt's task id on re-evaluation, and moves the
// record to in_progress.
func (r *Repo) RecordSubmission(ctx context.Context, params SubmitParams) (StageRecord, error) {
	query := `
		INSERT INTO department_stages (id, project_id, department_number, department_slug, status, threshold, task_id)
		VALUES ($1, $2, $3, $4, 'in_progress', $5, $6)
		ON CONFLICT (project_id, department_number) DO UPDATE
		SET status = 'in_progress', threshold = EXCLUDED.threshold, task_id = EXCLUDED.task_id,
		    error = '', updated_at = now()
		RETURNING ` + stageColumns

	rec, err := scanStage(r.pool.QueryRow(ctx, query,
		uuid.New(), params.ProjectID, params.DepartmentNumber, params.DepartmentSlug, params.Threshold, params.TaskID,
	))
	if err != nil {
		return StageRecord{}, fmt.Errorf("record submission: %w", err)
	}
	return rec, nil
}

// CompleteByTaskID copies a terminal completed result onto the record.
func (r *Repo) CompleteByTaskID(ctx context.Context, params CompleteParams) (StageRecord, error) {
	issues, err := json.Marshal(emptyIfNil(params.Issues))
	if err != nil {
		return StageRecord{}, fmt.Errorf("marshal issues: %w", err)
	}
	suggestions, err := json.Marshal(emptyIfNil(params.Suggestions))
	if err != nil {
		return StageRecord{}, fmt.Errorf("marshal suggestions: %w", err)
	}

	query := `
		UPDATE department_stages
		SET status = 'completed', rating = $2, evaluation_result = $3, evaluation_summary = $4,
		    issues = $5, suggestions = $6, processing_time_secs = $7, iteration_count = $8,
		    model = $9, error = '', last_evaluated_at = now(), updated_at = now()
		WHERE task_id = $1
		RETURNING ` + stageColumns

	rec, err := scanStage(r.pool.QueryRow(ctx, query,
		params.TaskID, params.Rating, params.EvaluationResult, params.EvaluationSummary,
		issues, suggestions, params.ProcessingTime, params.IterationCount, params.Model,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return StageRecord{}, apperr.NotFound(stageNotFoundMessage)
		}
		return StageRecord{}, fmt.Errorf("complete stage: %w", err)
	}
	return rec, nil
}

// FailByTaskID records a terminal failure and its error text.
func (r *Repo) FailByTaskID(ctx context.Context, taskID, errText string) (StageRecord, error) {
	query := `
		UPDATE department_stages
		SET status = 'failed', error = $2, last_evaluated_at = now(), updated_at = now()
		WHERE task_id = $1
		RETURNING ` + stageColumns

	rec, err := scanStage(r.pool.QueryRow(ctx, query, taskID, errText))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return StageRecord{}, apperr.NotFound(stageNotFoundMessage)
		}
		return StageRecord{}, fmt.Errorf("fail stage: %w", err)
	}
	return rec, nil
}

// UpdateProjectScore rewrites the denormalized aggregate onto every stage
// record of the project.
func (r *Repo) UpdateProjectScore(ctx context.Context, params ProjectScoreParams) error {
	query := `
		UPDATE department_stages
		SET project_score = $2, project_consistency = $3, project_completeness = $4,
		    project_recommendation = $5, updated_at = now()
		WHERE project_id = $1`

	if _, err := r.pool.Exec(ctx, query,
		params.ProjectID, params.Score, params.Consistency, params.Completeness, params.Recommendation,
	); err != nil {
		return fmt.Errorf("update project score: %w", err)
	}
	return nil
}

func (r *Repo) queryStages(ctx context.Context, query string, args ...interface{}) ([]StageRecord, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query stages: %w", err)
	}
	defer rows.Close()

	var records []StageRecord
	for rows.Next() {
		rec, err := scanStage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan stage: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func scanStage(row pgx.Row) (StageRecord, error) {
	var rec StageRecord
	var status string
	var issuesRaw, suggestionsRaw []byte

	err := row.Scan(
		&rec.ID, &rec.ProjectID, &rec.DepartmentNumber, &rec.DepartmentSlug, &status, &rec.Rating,
		&rec.Threshold, &rec.TaskID, &rec.EvaluationResult, &rec.EvaluationSummary, &issuesRaw, &suggestionsRaw,
		&rec.ProcessingTime, &rec.IterationCount, &rec.Model, &rec.Error,
		&rec.ProjectScore, &rec.ProjectConsistency, &rec.ProjectCompleteness, &rec.ProjectRecommendation,
		&rec.LastEvaluatedAt, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return StageRecord{}, err
	}

	rec.Status = domain.Status(status)
	if err := json.Unmarshal(issuesRaw, &rec.Issues); err != nil {
		return StageRecord{}, fmt.Errorf("unmarshal issues: %w", err)
	}
	if err := json.Unmarshal(suggestionsRaw, &rec.Suggestions); err != nil {
		return StageRecord{}, fmt.Errorf("unmarshal suggestions: %w", err)
	}
	return rec, nil
}

func emptyIfNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
