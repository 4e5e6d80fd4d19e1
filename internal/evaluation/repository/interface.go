package repository

import (
	"context"
	"time"

	"greenlight_backend/internal/evaluation/domain"

	"github.com/google/uuid"
)

// StageRecord is one row per (project, department): the persistent state of
// a department's quality evaluation. At most one active external task id may
// be attached at a time. The project_* columns are a denormalized cache of
// the aggregate readiness score, rewritten on every completion.
type StageRecord struct {
	ID                    uuid.UUID
	ProjectID             uuid.UUID
	DepartmentNumber      int
	DepartmentSlug        string
	Status                domain.Status
	Rating                *int
	Threshold             int
	TaskID                *string
	EvaluationResult      string
	EvaluationSummary     string
	Issues                []string
	Suggestions           []string
	ProcessingTime        *float64
	IterationCount        *int
	Model                 string
	Error                 string
	ProjectScore          *int
	ProjectConsistency    *int
	ProjectCompleteness   *int
	ProjectRecommendation string
	LastEvaluatedAt       *time.Time
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// SubmitParams records a new task submission on a stage record, creating
// the record lazily on first evaluation.
type SubmitParams struct {
	ProjectID        uuid.UUID
	DepartmentNumber int
	DepartmentSlug   string
	Threshold        int
	TaskID           string
}

// CompleteParams copies a terminal completed result onto the stage record
// identified by its task id.
type CompleteParams struct {
	TaskID            string
	Rating            int
	EvaluationResult  string
	EvaluationSummary string
	Issues            []string
	Suggestions       []string
	ProcessingTime    *float64
	IterationCount    *int
	Model             string
}

// ProjectScoreParams is the denormalized aggregate written onto every stage
// record of a project after any completion.
type ProjectScoreParams struct {
	ProjectID      uuid.UUID
	Score          int
	Consistency    int
	Completeness   int
	Recommendation string
}

// Repository is the persistence boundary for department stage records.
type Repository interface {
	GetByNumber(ctx context.Context, projectID uuid.UUID, departmentNumber int) (StageRecord, error)
	GetByTaskID(ctx context.Context, taskID string) (StageRecord, error)
	ListByProject(ctx context.Context, projectID uuid.UUID) ([]StageRecord, error)
	ListCompletedBelow(ctx context.Context, projectID uuid.UUID, departmentNumber int) ([]StageRecord, error)
	ListInProgress(ctx context.Context) ([]StageRecord, error)
	ListInProgressOlderThan(ctx context.Context, cutoff time.Time) ([]StageRecord, error)
	RecordSubmission(ctx context.Context, params SubmitParams) (StageRecord, error)
	CompleteByTaskID(ctx context.Context, params CompleteParams) (StageRecord, error)
	FailByTaskID(ctx context.Context, taskID, errText string) (StageRecord, error)
	UpdateProjectScore(ctx context.Context, params ProjectScoreParams) error
}
