// Package service implements the sequential department evaluation workflow:
// gate checks, task submission, result reconciliation, and the aggregate
// project readiness score.
package service

import (
	"context"
	"fmt"

	"greenlight_backend/internal/departments"
	"greenlight_backend/internal/evaluation/domain"
	"greenlight_backend/internal/evaluation/repository"
	"greenlight_backend/internal/events"
	"greenlight_backend/internal/readiness"
	"greenlight_backend/platform/apperr"
	"greenlight_backend/platform/logger"
	"greenlight_backend/platform/taskexec"

	"github.com/google/uuid"
)

// ContentProvider supplies a project's staged content as evaluation input.
type ContentProvider interface {
	ProjectContent(ctx context.Context, projectID uuid.UUID) ([]taskexec.ContentSnapshot, error)
}

// TaskClient is the slice of the task service the evaluation workflow needs.
type TaskClient interface {
	Submit(ctx context.Context, req taskexec.SubmitRequest) (taskexec.SubmitResponse, error)
	Status(ctx context.Context, taskID string) (taskexec.StatusDetailResponse, error)
	Cancel(ctx context.Context, taskID string) error
}

// Service coordinates department evaluations for the readiness pipeline.
type Service struct {
	repo    repository.Repository
	catalog *departments.Catalog
	content ContentProvider
	tasks   TaskClient
	locker  StageLocker
	bus     events.Bus
	log     *logger.Logger
}

// New creates the evaluation service.
func New(repo repository.Repository, catalog *departments.Catalog, content ContentProvider, tasks TaskClient, locker StageLocker, bus events.Bus, log *logger.Logger) *Service {
	return &Service{
		repo:    repo,
		catalog: catalog,
		content: content,
		tasks:   tasks,
		locker:  locker,
		bus:     bus,
		log:     log,
	}
}

// EvaluateDepartment submits a department for quality evaluation. The
// department's predecessor must have completed at or above this department's
// threshold, and only one evaluation per stage may be in flight.
func (s *Service) EvaluateDepartment(ctx context.Context, projectID uuid.UUID, departmentNumber int, userID string) (repository.StageRecord, error) {
	dept, ok := s.catalog.ByNumber(departmentNumber)
	if !ok {
		return repository.StageRecord{}, apperr.NotFound("department not found")
	}

	release, acquired, err := s.locker.Acquire(ctx, projectID, departmentNumber)
	if err != nil {
		return repository.StageRecord{}, apperr.Wrap(apperr.KindUnavailable, "could not acquire evaluation lock", err)
	}
	if !acquired {
		return repository.StageRecord{}, apperr.Conflict(fmt.Sprintf("an evaluation submission for department %q is already being processed", dept.Slug))
	}
	defer release()

	current, err := s.repo.GetByNumber(ctx, projectID, departmentNumber)
	exists := true
	if err != nil {
		if apperr.GetKind(err) != apperr.KindNotFound {
			return repository.StageRecord{}, err
		}
		exists = false
	}
	if exists && !current.Status.CanSubmit() {
		return repository.StageRecord{}, apperr.Conflict(fmt.Sprintf("department %q already has an evaluation in progress", dept.Slug))
	}

	if err := s.checkGate(ctx, projectID, dept); err != nil {
		return repository.StageRecord{}, err
	}

	content, err := s.content.ProjectContent(ctx, projectID)
	if err != nil {
		return repository.StageRecord{}, fmt.Errorf("load project content: %w", err)
	}
	if len(content) == 0 {
		return repository.StageRecord{}, apperr.Validation("project has no staged content to evaluate")
	}

	priors, err := s.priorDepartments(ctx, projectID, departmentNumber)
	if err != nil {
		return repository.StageRecord{}, err
	}

	resp, err := s.tasks.Submit(ctx, taskexec.SubmitRequest{
		ProjectID:        projectID.String(),
		DepartmentSlug:   dept.Slug,
		DepartmentNumber: dept.Number,
		DepartmentID:     dept.ID,
		Content:          content,
		PriorDepartments: priors,
		Threshold:        dept.Threshold,
		UserID:           userID,
	})
	if err != nil {
		// Submission failed before any state changed; the stage record
		// keeps its previous status.
		return repository.StageRecord{}, apperr.Wrap(apperr.KindUnavailable, "task service submission failed", err)
	}

	// A re-evaluation supersedes the previous attempt. Cancelling the old
	// task is best-effort: its updates are ignored anyway once the record
	// points at the new task id.
	if exists && current.TaskID != nil && *current.TaskID != resp.TaskID {
		if cancelErr := s.tasks.Cancel(ctx, *current.TaskID); cancelErr != nil {
			s.log.TaskEvent("cancel_superseded_failed", *current.TaskID, "error", cancelErr.Error())
		}
	}

	rec, err := s.repo.RecordSubmission(ctx, repository.SubmitParams{
		ProjectID:        projectID,
		DepartmentNumber: dept.Number,
		DepartmentSlug:   dept.Slug,
		Threshold:        dept.Threshold,
		TaskID:           resp.TaskID,
	})
	if err != nil {
		return repository.StageRecord{}, err
	}

	s.log.StageTransition(projectID.String(), dept.Slug, string(current.Status), string(rec.Status))
	return rec, nil
}

// CancelEvaluation aborts an in-flight evaluation, marking the stage failed.
func (s *Service) CancelEvaluation(ctx context.Context, projectID uuid.UUID, departmentNumber int) (repository.StageRecord, error) {
	current, err := s.repo.GetByNumber(ctx, projectID, departmentNumber)
	if err != nil {
		return repository.StageRecord{}, err
	}
	if current.Status.IsTerminal() || current.TaskID == nil {
		return repository.StageRecord{}, apperr.Conflict("no evaluation in progress for this department")
	}

	if err := s.tasks.Cancel(ctx, *current.TaskID); err != nil {
		s.log.TaskEvent("cancel_failed", *current.TaskID, "error", err.Error())
	}

	rec, err := s.repo.FailByTaskID(ctx, *current.TaskID, "evaluation cancelled by user")
	if err != nil {
		return repository.StageRecord{}, err
	}

	s.publishFailed(ctx, rec)
	s.log.StageTransition(projectID.String(), rec.DepartmentSlug, string(current.Status), string(rec.Status))
	return rec, nil
}

// ListStages returns the stage record for every catalog department, including
// departments that have never been evaluated, in evaluation order.
func (s *Service) ListStages(ctx context.Context, projectID uuid.UUID) ([]repository.StageRecord, error) {
	records, err := s.repo.ListByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	byNumber := make(map[int]repository.StageRecord, len(records))
	for _, rec := range records {
		byNumber[rec.DepartmentNumber] = rec
	}

	out := make([]repository.StageRecord, 0, s.catalog.Count())
	for _, dept := range s.catalog.All() {
		if rec, ok := byNumber[dept.Number]; ok {
			out = append(out, rec)
			continue
		}
		out = append(out, repository.StageRecord{
			ProjectID:        projectID,
			DepartmentNumber: dept.Number,
			DepartmentSlug:   dept.Slug,
			Status:           domain.StatusPending,
			Threshold:        dept.Threshold,
		})
	}
	return out, nil
}

// ReadinessReport is the live aggregate readiness of a project.
type ReadinessReport struct {
	ProjectID      uuid.UUID
	Score          int
	Consistency    int
	Completeness   int
	Recommendation readiness.Recommendation
	Stages         []repository.StageRecord
}

// Readiness computes the project's aggregate readiness from its completed
// stages. The same computation feeds the denormalized cache columns; this
// path recomputes from the source of truth.
func (s *Service) Readiness(ctx context.Context, projectID uuid.UUID) (ReadinessReport, error) {
	stages, err := s.ListStages(ctx, projectID)
	if err != nil {
		return ReadinessReport{}, err
	}

	agg := aggregate(stages, s.catalog.Count())
	return ReadinessReport{
		ProjectID:      projectID,
		Score:          agg.Score,
		Consistency:    agg.Consistency,
		Completeness:   agg.Completeness,
		Recommendation: readiness.Recommendation(agg.Recommendation),
		Stages:         stages,
	}, nil
}

// checkGate enforces sequential ordering: department N may only be evaluated
// once department N-1 has completed with a rating at or above N's threshold.
// The first department is never blocked.
func (s *Service) checkGate(ctx context.Context, projectID uuid.UUID, dept departments.Department) error {
	if dept.Number <= 1 {
		return nil
	}

	prev, ok := s.catalog.ByNumber(dept.Number - 1)
	if !ok {
		return apperr.Internal(fmt.Sprintf("department catalog has no predecessor for %q", dept.Slug))
	}

	prevRec, err := s.repo.GetByNumber(ctx, projectID, prev.Number)
	if err != nil {
		if apperr.GetKind(err) == apperr.KindNotFound {
			return apperr.Validation(fmt.Sprintf("department %q has not been evaluated yet; it must complete before %q can start", prev.Slug, dept.Slug))
		}
		return err
	}

	if prevRec.Status != domain.StatusCompleted {
		return apperr.Validation(fmt.Sprintf("department %q has not completed its evaluation (status %s); it must complete before %q can start", prev.Slug, prevRec.Status, dept.Slug))
	}
	if prevRec.Rating == nil {
		return apperr.Validation(fmt.Sprintf("department %q completed without a rating; re-evaluate it before starting %q", prev.Slug, dept.Slug))
	}
	if *prevRec.Rating < dept.Threshold {
		return apperr.Validation(fmt.Sprintf("department %q scored %d, below the %d required to start %q", prev.Slug, *prevRec.Rating, dept.Threshold, dept.Slug))
	}
	return nil
}

func (s *Service) priorDepartments(ctx context.Context, projectID uuid.UUID, departmentNumber int) ([]taskexec.PriorDepartment, error) {
	completed, err := s.repo.ListCompletedBelow(ctx, projectID, departmentNumber)
	if err != nil {
		return nil, err
	}

	priors := make([]taskexec.PriorDepartment, 0, len(completed))
	for _, rec := range completed {
		rating := 0
		if rec.Rating != nil {
			rating = *rec.Rating
		}
		priors = append(priors, taskexec.PriorDepartment{
			Department: rec.DepartmentSlug,
			Rating:     rating,
			Summary:    rec.EvaluationSummary,
		})
	}
	return priors, nil
}

type aggregateResult struct {
	Score          int
	Consistency    int
	Completeness   int
	Recommendation string
}

// aggregate folds completed stage ratings into the project-level readiness
// numbers.
func aggregate(stages []repository.StageRecord, totalDepartments int) aggregateResult {
	var scores []readiness.DepartmentScore
	var ratings []float64
	for _, rec := range stages {
		if rec.Status != domain.StatusCompleted || rec.Rating == nil {
			continue
		}
		scores = append(scores, readiness.DepartmentScore{Rating: float64(*rec.Rating)})
		ratings = append(ratings, float64(*rec.Rating))
	}

	score := readiness.ProjectScore(scores)
	return aggregateResult{
		Score:          score,
		Consistency:    readiness.Consistency(ratings),
		Completeness:   readiness.Completeness(len(scores), totalDepartments),
		Recommendation: string(readiness.Recommend(score)),
	}
}

func (s *Service) publishFailed(ctx context.Context, rec repository.StageRecord) {
	s.bus.Publish(ctx, events.StageFailed{
		BaseEvent:        events.NewBaseEvent(),
		ProjectID:        rec.ProjectID,
		DepartmentNumber: rec.DepartmentNumber,
		DepartmentSlug:   rec.DepartmentSlug,
		Error:            rec.Error,
	})
}
