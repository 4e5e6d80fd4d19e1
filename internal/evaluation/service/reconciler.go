package service

import (
	"context"
	"time"

	"greenlight_backend/internal/evaluation/repository"
	"greenlight_backend/internal/events"
	"greenlight_backend/platform/apperr"
	"greenlight_backend/platform/taskexec"

	"golang.org/x/sync/errgroup"
)

// pollConcurrency bounds parallel status fetches during a poll sweep.
const pollConcurrency = 5

// TaskUpdate is a terminal (or non-terminal) status report for an external
// task, arriving via webhook or poll. Both channels funnel through
// ApplyTaskUpdate so delivery order and duplication do not matter.
type TaskUpdate struct {
	TaskID string
	Status string
	Result *taskexec.Result
	Error  string
}

// ApplyTaskUpdate reconciles one task status report onto its stage record.
// Unknown task ids and repeat deliveries of terminal statuses are silently
// absorbed: the first terminal update wins, later ones are no-ops.
func (s *Service) ApplyTaskUpdate(ctx context.Context, upd TaskUpdate) error {
	rec, err := s.repo.GetByTaskID(ctx, upd.TaskID)
	if err != nil {
		if apperr.GetKind(err) == apperr.KindNotFound {
			// Stale webhook for a superseded or unknown task.
			s.log.TaskEvent("update_ignored", upd.TaskID, "status", upd.Status)
			return nil
		}
		return err
	}

	if rec.Status.IsTerminal() {
		return nil
	}

	switch upd.Status {
	case taskexec.StatusCompleted:
		return s.applyCompletion(ctx, rec, upd)
	case taskexec.StatusFailed:
		return s.applyFailure(ctx, rec, upd.Error)
	default:
		// pending / in_progress: nothing to reconcile yet.
		return nil
	}
}

// PollInProgress fetches the status of every in-flight task and applies any
// terminal results. It backstops webhook deliveries that never arrived.
func (s *Service) PollInProgress(ctx context.Context) error {
	records, err := s.repo.ListInProgress(ctx)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(pollConcurrency)

	for _, rec := range records {
		if rec.TaskID == nil {
			continue
		}
		taskID := *rec.TaskID
		g.Go(func() error {
			status, err := s.tasks.Status(gctx, taskID)
			if err != nil {
				// A single unreachable status must not abort the sweep.
				s.log.TaskEvent("poll_status_failed", taskID, "error", err.Error())
				return nil
			}
			return s.ApplyTaskUpdate(gctx, TaskUpdate{
				TaskID: taskID,
				Status: status.Status,
				Result: status.Result,
				Error:  status.Error,
			})
		})
	}

	return g.Wait()
}

// SweepStale fails in-flight stages whose task has produced no update within
// staleAfter. The external task is cancelled best-effort.
func (s *Service) SweepStale(ctx context.Context, staleAfter time.Duration) error {
	cutoff := time.Now().Add(-staleAfter)
	records, err := s.repo.ListInProgressOlderThan(ctx, cutoff)
	if err != nil {
		return err
	}

	for _, rec := range records {
		if rec.TaskID == nil {
			continue
		}
		if err := s.tasks.Cancel(ctx, *rec.TaskID); err != nil {
			s.log.TaskEvent("stale_cancel_failed", *rec.TaskID, "error", err.Error())
		}
		if err := s.applyFailure(ctx, rec, "evaluation timed out waiting for the task service"); err != nil {
			return err
		}
		s.log.TaskEvent("stale_failed", *rec.TaskID,
			"project_id", rec.ProjectID.String(),
			"department", rec.DepartmentSlug,
		)
	}
	return nil
}

func (s *Service) applyCompletion(ctx context.Context, rec repository.StageRecord, upd TaskUpdate) error {
	if upd.Result == nil {
		return s.applyFailure(ctx, rec, "task completed without a result payload")
	}

	params := repository.CompleteParams{
		TaskID:            upd.TaskID,
		Rating:            upd.Result.Rating,
		EvaluationResult:  upd.Result.EvaluationResult,
		EvaluationSummary: upd.Result.EvaluationSummary,
		Issues:            upd.Result.Issues,
		Suggestions:       upd.Result.Suggestions,
		Model:             upd.Result.Metadata.Model,
	}
	if upd.Result.ProcessingTime > 0 {
		pt := upd.Result.ProcessingTime
		params.ProcessingTime = &pt
	}
	if upd.Result.IterationCount > 0 {
		ic := upd.Result.IterationCount
		params.IterationCount = &ic
	}

	completed, err := s.repo.CompleteByTaskID(ctx, params)
	if err != nil {
		return err
	}
	s.log.StageTransition(completed.ProjectID.String(), completed.DepartmentSlug, string(rec.Status), string(completed.Status))

	agg, err := s.refreshProjectScore(ctx, completed)
	if err != nil {
		return err
	}

	s.bus.Publish(ctx, events.StageCompleted{
		BaseEvent:        events.NewBaseEvent(),
		ProjectID:        completed.ProjectID,
		DepartmentNumber: completed.DepartmentNumber,
		DepartmentSlug:   completed.DepartmentSlug,
		Rating:           upd.Result.Rating,
		ProjectScore:     agg.Score,
		Recommendation:   agg.Recommendation,
	})
	return nil
}

func (s *Service) applyFailure(ctx context.Context, rec repository.StageRecord, errText string) error {
	if errText == "" {
		errText = "evaluation failed"
	}
	failed, err := s.repo.FailByTaskID(ctx, *rec.TaskID, errText)
	if err != nil {
		return err
	}
	s.log.StageTransition(failed.ProjectID.String(), failed.DepartmentSlug, string(rec.Status), string(failed.Status))
	s.publishFailed(ctx, failed)
	return nil
}

// refreshProjectScore recomputes the aggregate from all stage records and
// rewrites the denormalized cache columns.
func (s *Service) refreshProjectScore(ctx context.Context, completed repository.StageRecord) (aggregateResult, error) {
	stages, err := s.repo.ListByProject(ctx, completed.ProjectID)
	if err != nil {
		return aggregateResult{}, err
	}

	agg := aggregate(stages, s.catalog.Count())
	err = s.repo.UpdateProjectScore(ctx, repository.ProjectScoreParams{
		ProjectID:      completed.ProjectID,
		Score:          agg.Score,
		Consistency:    agg.Consistency,
		Completeness:   agg.Completeness,
		Recommendation: agg.Recommendation,
	})
	if err != nil {
		return aggregateResult{}, err
	}
	return agg, nil
}
