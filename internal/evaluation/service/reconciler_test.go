package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"greenlight_backend/internal/evaluation/domain"
	"greenlight_backend/internal/events"
	"greenlight_backend/platform/taskexec"

	"github.com/google/uuid"
)

func inProgressRecord(projectID uuid.UUID, number int, slug, taskID string) func(*fakeRepo) {
	return func(r *fakeRepo) {
		rec := completedRecord(projectID, number, slug, 0, taskID)
		rec.Status = domain.StatusInProgress
		rec.Rating = nil
		r.seed(rec)
	}
}

func completedResult(rating int) *taskexec.Result {
	result := &taskexec.Result{
		Rating:            rating,
		EvaluationResult:  "accepted",
		EvaluationSummary: "well developed",
		Issues:            []string{"pacing drags in act two"},
		Suggestions:       []string{"tighten the midpoint"},
		ProcessingTime:    12.5,
		IterationCount:    2,
	}
	result.Metadata.Model = "gemini-2.5-pro"
	return result
}

func TestApplyCompletedUpdate(t *testing.T) {
	env := newTestEnv(t)
	projectID := uuid.New()
	inProgressRecord(projectID, 1, "script", "task-1")(env.repo)

	err := env.svc.ApplyTaskUpdate(context.Background(), TaskUpdate{
		TaskID: "task-1",
		Status: taskexec.StatusCompleted,
		Result: completedResult(85),
	})
	if err != nil {
		t.Fatalf("apply update: %v", err)
	}

	rec, _ := env.repo.GetByNumber(context.Background(), projectID, 1)
	if rec.Status != domain.StatusCompleted || rec.Rating == nil || *rec.Rating != 85 {
		t.Fatalf("unexpected record after completion: %+v", rec)
	}
	if rec.EvaluationSummary != "well developed" || rec.Model != "gemini-2.5-pro" {
		t.Fatalf("result payload not copied: %+v", rec)
	}
	if len(rec.Issues) != 1 || rec.Issues[0] != "pacing drags in act two" {
		t.Fatalf("issues must be carried verbatim: %v", rec.Issues)
	}

	// The denormalized project score is rewritten on completion.
	if len(env.repo.scoreWrites) != 1 {
		t.Fatalf("expected one score write, got %d", len(env.repo.scoreWrites))
	}
	write := env.repo.scoreWrites[0]
	if write.Score != 85 || write.Recommendation != "ready" {
		t.Fatalf("unexpected score write: %+v", write)
	}

	if len(env.bus.published) != 1 {
		t.Fatalf("expected one event, got %d", len(env.bus.published))
	}
	evt, ok := env.bus.published[0].(events.StageCompleted)
	if !ok {
		t.Fatalf("expected StageCompleted, got %T", env.bus.published[0])
	}
	if evt.Rating != 85 || evt.ProjectScore != 85 || evt.DepartmentSlug != "script" {
		t.Fatalf("unexpected event: %+v", evt)
	}
}

func TestApplyUpdateIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	projectID := uuid.New()
	inProgressRecord(projectID, 1, "script", "task-1")(env.repo)

	upd := TaskUpdate{TaskID: "task-1", Status: taskexec.StatusCompleted, Result: completedResult(85)}
	if err := env.svc.ApplyTaskUpdate(context.Background(), upd); err != nil {
		t.Fatalf("first apply: %v", err)
	}
	// A duplicate delivery, and a contradictory late failure, change nothing.
	if err := env.svc.ApplyTaskUpdate(context.Background(), upd); err != nil {
		t.Fatalf("second apply: %v", err)
	}
	if err := env.svc.ApplyTaskUpdate(context.Background(), TaskUpdate{TaskID: "task-1", Status: taskexec.StatusFailed, Error: "late failure"}); err != nil {
		t.Fatalf("late failure apply: %v", err)
	}

	rec, _ := env.repo.GetByNumber(context.Background(), projectID, 1)
	if rec.Status != domain.StatusCompleted || *rec.Rating != 85 {
		t.Fatalf("terminal record must not change: %+v", rec)
	}
	if env.repo.completeCalls != 1 {
		t.Fatalf("expected exactly one completion, got %d", env.repo.completeCalls)
	}
	if len(env.repo.scoreWrites) != 1 {
		t.Fatalf("expected exactly one score write, got %d", len(env.repo.scoreWrites))
	}
}

func TestApplyUpdateUnknownTask(t *testing.T) {
	env := newTestEnv(t)

	err := env.svc.ApplyTaskUpdate(context.Background(), TaskUpdate{
		TaskID: "task-unknown",
		Status: taskexec.StatusCompleted,
		Result: completedResult(90),
	})
	if err != nil {
		t.Fatalf("unknown task must be absorbed, got %v", err)
	}
	if env.repo.completeCalls != 0 {
		t.Fatal("nothing may be written for an unknown task")
	}
}

func TestApplyFailedUpdate(t *testing.T) {
	env := newTestEnv(t)
	projectID := uuid.New()
	inProgressRecord(projectID, 1, "script", "task-1")(env.repo)

	err := env.svc.ApplyTaskUpdate(context.Background(), TaskUpdate{
		TaskID: "task-1",
		Status: taskexec.StatusFailed,
		Error:  "model quota exhausted",
	})
	if err != nil {
		t.Fatalf("apply failure: %v", err)
	}

	rec, _ := env.repo.GetByNumber(context.Background(), projectID, 1)
	if rec.Status != domain.StatusFailed || rec.Error != "model quota exhausted" {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if len(env.bus.published) != 1 {
		t.Fatalf("expected a stage failed event, got %d", len(env.bus.published))
	}
	if _, ok := env.bus.published[0].(events.StageFailed); !ok {
		t.Fatalf("expected StageFailed, got %T", env.bus.published[0])
	}
}

func TestApplyCompletedWithoutResult(t *testing.T) {
	env := newTestEnv(t)
	projectID := uuid.New()
	inProgressRecord(projectID, 1, "script", "task-1")(env.repo)

	err := env.svc.ApplyTaskUpdate(context.Background(), TaskUpdate{TaskID: "task-1", Status: taskexec.StatusCompleted})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}

	rec, _ := env.repo.GetByNumber(context.Background(), projectID, 1)
	if rec.Status != domain.StatusFailed {
		t.Fatalf("completion without a result must fail the stage, got %s", rec.Status)
	}
}

func TestApplyNonTerminalUpdateIsNoOp(t *testing.T) {
	env := newTestEnv(t)
	projectID := uuid.New()
	inProgressRecord(projectID, 1, "script", "task-1")(env.repo)

	err := env.svc.ApplyTaskUpdate(context.Background(), TaskUpdate{TaskID: "task-1", Status: taskexec.StatusInProgress})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}

	rec, _ := env.repo.GetByNumber(context.Background(), projectID, 1)
	if rec.Status != domain.StatusInProgress {
		t.Fatalf("non-terminal update must not change the record, got %s", rec.Status)
	}
}

func TestPollInProgressAppliesTerminalStatuses(t *testing.T) {
	env := newTestEnv(t)
	projectID := uuid.New()
	inProgressRecord(projectID, 1, "script", "task-1")(env.repo)
	inProgressRecord(projectID, 2, "characters", "task-2")(env.repo)
	inProgressRecord(projectID, 3, "settings", "task-3")(env.repo)

	env.tasks.statuses = map[string]taskexec.StatusDetailResponse{
		"task-1": {
			StatusResponse: taskexec.StatusResponse{TaskID: "task-1", Status: taskexec.StatusCompleted},
			Result:         completedResult(85),
		},
		"task-2": {
			StatusResponse: taskexec.StatusResponse{TaskID: "task-2", Status: taskexec.StatusFailed, Error: "worker crashed"},
		},
		// task-3 still running.
		"task-3": {
			StatusResponse: taskexec.StatusResponse{TaskID: "task-3", Status: taskexec.StatusInProgress},
		},
	}

	if err := env.svc.PollInProgress(context.Background()); err != nil {
		t.Fatalf("poll: %v", err)
	}

	rec1, _ := env.repo.GetByNumber(context.Background(), projectID, 1)
	rec2, _ := env.repo.GetByNumber(context.Background(), projectID, 2)
	rec3, _ := env.repo.GetByNumber(context.Background(), projectID, 3)
	if rec1.Status != domain.StatusCompleted {
		t.Fatalf("task-1 should complete, got %s", rec1.Status)
	}
	if rec2.Status != domain.StatusFailed || rec2.Error != "worker crashed" {
		t.Fatalf("task-2 should fail, got %+v", rec2)
	}
	if rec3.Status != domain.StatusInProgress {
		t.Fatalf("task-3 should stay in progress, got %s", rec3.Status)
	}
}

func TestPollToleratesStatusErrors(t *testing.T) {
	env := newTestEnv(t)
	projectID := uuid.New()
	inProgressRecord(projectID, 1, "script", "task-1")(env.repo)
	env.tasks.statusErrs = map[string]error{"task-1": errors.New("connection refused")}

	if err := env.svc.PollInProgress(context.Background()); err != nil {
		t.Fatalf("an unreachable status must not abort the sweep: %v", err)
	}

	rec, _ := env.repo.GetByNumber(context.Background(), projectID, 1)
	if rec.Status != domain.StatusInProgress {
		t.Fatalf("record must be untouched, got %s", rec.Status)
	}
}

func TestSweepStaleFailsOldInFlightStages(t *testing.T) {
	env := newTestEnv(t)
	projectID := uuid.New()

	stale := completedRecord(projectID, 1, "script", 0, "task-stale")
	stale.Status = domain.StatusInProgress
	stale.Rating = nil
	stale.UpdatedAt = time.Now().Add(-2 * time.Hour)
	env.repo.seed(stale)

	fresh := completedRecord(projectID, 2, "characters", 0, "task-fresh")
	fresh.Status = domain.StatusInProgress
	fresh.Rating = nil
	fresh.UpdatedAt = time.Now()
	env.repo.seed(fresh)

	if err := env.svc.SweepStale(context.Background(), 45*time.Minute); err != nil {
		t.Fatalf("sweep: %v", err)
	}

	rec1, _ := env.repo.GetByNumber(context.Background(), projectID, 1)
	rec2, _ := env.repo.GetByNumber(context.Background(), projectID, 2)
	if rec1.Status != domain.StatusFailed {
		t.Fatalf("stale stage must be failed, got %s", rec1.Status)
	}
	if rec2.Status != domain.StatusInProgress {
		t.Fatalf("fresh stage must survive the sweep, got %s", rec2.Status)
	}
	if len(env.tasks.cancelled) != 1 || env.tasks.cancelled[0] != "task-stale" {
		t.Fatalf("stale task must be cancelled, got %v", env.tasks.cancelled)
	}
}
