package scheduler

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const TaskPollEvaluations = "evaluation.tasks.poll"

const TaskSweepStaleEvaluations = "evaluation.tasks.sweep_stale"

// PollEvaluationsPayload carries the enqueue time so a worker can log how
// long a poll waited in the queue.
type PollEvaluationsPayload struct {
	EnqueuedAt time.Time `json:"enqueuedAt"`
}

// SweepStaleEvaluationsPayload parameterizes the staleness watchdog.
type SweepStaleEvaluationsPayload struct {
	StaleAfter time.Duration `json:"staleAfter"`
}

func NewPollEvaluationsTask(payload PollEvaluationsPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskPollEvaluations, data), nil
}

func ParsePollEvaluationsPayload(task *asynq.Task) (PollEvaluationsPayload, error) {
	var payload PollEvaluationsPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return PollEvaluationsPayload{}, err
	}
	return payload, nil
}

func NewSweepStaleEvaluationsTask(payload SweepStaleEvaluationsPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskSweepStaleEvaluations, data), nil
}

func ParseSweepStaleEvaluationsPayload(task *asynq.Task) (SweepStaleEvaluationsPayload, error) {
	var payload SweepStaleEvaluationsPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return SweepStaleEvaluationsPayload{}, err
	}
	return payload, nil
}
