// Package domain holds the evaluation stage state machine.
package domain

// Status is the lifecycle state of a department stage record.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// IsTerminal reports whether the status is a terminal evaluation outcome.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanSubmit reports whether a new evaluation may be submitted from this
// status. Re-evaluating a completed or failed stage is always allowed; only
// an in-flight evaluation blocks a new submission.
func (s Status) CanSubmit() bool {
	return s != StatusInProgress
}

// ParseStatus validates a status string from the task service or storage.
func ParseStatus(raw string) (Status, bool) {
	switch Status(raw) {
	case StatusPending, StatusInProgress, StatusCompleted, StatusFailed:
		return Status(raw), true
	default:
		return "", false
	}
}
