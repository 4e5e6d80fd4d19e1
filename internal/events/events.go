// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"greenlight_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
	InMemoryBus = events.InMemoryBus
)

// Re-export platform functions
var (
	NewBaseEvent   = events.NewBaseEvent
	NewInMemoryBus = events.NewInMemoryBus
)

// =============================================================================
// Evaluation Domain Events
// =============================================================================

// StageCompleted is published when a department evaluation reaches the
// completed state, after the project score has been recomputed.
type StageCompleted struct {
	BaseEvent
	ProjectID        uuid.UUID `json:"projectId"`
	DepartmentNumber int       `json:"departmentNumber"`
	DepartmentSlug   string    `json:"departmentSlug"`
	Rating           int       `json:"rating"`
	ProjectScore     int       `json:"projectScore"`
	Recommendation   string    `json:"recommendation"`
}

func (e StageCompleted) EventName() string { return "evaluation.stage.completed" }

// StageFailed is published when a department evaluation terminates in the
// failed state, whether from the task service or the staleness watchdog.
type StageFailed struct {
	BaseEvent
	ProjectID        uuid.UUID `json:"projectId"`
	DepartmentNumber int       `json:"departmentNumber"`
	DepartmentSlug   string    `json:"departmentSlug"`
	Error            string    `json:"error"`
}

func (e StageFailed) EventName() string { return "evaluation.stage.failed" }

// =============================================================================
// Staging Domain Events
// =============================================================================

// ContentStaged is published when a staged content item has been enriched
// and persisted.
type ContentStaged struct {
	BaseEvent
	ProjectID      uuid.UUID `json:"projectId"`
	ItemID         uuid.UUID `json:"itemId"`
	DuplicateCount int       `json:"duplicateCount"`
}

func (e ContentStaged) EventName() string { return "staging.item.staged" }
