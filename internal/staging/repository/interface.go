package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// StagedContentItem is a unit of freeform content awaiting qualification.
// The enrichment pipeline fills summary, context, extracted text, and the
// iteration count in place; the item itself is never deleted by the pipeline.
type StagedContentItem struct {
	ID             uuid.UUID
	ProjectID      uuid.UUID
	Content        json.RawMessage
	MediaRef       string
	Summary        string
	Context        string
	ExtractedText  string
	IterationCount int
	DuplicateScore *float64
	CreatedBy      string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Repository is the persistence boundary for staged content items.
type Repository interface {
	Create(ctx context.Context, item StagedContentItem) (StagedContentItem, error)
	Update(ctx context.Context, item StagedContentItem) (StagedContentItem, error)
	GetByID(ctx context.Context, id uuid.UUID) (StagedContentItem, error)
	ListByProject(ctx context.Context, projectID uuid.UUID) ([]StagedContentItem, error)
}
