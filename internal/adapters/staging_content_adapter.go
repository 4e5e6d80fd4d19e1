// Package adapters wires bounded contexts together without letting them
// import each other directly.
package adapters

import (
	"context"

	"greenlight_backend/internal/staging/repository"
	"greenlight_backend/platform/taskexec"

	"github.com/google/uuid"
)

// StagingContentAdapter exposes a project's staged content as evaluation
// input. It implements the evaluation service's ContentProvider interface.
type StagingContentAdapter struct {
	repo repository.Repository
}

func NewStagingContentAdapter(repo repository.Repository) *StagingContentAdapter {
	return &StagingContentAdapter{repo: repo}
}

// ProjectContent returns the project's staged items as content snapshots for
// the task service, enriched summary and context included.
func (a *StagingContentAdapter) ProjectContent(ctx context.Context, projectID uuid.UUID) ([]taskexec.ContentSnapshot, error) {
	items, err := a.repo.ListByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	snapshots := make([]taskexec.ContentSnapshot, 0, len(items))
	for _, item := range items {
		snapshots = append(snapshots, taskexec.ContentSnapshot{
			Content:  item.Content,
			Summary:  item.Summary,
			Context:  item.Context,
			MediaRef: item.MediaRef,
		})
	}
	return snapshots, nil
}
