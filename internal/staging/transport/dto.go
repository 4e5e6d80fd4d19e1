// Package transport defines the request/response DTOs for the staging module.
package transport

import (
	"encoding/json"

	"github.com/google/uuid"
)

// StageContentRequest is the request body for staging a new content item.
type StageContentRequest struct {
	Content   json.RawMessage `json:"content" validate:"required"`
	MediaRef  string          `json:"mediaRef,omitempty" validate:"omitempty,max=2048"`
	ItemID    *uuid.UUID      `json:"itemId,omitempty"`
	CreatedBy string          `json:"createdBy,omitempty" validate:"omitempty,max=200"`
}

// DuplicateMatchResponse is one near-duplicate candidate for a staged item.
type DuplicateMatchResponse struct {
	ID         string  `json:"id"`
	Similarity float64 `json:"similarity"`
	Suggestion string  `json:"suggestion"`
	Content    string  `json:"content,omitempty"`
}

// StagedContentResponse is the enriched staged item returned to the caller.
type StagedContentResponse struct {
	ID              uuid.UUID                `json:"id"`
	ProjectID       uuid.UUID                `json:"projectId"`
	Content         json.RawMessage          `json:"content"`
	EnrichedContent string                   `json:"enrichedContent"`
	MediaRef        string                   `json:"mediaRef,omitempty"`
	Summary         string                   `json:"summary"`
	Context         string                   `json:"context"`
	ExtractedText   string                   `json:"extractedText,omitempty"`
	IterationCount  int                      `json:"iterationCount"`
	DuplicateScore  *float64                 `json:"duplicateScore,omitempty"`
	Duplicates      []DuplicateMatchResponse `json:"duplicates"`
	CreatedBy       string                   `json:"createdBy,omitempty"`
	CreatedAt       string                   `json:"createdAt"`
	UpdatedAt       string                   `json:"updatedAt"`
}

// StagedContentListResponse wraps a project's staged items.
type StagedContentListResponse struct {
	Items []StagedContentResponse `json:"items"`
	Total int                     `json:"total"`
}
