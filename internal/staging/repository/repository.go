// Package repository persists staged content items in PostgreSQL.
package repository

import (
	"context"
	"errors"
	"fmt"

	"greenlight_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const stagedItemNotFoundMessage = "staged content item not found"

// Repo implements the Repository interface with PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new staged content repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// Compile-time check that Repo implements Repository.
var _ Repository = (*Repo)(nil)

const stagedItemColumns = `id, project_id, content, media_ref, summary, context, extracted_text, iteration_count, duplicate_score, created_by, created_at, updated_at`

// Create inserts a new staged content item.
func (r *Repo) Create(ctx context.Context, item StagedContentItem) (StagedContentItem, error) {
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}

	query := `
		INSERT INTO staged_content_items (id, project_id, content, media_ref, summary, context, extracted_text, iteration_count, duplicate_score, created_by)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7, $8, $9, $10)
		RETURNING ` + stagedItemColumns

	row := r.pool.QueryRow(ctx, query,
		item.ID, item.ProjectID, item.Content, item.MediaRef, item.Summary, item.Context,
		item.ExtractedText, item.IterationCount, item.DuplicateScore, item.CreatedBy,
	)

	created, err := scanStagedItem(row)
	if err != nil {
		return StagedContentItem{}, fmt.Errorf("create staged content item: %w", err)
	}
	return created, nil
}

// Update mutates an existing item in place with enrichment output.
func (r *Repo) Update(ctx context.Context, item StagedContentItem) (StagedContentItem, error) {
	query := `
		UPDATE staged_content_items
		SET content = $2, media_ref = NULLIF($3, ''), summary = $4, context = $5,
		    extracted_text = $6, iteration_count = $7, duplicate_score = $8, updated_at = now()
		WHERE id = $1
		RETURNING ` + stagedItemColumns

	row := r.pool.QueryRow(ctx, query,
		item.ID, item.Content, item.MediaRef, item.Summary, item.Context,
		item.ExtractedText, item.IterationCount, item.DuplicateScore,
	)

	updated, err := scanStagedItem(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return StagedContentItem{}, apperr.NotFound(stagedItemNotFoundMessage)
		}
		return StagedContentItem{}, fmt.Errorf("update staged content item: %w", err)
	}
	return updated, nil
}

// GetByID retrieves a staged content item by its ID.
func (r *Repo) GetByID(ctx context.Context, id uuid.UUID) (StagedContentItem, error) {
	query := `SELECT ` + stagedItemColumns + ` FROM staged_content_items WHERE id = $1`

	item, err := scanStagedItem(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return StagedContentItem{}, apperr.NotFound(stagedItemNotFoundMessage)
		}
		return StagedContentItem{}, fmt.Errorf("get staged content item: %w", err)
	}
	return item, nil
}

// ListByProject retrieves all staged items for a project, newest first.
func (r *Repo) ListByProject(ctx context.Context, projectID uuid.UUID) ([]StagedContentItem, error) {
	query := `SELECT ` + stagedItemColumns + ` FROM staged_content_items WHERE project_id = $1 ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("list staged content items: %w", err)
	}
	defer rows.Close()

	var items []StagedContentItem
	for rows.Next() {
		item, err := scanStagedItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan staged content item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func scanStagedItem(row pgx.Row) (StagedContentItem, error) {
	var item StagedContentItem
	var mediaRef *string

	err := row.Scan(
		&item.ID, &item.ProjectID, &item.Content, &mediaRef, &item.Summary, &item.Context,
		&item.ExtractedText, &item.IterationCount, &item.DuplicateScore, &item.CreatedBy,
		&item.CreatedAt, &item.UpdatedAt,
	)
	if err != nil {
		return StagedContentItem{}, err
	}

	if mediaRef != nil {
		item.MediaRef = *mediaRef
	}
	return item, nil
}
