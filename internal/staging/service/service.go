// Package service implements content enrichment and duplicate detection for
// staged content items.
package service

import (
	"context"
	"encoding/json"
	"time"

	"greenlight_backend/internal/events"
	"greenlight_backend/internal/staging/repository"
	"greenlight_backend/internal/staging/transport"
	"greenlight_backend/platform/ai/textgen"
	"greenlight_backend/platform/graph"
	"greenlight_backend/platform/logger"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// The enrichment loop is hard-capped: after the third pass the output is
// accepted unconditionally, so a capability that never reports completion
// cannot stall the pipeline.
const maxEnrichmentIterations = 3

// Placeholder output when a best-effort generation call fails.
const (
	summaryPlaceholder = "Summary unavailable"
	contextPlaceholder = "Context unavailable"
)

// Duplicate detection tuning.
const (
	duplicateSearchLimit     = 5
	duplicateMinSimilarity   = 0.8
	duplicateSkipSimilarity  = 0.95
	duplicateMergeSimilarity = 0.9
	duplicateQueryMaxContent = 1000
	stagedContentTypeFilter  = "staged_content"
)

// Duplicate suggestion bands.
const (
	SuggestionSkip   = "skip"
	SuggestionMerge  = "merge"
	SuggestionReview = "review"
)

// TextGenerator is the external text-generation and vision capability.
type TextGenerator interface {
	Enrich(ctx context.Context, content, projectContext string) (textgen.EnrichmentStep, error)
	Summarize(ctx context.Context, content, projectContext string) (string, error)
	ContextParagraph(ctx context.Context, content, projectContext string) (string, error)
	ExtractText(ctx context.Context, mediaRef string) (textgen.Extraction, error)
}

// SimilaritySearcher is the external semantic-search capability.
type SimilaritySearcher interface {
	Search(ctx context.Context, req graph.SearchRequest) ([]graph.SearchResult, error)
}

// DuplicateMatch is a transient near-duplicate candidate with its suggestion
// band.
type DuplicateMatch struct {
	ID         string
	Similarity float64
	Suggestion string
	Content    string
}

// ProcessInput is the raw material handed to the enrichment pipeline.
type ProcessInput struct {
	ProjectID uuid.UUID
	Content   json.RawMessage
	MediaRef  string
}

// ProcessResult is the enriched, deduplicated output. Processing itself has
// no storage side effects; Stage persists the result.
type ProcessResult struct {
	EnrichedContent string
	Summary         string
	Context         string
	ExtractedText   string
	IterationCount  int
	Duplicates      []DuplicateMatch
}

// Service runs the enrichment pipeline and persists staged items.
type Service struct {
	repo   repository.Repository
	ai     TextGenerator
	search SimilaritySearcher
	bus    events.Bus
	log    *logger.Logger
}

// New creates the staging service. search may be nil when the graph service
// is not configured; duplicate detection is then skipped.
func New(repo repository.Repository, ai TextGenerator, search SimilaritySearcher, bus events.Bus, log *logger.Logger) *Service {
	return &Service{repo: repo, ai: ai, search: search, bus: bus, log: log}
}

// Process enriches raw content: vision extraction, the bounded enrichment
// loop, summary and context generation, then duplicate detection. Every
// external failure degrades; Process never fails outright.
func (s *Service) Process(ctx context.Context, input ProcessInput) ProcessResult {
	result := ProcessResult{}

	if input.MediaRef != "" {
		extraction, err := s.ai.ExtractText(ctx, input.MediaRef)
		if err != nil {
			s.log.ExternalCallDegraded("vision_extraction", err)
		} else {
			result.ExtractedText = extraction.Text
		}
	}

	projectContext := input.ProjectID.String()
	enriched := string(input.Content)

	for i := 0; i < maxEnrichmentIterations; i++ {
		step, err := s.ai.Enrich(ctx, enriched, projectContext)
		if err != nil {
			s.log.ExternalCallDegraded("enrichment", err)
			break
		}
		result.IterationCount++
		enriched = step.EnhancedContent
		if step.IsComplete {
			break
		}
	}
	result.EnrichedContent = enriched

	// Summary and context are independent best-effort calls.
	var summary, contextParagraph string
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		text, err := s.ai.Summarize(gctx, enriched, projectContext)
		if err != nil {
			s.log.ExternalCallDegraded("summary", err)
			text = summaryPlaceholder
		}
		summary = text
		return nil
	})
	g.Go(func() error {
		text, err := s.ai.ContextParagraph(gctx, enriched, projectContext)
		if err != nil {
			s.log.ExternalCallDegraded("context", err)
			text = contextPlaceholder
		}
		contextParagraph = text
		return nil
	})
	_ = g.Wait()
	result.Summary = summary
	result.Context = contextParagraph

	result.Duplicates = s.findDuplicates(ctx, input.ProjectID, summary, enriched)

	return result
}

// Stage runs Process and persists the enriched item, creating a new record
// or mutating an existing one in place.
func (s *Service) Stage(ctx context.Context, req transport.StageContentRequest, projectID uuid.UUID) (transport.StagedContentResponse, error) {
	processed := s.Process(ctx, ProcessInput{
		ProjectID: projectID,
		Content:   req.Content,
		MediaRef:  req.MediaRef,
	})

	item := repository.StagedContentItem{
		ProjectID:      projectID,
		Content:        req.Content,
		MediaRef:       req.MediaRef,
		Summary:        processed.Summary,
		Context:        processed.Context,
		ExtractedText:  processed.ExtractedText,
		IterationCount: processed.IterationCount,
		CreatedBy:      req.CreatedBy,
	}
	if len(processed.Duplicates) > 0 {
		top := processed.Duplicates[0].Similarity
		item.DuplicateScore = &top
	}

	var saved repository.StagedContentItem
	var err error
	if req.ItemID != nil {
		item.ID = *req.ItemID
		saved, err = s.repo.Update(ctx, item)
	} else {
		saved, err = s.repo.Create(ctx, item)
	}
	if err != nil {
		return transport.StagedContentResponse{}, err
	}

	if s.bus != nil {
		s.bus.Publish(ctx, events.ContentStaged{
			BaseEvent:      events.NewBaseEvent(),
			ProjectID:      projectID,
			ItemID:         saved.ID,
			DuplicateCount: len(processed.Duplicates),
		})
	}

	return toResponse(saved, processed), nil
}

// ListByProject returns all staged items for a project.
func (s *Service) ListByProject(ctx context.Context, projectID uuid.UUID) (transport.StagedContentListResponse, error) {
	items, err := s.repo.ListByProject(ctx, projectID)
	if err != nil {
		return transport.StagedContentListResponse{}, err
	}

	out := transport.StagedContentListResponse{
		Items: make([]transport.StagedContentResponse, 0, len(items)),
		Total: len(items),
	}
	for _, item := range items {
		out.Items = append(out.Items, toResponse(item, ProcessResult{
			EnrichedContent: string(item.Content),
			Summary:         item.Summary,
			Context:         item.Context,
			ExtractedText:   item.ExtractedText,
			IterationCount:  item.IterationCount,
		}))
	}
	return out, nil
}

// findDuplicates queries the semantic-search service for near-duplicates of
// the enriched content. Advisory only: any failure yields an empty list.
func (s *Service) findDuplicates(ctx context.Context, projectID uuid.UUID, summary, enriched string) []DuplicateMatch {
	if s.search == nil {
		return nil
	}

	query := summary + " " + truncate(enriched, duplicateQueryMaxContent)
	results, err := s.search.Search(ctx, graph.SearchRequest{
		Query:         query,
		ProjectID:     projectID.String(),
		TypeFilter:    stagedContentTypeFilter,
		Limit:         duplicateSearchLimit,
		MinSimilarity: duplicateMinSimilarity,
	})
	if err != nil {
		s.log.ExternalCallDegraded("duplicate_search", err)
		return nil
	}

	matches := make([]DuplicateMatch, 0, len(results))
	for _, r := range results {
		if r.Similarity < duplicateMinSimilarity {
			continue
		}
		matches = append(matches, DuplicateMatch{
			ID:         r.ID,
			Similarity: r.Similarity,
			Suggestion: suggestionFor(r.Similarity),
			Content:    r.Content,
		})
	}
	return matches
}

// suggestionFor bands a similarity score into a duplicate suggestion.
func suggestionFor(similarity float64) string {
	switch {
	case similarity > duplicateSkipSimilarity:
		return SuggestionSkip
	case similarity > duplicateMergeSimilarity:
		return SuggestionMerge
	default:
		return SuggestionReview
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

func toResponse(item repository.StagedContentItem, processed ProcessResult) transport.StagedContentResponse {
	duplicates := make([]transport.DuplicateMatchResponse, 0, len(processed.Duplicates))
	for _, d := range processed.Duplicates {
		duplicates = append(duplicates, transport.DuplicateMatchResponse{
			ID:         d.ID,
			Similarity: d.Similarity,
			Suggestion: d.Suggestion,
			Content:    d.Content,
		})
	}

	return transport.StagedContentResponse{
		ID:              item.ID,
		ProjectID:       item.ProjectID,
		Content:         item.Content,
		EnrichedContent: processed.EnrichedContent,
		MediaRef:        item.MediaRef,
		Summary:         item.Summary,
		Context:         item.Context,
		ExtractedText:   item.ExtractedText,
		IterationCount:  item.IterationCount,
		DuplicateScore:  item.DuplicateScore,
		Duplicates:      duplicates,
		CreatedBy:       item.CreatedBy,
		CreatedAt:       item.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:       item.UpdatedAt.UTC().Format(time.RFC3339),
	}
}
