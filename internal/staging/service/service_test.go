package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"greenlight_backend/platform/ai/textgen"
	"greenlight_backend/platform/graph"
	"greenlight_backend/platform/logger"

	"github.com/google/uuid"
)

type fakeTextGen struct {
	enrichCalls    int
	completeAfter  int // report isComplete on this call number; 0 = never
	enrichErr      error
	summarizeErr   error
	contextErr     error
	extractErr     error
	extractedText  string
}

func (f *fakeTextGen) Enrich(_ context.Context, content, _ string) (textgen.EnrichmentStep, error) {
	if f.enrichErr != nil {
		return textgen.EnrichmentStep{}, f.enrichErr
	}
	f.enrichCalls++
	return textgen.EnrichmentStep{
		EnhancedContent: content + "+",
		IsComplete:      f.completeAfter > 0 && f.enrichCalls >= f.completeAfter,
	}, nil
}

func (f *fakeTextGen) Summarize(_ context.Context, _, _ string) (string, error) {
	if f.summarizeErr != nil {
		return "", f.summarizeErr
	}
	return "a short summary", nil
}

func (f *fakeTextGen) ContextParagraph(_ context.Context, _, _ string) (string, error) {
	if f.contextErr != nil {
		return "", f.contextErr
	}
	return "a context paragraph", nil
}

func (f *fakeTextGen) ExtractText(_ context.Context, _ string) (textgen.Extraction, error) {
	if f.extractErr != nil {
		return textgen.Extraction{}, f.extractErr
	}
	return textgen.Extraction{Text: f.extractedText, Confidence: 0.9}, nil
}

type fakeSearcher struct {
	results []graph.SearchResult
	err     error
	lastReq graph.SearchRequest
}

func (f *fakeSearcher) Search(_ context.Context, req graph.SearchRequest) ([]graph.SearchResult, error) {
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	return f.results, nil
}

func newTestService(ai TextGenerator, search SimilaritySearcher) *Service {
	return New(nil, ai, search, nil, logger.New("development"))
}

func TestProcess_EnrichmentLoopCappedAtThree(t *testing.T) {
	ai := &fakeTextGen{completeAfter: 0} // never reports complete
	svc := newTestService(ai, nil)

	result := svc.Process(context.Background(), ProcessInput{
		ProjectID: uuid.New(),
		Content:   json.RawMessage(`{"scene":"opening"}`),
	})

	if ai.enrichCalls != 3 {
		t.Fatalf("expected exactly 3 enrichment calls, got %d", ai.enrichCalls)
	}
	if result.IterationCount != 3 {
		t.Fatalf("expected iteration count 3, got %d", result.IterationCount)
	}
}

func TestProcess_EnrichmentLoopExitsEarlyOnComplete(t *testing.T) {
	ai := &fakeTextGen{completeAfter: 1}
	svc := newTestService(ai, nil)

	result := svc.Process(context.Background(), ProcessInput{
		ProjectID: uuid.New(),
		Content:   json.RawMessage(`{"scene":"opening"}`),
	})

	if ai.enrichCalls != 1 {
		t.Fatalf("expected 1 enrichment call, got %d", ai.enrichCalls)
	}
	if result.IterationCount != 1 {
		t.Fatalf("expected iteration count 1, got %d", result.IterationCount)
	}
}

func TestProcess_EnrichmentFailureKeepsOriginalContent(t *testing.T) {
	ai := &fakeTextGen{enrichErr: errors.New("upstream timeout")}
	svc := newTestService(ai, nil)

	raw := `{"scene":"opening"}`
	result := svc.Process(context.Background(), ProcessInput{
		ProjectID: uuid.New(),
		Content:   json.RawMessage(raw),
	})

	if result.EnrichedContent != raw {
		t.Fatalf("expected original content kept, got %q", result.EnrichedContent)
	}
	if result.IterationCount != 0 {
		t.Fatalf("expected iteration count 0, got %d", result.IterationCount)
	}
}

func TestProcess_SummaryAndContextDegradeToPlaceholders(t *testing.T) {
	ai := &fakeTextGen{
		completeAfter: 1,
		summarizeErr:  errors.New("timeout"),
		contextErr:    errors.New("timeout"),
	}
	svc := newTestService(ai, nil)

	result := svc.Process(context.Background(), ProcessInput{
		ProjectID: uuid.New(),
		Content:   json.RawMessage(`{}`),
	})

	if result.Summary != summaryPlaceholder {
		t.Fatalf("expected summary placeholder, got %q", result.Summary)
	}
	if result.Context != contextPlaceholder {
		t.Fatalf("expected context placeholder, got %q", result.Context)
	}
}

func TestProcess_VisionExtractionDegradesToEmpty(t *testing.T) {
	ai := &fakeTextGen{completeAfter: 1, extractErr: errors.New("unreadable")}
	svc := newTestService(ai, nil)

	result := svc.Process(context.Background(), ProcessInput{
		ProjectID: uuid.New(),
		Content:   json.RawMessage(`{}`),
		MediaRef:  "https://cdn.example/storyboard.png",
	})

	if result.ExtractedText != "" {
		t.Fatalf("expected empty extracted text on failure, got %q", result.ExtractedText)
	}
}

func TestProcess_DuplicateBanding(t *testing.T) {
	search := &fakeSearcher{results: []graph.SearchResult{
		{ID: "a", Similarity: 0.97},
		{ID: "b", Similarity: 0.92},
		{ID: "c", Similarity: 0.81},
		{ID: "d", Similarity: 0.79}, // below threshold, excluded
	}}
	ai := &fakeTextGen{completeAfter: 1}
	svc := newTestService(ai, search)

	result := svc.Process(context.Background(), ProcessInput{
		ProjectID: uuid.New(),
		Content:   json.RawMessage(`{"scene":"opening"}`),
	})

	if len(result.Duplicates) != 3 {
		t.Fatalf("expected 3 duplicates, got %d", len(result.Duplicates))
	}
	expected := map[string]string{"a": SuggestionSkip, "b": SuggestionMerge, "c": SuggestionReview}
	for _, d := range result.Duplicates {
		if expected[d.ID] != d.Suggestion {
			t.Fatalf("duplicate %s: expected suggestion %q, got %q", d.ID, expected[d.ID], d.Suggestion)
		}
	}
}

func TestProcess_DuplicateSearchScopedToProjectAndType(t *testing.T) {
	search := &fakeSearcher{}
	ai := &fakeTextGen{completeAfter: 1}
	svc := newTestService(ai, search)

	projectID := uuid.New()
	svc.Process(context.Background(), ProcessInput{
		ProjectID: projectID,
		Content:   json.RawMessage(`{"scene":"opening"}`),
	})

	if search.lastReq.ProjectID != projectID.String() {
		t.Fatalf("expected search scoped to project %s, got %s", projectID, search.lastReq.ProjectID)
	}
	if search.lastReq.TypeFilter != stagedContentTypeFilter {
		t.Fatalf("expected type filter %q, got %q", stagedContentTypeFilter, search.lastReq.TypeFilter)
	}
	if search.lastReq.Limit != duplicateSearchLimit {
		t.Fatalf("expected limit %d, got %d", duplicateSearchLimit, search.lastReq.Limit)
	}
	if search.lastReq.MinSimilarity != duplicateMinSimilarity {
		t.Fatalf("expected min similarity %v, got %v", duplicateMinSimilarity, search.lastReq.MinSimilarity)
	}
}

func TestProcess_DuplicateSearchFailureYieldsEmptyList(t *testing.T) {
	search := &fakeSearcher{err: errors.New("graph service down")}
	ai := &fakeTextGen{completeAfter: 1}
	svc := newTestService(ai, search)

	result := svc.Process(context.Background(), ProcessInput{
		ProjectID: uuid.New(),
		Content:   json.RawMessage(`{}`),
	})

	if len(result.Duplicates) != 0 {
		t.Fatalf("expected no duplicates on search failure, got %d", len(result.Duplicates))
	}
}

func TestSuggestionBoundaries(t *testing.T) {
	cases := []struct {
		similarity float64
		want       string
	}{
		{0.96, SuggestionSkip},
		{0.95, SuggestionMerge},
		{0.91, SuggestionMerge},
		{0.9, SuggestionReview},
		{0.8, SuggestionReview},
	}
	for _, tc := range cases {
		if got := suggestionFor(tc.similarity); got != tc.want {
			t.Fatalf("suggestionFor(%v) = %q, want %q", tc.similarity, got, tc.want)
		}
	}
}
