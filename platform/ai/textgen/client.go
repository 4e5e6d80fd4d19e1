// Package textgen provides the text-generation and vision-extraction
// capabilities used by the content pipeline, backed by the Gemini API.
package textgen

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

// Config configures the text generation client.
type Config struct {
	APIKey            string
	TextModel         string
	VisionModel       string
	Timeout           time.Duration
	RequestsPerSecond float64
}

// Client wraps the genai client with per-call timeouts and rate limiting.
// All external AI calls in the pipeline go through here.
type Client struct {
	client      *genai.Client
	textModel   string
	visionModel string
	timeout     time.Duration
	limiter     *rate.Limiter
}

// NewClient creates a new text generation client.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	textModel := cfg.TextModel
	if textModel == "" {
		textModel = "gemini-2.0-flash"
	}
	visionModel := cfg.VisionModel
	if visionModel == "" {
		visionModel = textModel
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 2
	}

	return &Client{
		client:      client,
		textModel:   textModel,
		visionModel: visionModel,
		timeout:     timeout,
		limiter:     rate.NewLimiter(rate.Limit(rps), 1),
	}, nil
}

// EnrichmentStep is one pass of the content enrichment loop.
type EnrichmentStep struct {
	EnhancedContent string `json:"enhancedContent"`
	IsComplete      bool   `json:"isComplete"`
}

// Extraction is the outcome of a vision/OCR pass over a media reference.
type Extraction struct {
	Text       string
	Confidence float64
}

// Enrich asks the model whether the content needs more context and, if so,
// to enhance it. An unparseable response falls back to the raw model text as
// the enhanced content, so the loop can always make forward progress.
func (c *Client) Enrich(ctx context.Context, content, projectContext string) (EnrichmentStep, error) {
	prompt := fmt.Sprintf(`You are preparing preproduction material for the film project %q.
Review the following content. If it needs more context to be useful as evaluation input, enhance it. If it is already complete, return it unchanged.

Content:
%s

Respond with JSON only: {"enhancedContent": "...", "isComplete": true|false}`, projectContext, content)

	raw, err := c.generate(ctx, c.textModel, prompt)
	if err != nil {
		return EnrichmentStep{}, err
	}

	var step EnrichmentStep
	if jsonErr := json.Unmarshal([]byte(extractJSON(raw)), &step); jsonErr != nil || step.EnhancedContent == "" {
		return EnrichmentStep{EnhancedContent: raw, IsComplete: false}, nil
	}
	return step, nil
}

// Summarize produces a short one-line summary, around 100 characters.
func (c *Client) Summarize(ctx context.Context, content, projectContext string) (string, error) {
	prompt := fmt.Sprintf(`Summarize the following preproduction content for the film project %q in roughly 100 characters. Return only the summary text.

%s`, projectContext, content)
	return c.generate(ctx, c.textModel, prompt)
}

// ContextParagraph produces a longer paragraph situating the content within
// the project.
func (c *Client) ContextParagraph(ctx context.Context, content, projectContext string) (string, error) {
	prompt := fmt.Sprintf(`Write one paragraph explaining how the following content fits into the preproduction of the film project %q. Return only the paragraph.

%s`, projectContext, content)
	return c.generate(ctx, c.textModel, prompt)
}

// ExtractText runs a vision extraction over an image or document reference.
func (c *Client) ExtractText(ctx context.Context, mediaRef string) (Extraction, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return Extraction{}, err
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	parts := []*genai.Part{
		genai.NewPartFromText("Extract all readable text from this media. Return only the extracted text, or an empty response if none."),
		genai.NewPartFromURI(mediaRef, mimeTypeForRef(mediaRef)),
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	resp, err := c.client.Models.GenerateContent(callCtx, c.visionModel, contents, nil)
	if err != nil {
		return Extraction{}, fmt.Errorf("vision extraction failed: %w", err)
	}

	text := strings.TrimSpace(resp.Text())
	confidence := 0.9
	if text == "" {
		confidence = 0
	}
	return Extraction{Text: text, Confidence: confidence}, nil
}

func (c *Client) generate(ctx context.Context, model, prompt string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.client.Models.GenerateContent(callCtx, model, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("text generation failed: %w", err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", fmt.Errorf("text generation returned empty response")
	}
	return text, nil
}

// extractJSON strips markdown code fences the model sometimes wraps around
// JSON responses.
func extractJSON(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```json")
		trimmed = strings.TrimPrefix(trimmed, "```")
		if idx := strings.LastIndex(trimmed, "```"); idx >= 0 {
			trimmed = trimmed[:idx]
		}
	}
	return strings.TrimSpace(trimmed)
}

func mimeTypeForRef(ref string) string {
	lower := strings.ToLower(ref)
	switch {
	case strings.HasSuffix(lower, ".pdf"):
		return "application/pdf"
	case strings.HasSuffix(lower, ".png"):
		return "image/png"
	case strings.HasSuffix(lower, ".webp"):
		return "image/webp"
	default:
		return "image/jpeg"
	}
}
