package gateway

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

// GenAIEngine calls Gemini through the genai SDK.
type GenAIEngine struct {
	models  *genai.Models
	limiter *rate.Limiter
	log     *slog.Logger
}

// NewGenAIEngine creates a Gemini API client. requestsPerSecond bounds the
// burst of outgoing calls; tokens refill at one per second.
func NewGenAIEngine(ctx context.Context, apiKey string, requestsPerSecond int, log *slog.Logger) (*GenAIEngine, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}
	if requestsPerSecond <= 0 {
		requestsPerSecond = 1
	}
	return &GenAIEngine{
		models:  client.Models,
		limiter: rate.NewLimiter(rate.Every(time.Second), requestsPerSecond),
		log:     log,
	}, nil
}

// Generate implements Engine.
func (e *GenAIEngine) Generate(ctx context.Context, req Request) (Response, error) {
	contents, err := buildContents(req.Parts)
	if err != nil {
		return Response{}, err
	}
	if err := e.limiter.Wait(ctx); err != nil {
		return Response{}, fmt.Errorf("waiting for rate limit: %w", err)
	}

	cfg := &genai.GenerateContentConfig{MaxOutputTokens: req.MaxOutputTokens}
	if req.SystemInstruction != "" {
		cfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: req.SystemInstruction}}}
	}
	if req.ResponseFormat == FormatJSON {
		cfg.ResponseMIMEType = "application/json"
	}
	if req.ThinkingBudget > 0 {
		cfg.ThinkingConfig = &genai.ThinkingConfig{ThinkingBudget: genai.Ptr(req.ThinkingBudget)}
	}

	start := time.Now()
	resp, err := e.models.GenerateContent(ctx, req.Model, contents, cfg)
	if err != nil {
		return Response{}, fmt.Errorf("generating content with %s: %w", req.Model, err)
	}
	text := responseText(resp)
	e.log.Debug("genai response", "model", req.Model, "chars", len(text), "elapsed", time.Since(start))
	return Response{Text: text}, nil
}

func buildContents(parts []Part) ([]*genai.Content, error) {
	out := make([]*genai.Part, 0, len(parts))
	for _, p := range parts {
		if !p.IsMedia() {
			out = append(out, &genai.Part{Text: p.Text})
			continue
		}
		data, err := base64.StdEncoding.DecodeString(p.Data)
		if err != nil {
			return nil, fmt.Errorf("decoding %s part: %w", p.MediaType, err)
		}
		out = append(out, &genai.Part{InlineData: &genai.Blob{MIMEType: p.MediaType, Data: data}})
	}
	return []*genai.Content{{Role: genai.RoleUser, Parts: out}}, nil
}

// responseText joins the non-thought text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if p == nil || p.Thought {
			continue
		}
		b.WriteString(p.Text)
	}
	return b.String()
}
