// Package gateway runs the three analysis stages against a generative
// engine and turns its output into validated results.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/juanrdzmb/fitsmartv3/internal/decode"
	"github.com/juanrdzmb/fitsmartv3/internal/models"
	"github.com/juanrdzmb/fitsmartv3/internal/persona"
)

var (
	// ErrEmptyResponse means the engine returned no text.
	ErrEmptyResponse = errors.New("engine returned an empty response")
	// ErrSchemaIncomplete means the recovered object lacks required fields
	// or has values out of range.
	ErrSchemaIncomplete = errors.New("response schema incomplete")
	// ErrUnsupportedInput means the input kind cannot go to this stage.
	ErrUnsupportedInput = errors.New("input not supported for stage")
)

// Gateway builds stage requests and validates their results.
type Gateway struct {
	engine Engine
	stages Stages
	log    *slog.Logger
	tracer trace.Tracer
}

// New creates a Gateway. Zero stage fields take their defaults.
func New(engine Engine, stages Stages, log *slog.Logger) *Gateway {
	return &Gateway{
		engine: engine,
		stages: stages.withDefaults(),
		log:    log,
		tracer: otel.Tracer("github.com/juanrdzmb/fitsmartv3/internal/gateway"),
	}
}

// Stages returns the effective stage configuration.
func (g *Gateway) Stages() Stages { return g.stages }

// PreAnalyze classifies the input and drafts the key question in the
// persona's voice.
func (g *Gateway) PreAnalyze(ctx context.Context, in models.RoutineInput, id models.PersonaID) (*models.PreAnalysisResult, error) {
	if in.Kind == models.KindVideo {
		return nil, fmt.Errorf("%s: %w: %s", StagePre, ErrUnsupportedInput, in.Kind)
	}
	p, ok := persona.Lookup(id)
	if !ok {
		return nil, fmt.Errorf("%s: unknown persona %q", StagePre, id)
	}
	system, err := render(preTmpl, preData{
		Voice:         p.Voice,
		History:       in.Kind == models.KindCSV,
		TrainingTypes: models.TrainingTypes,
		Goals:         models.Goals,
		Directive:     jsonDirective,
	})
	if err != nil {
		return nil, err
	}
	req := g.request(g.stages.Pre, system, contentParts(in, userContentTag, visualHint))
	return run(ctx, g, StagePre, g.stages.Pre, req, checkPre)
}

// AnalyzeDeep produces the scored critique for a submitted profile. pre may
// be nil.
func (g *Gateway) AnalyzeDeep(ctx context.Context, profile models.UserProfile, in models.RoutineInput, pre *models.PreAnalysisResult) (*models.BiomechanicalAnalysis, error) {
	if in.Kind == models.KindVideo {
		return nil, fmt.Errorf("%s: %w: %s", StageDeep, ErrUnsupportedInput, in.Kind)
	}
	p, ok := persona.Lookup(profile.Persona)
	if !ok {
		return nil, fmt.Errorf("%s: unknown persona %q", StageDeep, profile.Persona)
	}
	system, err := render(deepTmpl, deepData{
		Voice:     p.Voice,
		History:   in.Kind == models.KindCSV,
		Profile:   profile,
		Pre:       pre,
		Directive: jsonDirective,
	})
	if err != nil {
		return nil, err
	}
	userData, err := render(userDataTmpl, profile)
	if err != nil {
		return nil, err
	}
	parts := append(contentParts(in, "", ""), TextPart(userData))
	req := g.request(g.stages.Deep, system, parts)
	return run(ctx, g, StageDeep, g.stages.Deep, req, checkDeep)
}

// AnalyzeVideo judges a lift video. data is base64; an empty mediaType is
// sent as video/mp4.
func (g *Gateway) AnalyzeVideo(ctx context.Context, data, mediaType string) (*models.VideoAnalysisResult, error) {
	if data == "" {
		return nil, fmt.Errorf("%s: %w: empty video", StageVideo, ErrUnsupportedInput)
	}
	if mediaType == "" {
		mediaType = "video/mp4"
	}
	req := g.request(g.stages.Video, videoInstruction, []Part{MediaPart(mediaType, data), TextPart(videoTask)})
	return run(ctx, g, StageVideo, g.stages.Video, req, checkVideo)
}

func (g *Gateway) request(cfg StageConfig, system string, parts []Part) Request {
	return Request{
		Model:             cfg.Model,
		SystemInstruction: system,
		Parts:             parts,
		ResponseFormat:    FormatJSON,
		MaxOutputTokens:   cfg.MaxOutputTokens,
		ThinkingBudget:    cfg.ThinkingBudget,
	}
}

// run performs one engine call and decodes the result into T. check sees the
// decoded value and the set of top-level keys the engine actually sent.
func run[T any](ctx context.Context, g *Gateway, stage Stage, cfg StageConfig, req Request, check func(*T, map[string]json.RawMessage) error) (*T, error) {
	ctx, span := g.tracer.Start(ctx, "gateway."+string(stage), trace.WithAttributes(
		attribute.String("stage", string(stage)),
		attribute.String("model", cfg.Model),
		attribute.Int("parts", len(req.Parts)),
	))
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	start := time.Now()
	out, err := call(ctx, g, req, check)
	elapsed := time.Since(start)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed")
		g.log.Warn("stage failed", "stage", stage, "model", cfg.Model, "elapsed", elapsed, "error", err)
		return nil, fmt.Errorf("%s: %w", stage, err)
	}
	span.SetStatus(codes.Ok, "success")
	g.log.Info("stage complete", "stage", stage, "model", cfg.Model, "elapsed", elapsed)
	return out, nil
}

func call[T any](ctx context.Context, g *Gateway, req Request, check func(*T, map[string]json.RawMessage) error) (*T, error) {
	resp, err := g.engine.Generate(ctx, req)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(resp.Text) == "" {
		return nil, ErrEmptyResponse
	}

	out, err := decode.Into[T](resp.Text, g.log)
	if err != nil {
		if errors.Is(err, decode.ErrInvalidFormat) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrSchemaIncomplete, err)
	}
	keys, err := decode.Into[map[string]json.RawMessage](resp.Text, g.log)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSchemaIncomplete, err)
	}
	if err := check(&out, keys); err != nil {
		return nil, err
	}
	return &out, nil
}

// Classify names the failure class of a stage error for run logs.
func Classify(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, ErrEmptyResponse):
		return "empty_response"
	case errors.Is(err, decode.ErrInvalidFormat):
		return "invalid_format"
	case errors.Is(err, ErrSchemaIncomplete):
		return "schema_incomplete"
	case errors.Is(err, ErrUnsupportedInput):
		return "unsupported_input"
	}
	return "engine"
}
