package mcp

import (
	"context"
	"errors"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/juanrdzmb/fitsmartv3/internal/decode"
	"github.com/juanrdzmb/fitsmartv3/internal/gateway"
	"github.com/juanrdzmb/fitsmartv3/internal/ingest/tabular"
	"github.com/juanrdzmb/fitsmartv3/internal/models"
	"github.com/juanrdzmb/fitsmartv3/internal/persona"
)

// --- Tool definitions ---

var toolListPersonas = mcp.NewTool("list_personas",
	mcp.WithDescription("List the coaching personas. Each has an id to pass when starting an analysis, a display name, a role and the line shown while the first pass runs."),
)

var toolNormalizeWorkoutCSV = mcp.NewTool("normalize_workout_csv",
	mcp.WithDescription("Parse a workout history export (Hevy, Strong, Fitbod, Alpha Progression or a generic CSV with date/exercise/weight/reps columns) into sessions grouped by day, newest first, plus the compact text summary the analysis engine receives."),
	mcp.WithString("csv", mcp.Required(), mcp.Description("Full export contents including the header row")),
	mcp.WithBoolean("summary_only", mcp.Description("Return only the text summary. Defaults to false.")),
)

var toolExtractJSON = mcp.NewTool("extract_json",
	mcp.WithDescription("Recover the JSON object from raw generative-model output that may be wrapped in code fences or prose. Reports which recovery step succeeded."),
	mcp.WithString("text", mcp.Required(), mcp.Description("Raw model output")),
)

var toolGetStageRuns = mcp.NewTool("get_stage_runs",
	mcp.WithDescription("List recent analysis stage calls, newest first, with outcome, failure class and duration. Never includes user input or engine output."),
	mcp.WithString("session_id", mcp.Description("Only runs of this session")),
	mcp.WithString("stage", mcp.Description("Only runs of this stage"),
		mcp.Enum(string(gateway.StagePre), string(gateway.StageDeep), string(gateway.StageVideo))),
	mcp.WithString("status", mcp.Description("Only runs with this outcome"),
		mcp.Enum(string(models.RunSucceeded), string(models.RunFailed), string(models.RunDiscarded))),
	mcp.WithNumber("limit", mcp.Description("Maximum rows. Defaults to 50, capped at 500.")),
)

var toolGetStageStats = mcp.NewTool("get_stage_stats",
	mcp.WithDescription("Per-stage totals of succeeded, failed and discarded calls with the average duration in milliseconds."),
)

// --- Tool handlers ---

func (h *handlers) listPersonas(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(persona.All())
}

func (h *handlers) normalizeWorkoutCSV(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	csv, err := req.RequireString("csv")
	if err != nil {
		return mcp.NewToolResultError("csv parameter is required"), nil
	}

	result, err := h.importer.Import(strings.NewReader(csv))
	switch {
	case errors.Is(err, tabular.ErrUnmappable):
		return mcp.NewToolResultError("unrecognized export: no date, exercise, weight and reps columns found"), nil
	case errors.Is(err, tabular.ErrEmpty):
		return mcp.NewToolResultError("export has no workout rows"), nil
	case err != nil:
		h.log.Error("mcp normalize_workout_csv", "error", err)
		return mcp.NewToolResultError("parse failed: " + err.Error()), nil
	}

	if req.GetBool("summary_only", false) {
		return mcp.NewToolResultText(result.Summary), nil
	}
	return jsonResult(result)
}

func (h *handlers) extractJSON(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := req.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError("text parameter is required"), nil
	}

	obj, strategy, err := decode.Extract(text)
	if err != nil {
		return mcp.NewToolResultError("no JSON object could be recovered"), nil
	}
	return jsonResult(map[string]any{
		"strategy": strategy.String(),
		"object":   obj,
	})
}

func (h *handlers) getStageRuns(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	q := models.StageRunQuery{
		SessionID: req.GetString("session_id", ""),
		Stage:     req.GetString("stage", ""),
		Status:    models.RunStatus(req.GetString("status", "")),
		Limit:     req.GetInt("limit", 0),
	}

	runs, err := h.runs.QueryStageRuns(ctx, q)
	if err != nil {
		h.log.Error("mcp get_stage_runs", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	if runs == nil {
		runs = []models.StageRun{}
	}
	return jsonResult(runs)
}

func (h *handlers) getStageStats(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stats, err := h.runs.GetStageStats(ctx)
	if err != nil {
		h.log.Error("mcp get_stage_stats", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	return jsonResult(stats)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	result, err := mcp.NewToolResultJSON(v)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}
