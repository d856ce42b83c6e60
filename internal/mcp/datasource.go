package mcp

import (
	"context"

	"github.com/juanrdzmb/fitsmartv3/internal/models"
	"github.com/juanrdzmb/fitsmartv3/internal/storage"
	"github.com/juanrdzmb/fitsmartv3/internal/storage/local"
)

// RunSource abstracts the stage-run log for MCP tools. *storage.DB (server),
// *local.Log (CLI) and HTTPClient (remote via REST API) satisfy it.
type RunSource interface {
	QueryStageRuns(ctx context.Context, q models.StageRunQuery) ([]models.StageRun, error)
	GetStageStats(ctx context.Context) ([]storage.StageStat, error)
}

// Compile-time checks.
var (
	_ RunSource = (*storage.DB)(nil)
	_ RunSource = (*local.Log)(nil)
)
