// Package mcp exposes FitSmart reference data and the stage-run log as MCP
// tools and resources.
package mcp

import (
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/juanrdzmb/fitsmartv3/internal/ingest/history"
)

// New creates an MCP server with all tools and resources registered. runs
// may be nil, in which case the run-log tools are not offered.
func New(runs RunSource, importer *history.Importer, version string, log *slog.Logger) *server.MCPServer {
	s := server.NewMCPServer("FitSmart", version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithInstructions("FitSmart workout analysis server. List coaching personas, normalize workout history exports into the compact text the analysis engine reads, recover JSON from raw engine output, and inspect recent analysis stage runs."),
	)

	h := &handlers{runs: runs, importer: importer, log: log}

	s.AddTools(
		server.ServerTool{Tool: toolListPersonas, Handler: h.listPersonas},
		server.ServerTool{Tool: toolNormalizeWorkoutCSV, Handler: h.normalizeWorkoutCSV},
		server.ServerTool{Tool: toolExtractJSON, Handler: h.extractJSON},
	)
	if runs != nil {
		s.AddTools(
			server.ServerTool{Tool: toolGetStageRuns, Handler: h.getStageRuns},
			server.ServerTool{Tool: toolGetStageStats, Handler: h.getStageStats},
		)
	}

	s.AddResources(
		server.ServerResource{Resource: resPersonas, Handler: h.personaCatalog},
		server.ServerResource{Resource: resProfileOptions, Handler: h.profileOptions},
	)

	return s
}

// handlers holds dependencies for MCP tool/resource handlers.
type handlers struct {
	runs     RunSource
	importer *history.Importer
	log      *slog.Logger
}

// --- Resource definitions ---

var resPersonas = mcp.NewResource(
	"fitsmart://personas",
	"Persona Catalog",
	mcp.WithResourceDescription("The coaching voices available for an analysis, with their display text and loading line"),
	mcp.WithMIMEType("application/json"),
)

var resProfileOptions = mcp.NewResource(
	"fitsmart://profile_options",
	"Profile Options",
	mcp.WithResourceDescription("Selectable goals, training types and experience levels for the user survey"),
	mcp.WithMIMEType("application/json"),
)
