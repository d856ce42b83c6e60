// Package server exposes the analysis flow over HTTP.
package server

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/juanrdzmb/fitsmartv3/internal/ingest/history"
	"github.com/juanrdzmb/fitsmartv3/internal/intake"
	"github.com/juanrdzmb/fitsmartv3/internal/models"
	"github.com/juanrdzmb/fitsmartv3/internal/report"
	"github.com/juanrdzmb/fitsmartv3/internal/session"
	"github.com/juanrdzmb/fitsmartv3/internal/storage"
)

// RunLog is the read side of the stage-run log.
type RunLog interface {
	QueryStageRuns(ctx context.Context, q models.StageRunQuery) ([]models.StageRun, error)
	GetStageStats(ctx context.Context) ([]storage.StageStat, error)
}

// Deps are the collaborators of a Server. Runs and MCP are optional.
type Deps struct {
	Sessions *session.Registry
	History  *history.Importer
	Inputs   *intake.Validator
	Renderer *report.Renderer
	Runs     RunLog
	MCP      http.Handler
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	sessions *session.Registry
	history  *history.Importer
	inputs   *intake.Validator
	renderer *report.Renderer
	runs     RunLog
	mcp      http.Handler
	log      *slog.Logger
	apiKey   string
	router   chi.Router
}

// New creates a new Server with all routes configured.
func New(deps Deps, apiKey string, log *slog.Logger) *Server {
	s := &Server{
		sessions: deps.Sessions,
		history:  deps.History,
		inputs:   deps.Inputs,
		renderer: deps.Renderer,
		runs:     deps.Runs,
		mcp:      deps.MCP,
		log:      log,
		apiKey:   apiKey,
		router:   chi.NewRouter(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.Use(RequestLogging(s.log))
	s.router.Use(CORS)

	// Reference data (no auth)
	s.router.Get("/api/v1/personas", s.handlePersonas)
	s.router.Get("/api/v1/profile-options", s.handleProfileOptions)
	s.router.Post("/api/v1/history/preview", s.handleHistoryPreview)

	// Sessions: reads are open, mutations need the API key
	s.router.Route("/api/v1/sessions", func(r chi.Router) {
		r.Get("/{id}", s.handleGetSession)
		r.Get("/{id}/events", s.handleSessionEvents)
		r.Get("/{id}/profile-draft", s.handleProfileDraft)
		r.Get("/{id}/report", s.handleReport)

		r.Group(func(r chi.Router) {
			r.Use(APIKeyAuth(s.apiKey))
			r.Post("/", s.handleCreateSession)
			r.Delete("/{id}", s.handleDeleteSession)
			r.Post("/{id}/input", s.handleInput)
			r.Post("/{id}/persona", s.handlePersona)
			r.Post("/{id}/profile", s.handleProfile)
			r.Post("/{id}/reset", s.handleReset)
		})
	})

	// Stage-run log
	s.router.Get("/api/v1/runs", s.handleQueryRuns)
	s.router.Get("/api/v1/runs/stats", s.handleRunStats)

	if s.mcp != nil {
		s.router.Handle("/mcp", s.mcp)
	}
}
