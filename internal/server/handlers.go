package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/juanrdzmb/fitsmartv3/internal/flow"
	"github.com/juanrdzmb/fitsmartv3/internal/ingest/tabular"
	"github.com/juanrdzmb/fitsmartv3/internal/models"
	"github.com/juanrdzmb/fitsmartv3/internal/persona"
	"github.com/juanrdzmb/fitsmartv3/internal/storage"
)

// maxBodyBytes bounds request bodies. A 20 MiB video grows by a third
// when base64 encoded.
const maxBodyBytes = 32 << 20

func (s *Server) handlePersonas(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, persona.All())
}

func (s *Server) handleProfileOptions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"goals":             models.Goals,
		"training_types":    models.TrainingTypes,
		"experience_levels": models.ExperienceLevels,
	})
}

func (s *Server) handleHistoryPreview(w http.ResponseWriter, r *http.Request) {
	result, err := s.history.Import(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		if errors.Is(err, tabular.ErrUnmappable) || errors.Is(err, tabular.ErrEmpty) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": flow.InputMessage(err, false)})
			return
		}
		s.log.Error("history preview error", "error", err)
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleQueryRuns(w http.ResponseWriter, r *http.Request) {
	if s.runs == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "run log not configured"})
		return
	}

	q := models.StageRunQuery{
		SessionID: r.URL.Query().Get("session_id"),
		Stage:     r.URL.Query().Get("stage"),
		Status:    models.RunStatus(r.URL.Query().Get("status")),
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid limit"})
			return
		}
		q.Limit = n
	}

	runs, err := s.runs.QueryStageRuns(r.Context(), q)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if runs == nil {
		runs = []models.StageRun{}
	}
	writeJSON(w, http.StatusOK, runs)
}

func (s *Server) handleRunStats(w http.ResponseWriter, r *http.Request) {
	if s.runs == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "run log not configured"})
		return
	}
	stats, err := s.runs.GetStageStats(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if stats == nil {
		stats = []storage.StageStat{}
	}
	writeJSON(w, http.StatusOK, stats)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func mustJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return `{}`
	}
	return string(b)
}
