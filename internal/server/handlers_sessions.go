package server

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/juanrdzmb/fitsmartv3/internal/flow"
	"github.com/juanrdzmb/fitsmartv3/internal/models"
	"github.com/juanrdzmb/fitsmartv3/internal/persona"
	"github.com/juanrdzmb/fitsmartv3/internal/report"
	"github.com/juanrdzmb/fitsmartv3/internal/session"
)

// session looks up the {id} session, writing 404 when it is gone.
func (s *Server) session(w http.ResponseWriter, r *http.Request) (*flow.Controller, bool) {
	c, err := s.sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "session not found"})
		return nil, false
	}
	return c, true
}

// writeSnapshot answers a transition: 202 when it started a stage call.
func writeSnapshot(w http.ResponseWriter, snap flow.Snapshot) {
	status := http.StatusOK
	if snap.Busy {
		status = http.StatusAccepted
	}
	writeJSON(w, status, snap)
}

// writeFlowError maps controller errors to status codes. The body carries
// the current snapshot so clients can resynchronize.
func writeFlowError(w http.ResponseWriter, snap flow.Snapshot, err error) {
	status := http.StatusInternalServerError
	msg := err.Error()
	switch {
	case errors.Is(err, flow.ErrBusy), errors.Is(err, flow.ErrInvalidTransition):
		status = http.StatusConflict
	case errors.Is(err, flow.ErrProfileInvalid):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, flow.ErrInputRejected):
		status = http.StatusBadRequest
		msg = snap.Error
	}
	writeJSON(w, status, map[string]any{"error": msg, "session": snap})
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	c := s.sessions.Create()
	writeJSON(w, http.StatusCreated, c.Snapshot())
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	c, ok := s.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, c.Snapshot())
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if !s.sessions.Remove(chi.URLParam(r, "id")) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": session.ErrNotFound.Error()})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleInput accepts a JSON RoutineInput or a multipart upload in the
// "file" field. CSV exports are normalized before they reach the flow.
func (s *Server) handleInput(w http.ResponseWriter, r *http.Request) {
	c, ok := s.session(w, r)
	if !ok {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var in models.RoutineInput
	var err error
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		in, err = s.uploadedInput(r)
	} else if err = json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	if err == nil {
		in, _, err = s.history.Normalize(in)
	}
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": flow.InputMessage(err, in.Kind == models.KindVideo)})
		return
	}

	snap, err := c.CaptureInput(r.Context(), in)
	if err != nil {
		writeFlowError(w, snap, err)
		return
	}
	writeSnapshot(w, snap)
}

// uploadedInput reads the "file" part. Spreadsheets and plain text are
// taken as text; everything else is sniffed as media.
func (s *Server) uploadedInput(r *http.Request) (models.RoutineInput, error) {
	f, hdr, err := r.FormFile("file")
	if err != nil {
		return models.RoutineInput{}, err
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return models.RoutineInput{}, err
	}

	declared := hdr.Header.Get("Content-Type")
	switch {
	case strings.EqualFold(filepath.Ext(hdr.Filename), ".csv"), declared == "text/csv":
		return models.RoutineInput{Kind: models.KindCSV, Content: string(data), MediaType: "text/csv"}, nil
	case strings.HasPrefix(declared, "text/plain"):
		return s.inputs.Text(models.KindText, string(data))
	}
	if declared == "application/octet-stream" {
		declared = ""
	}
	return s.inputs.Media(data, declared)
}

func (s *Server) handlePersona(w http.ResponseWriter, r *http.Request) {
	c, ok := s.session(w, r)
	if !ok {
		return
	}
	var req struct {
		Persona string `json:"persona"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	id, err := persona.Parse(req.Persona)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	snap, err := c.SelectPersona(r.Context(), id)
	if err != nil {
		writeFlowError(w, snap, err)
		return
	}
	writeSnapshot(w, snap)
}

func (s *Server) handleProfileDraft(w http.ResponseWriter, r *http.Request) {
	c, ok := s.session(w, r)
	if !ok {
		return
	}
	p, err := c.ProfileDraft()
	if err != nil {
		writeFlowError(w, c.Snapshot(), err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	c, ok := s.session(w, r)
	if !ok {
		return
	}
	var p models.UserProfile
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}

	snap, err := c.SubmitProfile(r.Context(), p)
	if err != nil {
		writeFlowError(w, snap, err)
		return
	}
	writeSnapshot(w, snap)
}

// handleReset returns to capture. ?video=1 preselects the video picker.
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	c, ok := s.session(w, r)
	if !ok {
		return
	}
	if video, _ := strconv.ParseBool(r.URL.Query().Get("video")); video {
		writeJSON(w, http.StatusOK, c.ResetVideo())
		return
	}
	writeJSON(w, http.StatusOK, c.Reset())
}

// handleReport renders one page of the results report as PNG. ?page is
// one-based and defaults to 1; the page count is in X-Page-Count.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	c, ok := s.session(w, r)
	if !ok {
		return
	}
	snap := c.Snapshot()
	res, ok := snap.State.(flow.ShowingResults)
	if !ok || res.Analysis == nil {
		writeJSON(w, http.StatusConflict, map[string]any{"error": "no results to report", "session": snap})
		return
	}

	page := 1
	if v := r.URL.Query().Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid page"})
			return
		}
		page = n
	}

	doc := report.Layout(*res.Analysis, res.Profile)
	if page < 1 || page > doc.PageCount() {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "page out of range"})
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("X-Page-Count", strconv.Itoa(doc.PageCount()))
	if err := s.renderer.PNG(w, doc, page-1); err != nil {
		s.log.Error("report render error", "session", c.ID(), "error", err)
	}
}
