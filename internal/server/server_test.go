package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"image/png"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/juanrdzmb/fitsmartv3/internal/flow"
	"github.com/juanrdzmb/fitsmartv3/internal/ingest/history"
	"github.com/juanrdzmb/fitsmartv3/internal/intake"
	"github.com/juanrdzmb/fitsmartv3/internal/models"
	"github.com/juanrdzmb/fitsmartv3/internal/report"
	"github.com/juanrdzmb/fitsmartv3/internal/session"
	"github.com/juanrdzmb/fitsmartv3/internal/storage"
)

const testKey = "test-key"

type stubAnalyzer struct {
	lastInput models.RoutineInput
}

func (a *stubAnalyzer) PreAnalyze(ctx context.Context, in models.RoutineInput, id models.PersonaID) (*models.PreAnalysisResult, error) {
	a.lastInput = in
	return &models.PreAnalysisResult{
		DetectedTrainingType: models.TrainingPowerlifting,
		DetectedGoalGuess:    models.GoalStrength,
		ConfidenceScore:      80,
		SummaryObservation:   "Bloque de fuerza.",
		SpecificQuestion:     "¿Compites?",
	}, nil
}

func (a *stubAnalyzer) AnalyzeDeep(ctx context.Context, p models.UserProfile, in models.RoutineInput, pre *models.PreAnalysisResult) (*models.BiomechanicalAnalysis, error) {
	return &models.BiomechanicalAnalysis{
		Summary:          "Buena base.",
		Score:            72,
		SafetyAssessment: "Sin riesgos graves.",
		Modifications: []models.ExerciseRecommendation{
			{Recommended: "Sentadilla pausa", Sets: "3", Reps: "5", Reason: "Control."},
		},
	}, nil
}

func (a *stubAnalyzer) AnalyzeVideo(ctx context.Context, data, mediaType string) (*models.VideoAnalysisResult, error) {
	return &models.VideoAnalysisResult{ExerciseName: "Sentadilla", RepCount: 3, Confidence: 90}, nil
}

type stubRuns struct {
	runs []models.StageRun
}

func (s *stubRuns) QueryStageRuns(ctx context.Context, q models.StageRunQuery) ([]models.StageRun, error) {
	var out []models.StageRun
	for _, r := range s.runs {
		if q.Stage == "" || r.Stage == q.Stage {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *stubRuns) GetStageStats(ctx context.Context) ([]storage.StageStat, error) {
	return []storage.StageStat{{Stage: "pre_analysis", Total: 1, Succeeded: 1}}, nil
}

type testEnv struct {
	srv      *Server
	sessions *session.Registry
	analyzer *stubAnalyzer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	inputs := intake.New(intake.Limits{})
	analyzer := &stubAnalyzer{}
	reg := session.New(session.Config{}, flow.Deps{Analyzer: analyzer, Inputs: inputs}, log)
	renderer, err := report.NewRenderer(report.Options{Scale: 1})
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}
	srv := New(Deps{
		Sessions: reg,
		History:  history.NewImporter(log),
		Inputs:   inputs,
		Renderer: renderer,
		Runs: &stubRuns{runs: []models.StageRun{
			{ID: 1, SessionID: "s", Stage: "pre_analysis", Status: models.RunSucceeded, StartedAt: time.Now()},
		}},
	}, testKey, log)
	return &testEnv{srv: srv, sessions: reg, analyzer: analyzer}
}

func (e *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", testKey)
	rec := httptest.NewRecorder()
	e.srv.ServeHTTP(rec, req)
	return rec
}

// snapshot decodes a flattened session snapshot.
type snapshot struct {
	SessionID string          `json:"sessionId"`
	Stage     string          `json:"stage"`
	Busy      bool            `json:"busy"`
	Error     string          `json:"error"`
	Data      json.RawMessage `json:"data"`
}

func decodeSnap(t *testing.T, rec *httptest.ResponseRecorder) snapshot {
	t.Helper()
	var s snapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &s); err != nil {
		t.Fatalf("decode snapshot: %v (%s)", err, rec.Body.String())
	}
	return s
}

func (e *testEnv) waitIdle(t *testing.T, id string) {
	t.Helper()
	c, err := e.sessions.Get(id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := c.Wait(ctx); err != nil {
		t.Fatalf("Wait: %v", err)
	}
}

// TestSessionFlow drives a text routine from creation to the report.
func TestSessionFlow(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(t, http.MethodPost, "/api/v1/sessions", "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, want 201", rec.Code)
	}
	id := decodeSnap(t, rec).SessionID
	base := "/api/v1/sessions/" + id

	rec = e.do(t, http.MethodPost, base+"/input", `{"kind":"text","content":"Lunes: sentadilla 5x5"}`)
	if rec.Code != http.StatusOK || decodeSnap(t, rec).Stage != string(flow.NameSelectingPersona) {
		t.Fatalf("input: %d %s", rec.Code, rec.Body.String())
	}

	rec = e.do(t, http.MethodPost, base+"/persona", `{"persona":"raul"}`)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("persona status = %d, want 202 (%s)", rec.Code, rec.Body.String())
	}
	e.waitIdle(t, id)

	rec = e.do(t, http.MethodGet, base+"/profile-draft", "")
	var draft models.UserProfile
	if err := json.Unmarshal(rec.Body.Bytes(), &draft); err != nil {
		t.Fatalf("decode draft: %v", err)
	}
	if draft.Goal != models.GoalStrength || draft.Age != flow.DefaultAge {
		t.Errorf("draft = %+v", draft)
	}

	draft.CustomAnswer = "No compito todavía"
	body, _ := json.Marshal(draft)
	rec = e.do(t, http.MethodPost, base+"/profile", string(body))
	if rec.Code != http.StatusAccepted {
		t.Fatalf("profile status = %d, want 202 (%s)", rec.Code, rec.Body.String())
	}
	e.waitIdle(t, id)

	rec = e.do(t, http.MethodGet, base, "")
	if s := decodeSnap(t, rec); s.Stage != string(flow.NameShowingResults) {
		t.Fatalf("stage = %s, want showing_results", s.Stage)
	}

	rec = e.do(t, http.MethodGet, base+"/report?page=1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("report status = %d (%s)", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("X-Page-Count") != "1" {
		t.Errorf("X-Page-Count = %q, want 1", rec.Header().Get("X-Page-Count"))
	}
	if _, err := png.Decode(rec.Body); err != nil {
		t.Errorf("report is not a PNG: %v", err)
	}
	if rec := e.do(t, http.MethodGet, base+"/report?page=2", ""); rec.Code != http.StatusNotFound {
		t.Errorf("page 2 status = %d, want 404", rec.Code)
	}

	rec = e.do(t, http.MethodPost, base+"/reset?video=1", "")
	if s := decodeSnap(t, rec); s.Stage != string(flow.NameCapturingInput) || !strings.Contains(string(s.Data), `"videoTab":true`) {
		t.Errorf("reset = %+v", s)
	}
}

// TestFlowErrorStatuses verifies controller errors map to status codes.
func TestFlowErrorStatuses(t *testing.T) {
	e := newTestEnv(t)
	id := decodeSnap(t, e.do(t, http.MethodPost, "/api/v1/sessions", "")).SessionID
	base := "/api/v1/sessions/" + id

	if rec := e.do(t, http.MethodPost, base+"/persona", `{"persona":"sara"}`); rec.Code != http.StatusConflict {
		t.Errorf("persona before input = %d, want 409", rec.Code)
	}
	if rec := e.do(t, http.MethodPost, base+"/persona", `{"persona":"nadie"}`); rec.Code != http.StatusBadRequest {
		t.Errorf("unknown persona = %d, want 400", rec.Code)
	}
	if rec := e.do(t, http.MethodGet, base+"/profile-draft", ""); rec.Code != http.StatusConflict {
		t.Errorf("draft in capture = %d, want 409", rec.Code)
	}
	if rec := e.do(t, http.MethodGet, base+"/report", ""); rec.Code != http.StatusConflict {
		t.Errorf("report without results = %d, want 409", rec.Code)
	}

	rec := e.do(t, http.MethodPost, base+"/input", `{"kind":"text","content":"   "}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("empty text = %d, want 400", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), flow.MsgEmptyText) {
		t.Errorf("body = %s, want localized message", rec.Body.String())
	}

	e.do(t, http.MethodPost, base+"/input", `{"kind":"text","content":"rutina"}`)
	e.do(t, http.MethodPost, base+"/persona", `{"persona":"sara"}`)
	e.waitIdle(t, id)
	rec = e.do(t, http.MethodPost, base+"/profile", `{"goal":"x","trainingType":"y","age":30,"customAnswer":"no"}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("short answer = %d, want 422", rec.Code)
	}
}

// TestCSVInputNormalized verifies exports are summarized before analysis
// and unreadable ones are rejected with the localized message.
func TestCSVInputNormalized(t *testing.T) {
	e := newTestEnv(t)
	id := decodeSnap(t, e.do(t, http.MethodPost, "/api/v1/sessions", "")).SessionID
	base := "/api/v1/sessions/" + id

	rec := e.do(t, http.MethodPost, base+"/input", `{"kind":"csv","content":"foo,bar\n1,2\n"}`)
	if rec.Code != http.StatusBadRequest || !strings.Contains(rec.Body.String(), flow.MsgUnreadableFile) {
		t.Errorf("unmappable csv = %d %s", rec.Code, rec.Body.String())
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, _ := mw.CreateFormFile("file", "strong.csv")
	io.WriteString(fw, "Date,Workout Name,Exercise Name,Weight,Reps\n2024-01-10 07:30:00,Morning,Squat,100,5\n")
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, base+"/input", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("X-API-Key", testKey)
	rec = httptest.NewRecorder()
	e.srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("multipart csv = %d %s", rec.Code, rec.Body.String())
	}

	e.do(t, http.MethodPost, base+"/persona", `{"persona":"todor"}`)
	e.waitIdle(t, id)
	if got := e.analyzer.lastInput; got.Kind != models.KindCSV || !strings.Contains(got.Content, "- Squat: 100kg x 5") {
		t.Errorf("engine input = %+v", got)
	}
}

// TestOversizedVideoUpload verifies a clip over the video limit gets the
// video size message rather than the document one.
func TestOversizedVideoUpload(t *testing.T) {
	e := newTestEnv(t)
	id := decodeSnap(t, e.do(t, http.MethodPost, "/api/v1/sessions", "")).SessionID

	clip := make([]byte, 21<<20)
	copy(clip, []byte{0, 0, 0, 0x18, 'f', 't', 'y', 'p', 'i', 's', 'o', 'm', 0, 0, 0x02, 0, 'i', 's', 'o', 'm'})

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, _ := mw.CreateFormFile("file", "lift.mp4")
	fw.Write(clip)
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions/"+id+"/input", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("X-API-Key", testKey)
	rec := httptest.NewRecorder()
	e.srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	var body struct {
		Error string `json:"error"`
	}
	json.Unmarshal(rec.Body.Bytes(), &body)
	if body.Error != flow.MsgVideoLarge {
		t.Errorf("error = %q, want %q", body.Error, flow.MsgVideoLarge)
	}
}

// TestAuthAndNotFound verifies mutating routes need the key and unknown
// sessions are 404.
func TestAuthAndNotFound(t *testing.T) {
	e := newTestEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions", nil)
	rec := httptest.NewRecorder()
	e.srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("create without key = %d, want 401", rec.Code)
	}

	if rec := e.do(t, http.MethodGet, "/api/v1/sessions/not-a-uuid", ""); rec.Code != http.StatusNotFound {
		t.Errorf("unknown session = %d, want 404", rec.Code)
	}

	id := decodeSnap(t, e.do(t, http.MethodPost, "/api/v1/sessions", "")).SessionID
	if rec := e.do(t, http.MethodDelete, "/api/v1/sessions/"+id, ""); rec.Code != http.StatusNoContent {
		t.Errorf("delete = %d, want 204", rec.Code)
	}
	if rec := e.do(t, http.MethodDelete, "/api/v1/sessions/"+id, ""); rec.Code != http.StatusNotFound {
		t.Errorf("second delete = %d, want 404", rec.Code)
	}
}

// TestReferenceEndpoints verifies personas, history preview and the run log.
func TestReferenceEndpoints(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(t, http.MethodGet, "/api/v1/personas", "")
	if !strings.Contains(rec.Body.String(), `"loading":"Sara está juzgando..."`) {
		t.Errorf("personas = %s", rec.Body.String())
	}

	rec = e.do(t, http.MethodPost, "/api/v1/history/preview",
		"Date,Workout Name,Exercise Name,Weight,Reps\n2024-01-10 07:30:00,Morning,Squat,100,5\n")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"source":"strong"`) {
		t.Errorf("preview = %d %s", rec.Code, rec.Body.String())
	}

	rec = e.do(t, http.MethodGet, "/api/v1/runs?stage=deep_analysis", "")
	if strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Errorf("filtered runs = %s, want []", rec.Body.String())
	}
	if rec := e.do(t, http.MethodGet, "/api/v1/runs?limit=x", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("bad limit = %d, want 400", rec.Code)
	}
	rec = e.do(t, http.MethodGet, "/api/v1/runs/stats", "")
	if !strings.Contains(rec.Body.String(), `"succeeded":1`) {
		t.Errorf("stats = %s", rec.Body.String())
	}
}

// TestRunsWithoutLog verifies the run endpoints report a missing log.
func TestRunsWithoutLog(t *testing.T) {
	e := newTestEnv(t)
	e.srv.runs = nil
	if rec := e.do(t, http.MethodGet, "/api/v1/runs", ""); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("runs = %d, want 503", rec.Code)
	}
}

// TestSessionEvents verifies the stream sends the current state and ends
// once results are showing.
func TestSessionEvents(t *testing.T) {
	e := newTestEnv(t)
	c := e.sessions.Create()
	mp4 := []byte{0, 0, 0, 0x18, 'f', 't', 'y', 'p', 'i', 's', 'o', 'm', 0, 0, 0x02, 0, 'i', 's', 'o', 'm'}
	if _, err := c.CaptureInput(context.Background(), models.RoutineInput{
		Kind:      models.KindVideo,
		Content:   base64.StdEncoding.EncodeToString(mp4),
		MediaType: "video/mp4",
	}); err != nil {
		t.Fatalf("CaptureInput: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	c.Wait(ctx)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sessions/"+c.ID()+"/events", nil).WithContext(ctx)
	rec := httptest.NewRecorder()
	e.srv.ServeHTTP(rec, req)

	body := rec.Body.String()
	if rec.Header().Get("Content-Type") != "text/event-stream" {
		t.Errorf("content-type = %q", rec.Header().Get("Content-Type"))
	}
	if !strings.Contains(body, `"stage":"showing_video_results"`) || !strings.Contains(body, "event: complete") {
		t.Errorf("stream = %q", body)
	}
}
