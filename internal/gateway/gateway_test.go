package gateway

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/juanrdzmb/fitsmartv3/internal/decode"
	"github.com/juanrdzmb/fitsmartv3/internal/models"
)

// fakeEngine returns a canned response and records the last request.
type fakeEngine struct {
	text string
	err  error
	last Request
	ctx  context.Context
}

func (f *fakeEngine) Generate(ctx context.Context, req Request) (Response, error) {
	f.last = req
	f.ctx = ctx
	return Response{Text: f.text}, f.err
}

func newTestGateway(e Engine) *Gateway {
	return New(e, Stages{}, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

const preJSON = `{"detectedTrainingType":"Pesas / Gym","detectedGoalGuess":"Fuerza Máxima","confidenceScore":80,"summaryObservation":"Illo, qué rutina","specificQuestion":"¿Cómo duermes?"}`

const deepJSON = `{
  "summary": "Renta mazo",
  "score": 72,
  "detectedExercises": [{"name":"Sentadilla","targetGroup":"Pierna","type":"Compuesto","variantDetected":"Barra alta"}],
  "safetyAssessment": "Ojo con la lumbar",
  "alignmentWithGoal": "Encaja",
  "warmUpRecommendations": [{"name":"Gato-camello","description":"Movilidad","dosage":"2x10"}],
  "modifications": [{"original":"N/A","recommended":"Hip thrust","sets":"3","reps":"8-12","rest":"90s","reason":"Glúteo","youtubeQuery":"hip thrust"}],
  "generalAdvice": ["Duerme ocho horas"]
}`

const videoJSON = `{"exerciseName":"Sentadilla","variant":"Barra baja","repCount":5,"confidence":90,"cameraAngle":"Lateral","setupDetails":[{"label":"Barra","value":"Baja","status":"OK"}],"metrics":{"depth":"Válida"},"feedback":{"type":"optimization","text":"Buen recorrido","positive":["profundidad"],"negative":[],"youtubeQuery":"low bar squat"}}`

func textInput() models.RoutineInput {
	return models.RoutineInput{Kind: models.KindText, Content: "Lunes: sentadilla 5x5"}
}

func testProfile() models.UserProfile {
	return models.UserProfile{
		Goal:         models.GoalStrength,
		TrainingType: models.TrainingWeights,
		Experience:   models.ExperienceIntermediate,
		Age:          30,
		Gender:       "Femenino",
		Injuries:     "rodilla",
		CustomAnswer: "duermo seis horas",
		Persona:      models.PersonaTodor,
	}
}

// TestPreAnalyzeRequest verifies the pre-analysis request shape.
func TestPreAnalyzeRequest(t *testing.T) {
	e := &fakeEngine{text: preJSON}
	g := newTestGateway(e)

	pre, err := g.PreAnalyze(context.Background(), textInput(), models.PersonaSara)
	if err != nil {
		t.Fatalf("PreAnalyze: %v", err)
	}
	if pre.ConfidenceScore != 80 || pre.SpecificQuestion != "¿Cómo duermes?" {
		t.Errorf("pre = %+v", pre)
	}

	req := e.last
	if req.Model != "gemini-3-flash-preview" || req.MaxOutputTokens != 4096 {
		t.Errorf("model = %q, tokens = %d", req.Model, req.MaxOutputTokens)
	}
	if req.ResponseFormat != FormatJSON {
		t.Errorf("response format = %q, want json", req.ResponseFormat)
	}
	if !strings.Contains(req.SystemInstruction, "Sara") || !strings.Contains(req.SystemInstruction, jsonDirective) {
		t.Error("system instruction missing persona voice or json directive")
	}
	if !strings.Contains(req.SystemInstruction, "Es una RUTINA") {
		t.Error("static routine phrasing missing")
	}
	if len(req.Parts) != 1 || req.Parts[0].Text != "CONTENIDO USUARIO:\nLunes: sentadilla 5x5" {
		t.Errorf("parts = %+v", req.Parts)
	}
	if _, ok := e.ctx.Deadline(); !ok {
		t.Error("engine context has no deadline")
	}
}

// TestPreAnalyzeHistoryPhrasing verifies CSV input is framed as history.
func TestPreAnalyzeHistoryPhrasing(t *testing.T) {
	e := &fakeEngine{text: preJSON}
	in := models.RoutineInput{Kind: models.KindCSV, Content: "HISTORIAL DE ENTRENAMIENTO (Últimas sesiones):\n"}
	if _, err := newTestGateway(e).PreAnalyze(context.Background(), in, models.PersonaRaul); err != nil {
		t.Fatalf("PreAnalyze: %v", err)
	}
	if !strings.Contains(e.last.SystemInstruction, "Es un HISTORIAL") {
		t.Error("history phrasing missing")
	}
}

// TestPreAnalyzeMediaParts verifies image input is sent inline plus a hint.
func TestPreAnalyzeMediaParts(t *testing.T) {
	e := &fakeEngine{text: preJSON}
	in := models.RoutineInput{Kind: models.KindImage, Content: "aGVsbG8=", MediaType: "image/png"}
	if _, err := newTestGateway(e).PreAnalyze(context.Background(), in, models.PersonaTodor); err != nil {
		t.Fatalf("PreAnalyze: %v", err)
	}
	parts := e.last.Parts
	if len(parts) != 2 || !parts[0].IsMedia() || parts[0].MediaType != "image/png" || parts[1].Text != visualHint {
		t.Errorf("parts = %+v", parts)
	}
}

// TestAnalyzeDeep verifies the deep request carries the profile and
// thinking budget, and Spanish exercise types are normalized.
func TestAnalyzeDeep(t *testing.T) {
	e := &fakeEngine{text: "```json\n" + deepJSON + "\n```"}
	a, err := newTestGateway(e).AnalyzeDeep(context.Background(), testProfile(), textInput(), nil)
	if err != nil {
		t.Fatalf("AnalyzeDeep: %v", err)
	}
	if a.Score != 72 || a.DetectedExercises[0].Type != models.ExerciseCompound {
		t.Errorf("analysis = %+v", a)
	}
	if len(a.GeneralAdvice) != 1 || a.GeneralAdvice[0] != "Duerme ocho horas" {
		t.Errorf("general advice = %q", a.GeneralAdvice)
	}

	req := e.last
	if req.Model != "gemini-3-pro-preview" || req.ThinkingBudget != 2048 || req.MaxOutputTokens != 8192 {
		t.Errorf("request config = %q/%d/%d", req.Model, req.ThinkingBudget, req.MaxOutputTokens)
	}
	if !strings.Contains(req.SystemInstruction, `objetivo "Fuerza Máxima"`) {
		t.Error("system instruction missing profile goal")
	}
	if len(req.Parts) != 2 || req.Parts[0].Text != "Lunes: sentadilla 5x5" {
		t.Fatalf("parts = %+v", req.Parts)
	}
	if !strings.HasPrefix(req.Parts[1].Text, "DATOS USUARIO:") || !strings.Contains(req.Parts[1].Text, "Lesiones: rodilla") {
		t.Errorf("user data part = %q", req.Parts[1].Text)
	}
}

// TestAnalyzeVideo verifies the video request and result.
func TestAnalyzeVideo(t *testing.T) {
	e := &fakeEngine{text: videoJSON}
	v, err := newTestGateway(e).AnalyzeVideo(context.Background(), "AAAA", "")
	if err != nil {
		t.Fatalf("AnalyzeVideo: %v", err)
	}
	if v.RepCount != 5 || v.Feedback.Type != models.FeedbackOptimization || v.SetupDetails[0].Status != models.SetupOK {
		t.Errorf("video = %+v", v)
	}
	req := e.last
	if req.Model != "gemini-2.0-flash-exp" {
		t.Errorf("model = %q", req.Model)
	}
	if req.Parts[0].MediaType != "video/mp4" || req.Parts[1].Text != videoTask {
		t.Errorf("parts = %+v", req.Parts)
	}
	if strings.Contains(req.SystemInstruction, "PERSONAJE") {
		t.Error("video instruction should not carry a persona")
	}
}

// TestFailureClassification verifies each failure maps to its sentinel.
func TestFailureClassification(t *testing.T) {
	engineErr := errors.New("quota exceeded")
	cases := []struct {
		name string
		text string
		err  error
		want error
	}{
		{"engine error", "", engineErr, engineErr},
		{"empty", "   ", nil, ErrEmptyResponse},
		{"invalid", "Lo siento, no puedo.", nil, decode.ErrInvalidFormat},
		{"missing key", `{"summaryObservation":"x","confidenceScore":50}`, nil, ErrSchemaIncomplete},
		{"blank question", strings.Replace(preJSON, `"¿Cómo duermes?"`, `" "`, 1), nil, ErrSchemaIncomplete},
		{"out of range", strings.Replace(preJSON, `"confidenceScore":80`, `"confidenceScore":150`, 1), nil, ErrSchemaIncomplete},
		{"wrong type", strings.Replace(preJSON, `"confidenceScore":80`, `"confidenceScore":"alto"`, 1), nil, ErrSchemaIncomplete},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			g := newTestGateway(&fakeEngine{text: tc.text, err: tc.err})
			_, err := g.PreAnalyze(context.Background(), textInput(), models.PersonaSara)
			if !errors.Is(err, tc.want) {
				t.Errorf("error = %v, want %v", err, tc.want)
			}
			if err != nil && !strings.HasPrefix(err.Error(), string(StagePre)) {
				t.Errorf("error %q not prefixed with stage", err)
			}
		})
	}
}

// TestDeepValidation verifies deep-analysis schema checks.
func TestDeepValidation(t *testing.T) {
	cases := map[string]string{
		"score range":      strings.Replace(deepJSON, `"score": 72`, `"score": 101`, 1),
		"no recommended":   strings.Replace(deepJSON, `"recommended":"Hip thrust"`, `"recommended":""`, 1),
		"null summary":     strings.Replace(deepJSON, `"summary": "Renta mazo"`, `"summary": null`, 1),
		"unnamed exercise": strings.Replace(deepJSON, `"name":"Sentadilla"`, `"name":""`, 1),
		"no advice":        strings.Replace(deepJSON, `,
  "generalAdvice": ["Duerme ocho horas"]`, "", 1),
		"null advice":      strings.Replace(deepJSON, `["Duerme ocho horas"]`, `null`, 1),
	}
	for name, text := range cases {
		t.Run(name, func(t *testing.T) {
			g := newTestGateway(&fakeEngine{text: text})
			_, err := g.AnalyzeDeep(context.Background(), testProfile(), textInput(), nil)
			if !errors.Is(err, ErrSchemaIncomplete) {
				t.Errorf("error = %v, want ErrSchemaIncomplete", err)
			}
		})
	}
}

// TestPreValidation verifies pre-analysis results missing a guess or the
// confidence are rejected rather than zero-filled.
func TestPreValidation(t *testing.T) {
	for name, text := range map[string]string{
		"no training type": strings.Replace(preJSON, `"detectedTrainingType":"Pesas / Gym",`, "", 1),
		"no goal guess":    strings.Replace(preJSON, `"detectedGoalGuess":"Fuerza Máxima",`, "", 1),
		"no confidence":    strings.Replace(preJSON, `"confidenceScore":80,`, "", 1),
		"only question":    `{"summaryObservation":"Illo","specificQuestion":"¿Cómo duermes?"}`,
	} {
		t.Run(name, func(t *testing.T) {
			g := newTestGateway(&fakeEngine{text: text})
			if _, err := g.PreAnalyze(context.Background(), textInput(), models.PersonaSara); !errors.Is(err, ErrSchemaIncomplete) {
				t.Errorf("error = %v, want ErrSchemaIncomplete", err)
			}
		})
	}
}

// TestVideoValidation verifies unknown feedback types, negative counts and
// missing sections are rejected.
func TestVideoValidation(t *testing.T) {
	for name, text := range map[string]string{
		"feedback type": strings.Replace(videoJSON, `"type":"optimization"`, `"type":"consejo"`, 1),
		"negative reps": strings.Replace(videoJSON, `"repCount":5`, `"repCount":-1`, 1),
		"no variant":    strings.Replace(videoJSON, `"variant":"Barra baja",`, "", 1),
		"no setup":      strings.Replace(videoJSON, `"setupDetails":[{"label":"Barra","value":"Baja","status":"OK"}],`, "", 1),
		"no metrics":    strings.Replace(videoJSON, `"metrics":{"depth":"Válida"},`, "", 1),
	} {
		t.Run(name, func(t *testing.T) {
			g := newTestGateway(&fakeEngine{text: text})
			if _, err := g.AnalyzeVideo(context.Background(), "AAAA", "video/mp4"); !errors.Is(err, ErrSchemaIncomplete) {
				t.Errorf("error = %v, want ErrSchemaIncomplete", err)
			}
		})
	}
}

// TestUnsupportedInput verifies video never reaches the routine stages.
func TestUnsupportedInput(t *testing.T) {
	g := newTestGateway(&fakeEngine{text: preJSON})
	in := models.RoutineInput{Kind: models.KindVideo, Content: "AAAA"}
	if _, err := g.PreAnalyze(context.Background(), in, models.PersonaSara); !errors.Is(err, ErrUnsupportedInput) {
		t.Errorf("error = %v, want ErrUnsupportedInput", err)
	}
	if _, err := g.AnalyzeVideo(context.Background(), "", ""); !errors.Is(err, ErrUnsupportedInput) {
		t.Errorf("empty video error = %v, want ErrUnsupportedInput", err)
	}
}

// TestStageDefaults verifies partial configuration keeps defaults.
func TestStageDefaults(t *testing.T) {
	g := New(&fakeEngine{}, Stages{Pre: StageConfig{Model: "custom", Timeout: time.Second}}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	s := g.Stages()
	if s.Pre.Model != "custom" || s.Pre.Timeout != time.Second || s.Pre.MaxOutputTokens != 4096 {
		t.Errorf("pre = %+v", s.Pre)
	}
	if s.Deep.Timeout != 180*time.Second || s.Deep.ThinkingBudget != 2048 {
		t.Errorf("deep = %+v", s.Deep)
	}
}

// TestBuildContents verifies media parts are decoded to raw bytes.
func TestBuildContents(t *testing.T) {
	contents, err := buildContents([]Part{TextPart("hola"), MediaPart("image/png", "aGVsbG8=")})
	if err != nil {
		t.Fatalf("buildContents: %v", err)
	}
	parts := contents[0].Parts
	if parts[0].Text != "hola" || string(parts[1].InlineData.Data) != "hello" || parts[1].InlineData.MIMEType != "image/png" {
		t.Errorf("parts = %+v", parts)
	}
	if _, err := buildContents([]Part{MediaPart("image/png", "%%")}); err == nil {
		t.Error("expected error for invalid base64")
	}
}

// TestClassify verifies run-log failure classes.
func TestClassify(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{context.DeadlineExceeded, "timeout"},
		{ErrEmptyResponse, "empty_response"},
		{&decode.Error{Raw: "x"}, "invalid_format"},
		{ErrSchemaIncomplete, "schema_incomplete"},
		{errors.New("503"), "engine"},
	}
	for _, tc := range cases {
		if got := Classify(tc.err); got != tc.want {
			t.Errorf("Classify(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}
