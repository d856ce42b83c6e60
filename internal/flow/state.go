package flow

import (
	"encoding/json"
	"unicode/utf8"

	"github.com/juanrdzmb/fitsmartv3/internal/models"
)

// StateName identifies a state variant on the wire.
type StateName string

const (
	NameCapturingInput      StateName = "capturing_input"
	NameSelectingPersona    StateName = "selecting_persona"
	NamePreAnalyzing        StateName = "pre_analyzing"
	NameAnsweringProfile    StateName = "answering_profile"
	NameDeepAnalyzing       StateName = "deep_analyzing"
	NameShowingResults      StateName = "showing_results"
	NameAnalyzingVideo      StateName = "analyzing_video"
	NameShowingVideoResults StateName = "showing_video_results"
)

// State is one stage of a session. Each variant carries exactly the data
// valid at that stage.
type State interface {
	Name() StateName
	input() (models.RoutineInput, bool)
}

// CapturingInput waits for routine or video input. VideoTab hints that the
// client should reopen the video picker.
type CapturingInput struct {
	VideoTab bool `json:"videoTab"`
}

// SelectingPersona holds captured routine input until a voice is chosen.
type SelectingPersona struct {
	Input models.RoutineInput `json:"-"`
}

// PreAnalyzing is waiting on the first-pass classification.
type PreAnalyzing struct {
	Input   models.RoutineInput `json:"-"`
	Persona models.PersonaID    `json:"persona"`
}

// AnsweringProfile waits for the survey. Profile is the last submission
// when a deep analysis failed, nil otherwise.
type AnsweringProfile struct {
	Input   models.RoutineInput       `json:"-"`
	Persona models.PersonaID          `json:"persona"`
	Pre     *models.PreAnalysisResult `json:"preAnalysis"`
	Profile *models.UserProfile       `json:"profile,omitempty"`
}

// DeepAnalyzing is waiting on the full critique.
type DeepAnalyzing struct {
	Input   models.RoutineInput       `json:"-"`
	Persona models.PersonaID          `json:"persona"`
	Pre     *models.PreAnalysisResult `json:"preAnalysis"`
	Profile models.UserProfile        `json:"profile"`
}

// ShowingResults is the terminal state of the routine flow.
type ShowingResults struct {
	Input    models.RoutineInput           `json:"-"`
	Persona  models.PersonaID              `json:"persona"`
	Pre      *models.PreAnalysisResult     `json:"preAnalysis"`
	Profile  models.UserProfile            `json:"profile"`
	Analysis *models.BiomechanicalAnalysis `json:"analysis"`
}

// AnalyzingVideo is waiting on the lift judgement.
type AnalyzingVideo struct {
	Input models.RoutineInput `json:"-"`
}

// ShowingVideoResults is the terminal state of the video flow.
type ShowingVideoResults struct {
	Input  models.RoutineInput         `json:"-"`
	Result *models.VideoAnalysisResult `json:"result"`
}

func (CapturingInput) Name() StateName      { return NameCapturingInput }
func (SelectingPersona) Name() StateName    { return NameSelectingPersona }
func (PreAnalyzing) Name() StateName        { return NamePreAnalyzing }
func (AnsweringProfile) Name() StateName    { return NameAnsweringProfile }
func (DeepAnalyzing) Name() StateName       { return NameDeepAnalyzing }
func (ShowingResults) Name() StateName      { return NameShowingResults }
func (AnalyzingVideo) Name() StateName      { return NameAnalyzingVideo }
func (ShowingVideoResults) Name() StateName { return NameShowingVideoResults }

func (CapturingInput) input() (models.RoutineInput, bool)        { return models.RoutineInput{}, false }
func (s SelectingPersona) input() (models.RoutineInput, bool)    { return s.Input, true }
func (s PreAnalyzing) input() (models.RoutineInput, bool)        { return s.Input, true }
func (s AnsweringProfile) input() (models.RoutineInput, bool)    { return s.Input, true }
func (s DeepAnalyzing) input() (models.RoutineInput, bool)       { return s.Input, true }
func (s ShowingResults) input() (models.RoutineInput, bool)      { return s.Input, true }
func (s AnalyzingVideo) input() (models.RoutineInput, bool)      { return s.Input, true }
func (s ShowingVideoResults) input() (models.RoutineInput, bool) { return s.Input, true }

// InputSummary describes captured input without its payload.
type InputSummary struct {
	Kind      models.InputKind `json:"kind"`
	MediaType string           `json:"mediaType,omitempty"`
	Length    int              `json:"length"`
	Preview   string           `json:"preview,omitempty"`
}

const previewRunes = 280

func summarize(in models.RoutineInput) *InputSummary {
	s := &InputSummary{Kind: in.Kind, MediaType: in.MediaType, Length: len(in.Content)}
	if !in.Kind.Binary() {
		s.Preview = in.Content
		if utf8.RuneCountInString(in.Content) > previewRunes {
			s.Preview = string([]rune(in.Content)[:previewRunes]) + "…"
		}
	}
	return s
}

// Snapshot is a consistent copy of a session's visible state.
type Snapshot struct {
	SessionID string
	State     State
	Busy      bool
	// Error is the localized message of the last failure, if any.
	Error string
	// Loading is the line to show while Busy.
	Loading string
}

// MarshalJSON flattens the snapshot for clients. Input payloads are
// summarized, never echoed.
func (s Snapshot) MarshalJSON() ([]byte, error) {
	out := struct {
		SessionID string        `json:"sessionId,omitempty"`
		Stage     StateName     `json:"stage"`
		Busy      bool          `json:"busy"`
		Error     string        `json:"error,omitempty"`
		Loading   string        `json:"loading,omitempty"`
		Input     *InputSummary `json:"input,omitempty"`
		Data      State         `json:"data"`
	}{
		SessionID: s.SessionID,
		Stage:     s.State.Name(),
		Busy:      s.Busy,
		Error:     s.Error,
		Loading:   s.Loading,
		Data:      s.State,
	}
	if in, ok := s.State.input(); ok {
		out.Input = summarize(in)
	}
	return json.Marshal(out)
}
