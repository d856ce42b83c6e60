// Package flow drives one analysis session through its stages.
//
// A Controller owns the session state. Every user action is a method that
// validates the current state, applies one transition and, for stages that
// call the engine, starts the call in the background. Results are applied
// only if no reset or new capture happened in between.
package flow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/juanrdzmb/fitsmartv3/internal/gateway"
	"github.com/juanrdzmb/fitsmartv3/internal/models"
	"github.com/juanrdzmb/fitsmartv3/internal/persona"
)

var (
	ErrBusy              = errors.New("a stage call is already in flight")
	ErrInvalidTransition = errors.New("operation not valid in current state")
	ErrProfileInvalid    = errors.New("profile incomplete")
	ErrInputRejected     = errors.New("input rejected")
)

// Analyzer runs the engine-backed stages.
type Analyzer interface {
	PreAnalyze(ctx context.Context, in models.RoutineInput, id models.PersonaID) (*models.PreAnalysisResult, error)
	AnalyzeDeep(ctx context.Context, profile models.UserProfile, in models.RoutineInput, pre *models.PreAnalysisResult) (*models.BiomechanicalAnalysis, error)
	AnalyzeVideo(ctx context.Context, data, mediaType string) (*models.VideoAnalysisResult, error)
}

// InputValidator checks captured input before it enters the flow.
type InputValidator interface {
	Validate(in models.RoutineInput) (models.RoutineInput, error)
}

// Recorder receives one entry per resolved stage call.
type Recorder interface {
	RecordStageRun(ctx context.Context, run models.StageRun) error
}

const recordTimeout = 5 * time.Second

// Deps are the collaborators of a Controller. Inputs and Recorder are
// optional.
type Deps struct {
	Analyzer Analyzer
	Inputs   InputValidator
	Recorder Recorder
}

// Controller is the state machine of one session. It is safe for
// concurrent use.
type Controller struct {
	id   string
	deps Deps
	log  *slog.Logger

	mu    sync.Mutex
	state State
	busy  bool
	err   string
	// gen is bumped by every transition that starts a call and by every
	// reset; a call whose generation no longer matches is stale.
	gen uint64
	// inflight counts engine calls not yet resolved, stale ones included.
	// busy only reflects the current generation. idle is closed while
	// inflight is zero.
	inflight int
	idle     chan struct{}

	subsMu sync.Mutex
	subs   map[chan Snapshot]struct{}

	calls sync.WaitGroup
}

// New creates a Controller in the initial state.
func New(id string, deps Deps, log *slog.Logger) *Controller {
	idle := make(chan struct{})
	close(idle)
	return &Controller{
		id:    id,
		deps:  deps,
		log:   log.With("session", id),
		state: CapturingInput{},
		idle:  idle,
		subs:  make(map[chan Snapshot]struct{}),
	}
}

// ID returns the session identifier.
func (c *Controller) ID() string { return c.id }

// Snapshot returns the current visible state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() Snapshot {
	s := Snapshot{SessionID: c.id, State: c.state, Busy: c.busy, Error: c.err}
	if c.busy {
		s.Loading = loadingLine(c.state)
	}
	return s
}

func loadingLine(s State) string {
	switch st := s.(type) {
	case PreAnalyzing:
		return persona.MustLookup(st.Persona).Loading
	case DeepAnalyzing:
		return loadingDeep
	case AnalyzingVideo:
		return loadingVideo
	}
	return ""
}

// CaptureInput accepts routine or video input. Video goes straight to
// analysis; anything else waits for a persona.
func (c *Controller) CaptureInput(ctx context.Context, in models.RoutineInput) (Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.busy {
		return c.snapshotLocked(), ErrBusy
	}
	if _, ok := c.state.(CapturingInput); !ok {
		return c.snapshotLocked(), fmt.Errorf("%w: capture from %s", ErrInvalidTransition, c.state.Name())
	}

	if c.deps.Inputs != nil {
		checked, err := c.deps.Inputs.Validate(in)
		if err != nil {
			c.err = InputMessage(err, in.Kind == models.KindVideo)
			c.publishLocked()
			return c.snapshotLocked(), fmt.Errorf("%w: %w", ErrInputRejected, err)
		}
		in = checked
	}

	if in.Kind == models.KindVideo && c.inflight > 0 {
		return c.snapshotLocked(), fmt.Errorf("%w: a discarded call is still running", ErrBusy)
	}

	c.err = ""
	if in.Kind == models.KindVideo {
		c.state = AnalyzingVideo{Input: in}
		gen := c.beginLocked()
		c.start(ctx, func(ctx context.Context) { c.runVideo(ctx, gen, in) })
		return c.snapshotLocked(), nil
	}
	c.state = SelectingPersona{Input: in}
	c.publishLocked()
	return c.snapshotLocked(), nil
}

// SelectPersona starts the pre-analysis in the chosen voice.
func (c *Controller) SelectPersona(ctx context.Context, id models.PersonaID) (Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.engineBusyLocked() {
		return c.snapshotLocked(), ErrBusy
	}
	st, ok := c.state.(SelectingPersona)
	if !ok {
		return c.snapshotLocked(), fmt.Errorf("%w: select persona from %s", ErrInvalidTransition, c.state.Name())
	}
	if _, known := persona.Lookup(id); !known {
		return c.snapshotLocked(), fmt.Errorf("%w: unknown persona %q", ErrInvalidTransition, id)
	}

	c.err = ""
	c.state = PreAnalyzing{Input: st.Input, Persona: id}
	gen := c.beginLocked()
	c.start(ctx, func(ctx context.Context) { c.runPre(ctx, gen, st.Input, id) })
	return c.snapshotLocked(), nil
}

// SubmitProfile validates the survey and starts the deep analysis. The
// chosen persona overrides whatever the profile carries.
func (c *Controller) SubmitProfile(ctx context.Context, p models.UserProfile) (Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.engineBusyLocked() {
		return c.snapshotLocked(), ErrBusy
	}
	st, ok := c.state.(AnsweringProfile)
	if !ok {
		return c.snapshotLocked(), fmt.Errorf("%w: submit profile from %s", ErrInvalidTransition, c.state.Name())
	}
	if err := Validate(p); err != nil {
		return c.snapshotLocked(), err
	}

	p.Persona = st.Persona
	c.err = ""
	c.state = DeepAnalyzing{Input: st.Input, Persona: st.Persona, Pre: st.Pre, Profile: p}
	gen := c.beginLocked()
	c.start(ctx, func(ctx context.Context) { c.runDeep(ctx, gen, st, p) })
	return c.snapshotLocked(), nil
}

// ProfileDraft returns the survey to show in AnsweringProfile: the last
// submission after a failed deep analysis, or defaults seeded from the
// pre-analysis.
func (c *Controller) ProfileDraft() (models.UserProfile, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	st, ok := c.state.(AnsweringProfile)
	if !ok {
		return models.UserProfile{}, fmt.Errorf("%w: no survey in %s", ErrInvalidTransition, c.state.Name())
	}
	if st.Profile != nil {
		return *st.Profile, nil
	}
	return Draft(st.Pre, st.Persona), nil
}

// Reset returns to the initial state from anywhere. A pending call keeps
// running but its result will be discarded.
func (c *Controller) Reset() Snapshot {
	return c.reset(false)
}

// ResetVideo is Reset with the video picker preselected.
func (c *Controller) ResetVideo() Snapshot {
	return c.reset(true)
}

func (c *Controller) reset(videoTab bool) Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.state = CapturingInput{VideoTab: videoTab}
	c.err = ""
	c.busy = false
	c.publishLocked()
	return c.snapshotLocked()
}

// Wait blocks until no stage call is pending, including calls a reset
// made stale, or ctx is done.
func (c *Controller) Wait(ctx context.Context) (Snapshot, error) {
	for {
		c.mu.Lock()
		if c.inflight == 0 {
			s := c.snapshotLocked()
			c.mu.Unlock()
			return s, nil
		}
		idle := c.idle
		c.mu.Unlock()

		select {
		case <-idle:
		case <-ctx.Done():
			return c.Snapshot(), ctx.Err()
		}
	}
}

// Drain waits for every started call to return, including discarded ones.
func (c *Controller) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		c.calls.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// beginLocked marks the session busy for a new call and returns its
// generation.
func (c *Controller) beginLocked() uint64 {
	c.gen++
	c.busy = true
	c.publishLocked()
	return c.gen
}

// engineBusyLocked reports whether starting a call now would put a second
// one in flight.
func (c *Controller) engineBusyLocked() bool {
	return c.busy || c.inflight > 0
}

// start runs fn on a context detached from the caller's cancellation. fn
// must end by calling resolve. c.mu must be held.
func (c *Controller) start(ctx context.Context, fn func(context.Context)) {
	detached := context.WithoutCancel(ctx)
	if c.inflight == 0 {
		c.idle = make(chan struct{})
	}
	c.inflight++
	c.calls.Add(1)
	go func() {
		defer c.calls.Done()
		fn(detached)
	}()
}

// resolve applies a finished call if it is still current. It reports
// whether the result was applied.
func (c *Controller) resolve(gen uint64, apply func()) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inflight--
	if c.inflight == 0 {
		close(c.idle)
	}
	if gen != c.gen {
		return false
	}
	apply()
	c.busy = false
	c.publishLocked()
	return true
}

func (c *Controller) runPre(ctx context.Context, gen uint64, in models.RoutineInput, id models.PersonaID) {
	started := time.Now()
	pre, err := c.deps.Analyzer.PreAnalyze(ctx, in, id)
	applied := c.resolve(gen, func() {
		if err != nil {
			c.state = CapturingInput{}
			c.err = MsgPreFailed
			return
		}
		c.state = AnsweringProfile{Input: in, Persona: id, Pre: pre}
	})
	c.record(ctx, gateway.StagePre, id, in.Kind, started, err, applied)
}

func (c *Controller) runDeep(ctx context.Context, gen uint64, from AnsweringProfile, p models.UserProfile) {
	started := time.Now()
	analysis, err := c.deps.Analyzer.AnalyzeDeep(ctx, p, from.Input, from.Pre)
	applied := c.resolve(gen, func() {
		if err != nil {
			from.Profile = &p
			c.state = from
			c.err = MsgDeepFailed
			return
		}
		c.state = ShowingResults{
			Input:    from.Input,
			Persona:  from.Persona,
			Pre:      from.Pre,
			Profile:  p,
			Analysis: analysis,
		}
	})
	c.record(ctx, gateway.StageDeep, from.Persona, from.Input.Kind, started, err, applied)
}

func (c *Controller) runVideo(ctx context.Context, gen uint64, in models.RoutineInput) {
	started := time.Now()
	result, err := c.deps.Analyzer.AnalyzeVideo(ctx, in.Content, in.MediaType)
	applied := c.resolve(gen, func() {
		if err != nil {
			c.state = CapturingInput{VideoTab: true}
			c.err = MsgVideoFailed
			return
		}
		c.state = ShowingVideoResults{Input: in, Result: result}
	})
	c.record(ctx, gateway.StageVideo, "", in.Kind, started, err, applied)
}

func (c *Controller) record(ctx context.Context, stage gateway.Stage, id models.PersonaID, kind models.InputKind, started time.Time, err error, applied bool) {
	run := models.StageRun{
		SessionID:  c.id,
		Stage:      string(stage),
		Persona:    string(id),
		InputKind:  kind,
		Status:     models.RunSucceeded,
		ErrorClass: gateway.Classify(err),
		StartedAt:  started.UTC(),
		DurationMs: int(time.Since(started).Milliseconds()),
	}
	switch {
	case !applied:
		run.Status = models.RunDiscarded
		c.log.Info("discarding stale result", "stage", stage, "error", err)
	case err != nil:
		run.Status = models.RunFailed
		c.log.Error("stage failed", "stage", stage, "class", run.ErrorClass, "error", err)
	}

	if c.deps.Recorder == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, recordTimeout)
	defer cancel()
	if err := c.deps.Recorder.RecordStageRun(ctx, run); err != nil {
		c.log.Warn("recording stage run", "stage", stage, "error", err)
	}
}

// Subscribe returns a channel of snapshots published after every
// transition. Slow subscribers miss updates rather than block the session.
func (c *Controller) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 16)
	c.subsMu.Lock()
	c.subs[ch] = struct{}{}
	c.subsMu.Unlock()
	return ch, func() {
		c.subsMu.Lock()
		delete(c.subs, ch)
		c.subsMu.Unlock()
	}
}

func (c *Controller) publishLocked() {
	s := c.snapshotLocked()
	c.subsMu.Lock()
	defer c.subsMu.Unlock()
	for ch := range c.subs {
		select {
		case ch <- s:
		default:
		}
	}
}
