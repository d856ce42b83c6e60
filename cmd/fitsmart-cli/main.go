package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/juanrdzmb/fitsmartv3/internal/config"
	"github.com/juanrdzmb/fitsmartv3/internal/flow"
	"github.com/juanrdzmb/fitsmartv3/internal/gateway"
	"github.com/juanrdzmb/fitsmartv3/internal/ingest/history"
	"github.com/juanrdzmb/fitsmartv3/internal/intake"
	"github.com/juanrdzmb/fitsmartv3/internal/mcp"
	"github.com/juanrdzmb/fitsmartv3/internal/models"
	"github.com/juanrdzmb/fitsmartv3/internal/persona"
	"github.com/juanrdzmb/fitsmartv3/internal/report"
	"github.com/juanrdzmb/fitsmartv3/internal/storage/local"
)

// Version is set at build time via -ldflags.
var Version = "dev"

// options are the survey answers and output settings of one run.
type options struct {
	input      string
	persona    string
	goal       string
	training   string
	experience string
	gender     string
	injuries   string
	answer     string
	age        int
	reportDir  string
	timeout    time.Duration
}

func main() {
	var o options
	configPath := flag.String("config", "", "path to config file (optional)")
	flag.StringVar(&o.input, "input", "", "routine file (.txt, .csv, image, PDF, video) or http(s) URL")
	flag.StringVar(&o.persona, "persona", string(models.PersonaSara), "coach persona: sara, todor or raul")
	flag.StringVar(&o.goal, "goal", "", "training goal (default: detected)")
	flag.StringVar(&o.training, "training", "", "training type (default: detected)")
	flag.StringVar(&o.experience, "experience", "", "experience level")
	flag.StringVar(&o.gender, "gender", "", "gender")
	flag.StringVar(&o.injuries, "injuries", "", "injuries or limitations")
	flag.StringVar(&o.answer, "answer", "", "answer to the coach's question")
	flag.IntVar(&o.age, "age", 0, "age in years")
	flag.StringVar(&o.reportDir, "report-dir", "", "write report pages as PNG to this directory")
	flag.DurationVar(&o.timeout, "timeout", 10*time.Minute, "overall deadline for the analysis")
	runs := flag.Int("runs", 0, "print the N most recent stage runs and exit")
	stage := flag.String("stage", "", "filter -runs by stage")
	serveMCP := flag.Bool("mcp", false, "serve MCP over stdio")
	serverURL := flag.String("server", "", "with -mcp, read stage runs from this FitSmart server")
	stateDir := flag.String("state-dir", "", "directory of the local stage-run log (default: state_dir from config, else ~/.fitsmart)")
	version := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *version {
		fmt.Println("fitsmart-cli", Version)
		return
	}

	// stdout carries results and the MCP protocol.
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	switch {
	case *serveMCP:
		if err := runMCP(*serverURL, *configPath, *stateDir, log); err != nil {
			log.Error("mcp server failed", "error", err)
			os.Exit(1)
		}
	case *runs > 0:
		dir, err := config.StateDir(*configPath, *stateDir)
		if err != nil {
			log.Error("failed to load config", "error", err)
			os.Exit(1)
		}
		if err := printRuns(dir, models.StageRunQuery{Stage: *stage, Limit: *runs}); err != nil {
			log.Error("listing runs failed", "error", err)
			os.Exit(1)
		}
	default:
		if o.input == "" {
			fmt.Fprintf(os.Stderr, "Usage: fitsmart-cli -input <file|URL> [-persona sara|todor|raul] -answer <text> [-goal G] [-age N] [-report-dir DIR]\n\n")
			flag.PrintDefaults()
			os.Exit(1)
		}
		cfg, err := config.Load(*configPath)
		if err != nil {
			log.Error("failed to load config", "error", err)
			os.Exit(1)
		}
		if *stateDir != "" {
			cfg.StateDir = *stateDir
		}
		if err := analyze(cfg, o, log); err != nil {
			log.Error("analysis failed", "error", err)
			os.Exit(1)
		}
	}
}

func runMCP(serverURL, configPath, stateDir string, log *slog.Logger) error {
	var runs mcp.RunSource
	if serverURL != "" {
		runs = mcp.NewHTTPClient(strings.TrimRight(serverURL, "/"))
	} else {
		dir, err := config.StateDir(configPath, stateDir)
		if err != nil {
			return err
		}
		l, err := local.Open(dir)
		if err != nil {
			return err
		}
		defer l.Close()
		runs = l
	}
	s := mcp.New(runs, history.NewImporter(log), Version, log)
	return mcpserver.ServeStdio(s)
}

func printRuns(stateDir string, q models.StageRunQuery) error {
	l, err := local.Open(stateDir)
	if err != nil {
		return err
	}
	defer l.Close()

	list, err := l.QueryStageRuns(context.Background(), q)
	if err != nil {
		return err
	}
	for _, r := range list {
		line := fmt.Sprintf("%s  %-14s %-9s %6dms  session=%s",
			r.StartedAt.Local().Format("2006-01-02 15:04:05"), r.Stage, r.Status, r.DurationMs, r.SessionID)
		if r.Persona != "" {
			line += " persona=" + r.Persona
		}
		if r.ErrorClass != "" {
			line += " error=" + r.ErrorClass
		}
		fmt.Println(line)
	}
	return nil
}

// analyze runs one session to completion: capture, persona, survey and
// deep analysis, or the video branch for clips.
func analyze(cfg *config.Config, o options, log *slog.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), o.timeout)
	defer cancel()

	id, err := persona.Parse(o.persona)
	if err != nil {
		return err
	}

	runLog, err := local.Open(cfg.StateDir)
	if err != nil {
		return err
	}
	defer runLog.Close()

	engine, err := gateway.NewGenAIEngine(ctx, cfg.Gemini.APIKey, cfg.Gemini.RequestsPerSecond, log)
	if err != nil {
		return err
	}
	inputs := intake.New(cfg.Limits)
	c := flow.New(uuid.NewString(), flow.Deps{
		Analyzer: gateway.New(engine, cfg.Gemini.Stages, log),
		Inputs:   inputs,
		Recorder: runLog,
	}, log)

	in, err := readInput(o.input, inputs)
	if err != nil {
		return fmt.Errorf("%s: %w", flow.InputMessage(err, in.Kind == models.KindVideo), err)
	}
	in, summary, err := history.NewImporter(log).Normalize(in)
	if err != nil {
		return fmt.Errorf("%s: %w", flow.InputMessage(err, false), err)
	}
	if summary != nil {
		log.Info("history normalized", "source", summary.Source, "sessions", len(summary.Sessions), "sets", summary.SetsReceived)
	}

	snap, err := c.CaptureInput(ctx, in)
	if err != nil {
		return stepError(snap, err)
	}

	if in.Kind == models.KindVideo {
		log.Info(snap.Loading)
		if snap, err = settle(ctx, c); err != nil {
			return err
		}
		video, ok := snap.State.(flow.ShowingVideoResults)
		if !ok {
			return fmt.Errorf("unexpected stage %s", snap.State.Name())
		}
		return printJSON(video.Result)
	}

	if snap, err = c.SelectPersona(ctx, id); err != nil {
		return stepError(snap, err)
	}
	log.Info(snap.Loading)
	if snap, err = settle(ctx, c); err != nil {
		return err
	}
	survey, ok := snap.State.(flow.AnsweringProfile)
	if !ok {
		return fmt.Errorf("unexpected stage %s", snap.State.Name())
	}
	fmt.Fprintf(os.Stderr, "\n%s\n%s\n\n", survey.Pre.SummaryObservation, survey.Pre.SpecificQuestion)

	draft, err := c.ProfileDraft()
	if err != nil {
		return err
	}
	profile := o.apply(draft)
	if snap, err = c.SubmitProfile(ctx, profile); err != nil {
		return stepError(snap, err)
	}
	log.Info(snap.Loading)
	if snap, err = settle(ctx, c); err != nil {
		return err
	}
	results, ok := snap.State.(flow.ShowingResults)
	if !ok {
		return fmt.Errorf("unexpected stage %s", snap.State.Name())
	}
	if err := printJSON(results.Analysis); err != nil {
		return err
	}
	if o.reportDir == "" {
		return nil
	}

	renderer, err := report.NewRenderer(cfg.Report)
	if err != nil {
		return err
	}
	pages, err := renderer.WritePages(o.reportDir, report.Layout(*results.Analysis, results.Profile))
	if err != nil {
		return err
	}
	log.Info("report written", "dir", o.reportDir, "pages", len(pages))
	return nil
}

// apply overrides the survey draft with the answers given on the command
// line.
func (o options) apply(p models.UserProfile) models.UserProfile {
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&p.Goal, o.goal)
	set(&p.TrainingType, o.training)
	set(&p.Experience, o.experience)
	set(&p.Gender, o.gender)
	set(&p.Injuries, o.injuries)
	set(&p.CustomAnswer, o.answer)
	if o.age > 0 {
		p.Age = o.age
	}
	return p
}

// settle waits for the pending stage and turns a failure back into an
// error carrying the session's message.
func settle(ctx context.Context, c *flow.Controller) (flow.Snapshot, error) {
	snap, err := c.Wait(ctx)
	if err != nil {
		return snap, fmt.Errorf("waiting for %s: %w", snap.State.Name(), err)
	}
	if snap.Error != "" {
		return snap, errors.New(snap.Error)
	}
	return snap, nil
}

func stepError(snap flow.Snapshot, err error) error {
	if msg := snap.Error; msg != "" {
		return fmt.Errorf("%s: %w", msg, err)
	}
	return err
}

// readInput builds a routine input from a URL or a file. CSV and plain
// text are read as text; anything else is sniffed as media.
func readInput(arg string, inputs *intake.Validator) (models.RoutineInput, error) {
	if strings.HasPrefix(arg, "http://") || strings.HasPrefix(arg, "https://") {
		return inputs.Text(models.KindURL, arg)
	}
	data, err := os.ReadFile(arg)
	if err != nil {
		return models.RoutineInput{}, fmt.Errorf("reading input: %w", err)
	}
	switch strings.ToLower(filepath.Ext(arg)) {
	case ".csv":
		return models.RoutineInput{Kind: models.KindCSV, Content: string(data), MediaType: "text/csv"}, nil
	case ".txt", ".md":
		return inputs.Text(models.KindText, string(data))
	}
	return inputs.Media(data, "")
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
