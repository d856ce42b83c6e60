package gateway

import (
	"context"
	"time"
)

// FormatJSON asks the engine for an application/json response.
const FormatJSON = "json"

// Part is one element of a request payload: either text or base64 media.
type Part struct {
	Text      string
	MediaType string
	Data      string
}

// TextPart returns a text part.
func TextPart(s string) Part { return Part{Text: s} }

// MediaPart returns an inline media part carrying base64 data.
func MediaPart(mediaType, data string) Part { return Part{MediaType: mediaType, Data: data} }

// IsMedia reports whether the part carries inline data.
func (p Part) IsMedia() bool { return p.Data != "" }

// Request is a single generation call.
type Request struct {
	Model             string
	SystemInstruction string
	Parts             []Part
	ResponseFormat    string
	MaxOutputTokens   int32
	ThinkingBudget    int32
}

// Response holds the engine's text output. An empty Text means the engine
// returned nothing usable.
type Response struct {
	Text string
}

// Engine is the generative model boundary.
type Engine interface {
	Generate(ctx context.Context, req Request) (Response, error)
}

// Stage names one of the three analysis calls.
type Stage string

const (
	StagePre   Stage = "pre_analysis"
	StageDeep  Stage = "deep_analysis"
	StageVideo Stage = "video_analysis"
)

// StageConfig carries the engine settings for one stage.
type StageConfig struct {
	Model           string        `yaml:"model"`
	MaxOutputTokens int32         `yaml:"max_output_tokens"`
	ThinkingBudget  int32         `yaml:"thinking_budget"`
	Timeout         time.Duration `yaml:"timeout"`
}

// Stages groups the per-stage configuration.
type Stages struct {
	Pre   StageConfig `yaml:"pre_analysis"`
	Deep  StageConfig `yaml:"deep_analysis"`
	Video StageConfig `yaml:"video_analysis"`
}

// DefaultStages returns the stock model selection.
func DefaultStages() Stages {
	return Stages{
		Pre: StageConfig{
			Model:           "gemini-3-flash-preview",
			MaxOutputTokens: 4096,
			Timeout:         45 * time.Second,
		},
		Deep: StageConfig{
			Model:           "gemini-3-pro-preview",
			MaxOutputTokens: 8192,
			ThinkingBudget:  2048,
			Timeout:         180 * time.Second,
		},
		Video: StageConfig{
			Model:           "gemini-2.0-flash-exp",
			MaxOutputTokens: 8192,
			Timeout:         180 * time.Second,
		},
	}
}

// withDefaults fills zero fields from DefaultStages.
func (s Stages) withDefaults() Stages {
	def := DefaultStages()
	s.Pre = s.Pre.fill(def.Pre)
	s.Deep = s.Deep.fill(def.Deep)
	s.Video = s.Video.fill(def.Video)
	return s
}

func (c StageConfig) fill(def StageConfig) StageConfig {
	if c.Model == "" {
		c.Model = def.Model
	}
	if c.MaxOutputTokens <= 0 {
		c.MaxOutputTokens = def.MaxOutputTokens
	}
	if c.ThinkingBudget == 0 {
		c.ThinkingBudget = def.ThinkingBudget
	}
	if c.Timeout <= 0 {
		c.Timeout = def.Timeout
	}
	return c
}
