package models

import "time"

// RunStatus is the outcome of one stage call.
type RunStatus string

const (
	RunSucceeded RunStatus = "succeeded"
	RunFailed    RunStatus = "failed"
	// RunDiscarded marks a call that resolved after the session moved on.
	RunDiscarded RunStatus = "discarded"
)

// StageRun records one resolved analysis call.
type StageRun struct {
	ID         int64     `json:"id"`
	SessionID  string    `json:"session_id"`
	Stage      string    `json:"stage"`
	Persona    string    `json:"persona,omitempty"`
	InputKind  InputKind `json:"input_kind"`
	Status     RunStatus `json:"status"`
	ErrorClass string    `json:"error_class,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	DurationMs int       `json:"duration_ms"`
}

// StageRunQuery filters stage-run listings. Zero values mean no filter.
type StageRunQuery struct {
	SessionID string
	Stage     string
	Status    RunStatus
	Limit     int
}
