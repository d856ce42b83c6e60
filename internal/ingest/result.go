// Package ingest holds the outcome type shared by the history importers.
package ingest

import "github.com/juanrdzmb/fitsmartv3/internal/models"

// Result holds the outcome of reading a workout history export.
type Result struct {
	Source       string                  `json:"source"`
	Sessions     []models.WorkoutSession `json:"sessions"`
	SetsReceived int                     `json:"sets_received"`
	RowsSkipped  int                     `json:"rows_skipped"`

	// Summary is the bounded text document sent to the analysis engine.
	Summary string `json:"summary"`

	Message string `json:"message,omitempty"`
}
