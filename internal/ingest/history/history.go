// Package history turns an uploaded workout export into canonical sessions
// and the text summary sent to the analysis engine.
package history

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/juanrdzmb/fitsmartv3/internal/ingest"
	"github.com/juanrdzmb/fitsmartv3/internal/ingest/alpha"
	"github.com/juanrdzmb/fitsmartv3/internal/ingest/tabular"
	"github.com/juanrdzmb/fitsmartv3/internal/models"
)

// Importer recognizes the export format and normalizes it.
type Importer struct {
	log *slog.Logger
}

// NewImporter creates an Importer.
func NewImporter(log *slog.Logger) *Importer {
	return &Importer{log: log}
}

// Import reads a whole export. Alpha Progression files are recognized by
// their session header; everything else goes through the tabular reader.
// tabular.ErrUnmappable and tabular.ErrEmpty are returned wrapped.
func (im *Importer) Import(r io.Reader) (*ingest.Result, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading export: %w", err)
	}

	result := &ingest.Result{}
	if alpha.Detect(data) {
		sessions, err := alpha.Parse(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("parsing alpha export: %w", err)
		}
		if len(sessions) == 0 {
			return nil, fmt.Errorf("parsing alpha export: %w", tabular.ErrEmpty)
		}
		result.Source = "alpha"
		result.Sessions = sessions
	} else {
		sessions, m, stats, err := tabular.Parse(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("parsing csv export: %w", err)
		}
		result.Source = string(m.Vendor)
		result.Sessions = sessions
		result.RowsSkipped = stats.RowsSkipped
	}

	for _, s := range result.Sessions {
		result.SetsReceived += len(s.Sets)
	}
	result.Summary = tabular.Serialize(result.Sessions)

	im.log.Info("history imported",
		"source", result.Source,
		"sessions", len(result.Sessions),
		"sets", result.SetsReceived,
		"rows_skipped", result.RowsSkipped,
	)
	return result, nil
}

// Input converts an import into the routine input handed to the flow.
func Input(result *ingest.Result) models.RoutineInput {
	return models.RoutineInput{Kind: models.KindCSV, Content: result.Summary, MediaType: "text/csv"}
}

// Normalize replaces the raw export carried by a csv input with its
// compact summary. Other kinds pass through unchanged with a nil result.
func (im *Importer) Normalize(in models.RoutineInput) (models.RoutineInput, *ingest.Result, error) {
	if in.Kind != models.KindCSV {
		return in, nil, nil
	}
	result, err := im.Import(strings.NewReader(in.Content))
	if err != nil {
		return models.RoutineInput{}, nil, err
	}
	return Input(result), result, nil
}
