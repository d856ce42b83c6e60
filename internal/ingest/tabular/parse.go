package tabular

import (
	"errors"
	"fmt"
	"io"
	"math"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/juanrdzmb/fitsmartv3/internal/models"
)

// ErrEmpty is returned when an export has no data rows.
var ErrEmpty = errors.New("export has no workout rows")

// DefaultTitle names sessions from exports without a title column.
const DefaultTitle = "Entrenamiento"

// leadingNumberRe matches the numeric prefix of a cell like "80kg".
var leadingNumberRe = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?`)

// dateLayouts are tried in order when ordering sessions.
var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006/01/02",
	"02/01/2006",
	"02-01-2006",
	"2006.01.02",
}

// Stats describes how an export was read.
type Stats struct {
	Rows        int `json:"rows"`
	RowsSkipped int `json:"rows_skipped"`
}

// Parse reads a whole CSV export. Blank lines are ignored and both LF and
// CRLF endings are accepted.
func Parse(r io.Reader) ([]models.WorkoutSession, Mapping, Stats, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, Mapping{}, Stats{}, fmt.Errorf("reading export: %w", err)
	}

	var rows [][]string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSuffix(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		if len(rows) == 0 {
			line = strings.ToLower(line)
		}
		rows = append(rows, SplitLine(line))
	}
	if len(rows) < 2 {
		return nil, Mapping{}, Stats{}, ErrEmpty
	}

	m, err := DetectSchema(rows[0])
	if err != nil {
		return nil, Mapping{}, Stats{}, err
	}

	sessions, stats := parseRows(rows, m)
	if len(sessions) == 0 {
		return nil, m, stats, ErrEmpty
	}
	return sessions, m, stats, nil
}

// ParseRows groups data rows into sessions keyed by date, newest first.
// rows[0] is the header and is skipped.
func ParseRows(rows [][]string, m Mapping) []models.WorkoutSession {
	sessions, _ := parseRows(rows, m)
	return sessions
}

func parseRows(rows [][]string, m Mapping) ([]models.WorkoutSession, Stats) {
	width := m.Width
	if width == 0 && len(rows) > 0 {
		width = len(rows[0])
	}

	var stats Stats
	byDate := make(map[string]int)
	var sessions []models.WorkoutSession

	for _, cols := range rows[min(1, len(rows)):] {
		stats.Rows++
		if len(cols) < width {
			stats.RowsSkipped++
			continue
		}

		date, _, _ := strings.Cut(cell(cols, m.Date), " ")
		title := DefaultTitle
		if m.Title != -1 {
			title = cell(cols, m.Title)
		}

		set := models.WorkoutSet{
			Exercise: cell(cols, m.Exercise),
			Weight:   max(parseNumber(cell(cols, m.Weight)), 0),
			Reps:     max(parseNumber(cell(cols, m.Reps)), 0),
			RPE:      parseOptional(cols, m.RPE),
			Type:     models.SetNormal,
		}

		idx, ok := byDate[date]
		if !ok {
			idx = len(sessions)
			byDate[date] = idx
			sessions = append(sessions, models.WorkoutSession{Date: date, Title: title})
		}
		sessions[idx].Sets = append(sessions[idx].Sets, set)
	}

	SortNewestFirst(sessions)
	return sessions, stats
}

// SortNewestFirst orders sessions by calendar date, most recent first.
// Sessions whose date cannot be read keep their relative order at the end.
func SortNewestFirst(sessions []models.WorkoutSession) {
	slices.SortStableFunc(sessions, func(a, b models.WorkoutSession) int {
		ta, okA := parseDate(a.Date)
		tb, okB := parseDate(b.Date)
		switch {
		case okA && okB:
			return tb.Compare(ta)
		case okA:
			return -1
		case okB:
			return 1
		}
		return 0
	})
}

func parseDate(s string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func cell(cols []string, i int) string {
	if i < 0 || i >= len(cols) {
		return ""
	}
	return cols[i]
}

// parseNumber reads a cell the way a lenient float parser would: the longest
// numeric prefix wins, anything unreadable is 0.
func parseNumber(s string) float64 {
	s = strings.TrimSpace(s)
	if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
		return f
	}
	if m := leadingNumberRe.FindString(s); m != "" {
		if f, err := strconv.ParseFloat(m, 64); err == nil {
			return f
		}
	}
	return 0
}

func parseOptional(cols []string, i int) *float64 {
	if i == -1 {
		return nil
	}
	s := strings.TrimSpace(cell(cols, i))
	if s == "" || leadingNumberRe.FindString(s) == "" {
		return nil
	}
	v := parseNumber(s)
	return &v
}
