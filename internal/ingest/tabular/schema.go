// Package tabular normalizes workout-tracker CSV exports into canonical
// workout sessions and serializes them for the analysis engine.
package tabular

import (
	"errors"
	"slices"
	"strings"
)

// ErrUnmappable is returned when no strategy can locate the date and
// exercise columns.
var ErrUnmappable = errors.New("could not read this file: unrecognized columns")

// Vendor names the strategy that matched a header.
type Vendor string

const (
	VendorHevy    Vendor = "hevy"
	VendorStrong  Vendor = "strong"
	VendorGeneric Vendor = "generic"
)

// Mapping holds column indices for one header. Optional columns are -1.
type Mapping struct {
	Vendor   Vendor `json:"vendor"`
	Date     int    `json:"date"`
	Title    int    `json:"title"`
	Exercise int    `json:"exercise"`
	Weight   int    `json:"weight"`
	Reps     int    `json:"reps"`
	RPE      int    `json:"rpe"`
	Width    int    `json:"width"`
}

func (m Mapping) usable() bool {
	return m.Date != -1 && m.Exercise != -1
}

// DetectSchema maps a header row to column indices, trying the Hevy layout,
// then Strong, then a bilingual substring search.
func DetectSchema(header []string) (Mapping, error) {
	cols := make([]string, len(header))
	for i, h := range header {
		cols[i] = strings.ToLower(strings.TrimSpace(h))
	}

	for _, detect := range []func([]string) (Mapping, bool){hevy, strong, generic} {
		if m, ok := detect(cols); ok && m.usable() {
			m.Width = len(cols)
			return m, nil
		}
	}
	return Mapping{}, ErrUnmappable
}

func hevy(cols []string) (Mapping, bool) {
	if !slices.Contains(cols, "title") || !slices.Contains(cols, "weight_kg") {
		return Mapping{}, false
	}
	return Mapping{
		Vendor:   VendorHevy,
		Date:     slices.Index(cols, "start_time"),
		Title:    slices.Index(cols, "title"),
		Exercise: slices.Index(cols, "exercise_title"),
		Weight:   slices.Index(cols, "weight_kg"),
		Reps:     slices.Index(cols, "reps"),
		RPE:      slices.Index(cols, "rpe"),
	}, true
}

func strong(cols []string) (Mapping, bool) {
	if !slices.Contains(cols, "workout name") || !slices.Contains(cols, "weight") {
		return Mapping{}, false
	}
	return Mapping{
		Vendor:   VendorStrong,
		Date:     slices.Index(cols, "date"),
		Title:    slices.Index(cols, "workout name"),
		Exercise: slices.Index(cols, "exercise name"),
		Weight:   slices.Index(cols, "weight"),
		Reps:     slices.Index(cols, "reps"),
		RPE:      slices.Index(cols, "rpe"),
	}, true
}

func generic(cols []string) (Mapping, bool) {
	m := Mapping{
		Vendor:   VendorGeneric,
		Date:     findSubstring(cols, nil, "date", "fecha"),
		Exercise: findSubstring(cols, nil, "exercise", "ejercicio"),
		Weight:   findSubstring(cols, nil, "weight", "peso"),
		Reps:     findSubstring(cols, nil, "reps", "repeticiones"),
		RPE:      findSubstring(cols, nil, "rpe"),
	}
	taken := []int{m.Date, m.Exercise}
	m.Title = findSubstring(cols, taken, "title", "título", "titulo")
	return m, true
}

// findSubstring returns the first column containing any needle, skipping
// the indices in skip.
func findSubstring(cols []string, skip []int, needles ...string) int {
	for i, c := range cols {
		if slices.Contains(skip, i) {
			continue
		}
		for _, n := range needles {
			if strings.Contains(c, n) {
				return i
			}
		}
	}
	return -1
}
