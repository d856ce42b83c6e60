// Package alpha reads Alpha Progression semicolon exports into canonical
// workout sessions.
package alpha

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/juanrdzmb/fitsmartv3/internal/models"
)

var (
	// sessionHeaderRe matches: "Session Name";"2026-02-19 4:54 h";"1:02 hr"
	sessionHeaderRe = regexp.MustCompile(`^"(.+)";"(\d{4}-\d{2}-\d{2}\s+\d+:\d+)\s+h";"(.+)"$`)

	// exerciseHeaderRe matches: "1. Exercise Name · Equipment · 8 reps[· modifiers]"[;"warmup info"]
	exerciseHeaderRe = regexp.MustCompile(`^"(\d+)\.\s+(.+?)(?:\s+·\s+(\S.*?))?\s+·\s+(\d+)\s+reps(.*?)"(?:;"(.+)")?$`)

	// setDataRe matches: 1;115;8;1
	setDataRe = regexp.MustCompile(`^(\d+);(.+);(\d+);(.+)$`)

	// warmupRe matches: WU1 · 37,5 kg · 9 reps
	warmupRe = regexp.MustCompile(`WU(\d+)\s+·\s+(.+?)\s+kg\s+·\s+(\d+)\s+reps`)

	// columnHeaderRe matches: #;KG;REPS;RIR
	columnHeaderRe = regexp.MustCompile(`^#;KG;REPS;RIR$`)
)

// maxRPE anchors the RIR to RPE conversion.
const maxRPE = 10

// Detect reports whether data starts like an Alpha Progression export.
func Detect(data []byte) bool {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		return sessionHeaderRe.MatchString(line)
	}
	return false
}

// builder accumulates sessions, merging sessions logged on the same day.
type builder struct {
	sessions []models.WorkoutSession
	byDate   map[string]int
	current  int
	exercise string
}

func (b *builder) startSession(title string, date time.Time) {
	key := date.Format("2006-01-02")
	idx, ok := b.byDate[key]
	if !ok {
		idx = len(b.sessions)
		b.byDate[key] = idx
		b.sessions = append(b.sessions, models.WorkoutSession{Date: key, Title: title})
	}
	b.current = idx
	b.exercise = ""
}

func (b *builder) endSession() {
	b.current = -1
	b.exercise = ""
}

func (b *builder) add(set models.WorkoutSet) {
	set.Exercise = b.exercise
	b.sessions[b.current].Sets = append(b.sessions[b.current].Sets, set)
}

// Parse reads an export and returns its sessions, newest first. Exercise
// names carry their equipment, warm-ups are typed as such and working sets
// convert RIR to RPE. A working set left at 0 RIR is a failure set.
func Parse(r io.Reader) ([]models.WorkoutSession, error) {
	scanner := bufio.NewScanner(r)
	b := &builder{byDate: make(map[string]int), current: -1}

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		// Blank line = session boundary
		if line == "" {
			b.endSession()
			continue
		}

		if columnHeaderRe.MatchString(line) {
			continue
		}

		if m := sessionHeaderRe.FindStringSubmatch(line); m != nil {
			date, err := parseSessionDate(m[2])
			if err != nil {
				return nil, fmt.Errorf("parsing session date %q: %w", m[2], err)
			}
			b.startSession(m[1], date)
			continue
		}

		if m := exerciseHeaderRe.FindStringSubmatch(line); m != nil {
			if b.current == -1 {
				return nil, fmt.Errorf("exercise without session: %q", line)
			}
			b.exercise = exerciseName(m[2], m[3])
			if m[6] != "" {
				for _, wu := range parseWarmups(m[6]) {
					b.add(wu)
				}
			}
			continue
		}

		if m := setDataRe.FindStringSubmatch(line); m != nil {
			if b.exercise == "" {
				return nil, fmt.Errorf("set data without exercise: %q", line)
			}
			reps, _ := strconv.Atoi(m[3])
			rir := parseEuropeanFloat(m[4])
			rpe := maxRPE - rir

			set := models.WorkoutSet{
				Weight: parseWeight(m[2]),
				Reps:   float64(reps),
				RPE:    &rpe,
				Type:   models.SetNormal,
			}
			if rir == 0 {
				set.Type = models.SetFailure
			}
			b.add(set)
			continue
		}

		// Unknown line: notes or other metadata
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading export: %w", err)
	}

	// ISO dates order lexically.
	slices.SortStableFunc(b.sessions, func(x, y models.WorkoutSession) int {
		return strings.Compare(y.Date, x.Date)
	})
	return b.sessions, nil
}

// parseSessionDate parses "2026-02-19 4:54" into a time.Time.
func parseSessionDate(s string) (time.Time, error) {
	for _, layout := range []string{"2006-01-02 15:04", "2006-01-02 3:04"} {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse date %q", s)
}

// exerciseName joins "Hack Squats" and "Machine" as "Hack Squats (Machine)".
func exerciseName(name, equipment string) string {
	name = strings.TrimSpace(name)
	equipment = strings.TrimSpace(equipment)
	if equipment == "" {
		return name
	}
	return name + " (" + equipment + ")"
}

// parseWarmups extracts warm-up sets from the exercise header's second field.
// Example: "WU1 · 37,5 kg · 9 reps<br>WU2 · 72,5 kg · 7 reps"
func parseWarmups(s string) []models.WorkoutSet {
	var sets []models.WorkoutSet
	for _, part := range strings.Split(s, "<br>") {
		m := warmupRe.FindStringSubmatch(part)
		if m == nil {
			continue
		}
		reps, _ := strconv.Atoi(m[3])
		sets = append(sets, models.WorkoutSet{
			Weight: parseWeight(m[2]),
			Reps:   float64(reps),
			Type:   models.SetWarmup,
		})
	}
	return sets
}

// parseWeight reads the added load. "+35" on a bodyweight exercise is 35.
func parseWeight(s string) float64 {
	return parseEuropeanFloat(strings.TrimPrefix(strings.TrimSpace(s), "+"))
}

// parseEuropeanFloat converts "102,5" to 102.5.
func parseEuropeanFloat(s string) float64 {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	f, _ := strconv.ParseFloat(s, 64)
	return f
}
