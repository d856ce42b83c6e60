package models

import (
	"encoding/json"
	"strings"
)

// ExerciseType classifies a detected exercise.
type ExerciseType string

// Canonical exercise types.
const (
	ExerciseCompound  ExerciseType = "Compound"
	ExerciseIsolation ExerciseType = "Isolation"
	ExerciseCardio    ExerciseType = "Cardio"
	ExerciseMobility  ExerciseType = "Mobility"
)

// exerciseTypeMap maps lowercased labels to canonical types. The engine is
// prompted in Spanish, so both languages are accepted.
var exerciseTypeMap = map[string]ExerciseType{
	// English
	"compound":  ExerciseCompound,
	"isolation": ExerciseIsolation,
	"cardio":    ExerciseCardio,
	"mobility":  ExerciseMobility,

	// Spanish
	"compuesto":      ExerciseCompound,
	"multiarticular": ExerciseCompound,
	"aislamiento":    ExerciseIsolation,
	"monoarticular":  ExerciseIsolation,
	"movilidad":      ExerciseMobility,
	"cardiovascular": ExerciseCardio,
}

// NormalizeExerciseType maps a possibly-localized exercise type label to its
// canonical value. Returns the original label and false if unknown.
func NormalizeExerciseType(raw string) (ExerciseType, bool) {
	lower := strings.ToLower(strings.TrimSpace(raw))
	if canonical, ok := exerciseTypeMap[lower]; ok {
		return canonical, true
	}
	return ExerciseType(raw), false
}

// UnmarshalJSON accepts any known label and stores the canonical value.
func (t *ExerciseType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*t, _ = NormalizeExerciseType(s)
	return nil
}

// SetupStatus flags a setup checkpoint in a lift video.
type SetupStatus string

const (
	SetupOK        SetupStatus = "OK"
	SetupAttention SetupStatus = "ATTENTION"
)

// UnmarshalJSON treats anything other than OK as needing attention.
func (s *SetupStatus) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if strings.EqualFold(strings.TrimSpace(raw), string(SetupOK)) {
		*s = SetupOK
	} else {
		*s = SetupAttention
	}
	return nil
}

// FeedbackType separates safety corrections from performance tweaks.
type FeedbackType string

const (
	FeedbackCorrection   FeedbackType = "correction"
	FeedbackOptimization FeedbackType = "optimization"
)

// UnmarshalJSON keeps unknown labels verbatim so validation can reject them.
func (f *FeedbackType) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	lower := strings.ToLower(raw)
	switch {
	case strings.Contains(lower, string(FeedbackCorrection)), strings.Contains(lower, "correcci"):
		*f = FeedbackCorrection
	case strings.Contains(lower, string(FeedbackOptimization)), strings.Contains(lower, "optimizaci"):
		*f = FeedbackOptimization
	default:
		*f = FeedbackType(raw)
	}
	return nil
}

// Valid reports whether f is one of the two known feedback types.
func (f FeedbackType) Valid() bool {
	return f == FeedbackCorrection || f == FeedbackOptimization
}
