package models

import (
	"encoding/json"
	"testing"
)

// TestNormalizeExerciseType verifies that English and Spanish labels map to
// the canonical type regardless of casing.
func TestNormalizeExerciseType(t *testing.T) {
	cases := []struct {
		input string
		want  ExerciseType
	}{
		{"Compound", ExerciseCompound},
		{"Compuesto", ExerciseCompound},
		{"aislamiento", ExerciseIsolation},
		{"  Movilidad ", ExerciseMobility},
		{"CARDIO", ExerciseCardio},
	}
	for _, tc := range cases {
		got, known := NormalizeExerciseType(tc.input)
		if !known {
			t.Errorf("NormalizeExerciseType(%q): expected known=true", tc.input)
		}
		if got != tc.want {
			t.Errorf("NormalizeExerciseType(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

// TestNormalizeExerciseType_Unknown verifies unknown labels pass through.
func TestNormalizeExerciseType_Unknown(t *testing.T) {
	got, known := NormalizeExerciseType("Pliometría")
	if known {
		t.Error("expected known=false")
	}
	if got != "Pliometría" {
		t.Errorf("got %q, want original label", got)
	}
}

// TestDetectedExerciseUnmarshal verifies the engine's Spanish type label is
// normalized when a detected exercise is decoded.
func TestDetectedExerciseUnmarshal(t *testing.T) {
	var ex DetectedExercise
	if err := json.Unmarshal([]byte(`{"name":"Sentadilla","type":"Compuesto"}`), &ex); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if ex.Type != ExerciseCompound {
		t.Errorf("type = %q, want %q", ex.Type, ExerciseCompound)
	}
}

// TestSetupStatusUnmarshal verifies anything other than OK becomes ATTENTION.
func TestSetupStatusUnmarshal(t *testing.T) {
	cases := map[string]SetupStatus{
		`"OK"`:        SetupOK,
		`"ok"`:        SetupOK,
		`"ATTENTION"`: SetupAttention,
		`"revisar"`:   SetupAttention,
	}
	for in, want := range cases {
		var s SetupStatus
		if err := json.Unmarshal([]byte(in), &s); err != nil {
			t.Fatalf("unmarshal %s: %v", in, err)
		}
		if s != want {
			t.Errorf("SetupStatus(%s) = %q, want %q", in, s, want)
		}
	}
}

// TestFeedbackTypeUnmarshal verifies known labels normalize and unknown ones
// are kept verbatim and reported invalid.
func TestFeedbackTypeUnmarshal(t *testing.T) {
	cases := []struct {
		in    string
		want  FeedbackType
		valid bool
	}{
		{`"correction"`, FeedbackCorrection, true},
		{`"Optimization"`, FeedbackOptimization, true},
		{`"corrección"`, FeedbackCorrection, true},
		{`"unknown"`, FeedbackType("unknown"), false},
	}
	for _, tc := range cases {
		var f FeedbackType
		if err := json.Unmarshal([]byte(tc.in), &f); err != nil {
			t.Fatalf("unmarshal %s: %v", tc.in, err)
		}
		if f != tc.want {
			t.Errorf("FeedbackType(%s) = %q, want %q", tc.in, f, tc.want)
		}
		if f.Valid() != tc.valid {
			t.Errorf("FeedbackType(%s).Valid() = %v, want %v", tc.in, f.Valid(), tc.valid)
		}
	}
}
