package models

// SetType distinguishes working sets from warm-ups and intensity techniques.
type SetType string

const (
	SetNormal  SetType = "normal"
	SetWarmup  SetType = "warmup"
	SetDrop    SetType = "drop"
	SetFailure SetType = "failure"
)

// WorkoutSet is one logged set.
type WorkoutSet struct {
	Exercise string   `json:"exercise"`
	Weight   float64  `json:"weight"`
	Reps     float64  `json:"reps"`
	RPE      *float64 `json:"rpe,omitempty"`
	Type     SetType  `json:"type"`
}

// WorkoutSession groups every set logged on one calendar day.
type WorkoutSession struct {
	Date  string       `json:"date"` // YYYY-MM-DD
	Title string       `json:"title"`
	Sets  []WorkoutSet `json:"sets"`
}
