package models

// SetupItem is one checkpoint of the lifter's setup.
type SetupItem struct {
	Label          string      `json:"label"`
	Value          string      `json:"value"`
	Status         SetupStatus `json:"status"`
	Recommendation string      `json:"recommendation,omitempty"`
	ShoppingQuery  string      `json:"shoppingQuery,omitempty"`
}

// VideoMetrics holds the per-lift movement metrics. Any of them may be
// absent when the camera angle does not show it.
type VideoMetrics struct {
	Depth     string `json:"depth,omitempty"`
	Lockout   string `json:"lockout,omitempty"`
	ROM       string `json:"rom,omitempty"`
	Tempo     string `json:"tempo,omitempty"`
	BarPath   string `json:"barPath,omitempty"`
	Stability string `json:"stability,omitempty"`
}

// VideoFeedback is the judge's verdict on the lift.
type VideoFeedback struct {
	Type         FeedbackType `json:"type"`
	Text         string       `json:"text"`
	Positive     []string     `json:"positive"`
	Negative     []string     `json:"negative"`
	YoutubeQuery string       `json:"youtubeQuery"`
}

// VideoAnalysisResult is the terminal artifact of the video flow.
type VideoAnalysisResult struct {
	ExerciseName string        `json:"exerciseName"`
	Variant      string        `json:"variant"`
	RepCount     int           `json:"repCount"`
	Confidence   int           `json:"confidence"`
	CameraAngle  string        `json:"cameraAngle"`
	RepsTimeline []string      `json:"repsTimeline,omitempty"`
	SetupDetails []SetupItem   `json:"setupDetails"`
	Metrics      VideoMetrics  `json:"metrics"`
	Feedback     VideoFeedback `json:"feedback"`
}
