package models

// Goal, training type and experience labels as shown to the user. The engine
// echoes these strings back in its classification.
const (
	GoalHypertrophy = "Hipertrofia (Ganancia Muscular)"
	GoalStrength    = "Fuerza Máxima"
	GoalEndurance   = "Resistencia"
	GoalWeightLoss  = "Pérdida de Peso"
	GoalMobility    = "Movilidad y Salud"
	GoalRehab       = "Rehabilitación"

	TrainingWeights      = "Pesas / Gym"
	TrainingCalisthenics = "Calistenia"
	TrainingFunctional   = "Entrenamiento Funcional / CrossFit"
	TrainingHome         = "En Casa"
	TrainingHybrid       = "Híbrido"
	TrainingPowerlifting = "Powerlifting"
	TrainingYogaPilates  = "Yoga / Pilates"
	TrainingUndefined    = "No identificado"

	ExperienceBeginner     = "Principiante (< 1 año)"
	ExperienceIntermediate = "Intermedio (1-3 años)"
	ExperienceAdvanced     = "Avanzado (> 3 años)"
)

// Goals lists the selectable goals in display order.
var Goals = []string{GoalHypertrophy, GoalStrength, GoalEndurance, GoalWeightLoss, GoalMobility, GoalRehab}

// TrainingTypes lists the selectable training types in display order.
var TrainingTypes = []string{
	TrainingWeights, TrainingCalisthenics, TrainingFunctional, TrainingHome,
	TrainingHybrid, TrainingPowerlifting, TrainingYogaPilates, TrainingUndefined,
}

// ExperienceLevels lists the selectable experience levels.
var ExperienceLevels = []string{ExperienceBeginner, ExperienceIntermediate, ExperienceAdvanced}

// PreAnalysisResult is the first-pass classification of a routine.
type PreAnalysisResult struct {
	DetectedTrainingType string `json:"detectedTrainingType"`
	DetectedGoalGuess    string `json:"detectedGoalGuess"`
	ConfidenceScore      int    `json:"confidenceScore"`
	SummaryObservation   string `json:"summaryObservation"`
	SpecificQuestion     string `json:"specificQuestion"`
}

// UserProfile is the survey submitted before deep analysis.
type UserProfile struct {
	Goal         string    `json:"goal"`
	TrainingType string    `json:"trainingType"`
	Experience   string    `json:"experience"`
	Age          int       `json:"age"`
	Gender       string    `json:"gender"`
	Injuries     string    `json:"injuries"`
	CustomAnswer string    `json:"customAnswer"`
	Persona      PersonaID `json:"persona"`
}

// DetectedExercise is one exercise recognized in the routine or history.
type DetectedExercise struct {
	Name            string       `json:"name"`
	TargetGroup     string       `json:"targetGroup"`
	Type            ExerciseType `json:"type"`
	VariantDetected string       `json:"variantDetected"`
	TechnicalTip    string       `json:"technicalTip,omitempty"`
}

// WarmUpExercise is a goal-specific preparation drill.
type WarmUpExercise struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Dosage      string `json:"dosage"`
}

// ExerciseRecommendation is a suggested change to the routine.
type ExerciseRecommendation struct {
	Original     string `json:"original,omitempty"`
	Recommended  string `json:"recommended"`
	Sets         string `json:"sets"`
	Reps         string `json:"reps"`
	Rest         string `json:"rest"`
	Reason       string `json:"reason"`
	YoutubeQuery string `json:"youtubeQuery"`
}

// BiomechanicalAnalysis is the scored critique produced by deep analysis.
type BiomechanicalAnalysis struct {
	Summary               string                   `json:"summary"`
	Score                 int                      `json:"score"`
	DetectedExercises     []DetectedExercise       `json:"detectedExercises"`
	SafetyAssessment      string                   `json:"safetyAssessment"`
	AlignmentWithGoal     string                   `json:"alignmentWithGoal"`
	WarmUpRecommendations []WarmUpExercise         `json:"warmUpRecommendations"`
	Modifications         []ExerciseRecommendation `json:"modifications"`
	GeneralAdvice         []string                 `json:"generalAdvice"`
}
