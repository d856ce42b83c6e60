package flow

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/juanrdzmb/fitsmartv3/internal/models"
)

// Survey defaults.
const (
	DefaultAge    = 26
	DefaultGender = "Masculino"
	// minAnswerRunes is exclusive: the trimmed answer must be longer.
	minAnswerRunes = 3
)

// Draft seeds a survey from the pre-analysis guesses.
func Draft(pre *models.PreAnalysisResult, id models.PersonaID) models.UserProfile {
	p := models.UserProfile{
		Goal:         models.GoalHypertrophy,
		TrainingType: models.TrainingWeights,
		Experience:   models.ExperienceIntermediate,
		Age:          DefaultAge,
		Gender:       DefaultGender,
		Persona:      id,
	}
	if pre == nil {
		return p
	}
	if g := strings.TrimSpace(pre.DetectedGoalGuess); g != "" {
		p.Goal = g
	}
	if t := strings.TrimSpace(pre.DetectedTrainingType); t != "" {
		p.TrainingType = t
	}
	return p
}

// Validate is the submission gate for a profile.
func Validate(p models.UserProfile) error {
	var problems []string
	if strings.TrimSpace(p.Goal) == "" {
		problems = append(problems, "goal is required")
	}
	if strings.TrimSpace(p.TrainingType) == "" {
		problems = append(problems, "training type is required")
	}
	if p.Age <= 0 {
		problems = append(problems, "age must be positive")
	}
	if utf8.RuneCountInString(strings.TrimSpace(p.CustomAnswer)) <= minAnswerRunes {
		problems = append(problems, fmt.Sprintf("answer must be longer than %d characters", minAnswerRunes))
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrProfileInvalid, strings.Join(problems, "; "))
	}
	return nil
}
