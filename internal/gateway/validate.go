package gateway

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/juanrdzmb/fitsmartv3/internal/models"
)

func requireKeys(keys map[string]json.RawMessage, names ...string) error {
	var missing []string
	for _, name := range names {
		v, ok := keys[name]
		if !ok || string(v) == "null" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrSchemaIncomplete, strings.Join(missing, ", "))
	}
	return nil
}

func percent(field string, v int) error {
	if v < 0 || v > 100 {
		return fmt.Errorf("%w: %s %d out of range 0-100", ErrSchemaIncomplete, field, v)
	}
	return nil
}

func blank(s string) bool { return strings.TrimSpace(s) == "" }

func checkPre(r *models.PreAnalysisResult, keys map[string]json.RawMessage) error {
	if err := requireKeys(keys,
		"detectedTrainingType", "detectedGoalGuess", "confidenceScore",
		"summaryObservation", "specificQuestion",
	); err != nil {
		return err
	}
	if blank(r.SummaryObservation) || blank(r.SpecificQuestion) {
		return fmt.Errorf("%w: empty observation or question", ErrSchemaIncomplete)
	}
	return percent("confidenceScore", r.ConfidenceScore)
}

func checkDeep(a *models.BiomechanicalAnalysis, keys map[string]json.RawMessage) error {
	if err := requireKeys(keys,
		"summary", "score", "detectedExercises", "safetyAssessment",
		"alignmentWithGoal", "warmUpRecommendations", "modifications",
		"generalAdvice",
	); err != nil {
		return err
	}
	if err := percent("score", a.Score); err != nil {
		return err
	}
	for i, ex := range a.DetectedExercises {
		if blank(ex.Name) {
			return fmt.Errorf("%w: detectedExercises[%d] has no name", ErrSchemaIncomplete, i)
		}
	}
	for i, m := range a.Modifications {
		if blank(m.Recommended) {
			return fmt.Errorf("%w: modifications[%d] has no recommended exercise", ErrSchemaIncomplete, i)
		}
	}
	return nil
}

func checkVideo(v *models.VideoAnalysisResult, keys map[string]json.RawMessage) error {
	if err := requireKeys(keys,
		"exerciseName", "variant", "repCount", "confidence", "cameraAngle",
		"setupDetails", "metrics", "feedback",
	); err != nil {
		return err
	}
	if v.RepCount < 0 {
		return fmt.Errorf("%w: negative repCount %d", ErrSchemaIncomplete, v.RepCount)
	}
	if err := percent("confidence", v.Confidence); err != nil {
		return err
	}
	if !v.Feedback.Type.Valid() {
		return fmt.Errorf("%w: unknown feedback type %q", ErrSchemaIncomplete, v.Feedback.Type)
	}
	if blank(v.Feedback.Text) {
		return fmt.Errorf("%w: empty feedback text", ErrSchemaIncomplete)
	}
	return nil
}
