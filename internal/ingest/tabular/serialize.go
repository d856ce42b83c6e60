package tabular

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/juanrdzmb/fitsmartv3/internal/models"
)

// MaxSerializedSessions bounds how much history is sent to the engine.
const MaxSerializedSessions = 5

const historyHeader = "HISTORIAL DE ENTRENAMIENTO (Últimas sesiones):\n"

// Serialize renders the most recent sessions as a compact text document.
// Sessions must already be ordered newest first. Each exercise gets one line
// listing its sets in logged order.
func Serialize(sessions []models.WorkoutSession) string {
	var b strings.Builder
	b.WriteString(historyHeader)

	for _, s := range sessions[:min(len(sessions), MaxSerializedSessions)] {
		fmt.Fprintf(&b, "\nFECHA: %s | TÍTULO: %s\n", s.Date, s.Title)

		var order []string
		sets := make(map[string][]string)
		for _, set := range s.Sets {
			if _, seen := sets[set.Exercise]; !seen {
				order = append(order, set.Exercise)
			}
			sets[set.Exercise] = append(sets[set.Exercise], formatSet(set))
		}
		for _, name := range order {
			fmt.Fprintf(&b, "- %s: %s\n", name, strings.Join(sets[name], ", "))
		}
	}
	return b.String()
}

func formatSet(s models.WorkoutSet) string {
	out := formatNumber(s.Weight) + "kg x " + formatNumber(s.Reps)
	if s.RPE != nil && *s.RPE != 0 {
		out += " @RPE" + formatNumber(*s.RPE)
	}
	return out
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
