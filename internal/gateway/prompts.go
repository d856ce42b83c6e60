package gateway

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/juanrdzmb/fitsmartv3/internal/models"
)

// jsonDirective closes every system instruction.
const jsonDirective = "IMPORTANTE: responde SOLO con un objeto JSON válido, sin texto antes ni después y sin bloques de código."

const (
	visualHint     = "Analiza el contenido visual."
	userContentTag = "CONTENIDO USUARIO:\n"
	videoTask      = "Analiza el vídeo con los criterios técnicos del ángulo que detectes. Cuenta solo repeticiones válidas."
)

var funcs = template.FuncMap{"join": strings.Join}

var preTmpl = template.Must(template.New("pre").Funcs(funcs).Parse(`{{.Voice}}

TAREA: revisa {{if .History}}el historial de entrenamiento{{else}}la rutina{{end}} del usuario y prepara el terreno para el análisis a fondo.

1. Clasifica el tipo de entrenamiento y el objetivo probable. Usa una de estas etiquetas:
   Tipos: {{join .TrainingTypes " | "}}
   Objetivos: {{join .Goals " | "}}

2. "summaryObservation": escríbela con tu jerga y tu personalidad al completo.
{{- if .History}}
   Es un HISTORIAL: valora la constancia, la elección de ejercicios y las cargas de las últimas sesiones.
{{- else}}
   Es una RUTINA: valora su estructura general.
{{- end}}

3. "specificQuestion": UNA sola pregunta estratégica, con tu jerga. Prohibidas las preguntas de sí o no.
{{- if .History}}
   Pregunta por la recuperación, por un ejercicio estancado que veas en el historial o por sensaciones recientes.
{{- end}}

{{.Directive}}

Forma del JSON:
{
  "detectedTrainingType": "una etiqueta de Tipos",
  "detectedGoalGuess": "una etiqueta de Objetivos",
  "confidenceScore": 0-100,
  "summaryObservation": "observación inicial con personalidad",
  "specificQuestion": "pregunta abierta con personalidad"
}
`))

var deepTmpl = template.Must(template.New("deep").Parse(`{{.Voice}}

TAREA: auditoría biomecánica completa {{if .History}}del historial de entrenamiento{{else}}de la rutina{{end}}.

DATOS:
- Perfil: {{.Profile.Age}} años, nivel {{.Profile.Experience}}, objetivo "{{.Profile.Goal}}".
- Lesiones: "{{.Profile.Injuries}}".
- Respuesta a la pregunta clave: "{{.Profile.CustomAnswer}}".
{{- if .Pre}}
- Primera impresión: {{.Pre.SummaryObservation}}
{{- end}}

SALIDA:
1. "detectedExercises": {{if .History}}los ejercicios principales de las últimas sesiones{{else}}los ejercicios de la rutina{{end}}. Indica "type" (Compuesto, Aislamiento, Cardio o Movilidad) y "variantDetected". En "technicalTip" da un consejo de una frase sobre la ejecución o un error típico, con tu personalidad.
2. "summary": veredicto final con tu jerga.{{if .History}} Di si hay sobrecarga progresiva y si el volumen encaja con "{{.Profile.Goal}}".{{end}}
3. "safetyAssessment": riesgos biomecánicos (volumen excesivo, mal orden de ejercicios...), en tu tono.
4. "alignmentWithGoal": cómo encaja con el objetivo.
5. "warmUpRecommendations": 2 o 3 ejercicios de calentamiento específicos para ESTA rutina y el objetivo "{{.Profile.Goal}}". La "description" con tu personalidad.
6. "modifications": cambios propuestos. El "reason" con tu jerga.{{if .History}} Basa los cambios en lo que falta o se hace mal en el historial.{{end}}
7. "score": nota global de 0 a 100.

{{.Directive}}

Forma del JSON:
{
  "summary": "veredicto",
  "score": 0-100,
  "detectedExercises": [
    {"name": "Sentadilla", "targetGroup": "Pierna", "type": "Compuesto", "variantDetected": "Barra alta", "technicalTip": "consejo"}
  ],
  "safetyAssessment": "evaluación de seguridad",
  "alignmentWithGoal": "evaluación del objetivo",
  "warmUpRecommendations": [
    {"name": "ejercicio", "description": "descripción breve", "dosage": "2 series x 15 reps"}
  ],
  "modifications": [
    {"original": "ejercicio original o N/A", "recommended": "ejercicio propuesto", "sets": "3", "reps": "8-12", "rest": "90s", "reason": "motivo", "youtubeQuery": "búsqueda"}
  ],
  "generalAdvice": ["consejo 1", "consejo 2"]
}
`))

var userDataTmpl = template.Must(template.New("user").Parse(`DATOS USUARIO:
Objetivo: {{.Goal}}
Nivel: {{.Experience}}
Tipo: {{.TrainingType}}
Respuesta a pregunta clave: {{.CustomAnswer}}
Lesiones: {{.Injuries}}
`))

// videoInstruction is persona-free: the video flow judges like a referee.
var videoInstruction = `Eres juez de powerlifting de nivel IPF y experto en biomecánica. Analizas vídeos de levantamientos con criterios distintos según el ángulo de cámara.

CRITERIOS POR EJERCICIO Y ÁNGULO

1. PESO MUERTO CONVENCIONAL
- Lateral (preferente). Setup: barra sobre el mediopié, a la altura del tobillo; espalda neutra sin flexión lumbar. Movimiento: despegue sin balanceo, barra pegada al cuerpo, extensión completa de cadera.
- Frontal. Setup: pies alineados con los tobillos, ancho de hombros. Movimiento: las rodillas no se adelantan antes que la cadera.

2. PESO MUERTO SUMO
- Lateral. Setup: columna alineada sin flexión lumbar, barra sobre el mediopié. Movimiento: la cadera no sube antes que las rodillas, trayectoria vertical, extensión completa de cadera.
- Frontal. Setup: pies más abiertos que los hombros, cadera abierta, manos por dentro de las piernas. Movimiento: las rodillas no colapsan hacia delante al arrancar.

3. SENTADILLA TRASERA
- Lateral (prioriza el recorrido). Setup: barra alta en trapecio o baja en deltoides posterior, ángulo de piernas. Movimiento: PROFUNDIDAD rompiendo el paralelo, control de espalda, cadera alineada, tempo de bajada y subida.
- Frontal (prioriza la alineación). Setup: pies simétricos. Movimiento: SIN valgo de rodilla, rodilla alineada con el pie, cadera simétrica.

4. PRESS DE BANCA
- Lateral. Setup: pies firmes en el suelo, arco lumbar. Movimiento: ángulo de bajada al pecho, pausa completa sin rebote, empuje estable, bloqueo final.
- Frontal. Movimiento: codos ni demasiado abiertos ni demasiado cerrados.

CONTEO Y EVALUACIÓN
- Ángulo: decide si es Lateral, Frontal u Oblicuo (45º). Si el ángulo no deja ver un criterio (por ejemplo la profundidad desde el frente), dilo en el feedback.
- Conteo estricto: ignora el setup (caminar, ajustar el cinturón). Solo cuentan repeticiones completas con fase excéntrica y concéntrica.
- Feedback: sé concreto. Un fallo de seguridad es de tipo "correction"; una mejora de rendimiento es "optimization".

` + jsonDirective + `

Forma del JSON:
{
  "exerciseName": "texto",
  "variant": "texto (p. ej. Peso muerto sumo)",
  "repCount": entero,
  "repsTimeline": ["00:XX-00:YY"],
  "confidence": 0-100,
  "cameraAngle": "Lateral | Frontal | 45º",
  "setupDetails": [
    {"label": "punto", "value": "descripción", "status": "OK | ATTENTION", "recommendation": "opcional", "shoppingQuery": "opcional"}
  ],
  "metrics": {"depth": "Válida | Alta | N/A", "lockout": "Sólido | Blando | N/A", "rom": "Completo | Parcial", "tempo": "2-0-1", "barPath": "Vertical", "stability": "Estable | Inestable"},
  "feedback": {"type": "correction | optimization", "text": "explicación técnica", "positive": ["..."], "negative": ["..."], "youtubeQuery": "..."}
}
`

type preData struct {
	Voice         string
	History       bool
	TrainingTypes []string
	Goals         []string
	Directive     string
}

type deepData struct {
	Voice     string
	History   bool
	Profile   models.UserProfile
	Pre       *models.PreAnalysisResult
	Directive string
}

func render(t *template.Template, data any) (string, error) {
	var b strings.Builder
	if err := t.Execute(&b, data); err != nil {
		return "", fmt.Errorf("rendering %s prompt: %w", t.Name(), err)
	}
	return b.String(), nil
}

// contentParts turns a routine input into request parts. Text kinds may be
// prefixed with a label; binary kinds become inline media, optionally
// followed by a hint.
func contentParts(in models.RoutineInput, textPrefix, mediaHint string) []Part {
	if !in.Kind.Binary() {
		return []Part{TextPart(textPrefix + in.Content)}
	}
	parts := []Part{MediaPart(in.MediaType, in.Content)}
	if mediaHint != "" {
		parts = append(parts, TextPart(mediaHint))
	}
	return parts
}
