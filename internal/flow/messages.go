package flow

import (
	"errors"

	"github.com/juanrdzmb/fitsmartv3/internal/ingest/tabular"
	"github.com/juanrdzmb/fitsmartv3/internal/intake"
)

// User-facing messages, one per failure site.
const (
	MsgPreFailed      = "Error analizando la rutina. Inténtalo de nuevo."
	MsgDeepFailed     = "Error en el análisis profundo. Verifica tu conexión."
	MsgVideoFailed    = "No se pudo analizar el video. Intenta con un clip más corto."
	MsgDocumentLarge  = "Máximo 10MB para imágenes/PDF."
	MsgVideoLarge     = "El video debe pesar menos de 20MB para el análisis."
	MsgEmptyText      = "Escribe o pega tu rutina antes de continuar."
	MsgUnsupported    = "Formato de archivo no soportado."
	MsgUnreadableFile = "No se pudo leer este archivo."
)

const (
	loadingDeep  = "Preparando el veredicto final..."
	loadingVideo = "Analizando tu técnica..."
)

// InputMessage localizes an input rejection. video selects the size message.
func InputMessage(err error, video bool) string {
	switch {
	case errors.Is(err, intake.ErrTooLarge) && video:
		return MsgVideoLarge
	case errors.Is(err, intake.ErrTooLarge):
		return MsgDocumentLarge
	case errors.Is(err, intake.ErrEmptyText):
		return MsgEmptyText
	case errors.Is(err, tabular.ErrUnmappable), errors.Is(err, tabular.ErrEmpty):
		return MsgUnreadableFile
	}
	return MsgUnsupported
}
