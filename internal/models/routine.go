package models

// InputKind identifies how a routine was captured.
type InputKind string

const (
	KindText  InputKind = "text"
	KindImage InputKind = "image"
	KindPDF   InputKind = "pdf"
	KindURL   InputKind = "url"
	KindCSV   InputKind = "csv"
	KindVideo InputKind = "video"
)

// Binary reports whether content of this kind is carried as base64.
func (k InputKind) Binary() bool {
	switch k {
	case KindImage, KindPDF, KindVideo:
		return true
	}
	return false
}

// Valid reports whether k is a known input kind.
func (k InputKind) Valid() bool {
	switch k {
	case KindText, KindImage, KindPDF, KindURL, KindCSV, KindVideo:
		return true
	}
	return false
}

// RoutineInput is the user's captured workout material. Binary kinds carry
// base64 in Content; text kinds carry raw text. CSV input carries the
// serialized history, not the original file.
type RoutineInput struct {
	Kind      InputKind `json:"kind"`
	Content   string    `json:"content"`
	MediaType string    `json:"mediaType,omitempty"`
}

// PersonaID selects the coaching voice.
type PersonaID string

const (
	PersonaSara  PersonaID = "sara"
	PersonaTodor PersonaID = "todor"
	PersonaRaul  PersonaID = "raul"
)
