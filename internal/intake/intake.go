// Package intake validates captured routine input before any engine call.
package intake

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/h2non/filetype"

	"github.com/juanrdzmb/fitsmartv3/internal/models"
)

var (
	ErrTooLarge    = errors.New("file too large")
	ErrEmptyText   = errors.New("text is empty")
	ErrUnsupported = errors.New("unsupported input")
)

// DefaultVideoType is assumed when a video's type cannot be determined.
const DefaultVideoType = "video/mp4"

// Limits bounds decoded media sizes in bytes.
type Limits struct {
	MaxDocumentBytes int64 `yaml:"max_document_bytes"`
	MaxVideoBytes    int64 `yaml:"max_video_bytes"`
}

// DefaultLimits allows 10 MiB images and PDFs and 20 MiB videos.
func DefaultLimits() Limits {
	return Limits{MaxDocumentBytes: 10 << 20, MaxVideoBytes: 20 << 20}
}

// Validator checks and normalizes inputs.
type Validator struct {
	limits Limits
}

// New creates a Validator. Zero limits fall back to the defaults.
func New(limits Limits) *Validator {
	def := DefaultLimits()
	if limits.MaxDocumentBytes <= 0 {
		limits.MaxDocumentBytes = def.MaxDocumentBytes
	}
	if limits.MaxVideoBytes <= 0 {
		limits.MaxVideoBytes = def.MaxVideoBytes
	}
	return &Validator{limits: limits}
}

// Text builds a text or URL input.
func (v *Validator) Text(kind models.InputKind, text string) (models.RoutineInput, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return models.RoutineInput{}, ErrEmptyText
	}
	switch kind {
	case models.KindText, models.KindCSV:
	case models.KindURL:
		u, err := url.ParseRequestURI(text)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			return models.RoutineInput{}, fmt.Errorf("%w: invalid url %q", ErrUnsupported, text)
		}
	default:
		return models.RoutineInput{}, fmt.Errorf("%w: %q is not a text kind", ErrUnsupported, kind)
	}
	return models.RoutineInput{Kind: kind, Content: text}, nil
}

// Media builds an image, PDF or video input from raw bytes. The kind comes
// from the file's magic bytes; a declared media type that disagrees with
// them is rejected. An oversized file still reports its kind and media
// type, without content, so callers can pick the right message.
func (v *Validator) Media(data []byte, declared string) (models.RoutineInput, error) {
	kind, mediaType, err := sniff(data, declared)
	if err != nil {
		return models.RoutineInput{}, err
	}
	if err := v.checkSize(kind, int64(len(data))); err != nil {
		return models.RoutineInput{Kind: kind, MediaType: mediaType}, err
	}
	return models.RoutineInput{
		Kind:      kind,
		Content:   base64.StdEncoding.EncodeToString(data),
		MediaType: mediaType,
	}, nil
}

// Validate checks an input that arrived already assembled, decoding binary
// content to enforce size limits and fill in a missing media type.
func (v *Validator) Validate(in models.RoutineInput) (models.RoutineInput, error) {
	if !in.Kind.Valid() {
		return models.RoutineInput{}, fmt.Errorf("%w: unknown kind %q", ErrUnsupported, in.Kind)
	}
	if !in.Kind.Binary() {
		out, err := v.Text(in.Kind, in.Content)
		if err != nil {
			return models.RoutineInput{}, err
		}
		out.MediaType = in.MediaType
		return out, nil
	}

	data, err := base64.StdEncoding.DecodeString(in.Content)
	if err != nil {
		return models.RoutineInput{}, fmt.Errorf("%w: content is not base64", ErrUnsupported)
	}
	out, err := v.Media(data, in.MediaType)
	if err != nil {
		return models.RoutineInput{}, err
	}
	if out.Kind != in.Kind {
		return models.RoutineInput{}, fmt.Errorf("%w: declared %s but content is %s", ErrUnsupported, in.Kind, out.Kind)
	}
	return out, nil
}

func (v *Validator) checkSize(kind models.InputKind, size int64) error {
	limit := v.limits.MaxDocumentBytes
	if kind == models.KindVideo {
		limit = v.limits.MaxVideoBytes
	}
	if size > limit {
		return fmt.Errorf("%w: %s of %d bytes exceeds %d", ErrTooLarge, kind, size, limit)
	}
	return nil
}

// sniff classifies data by magic bytes and reconciles it with the declared
// media type.
func sniff(data []byte, declared string) (models.InputKind, string, error) {
	if len(data) == 0 {
		return "", "", fmt.Errorf("%w: empty file", ErrUnsupported)
	}

	var kind models.InputKind
	switch {
	case filetype.IsImage(data):
		kind = models.KindImage
	case filetype.IsVideo(data):
		kind = models.KindVideo
	case filetype.Is(data, "pdf"):
		kind = models.KindPDF
	default:
		return "", "", fmt.Errorf("%w: unrecognized file type", ErrUnsupported)
	}

	declared = strings.ToLower(strings.TrimSpace(declared))
	if declared != "" && declaredKind(declared) != kind {
		return "", "", fmt.Errorf("%w: declared %s but content is %s", ErrUnsupported, declared, kind)
	}

	mediaType := declared
	if mediaType == "" {
		if t, err := filetype.Match(data); err == nil && t != filetype.Unknown {
			mediaType = t.MIME.Value
		}
	}
	if mediaType == "" && kind == models.KindVideo {
		mediaType = DefaultVideoType
	}
	return kind, mediaType, nil
}

func declaredKind(mediaType string) models.InputKind {
	switch {
	case strings.HasPrefix(mediaType, "image/"):
		return models.KindImage
	case strings.HasPrefix(mediaType, "video/"):
		return models.KindVideo
	case mediaType == "application/pdf":
		return models.KindPDF
	}
	return ""
}
