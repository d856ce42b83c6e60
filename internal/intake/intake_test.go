package intake

import (
	"bytes"
	"encoding/base64"
	"errors"
	"testing"

	"github.com/juanrdzmb/fitsmartv3/internal/models"
)

var (
	pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}
	pdfHeader = []byte("%PDF-1.7\n%\xe2\xe3\xcf\xd3\n")
	mp4Header = []byte{0, 0, 0, 0x18, 'f', 't', 'y', 'p', 'i', 's', 'o', 'm', 0, 0, 0x02, 0, 'i', 's', 'o', 'm'}
)

func padded(header []byte, size int) []byte {
	return append(append([]byte{}, header...), bytes.Repeat([]byte{0}, size-len(header))...)
}

// TestText verifies trimming, empty rejection and URL checks.
func TestText(t *testing.T) {
	v := New(Limits{})

	in, err := v.Text(models.KindText, "  Lunes: sentadilla 5x5  ")
	if err != nil {
		t.Fatalf("Text: %v", err)
	}
	if in.Content != "Lunes: sentadilla 5x5" {
		t.Errorf("content = %q", in.Content)
	}

	if _, err := v.Text(models.KindText, "   \n"); !errors.Is(err, ErrEmptyText) {
		t.Errorf("blank text error = %v, want ErrEmptyText", err)
	}
	if _, err := v.Text(models.KindURL, "https://example.com/rutina"); err != nil {
		t.Errorf("valid url: %v", err)
	}
	if _, err := v.Text(models.KindURL, "not a url"); !errors.Is(err, ErrUnsupported) {
		t.Errorf("invalid url error = %v, want ErrUnsupported", err)
	}
	if _, err := v.Text(models.KindImage, "abc"); !errors.Is(err, ErrUnsupported) {
		t.Errorf("binary kind error = %v, want ErrUnsupported", err)
	}
}

// TestMediaSniffing verifies kinds come from magic bytes and the media type
// is filled in when not declared.
func TestMediaSniffing(t *testing.T) {
	v := New(Limits{})
	cases := []struct {
		name     string
		data     []byte
		declared string
		kind     models.InputKind
		media    string
	}{
		{"png", pngHeader, "", models.KindImage, "image/png"},
		{"pdf declared", pdfHeader, "application/pdf", models.KindPDF, "application/pdf"},
		{"mp4", mp4Header, "", models.KindVideo, "video/mp4"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in, err := v.Media(tc.data, tc.declared)
			if err != nil {
				t.Fatalf("Media: %v", err)
			}
			if in.Kind != tc.kind {
				t.Errorf("kind = %q, want %q", in.Kind, tc.kind)
			}
			if in.MediaType != tc.media {
				t.Errorf("media type = %q, want %q", in.MediaType, tc.media)
			}
			if in.Content != base64.StdEncoding.EncodeToString(tc.data) {
				t.Error("content is not the base64 of the input")
			}
		})
	}
}

// TestMediaRejects verifies mismatched, unknown and empty media.
func TestMediaRejects(t *testing.T) {
	v := New(Limits{})
	if _, err := v.Media(pngHeader, "video/mp4"); !errors.Is(err, ErrUnsupported) {
		t.Errorf("mismatch error = %v, want ErrUnsupported", err)
	}
	if _, err := v.Media([]byte("plain text"), ""); !errors.Is(err, ErrUnsupported) {
		t.Errorf("unknown error = %v, want ErrUnsupported", err)
	}
	if _, err := v.Media(nil, ""); !errors.Is(err, ErrUnsupported) {
		t.Errorf("empty error = %v, want ErrUnsupported", err)
	}
}

// TestMediaSizeLimits verifies documents and videos have separate limits.
func TestMediaSizeLimits(t *testing.T) {
	v := New(Limits{MaxDocumentBytes: 64, MaxVideoBytes: 128})

	if _, err := v.Media(padded(pngHeader, 65), ""); !errors.Is(err, ErrTooLarge) {
		t.Errorf("oversized image error = %v, want ErrTooLarge", err)
	}
	if _, err := v.Media(padded(pngHeader, 64), ""); err != nil {
		t.Errorf("image at limit: %v", err)
	}
	if _, err := v.Media(padded(mp4Header, 100), ""); err != nil {
		t.Errorf("video under its own limit: %v", err)
	}
	in, err := v.Media(padded(mp4Header, 129), "")
	if !errors.Is(err, ErrTooLarge) {
		t.Errorf("oversized video error = %v, want ErrTooLarge", err)
	}
	if in.Kind != models.KindVideo || in.Content != "" {
		t.Errorf("oversized video input = %+v, want kind video without content", in)
	}
}

// TestDefaultLimits verifies zero limits fall back to 10 and 20 MiB.
func TestDefaultLimits(t *testing.T) {
	v := New(Limits{})
	if v.limits.MaxDocumentBytes != 10<<20 || v.limits.MaxVideoBytes != 20<<20 {
		t.Errorf("limits = %+v", v.limits)
	}
}

// TestValidate verifies assembled inputs are checked against their content.
func TestValidate(t *testing.T) {
	v := New(Limits{})

	in, err := v.Validate(models.RoutineInput{Kind: models.KindImage, Content: base64.StdEncoding.EncodeToString(pngHeader)})
	if err != nil {
		t.Fatalf("Validate image: %v", err)
	}
	if in.MediaType != "image/png" {
		t.Errorf("media type = %q, want image/png", in.MediaType)
	}

	_, err = v.Validate(models.RoutineInput{Kind: models.KindVideo, Content: base64.StdEncoding.EncodeToString(pngHeader)})
	if !errors.Is(err, ErrUnsupported) {
		t.Errorf("kind mismatch error = %v, want ErrUnsupported", err)
	}
	if _, err := v.Validate(models.RoutineInput{Kind: models.KindPDF, Content: "%%%"}); !errors.Is(err, ErrUnsupported) {
		t.Errorf("bad base64 error = %v, want ErrUnsupported", err)
	}
	if _, err := v.Validate(models.RoutineInput{Kind: "doc", Content: "x"}); !errors.Is(err, ErrUnsupported) {
		t.Errorf("unknown kind error = %v, want ErrUnsupported", err)
	}
	if _, err := v.Validate(models.RoutineInput{Kind: models.KindText, Content: ""}); !errors.Is(err, ErrEmptyText) {
		t.Errorf("empty text error = %v, want ErrEmptyText", err)
	}
}
