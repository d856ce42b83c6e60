package report

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
)

// ErrPageRange is returned for a page index outside the document.
var ErrPageRange = errors.New("page out of range")

// Options configures a Renderer.
type Options struct {
	// Scale is pixels per millimetre. Zero means 4 (840x1188 pages).
	Scale        float64 `yaml:"scale"`
	FontPath     string  `yaml:"font_path"`
	BoldFontPath string  `yaml:"bold_font_path"`
}

// Renderer rasterizes report pages to PNG. It is safe for concurrent use.
type Renderer struct {
	scale   float64
	regular *truetype.Font
	bold    *truetype.Font
}

// NewRenderer parses the configured fonts, falling back to the Go fonts.
func NewRenderer(opts Options) (*Renderer, error) {
	if opts.Scale <= 0 {
		opts.Scale = 4
	}
	regular, err := loadFont(opts.FontPath, goregular.TTF)
	if err != nil {
		return nil, err
	}
	bold, err := loadFont(opts.BoldFontPath, gobold.TTF)
	if err != nil {
		return nil, err
	}
	return &Renderer{scale: opts.Scale, regular: regular, bold: bold}, nil
}

func loadFont(path string, fallback []byte) (*truetype.Font, error) {
	data := fallback
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading font %s: %w", path, err)
		}
		data = b
	}
	f, err := truetype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing font: %w", err)
	}
	return f, nil
}

// Size returns the pixel dimensions of a page.
func (r *Renderer) Size() (int, int) {
	return int(PageWidth * r.scale), int(PageHeight * r.scale)
}

// PNG writes page (zero-based) of doc to w.
func (r *Renderer) PNG(w io.Writer, doc *Document, page int) error {
	if page < 0 || page >= doc.PageCount() {
		return fmt.Errorf("%w: %d of %d", ErrPageRange, page, doc.PageCount())
	}
	width, height := r.Size()
	dc := gg.NewContext(width, height)
	dc.SetRGB(1, 1, 1)
	dc.Clear()

	pg := doc.Pages[page]
	s := r.scale
	for _, rect := range pg.Rects {
		dc.SetRGB255(int(rect.Fill.R), int(rect.Fill.G), int(rect.Fill.B))
		dc.DrawRectangle(rect.X*s, rect.Y*s, rect.W*s, rect.H*s)
		dc.Fill()
	}

	faces := make(map[faceKey]font.Face)
	defer func() {
		for _, f := range faces {
			f.Close()
		}
	}()
	for _, t := range pg.Texts {
		k := faceKey{size: t.Size, bold: t.Bold}
		face, ok := faces[k]
		if !ok {
			face = r.face(k)
			faces[k] = face
		}
		dc.SetFontFace(face)
		dc.SetRGB255(int(t.Color.R), int(t.Color.G), int(t.Color.B))
		for i, line := range t.Lines {
			dc.DrawString(line, t.X*s, (t.Y+float64(i)*t.LineHeight)*s)
		}
	}

	if err := dc.EncodePNG(w); err != nil {
		return fmt.Errorf("encoding page %d: %w", page, err)
	}
	return nil
}

// WritePages renders every page to dir as page-N.png (one-based) and
// returns the written paths.
func (r *Renderer) WritePages(dir string, doc *Document) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating report dir %s: %w", dir, err)
	}
	paths := make([]string, 0, doc.PageCount())
	for i := range doc.Pages {
		path := filepath.Join(dir, fmt.Sprintf("page-%d.png", i+1))
		if err := r.writeFile(path, doc, i); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func (r *Renderer) writeFile(path string, doc *Document, page int) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := r.PNG(f, doc, page); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

type faceKey struct {
	size float64
	bold bool
}

func (r *Renderer) face(k faceKey) font.Face {
	f := r.regular
	if k.bold {
		f = r.bold
	}
	return truetype.NewFace(f, &truetype.Options{
		Size:    k.size * ptMM * r.scale,
		DPI:     72,
		Hinting: font.HintingNone,
	})
}
