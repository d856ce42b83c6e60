// Package report lays out the analysis report and renders its pages.
//
// Layout works in millimetres on an A4 page with baselines measured from the
// top edge. Rendering to pixels happens separately so the pagination rules
// can be tested without fonts.
package report

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/juanrdzmb/fitsmartv3/internal/models"
)

// Page geometry in millimetres.
const (
	PageWidth    = 210.0
	PageHeight   = 297.0
	Margin       = 20.0
	ContentWidth = 170.0
	// BreakAt is the cursor limit that forces a new page.
	BreakAt = 280.0
	FooterY = 285.0
)

// Fixed report strings.
const (
	Title  = "FitSmart AI - Informe de Rutina"
	Footer = "Generado por FitSmart AI"
)

// ptMM converts font points to millimetres.
const ptMM = 0.3528

// Color is an sRGB color.
type Color struct{ R, G, B uint8 }

var (
	colorAccent = Color{79, 70, 229}
	colorText   = Color{0, 0, 0}
	colorMuted  = Color{100, 100, 100}
	colorDetail = Color{80, 80, 80}
	colorFooter = Color{150, 150, 150}
	colorHeader = Color{240, 240, 240}
)

// Text is a block of lines starting at baseline Y.
type Text struct {
	X, Y       float64
	Lines      []string
	Size       float64
	Bold       bool
	Color      Color
	LineHeight float64
}

// Rect is a filled rectangle.
type Rect struct {
	X, Y, W, H float64
	Fill       Color
}

// Page holds the drawing operations of one page.
type Page struct {
	Rects []Rect
	Texts []Text
}

// Document is a laid-out report.
type Document struct {
	Pages []Page
}

// PageCount returns the number of pages.
func (d *Document) PageCount() int { return len(d.Pages) }

// Layout builds the report for a finished analysis and the profile it was
// produced for.
func Layout(a models.BiomechanicalAnalysis, p models.UserProfile) *Document {
	b := &builder{doc: &Document{Pages: []Page{{}}}, y: Margin}

	b.text(Margin, []string{Title}, 22, true, colorAccent, 0)
	b.y += 15

	b.text(Margin, []string{fmt.Sprintf("Objetivo: %s | Nivel: %s", p.Goal, p.Experience)}, 10, false, colorMuted, 0)
	b.y += 6
	b.text(Margin, []string{fmt.Sprintf("Usuario: %d años | %s", p.Age, p.Gender)}, 10, false, colorMuted, 0)
	b.y += 15

	b.text(Margin, []string{fmt.Sprintf("Puntuación de Rutina: %d/100", a.Score)}, 14, false, colorText, 0)
	b.y += 10

	b.paragraph("Resumen:", a.Summary, 5)
	b.paragraph("Seguridad Biomecánica:", a.SafetyAssessment, 10)

	if len(a.WarmUpRecommendations) > 0 {
		b.need(40)
		b.text(Margin, []string{"Calentamiento Recomendado:"}, 11, true, colorAccent, 0)
		b.y += 8
		for _, wu := range a.WarmUpRecommendations {
			b.need(15)
			b.text(Margin+5, []string{"• " + wu.Name}, 10, true, colorText, 0)
			b.text(Margin+140, []string{wu.Dosage}, 10, false, colorText, 0)
			b.y += 5
			desc := Wrap(wu.Description, 160, 9)
			b.text(Margin+5, desc, 9, false, colorDetail, 5)
			b.y += float64(len(desc))*5 + 3
		}
		b.y += 5
	}

	b.need(20)
	b.page().Rects = append(b.page().Rects, Rect{X: Margin, Y: b.y, W: ContentWidth, H: 10, Fill: colorHeader})
	b.at(Margin+2, b.y+7, []string{"Ejercicio Recomendado"}, 9, true, colorText, 0)
	b.at(Margin+70, b.y+7, []string{"Sets/Reps"}, 9, true, colorText, 0)
	b.at(Margin+110, b.y+7, []string{"Motivo del Cambio"}, 9, true, colorText, 0)
	b.y += 12

	for _, m := range a.Modifications {
		name := Wrap(m.Recommended, 65, 9)
		reason := Wrap(m.Reason, 60, 9)
		rowHeight := float64(max(len(name), len(reason)))*5 + 4
		b.need(rowHeight)
		b.at(Margin+2, b.y+4, name, 9, false, colorText, 5)
		b.at(Margin+70, b.y+4, []string{m.Sets + " x " + m.Reps}, 9, false, colorText, 5)
		b.at(Margin+110, b.y+4, reason, 9, false, colorText, 5)
		b.y += rowHeight
	}

	for i := range b.doc.Pages {
		pg := &b.doc.Pages[i]
		pg.Texts = append(pg.Texts, Text{X: Margin, Y: FooterY, Lines: []string{Footer}, Size: 8, Color: colorFooter})
	}
	return b.doc
}

type builder struct {
	doc *Document
	y   float64
}

func (b *builder) page() *Page { return &b.doc.Pages[len(b.doc.Pages)-1] }

// need starts a new page when space would run past BreakAt.
func (b *builder) need(space float64) {
	if b.y+space > BreakAt {
		b.doc.Pages = append(b.doc.Pages, Page{})
		b.y = Margin
	}
}

func (b *builder) text(x float64, lines []string, size float64, bold bool, c Color, lh float64) {
	b.at(x, b.y, lines, size, bold, c, lh)
}

func (b *builder) at(x, y float64, lines []string, size float64, bold bool, c Color, lh float64) {
	if lh == 0 {
		lh = size * 1.15 * ptMM
	}
	b.page().Texts = append(b.page().Texts, Text{X: x, Y: y, Lines: lines, Size: size, Bold: bold, Color: c, LineHeight: lh})
}

func (b *builder) paragraph(heading, body string, after float64) {
	b.need(30)
	b.text(Margin, []string{heading}, 11, true, colorText, 0)
	b.y += 6
	lines := Wrap(body, ContentWidth, 11)
	b.text(Margin, lines, 11, false, colorText, 6)
	b.y += float64(len(lines))*6 + after
}

// Wrap splits s into lines no wider than width millimetres at the given
// font size. Widths are estimated at half an em per rune. Explicit newlines
// are kept and a word longer than a line is broken by rune. The result has
// at least one line.
func Wrap(s string, width, size float64) []string {
	perLine := int(width / (size * ptMM * 0.5))
	if perLine < 1 {
		perLine = 1
	}
	var out []string
	for _, para := range strings.Split(s, "\n") {
		var line strings.Builder
		n := 0
		flush := func() {
			out = append(out, line.String())
			line.Reset()
			n = 0
		}
		for _, word := range strings.Fields(para) {
			wn := utf8.RuneCountInString(word)
			for wn > perLine {
				if n > 0 {
					flush()
				}
				r := []rune(word)
				out = append(out, string(r[:perLine]))
				word = string(r[perLine:])
				wn -= perLine
			}
			switch {
			case n == 0:
			case n+1+wn > perLine:
				flush()
			default:
				line.WriteByte(' ')
				n++
			}
			line.WriteString(word)
			n += wn
		}
		if n > 0 || len(out) == 0 || para == "" {
			flush()
		}
	}
	return out
}
