package ocr

import (
	"image"
	"math"
	"sort"
	"strings"
)

// Point is one corner of a detected region, in page pixels.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Fragment is a text region reported by a layout engine. Box holds four
// corners, clockwise from the top-left.
type Fragment struct {
	Box        []Point `json:"box"`
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

// TopLeft returns the smallest y and smallest x over all corners.
// ok is false when the box is not a finite quadrilateral.
func (f Fragment) TopLeft() (Point, bool) {
	if len(f.Box) != 4 {
		return Point{}, false
	}
	tl := Point{X: math.Inf(1), Y: math.Inf(1)}
	for _, p := range f.Box {
		if !finite(p.X) || !finite(p.Y) {
			return Point{}, false
		}
		tl.X = math.Min(tl.X, p.X)
		tl.Y = math.Min(tl.Y, p.Y)
	}
	return tl, true
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

// AssembleText orders fragments top-to-bottom then left-to-right and joins their
// text with "\n". Fragments with a malformed box or empty text are skipped;
// fragments with identical positions keep their input order.
func AssembleText(fragments []Fragment) string {
	text, _ := assemble(fragments)
	return text
}

func assemble(fragments []Fragment) (string, int) {
	type positioned struct {
		at   Point
		text string
	}
	lines := make([]positioned, 0, len(fragments))
	skipped := 0
	for _, f := range fragments {
		at, ok := f.TopLeft()
		if !ok || f.Text == "" {
			skipped++
			continue
		}
		lines = append(lines, positioned{at: at, text: f.Text})
	}
	sort.SliceStable(lines, func(i, j int) bool {
		if lines[i].at.Y != lines[j].at.Y {
			return lines[i].at.Y < lines[j].at.Y
		}
		return lines[i].at.X < lines[j].at.X
	})
	texts := make([]string, len(lines))
	for i, l := range lines {
		texts[i] = l.text
	}
	return strings.Join(texts, "\n"), skipped
}

// quad converts an axis-aligned rectangle into a clockwise four-corner box.
func quad(r image.Rectangle) []Point {
	x0, y0 := float64(r.Min.X), float64(r.Min.Y)
	x1, y1 := float64(r.Max.X), float64(r.Max.Y)
	return []Point{{x0, y0}, {x1, y0}, {x1, y1}, {x0, y1}}
}
