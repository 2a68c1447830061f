package ocr

import (
	"bytes"
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
)

var regionColor = color.NRGBA{R: 0, G: 255, B: 0, A: 255}

const regionStroke = 2

// DrawRegions returns a copy of img with every fragment box outlined in green.
func DrawRegions(img image.Image, fragments []Fragment) *image.NRGBA {
	out := imaging.Clone(img)
	for _, f := range fragments {
		if _, ok := f.TopLeft(); !ok {
			continue
		}
		for i := range f.Box {
			drawLine(out, f.Box[i], f.Box[(i+1)%len(f.Box)])
		}
	}
	return out
}

// EncodePNG renders img as PNG bytes.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func drawLine(dst *image.NRGBA, a, b Point) {
	dx, dy := b.X-a.X, b.Y-a.Y
	steps := int(math.Ceil(math.Max(math.Abs(dx), math.Abs(dy))))
	if steps == 0 {
		steps = 1
	}
	for i := 0; i <= steps; i++ {
		t := float64(i) / float64(steps)
		stamp(dst, int(math.Round(a.X+dx*t)), int(math.Round(a.Y+dy*t)))
	}
}

func stamp(dst *image.NRGBA, x, y int) {
	r := dst.Bounds()
	for oy := 0; oy < regionStroke; oy++ {
		for ox := 0; ox < regionStroke; ox++ {
			p := image.Pt(x+ox, y+oy)
			if p.In(r) {
				dst.SetNRGBA(p.X, p.Y, regionColor)
			}
		}
	}
}
