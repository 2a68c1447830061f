package ocr

import (
	"bytes"
	"image/color"
	"testing"

	"github.com/disintegration/imaging"
)

func TestDrawRegions(t *testing.T) {
	img := imaging.New(50, 50, color.NRGBA{255, 255, 255, 255})
	out := DrawRegions(img, []Fragment{
		{Box: box(10, 10, 20, 20), Text: "x"},
		{Box: []Point{{0, 0}}, Text: "bad"},
	})
	if c := out.NRGBAAt(20, 10); c != regionColor {
		t.Fatalf("top edge not drawn: %v", c)
	}
	if c := out.NRGBAAt(20, 20); c.G != 255 || c.R != 255 {
		t.Fatalf("interior should be untouched: %v", c)
	}
	if c := img.NRGBAAt(20, 10); c == regionColor {
		t.Fatalf("source image was modified")
	}
	data, err := EncodePNG(out)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(data, []byte("\x89PNG")) {
		t.Fatalf("not a PNG")
	}
}

func TestCountPDFPagesRejectsGarbage(t *testing.T) {
	if _, err := CountPDFPages([]byte("%PDF-1.4 not really")); err == nil {
		t.Fatalf("expected error for truncated PDF")
	}
}
