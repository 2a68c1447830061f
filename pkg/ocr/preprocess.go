package ocr

import (
	"fmt"
	"image"
	"os"

	"github.com/disintegration/imaging"
)

const (
	handwrittenBlock = 11
	handwrittenBias  = 2
)

// gaussianSigma mirrors the kernel width OpenCV derives for a given block size.
func gaussianSigma(block int) float64 {
	return 0.3*(float64(block-1)*0.5-1) + 0.8
}

// BinarizeHandwritten prepares a page for the handwritten recognizer.
func BinarizeHandwritten(img image.Image) *image.NRGBA {
	return adaptiveThreshold(img, handwrittenBlock, handwrittenBias)
}

// adaptiveThreshold binarizes img against a Gaussian-weighted local mean.
// A pixel turns white when it is brighter than the local mean minus bias.
func adaptiveThreshold(img image.Image, block int, bias int) *image.NRGBA {
	if block < 3 {
		block = 3
	}
	if block%2 == 0 {
		block++
	}
	gray := imaging.Grayscale(img)
	mean := imaging.Blur(gray, gaussianSigma(block))
	b := gray.Bounds()
	out := image.NewNRGBA(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			i := gray.PixOffset(x, y)
			th := int(mean.Pix[i]) - bias
			var v uint8
			if int(gray.Pix[i]) > th {
				v = 255
			}
			out.Pix[i], out.Pix[i+1], out.Pix[i+2], out.Pix[i+3] = v, v, v, 255
		}
	}
	return out
}

// saveTempPNG writes img to a fresh PNG under dir and returns its path.
// The caller owns the file.
func saveTempPNG(dir string, img image.Image) (string, error) {
	f, err := os.CreateTemp(dir, "ocr-*.png")
	if err != nil {
		return "", fmt.Errorf("create temp image: %w", err)
	}
	name := f.Name()
	_ = f.Close()
	if err := imaging.Save(img, name); err != nil {
		_ = os.Remove(name)
		return "", fmt.Errorf("write temp image: %w", err)
	}
	return name, nil
}
