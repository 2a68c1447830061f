package ocr

import (
	"context"
	"fmt"
	"strings"

	"github.com/otiai10/gosseract/v2"
	"github.com/rs/zerolog/log"
)

// TesseractLayout reports each text line Tesseract finds together with its box.
type TesseractLayout struct{}

func NewTesseractLayout() *TesseractLayout { return &TesseractLayout{} }

func (*TesseractLayout) Name() string { return EngineTesseract }

func (*TesseractLayout) Detect(ctx context.Context, imagePath string, lang Language) ([]Fragment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	client := gosseract.NewClient()
	defer client.Close()
	if err := client.SetLanguage(lang.TesseractCodes()...); err != nil {
		return nil, fmt.Errorf("set language: %w", err)
	}
	if err := client.SetPageSegMode(gosseract.PSM_AUTO_OSD); err != nil {
		return nil, fmt.Errorf("set page mode: %w", err)
	}
	if err := client.SetImage(imagePath); err != nil {
		return nil, fmt.Errorf("set image: %w", err)
	}
	boxes, err := client.GetBoundingBoxes(gosseract.RIL_TEXTLINE)
	if err != nil {
		return nil, fmt.Errorf("ocr error: %w", err)
	}
	fragments := make([]Fragment, 0, len(boxes))
	for _, b := range boxes {
		fragments = append(fragments, Fragment{
			Box:        quad(b.Box),
			Text:       strings.TrimSpace(b.Word),
			Confidence: b.Confidence / 100,
		})
	}
	log.Debug().Str("image", imagePath).Int("lines", len(fragments)).Msg("tesseract layout")
	return fragments, nil
}

// TesseractRecognizer reads a binarized page as a single uniform block.
// Languages overrides the selected language when set.
type TesseractRecognizer struct {
	Languages []string
}

func NewTesseractRecognizer(languages ...string) *TesseractRecognizer {
	return &TesseractRecognizer{Languages: languages}
}

func (*TesseractRecognizer) Name() string { return EngineTesseract }

func (r *TesseractRecognizer) Recognize(ctx context.Context, imagePath string, lang Language) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	langs := r.Languages
	if len(langs) == 0 {
		langs = lang.TesseractCodes()
	}
	client := gosseract.NewClient()
	defer client.Close()
	if err := client.SetLanguage(langs...); err != nil {
		return "", fmt.Errorf("set language: %w", err)
	}
	if err := client.SetPageSegMode(gosseract.PSM_SINGLE_BLOCK); err != nil {
		return "", fmt.Errorf("set page mode: %w", err)
	}
	if err := client.SetImage(imagePath); err != nil {
		return "", fmt.Errorf("set image: %w", err)
	}
	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("ocr error: %w", err)
	}
	log.Debug().Str("image", imagePath).Str("snippet", snippet(text, 120)).Msg("tesseract block")
	return text, nil
}
