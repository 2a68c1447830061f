package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"ocrtext/pkg/ocr"

	"github.com/disintegration/imaging"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Writes the binarized page the handwritten path hands to tesseract, and
// optionally the recognized text, so threshold problems can be eyeballed.
func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	in := flag.String("in", "", "input image")
	out := flag.String("out", "", "output PNG (default: <in>.binarized.png)")
	lang := flag.String("lang", "", "also run the handwritten recognizer with this language")
	flag.Parse()
	if *in == "" {
		log.Fatal().Msg("-in required")
	}
	img, err := imaging.Open(*in, imaging.AutoOrientation(true))
	if err != nil {
		log.Fatal().Err(err).Msg("open image")
	}
	dst := *out
	if dst == "" {
		dst = strings.TrimSuffix(*in, filepath.Ext(*in)) + ".binarized.png"
	}
	if err := imaging.Save(ocr.BinarizeHandwritten(img), dst); err != nil {
		log.Fatal().Err(err).Msg("save binarized image")
	}
	fmt.Printf("wrote %s\n", dst)

	if *lang == "" {
		return
	}
	language, err := ocr.ParseLanguage(*lang)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid -lang")
	}
	text, err := ocr.NewTesseractRecognizer().Recognize(context.Background(), dst, language)
	if err != nil {
		log.Fatal().Err(err).Msg("recognize failed")
	}
	fmt.Printf("raw=%q\ncleaned=%q\n", text, ocr.CleanText(text))
}
