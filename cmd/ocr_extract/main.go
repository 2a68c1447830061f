package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"ocrtext/pkg/config"
	"ocrtext/pkg/ocr"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	f := flag.String("file", "", "image or PDF file to OCR")
	lang := flag.String("lang", "en", "language code ("+strings.Join(langCodes(), ", ")+")")
	handwritten := flag.Bool("handwritten", false, "use the handwritten recognition path")
	out := flag.String("out", "", "directory to write cleaned_text.txt and raw_ocr_output.txt (default: print)")
	flag.Parse()
	if *f == "" {
		log.Fatal().Msg("-file required")
	}
	language, err := ocr.ParseLanguage(*lang)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid -lang")
	}
	data, err := os.ReadFile(*f)
	if err != nil {
		log.Fatal().Err(err).Msg("read input")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	ctx := context.Background()
	extractor, closeEngine, err := cfg.BuildExtractor(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build OCR engines")
	}
	defer closeEngine()

	res, err := extractor.Extract(ctx, ocr.Input{
		Name:        filepath.Base(*f),
		Data:        data,
		Language:    language,
		Handwritten: *handwritten,
	})
	if errors.Is(err, ocr.ErrNoText) {
		fmt.Println("No text detected! Try improving image clarity.")
		return
	}
	if err != nil {
		log.Fatal().Err(err).Msg("extraction failed")
	}

	if *out == "" {
		fmt.Printf("engine=%s pages=%d took=%s\n", res.Engine, len(res.Pages), res.Duration)
		fmt.Println("--- cleaned ---")
		fmt.Println(res.Cleaned)
		fmt.Println("--- raw ---")
		fmt.Println(res.Raw)
		return
	}
	if err := os.MkdirAll(*out, 0o755); err != nil {
		log.Fatal().Err(err).Msg("mkdir")
	}
	if err := os.WriteFile(filepath.Join(*out, "cleaned_text.txt"), []byte(res.Cleaned), 0o644); err != nil {
		log.Fatal().Err(err).Msg("write output")
	}
	if err := os.WriteFile(filepath.Join(*out, "raw_ocr_output.txt"), []byte(res.Raw), 0o644); err != nil {
		log.Fatal().Err(err).Msg("write output")
	}
	fmt.Printf("wrote %d pages to %s\n", len(res.Pages), *out)
}

func langCodes() []string {
	var codes []string
	for _, l := range ocr.Languages() {
		codes = append(codes, string(l))
	}
	return codes
}
