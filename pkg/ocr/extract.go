package ocr

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"
)

var allowedExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".pdf":  true,
}

// DetectKind checks the file name extension (when present) and sniffs the
// content. Only JPEG, PNG and PDF are accepted.
func DetectKind(name string, data []byte) (InputKind, error) {
	if err := checkExtension(name); err != nil {
		return "", err
	}
	mt := mimetype.Detect(data)
	switch {
	case mt.Is("application/pdf"):
		return KindPDF, nil
	case mt.Is("image/png"), mt.Is("image/jpeg"):
		return KindImage, nil
	}
	return "", fmt.Errorf("%w: content is %s", ErrUnsupportedType, mt.String())
}

func checkExtension(name string) error {
	if name == "" {
		return nil
	}
	ext := strings.ToLower(filepath.Ext(name))
	if !allowedExtensions[ext] {
		return fmt.Errorf("%w: %q", ErrUnsupportedType, ext)
	}
	return nil
}

// Input is one uploaded document with the user's choices.
type Input struct {
	Name        string
	Data        []byte
	Language    Language
	Handwritten bool
}

// PageResult holds what OCR produced for a single page.
type PageResult struct {
	Index     int
	Raw       string
	Cleaned   string
	Fragments []Fragment
	Skipped   int
	Overlay   []byte
}

// Result is the outcome of one extraction. Raw and Cleaned join the pages with
// "\n" and are trimmed.
type Result struct {
	Kind     InputKind
	Engine   string
	Language Language
	Pages    []PageResult
	Raw      string
	Cleaned  string
	Duration time.Duration
}

// Extractor runs the OCR pipeline. It is safe for concurrent use; the number
// of documents processed at once is bounded.
type Extractor struct {
	layout     LayoutEngine
	recognizer Recognizer
	rasterizer PageRasterizer
	workDir    string
	overlays   bool
	sem        *semaphore.Weighted
}

type Option func(*Extractor)

// WithWorkDir sets where temporary page images are written.
func WithWorkDir(dir string) Option { return func(e *Extractor) { e.workDir = dir } }

// WithMaxConcurrent bounds how many documents are processed at once.
func WithMaxConcurrent(n int64) Option {
	return func(e *Extractor) {
		if n > 0 {
			e.sem = semaphore.NewWeighted(n)
		}
	}
}

// WithOverlays renders detected regions onto each layout page.
func WithOverlays(on bool) Option { return func(e *Extractor) { e.overlays = on } }

func NewExtractor(layout LayoutEngine, recognizer Recognizer, rasterizer PageRasterizer, opts ...Option) *Extractor {
	e := &Extractor{
		layout:     layout,
		recognizer: recognizer,
		rasterizer: rasterizer,
		overlays:   true,
		sem:        semaphore.NewWeighted(1),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Extract runs OCR over in. ErrNoText is returned together with the result when
// the cleaned text is empty. A *ProcessingError is returned when any page fails;
// the result then carries the pages finished before the failure.
func (e *Extractor) Extract(ctx context.Context, in Input) (*Result, error) {
	start := time.Now()
	if in.Language == "" {
		in.Language = LangEnglish
	}
	if err := checkExtension(in.Name); err != nil {
		return nil, err
	}
	if len(in.Data) == 0 {
		return &Result{Language: in.Language}, ErrNoText
	}
	kind, err := DetectKind(in.Name, in.Data)
	if err != nil {
		return nil, err
	}
	if err := e.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer e.sem.Release(1)

	res := &Result{Kind: kind, Language: in.Language, Engine: e.layout.Name()}
	if in.Handwritten {
		res.Engine = e.recognizer.Name()
	}

	pages, err := e.pages(ctx, kind, in.Data)
	if err != nil {
		return nil, &ProcessingError{Kind: kind, Err: err}
	}

	var raw, cleaned strings.Builder
	finish := func() {
		res.Raw = strings.TrimSpace(raw.String())
		res.Cleaned = strings.TrimSpace(cleaned.String())
		res.Duration = time.Since(start)
	}
	for i, page := range pages {
		pr, err := e.processPage(ctx, page, i+1, in)
		if err != nil {
			finish()
			if kind == KindPDF {
				err = fmt.Errorf("page %d: %w", i+1, err)
			}
			return res, &ProcessingError{Kind: kind, Err: err}
		}
		res.Pages = append(res.Pages, pr)
		raw.WriteString(pr.Raw)
		raw.WriteString("\n")
		cleaned.WriteString(pr.Cleaned)
		cleaned.WriteString("\n")
	}
	finish()

	log.Info().
		Str("name", in.Name).
		Str("kind", string(kind)).
		Str("engine", res.Engine).
		Bool("handwritten", in.Handwritten).
		Int("pages", len(res.Pages)).
		Dur("took", res.Duration).
		Str("snippet", snippet(res.Cleaned, 80)).
		Msg("extraction finished")

	if res.Cleaned == "" {
		return res, ErrNoText
	}
	return res, nil
}

func (e *Extractor) pages(ctx context.Context, kind InputKind, data []byte) ([]image.Image, error) {
	if kind == KindPDF {
		return e.rasterizer.Rasterize(ctx, data)
	}
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return []image.Image{img}, nil
}

func (e *Extractor) processPage(ctx context.Context, page image.Image, index int, in Input) (PageResult, error) {
	pr := PageResult{Index: index}
	if err := ctx.Err(); err != nil {
		return pr, err
	}

	if in.Handwritten {
		bin := BinarizeHandwritten(page)
		err := e.withTempPNG(bin, func(path string) error {
			text, err := e.recognizer.Recognize(ctx, path, in.Language)
			pr.Raw = text
			return err
		})
		if err != nil {
			return pr, err
		}
		pr.Cleaned = CleanText(pr.Raw)
		return pr, nil
	}

	err := e.withTempPNG(imaging.Grayscale(page), func(path string) error {
		frags, err := e.layout.Detect(ctx, path, in.Language)
		pr.Fragments = frags
		return err
	})
	if err != nil {
		return pr, err
	}
	text, skipped := assemble(pr.Fragments)
	pr.Raw, pr.Cleaned, pr.Skipped = text, text, skipped
	if skipped > 0 {
		log.Debug().Int("page", index).Int("skipped", skipped).Msg("malformed regions skipped")
	}
	if e.overlays {
		if data, err := EncodePNG(DrawRegions(page, pr.Fragments)); err != nil {
			log.Warn().Err(err).Int("page", index).Msg("render region overlay")
		} else {
			pr.Overlay = data
		}
	}
	return pr, nil
}

func (e *Extractor) withTempPNG(img image.Image, fn func(path string) error) error {
	path, err := saveTempPNG(e.workDir, img)
	if err != nil {
		return err
	}
	defer os.Remove(path)
	return fn(path)
}
