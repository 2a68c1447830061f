package ocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/ledongthuc/pdf"
	"github.com/rs/zerolog/log"
)

// DefaultPDFDPI matches the resolution pages are usually scanned at for OCR.
const DefaultPDFDPI = 200

// PageRasterizer turns a PDF document into one image per page, in page order.
type PageRasterizer interface {
	Rasterize(ctx context.Context, data []byte) ([]image.Image, error)
}

// PdftoppmRasterizer renders pages with poppler's pdftoppm.
type PdftoppmRasterizer struct {
	Path    string
	DPI     int
	WorkDir string
}

// NewPdftoppmRasterizer resolves pdftoppm on PATH when path is empty.
func NewPdftoppmRasterizer(path string, dpi int, workDir string) *PdftoppmRasterizer {
	if path == "" {
		if p, err := exec.LookPath("pdftoppm"); err == nil {
			path = p
		} else {
			log.Warn().Msg("pdftoppm not found in PATH, PDF uploads will fail")
		}
	}
	if dpi <= 0 {
		dpi = DefaultPDFDPI
	}
	return &PdftoppmRasterizer{Path: path, DPI: dpi, WorkDir: workDir}
}

func (r *PdftoppmRasterizer) Rasterize(ctx context.Context, data []byte) ([]image.Image, error) {
	pages, err := CountPDFPages(data)
	if err != nil {
		return nil, err
	}
	if pages == 0 {
		return nil, errors.New("PDF has no pages")
	}
	if r.Path == "" {
		return nil, errors.New("pdftoppm (poppler-utils) is required for PDF OCR but not found")
	}

	tmpDir, err := os.MkdirTemp(r.WorkDir, "ocr-pdf-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	pdfPath := filepath.Join(tmpDir, "input.pdf")
	if err := os.WriteFile(pdfPath, data, 0o600); err != nil {
		return nil, fmt.Errorf("failed to write PDF temp file: %w", err)
	}
	prefix := filepath.Join(tmpDir, "page")
	cmd := exec.CommandContext(ctx, r.Path, "-png", "-r", strconv.Itoa(r.DPI), pdfPath, prefix)
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("pdftoppm failed: %w, output: %s", err, snippet(string(out), 300))
	}

	entries, err := os.ReadDir(tmpDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read temp dir: %w", err)
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".png") {
			files = append(files, filepath.Join(tmpDir, e.Name()))
		}
	}
	// pdftoppm zero-pads page numbers to a common width
	sort.Strings(files)

	images := make([]image.Image, 0, len(files))
	for _, f := range files {
		img, err := imaging.Open(f)
		if err != nil {
			return nil, fmt.Errorf("open page %s: %w", filepath.Base(f), err)
		}
		images = append(images, img)
	}
	log.Debug().Int("pages", len(images)).Int("dpi", r.DPI).Msg("pdf rasterized")
	return images, nil
}

// CountPDFPages parses the document structure and returns its page count.
func CountPDFPages(data []byte) (n int, err error) {
	// the pdf reader panics on some malformed inputs
	defer func() {
		if r := recover(); r != nil {
			n, err = 0, fmt.Errorf("invalid PDF: %v", r)
		}
	}()
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return 0, fmt.Errorf("invalid PDF: %w", err)
	}
	return reader.NumPage(), nil
}
