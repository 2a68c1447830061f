package ocr

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// LayoutEngine detects text regions on a page image (the printed/layout path).
type LayoutEngine interface {
	Name() string
	Detect(ctx context.Context, imagePath string, lang Language) ([]Fragment, error)
}

// Recognizer reads a whole page as one block of text (the handwritten path).
type Recognizer interface {
	Name() string
	Recognize(ctx context.Context, imagePath string, lang Language) (string, error)
}

const (
	EngineTesseract  = "tesseract"
	EngineDocumentAI = "documentai"
	EngineRemote     = "remote"
)

// EngineConfig selects and configures the layout engine.
type EngineConfig struct {
	Engine          string
	DetectorURL     string
	DetectorTimeout time.Duration
	DocumentAI      DocumentAIConfig
}

// NewLayoutEngine builds the configured layout engine. Engines that hold
// network clients implement io.Closer.
func NewLayoutEngine(ctx context.Context, cfg EngineConfig) (LayoutEngine, error) {
	switch cfg.Engine {
	case "", EngineTesseract:
		return NewTesseractLayout(), nil
	case EngineDocumentAI:
		return NewDocumentAILayout(ctx, cfg.DocumentAI)
	case EngineRemote:
		if cfg.DetectorURL == "" {
			return nil, fmt.Errorf("remote engine requires a detector URL")
		}
		timeout := cfg.DetectorTimeout
		if timeout <= 0 {
			timeout = 60 * time.Second
		}
		return &RemoteLayout{URL: cfg.DetectorURL, Client: &http.Client{Timeout: timeout}}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEngine, cfg.Engine)
	}
}
