package config

import (
	"context"
	"fmt"
	"io"
	"os"

	"ocrtext/pkg/ocr"
)

// EngineConfig maps the ocr section onto engine settings.
func (o OCRConfig) EngineConfig() ocr.EngineConfig {
	return ocr.EngineConfig{
		Engine:          o.Engine,
		DetectorURL:     o.DetectorURL,
		DetectorTimeout: o.DetectorTimeout,
		DocumentAI: ocr.DocumentAIConfig{
			ProjectID:       o.DocumentAI.ProjectID,
			Location:        o.DocumentAI.Location,
			ProcessorID:     o.DocumentAI.ProcessorID,
			CredentialsFile: o.DocumentAI.CredentialsFile,
		},
	}
}

// BuildExtractor wires the configured engines into an extractor. The returned
// close func releases engine clients.
func (c *Config) BuildExtractor(ctx context.Context) (*ocr.Extractor, func() error, error) {
	if c.OCR.WorkDir != "" {
		if err := os.MkdirAll(c.OCR.WorkDir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("create work dir %s: %w", c.OCR.WorkDir, err)
		}
	}
	layout, err := ocr.NewLayoutEngine(ctx, c.OCR.EngineConfig())
	if err != nil {
		return nil, nil, err
	}
	recognizer := ocr.NewTesseractRecognizer(c.OCR.HandwrittenLanguages()...)
	rasterizer := ocr.NewPdftoppmRasterizer(c.OCR.PdftoppmPath, c.OCR.PDFDPI, c.OCR.WorkDir)
	ex := ocr.NewExtractor(layout, recognizer, rasterizer,
		ocr.WithWorkDir(c.OCR.WorkDir),
		ocr.WithMaxConcurrent(c.Server.MaxConcurrent),
	)
	closeFn := func() error {
		if cl, ok := layout.(io.Closer); ok {
			return cl.Close()
		}
		return nil
	}
	return ex, closeFn, nil
}
