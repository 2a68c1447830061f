package ocr

import (
	"context"
	"fmt"
	"os"
	"strings"

	documentai "cloud.google.com/go/documentai/apiv1"
	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"google.golang.org/api/option"
)

// DocumentAIConfig names a Google Document AI OCR processor.
type DocumentAIConfig struct {
	ProjectID       string
	Location        string
	ProcessorID     string
	CredentialsFile string
}

func (c DocumentAIConfig) processorName() string {
	return fmt.Sprintf("projects/%s/locations/%s/processors/%s", c.ProjectID, c.Location, c.ProcessorID)
}

// DocumentAILayout sends page images to a Document AI OCR processor and
// reports every detected line with its polygon.
type DocumentAILayout struct {
	cfg    DocumentAIConfig
	client *documentai.DocumentProcessorClient
}

func NewDocumentAILayout(ctx context.Context, cfg DocumentAIConfig) (*DocumentAILayout, error) {
	if cfg.ProjectID == "" || cfg.Location == "" || cfg.ProcessorID == "" {
		return nil, fmt.Errorf("documentai engine requires project_id, location and processor_id")
	}
	opts := []option.ClientOption{
		option.WithEndpoint(fmt.Sprintf("%s-documentai.googleapis.com:443", cfg.Location)),
	}
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	client, err := documentai.NewDocumentProcessorClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Document AI client: %w", err)
	}
	return &DocumentAILayout{cfg: cfg, client: client}, nil
}

func (*DocumentAILayout) Name() string { return EngineDocumentAI }

func (e *DocumentAILayout) Close() error { return e.client.Close() }

func (e *DocumentAILayout) Detect(ctx context.Context, imagePath string, lang Language) ([]Fragment, error) {
	content, err := os.ReadFile(imagePath)
	if err != nil {
		return nil, fmt.Errorf("read page image: %w", err)
	}
	req := &documentaipb.ProcessRequest{
		Name: e.cfg.processorName(),
		Source: &documentaipb.ProcessRequest_RawDocument{
			RawDocument: &documentaipb.RawDocument{
				Content:  content,
				MimeType: "image/png",
			},
		},
		SkipHumanReview: true,
		ProcessOptions: &documentaipb.ProcessOptions{
			OcrConfig: &documentaipb.OcrConfig{
				Hints: &documentaipb.OcrConfig_Hints{LanguageHints: lang.Parts()},
			},
		},
	}
	resp, err := e.client.ProcessDocument(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to process document: %w", err)
	}
	return fragmentsFromDocument(resp.GetDocument()), nil
}

// fragmentsFromDocument flattens the lines of every page into fragments with
// pixel coordinates.
func fragmentsFromDocument(doc *documentaipb.Document) []Fragment {
	if doc == nil {
		return nil
	}
	var out []Fragment
	for _, page := range doc.GetPages() {
		for _, line := range page.GetLines() {
			layout := line.GetLayout()
			out = append(out, Fragment{
				Box:        polygon(layout.GetBoundingPoly(), page.GetDimension()),
				Text:       strings.TrimSpace(textFromLayout(layout, doc.GetText())),
				Confidence: float64(layout.GetConfidence()),
			})
		}
	}
	return out
}

// polygon prefers absolute vertices and falls back to normalized ones scaled
// by the page dimension.
func polygon(poly *documentaipb.BoundingPoly, dim *documentaipb.Document_Page_Dimension) []Point {
	if poly == nil {
		return nil
	}
	if vs := poly.GetVertices(); len(vs) > 0 {
		pts := make([]Point, len(vs))
		for i, v := range vs {
			pts[i] = Point{X: float64(v.GetX()), Y: float64(v.GetY())}
		}
		return pts
	}
	w, h := float64(dim.GetWidth()), float64(dim.GetHeight())
	nvs := poly.GetNormalizedVertices()
	pts := make([]Point, len(nvs))
	for i, v := range nvs {
		pts[i] = Point{X: float64(v.GetX()) * w, Y: float64(v.GetY()) * h}
	}
	return pts
}

// textFromLayout extracts the text a layout points at inside the document text.
func textFromLayout(layout *documentaipb.Document_Page_Layout, fullText string) string {
	if layout == nil || layout.TextAnchor == nil {
		return ""
	}
	runes := []rune(fullText)
	var sb strings.Builder
	for _, seg := range layout.TextAnchor.TextSegments {
		start, end := int(seg.StartIndex), int(seg.EndIndex)
		if start < 0 {
			start = 0
		}
		if end > len(runes) {
			end = len(runes)
		}
		if start > end {
			start = end
		}
		sb.WriteString(string(runes[start:end]))
	}
	return sb.String()
}
