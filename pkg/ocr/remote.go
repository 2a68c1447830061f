package ocr

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
)

const maxDetectorResponse = 16 << 20

// RemoteLayout posts page images to an external text detector (for example a
// PaddleOCR sidecar) and decodes its nested-list response.
type RemoteLayout struct {
	URL    string
	Client *http.Client
}

func (*RemoteLayout) Name() string { return EngineRemote }

func (e *RemoteLayout) Detect(ctx context.Context, imagePath string, lang Language) ([]Fragment, error) {
	body, contentType, err := detectorRequestBody(imagePath, lang)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.URL, body)
	if err != nil {
		return nil, fmt.Errorf("build detector request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	client := e.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("detector request: %w", err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDetectorResponse))
	if err != nil {
		return nil, fmt.Errorf("read detector response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("detector returned %d: %s", resp.StatusCode, snippet(string(data), 200))
	}
	fragments, skipped, err := DecodeFragments(data)
	if err != nil {
		return nil, err
	}
	if skipped > 0 {
		log.Warn().Int("skipped", skipped).Str("url", e.URL).Msg("detector returned unreadable entries")
		// unreadable entries stay as empty fragments so the page skip count includes them
		fragments = append(fragments, make([]Fragment, skipped)...)
	}
	return fragments, nil
}

func detectorRequestBody(imagePath string, lang Language) (*bytes.Buffer, string, error) {
	f, err := os.Open(imagePath)
	if err != nil {
		return nil, "", fmt.Errorf("open page image: %w", err)
	}
	defer f.Close()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("lang", string(lang)); err != nil {
		return nil, "", err
	}
	part, err := mw.CreateFormFile("image", filepath.Base(imagePath))
	if err != nil {
		return nil, "", err
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, "", fmt.Errorf("copy page image: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return &buf, mw.FormDataContentType(), nil
}
