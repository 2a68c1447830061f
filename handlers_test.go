package main

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"mime/multipart"
	"net/http"
	"strings"
	"testing"
	"time"

	"ocrtext/pkg/config"
	"ocrtext/pkg/ocr"

	"github.com/disintegration/imaging"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type stubLayout struct{ fragments []ocr.Fragment }

func (stubLayout) Name() string { return "stub-layout" }

func (s stubLayout) Detect(context.Context, string, ocr.Language) ([]ocr.Fragment, error) {
	return s.fragments, nil
}

type stubRecognizer struct{ text string }

func (stubRecognizer) Name() string { return "stub-recognizer" }

func (s stubRecognizer) Recognize(context.Context, string, ocr.Language) (string, error) {
	return s.text, nil
}

type stubRasterizer struct{}

func (stubRasterizer) Rasterize(context.Context, []byte) ([]image.Image, error) {
	return []image.Image{imaging.New(40, 40, color.White)}, nil
}

func quadAt(x, y float64) []ocr.Point {
	return []ocr.Point{{X: x, Y: y}, {X: x + 20, Y: y}, {X: x + 20, Y: y + 8}, {X: x, Y: y + 8}}
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Address: ":0", MaxUploadBytes: 1 << 20, ResultTTL: time.Minute, MaxConcurrent: 1},
		OCR:    config.OCRConfig{Engine: "tesseract", HandwrittenLanguage: "eng", PDFDPI: 200},
		Auth:   config.AuthConfig{JWTSecret: "test-secret", AdminUser: "admin"},
	}
}

func newTestRouter(t *testing.T, cfg *config.Config, layout ocr.LayoutEngine, rec ocr.Recognizer) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ex := ocr.NewExtractor(layout, rec, stubRasterizer{}, ocr.WithWorkDir(t.TempDir()))
	results := newResultStore(cfg.Server.ResultTTL)
	t.Cleanup(func() { _ = results.Close() })
	r := gin.New()
	newServer(cfg, ex, results).setupRoutes(r)
	return r
}

func defaultRouter(t *testing.T) *gin.Engine {
	layout := stubLayout{fragments: []ocr.Fragment{
		{Box: quadAt(0, 50), Text: "World"},
		{Box: quadAt(0, 0), Text: "Hello"},
	}}
	return newTestRouter(t, testConfig(), layout, stubRecognizer{text: "  Hello!!  \nA\n  Wor   ld  \n"})
}

func samplePNG(t *testing.T) []byte {
	t.Helper()
	data, err := ocr.EncodePNG(imaging.New(40, 40, color.NRGBA{220, 220, 220, 255}))
	require.NoError(t, err)
	return data
}

func uploadBody(t *testing.T, name string, data []byte, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if name != "" {
		w, err := mw.CreateFormFile("file", name)
		require.NoError(t, err)
		_, _ = w.Write(data)
	}
	require.NoError(t, mw.Close())
	return buf, mw.FormDataContentType()
}

func decodeJSON(t *testing.T, body []byte) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(body, &out), string(body))
	return out
}

func TestIndexPage(t *testing.T) {
	r := defaultRouter(t)
	resp := performRequest(r, http.MethodGet, "/", nil, "", "")
	require.Equal(t, http.StatusOK, resp.Code)
	body := resp.Body.String()
	assert.Contains(t, body, `name="handwritten"`)
	assert.Contains(t, body, `<option value="en" selected>English</option>`)
	assert.Contains(t, body, "English + Hindi")
}

func TestLanguagesEndpoint(t *testing.T) {
	r := defaultRouter(t)
	resp := performRequest(r, http.MethodGet, "/api/languages", nil, "", "")
	require.Equal(t, http.StatusOK, resp.Code)
	var langs []languageOption
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &langs))
	require.Len(t, langs, 6)
	assert.Equal(t, "en", langs[0].Code)
}

func TestExtractLayoutAndDownloads(t *testing.T) {
	r := defaultRouter(t)
	body, ct := uploadBody(t, "scan.png", samplePNG(t), map[string]string{"lang": "en+fr"})
	resp := performRequest(r, http.MethodPost, "/api/extract", body, "", ct)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	out := decodeJSON(t, resp.Body.Bytes())
	assert.Equal(t, "Hello\nWorld", out["cleaned"])
	assert.Equal(t, "Hello\nWorld", out["raw"])
	assert.Equal(t, "stub-layout", out["engine"])
	id, _ := out["id"].(string)
	require.NotEmpty(t, id)

	cleaned := performRequest(r, http.MethodGet, "/results/"+id+"/cleaned_text.txt", nil, "", "")
	require.Equal(t, http.StatusOK, cleaned.Code)
	assert.Equal(t, "text/plain; charset=utf-8", cleaned.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="cleaned_text.txt"`, cleaned.Header().Get("Content-Disposition"))
	assert.Equal(t, "Hello\nWorld", cleaned.Body.String())

	raw := performRequest(r, http.MethodGet, "/results/"+id+"/raw_ocr_output.txt", nil, "", "")
	require.Equal(t, http.StatusOK, raw.Code)
	assert.Equal(t, `attachment; filename="raw_ocr_output.txt"`, raw.Header().Get("Content-Disposition"))

	overlay := performRequest(r, http.MethodGet, "/results/"+id+"/pages/1/regions.png", nil, "", "")
	require.Equal(t, http.StatusOK, overlay.Code)
	assert.Equal(t, "image/png", overlay.Header().Get("Content-Type"))

	result := performRequest(r, http.MethodGet, "/results/"+id, nil, "", "")
	require.Equal(t, http.StatusOK, result.Code)
	assert.Equal(t, "en+fr", decodeJSON(t, result.Body.Bytes())["language"])
}

func TestExtractHandwritten(t *testing.T) {
	r := defaultRouter(t)
	body, ct := uploadBody(t, "note.jpg", samplePNG(t), map[string]string{"handwritten": "true"})
	resp := performRequest(r, http.MethodPost, "/api/extract", body, "", ct)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	out := decodeJSON(t, resp.Body.Bytes())
	assert.Equal(t, "Hello\nWor ld", out["cleaned"])
	assert.Equal(t, "Hello!!  \nA\n  Wor   ld", out["raw"])
	id := out["id"].(string)

	overlay := performRequest(r, http.MethodGet, "/results/"+id+"/pages/1/regions.png", nil, "", "")
	assert.Equal(t, http.StatusNotFound, overlay.Code)
}

func TestExtractValidation(t *testing.T) {
	r := defaultRouter(t)

	body, ct := uploadBody(t, "", nil, map[string]string{"lang": "en"})
	resp := performRequest(r, http.MethodPost, "/api/extract", body, "", ct)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "file missing", decodeJSON(t, resp.Body.Bytes())["error"])

	body, ct = uploadBody(t, "scan.png", samplePNG(t), map[string]string{"lang": "de"})
	resp = performRequest(r, http.MethodPost, "/api/extract", body, "", ct)
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	body, ct = uploadBody(t, "notes.txt", []byte("plain words"), nil)
	resp = performRequest(r, http.MethodPost, "/api/extract", body, "", ct)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "invalid_input", decodeJSON(t, resp.Body.Bytes())["code"])
}

func TestExtractTooLarge(t *testing.T) {
	cfg := testConfig()
	cfg.Server.MaxUploadBytes = 64
	r := newTestRouter(t, cfg, stubLayout{}, stubRecognizer{})
	body, ct := uploadBody(t, "scan.png", samplePNG(t), nil)
	resp := performRequest(r, http.MethodPost, "/api/extract", body, "", ct)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Contains(t, resp.Body.String(), "file too large")
}

func TestExtractNoText(t *testing.T) {
	r := newTestRouter(t, testConfig(), stubLayout{}, stubRecognizer{text: "!\n"})

	body, ct := uploadBody(t, "blank.png", samplePNG(t), nil)
	resp := performRequest(r, http.MethodPost, "/api/extract", body, "", ct)
	require.Equal(t, http.StatusUnprocessableEntity, resp.Code)
	out := decodeJSON(t, resp.Body.Bytes())
	assert.Equal(t, "no_text", out["code"])
	assert.Equal(t, noTextMessage, out["error"])

	body, ct = uploadBody(t, "empty.png", nil, nil)
	resp = performRequest(r, http.MethodPost, "/api/extract", body, "", ct)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
}

func TestFormSubmission(t *testing.T) {
	r := defaultRouter(t)
	body, ct := uploadBody(t, "scan.png", samplePNG(t), map[string]string{"lang": "hi"})
	resp := performRequest(r, http.MethodPost, "/", body, "", ct)
	require.Equal(t, http.StatusOK, resp.Code)
	page := resp.Body.String()
	assert.Contains(t, page, "Extracted Text (Cleaned)")
	assert.Contains(t, page, "Raw OCR Output")
	assert.Contains(t, page, "/cleaned_text.txt")
	assert.Contains(t, page, "/raw_ocr_output.txt")
	assert.Contains(t, page, "Detected Text Regions")
	assert.Contains(t, page, `<option value="hi" selected>Hindi</option>`)

	empty := newTestRouter(t, testConfig(), stubLayout{}, stubRecognizer{})
	body, ct = uploadBody(t, "blank.png", samplePNG(t), nil)
	resp = performRequest(empty, http.MethodPost, "/", body, "", ct)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), "No text detected! Try improving image clarity.")
	assert.NotContains(t, resp.Body.String(), "cleaned_text.txt")

	body, ct = uploadBody(t, "doc.gif", []byte("GIF89a"), nil)
	resp = performRequest(r, http.MethodPost, "/", body, "", ct)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Contains(t, resp.Body.String(), "unsupported file type")
}

func TestUnknownResult(t *testing.T) {
	r := defaultRouter(t)
	for _, path := range []string{"/results/nope", "/results/nope/cleaned_text.txt", "/results/nope/raw_ocr_output.txt"} {
		resp := performRequest(r, http.MethodGet, path, nil, "", "")
		assert.Equal(t, http.StatusNotFound, resp.Code, path)
	}
	resp := performRequest(r, http.MethodGet, "/results/nope/pages/x/regions.png", nil, "", "")
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestLoginAndHistoryAuth(t *testing.T) {
	cfg := testConfig()
	hash, err := bcrypt.GenerateFromPassword([]byte("hunter22"), bcrypt.MinCost)
	require.NoError(t, err)
	cfg.Auth.AdminPasswordHash = string(hash)
	r := newTestRouter(t, cfg, stubLayout{}, stubRecognizer{})

	bad, _ := json.Marshal(map[string]string{"username": "admin", "password": "wrong"})
	resp := performRequest(r, http.MethodPost, "/login", bytes.NewReader(bad), "", "application/json")
	assert.Equal(t, http.StatusUnauthorized, resp.Code)

	good, _ := json.Marshal(map[string]string{"username": "admin", "password": "hunter22"})
	resp = performRequest(r, http.MethodPost, "/login", bytes.NewReader(good), "", "application/json")
	require.Equal(t, http.StatusOK, resp.Code)
	token, _ := decodeJSON(t, resp.Body.Bytes())["token"].(string)
	require.NotEmpty(t, token)

	resp = performRequest(r, http.MethodGet, "/history", nil, "", "")
	assert.Equal(t, http.StatusUnauthorized, resp.Code)

	resp = performRequest(r, http.MethodGet, "/history", nil, "not-a-token", "")
	assert.Equal(t, http.StatusUnauthorized, resp.Code)

	if db == nil {
		resp = performRequest(r, http.MethodGet, "/history", nil, token, "")
		assert.Equal(t, http.StatusServiceUnavailable, resp.Code)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	r := defaultRouter(t)
	resp := performRequest(r, http.MethodGet, "/healthz", nil, "", "")
	assert.Equal(t, http.StatusOK, resp.Code)

	body, ct := uploadBody(t, "scan.png", samplePNG(t), nil)
	performRequest(r, http.MethodPost, "/api/extract", body, "", ct)

	resp = performRequest(r, http.MethodGet, "/metrics", nil, "", "")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.True(t, strings.Contains(resp.Body.String(), "ocrtext_extractions_total"))
}

func TestFormBool(t *testing.T) {
	for _, v := range []string{"on", "true", "1", "YES"} {
		assert.True(t, formBool(v), v)
	}
	for _, v := range []string{"", "off", "false", "0"} {
		assert.False(t, formBool(v), v)
	}
}
