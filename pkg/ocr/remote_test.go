package ocr

import (
	"context"
	"image"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRemoteLayoutDetect(t *testing.T) {
	var gotLang string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseMultipartForm(1<<20))
		gotLang = r.FormValue("lang")
		_, _, err := r.FormFile("image")
		assert.NoError(t, err)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[[
			[[[10,50],[40,50],[40,60],[10,60]], ["World", 0.9]],
			[[[10,10],[40,10],[40,20],[10,20]], ["Hello", 0.9]],
			"junk"
		]]`))
	}))
	defer srv.Close()

	path, err := saveTempPNG(t.TempDir(), image.NewGray(image.Rect(0, 0, 8, 8)))
	require.NoError(t, err)

	engine := &RemoteLayout{URL: srv.URL, Client: srv.Client()}
	frags, err := engine.Detect(context.Background(), path, LangEnglishHindi)
	require.NoError(t, err)
	assert.Equal(t, "en+hi", gotLang)
	assert.Equal(t, "Hello\nWorld", AssembleText(frags))
	text, skipped := assemble(frags)
	assert.Equal(t, "Hello\nWorld", text)
	assert.Equal(t, 1, skipped)
}

func TestRemoteLayoutSkippedEntriesReachPageResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[
			[[[0,0],[9,0],[9,9],[0,9]], ["kept", 0.8]],
			"junk",
			[[[1],[2]], ["bad point"]]
		]`))
	}))
	defer srv.Close()

	engine := &RemoteLayout{URL: srv.URL, Client: srv.Client()}
	ex := NewExtractor(engine, &fakeRecognizer{}, fakeRasterizer{}, WithWorkDir(t.TempDir()), WithOverlays(false))
	res, err := ex.Extract(context.Background(), Input{Name: "scan.png", Data: pngBytes(t)})
	require.NoError(t, err)
	require.Len(t, res.Pages, 1)
	assert.Equal(t, 2, res.Pages[0].Skipped)
	assert.Equal(t, "kept", res.Cleaned)
}

func TestRemoteLayoutEmptyPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[[]]`))
	}))
	defer srv.Close()

	path, err := saveTempPNG(t.TempDir(), image.NewGray(image.Rect(0, 0, 8, 8)))
	require.NoError(t, err)

	engine := &RemoteLayout{URL: srv.URL, Client: srv.Client()}
	frags, err := engine.Detect(context.Background(), path, LangEnglish)
	require.NoError(t, err)
	assert.Empty(t, frags)
}

func TestRemoteLayoutDetectorError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	path, err := saveTempPNG(t.TempDir(), image.NewGray(image.Rect(0, 0, 8, 8)))
	require.NoError(t, err)

	engine := &RemoteLayout{URL: srv.URL, Client: srv.Client()}
	_, err = engine.Detect(context.Background(), path, LangEnglish)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestNewLayoutEngine(t *testing.T) {
	e, err := NewLayoutEngine(context.Background(), EngineConfig{Engine: "tesseract"})
	require.NoError(t, err)
	assert.Equal(t, EngineTesseract, e.Name())

	_, err = NewLayoutEngine(context.Background(), EngineConfig{Engine: "remote"})
	assert.Error(t, err)

	_, err = NewLayoutEngine(context.Background(), EngineConfig{Engine: "paddle"})
	assert.ErrorIs(t, err, ErrUnknownEngine)

	_, err = NewLayoutEngine(context.Background(), EngineConfig{Engine: "documentai"})
	assert.Error(t, err)
}
