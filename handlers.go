package main

import (
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"ocrtext/models"
	"ocrtext/pkg/config"
	"ocrtext/pkg/history"
	"ocrtext/pkg/ocr"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

const (
	cleanedFileName = "cleaned_text.txt"
	rawFileName     = "raw_ocr_output.txt"
	noTextMessage   = "No text detected! Try improving image clarity."
)

//go:embed templates/*.html
var templatesFS embed.FS

type server struct {
	cfg       *config.Config
	extractor *ocr.Extractor
	results   *resultStore
	jwtSecret []byte
}

func newServer(cfg *config.Config, extractor *ocr.Extractor, results *resultStore) *server {
	return &server{
		cfg:       cfg,
		extractor: extractor,
		results:   results,
		jwtSecret: []byte(cfg.Auth.JWTSecret),
	}
}

func (s *server) setupRoutes(r *gin.Engine) {
	r.SetHTMLTemplate(template.Must(template.ParseFS(templatesFS, "templates/*.html")))
	r.Use(metricsMiddleware())

	r.GET("/", s.indexHandler)
	r.POST("/", s.formHandler)
	r.POST("/api/extract", s.extractHandler)
	r.GET("/api/languages", languagesHandler)
	r.GET("/results/:id", s.resultHandler)
	r.GET("/results/:id/"+cleanedFileName, s.downloadHandler(cleanedFileName))
	r.GET("/results/:id/"+rawFileName, s.downloadHandler(rawFileName))
	r.GET("/results/:id/pages/:page/regions.png", s.overlayHandler)
	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.POST("/login", s.loginHandler)

	authGroup := r.Group("")
	authGroup.Use(jwtAuthMiddleware(s.jwtSecret))
	authGroup.GET("/history", listHistoryHandler)
	authGroup.GET("/history/:id", getHistoryHandler)
}

type languageOption struct {
	Code     string `json:"code"`
	Label    string `json:"label"`
	Selected bool   `json:"-"`
}

func languageOptions(selected ocr.Language) []languageOption {
	langs := ocr.Languages()
	out := make([]languageOption, len(langs))
	for i, l := range langs {
		out[i] = languageOption{Code: string(l), Label: l.Label(), Selected: l == selected}
	}
	return out
}

func languagesHandler(c *gin.Context) {
	c.JSON(http.StatusOK, languageOptions(""))
}

// pageData feeds templates/index.html.
type pageData struct {
	Languages   []languageOption
	Handwritten bool
	Result      *storedResult
	Error       string
	NoText      bool
}

func (s *server) indexHandler(c *gin.Context) {
	c.HTML(http.StatusOK, "index.html", pageData{Languages: languageOptions(ocr.LangEnglish)})
}

// formHandler handles the browser form; every outcome renders the page again.
func (s *server) formHandler(c *gin.Context) {
	in, status, err := s.readUpload(c)
	data := pageData{Languages: languageOptions(in.Language), Handwritten: in.Handwritten}
	if err != nil {
		data.Error = err.Error()
		c.HTML(status, "index.html", data)
		return
	}
	res, err := s.extract(c, in, models.SourceWeb)
	data.Result = res
	switch {
	case err == nil:
		c.HTML(http.StatusOK, "index.html", data)
	case errors.Is(err, ocr.ErrNoText):
		data.NoText = true
		c.HTML(http.StatusOK, "index.html", data)
	default:
		status, _ := statusForError(err)
		data.Error = err.Error()
		c.HTML(status, "index.html", data)
	}
}

func (s *server) extractHandler(c *gin.Context) {
	in, status, err := s.readUpload(c)
	if err != nil {
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	res, err := s.extract(c, in, models.SourceAPI)
	if err != nil {
		status, code := statusForError(err)
		body := gin.H{"error": err.Error()}
		if code != "" {
			body["code"] = code
		}
		if errors.Is(err, ocr.ErrNoText) {
			body["error"] = noTextMessage
		}
		if res != nil && res.Cleaned != "" {
			body["result"] = s.resultJSON(res)
		}
		c.JSON(status, body)
		return
	}
	c.JSON(http.StatusOK, s.resultJSON(res))
}

// statusForError maps extraction errors to an HTTP status and a machine code.
func statusForError(err error) (int, string) {
	var perr *ocr.ProcessingError
	switch {
	case errors.Is(err, ocr.ErrNoText):
		return http.StatusUnprocessableEntity, "no_text"
	case errors.Is(err, ocr.ErrUnsupportedType), errors.Is(err, ocr.ErrUnknownLanguage):
		return http.StatusBadRequest, "invalid_input"
	case errors.As(err, &perr):
		return http.StatusUnprocessableEntity, "processing_failed"
	default:
		return http.StatusInternalServerError, ""
	}
}

// readUpload validates the multipart form. The returned input carries the
// language and mode even on error so the form can be re-rendered.
func (s *server) readUpload(c *gin.Context) (ocr.Input, int, error) {
	limit := s.cfg.Server.MaxUploadBytes
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit+1<<20)

	in := ocr.Input{Language: ocr.LangEnglish, Handwritten: formBool(c.PostForm("handwritten"))}
	lang, err := ocr.ParseLanguage(c.PostForm("lang"))
	if err != nil {
		return in, http.StatusBadRequest, err
	}
	in.Language = lang

	file, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
			return in, http.StatusBadRequest, fmt.Errorf("file too large (max %s)", humanSize(limit))
		}
		return in, http.StatusBadRequest, fmt.Errorf("file missing")
	}
	if file.Size > limit {
		return in, http.StatusBadRequest, fmt.Errorf("file too large (max %s)", humanSize(limit))
	}
	f, err := file.Open()
	if err != nil {
		return in, http.StatusBadRequest, fmt.Errorf("cannot read upload: %w", err)
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, limit+1))
	if err != nil {
		return in, http.StatusBadRequest, fmt.Errorf("cannot read upload: %w", err)
	}
	in.Name = file.Filename
	in.Data = data
	return in, 0, nil
}

func humanSize(n int64) string {
	if n >= 1<<20 {
		return fmt.Sprintf("%dMB", n>>20)
	}
	return fmt.Sprintf("%d bytes", n)
}

func formBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}

// extract runs OCR, keeps the result for download and records history.
// The returned result is nil only when nothing was produced at all.
func (s *server) extract(c *gin.Context, in ocr.Input, source string) (*storedResult, error) {
	start := time.Now()
	res, err := s.extractor.Extract(c.Request.Context(), in)
	took := time.Since(start)

	stored := &storedResult{
		ID:          uuid.NewString(),
		FileName:    in.Name,
		Language:    in.Language,
		Handwritten: in.Handwritten,
		CreatedAt:   time.Now().UTC(),
	}
	overlays := map[int][]byte{}
	if res != nil {
		stored.Kind = res.Kind
		stored.Engine = res.Engine
		stored.Raw = res.Raw
		stored.Cleaned = res.Cleaned
		for _, p := range res.Pages {
			stored.Pages = append(stored.Pages, storedPage{
				Index:      p.Index,
				Raw:        p.Raw,
				Cleaned:    p.Cleaned,
				Regions:    len(p.Fragments) - p.Skipped,
				Skipped:    p.Skipped,
				HasOverlay: len(p.Overlay) > 0,
			})
			if len(p.Overlay) > 0 {
				overlays[p.Index] = p.Overlay
			}
		}
	}

	status := models.StatusOK
	switch {
	case errors.Is(err, ocr.ErrNoText):
		status = models.StatusNoText
	case err != nil:
		status = models.StatusFailed
		stored.Error = err.Error()
		log.Warn().Err(err).Str("file", in.Name).Msg("extraction failed")
	}
	observeExtraction(stored, status, took)

	rec := &models.Extraction{
		ResultID:     stored.ID,
		FileName:     in.Name,
		Kind:         string(stored.Kind),
		Language:     string(in.Language),
		Handwritten:  in.Handwritten,
		Engine:       stored.Engine,
		Source:       source,
		Pages:        len(stored.Pages),
		Status:       status,
		FailedReason: stored.Error,
		DurationMS:   took.Milliseconds(),
	}
	rec.SetTextStats(stored.Raw, stored.Cleaned)
	recordExtraction(rec)

	if res == nil {
		return nil, err
	}
	if stored.Cleaned != "" || stored.Raw != "" {
		if serr := s.results.Save(stored, overlays); serr != nil {
			log.Error().Err(serr).Str("id", stored.ID).Msg("failed to keep result")
		}
	}
	return stored, err
}

func (s *server) resultJSON(r *storedResult) gin.H {
	base := "/results/" + r.ID
	pages := make([]gin.H, 0, len(r.Pages))
	for _, p := range r.Pages {
		page := gin.H{"index": p.Index, "regions": p.Regions, "skipped": p.Skipped}
		if p.HasOverlay {
			page["regions_url"] = fmt.Sprintf("%s/pages/%d/regions.png", base, p.Index)
		}
		pages = append(pages, page)
	}
	return gin.H{
		"id":          r.ID,
		"file_name":   r.FileName,
		"kind":        r.Kind,
		"language":    r.Language,
		"handwritten": r.Handwritten,
		"engine":      r.Engine,
		"raw":         r.Raw,
		"cleaned":     r.Cleaned,
		"pages":       pages,
		"expires_at":  r.ExpiresAt,
		"downloads": gin.H{
			"cleaned": base + "/" + cleanedFileName,
			"raw":     base + "/" + rawFileName,
		},
	}
}

func (s *server) loadResult(c *gin.Context) (*storedResult, bool) {
	r, err := s.results.Load(c.Param("id"))
	if err != nil {
		if errors.Is(err, errResultNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "result lookup failed"})
		}
		return nil, false
	}
	return r, true
}

func (s *server) resultHandler(c *gin.Context) {
	if r, ok := s.loadResult(c); ok {
		c.JSON(http.StatusOK, s.resultJSON(r))
	}
}

func (s *server) downloadHandler(name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		r, ok := s.loadResult(c)
		if !ok {
			return
		}
		body := r.Cleaned
		if name == rawFileName {
			body = r.Raw
		}
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
		c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(body))
	}
}

func (s *server) overlayHandler(c *gin.Context) {
	page, err := strconv.Atoi(c.Param("page"))
	if err != nil || page < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid page"})
		return
	}
	png, err := s.results.Overlay(c.Param("id"), page)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no region overlay for this page"})
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

func listHistoryHandler(c *gin.Context) {
	if db == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": history.ErrDisabled.Error()})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	items, total, err := history.List(db, history.Filter{
		Status: c.Query("status"),
		Source: c.Query("source"),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"total": total, "items": items})
}

func getHistoryHandler(c *gin.Context) {
	if db == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": history.ErrDisabled.Error()})
		return
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	rec, err := history.Get(db, uint(id))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusOK, rec)
}
