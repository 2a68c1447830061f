package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"ocrtext/models"
	"ocrtext/pkg/config"
	"ocrtext/pkg/history"
	"ocrtext/pkg/ocr"
)

// Global handles for helper funcs
var (
	db        *gorm.DB
	extractor *ocr.Extractor
	verbose   bool
)

type batchOptions struct {
	Dir          string
	OutDir       string
	ProcessedDir string
	Language     ocr.Language
	Handwritten  bool
}

// Main: scans an inbox of images and PDFs, writes both text artifacts per file and
// moves finished sources away; optional watch mode.
func main() {
	dirFlag := flag.String("dir", "inbox", "directory to scan for images and PDFs")
	outFlag := flag.String("out", "", "directory for extracted text (default <dir>/out)")
	processedFlag := flag.String("processed", "", "directory finished sources are moved to (default <dir>/processed)")
	langFlag := flag.String("lang", "en", "OCR language (en, en+hi, en+fr, fr, hi, mr)")
	handwritten := flag.Bool("handwritten", false, "use the handwritten recognition path")
	dryRun := flag.Bool("dry-run", false, "only list candidate files")
	watch := flag.Bool("watch", false, "watch directory for new files")
	workers := flag.Int("workers", 1, "worker pool size")
	flag.BoolVar(&verbose, "verbose", false, "verbose per-file logging")
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	lang, err := ocr.ParseLanguage(*langFlag)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid -lang")
	}
	opts := batchOptions{
		Dir:          *dirFlag,
		OutDir:       *outFlag,
		ProcessedDir: *processedFlag,
		Language:     lang,
		Handwritten:  *handwritten,
	}
	if opts.OutDir == "" {
		opts.OutDir = filepath.Join(opts.Dir, "out")
	}
	if opts.ProcessedDir == "" {
		opts.ProcessedDir = filepath.Join(opts.Dir, "processed")
	}

	if *dryRun {
		files := listInputFiles(opts.Dir)
		log.Info().Str("dir", opts.Dir).Int("files", len(files)).Msg("dry-run: no OCR, no moves")
		for _, f := range files {
			log.Info().Str("file", f).Msg("candidate")
		}
		return
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	if cfg.Debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ex, closeEngine, err := cfg.BuildExtractor(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build OCR engines")
	}
	defer closeEngine()
	extractor = ex

	if cfg.HistoryEnabled() {
		if db, err = history.Open(cfg.Database.DSN, cfg.Database.AutoMigrate); err != nil {
			log.Warn().Err(err).Msg("history disabled")
			db = nil
		}
	}

	if err := os.MkdirAll(opts.OutDir, 0o755); err != nil {
		log.Fatal().Err(err).Msg("create output dir")
	}

	files := listInputFiles(opts.Dir)
	log.Info().Int("files", len(files)).Int("workers", effectiveWorkers(*workers)).Msg("scanning")
	runWorkerPool(ctx, opts, feed(files), effectiveWorkers(*workers))

	if *watch {
		if err := watchDirectory(ctx, opts, effectiveWorkers(*workers)); err != nil {
			log.Fatal().Err(err).Msg("watch failed")
		}
	}
}

func effectiveWorkers(w int) int {
	if w <= 0 {
		return 1
	}
	return w
}

func logV(msg string, name string) {
	if verbose {
		log.Info().Str("file", name).Msg(msg)
	}
}

func listInputFiles(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || !isSupportedExt(e.Name()) {
			continue
		}
		out = append(out, e.Name())
	}
	sort.Strings(out)
	return out
}

func isSupportedExt(name string) bool {
	if strings.HasPrefix(name, ".") {
		return false
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".png", ".jpg", ".jpeg", ".pdf":
		return true
	}
	return false
}

func feed(names []string) <-chan string {
	ch := make(chan string, len(names))
	for _, n := range names {
		ch <- n
	}
	close(ch)
	return ch
}

func watchDirectory(ctx context.Context, opts batchOptions, workers int) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()
	if err := w.Add(opts.Dir); err != nil {
		return err
	}
	log.Info().Str("dir", opts.Dir).Msg("watching (debounced)")

	fileCh := make(chan string, 256)
	go func() {
		defer close(fileCh)
		// pending files wait until their writes settle
		pending := map[string]time.Time{}
		ticker := time.NewTicker(250 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Create|fsnotify.Write) != 0 {
					name := filepath.Base(ev.Name)
					if isSupportedExt(name) {
						pending[name] = time.Now()
					}
				}
			case <-ticker.C:
				now := time.Now()
				for name, t := range pending {
					if now.Sub(t) > 300*time.Millisecond {
						fileCh <- name
						delete(pending, name)
					}
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				log.Warn().Err(err).Msg("watch error")
			}
		}
	}()

	runWorkerPool(ctx, opts, fileCh, workers)
	return nil
}

// runWorkerPool processes names from src until it is closed.
func runWorkerPool(ctx context.Context, opts batchOptions, src <-chan string, workers int) {
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for name := range src {
				if ctx.Err() != nil {
					continue
				}
				processSingleFile(ctx, opts, name)
			}
		}()
	}
	wg.Wait()
}

// processSingleFile extracts one inbox file and returns the recorded status.
func processSingleFile(ctx context.Context, opts batchOptions, name string) string {
	srcPath := filepath.Join(opts.Dir, name)
	data, err := os.ReadFile(srcPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.Warn().Err(err).Str("file", name).Msg("read failed")
		}
		return models.StatusFailed
	}

	start := time.Now()
	res, err := extractor.Extract(ctx, ocr.Input{
		Name:        name,
		Data:        data,
		Language:    opts.Language,
		Handwritten: opts.Handwritten,
	})
	status := models.StatusOK
	rec := &models.Extraction{
		FileName:    name,
		Language:    string(opts.Language),
		Handwritten: opts.Handwritten,
		Source:      models.SourceBatch,
		DurationMS:  time.Since(start).Milliseconds(),
	}
	switch {
	case errors.Is(err, ocr.ErrNoText):
		status = models.StatusNoText
		logV("no text detected", name)
	case err != nil:
		status = models.StatusFailed
		rec.FailedReason = err.Error()
		log.Warn().Err(err).Str("file", name).Msg("extraction failed")
	}
	rec.Status = status
	if res != nil {
		rec.Kind = string(res.Kind)
		rec.Engine = res.Engine
		rec.Pages = len(res.Pages)
		rec.SetTextStats(res.Raw, res.Cleaned)
		if status == models.StatusOK {
			if err := writeOutputs(opts.OutDir, name, res); err != nil {
				log.Error().Err(err).Str("file", name).Msg("write outputs")
				return models.StatusFailed
			}
		}
	}
	if db != nil {
		if err := history.Record(db, rec); err != nil {
			log.Warn().Err(err).Str("file", name).Msg("failed to record extraction")
		}
	}
	if status == models.StatusFailed {
		// failed files stay in the inbox for another attempt
		return status
	}
	if err := moveToProcessed(srcPath, opts.ProcessedDir, name); err != nil {
		log.Warn().Err(err).Str("file", name).Msg("failed to move processed file")
	} else {
		logV("moved to processed", name)
	}
	log.Info().Str("file", name).Str("status", status).Int("pages", rec.Pages).Msg("processed")
	return status
}

func outputBase(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name))
}

func writeOutputs(outDir, name string, res *ocr.Result) error {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return err
	}
	base := filepath.Join(outDir, outputBase(name))
	if err := os.WriteFile(base+".cleaned_text.txt", []byte(res.Cleaned), 0o644); err != nil {
		return err
	}
	return os.WriteFile(base+".raw_ocr_output.txt", []byte(res.Raw), 0o644)
}

// moveToProcessed moves a finished file into processedDir. It attempts an
// atomic rename and falls back to copy+remove across devices.
func moveToProcessed(srcFullPath, processedDir, name string) error {
	if err := os.MkdirAll(processedDir, 0o755); err != nil {
		return err
	}
	dst := filepath.Join(processedDir, name)
	if err := os.Rename(srcFullPath, dst); err == nil {
		return nil
	}
	return copyRemove(srcFullPath, dst)
}

func copyRemove(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(dst)
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Remove(src)
}
