package extract

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/joseph-ayodele/invoice-watcher/internal/common"
)

type Config struct {
	Pdftotext string // binary name or absolute path; if empty -> "pdftotext"
	Pdftoppm  string // binary name or absolute path; if empty -> "pdftoppm"
	Tesseract string // binary name or absolute path; if empty -> "tesseract"

	TesseractLang string // default "eng"
	DPI           int    // rasterization DPI for pages lacking a text layer, default 300
	MaxPages      int    // 0 = no limit
}

// Extractor produces one text blob per document: the native text layer where
// a page has one, OCR of the rasterized page where it doesn't.
type Extractor struct {
	cfg      Config
	runner   Runner
	logger   *slog.Logger
	progress func(msg string) // activity-log hook, may be nil
}

func NewExtractor(cfg Config, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Pdftotext == "" {
		cfg.Pdftotext = "pdftotext"
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.TesseractLang == "" {
		cfg.TesseractLang = "eng"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 300
	}
	return &Extractor{cfg: cfg, runner: execRunner{}, logger: logger}
}

// WithRunner swaps the command runner; tests use this to record OCR calls.
func (e *Extractor) WithRunner(r Runner) *Extractor {
	e.runner = r
	return e
}

// WithProgress registers a callback invoked when a page needs OCR fallback.
func (e *Extractor) WithProgress(fn func(msg string)) *Extractor {
	e.progress = fn
	return e
}

// Extract reads the document's native text per page, OCRing pages whose text
// layer is empty, and joins the page texts with newlines in page order.
// An unreadable document surfaces as an error, never as an empty string.
func (e *Extractor) Extract(ctx context.Context, path string) (Result, error) {
	start := time.Now()

	if _, err := os.Stat(path); err != nil {
		e.logger.Error("document not readable", "path", path, "error", err)
		return Result{}, fmt.Errorf("%w: stat %s: %v", common.ErrDocumentOpen, path, err)
	}

	pages, warns, err := e.pdfToText(ctx, path)
	if err != nil {
		return Result{Warnings: warns}, fmt.Errorf("%w: pdftotext %s: %v", common.ErrDocumentOpen, filepath.Base(path), err)
	}
	if e.cfg.MaxPages > 0 && len(pages) > e.cfg.MaxPages {
		pages = pages[:e.cfg.MaxPages]
	}

	var parts []string
	var ocrPages []int
	for i, pg := range pages {
		pageNum := i + 1
		if strings.TrimSpace(pg) != "" {
			parts = append(parts, strings.TrimSpace(pg))
			continue
		}

		e.logger.Debug("page has no text layer, falling back to ocr", "path", path, "page", pageNum)
		if e.progress != nil {
			e.progress(fmt.Sprintf("Page %d has no text layer, falling back to OCR.", pageNum))
		}
		ocrText, w, err := e.ocrPage(ctx, path, pageNum)
		warns = append(warns, w...)
		if err != nil {
			return Result{Pages: len(pages), OCRPages: ocrPages, Warnings: warns},
				fmt.Errorf("%w: ocr page %d of %s: %v", common.ErrExtraction, pageNum, filepath.Base(path), err)
		}
		ocrPages = append(ocrPages, pageNum)
		if strings.TrimSpace(ocrText) != "" {
			parts = append(parts, strings.TrimSpace(ocrText))
		}
	}

	method := "pdf-text"
	if len(ocrPages) > 0 {
		method = "pdf-text+ocr"
	}
	return Result{
		Text:     strings.Join(parts, "\n"),
		Pages:    len(pages),
		OCRPages: ocrPages,
		Method:   method,
		Duration: time.Since(start),
		Warnings: warns,
	}, nil
}

// pdfToText returns the native text of each page, in page order. pdftotext
// separates pages with form feeds; the trailing separator is dropped.
func (e *Extractor) pdfToText(ctx context.Context, path string) ([]string, []string, error) {
	// pdftotext -layout -enc UTF-8 -eol unix <path> -
	out, errb, err := e.runner.Run(ctx, e.cfg.Pdftotext, "-layout", "-enc", "UTF-8", "-eol", "unix", path, "-")
	if err != nil {
		return nil, []string{string(errb)}, err
	}
	text := string(out)
	pages := strings.Split(text, "\f")
	if n := len(pages); n > 1 && strings.TrimSpace(pages[n-1]) == "" {
		pages = pages[:n-1]
	}
	return pages, nil, nil
}

// ocrPage rasterizes a single page and runs tesseract against the image.
func (e *Extractor) ocrPage(ctx context.Context, path string, pageNum int) (string, []string, error) {
	tmpDir, err := os.MkdirTemp("", "iw-pp-*")
	if err != nil {
		return "", nil, err
	}
	defer func() {
		if err := os.RemoveAll(tmpDir); err != nil {
			e.logger.Warn("failed to remove temp dir", "dir", tmpDir, "error", err)
		}
	}()

	prefix := filepath.Join(tmpDir, "page")
	// pdftoppm -r <dpi> -f N -l N -png <in.pdf> <tmp/page>
	_, errb, err := e.runner.Run(ctx, e.cfg.Pdftoppm,
		"-r", fmt.Sprintf("%d", e.cfg.DPI),
		"-f", fmt.Sprintf("%d", pageNum),
		"-l", fmt.Sprintf("%d", pageNum),
		"-png", path, prefix)
	if err != nil {
		return "", []string{string(errb)}, err
	}

	matches, _ := filepath.Glob(prefix + "-*.png")
	sort.Strings(matches)
	if len(matches) == 0 {
		return "", []string{"pdftoppm produced no images"}, fmt.Errorf("page %d not rendered", pageNum)
	}

	// tesseract <img> stdout -l <lang>
	out, errb, err := e.runner.Run(ctx, e.cfg.Tesseract, matches[0], "stdout", "-l", e.cfg.TesseractLang)
	if err != nil {
		return "", []string{string(errb)}, fmt.Errorf("tesseract: %w", err)
	}
	return string(out), nil, nil
}
