package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/joseph-ayodele/invoice-watcher/constants"
	"github.com/joseph-ayodele/invoice-watcher/internal/common"
	"github.com/joseph-ayodele/invoice-watcher/internal/extract"
	"github.com/joseph-ayodele/invoice-watcher/internal/metrics"
	"github.com/joseph-ayodele/invoice-watcher/internal/parse"
	"github.com/joseph-ayodele/invoice-watcher/internal/sink"
	"github.com/joseph-ayodele/invoice-watcher/internal/state"
)

// FieldParser is Stage 2: text -> record.
type FieldParser interface {
	Parse(text string) parse.InvoiceRecord
}

// AppenderFactory binds a sink destination when a watch session starts.
type AppenderFactory func(dest string) (sink.Appender, error)

type Config struct {
	SettleDelay   time.Duration // wait before touching a freshly arrived file
	StopTimeout   time.Duration // bounded wait for subscription teardown
	MaxConcurrent int64         // cap on simultaneous pipeline runs
}

// Controller reacts to file arrivals and drives extract -> parse -> append
// per file. Each file's run is independent: a failure is logged, counted and
// swallowed, never propagated to the subscription or to other runs.
type Controller struct {
	cfg         Config
	store       *state.Store
	extractor   extract.TextExtractor
	parser      FieldParser
	newAppender AppenderFactory
	metrics     *metrics.Pipeline
	logger      *slog.Logger
	sem         *semaphore.Weighted

	mu  sync.Mutex
	sub *Subscription
}

func NewController(
	cfg Config,
	store *state.Store,
	extractor extract.TextExtractor,
	parser FieldParser,
	newAppender AppenderFactory,
	m *metrics.Pipeline,
	logger *slog.Logger,
) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.SettleDelay <= 0 {
		cfg.SettleDelay = time.Second
	}
	if cfg.StopTimeout <= 0 {
		cfg.StopTimeout = 3 * time.Second
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 4
	}
	return &Controller{
		cfg:         cfg,
		store:       store,
		extractor:   extractor,
		parser:      parser,
		newAppender: newAppender,
		metrics:     m,
		logger:      logger,
		sem:         semaphore.NewWeighted(cfg.MaxConcurrent),
	}
}

// Start begins a watch session on dir, appending results to dest. Directory
// validation runs before the session flag is taken so filesystem I/O stays
// out of the state lock.
func (c *Controller) Start(dir, dest string) error {
	if err := checkDirectory(dir); err != nil {
		return err
	}

	appender, err := c.newAppender(dest)
	if err != nil {
		return err
	}

	if !c.store.BeginSession(state.Session{FolderPath: dir, SinkDestination: dest}) {
		return fmt.Errorf("%w: a session is already active", common.ErrAlreadyWatching)
	}

	sub, err := Subscribe(dir, constants.AllowedExtensions, c.logger)
	if err != nil {
		c.store.EndSession()
		return err
	}

	c.mu.Lock()
	c.sub = sub
	c.mu.Unlock()

	c.store.AppendLog(constants.SeverityInfo, fmt.Sprintf("Starting watcher on directory: %s", dir))
	c.logger.Info("watch session started", "dir", dir, "dest", dest)

	go c.dispatch(sub, appender)
	return nil
}

// Stop ends the active session. New notifications stop being dispatched and
// the subscription teardown is awaited with a bounded timeout; in-flight
// pipeline runs are not cancelled.
func (c *Controller) Stop() error {
	if !c.store.EndSession() {
		return fmt.Errorf("%w: no session is active", common.ErrNotWatching)
	}

	c.mu.Lock()
	sub := c.sub
	c.sub = nil
	c.mu.Unlock()

	if sub != nil {
		if err := sub.Close(c.cfg.StopTimeout); err != nil {
			c.logger.Error("watch teardown timed out", "error", err)
			return err
		}
	}

	c.store.AppendLog(constants.SeverityInfo, "Watcher stopped successfully.")
	c.logger.Info("watch session stopped")
	return nil
}

// dispatch fans arrivals out to independent pipeline runs. The semaphore
// bounds concurrency without stalling notification delivery: acquisition
// happens on the per-file goroutine, and the events channel is buffered.
func (c *Controller) dispatch(sub *Subscription, appender sink.Appender) {
	for path := range sub.Events() {
		go func(p string) {
			if err := c.sem.Acquire(context.Background(), 1); err != nil {
				return
			}
			defer c.sem.Release(1)
			c.processFile(context.Background(), appender, p)
		}(path)
	}
}

// processFile runs the full pipeline for one arrival. Stop does not cancel
// runs already past dispatch, so the context is independent of the session.
func (c *Controller) processFile(ctx context.Context, appender sink.Appender, path string) {
	name := filepath.Base(path)
	runID := uuid.NewString()
	log := c.logger.With("run_id", runID, "file", name)

	// A creation event can race the writer still finalizing the file
	// (e.g. a download being renamed into place).
	time.Sleep(c.cfg.SettleDelay)
	if _, err := os.Stat(path); err != nil {
		log.Warn("file vanished before processing", "error", err)
		return
	}

	start := time.Now()
	if c.metrics != nil {
		c.metrics.StartFile()
	}
	c.store.AppendLog(constants.SeverityInfo, fmt.Sprintf("Detected new file: %s", name))

	res, err := c.extractor.Extract(ctx, path)
	if c.metrics != nil {
		for range res.OCRPages {
			c.metrics.ObserveOCRPage()
		}
	}
	if err != nil {
		c.fail(log, name, start, err)
		return
	}
	if strings.TrimSpace(res.Text) == "" {
		c.fail(log, name, start, fmt.Errorf("%w: no text extracted from %s", common.ErrExtraction, name))
		return
	}
	log.Info("text extracted", "pages", res.Pages, "ocr_pages", len(res.OCRPages), "method", res.Method, "duration_ms", res.Duration.Milliseconds())

	c.store.AppendLog(constants.SeverityInfo, fmt.Sprintf("Parsing data from %s...", name))
	rec := c.parser.Parse(res.Text)
	c.store.AppendLog(constants.SeveritySuccess,
		fmt.Sprintf("Parsed data: vendor=%s date=%s amount=%.2f", rec.Vendor, rec.InvoiceDate, rec.TotalAmount))

	if err := appender.Append(ctx, rec); err != nil {
		c.fail(log, name, start, err)
		return
	}

	c.store.IncProcessed()
	c.store.AppendLog(constants.SeveritySuccess, fmt.Sprintf("Data from %s written to sink.", name))
	if c.metrics != nil {
		c.metrics.FinishFile(time.Since(start), nil)
	}
	log.Info("file processed", "vendor", rec.Vendor, "amount", rec.TotalAmount)
}

// fail records a terminal pipeline failure for one file and swallows it.
func (c *Controller) fail(log *slog.Logger, name string, start time.Time, err error) {
	c.store.IncErrors()
	c.store.AppendLog(constants.SeverityError, fmt.Sprintf("Processing failed for %s: %v", name, err))
	if c.metrics != nil {
		c.metrics.FinishFile(time.Since(start), err)
	}
	log.Error("pipeline failed", "error", err)
}

// checkDirectory validates that dir exists, is a directory, and is readable.
func checkDirectory(dir string) error {
	info, err := os.Stat(dir)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("%w: %q", common.ErrDirectoryNotFound, dir)
	case errors.Is(err, fs.ErrPermission):
		return fmt.Errorf("permission denied for folder %q: %w", dir, err)
	case err != nil:
		return fmt.Errorf("%w: stat %q: %v", common.ErrWatcherStart, dir, err)
	case !info.IsDir():
		return fmt.Errorf("%w: %q is not a directory", common.ErrDirectoryNotFound, dir)
	}

	f, err := os.Open(dir)
	if err != nil {
		if errors.Is(err, fs.ErrPermission) {
			return fmt.Errorf("permission denied for folder %q: %w", dir, err)
		}
		return fmt.Errorf("%w: open %q: %v", common.ErrWatcherStart, dir, err)
	}
	_ = f.Close()
	return nil
}
