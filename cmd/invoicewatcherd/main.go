package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"

	"github.com/joseph-ayodele/invoice-watcher/constants"
	"github.com/joseph-ayodele/invoice-watcher/internal/common"
	"github.com/joseph-ayodele/invoice-watcher/internal/extract"
	"github.com/joseph-ayodele/invoice-watcher/internal/logging"
	"github.com/joseph-ayodele/invoice-watcher/internal/metrics"
	"github.com/joseph-ayodele/invoice-watcher/internal/parse"
	"github.com/joseph-ayodele/invoice-watcher/internal/server"
	"github.com/joseph-ayodele/invoice-watcher/internal/sink"
	"github.com/joseph-ayodele/invoice-watcher/internal/state"
	"github.com/joseph-ayodele/invoice-watcher/internal/watch"
)

func main() {
	_ = godotenv.Load()

	cfg := common.LoadConfig()
	log := logging.NewJSONLogger("invoice-watcher", cfg.Server.LogLevel)
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	store := state.NewStore(cfg.Watch.LogCapacity)
	m := metrics.NewPipeline()

	extractor := extract.NewExtractor(extract.Config{
		Pdftotext:     cfg.OCR.Pdftotext,
		Pdftoppm:      cfg.OCR.Pdftoppm,
		Tesseract:     cfg.OCR.Tesseract,
		TesseractLang: cfg.OCR.TesseractLang,
		DPI:           cfg.OCR.DPI,
		MaxPages:      cfg.OCR.MaxPages,
	}, log).WithProgress(func(msg string) {
		store.AppendLog(constants.SeverityInfo, msg)
	})

	ctrl := watch.NewController(
		watch.Config{
			SettleDelay:   cfg.Watch.SettleDelay,
			StopTimeout:   cfg.Watch.StopTimeout,
			MaxConcurrent: cfg.Watch.MaxConcurrent,
		},
		store,
		extractor,
		parse.NewParser(),
		func(dest string) (sink.Appender, error) {
			return sink.New(cfg.Sink, dest, log)
		},
		m,
		log,
	)

	srv := &http.Server{
		Handler:           server.New(ctrl, store, m.Handler(), log).Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	// PORT=0 binds an ephemeral port; the chosen port is printed so a parent
	// process can discover the control surface.
	lis, err := net.Listen("tcp", "127.0.0.1:"+cfg.Server.Port)
	if err != nil {
		log.Error("listen failed", "port", cfg.Server.Port, "error", err)
		os.Exit(1)
	}
	port := lis.Addr().(*net.TCPAddr).Port
	fmt.Printf("HTTP_PORT=%d\n", port)
	log.Info("control surface listening", "port", port)

	go func() {
		if err := srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http serve failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown", "error", err)
	}
	if err := ctrl.Stop(); err != nil && !errors.Is(err, common.ErrNotWatching) {
		log.Warn("watcher stop", "error", err)
	}
	log.Info("stopped")
}
