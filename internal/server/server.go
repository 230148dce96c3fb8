// Package server is the HTTP control surface: it starts/stops the watch
// session and reads the shared state store. It never calls pipeline stages
// directly.
package server

import (
	"encoding/json"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/joseph-ayodele/invoice-watcher/internal/common"
	"github.com/joseph-ayodele/invoice-watcher/internal/state"
)

// WatchController is the slice of the ingestion controller the control
// surface needs.
type WatchController interface {
	Start(dir, dest string) error
	Stop() error
}

type Server struct {
	ctrl    WatchController
	store   *state.Store
	metrics http.Handler // nil disables /metrics
	logger  *slog.Logger
}

func New(ctrl WatchController, store *state.Store, metricsHandler http.Handler, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{ctrl: ctrl, store: store, metrics: metricsHandler, logger: logger}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(corsMiddleware)

	r.Get("/health", s.health)
	r.Get("/status", s.status)
	r.Post("/start-watching", s.startWatching)
	r.Post("/stop-watching", s.stopWatching)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}
	return r
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type statusResponse struct {
	IsWatching bool             `json:"is_watching"`
	Stats      statsResponse    `json:"stats"`
	Logs       []state.LogEntry `json:"logs"`
}

type statsResponse struct {
	FilesProcessed uint64 `json:"files_processed"`
	Errors         uint64 `json:"errors"`
}

// status returns a snapshot of the cumulative bounded log buffer; entries
// are not drained on read.
func (s *Server) status(w http.ResponseWriter, _ *http.Request) {
	snap := s.store.Snapshot()
	logs := snap.Logs
	if logs == nil {
		logs = []state.LogEntry{}
	}
	writeJSON(w, http.StatusOK, statusResponse{
		IsWatching: snap.IsWatching,
		Stats: statsResponse{
			FilesProcessed: snap.FilesProcessed,
			Errors:         snap.Errors,
		},
		Logs: logs,
	})
}

func (s *Server) startWatching(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := validateStartWatching(body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	folder, _ := body["folder_path"].(string)
	sheetURL, _ := body["sheet_url"].(string)

	if err := s.ctrl.Start(folder, sheetURL); err != nil {
		s.logger.Error("start watching failed", "folder", folder, "error", err)
		writeError(w, startStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Watcher started successfully."})
}

func (s *Server) stopWatching(w http.ResponseWriter, _ *http.Request) {
	if err := s.ctrl.Stop(); err != nil {
		s.logger.Error("stop watching failed", "error", err)
		writeError(w, stopStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Watcher stopped successfully."})
}

// startStatus maps controller errors onto the control-surface contract:
// user errors are 400, permission failures 403, watcher faults 500.
func startStatus(err error) int {
	switch {
	case errors.Is(err, common.ErrAlreadyWatching),
		errors.Is(err, common.ErrDirectoryNotFound),
		errors.Is(err, common.ErrSinkUnavailable):
		return http.StatusBadRequest
	case errors.Is(err, fs.ErrPermission):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

func stopStatus(err error) int {
	if errors.Is(err, common.ErrNotWatching) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

// corsMiddleware mirrors the permissive policy the desktop frontend expects.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
