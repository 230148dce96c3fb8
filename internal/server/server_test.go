package server

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/joseph-ayodele/invoice-watcher/constants"
	"github.com/joseph-ayodele/invoice-watcher/internal/common"
	"github.com/joseph-ayodele/invoice-watcher/internal/state"
)

type fakeController struct {
	startErr error
	stopErr  error
	started  []string
}

func (f *fakeController) Start(dir, dest string) error {
	if f.startErr != nil {
		return f.startErr
	}
	f.started = append(f.started, dir)
	return nil
}

func (f *fakeController) Stop() error { return f.stopErr }

func newTestServer(ctrl WatchController, store *state.Store) http.Handler {
	if store == nil {
		store = state.NewStore(100)
	}
	return New(ctrl, store, nil, nil).Router()
}

func doJSON(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestHealth(t *testing.T) {
	rr := doJSON(t, newTestServer(&fakeController{}, nil), http.MethodGet, "/health", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["status"] != "ok" {
		t.Errorf("body = %v", body)
	}
}

func TestStartWatchingValidatesBody(t *testing.T) {
	h := newTestServer(&fakeController{}, nil)

	cases := []struct {
		name string
		body string
	}{
		{"not json", "{"},
		{"missing sheet_url", `{"folder_path": "/tmp/inbox"}`},
		{"missing folder_path", `{"sheet_url": "https://docs.google.com/spreadsheets/d/x"}`},
		{"empty folder_path", `{"folder_path": "", "sheet_url": "u"}`},
		{"unknown field", `{"folder_path": "/a", "sheet_url": "u", "extra": 1}`},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			rr := doJSON(t, h, http.MethodPost, "/start-watching", c.body)
			if rr.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rr.Code)
			}
		})
	}
}

func TestStartWatchingStatusMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"already watching", fmt.Errorf("%w: active", common.ErrAlreadyWatching), http.StatusBadRequest},
		{"directory missing", fmt.Errorf("%w: /nope", common.ErrDirectoryNotFound), http.StatusBadRequest},
		{"bad destination", fmt.Errorf("%w: scheme", common.ErrSinkUnavailable), http.StatusBadRequest},
		{"permission", fmt.Errorf("permission denied: %w", fs.ErrPermission), http.StatusForbidden},
		{"watcher fault", fmt.Errorf("%w: inotify limit", common.ErrWatcherStart), http.StatusInternalServerError},
	}
	body := `{"folder_path": "/tmp/inbox", "sheet_url": "https://docs.google.com/spreadsheets/d/x"}`
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			h := newTestServer(&fakeController{startErr: c.err}, nil)
			rr := doJSON(t, h, http.MethodPost, "/start-watching", body)
			if rr.Code != c.want {
				t.Errorf("status = %d, want %d", rr.Code, c.want)
			}
		})
	}
}

func TestStartWatchingSuccess(t *testing.T) {
	ctrl := &fakeController{}
	rr := doJSON(t, newTestServer(ctrl, nil), http.MethodPost, "/start-watching",
		`{"folder_path": "/tmp/inbox", "sheet_url": "https://docs.google.com/spreadsheets/d/x"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rr.Code, rr.Body.String())
	}
	if len(ctrl.started) != 1 || ctrl.started[0] != "/tmp/inbox" {
		t.Errorf("controller starts = %v", ctrl.started)
	}
}

func TestStopWatchingStatusMapping(t *testing.T) {
	h := newTestServer(&fakeController{stopErr: fmt.Errorf("%w", common.ErrNotWatching)}, nil)
	rr := doJSON(t, h, http.MethodPost, "/stop-watching", "")
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rr.Code)
	}

	h = newTestServer(&fakeController{stopErr: fmt.Errorf("%w: after 3s", common.ErrWatcherStopTimeout)}, nil)
	rr = doJSON(t, h, http.MethodPost, "/stop-watching", "")
	if rr.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rr.Code)
	}
}

func TestStatusShape(t *testing.T) {
	store := state.NewStore(100)
	store.BeginSession(state.Session{FolderPath: "/tmp/inbox"})
	store.IncProcessed()
	store.IncErrors()
	store.AppendLog(constants.SeveritySuccess, "Data from inv.pdf written to sink.")

	rr := doJSON(t, newTestServer(&fakeController{}, store), http.MethodGet, "/status", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}

	var body struct {
		IsWatching bool `json:"is_watching"`
		Stats      struct {
			FilesProcessed uint64 `json:"files_processed"`
			Errors         uint64 `json:"errors"`
		} `json:"stats"`
		Logs []state.LogEntry `json:"logs"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if !body.IsWatching || body.Stats.FilesProcessed != 1 || body.Stats.Errors != 1 {
		t.Errorf("body = %+v", body)
	}
	if len(body.Logs) != 1 || body.Logs[0].Level != constants.SeveritySuccess {
		t.Errorf("logs = %+v", body.Logs)
	}
}

func TestStatusEmptyLogsIsArray(t *testing.T) {
	rr := doJSON(t, newTestServer(&fakeController{}, nil), http.MethodGet, "/status", "")
	if !strings.Contains(rr.Body.String(), `"logs":[]`) {
		t.Errorf("logs should serialize as an empty array: %s", rr.Body.String())
	}
}
