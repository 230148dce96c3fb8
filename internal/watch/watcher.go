package watch

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/joseph-ayodele/invoice-watcher/constants"
	"github.com/joseph-ayodele/invoice-watcher/internal/common"
)

// Subscription is the handle to one directory's file-arrival notifications.
// Its lifecycle is subscribe -> events -> close-with-bounded-wait; closing
// stops new notifications but never cancels pipeline runs already dispatched.
type Subscription struct {
	w      *fsnotify.Watcher
	events chan string
	done   chan struct{}
	logger *slog.Logger
}

// Subscribe starts delivering paths of newly arrived documents (created or
// renamed into place) with an allowed extension under dir. Non-recursive.
func Subscribe(dir string, allowedExts map[string]struct{}, logger *slog.Logger) (*Subscription, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if allowedExts == nil {
		allowedExts = constants.AllowedExtensions
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Error("failed to create fsnotify watcher", "error", err)
		return nil, fmt.Errorf("%w: %v", common.ErrWatcherStart, err)
	}
	if err := w.Add(dir); err != nil {
		_ = w.Close()
		logger.Error("failed to add watch directory", "dir", dir, "error", err)
		return nil, fmt.Errorf("%w: add %q: %v", common.ErrWatcherStart, dir, err)
	}

	s := &Subscription{
		w:      w,
		events: make(chan string, 256),
		done:   make(chan struct{}),
		logger: logger,
	}
	go s.loop(allowedExts)
	return s, nil
}

// Events delivers arrival paths. The channel closes when the subscription
// is torn down.
func (s *Subscription) Events() <-chan string {
	return s.events
}

func (s *Subscription) loop(allowedExts map[string]struct{}) {
	defer close(s.done)
	defer close(s.events)

	for {
		select {
		case e, ok := <-s.w.Events:
			if !ok {
				return
			}
			// A rename into the watched directory arrives as Create for the
			// new name; Rename fires for names leaving, which a re-stat in
			// the controller filters out.
			if e.Op&(fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if !allowed(e.Name, allowedExts) {
				continue
			}
			select {
			case s.events <- e.Name:
			default:
				s.logger.Warn("event buffer full, dropping arrival", "path", e.Name)
			}
		case err, ok := <-s.w.Errors:
			if !ok {
				return
			}
			s.logger.Error("watcher error", "error", err)
		}
	}
}

// Close unsubscribes and waits up to timeout for the notification loop to
// drain and release the underlying watcher.
func (s *Subscription) Close(timeout time.Duration) error {
	if err := s.w.Close(); err != nil {
		s.logger.Warn("watcher close", "error", err)
	}
	select {
	case <-s.done:
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("%w: after %s", common.ErrWatcherStopTimeout, timeout)
	}
}

func allowed(path string, exts map[string]struct{}) bool {
	ext := constants.NormalizeExt(filepath.Ext(path))
	_, ok := exts[ext]
	return ok
}
