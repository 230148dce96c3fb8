// Package state holds the one shared mutable aggregate of the process: the
// watch session, outcome counters, and the bounded activity log. Every access
// goes through an atomic operation on Store; no component touches fields
// directly.
package state

import (
	"sync"
	"time"

	"github.com/joseph-ayodele/invoice-watcher/constants"
)

// Session describes the single active watch, if any.
type Session struct {
	FolderPath      string
	SinkDestination string
}

// LogEntry is one activity-log line, shaped for the /status response.
type LogEntry struct {
	Timestamp string             `json:"timestamp"`
	Level     constants.Severity `json:"level"`
	Message   string             `json:"message"`
}

// Snapshot is a consistent read of the whole aggregate.
type Snapshot struct {
	IsWatching     bool
	Session        Session
	FilesProcessed uint64
	Errors         uint64
	Logs           []LogEntry
}

// Store is the shared state aggregate. The single mutex keeps counter and
// log updates mutually exclusive with status reads, so a snapshot never sees
// a torn counters/log pair.
type Store struct {
	mu       sync.Mutex
	watching bool
	session  Session

	processed uint64
	errors    uint64

	logs     []LogEntry
	capacity int

	now func() time.Time // test hook
}

// NewStore returns a store whose log buffer holds at most capacity entries,
// evicting oldest first. The log is cumulative: /status snapshots it without
// draining, so concurrent pollers see consistent history.
func NewStore(capacity int) *Store {
	if capacity <= 0 {
		capacity = 100
	}
	return &Store{capacity: capacity, now: time.Now}
}

// BeginSession activates a watch session. It reports false if one is already
// active; at most one session exists at a time.
func (s *Store) BeginSession(session Session) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.watching {
		return false
	}
	s.watching = true
	s.session = session
	return true
}

// EndSession deactivates the watch session, reporting false if none is active.
func (s *Store) EndSession() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.watching {
		return false
	}
	s.watching = false
	s.session = Session{}
	return true
}

// IncProcessed records one successful terminal pipeline outcome.
func (s *Store) IncProcessed() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.processed++
}

// IncErrors records one failed terminal pipeline outcome.
func (s *Store) IncErrors() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errors++
}

// AppendLog adds an activity-log entry, evicting the oldest entry once the
// buffer is full.
func (s *Store) AppendLog(level constants.Severity, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs = append(s.logs, LogEntry{
		Timestamp: s.now().Format("15:04:05"),
		Level:     level,
		Message:   message,
	})
	if len(s.logs) > s.capacity {
		s.logs = s.logs[len(s.logs)-s.capacity:]
	}
}

// Snapshot returns a consistent copy of the aggregate.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	logs := make([]LogEntry, len(s.logs))
	copy(logs, s.logs)
	return Snapshot{
		IsWatching:     s.watching,
		Session:        s.session,
		FilesProcessed: s.processed,
		Errors:         s.errors,
		Logs:           logs,
	}
}
