package state

import (
	"fmt"
	"sync"
	"testing"

	"github.com/joseph-ayodele/invoice-watcher/constants"
)

func TestCountersUnderConcurrency(t *testing.T) {
	// WHAT: interleaved counter/log updates never lose increments; a snapshot
	// always sees a consistent counters/log pair.
	s := NewStore(1000)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			s.IncProcessed()
			s.AppendLog(constants.SeveritySuccess, "processed")
		}()
		go func() {
			defer wg.Done()
			s.IncErrors()
			s.AppendLog(constants.SeverityError, "failed")
		}()
	}
	wg.Wait()

	snap := s.Snapshot()
	if snap.FilesProcessed != 50 || snap.Errors != 50 {
		t.Errorf("counters = %d/%d, want 50/50", snap.FilesProcessed, snap.Errors)
	}
	if got := snap.FilesProcessed + snap.Errors; got != 100 {
		t.Errorf("terminal outcomes = %d, want 100", got)
	}
	if len(snap.Logs) != 100 {
		t.Errorf("log entries = %d, want 100", len(snap.Logs))
	}
}

func TestLogBufferEvictsOldestFirst(t *testing.T) {
	s := NewStore(5)
	for i := 0; i < 8; i++ {
		s.AppendLog(constants.SeverityInfo, fmt.Sprintf("entry %d", i))
	}

	logs := s.Snapshot().Logs
	if len(logs) != 5 {
		t.Fatalf("len = %d, want capacity 5", len(logs))
	}
	if logs[0].Message != "entry 3" {
		t.Errorf("oldest surviving entry = %q, want %q", logs[0].Message, "entry 3")
	}
	if logs[4].Message != "entry 7" {
		t.Errorf("newest entry = %q, want %q", logs[4].Message, "entry 7")
	}
}

func TestSnapshotDoesNotDrainLogs(t *testing.T) {
	s := NewStore(10)
	s.AppendLog(constants.SeverityInfo, "hello")

	if n := len(s.Snapshot().Logs); n != 1 {
		t.Fatalf("first snapshot logs = %d", n)
	}
	if n := len(s.Snapshot().Logs); n != 1 {
		t.Errorf("second snapshot logs = %d, want 1 (buffer is cumulative)", n)
	}
}

func TestSingleActiveSession(t *testing.T) {
	s := NewStore(10)

	if !s.BeginSession(Session{FolderPath: "/a"}) {
		t.Fatal("first BeginSession should succeed")
	}
	if s.BeginSession(Session{FolderPath: "/b"}) {
		t.Error("second BeginSession should fail while active")
	}

	snap := s.Snapshot()
	if !snap.IsWatching || snap.Session.FolderPath != "/a" {
		t.Errorf("snapshot = %+v", snap)
	}

	if !s.EndSession() {
		t.Fatal("EndSession should succeed")
	}
	if s.EndSession() {
		t.Error("EndSession should fail when idle")
	}
	if s.Snapshot().IsWatching {
		t.Error("still watching after EndSession")
	}
}
