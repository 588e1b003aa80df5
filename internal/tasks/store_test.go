package tasks

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/medscribe/medscribe-backend/internal/dify"
	"github.com/medscribe/medscribe-backend/internal/logger"
)

func testLogger(tb testing.TB) *logger.Logger {
	tb.Helper()
	log, err := logger.New("development")
	if err != nil {
		tb.Fatalf("init logger: %v", err)
	}
	return log
}

func runningEvent(taskID, progress string) dify.NormalizedEvent {
	return dify.NormalizedEvent{
		Event:  dify.EventWorkflowRunning,
		TaskID: taskID,
		Data:   dify.EventData{Progress: progress, Status: dify.StatusRunning},
	}
}

func terminalEvent(taskID, status string) dify.NormalizedEvent {
	return dify.NormalizedEvent{
		Event:  dify.EventWorkflowFinished,
		TaskID: taskID,
		Data:   dify.EventData{Progress: "100", Status: status},
	}
}

func TestStoreAppendAndSnapshot(t *testing.T) {
	s := NewStore(testLogger(t), time.Hour)
	userID := uuid.New()

	s.Append(userID, "task-1", runningEvent("task-1", "10"))
	s.Append(userID, "task-1", runningEvent("task-1", "20"))

	events, status, ok := s.Snapshot(userID, "task-1", 0)
	if !ok {
		t.Fatal("task not found")
	}
	if status != StatusRunning {
		t.Fatalf("status = %q, want running", status)
	}
	if len(events) != 2 {
		t.Fatalf("events = %d, want 2", len(events))
	}

	// after skips what the client already saw.
	events, _, _ = s.Snapshot(userID, "task-1", 1)
	if len(events) != 1 || events[0].Data.Progress != "20" {
		t.Fatalf("after=1 events = %v", events)
	}

	// after beyond the log yields an empty slice, not a miss.
	events, _, ok = s.Snapshot(userID, "task-1", 10)
	if !ok || len(events) != 0 {
		t.Fatalf("after=10 = (%v, %v)", events, ok)
	}
}

func TestStoreTerminalStatus(t *testing.T) {
	s := NewStore(testLogger(t), time.Hour)
	userID := uuid.New()

	s.Append(userID, "ok", runningEvent("ok", "50"))
	s.Append(userID, "ok", terminalEvent("ok", dify.StatusSucceeded))
	if _, status, _ := s.Snapshot(userID, "ok", 0); status != StatusSucceeded {
		t.Fatalf("status = %q, want succeeded", status)
	}

	s.Append(userID, "bad", terminalEvent("bad", dify.StatusFailed))
	if _, status, _ := s.Snapshot(userID, "bad", 0); status != StatusFailed {
		t.Fatalf("status = %q, want failed", status)
	}
}

func TestStoreIsolation(t *testing.T) {
	s := NewStore(testLogger(t), time.Hour)
	alice := uuid.New()
	bob := uuid.New()

	s.Append(alice, "task-1", runningEvent("task-1", "10"))

	if _, _, ok := s.Snapshot(bob, "task-1", 0); ok {
		t.Fatal("a task must not be visible to another user")
	}
	if _, _, ok := s.Snapshot(alice, "other", 0); ok {
		t.Fatal("unknown task id must miss")
	}
}

func TestStoreIgnoresEmptyTaskID(t *testing.T) {
	s := NewStore(testLogger(t), time.Hour)
	userID := uuid.New()

	// Abort before workflow_started produces events with no task id yet.
	s.Append(userID, "", terminalEvent("", dify.StatusFailed))
	if _, _, ok := s.Snapshot(userID, "", 0); ok {
		t.Fatal("empty task id must not create a record")
	}
}

func TestStoreSweep(t *testing.T) {
	s := NewStore(testLogger(t), time.Minute)
	userID := uuid.New()

	s.Append(userID, "old", runningEvent("old", "10"))
	s.Append(userID, "fresh", runningEvent("fresh", "10"))

	s.mu.Lock()
	s.byKey[key{userID: userID, taskID: "old"}].UpdatedAt = time.Now().Add(-2 * time.Minute)
	s.mu.Unlock()

	s.sweep()

	if _, _, ok := s.Snapshot(userID, "old", 0); ok {
		t.Fatal("expired task survived the sweep")
	}
	if _, _, ok := s.Snapshot(userID, "fresh", 0); !ok {
		t.Fatal("fresh task was swept")
	}
}

func TestStoreSnapshotCopies(t *testing.T) {
	s := NewStore(testLogger(t), time.Hour)
	userID := uuid.New()
	s.Append(userID, "t", runningEvent("t", "10"))

	events, _, _ := s.Snapshot(userID, "t", 0)
	events[0].Data.Progress = "tampered"

	again, _, _ := s.Snapshot(userID, "t", 0)
	if again[0].Data.Progress != "10" {
		t.Fatal("snapshot must not share backing storage with the record")
	}
}
