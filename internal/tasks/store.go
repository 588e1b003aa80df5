package tasks

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/medscribe/medscribe-backend/internal/dify"
	"github.com/medscribe/medscribe-backend/internal/logger"
)

type Status string

const (
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Record is the event history of one generation run, kept so a browser that
// dropped its SSE connection can poll and catch up. Volatile by design.
type Record struct {
	UserID    uuid.UUID
	TaskID    string
	Status    Status
	Events    []dify.NormalizedEvent
	UpdatedAt time.Time
}

type key struct {
	userID uuid.UUID
	taskID string
}

// Store is an in-memory append-only task event log. Shared across requests;
// all access goes through the mutex.
type Store struct {
	mu    sync.RWMutex
	log   *logger.Logger
	byKey map[key]*Record
	ttl   time.Duration
}

func NewStore(log *logger.Logger, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Store{
		log:   log.With("component", "TaskStore"),
		byKey: make(map[key]*Record),
		ttl:   ttl,
	}
}

// Append records one normalized event. Terminal events set the task status.
func (s *Store) Append(userID uuid.UUID, taskID string, ev dify.NormalizedEvent) {
	if taskID == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key{userID: userID, taskID: taskID}
	rec, ok := s.byKey[k]
	if !ok {
		rec = &Record{UserID: userID, TaskID: taskID, Status: StatusRunning}
		s.byKey[k] = rec
	}
	rec.Events = append(rec.Events, ev)
	rec.UpdatedAt = time.Now()
	if ev.Event == dify.EventWorkflowFinished {
		if ev.Data.Status == dify.StatusSucceeded {
			rec.Status = StatusSucceeded
		} else {
			rec.Status = StatusFailed
		}
	}
}

// Snapshot returns the events recorded after the given index, the task
// status, and whether the task exists at all.
func (s *Store) Snapshot(userID uuid.UUID, taskID string, after int) ([]dify.NormalizedEvent, Status, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.byKey[key{userID: userID, taskID: taskID}]
	if !ok {
		return nil, "", false
	}
	if after < 0 {
		after = 0
	}
	if after >= len(rec.Events) {
		return []dify.NormalizedEvent{}, rec.Status, true
	}
	out := make([]dify.NormalizedEvent, len(rec.Events)-after)
	copy(out, rec.Events[after:])
	return out, rec.Status, true
}

// Start launches the expiry sweeper; it runs until ctx is cancelled.
func (s *Store) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(s.ttl / 4)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.sweep()
			}
		}
	}()
}

func (s *Store) sweep() {
	cutoff := time.Now().Add(-s.ttl)
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, rec := range s.byKey {
		if rec.UpdatedAt.Before(cutoff) {
			delete(s.byKey, k)
		}
	}
}
