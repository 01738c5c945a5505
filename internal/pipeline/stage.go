package pipeline

import (
	"context"
	"sync"
	"time"
)

// Stage is a single unit of work in the extraction pipeline.
type Stage interface {
	// ID returns the stable identifier used in events, spans, and errors.
	ID() string

	// Name returns the human-readable name shown in progress messages.
	Name() string

	// Validate checks that the stage can run against the current state.
	// A validation failure aborts the run before Execute is called.
	Validate(state *State) error

	// Execute runs the stage, reading its inputs from state and writing
	// its outputs back.
	Execute(ctx context.Context, state *State) error
}

// StageStatus represents the lifecycle of one stage within a run.
type StageStatus string

const (
	StageStatusPending   StageStatus = "pending"
	StageStatusActive    StageStatus = "active"
	StageStatusCompleted StageStatus = "completed"
	StageStatusFailed    StageStatus = "failed"
	StageStatusSkipped   StageStatus = "skipped"
)

// StageState is the runtime record of one stage's execution.
type StageState struct {
	mu        sync.RWMutex
	id        string
	name      string
	status    StageStatus
	startTime *time.Time
	endTime   *time.Time
	message   string
	err       error
}

// NewStageState creates a pending stage record.
func NewStageState(id, name string) *StageState {
	return &StageState{
		id:     id,
		name:   name,
		status: StageStatusPending,
	}
}

// Start marks the stage as active.
func (s *StageState) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	s.startTime = &now
	s.status = StageStatusActive
}

// Complete marks the stage as completed.
func (s *StageState) Complete() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	s.endTime = &now
	s.status = StageStatusCompleted
}

// Fail marks the stage as failed with the given error.
func (s *StageState) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	s.endTime = &now
	s.status = StageStatusFailed
	s.err = err
}

// Skip marks the stage as skipped with the given reason.
func (s *StageState) Skip(reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	s.endTime = &now
	s.status = StageStatusSkipped
	s.message = reason
}

// Status returns the current stage status.
func (s *StageState) Status() StageStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// Duration returns how long the stage ran, or has been running.
func (s *StageState) Duration() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.startTime == nil {
		return 0
	}
	if s.endTime != nil {
		return s.endTime.Sub(*s.startTime)
	}
	return time.Since(*s.startTime)
}

// StageSnapshot is a point-in-time copy of a stage record.
type StageSnapshot struct {
	ID       string        `json:"id"`
	Name     string        `json:"name"`
	Status   StageStatus   `json:"status"`
	Duration time.Duration `json:"duration"`
	Message  string        `json:"message,omitempty"`
	Error    string        `json:"error,omitempty"`
}

// Snapshot returns a copy of the stage record safe to hand to callers.
func (s *StageState) Snapshot() StageSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := StageSnapshot{
		ID:      s.id,
		Name:    s.name,
		Status:  s.status,
		Message: s.message,
	}
	if s.startTime != nil {
		end := time.Now()
		if s.endTime != nil {
			end = *s.endTime
		}
		snap.Duration = end.Sub(*s.startTime)
	}
	if s.err != nil {
		snap.Error = s.err.Error()
	}
	return snap
}
