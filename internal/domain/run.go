package domain

import (
	"fmt"
	"time"
)

// RunState is the position of a recommendation run in the pipeline
type RunState string

const (
	RunReceived  RunState = "received"
	RunAnalyzed  RunState = "analyzed"
	RunCollected RunState = "collected"
	RunSelected  RunState = "selected"
	RunVerified  RunState = "verified"
	RunCompleted RunState = "completed"
	RunFailed    RunState = "failed"
)

var runTransitions = map[RunState]RunState{
	RunReceived:  RunAnalyzed,
	RunAnalyzed:  RunCollected,
	RunCollected: RunSelected,
	RunSelected:  RunVerified,
	RunVerified:  RunCompleted,
}

// CanTransition reports whether a run in state s may move to next.
// Every non-terminal state may fail; completed and failed are terminal.
func (s RunState) CanTransition(next RunState) bool {
	if s.Terminal() {
		return false
	}
	if next == RunFailed {
		return true
	}
	return runTransitions[s] == next
}

// Terminal reports whether no further transitions are possible
func (s RunState) Terminal() bool {
	return s == RunCompleted || s == RunFailed
}

// StageRecord captures the outcome of a single pipeline stage
type StageRecord struct {
	Name       string         `json:"name"`
	Status     string         `json:"status"` // "ok" or "failed"
	DurationMs int64          `json:"durationMs"`
	Error      string         `json:"error,omitempty"`
	Counters   map[string]int `json:"counters,omitempty"`
}

// RunRecord is the audit trail of one run. It carries no profile text and no listings.
type RunRecord struct {
	ID          string        `json:"id"`
	State       RunState      `json:"state"`
	Stages      []StageRecord `json:"stages"`
	Error       string        `json:"error,omitempty"`
	StartedAt   time.Time     `json:"startedAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
	CompletedAt *time.Time    `json:"completedAt,omitempty"`
}

// NewRunRecord starts a record in the received state
func NewRunRecord(id string, now time.Time) *RunRecord {
	return &RunRecord{
		ID:        id,
		State:     RunReceived,
		Stages:    []StageRecord{},
		StartedAt: now,
		UpdatedAt: now,
	}
}

// Transition moves the record to next, stamping completion time on terminal states
func (r *RunRecord) Transition(next RunState, now time.Time) error {
	if !r.State.CanTransition(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, r.State, next)
	}
	r.State = next
	r.UpdatedAt = now
	if next.Terminal() {
		r.CompletedAt = &now
	}
	return nil
}

// Fail moves the record to the failed state with the given cause
func (r *RunRecord) Fail(cause error, now time.Time) error {
	if err := r.Transition(RunFailed, now); err != nil {
		return err
	}
	if cause != nil {
		r.Error = cause.Error()
	}
	return nil
}
