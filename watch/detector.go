// Package watch polls a repository on a fixed schedule and triggers build and
// test runs when its HEAD commit changes.
package watch

import (
	"sync"
	"time"
)

// Outcome is the result of one tick's sync attempt.
type Outcome int

const (
	// OutcomeChanged means HEAD moved, or this was the session's first
	// successful sync.
	OutcomeChanged Outcome = iota
	OutcomeUnchanged
	OutcomeSyncFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeChanged:
		return "changed"
	case OutcomeUnchanged:
		return "unchanged"
	case OutcomeSyncFailed:
		return "sync_failed"
	}
	return "unknown"
}

// SyncState tracks polling results across ticks.
type SyncState struct {
	LastCommitHash          string    `json:"last_commit_hash,omitempty"`
	LastSyncSucceeded       bool      `json:"last_sync_succeeded"`
	ConsecutiveFailureCount int       `json:"consecutive_failure_count"`
	TotalFailures           int       `json:"total_failures"`
	Changes                 int       `json:"changes"`
	LastSyncAt              time.Time `json:"last_sync_at,omitempty"`
	LastError               string    `json:"last_error,omitempty"`
}

// HasBaseline reports whether a commit has been observed yet.
func (s SyncState) HasBaseline() bool {
	return s.LastCommitHash != ""
}

// Detector turns sync results into outcomes. The scheduler never runs two
// ticks at once, so Observe is only called sequentially; the mutex makes
// State safe to read from other goroutines.
type Detector struct {
	mu    sync.Mutex
	state SyncState
	now   func() time.Time
}

// NewDetector creates a Detector with no baseline.
func NewDetector() *Detector {
	return &Detector{now: time.Now}
}

// Observe records one sync attempt. A failed sync leaves the last hash alone
// and bumps the failure counter. A successful sync with no prior hash, or
// with a different one, is a change.
func (d *Detector) Observe(hash string, err error) Outcome {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.state.LastSyncAt = d.now()
	if err != nil || hash == "" {
		d.state.LastSyncSucceeded = false
		d.state.ConsecutiveFailureCount++
		d.state.TotalFailures++
		if err != nil {
			d.state.LastError = err.Error()
		} else {
			d.state.LastError = "empty commit hash"
		}
		return OutcomeSyncFailed
	}

	d.state.LastSyncSucceeded = true
	d.state.ConsecutiveFailureCount = 0
	d.state.LastError = ""
	if d.state.LastCommitHash == hash {
		return OutcomeUnchanged
	}
	d.state.LastCommitHash = hash
	d.state.Changes++
	return OutcomeChanged
}

// State returns a snapshot of the current state.
func (d *Detector) State() SyncState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}
