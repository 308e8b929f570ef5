package model

import "time"

// Work item status constants. Succeeded, Timeout, Error and NoSignal are
// terminal and mutually exclusive.
const (
	StatusPending   = "pending"
	StatusRunning   = "running"
	StatusSucceeded = "succeeded"
	StatusTimeout   = "timeout"
	StatusError     = "error"
	StatusNoSignal  = "no_signal"
)

// validTransitions maps each status to the set of statuses it may transition to.
var validTransitions = map[string]map[string]bool{
	StatusPending: {
		StatusRunning: true,
		// Skipped items (output already present) finish without running.
		StatusSucceeded: true,
	},
	StatusRunning: {
		StatusSucceeded: true,
		StatusTimeout:   true,
		StatusError:     true,
		StatusNoSignal:  true,
	},
}

// ValidTransition reports whether transitioning from one status to another is allowed.
func ValidTransition(from, to string) bool {
	targets, ok := validTransitions[from]
	if !ok {
		return false
	}
	return targets[to]
}

// IsTerminal reports whether status is one of the terminal outcomes.
func IsTerminal(status string) bool {
	switch status {
	case StatusSucceeded, StatusTimeout, StatusError, StatusNoSignal:
		return true
	}
	return false
}

// Batch is a persisted summary of one scheduling pass.
type Batch struct {
	ID         string     `json:"id"`
	Target     string     `json:"target"`
	Attempted  int        `json:"attempted"`
	Succeeded  int        `json:"succeeded"`
	ElapsedMS  *int       `json:"elapsed_ms,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// ItemRecord is a persisted terminal outcome of one work item.
type ItemRecord struct {
	ID         string    `json:"id"`
	BatchID    string    `json:"batch_id"`
	Seq        int       `json:"seq"`
	Group      string    `json:"group"`
	Label      string    `json:"label"`
	Generator  string    `json:"generator"`
	OutputPath string    `json:"output_path"`
	Status     string    `json:"status"`
	Message    string    `json:"message,omitempty"`
	ExitCode   *int      `json:"exit_code,omitempty"`
	Skipped    bool      `json:"skipped,omitempty"`
	DurationMS int       `json:"duration_ms"`
	FinishedAt time.Time `json:"finished_at"`
}
