package scheduler

import (
	"fmt"

	"github.com/kazu-source/kazu-source.github.io-sub002/internal/model"
)

// Outcome is the terminal classification of one work item.
type Outcome struct {
	Status   string `json:"status"`
	Message  string `json:"message,omitempty"`
	ExitCode *int   `json:"exit_code,omitempty"`
	Signal   string `json:"signal,omitempty"`
}

// Succeeded returns a success outcome.
func Succeeded() Outcome {
	return Outcome{Status: model.StatusSucceeded}
}

// TimedOut returns a timeout outcome.
func TimedOut() Outcome {
	return Outcome{Status: model.StatusTimeout}
}

// Failed returns an error outcome carrying the worker's message.
func Failed(msg string) Outcome {
	return Outcome{Status: model.StatusError, Message: msg}
}

// NoSignal returns the outcome of a worker that exited without reporting.
// exitCode is nil when the process was terminated by a signal.
func NoSignal(exitCode *int, signal string) Outcome {
	o := Outcome{Status: model.StatusNoSignal, ExitCode: exitCode, Signal: signal}
	switch {
	case signal != "":
		o.Message = "no result (signal: " + signal + ")"
	case exitCode != nil:
		o.Message = fmt.Sprintf("no result (exit %d)", *exitCode)
	default:
		o.Message = "no result"
	}
	return o
}

// OK reports whether the outcome is a success.
func (o Outcome) OK() bool {
	return o.Status == model.StatusSucceeded
}

// Reason is the short human-readable failure reason used in reports.
func (o Outcome) Reason() string {
	switch o.Status {
	case model.StatusSucceeded:
		return ""
	case model.StatusTimeout:
		return "Timeout"
	case model.StatusError:
		return o.Message
	case model.StatusNoSignal:
		if o.Message != "" {
			return o.Message
		}
		return "no result"
	}
	return o.Status
}
