package scheduler

import (
	"context"
	"time"

	"remindbot/internal/trigger"
)

// Callback is the work a job performs when its trigger fires. The
// context is the executor's run context; callbacks must not block past
// it.
type Callback func(ctx context.Context)

// OpResult is the outcome of a single-job mutation. "Not found" and
// "already in state" are expected, frequent outcomes and so are result
// values, not errors.
type OpResult int

const (
	OpApplied OpResult = iota
	OpAlreadyInState
	OpNotFound
	// OpInvalidSpec means the trigger did not compile; the job, if it
	// exists, is left untouched.
	OpInvalidSpec
)

func (r OpResult) String() string {
	switch r {
	case OpApplied:
		return "applied"
	case OpAlreadyInState:
		return "already-in-state"
	case OpNotFound:
		return "not-found"
	case OpInvalidSpec:
		return "invalid-spec"
	default:
		return "unknown"
	}
}

// Found reports whether the job existed when the operation ran.
func (r OpResult) Found() bool { return r != OpNotFound }

// JobInfo is a read-only snapshot of one registered job.
type JobInfo struct {
	ID     string
	Spec   trigger.Spec
	Paused bool
	Next   time.Time // zero while paused
}

// Report collects per-id outcomes of a bulk operation. Bulk operations
// never abort early; a vanished job is recorded and the rest proceed.
type Report struct {
	Applied  []string
	Skipped  []string // already in target state
	NotFound []string
}

func (r Report) Total() int { return len(r.Applied) + len(r.Skipped) + len(r.NotFound) }
