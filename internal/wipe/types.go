package wipe

import (
	"fmt"

	"github.com/cockroachdb/errors"

	"secureshred/internal/storage"
)

// Target identifies one erasable object. Size is captured at discovery time
// and is not re-read.
type Target struct {
	Handle storage.Handle
	Name   string
	Size   int64
}

// TargetFromEntry converts a discovered storage entry.
func TargetFromEntry(e storage.Entry) Target {
	return Target{Handle: e.Handle, Name: e.Name, Size: e.Size}
}

func (t Target) displayName() string {
	if t.Name != "" {
		return t.Name
	}
	return string(t.Handle)
}

// Outcome is the terminal result of erasing one target. Nothing is retried.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeOverwriteFailed
	OutcomeEncryptFailed
	OutcomeDeleteFailed
	OutcomeSkippedEmpty
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeOverwriteFailed:
		return "overwrite_failed"
	case OutcomeEncryptFailed:
		return "encrypt_failed"
	case OutcomeDeleteFailed:
		return "delete_failed"
	case OutcomeSkippedEmpty:
		return "skipped_empty"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Failed reports whether the outcome counts against the job.
func (o Outcome) Failed() bool {
	switch o {
	case OutcomeOverwriteFailed, OutcomeEncryptFailed, OutcomeDeleteFailed:
		return true
	}
	return false
}

// State is a step of the per-target state machine.
type State int

const (
	StatePending State = iota
	StateOverwriting
	StateEncrypting
	StateDeleting
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateOverwriting:
		return "overwriting"
	case StateEncrypting:
		return "encrypting"
	case StateDeleting:
		return "deleting"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

var (
	ErrIO      = errors.New("overwrite i/o failure")
	ErrEncrypt = errors.New("encryption failure")
	ErrDelete  = errors.New("delete failure")
)

// Hooks receive engine notifications. Any of them may be nil.
type Hooks struct {
	// OnState is called on every transition; pass is 1-based while
	// overwriting and 0 otherwise.
	OnState func(state State, pass int)
	// OnStatus receives human-readable step descriptions.
	OnStatus func(msg string)
	// OnProgress receives bytes processed for this target, scaled to its
	// size. Values are non-decreasing and end at Size on success.
	OnProgress func(processed int64)
}

func (h Hooks) state(s State, pass int) {
	if h.OnState != nil {
		h.OnState(s, pass)
	}
}

func (h Hooks) status(format string, args ...interface{}) {
	if h.OnStatus != nil {
		h.OnStatus(fmt.Sprintf(format, args...))
	}
}

func (h Hooks) progress(n int64) {
	if h.OnProgress != nil {
		h.OnProgress(n)
	}
}

// Result is what the engine reports for one target.
type Result struct {
	Target Target
	// Outcome is terminal.
	Outcome Outcome
	// State is StateDone or StateFailed.
	State State
	// PassesCompleted counts overwrite passes that finished successfully.
	PassesCompleted int
	// Message is the final user-facing line for this target.
	Message string
	Err     error
}
