package agent

import (
	"errors"
	"fmt"
)

// CancellationError stops an execution at a suspension point. The
// user-initiated flavor is swallowed at the top level and produces a
// clean exit; the system flavor is surfaced to the caller.
type CancellationError struct {
	UserInitiated bool
	Reason        string
}

func (e *CancellationError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("execution cancelled: %s", e.Reason)
	}
	return "execution cancelled"
}

// NewUserCancellation creates a user-initiated cancellation.
func NewUserCancellation(reason string) *CancellationError {
	return &CancellationError{UserInitiated: true, Reason: reason}
}

// NewSystemCancellation creates a system-level cancellation.
func NewSystemCancellation(reason string) *CancellationError {
	return &CancellationError{UserInitiated: false, Reason: reason}
}

// IsUserCancellation reports whether err is a user-initiated
// cancellation that should exit cleanly.
func IsUserCancellation(err error) bool {
	var ce *CancellationError
	return errors.As(err, &ce) && ce.UserInitiated
}

// IterationLimitError is raised when a bounded loop exhausts its
// attempts without the task finishing.
type IterationLimitError struct {
	Scope string
	Limit int
}

func (e *IterationLimitError) Error() string {
	return fmt.Sprintf("%s loop exceeded %d iterations without completing the task", e.Scope, e.Limit)
}

// PlanningError is fatal: an empty or unusable plan means the engine
// cannot make progress.
type PlanningError struct {
	Err error
}

func (e *PlanningError) Error() string {
	return fmt.Sprintf("planning failed: %v", e.Err)
}

func (e *PlanningError) Unwrap() error { return e.Err }

// ErrLoopDetected is raised when the model keeps repeating the same
// output instead of making progress.
var ErrLoopDetected = errors.New("agent is stuck repeating the same response")

// ErrHumanInputTimeout is raised when a human-input wait elapses with
// no response; it is treated as an abort.
var ErrHumanInputTimeout = errors.New("timed out waiting for human input")
