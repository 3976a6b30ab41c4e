package agent

import (
	"fmt"
	"time"
)

// ExecutionMetrics tracks counters for one task execution. It is
// mutated only on the execution's logical thread, so no locking.
type ExecutionMetrics struct {
	ToolCalls    int
	Errors       int
	Observations int
	StartedAt    time.Time
	EndedAt      time.Time
}

func newExecutionMetrics() *ExecutionMetrics {
	return &ExecutionMetrics{StartedAt: time.Now()}
}

func (m *ExecutionMetrics) recordToolCall()    { m.ToolCalls++ }
func (m *ExecutionMetrics) recordError()       { m.Errors++ }
func (m *ExecutionMetrics) recordObservation() { m.Observations++ }
func (m *ExecutionMetrics) finish()            { m.EndedAt = time.Now() }

// Duration returns the elapsed execution time, using now when the run
// has not finished yet.
func (m *ExecutionMetrics) Duration() time.Duration {
	end := m.EndedAt
	if end.IsZero() {
		end = time.Now()
	}
	return end.Sub(m.StartedAt)
}

// Summary renders the counters for planner prompts and the post-run
// report.
func (m *ExecutionMetrics) Summary() string {
	return fmt.Sprintf("%d tool calls, %d errors, %d observations in %s",
		m.ToolCalls, m.Errors, m.Observations, m.Duration().Round(time.Second))
}
