// Package tui renders a task run as an interactive terminal interface
// with a live transcript, spinner, and inline human-input prompts.
package tui

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/entrhq/pilot/pkg/agent"
	"github.com/entrhq/pilot/pkg/types"
)

// Executor runs one task inside a bubbletea program.
type Executor struct {
	agent   agent.Agent
	program *tea.Program
}

// NewExecutor creates a TUI executor for the given agent.
func NewExecutor(ag agent.Agent) *Executor {
	return &Executor{agent: ag}
}

// RunTask starts the agent, submits the task, and blocks until the
// user exits the interface.
func (e *Executor) RunTask(ctx context.Context, task string, metadata *types.TaskMetadata) error {
	if err := e.agent.Start(ctx); err != nil {
		return fmt.Errorf("starting agent: %w", err)
	}

	channels := e.agent.GetChannels()
	m := initialModel(channels, task)

	e.program = tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))

	// Forward engine events into the program.
	go func() {
		for event := range channels.Event {
			e.program.Send(event)
			if event.Type == types.EventTypeTurnEnd {
				e.program.Send(finishedMsg{})
			}
		}
	}()

	if metadata != nil {
		channels.Input <- types.NewTaskInputWithMetadata(task, metadata)
	} else {
		channels.Input <- types.NewTaskInput(task)
	}

	_, runErr := e.program.Run()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := e.agent.Shutdown(shutdownCtx); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}
