// Package cli runs a single task against the engine and renders its
// progress to the terminal.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/entrhq/pilot/pkg/agent"
	"github.com/entrhq/pilot/pkg/types"
)

const shutdownTimeout = 5 * time.Second

// Executor drives one task to completion over the agent's channels,
// rendering events as they arrive and answering human-input requests
// from stdin.
type Executor struct {
	agent  agent.Agent
	reader *bufio.Reader
	writer io.Writer

	showThinking bool
	showTodos    bool

	// thinkingPrinted tracks how much of the in-flight thinking text
	// has been written, so incremental updates print only the delta.
	thinkingPrinted map[string]int
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithShowThinking toggles streaming of the model's in-progress text.
func WithShowThinking(show bool) ExecutorOption {
	return func(e *Executor) {
		e.showThinking = show
	}
}

// WithShowTodos toggles printing of TODO list snapshots.
func WithShowTodos(show bool) ExecutorOption {
	return func(e *Executor) {
		e.showTodos = show
	}
}

// WithWriter sets a custom output writer (default os.Stdout).
func WithWriter(w io.Writer) ExecutorOption {
	return func(e *Executor) {
		e.writer = w
	}
}

// WithInput sets a custom input reader (default os.Stdin).
func WithInput(r io.Reader) ExecutorOption {
	return func(e *Executor) {
		e.reader = bufio.NewReader(r)
	}
}

// NewExecutor creates a CLI executor for the given agent.
func NewExecutor(ag agent.Agent, opts ...ExecutorOption) *Executor {
	e := &Executor{
		agent:           ag,
		reader:          bufio.NewReader(os.Stdin),
		writer:          os.Stdout,
		showThinking:    true,
		showTodos:       true,
		thinkingPrinted: make(map[string]int),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RunTask starts the agent, submits the task, renders events until the
// execution finishes, and shuts the agent down.
func (e *Executor) RunTask(ctx context.Context, task string, metadata *types.TaskMetadata) error {
	if err := e.agent.Start(ctx); err != nil {
		return fmt.Errorf("starting agent: %w", err)
	}

	channels := e.agent.GetChannels()

	fmt.Fprintln(e.writer, headerStyle.Render("pilot"))
	fmt.Fprintln(e.writer, statusStyle.Render("Task: "+task))
	fmt.Fprintln(e.writer)

	if metadata != nil {
		channels.Input <- types.NewTaskInputWithMetadata(task, metadata)
	} else {
		channels.Input <- types.NewTaskInput(task)
	}

	var runErr error
loop:
	for {
		select {
		case <-ctx.Done():
			channels.Input <- types.NewCancelInput()
			runErr = ctx.Err()
			break loop
		case event, ok := <-channels.Event:
			if !ok {
				break loop
			}
			if e.handleEvent(channels, event) {
				break loop
			}
		}
	}

	e.shutdown()
	return runErr
}

// handleEvent renders one event. Returns true when the execution is
// finished.
func (e *Executor) handleEvent(channels *types.AgentChannels, event *types.AgentEvent) bool {
	switch event.Type {
	case types.EventTypeThinkingUpdate:
		e.renderThinking(event)
	case types.EventTypeAssistantMessage:
		e.finishThinkingLine(event.MessageID)
		fmt.Fprintln(e.writer)
		fmt.Fprintln(e.writer, messageStyle.Render(event.Content))
	case types.EventTypeNarration:
		fmt.Fprintln(e.writer, narrationStyle.Render(event.Content))
	case types.EventTypeToolCall:
		e.finishThinkingLines()
		fmt.Fprintln(e.writer, toolStyle.Render("→ "+event.ToolName))
	case types.EventTypeToolResult:
		output := event.ToolOutput
		if len(output) > 200 {
			output = output[:200] + "…"
		}
		fmt.Fprintln(e.writer, statusStyle.Render("  "+strings.ReplaceAll(output, "\n", " ")))
	case types.EventTypeToolResultError:
		fmt.Fprintln(e.writer, toolErrorStyle.Render(fmt.Sprintf("  ✗ %s: %v", event.ToolName, event.Error)))
	case types.EventTypePlanCreated:
		if event.Plan != nil {
			fmt.Fprintln(e.writer, narrationStyle.Render(fmt.Sprintf("Plan (cycle %d):", event.Plan.Cycle)))
			for i, step := range event.Plan.Steps {
				fmt.Fprintln(e.writer, statusStyle.Render(fmt.Sprintf("  %d. %s", i+1, step)))
			}
		}
	case types.EventTypeTodoUpdate:
		if e.showTodos {
			fmt.Fprintln(e.writer, todoStyle.Render(event.Content))
		}
	case types.EventTypeHumanInputRequest:
		e.answerHumanInput(channels, event)
	case types.EventTypeSummarizationStart:
		fmt.Fprintln(e.writer, statusStyle.Render("Compressing conversation history..."))
	case types.EventTypeError:
		fmt.Fprintln(e.writer, errorStyle.Render(fmt.Sprintf("Error: %v", event.Error)))
	case types.EventTypeTurnEnd:
		return true
	}
	return false
}

func (e *Executor) renderThinking(event *types.AgentEvent) {
	if !e.showThinking {
		return
	}
	printed := e.thinkingPrinted[event.MessageID]
	if len(event.Content) <= printed {
		return
	}
	fmt.Fprint(e.writer, thinkingStyle.Render(event.Content[printed:]))
	e.thinkingPrinted[event.MessageID] = len(event.Content)
}

func (e *Executor) finishThinkingLine(messageID string) {
	if e.thinkingPrinted[messageID] > 0 {
		fmt.Fprintln(e.writer)
		delete(e.thinkingPrinted, messageID)
	}
}

func (e *Executor) finishThinkingLines() {
	for id, printed := range e.thinkingPrinted {
		if printed > 0 {
			fmt.Fprintln(e.writer)
		}
		delete(e.thinkingPrinted, id)
	}
}

// answerHumanInput asks the user to confirm a manual step and relays
// the answer back to the engine.
func (e *Executor) answerHumanInput(channels *types.AgentChannels, event *types.AgentEvent) {
	e.finishThinkingLines()
	fmt.Fprintln(e.writer)
	fmt.Fprintln(e.writer, promptStyle.Render("Human input needed:"))
	fmt.Fprintln(e.writer, messageStyle.Render(event.Prompt))
	fmt.Fprint(e.writer, promptStyle.Render("Done? [y/N] "))

	line, err := e.reader.ReadString('\n')
	action := types.HumanActionAbort
	if err == nil {
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes", "done":
			action = types.HumanActionDone
		}
	}
	channels.Input <- types.NewHumanInputResponseInput(event.RequestID, action)
}

func (e *Executor) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.agent.Shutdown(ctx); err != nil {
		fmt.Fprintln(e.writer, statusStyle.Render(fmt.Sprintf("shutdown: %v", err)))
	}
}
