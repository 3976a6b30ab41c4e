// Package headless runs a task unattended, for CI and scheduled jobs.
// There is no renderer and nobody to answer human-input requests, so
// those are declined automatically and the run is recorded as a report
// on disk.
package headless

import (
	"context"
	"fmt"
	"time"

	"github.com/entrhq/pilot/pkg/agent"
	"github.com/entrhq/pilot/pkg/types"
)

const (
	statusSuccess   = "success"
	statusFailed    = "failed"
	statusCancelled = "cancelled"
)

// Executor runs one configured task to completion without a terminal.
type Executor struct {
	agent   agent.Agent
	config  *Config
	writer  *ArtifactWriter
	summary *ExecutionSummary
}

// NewExecutor creates a headless executor. The agent must already have
// its tools registered.
func NewExecutor(ag agent.Agent, cfg *Config) (*Executor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid run config: %w", err)
	}
	return &Executor{
		agent:  ag,
		config: cfg,
		writer: NewArtifactWriter(cfg.Artifacts.OutputDir, cfg.Artifacts),
		summary: &ExecutionSummary{
			Task:   cfg.Task,
			Status: "running",
		},
	}, nil
}

// Run executes the task, blocks until it finishes or times out, writes
// artifacts, and returns an error if the run did not succeed.
func (e *Executor) Run(ctx context.Context) error {
	e.summary.StartTime = time.Now()

	if err := e.agent.Start(ctx); err != nil {
		return e.finish(fmt.Errorf("starting agent: %w", err))
	}

	runCtx, cancel := context.WithTimeout(ctx, e.config.Timeout.Std())
	defer cancel()

	channels := e.agent.GetChannels()

	if e.config.Plan != nil {
		metadata := &types.TaskMetadata{Mode: types.ModePredefined, Plan: e.config.Plan}
		channels.Input <- types.NewTaskInputWithMetadata(e.config.Task, metadata)
	} else {
		channels.Input <- types.NewTaskInput(e.config.Task)
	}

	var runErr error
	timedOut := false
loop:
	for {
		select {
		case <-runCtx.Done():
			// Ask the engine to stop, then keep draining until TurnEnd.
			if !timedOut {
				timedOut = true
				channels.Input <- types.NewCancelInput()
			}
			select {
			case event, ok := <-channels.Event:
				if !ok {
					break loop
				}
				if e.consumeEvent(channels, event) {
					break loop
				}
			case <-time.After(10 * time.Second):
				break loop
			}
		case event, ok := <-channels.Event:
			if !ok {
				break loop
			}
			if e.consumeEvent(channels, event) {
				break loop
			}
		}
	}

	switch {
	case timedOut:
		e.summary.Status = statusCancelled
		runErr = fmt.Errorf("run timed out after %s", e.config.Timeout.Std())
	case e.summary.Error != "":
		e.summary.Status = statusFailed
		runErr = fmt.Errorf("run failed: %s", e.summary.Error)
	default:
		e.summary.Status = statusSuccess
	}

	return e.finish(runErr)
}

// consumeEvent folds one event into the summary. Returns true when the
// execution is over.
func (e *Executor) consumeEvent(channels *types.AgentChannels, event *types.AgentEvent) bool {
	switch event.Type {
	case types.EventTypeToolCall:
		e.summary.ToolCalls++
	case types.EventTypeToolResultError:
		e.summary.ToolErrors++
	case types.EventTypeTokenUsage:
		if event.TokenUsage != nil {
			e.summary.TokensUsed += event.TokenUsage.TotalTokens
		}
	case types.EventTypePlanCreated:
		e.summary.PlanCycles++
	case types.EventTypeNarration:
		e.summary.Narration = append(e.summary.Narration, event.Content)
	case types.EventTypeAssistantMessage:
		e.summary.Result = event.Content
	case types.EventTypeError:
		if event.Error != nil {
			e.summary.Error = event.Error.Error()
		}
	case types.EventTypeHumanInputRequest:
		// Nobody is present to act; decline so the run fails fast
		// instead of hanging until the input timeout.
		channels.Input <- types.NewHumanInputResponseInput(event.RequestID, types.HumanActionAbort)
	case types.EventTypeTurnEnd:
		return true
	}
	return false
}

// finish closes out the summary, writes artifacts, and shuts the agent
// down.
func (e *Executor) finish(runErr error) error {
	e.summary.EndTime = time.Now()
	e.summary.Duration = e.summary.EndTime.Sub(e.summary.StartTime)
	if runErr != nil && e.summary.Error == "" {
		e.summary.Error = runErr.Error()
	}
	if e.summary.Status == "running" {
		e.summary.Status = statusFailed
	}

	if e.config.Artifacts.Enabled {
		if err := e.writer.WriteAll(e.summary); err != nil && runErr == nil {
			runErr = err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := e.agent.Shutdown(shutdownCtx); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

// Summary returns the run record, complete once Run has returned.
func (e *Executor) Summary() *ExecutionSummary {
	return e.summary
}
