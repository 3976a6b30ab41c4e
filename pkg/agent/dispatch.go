package agent

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/entrhq/pilot/pkg/agent/humaninput"
	"github.com/entrhq/pilot/pkg/agent/tools"
	"github.com/entrhq/pilot/pkg/types"
)

// dispatchToolCalls executes the turn's tool calls in original order.
// Every call id receives exactly one result entry in the log: handler
// panics and errors become {ok:false} results, and a tool failure never
// aborts the batch. The three signal flags are inspected after each
// call; human-input short-circuits the remaining calls after appending
// the triggering call's result.
func (e *Engine) dispatchToolCalls(exec *execution, calls []types.ToolCall, outcome *turnOutcome) (*turnOutcome, error) {
	for i, call := range calls {
		if err := exec.checkCancelled(); err != nil {
			return nil, err
		}

		if outcome.humanInput {
			// Remaining calls after a human-input request are not
			// executed, but each still gets a result entry so the
			// model sees a complete batch.
			e.appendSkippedResult(call)
			continue
		}

		result := e.executeOneCall(exec, call)
		e.log.AddToolResult(result.Text(), call.ID)
		outcome.toolCallCount++

		if result.OK {
			outcome.anyToolOK = true
			e.emitEvent(types.NewToolResultEvent(call.Name, result.Output))
		} else {
			exec.metrics.recordError()
			e.emitEvent(types.NewToolResultErrorEvent(call.Name, fmt.Errorf("%s", result.Error)))
		}

		switch {
		case result.Done:
			// The done tool ends the loop regardless of its success
			// flag; the flag is carried into the final result.
			outcome.done = true
			outcome.success = result.Success
			outcome.doneMessage = result.Output

		case result.RequiresReplanning:
			outcome.replan = true

		case result.RequiresHumanInput:
			outcome.humanInput = true
			outcome.humanPrompt = result.HumanPrompt
			agentDebugLog.Infof("Human input requested after call %d of %d", i+1, len(calls))
		}
	}
	return outcome, nil
}

// executeOneCall looks up and runs a single tool, converting every
// failure mode into a result envelope.
func (e *Engine) executeOneCall(exec *execution, call types.ToolCall) (result *tools.Result) {
	exec.metrics.recordToolCall()

	var args map[string]any
	if len(call.Arguments) > 0 {
		if err := json.Unmarshal(call.Arguments, &args); err != nil {
			args = map[string]any{}
		}
	}
	e.emitEvent(types.NewToolCallEvent(call.Name, args))

	tool, ok := e.registry.Get(call.Name)
	if !ok {
		return tools.Fail(fmt.Sprintf("unknown tool: %s", call.Name))
	}

	defer func() {
		if r := recover(); r != nil {
			agentDebugLog.Errorf("Tool %s panicked: %v", call.Name, r)
			result = tools.Fail(fmt.Sprintf("tool %s crashed: %v", call.Name, r))
		}
	}()

	res, err := tool.Execute(exec.ctx, call.Arguments)
	if err != nil {
		return tools.Fail(err.Error())
	}
	if res == nil {
		return tools.Fail(fmt.Sprintf("tool %s returned no result", call.Name))
	}
	return res
}

// appendSkippedResult records a result for a call that was not executed
// because an earlier call in the batch paused the run.
func (e *Engine) appendSkippedResult(call types.ToolCall) {
	result := tools.Fail("not executed: waiting for human input")
	e.log.AddToolResult(result.Text(), call.ID)
}

// awaitHumanInput delegates to the coordinator and translates the
// outcome: done resumes with a note in the log, abort becomes a
// user-facing cancellation, timeout is fatal.
func (e *Engine) awaitHumanInput(exec *execution, prompt string) error {
	requestID := uuid.New().String()
	agentDebugLog.Infof("Awaiting human input, request %s", requestID)

	switch e.humanInput.Await(exec.ctx, requestID, prompt) {
	case humaninput.OutcomeDone:
		e.log.AddUser("The user has completed the requested manual step. Continue the task.")
		return nil
	case humaninput.OutcomeAbort:
		if err := exec.checkCancelled(); err != nil {
			return err
		}
		return NewUserCancellation("task aborted during human input")
	default:
		return ErrHumanInputTimeout
	}
}
