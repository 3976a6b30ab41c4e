package agent

import (
	"fmt"

	"github.com/entrhq/pilot/pkg/agent/prompts"
	"github.com/entrhq/pilot/pkg/llm"
	"github.com/entrhq/pilot/pkg/types"
)

// turnOutcome is what one model turn resolved to, derived from the
// assistant message and the dispatched tool results.
type turnOutcome struct {
	done        bool
	success     bool
	doneMessage string

	replan      bool
	humanInput  bool
	humanPrompt string

	assistantText string
	anyToolOK     bool
	toolCallCount int
}

// executeTurn runs one turn: refresh ephemerals, budget the context,
// stream one model response, record it, and dispatch its tool calls.
// The instruction is this turn's steering user message; it is not
// stored in the log.
func (e *Engine) executeTurn(exec *execution, instruction string) (*turnOutcome, error) {
	if err := exec.checkCancelled(); err != nil {
		return nil, err
	}

	e.observeState(exec)
	if e.todos.Len() > 0 {
		e.log.UpsertEphemeral(types.EphemeralTodoSnapshot, e.todos.Markdown())
	}

	systemPrompt := e.buildSystemPrompt()
	messages := prompts.BuildMessages(systemPrompt, e.log.GetAll(), instruction)

	promptTokens := e.countMessageTokens(messages)

	// At most one summarization pass per turn; the budgeter itself
	// enforces the threshold.
	if e.budgetManager != nil {
		if collapsed, err := e.budgetManager.EvaluateAndSummarize(exec.ctx, e.log, promptTokens); err != nil {
			agentDebugLog.Warnf("Summarization failed: %v", err)
		} else if collapsed > 0 {
			messages = prompts.BuildMessages(systemPrompt, e.log.GetAll(), instruction)
			promptTokens = e.countMessageTokens(messages)
		}
	}

	maxTokens := 0
	if info := e.provider.GetModelInfo(); info != nil {
		maxTokens = info.MaxContextTokens
	}
	e.emitEvent(types.NewAPICallStartEvent(promptTokens, maxTokens))

	var stream <-chan *llm.StreamChunk
	err := llm.Invoke(exec.ctx, func() error {
		s, err := e.provider.StreamCompletion(exec.ctx, &llm.Request{
			Messages: messages,
			Tools:    e.registry.Definitions(),
		})
		if err != nil {
			return err
		}
		stream = s
		return nil
	})
	if err != nil {
		if exec.ctx.Err() != nil {
			return nil, exec.cancellationError()
		}
		return nil, fmt.Errorf("model invocation failed: %w", err)
	}

	response, err := aggregateStream(exec.ctx, stream, e.emitEvent)
	if err != nil {
		if exec.ctx.Err() != nil {
			return nil, exec.cancellationError()
		}
		return nil, fmt.Errorf("streaming failed: %w", err)
	}

	e.recordTokenUsage(promptTokens, response)
	e.log.Add(response)

	outcome := &turnOutcome{assistantText: response.Content}
	if len(response.ToolCalls) == 0 {
		return outcome, nil
	}

	return e.dispatchToolCalls(exec, response.ToolCalls, outcome)
}

func (e *Engine) countMessageTokens(messages []*types.Message) int {
	if e.tokenizer != nil {
		return e.tokenizer.CountMessagesTokens(messages)
	}
	total := 0
	for _, msg := range messages {
		total += tokenEstimate(msg.Content)
	}
	return total
}

func tokenEstimate(text string) int {
	return len(text) / 4
}

func (e *Engine) recordTokenUsage(promptTokens int, response *types.Message) {
	completionTokens := 0
	if e.tokenizer != nil {
		completionTokens = e.tokenizer.CountTokens(response.Content)
		for _, call := range response.ToolCalls {
			completionTokens += e.tokenizer.CountTokens(call.Name)
			completionTokens += e.tokenizer.CountTokens(string(call.Arguments))
		}
	}
	if promptTokens > 0 || completionTokens > 0 {
		e.emitEvent(types.NewTokenUsageEvent(promptTokens, completionTokens, promptTokens+completionTokens))
	}
}
