package planner

import (
	"context"
	"fmt"

	"github.com/entrhq/pilot/pkg/llm"
	"github.com/entrhq/pilot/pkg/types"
)

// ValidationResult is the post-cycle completion check. Suggestions feed
// the next planning cycle when the task is incomplete.
type ValidationResult struct {
	IsComplete  bool     `json:"is_complete"`
	Reasoning   string   `json:"reasoning"`
	Suggestions []string `json:"suggestions"`
}

// Validator checks whether the task goal is satisfied after an
// execution cycle. Failures never declare success: the fallback result
// is incomplete with an explanatory reasoning string.
type Validator struct {
	provider llm.Provider
}

// NewValidator creates a validator backed by the given provider.
func NewValidator(provider llm.Provider) *Validator {
	return &Validator{provider: provider}
}

const validatorSystemPrompt = `You judge whether a browser automation task has been completed.

Compare the task goal against the execution history and the current
browser state. Be strict: only report complete when the evidence shows
the goal is actually satisfied, not merely attempted. When incomplete,
explain what is missing and suggest what to try next.`

func validationSchema() *llm.ResponseSchema {
	return &llm.ResponseSchema{
		Name: "task_validation",
		Schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"is_complete": map[string]any{
					"type":        "boolean",
					"description": "True only when the task goal is demonstrably satisfied",
				},
				"reasoning": map[string]any{
					"type":        "string",
					"description": "The evidence for the verdict",
				},
				"suggestions": map[string]any{
					"type":        "array",
					"items":       map[string]any{"type": "string"},
					"description": "What to try next when incomplete",
				},
			},
			"required":             []string{"is_complete", "reasoning", "suggestions"},
			"additionalProperties": false,
		},
	}
}

// Validate returns the completion verdict for a task. Cancellation is
// returned as an error; every other failure yields the safe incomplete
// fallback with a nil error.
func (v *Validator) Validate(ctx context.Context, task, history, observation string) (ValidationResult, error) {
	fallback := ValidationResult{
		IsComplete: false,
		Reasoning:  "Validation could not run; assuming the task is incomplete.",
	}

	user := fmt.Sprintf("Task: %s\n\nExecution history:\n%s", task, history)
	if observation != "" {
		user = fmt.Sprintf("%s\n\nCurrent browser state:\n%s", user, observation)
	}
	messages := []*types.Message{
		types.NewSystemMessage(validatorSystemPrompt),
		types.NewUserMessage(user),
	}

	var result ValidationResult
	if err := completeStructured(ctx, v.provider, messages, validationSchema(), &result); err != nil {
		if ctx.Err() != nil {
			return fallback, ctx.Err()
		}
		return fallback, nil
	}
	return result, nil
}
