package planner

import (
	"context"
	"fmt"

	"github.com/entrhq/pilot/pkg/llm"
	"github.com/entrhq/pilot/pkg/types"
)

// ClassificationResult routes a task into the simple or multi-step
// strategy and decides whether the prior conversation carries over.
type ClassificationResult struct {
	IsSimpleTask   bool `json:"is_simple_task"`
	IsFollowupTask bool `json:"is_followup_task"`
}

// Classifier decides how a task should be executed. Classification
// failures are recovered, never fatal: the default result sends the
// task down the more deliberate multi-step path with a fresh log.
type Classifier struct {
	provider llm.Provider
}

// NewClassifier creates a classifier backed by the given provider.
func NewClassifier(provider llm.Provider) *Classifier {
	return &Classifier{provider: provider}
}

const classifierSystemPrompt = `You classify browser automation tasks before execution.

A task is simple when it can be completed in a handful of direct actions
without planning, for example navigating to a page, clicking one element,
or reading visible content. A task needs multi-step planning when it
involves forms, searches, comparisons, multiple pages, or conditional
decisions.

A task is a follow-up when it refers to or builds on the previous
conversation, for example "now click the second one" or "do the same for
the other account".`

func classificationSchema() *llm.ResponseSchema {
	return &llm.ResponseSchema{
		Name: "task_classification",
		Schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"is_simple_task": map[string]any{
					"type":        "boolean",
					"description": "True if the task can be done in a few direct actions without planning",
				},
				"is_followup_task": map[string]any{
					"type":        "boolean",
					"description": "True if the task continues the previous conversation",
				},
			},
			"required":             []string{"is_simple_task", "is_followup_task"},
			"additionalProperties": false,
		},
	}
}

// Classify returns the routing decision for a task. Cancellation is
// returned as an error; every other failure falls back to the default
// result with a nil error.
func (c *Classifier) Classify(ctx context.Context, task string, priorConversation string) (ClassificationResult, error) {
	fallback := ClassificationResult{IsSimpleTask: false, IsFollowupTask: false}

	user := fmt.Sprintf("Task: %s", task)
	if priorConversation != "" {
		user = fmt.Sprintf("Previous conversation:\n%s\n\n%s", priorConversation, user)
	}
	messages := []*types.Message{
		types.NewSystemMessage(classifierSystemPrompt),
		types.NewUserMessage(user),
	}

	var result ClassificationResult
	if err := completeStructured(ctx, c.provider, messages, classificationSchema(), &result); err != nil {
		if ctx.Err() != nil {
			return fallback, ctx.Err()
		}
		return fallback, nil
	}
	return result, nil
}
