package tools

import (
	"context"
	"encoding/json"
	"fmt"
)

// ReplanTool signals that the current plan no longer fits what the
// model observes and a fresh planning cycle should run.
type ReplanTool struct{}

// NewReplanTool creates a new replanning signal tool.
func NewReplanTool() *ReplanTool {
	return &ReplanTool{}
}

func (t *ReplanTool) Name() string {
	return "request_replanning"
}

func (t *ReplanTool) Description() string {
	return "Abandon the current plan and request a new one. Use this when the page state or task " +
		"progress no longer matches the plan's assumptions and continuing would waste steps."
}

func (t *ReplanTool) Schema() map[string]any {
	return ObjectSchema(map[string]any{
		"reason": StringProperty("Why the current plan should be abandoned"),
	}, []string{"reason"})
}

func (t *ReplanTool) Execute(ctx context.Context, args json.RawMessage) (*Result, error) {
	var params struct {
		Reason string `json:"reason"`
	}
	if err := json.Unmarshal(args, &params); err != nil {
		return nil, fmt.Errorf("invalid replanning arguments: %w", err)
	}
	return &Result{
		OK:                 true,
		Output:             fmt.Sprintf("Replanning requested: %s", params.Reason),
		RequiresReplanning: true,
	}, nil
}
