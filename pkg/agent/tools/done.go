package tools

import (
	"context"
	"encoding/json"
	"fmt"
)

// DoneTool signals that the task is complete. Calling it always
// terminates the execution loop; the success flag records whether the
// model believes the goal was actually achieved.
type DoneTool struct{}

// NewDoneTool creates a new done signal tool.
func NewDoneTool() *DoneTool {
	return &DoneTool{}
}

func (t *DoneTool) Name() string {
	return "done"
}

func (t *DoneTool) Description() string {
	return "Signal that the task is finished. Call this exactly once, when no further actions are needed. " +
		"Set success to true only if the task goal was fully achieved, and summarize the outcome in message."
}

func (t *DoneTool) Schema() map[string]any {
	return ObjectSchema(map[string]any{
		"success": BoolProperty("Whether the task goal was fully achieved"),
		"message": StringProperty("Short summary of what was accomplished, or why the task could not be completed"),
	}, []string{"success", "message"})
}

func (t *DoneTool) Execute(ctx context.Context, args json.RawMessage) (*Result, error) {
	var params struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(args, &params); err != nil {
		return nil, fmt.Errorf("invalid done arguments: %w", err)
	}
	return &Result{
		OK:      true,
		Output:  params.Message,
		Done:    true,
		Success: params.Success,
	}, nil
}
