package tools

import (
	"context"
	"encoding/json"
	"fmt"
)

// HumanInputTool pauses execution for external confirmation. The
// dispatcher surfaces the prompt through the human-input coordinator and
// resumes or aborts based on the response.
type HumanInputTool struct{}

// NewHumanInputTool creates a new human-input signal tool.
func NewHumanInputTool() *HumanInputTool {
	return &HumanInputTool{}
}

func (t *HumanInputTool) Name() string {
	return "request_human_input"
}

func (t *HumanInputTool) Description() string {
	return "Pause and ask the user to intervene, for example to complete a login, solve a captcha, " +
		"or approve a sensitive action. Execution resumes when the user confirms they are done."
}

func (t *HumanInputTool) Schema() map[string]any {
	return ObjectSchema(map[string]any{
		"prompt": StringProperty("What the user needs to do before execution can continue"),
	}, []string{"prompt"})
}

func (t *HumanInputTool) Execute(ctx context.Context, args json.RawMessage) (*Result, error) {
	var params struct {
		Prompt string `json:"prompt"`
	}
	if err := json.Unmarshal(args, &params); err != nil {
		return nil, fmt.Errorf("invalid human input arguments: %w", err)
	}
	if params.Prompt == "" {
		return Fail("prompt is required"), nil
	}
	return &Result{
		OK:                 true,
		Output:             "Waiting for human input",
		RequiresHumanInput: true,
		HumanPrompt:        params.Prompt,
	}, nil
}
