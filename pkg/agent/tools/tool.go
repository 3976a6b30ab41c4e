package tools

import (
	"context"
	"encoding/json"
)

// Tool represents a capability the model can invoke during execution.
// Tools are called through native tool-calling: the model emits a call with
// JSON arguments, the dispatcher decodes and executes it, and exactly one
// Result is recorded for every call.
type Tool interface {
	// Name returns the unique identifier for this tool (e.g. "browser_navigate").
	Name() string

	// Description returns a human-readable description of what this tool
	// does, shown to the model.
	Description() string

	// Schema returns the JSON schema for this tool's input parameters.
	Schema() map[string]any

	// Execute runs the tool with the given JSON arguments. A nil error
	// with Result.OK=false reports a recoverable tool-level failure; a
	// non-nil error is converted by the dispatcher into a failed Result.
	Execute(ctx context.Context, args json.RawMessage) (*Result, error)
}

// Result is the envelope every tool returns. Beyond ok/output/error the
// engine inspects three reserved signal flags that steer the execution
// loop; everything else is opaque tool output.
type Result struct {
	// OK reports whether the tool accomplished its action.
	OK bool `json:"ok"`

	// Output is the tool's result text, fed back to the model.
	Output string `json:"output,omitempty"`

	// Error describes the failure when OK is false.
	Error string `json:"error,omitempty"`

	// Done signals the task is complete and the loop should stop.
	Done bool `json:"done,omitempty"`

	// Success carries the done tool's own assessment of the task outcome.
	// The loop terminates on Done regardless of Success; the flag is
	// surfaced in the final result message.
	Success bool `json:"success,omitempty"`

	// RequiresReplanning signals the current plan should be abandoned and
	// a new planning cycle started.
	RequiresReplanning bool `json:"requiresReplanning,omitempty"`

	// RequiresHumanInput signals the run must pause for external approval.
	RequiresHumanInput bool `json:"requiresHumanInput,omitempty"`

	// HumanPrompt is the question to surface with a human-input request.
	HumanPrompt string `json:"humanPrompt,omitempty"`
}

// Ok builds a successful result with the given output.
func Ok(output string) *Result {
	return &Result{OK: true, Output: output}
}

// Fail builds a failed result with the given error text.
func Fail(errText string) *Result {
	return &Result{OK: false, Error: errText}
}

// Text renders the result as the tool-message content recorded in the
// conversation log.
func (r *Result) Text() string {
	data, err := json.Marshal(r)
	if err != nil {
		// Result fields are all marshalable; this is unreachable in practice.
		return `{"ok":false,"error":"unencodable tool result"}`
	}
	return string(data)
}

// ObjectSchema creates a common JSON schema structure for a tool with the
// given properties and required fields.
func ObjectSchema(properties map[string]any, required []string) map[string]any {
	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

// StringProperty builds a string-typed schema property.
func StringProperty(description string) map[string]any {
	return map[string]any{"type": "string", "description": description}
}

// BoolProperty builds a boolean-typed schema property.
func BoolProperty(description string) map[string]any {
	return map[string]any{"type": "boolean", "description": description}
}

// IntProperty builds an integer-typed schema property.
func IntProperty(description string) map[string]any {
	return map[string]any{"type": "integer", "description": description}
}
