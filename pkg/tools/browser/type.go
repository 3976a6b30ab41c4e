package browser

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/entrhq/pilot/pkg/agent/tools"
)

// TypeTool fills a form field with text, optionally submitting with
// Enter afterwards.
type TypeTool struct {
	manager *SessionManager
}

func NewTypeTool(manager *SessionManager) *TypeTool {
	return &TypeTool{manager: manager}
}

func (t *TypeTool) Name() string {
	return "browser_type"
}

func (t *TypeTool) Description() string {
	return "Type text into an input or textarea identified by a CSS selector. " +
		"Set press_enter to true to submit after typing."
}

func (t *TypeTool) Schema() map[string]any {
	return tools.ObjectSchema(map[string]any{
		"selector":    tools.StringProperty("CSS selector of the input element"),
		"text":        tools.StringProperty("The text to type"),
		"press_enter": tools.BoolProperty("Press Enter after typing (default false)"),
	}, []string{"selector", "text"})
}

func (t *TypeTool) Execute(ctx context.Context, args json.RawMessage) (*tools.Result, error) {
	var params struct {
		Selector   string `json:"selector"`
		Text       string `json:"text"`
		PressEnter bool   `json:"press_enter"`
	}
	if err := json.Unmarshal(args, &params); err != nil {
		return nil, fmt.Errorf("invalid type arguments: %w", err)
	}
	if params.Selector == "" {
		return tools.Fail("selector is required"), nil
	}

	session, err := t.manager.Session()
	if err != nil {
		return tools.Fail("no active browser session; navigate to a page first"), nil
	}
	if err := session.Type(params.Selector, params.Text, params.PressEnter); err != nil {
		return tools.Fail(err.Error()), nil
	}

	action := fmt.Sprintf("Typed %d characters into %s", len(params.Text), params.Selector)
	if params.PressEnter {
		action += " and pressed Enter"
	}
	return tools.Ok(action), nil
}
