package browser

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/entrhq/pilot/pkg/agent/tools"
)

// ClickTool clicks an element identified by a CSS selector.
type ClickTool struct {
	manager *SessionManager
}

func NewClickTool(manager *SessionManager) *ClickTool {
	return &ClickTool{manager: manager}
}

func (t *ClickTool) Name() string {
	return "browser_click"
}

func (t *ClickTool) Description() string {
	return "Click an element on the current page, identified by a CSS selector."
}

func (t *ClickTool) Schema() map[string]any {
	return tools.ObjectSchema(map[string]any{
		"selector": tools.StringProperty("CSS selector of the element to click"),
	}, []string{"selector"})
}

func (t *ClickTool) Execute(ctx context.Context, args json.RawMessage) (*tools.Result, error) {
	var params struct {
		Selector string `json:"selector"`
	}
	if err := json.Unmarshal(args, &params); err != nil {
		return nil, fmt.Errorf("invalid click arguments: %w", err)
	}
	if params.Selector == "" {
		return tools.Fail("selector is required"), nil
	}

	session, err := t.manager.Session()
	if err != nil {
		return tools.Fail("no active browser session; navigate to a page first"), nil
	}
	if err := session.Click(params.Selector); err != nil {
		return tools.Fail(err.Error()), nil
	}
	return tools.Ok(fmt.Sprintf("Clicked %s (now at %s)", params.Selector, session.CurrentURL())), nil
}
