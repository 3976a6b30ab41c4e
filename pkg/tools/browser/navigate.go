package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/entrhq/pilot/pkg/agent/tools"
	"github.com/entrhq/pilot/pkg/security/navigation"
)

// NavigateTool loads a URL in the browser session. Destinations are
// checked against the navigation allowlist before any request is made.
type NavigateTool struct {
	manager *SessionManager
}

// NewNavigateTool creates a navigation tool bound to the given session
// manager.
func NewNavigateTool(manager *SessionManager) *NavigateTool {
	return &NavigateTool{manager: manager}
}

func (t *NavigateTool) Name() string {
	return "browser_navigate"
}

func (t *NavigateTool) Description() string {
	return "Navigate the browser to a URL. Only http and https URLs within the allowed domains are permitted."
}

func (t *NavigateTool) Schema() map[string]any {
	return tools.ObjectSchema(map[string]any{
		"url":        tools.StringProperty("The absolute URL to navigate to"),
		"wait_until": tools.StringProperty("When to consider navigation finished: load, domcontentloaded, or networkidle (default load)"),
	}, []string{"url"})
}

func (t *NavigateTool) Execute(ctx context.Context, args json.RawMessage) (*tools.Result, error) {
	var params struct {
		URL       string `json:"url"`
		WaitUntil string `json:"wait_until"`
	}
	if err := json.Unmarshal(args, &params); err != nil {
		return nil, fmt.Errorf("invalid navigate arguments: %w", err)
	}
	if params.URL == "" {
		return tools.Fail("url is required"), nil
	}

	session, err := t.manager.ensure()
	if err != nil {
		return nil, err
	}

	if err := session.Navigate(params.URL, params.WaitUntil); err != nil {
		var violation *navigation.Violation
		if errors.As(err, &violation) {
			return tools.Fail(fmt.Sprintf("navigation to %s blocked by domain policy (rule: %s)", violation.URL, violation.Pattern)), nil
		}
		return tools.Fail(err.Error()), nil
	}

	return tools.Ok(fmt.Sprintf("Navigated to %s", session.CurrentURL())), nil
}
