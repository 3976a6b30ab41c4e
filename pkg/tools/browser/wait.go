package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/entrhq/pilot/pkg/agent/tools"
)

// WaitTool blocks until an element reaches the requested state, for
// pages that render content asynchronously.
type WaitTool struct {
	manager *SessionManager
}

func NewWaitTool(manager *SessionManager) *WaitTool {
	return &WaitTool{manager: manager}
}

func (t *WaitTool) Name() string {
	return "browser_wait"
}

func (t *WaitTool) Description() string {
	return "Wait for an element to appear or disappear before continuing. " +
		"Useful after actions that trigger asynchronous page updates."
}

func (t *WaitTool) Schema() map[string]any {
	return tools.ObjectSchema(map[string]any{
		"selector":        tools.StringProperty("CSS selector of the element to wait for"),
		"state":           tools.StringProperty("Target state: visible, attached, hidden, or detached (default visible)"),
		"timeout_seconds": tools.IntProperty("How long to wait before giving up (default 30)"),
	}, []string{"selector"})
}

func (t *WaitTool) Execute(ctx context.Context, args json.RawMessage) (*tools.Result, error) {
	var params struct {
		Selector       string `json:"selector"`
		State          string `json:"state"`
		TimeoutSeconds int    `json:"timeout_seconds"`
	}
	if err := json.Unmarshal(args, &params); err != nil {
		return nil, fmt.Errorf("invalid wait arguments: %w", err)
	}
	if params.Selector == "" {
		return tools.Fail("selector is required"), nil
	}

	switch params.State {
	case "", "visible", "attached", "hidden", "detached":
	default:
		return tools.Fail(fmt.Sprintf("unknown state %q; use visible, attached, hidden, or detached", params.State)), nil
	}

	session, err := t.manager.Session()
	if err != nil {
		return tools.Fail("no active browser session; navigate to a page first"), nil
	}
	timeout := time.Duration(params.TimeoutSeconds) * time.Second
	if err := session.WaitFor(params.Selector, params.State, timeout); err != nil {
		return tools.Fail(err.Error()), nil
	}

	state := params.State
	if state == "" {
		state = "visible"
	}
	return tools.Ok(fmt.Sprintf("Element %s is now %s", params.Selector, state)), nil
}
