package browser

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/entrhq/pilot/pkg/agent/tools"
)

const defaultScrollPixels = 600

// ScrollTool scrolls the page up or down.
type ScrollTool struct {
	manager *SessionManager
}

func NewScrollTool(manager *SessionManager) *ScrollTool {
	return &ScrollTool{manager: manager}
}

func (t *ScrollTool) Name() string {
	return "browser_scroll"
}

func (t *ScrollTool) Description() string {
	return "Scroll the current page up or down to reveal more content."
}

func (t *ScrollTool) Schema() map[string]any {
	return tools.ObjectSchema(map[string]any{
		"direction": tools.StringProperty("Scroll direction: up or down (default down)"),
		"pixels":    tools.IntProperty("How far to scroll in pixels (default 600)"),
	}, nil)
}

func (t *ScrollTool) Execute(ctx context.Context, args json.RawMessage) (*tools.Result, error) {
	var params struct {
		Direction string `json:"direction"`
		Pixels    int    `json:"pixels"`
	}
	if err := json.Unmarshal(args, &params); err != nil {
		return nil, fmt.Errorf("invalid scroll arguments: %w", err)
	}
	if params.Pixels <= 0 {
		params.Pixels = defaultScrollPixels
	}

	amount := params.Pixels
	switch params.Direction {
	case "", "down":
	case "up":
		amount = -amount
	default:
		return tools.Fail(fmt.Sprintf("unknown scroll direction %q; use up or down", params.Direction)), nil
	}

	session, err := t.manager.Session()
	if err != nil {
		return tools.Fail("no active browser session; navigate to a page first"), nil
	}
	if err := session.Scroll(amount); err != nil {
		return tools.Fail(err.Error()), nil
	}
	return tools.Ok(fmt.Sprintf("Scrolled %d pixels", amount)), nil
}
