package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/entrhq/pilot/pkg/agent/tools"
)

// ScreenshotTool captures the current page as a PNG written to a
// temporary file. The model receives the path so it can report it.
type ScreenshotTool struct {
	manager *SessionManager
	outDir  string
}

func NewScreenshotTool(manager *SessionManager) *ScreenshotTool {
	return &ScreenshotTool{manager: manager, outDir: os.TempDir()}
}

func (t *ScreenshotTool) Name() string {
	return "browser_screenshot"
}

func (t *ScreenshotTool) Description() string {
	return "Take a screenshot of the current page and save it as a PNG file. " +
		"Set full_page to true to capture beyond the viewport."
}

func (t *ScreenshotTool) Schema() map[string]any {
	return tools.ObjectSchema(map[string]any{
		"full_page": tools.BoolProperty("Capture the entire page instead of just the viewport (default false)"),
	}, nil)
}

func (t *ScreenshotTool) Execute(ctx context.Context, args json.RawMessage) (*tools.Result, error) {
	var params struct {
		FullPage bool `json:"full_page"`
	}
	if err := json.Unmarshal(args, &params); err != nil {
		return nil, fmt.Errorf("invalid screenshot arguments: %w", err)
	}

	session, err := t.manager.Session()
	if err != nil {
		return tools.Fail("no active browser session; navigate to a page first"), nil
	}
	data, err := session.Screenshot(params.FullPage)
	if err != nil {
		return tools.Fail(err.Error()), nil
	}

	path := filepath.Join(t.outDir, fmt.Sprintf("pilot-screenshot-%d.png", time.Now().UnixNano()))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return tools.Fail(fmt.Sprintf("saving screenshot: %v", err)), nil
	}
	return tools.Ok(fmt.Sprintf("Screenshot saved to %s (%d bytes)", path, len(data))), nil
}
