package browser

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/entrhq/pilot/pkg/agent/tools"
)

// ExtractContentTool reads the current page for the model: either the
// cleaned semantic HTML of the whole page or the text of one element.
type ExtractContentTool struct {
	manager *SessionManager
}

func NewExtractContentTool(manager *SessionManager) *ExtractContentTool {
	return &ExtractContentTool{manager: manager}
}

func (t *ExtractContentTool) Name() string {
	return "browser_extract_content"
}

func (t *ExtractContentTool) Description() string {
	return "Extract readable content from the current page. Without a selector the whole page is returned " +
		"as cleaned HTML; with a selector only that element's text is returned."
}

func (t *ExtractContentTool) Schema() map[string]any {
	return tools.ObjectSchema(map[string]any{
		"selector":   tools.StringProperty("Optional CSS selector to extract a single element's text"),
		"max_length": tools.IntProperty("Maximum number of characters to return"),
	}, nil)
}

func (t *ExtractContentTool) Execute(ctx context.Context, args json.RawMessage) (*tools.Result, error) {
	var params struct {
		Selector  string `json:"selector"`
		MaxLength int    `json:"max_length"`
	}
	if err := json.Unmarshal(args, &params); err != nil {
		return nil, fmt.Errorf("invalid extract_content arguments: %w", err)
	}

	session, err := t.manager.Session()
	if err != nil {
		return tools.Fail("no active browser session; navigate to a page first"), nil
	}
	content, err := session.ExtractContent(params.Selector, params.MaxLength)
	if err != nil {
		return tools.Fail(err.Error()), nil
	}
	return tools.Ok(content), nil
}
