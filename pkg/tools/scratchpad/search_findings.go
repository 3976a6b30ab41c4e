package scratchpad

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/entrhq/pilot/pkg/agent/memory/findings"
	"github.com/entrhq/pilot/pkg/agent/tools"
)

// SearchFindingsTool searches recorded findings by text.
type SearchFindingsTool struct {
	manager *findings.Manager
}

func NewSearchFindingsTool(manager *findings.Manager) *SearchFindingsTool {
	return &SearchFindingsTool{manager: manager}
}

func (t *SearchFindingsTool) Name() string {
	return "search_findings"
}

func (t *SearchFindingsTool) Description() string {
	return "Search recorded facts by text. Matches finding content and source URLs, case-insensitive."
}

func (t *SearchFindingsTool) Schema() map[string]any {
	return tools.ObjectSchema(map[string]any{
		"query": tools.StringProperty("Text to search for"),
		"tags": map[string]any{
			"type":        "array",
			"items":       map[string]any{"type": "string"},
			"description": "Restrict matches to findings carrying all of these tags (optional)",
		},
	}, []string{"query"})
}

func (t *SearchFindingsTool) Execute(ctx context.Context, args json.RawMessage) (*tools.Result, error) {
	var params struct {
		Query string   `json:"query"`
		Tags  []string `json:"tags"`
	}
	if err := json.Unmarshal(args, &params); err != nil {
		return nil, fmt.Errorf("invalid search_findings arguments: %w", err)
	}
	if params.Query == "" {
		return tools.Fail("query is required"), nil
	}

	matched := t.manager.Search(params.Query, params.Tags)
	if len(matched) == 0 {
		return tools.Ok(fmt.Sprintf("No findings match %q.", params.Query)), nil
	}
	return tools.Ok(findings.Render(matched)), nil
}
