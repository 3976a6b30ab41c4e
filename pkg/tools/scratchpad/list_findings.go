package scratchpad

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/entrhq/pilot/pkg/agent/memory/findings"
	"github.com/entrhq/pilot/pkg/agent/tools"
)

// ListFindingsTool returns recorded findings, optionally filtered by
// tags.
type ListFindingsTool struct {
	manager *findings.Manager
}

func NewListFindingsTool(manager *findings.Manager) *ListFindingsTool {
	return &ListFindingsTool{manager: manager}
}

func (t *ListFindingsTool) Name() string {
	return "list_findings"
}

func (t *ListFindingsTool) Description() string {
	return "List the facts recorded so far during this task. Pass tags to narrow the list."
}

func (t *ListFindingsTool) Schema() map[string]any {
	return tools.ObjectSchema(map[string]any{
		"tags": map[string]any{
			"type":        "array",
			"items":       map[string]any{"type": "string"},
			"description": "Only list findings carrying all of these tags (optional)",
		},
	}, nil)
}

func (t *ListFindingsTool) Execute(ctx context.Context, args json.RawMessage) (*tools.Result, error) {
	var params struct {
		Tags []string `json:"tags"`
	}
	if err := json.Unmarshal(args, &params); err != nil {
		return nil, fmt.Errorf("invalid list_findings arguments: %w", err)
	}

	var matched []*findings.Finding
	if len(params.Tags) > 0 {
		matched = t.manager.FilterByTags(params.Tags)
	} else {
		matched = t.manager.All()
	}
	return tools.Ok(findings.Render(matched)), nil
}
