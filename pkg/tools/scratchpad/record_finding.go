// Package scratchpad exposes the finding store as tools, letting the
// model write down facts gathered from pages and read them back later.
package scratchpad

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/entrhq/pilot/pkg/agent/memory/findings"
	"github.com/entrhq/pilot/pkg/agent/tools"
)

// RecordFindingTool stores one fact in the execution's scratchpad.
type RecordFindingTool struct {
	manager *findings.Manager
}

func NewRecordFindingTool(manager *findings.Manager) *RecordFindingTool {
	return &RecordFindingTool{manager: manager}
}

func (t *RecordFindingTool) Name() string {
	return "record_finding"
}

func (t *RecordFindingTool) Description() string {
	return "Write down a fact discovered on a page so it survives without re-reading the page. " +
		"Use short, specific statements like prices, availability, or form requirements."
}

func (t *RecordFindingTool) Schema() map[string]any {
	return tools.ObjectSchema(map[string]any{
		"content": tools.StringProperty("The fact to record, at most 800 characters"),
		"source":  tools.StringProperty("The URL the fact was observed on (optional)"),
		"tags": map[string]any{
			"type":        "array",
			"items":       map[string]any{"type": "string"},
			"description": "Up to 5 tags for later filtering (optional)",
		},
	}, []string{"content"})
}

func (t *RecordFindingTool) Execute(ctx context.Context, args json.RawMessage) (*tools.Result, error) {
	var params struct {
		Content string   `json:"content"`
		Source  string   `json:"source"`
		Tags    []string `json:"tags"`
	}
	if err := json.Unmarshal(args, &params); err != nil {
		return nil, fmt.Errorf("invalid record_finding arguments: %w", err)
	}

	finding, err := t.manager.Record(params.Content, params.Source, params.Tags)
	if err != nil {
		return tools.Fail(err.Error()), nil
	}
	return tools.Ok(fmt.Sprintf("Recorded finding %s (%d total)", finding.ID, t.manager.Count())), nil
}
