package scratchpad

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/pilot/pkg/agent/memory/findings"
	"github.com/entrhq/pilot/pkg/agent/tools"
)

func TestRecordAndListFindings(t *testing.T) {
	manager := findings.NewManager()
	record := NewRecordFindingTool(manager)
	list := NewListFindingsTool(manager)

	result, err := record.Execute(context.Background(), json.RawMessage(
		`{"content": "Flight A costs $320", "source": "https://a.example.com", "tags": ["price"]}`))
	require.NoError(t, err)
	assert.True(t, result.OK)
	assert.Contains(t, result.Output, "1 total")

	result, err = list.Execute(context.Background(), json.RawMessage(`{}`))
	require.NoError(t, err)
	assert.True(t, result.OK)
	assert.Contains(t, result.Output, "Flight A costs $320")
	assert.Contains(t, result.Output, "https://a.example.com")
}

func TestRecordFindingValidation(t *testing.T) {
	record := NewRecordFindingTool(findings.NewManager())

	result, err := record.Execute(context.Background(), json.RawMessage(`{"content": ""}`))
	require.NoError(t, err)
	assert.False(t, result.OK)
	assert.Contains(t, result.Error, "cannot be empty")

	_, err = record.Execute(context.Background(), json.RawMessage(`{"content": 5}`))
	assert.Error(t, err)
}

func TestListFindingsFiltersByTags(t *testing.T) {
	manager := findings.NewManager()
	_, err := manager.Record("Flight fact", "", []string{"flight"})
	require.NoError(t, err)
	_, err = manager.Record("Hotel fact", "", []string{"hotel"})
	require.NoError(t, err)

	list := NewListFindingsTool(manager)
	result, err := list.Execute(context.Background(), json.RawMessage(`{"tags": ["hotel"]}`))
	require.NoError(t, err)
	assert.Contains(t, result.Output, "Hotel fact")
	assert.NotContains(t, result.Output, "Flight fact")
}

func TestSearchFindings(t *testing.T) {
	manager := findings.NewManager()
	_, err := manager.Record("Checkout requires a phone number", "", []string{"checkout"})
	require.NoError(t, err)

	search := NewSearchFindingsTool(manager)

	result, err := search.Execute(context.Background(), json.RawMessage(`{"query": "phone"}`))
	require.NoError(t, err)
	assert.True(t, result.OK)
	assert.Contains(t, result.Output, "phone number")

	result, err = search.Execute(context.Background(), json.RawMessage(`{"query": "nothing here"}`))
	require.NoError(t, err)
	assert.Contains(t, result.Output, "No findings match")

	result, err = search.Execute(context.Background(), json.RawMessage(`{}`))
	require.NoError(t, err)
	assert.False(t, result.OK)
}

func TestRegisterAll(t *testing.T) {
	registrar := &recordingRegistrar{}
	require.NoError(t, RegisterAll(registrar, findings.NewManager()))
	assert.ElementsMatch(t, []string{"record_finding", "list_findings", "search_findings"}, registrar.names)
}

type recordingRegistrar struct {
	names []string
}

func (r *recordingRegistrar) RegisterTool(tool tools.Tool) error {
	r.names = append(r.names, tool.Name())
	return nil
}
