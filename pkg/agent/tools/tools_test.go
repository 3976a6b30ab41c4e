package tools

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTool struct {
	name   string
	schema map[string]any
}

func (f *fakeTool) Name() string           { return f.name }
func (f *fakeTool) Description() string    { return "fake tool" }
func (f *fakeTool) Schema() map[string]any { return f.schema }
func (f *fakeTool) Execute(ctx context.Context, args json.RawMessage) (*Result, error) {
	return Ok("ran"), nil
}

func validSchema() map[string]any {
	return ObjectSchema(map[string]any{"x": StringProperty("x")}, nil)
}

func TestRegistryRegisterAndGet(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(&fakeTool{name: "alpha", schema: validSchema()}))

	got, ok := r.Get("alpha")
	require.True(t, ok)
	assert.Equal(t, "alpha", got.Name())

	_, ok = r.Get("missing")
	assert.False(t, ok)
}

func TestRegistryRejectsInvalidTools(t *testing.T) {
	r := NewRegistry()
	assert.Error(t, r.Register(nil))
	assert.Error(t, r.Register(&fakeTool{name: "", schema: validSchema()}))
	assert.Error(t, r.Register(&fakeTool{name: "noschema", schema: nil}))

	require.NoError(t, r.Register(&fakeTool{name: "dup", schema: validSchema()}))
	assert.Error(t, r.Register(&fakeTool{name: "dup", schema: validSchema()}))
}

func TestRegistryDefinitionsSorted(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(&fakeTool{name: "charlie", schema: validSchema()}))
	require.NoError(t, r.Register(&fakeTool{name: "alpha", schema: validSchema()}))
	require.NoError(t, r.Register(&fakeTool{name: "bravo", schema: validSchema()}))

	defs := r.Definitions()
	require.Len(t, defs, 3)
	assert.Equal(t, "alpha", defs[0].Name)
	assert.Equal(t, "bravo", defs[1].Name)
	assert.Equal(t, "charlie", defs[2].Name)
	assert.Equal(t, []string{"alpha", "bravo", "charlie"}, r.Names())
}

func TestDoneToolSetsSignalFlags(t *testing.T) {
	tool := NewDoneTool()
	res, err := tool.Execute(context.Background(), json.RawMessage(`{"success":true,"message":"all set"}`))
	require.NoError(t, err)
	assert.True(t, res.OK)
	assert.True(t, res.Done)
	assert.True(t, res.Success)
	assert.Equal(t, "all set", res.Output)
}

func TestDoneToolTerminatesEvenOnFailure(t *testing.T) {
	tool := NewDoneTool()
	res, err := tool.Execute(context.Background(), json.RawMessage(`{"success":false,"message":"could not finish"}`))
	require.NoError(t, err)
	assert.True(t, res.Done, "done must terminate the loop regardless of success")
	assert.False(t, res.Success)
}

func TestReplanToolSignalsReplanning(t *testing.T) {
	tool := NewReplanTool()
	res, err := tool.Execute(context.Background(), json.RawMessage(`{"reason":"page changed"}`))
	require.NoError(t, err)
	assert.True(t, res.OK)
	assert.True(t, res.RequiresReplanning)
	assert.Contains(t, res.Output, "page changed")
}

func TestHumanInputToolCarriesPrompt(t *testing.T) {
	tool := NewHumanInputTool()
	res, err := tool.Execute(context.Background(), json.RawMessage(`{"prompt":"please log in"}`))
	require.NoError(t, err)
	assert.True(t, res.RequiresHumanInput)
	assert.Equal(t, "please log in", res.HumanPrompt)

	res, err = tool.Execute(context.Background(), json.RawMessage(`{}`))
	require.NoError(t, err)
	assert.False(t, res.OK)
}

func TestResultTextIsJSON(t *testing.T) {
	res := Fail("boom")
	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(res.Text()), &decoded))
	assert.Equal(t, false, decoded["ok"])
	assert.Equal(t, "boom", decoded["error"])
}
