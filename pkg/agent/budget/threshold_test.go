package budget

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/pilot/pkg/agent/conversation"
	"github.com/entrhq/pilot/pkg/llm"
	"github.com/entrhq/pilot/pkg/types"
)

// stubProvider returns a canned completion and records how often it was
// called.
type stubProvider struct {
	response string
	err      error
	calls    int
}

func (p *stubProvider) StreamCompletion(ctx context.Context, req *llm.Request) (<-chan *llm.StreamChunk, error) {
	ch := make(chan *llm.StreamChunk, 2)
	ch <- &llm.StreamChunk{Role: "assistant", Content: p.response}
	ch <- &llm.StreamChunk{Finished: true}
	close(ch)
	return ch, nil
}

func (p *stubProvider) Complete(ctx context.Context, req *llm.Request) (*types.Message, error) {
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	return types.NewAssistantMessage(p.response, nil), nil
}

func (p *stubProvider) GetModelInfo() *types.ModelInfo {
	return &types.ModelInfo{Name: "stub", MaxContextTokens: 1000, SupportsStreaming: true, SupportsTools: true}
}

func (p *stubProvider) GetModel() string   { return "stub" }
func (p *stubProvider) GetBaseURL() string { return "" }
func (p *stubProvider) GetAPIKey() string  { return "" }

func populatedLog() *conversation.Log {
	log := conversation.New()
	log.AddSystem("system prompt")
	log.AddUser("book a table for two")
	log.UpsertEphemeral(types.EphemeralBrowserState, "url: opentable.com")
	log.AddAssistant("navigating", nil)
	log.AddToolResult("navigation ok", "call-1")
	log.AddAssistant("searching", nil)
	log.AddToolResult("found 3 results", "call-2")
	return log
}

func TestThresholdStrategy_ShouldRunBoundary(t *testing.T) {
	strategy := NewThresholdStrategy(0.7)
	log := populatedLog()

	// Exactly at the threshold: must not run. Strictly above: runs.
	assert.False(t, strategy.ShouldRun(log, 700, 1000))
	assert.True(t, strategy.ShouldRun(log, 701, 1000))
	assert.False(t, strategy.ShouldRun(log, 699, 1000))
}

func TestThresholdStrategy_ShouldRunNeedsHistory(t *testing.T) {
	strategy := NewThresholdStrategy(0.7)

	log := conversation.New()
	log.AddSystem("system")
	log.AddUser("task")

	// Over budget but nothing to collapse.
	assert.False(t, strategy.ShouldRun(log, 900, 1000))
}

func TestThresholdStrategy_SummarizeCollapsesHistory(t *testing.T) {
	strategy := NewThresholdStrategy(0.7)
	provider := &stubProvider{response: "visited opentable, found 3 candidate slots"}
	log := populatedLog()

	collapsed, err := strategy.Summarize(context.Background(), log, provider)
	require.NoError(t, err)
	assert.Equal(t, 4, collapsed)
	assert.Equal(t, 1, provider.calls)

	messages := log.GetAll()
	// system + task + narrative + browser-state ephemeral
	require.Len(t, messages, 4)
	assert.Equal(t, types.RoleSystem, messages[0].Role)
	assert.Equal(t, "book a table for two", messages[1].Content)
	assert.Contains(t, messages[2].Content, "visited opentable")
	assert.Equal(t, true, messages[2].Metadata["summarized"])
	assert.Equal(t, types.EphemeralBrowserState, messages[3].Ephemeral)
}

func TestThresholdStrategy_SummarizeEmptyNarrativeFails(t *testing.T) {
	strategy := NewThresholdStrategy(0.7)
	provider := &stubProvider{response: "   "}
	log := populatedLog()

	_, err := strategy.Summarize(context.Background(), log, provider)
	assert.Error(t, err)
}

func TestManager_SummarizesAtMostOncePerEvaluation(t *testing.T) {
	provider := &stubProvider{response: "narrative"}
	strategy := NewThresholdStrategy(0.7)
	manager, err := NewManager(provider, 1000, strategy)
	require.NoError(t, err)

	log := populatedLog()

	// Below threshold: no call.
	collapsed, err := manager.EvaluateAndSummarize(context.Background(), log, 500)
	require.NoError(t, err)
	assert.Zero(t, collapsed)
	assert.Zero(t, provider.calls)

	// Above threshold: exactly one summarization call.
	collapsed, err = manager.EvaluateAndSummarize(context.Background(), log, 800)
	require.NoError(t, err)
	assert.Equal(t, 4, collapsed)
	assert.Equal(t, 1, provider.calls)
}
