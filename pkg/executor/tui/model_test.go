package tui

import (
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/pilot/pkg/types"
)

func applyEvent(m model, event *types.AgentEvent) model {
	updated, _ := m.handleEvent(event)
	return updated.(model)
}

func TestThinkingUpdatesReplaceInPlace(t *testing.T) {
	m := initialModel(types.NewAgentChannels(8), "test task")

	m = applyEvent(m, types.NewThinkingUpdateEvent("m1", "Looking"))
	m = applyEvent(m, types.NewThinkingUpdateEvent("m1", "Looking at the page"))

	require.Len(t, m.lines, 1)
	assert.Contains(t, m.lines[0], "Looking at the page")
}

func TestAssistantMessageReplacesThinkingLine(t *testing.T) {
	m := initialModel(types.NewAgentChannels(8), "test task")

	m = applyEvent(m, types.NewThinkingUpdateEvent("m1", "partial"))
	m = applyEvent(m, types.NewAssistantMessageEvent("m1", "Final answer."))

	require.Len(t, m.lines, 1)
	assert.Contains(t, m.lines[0], "Final answer.")
	assert.Empty(t, m.thinkingLine)
}

func TestHumanInputPromptAndAnswer(t *testing.T) {
	channels := types.NewAgentChannels(8)
	m := initialModel(channels, "test task")

	m = applyEvent(m, types.NewHumanInputRequestEvent("req-1", "Solve the CAPTCHA."))
	require.NotNil(t, m.pendingInput)
	assert.Contains(t, m.View(), "Solve the CAPTCHA.")

	updated, _ := m.handleKey(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'y'}})
	m = updated.(model)
	assert.Nil(t, m.pendingInput)

	input := <-channels.Input
	require.True(t, input.IsHumanInputResponse())
	assert.Equal(t, "req-1", input.Response.RequestID)
	assert.Equal(t, types.HumanActionDone, input.Response.Action)
}

func TestCancelKeySendsCancelInput(t *testing.T) {
	channels := types.NewAgentChannels(8)
	m := initialModel(channels, "test task")
	m.busy = true

	_, _ = m.handleKey(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})

	input := <-channels.Input
	assert.True(t, input.IsCancel())
}

func TestTurnEndMarksDoneAndEnterQuits(t *testing.T) {
	m := initialModel(types.NewAgentChannels(8), "test task")

	m = applyEvent(m, types.NewTurnEndEvent())
	assert.True(t, m.done)
	assert.Contains(t, m.statusBar(), "finished")

	_, cmd := m.handleKey(tea.KeyMsg{Type: tea.KeyEnter})
	assert.NotNil(t, cmd)
}

func TestErrorAndTokenEvents(t *testing.T) {
	m := initialModel(types.NewAgentChannels(8), "test task")

	m = applyEvent(m, types.NewErrorEvent(errors.New("provider unavailable")))
	m = applyEvent(m, types.NewTokenUsageEvent(100, 20, 120))
	m = applyEvent(m, types.NewTokenUsageEvent(50, 10, 60))

	assert.Contains(t, m.lines[0], "provider unavailable")
	assert.Equal(t, 180, m.tokensUsed)
}
