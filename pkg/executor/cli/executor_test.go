package cli

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/pilot/pkg/types"
)

// fakeAgent replays a scripted event sequence when it receives a task
// and records the inputs it was sent.
type fakeAgent struct {
	channels *types.AgentChannels
	events   []*types.AgentEvent
	mu       sync.Mutex
	inputs   []*types.Input
}

func newFakeAgent(events []*types.AgentEvent) *fakeAgent {
	return &fakeAgent{
		channels: types.NewAgentChannels(64),
		events:   events,
	}
}

func (a *fakeAgent) Start(ctx context.Context) error {
	go func() {
		for input := range a.channels.Input {
			a.mu.Lock()
			a.inputs = append(a.inputs, input)
			a.mu.Unlock()
			if input.IsTask() {
				for _, event := range a.events {
					a.channels.Event <- event
				}
			}
		}
	}()
	return nil
}

// waitForInputs blocks until the recording goroutine has seen at least
// n inputs, so assertions on a.inputs observe a settled slice.
func (a *fakeAgent) waitForInputs(t *testing.T, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		a.mu.Lock()
		count := len(a.inputs)
		a.mu.Unlock()
		if count >= n {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d inputs", n)
}

func (a *fakeAgent) Shutdown(ctx context.Context) error {
	close(a.channels.Input)
	return nil
}

func (a *fakeAgent) GetChannels() *types.AgentChannels {
	return a.channels
}

func TestRunTaskRendersEvents(t *testing.T) {
	events := []*types.AgentEvent{
		types.NewThinkingUpdateEvent("m1", "Looking at"),
		types.NewThinkingUpdateEvent("m1", "Looking at the page"),
		types.NewToolCallEvent("browser_navigate", map[string]any{"url": "https://example.com"}),
		types.NewToolResultEvent("browser_navigate", "Navigated to https://example.com"),
		types.NewAssistantMessageEvent("m2", "All done."),
		types.NewTurnEndEvent(),
	}

	var out strings.Builder
	ag := newFakeAgent(events)
	executor := NewExecutor(ag, WithWriter(&out), WithInput(strings.NewReader("")))

	require.NoError(t, executor.RunTask(context.Background(), "check example.com", nil))

	rendered := out.String()
	assert.Contains(t, rendered, "check example.com")
	// Incremental thinking prints each fragment exactly once.
	assert.Equal(t, 1, strings.Count(rendered, "Looking at the page"))
	assert.Contains(t, rendered, "browser_navigate")
	assert.Contains(t, rendered, "All done.")
}

func TestRunTaskAnswersHumanInput(t *testing.T) {
	events := []*types.AgentEvent{
		types.NewHumanInputRequestEvent("req-1", "Solve the CAPTCHA, then confirm."),
		types.NewTurnEndEvent(),
	}

	var out strings.Builder
	ag := newFakeAgent(events)
	executor := NewExecutor(ag, WithWriter(&out), WithInput(strings.NewReader("y\n")))

	require.NoError(t, executor.RunTask(context.Background(), "buy tickets", nil))
	ag.waitForInputs(t, 2)

	assert.Contains(t, out.String(), "Solve the CAPTCHA")

	var response *types.Input
	for _, input := range ag.inputs {
		if input.IsHumanInputResponse() {
			response = input
		}
	}
	require.NotNil(t, response)
	assert.Equal(t, "req-1", response.Response.RequestID)
	assert.Equal(t, types.HumanActionDone, response.Response.Action)
}

func TestRunTaskAbortsHumanInputOnNo(t *testing.T) {
	events := []*types.AgentEvent{
		types.NewHumanInputRequestEvent("req-2", "Approve the payment."),
		types.NewTurnEndEvent(),
	}

	ag := newFakeAgent(events)
	executor := NewExecutor(ag, WithWriter(&strings.Builder{}), WithInput(strings.NewReader("n\n")))

	require.NoError(t, executor.RunTask(context.Background(), "pay invoice", nil))
	ag.waitForInputs(t, 2)

	var response *types.Input
	for _, input := range ag.inputs {
		if input.IsHumanInputResponse() {
			response = input
		}
	}
	require.NotNil(t, response)
	assert.Equal(t, types.HumanActionAbort, response.Response.Action)
}

func TestRunTaskForwardsMetadata(t *testing.T) {
	events := []*types.AgentEvent{types.NewTurnEndEvent()}
	ag := newFakeAgent(events)
	executor := NewExecutor(ag, WithWriter(&strings.Builder{}), WithInput(strings.NewReader("")))

	meta := &types.TaskMetadata{
		Mode: types.ModePredefined,
		Plan: &types.PredefinedPlan{Name: "checkout", Goal: "buy", Steps: []string{"open cart"}},
	}
	require.NoError(t, executor.RunTask(context.Background(), "buy", meta))

	require.NotEmpty(t, ag.inputs)
	task := ag.inputs[0]
	require.NotNil(t, task.Task)
	assert.Equal(t, types.ModePredefined, task.Task.Mode)
}
