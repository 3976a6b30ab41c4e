package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/pilot/pkg/agent/planner"
	"github.com/entrhq/pilot/pkg/agent/todo"
	"github.com/entrhq/pilot/pkg/agent/tools"
	"github.com/entrhq/pilot/pkg/llm"
	"github.com/entrhq/pilot/pkg/types"
)

// scriptedEngineProvider replays canned completions and streams in
// order, one per call.
type scriptedEngineProvider struct {
	mu          sync.Mutex
	completions []string
	streams     [][]*llm.StreamChunk
	// streamErrs fails the call at the matching index instead of
	// streaming; the streams entry for that index goes unused.
	streamErrs []error
	completes  int
	streamed   int
}

func (p *scriptedEngineProvider) Complete(ctx context.Context, req *llm.Request) (*types.Message, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.completes >= len(p.completions) {
		return nil, fmt.Errorf("unexpected Complete call %d", p.completes+1)
	}
	content := p.completions[p.completes]
	p.completes++
	return types.NewAssistantMessage(content, nil), nil
}

func (p *scriptedEngineProvider) StreamCompletion(ctx context.Context, req *llm.Request) (<-chan *llm.StreamChunk, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.streamed < len(p.streamErrs) && p.streamErrs[p.streamed] != nil {
		err := p.streamErrs[p.streamed]
		p.streamed++
		return nil, err
	}
	if p.streamed >= len(p.streams) {
		return nil, fmt.Errorf("unexpected stream call %d", p.streamed+1)
	}
	chunks := p.streams[p.streamed]
	p.streamed++

	ch := make(chan *llm.StreamChunk, len(chunks))
	for _, c := range chunks {
		ch <- c
	}
	close(ch)
	return ch, nil
}

func (p *scriptedEngineProvider) GetModelInfo() *types.ModelInfo {
	return &types.ModelInfo{Name: "scripted", MaxContextTokens: 128000, SupportsStreaming: true, SupportsTools: true}
}

func (p *scriptedEngineProvider) GetModel() string   { return "scripted" }
func (p *scriptedEngineProvider) GetBaseURL() string { return "" }
func (p *scriptedEngineProvider) GetAPIKey() string  { return "" }

// recordingTool counts executions and returns a configurable result.
type recordingTool struct {
	name     string
	result   *tools.Result
	err      error
	panicMsg string
	mu       sync.Mutex
	calls    int
}

func (t *recordingTool) Name() string           { return t.name }
func (t *recordingTool) Description() string    { return "test tool" }
func (t *recordingTool) Schema() map[string]any { return tools.ObjectSchema(map[string]any{}, nil) }
func (t *recordingTool) Execute(ctx context.Context, args json.RawMessage) (*tools.Result, error) {
	t.mu.Lock()
	t.calls++
	t.mu.Unlock()
	if t.panicMsg != "" {
		panic(t.panicMsg)
	}
	if t.err != nil {
		return nil, t.err
	}
	if t.result != nil {
		return t.result, nil
	}
	return tools.Ok("ok"), nil
}

func (t *recordingTool) callCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.calls
}

func textChunks(content string) []*llm.StreamChunk {
	return []*llm.StreamChunk{
		{Role: "assistant", Content: content},
		{Finished: true},
	}
}

func toolCallChunks(id, name, args string) []*llm.StreamChunk {
	return []*llm.StreamChunk{
		{Role: "assistant", ToolCalls: []llm.ToolCallDelta{{Index: 0, ID: id, Name: name, ArgumentsFragment: args}}},
		{Finished: true},
	}
}

// newTestEngine builds an engine with a large event buffer plus a
// collector goroutine so blocking emits never stall a test.
func newTestEngine(t *testing.T, provider llm.Provider, opts ...Option) (*Engine, *eventCollector) {
	t.Helper()
	opts = append([]Option{WithBufferSize(256)}, opts...)
	e := NewEngine(provider, opts...)

	collector := newEventCollector(e)
	t.Cleanup(collector.stop)
	return e, collector
}

type eventCollector struct {
	engine *Engine
	mu     sync.Mutex
	events []*types.AgentEvent
	// onEvent, when set, runs for each event as it arrives.
	onEvent func(*types.AgentEvent)
	done    chan struct{}
	once    sync.Once
}

func newEventCollector(e *Engine) *eventCollector {
	c := &eventCollector{engine: e, done: make(chan struct{})}
	go func() {
		for {
			select {
			case <-c.done:
				return
			case event := <-e.channels.Event:
				if event == nil {
					return
				}
				c.mu.Lock()
				c.events = append(c.events, event)
				handler := c.onEvent
				c.mu.Unlock()
				if handler != nil {
					handler(event)
				}
			}
		}
	}()
	return c
}

func (c *eventCollector) stop() {
	c.once.Do(func() { close(c.done) })
}

func (c *eventCollector) byType(eventType types.AgentEventType) []*types.AgentEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []*types.AgentEvent
	for _, e := range c.events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

func (c *eventCollector) setHandler(handler func(*types.AgentEvent)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onEvent = handler
}

// waitForTurnEnd blocks until the collector has drained up to the
// turn-end event, so assertions see the complete event stream.
func (c *eventCollector) waitForTurnEnd(t *testing.T) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if len(c.byType(types.EventTypeTurnEnd)) > 0 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("turn never ended")
}

func newTestExecution(task string, meta *types.TaskMetadata) *execution {
	ctx, cancel := context.WithCancel(context.Background())
	return &execution{ctx: ctx, cancel: cancel, task: task, meta: meta, metrics: newExecutionMetrics()}
}

const classifySimple = `{"is_simple_task":true,"is_followup_task":false}`
const classifyComplex = `{"is_simple_task":false,"is_followup_task":false}`

func TestScenarioSimpleNavigateThenDone(t *testing.T) {
	provider := &scriptedEngineProvider{
		completions: []string{classifySimple},
		streams: [][]*llm.StreamChunk{
			toolCallChunks("call-1", "browser_navigate", `{"url":"https://example.com"}`),
			toolCallChunks("call-2", "done", `{"success":true,"message":"Opened example.com."}`),
		},
	}
	e, collector := newTestEngine(t, provider)

	navigate := &recordingTool{name: "browser_navigate", result: tools.Ok("navigated")}
	require.NoError(t, e.RegisterTool(navigate))

	exec := newTestExecution("navigate to example.com", nil)
	e.runExecution(exec)
	collector.waitForTurnEnd(t)

	assert.Equal(t, 1, navigate.callCount())

	assistant := collector.byType(types.EventTypeAssistantMessage)
	require.Len(t, assistant, 1, "exactly one assistant message is published")
	assert.Equal(t, "Opened example.com.", assistant[0].Content)
	assert.Empty(t, collector.byType(types.EventTypeError))
}

func TestScenarioMultiStepPlanExecuteValidate(t *testing.T) {
	plan := `{"steps":[` +
		`{"action":"open the store","reasoning":"start"},` +
		`{"action":"search for the item","reasoning":"find it"},` +
		`{"action":"read the price","reasoning":"answer"}]}`
	validate := `{"is_complete":true,"reasoning":"price was read","suggestions":[]}`

	provider := &scriptedEngineProvider{
		completions: []string{classifyComplex, plan, validate, "The item costs $10."},
		streams: [][]*llm.StreamChunk{
			toolCallChunks("call-1", "browser_navigate", `{"url":"https://store.test"}`),
			toolCallChunks("call-2", "browser_click", `{"selector":"#search"}`),
			toolCallChunks("call-3", "browser_extract", `{}`),
		},
	}
	e, collector := newTestEngine(t, provider)

	for _, name := range []string{"browser_navigate", "browser_click", "browser_extract"} {
		require.NoError(t, e.RegisterTool(&recordingTool{name: name, result: tools.Ok("done")}))
	}

	exec := newTestExecution("find the price of the item", nil)
	e.runExecution(exec)
	collector.waitForTurnEnd(t)

	items := e.todos.Items()
	require.Len(t, items, 3)
	assert.Equal(t, []int{1, 2, 3}, []int{items[0].ID, items[1].ID, items[2].ID})
	for _, item := range items {
		assert.Equal(t, todo.StatusDone, item.Status)
	}

	plans := collector.byType(types.EventTypePlanCreated)
	require.Len(t, plans, 1, "one planning cycle, no replanning")

	assistant := collector.byType(types.EventTypeAssistantMessage)
	require.Len(t, assistant, 1)
	assert.Equal(t, "The item costs $10.", assistant[0].Content)
	assert.Empty(t, collector.byType(types.EventTypeError))
}

func TestScenarioToolPanicBecomesFailedResultAndRunContinues(t *testing.T) {
	provider := &scriptedEngineProvider{}
	e, _ := newTestEngine(t, provider)

	crashing := &recordingTool{name: "browser_click", panicMsg: "nil element"}
	require.NoError(t, e.RegisterTool(crashing))

	exec := newTestExecution("click the thing", nil)
	outcome, err := e.dispatchToolCalls(exec, []types.ToolCall{
		{ID: "call-1", Name: "browser_click", Arguments: json.RawMessage(`{}`)},
		{ID: "call-2", Name: "done", Arguments: json.RawMessage(`{"success":true,"message":"finished"}`)},
	}, &turnOutcome{})
	require.NoError(t, err, "a tool failure never aborts the batch")

	assert.Equal(t, 1, exec.metrics.Errors)
	assert.True(t, outcome.done, "execution continued to the next call")

	// Both call ids received a result, in order.
	var results []*types.Message
	for _, msg := range e.log.GetAll() {
		if msg.Role == types.RoleTool {
			results = append(results, msg)
		}
	}
	require.Len(t, results, 2)
	assert.Equal(t, "call-1", results[0].ToolCallID)
	assert.Contains(t, results[0].Content, `"ok":false`)
	assert.Equal(t, "call-2", results[1].ToolCallID)
}

func TestScenarioHumanInputResumesOnMatchingResponse(t *testing.T) {
	provider := &scriptedEngineProvider{
		completions: []string{classifySimple},
		streams: [][]*llm.StreamChunk{
			toolCallChunks("call-1", "request_human_input", `{"prompt":"please log in"}`),
			toolCallChunks("call-2", "done", `{"success":true,"message":"Logged in and finished."}`),
		},
	}
	e, collector := newTestEngine(t, provider, WithHumanInputTimeout(5*time.Second))

	// Respond to the human-input request as soon as it is published.
	collector.setHandler(func(event *types.AgentEvent) {
		if event.Type == types.EventTypeHumanInputRequest {
			e.humanInput.HandleResponse(&types.HumanInputResponse{
				RequestID: event.RequestID,
				Action:    types.HumanActionDone,
			})
		}
	})

	exec := newTestExecution("log in to the site", nil)
	e.runExecution(exec)
	collector.waitForTurnEnd(t)

	requests := collector.byType(types.EventTypeHumanInputRequest)
	require.Len(t, requests, 1)
	assert.Equal(t, "please log in", requests[0].Prompt)

	// The resume note was appended before the next turn.
	var foundNote bool
	for _, msg := range e.log.GetAll() {
		if msg.Role == types.RoleUser && msg.Ephemeral == "" &&
			msg.Content == "The user has completed the requested manual step. Continue the task." {
			foundNote = true
		}
	}
	assert.True(t, foundNote, "resume note appended to the log")

	assistant := collector.byType(types.EventTypeAssistantMessage)
	require.Len(t, assistant, 1)
	assert.Equal(t, "Logged in and finished.", assistant[0].Content)
}

func TestDoneWithFailureStillTerminates(t *testing.T) {
	provider := &scriptedEngineProvider{
		completions: []string{classifySimple},
		streams: [][]*llm.StreamChunk{
			toolCallChunks("call-1", "done", `{"success":false,"message":"The site is down."}`),
		},
	}
	e, collector := newTestEngine(t, provider)

	exec := newTestExecution("check the site", nil)
	e.runExecution(exec)
	collector.waitForTurnEnd(t)

	// done(success=false) ends the loop after one turn; the failure is
	// noted in the published result rather than retried.
	assert.Equal(t, 1, provider.streamed)
	assistant := collector.byType(types.EventTypeAssistantMessage)
	require.Len(t, assistant, 1)
	assert.Contains(t, assistant[0].Content, "The site is down.")
	assert.Contains(t, assistant[0].Content, "did not fully succeed")
}

func TestPredefinedPlanSeedsFirstCycleAndSkipsPlanner(t *testing.T) {
	// No classification and no first-cycle planning call: the first
	// Complete is the TODO-markdown strategy on cycle 1.
	secondCycle := `{"todo_markdown":"- [x] open the dashboard\n- [x] export the report",` +
		`"actions":[],"all_complete":true,"final_answer":"Report exported."}`

	provider := &scriptedEngineProvider{
		completions: []string{secondCycle},
		streams: [][]*llm.StreamChunk{
			toolCallChunks("call-1", "browser_navigate", `{"url":"https://dash.test"}`),
			toolCallChunks("call-2", "browser_click", `{"selector":"#export"}`),
		},
	}
	e, collector := newTestEngine(t, provider)

	for _, name := range []string{"browser_navigate", "browser_click"} {
		require.NoError(t, e.RegisterTool(&recordingTool{name: name, result: tools.Ok("ok")}))
	}

	exec := newTestExecution("export the weekly report", &types.TaskMetadata{
		Mode: types.ModePredefined,
		Plan: &types.PredefinedPlan{
			Name:  "weekly-report",
			Goal:  "export the weekly report",
			Steps: []string{"open the dashboard", "export the report"},
		},
	})
	e.runExecution(exec)
	collector.waitForTurnEnd(t)

	assert.Equal(t, 1, provider.completes, "planner skipped on the seeded cycle")

	accepted := collector.byType(types.EventTypePlanEditResponse)
	require.Len(t, accepted, 1)
	assert.Equal(t, []string{"open the dashboard", "export the report"}, accepted[0].Plan.Steps)

	assistant := collector.byType(types.EventTypeAssistantMessage)
	require.Len(t, assistant, 1)
	assert.Equal(t, "Report exported.", assistant[0].Content)
	assert.Empty(t, collector.byType(types.EventTypeError))
}

func TestHumanInputShortCircuitsRemainingBatchCalls(t *testing.T) {
	provider := &scriptedEngineProvider{}
	e, _ := newTestEngine(t, provider)

	after := &recordingTool{name: "browser_click", result: tools.Ok("clicked")}
	require.NoError(t, e.RegisterTool(after))

	exec := newTestExecution("task", nil)
	outcome, err := e.dispatchToolCalls(exec, []types.ToolCall{
		{ID: "call-1", Name: "request_human_input", Arguments: json.RawMessage(`{"prompt":"solve the captcha"}`)},
		{ID: "call-2", Name: "browser_click", Arguments: json.RawMessage(`{}`)},
	}, &turnOutcome{})
	require.NoError(t, err)

	assert.True(t, outcome.humanInput)
	assert.Equal(t, "solve the captcha", outcome.humanPrompt)
	assert.Equal(t, 0, after.callCount(), "calls after the trigger are not executed")

	// Every call id still received a result entry, in order.
	var results []*types.Message
	for _, msg := range e.log.GetAll() {
		if msg.Role == types.RoleTool {
			results = append(results, msg)
		}
	}
	require.Len(t, results, 2)
	assert.Equal(t, "call-1", results[0].ToolCallID)
	assert.Equal(t, "call-2", results[1].ToolCallID)
	assert.Contains(t, results[1].Content, "not executed")
}

func TestCancelledExecutionExitsCleanly(t *testing.T) {
	provider := &scriptedEngineProvider{}
	e, collector := newTestEngine(t, provider)

	exec := newTestExecution("anything", nil)
	exec.markCancelled(true, "cancelled by user")
	exec.cancel()

	e.runExecution(exec)
	collector.waitForTurnEnd(t)

	assert.Empty(t, collector.byType(types.EventTypeError), "user cancellation is not surfaced as an error")
	assert.NotEmpty(t, collector.byType(types.EventTypeTurnEnd), "cleanup still runs")
}

func TestTransientStreamFailureIsRetried(t *testing.T) {
	provider := &scriptedEngineProvider{
		completions: []string{classifySimple},
		streamErrs:  []error{errors.New("transient: connection reset")},
		streams: [][]*llm.StreamChunk{
			nil, // slot consumed by the failing first attempt
			toolCallChunks("call-1", "done", `{"success":true,"message":"Recovered."}`),
		},
	}
	e, collector := newTestEngine(t, provider)

	exec := newTestExecution("check the site", nil)
	e.runExecution(exec)
	collector.waitForTurnEnd(t)

	assert.Equal(t, 2, provider.streamed, "a second attempt follows the transient failure")
	assert.Empty(t, collector.byType(types.EventTypeError))

	assistant := collector.byType(types.EventTypeAssistantMessage)
	require.Len(t, assistant, 1)
	assert.Equal(t, "Recovered.", assistant[0].Content)
}

func TestSimpleAttemptLimitAbortsExecution(t *testing.T) {
	limits := DefaultLimits()
	limits.SimpleMaxAttempts = 2
	provider := &scriptedEngineProvider{
		completions: []string{classifySimple},
		streams: [][]*llm.StreamChunk{
			textChunks("Looking at the page."),
			textChunks("Reading the navigation."),
		},
	}
	e, collector := newTestEngine(t, provider, WithLimits(limits))

	exec := newTestExecution("sort out the account", nil)
	e.runExecution(exec)
	collector.waitForTurnEnd(t)

	errs := collector.byType(types.EventTypeError)
	require.Len(t, errs, 1)
	var limitErr *IterationLimitError
	require.ErrorAs(t, errs[0].Error, &limitErr)
	assert.Equal(t, 2, limitErr.Limit)
	assert.Empty(t, collector.byType(types.EventTypeAssistantMessage), "no result message after a fatal abort")
}

func TestRepeatedResponsesAbortAsStuck(t *testing.T) {
	stuck := textChunks("I will click the submit button now.")
	provider := &scriptedEngineProvider{
		completions: []string{classifySimple},
		streams:     [][]*llm.StreamChunk{stuck, stuck, stuck, stuck},
	}
	e, collector := newTestEngine(t, provider)

	exec := newTestExecution("submit the form", nil)
	e.runExecution(exec)
	collector.waitForTurnEnd(t)

	assert.Equal(t, 4, provider.streamed, "the loop check cuts off the fifth attempt")

	errs := collector.byType(types.EventTypeError)
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0].Error, ErrLoopDetected)
	assert.Contains(t, errs[0].Error.Error(), "stuck")
	assert.Empty(t, collector.byType(types.EventTypeAssistantMessage))
}

func TestInstallCycleUsesStrategyMarkdown(t *testing.T) {
	e, collector := newTestEngine(t, &scriptedEngineProvider{})

	updates := make(chan *types.AgentEvent, 2)
	collector.setHandler(func(event *types.AgentEvent) {
		if event.Type == types.EventTypeTodoUpdate {
			updates <- event
		}
	})

	reconciled := "- [x] log in\n- [ ] open the reports page"
	e.installCycle(&planner.CycleOutput{
		Actions:      []string{"open the reports page"},
		TodoMarkdown: reconciled,
	}, 1)

	select {
	case event := <-updates:
		assert.Equal(t, reconciled, event.Content, "the strategy's reconciled checklist drives the update")
	case <-time.After(2 * time.Second):
		t.Fatal("no todo update published")
	}

	var snapshot *types.Message
	for _, msg := range e.log.GetAll() {
		if msg.Ephemeral == types.EphemeralTodoSnapshot {
			snapshot = msg
		}
	}
	require.NotNil(t, snapshot)
	assert.Equal(t, reconciled, snapshot.Content)

	// Without strategy markdown the store's rendering is used.
	e.installCycle(&planner.CycleOutput{Actions: []string{"export the data"}}, 2)
	select {
	case event := <-updates:
		assert.Equal(t, e.todos.Markdown(), event.Content)
	case <-time.After(2 * time.Second):
		t.Fatal("no todo update published")
	}
}

func TestStartRejectsProviderWithoutToolSupport(t *testing.T) {
	provider := &noToolsProvider{}
	e := NewEngine(provider)

	err := e.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not support tool calling")
}

type noToolsProvider struct{ scriptedEngineProvider }

func (p *noToolsProvider) GetModelInfo() *types.ModelInfo {
	return &types.ModelInfo{Name: "limited", MaxContextTokens: 8000, SupportsTools: false}
}
