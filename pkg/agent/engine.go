// Package agent implements the task execution engine: a state machine
// that classifies a task, plans it when needed, and drives turn-by-turn
// model invocation and tool dispatch until the task finishes.
package agent

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/entrhq/pilot/pkg/agent/budget"
	"github.com/entrhq/pilot/pkg/agent/conversation"
	"github.com/entrhq/pilot/pkg/agent/humaninput"
	"github.com/entrhq/pilot/pkg/agent/planner"
	"github.com/entrhq/pilot/pkg/agent/todo"
	"github.com/entrhq/pilot/pkg/agent/tools"
	"github.com/entrhq/pilot/pkg/llm"
	"github.com/entrhq/pilot/pkg/llm/tokenizer"
	"github.com/entrhq/pilot/pkg/logging"
	"github.com/entrhq/pilot/pkg/types"
)

var agentDebugLog *logging.Logger

func init() {
	var err error
	agentDebugLog, err = logging.NewLogger("agent")
	if err != nil {
		agentDebugLog.Warnf("Failed to initialize agent logger, using stderr fallback: %v", err)
	}
}

// Limits bounds the execution loops.
type Limits struct {
	SimpleMaxAttempts int
	OuterMaxCycles    int
	InnerMaxTurns     int
	PlanMaxSteps      int
}

// DefaultLimits returns the standard loop bounds.
func DefaultLimits() Limits {
	return Limits{
		SimpleMaxAttempts: 10,
		OuterMaxCycles:    100,
		InnerMaxTurns:     15,
		PlanMaxSteps:      10,
	}
}

// StateObserver supplies the latest observable environment state, such
// as a rendered snapshot of the current browser page. It feeds the
// ephemeral browser-state entry refreshed before each turn.
type StateObserver interface {
	Snapshot(ctx context.Context) (string, error)
}

// Engine is the task orchestrator. It owns the conversation log, the
// TODO store and the tool registry, and runs at most one task execution
// at a time; starting a new task cancels the previous one.
type Engine struct {
	provider           llm.Provider
	channels           *types.AgentChannels
	registry           *tools.Registry
	log                *conversation.Log
	todos              *todo.Store
	budgetManager      *budget.Manager
	classifier         *planner.Classifier
	adHocStrategy      planner.Strategy
	todoStrategy       planner.Strategy
	validator          *planner.Validator
	humanInput         *humaninput.Coordinator
	observer           StateObserver
	tokenizer          *tokenizer.Tokenizer
	customInstructions string
	allowedDomains     []string
	bufferSize         int
	limits             Limits
	humanInputTimeout  time.Duration

	// Single active execution. Starting a new task cancels the prior
	// execution's context before running.
	execMu     sync.Mutex
	activeExec *execution

	running bool
	runMu   sync.Mutex
}

// Option configures an Engine.
type Option func(*Engine)

// WithCustomInstructions appends user-provided instructions to the
// system prompt.
func WithCustomInstructions(instructions string) Option {
	return func(e *Engine) {
		e.customInstructions = instructions
	}
}

// WithAllowedDomains records the navigation allowlist patterns so the
// system prompt can surface them to the model.
func WithAllowedDomains(patterns []string) Option {
	return func(e *Engine) {
		e.allowedDomains = patterns
	}
}

// WithBufferSize sets the channel buffer size.
func WithBufferSize(size int) Option {
	return func(e *Engine) {
		e.bufferSize = size
	}
}

// WithLimits overrides the default loop bounds.
func WithLimits(limits Limits) Option {
	return func(e *Engine) {
		e.limits = limits
	}
}

// WithHumanInputTimeout sets how long a human-input wait may block.
func WithHumanInputTimeout(timeout time.Duration) Option {
	return func(e *Engine) {
		e.humanInputTimeout = timeout
	}
}

// WithBudgetManager sets the context budgeter used before each turn.
func WithBudgetManager(manager *budget.Manager) Option {
	return func(e *Engine) {
		e.budgetManager = manager
	}
}

// WithStateObserver sets the source of the browser-state ephemeral.
func WithStateObserver(observer StateObserver) Option {
	return func(e *Engine) {
		e.observer = observer
	}
}

// NewEngine creates an engine for the given provider. Signal tools
// (done, request_replanning, request_human_input) are always
// registered; domain tools are added with RegisterTool before Start.
func NewEngine(provider llm.Provider, opts ...Option) *Engine {
	tok, err := tokenizer.New()
	if err != nil {
		tok = nil
	}

	e := &Engine{
		provider:          provider,
		registry:          tools.NewRegistry(),
		log:               conversation.New(),
		todos:             todo.NewStore(),
		tokenizer:         tok,
		bufferSize:        10,
		limits:            DefaultLimits(),
		humanInputTimeout: humaninput.DefaultTimeout,
	}

	e.registry.MustRegister(tools.NewDoneTool())
	e.registry.MustRegister(tools.NewReplanTool())
	e.registry.MustRegister(tools.NewHumanInputTool())

	for _, opt := range opts {
		opt(e)
	}

	e.classifier = planner.NewClassifier(provider)
	e.adHocStrategy = planner.NewAdHocStrategy(provider)
	e.todoStrategy = planner.NewTodoMarkdownStrategy(provider)
	e.validator = planner.NewValidator(provider)

	e.channels = types.NewAgentChannels(e.bufferSize)
	e.humanInput = humaninput.NewCoordinator(e.humanInputTimeout, e.emitEvent)

	if e.budgetManager != nil {
		e.budgetManager.SetEventChannel(e.channels.Event)
	}

	return e
}

// RegisterTool adds a domain tool to the registry. Signal tools cannot
// be overridden.
func (e *Engine) RegisterTool(t tools.Tool) error {
	return e.registry.Register(t)
}

// GetChannels returns the communication channels for this engine.
func (e *Engine) GetChannels() *types.AgentChannels {
	return e.channels
}

// GetProvider returns the model provider used by this engine.
func (e *Engine) GetProvider() llm.Provider {
	return e.provider
}

// Start begins the engine's event loop in a goroutine. The model
// provider must support tool calling; refusing to start is the startup
// validation for the tool-binding requirement.
func (e *Engine) Start(ctx context.Context) error {
	if info := e.provider.GetModelInfo(); info != nil && !info.SupportsTools {
		return fmt.Errorf("model %q does not support tool calling", e.provider.GetModel())
	}

	e.runMu.Lock()
	if e.running {
		e.runMu.Unlock()
		return fmt.Errorf("engine is already running")
	}
	e.running = true
	e.runMu.Unlock()

	go e.eventLoop(ctx)
	return nil
}

// Shutdown gracefully stops the engine.
func (e *Engine) Shutdown(ctx context.Context) error {
	close(e.channels.Shutdown)

	select {
	case <-e.channels.Done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// eventLoop is the main processing loop for the engine.
func (e *Engine) eventLoop(ctx context.Context) {
	defer e.channels.Close()
	defer func() {
		e.runMu.Lock()
		e.running = false
		e.runMu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			e.cancelActive(false, "engine context closed")
			e.emitEvent(types.NewErrorEvent(ctx.Err()))
			return

		case <-e.channels.Shutdown:
			e.cancelActive(false, "engine shutting down")
			return

		case input := <-e.channels.Input:
			if input == nil {
				return
			}
			e.handleInput(ctx, input)
		}
	}
}

// handleInput routes one inbound control message. Cancellation and
// human-input responses are handled synchronously so they can interrupt
// or unblock an in-flight execution; task inputs run asynchronously.
func (e *Engine) handleInput(ctx context.Context, input *types.Input) {
	switch {
	case input.IsCancel():
		e.cancelActive(true, "cancelled by user")

	case input.IsHumanInputResponse():
		e.humanInput.HandleResponse(input.Response)

	case input.IsTask():
		exec := e.beginExecution(ctx, input)
		go e.runExecution(exec)
	}
}

// cancelActive cancels the in-flight execution, if any.
func (e *Engine) cancelActive(userInitiated bool, reason string) {
	e.execMu.Lock()
	defer e.execMu.Unlock()
	if e.activeExec != nil {
		e.activeExec.markCancelled(userInitiated, reason)
		e.activeExec.cancel()
		e.activeExec = nil
	}
}

// beginExecution supersedes any prior execution and installs a new one
// as the single active run.
func (e *Engine) beginExecution(ctx context.Context, input *types.Input) *execution {
	e.execMu.Lock()
	defer e.execMu.Unlock()

	if e.activeExec != nil {
		e.activeExec.markCancelled(false, "superseded by a new task")
		e.activeExec.cancel()
	}

	execCtx, cancel := context.WithCancel(ctx)
	exec := &execution{
		ctx:     execCtx,
		cancel:  cancel,
		task:    input.Content,
		meta:    input.Task,
		metrics: newExecutionMetrics(),
	}
	e.activeExec = exec
	return exec
}

// finishExecution clears the active slot if exec still owns it.
func (e *Engine) finishExecution(exec *execution) {
	e.execMu.Lock()
	defer e.execMu.Unlock()
	if e.activeExec == exec {
		e.activeExec = nil
	}
}

// emitEvent sends an event on the event channel. This is a blocking
// send so critical events like TurnEnd are not dropped. It safely
// handles the event channel being closed during shutdown.
func (e *Engine) emitEvent(event *types.AgentEvent) {
	defer func() {
		if r := recover(); r != nil {
			// Event channel closed during shutdown.
		}
	}()
	e.channels.Event <- event
}
