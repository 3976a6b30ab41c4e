package agent

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/entrhq/pilot/pkg/agent/planner"
	"github.com/entrhq/pilot/pkg/agent/prompts"
	"github.com/entrhq/pilot/pkg/llm"
	"github.com/entrhq/pilot/pkg/types"
)

// execution carries the per-run state threaded through the call graph.
// Exactly one execution is active at a time.
type execution struct {
	ctx     context.Context
	cancel  context.CancelFunc
	task    string
	meta    *types.TaskMetadata
	metrics *ExecutionMetrics

	mu            sync.Mutex
	cancelled     bool
	userInitiated bool
	cancelReason  string
}

func (x *execution) markCancelled(userInitiated bool, reason string) {
	x.mu.Lock()
	defer x.mu.Unlock()
	if !x.cancelled {
		x.cancelled = true
		x.userInitiated = userInitiated
		x.cancelReason = reason
	}
}

// cancellationError converts a context error into the execution's
// cancellation flavor. Cancellation requested by the user exits
// cleanly; everything else is surfaced.
func (x *execution) cancellationError() *CancellationError {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.cancelled && x.userInitiated {
		return NewUserCancellation(x.cancelReason)
	}
	reason := x.cancelReason
	if reason == "" {
		reason = "execution context closed"
	}
	return NewSystemCancellation(reason)
}

// checkCancelled is the suspension-point check. It returns the
// execution's cancellation error when the context is done.
func (x *execution) checkCancelled() error {
	if x.ctx.Err() != nil {
		return x.cancellationError()
	}
	return nil
}

// runResult is what a strategy loop resolves to.
type runResult struct {
	message string
	success bool
}

// runExecution drives one task from classification through result
// generation, with guaranteed cleanup regardless of the outcome path.
func (e *Engine) runExecution(exec *execution) {
	defer e.finishExecution(exec)
	defer exec.cancel()

	e.emitEvent(types.NewUpdateBusyEvent(true))
	defer func() {
		// Cleanup runs on every outcome path: ephemerals are torn
		// down, the busy affordance stops, and the turn ends.
		exec.metrics.finish()
		e.log.RemoveEphemeral(types.EphemeralBrowserState)
		e.log.RemoveEphemeral(types.EphemeralTodoSnapshot)
		e.emitEvent(types.NewUpdateBusyEvent(false))
		e.emitEvent(types.NewTurnEndEvent())
	}()

	result, err := e.execute(exec)
	if err != nil {
		if IsUserCancellation(err) {
			agentDebugLog.Infof("Execution cancelled by user: %v", err)
			e.emitEvent(types.NewNarrationEvent("Task cancelled."))
			return
		}
		agentDebugLog.Errorf("Execution failed: %v", err)
		e.emitEvent(types.NewErrorEvent(err))
		return
	}

	e.generateResult(exec, result)
}

// execute is the state machine entry: classify, route into the simple
// or multi-step strategy, and return the raw outcome.
func (e *Engine) execute(exec *execution) (*runResult, error) {
	if err := exec.checkCancelled(); err != nil {
		return nil, err
	}

	// A predefined plan skips classification: the task is treated as
	// fresh and routed straight into the multi-step strategy with the
	// supplied plan seeding the first cycle.
	if exec.meta != nil && exec.meta.Mode == types.ModePredefined && exec.meta.Plan != nil {
		e.initializeLog(exec.task)
		return e.runMultiStep(exec, exec.meta.Plan)
	}

	classification, err := e.classifyTask(exec)
	if err != nil {
		return nil, err
	}

	if !classification.IsFollowupTask {
		e.initializeLog(exec.task)
	} else {
		e.log.AddUser(exec.task)
	}

	if classification.IsSimpleTask {
		return e.runSimple(exec)
	}
	return e.runMultiStep(exec, nil)
}

// classifyTask runs the classifier against the task and the prior
// conversation. Classification failures are already recovered inside
// the classifier; only cancellation propagates.
func (e *Engine) classifyTask(exec *execution) (*planner.ClassificationResult, error) {
	prior := e.priorConversationDigest()
	result, err := e.classifier.Classify(exec.ctx, exec.task, prior)
	if err != nil {
		return nil, exec.cancellationError()
	}
	agentDebugLog.Infof("Classified task: simple=%v followup=%v", result.IsSimpleTask, result.IsFollowupTask)
	return &result, nil
}

// initializeLog resets the conversation for a fresh task: system prompt
// first, then the task itself.
func (e *Engine) initializeLog(task string) {
	e.log.Clear()
	e.todos.ReplaceAll(nil)
	e.log.AddSystem(e.buildSystemPrompt())
	e.log.AddUser(task)
}

func (e *Engine) buildSystemPrompt() string {
	return prompts.NewPromptBuilder().
		WithCustomInstructions(e.customInstructions).
		WithAllowedDomains(e.allowedDomains).
		Build()
}

// priorConversationDigest renders recent assistant output so the
// classifier can judge whether a task continues the conversation.
func (e *Engine) priorConversationDigest() string {
	texts := e.log.RecentAssistantTexts(4)
	if len(texts) == 0 {
		return ""
	}
	return strings.Join(texts, "\n")
}

// historyDigest renders the conversation for planner and validator
// prompts.
func (e *Engine) historyDigest() string {
	var b strings.Builder
	for _, msg := range e.log.GetAll() {
		if msg.Role == types.RoleSystem || msg.Ephemeral != "" {
			continue
		}
		content := strings.TrimSpace(msg.Content)
		if content == "" && len(msg.ToolCalls) > 0 {
			names := make([]string, 0, len(msg.ToolCalls))
			for _, call := range msg.ToolCalls {
				names = append(names, call.Name)
			}
			content = fmt.Sprintf("(called %s)", strings.Join(names, ", "))
		}
		if content == "" {
			continue
		}
		fmt.Fprintf(&b, "[%s] %s\n", msg.Role, content)
	}
	return b.String()
}

// observeState refreshes the browser-state ephemeral from the observer
// and returns the snapshot text.
func (e *Engine) observeState(exec *execution) string {
	if e.observer == nil {
		return ""
	}
	snapshot, err := e.observer.Snapshot(exec.ctx)
	if err != nil {
		agentDebugLog.Warnf("State observation failed: %v", err)
		return ""
	}
	exec.metrics.recordObservation()
	e.log.UpsertEphemeral(types.EphemeralBrowserState, snapshot)
	return snapshot
}

// generateResult publishes the final assistant message. When the run
// already produced a result message (from the done tool or a final
// answer), it is published directly; otherwise the model is asked to
// summarize the outcome from the conversation.
func (e *Engine) generateResult(exec *execution, result *runResult) {
	message := strings.TrimSpace(result.message)
	if message == "" {
		message = e.summarizeOutcome(exec)
	}
	if !result.success {
		message = fmt.Sprintf("%s\n\nNote: the task did not fully succeed.", message)
	}

	final := types.NewAssistantMessage(message, nil)
	e.log.Add(final)
	e.emitEvent(types.NewAssistantMessageEvent(final.ID, message))
}

// summarizeOutcome asks the model for a closing summary, falling back
// to the metrics line when the call fails.
func (e *Engine) summarizeOutcome(exec *execution) string {
	instruction := fmt.Sprintf(
		"The task %q has finished. Summarize the outcome for the user in a short paragraph, based on the conversation above.",
		exec.task,
	)
	messages := prompts.BuildMessages(e.buildSystemPrompt(), e.log.GetAll(), instruction)

	var msg *types.Message
	err := llm.Invoke(exec.ctx, func() error {
		m, err := e.provider.Complete(exec.ctx, &llm.Request{Messages: messages})
		if err != nil {
			return err
		}
		msg = m
		return nil
	})
	if err != nil || strings.TrimSpace(msg.Content) == "" {
		return fmt.Sprintf("Task finished (%s).", exec.metrics.Summary())
	}
	return msg.Content
}
