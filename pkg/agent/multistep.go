package agent

import (
	"fmt"
	"strings"

	"github.com/entrhq/pilot/pkg/agent/planner"
	"github.com/entrhq/pilot/pkg/types"
)

// runMultiStep executes a complex task: an outer planning loop that
// appends plan steps as TODO items and an inner loop that works through
// them one turn at a time, validated after each cycle. A predefined
// plan seeds the first cycle and skips the planner once.
func (e *Engine) runMultiStep(exec *execution, seed *types.PredefinedPlan) (*runResult, error) {
	strategy := e.adHocStrategy
	if seed != nil {
		strategy = e.todoStrategy
	}

	var feedback string
	for cycle := 0; cycle < e.limits.OuterMaxCycles; cycle++ {
		if err := exec.checkCancelled(); err != nil {
			return nil, err
		}

		if isLooping(e.log.RecentAssistantTexts(loopLookback), loopLookback, loopThreshold) {
			return nil, ErrLoopDetected
		}

		out, err := e.planCycle(exec, strategy, seed, cycle, feedback)
		if err != nil {
			return nil, err
		}
		feedback = ""

		if out.AllComplete {
			return &runResult{message: out.FinalAnswer, success: true}, nil
		}

		e.installCycle(out, cycle)

		innerOutcome, err := e.runInnerLoop(exec)
		if err != nil {
			return nil, err
		}

		if innerOutcome != nil && innerOutcome.done {
			return &runResult{message: innerOutcome.doneMessage, success: innerOutcome.success}, nil
		}
		if innerOutcome != nil && innerOutcome.replan {
			e.emitEvent(types.NewNarrationEvent("Replanning at the agent's request."))
			continue
		}

		// The TODO-markdown flavor judges completion itself through
		// all_complete on the next planning call; only the ad hoc
		// flavor runs the separate validator.
		if seed != nil {
			continue
		}

		verdict, err := e.validateCycle(exec)
		if err != nil {
			return nil, err
		}
		if verdict.IsComplete {
			return &runResult{message: "", success: true}, nil
		}

		feedback = validationFeedback(verdict)
		e.log.AddUser(feedback)
		e.emitEvent(types.NewNarrationEvent(fmt.Sprintf("Not finished yet: %s", verdict.Reasoning)))
	}

	return nil, &IterationLimitError{Scope: "planning", Limit: e.limits.OuterMaxCycles}
}

// planCycle obtains the cycle's plan: from the seed on the first cycle,
// from the strategy otherwise. An unusable plan is fatal.
func (e *Engine) planCycle(exec *execution, strategy planner.Strategy, seed *types.PredefinedPlan, cycle int, feedback string) (*planner.CycleOutput, error) {
	if cycle == 0 && seed != nil {
		out := &planner.CycleOutput{}
		for _, step := range seed.Steps {
			out.Steps = append(out.Steps, planner.PlanStep{Action: step})
			out.Actions = append(out.Actions, step)
		}
		if len(out.Steps) == 0 {
			return nil, &PlanningError{Err: fmt.Errorf("predefined plan %q has no steps", seed.Name)}
		}
		agentDebugLog.Infof("Seeding cycle 0 from predefined plan %q (%d steps)", seed.Name, len(out.Steps))
		e.emitEvent(types.NewPlanEditResponseEvent(out.Actions))
		return out, nil
	}

	in := planner.CycleInput{
		Task:         exec.task,
		History:      e.historyDigest(),
		Observation:  e.observeState(exec),
		TodoMarkdown: e.todos.Markdown(),
		Feedback:     feedback,
		ToolCalls:    exec.metrics.ToolCalls,
		Errors:       exec.metrics.Errors,
		MaxSteps:     e.limits.PlanMaxSteps,
	}

	out, err := strategy.PlanCycle(exec.ctx, in)
	if err != nil {
		if exec.ctx.Err() != nil {
			return nil, exec.cancellationError()
		}
		return nil, &PlanningError{Err: err}
	}
	return out, nil
}

// installCycle records the plan: TODO items appended, the snapshot
// ephemeral refreshed, events published. The TODO-markdown flavor
// supplies its own reconciled checklist; the ad hoc flavor falls back
// to the store's rendering.
func (e *Engine) installCycle(out *planner.CycleOutput, cycle int) {
	actions := out.Actions
	if len(actions) == 0 {
		for _, step := range out.Steps {
			actions = append(actions, step.Action)
		}
	}
	e.todos.Append(actions...)

	markdown := out.TodoMarkdown
	if markdown == "" {
		markdown = e.todos.Markdown()
	}
	e.log.UpsertEphemeral(types.EphemeralTodoSnapshot, markdown)

	e.emitEvent(types.NewPlanCreatedEvent(cycle, actions))
	e.emitEvent(types.NewTodoUpdateEvent(markdown))
}

// runInnerLoop works through pending TODO items, one turn per item,
// until all are settled, the per-cycle bound is hit, or a turn signals
// done, replanning, or human input. A nil outcome means the cycle ended
// without a signal and validation should decide what happens next.
func (e *Engine) runInnerLoop(exec *execution) (*turnOutcome, error) {
	for turn := 0; turn < e.limits.InnerMaxTurns; turn++ {
		if err := exec.checkCancelled(); err != nil {
			return nil, err
		}

		item, ok := e.todos.NextPending()
		if !ok {
			return nil, nil
		}

		instruction := fmt.Sprintf(
			"Work on this step now: %q. Use the tools to carry it out, then continue. "+
				"Call done only when the whole task is finished.", item.Content)

		outcome, err := e.executeTurn(exec, instruction)
		if err != nil {
			return nil, err
		}

		if outcome.humanInput {
			if err := e.awaitHumanInput(exec, outcome.humanPrompt); err != nil {
				return nil, err
			}
			// The manual step unblocked this item; settle it on the
			// same tool feedback and move on.
			e.settleItem(item.ID, outcome)
			e.emitEvent(types.NewTodoUpdateEvent(e.todos.Markdown()))
			continue
		}

		e.settleItem(item.ID, outcome)
		e.emitEvent(types.NewTodoUpdateEvent(e.todos.Markdown()))

		if outcome.done || outcome.replan {
			return outcome, nil
		}
	}
	return nil, nil
}

// settleItem marks the worked item based on the turn's tool feedback:
// done when any call succeeded or the turn produced plain progress
// text, failed when every call errored, skipped when nothing happened.
func (e *Engine) settleItem(id int, outcome *turnOutcome) {
	var err error
	switch {
	case outcome.toolCallCount == 0 && strings.TrimSpace(outcome.assistantText) == "":
		err = e.todos.MarkSkipped(id)
	case outcome.toolCallCount > 0 && !outcome.anyToolOK:
		err = e.todos.MarkFailed(id)
	default:
		err = e.todos.MarkDone(id)
	}
	if err != nil {
		agentDebugLog.Warnf("Could not settle todo %d: %v", id, err)
	}
}

// validateCycle runs the post-cycle completion check.
func (e *Engine) validateCycle(exec *execution) (*planner.ValidationResult, error) {
	verdict, err := e.validator.Validate(exec.ctx, exec.task, e.historyDigest(), e.observeState(exec))
	if err != nil {
		return nil, exec.cancellationError()
	}
	return &verdict, nil
}

func validationFeedback(verdict *planner.ValidationResult) string {
	var b strings.Builder
	b.WriteString("The task is not complete yet. ")
	b.WriteString(verdict.Reasoning)
	if len(verdict.Suggestions) > 0 {
		b.WriteString("\nSuggestions:\n")
		for _, s := range verdict.Suggestions {
			fmt.Fprintf(&b, "- %s\n", s)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
