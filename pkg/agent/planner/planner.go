package planner

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/entrhq/pilot/pkg/llm"
	"github.com/entrhq/pilot/pkg/types"
)

// ErrEmptyPlan is returned when a planning call produced no usable
// steps. The orchestrator treats it as fatal.
var ErrEmptyPlan = errors.New("planner returned an empty plan")

// PlanStep is one proposed high-level action with its rationale.
type PlanStep struct {
	Action    string `json:"action"`
	Reasoning string `json:"reasoning"`
}

// Plan is an immutable set of steps produced by one planning call.
type Plan struct {
	Steps []PlanStep `json:"steps"`
}

// CycleInput carries everything a planning cycle may ground its
// decisions in: the task, what has happened so far, and what is
// currently observable.
type CycleInput struct {
	Task         string
	History      string
	Observation  string
	TodoMarkdown string
	Feedback     string
	ToolCalls    int
	Errors       int
	MaxSteps     int
}

// CycleOutput is the union of the two strategy shapes. Ad hoc planning
// fills Steps; TODO-markdown planning fills the remaining fields.
type CycleOutput struct {
	Steps        []PlanStep
	TodoMarkdown string
	Actions      []string
	AllComplete  bool
	FinalAnswer  string
}

// Strategy produces the next planning cycle's output. The two
// implementations differ in output shape, not in loop structure, so the
// orchestrator runs one state machine parameterized by this interface.
type Strategy interface {
	Name() string
	PlanCycle(ctx context.Context, in CycleInput) (*CycleOutput, error)
}

func cycleContext(in CycleInput) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Task: %s\n", in.Task)
	fmt.Fprintf(&b, "Progress so far: %d tool calls, %d errors.\n", in.ToolCalls, in.Errors)
	if in.TodoMarkdown != "" {
		fmt.Fprintf(&b, "\nCurrent TODO list:\n%s\n", in.TodoMarkdown)
	}
	if in.History != "" {
		fmt.Fprintf(&b, "\nExecution history:\n%s\n", in.History)
	}
	if in.Observation != "" {
		fmt.Fprintf(&b, "\nCurrent browser state:\n%s\n", in.Observation)
	}
	if in.Feedback != "" {
		fmt.Fprintf(&b, "\nFeedback from the last validation:\n%s\n", in.Feedback)
	}
	return b.String()
}

// AdHocStrategy asks the model for a fresh list of steps each cycle.
type AdHocStrategy struct {
	provider llm.Provider
}

// NewAdHocStrategy creates the dynamic planning strategy.
func NewAdHocStrategy(provider llm.Provider) *AdHocStrategy {
	return &AdHocStrategy{provider: provider}
}

func (s *AdHocStrategy) Name() string { return "ad-hoc" }

const adHocSystemPrompt = `You plan the next actions for a browser automation agent.

Propose concrete, sequential steps grounded only in what is currently
observable in the browser state and what the history shows has already
happened. Never assume the result of a step that has not run yet. Each
step is one high-level action the agent can attempt in a single turn.`

func adHocSchema(maxSteps int) *llm.ResponseSchema {
	return &llm.ResponseSchema{
		Name: "action_plan",
		Schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"steps": map[string]any{
					"type":     "array",
					"maxItems": maxSteps,
					"items": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"action": map[string]any{
								"type":        "string",
								"description": "One concrete action to take next",
							},
							"reasoning": map[string]any{
								"type":        "string",
								"description": "Why this action, given the current state",
							},
						},
						"required":             []string{"action", "reasoning"},
						"additionalProperties": false,
					},
				},
			},
			"required":             []string{"steps"},
			"additionalProperties": false,
		},
	}
}

func (s *AdHocStrategy) PlanCycle(ctx context.Context, in CycleInput) (*CycleOutput, error) {
	messages := []*types.Message{
		types.NewSystemMessage(adHocSystemPrompt),
		types.NewUserMessage(fmt.Sprintf("%s\nPropose at most %d steps.", cycleContext(in), in.MaxSteps)),
	}

	var plan Plan
	if err := completeStructured(ctx, s.provider, messages, adHocSchema(in.MaxSteps), &plan); err != nil {
		return nil, err
	}

	steps := make([]PlanStep, 0, len(plan.Steps))
	for _, step := range plan.Steps {
		if strings.TrimSpace(step.Action) == "" {
			continue
		}
		steps = append(steps, step)
	}
	if len(steps) == 0 {
		return nil, ErrEmptyPlan
	}
	if in.MaxSteps > 0 && len(steps) > in.MaxSteps {
		steps = steps[:in.MaxSteps]
	}
	return &CycleOutput{Steps: steps}, nil
}

// TodoMarkdownStrategy maintains a TODO markdown document across cycles
// and proposes actions for the first unfinished item. Used for
// predefined-plan execution.
type TodoMarkdownStrategy struct {
	provider llm.Provider
}

// NewTodoMarkdownStrategy creates the TODO-tracking planning strategy.
func NewTodoMarkdownStrategy(provider llm.Provider) *TodoMarkdownStrategy {
	return &TodoMarkdownStrategy{provider: provider}
}

func (s *TodoMarkdownStrategy) Name() string { return "todo-markdown" }

const todoMarkdownSystemPrompt = `You maintain the TODO list for a browser automation agent that is
executing a predefined plan.

Given the task, the current TODO list, the execution history and the
current browser state, return the updated TODO markdown with finished
items checked off, the concrete actions for the first unfinished item,
and whether everything is complete. Ground actions only in what is
currently observable. When all items are complete, set all_complete and
write the final answer to the task.`

func todoMarkdownSchema() *llm.ResponseSchema {
	return &llm.ResponseSchema{
		Name: "todo_plan",
		Schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"todo_markdown": map[string]any{
					"type":        "string",
					"description": "The full updated TODO list as markdown checkboxes",
				},
				"actions": map[string]any{
					"type":        "array",
					"items":       map[string]any{"type": "string"},
					"description": "Concrete actions for the first unfinished item",
				},
				"all_complete": map[string]any{
					"type":        "boolean",
					"description": "True when every TODO item is finished",
				},
				"final_answer": map[string]any{
					"type":        "string",
					"description": "The answer to the task, only when all_complete is true",
				},
			},
			"required":             []string{"todo_markdown", "actions", "all_complete", "final_answer"},
			"additionalProperties": false,
		},
	}
}

func (s *TodoMarkdownStrategy) PlanCycle(ctx context.Context, in CycleInput) (*CycleOutput, error) {
	messages := []*types.Message{
		types.NewSystemMessage(todoMarkdownSystemPrompt),
		types.NewUserMessage(cycleContext(in)),
	}

	var decoded struct {
		TodoMarkdown string   `json:"todo_markdown"`
		Actions      []string `json:"actions"`
		AllComplete  bool     `json:"all_complete"`
		FinalAnswer  string   `json:"final_answer"`
	}
	if err := completeStructured(ctx, s.provider, messages, todoMarkdownSchema(), &decoded); err != nil {
		return nil, err
	}
	if !decoded.AllComplete && len(decoded.Actions) == 0 {
		return nil, ErrEmptyPlan
	}

	out := &CycleOutput{
		TodoMarkdown: decoded.TodoMarkdown,
		AllComplete:  decoded.AllComplete,
		FinalAnswer:  decoded.FinalAnswer,
	}
	for _, action := range decoded.Actions {
		if strings.TrimSpace(action) == "" {
			continue
		}
		out.Actions = append(out.Actions, action)
		out.Steps = append(out.Steps, PlanStep{Action: action})
	}
	return out, nil
}
