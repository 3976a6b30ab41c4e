package planner

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/pilot/pkg/llm"
	"github.com/entrhq/pilot/pkg/types"
)

// scriptedProvider returns one canned completion per call, cycling
// through responses, and records how often Complete ran.
type scriptedProvider struct {
	responses []string
	errs      []error
	calls     int
}

func (p *scriptedProvider) StreamCompletion(ctx context.Context, req *llm.Request) (<-chan *llm.StreamChunk, error) {
	ch := make(chan *llm.StreamChunk, 1)
	ch <- &llm.StreamChunk{Finished: true}
	close(ch)
	return ch, nil
}

func (p *scriptedProvider) Complete(ctx context.Context, req *llm.Request) (*types.Message, error) {
	i := p.calls
	p.calls++
	if i < len(p.errs) && p.errs[i] != nil {
		return nil, p.errs[i]
	}
	response := ""
	if i < len(p.responses) {
		response = p.responses[i]
	} else if len(p.responses) > 0 {
		response = p.responses[len(p.responses)-1]
	}
	return types.NewAssistantMessage(response, nil), nil
}

func (p *scriptedProvider) GetModelInfo() *types.ModelInfo {
	return &types.ModelInfo{Name: "stub", MaxContextTokens: 128000, SupportsStreaming: true, SupportsTools: true}
}

func (p *scriptedProvider) GetModel() string   { return "stub" }
func (p *scriptedProvider) GetBaseURL() string { return "" }
func (p *scriptedProvider) GetAPIKey() string  { return "" }

func TestClassifierParsesResult(t *testing.T) {
	provider := &scriptedProvider{responses: []string{`{"is_simple_task":true,"is_followup_task":false}`}}
	c := NewClassifier(provider)

	result, err := c.Classify(context.Background(), "open example.com", "")
	require.NoError(t, err)
	assert.True(t, result.IsSimpleTask)
	assert.False(t, result.IsFollowupTask)
}

func TestClassifierDefaultsOnFailure(t *testing.T) {
	provider := &scriptedProvider{
		errs: []error{errors.New("boom"), errors.New("boom"), errors.New("boom")},
	}
	c := NewClassifier(provider)

	result, err := c.Classify(context.Background(), "open example.com", "")
	require.NoError(t, err, "classification failure is recovered, not fatal")
	assert.False(t, result.IsSimpleTask)
	assert.False(t, result.IsFollowupTask)
}

func TestClassifierDefaultsOnMalformedOutput(t *testing.T) {
	provider := &scriptedProvider{responses: []string{"not json", "still not json", "nope"}}
	c := NewClassifier(provider)

	result, err := c.Classify(context.Background(), "open example.com", "")
	require.NoError(t, err)
	assert.False(t, result.IsSimpleTask)
	assert.False(t, result.IsFollowupTask)
}

func TestStructuredCallRetriesThenSucceeds(t *testing.T) {
	provider := &scriptedProvider{
		errs:      []error{errors.New("transient"), errors.New("transient"), nil},
		responses: []string{"", "", `{"is_simple_task":true,"is_followup_task":true}`},
	}
	c := NewClassifier(provider)

	result, err := c.Classify(context.Background(), "continue where we left off", "prior chat")
	require.NoError(t, err)
	assert.Equal(t, 3, provider.calls)
	assert.True(t, result.IsSimpleTask)
	assert.True(t, result.IsFollowupTask)
}

func TestClassifierHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	provider := &scriptedProvider{responses: []string{`{"is_simple_task":true,"is_followup_task":false}`}}
	c := NewClassifier(provider)

	_, err := c.Classify(ctx, "open example.com", "")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAdHocStrategyProducesSteps(t *testing.T) {
	provider := &scriptedProvider{responses: []string{
		`{"steps":[{"action":"navigate to example.com","reasoning":"start at the site"},{"action":"click the login link","reasoning":"reach the form"}]}`,
	}}
	s := NewAdHocStrategy(provider)

	out, err := s.PlanCycle(context.Background(), CycleInput{Task: "log in", MaxSteps: 5})
	require.NoError(t, err)
	require.Len(t, out.Steps, 2)
	assert.Equal(t, "navigate to example.com", out.Steps[0].Action)
	assert.Equal(t, "reach the form", out.Steps[1].Reasoning)
}

func TestAdHocStrategyEmptyPlanIsError(t *testing.T) {
	provider := &scriptedProvider{responses: []string{`{"steps":[]}`, `{"steps":[]}`, `{"steps":[]}`}}
	s := NewAdHocStrategy(provider)

	_, err := s.PlanCycle(context.Background(), CycleInput{Task: "log in", MaxSteps: 5})
	assert.ErrorIs(t, err, ErrEmptyPlan)
}

func TestAdHocStrategyTruncatesToMaxSteps(t *testing.T) {
	provider := &scriptedProvider{responses: []string{
		`{"steps":[{"action":"a","reasoning":"r"},{"action":"b","reasoning":"r"},{"action":"c","reasoning":"r"}]}`,
	}}
	s := NewAdHocStrategy(provider)

	out, err := s.PlanCycle(context.Background(), CycleInput{Task: "t", MaxSteps: 2})
	require.NoError(t, err)
	assert.Len(t, out.Steps, 2)
}

func TestTodoMarkdownStrategyReturnsActions(t *testing.T) {
	provider := &scriptedProvider{responses: []string{
		`{"todo_markdown":"- [x] open site\n- [ ] search","actions":["type the query","press enter"],"all_complete":false,"final_answer":""}`,
	}}
	s := NewTodoMarkdownStrategy(provider)

	out, err := s.PlanCycle(context.Background(), CycleInput{Task: "search for flights"})
	require.NoError(t, err)
	assert.False(t, out.AllComplete)
	assert.Equal(t, []string{"type the query", "press enter"}, out.Actions)
	require.Len(t, out.Steps, 2)
	assert.Contains(t, out.TodoMarkdown, "- [x] open site")
}

func TestTodoMarkdownStrategyAllComplete(t *testing.T) {
	provider := &scriptedProvider{responses: []string{
		`{"todo_markdown":"- [x] everything","actions":[],"all_complete":true,"final_answer":"The cheapest flight is $123."}`,
	}}
	s := NewTodoMarkdownStrategy(provider)

	out, err := s.PlanCycle(context.Background(), CycleInput{Task: "find cheapest flight"})
	require.NoError(t, err)
	assert.True(t, out.AllComplete)
	assert.Equal(t, "The cheapest flight is $123.", out.FinalAnswer)
	assert.Empty(t, out.Steps)
}

func TestTodoMarkdownStrategyNoActionsNotCompleteIsError(t *testing.T) {
	provider := &scriptedProvider{responses: []string{
		`{"todo_markdown":"- [ ] stuck","actions":[],"all_complete":false,"final_answer":""}`,
	}}
	s := NewTodoMarkdownStrategy(provider)

	_, err := s.PlanCycle(context.Background(), CycleInput{Task: "t"})
	assert.ErrorIs(t, err, ErrEmptyPlan)
}

func TestValidatorParsesResult(t *testing.T) {
	provider := &scriptedProvider{responses: []string{
		`{"is_complete":true,"reasoning":"confirmation page shown","suggestions":[]}`,
	}}
	v := NewValidator(provider)

	result, err := v.Validate(context.Background(), "book a table", "navigated, submitted form", "url: confirmation")
	require.NoError(t, err)
	assert.True(t, result.IsComplete)
	assert.Equal(t, "confirmation page shown", result.Reasoning)
}

func TestValidatorDefaultsToIncomplete(t *testing.T) {
	provider := &scriptedProvider{
		errs: []error{errors.New("boom"), errors.New("boom"), errors.New("boom")},
	}
	v := NewValidator(provider)

	result, err := v.Validate(context.Background(), "book a table", "history", "")
	require.NoError(t, err, "validation failure must not abort the run")
	assert.False(t, result.IsComplete)
	assert.NotEmpty(t, result.Reasoning)
}
