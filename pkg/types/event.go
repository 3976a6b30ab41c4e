package types

// AgentEventType defines the type of event emitted by the engine.
type AgentEventType string

const (
	EventTypeThinkingUpdate       AgentEventType = "thinking_update"        // EventTypeThinkingUpdate carries incremental model output under one stable message id.
	EventTypeAssistantMessage     AgentEventType = "assistant_message"      // EventTypeAssistantMessage is a finalized assistant message.
	EventTypeNarration            AgentEventType = "narration"              // EventTypeNarration is engine commentary about progress (plan cycles, validation).
	EventTypeError                AgentEventType = "error"                  // EventTypeError reports a fatal or user-visible error.
	EventTypeToolCall             AgentEventType = "tool_call"              // EventTypeToolCall indicates a tool is about to execute.
	EventTypeToolResult           AgentEventType = "tool_result"            // EventTypeToolResult carries a successful tool result.
	EventTypeToolResultError      AgentEventType = "tool_result_error"      // EventTypeToolResultError carries a failed tool result.
	EventTypeTokenUsage           AgentEventType = "token_usage"            // EventTypeTokenUsage reports prompt/completion token counts.
	EventTypeSummarizationStart   AgentEventType = "summarization_start"    // EventTypeSummarizationStart indicates history compression has begun.
	EventTypeSummarizationDone    AgentEventType = "summarization_done"     // EventTypeSummarizationDone indicates history compression finished.
	EventTypeSummarizationError   AgentEventType = "summarization_error"    // EventTypeSummarizationError indicates history compression failed.
	EventTypeHumanInputRequest    AgentEventType = "human_input_request"    // EventTypeHumanInputRequest asks the outside world for approval.
	EventTypePlanCreated          AgentEventType = "plan_created"           // EventTypePlanCreated announces a new plan for the coming cycle.
	EventTypePlanEditResponse     AgentEventType = "plan_edit_response"     // EventTypePlanEditResponse confirms an externally supplied plan was accepted.
	EventTypeTodoUpdate           AgentEventType = "todo_update"            // EventTypeTodoUpdate carries the current TODO markdown snapshot.
	EventTypeUpdateBusy           AgentEventType = "update_busy"            // EventTypeUpdateBusy reports a change in the engine's busy status.
	EventTypeTurnEnd              AgentEventType = "turn_end"               // EventTypeTurnEnd indicates the engine finished the current execution.
	EventTypeAPICallStart         AgentEventType = "api_call_start"         // EventTypeAPICallStart indicates a model invocation is starting.
)

// TokenUsage contains token usage statistics from a model invocation.
type TokenUsage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Summarization contains information about a history compression pass.
type Summarization struct {
	Strategy      string
	CurrentTokens int
	MaxTokens     int
	TokensSaved   int
	NewTokenCount int
	Duration      string
	ErrorMessage  string
}

// PlanInfo describes a plan announced by a PlanCreated event.
type PlanInfo struct {
	Cycle int
	Steps []string
}

// AgentEvent represents an event emitted by the engine during execution.
// Renderers correlate streaming updates by MessageID: repeated
// ThinkingUpdate events with the same MessageID replace prior content
// rather than appending a new message.
type AgentEvent struct {
	// Type indicates the kind of event.
	Type AgentEventType

	// MessageID is the stable id for replace-in-place rendering.
	MessageID string

	// Content holds text content for message-type events.
	Content string

	// ToolName is the tool being called (for tool events).
	ToolName string

	// ToolInput is the decoded argument map (for tool call events).
	ToolInput map[string]any

	// ToolOutput is the result text (for tool result events).
	ToolOutput string

	// Error contains error information for error events.
	Error error

	// RequestID correlates human-input requests with responses.
	RequestID string

	// Prompt is the question shown for human-input requests.
	Prompt string

	// IsBusy reports the engine's busy status (for busy events).
	IsBusy bool

	// TokenUsage is set for token usage events.
	TokenUsage *TokenUsage

	// Summarization is set for summarization events.
	Summarization *Summarization

	// Plan is set for plan events.
	Plan *PlanInfo

	// Metadata holds optional additional information about the event.
	Metadata map[string]any
}

// NewThinkingUpdateEvent creates an incremental model output event under a
// stable message id.
func NewThinkingUpdateEvent(messageID, content string) *AgentEvent {
	return &AgentEvent{Type: EventTypeThinkingUpdate, MessageID: messageID, Content: content, Metadata: make(map[string]any)}
}

// NewAssistantMessageEvent creates a finalized assistant message event.
func NewAssistantMessageEvent(messageID, content string) *AgentEvent {
	return &AgentEvent{Type: EventTypeAssistantMessage, MessageID: messageID, Content: content, Metadata: make(map[string]any)}
}

// NewNarrationEvent creates an engine narration event.
func NewNarrationEvent(content string) *AgentEvent {
	return &AgentEvent{Type: EventTypeNarration, Content: content, Metadata: make(map[string]any)}
}

// NewErrorEvent creates an error event.
func NewErrorEvent(err error) *AgentEvent {
	return &AgentEvent{Type: EventTypeError, Error: err, Metadata: make(map[string]any)}
}

// NewToolCallEvent creates a tool call event.
func NewToolCallEvent(toolName string, input map[string]any) *AgentEvent {
	return &AgentEvent{Type: EventTypeToolCall, ToolName: toolName, ToolInput: input, Metadata: make(map[string]any)}
}

// NewToolResultEvent creates a successful tool result event.
func NewToolResultEvent(toolName, output string) *AgentEvent {
	return &AgentEvent{Type: EventTypeToolResult, ToolName: toolName, ToolOutput: output, Metadata: make(map[string]any)}
}

// NewToolResultErrorEvent creates a failed tool result event.
func NewToolResultErrorEvent(toolName string, err error) *AgentEvent {
	return &AgentEvent{Type: EventTypeToolResultError, ToolName: toolName, Error: err, Metadata: make(map[string]any)}
}

// NewTokenUsageEvent creates a token usage event.
func NewTokenUsageEvent(prompt, completion, total int) *AgentEvent {
	return &AgentEvent{
		Type:       EventTypeTokenUsage,
		TokenUsage: &TokenUsage{PromptTokens: prompt, CompletionTokens: completion, TotalTokens: total},
		Metadata:   make(map[string]any),
	}
}

// NewSummarizationStartEvent creates a summarization start event.
func NewSummarizationStartEvent(strategy string, currentTokens, maxTokens int) *AgentEvent {
	return &AgentEvent{
		Type:          EventTypeSummarizationStart,
		Summarization: &Summarization{Strategy: strategy, CurrentTokens: currentTokens, MaxTokens: maxTokens},
		Metadata:      make(map[string]any),
	}
}

// NewSummarizationDoneEvent creates a summarization completion event.
func NewSummarizationDoneEvent(strategy string, tokensSaved, newTokenCount int, duration string) *AgentEvent {
	return &AgentEvent{
		Type: EventTypeSummarizationDone,
		Summarization: &Summarization{
			Strategy:      strategy,
			TokensSaved:   tokensSaved,
			NewTokenCount: newTokenCount,
			Duration:      duration,
		},
		Metadata: make(map[string]any),
	}
}

// NewSummarizationErrorEvent creates a summarization error event.
func NewSummarizationErrorEvent(strategy string, err error) *AgentEvent {
	return &AgentEvent{
		Type:          EventTypeSummarizationError,
		Summarization: &Summarization{Strategy: strategy, ErrorMessage: err.Error()},
		Error:         err,
		Metadata:      make(map[string]any),
	}
}

// NewHumanInputRequestEvent creates a human-input request event.
func NewHumanInputRequestEvent(requestID, prompt string) *AgentEvent {
	return &AgentEvent{Type: EventTypeHumanInputRequest, RequestID: requestID, Prompt: prompt, Metadata: make(map[string]any)}
}

// NewPlanCreatedEvent announces the plan driving the next execution cycle.
func NewPlanCreatedEvent(cycle int, steps []string) *AgentEvent {
	return &AgentEvent{Type: EventTypePlanCreated, Plan: &PlanInfo{Cycle: cycle, Steps: steps}, Metadata: make(map[string]any)}
}

// NewPlanEditResponseEvent confirms that a plan supplied from outside
// the engine, such as a user-edited predefined plan, was accepted and
// will drive the first execution cycle.
func NewPlanEditResponseEvent(steps []string) *AgentEvent {
	return &AgentEvent{Type: EventTypePlanEditResponse, Plan: &PlanInfo{Cycle: 0, Steps: steps}, Metadata: make(map[string]any)}
}

// NewTodoUpdateEvent carries the current TODO markdown snapshot.
func NewTodoUpdateEvent(markdown string) *AgentEvent {
	return &AgentEvent{Type: EventTypeTodoUpdate, Content: markdown, Metadata: make(map[string]any)}
}

// NewUpdateBusyEvent creates a busy status event.
func NewUpdateBusyEvent(busy bool) *AgentEvent {
	return &AgentEvent{Type: EventTypeUpdateBusy, IsBusy: busy, Metadata: make(map[string]any)}
}

// NewTurnEndEvent creates a turn end event.
func NewTurnEndEvent() *AgentEvent {
	return &AgentEvent{Type: EventTypeTurnEnd, Metadata: make(map[string]any)}
}

// NewAPICallStartEvent creates an API call start event carrying context size
// information for renderers.
func NewAPICallStartEvent(contextTokens, maxContextTokens int) *AgentEvent {
	return &AgentEvent{
		Type: EventTypeAPICallStart,
		Metadata: map[string]any{
			"context_tokens":     contextTokens,
			"max_context_tokens": maxContextTokens,
		},
	}
}
