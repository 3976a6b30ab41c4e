package types

import (
	"encoding/json"

	"github.com/google/uuid"
)

// MessageRole identifies the author of a conversation message.
type MessageRole string

const (
	RoleSystem    MessageRole = "system"    // RoleSystem is the engine's system prompt.
	RoleUser      MessageRole = "user"      // RoleUser is the human task or injected context.
	RoleAssistant MessageRole = "assistant" // RoleAssistant is model output.
	RoleTool      MessageRole = "tool"      // RoleTool is a tool execution result.
)

// Ephemeral kinds. Messages carrying one of these kinds are replaced in
// place by the conversation log instead of being appended, so the prompt
// always contains exactly one current snapshot of each.
const (
	EphemeralBrowserState = "browser-state"
	EphemeralTodoSnapshot = "todo-snapshot"
)

// ToolCall is one tool invocation requested by the model within a single
// assistant response. Arguments hold the raw JSON payload as emitted by the
// model; each tool decodes its own argument struct from it.
type ToolCall struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// Message is one entry in the conversation log.
type Message struct {
	// ID uniquely identifies this message. Ephemeral messages are upserted
	// by their Ephemeral kind; durable messages are append-only.
	ID string

	// Role identifies the author.
	Role MessageRole

	// Content is the text payload.
	Content string

	// ToolCallID links a RoleTool message back to the call it answers.
	ToolCallID string

	// ToolCalls holds the calls requested by a RoleAssistant message.
	ToolCalls []ToolCall

	// Ephemeral names the replace-in-place kind, empty for durable messages.
	Ephemeral string

	// Metadata holds optional additional information (e.g. summarization flags).
	Metadata map[string]any
}

// NewSystemMessage creates a system-role message.
func NewSystemMessage(content string) *Message {
	return &Message{ID: uuid.New().String(), Role: RoleSystem, Content: content}
}

// NewUserMessage creates a user-role message.
func NewUserMessage(content string) *Message {
	return &Message{ID: uuid.New().String(), Role: RoleUser, Content: content}
}

// NewAssistantMessage creates an assistant-role message with optional tool calls.
func NewAssistantMessage(content string, toolCalls []ToolCall) *Message {
	return &Message{ID: uuid.New().String(), Role: RoleAssistant, Content: content, ToolCalls: toolCalls}
}

// NewToolMessage creates a tool-role message answering the given call id.
func NewToolMessage(content, toolCallID string) *Message {
	return &Message{ID: uuid.New().String(), Role: RoleTool, Content: content, ToolCallID: toolCallID}
}

// NewEphemeralMessage creates a user-role message tagged with an ephemeral
// kind. The conversation log replaces an existing message of the same kind.
func NewEphemeralMessage(kind, content string) *Message {
	return &Message{ID: uuid.New().String(), Role: RoleUser, Content: content, Ephemeral: kind}
}

// IsEphemeral reports whether this message is replaced in place by kind.
func (m *Message) IsEphemeral() bool {
	return m.Ephemeral != ""
}

// ModelInfo describes the model behind an LLM provider.
type ModelInfo struct {
	// Provider is the provider family, e.g. "openai".
	Provider string

	// Name is the model identifier.
	Name string

	// MaxContextTokens is the model's context window size. The context
	// budgeter summarizes history when usage approaches this limit.
	MaxContextTokens int

	// SupportsStreaming indicates streaming completions are available.
	SupportsStreaming bool

	// SupportsTools indicates native tool calling is available. The
	// orchestrator refuses to start without it.
	SupportsTools bool

	// Metadata holds provider-specific extras.
	Metadata map[string]any
}
