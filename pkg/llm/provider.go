// Package llm provides abstractions for LLM provider integration.
//
// Providers handle API communication with LLM services and return simple
// StreamChunk instances. This design keeps providers focused on LLM concerns
// without coupling them to agent-level events or orchestration.
//
// The agent layer is responsible for:
// - Aggregating StreamChunks into final responses
// - Emitting thinking, tool, and status events
// - Managing conversation state and history
package llm

import (
	"context"

	"github.com/entrhq/pilot/pkg/types"
)

// ToolDefinition describes one tool exposed to the model. Name and Schema
// are required; registration validates both before the first invocation.
type ToolDefinition struct {
	// Name is the unique tool identifier, e.g. "browser_navigate".
	Name string

	// Description tells the model when to use the tool.
	Description string

	// Schema is a JSON Schema object describing the tool's arguments.
	Schema map[string]any
}

// ResponseSchema requests schema-validated structured output. When set on a
// request, the provider asks the model to emit JSON conforming to Schema.
type ResponseSchema struct {
	// Name labels the schema for the API.
	Name string

	// Schema is a JSON Schema object the response must conform to.
	Schema map[string]any
}

// Request is one model invocation: messages plus optional tool binding and
// structured-output constraint.
type Request struct {
	Messages       []*types.Message
	Tools          []ToolDefinition
	ResponseSchema *ResponseSchema
}

// ToolCallDelta is one incremental fragment of a tool call emitted during
// streaming. Fragments sharing an Index belong to the same call; the ID and
// Name arrive on the first fragment, argument JSON accumulates across the
// rest.
type ToolCallDelta struct {
	Index             int
	ID                string
	Name              string
	ArgumentsFragment string
}

// StreamChunk is one increment of a streaming completion.
type StreamChunk struct {
	// Role is set on the first chunk (e.g. "assistant").
	Role string

	// Content is a text delta.
	Content string

	// ToolCalls holds tool call fragments carried by this chunk.
	ToolCalls []ToolCallDelta

	// Finished is true on the final chunk.
	Finished bool

	// Error is set when streaming failed mid-flight.
	Error error
}

// IsError returns true if this chunk carries an error.
func (c *StreamChunk) IsError() bool {
	return c.Error != nil
}

// ModelCloner is an optional interface that LLM providers can implement to
// support lightweight per-call model overrides without constructing a full
// second provider. The returned provider shares credentials and transport
// with the original but directs calls to the given model.
type ModelCloner interface {
	CloneWithModel(model string) Provider
}

// Provider defines the interface for LLM integrations.
//
// The engine requires streaming, plain completion, tool binding (via
// Request.Tools), and structured output (via Request.ResponseSchema). A
// provider whose model does not support tool calling is rejected at startup.
type Provider interface {
	// StreamCompletion sends a request to the LLM and streams back response
	// chunks.
	//
	// The returned channel emits StreamChunk instances:
	// - First chunk typically has Role set
	// - Subsequent chunks contain Content deltas and tool call fragments
	// - Final chunk has Finished=true
	// - Error chunks have Error set
	//
	// The channel is closed when streaming completes or an error occurs.
	// Callers should continue reading until the channel is closed. Returns
	// an error only if streaming cannot be initiated.
	StreamCompletion(ctx context.Context, req *Request) (<-chan *StreamChunk, error)

	// Complete sends a request to the LLM and returns the full response,
	// including any complete tool calls. Convenience wrapper around
	// StreamCompletion for non-streaming use cases.
	Complete(ctx context.Context, req *Request) (*types.Message, error)

	// GetModelInfo returns information about the model being used,
	// including its context window size and tool-calling capability.
	GetModelInfo() *types.ModelInfo

	// GetModel returns the model name being used.
	GetModel() string

	// GetBaseURL returns the base URL being used for API requests.
	GetBaseURL() string

	// GetAPIKey returns the API key being used for authentication.
	GetAPIKey() string
}
