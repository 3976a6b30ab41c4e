// Package openai provides an OpenAI-compatible LLM provider implementation.
//
// Example usage:
//
//	provider, err := openai.NewProvider(
//	    os.Getenv("OPENAI_API_KEY"),
//	    openai.WithModel("gpt-4o"),
//	)
//	if err != nil {
//	    panic(err)
//	}
//
//	stream, err := provider.StreamCompletion(ctx, &llm.Request{Messages: messages})
//	if err != nil {
//	    panic(err)
//	}
//	for chunk := range stream {
//	    fmt.Print(chunk.Content)
//	}
package openai

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/openai/openai-go"

	"github.com/entrhq/pilot/pkg/llm"
	"github.com/entrhq/pilot/pkg/types"
)

const (
	// DefaultBaseURL is the default OpenAI API base URL
	DefaultBaseURL = "https://api.openai.com/v1"

	// DefaultMaxContextTokens is assumed when the model's window is unknown.
	DefaultMaxContextTokens = 128000
)

// Provider implements the LLM provider interface for OpenAI-compatible APIs.
type Provider struct {
	httpClient *http.Client
	apiKey     string
	baseURL    string
	model      string
	modelInfo  *types.ModelInfo
}

// ProviderOption is a function that configures a Provider.
type ProviderOption func(*Provider)

// WithModel sets the model to use for completions.
func WithModel(model string) ProviderOption {
	return func(p *Provider) {
		p.model = model
	}
}

// WithBaseURL sets a custom base URL for OpenAI-compatible APIs.
// This enables using Azure OpenAI, local models, or other compatible services.
func WithBaseURL(baseURL string) ProviderOption {
	return func(p *Provider) {
		p.baseURL = baseURL
	}
}

// WithMaxContextTokens overrides the assumed context window size.
func WithMaxContextTokens(max int) ProviderOption {
	return func(p *Provider) {
		if max > 0 {
			p.modelInfo = ensureModelInfo(p.modelInfo)
			p.modelInfo.MaxContextTokens = max
		}
	}
}

func ensureModelInfo(info *types.ModelInfo) *types.ModelInfo {
	if info == nil {
		return &types.ModelInfo{Metadata: make(map[string]any)}
	}
	return info
}

// NewProvider creates a new OpenAI provider with the given API key.
//
// If apiKey is empty, it will attempt to read from the OPENAI_API_KEY
// environment variable. If baseURL is not provided via WithBaseURL, the
// OPENAI_BASE_URL environment variable is checked.
func NewProvider(apiKey string, opts ...ProviderOption) (*Provider, error) {
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}

	if apiKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required (provide via parameter or OPENAI_API_KEY environment variable)")
	}

	p := &Provider{
		model:      "gpt-4o", // Default model
		apiKey:     apiKey,
		httpClient: &http.Client{},
		baseURL:    DefaultBaseURL,
	}

	for _, opt := range opts {
		opt(p)
	}

	// If baseURL wasn't set by options, check environment variable
	if p.baseURL == DefaultBaseURL {
		if envBaseURL := os.Getenv("OPENAI_BASE_URL"); envBaseURL != "" {
			p.baseURL = envBaseURL
		}
	}

	p.modelInfo = ensureModelInfo(p.modelInfo)
	p.modelInfo.Provider = "openai"
	p.modelInfo.Name = p.model
	p.modelInfo.SupportsStreaming = true
	p.modelInfo.SupportsTools = true
	if p.modelInfo.MaxContextTokens == 0 {
		p.modelInfo.MaxContextTokens = DefaultMaxContextTokens
	}

	if p.baseURL != DefaultBaseURL {
		p.modelInfo.Metadata["base_url"] = p.baseURL
	}

	return p, nil
}

// CloneWithModel returns a shallow copy of p configured to use the given model.
// The clone shares the same HTTP client, API key, and base URL as the
// original. It implements llm.ModelCloner.
func (p *Provider) CloneWithModel(model string) llm.Provider {
	clone := *p // shallow copy shares httpClient (connection pool), apiKey, baseURL
	clone.model = model
	if p.modelInfo != nil {
		mi := *p.modelInfo
		mi.Name = model
		clone.modelInfo = &mi
	}
	return &clone
}

// StreamCompletion sends a request to the OpenAI API and streams back
// response chunks, including native tool-call fragments.
//
// This implementation uses raw HTTP streaming to handle SSE events directly,
// which provides better compatibility with OpenAI-compatible APIs that may
// include SSE comments or have slight format variations.
func (p *Provider) StreamCompletion(ctx context.Context, req *llm.Request) (<-chan *llm.StreamChunk, error) {
	resp, err := p.sendStreamRequest(ctx, req)
	if err != nil {
		return nil, err
	}

	chunks := make(chan *llm.StreamChunk, 10)
	go p.processStreamResponse(ctx, resp, chunks)
	return chunks, nil
}

// sendStreamRequest creates and sends the HTTP request for streaming
func (p *Provider) sendStreamRequest(ctx context.Context, req *llm.Request) (*http.Response, error) {
	reqBody := map[string]any{
		"model":    p.model,
		"messages": convertToOpenAIMessages(req.Messages),
		"stream":   true,
	}

	if len(req.Tools) > 0 {
		reqBody["tools"] = convertToOpenAITools(req.Tools)
	}

	if req.ResponseSchema != nil {
		reqBody["response_format"] = map[string]any{
			"type": "json_schema",
			"json_schema": map[string]any{
				"name":   req.ResponseSchema.Name,
				"schema": req.ResponseSchema.Schema,
				"strict": true,
			},
		}
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := p.baseURL + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			return nil, fmt.Errorf("API request failed with status %d (failed to read error body: %w)", resp.StatusCode, readErr)
		}
		return nil, fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(body))
	}

	return resp, nil
}

// sseDelta mirrors the delta object of a chat.completion.chunk SSE event.
type sseDelta struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	ToolCalls []struct {
		Index    int    `json:"index"`
		ID       string `json:"id"`
		Type     string `json:"type"`
		Function struct {
			Name      string `json:"name"`
			Arguments string `json:"arguments"`
		} `json:"function"`
	} `json:"tool_calls"`
}

// processStreamResponse processes the SSE stream and sends chunks to the channel
func (p *Provider) processStreamResponse(ctx context.Context, resp *http.Response, chunks chan<- *llm.StreamChunk) {
	defer close(chunks)
	defer resp.Body.Close()

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	firstChunk := true

	for scanner.Scan() {
		line := scanner.Text()

		if !isValidSSELine(line) {
			continue
		}

		data := strings.TrimPrefix(line, "data: ")

		if data == "[DONE]" {
			p.sendChunk(ctx, &llm.StreamChunk{Finished: true}, chunks)
			return
		}

		if !p.processSSEChunk(ctx, data, &firstChunk, chunks) {
			return
		}
	}

	if err := scanner.Err(); err != nil {
		p.sendChunk(ctx, &llm.StreamChunk{Error: fmt.Errorf("stream read error: %w", err)}, chunks)
	}
}

// isValidSSELine checks if a line is a valid SSE data line
func isValidSSELine(line string) bool {
	return line != "" && !strings.HasPrefix(line, ":") && strings.HasPrefix(line, "data: ")
}

// sendChunk delivers a chunk unless the context has been cancelled.
func (p *Provider) sendChunk(ctx context.Context, chunk *llm.StreamChunk, chunks chan<- *llm.StreamChunk) bool {
	select {
	case chunks <- chunk:
		return true
	case <-ctx.Done():
		// The consumer may already have walked away; never block on
		// the cancellation notice.
		select {
		case chunks <- &llm.StreamChunk{Error: ctx.Err()}:
		default:
		}
		return false
	}
}

// processSSEChunk processes a single SSE data chunk
func (p *Provider) processSSEChunk(ctx context.Context, data string, firstChunk *bool, chunks chan<- *llm.StreamChunk) bool {
	var chunk struct {
		Choices []struct {
			Delta        sseDelta `json:"delta"`
			FinishReason *string  `json:"finish_reason"`
		} `json:"choices"`
	}

	if err := json.Unmarshal([]byte(data), &chunk); err != nil {
		return true // Skip malformed chunks silently
	}

	if len(chunk.Choices) == 0 {
		return true
	}

	choice := chunk.Choices[0]
	streamChunk := &llm.StreamChunk{Content: choice.Delta.Content}

	if *firstChunk && choice.Delta.Role != "" {
		streamChunk.Role = choice.Delta.Role
		*firstChunk = false
	}

	for _, tc := range choice.Delta.ToolCalls {
		streamChunk.ToolCalls = append(streamChunk.ToolCalls, llm.ToolCallDelta{
			Index:             tc.Index,
			ID:                tc.ID,
			Name:              tc.Function.Name,
			ArgumentsFragment: tc.Function.Arguments,
		})
	}

	if choice.FinishReason != nil && (*choice.FinishReason == "stop" || *choice.FinishReason == "tool_calls") {
		streamChunk.Finished = true
	}

	if streamChunk.Content == "" && len(streamChunk.ToolCalls) == 0 && streamChunk.Role == "" && !streamChunk.Finished {
		return true
	}

	return p.sendChunk(ctx, streamChunk, chunks)
}

// Complete sends a request to the OpenAI API and returns the full response.
//
// This is a convenience wrapper around StreamCompletion that accumulates
// all chunks, merging tool-call fragments by index, into a single message.
func (p *Provider) Complete(ctx context.Context, req *llm.Request) (*types.Message, error) {
	stream, err := p.StreamCompletion(ctx, req)
	if err != nil {
		return nil, err
	}

	var content strings.Builder
	var role string
	partial := make(map[int]*types.ToolCall)
	args := make(map[int]*strings.Builder)
	var order []int

	for chunk := range stream {
		if chunk.IsError() {
			return nil, chunk.Error
		}
		if chunk.Role != "" {
			role = chunk.Role
		}
		content.WriteString(chunk.Content)

		for _, delta := range chunk.ToolCalls {
			call, ok := partial[delta.Index]
			if !ok {
				call = &types.ToolCall{}
				partial[delta.Index] = call
				args[delta.Index] = &strings.Builder{}
				order = append(order, delta.Index)
			}
			if delta.ID != "" {
				call.ID = delta.ID
			}
			if delta.Name != "" {
				call.Name = delta.Name
			}
			args[delta.Index].WriteString(delta.ArgumentsFragment)
		}
	}

	if role == "" {
		role = string(types.RoleAssistant)
	}

	var toolCalls []types.ToolCall
	for _, idx := range order {
		call := partial[idx]
		call.Arguments = json.RawMessage(args[idx].String())
		toolCalls = append(toolCalls, *call)
	}

	msg := types.NewAssistantMessage(content.String(), toolCalls)
	msg.Role = types.MessageRole(role)
	return msg, nil
}

// GetModelInfo returns information about the OpenAI model being used.
func (p *Provider) GetModelInfo() *types.ModelInfo {
	return p.modelInfo
}

// GetModel returns the model name being used.
func (p *Provider) GetModel() string {
	return p.model
}

// GetBaseURL returns the base URL being used.
func (p *Provider) GetBaseURL() string {
	return p.baseURL
}

// GetAPIKey returns the API key being used.
func (p *Provider) GetAPIKey() string {
	return p.apiKey
}

// convertToOpenAIMessages converts our Message format to OpenAI's
// ChatCompletionMessageParamUnion format, including assistant tool calls and
// tool results.
func convertToOpenAIMessages(messages []*types.Message) []openai.ChatCompletionMessageParamUnion {
	openaiMessages := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))

	for _, msg := range messages {
		switch msg.Role {
		case types.RoleSystem:
			openaiMessages = append(openaiMessages, openai.SystemMessage(msg.Content))
		case types.RoleUser:
			openaiMessages = append(openaiMessages, openai.UserMessage(msg.Content))
		case types.RoleAssistant:
			openaiMessages = append(openaiMessages, convertAssistantMessage(msg))
		case types.RoleTool:
			openaiMessages = append(openaiMessages, openai.ToolMessage(msg.Content, msg.ToolCallID))
		default:
			// Default to user message for unknown roles
			openaiMessages = append(openaiMessages, openai.UserMessage(msg.Content))
		}
	}

	return openaiMessages
}

// convertAssistantMessage builds an assistant param carrying tool calls when
// present.
func convertAssistantMessage(msg *types.Message) openai.ChatCompletionMessageParamUnion {
	if len(msg.ToolCalls) == 0 {
		return openai.AssistantMessage(msg.Content)
	}

	assistant := openai.ChatCompletionAssistantMessageParam{}
	if msg.Content != "" {
		assistant.Content.OfString = openai.String(msg.Content)
	}
	for _, call := range msg.ToolCalls {
		assistant.ToolCalls = append(assistant.ToolCalls, openai.ChatCompletionMessageToolCallParam{
			ID: call.ID,
			Function: openai.ChatCompletionMessageToolCallFunctionParam{
				Name:      call.Name,
				Arguments: string(call.Arguments),
			},
		})
	}
	return openai.ChatCompletionMessageParamUnion{OfAssistant: &assistant}
}

// convertToOpenAITools converts tool definitions to the chat completions
// tools parameter.
func convertToOpenAITools(tools []llm.ToolDefinition) []openai.ChatCompletionToolParam {
	params := make([]openai.ChatCompletionToolParam, 0, len(tools))
	for _, t := range tools {
		params = append(params, openai.ChatCompletionToolParam{
			Function: openai.FunctionDefinitionParam{
				Name:        t.Name,
				Description: openai.String(t.Description),
				Parameters:  openai.FunctionParameters(t.Schema),
			},
		})
	}
	return params
}
