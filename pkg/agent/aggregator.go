package agent

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/google/uuid"

	"github.com/entrhq/pilot/pkg/llm"
	"github.com/entrhq/pilot/pkg/types"
)

// partialToolCall accumulates streamed fragments of one tool call.
type partialToolCall struct {
	id   string
	name string
	args strings.Builder
}

// aggregateStream consumes a model stream and reconstructs the final
// assistant message. Text content is published incrementally as
// thinking updates under one stable message id so the UI can render
// replace-in-place; tool-call fragments are merged by index until the
// stream ends. Cancellation is checked on every chunk and aborts
// without a final publish.
func aggregateStream(ctx context.Context, stream <-chan *llm.StreamChunk, emit func(*types.AgentEvent)) (*types.Message, error) {
	messageID := uuid.New().String()
	var content strings.Builder
	partials := make(map[int]*partialToolCall)
	var order []int

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()

		case chunk, ok := <-stream:
			if !ok {
				return finalizeStreamMessage(messageID, content.String(), partials, order), nil
			}
			if chunk.IsError() {
				return nil, chunk.Error
			}

			if chunk.Content != "" {
				content.WriteString(chunk.Content)
				emit(types.NewThinkingUpdateEvent(messageID, content.String()))
			}

			for _, delta := range chunk.ToolCalls {
				partial, seen := partials[delta.Index]
				if !seen {
					partial = &partialToolCall{}
					partials[delta.Index] = partial
					order = append(order, delta.Index)
				}
				if delta.ID != "" {
					partial.id = delta.ID
				}
				if delta.Name != "" {
					partial.name = delta.Name
				}
				partial.args.WriteString(delta.ArgumentsFragment)
			}

			if chunk.Finished {
				return finalizeStreamMessage(messageID, content.String(), partials, order), nil
			}
		}
	}
}

// finalizeStreamMessage assembles the completed assistant message from
// the accumulated content and merged tool calls, preserving the order
// in which each call first appeared.
func finalizeStreamMessage(messageID, content string, partials map[int]*partialToolCall, order []int) *types.Message {
	var toolCalls []types.ToolCall
	for _, index := range order {
		partial := partials[index]
		if partial.name == "" {
			continue
		}
		args := partial.args.String()
		if args == "" {
			args = "{}"
		}
		toolCalls = append(toolCalls, types.ToolCall{
			ID:        partial.id,
			Name:      partial.name,
			Arguments: json.RawMessage(args),
		})
	}

	msg := types.NewAssistantMessage(content, toolCalls)
	msg.ID = messageID
	return msg
}
