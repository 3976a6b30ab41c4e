// Package tokenizer provides client-side token counting for prompt budgeting.
package tokenizer

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"

	"github.com/entrhq/pilot/pkg/types"
)

// defaultEncoding is used for all counting. cl100k_base matches the GPT-4
// family closely enough for budgeting purposes across compatible models.
const defaultEncoding = "cl100k_base"

// messageOverheadTokens approximates the per-message framing cost of the
// chat completions format (role, separators).
const messageOverheadTokens = 4

// Tokenizer counts tokens using a tiktoken encoding.
type Tokenizer struct {
	encoding *tiktoken.Tiktoken
}

// New creates a tokenizer with the default encoding.
func New() (*Tokenizer, error) {
	enc, err := tiktoken.GetEncoding(defaultEncoding)
	if err != nil {
		return nil, fmt.Errorf("failed to load encoding %s: %w", defaultEncoding, err)
	}
	return &Tokenizer{encoding: enc}, nil
}

// CountTokens returns the token count of a single text.
func (t *Tokenizer) CountTokens(text string) int {
	if text == "" {
		return 0
	}
	return len(t.encoding.Encode(text, nil, nil))
}

// CountMessagesTokens returns the total token count of a message list,
// including per-message framing overhead and serialized tool calls.
func (t *Tokenizer) CountMessagesTokens(messages []*types.Message) int {
	total := 0
	for _, msg := range messages {
		total += messageOverheadTokens
		total += t.CountTokens(msg.Content)
		for _, call := range msg.ToolCalls {
			total += t.CountTokens(call.Name)
			total += t.CountTokens(string(call.Arguments))
		}
	}
	return total
}

// EstimateTokens approximates a token count without an encoding, using the
// rough 1 token per 4 characters heuristic. Used as a fallback when
// tokenizer initialization fails.
func EstimateTokens(text string) int {
	return len(text) / 4
}
