package budget

import (
	"context"

	"github.com/entrhq/pilot/pkg/agent/conversation"
	"github.com/entrhq/pilot/pkg/llm"
)

// Strategy defines the interface for context compression strategies. Each
// strategy implements a specific approach to reducing context size while
// preserving semantic meaning.
type Strategy interface {
	// Name returns the strategy's identifier for logging and events.
	Name() string

	// ShouldRun evaluates whether this strategy should execute on this
	// turn, given the current conversation log, the current token
	// estimate, and the model's maximum context size.
	ShouldRun(log *conversation.Log, currentTokens, maxTokens int) bool

	// Summarize performs the actual compression. The conversation log is
	// modified in place. Returns the number of messages collapsed.
	Summarize(ctx context.Context, log *conversation.Log, provider llm.Provider) (int, error)
}
