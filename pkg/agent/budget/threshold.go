package budget

import (
	"context"
	"fmt"
	"strings"

	"github.com/entrhq/pilot/pkg/agent/conversation"
	"github.com/entrhq/pilot/pkg/llm"
	"github.com/entrhq/pilot/pkg/types"
)

// DefaultThresholdFraction triggers compression when the estimated prompt
// cost exceeds this fraction of the model's context window.
const DefaultThresholdFraction = 0.7

// minMessagesToCollapse avoids pointless summarization calls when there is
// barely any history to compress.
const minMessagesToCollapse = 4

const summarizationPrompt = `You are compressing the working history of a browser automation session so it fits the model context window.

Summarize the conversation below into one condensed narrative. Preserve:
- what the task is and how far execution has progressed
- pages visited and what was found on them
- actions taken and their outcomes, including failures
- any data extracted that later steps will need

Omit pleasantries and redundant tool chatter. Respond with the narrative only.`

// ThresholdStrategy collapses the accumulated execution history into a
// single condensed narrative once token usage exceeds a fraction of the
// maximum context window. The system message, the original task message,
// and ephemeral snapshots are preserved; everything else is replaced by the
// narrative. The compression is lossy but idempotent in effect: repeated
// runs keep the representation bounded instead of growing with turns.
type ThresholdStrategy struct {
	fraction float64
}

// NewThresholdStrategy creates a threshold strategy. fraction must be in
// (0, 1]; values outside the range fall back to the default.
func NewThresholdStrategy(fraction float64) *ThresholdStrategy {
	if fraction <= 0 || fraction > 1 {
		fraction = DefaultThresholdFraction
	}
	return &ThresholdStrategy{fraction: fraction}
}

// Name returns the strategy name.
func (s *ThresholdStrategy) Name() string {
	return "threshold"
}

// ShouldRun returns true when the current token estimate exceeds the
// configured fraction of the maximum and there is enough history to be
// worth collapsing.
func (s *ThresholdStrategy) ShouldRun(log *conversation.Log, currentTokens, maxTokens int) bool {
	if maxTokens <= 0 {
		return false
	}
	if float64(currentTokens) <= s.fraction*float64(maxTokens) {
		return false
	}
	return len(collapsible(log.GetAll())) >= minMessagesToCollapse
}

// collapsible returns the history messages eligible for compression:
// everything after the initial system and task messages except ephemeral
// snapshots.
func collapsible(messages []*types.Message) []*types.Message {
	var out []*types.Message
	seenTask := false
	for _, msg := range messages {
		if msg.Role == types.RoleSystem {
			continue
		}
		if msg.IsEphemeral() {
			continue
		}
		if !seenTask && msg.Role == types.RoleUser {
			// The first durable user message is the task itself.
			seenTask = true
			continue
		}
		out = append(out, msg)
	}
	return out
}

// Summarize collapses the eligible history into one narrative message.
func (s *ThresholdStrategy) Summarize(ctx context.Context, log *conversation.Log, provider llm.Provider) (int, error) {
	snapshot := log.GetAll()
	history := collapsible(snapshot)
	if len(history) == 0 {
		return 0, nil
	}

	var transcript strings.Builder
	for _, msg := range history {
		transcript.WriteString(string(msg.Role))
		transcript.WriteString(": ")
		transcript.WriteString(msg.Content)
		for _, call := range msg.ToolCalls {
			fmt.Fprintf(&transcript, "\n[tool call %s %s]", call.Name, string(call.Arguments))
		}
		transcript.WriteString("\n")
	}

	resp, err := provider.Complete(ctx, &llm.Request{
		Messages: []*types.Message{
			types.NewSystemMessage(summarizationPrompt),
			types.NewUserMessage(transcript.String()),
		},
	})
	if err != nil {
		return 0, fmt.Errorf("summarization call failed: %w", err)
	}
	if strings.TrimSpace(resp.Content) == "" {
		return 0, fmt.Errorf("summarization produced empty narrative")
	}

	summary := types.NewUserMessage("Summary of execution so far:\n" + resp.Content)
	summary.Metadata = map[string]any{"summarized": true}

	// Rebuild the log: system + task + narrative, with ephemeral snapshots
	// re-appended in their original order.
	keep := make([]*types.Message, 0, len(snapshot)-len(history)+1)
	seenTask := false
	var ephemerals []*types.Message
	for _, msg := range snapshot {
		switch {
		case msg.Role == types.RoleSystem:
			keep = append(keep, msg)
		case msg.IsEphemeral():
			ephemerals = append(ephemerals, msg)
		case !seenTask && msg.Role == types.RoleUser:
			seenTask = true
			keep = append(keep, msg)
		}
	}
	keep = append(keep, summary)
	keep = append(keep, ephemerals...)

	log.Clear()
	for _, msg := range keep {
		log.Add(msg)
	}

	return len(history), nil
}
