// Package conversation maintains the ordered record of messages exchanged
// with the model during one task execution.
package conversation

import (
	"strings"
	"sync"

	"github.com/entrhq/pilot/pkg/types"
)

// Log is the append-only conversation record for one execution. Ephemeral
// messages (current browser state, current TODO snapshot) are upserted by
// kind: re-adding one replaces its content in place instead of appending a
// duplicate, so the prompt never accumulates stale snapshots.
//
// Only the orchestration goroutine mutates the log, but reads may come from
// renderers taking snapshots, so access is mutex-guarded.
type Log struct {
	mu       sync.RWMutex
	messages []*types.Message
}

// New creates an empty conversation log.
func New() *Log {
	return &Log{}
}

// AddSystem appends a system message.
func (l *Log) AddSystem(content string) *types.Message {
	return l.add(types.NewSystemMessage(content))
}

// AddUser appends a user message.
func (l *Log) AddUser(content string) *types.Message {
	return l.add(types.NewUserMessage(content))
}

// AddAssistant appends an assistant message with its tool calls.
func (l *Log) AddAssistant(content string, toolCalls []types.ToolCall) *types.Message {
	return l.add(types.NewAssistantMessage(content, toolCalls))
}

// AddToolResult appends a tool result keyed by the originating call id.
func (l *Log) AddToolResult(content, toolCallID string) *types.Message {
	return l.add(types.NewToolMessage(content, toolCallID))
}

// Add appends an arbitrary message. Ephemeral messages are routed through
// the upsert path.
func (l *Log) Add(msg *types.Message) *types.Message {
	if msg.IsEphemeral() {
		return l.UpsertEphemeral(msg.Ephemeral, msg.Content)
	}
	return l.add(msg)
}

func (l *Log) add(msg *types.Message) *types.Message {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, msg)
	return msg
}

// UpsertEphemeral adds or replaces the ephemeral message of the given kind.
// When a message of the kind already exists its content is replaced in
// place, preserving its position and id; otherwise a new message is
// appended.
func (l *Log) UpsertEphemeral(kind, content string) *types.Message {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, msg := range l.messages {
		if msg.Ephemeral == kind {
			msg.Content = content
			return msg
		}
	}

	msg := types.NewEphemeralMessage(kind, content)
	l.messages = append(l.messages, msg)
	return msg
}

// RemoveEphemeral deletes the ephemeral message of the given kind, if any.
func (l *Log) RemoveEphemeral(kind string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i, msg := range l.messages {
		if msg.Ephemeral == kind {
			l.messages = append(l.messages[:i], l.messages[i+1:]...)
			return
		}
	}
}

// GetAll returns the messages in insertion order with ephemeral
// replacements already resolved. The returned slice is a copy; the messages
// themselves are shared.
func (l *Log) GetAll() []*types.Message {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]*types.Message, len(l.messages))
	copy(out, l.messages)
	return out
}

// Len returns the number of messages in the log.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.messages)
}

// Clear removes all messages. Used when a fresh (non-follow-up) task
// re-initializes the conversation.
func (l *Log) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = nil
}

// RecentAssistantTexts returns up to n most recent assistant message texts,
// oldest first. Used by the loop detector.
func (l *Log) RecentAssistantTexts(n int) []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var texts []string
	for i := len(l.messages) - 1; i >= 0 && len(texts) < n; i-- {
		msg := l.messages[i]
		if msg.Role != types.RoleAssistant {
			continue
		}
		text := strings.TrimSpace(msg.Content)
		if text == "" {
			continue
		}
		texts = append(texts, text)
	}

	// Reverse into chronological order.
	for i, j := 0, len(texts)-1; i < j; i, j = i+1, j-1 {
		texts[i], texts[j] = texts[j], texts[i]
	}
	return texts
}

// ReplaceRange replaces the messages in [start, end) with the given
// replacement messages. Used by summarization to collapse history spans.
// Indices outside the current message range are clamped.
func (l *Log) ReplaceRange(start, end int, replacement ...*types.Message) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if start < 0 {
		start = 0
	}
	if end > len(l.messages) {
		end = len(l.messages)
	}
	if start >= end {
		return
	}

	rest := make([]*types.Message, len(l.messages[end:]))
	copy(rest, l.messages[end:])

	l.messages = append(l.messages[:start], replacement...)
	l.messages = append(l.messages, rest...)
}
