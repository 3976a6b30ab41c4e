// Package budget keeps the conversation within the model's context window.
// When the estimated token cost of the accumulated history crosses a
// threshold fraction of the window, the history is collapsed into a
// condensed narrative by a summarization model call.
package budget

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/entrhq/pilot/pkg/agent/conversation"
	"github.com/entrhq/pilot/pkg/llm"
	"github.com/entrhq/pilot/pkg/llm/tokenizer"
	"github.com/entrhq/pilot/pkg/logging"
	"github.com/entrhq/pilot/pkg/types"
)

var debugLog *logging.Logger

func init() {
	var err error
	debugLog, err = logging.NewLogger("budget")
	if err != nil {
		// Logger fell back to stderr due to initialization failure
		debugLog.Warnf("Failed to initialize budget logger, using stderr fallback: %v", err)
	}
}

// Manager orchestrates context compression strategies, evaluating them in
// order and emitting events for renderer feedback. It is invoked once per
// turn during prompt preparation, so each strategy runs at most once per
// turn.
type Manager struct {
	strategies         []Strategy
	provider           llm.Provider
	summarizationModel string // optional model override for summarization calls
	tokenizer          *tokenizer.Tokenizer
	maxTokens          int
	eventChannel       chan<- *types.AgentEvent
	mu                 sync.RWMutex // protects provider and summarizationModel
}

// NewManager creates a new budget manager with the given strategies.
// Strategies are evaluated in the order provided. The event channel should
// be set later via SetEventChannel once the engine creates its channels.
func NewManager(provider llm.Provider, maxTokens int, strategies ...Strategy) (*Manager, error) {
	tok, err := tokenizer.New()
	if err != nil {
		return nil, fmt.Errorf("failed to create tokenizer: %w", err)
	}

	return &Manager{
		strategies: strategies,
		provider:   provider,
		tokenizer:  tok,
		maxTokens:  maxTokens,
	}, nil
}

// SetEventChannel sets the event channel for emitting summarization events.
func (m *Manager) SetEventChannel(eventChan chan<- *types.AgentEvent) {
	m.eventChannel = eventChan
}

// SetProvider updates the LLM provider used for summarization calls.
func (m *Manager) SetProvider(provider llm.Provider) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.provider = provider
}

// SetSummarizationModel sets the model name to use for summarization calls.
// If empty, summarization uses the same model as the main provider. The
// provider must implement llm.ModelCloner for this to take effect.
func (m *Manager) SetSummarizationModel(model string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.summarizationModel = model
}

// providerForSummarization returns the provider to use for summarization
// calls, cloned with the override model when one is configured.
func (m *Manager) providerForSummarization() llm.Provider {
	m.mu.RLock()
	provider := m.provider
	model := m.summarizationModel
	m.mu.RUnlock()

	if model == "" {
		return provider
	}
	if cloner, ok := provider.(llm.ModelCloner); ok {
		return cloner.CloneWithModel(model)
	}
	return provider
}

// EvaluateAndSummarize evaluates all strategies against the current token
// estimate and performs compression where needed. Blocks the turn but emits
// events to keep the renderer responsive. Returns the total number of
// messages collapsed across all strategies.
func (m *Manager) EvaluateAndSummarize(ctx context.Context, log *conversation.Log, currentTokens int) (int, error) {
	totalCollapsed := 0

	for _, strategy := range m.strategies {
		if !strategy.ShouldRun(log, currentTokens, m.maxTokens) {
			continue
		}

		m.emit(types.NewSummarizationStartEvent(strategy.Name(), currentTokens, m.maxTokens))
		startTime := time.Now()

		debugLog.Printf("Executing strategy %s at %d/%d tokens", strategy.Name(), currentTokens, m.maxTokens)
		collapsed, err := strategy.Summarize(ctx, log, m.providerForSummarization())
		if err != nil {
			debugLog.Printf("Strategy %s failed: %v", strategy.Name(), err)
			m.emit(types.NewSummarizationErrorEvent(strategy.Name(), err))
			return totalCollapsed, fmt.Errorf("strategy %s failed: %w", strategy.Name(), err)
		}

		duration := time.Since(startTime)
		totalCollapsed += collapsed

		newTokenCount := m.tokenizer.CountMessagesTokens(log.GetAll())
		tokensSaved := currentTokens - newTokenCount
		debugLog.Printf("Strategy %s collapsed %d messages in %s, saved %d tokens", strategy.Name(), collapsed, duration, tokensSaved)

		m.emit(types.NewSummarizationDoneEvent(strategy.Name(), tokensSaved, newTokenCount, duration.String()))

		currentTokens = newTokenCount
	}

	return totalCollapsed, nil
}

func (m *Manager) emit(event *types.AgentEvent) {
	if m.eventChannel != nil {
		m.eventChannel <- event
	}
}

// AddStrategy adds a new strategy, evaluated after existing strategies.
func (m *Manager) AddStrategy(strategy Strategy) {
	m.strategies = append(m.strategies, strategy)
}

// SetMaxTokens updates the maximum token limit.
func (m *Manager) SetMaxTokens(maxTokens int) {
	m.maxTokens = maxTokens
}

// GetMaxTokens returns the current maximum token limit.
func (m *Manager) GetMaxTokens() int {
	return m.maxTokens
}
