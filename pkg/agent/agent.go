// Package agent provides the task execution engine.
//
// The Engine is available directly from this package:
//
//	import "github.com/entrhq/pilot/pkg/agent"
//	eng := agent.NewEngine(provider, agent.WithStateObserver(session))
//
// The package is organized with subpackages for specialized functionality:
//   - conversation: the conversation log with ephemeral entries
//   - budget: context token budgeting and summarization
//   - tools: the tool contract, registry and signal tools
//   - planner: classification, planning strategies and validation
//   - todo: the TODO store driving multi-step execution
//   - humaninput: the pause-for-human coordination
package agent

import (
	"context"

	"github.com/entrhq/pilot/pkg/types"
)

// Agent is the engine's external contract. Agents are async
// event-driven components that consume control inputs and publish
// progress via channels.
type Agent interface {
	// Start begins the agent's event loop in a goroutine. The agent
	// runs until the context is cancelled or the shutdown channel is
	// closed. Returns an error if the agent fails to start, otherwise
	// returns nil and continues running asynchronously.
	Start(ctx context.Context) error

	// Shutdown gracefully stops the agent. Returns when the agent has
	// fully stopped or the context is cancelled.
	Shutdown(ctx context.Context) error

	// GetChannels returns the communication channels for this agent.
	// The executor uses these channels to send input and receive
	// events.
	GetChannels() *types.AgentChannels
}

var _ Agent = (*Engine)(nil)
