package types

import "sync"

// AgentChannels bundles the communication channels between the engine and
// its renderer. The engine owns and closes them.
type AgentChannels struct {
	// Input carries tasks, cancellations, and human-input responses into
	// the engine.
	Input chan *Input

	// Event carries engine events out to the renderer.
	Event chan *AgentEvent

	// Shutdown is closed by the caller to request a graceful stop.
	Shutdown chan struct{}

	// Done is closed by the engine once it has fully stopped.
	Done chan struct{}

	closeOnce sync.Once
}

// NewAgentChannels creates channels with the given event buffer size.
func NewAgentChannels(bufferSize int) *AgentChannels {
	if bufferSize <= 0 {
		bufferSize = 10
	}
	return &AgentChannels{
		Input:    make(chan *Input, bufferSize),
		Event:    make(chan *AgentEvent, bufferSize),
		Shutdown: make(chan struct{}),
		Done:     make(chan struct{}),
	}
}

// Close closes the outbound channels exactly once.
func (c *AgentChannels) Close() {
	c.closeOnce.Do(func() {
		close(c.Event)
		close(c.Done)
	})
}
