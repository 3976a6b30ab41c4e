// Package humaninput coordinates the pause-and-resume handshake between
// the engine and the outside world when a tool requests human help.
package humaninput

import (
	"context"
	"sync"
	"time"

	"github.com/entrhq/pilot/pkg/types"
)

// DefaultTimeout is how long a request waits before resolving to
// OutcomeTimeout.
const DefaultTimeout = 10 * time.Minute

// Outcome is the resolution of one human-input wait.
type Outcome string

const (
	OutcomeDone    Outcome = "done"
	OutcomeAbort   Outcome = "abort"
	OutcomeTimeout Outcome = "timeout"
)

// EventEmitter publishes engine events to the UI transport.
type EventEmitter func(event *types.AgentEvent)

// Coordinator publishes human-input requests and awaits correlated
// responses. Each pending request owns a buffered response channel
// registered under its request id; responses with unknown ids are
// dropped.
type Coordinator struct {
	timeout   time.Duration
	pending   map[string]*pendingRequest
	mu        sync.Mutex
	emitEvent EventEmitter
}

type pendingRequest struct {
	requestID string
	response  chan *types.HumanInputResponse
	closeOnce sync.Once
}

// NewCoordinator creates a coordinator with the given wait timeout. A
// non-positive timeout falls back to DefaultTimeout.
func NewCoordinator(timeout time.Duration, emitEvent EventEmitter) *Coordinator {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Coordinator{
		timeout:   timeout,
		pending:   make(map[string]*pendingRequest),
		emitEvent: emitEvent,
	}
}

// Await publishes a human-input request and blocks until a matching
// response arrives, the timeout elapses, or ctx is cancelled.
// Cancellation resolves to OutcomeAbort immediately.
func (c *Coordinator) Await(ctx context.Context, requestID, prompt string) Outcome {
	responseChannel := make(chan *types.HumanInputResponse, 1)
	c.register(requestID, responseChannel)
	defer c.unregister(requestID)

	c.emitEvent(types.NewHumanInputRequestEvent(requestID, prompt))

	timer := time.NewTimer(c.timeout)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return OutcomeAbort

	case <-timer.C:
		return OutcomeTimeout

	case response, ok := <-responseChannel:
		if !ok {
			return OutcomeAbort
		}
		if response.Action == types.HumanActionDone {
			return OutcomeDone
		}
		return OutcomeAbort
	}
}

// HandleResponse delivers an external response to the waiting request.
// Responses whose request id has no pending wait are ignored.
func (c *Coordinator) HandleResponse(response *types.HumanInputResponse) {
	if response == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	pr, ok := c.pending[response.RequestID]
	if !ok {
		return
	}

	// Non-blocking send: the waiter may have already timed out and
	// started cleanup.
	select {
	case pr.response <- response:
	default:
	}
}

// PendingCount returns how many requests are currently waiting.
func (c *Coordinator) PendingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

func (c *Coordinator) register(requestID string, responseChannel chan *types.HumanInputResponse) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending[requestID] = &pendingRequest{requestID: requestID, response: responseChannel}
}

func (c *Coordinator) unregister(requestID string) {
	c.mu.Lock()
	pr, ok := c.pending[requestID]
	if ok {
		delete(c.pending, requestID)
	}
	c.mu.Unlock()

	if ok && pr != nil {
		pr.closeOnce.Do(func() {
			close(pr.response)
		})
	}
}
