package humaninput

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/pilot/pkg/types"
)

// mockEmitter captures emitted events for testing.
type mockEmitter struct {
	events []*types.AgentEvent
	mu     sync.Mutex
}

func (m *mockEmitter) emit(event *types.AgentEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
}

func (m *mockEmitter) getEvents() []*types.AgentEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*types.AgentEvent{}, m.events...)
}

func TestAwaitResolvesOnMatchingResponse(t *testing.T) {
	emitter := &mockEmitter{}
	c := NewCoordinator(5*time.Second, emitter.emit)

	done := make(chan Outcome, 1)
	go func() {
		done <- c.Await(context.Background(), "req-1", "please log in")
	}()

	// Wait for the request to be registered and published.
	require.Eventually(t, func() bool {
		return c.PendingCount() == 1
	}, time.Second, 5*time.Millisecond)

	c.HandleResponse(&types.HumanInputResponse{RequestID: "req-1", Action: types.HumanActionDone})

	select {
	case outcome := <-done:
		assert.Equal(t, OutcomeDone, outcome)
	case <-time.After(time.Second):
		t.Fatal("await did not resolve")
	}

	events := emitter.getEvents()
	require.Len(t, events, 1)
	assert.Equal(t, types.EventTypeHumanInputRequest, events[0].Type)
	assert.Equal(t, "req-1", events[0].RequestID)
	assert.Equal(t, "please log in", events[0].Prompt)
}

func TestAwaitIgnoresMismatchedIDs(t *testing.T) {
	emitter := &mockEmitter{}
	c := NewCoordinator(5*time.Second, emitter.emit)

	done := make(chan Outcome, 1)
	go func() {
		done <- c.Await(context.Background(), "req-1", "prompt")
	}()

	require.Eventually(t, func() bool {
		return c.PendingCount() == 1
	}, time.Second, 5*time.Millisecond)

	// Wrong id: the wait must continue.
	c.HandleResponse(&types.HumanInputResponse{RequestID: "other", Action: types.HumanActionDone})

	select {
	case outcome := <-done:
		t.Fatalf("await resolved to %s on a mismatched response", outcome)
	case <-time.After(100 * time.Millisecond):
	}

	c.HandleResponse(&types.HumanInputResponse{RequestID: "req-1", Action: types.HumanActionAbort})

	select {
	case outcome := <-done:
		assert.Equal(t, OutcomeAbort, outcome)
	case <-time.After(time.Second):
		t.Fatal("await did not resolve")
	}
}

func TestAwaitTimesOut(t *testing.T) {
	emitter := &mockEmitter{}
	c := NewCoordinator(50*time.Millisecond, emitter.emit)

	outcome := c.Await(context.Background(), "req-1", "prompt")
	assert.Equal(t, OutcomeTimeout, outcome)
	assert.Equal(t, 0, c.PendingCount(), "pending request must be cleaned up")
}

func TestAwaitAbortsOnCancellation(t *testing.T) {
	emitter := &mockEmitter{}
	c := NewCoordinator(time.Minute, emitter.emit)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan Outcome, 1)
	go func() {
		done <- c.Await(ctx, "req-1", "prompt")
	}()

	require.Eventually(t, func() bool {
		return c.PendingCount() == 1
	}, time.Second, 5*time.Millisecond)

	cancel()

	select {
	case outcome := <-done:
		assert.Equal(t, OutcomeAbort, outcome)
	case <-time.After(time.Second):
		t.Fatal("await did not resolve on cancellation")
	}
}

func TestHandleResponseAfterResolutionIsSafe(t *testing.T) {
	emitter := &mockEmitter{}
	c := NewCoordinator(10*time.Millisecond, emitter.emit)

	outcome := c.Await(context.Background(), "req-1", "prompt")
	assert.Equal(t, OutcomeTimeout, outcome)

	// Late and nil responses must not panic.
	c.HandleResponse(&types.HumanInputResponse{RequestID: "req-1", Action: types.HumanActionDone})
	c.HandleResponse(nil)
}

func TestDefaultTimeoutApplied(t *testing.T) {
	c := NewCoordinator(0, func(*types.AgentEvent) {})
	assert.Equal(t, DefaultTimeout, c.timeout)
}
