// Package todo tracks the step list driving multi-step task execution.
// Items move forward only: pending to doing, doing to a settled state.
package todo

import (
	"fmt"
	"strings"
	"sync"
)

// Status is the lifecycle state of a single item.
type Status string

const (
	StatusPending Status = "pending"
	StatusDoing   Status = "doing"
	StatusDone    Status = "done"
	StatusSkipped Status = "skipped"
	StatusFailed  Status = "failed"
)

// Settled reports whether the status is terminal.
func (s Status) Settled() bool {
	return s == StatusDone || s == StatusSkipped || s == StatusFailed
}

// Item is one step of the current plan.
type Item struct {
	ID      int    `json:"id"`
	Content string `json:"content"`
	Status  Status `json:"status"`
}

// Store holds the plan's items. IDs are assigned monotonically and are
// never reused, including across ReplaceAll.
type Store struct {
	mu     sync.RWMutex
	items  []*Item
	nextID int
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{nextID: 1}
}

// Append adds new pending items for the given step contents and returns
// their assigned IDs. Empty contents are ignored.
func (s *Store) Append(contents ...string) []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]int, 0, len(contents))
	for _, content := range contents {
		content = strings.TrimSpace(content)
		if content == "" {
			continue
		}
		item := &Item{ID: s.nextID, Content: content, Status: StatusPending}
		s.nextID++
		s.items = append(s.items, item)
		ids = append(ids, item.ID)
	}
	return ids
}

// ReplaceAll discards the current items and installs a fresh pending
// list. ID assignment continues from where it left off.
func (s *Store) ReplaceAll(contents []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = nil
	for _, content := range contents {
		content = strings.TrimSpace(content)
		if content == "" {
			continue
		}
		s.items = append(s.items, &Item{ID: s.nextID, Content: content, Status: StatusPending})
		s.nextID++
	}
}

// NextPending marks the first pending item as doing and returns a copy
// of it. It returns false when no pending items remain.
func (s *Store) NextPending() (Item, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, item := range s.items {
		if item.Status == StatusPending {
			item.Status = StatusDoing
			return *item, true
		}
	}
	return Item{}, false
}

// Current returns the item currently in doing state, if any.
func (s *Store) Current() (Item, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, item := range s.items {
		if item.Status == StatusDoing {
			return *item, true
		}
	}
	return Item{}, false
}

// MarkDone settles the item with the given ID as done.
func (s *Store) MarkDone(id int) error { return s.settle(id, StatusDone) }

// MarkSkipped settles the item with the given ID as skipped.
func (s *Store) MarkSkipped(id int) error { return s.settle(id, StatusSkipped) }

// MarkFailed settles the item with the given ID as failed.
func (s *Store) MarkFailed(id int) error { return s.settle(id, StatusFailed) }

func (s *Store) settle(id int, status Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, item := range s.items {
		if item.ID != id {
			continue
		}
		if item.Status.Settled() {
			return fmt.Errorf("todo %d already settled as %s", id, item.Status)
		}
		item.Status = status
		return nil
	}
	return fmt.Errorf("todo %d not found", id)
}

// AllSettled reports whether every item has reached a terminal state.
// An empty store counts as settled.
func (s *Store) AllSettled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, item := range s.items {
		if !item.Status.Settled() {
			return false
		}
	}
	return true
}

// Items returns a snapshot copy of all items in order.
func (s *Store) Items() []Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Item, len(s.items))
	for i, item := range s.items {
		out[i] = *item
	}
	return out
}

// Len returns the number of items.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Markdown renders the items as a checklist for the model's context.
func (s *Store) Markdown() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.items) == 0 {
		return "No todos."
	}
	var b strings.Builder
	for _, item := range s.items {
		var marker string
		switch item.Status {
		case StatusDone:
			marker = "[x]"
		case StatusDoing:
			marker = "[~]"
		case StatusSkipped:
			marker = "[-]"
		case StatusFailed:
			marker = "[!]"
		default:
			marker = "[ ]"
		}
		fmt.Fprintf(&b, "- %s %d. %s\n", marker, item.ID, item.Content)
	}
	return strings.TrimRight(b.String(), "\n")
}
