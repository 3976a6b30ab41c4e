package findings

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Manager is the in-memory finding store shared by the scratchpad
// tools for the lifetime of an execution.
type Manager struct {
	mu       sync.RWMutex
	findings map[string]*Finding
	order    []string
}

// NewManager creates an empty manager.
func NewManager() *Manager {
	return &Manager{findings: make(map[string]*Finding)}
}

// Record validates and stores a new finding.
func (m *Manager) Record(content, source string, tags []string) (*Finding, error) {
	finding, err := New(content, source, tags)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.findings[finding.ID] = finding
	m.order = append(m.order, finding.ID)
	return finding, nil
}

// All returns findings in recording order.
func (m *Manager) All() []*Finding {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*Finding, 0, len(m.order))
	for _, id := range m.order {
		result = append(result, m.findings[id])
	}
	return result
}

// FilterByTags returns findings carrying every given tag, in
// recording order.
func (m *Manager) FilterByTags(tags []string) []*Finding {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []*Finding
	for _, id := range m.order {
		if m.findings[id].MatchesAllTags(tags) {
			result = append(result, m.findings[id])
		}
	}
	return result
}

// Search returns findings whose content or source contains the query,
// optionally restricted to the given tags.
func (m *Manager) Search(query string, tags []string) []*Finding {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []*Finding
	for _, id := range m.order {
		finding := m.findings[id]
		if finding.ContainsText(query) && finding.MatchesAllTags(tags) {
			result = append(result, finding)
		}
	}
	return result
}

// Tags returns every distinct tag in use, sorted.
func (m *Manager) Tags() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	seen := make(map[string]bool)
	for _, finding := range m.findings {
		for _, tag := range finding.Tags {
			seen[tag] = true
		}
	}

	tags := make([]string, 0, len(seen))
	for tag := range seen {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

// Count returns the number of stored findings.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.findings)
}

// Clear removes every finding.
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.findings = make(map[string]*Finding)
	m.order = nil
}

// Render formats findings as a compact list for tool output.
func Render(findings []*Finding) string {
	if len(findings) == 0 {
		return "No findings recorded."
	}

	var b strings.Builder
	for i, finding := range findings {
		fmt.Fprintf(&b, "%d. %s", i+1, finding.Content)
		if finding.Source != "" {
			fmt.Fprintf(&b, " (source: %s)", finding.Source)
		}
		if len(finding.Tags) > 0 {
			fmt.Fprintf(&b, " [%s]", strings.Join(finding.Tags, ", "))
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
