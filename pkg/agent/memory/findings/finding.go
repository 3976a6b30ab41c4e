// Package findings holds the facts an execution gathers from pages,
// so the model can write things down instead of re-reading content.
package findings

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"
)

// idCounter keeps ids unique when several findings are recorded within
// the same nanosecond.
var idCounter atomic.Int64

const (
	// MaxContentLength caps finding content.
	MaxContentLength = 800

	// MaxTags caps the tags per finding.
	MaxTags = 5

	idPrefix = "finding_"
)

// Finding is one recorded fact, optionally tied to the page it was
// found on.
type Finding struct {
	ID        string
	Content   string
	Source    string // the URL the fact was observed on, if any
	Tags      []string
	CreatedAt time.Time
}

// New validates and creates a finding.
func New(content, source string, tags []string) (*Finding, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("finding content cannot be empty")
	}
	if len(content) > MaxContentLength {
		return nil, fmt.Errorf("finding content exceeds %d characters (got %d); record a shorter fact", MaxContentLength, len(content))
	}
	if len(tags) > MaxTags {
		return nil, fmt.Errorf("at most %d tags are allowed (got %d)", MaxTags, len(tags))
	}
	for i, tag := range tags {
		if strings.TrimSpace(tag) == "" {
			return nil, fmt.Errorf("tag at position %d is empty", i)
		}
	}

	return &Finding{
		ID:        generateID(),
		Content:   content,
		Source:    strings.TrimSpace(source),
		Tags:      normalizeTags(tags),
		CreatedAt: time.Now(),
	}, nil
}

func generateID() string {
	seq := idCounter.Add(1)
	return fmt.Sprintf("%s%d_%d", idPrefix, time.Now().UnixNano(), seq)
}

func normalizeTags(tags []string) []string {
	normalized := make([]string, len(tags))
	for i, tag := range tags {
		normalized[i] = strings.ToLower(strings.TrimSpace(tag))
	}
	return normalized
}

// HasTag reports whether the finding carries the tag, case-insensitive.
func (f *Finding) HasTag(tag string) bool {
	normalized := strings.ToLower(strings.TrimSpace(tag))
	for _, t := range f.Tags {
		if t == normalized {
			return true
		}
	}
	return false
}

// MatchesAllTags reports whether the finding carries every given tag.
func (f *Finding) MatchesAllTags(tags []string) bool {
	for _, tag := range tags {
		if !f.HasTag(tag) {
			return false
		}
	}
	return true
}

// ContainsText reports whether the content or source contains the
// query, case-insensitive. An empty query matches everything.
func (f *Finding) ContainsText(query string) bool {
	if query == "" {
		return true
	}
	query = strings.ToLower(query)
	return strings.Contains(strings.ToLower(f.Content), query) ||
		strings.Contains(strings.ToLower(f.Source), query)
}
