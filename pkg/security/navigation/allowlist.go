// Package navigation enforces which URLs the browser tools may visit.
package navigation

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/gobwas/glob"
)

// Violation is returned when a URL is blocked by the allowlist rules.
type Violation struct {
	URL     string
	Pattern string
}

func (e *Violation) Error() string {
	if e.Pattern != "" {
		return fmt.Sprintf("navigation to %q blocked by denied pattern %q", e.URL, e.Pattern)
	}
	return fmt.Sprintf("navigation to %q is not covered by the allowed domain patterns", e.URL)
}

// Allowlist matches request hosts against compiled glob patterns.
// Denied patterns take precedence; with no allowed patterns configured
// every host is permitted unless denied.
type Allowlist struct {
	allowed []compiledPattern
	denied  []compiledPattern
}

type compiledPattern struct {
	source string
	glob   glob.Glob
}

// New compiles an allowlist from domain glob patterns, for example
// "*.example.com" or "docs.example.org".
func New(allowed, denied []string) (*Allowlist, error) {
	al := &Allowlist{}

	for _, pattern := range allowed {
		g, err := glob.Compile(strings.ToLower(pattern), '.')
		if err != nil {
			return nil, fmt.Errorf("invalid allowed pattern %q: %w", pattern, err)
		}
		al.allowed = append(al.allowed, compiledPattern{source: pattern, glob: g})
	}

	for _, pattern := range denied {
		g, err := glob.Compile(strings.ToLower(pattern), '.')
		if err != nil {
			return nil, fmt.Errorf("invalid denied pattern %q: %w", pattern, err)
		}
		al.denied = append(al.denied, compiledPattern{source: pattern, glob: g})
	}

	return al, nil
}

// Check validates a full URL against the rules. Only http and https
// schemes are navigable; about:blank is always permitted.
func (al *Allowlist) Check(rawURL string) error {
	if rawURL == "about:blank" {
		return nil
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL %q: %w", rawURL, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("unsupported URL scheme %q", parsed.Scheme)
	}

	host := strings.ToLower(parsed.Hostname())
	if host == "" {
		return fmt.Errorf("URL %q has no host", rawURL)
	}

	for _, pattern := range al.denied {
		if pattern.glob.Match(host) {
			return &Violation{URL: rawURL, Pattern: pattern.source}
		}
	}

	if len(al.allowed) == 0 {
		return nil
	}

	for _, pattern := range al.allowed {
		if pattern.glob.Match(host) {
			return nil
		}
	}
	return &Violation{URL: rawURL}
}

// Patterns returns the configured allowed pattern sources, for display
// in the system prompt.
func (al *Allowlist) Patterns() []string {
	out := make([]string, 0, len(al.allowed))
	for _, pattern := range al.allowed {
		out = append(out, pattern.source)
	}
	return out
}
