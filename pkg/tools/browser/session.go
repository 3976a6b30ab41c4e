package browser

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/entrhq/pilot/pkg/security/navigation"
)

const (
	// snapshotContentLimit bounds the cleaned page content included in
	// a state snapshot.
	snapshotContentLimit = 4000

	// extractContentLimit bounds extract_content output.
	extractContentLimit = 20000
)

// Session is one live browser page. All operations funnel through it
// so the current URL and last-used timestamp stay accurate.
type Session struct {
	browser    playwright.Browser
	context    playwright.BrowserContext
	page       playwright.Page
	allowlist  *navigation.Allowlist
	headless   bool
	createdAt  time.Time
	lastUsedAt time.Time
	currentURL string
}

// CurrentURL returns the last observed page URL.
func (s *Session) CurrentURL() string {
	return s.currentURL
}

// Headless reports whether the session runs without a visible window.
func (s *Session) Headless() bool {
	return s.headless
}

func (s *Session) touch() {
	s.lastUsedAt = time.Now()
}

func (s *Session) syncURL() {
	s.currentURL = s.page.URL()
}

// Navigate loads a URL after checking it against the allowlist.
func (s *Session) Navigate(url, waitUntil string) error {
	s.touch()

	if s.allowlist != nil {
		if err := s.allowlist.Check(url); err != nil {
			return err
		}
	}

	opts := playwright.PageGotoOptions{}
	if waitUntil != "" {
		state := playwright.WaitUntilState(waitUntil)
		opts.WaitUntil = &state
	}

	if _, err := s.page.Goto(url, opts); err != nil {
		return fmt.Errorf("navigation failed: %w", err)
	}
	s.syncURL()
	return nil
}

// Click clicks the element matching the selector.
func (s *Session) Click(selector string) error {
	s.touch()
	if err := s.page.Click(selector); err != nil {
		return fmt.Errorf("click failed: %w", err)
	}
	// A click may have triggered navigation.
	s.syncURL()
	return nil
}

// Type fills the input element matching the selector, optionally
// pressing Enter afterwards.
func (s *Session) Type(selector, text string, pressEnter bool) error {
	s.touch()
	if err := s.page.Fill(selector, text); err != nil {
		return fmt.Errorf("type failed: %w", err)
	}
	if pressEnter {
		if err := s.page.Press(selector, "Enter"); err != nil {
			return fmt.Errorf("pressing Enter failed: %w", err)
		}
		s.syncURL()
	}
	return nil
}

// Scroll scrolls the page by the given amount of pixels; negative
// scrolls up.
func (s *Session) Scroll(pixels int) error {
	s.touch()
	script := fmt.Sprintf("window.scrollBy(0, %d)", pixels)
	if _, err := s.page.Evaluate(script); err != nil {
		return fmt.Errorf("scroll failed: %w", err)
	}
	return nil
}

// WaitFor waits until the element matching the selector reaches the
// given state (visible, attached, hidden, detached).
func (s *Session) WaitFor(selector, state string, timeout time.Duration) error {
	s.touch()

	opts := playwright.PageWaitForSelectorOptions{}
	if state != "" {
		selectorState := playwright.WaitForSelectorState(state)
		opts.State = &selectorState
	}
	if timeout > 0 {
		ms := float64(timeout.Milliseconds())
		opts.Timeout = &ms
	}

	if _, err := s.page.WaitForSelector(selector, opts); err != nil {
		return fmt.Errorf("wait failed: %w", err)
	}
	return nil
}

// Screenshot captures the viewport (or full page) as PNG bytes.
func (s *Session) Screenshot(fullPage bool) ([]byte, error) {
	s.touch()
	data, err := s.page.Screenshot(playwright.PageScreenshotOptions{FullPage: &fullPage})
	if err != nil {
		return nil, fmt.Errorf("screenshot failed: %w", err)
	}
	return data, nil
}

// PDF renders the current page as PDF bytes. Only available headless.
func (s *Session) PDF() ([]byte, error) {
	s.touch()
	if !s.headless {
		return nil, fmt.Errorf("PDF rendering requires a headless session")
	}
	data, err := s.page.PDF(playwright.PagePdfOptions{})
	if err != nil {
		return nil, fmt.Errorf("PDF rendering failed: %w", err)
	}
	return data, nil
}

// ExtractContent returns the page content cleaned for model
// consumption: semantic HTML for the whole page, or the text of one
// selector.
func (s *Session) ExtractContent(selector string, maxLength int) (string, error) {
	s.touch()
	if maxLength <= 0 {
		maxLength = extractContentLimit
	}

	if selector != "" {
		element, err := s.page.QuerySelector(selector)
		if err != nil {
			return "", fmt.Errorf("selector query failed: %w", err)
		}
		if element == nil {
			return "", fmt.Errorf("no element matches selector %q", selector)
		}
		text, err := element.TextContent()
		if err != nil {
			return "", fmt.Errorf("text extraction failed: %w", err)
		}
		return truncate(strings.TrimSpace(text), maxLength), nil
	}

	raw, err := s.page.Content()
	if err != nil {
		return "", fmt.Errorf("reading page HTML failed: %w", err)
	}
	cleaned, err := cleanHTML(raw, maxLength)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	if cleaned.Title != "" {
		fmt.Fprintf(&b, "Title: %s\n", cleaned.Title)
	}
	if cleaned.Description != "" {
		fmt.Fprintf(&b, "Description: %s\n", cleaned.Description)
	}
	b.WriteString(cleaned.HTML)
	if cleaned.Truncated {
		b.WriteString("\n[content truncated]")
	}
	return b.String(), nil
}

// StateSnapshot renders the current page for the engine's browser-state
// ephemeral: URL, title, and a bounded excerpt of the cleaned content.
func (s *Session) StateSnapshot(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.touch()
	s.syncURL()

	title, err := s.page.Title()
	if err != nil {
		title = ""
	}

	content, err := s.ExtractContent("", snapshotContentLimit)
	if err != nil {
		content = fmt.Sprintf("(content unavailable: %v)", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "URL: %s\n", s.currentURL)
	if title != "" {
		fmt.Fprintf(&b, "Title: %s\n", title)
	}
	b.WriteString("\n")
	b.WriteString(content)
	return b.String(), nil
}

func (s *Session) close() {
	_ = s.page.Close()
	_ = s.context.Close()
	_ = s.browser.Close()
}

func truncate(text string, maxLength int) string {
	if len(text) <= maxLength {
		return text
	}
	return text[:maxLength] + fmt.Sprintf("\n[truncated: %d of %d characters shown]", maxLength, len(text))
}
