// Package browser provides the playwright-backed browser session and
// the tools the engine uses to drive it.
package browser

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/entrhq/pilot/pkg/security/navigation"
)

const (
	defaultViewportWidth  = 1280
	defaultViewportHeight = 800
	defaultActionTimeout  = 30 * time.Second
)

// SessionOptions configures the browser session.
type SessionOptions struct {
	Headless bool
	Timeout  time.Duration
}

// SessionManager owns the playwright lifecycle and the single browser
// session used by an execution. It also serves as the engine's state
// observer: Snapshot renders the current page for the browser-state
// ephemeral.
type SessionManager struct {
	mu          sync.Mutex
	playwright  *playwright.Playwright
	session     *Session
	allowlist   *navigation.Allowlist
	defaults    SessionOptions
	initialized bool
}

// NewSessionManager creates a session manager enforcing the given
// navigation allowlist. Sessions started lazily by tools use the
// default options.
func NewSessionManager(allowlist *navigation.Allowlist, defaults SessionOptions) *SessionManager {
	return &SessionManager{allowlist: allowlist, defaults: defaults}
}

// ensure initializes playwright and starts the session on first use so
// tools never have to care about lifecycle order.
func (m *SessionManager) ensure() (*Session, error) {
	if err := m.Initialize(); err != nil {
		return nil, err
	}
	return m.StartSession(m.defaults)
}

// Initialize installs and starts playwright. Must be called before
// StartSession.
func (m *SessionManager) Initialize() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.initialized {
		return nil
	}

	// Discard driver output so it does not interfere with the terminal UI.
	opts := &playwright.RunOptions{
		Verbose: false,
		Stdout:  io.Discard,
		Stderr:  io.Discard,
	}

	if err := playwright.Install(opts); err != nil {
		return fmt.Errorf("failed to install playwright: %w", err)
	}

	pw, err := playwright.Run(opts)
	if err != nil {
		return fmt.Errorf("failed to start playwright: %w", err)
	}

	m.playwright = pw
	m.initialized = true
	return nil
}

// StartSession launches the browser and opens a fresh page. An existing
// session is reused.
func (m *SessionManager) StartSession(opts SessionOptions) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.initialized {
		return nil, fmt.Errorf("session manager not initialized")
	}
	if m.session != nil {
		return m.session, nil
	}

	if opts.Timeout <= 0 {
		opts.Timeout = defaultActionTimeout
	}

	browserInstance, err := m.playwright.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: &opts.Headless,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	browserCtx, err := browserInstance.NewContext(playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{Width: defaultViewportWidth, Height: defaultViewportHeight},
	})
	if err != nil {
		browserInstance.Close()
		return nil, fmt.Errorf("failed to create browser context: %w", err)
	}

	page, err := browserCtx.NewPage()
	if err != nil {
		browserCtx.Close()
		browserInstance.Close()
		return nil, fmt.Errorf("failed to open page: %w", err)
	}
	page.SetDefaultTimeout(float64(opts.Timeout.Milliseconds()))

	now := time.Now()
	m.session = &Session{
		browser:    browserInstance,
		context:    browserCtx,
		page:       page,
		allowlist:  m.allowlist,
		headless:   opts.Headless,
		createdAt:  now,
		lastUsedAt: now,
		currentURL: "about:blank",
	}
	return m.session, nil
}

// Session returns the active session, or an error when none is open.
func (m *SessionManager) Session() (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return nil, fmt.Errorf("no active browser session")
	}
	return m.session, nil
}

// Snapshot renders the current page state for the engine's ephemeral
// browser-state entry.
func (m *SessionManager) Snapshot(ctx context.Context) (string, error) {
	session, err := m.Session()
	if err != nil {
		return "", err
	}
	return session.StateSnapshot(ctx)
}

// Shutdown closes the session and stops playwright.
func (m *SessionManager) Shutdown() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session != nil {
		m.session.close()
		m.session = nil
	}

	if m.initialized && m.playwright != nil {
		if err := m.playwright.Stop(); err != nil {
			return fmt.Errorf("failed to stop playwright: %w", err)
		}
		m.initialized = false
	}
	return nil
}
