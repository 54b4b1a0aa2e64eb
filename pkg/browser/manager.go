// Package browser provides the actuation layer: Playwright-backed
// browser sessions, a bounded session pool, and the mapping from plan
// steps onto concrete page operations.
package browser

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/playwright-community/playwright-go"
)

// SessionManager owns the Playwright lifecycle and a bounded pool of
// browser sessions. Acquire blocks while the pool is exhausted instead
// of over-provisioning sessions, which bounds resource usage on the
// actuation host; Release must be paired with every Acquire on every
// exit path.
type SessionManager struct {
	mu          sync.Mutex
	playwright  *playwright.Playwright
	sessions    map[string]*Session
	slots       chan struct{}
	opts        Options
	maxSessions int
	initialized bool
}

// NewSessionManager creates a manager bounded to maxSessions concurrent
// sessions.
func NewSessionManager(maxSessions int, opts Options) *SessionManager {
	if maxSessions < 1 {
		maxSessions = 1
	}
	if opts.Timeout == 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Viewport.Width == 0 || opts.Viewport.Height == 0 {
		opts.Viewport = Viewport{Width: DefaultViewportWidth, Height: DefaultViewportHeight}
	}

	return &SessionManager{
		sessions:    make(map[string]*Session),
		slots:       make(chan struct{}, maxSessions),
		opts:        opts,
		maxSessions: maxSessions,
	}
}

// Initialize installs and starts Playwright. Must be called before
// acquiring sessions.
func (m *SessionManager) Initialize() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.initialized {
		return nil
	}

	runOpts := &playwright.RunOptions{
		Verbose: false,
		Stdout:  io.Discard,
		Stderr:  io.Discard,
	}

	if err := playwright.Install(runOpts); err != nil {
		return fmt.Errorf("failed to install playwright: %w", err)
	}

	pw, err := playwright.Run(runOpts)
	if err != nil {
		return fmt.Errorf("failed to start playwright: %w", err)
	}

	m.playwright = pw
	m.initialized = true
	return nil
}

// Acquire blocks until a pool slot is free, then launches a fresh
// isolated session. The caller owns the session until Release.
func (m *SessionManager) Acquire(ctx context.Context) (*Session, error) {
	m.mu.Lock()
	initialized := m.initialized
	m.mu.Unlock()
	if !initialized {
		return nil, fmt.Errorf("session manager not initialized")
	}

	select {
	case m.slots <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	session, err := m.launch()
	if err != nil {
		<-m.slots
		return nil, err
	}
	return session, nil
}

// launch starts a browser, context, and page for a new session.
func (m *SessionManager) launch() (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	browser, err := m.playwright.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(m.opts.Headless),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	browserCtx, err := browser.NewContext(playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{
			Width:  m.opts.Viewport.Width,
			Height: m.opts.Viewport.Height,
		},
	})
	if err != nil {
		browser.Close()
		return nil, fmt.Errorf("failed to create browser context: %w", err)
	}

	page, err := browserCtx.NewPage()
	if err != nil {
		browserCtx.Close()
		browser.Close()
		return nil, fmt.Errorf("failed to create page: %w", err)
	}

	page.SetDefaultTimeout(float64(m.opts.Timeout.Milliseconds()))

	session := &Session{
		ID:         uuid.New().String(),
		Browser:    browser,
		Context:    browserCtx,
		Page:       page,
		Headless:   m.opts.Headless,
		CreatedAt:  time.Now(),
		CurrentURL: "about:blank",
	}

	m.sessions[session.ID] = session
	return session, nil
}

// Release closes the session's resources and frees its pool slot.
// Releasing an unknown or already-released session is a no-op, so
// deferred releases are always safe.
func (m *SessionManager) Release(session *Session) {
	if session == nil {
		return
	}

	m.mu.Lock()
	_, owned := m.sessions[session.ID]
	if owned {
		delete(m.sessions, session.ID)
	}
	m.mu.Unlock()

	if !owned {
		return
	}

	_ = session.Page.Close()
	_ = session.Context.Close()
	_ = session.Browser.Close()
	<-m.slots
}

// ActiveSessions returns the number of live sessions.
func (m *SessionManager) ActiveSessions() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// MaxSessions returns the pool bound.
func (m *SessionManager) MaxSessions() int {
	return m.maxSessions
}

// Shutdown closes every live session and stops Playwright.
func (m *SessionManager) Shutdown() error {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.Unlock()

	for _, s := range sessions {
		m.Release(s)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.initialized && m.playwright != nil {
		if err := m.playwright.Stop(); err != nil {
			return fmt.Errorf("failed to stop playwright: %w", err)
		}
		m.initialized = false
	}
	return nil
}
