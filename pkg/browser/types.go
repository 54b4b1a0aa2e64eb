package browser

import (
	"time"

	"github.com/playwright-community/playwright-go"
)

// Session is one isolated browser execution context. A session is owned
// by exactly one executor run at a time and returned to the manager's
// pool when the run finishes.
type Session struct {
	// ID uniquely identifies the session.
	ID string

	// Browser is the Playwright browser instance.
	Browser playwright.Browser

	// Context is the browser context providing isolation.
	Context playwright.BrowserContext

	// Page is the active page.
	Page playwright.Page

	// Headless indicates whether the browser runs without a window.
	Headless bool

	// CreatedAt is when the session was launched.
	CreatedAt time.Time

	// CurrentURL tracks the page URL after the last operation.
	CurrentURL string
}

// Options configures the sessions a manager launches.
type Options struct {
	// Headless controls whether browsers run without a visible window.
	Headless bool

	// Timeout is the default per-action timeout.
	Timeout time.Duration

	// Viewport sets the page dimensions.
	Viewport Viewport
}

// Viewport holds browser viewport dimensions.
type Viewport struct {
	Width  int
	Height int
}

// ExtractOptions configures content extraction from a page.
type ExtractOptions struct {
	// Selector optionally limits extraction to a matching element.
	Selector string

	// MaxLength bounds the extracted text length in characters.
	MaxLength int
}

// Default values for session operations.
const (
	DefaultTimeout        = 30 * time.Second
	DefaultMaxLength      = 10000
	DefaultViewportWidth  = 1280
	DefaultViewportHeight = 720
	DefaultScrollPixels   = 600
)
