package browser

import (
	"fmt"
	"strconv"
	"time"

	"github.com/playwright-community/playwright-go"
)

// Navigate loads url in the session's page and waits for the given load
// state ("load", "domcontentloaded", or "networkidle"; empty means
// "load").
func (s *Session) Navigate(url, waitUntil string, timeout time.Duration) error {
	opts := playwright.PageGotoOptions{}
	if waitUntil == "" {
		waitUntil = "load"
	}
	state := playwright.WaitUntilState(waitUntil)
	opts.WaitUntil = &state
	if timeout > 0 {
		opts.Timeout = playwright.Float(float64(timeout.Milliseconds()))
	}

	if _, err := s.Page.Goto(url, opts); err != nil {
		return fmt.Errorf("navigation to %s failed: %w", url, err)
	}
	s.CurrentURL = s.Page.URL()
	return nil
}

// Click clicks the element matching selector.
func (s *Session) Click(selector string, timeout time.Duration) error {
	opts := playwright.PageClickOptions{}
	if timeout > 0 {
		opts.Timeout = playwright.Float(float64(timeout.Milliseconds()))
	}

	if err := s.Page.Click(selector, opts); err != nil {
		return fmt.Errorf("click on %q failed: %w", selector, err)
	}
	// A click may navigate.
	s.CurrentURL = s.Page.URL()
	return nil
}

// Type fills the input matching selector with value.
func (s *Session) Type(selector, value string, timeout time.Duration) error {
	opts := playwright.PageFillOptions{}
	if timeout > 0 {
		opts.Timeout = playwright.Float(float64(timeout.Milliseconds()))
	}

	if err := s.Page.Fill(selector, value, opts); err != nil {
		return fmt.Errorf("fill of %q failed: %w", selector, err)
	}
	return nil
}

// Scroll scrolls the page by pixels in the given direction ("down" or
// "up"; empty means down).
func (s *Session) Scroll(direction string, pixels int) error {
	if pixels <= 0 {
		pixels = DefaultScrollPixels
	}
	if direction == "up" {
		pixels = -pixels
	}

	script := fmt.Sprintf("window.scrollBy(0, %d)", pixels)
	if _, err := s.Page.Evaluate(script); err != nil {
		return fmt.Errorf("scroll failed: %w", err)
	}
	return nil
}

// WaitFor waits for the element matching selector to become visible, or
// when selector is empty, sleeps for the given duration.
func (s *Session) WaitFor(selector string, seconds int, timeout time.Duration) error {
	if selector == "" {
		if seconds <= 0 {
			seconds = 1
		}
		s.Page.WaitForTimeout(float64(seconds * 1000))
		return nil
	}

	opts := playwright.PageWaitForSelectorOptions{
		State: playwright.WaitForSelectorStateVisible,
	}
	if timeout > 0 {
		opts.Timeout = playwright.Float(float64(timeout.Milliseconds()))
	}

	if _, err := s.Page.WaitForSelector(selector, opts); err != nil {
		return fmt.Errorf("wait for %q failed: %w", selector, err)
	}
	return nil
}

// Extract returns readable text content from the page, cleaned of
// scripts, styles, and other noise.
func (s *Session) Extract(opts ExtractOptions) (string, error) {
	if opts.MaxLength <= 0 {
		opts.MaxLength = DefaultMaxLength
	}

	var raw string
	if opts.Selector != "" {
		element, err := s.Page.QuerySelector(opts.Selector)
		if err != nil {
			return "", fmt.Errorf("selector query failed: %w", err)
		}
		if element == nil {
			return "", fmt.Errorf("no element matches selector %q", opts.Selector)
		}
		raw, err = element.InnerHTML()
		if err != nil {
			return "", fmt.Errorf("content extraction failed: %w", err)
		}
	} else {
		var err error
		raw, err = s.Page.Content()
		if err != nil {
			return "", fmt.Errorf("content extraction failed: %w", err)
		}
	}

	cleaned, err := cleanHTML(raw, opts.MaxLength)
	if err != nil {
		return "", err
	}
	return cleaned.Text, nil
}

// IsVisible reports whether an element matching selector is visible.
func (s *Session) IsVisible(selector string) (bool, error) {
	visible, err := s.Page.IsVisible(selector)
	if err != nil {
		return false, fmt.Errorf("visibility check for %q failed: %w", selector, err)
	}
	return visible, nil
}

// Screenshot captures the current viewport as PNG bytes.
func (s *Session) Screenshot() ([]byte, error) {
	data, err := s.Page.Screenshot(playwright.PageScreenshotOptions{})
	if err != nil {
		return nil, fmt.Errorf("screenshot failed: %w", err)
	}
	return data, nil
}

// Title returns the current page title.
func (s *Session) Title() string {
	title, err := s.Page.Title()
	if err != nil {
		return ""
	}
	return title
}

// intParam parses an integer parameter, returning fallback when the
// value is missing or malformed.
func intParam(value string, fallback int) int {
	if value == "" {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return n
}
