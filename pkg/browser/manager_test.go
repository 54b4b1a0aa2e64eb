package browser

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewSessionManager_Defaults(t *testing.T) {
	m := NewSessionManager(0, Options{})

	assert.Equal(t, 1, m.MaxSessions(), "pool bound clamps to at least one")
	assert.Equal(t, DefaultTimeout, m.opts.Timeout)
	assert.Equal(t, DefaultViewportWidth, m.opts.Viewport.Width)
	assert.Equal(t, DefaultViewportHeight, m.opts.Viewport.Height)
	assert.Zero(t, m.ActiveSessions())
}

func TestNewSessionManager_KeepsExplicitOptions(t *testing.T) {
	m := NewSessionManager(4, Options{
		Headless: true,
		Timeout:  10 * time.Second,
		Viewport: Viewport{Width: 1920, Height: 1080},
	})

	assert.Equal(t, 4, m.MaxSessions())
	assert.Equal(t, 10*time.Second, m.opts.Timeout)
	assert.Equal(t, 1920, m.opts.Viewport.Width)
}

func TestAcquire_RequiresInitialize(t *testing.T) {
	m := NewSessionManager(2, Options{Headless: true})

	_, err := m.Acquire(context.Background())
	assert.Error(t, err)
}

func TestRelease_UnknownSessionIsNoOp(t *testing.T) {
	m := NewSessionManager(2, Options{Headless: true})

	assert.NotPanics(t, func() {
		m.Release(nil)
		m.Release(&Session{ID: "never-acquired"})
	})
	assert.Zero(t, m.ActiveSessions())
}
