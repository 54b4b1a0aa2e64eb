package browser

import (
	"context"
	"time"

	"github.com/entrhq/autopilot/pkg/types"
)

// Actuator applies plan steps to one browser session and captures
// evidence of the observed page state. Any Playwright failure surfaces
// as a types.ActuationError, which the executor treats exactly like a
// verification fail.
type Actuator struct {
	session *Session
	timeout time.Duration
}

// NewActuator binds an actuator to a session. timeout bounds each
// browser action; zero means the session default.
func NewActuator(session *Session, timeout time.Duration) *Actuator {
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	return &Actuator{session: session, timeout: timeout}
}

// Session returns the bound session.
func (a *Actuator) Session() *Session {
	return a.session
}

// Act applies one step and returns evidence of the resulting page
// state. The context is checked before dispatch only: an action already
// sent to the browser is never interrupted half-applied.
func (a *Actuator) Act(ctx context.Context, step types.Step) (*types.Evidence, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var content string
	var actErr error

	switch step.Intent {
	case types.IntentNavigate:
		url := step.Param("url", step.Target)
		actErr = a.session.Navigate(url, step.Param("wait_until", ""), a.timeout)

	case types.IntentClick:
		actErr = a.session.Click(step.Param("selector", step.Target), a.timeout)

	case types.IntentType:
		actErr = a.session.Type(step.Param("selector", step.Target), step.Param("value", ""), a.timeout)

	case types.IntentScroll:
		actErr = a.session.Scroll(step.Param("direction", "down"), intParam(step.Param("pixels", ""), 0))

	case types.IntentWait:
		actErr = a.session.WaitFor(step.Param("selector", ""), intParam(step.Param("seconds", ""), 0), a.timeout)

	case types.IntentExtract:
		content, actErr = a.session.Extract(ExtractOptions{
			Selector:  step.Param("selector", ""),
			MaxLength: intParam(step.Param("max_length", ""), 0),
		})

	default:
		actErr = &types.ActuationError{StepID: step.ID, Reason: "unknown intent " + string(step.Intent)}
	}

	if actErr != nil {
		if _, ok := actErr.(*types.ActuationError); !ok {
			actErr = &types.ActuationError{StepID: step.ID, Reason: "browser action failed", Err: actErr}
		}
		return nil, actErr
	}

	return a.capture(step, content), nil
}

// IsVisible probes element visibility for verification predicates.
func (a *Actuator) IsVisible(ctx context.Context, selector string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return a.session.IsVisible(selector)
}

// capture snapshots the page state after a successful action. For
// non-extract steps the page text is captured too, so text predicates
// have something to evaluate against. Screenshot failures are tolerated:
// evidence without a screenshot is still evidence.
func (a *Actuator) capture(step types.Step, content string) *types.Evidence {
	if content == "" {
		if extracted, err := a.session.Extract(ExtractOptions{MaxLength: DefaultMaxLength}); err == nil {
			content = extracted
		}
	}

	shot, _ := a.session.Screenshot()

	return &types.Evidence{
		StepID:     step.ID,
		URL:        a.session.CurrentURL,
		Title:      a.session.Title(),
		Content:    content,
		Screenshot: shot,
		CapturedAt: time.Now(),
	}
}
