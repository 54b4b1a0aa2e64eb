package executor

import (
	"context"
	"strings"

	"github.com/gobwas/glob"

	"github.com/entrhq/autopilot/pkg/types"
)

// Verifier checks whether an executed step achieved its intended
// effect. A nil return is a pass; a *types.VerificationError is a fail.
// A predicate that cannot be evaluated fails: absence of evidence is
// never treated as success.
type Verifier interface {
	Verify(ctx context.Context, step types.Step, ev *types.Evidence) error
}

// VisibilityProber checks whether an element is currently visible. The
// browser layer supplies one bound to the run's session.
type VisibilityProber func(ctx context.Context, selector string) (bool, error)

// PredicateVerifier evaluates the structured predicate forms the
// planner emits:
//
//	url:<glob>         current URL matches the glob
//	title:<glob>       page title matches the glob
//	text:<substring>   page content contains the substring
//	visible:<selector> element matching selector is visible
//
// Free text without a recognized prefix is treated as a text predicate.
// An empty predicate passes on actuation success alone, since there is
// nothing further to confirm.
type PredicateVerifier struct {
	// Prober resolves visible: predicates. When nil those predicates
	// cannot be evaluated and fail.
	Prober VisibilityProber
}

// NewPredicateVerifier creates a verifier with the given prober.
func NewPredicateVerifier(prober VisibilityProber) *PredicateVerifier {
	return &PredicateVerifier{Prober: prober}
}

// Verify evaluates the step's predicate against the captured evidence.
func (v *PredicateVerifier) Verify(ctx context.Context, step types.Step, ev *types.Evidence) error {
	predicate := strings.TrimSpace(step.Verify)
	if predicate == "" {
		return nil
	}

	if ev == nil {
		return fail(step, "no evidence captured")
	}

	kind, arg := splitPredicate(predicate)
	switch kind {
	case "url":
		return v.matchGlob(step, arg, ev.URL, "URL")
	case "title":
		return v.matchGlob(step, arg, ev.Title, "title")
	case "text":
		return v.matchText(step, arg, ev.Content)
	case "visible":
		return v.matchVisible(ctx, step, arg)
	default:
		// Free-text predicate: check it against the page content.
		return v.matchText(step, predicate, ev.Content)
	}
}

func splitPredicate(predicate string) (kind, arg string) {
	idx := strings.Index(predicate, ":")
	if idx < 0 {
		return "", predicate
	}
	kind = strings.ToLower(strings.TrimSpace(predicate[:idx]))
	arg = strings.TrimSpace(predicate[idx+1:])
	switch kind {
	case "url", "title", "text", "visible":
		return kind, arg
	}
	return "", predicate
}

func (v *PredicateVerifier) matchGlob(step types.Step, pattern, value, what string) error {
	if pattern == "" {
		return fail(step, "empty "+what+" pattern")
	}
	g, err := glob.Compile(pattern)
	if err != nil {
		return fail(step, "unevaluable "+what+" pattern: "+err.Error())
	}
	if value == "" {
		return fail(step, "no "+what+" captured")
	}
	if !g.Match(value) {
		return fail(step, what+" "+value+" does not match "+pattern)
	}
	return nil
}

func (v *PredicateVerifier) matchText(step types.Step, want, content string) error {
	if want == "" {
		return fail(step, "empty text predicate")
	}
	if content == "" {
		return fail(step, "no page content captured")
	}
	if !strings.Contains(strings.ToLower(content), strings.ToLower(want)) {
		return fail(step, "page content does not contain "+want)
	}
	return nil
}

func (v *PredicateVerifier) matchVisible(ctx context.Context, step types.Step, selector string) error {
	if selector == "" {
		return fail(step, "empty visibility selector")
	}
	if v.Prober == nil {
		return fail(step, "no visibility prober available")
	}
	visible, err := v.Prober(ctx, selector)
	if err != nil {
		// Target vanished or probe failed: unevaluable counts as fail.
		return fail(step, "visibility probe failed: "+err.Error())
	}
	if !visible {
		return fail(step, "element "+selector+" is not visible")
	}
	return nil
}

func fail(step types.Step, reason string) *types.VerificationError {
	return &types.VerificationError{
		StepID:    step.ID,
		Predicate: step.Verify,
		Reason:    reason,
	}
}
