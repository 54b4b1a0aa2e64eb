package types

// Intent enumerates the atomic browser actions a step can perform.
type Intent string

const (
	// IntentNavigate loads a URL in the session's page.
	IntentNavigate Intent = "navigate"

	// IntentClick clicks an element on the current page.
	IntentClick Intent = "click"

	// IntentType fills text into an input element.
	IntentType Intent = "type"

	// IntentScroll scrolls the current page.
	IntentScroll Intent = "scroll"

	// IntentWait waits for an element state or a fixed duration.
	IntentWait Intent = "wait"

	// IntentExtract extracts readable content from the current page.
	IntentExtract Intent = "extract"
)

// ValidIntent reports whether s names a known action intent.
func ValidIntent(s string) bool {
	switch Intent(s) {
	case IntentNavigate, IntentClick, IntentType, IntentScroll, IntentWait, IntentExtract:
		return true
	}
	return false
}

// Step is the atomic unit of work in a plan: one intended browser action
// plus the predicate that confirms its effect. Steps are immutable once
// the plan that owns them is constructed.
type Step struct {
	// ID uniquely identifies the step within its plan.
	ID string `json:"id"`

	// Intent is the kind of browser action to perform.
	Intent Intent `json:"intent"`

	// Target describes what the action operates on. Free text from the
	// planner; for click/type/wait steps it usually carries a selector
	// via Parameters instead.
	Target string `json:"target"`

	// Parameters carries intent-specific arguments (url, selector,
	// value, direction, seconds, max_length).
	Parameters map[string]string `json:"parameters,omitempty"`

	// Verify is the verification predicate evaluated after actuation.
	// See executor.PredicateVerifier for the recognized forms.
	Verify string `json:"verify,omitempty"`
}

// Param returns the named parameter, or the fallback when unset.
func (s Step) Param(key, fallback string) string {
	if v, ok := s.Parameters[key]; ok && v != "" {
		return v
	}
	return fallback
}
