package types

import (
	"errors"
	"fmt"
)

// PlanningErrorKind classifies why planning failed.
type PlanningErrorKind string

const (
	// PlanningEmpty means the reasoning capability returned no steps.
	PlanningEmpty PlanningErrorKind = "empty"

	// PlanningMalformed means the returned step list could not be
	// parsed or failed validation.
	PlanningMalformed PlanningErrorKind = "malformed"

	// PlanningTimeout means the reasoning capability did not answer
	// in time.
	PlanningTimeout PlanningErrorKind = "timeout"
)

// PlanningError is fatal to the run that requested the plan. It is never
// retried at the executor level: a malformed plan is a different failure
// class than a malformed execution.
type PlanningError struct {
	Kind   PlanningErrorKind
	Reason string
}

func (e *PlanningError) Error() string {
	return fmt.Sprintf("planning failed (%s): %s", e.Kind, e.Reason)
}

// ActuationError reports that the browser actuation capability could not
// apply a step (timeout, target not found, page gone). It is transient:
// the executor treats it exactly like a verification fail and feeds it
// to the retry policy.
type ActuationError struct {
	StepID string
	Reason string
	Err    error
}

func (e *ActuationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("actuation failed for step %s: %s: %v", e.StepID, e.Reason, e.Err)
	}
	return fmt.Sprintf("actuation failed for step %s: %s", e.StepID, e.Reason)
}

func (e *ActuationError) Unwrap() error {
	return e.Err
}

// VerificationError reports that a step's effect could not be confirmed.
// A predicate that cannot be evaluated at all is still a verification
// failure: absence of evidence is never treated as success.
type VerificationError struct {
	StepID    string
	Predicate string
	Reason    string
}

func (e *VerificationError) Error() string {
	return fmt.Sprintf("verification failed for step %s (%q): %s", e.StepID, e.Predicate, e.Reason)
}

// ErrEscalationPending signals that a run is parked awaiting an external
// resume or abort decision. It is a deliberate pause, not a failure.
var ErrEscalationPending = errors.New("escalation pending: awaiting resume or abort")
