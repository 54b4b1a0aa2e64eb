package executor

import (
	"context"
	"time"

	"github.com/entrhq/autopilot/pkg/types"
)

// EscalationAction is the gate's verdict once retries are exhausted.
type EscalationAction string

const (
	// EscalateToHuman pauses the run and surfaces the accumulated
	// evidence for an external resume/abort decision.
	EscalateToHuman EscalationAction = "escalate_to_human"

	// AbortTask fails the run without human involvement.
	AbortTask EscalationAction = "abort_task"
)

// EscalationGate decides whether an exhausted failure should be
// surfaced to a human rather than aborted outright.
type EscalationGate interface {
	Assess(step types.Step, outcomes []types.StepOutcome, failure error) EscalationAction
}

// ConfidenceScorer rates, in [0, 1], how confident the system is that
// aborting unattended is the right call for this failure.
type ConfidenceScorer func(step types.Step, outcomes []types.StepOutcome, failure error) float64

// ConfidenceGate escalates when abort confidence falls below its
// threshold. The default scorer always returns 0: unattended aborts
// only happen when a caller supplies a scorer that argues for them.
type ConfidenceGate struct {
	Threshold float64
	Scorer    ConfidenceScorer
}

// NewConfidenceGate creates a gate with the given threshold and scorer.
// A nil scorer always escalates.
func NewConfidenceGate(threshold float64, scorer ConfidenceScorer) *ConfidenceGate {
	return &ConfidenceGate{Threshold: threshold, Scorer: scorer}
}

// Assess implements EscalationGate.
func (g *ConfidenceGate) Assess(step types.Step, outcomes []types.StepOutcome, failure error) EscalationAction {
	score := 0.0
	if g.Scorer != nil {
		score = g.Scorer(step, outcomes, failure)
	}
	if score < g.Threshold {
		return EscalateToHuman
	}
	return AbortTask
}

// ResumeDecision is the external input that unparks an escalated run.
type ResumeDecision string

const (
	// ResumeRetry transitions ESCALATED back to RUNNING and retries
	// the escalated step.
	ResumeRetry ResumeDecision = "retry"

	// ResumeAbort transitions ESCALATED to FAILED, preserving partial
	// outcomes.
	ResumeAbort ResumeDecision = "abort"
)

// EscalationRequest is what an escalating run surfaces to the calling
// layer: the failing step, every outcome recorded so far, the captured
// evidence, and the failure that exhausted retries.
type EscalationRequest struct {
	Step     types.Step
	Outcomes []types.StepOutcome
	Evidence []*types.Evidence
	Failure  error
	Attempts int
}

// EscalationHandler resolves an escalation inline, for callers that can
// answer without parking the run (an interactive CLI, an operator
// queue). Returning ResumeAbort fails the run.
type EscalationHandler func(ctx context.Context, req *EscalationRequest) ResumeDecision

// resolveWithHandler runs the handler under the configured timeout. An
// expired or cancelled wait aborts the task: an unresolved escalation
// must not hold a session forever when the caller asked for a bound.
func resolveWithHandler(ctx context.Context, handler EscalationHandler, timeout time.Duration, req *EscalationRequest) ResumeDecision {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	decisionCh := make(chan ResumeDecision, 1)
	go func() {
		decisionCh <- handler(ctx, req)
	}()

	select {
	case decision := <-decisionCh:
		return decision
	case <-ctx.Done():
		return ResumeAbort
	}
}
