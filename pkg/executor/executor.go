// Package executor drives one plan to completion: per step it invokes
// the actuation capability, verifies the effect, retries with narrow
// replanning, and escalates to a human when automated recovery is
// exhausted. One executor instance runs exactly one plan.
package executor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/entrhq/autopilot/pkg/audit"
	"github.com/entrhq/autopilot/pkg/logging"
	"github.com/entrhq/autopilot/pkg/types"
)

// State is the executor's run state.
type State string

const (
	StatePending   State = "pending"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
	StateEscalated State = "escalated"
)

// Actuator is the boundary to the browser actuation capability.
type Actuator interface {
	Act(ctx context.Context, step types.Step) (*types.Evidence, error)
}

// StepReplanner supplies alternative steps during retries. The planner
// adapter satisfies it.
type StepReplanner interface {
	ReplanStep(ctx context.Context, failed types.Step, failureDetail string) (*types.Step, error)
}

// Executor is the per-plan state machine. Steps execute strictly
// sequentially: each step's precondition is the verified postcondition
// of the prior step.
type Executor struct {
	actuator   Actuator
	verifier   Verifier
	replanner  StepReplanner
	retry      RetryPolicy
	gate       EscalationGate
	recorder   *audit.Recorder
	logger     *logging.Logger
	maxRetries int

	handler        EscalationHandler
	handlerTimeout time.Duration

	mu       sync.Mutex
	state    State
	plan     *types.Plan
	stepIdx  int
	current  types.Step
	attempts int
	outcomes []types.StepOutcome
	evidence []*types.Evidence
	data     map[string]any
	started  time.Time
	failure  error
}

// ExecOption configures an Executor.
type ExecOption func(*Executor)

// WithRetryPolicy overrides the default retry policy.
func WithRetryPolicy(p RetryPolicy) ExecOption {
	return func(e *Executor) { e.retry = p }
}

// WithEscalationGate overrides the default escalation gate.
func WithEscalationGate(g EscalationGate) ExecOption {
	return func(e *Executor) { e.gate = g }
}

// WithReplanner enables narrow per-step replanning during retries.
func WithReplanner(r StepReplanner) ExecOption {
	return func(e *Executor) { e.replanner = r }
}

// WithRecorder attaches an audit recorder.
func WithRecorder(r *audit.Recorder) ExecOption {
	return func(e *Executor) { e.recorder = r }
}

// WithLogger attaches a logger.
func WithLogger(l *logging.Logger) ExecOption {
	return func(e *Executor) { e.logger = l }
}

// WithEscalationHandler resolves escalations inline instead of parking
// the run. A zero timeout waits as long as the run context allows; an
// expired timeout fails the run with partial outcomes preserved.
func WithEscalationHandler(h EscalationHandler, timeout time.Duration) ExecOption {
	return func(e *Executor) {
		e.handler = h
		e.handlerTimeout = timeout
	}
}

// New creates an executor. maxRetries bounds attempts per step.
func New(actuator Actuator, verifier Verifier, maxRetries int, opts ...ExecOption) *Executor {
	e := &Executor{
		actuator:   actuator,
		verifier:   verifier,
		retry:      DefaultRetryPolicy{},
		gate:       NewConfidenceGate(0.5, nil),
		maxRetries: maxRetries,
		state:      StatePending,
		data:       make(map[string]any),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// State returns the current run state.
func (e *Executor) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Run executes the plan. It returns when the run reaches a terminal
// state, or with types.ErrEscalationPending when the run is parked in
// ESCALATED awaiting Resume. Step failures never surface as errors:
// they are aggregated into the returned TaskResult, so the caller
// always receives a complete, inspectable result.
func (e *Executor) Run(ctx context.Context, plan *types.Plan) (*types.TaskResult, error) {
	if plan == nil || len(plan.Steps) == 0 {
		return nil, fmt.Errorf("executor requires a non-empty plan")
	}

	e.mu.Lock()
	if e.state != StatePending {
		e.mu.Unlock()
		return nil, fmt.Errorf("executor already ran (state %s)", e.state)
	}
	e.plan = plan
	e.stepIdx = 0
	e.current = plan.Steps[0]
	e.started = time.Now()
	e.mu.Unlock()

	e.transition(StateRunning)
	return e.run(ctx)
}

// Resume unparks an escalated run. ResumeRetry transitions back to
// RUNNING and retries the escalated step; ResumeAbort finalizes FAILED
// with partial outcomes preserved.
func (e *Executor) Resume(ctx context.Context, decision ResumeDecision) (*types.TaskResult, error) {
	if e.State() != StateEscalated {
		return nil, fmt.Errorf("resume requires an escalated run (state %s)", e.State())
	}

	if decision == ResumeAbort {
		return e.finalize(StateFailed), nil
	}

	e.mu.Lock()
	e.attempts = 0
	e.mu.Unlock()
	e.transition(StateRunning)
	return e.run(ctx)
}

// EscalationRequest returns what an escalated run surfaces to the
// calling layer. Nil unless the run is parked in ESCALATED.
func (e *Executor) EscalationRequest() *EscalationRequest {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateEscalated {
		return nil
	}
	return &EscalationRequest{
		Step:     e.current,
		Outcomes: append([]types.StepOutcome(nil), e.outcomes...),
		Evidence: append([]*types.Evidence(nil), e.evidence...),
		Failure:  e.failure,
		Attempts: e.attempts,
	}
}

// run drives the step loop until a terminal state or an escalation
// park. It is entered by Run and re-entered by Resume.
func (e *Executor) run(ctx context.Context) (*types.TaskResult, error) {
	for e.stepIdx < len(e.plan.Steps) {
		// Cancellation takes effect at step boundaries only, so an
		// action already dispatched to the browser is never left
		// half-applied.
		if err := ctx.Err(); err != nil {
			e.logf("run cancelled at step %d: %v", e.stepIdx, err)
			return e.finalize(StateFailed), nil
		}

		e.attempts++
		failure := e.attempt(ctx)
		if failure == nil {
			e.resolveStep()
			continue
		}

		e.mu.Lock()
		e.failure = failure
		e.mu.Unlock()
		e.logf("step %s attempt %d failed: %v", e.current.ID, e.attempts, failure)

		switch e.retry.Decide(e.attempts, e.maxRetries, failure) {
		case RetrySame:
			continue

		case RetryAlternative:
			e.replanCurrent(ctx, failure)
			continue

		default: // GiveUp
			if done, result, err := e.giveUp(ctx, failure); done {
				return result, err
			}
			// Escalation resolved with a retry: back to RUNNING.
		}
	}

	return e.finalize(StateCompleted), nil
}

// attempt performs one actuate-and-verify cycle for the current step.
func (e *Executor) attempt(ctx context.Context) error {
	ev, err := e.actuator.Act(ctx, e.current)
	if err != nil {
		// Actuation failures are treated identically to verification
		// fails: both feed the retry policy.
		return err
	}

	if ev != nil {
		e.mu.Lock()
		e.evidence = append(e.evidence, ev)
		e.mu.Unlock()
	}

	return e.verifier.Verify(ctx, e.current, ev)
}

// resolveStep records a verified step and advances to the next one.
func (e *Executor) resolveStep() {
	var ev *types.Evidence
	e.mu.Lock()
	if n := len(e.evidence); n > 0 && e.evidence[n-1].StepID == e.current.ID {
		ev = e.evidence[n-1]
	}
	e.outcomes = append(e.outcomes, types.StepOutcome{
		StepID:   e.current.ID,
		Status:   types.StatusSucceeded,
		Attempts: e.attempts,
		Evidence: ev,
	})
	if e.current.Intent == types.IntentExtract && ev != nil {
		e.data[e.current.ID] = ev.Content
	}
	attempts := e.attempts
	e.stepIdx++
	if e.stepIdx < len(e.plan.Steps) {
		e.current = e.plan.Steps[e.stepIdx]
	}
	e.attempts = 0
	e.mu.Unlock()

	e.recorder.Emit(audit.Event{
		Type:    audit.EventStepSucceeded,
		RunID:   e.plan.ID,
		StepID:  e.outcomes[len(e.outcomes)-1].StepID,
		Attempt: attempts,
	})
}

// giveUp consults the escalation gate. It returns done=true with the
// final (or parked) result, or done=false when an inline handler chose
// to retry the escalated step.
func (e *Executor) giveUp(ctx context.Context, failure error) (bool, *types.TaskResult, error) {
	action := e.gate.Assess(e.current, e.snapshotOutcomes(), failure)

	if action == AbortTask {
		e.recordUnresolved(types.StatusFailed, failure)
		return true, e.finalize(StateFailed), nil
	}

	e.recordUnresolved(types.StatusEscalated, failure)
	e.transition(StateEscalated)
	e.recorder.Emit(audit.Event{
		Type:    audit.EventStepEscalated,
		RunID:   e.plan.ID,
		StepID:  e.current.ID,
		Attempt: e.attempts,
		Detail:  failure.Error(),
	})

	if e.handler == nil {
		// Park: control returns to the caller immediately; a separate
		// Resume call supplies the human decision.
		return true, e.partialResult(), types.ErrEscalationPending
	}

	decision := resolveWithHandler(ctx, e.handler, e.handlerTimeout, e.EscalationRequest())
	if decision == ResumeRetry {
		e.mu.Lock()
		e.attempts = 0
		e.mu.Unlock()
		e.transition(StateRunning)
		return false, nil, nil
	}
	return true, e.finalize(StateFailed), nil
}

// replanCurrent swaps the current step for a planner-provided
// alternative. The replacement keeps the original step ID so outcomes
// stay attached to the plan position; replanning failures are absorbed
// and the original step is retried instead.
func (e *Executor) replanCurrent(ctx context.Context, failure error) {
	if e.replanner == nil {
		return
	}

	alt, err := e.replanner.ReplanStep(ctx, e.current, failure.Error())
	if err != nil || alt == nil {
		e.logf("replan of step %s failed, retrying original: %v", e.current.ID, err)
		return
	}

	alt.ID = e.current.ID
	e.mu.Lock()
	e.current = *alt
	e.mu.Unlock()
	e.logf("step %s replanned: %s %s", alt.ID, alt.Intent, alt.Target)
}

func (e *Executor) recordUnresolved(status types.StepStatus, failure error) {
	var ev *types.Evidence
	e.mu.Lock()
	if n := len(e.evidence); n > 0 && e.evidence[n-1].StepID == e.current.ID {
		ev = e.evidence[n-1]
	}
	e.outcomes = append(e.outcomes, types.StepOutcome{
		StepID:   e.current.ID,
		Status:   status,
		Attempts: e.attempts,
		Evidence: ev,
		Error:    failure.Error(),
	})
	e.mu.Unlock()

	if status == types.StatusFailed {
		e.recorder.Emit(audit.Event{
			Type:    audit.EventStepFailed,
			RunID:   e.plan.ID,
			StepID:  e.current.ID,
			Attempt: e.attempts,
			Detail:  failure.Error(),
		})
	}
}

func (e *Executor) transition(next State) {
	e.mu.Lock()
	e.state = next
	e.mu.Unlock()

	runID := ""
	if e.plan != nil {
		runID = e.plan.ID
	}
	e.recorder.Emit(audit.Event{
		Type:  audit.EventStateTransition,
		RunID: runID,
		State: string(next),
	})
	e.logf("state -> %s", next)
}

// finalize moves to a terminal state and produces the immutable result.
func (e *Executor) finalize(terminal State) *types.TaskResult {
	e.transition(terminal)
	return e.partialResult()
}

// partialResult snapshots outcomes so far. Used both for terminal
// results and for the inspectable result of a parked escalation.
func (e *Executor) partialResult() *types.TaskResult {
	e.mu.Lock()
	defer e.mu.Unlock()

	data := make(map[string]any, len(e.data))
	for k, v := range e.data {
		data[k] = v
	}

	return &types.TaskResult{
		Success:  e.state == StateCompleted,
		Data:     data,
		Outcomes: append([]types.StepOutcome(nil), e.outcomes...),
		Evidence: append([]*types.Evidence(nil), e.evidence...),
		Duration: time.Since(e.started),
	}
}

func (e *Executor) snapshotOutcomes() []types.StepOutcome {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]types.StepOutcome(nil), e.outcomes...)
}

func (e *Executor) logf(format string, v ...interface{}) {
	if e.logger != nil {
		e.logger.Debugf(format, v...)
	}
}
