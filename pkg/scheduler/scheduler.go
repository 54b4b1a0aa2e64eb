// Package scheduler fans task and chain runs out across concurrent
// workers, each bound to exactly one pooled browser session. The pool's
// blocking Acquire is the single synchronization point: submissions
// queue when every session is in use instead of over-provisioning.
package scheduler

import (
	"context"
	"sync"

	"github.com/entrhq/autopilot/pkg/audit"
	"github.com/entrhq/autopilot/pkg/browser"
	"github.com/entrhq/autopilot/pkg/chain"
	"github.com/entrhq/autopilot/pkg/logging"
	"github.com/entrhq/autopilot/pkg/types"
)

// SessionPool hands out isolated browser sessions with bounded
// concurrency. browser.SessionManager satisfies it.
type SessionPool interface {
	Acquire(ctx context.Context) (*browser.Session, error)
	Release(session *browser.Session)
}

// TaskFunc runs one goal on one session to a terminal result. The CLI
// wires this to plan-then-execute.
type TaskFunc func(ctx context.Context, session *browser.Session, goal, startingContext string) (*types.TaskResult, error)

// Scheduler runs submissions concurrently, one session per run, with
// guaranteed session release on every exit path.
type Scheduler struct {
	pool     SessionPool
	run      TaskFunc
	recorder *audit.Recorder
	logger   *logging.Logger
	wg       sync.WaitGroup
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithRecorder attaches an audit recorder.
func WithRecorder(r *audit.Recorder) Option {
	return func(s *Scheduler) { s.recorder = r }
}

// WithLogger attaches a logger.
func WithLogger(l *logging.Logger) Option {
	return func(s *Scheduler) { s.logger = l }
}

// New creates a scheduler over the given pool and task function.
func New(pool SessionPool, run TaskFunc, opts ...Option) *Scheduler {
	s := &Scheduler{pool: pool, run: run}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit queues one goal for execution and returns immediately. The
// worker blocks on session acquisition while the pool is exhausted;
// that backpressure is deliberate and is not surfaced as an error.
func (s *Scheduler) Submit(ctx context.Context, goal string) *Future {
	f := &Future{done: make(chan struct{})}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer close(f.done)
		f.result, f.err = s.runGoal(ctx, goal, "")
	}()
	return f
}

// SubmitChain queues a chain of goals. The chain acquires a fresh
// session per goal, so a long chain never pins a session across goals.
func (s *Scheduler) SubmitChain(ctx context.Context, chainID string, goals []string, store chain.Store) *ChainFuture {
	f := &ChainFuture{done: make(chan struct{})}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer close(f.done)
		ctrl := chain.NewController(goalRunner{s}, store,
			chain.WithRecorder(s.recorder), chain.WithLogger(s.logger))
		f.result, f.err = ctrl.RunChain(ctx, chainID, goals)
	}()
	return f
}

// Wait blocks until every submitted run has finished.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

// runGoal acquires a session, runs the goal, and always releases the
// session, whatever the exit path.
func (s *Scheduler) runGoal(ctx context.Context, goal, startingContext string) (*types.TaskResult, error) {
	session, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer s.pool.Release(session)

	if s.logger != nil {
		s.logger.Infof("session %s: running goal %q", session.ID, goal)
	}
	return s.run(ctx, session, goal, startingContext)
}

// goalRunner adapts the scheduler to chain.TaskRunner.
type goalRunner struct {
	s *Scheduler
}

func (r goalRunner) RunGoal(ctx context.Context, goal, startingContext string) (*types.TaskResult, error) {
	return r.s.runGoal(ctx, goal, startingContext)
}

// Future is the pending result of a submitted goal.
type Future struct {
	done   chan struct{}
	result *types.TaskResult
	err    error
}

// Done is closed when the run finishes.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the run finishes and returns its result.
func (f *Future) Wait() (*types.TaskResult, error) {
	<-f.done
	return f.result, f.err
}

// ChainFuture is the pending result of a submitted chain.
type ChainFuture struct {
	done   chan struct{}
	result *types.ChainResult
	err    error
}

// Done is closed when the chain finishes.
func (f *ChainFuture) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the chain finishes and returns its result.
func (f *ChainFuture) Wait() (*types.ChainResult, error) {
	<-f.done
	return f.result, f.err
}
