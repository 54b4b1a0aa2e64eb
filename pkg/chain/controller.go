package chain

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/entrhq/autopilot/pkg/audit"
	"github.com/entrhq/autopilot/pkg/logging"
	"github.com/entrhq/autopilot/pkg/types"
)

// TaskRunner executes one goal to a terminal result. The scheduler and
// CLI supply implementations that plan the goal and drive an executor
// on a pooled browser session.
type TaskRunner interface {
	RunGoal(ctx context.Context, goal, startingContext string) (*types.TaskResult, error)
}

// Controller runs an ordered sequence of goals with checkpointed
// resumability. Each goal's result data is offered to the next goal's
// planner as starting context, so later goals can consume earlier
// goals' output.
type Controller struct {
	runner   TaskRunner
	store    Store
	recorder *audit.Recorder
	logger   *logging.Logger
}

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

// WithRecorder attaches an audit recorder.
func WithRecorder(r *audit.Recorder) ControllerOption {
	return func(c *Controller) { c.recorder = r }
}

// WithLogger attaches a logger.
func WithLogger(l *logging.Logger) ControllerOption {
	return func(c *Controller) { c.logger = l }
}

// NewController creates a chain controller. A nil store disables
// checkpointing (every run starts fresh).
func NewController(runner TaskRunner, store Store, opts ...ControllerOption) *Controller {
	if store == nil {
		store = NewMemoryStore()
	}
	c := &Controller{runner: runner, store: store}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RunChain executes goals in order. Completed goals from a previous
// checkpoint are skipped and their stored results reused. The chain
// halts at the first failed goal: its result is included, later goals
// are never attempted, and FullyCompleted is false.
//
// The returned error reports infrastructure problems (checkpoint
// persistence, runner plumbing); goal failures are encoded in the
// result, never raised.
func (c *Controller) RunChain(ctx context.Context, chainID string, goals []string) (*types.ChainResult, error) {
	if chainID == "" {
		return nil, fmt.Errorf("chain ID is required")
	}
	if len(goals) == 0 {
		return nil, fmt.Errorf("chain requires at least one goal")
	}

	state, err := c.store.Load(ctx, chainID)
	if err != nil {
		return nil, fmt.Errorf("load chain checkpoint: %w", err)
	}
	if state == nil {
		state = types.NewChainState(chainID)
	}

	result := &types.ChainResult{}
	var prior *types.TaskResult

	for i, goal := range goals {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		if state.IsCompleted(i) {
			stored := state.Results[i]
			c.logf("chain %s: goal %d already completed, reusing result", chainID, i)
			result.Results = append(result.Results, stored)
			prior = stored
			continue
		}

		taskResult, err := c.runner.RunGoal(ctx, goal, startingContext(prior))
		if err != nil {
			return result, fmt.Errorf("run goal %d: %w", i, err)
		}

		result.Results = append(result.Results, taskResult)

		if taskResult.Success {
			state.MarkCompleted(i, taskResult)
		}
		// Checkpoint after every terminal state, success or not, so a
		// crash re-executes at most the goal that was in flight.
		if err := c.store.Save(ctx, state); err != nil {
			return result, fmt.Errorf("save chain checkpoint: %w", err)
		}
		c.recorder.Emit(audit.Event{
			Type:   audit.EventChainCheckpoint,
			RunID:  chainID,
			Detail: fmt.Sprintf("goal %d/%d terminal, success=%t", i+1, len(goals), taskResult.Success),
		})

		if !taskResult.Success {
			c.logf("chain %s: goal %d failed, halting", chainID, i)
			return result, nil
		}
		prior = taskResult
	}

	result.FullyCompleted = true
	return result, nil
}

// startingContext serializes a prior result's data for the next goal's
// planner. Empty when there is no prior result or no data.
func startingContext(prior *types.TaskResult) string {
	if prior == nil || len(prior.Data) == 0 {
		return ""
	}
	encoded, err := json.Marshal(prior.Data)
	if err != nil {
		return ""
	}
	return string(encoded)
}

func (c *Controller) logf(format string, v ...interface{}) {
	if c.logger != nil {
		c.logger.Infof(format, v...)
	}
}
