// Package planner turns a natural-language goal into an ordered plan of
// browser steps by calling an external reasoning capability. The adapter
// is a pure boundary: it validates what the capability returns but never
// retries on its own. Retry is the executor's responsibility.
package planner

import (
	"context"

	"github.com/entrhq/autopilot/pkg/types"
)

// Planner decomposes goals into executable plans.
type Planner interface {
	// Decompose produces a plan for goal. startingContext optionally
	// carries data produced by a previous task in a chain, so a later
	// goal can build on an earlier goal's output.
	Decompose(ctx context.Context, goal, startingContext string) (*types.Plan, error)

	// ReplanStep requests a single alternative step for a step that
	// keeps failing. Only the failing step is replanned; the rest of
	// the plan is untouched.
	ReplanStep(ctx context.Context, failed types.Step, failureDetail string) (*types.Step, error)
}
