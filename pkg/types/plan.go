package types

import (
	"fmt"

	"github.com/google/uuid"
)

// Plan is an ordered sequence of steps produced for one task goal.
// A plan is owned by exactly one executor run and is never mutated
// after construction; retries that replan a step substitute a
// replacement at execution time without touching the plan itself.
type Plan struct {
	ID    string `json:"id"`
	Goal  string `json:"goal"`
	Steps []Step `json:"steps"`
}

// NewPlan validates the given steps and assembles a plan for goal.
// Steps missing an ID are assigned one. Validation failures are
// planning errors: a malformed plan must never reach an executor.
func NewPlan(goal string, steps []Step) (*Plan, error) {
	if goal == "" {
		return nil, &PlanningError{Kind: PlanningMalformed, Reason: "goal is empty"}
	}
	if len(steps) == 0 {
		return nil, &PlanningError{Kind: PlanningEmpty, Reason: "planner returned no steps"}
	}

	for i := range steps {
		if !ValidIntent(string(steps[i].Intent)) {
			return nil, &PlanningError{
				Kind:   PlanningMalformed,
				Reason: fmt.Sprintf("step %d has unknown intent %q", i, steps[i].Intent),
			}
		}
		if steps[i].Target == "" {
			return nil, &PlanningError{
				Kind:   PlanningMalformed,
				Reason: fmt.Sprintf("step %d (%s) has an empty target", i, steps[i].Intent),
			}
		}
		if steps[i].ID == "" {
			steps[i].ID = uuid.New().String()
		}
	}

	return &Plan{
		ID:    uuid.New().String(),
		Goal:  goal,
		Steps: steps,
	}, nil
}

// Len returns the number of steps in the plan.
func (p *Plan) Len() int {
	return len(p.Steps)
}
