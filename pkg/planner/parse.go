package planner

import (
	"encoding/json"
	"strings"

	"github.com/entrhq/autopilot/pkg/types"
)

// plannedStep is the JSON structure the reasoning capability returns for
// a single step.
type plannedStep struct {
	Intent     string            `json:"intent"`
	Target     string            `json:"target"`
	Parameters map[string]string `json:"parameters"`
	Verify     string            `json:"verify"`
}

type plannedResponse struct {
	Steps []plannedStep `json:"steps"`
}

// parsePlan converts a raw model response into a validated plan.
// Validation failures surface as planning errors so malformed plans
// never reach an executor.
func parsePlan(goal, raw string) (*types.Plan, error) {
	body := stripCodeFences(raw)

	var resp plannedResponse
	if err := json.Unmarshal([]byte(body), &resp); err != nil {
		return nil, &types.PlanningError{
			Kind:   types.PlanningMalformed,
			Reason: "response is not valid JSON: " + err.Error(),
		}
	}

	steps := make([]types.Step, 0, len(resp.Steps))
	for _, ps := range resp.Steps {
		steps = append(steps, types.Step{
			Intent:     types.Intent(ps.Intent),
			Target:     strings.TrimSpace(ps.Target),
			Parameters: ps.Parameters,
			Verify:     strings.TrimSpace(ps.Verify),
		})
	}

	return types.NewPlan(goal, steps)
}

// parseStep converts a raw model response into a single validated step.
func parseStep(raw string) (*types.Step, error) {
	body := stripCodeFences(raw)

	var ps plannedStep
	if err := json.Unmarshal([]byte(body), &ps); err != nil {
		return nil, &types.PlanningError{
			Kind:   types.PlanningMalformed,
			Reason: "replan response is not valid JSON: " + err.Error(),
		}
	}

	if !types.ValidIntent(ps.Intent) {
		return nil, &types.PlanningError{
			Kind:   types.PlanningMalformed,
			Reason: "replan step has unknown intent " + ps.Intent,
		}
	}
	if strings.TrimSpace(ps.Target) == "" {
		return nil, &types.PlanningError{
			Kind:   types.PlanningMalformed,
			Reason: "replan step has an empty target",
		}
	}

	return &types.Step{
		Intent:     types.Intent(ps.Intent),
		Target:     strings.TrimSpace(ps.Target),
		Parameters: ps.Parameters,
		Verify:     strings.TrimSpace(ps.Verify),
	}, nil
}

// stripCodeFences removes a surrounding markdown code fence, which some
// models emit despite instructions.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}

	s = strings.TrimPrefix(s, "```")
	if idx := strings.Index(s, "\n"); idx >= 0 {
		// Drop the language tag line (e.g. "json").
		s = s[idx+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
