package types

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPlan(t *testing.T) {
	steps := []Step{
		{Intent: IntentNavigate, Target: "https://example.com"},
		{Intent: IntentExtract, Target: "article text"},
	}

	plan, err := NewPlan("read the article", steps)
	require.NoError(t, err)

	assert.NotEmpty(t, plan.ID)
	assert.Equal(t, "read the article", plan.Goal)
	assert.Equal(t, 2, plan.Len())

	// Steps get unique IDs assigned.
	assert.NotEmpty(t, plan.Steps[0].ID)
	assert.NotEmpty(t, plan.Steps[1].ID)
	assert.NotEqual(t, plan.Steps[0].ID, plan.Steps[1].ID)
}

func TestNewPlan_PreservesExistingIDs(t *testing.T) {
	plan, err := NewPlan("goal", []Step{{ID: "keep-me", Intent: IntentWait, Target: "page load"}})
	require.NoError(t, err)
	assert.Equal(t, "keep-me", plan.Steps[0].ID)
}

func TestNewPlan_Validation(t *testing.T) {
	valid := Step{Intent: IntentClick, Target: "button"}

	tests := []struct {
		name     string
		goal     string
		steps    []Step
		wantKind PlanningErrorKind
	}{
		{"empty goal", "", []Step{valid}, PlanningMalformed},
		{"no steps", "goal", nil, PlanningEmpty},
		{"unknown intent", "goal", []Step{{Intent: "teleport", Target: "x"}}, PlanningMalformed},
		{"empty target", "goal", []Step{{Intent: IntentClick}}, PlanningMalformed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewPlan(tt.goal, tt.steps)
			var perr *PlanningError
			require.ErrorAs(t, err, &perr)
			assert.Equal(t, tt.wantKind, perr.Kind)
		})
	}
}

func TestValidIntent(t *testing.T) {
	for _, intent := range []Intent{IntentNavigate, IntentClick, IntentType, IntentScroll, IntentWait, IntentExtract} {
		assert.True(t, ValidIntent(string(intent)), string(intent))
	}
	assert.False(t, ValidIntent("teleport"))
	assert.False(t, ValidIntent(""))
}

func TestStepParam(t *testing.T) {
	step := Step{Parameters: map[string]string{"selector": "#q", "empty": ""}}

	assert.Equal(t, "#q", step.Param("selector", "fallback"))
	assert.Equal(t, "fallback", step.Param("missing", "fallback"))
	assert.Equal(t, "fallback", step.Param("empty", "fallback"), "blank values fall back")

	var bare Step
	assert.Equal(t, "fallback", bare.Param("anything", "fallback"))
}

func TestActuationError_Unwrap(t *testing.T) {
	cause := errors.New("timeout exceeded")
	err := &ActuationError{StepID: "s1", Reason: "click failed", Err: cause}

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "click failed")
	assert.Contains(t, err.Error(), "timeout exceeded")

	bare := &ActuationError{StepID: "s1", Reason: "no page"}
	assert.Contains(t, bare.Error(), "no page")
}

func TestChainResult_Completed(t *testing.T) {
	result := &ChainResult{Results: []*TaskResult{
		{Success: true},
		{Success: false},
		{Success: true},
	}}
	assert.Equal(t, 2, result.Completed())
	assert.Zero(t, (&ChainResult{}).Completed())
}
