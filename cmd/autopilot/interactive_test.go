package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/autopilot/pkg/types"
)

func TestRunInteractive_RunsGoalsUntilExit(t *testing.T) {
	in := strings.NewReader("first task\n\nsecond task\nexit\nafter exit\n")
	var out bytes.Buffer

	var goals []string
	submit := func(ctx context.Context, goal string) (*types.TaskResult, error) {
		goals = append(goals, goal)
		if goal == "second task" {
			return &types.TaskResult{
				Success:  false,
				Outcomes: []types.StepOutcome{{StepID: "s1", Status: types.StatusFailed, Attempts: 3, Error: "selector not found"}},
			}, nil
		}
		return &types.TaskResult{Success: true, Data: map[string]any{"s1": "extracted value"}}, nil
	}

	require.NoError(t, runInteractive(context.Background(), in, &out, submit))

	// Blank lines are skipped, nothing after exit is submitted.
	assert.Equal(t, []string{"first task", "second task"}, goals)
	assert.Contains(t, out.String(), "Task completed successfully")
	assert.Contains(t, out.String(), "extracted value")
	assert.Contains(t, out.String(), "Task failed")
	assert.Contains(t, out.String(), "selector not found")
}

func TestRunInteractive_SubmitErrorContinuesPrompting(t *testing.T) {
	in := strings.NewReader("bad goal\ngood goal\nquit\n")
	var out bytes.Buffer

	calls := 0
	submit := func(ctx context.Context, goal string) (*types.TaskResult, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("planner unavailable")
		}
		return &types.TaskResult{Success: true}, nil
	}

	require.NoError(t, runInteractive(context.Background(), in, &out, submit))
	assert.Equal(t, 2, calls)
	assert.Contains(t, out.String(), "Error: planner unavailable")
}

func TestRunInteractive_EndOfInputEnds(t *testing.T) {
	err := runInteractive(context.Background(), strings.NewReader(""), &bytes.Buffer{},
		func(context.Context, string) (*types.TaskResult, error) {
			t.Error("no goal should be submitted")
			return nil, nil
		})
	assert.NoError(t, err)
}

func TestRunInteractive_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	submitted := false
	err := runInteractive(ctx, strings.NewReader("goal\n"), &bytes.Buffer{},
		func(context.Context, string) (*types.TaskResult, error) {
			submitted = true
			return &types.TaskResult{Success: true}, nil
		})

	require.NoError(t, err)
	assert.False(t, submitted)
}
