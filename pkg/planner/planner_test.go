package planner

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/autopilot/pkg/types"
)

// fakeCompleter returns a canned response and records the prompts it saw.
type fakeCompleter struct {
	response string
	err      error
	systems  []string
	users    []string
}

func (f *fakeCompleter) complete(ctx context.Context, system, user string) (string, error) {
	f.systems = append(f.systems, system)
	f.users = append(f.users, user)
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func testPlanner(c completer) *OpenAIPlanner {
	return &OpenAIPlanner{
		client:             c,
		model:              "gpt-4o",
		contextTokenBudget: defaultContextTokenBudget,
	}
}

const validPlanJSON = `{
	"steps": [
		{"intent": "navigate", "target": "https://example.com", "verify": "url:*example.com*"},
		{"intent": "type", "target": "search box", "parameters": {"selector": "#q", "value": "news"}},
		{"intent": "click", "target": "search button", "parameters": {"selector": "#go"}, "verify": "title:*Results*"}
	]
}`

func TestDecompose_ValidResponse(t *testing.T) {
	client := &fakeCompleter{response: validPlanJSON}
	p := testPlanner(client)

	plan, err := p.Decompose(context.Background(), "search for news", "")
	require.NoError(t, err)

	assert.Equal(t, "search for news", plan.Goal)
	require.Equal(t, 3, plan.Len())
	assert.Equal(t, types.IntentNavigate, plan.Steps[0].Intent)
	assert.Equal(t, "url:*example.com*", plan.Steps[0].Verify)
	assert.Equal(t, "news", plan.Steps[1].Param("value", ""))

	// Every step gets a unique ID.
	assert.NotEmpty(t, plan.Steps[0].ID)
	assert.NotEqual(t, plan.Steps[0].ID, plan.Steps[1].ID)
}

func TestDecompose_StripsCodeFence(t *testing.T) {
	client := &fakeCompleter{response: "```json\n" + validPlanJSON + "\n```"}
	p := testPlanner(client)

	plan, err := p.Decompose(context.Background(), "search for news", "")
	require.NoError(t, err)
	assert.Equal(t, 3, plan.Len())
}

func TestDecompose_MalformedJSON(t *testing.T) {
	client := &fakeCompleter{response: "I cannot produce a plan for that."}
	p := testPlanner(client)

	_, err := p.Decompose(context.Background(), "do something", "")
	var perr *types.PlanningError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, types.PlanningMalformed, perr.Kind)
}

func TestDecompose_EmptyStepList(t *testing.T) {
	client := &fakeCompleter{response: `{"steps": []}`}
	p := testPlanner(client)

	_, err := p.Decompose(context.Background(), "do something", "")
	var perr *types.PlanningError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, types.PlanningEmpty, perr.Kind)
}

func TestDecompose_UnknownIntentRejected(t *testing.T) {
	client := &fakeCompleter{response: `{"steps": [{"intent": "teleport", "target": "somewhere"}]}`}
	p := testPlanner(client)

	_, err := p.Decompose(context.Background(), "go somewhere", "")
	var perr *types.PlanningError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, types.PlanningMalformed, perr.Kind)
}

func TestDecompose_EmptyTargetRejected(t *testing.T) {
	client := &fakeCompleter{response: `{"steps": [{"intent": "click", "target": "  "}]}`}
	p := testPlanner(client)

	_, err := p.Decompose(context.Background(), "click something", "")
	var perr *types.PlanningError
	require.ErrorAs(t, err, &perr)
}

func TestDecompose_EmptyGoal(t *testing.T) {
	p := testPlanner(&fakeCompleter{response: validPlanJSON})
	_, err := p.Decompose(context.Background(), "", "")
	assert.Error(t, err)
}

func TestDecompose_TimeoutKind(t *testing.T) {
	client := &fakeCompleter{err: context.DeadlineExceeded}
	p := testPlanner(client)

	_, err := p.Decompose(context.Background(), "slow goal", "")
	var perr *types.PlanningError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, types.PlanningTimeout, perr.Kind)
}

func TestDecompose_IncludesStartingContext(t *testing.T) {
	client := &fakeCompleter{response: validPlanJSON}
	p := testPlanner(client)

	_, err := p.Decompose(context.Background(), "download the report", `{"auth": "token-123"}`)
	require.NoError(t, err)

	require.Len(t, client.users, 1)
	assert.Contains(t, client.users[0], "download the report")
	assert.Contains(t, client.users[0], "token-123")
}

func TestReplanStep_PreservesID(t *testing.T) {
	client := &fakeCompleter{response: `{"intent": "click", "target": "button by role", "parameters": {"selector": "[role=button]"}}`}
	p := testPlanner(client)

	failed := types.Step{
		ID:         "step-42",
		Intent:     types.IntentClick,
		Target:     "submit button",
		Parameters: map[string]string{"selector": "#broken"},
	}

	step, err := p.ReplanStep(context.Background(), failed, "selector not found")
	require.NoError(t, err)

	assert.Equal(t, "step-42", step.ID)
	assert.Equal(t, types.IntentClick, step.Intent)
	assert.Equal(t, "[role=button]", step.Param("selector", ""))

	// The prompt carries the failing step and the failure detail.
	require.Len(t, client.users, 1)
	assert.Contains(t, client.users[0], "#broken")
	assert.Contains(t, client.users[0], "selector not found")
}

func TestReplanStep_RejectsMalformed(t *testing.T) {
	p := testPlanner(&fakeCompleter{response: `{"intent": "click"}`})

	_, err := p.ReplanStep(context.Background(), types.Step{ID: "s"}, "boom")
	var perr *types.PlanningError
	require.ErrorAs(t, err, &perr)
}

func TestStripCodeFences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"no fence", `{"a":1}`, `{"a":1}`},
		{"plain fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"surrounding whitespace", "  ```json\n{\"a\":1}\n```  ", `{"a":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, stripCodeFences(tt.in))
		})
	}
}

func TestTruncateToTokens(t *testing.T) {
	long := strings.Repeat("chained task output with many words ", 500)

	got := truncateToTokens(long, 50)
	assert.Less(t, len(got), len(long))
	assert.NotEmpty(t, got)

	short := "small"
	assert.Equal(t, short, truncateToTokens(short, 50))
	assert.Equal(t, long, truncateToTokens(long, 0), "zero budget disables truncation")
}

func TestTruncateBytes_KeepsRunesIntact(t *testing.T) {
	text := strings.Repeat("über café 日本語のテキスト ", 40)

	// Sweep cut points across every byte alignment a multi-byte rune
	// can land on.
	for n := 1; n < 64; n++ {
		got := truncateBytes(text, n)
		assert.LessOrEqual(t, len(got), n)
		assert.True(t, utf8.ValidString(got), "cut at %d bytes must not split a rune", n)
	}

	assert.Equal(t, "short", truncateBytes("short", 64))
}

func TestNewOpenAIPlanner_RequiresKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	_, err := NewOpenAIPlanner("", "")
	assert.Error(t, err)

	p, err := NewOpenAIPlanner("test-key", "", WithModel("gpt-4o-mini"))
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o-mini", p.model)
}

func TestDecompose_CompleterError(t *testing.T) {
	p := testPlanner(&fakeCompleter{err: errors.New("rate limited")})
	_, err := p.Decompose(context.Background(), "goal", "")
	var perr *types.PlanningError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, types.PlanningMalformed, perr.Kind)
}
