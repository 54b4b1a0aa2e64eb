package executor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/entrhq/autopilot/pkg/types"
)

func evidence(url, title, content string) *types.Evidence {
	return &types.Evidence{
		StepID:     "step-1",
		URL:        url,
		Title:      title,
		Content:    content,
		CapturedAt: time.Now(),
	}
}

func verifyStep(predicate string) types.Step {
	return types.Step{ID: "step-1", Intent: types.IntentNavigate, Target: "page", Verify: predicate}
}

func TestPredicateVerifier(t *testing.T) {
	ev := evidence("https://example.com/results?q=news", "Search Results", "Top stories about AI news today")

	tests := []struct {
		name      string
		predicate string
		wantPass  bool
	}{
		{"empty predicate passes", "", true},
		{"url glob match", "url:*example.com*", true},
		{"url glob mismatch", "url:*other.com*", false},
		{"title glob match", "title:Search*", true},
		{"title glob mismatch", "title:Checkout*", false},
		{"text substring match", "text:AI news", true},
		{"text case-insensitive", "text:ai NEWS", true},
		{"text mismatch", "text:weather report", false},
		{"free text treated as text", "Top stories", true},
		{"free text mismatch", "no such phrase", false},
		{"unknown prefix treated as text", "status: Top stories", false},
		{"empty url pattern", "url:", false},
		{"empty text argument", "text:", false},
	}

	v := NewPredicateVerifier(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Verify(context.Background(), verifyStep(tt.predicate), ev)
			if tt.wantPass {
				assert.NoError(t, err)
			} else {
				var verr *types.VerificationError
				assert.ErrorAs(t, err, &verr)
			}
		})
	}
}

func TestPredicateVerifier_NilEvidenceFails(t *testing.T) {
	v := NewPredicateVerifier(nil)

	err := v.Verify(context.Background(), verifyStep("text:anything"), nil)
	var verr *types.VerificationError
	assert.ErrorAs(t, err, &verr)

	// Only the empty predicate passes without evidence.
	assert.NoError(t, v.Verify(context.Background(), verifyStep(""), nil))
}

func TestPredicateVerifier_Visible(t *testing.T) {
	ev := evidence("https://example.com", "Home", "welcome")

	t.Run("visible element passes", func(t *testing.T) {
		v := NewPredicateVerifier(func(ctx context.Context, selector string) (bool, error) {
			assert.Equal(t, "#login", selector)
			return true, nil
		})
		assert.NoError(t, v.Verify(context.Background(), verifyStep("visible:#login"), ev))
	})

	t.Run("hidden element fails", func(t *testing.T) {
		v := NewPredicateVerifier(func(ctx context.Context, selector string) (bool, error) {
			return false, nil
		})
		assert.Error(t, v.Verify(context.Background(), verifyStep("visible:#login"), ev))
	})

	t.Run("probe error fails", func(t *testing.T) {
		v := NewPredicateVerifier(func(ctx context.Context, selector string) (bool, error) {
			return false, errors.New("page closed")
		})
		assert.Error(t, v.Verify(context.Background(), verifyStep("visible:#login"), ev))
	})

	t.Run("nil prober fails rather than passes", func(t *testing.T) {
		v := NewPredicateVerifier(nil)
		assert.Error(t, v.Verify(context.Background(), verifyStep("visible:#login"), ev))
	})
}

func TestDefaultRetryPolicy(t *testing.T) {
	policy := DefaultRetryPolicy{}
	failure := errors.New("selector not found")

	assert.Equal(t, RetrySame, policy.Decide(1, 3, failure))
	assert.Equal(t, RetryAlternative, policy.Decide(2, 3, failure))
	assert.Equal(t, GiveUp, policy.Decide(3, 3, failure))
	assert.Equal(t, GiveUp, policy.Decide(5, 3, failure))
	assert.Equal(t, GiveUp, policy.Decide(1, 1, failure))
	assert.Equal(t, GiveUp, policy.Decide(1, 0, failure))
}

func TestConfidenceGate(t *testing.T) {
	failure := errors.New("boom")

	t.Run("nil scorer always escalates", func(t *testing.T) {
		gate := NewConfidenceGate(0.5, nil)
		assert.Equal(t, EscalateToHuman, gate.Assess(types.Step{}, nil, failure))
	})

	t.Run("score above threshold aborts", func(t *testing.T) {
		gate := NewConfidenceGate(0.5, func(types.Step, []types.StepOutcome, error) float64 {
			return 0.9
		})
		assert.Equal(t, AbortTask, gate.Assess(types.Step{}, nil, failure))
	})

	t.Run("score below threshold escalates", func(t *testing.T) {
		gate := NewConfidenceGate(0.5, func(types.Step, []types.StepOutcome, error) float64 {
			return 0.2
		})
		assert.Equal(t, EscalateToHuman, gate.Assess(types.Step{}, nil, failure))
	})
}
