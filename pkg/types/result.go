package types

import "time"

// TaskResult is the complete, inspectable outcome of one executor run.
// It is produced exactly once per run and is immutable afterwards; a
// failed run still carries every outcome recorded before the failure.
type TaskResult struct {
	Success  bool           `json:"success"`
	Data     map[string]any `json:"data,omitempty"`
	Outcomes []StepOutcome  `json:"outcomes"`
	Evidence []*Evidence    `json:"evidence,omitempty"`
	Duration time.Duration  `json:"duration"`
}

// ChainResult aggregates the results of a chained run of goals.
type ChainResult struct {
	// Results holds one entry per attempted goal, in goal order. A
	// chain that halts at a failed goal includes that goal's result
	// but nothing after it.
	Results []*TaskResult `json:"results"`

	// FullyCompleted is true only when every goal in the chain
	// finished successfully.
	FullyCompleted bool `json:"fully_completed"`
}

// Completed returns the number of successful goal results.
func (r *ChainResult) Completed() int {
	n := 0
	for _, res := range r.Results {
		if res != nil && res.Success {
			n++
		}
	}
	return n
}
