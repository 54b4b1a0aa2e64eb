package types

import "time"

// ChainState is the persisted progress of one chain run. It is owned by
// a single chain controller at a time and checkpointed after each goal
// reaches a terminal state, so a crashed chain re-executes at most the
// one goal that was in flight.
type ChainState struct {
	ChainID string `json:"chain_id"`

	// Completed marks goal indices that finished successfully. The set
	// only grows within a chain run.
	Completed map[int]bool `json:"completed"`

	// Results stores the task result for each completed goal index so a
	// resumed chain can reuse them without re-execution.
	Results map[int]*TaskResult `json:"results"`

	UpdatedAt time.Time `json:"updated_at"`
}

// NewChainState returns an empty state for the given chain.
func NewChainState(chainID string) *ChainState {
	return &ChainState{
		ChainID:   chainID,
		Completed: make(map[int]bool),
		Results:   make(map[int]*TaskResult),
	}
}

// MarkCompleted records a successful goal. Completion is monotone:
// indices are only ever added, never removed.
func (s *ChainState) MarkCompleted(index int, result *TaskResult) {
	if s.Completed == nil {
		s.Completed = make(map[int]bool)
	}
	if s.Results == nil {
		s.Results = make(map[int]*TaskResult)
	}
	s.Completed[index] = true
	s.Results[index] = result
	s.UpdatedAt = time.Now()
}

// IsCompleted reports whether the goal at index already finished.
func (s *ChainState) IsCompleted(index int) bool {
	return s != nil && s.Completed[index]
}
