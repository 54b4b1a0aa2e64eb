package types

import "time"

// StepStatus is the terminal status of one step within a run.
type StepStatus string

const (
	StatusSucceeded StepStatus = "succeeded"
	StatusFailed    StepStatus = "failed"
	StatusEscalated StepStatus = "escalated"
)

// StepOutcome records how a step resolved. Outcomes are appended to the
// run's execution log in step order and never mutated after append.
type StepOutcome struct {
	StepID   string     `json:"step_id"`
	Status   StepStatus `json:"status"`
	Attempts int        `json:"attempts"`
	Evidence *Evidence  `json:"evidence,omitempty"`
	Error    string     `json:"error,omitempty"`
}

// Evidence is an opaque capture of the page state observed after an
// actuation attempt. It is what verification predicates are evaluated
// against, and what an escalating run surfaces to a human.
type Evidence struct {
	StepID     string    `json:"step_id"`
	URL        string    `json:"url,omitempty"`
	Title      string    `json:"title,omitempty"`
	Content    string    `json:"content,omitempty"`
	Screenshot []byte    `json:"screenshot,omitempty"`
	CapturedAt time.Time `json:"captured_at"`
}
