package executor

// Decision is a retry policy's verdict on a failed attempt.
type Decision string

const (
	// RetrySame re-attempts the identical step.
	RetrySame Decision = "retry_same"

	// RetryAlternative requests a narrowly replanned step before the
	// next attempt.
	RetryAlternative Decision = "retry_alternative"

	// GiveUp stops retrying and hands the failure to the escalation
	// gate.
	GiveUp Decision = "give_up"
)

// RetryPolicy decides whether and how to re-attempt a failed step.
// attempts is the number of attempts already made (at least 1).
type RetryPolicy interface {
	Decide(attempts, maxRetries int, failure error) Decision
}

// DefaultRetryPolicy retries up to maxRetries attempts. The first
// failure is retried verbatim; from the second failure onward it asks
// for an alternative approach, because repeating an identical failed
// action against an unchanged page is assumed useless.
type DefaultRetryPolicy struct{}

// Decide implements RetryPolicy.
func (DefaultRetryPolicy) Decide(attempts, maxRetries int, failure error) Decision {
	if attempts >= maxRetries {
		return GiveUp
	}
	if attempts == 1 {
		return RetrySame
	}
	return RetryAlternative
}
