package webhooks

import "time"

// MaxRetries caps attempts per logical delivery chain. Once AttemptNumber
// reaches it, the failure is terminal.
const MaxRetries = 3

// backoffSchedule is indexed by the completed 1-based attempt number:
// attempt 1 failing retries after 60s, attempt 2 after 300s, attempt 3
// after 900s (unreachable through NextAttempt while MaxRetries is 3, kept
// so the table matches the documented 60/300/900 progression).
var backoffSchedule = []time.Duration{
	60 * time.Second,
	300 * time.Second,
	900 * time.Second,
}

type RetryDecision struct {
	AttemptNumber int
	NextRetryAt   *time.Time
}

// NextAttempt computes retry bookkeeping for an attempt that just completed.
// priorAttempts is 0 for a fresh delivery. NextRetryAt is non-nil iff the
// attempt failed and the chain is under the retry cap. Pure: the only clock
// input is now.
func NextAttempt(priorAttempts int, success bool, now time.Time) RetryDecision {
	attempt := priorAttempts + 1
	if success || attempt >= MaxRetries {
		return RetryDecision{AttemptNumber: attempt}
	}

	at := now.Add(backoffSchedule[attempt-1])
	return RetryDecision{AttemptNumber: attempt, NextRetryAt: &at}
}
