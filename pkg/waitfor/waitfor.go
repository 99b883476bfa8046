// Package waitfor polls a predicate until it holds or a fixed attempt budget
// runs out. It backs the gateway reconnect readiness check but is generic
// enough for any resource-lifecycle wait.
package waitfor

import (
	"context"
	"time"
)

// ErrTimeout is returned when the predicate never held within the budget.
type ErrTimeout struct {
	Attempts int
	Interval time.Duration
}

func (e *ErrTimeout) Error() string {
	return "condition not met within polling budget"
}

// Until polls pred every interval, up to attempts times. The predicate is
// evaluated once per attempt, before each wait. Returns nil as soon as the
// predicate holds, ctx.Err() if the context ends first, and *ErrTimeout when
// the budget is exhausted.
func Until(ctx context.Context, attempts int, interval time.Duration, pred func() bool) error {
	for i := 0; i < attempts; i++ {
		if pred() {
			return nil
		}
		select {
		case <-time.After(interval):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if pred() {
		return nil
	}
	return &ErrTimeout{Attempts: attempts, Interval: interval}
}
