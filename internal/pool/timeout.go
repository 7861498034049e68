package pool

import "time"

// guard bounds op with a deadline. op runs in its own goroutine and races
// the timer; whichever finishes first decides the outcome. The loser is
// abandoned, not cancelled: a late op result drains into the buffered
// channel and is discarded, and an op that wins stops the pending timer.
// Callers must not assume the losing side stops executing.
func guard(op func() error, limit time.Duration, kind ErrorKind) error {
	done := make(chan error, 1)
	go func() { done <- op() }()

	timer := time.NewTimer(limit)
	defer timer.Stop()

	select {
	case err := <-done:
		return err
	case <-timer.C:
		return timeoutError(kind, limit)
	}
}
