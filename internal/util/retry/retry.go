package retry

import (
	"context"
	"fmt"
	"time"
)

// Backoff is an exponential retry schedule for cloud API calls.
type Backoff struct {
	// Retries is the number of calls after the first one.
	Retries int
	Initial time.Duration
	Max     time.Duration
	Factor  float64
}

// NewBackoff returns a schedule that doubles the delay after every failed
// call, starting at initial and capped at 30s.
func NewBackoff(retries int, initial time.Duration) Backoff {
	return Backoff{
		Retries: retries,
		Initial: initial,
		Max:     30 * time.Second,
		Factor:  2,
	}
}

// Delay returns the wait before retry n, counting from 1.
func (b Backoff) Delay(n int) time.Duration {
	d := b.Initial
	for i := 1; i < n; i++ {
		d = time.Duration(float64(d) * b.Factor)
		if b.Max > 0 && d >= b.Max {
			return b.Max
		}
	}
	return d
}

// Do calls op until it succeeds, returns an error that retryable rejects, or
// the retries are used up. Rejected errors are returned unchanged so callers
// can still match them with errors.Is.
func (b Backoff) Do(ctx context.Context, retryable func(error) bool, op func(ctx context.Context) error) error {
	var err error
	for n := 0; ; n++ {
		err = op(ctx)
		if err == nil {
			return nil
		}
		if !retryable(err) {
			return err
		}
		if n >= b.Retries {
			break
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("context cancelled after %d attempts: %w", n+1, ctx.Err())
		case <-time.After(b.Delay(n + 1)):
		}
	}
	return fmt.Errorf("giving up after %d attempts: %w", b.Retries+1, err)
}

// Poll runs check up to attempts times, waiting interval between calls, and
// stops as soon as check reports done. It returns done=false without an error
// when the ceiling is reached; callers decide whether that is fatal.
// An error from check ends the loop immediately.
func Poll(ctx context.Context, attempts int, interval time.Duration, check func(attempt int) (bool, error)) (bool, error) {
	if attempts < 1 {
		attempts = 1
	}

	for attempt := 1; attempt <= attempts; attempt++ {
		done, err := check(attempt)
		if err != nil {
			return false, err
		}
		if done {
			return true, nil
		}

		if attempt < attempts {
			select {
			case <-ctx.Done():
				return false, fmt.Errorf("context cancelled after %d attempts: %w", attempt, ctx.Err())
			case <-time.After(interval):
			}
		}
	}

	return false, nil
}
