package retry

import (
	"context"
	"time"
)

// Do runs fn with bounded exponential backoff: up to attempts tries,
// sleeping initial, 2*initial, ... capped at max between tries. The
// last error is returned when every attempt fails. Context cancellation
// aborts the wait, not a running fn.
func Do(ctx context.Context, attempts int, initial, max time.Duration, fn func() error) error {
	if attempts <= 1 {
		return fn()
	}

	var err error
	d := initial
	for i := 0; i < attempts; i++ {
		if i > 0 {
			select {
			case <-time.After(d):
			case <-ctx.Done():
				return ctx.Err()
			}
			if d < max {
				d *= 2
				if d > max {
					d = max
				}
			}
		}
		if err = fn(); err == nil {
			return nil
		}
	}
	return err
}
