package classifier

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// Retry calls fn until it succeeds, returns a non-retryable error, or
// maxRetries extra attempts are spent. Backoff doubles from baseDelay and
// never outlives ctx.
func Retry(ctx context.Context, provider string, maxRetries int, baseDelay time.Duration, retryable func(error) bool, fn func() error) error {
	var err error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		err = fn()
		if err == nil || !retryable(err) || attempt == maxRetries {
			return err
		}

		delay := baseDelay * time.Duration(1<<attempt)
		log.Debug().
			Str("provider", provider).
			Int("attempt", attempt+1).
			Dur("delay", delay).
			Err(err).
			Msg("Retrying classification")

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return err
}
