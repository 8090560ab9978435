package api

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// detachedWorkTimeout bounds a single webhook's background work.
const detachedWorkTimeout = 2 * time.Minute

// detach runs a webhook's side-effecting work after the acknowledgment has
// been sent. The ack is not a completion signal: the work carries its own
// error boundary, and a failure here is logged, never surfaced to the caller
// that already got its 200.
func detach(trigger string, fn func(ctx context.Context) error) {
	workID := uuid.NewString()
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Error().
					Str("trigger", trigger).
					Str("work_id", workID).
					Interface("panic", r).
					Msg("Background work panicked")
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), detachedWorkTimeout)
		defer cancel()

		if err := fn(ctx); err != nil {
			log.Error().Err(err).
				Str("trigger", trigger).
				Str("work_id", workID).
				Msg("Background work failed")
		}
	}()
}
