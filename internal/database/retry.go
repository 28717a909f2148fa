package database

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

var (
	connectAttempts = 5
	connectBackoff  = 500 * time.Millisecond
)

// retry runs ping until it succeeds, doubling the wait between attempts.
func retry(ctx context.Context, log zerolog.Logger, ping func(ctx context.Context) error) error {
	wait := connectBackoff
	var err error
	for attempt := 1; ; attempt++ {
		if err = ping(ctx); err == nil {
			return nil
		}
		if attempt == connectAttempts {
			return err
		}
		log.Warn().Err(err).Int("attempt", attempt).Dur("retry_in", wait).Msg("Connection not ready")

		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return ctx.Err()
		}
		wait *= 2
	}
}
