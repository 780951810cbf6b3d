package auth

import (
	"context"
	"log/slog"
	"time"

	"github.com/docuconvo/auth/pkg/logger"
)

// TokenPurger removes expired verification tokens.
type TokenPurger interface {
	DeleteExpiredVerificationTokens(ctx context.Context, before time.Time) (int64, error)
}

// StatePurger removes expired OAuth states. State stores without native
// expiry (the in-memory one) implement it.
type StatePurger interface {
	DeleteExpiredStates(ctx context.Context, before time.Time) (int64, error)
}

// RunJanitor purges expired verification tokens, and expired OAuth states
// from every given StatePurger, every interval until ctx is done. Failed
// runs are logged and retried on the next tick.
func RunJanitor(ctx context.Context, store TokenPurger, interval time.Duration, log *slog.Logger, states ...StatePurger) error {
	if log == nil {
		log = logger.Discard()
	}
	if interval <= 0 {
		interval = time.Hour
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			now := time.Now()
			n, err := store.DeleteExpiredVerificationTokens(ctx, now)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				log.ErrorContext(ctx, "purge expired verification tokens", logger.Error(err), logger.Component("janitor"))
			} else if n > 0 {
				log.InfoContext(ctx, "purged expired verification tokens", slog.Int64("count", n), logger.Component("janitor"))
			}

			for _, sp := range states {
				n, err := sp.DeleteExpiredStates(ctx, now)
				if err != nil {
					if ctx.Err() != nil {
						return nil
					}
					log.ErrorContext(ctx, "purge expired oauth states", logger.Error(err), logger.Component("janitor"))
					continue
				}
				if n > 0 {
					log.InfoContext(ctx, "purged expired oauth states", slog.Int64("count", n), logger.Component("janitor"))
				}
			}
		}
	}
}
