package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"franchise-subscription/internal/infra/metrics"
	"franchise-subscription/internal/usecase"
)

// ExpiryWorker periodically flips expired subscriptions via the use case.
// The status column is denormalized; this sweep keeps it and the status
// gauge aligned with the real ends_at-vs-now truth.
type ExpiryWorker struct {
	interval time.Duration
	subUC    usecase.SubscriptionUseCase
	log      *zerolog.Logger
}

func NewExpiryWorker(interval time.Duration, subUC usecase.SubscriptionUseCase, logger *zerolog.Logger) *ExpiryWorker {
	exprLog := logger.With().Str("component", "ExpiryWorker").Logger()
	return &ExpiryWorker{
		interval: interval,
		subUC:    subUC,
		log:      &exprLog,
	}
}

func (w *ExpiryWorker) Run(ctx context.Context) error {
	w.log.Info().Msg("Starting expiry worker")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping expiry worker")
			return ctx.Err()
		case <-ticker.C:
			n, err := w.subUC.ExpireDue(ctx)
			if err != nil {
				w.log.Error().Err(err).Msg("expiry worker error")
				continue
			}
			if n > 0 {
				metrics.IncSubscriptionsExpired(n)
				w.log.Info().Int("count", n).Msg("expired subscriptions flipped")
			}
			if counts, err := w.subUC.CountByStatus(ctx); err == nil {
				metrics.SetSubscriptionsTotal(counts)
			}
		}
	}
}
