package idempotency

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// Processor periodically removes expired idempotency records.
type Processor struct {
	store         *Store
	purgeInterval time.Duration
}

func NewProcessor(store *Store) *Processor {
	return &Processor{
		store:         store,
		purgeInterval: time.Hour,
	}
}

// Start begins the purge loop
func (p *Processor) Start(ctx context.Context) {
	logger := log.With().Str("component", "idempotency_processor").Logger()
	logger.Info().Msg("starting idempotency cleanup processor")

	ticker := time.NewTicker(p.purgeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("shutting down idempotency cleanup processor")
			return
		case <-ticker.C:
			purged, err := p.store.PurgeExpired()
			if err != nil {
				logger.Error().Err(err).Msg("failed to purge expired idempotency records")
				continue
			}
			if purged > 0 {
				logger.Info().Int64("purged", purged).Msg("purged expired idempotency records")
			}
		}
	}
}
