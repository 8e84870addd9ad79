package worker

// expiry_sweep.go
// Background goroutine that periodically finds in-stock batches nearing
// expiry and enqueues one digest per store. A Redis marker keeps each store
// to one digest per day even with several replicas running the sweep.

import (
	"context"
	"time"

	"pharmapos/internal/repository"

	"github.com/rs/zerolog/log"
)

const expiryMarkerPrefix = "alerts:expiry:"

// ExpirySweepConfig holds all dependencies for the sweep goroutine.
type ExpirySweepConfig struct {
	Products   repository.ProductRepository
	Dispatcher *Dispatcher
	Interval   time.Duration
	// Window is how far ahead of today a batch counts as expiring.
	Window time.Duration
	// Paused, when set and true, skips the tick (e.g. the SMTP breaker is open).
	Paused func() bool
}

// StartExpirySweep runs one sweep immediately, then one per Interval until ctx ends.
func StartExpirySweep(ctx context.Context, cfg ExpirySweepConfig) {
	if cfg.Interval <= 0 {
		cfg.Interval = 24 * time.Hour
	}
	go func() {
		ticker := time.NewTicker(cfg.Interval)
		defer ticker.Stop()

		log.Info().Dur("interval", cfg.Interval).Msg("expiry_sweep: started")
		sweepExpiring(ctx, cfg, time.Now())

		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("expiry_sweep: shutting down")
				return
			case now := <-ticker.C:
				sweepExpiring(ctx, cfg, now)
			}
		}
	}()
}

// sweepExpiring returns the number of store digests enqueued.
func sweepExpiring(ctx context.Context, cfg ExpirySweepConfig, now time.Time) int {
	if cfg.Paused != nil && cfg.Paused() {
		log.Debug().Msg("expiry_sweep: paused, skipping tick")
		return 0
	}

	batches, err := cfg.Products.ListExpiring(ctx, now.Add(cfg.Window))
	if err != nil {
		log.Error().Err(err).Msg("expiry_sweep: failed to query expiring batches")
		return 0
	}
	if len(batches) == 0 {
		return 0
	}

	byStore := make(map[string][]ExpiringBatch)
	var order []string
	for _, b := range batches {
		storeID := b.StoreID.String()
		if _, seen := byStore[storeID]; !seen {
			order = append(order, storeID)
		}
		byStore[storeID] = append(byStore[storeID], ExpiringBatch{
			ProductID:  b.ID.String(),
			Name:       b.Name,
			BatchNo:    b.BatchNo,
			ExpiryDate: b.ExpiryDate.Format("2006-01-02"),
			Quantity:   b.Quantity,
		})
	}

	day := now.UTC().Format("2006-01-02")
	enqueued := 0
	for _, storeID := range order {
		first, err := cfg.Dispatcher.MarkOnce(ctx, expiryMarkerPrefix+storeID+":"+day, 24*time.Hour)
		if err != nil {
			log.Warn().Err(err).Str("store_id", storeID).Msg("expiry_sweep: marker check failed")
			continue
		}
		if !first {
			continue
		}
		if err := cfg.Dispatcher.EnqueueExpiry(ctx, ExpiryPayload{StoreID: storeID, Batches: byStore[storeID]}); err != nil {
			log.Error().Err(err).Str("store_id", storeID).Msg("expiry_sweep: enqueue failed")
			continue
		}
		enqueued++
	}
	log.Info().Int("batches", len(batches)).Int("stores", enqueued).Msg("expiry_sweep: digests enqueued")
	return enqueued
}
