// Package retention expires old receipts on a cron schedule. Deletion goes
// through the mediator, not the raw capability, so extension hooks and
// storage listeners observe every expiry like any other delete.
package retention

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"

	attotel "github.com/attestor-io/attestor/internal/otel"
	"github.com/attestor-io/attestor/internal/receipt"
	"github.com/attestor-io/attestor/internal/resource"
)

var tracer = attotel.Tracer("github.com/attestor-io/attestor/internal/retention")

// DefaultSchedule runs the sweep nightly at 03:00 (5-field cron format:
// minute hour day-of-month month day-of-week).
const DefaultSchedule = "0 3 * * *"

const sweepTimeout = 10 * time.Minute

// Sweeper deletes receipts older than the retention horizon.
type Sweeper struct {
	mediator  *resource.Mediator
	retention time.Duration
	cron      *cron.Cron

	now func() time.Time
}

// NewSweeper creates a sweeper expiring receipts older than retentionDays.
func NewSweeper(mediator *resource.Mediator, retentionDays int) *Sweeper {
	return &Sweeper{
		mediator:  mediator,
		retention: time.Duration(retentionDays) * 24 * time.Hour,
		cron:      cron.New(),
		now:       time.Now,
	}
}

// Start schedules the sweep and begins the cron loop. An empty schedule
// uses DefaultSchedule.
func (s *Sweeper) Start(schedule string) error {
	if schedule == "" {
		schedule = DefaultSchedule
	}
	_, err := s.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
		defer cancel()
		if _, err := s.SweepOnce(ctx); err != nil {
			log.Error().Err(err).Msg("retention_sweep_failed")
		}
	})
	if err != nil {
		return fmt.Errorf("scheduling retention sweep %q: %w", schedule, err)
	}
	s.cron.Start()
	return nil
}

// Stop halts the scheduler and waits for a running sweep to complete.
func (s *Sweeper) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

// SweepOnce deletes all receipts past the retention horizon and returns
// the number removed. Entries that cannot be read or parsed are left in
// place and logged; the sweep continues past them.
func (s *Sweeper) SweepOnce(ctx context.Context) (int, error) {
	ctx, span := tracer.Start(ctx, "retention.sweep")
	defer span.End()

	cutoff := s.now().UTC().Add(-s.retention)

	keys, err := s.mediator.Keys(ctx, receipt.Namespace)
	if err != nil {
		return 0, fmt.Errorf("listing receipts for retention: %w", err)
	}

	removed := 0
	for _, key := range keys {
		data, ok, err := s.mediator.Get(ctx, receipt.Namespace, key)
		if err != nil {
			log.Warn().Err(err).Str("receipt_id", key).Msg("retention_read_failed")
			continue
		}
		if !ok {
			continue
		}

		var r receipt.Receipt
		if err := json.Unmarshal(data, &r); err != nil {
			log.Warn().Err(err).Str("receipt_id", key).Msg("retention_skip_unreadable")
			continue
		}
		if !r.Timestamp.Before(cutoff) {
			continue
		}

		if err := s.mediator.Delete(ctx, receipt.Namespace, key); err != nil {
			log.Warn().Err(err).Str("receipt_id", key).Msg("retention_delete_failed")
			continue
		}
		removed++
	}

	span.SetAttributes(attribute.Int("removed", removed))
	if removed > 0 {
		log.Info().Int("removed", removed).Time("cutoff", cutoff).Msg("retention_sweep_done")
	}
	return removed, nil
}
