package notify

import (
	"context"
	"time"

	"github.com/Outercircl-dev/backend/internal/domain"
	"github.com/Outercircl-dev/backend/internal/logger"
	"github.com/Outercircl-dev/backend/internal/metrics"
	"github.com/Outercircl-dev/backend/internal/repository"
)

type DispatcherConfig struct {
	BatchSize   int
	Lease       time.Duration
	MaxAttempts int32
	DedupTTL    time.Duration
}

func DefaultDispatcherConfig() DispatcherConfig {
	return DispatcherConfig{
		BatchSize:   100,
		Lease:       time.Minute,
		MaxAttempts: 5,
		DedupTTL:    24 * time.Hour,
	}
}

// DispatchStats summarizes one outbox sweep.
type DispatchStats struct {
	Claimed    int
	Delivered  int
	Failed     int
	Duplicates int
}

// bookkeepingTimeout bounds the outbox and dedup writes that follow an emit.
// They run even when the delivery context has already expired.
const bookkeepingTimeout = 5 * time.Second

// Dispatcher moves outbox events to the emitters with at-least-once
// semantics. An event is claimed before emission and marked dispatched after;
// a failure releases the claim and counts an attempt.
type Dispatcher struct {
	outbox  repository.OutboxRepository
	emitter Emitter
	dedup   Deduper
	cfg     DispatcherConfig
	metrics *metrics.Metrics
}

func NewDispatcher(outbox repository.OutboxRepository, emitter Emitter, dedup Deduper, cfg DispatcherConfig, m *metrics.Metrics) *Dispatcher {
	def := DefaultDispatcherConfig()
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.Lease <= 0 {
		cfg.Lease = def.Lease
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.DedupTTL <= 0 {
		cfg.DedupTTL = def.DedupTTL
	}
	if dedup == nil {
		dedup = NoopDeduper{}
	}
	return &Dispatcher{outbox: outbox, emitter: emitter, dedup: dedup, cfg: cfg, metrics: m}
}

// Deliver dispatches events that were just committed. Events another
// dispatcher already holds are skipped; the sweep covers anything left.
func (d *Dispatcher) Deliver(ctx context.Context, events []domain.ParticipationEvent) {
	for _, e := range events {
		claimed, err := d.outbox.Claim(ctx, e.ID, d.cfg.Lease)
		if err != nil {
			logger.Warn("Failed to claim participation event", "eventID", e.ID, "error", err)
			d.metrics.IncEventDispatch(metrics.DispatchSkipped)
			continue
		}
		if !claimed {
			d.metrics.IncEventDispatch(metrics.DispatchSkipped)
			continue
		}
		d.dispatch(ctx, e)
	}
}

// DispatchPending claims one batch of undelivered events and dispatches them.
func (d *Dispatcher) DispatchPending(ctx context.Context) (DispatchStats, error) {
	var stats DispatchStats
	events, err := d.outbox.ClaimPending(ctx, d.cfg.BatchSize, d.cfg.MaxAttempts, d.cfg.Lease)
	if err != nil {
		return stats, err
	}
	stats.Claimed = len(events)
	for _, e := range events {
		switch d.dispatch(ctx, e) {
		case metrics.DispatchDelivered:
			stats.Delivered++
		case metrics.DispatchDuplicate:
			stats.Duplicates++
		default:
			stats.Failed++
		}
	}
	return stats, nil
}

func (d *Dispatcher) dispatch(ctx context.Context, e domain.ParticipationEvent) string {
	result := d.deliverOne(ctx, e)
	d.metrics.IncEventDispatch(result)
	return result
}

func (d *Dispatcher) deliverOne(ctx context.Context, e domain.ParticipationEvent) string {
	bookCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), bookkeepingTimeout)
	defer cancel()

	delivered, err := d.dedup.Delivered(ctx, e.ID)
	if err != nil {
		logger.Warn("Event dedup unavailable, delivering anyway", "eventID", e.ID, "error", err)
		delivered = false
	}
	if delivered {
		// Emitted earlier; only the outbox update was lost.
		if err := d.outbox.MarkDispatched(bookCtx, e.ID); err != nil {
			logger.Error("Failed to mark duplicate event dispatched", "eventID", e.ID, "error", err)
		}
		return metrics.DispatchDuplicate
	}

	if err := d.emitter.Emit(ctx, e); err != nil {
		logger.Warn("Participation event delivery failed", "eventID", e.ID, "type", e.Type, "attempt", e.Attempts+1, "error", err)
		if err := d.outbox.MarkFailed(bookCtx, e.ID, err.Error()); err != nil {
			logger.Error("Failed to record event delivery failure", "eventID", e.ID, "error", err)
		}
		return metrics.DispatchFailed
	}

	if err := d.dedup.MarkDelivered(bookCtx, e.ID, d.cfg.DedupTTL); err != nil {
		logger.Warn("Failed to record event delivery in dedup store", "eventID", e.ID, "error", err)
	}
	if err := d.outbox.MarkDispatched(bookCtx, e.ID); err != nil {
		logger.Error("Failed to mark event dispatched", "eventID", e.ID, "error", err)
	}
	return metrics.DispatchDelivered
}
