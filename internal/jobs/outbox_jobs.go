package jobs

import (
	"context"
	"time"

	"github.com/Outercircl-dev/backend/internal/logger"
)

const jobTimeout = 5 * time.Minute

// DispatchOutbox delivers participation events that were not delivered
// inline, including events whose earlier delivery failed.
func (jr *JobRunner) DispatchOutbox() {
	jr.runWithRecovery("DispatchOutbox", func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()

		stats, err := jr.dispatcher.DispatchPending(ctx)
		if err != nil {
			logger.Error("Failed to dispatch outbox", "error", err)
			return
		}
		if stats.Claimed > 0 {
			logger.Info("Dispatched outbox events",
				"claimed", stats.Claimed,
				"delivered", stats.Delivered,
				"failed", stats.Failed,
				"duplicates", stats.Duplicates)
		}
	})
}

// PurgeOutbox deletes dispatched events older than the retention window.
// Undelivered events are kept regardless of age.
func (jr *JobRunner) PurgeOutbox() {
	jr.runWithRecovery("PurgeOutbox", func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()

		before := jr.now().UTC().Add(-jr.config.Outbox.Retention())
		n, err := jr.outbox.PurgeDispatched(ctx, before)
		if err != nil {
			logger.Error("Failed to purge outbox", "error", err)
			return
		}
		logger.Info("Purged dispatched outbox events", "count", n, "before", before)
	})
}
