package queue

import (
	"context"
	"log/slog"
	"time"

	"github.com/cardwise/notifq/pkg/logger"
)

// runReaper recovers items abandoned mid-delivery. A processing entry older
// than the processing timeout means its worker died (or lost its claim)
// without reaching an outcome; the reaper pushes the item back to the ready
// queue for another attempt. Combined with workers clearing the processing
// record only after persisting the outcome, this is what makes delivery
// at-least-once rather than at-most-once.
func (q *Queue) runReaper(ctx context.Context) {
	q.logger.Debug("reaper started")

	for {
		if !sleepCtx(ctx, q.opts.reapInterval) {
			q.logger.Debug("reaper stopping")
			return
		}

		cutoff := time.Now().Add(-q.opts.processingTimeout)
		stale, err := q.storage.ReapProcessing(ctx, cutoff)
		if err != nil {
			if ctx.Err() == nil {
				q.logger.Warn("reap sweep failed", logger.Error(err))
			}
			continue
		}

		for _, entry := range stale {
			if err := q.storage.PushReady(ctx, entry.Item); err != nil {
				q.logger.Error("failed to requeue abandoned item",
					logger.NotificationID(entry.Item.NotificationID),
					logger.WorkerID(entry.WorkerID),
					logger.Error(err),
				)
				continue
			}
			q.logger.Warn("requeued abandoned item",
				logger.NotificationID(entry.Item.NotificationID),
				logger.WorkerID(entry.WorkerID),
				slog.Time("started_at", entry.StartedAt),
			)
		}
	}
}
