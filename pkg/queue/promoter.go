package queue

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/cardwise/notifq/pkg/logger"
)

// runPromoter periodically moves due scheduled items into the ready queue.
// Promotion is idempotent (insert is an upsert on the serialized item), so
// overlapping promoters across processes cannot duplicate an item. A storage
// error backs the loop off before retrying.
func (q *Queue) runPromoter(ctx context.Context) {
	q.logger.Debug("promoter started")

	for {
		if !sleepCtx(ctx, promoteWait(q.opts.promoteInterval)) {
			q.logger.Debug("promoter stopping")
			return
		}

		moved, err := q.storage.PromoteDue(ctx, time.Now(), q.opts.promoteBatch)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			q.logger.Warn("promotion sweep failed, backing off",
				logger.Error(err),
				slog.Duration("backoff", q.opts.promoteBackoff),
			)
			if !sleepCtx(ctx, q.opts.promoteBackoff) {
				return
			}
			continue
		}

		if moved > 0 {
			q.logger.Debug("promoted scheduled notifications", slog.Int("count", moved))
		}
	}
}

// promoteWait jitters the interval by up to 10% so promoters in separate
// processes drift apart instead of sweeping in lockstep.
func promoteWait(interval time.Duration) time.Duration {
	jitter := interval / 10
	if jitter <= 0 {
		return interval
	}
	return interval - jitter/2 + rand.N(jitter)
}

// sleepCtx waits for d, returning false if the context ended first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
