package queue

import (
	"context"
	"log/slog"
	"time"

	"github.com/cardwise/notifq/pkg/logger"
)

// runStatsCollector periodically compacts expired stats buckets and logs a
// queue depth snapshot. Counters themselves are written inline by workers;
// this loop only handles retention and visibility.
func (q *Queue) runStatsCollector(ctx context.Context) {
	q.logger.Debug("stats collector started")

	for {
		if !sleepCtx(ctx, q.opts.statsInterval) {
			q.logger.Debug("stats collector stopping")
			return
		}

		if err := q.storage.CompactStats(ctx, time.Now()); err != nil {
			if ctx.Err() == nil {
				q.logger.Warn("stats compaction failed", logger.Error(err))
			}
			continue
		}

		ready, scheduled, processing, err := q.storage.QueueCounts(ctx)
		if err != nil {
			if ctx.Err() == nil {
				q.logger.Warn("failed to read queue counts", logger.Error(err))
			}
			continue
		}

		q.logger.Debug("queue snapshot",
			slog.Int64("ready", ready),
			slog.Int64("scheduled", scheduled),
			slog.Int64("processing", processing),
		)
	}
}
