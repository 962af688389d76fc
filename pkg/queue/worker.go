package queue

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/cardwise/notifq/pkg/channel"
	"github.com/cardwise/notifq/pkg/logger"
)

// runWorker is one member of the delivery pool. Each iteration claims at most
// one item under the shared lease, processes it to a terminal outcome, and
// loops. Workers never exchange items in memory; all handoff goes through
// storage.
func (q *Queue) runWorker(ctx context.Context, workerID string) {
	log := q.logger.With(logger.WorkerID(workerID))
	log.Debug("worker started")

	for {
		select {
		case <-ctx.Done():
			log.Debug("worker stopping")
			return
		default:
		}

		item, claimed := q.claimOne(ctx, workerID, log)
		if !claimed {
			q.idleWait(ctx)
			continue
		}

		q.process(ctx, *item, workerID, log)
	}
}

// claimOne takes the claim lease, pops the highest-priority due item, and
// registers it in the processing set. The lease covers only this critical
// section: pop and record happen under it, delivery does not.
func (q *Queue) claimOne(ctx context.Context, workerID string, log *slog.Logger) (*Item, bool) {
	acquired, err := q.storage.AcquireLease(ctx, workerID, q.opts.leaseTTL)
	if err != nil {
		if ctx.Err() == nil {
			log.Warn("failed to acquire claim lease", logger.Error(err))
		}
		return nil, false
	}
	if !acquired {
		return nil, false
	}
	defer func() {
		if err := q.storage.ReleaseLease(ctx, workerID); err != nil && ctx.Err() == nil {
			log.Warn("failed to release claim lease", logger.Error(err))
		}
	}()

	item, err := q.storage.PopReady(ctx)
	if err != nil {
		if !errors.Is(err, ErrNoItemToClaim) && ctx.Err() == nil {
			log.Warn("failed to pop ready item", logger.Error(err))
		}
		return nil, false
	}

	entry := ProcessingEntry{
		Item:      *item,
		WorkerID:  workerID,
		StartedAt: time.Now(),
	}
	if err := q.storage.RecordProcessing(ctx, entry); err != nil {
		// The item is already popped; deliver it anyway rather than lose it.
		log.Warn("failed to record processing entry",
			logger.NotificationID(item.NotificationID),
			logger.Error(err),
		)
	}

	return item, true
}

// process drives one claimed item to an outcome: delivered, scheduled for
// retry, or permanently failed. The processing record is cleared last, after
// the outcome has been persisted, so a crash at any earlier point leaves a
// record the reaper can recover.
//
// Delivery runs on a fresh timeout independent of the worker's lifecycle
// context, so draining lets in-flight sends finish instead of aborting them.
func (q *Queue) process(ctx context.Context, item Item, workerID string, log *slog.Logger) {
	start := time.Now()

	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), q.opts.processingTimeout)
	defer cancel()

	result, err := q.dispatcher.SendNotification(sendCtx, item.NotificationID)

	latency := time.Since(start)
	switch {
	case err == nil:
		log.Info("notification delivered",
			logger.NotificationID(item.NotificationID),
			logger.Channel(item.Channel),
			logger.Attempt(item.Attempts+1),
			logger.Duration(latency),
			slog.String("message_id", result.MessageID),
		)
		q.recordOutcome(sendCtx, OutcomeSuccess, latency, log)

	case errors.Is(err, channel.ErrNotificationExpired),
		errors.Is(err, channel.ErrAlreadyFinalized):
		// Concluded without a delivery attempt; no retry and no failure mark.
		log.Info("notification skipped",
			logger.NotificationID(item.NotificationID),
			logger.Error(err),
		)
		q.recordOutcome(sendCtx, OutcomeSkipped, latency, log)

	default:
		q.handleFailure(sendCtx, item, err, log)
		q.recordOutcome(sendCtx, OutcomeFailure, latency, log)
	}

	if err := q.storage.ClearProcessing(sendCtx, item); err != nil {
		log.Warn("failed to clear processing entry",
			logger.NotificationID(item.NotificationID),
			logger.Error(err),
		)
	}
}

// handleFailure persists the failed attempt and decides between a scheduled
// retry and a permanent failure. A transient error retries while attempts
// remain; a permanent one fails immediately regardless of remaining budget.
func (q *Queue) handleFailure(ctx context.Context, item Item, sendErr error, log *slog.Logger) {
	next := item.Attempts + 1

	if err := q.store.SetAttempts(ctx, item.NotificationID, next); err != nil {
		log.Warn("failed to persist attempt count",
			logger.NotificationID(item.NotificationID),
			logger.Error(err),
		)
	}
	if err := q.dispatcher.MarkFailed(ctx, item.NotificationID, sendErr.Error()); err != nil {
		log.Warn("failed to mark notification failed",
			logger.NotificationID(item.NotificationID),
			logger.Error(err),
		)
	}

	if !retryable(sendErr) || next >= item.MaxAttempts {
		log.Error("notification permanently failed",
			logger.NotificationID(item.NotificationID),
			logger.Channel(item.Channel),
			logger.Attempt(next),
			logger.Error(sendErr),
		)
		return
	}

	delay := q.retryDelay(next)
	retry := item
	retry.Attempts = next
	retry.ScheduledAt = time.Now().Add(delay).UnixMilli()

	if err := q.storage.PushScheduled(ctx, retry); err != nil {
		log.Error("failed to schedule retry",
			logger.NotificationID(item.NotificationID),
			logger.Error(err),
		)
		return
	}

	log.Warn("delivery failed, retry scheduled",
		logger.NotificationID(item.NotificationID),
		logger.Channel(item.Channel),
		logger.Attempt(next),
		slog.Duration("retry_in", delay),
		logger.Error(sendErr),
	)
}

// retryable reports whether a delivery error warrants another attempt.
// The dispatcher tags provider failures and store infrastructure errors as
// transient; timeouts and unavailable channels are treated the same. What
// remains is final, such as a record that no longer exists.
func retryable(err error) bool {
	return channel.IsTransient(err) ||
		errors.Is(err, channel.ErrChannelUnavailable) ||
		errors.Is(err, context.DeadlineExceeded)
}

func (q *Queue) recordOutcome(ctx context.Context, kind OutcomeKind, latency time.Duration, log *slog.Logger) {
	if err := q.storage.RecordOutcome(ctx, time.Now(), kind, latency); err != nil {
		log.Warn("failed to record outcome", logger.Error(err))
	}
}

// idleWait sleeps for the idle interval plus a random jitter so workers that
// found the queue empty at the same moment do not stampede the lease
// together. Responsive to shutdown.
func (q *Queue) idleWait(ctx context.Context) {
	d := q.opts.idleSleep
	if q.opts.idleJitter > 0 {
		d += rand.N(q.opts.idleJitter)
	}

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
