package queue

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cardwise/notifq/pkg/channel"
	"github.com/cardwise/notifq/pkg/logger"
	"github.com/cardwise/notifq/pkg/notification"
)

// lifecycleState tracks the queue's start/stop state machine:
// stopped -> running -> draining -> stopped.
type lifecycleState int

const (
	stateStopped lifecycleState = iota
	stateRunning
	stateDraining
)

// Queue is the public facade of the notification delivery queue. It composes
// the ready queue, scheduled set, promoter, worker pool, reaper, and stats
// collector over a shared Storage, and owns every goroutine it starts - there
// are no package-level singletons, so independent Queue instances can coexist.
type Queue struct {
	storage    Storage
	dispatcher *channel.Dispatcher
	store      notification.Store
	opts       *options
	logger     *slog.Logger

	mu     sync.Mutex
	state  lifecycleState
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a delivery queue over the given storage, dispatcher, and
// notification store.
func New(storage Storage, dispatcher *channel.Dispatcher, store notification.Store, opts ...Option) (*Queue, error) {
	if storage == nil {
		return nil, ErrStorageNil
	}
	if dispatcher == nil {
		return nil, ErrDispatcherNil
	}
	if store == nil {
		return nil, ErrStoreNil
	}

	options := defaultOptions()
	for _, opt := range opts {
		opt(options)
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}

	return &Queue{
		storage:    storage,
		dispatcher: dispatcher,
		store:      store,
		opts:       options,
		logger:     options.logger,
	}, nil
}

// Enqueue loads the notification and places a queue item for it. Items due
// now (or with no schedule) go straight to the ready queue; future items wait
// in the scheduled set until the promoter moves them.
//
// A notification the user has opted out of is not queued: the returned
// outcome is tagged Suppressed so callers cannot mistake it for a pending
// delivery.
func (q *Queue) Enqueue(ctx context.Context, notificationID uuid.UUID, priority notification.Priority, scheduledAt *time.Time) (notification.EnqueueOutcome, error) {
	n, err := q.store.FindByID(ctx, notificationID)
	if err != nil {
		return notification.EnqueueOutcome{}, err
	}

	if n.Status.Terminal() {
		return notification.EnqueueOutcome{}, fmt.Errorf("%w: %s is %s", ErrTerminalStatus, n.ID, n.Status)
	}

	if priority == "" {
		priority = n.Priority
	}
	if priority == "" {
		priority = notification.PriorityMedium
	}
	if !priority.Valid() {
		return notification.EnqueueOutcome{}, fmt.Errorf("%w: %q", ErrInvalidPriority, priority)
	}

	prefs, err := q.store.Preferences(ctx, n.UserID)
	if err != nil {
		return notification.EnqueueOutcome{}, fmt.Errorf("failed to load preferences: %w", err)
	}
	if !prefs.Allows(n.Type, n.Channel) {
		q.logger.LogAttrs(ctx, slog.LevelDebug, "notification suppressed by preferences",
			logger.NotificationID(n.ID),
			logger.UserID(n.UserID),
			logger.Channel(n.Channel),
		)
		return notification.Suppressed(n.ID, fmt.Sprintf("user disabled %s/%s notifications", n.Type, n.Channel)), nil
	}

	now := time.Now()
	due := now
	if scheduledAt != nil && scheduledAt.After(now) {
		due = *scheduledAt
	}

	item := Item{
		NotificationID: n.ID,
		UserID:         n.UserID,
		Channel:        n.Channel,
		Priority:       priority,
		ScheduledAt:    due.UnixMilli(),
		Attempts:       n.Attempts,
		MaxAttempts:    q.opts.maxAttempts,
	}

	if due.After(now) {
		err = q.storage.PushScheduled(ctx, item)
	} else {
		err = q.storage.PushReady(ctx, item)
	}
	if err != nil {
		return notification.EnqueueOutcome{}, fmt.Errorf("failed to enqueue notification %s: %w", n.ID, err)
	}

	return notification.Enqueued(n.ID), nil
}

// EnqueueBatch enqueues every request, collecting per-item results. One
// entry's failure never aborts the rest of the batch.
func (q *Queue) EnqueueBatch(ctx context.Context, reqs []BatchRequest) (BatchResult, error) {
	if len(reqs) == 0 {
		return BatchResult{}, ErrNoItemsToEnqueue
	}

	result := BatchResult{Outcomes: make([]notification.EnqueueOutcome, 0, len(reqs))}

	for _, req := range reqs {
		outcome, err := q.Enqueue(ctx, req.NotificationID, req.Priority, req.ScheduledAt)
		if err != nil {
			result.Failed++
			result.Errors = append(result.Errors, BatchError{
				NotificationID: req.NotificationID,
				Error:          err.Error(),
			})
			continue
		}

		result.Outcomes = append(result.Outcomes, outcome)
		if outcome.Suppressed {
			result.Suppressed++
		} else {
			result.Enqueued++
		}
	}

	return result, nil
}

// Start spawns the worker pool, promoter, reaper, and stats collector.
// Starting again after a Stop is allowed and spawns a fresh set; starting a
// running queue returns ErrAlreadyRunning.
func (q *Queue) Start(ctx context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.state != stateStopped {
		return ErrAlreadyRunning
	}

	runCtx, cancel := context.WithCancel(ctx)
	q.cancel = cancel
	q.state = stateRunning

	for i := 0; i < q.opts.concurrency; i++ {
		workerID := uuid.New().String()
		q.wg.Add(1)
		go func() {
			defer q.wg.Done()
			q.runWorker(runCtx, workerID)
		}()
	}

	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		q.runPromoter(runCtx)
	}()

	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		q.runReaper(runCtx)
	}()

	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		q.runStatsCollector(runCtx)
	}()

	q.logger.Info("delivery queue started",
		slog.Int("concurrency", q.opts.concurrency),
		slog.Duration("promote_interval", q.opts.promoteInterval),
	)
	return nil
}

// Stop drains the queue: every worker finishes its current claim before Stop
// returns. No item is left half-processed; unclaimed items stay in storage
// for the next Start.
func (q *Queue) Stop() error {
	q.mu.Lock()
	if q.state != stateRunning {
		q.mu.Unlock()
		return ErrNotRunning
	}
	q.state = stateDraining
	cancel := q.cancel
	q.cancel = nil
	q.mu.Unlock()

	cancel()

	q.logger.Info("delivery queue draining, waiting for in-flight deliveries")
	q.wg.Wait()

	q.mu.Lock()
	q.state = stateStopped
	q.mu.Unlock()

	q.logger.Info("delivery queue stopped")
	return nil
}

// Running reports whether the queue is accepting work from storage.
func (q *Queue) Running() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.state == stateRunning
}

// GetStats merges live queue depth, the processing set, store totals, and the
// rolling hour/day throughput windows.
func (q *Queue) GetStats(ctx context.Context) (Stats, error) {
	ready, scheduled, processing, err := q.storage.QueueCounts(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to count queue contents: %w", err)
	}

	now := time.Now()
	hour, day, err := q.storage.StatsBuckets(ctx, now)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to read stats buckets: %w", err)
	}

	sent, err := q.store.CountByStatus(ctx, notification.StatusSent)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to count sent notifications: %w", err)
	}
	failed, err := q.store.CountByStatus(ctx, notification.StatusFailed)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to count failed notifications: %w", err)
	}

	return Stats{
		Ready:       ready,
		Scheduled:   scheduled,
		Processing:  processing,
		SentTotal:   sent,
		FailedTotal: failed,
		Hour:        hour,
		Day:         day,
		AvgLatency:  hour.AvgLatency(),
		ErrorRate:   hour.ErrorRate(),
	}, nil
}

// GetQueueDetails returns a bounded snapshot of pending, scheduled, and
// in-flight items for backlog inspection without log access.
func (q *Queue) GetQueueDetails(ctx context.Context, limit int) (Details, error) {
	pending, err := q.storage.ListReady(ctx, limit)
	if err != nil {
		return Details{}, err
	}
	scheduled, err := q.storage.ListScheduled(ctx, limit)
	if err != nil {
		return Details{}, err
	}
	processing, err := q.storage.ListProcessing(ctx, limit)
	if err != nil {
		return Details{}, err
	}

	return Details{
		Pending:    pending,
		Scheduled:  scheduled,
		Processing: processing,
	}, nil
}

// CleanupCompleted removes processing-set entries older than maxAge (crash
// recovery for claims nothing will ever clear) and purges store records for
// notifications completed before the cutoff.
func (q *Queue) CleanupCompleted(ctx context.Context, maxAge time.Duration) (CleanupResult, error) {
	cutoff := time.Now().Add(-maxAge)

	reaped, err := q.storage.ReapProcessing(ctx, cutoff)
	if err != nil {
		return CleanupResult{}, fmt.Errorf("failed to clear stale processing entries: %w", err)
	}

	removed, err := q.store.DeleteCompletedBefore(ctx, cutoff)
	if err != nil {
		return CleanupResult{ProcessingCleared: len(reaped)}, fmt.Errorf("failed to purge completed notifications: %w", err)
	}

	return CleanupResult{
		ProcessingCleared: len(reaped),
		StoreRemoved:      removed,
	}, nil
}

// RequeueFailedNotifications re-enqueues failed notifications updated within
// the window whose attempt count is still below the budget, charging one
// attempt slot and applying a fresh backoff delay. This is the only path by
// which a permanently failed notification returns to the queue.
func (q *Queue) RequeueFailedNotifications(ctx context.Context, maxAge time.Duration) (int, error) {
	since := time.Now().Add(-maxAge)

	failed, err := q.store.ListByStatus(ctx, notification.StatusFailed, since, q.opts.promoteBatch)
	if err != nil {
		return 0, fmt.Errorf("failed to list failed notifications: %w", err)
	}

	requeued := 0
	for _, n := range failed {
		if n.Attempts >= q.opts.maxAttempts {
			continue
		}

		attempts := n.Attempts + 1
		delay := q.retryDelay(attempts)

		applied, err := q.store.UpdateStatusIf(ctx, n.ID, notification.StatusPending, "", notification.StatusFailed)
		if err != nil || !applied {
			if err != nil {
				q.logger.LogAttrs(ctx, slog.LevelWarn, "failed to reset notification for requeue",
					logger.NotificationID(n.ID),
					logger.Error(err),
				)
			}
			continue
		}

		if err := q.store.SetAttempts(ctx, n.ID, attempts); err != nil {
			q.logger.LogAttrs(ctx, slog.LevelWarn, "failed to persist attempt count",
				logger.NotificationID(n.ID),
				logger.Error(err),
			)
		}

		item := Item{
			NotificationID: n.ID,
			UserID:         n.UserID,
			Channel:        n.Channel,
			Priority:       n.Priority,
			ScheduledAt:    time.Now().Add(delay).UnixMilli(),
			Attempts:       attempts,
			MaxAttempts:    q.opts.maxAttempts,
		}
		if err := q.storage.PushScheduled(ctx, item); err != nil {
			q.logger.LogAttrs(ctx, slog.LevelError, "failed to requeue notification",
				logger.NotificationID(n.ID),
				logger.Error(err),
			)
			continue
		}

		_ = q.store.LogAction(ctx, notification.ActionLog{
			NotificationID: n.ID,
			UserID:         n.UserID,
			Action:         notification.ActionRequeued,
			Metadata:       map[string]any{"attempts": attempts, "delay": delay.String()},
		})
		requeued++
	}

	return requeued, nil
}

// retryDelay returns the backoff before the given attempt number, clamped to
// the last table entry so attempts past the table keep the longest delay.
func (q *Queue) retryDelay(attempt int) time.Duration {
	idx := attempt - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(q.opts.retryDelays) {
		idx = len(q.opts.retryDelays) - 1
	}
	return q.opts.retryDelays[idx]
}
