// Package queue implements a priority and time based delivery queue for
// notifications. It decides when each notification is attempted, in what
// order, with what concurrency, and how failures are retried; actually
// sending over a channel belongs to the channel package's dispatcher.
//
// Coordination state lives in a shared store behind the Storage interface
// (Redis in production, an in-memory mirror for tests), so multiple
// processes can run queues over the same state and delivery is at-least-once
// across crashes.
//
// # Architecture
//
// A Queue composes five cooperating parts over one Storage:
//
//   - enqueue path: validates the notification, checks user preferences, and
//     places an item in the ready queue (due now) or the scheduled set (due
//     later)
//   - promoter: a single loop moving due scheduled items to the ready queue
//   - worker pool: N goroutines claiming items under a short lease and
//     driving each through the dispatcher to a terminal outcome
//   - reaper: requeues items whose worker died mid-delivery
//   - stats collector: compacts throughput buckets and logs depth snapshots
//
// Ready-queue order is priority tier first, then due time within a tier.
// Failed attempts retry on an escalating backoff table until the per-item
// attempt budget is spent, after which the notification stays failed unless
// RequeueFailedNotifications brings it back.
//
// # Usage
//
//	storage := queue.NewRedisStorage(redisClient)
//	q, err := queue.New(storage, dispatcher, store,
//		queue.WithConcurrency(3),
//		queue.WithMaxAttempts(4),
//	)
//	if err != nil {
//		return err
//	}
//
//	if err := q.Start(ctx); err != nil {
//		return err
//	}
//	defer q.Stop()
//
//	outcome, err := q.Enqueue(ctx, notificationID, notification.PriorityHigh, nil)
//	if err != nil {
//		return err
//	}
//	if outcome.Suppressed {
//		log.Info("user opted out", "reason", outcome.Reason)
//	}
package queue
