package queue

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cardwise/notifq/pkg/notification"
)

// Item is the unit the scheduler manipulates. It references a notification by
// id and is self-contained: any consumer can reconstruct full retry state
// from this record alone, independent of the notification store.
//
// An Item is created at enqueue time and destroyed when its delivery attempt
// concludes; a retry is a new Item with an incremented attempt counter.
type Item struct {
	NotificationID uuid.UUID             `json:"notification_id"`
	UserID         uuid.UUID             `json:"user_id"`
	Channel        notification.Channel  `json:"channel"`
	Priority       notification.Priority `json:"priority"`
	ScheduledAt    int64                 `json:"scheduled_at"` // unix milliseconds
	Attempts       int                   `json:"attempts"`
	MaxAttempts    int                   `json:"max_attempts"`
}

// Key uniquely identifies one incarnation of a queue item. A retried item
// carries a different attempt counter and therefore a different key.
func (i Item) Key() string {
	return fmt.Sprintf("%s:%d", i.NotificationID, i.Attempts)
}

// Due returns the item's eligibility time.
func (i Item) Due() time.Time {
	return time.UnixMilli(i.ScheduledAt)
}

// priorityRank orders tiers for the ready queue: lower rank pops first.
// Unknown priorities sort with medium rather than failing the item.
func priorityRank(p notification.Priority) int64 {
	switch p {
	case notification.PriorityUrgent:
		return 0
	case notification.PriorityHigh:
		return 1
	case notification.PriorityLow:
		return 3
	default:
		return 2
	}
}

// tierSpan separates priority tiers in the ready-queue score. It exceeds any
// unix-millisecond timestamp this century while keeping every score exactly
// representable in a float64, so a higher tier unconditionally outranks a
// lower one and, within a tier, the earlier due time pops first.
const tierSpan = int64(1e15)

// ReadyScore computes the ready-queue ordering score for a priority and due
// time. The ready queue pops minimum score; ties break deterministically on
// the serialized member (lexicographic), never on insertion randomness.
func ReadyScore(p notification.Priority, dueMilli int64) float64 {
	return float64(priorityRank(p)*tierSpan + dueMilli)
}

// ProcessingEntry records a claimed item, who claimed it, and when - the
// reaper uses this to recover items from workers that died mid-delivery.
type ProcessingEntry struct {
	Item      Item      `json:"item"`
	WorkerID  string    `json:"worker_id"`
	StartedAt time.Time `json:"started_at"`
}

// BatchRequest is a single entry of an EnqueueBatch call.
type BatchRequest struct {
	NotificationID uuid.UUID             `json:"notification_id"`
	Priority       notification.Priority `json:"priority"`
	ScheduledAt    *time.Time            `json:"scheduled_at,omitempty"`
}

// BatchError describes one failed entry of a batch.
type BatchError struct {
	NotificationID uuid.UUID `json:"notification_id"`
	Error          string    `json:"error"`
}

// BatchResult summarizes a batch enqueue. One entry's failure never aborts
// the rest of the batch.
type BatchResult struct {
	Enqueued   int                           `json:"enqueued"`
	Suppressed int                           `json:"suppressed"`
	Failed     int                           `json:"failed"`
	Outcomes   []notification.EnqueueOutcome `json:"outcomes"`
	Errors     []BatchError                  `json:"errors,omitempty"`
}

// Details is a bounded snapshot of queue contents for observability.
type Details struct {
	Pending    []Item            `json:"pending"`
	Scheduled  []Item            `json:"scheduled"`
	Processing []ProcessingEntry `json:"processing"`
}

// Bucket holds throughput counters for one stats window.
type Bucket struct {
	Processed        int64 `json:"processed"`
	Succeeded        int64 `json:"succeeded"`
	Failed           int64 `json:"failed"`
	ProcessingMillis int64 `json:"processing_millis"`
}

// AvgLatency returns the mean per-item processing time in the window.
func (b Bucket) AvgLatency() time.Duration {
	if b.Processed == 0 {
		return 0
	}
	return time.Duration(b.ProcessingMillis/b.Processed) * time.Millisecond
}

// ErrorRate returns the failed fraction of processed items, 0..1.
func (b Bucket) ErrorRate() float64 {
	if b.Processed == 0 {
		return 0
	}
	return float64(b.Failed) / float64(b.Processed)
}

// Stats merges live queue depth with store totals and rolling windows.
type Stats struct {
	Ready       int64         `json:"ready"`
	Scheduled   int64         `json:"scheduled"`
	Processing  int64         `json:"processing"`
	SentTotal   int64         `json:"sent_total"`
	FailedTotal int64         `json:"failed_total"`
	Hour        Bucket        `json:"hour"`
	Day         Bucket        `json:"day"`
	AvgLatency  time.Duration `json:"avg_latency"`
	ErrorRate   float64       `json:"error_rate"`
}

// CleanupResult reports what CleanupCompleted removed.
type CleanupResult struct {
	ProcessingCleared int `json:"processing_cleared"`
	StoreRemoved      int `json:"store_removed"`
}
