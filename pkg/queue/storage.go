package queue

import (
	"context"
	"time"
)

// The queue's coordination state lives in a shared store external to the
// process; workers hold no shared mutable memory among themselves, so
// correctness rests on the storage's atomic primitives: atomic pop-minimum,
// compare-and-set lease acquisition, atomic counter increments. The role
// interfaces below encapsulate persistence per component, following the same
// split the rest of this codebase uses for its repositories.

// EnqueuerStorage defines the operations used to add items to the queue.
type EnqueuerStorage interface {
	// PushReady inserts the item into the ready queue, scored by priority
	// tier and due time. Inserting an identical item is an upsert: the same
	// serialized record can never occupy two ready slots.
	PushReady(ctx context.Context, item Item) error

	// PushScheduled inserts the item into the scheduled set keyed by its
	// due time.
	PushScheduled(ctx context.Context, item Item) error
}

// PromoterStorage defines the operations used to move due items.
type PromoterStorage interface {
	// PromoteDue atomically moves up to limit scheduled items whose due time
	// is at or before now into the ready queue, re-scoring each one, and
	// returns the number moved. Insert and remove are applied together.
	PromoteDue(ctx context.Context, now time.Time, limit int) (int, error)
}

// WorkerStorage defines the operations used to claim and track items.
type WorkerStorage interface {
	// AcquireLease attempts to take the short-lived claim mutex identifying
	// the caller as owner. Returns false without error on contention.
	// The lease is best-effort (TTL expiry, no fencing token): an expired
	// lease on a still-running worker can cause a duplicate claim, which the
	// at-least-once delivery contract absorbs.
	AcquireLease(ctx context.Context, owner string, ttl time.Duration) (bool, error)

	// ReleaseLease frees the claim mutex if still held by owner.
	ReleaseLease(ctx context.Context, owner string) error

	// PopReady atomically removes and returns the lowest-scored ready item.
	// Returns ErrNoItemToClaim when the ready queue is empty.
	PopReady(ctx context.Context) (*Item, error)

	// RecordProcessing registers a claimed item in the processing set.
	RecordProcessing(ctx context.Context, entry ProcessingEntry) error

	// ClearProcessing removes the item's processing record.
	ClearProcessing(ctx context.Context, item Item) error

	// ReapProcessing removes and returns processing entries started before
	// the cutoff, so abandoned claims can be requeued.
	ReapProcessing(ctx context.Context, cutoff time.Time) ([]ProcessingEntry, error)
}

// StatsStorage defines the operations used to track throughput.
type StatsStorage interface {
	// RecordOutcome increments the hour and day buckets for one processed
	// item. Buckets expire after their retention window (25h / 8d).
	RecordOutcome(ctx context.Context, at time.Time, kind OutcomeKind, latency time.Duration) error

	// StatsBuckets returns the hour and day buckets containing at.
	StatsBuckets(ctx context.Context, at time.Time) (hour, day Bucket, err error)

	// QueueCounts returns the current ready, scheduled, and processing sizes.
	QueueCounts(ctx context.Context) (ready, scheduled, processing int64, err error)

	// CompactStats drops buckets past their retention window. Backends with
	// native key expiry implement this as a no-op.
	CompactStats(ctx context.Context, now time.Time) error
}

// ListerStorage defines bounded read-only views for GetQueueDetails.
type ListerStorage interface {
	ListReady(ctx context.Context, limit int) ([]Item, error)
	ListScheduled(ctx context.Context, limit int) ([]Item, error)
	ListProcessing(ctx context.Context, limit int) ([]ProcessingEntry, error)
}

// Storage is the full persistence contract the queue facade requires.
type Storage interface {
	EnqueuerStorage
	PromoterStorage
	WorkerStorage
	StatsStorage
	ListerStorage
}

// OutcomeKind classifies a processed item for the stats counters.
type OutcomeKind int

const (
	// OutcomeSuccess marks a delivered item.
	OutcomeSuccess OutcomeKind = iota
	// OutcomeFailure marks a failed delivery attempt, retried or not.
	OutcomeFailure
	// OutcomeSkipped marks an item concluded without a delivery attempt
	// (expired or already finalized).
	OutcomeSkipped
)
