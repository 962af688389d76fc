package queue

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardwise/notifq/pkg/notification"
)

func testItem(priority notification.Priority, due time.Time) Item {
	return Item{
		NotificationID: uuid.New(),
		UserID:         uuid.New(),
		Channel:        notification.ChannelInApp,
		Priority:       priority,
		ScheduledAt:    due.UnixMilli(),
		MaxAttempts:    4,
	}
}

func TestMemoryStoragePopOrder(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	storage := NewMemoryStorage()
	now := time.Now()

	low := testItem(notification.PriorityLow, now.Add(-time.Hour))
	medium := testItem(notification.PriorityMedium, now.Add(-time.Minute))
	urgentLate := testItem(notification.PriorityUrgent, now)
	urgentEarly := testItem(notification.PriorityUrgent, now.Add(-time.Minute))

	for _, item := range []Item{low, medium, urgentLate, urgentEarly} {
		require.NoError(t, storage.PushReady(ctx, item))
	}

	want := []uuid.UUID{
		urgentEarly.NotificationID,
		urgentLate.NotificationID,
		medium.NotificationID,
		low.NotificationID,
	}
	for _, id := range want {
		item, err := storage.PopReady(ctx)
		require.NoError(t, err)
		assert.Equal(t, id, item.NotificationID)
	}

	_, err := storage.PopReady(ctx)
	assert.ErrorIs(t, err, ErrNoItemToClaim)
}

func TestMemoryStoragePushReadyUpsert(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	storage := NewMemoryStorage()
	item := testItem(notification.PriorityHigh, time.Now())

	require.NoError(t, storage.PushReady(ctx, item))
	require.NoError(t, storage.PushReady(ctx, item))

	ready, _, _, err := storage.QueueCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), ready)
}

func TestMemoryStoragePromoteDue(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	storage := NewMemoryStorage()
	now := time.Now()

	due := testItem(notification.PriorityMedium, now.Add(-time.Second))
	future := testItem(notification.PriorityUrgent, now.Add(time.Hour))
	require.NoError(t, storage.PushScheduled(ctx, due))
	require.NoError(t, storage.PushScheduled(ctx, future))

	moved, err := storage.PromoteDue(ctx, now, 100)
	require.NoError(t, err)
	assert.Equal(t, 1, moved)

	ready, scheduled, _, err := storage.QueueCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), ready)
	assert.Equal(t, int64(1), scheduled)

	item, err := storage.PopReady(ctx)
	require.NoError(t, err)
	assert.Equal(t, due.NotificationID, item.NotificationID)

	// A second sweep over the same state moves nothing.
	moved, err = storage.PromoteDue(ctx, now, 100)
	require.NoError(t, err)
	assert.Zero(t, moved)
}

func TestMemoryStoragePromoteDueLimit(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	storage := NewMemoryStorage()
	now := time.Now()

	for i := 0; i < 5; i++ {
		require.NoError(t, storage.PushScheduled(ctx, testItem(notification.PriorityLow, now.Add(-time.Minute))))
	}

	moved, err := storage.PromoteDue(ctx, now, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, moved)

	ready, scheduled, _, err := storage.QueueCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), ready)
	assert.Equal(t, int64(3), scheduled)
}

func TestMemoryStoragePromoteDueLimitTakesEarliest(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	storage := NewMemoryStorage()
	now := time.Now()

	// Insert out of due order; a truncated sweep must still move the
	// earliest-due members first.
	items := []Item{
		testItem(notification.PriorityLow, now.Add(-time.Minute)),
		testItem(notification.PriorityLow, now.Add(-5*time.Minute)),
		testItem(notification.PriorityLow, now.Add(-3*time.Minute)),
		testItem(notification.PriorityLow, now.Add(-4*time.Minute)),
		testItem(notification.PriorityLow, now.Add(-2*time.Minute)),
	}
	for _, item := range items {
		require.NoError(t, storage.PushScheduled(ctx, item))
	}

	moved, err := storage.PromoteDue(ctx, now, 2)
	require.NoError(t, err)
	require.Equal(t, 2, moved)

	first, err := storage.PopReady(ctx)
	require.NoError(t, err)
	assert.Equal(t, items[1].NotificationID, first.NotificationID)

	second, err := storage.PopReady(ctx)
	require.NoError(t, err)
	assert.Equal(t, items[3].NotificationID, second.NotificationID)
}

func TestMemoryStorageLease(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("contention", func(t *testing.T) {
		t.Parallel()

		storage := NewMemoryStorage()
		ok, err := storage.AcquireLease(ctx, "worker-1", time.Minute)
		require.NoError(t, err)
		require.True(t, ok)

		ok, err = storage.AcquireLease(ctx, "worker-2", time.Minute)
		require.NoError(t, err)
		assert.False(t, ok)

		require.NoError(t, storage.ReleaseLease(ctx, "worker-1"))
		ok, err = storage.AcquireLease(ctx, "worker-2", time.Minute)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("release by non-owner is a no-op", func(t *testing.T) {
		t.Parallel()

		storage := NewMemoryStorage()
		ok, err := storage.AcquireLease(ctx, "worker-1", time.Minute)
		require.NoError(t, err)
		require.True(t, ok)

		require.NoError(t, storage.ReleaseLease(ctx, "worker-2"))
		ok, err = storage.AcquireLease(ctx, "worker-3", time.Minute)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("expired lease can be taken over", func(t *testing.T) {
		t.Parallel()

		storage := NewMemoryStorage()
		ok, err := storage.AcquireLease(ctx, "worker-1", time.Millisecond)
		require.NoError(t, err)
		require.True(t, ok)

		time.Sleep(5 * time.Millisecond)
		ok, err = storage.AcquireLease(ctx, "worker-2", time.Minute)
		require.NoError(t, err)
		assert.True(t, ok)
	})
}

func TestMemoryStorageReapProcessing(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	storage := NewMemoryStorage()
	now := time.Now()

	stale := ProcessingEntry{
		Item:      testItem(notification.PriorityHigh, now),
		WorkerID:  "worker-1",
		StartedAt: now.Add(-time.Minute),
	}
	fresh := ProcessingEntry{
		Item:      testItem(notification.PriorityHigh, now),
		WorkerID:  "worker-2",
		StartedAt: now,
	}
	require.NoError(t, storage.RecordProcessing(ctx, stale))
	require.NoError(t, storage.RecordProcessing(ctx, fresh))

	reaped, err := storage.ReapProcessing(ctx, now.Add(-30*time.Second))
	require.NoError(t, err)
	require.Len(t, reaped, 1)
	assert.Equal(t, stale.Item.NotificationID, reaped[0].Item.NotificationID)

	remaining, err := storage.ListProcessing(ctx, 10)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, fresh.Item.NotificationID, remaining[0].Item.NotificationID)
}

func TestMemoryStorageStats(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	storage := NewMemoryStorage()
	at := time.Now()

	require.NoError(t, storage.RecordOutcome(ctx, at, OutcomeSuccess, 100*time.Millisecond))
	require.NoError(t, storage.RecordOutcome(ctx, at, OutcomeFailure, 300*time.Millisecond))
	require.NoError(t, storage.RecordOutcome(ctx, at, OutcomeSkipped, 0))

	hour, day, err := storage.StatsBuckets(ctx, at)
	require.NoError(t, err)

	assert.Equal(t, int64(3), hour.Processed)
	assert.Equal(t, int64(1), hour.Succeeded)
	assert.Equal(t, int64(1), hour.Failed)
	assert.Equal(t, int64(400), hour.ProcessingMillis)
	assert.Equal(t, hour, day)
}

func TestMemoryStorageCompactStats(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	storage := NewMemoryStorage()
	now := time.Now()

	require.NoError(t, storage.RecordOutcome(ctx, now.Add(-48*time.Hour), OutcomeSuccess, time.Millisecond))
	require.NoError(t, storage.RecordOutcome(ctx, now, OutcomeSuccess, time.Millisecond))

	require.NoError(t, storage.CompactStats(ctx, now))

	old, _, err := storage.StatsBuckets(ctx, now.Add(-48*time.Hour))
	require.NoError(t, err)
	assert.Zero(t, old.Processed)

	current, _, err := storage.StatsBuckets(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), current.Processed)
}

func TestMemoryStorageLists(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	storage := NewMemoryStorage()
	now := time.Now()

	urgent := testItem(notification.PriorityUrgent, now)
	low := testItem(notification.PriorityLow, now)
	require.NoError(t, storage.PushReady(ctx, low))
	require.NoError(t, storage.PushReady(ctx, urgent))

	soon := testItem(notification.PriorityMedium, now.Add(time.Minute))
	later := testItem(notification.PriorityMedium, now.Add(time.Hour))
	require.NoError(t, storage.PushScheduled(ctx, later))
	require.NoError(t, storage.PushScheduled(ctx, soon))

	ready, err := storage.ListReady(ctx, 10)
	require.NoError(t, err)
	require.Len(t, ready, 2)
	assert.Equal(t, urgent.NotificationID, ready[0].NotificationID)
	assert.Equal(t, low.NotificationID, ready[1].NotificationID)

	scheduled, err := storage.ListScheduled(ctx, 10)
	require.NoError(t, err)
	require.Len(t, scheduled, 2)
	assert.Equal(t, soon.NotificationID, scheduled[0].NotificationID)
	assert.Equal(t, later.NotificationID, scheduled[1].NotificationID)

	limited, err := storage.ListReady(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}
