package queue

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"
)

// MemoryStorage implements Storage for testing and local development. It
// mirrors the Redis layout - serialized members scored in ordered maps - so
// ordering, upsert, and idempotence behave identically to production.
type MemoryStorage struct {
	mu         sync.Mutex
	ready      map[string]float64
	scheduled  map[string]float64
	processing map[string]ProcessingEntry

	leaseOwner string
	leaseUntil time.Time

	hours map[int64]*Bucket
	days  map[int64]*Bucket
}

// NewMemoryStorage creates a new in-memory storage implementation.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		ready:      make(map[string]float64),
		scheduled:  make(map[string]float64),
		processing: make(map[string]ProcessingEntry),
		hours:      make(map[int64]*Bucket),
		days:       make(map[int64]*Bucket),
	}
}

// PushReady implements EnqueuerStorage.
func (ms *MemoryStorage) PushReady(ctx context.Context, item Item) error {
	member, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("failed to marshal queue item: %w", err)
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.ready[string(member)] = ReadyScore(item.Priority, item.ScheduledAt)
	return nil
}

// PushScheduled implements EnqueuerStorage.
func (ms *MemoryStorage) PushScheduled(ctx context.Context, item Item) error {
	member, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("failed to marshal queue item: %w", err)
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.scheduled[string(member)] = float64(item.ScheduledAt)
	return nil
}

// PromoteDue implements PromoterStorage. The single lock makes the
// insert-into-ready plus remove-from-scheduled move atomic, matching the
// production Lua script.
func (ms *MemoryStorage) PromoteDue(ctx context.Context, now time.Time, limit int) (int, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	nowMilli := float64(now.UnixMilli())
	due := make([]string, 0, len(ms.scheduled))
	for member, score := range ms.scheduled {
		if score <= nowMilli {
			due = append(due, member)
		}
	}
	// Earliest due first, so a truncated batch takes the same members the
	// production range query would.
	slices.SortFunc(due, func(a, b string) int {
		if c := cmp.Compare(ms.scheduled[a], ms.scheduled[b]); c != 0 {
			return c
		}
		return strings.Compare(a, b)
	})

	moved := 0
	for _, member := range due {
		if moved >= limit {
			break
		}

		var item Item
		if err := json.Unmarshal([]byte(member), &item); err != nil {
			delete(ms.scheduled, member)
			continue
		}

		ms.ready[member] = ReadyScore(item.Priority, item.ScheduledAt)
		delete(ms.scheduled, member)
		moved++
	}
	return moved, nil
}

// AcquireLease implements WorkerStorage.
func (ms *MemoryStorage) AcquireLease(ctx context.Context, owner string, ttl time.Duration) (bool, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	now := time.Now()
	if ms.leaseOwner != "" && ms.leaseUntil.After(now) && ms.leaseOwner != owner {
		return false, nil
	}

	ms.leaseOwner = owner
	ms.leaseUntil = now.Add(ttl)
	return true, nil
}

// ReleaseLease implements WorkerStorage.
func (ms *MemoryStorage) ReleaseLease(ctx context.Context, owner string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if ms.leaseOwner == owner {
		ms.leaseOwner = ""
		ms.leaseUntil = time.Time{}
	}
	return nil
}

// PopReady implements WorkerStorage. Minimum score wins; exact score ties
// break on the lexicographically smallest member, the same deterministic
// tie-break Redis sorted sets use.
func (ms *MemoryStorage) PopReady(ctx context.Context) (*Item, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	var best string
	var bestScore float64
	for member, score := range ms.ready {
		if best == "" || score < bestScore || (score == bestScore && member < best) {
			best = member
			bestScore = score
		}
	}
	if best == "" {
		return nil, ErrNoItemToClaim
	}

	delete(ms.ready, best)

	var item Item
	if err := json.Unmarshal([]byte(best), &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal queue item: %w", err)
	}
	return &item, nil
}

// RecordProcessing implements WorkerStorage.
func (ms *MemoryStorage) RecordProcessing(ctx context.Context, entry ProcessingEntry) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.processing[entry.Item.Key()] = entry
	return nil
}

// ClearProcessing implements WorkerStorage.
func (ms *MemoryStorage) ClearProcessing(ctx context.Context, item Item) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	delete(ms.processing, item.Key())
	return nil
}

// ReapProcessing implements WorkerStorage.
func (ms *MemoryStorage) ReapProcessing(ctx context.Context, cutoff time.Time) ([]ProcessingEntry, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	var stale []ProcessingEntry
	for key, entry := range ms.processing {
		if entry.StartedAt.Before(cutoff) {
			stale = append(stale, entry)
			delete(ms.processing, key)
		}
	}
	return stale, nil
}

// RecordOutcome implements StatsStorage.
func (ms *MemoryStorage) RecordOutcome(ctx context.Context, at time.Time, kind OutcomeKind, latency time.Duration) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	for _, b := range []*Bucket{ms.hourBucket(at), ms.dayBucket(at)} {
		b.Processed++
		switch kind {
		case OutcomeSuccess:
			b.Succeeded++
		case OutcomeFailure:
			b.Failed++
		}
		b.ProcessingMillis += latency.Milliseconds()
	}
	return nil
}

func (ms *MemoryStorage) hourBucket(at time.Time) *Bucket {
	key := at.Unix() / 3600
	b, ok := ms.hours[key]
	if !ok {
		b = &Bucket{}
		ms.hours[key] = b
	}
	return b
}

func (ms *MemoryStorage) dayBucket(at time.Time) *Bucket {
	key := at.Unix() / 86400
	b, ok := ms.days[key]
	if !ok {
		b = &Bucket{}
		ms.days[key] = b
	}
	return b
}

// StatsBuckets implements StatsStorage.
func (ms *MemoryStorage) StatsBuckets(ctx context.Context, at time.Time) (Bucket, Bucket, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return *ms.hourBucket(at), *ms.dayBucket(at), nil
}

// QueueCounts implements StatsStorage.
func (ms *MemoryStorage) QueueCounts(ctx context.Context) (int64, int64, int64, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return int64(len(ms.ready)), int64(len(ms.scheduled)), int64(len(ms.processing)), nil
}

// CompactStats implements StatsStorage, applying the same retention windows
// Redis enforces with key TTLs.
func (ms *MemoryStorage) CompactStats(ctx context.Context, now time.Time) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	hourCutoff := now.Add(-hourRetention).Unix() / 3600
	for key := range ms.hours {
		if key < hourCutoff {
			delete(ms.hours, key)
		}
	}

	dayCutoff := now.Add(-dayRetention).Unix() / 86400
	for key := range ms.days {
		if key < dayCutoff {
			delete(ms.days, key)
		}
	}
	return nil
}

// ListReady implements ListerStorage.
func (ms *MemoryStorage) ListReady(ctx context.Context, limit int) ([]Item, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return listSorted(ms.ready, limit)
}

// ListScheduled implements ListerStorage.
func (ms *MemoryStorage) ListScheduled(ctx context.Context, limit int) ([]Item, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return listSorted(ms.scheduled, limit)
}

func listSorted(members map[string]float64, limit int) ([]Item, error) {
	if limit <= 0 {
		limit = 100
	}

	type scored struct {
		member string
		score  float64
	}
	ordered := make([]scored, 0, len(members))
	for member, score := range members {
		ordered = append(ordered, scored{member, score})
	}

	// Score ascending, member lexicographic on ties
	slices.SortFunc(ordered, func(a, b scored) int {
		if a.score != b.score {
			if a.score < b.score {
				return -1
			}
			return 1
		}
		return strings.Compare(a.member, b.member)
	})

	items := make([]Item, 0, min(limit, len(ordered)))
	for _, s := range ordered {
		if len(items) >= limit {
			break
		}
		var item Item
		if err := json.Unmarshal([]byte(s.member), &item); err != nil {
			continue
		}
		items = append(items, item)
	}
	return items, nil
}

// ListProcessing implements ListerStorage.
func (ms *MemoryStorage) ListProcessing(ctx context.Context, limit int) ([]ProcessingEntry, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if limit <= 0 {
		limit = 100
	}
	entries := make([]ProcessingEntry, 0, len(ms.processing))
	for _, entry := range ms.processing {
		if len(entries) >= limit {
			break
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
