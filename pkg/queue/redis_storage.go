package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Key layout under the prefix:
//
//	ready       - zset scored by ReadyScore, members are serialized items
//	scheduled   - zset scored by due unix-millis, members are serialized items
//	processing  - hash of item key -> serialized ProcessingEntry
//	claim       - the worker claim lease (SET NX with TTL)
//	stats:h:<n> - hash of hourly counters, expires after 25h
//	stats:d:<n> - hash of daily counters, expires after 8d
const (
	defaultKeyPrefix = "notifq:"

	hourRetention = 25 * time.Hour
	dayRetention  = 8 * 24 * time.Hour
)

// promoteScript atomically moves due members from the scheduled set into the
// ready queue, re-scoring each from its own priority and due time. Running
// inside Redis keeps insert-into-ready and remove-from-scheduled a single
// step, and ZADD's upsert semantics make re-promotion of an already-promoted
// member a no-op rather than a duplicate.
var promoteScript = redis.NewScript(`
local due = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', ARGV[1], 'LIMIT', 0, tonumber(ARGV[2]))
local ranks = {urgent = 0, high = 1, medium = 2, low = 3}
for _, member in ipairs(due) do
	local item = cjson.decode(member)
	local rank = ranks[item.priority]
	if rank == nil then rank = 2 end
	local score = rank * 1e15 + item.scheduled_at
	redis.call('ZADD', KEYS[2], score, member)
	redis.call('ZREM', KEYS[1], member)
end
return #due
`)

// releaseScript frees the claim lease only if the caller still owns it.
var releaseScript = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
	return redis.call('DEL', KEYS[1])
end
return 0
`)

// RedisStorage implements Storage on a Redis instance shared by every worker
// process pulling from the same queue.
type RedisStorage struct {
	client redis.UniversalClient
	prefix string
}

// RedisStorageOption configures a RedisStorage.
type RedisStorageOption func(*RedisStorage)

// WithKeyPrefix overrides the default key prefix, allowing several queues to
// share one Redis database.
func WithKeyPrefix(prefix string) RedisStorageOption {
	return func(s *RedisStorage) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

// NewRedisStorage creates a Redis-backed queue storage.
func NewRedisStorage(client redis.UniversalClient, opts ...RedisStorageOption) (*RedisStorage, error) {
	if client == nil {
		return nil, ErrStorageNil
	}

	s := &RedisStorage{
		client: client,
		prefix: defaultKeyPrefix,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *RedisStorage) readyKey() string      { return s.prefix + "ready" }
func (s *RedisStorage) scheduledKey() string  { return s.prefix + "scheduled" }
func (s *RedisStorage) processingKey() string { return s.prefix + "processing" }
func (s *RedisStorage) claimKey() string      { return s.prefix + "claim" }

func (s *RedisStorage) hourKey(at time.Time) string {
	return s.prefix + "stats:h:" + strconv.FormatInt(at.Unix()/3600, 10)
}

func (s *RedisStorage) dayKey(at time.Time) string {
	return s.prefix + "stats:d:" + strconv.FormatInt(at.Unix()/86400, 10)
}

// PushReady implements EnqueuerStorage.
func (s *RedisStorage) PushReady(ctx context.Context, item Item) error {
	member, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("failed to marshal queue item: %w", err)
	}

	return s.client.ZAdd(ctx, s.readyKey(), redis.Z{
		Score:  ReadyScore(item.Priority, item.ScheduledAt),
		Member: string(member),
	}).Err()
}

// PushScheduled implements EnqueuerStorage.
func (s *RedisStorage) PushScheduled(ctx context.Context, item Item) error {
	member, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("failed to marshal queue item: %w", err)
	}

	return s.client.ZAdd(ctx, s.scheduledKey(), redis.Z{
		Score:  float64(item.ScheduledAt),
		Member: string(member),
	}).Err()
}

// PromoteDue implements PromoterStorage.
func (s *RedisStorage) PromoteDue(ctx context.Context, now time.Time, limit int) (int, error) {
	moved, err := promoteScript.Run(ctx, s.client,
		[]string{s.scheduledKey(), s.readyKey()},
		now.UnixMilli(), limit,
	).Int()
	if err != nil {
		return 0, fmt.Errorf("failed to promote due items: %w", err)
	}
	return moved, nil
}

// AcquireLease implements WorkerStorage.
func (s *RedisStorage) AcquireLease(ctx context.Context, owner string, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, s.claimKey(), owner, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire claim lease: %w", err)
	}
	return ok, nil
}

// ReleaseLease implements WorkerStorage.
func (s *RedisStorage) ReleaseLease(ctx context.Context, owner string) error {
	return releaseScript.Run(ctx, s.client, []string{s.claimKey()}, owner).Err()
}

// PopReady implements WorkerStorage.
func (s *RedisStorage) PopReady(ctx context.Context) (*Item, error) {
	popped, err := s.client.ZPopMin(ctx, s.readyKey(), 1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to pop ready item: %w", err)
	}
	if len(popped) == 0 {
		return nil, ErrNoItemToClaim
	}

	member, ok := popped[0].Member.(string)
	if !ok {
		return nil, errors.New("unexpected ready queue member type")
	}

	var item Item
	if err := json.Unmarshal([]byte(member), &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal queue item: %w", err)
	}
	return &item, nil
}

// RecordProcessing implements WorkerStorage.
func (s *RedisStorage) RecordProcessing(ctx context.Context, entry ProcessingEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal processing entry: %w", err)
	}
	return s.client.HSet(ctx, s.processingKey(), entry.Item.Key(), string(data)).Err()
}

// ClearProcessing implements WorkerStorage.
func (s *RedisStorage) ClearProcessing(ctx context.Context, item Item) error {
	return s.client.HDel(ctx, s.processingKey(), item.Key()).Err()
}

// ReapProcessing implements WorkerStorage.
// The processing set is bounded by worker concurrency, so a full scan stays
// cheap.
func (s *RedisStorage) ReapProcessing(ctx context.Context, cutoff time.Time) ([]ProcessingEntry, error) {
	all, err := s.client.HGetAll(ctx, s.processingKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to scan processing set: %w", err)
	}

	var stale []ProcessingEntry
	var fields []string
	for field, raw := range all {
		var entry ProcessingEntry
		if err := json.Unmarshal([]byte(raw), &entry); err != nil {
			// Unreadable entries are dropped with the reap; leaving them
			// would wedge the processing set forever.
			fields = append(fields, field)
			continue
		}
		if entry.StartedAt.Before(cutoff) {
			stale = append(stale, entry)
			fields = append(fields, field)
		}
	}

	if len(fields) > 0 {
		if err := s.client.HDel(ctx, s.processingKey(), fields...).Err(); err != nil {
			return nil, fmt.Errorf("failed to remove stale processing entries: %w", err)
		}
	}
	return stale, nil
}

// RecordOutcome implements StatsStorage.
func (s *RedisStorage) RecordOutcome(ctx context.Context, at time.Time, kind OutcomeKind, latency time.Duration) error {
	pipe := s.client.Pipeline()
	for key, retention := range map[string]time.Duration{
		s.hourKey(at): hourRetention,
		s.dayKey(at):  dayRetention,
	} {
		pipe.HIncrBy(ctx, key, "processed", 1)
		switch kind {
		case OutcomeSuccess:
			pipe.HIncrBy(ctx, key, "succeeded", 1)
		case OutcomeFailure:
			pipe.HIncrBy(ctx, key, "failed", 1)
		}
		pipe.HIncrBy(ctx, key, "latency_ms", latency.Milliseconds())
		pipe.Expire(ctx, key, retention)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to record outcome: %w", err)
	}
	return nil
}

// StatsBuckets implements StatsStorage.
func (s *RedisStorage) StatsBuckets(ctx context.Context, at time.Time) (Bucket, Bucket, error) {
	hour, err := s.readBucket(ctx, s.hourKey(at))
	if err != nil {
		return Bucket{}, Bucket{}, err
	}
	day, err := s.readBucket(ctx, s.dayKey(at))
	if err != nil {
		return Bucket{}, Bucket{}, err
	}
	return hour, day, nil
}

func (s *RedisStorage) readBucket(ctx context.Context, key string) (Bucket, error) {
	fields, err := s.client.HGetAll(ctx, key).Result()
	if err != nil {
		return Bucket{}, fmt.Errorf("failed to read stats bucket: %w", err)
	}

	parse := func(name string) int64 {
		v, _ := strconv.ParseInt(fields[name], 10, 64)
		return v
	}
	return Bucket{
		Processed:        parse("processed"),
		Succeeded:        parse("succeeded"),
		Failed:           parse("failed"),
		ProcessingMillis: parse("latency_ms"),
	}, nil
}

// QueueCounts implements StatsStorage.
func (s *RedisStorage) QueueCounts(ctx context.Context) (int64, int64, int64, error) {
	pipe := s.client.Pipeline()
	ready := pipe.ZCard(ctx, s.readyKey())
	scheduled := pipe.ZCard(ctx, s.scheduledKey())
	processing := pipe.HLen(ctx, s.processingKey())

	if _, err := pipe.Exec(ctx); err != nil {
		return 0, 0, 0, fmt.Errorf("failed to count queue contents: %w", err)
	}
	return ready.Val(), scheduled.Val(), processing.Val(), nil
}

// CompactStats implements StatsStorage. Redis expires stats keys natively.
func (s *RedisStorage) CompactStats(ctx context.Context, now time.Time) error {
	return nil
}

// ListReady implements ListerStorage.
func (s *RedisStorage) ListReady(ctx context.Context, limit int) ([]Item, error) {
	return s.listItems(ctx, s.readyKey(), limit)
}

// ListScheduled implements ListerStorage.
func (s *RedisStorage) ListScheduled(ctx context.Context, limit int) ([]Item, error) {
	return s.listItems(ctx, s.scheduledKey(), limit)
}

func (s *RedisStorage) listItems(ctx context.Context, key string, limit int) ([]Item, error) {
	if limit <= 0 {
		limit = 100
	}

	members, err := s.client.ZRange(ctx, key, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list queue items: %w", err)
	}

	items := make([]Item, 0, len(members))
	for _, member := range members {
		var item Item
		if err := json.Unmarshal([]byte(member), &item); err != nil {
			continue
		}
		items = append(items, item)
	}
	return items, nil
}

// ListProcessing implements ListerStorage.
func (s *RedisStorage) ListProcessing(ctx context.Context, limit int) ([]ProcessingEntry, error) {
	if limit <= 0 {
		limit = 100
	}

	all, err := s.client.HGetAll(ctx, s.processingKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list processing entries: %w", err)
	}

	entries := make([]ProcessingEntry, 0, len(all))
	for _, raw := range all {
		if len(entries) >= limit {
			break
		}
		var entry ProcessingEntry
		if err := json.Unmarshal([]byte(raw), &entry); err != nil {
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
