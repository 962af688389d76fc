package notification

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore implements Store for testing and local development.
type MemoryStore struct {
	mu            sync.RWMutex
	notifications map[uuid.UUID]*Notification
	actions       []ActionLog
	preferences   map[uuid.UUID]*Preferences
}

// NewMemoryStore creates a new in-memory store implementation.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		notifications: make(map[uuid.UUID]*Notification),
		preferences:   make(map[uuid.UUID]*Preferences),
	}
}

// Create implements Store.
func (ms *MemoryStore) Create(ctx context.Context, n Notification) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if n.Status == "" {
		n.Status = StatusPending
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	n.UpdatedAt = n.CreatedAt

	// Clone to prevent external modifications
	stored := n
	ms.notifications[n.ID] = &stored
	return nil
}

// FindByID implements Store.
func (ms *MemoryStore) FindByID(ctx context.Context, id uuid.UUID) (*Notification, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	n, ok := ms.notifications[id]
	if !ok {
		return nil, ErrNotFound
	}

	found := *n
	return &found, nil
}

// UpdateStatusIf implements Store.
func (ms *MemoryStore) UpdateStatusIf(ctx context.Context, id uuid.UUID, to Status, errMsg string, expect ...Status) (bool, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	n, ok := ms.notifications[id]
	if !ok {
		return false, ErrNotFound
	}

	if len(expect) > 0 && !slices.Contains(expect, n.Status) {
		return false, nil
	}

	n.Status = to
	n.LastError = errMsg
	n.UpdatedAt = time.Now()
	return true, nil
}

// SetAttempts implements Store.
func (ms *MemoryStore) SetAttempts(ctx context.Context, id uuid.UUID, attempts int) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	n, ok := ms.notifications[id]
	if !ok {
		return ErrNotFound
	}

	n.Attempts = attempts
	n.UpdatedAt = time.Now()
	return nil
}

// MarkAsRead implements Store.
func (ms *MemoryStore) MarkAsRead(ctx context.Context, id uuid.UUID) error {
	return ms.setFlag(id, func(n *Notification) { n.Read = true })
}

// MarkAsDismissed implements Store.
func (ms *MemoryStore) MarkAsDismissed(ctx context.Context, id uuid.UUID) error {
	return ms.setFlag(id, func(n *Notification) { n.Dismissed = true })
}

// MarkAsExpired implements Store.
func (ms *MemoryStore) MarkAsExpired(ctx context.Context, id uuid.UUID) error {
	_, err := ms.UpdateStatusIf(context.Background(), id, StatusExpired, "", StatusPending, StatusFailed)
	return err
}

func (ms *MemoryStore) setFlag(id uuid.UUID, apply func(*Notification)) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	n, ok := ms.notifications[id]
	if !ok {
		return ErrNotFound
	}

	apply(n)
	n.UpdatedAt = time.Now()
	return nil
}

// LogAction implements Store.
func (ms *MemoryStore) LogAction(ctx context.Context, entry ActionLog) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	ms.actions = append(ms.actions, entry)
	return nil
}

// GetPendingNotifications implements Store.
func (ms *MemoryStore) GetPendingNotifications(ctx context.Context, limit int) ([]Notification, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	pending := make([]Notification, 0)
	for _, n := range ms.notifications {
		if n.Status == StatusPending {
			pending = append(pending, *n)
		}
	}

	slices.SortFunc(pending, func(a, b Notification) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})

	if limit > 0 && len(pending) > limit {
		pending = pending[:limit]
	}
	return pending, nil
}

// ListByStatus implements Store.
func (ms *MemoryStore) ListByStatus(ctx context.Context, status Status, updatedAfter time.Time, limit int) ([]Notification, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	matched := make([]Notification, 0)
	for _, n := range ms.notifications {
		if n.Status == status && n.UpdatedAt.After(updatedAfter) {
			matched = append(matched, *n)
		}
	}

	slices.SortFunc(matched, func(a, b Notification) int {
		return b.UpdatedAt.Compare(a.UpdatedAt)
	})

	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

// CountByStatus implements Store.
func (ms *MemoryStore) CountByStatus(ctx context.Context, status Status) (int64, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	var count int64
	for _, n := range ms.notifications {
		if n.Status == status {
			count++
		}
	}
	return count, nil
}

// DeleteCompletedBefore implements Store.
func (ms *MemoryStore) DeleteCompletedBefore(ctx context.Context, cutoff time.Time) (int, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	removed := 0
	for id, n := range ms.notifications {
		if (n.Status == StatusSent || n.Status == StatusExpired) && n.UpdatedAt.Before(cutoff) {
			delete(ms.notifications, id)
			removed++
		}
	}
	return removed, nil
}

// Preferences implements Store.
func (ms *MemoryStore) Preferences(ctx context.Context, userID uuid.UUID) (*Preferences, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	p, ok := ms.preferences[userID]
	if !ok {
		return nil, nil
	}

	prefs := *p
	return &prefs, nil
}

// SetPreferences stores a user preference record. Test helper; the real
// preference CRUD lives with the embedding service.
func (ms *MemoryStore) SetPreferences(p Preferences) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.preferences[p.UserID] = &p
}

// Actions returns a snapshot of the delivery-history log. Test helper.
func (ms *MemoryStore) Actions() []ActionLog {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	return slices.Clone(ms.actions)
}
