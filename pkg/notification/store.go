package notification

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a referenced notification does not exist.
var ErrNotFound = errors.New("notification not found")

// Store is the durable record of notifications, preferences, and delivery
// history. It is the sole source of truth for notification state and is
// shared with other services (admin console, analytics), so the queue never
// assumes exclusive write access: every status transition goes through
// UpdateStatusIf so a concurrent out-of-band change is never clobbered.
type Store interface {
	// Create persists a new notification.
	Create(ctx context.Context, n Notification) error

	// FindByID returns a notification or ErrNotFound.
	FindByID(ctx context.Context, id uuid.UUID) (*Notification, error)

	// UpdateStatusIf transitions the notification to the given status only if
	// its current status is one of expect. It records errMsg as the last
	// delivery error (empty clears it) and reports whether the transition
	// was applied.
	UpdateStatusIf(ctx context.Context, id uuid.UUID, to Status, errMsg string, expect ...Status) (bool, error)

	// SetAttempts updates the persisted delivery attempt counter.
	SetAttempts(ctx context.Context, id uuid.UUID, attempts int) error

	// MarkAsRead flags the notification as read by the recipient.
	MarkAsRead(ctx context.Context, id uuid.UUID) error

	// MarkAsDismissed flags the notification as dismissed by the recipient.
	MarkAsDismissed(ctx context.Context, id uuid.UUID) error

	// MarkAsExpired moves a non-terminal notification to the expired status.
	MarkAsExpired(ctx context.Context, id uuid.UUID) error

	// LogAction appends a delivery-history entry.
	LogAction(ctx context.Context, entry ActionLog) error

	// GetPendingNotifications lists pending notifications, oldest first.
	GetPendingNotifications(ctx context.Context, limit int) ([]Notification, error)

	// ListByStatus lists notifications in the given status updated after the
	// cutoff, most recently updated first.
	ListByStatus(ctx context.Context, status Status, updatedAfter time.Time, limit int) ([]Notification, error)

	// CountByStatus returns the number of notifications in the given status.
	CountByStatus(ctx context.Context, status Status) (int64, error)

	// DeleteCompletedBefore purges sent and expired notifications last
	// updated before the cutoff, returning the number removed.
	DeleteCompletedBefore(ctx context.Context, cutoff time.Time) (int, error)

	// Preferences returns the user's delivery preferences, or nil if the
	// user has no explicit preference record.
	Preferences(ctx context.Context, userID uuid.UUID) (*Preferences, error)
}
