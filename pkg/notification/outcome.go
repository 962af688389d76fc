package notification

import "github.com/google/uuid"

// EnqueueOutcome is the tagged result of an enqueue request. A suppressed
// enqueue is not an error: the caller asked for a send the user has opted out
// of, and must be able to tell that apart from a queued delivery.
type EnqueueOutcome struct {
	NotificationID uuid.UUID `json:"notification_id"`
	Suppressed     bool      `json:"suppressed"`
	Reason         string    `json:"reason,omitempty"`
}

// Enqueued builds the outcome for a notification accepted into the queue.
func Enqueued(id uuid.UUID) EnqueueOutcome {
	return EnqueueOutcome{NotificationID: id}
}

// Suppressed builds the outcome for a notification blocked by user preferences.
func Suppressed(id uuid.UUID, reason string) EnqueueOutcome {
	return EnqueueOutcome{NotificationID: id, Suppressed: true, Reason: reason}
}
