package notification

import (
	"time"

	"github.com/google/uuid"
)

// Type classifies the domain event a notification was produced for.
type Type string

const (
	TypeTransactionSuggestion Type = "transaction_suggestion"
	TypeSpendingAlert         Type = "spending_alert"
	TypeRewardMilestone       Type = "reward_milestone"
	TypeSystemAnnouncement    Type = "system_announcement"
)

// Channel identifies the delivery medium.
type Channel string

const (
	ChannelInApp Channel = "in_app"
	ChannelPush  Channel = "push"
	ChannelEmail Channel = "email"
)

// Priority represents delivery priority.
type Priority string

const (
	PriorityUrgent Priority = "urgent"
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Valid checks if the priority is one of the known tiers.
func (p Priority) Valid() bool {
	switch p {
	case PriorityUrgent, PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

// Status represents the delivery lifecycle state.
// A notification transitions status exactly once per delivery attempt;
// the terminal states (sent, failed, expired) are never re-enqueued
// automatically.
type Status string

const (
	StatusPending Status = "pending"
	StatusSent    Status = "sent"
	StatusFailed  Status = "failed"
	StatusExpired Status = "expired"
)

// Terminal reports whether the status permits no further delivery attempts.
func (s Status) Terminal() bool {
	return s == StatusSent || s == StatusExpired
}

// Notification is the core domain model.
type Notification struct {
	ID        uuid.UUID      `json:"id"`
	UserID    uuid.UUID      `json:"user_id"`
	Type      Type           `json:"type"`
	Title     string         `json:"title"`
	Message   string         `json:"message"`
	Data      map[string]any `json:"data,omitempty"` // Custom payload
	Channel   Channel        `json:"channel"`
	Priority  Priority       `json:"priority"`
	Status    Status         `json:"status"`
	Attempts  int            `json:"attempts"`
	LastError string         `json:"last_error,omitempty"`
	Read      bool           `json:"read"`
	Dismissed bool           `json:"dismissed"`
	ExpiresAt *time.Time     `json:"expires_at,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// IsExpired returns true if the notification expired before time now.
func (n *Notification) IsExpired(now time.Time) bool {
	if n.ExpiresAt == nil {
		return false
	}
	return now.After(*n.ExpiresAt)
}

// Action names an auditable event in a notification's delivery history.
type Action string

const (
	ActionSent      Action = "sent"
	ActionFailed    Action = "failed"
	ActionExpired   Action = "expired"
	ActionRequeued  Action = "requeued"
	ActionRead      Action = "read"
	ActionDismissed Action = "dismissed"
)

// ActionLog is a single delivery-history entry.
type ActionLog struct {
	NotificationID uuid.UUID      `json:"notification_id"`
	UserID         uuid.UUID      `json:"user_id"`
	Action         Action         `json:"action"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
}

// DeliveryResult is the structured outcome of a single delivery attempt,
// returned by the dispatcher for both the worker path and direct sends.
type DeliveryResult struct {
	NotificationID uuid.UUID `json:"notification_id"`
	Channel        Channel   `json:"channel"`
	Success        bool      `json:"success"`
	MessageID      string    `json:"message_id,omitempty"`
	Error          string    `json:"error,omitempty"`
	SentAt         time.Time `json:"sent_at"`
}
