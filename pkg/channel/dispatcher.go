package channel

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/cardwise/notifq/pkg/logger"
	"github.com/cardwise/notifq/pkg/notification"
)

var (
	// ErrStoreNil is returned when a nil notification store is provided.
	ErrStoreNil = errors.New("notification store cannot be nil")

	// ErrRegistryNil is returned when a nil handler registry is provided.
	ErrRegistryNil = errors.New("handler registry cannot be nil")
)

// deliverableStatuses are the statuses a delivery attempt may start from.
// Failed is included so requeued notifications can still reach sent.
var deliverableStatuses = []notification.Status{
	notification.StatusPending,
	notification.StatusFailed,
}

// Dispatcher resolves a notification's channel handler and performs one
// delivery attempt. It is the single place notification status transitions
// occur, so the worker path and direct synchronous sends share identical
// semantics.
type Dispatcher struct {
	store    notification.Store
	registry *Registry
	logger   *slog.Logger
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithDispatcherLogger sets the logger for the Dispatcher.
func WithDispatcherLogger(log *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		if log != nil {
			d.logger = log
		}
	}
}

// NewDispatcher creates a dispatcher over the given store and registry.
func NewDispatcher(store notification.Store, registry *Registry, opts ...DispatcherOption) (*Dispatcher, error) {
	if store == nil {
		return nil, ErrStoreNil
	}
	if registry == nil {
		return nil, ErrRegistryNil
	}

	d := &Dispatcher{
		store:    store,
		registry: registry,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// SendNotification performs one delivery attempt for the notification,
// updating its status and audit log. Callable directly for synchronous
// immediate-send use cases as well as from queue workers.
//
// Error classification drives the caller's retry decision: provider
// failures and store infrastructure errors are wrapped in TransientError;
// ErrNotificationExpired, ErrAlreadyFinalized, and notification.ErrNotFound
// are terminal. The returned DeliveryResult is populated in every case.
func (d *Dispatcher) SendNotification(ctx context.Context, id uuid.UUID) (notification.DeliveryResult, error) {
	now := time.Now()
	result := notification.DeliveryResult{NotificationID: id, SentAt: now}

	n, err := d.store.FindByID(ctx, id)
	if err != nil {
		result.Error = err.Error()
		if errors.Is(err, notification.ErrNotFound) {
			return result, err
		}
		// A store outage must not consume the attempt.
		return result, Transient(err)
	}
	result.Channel = n.Channel

	if n.Status.Terminal() {
		result.Error = ErrAlreadyFinalized.Error()
		return result, ErrAlreadyFinalized
	}

	if n.IsExpired(now) {
		if err := d.markExpired(ctx, n); err != nil {
			result.Error = err.Error()
			return result, Transient(err)
		}
		result.Error = ErrNotificationExpired.Error()
		return result, ErrNotificationExpired
	}

	handler, ok := d.registry.Resolve(n.Channel)
	if !ok {
		result.Error = ErrHandlerNotRegistered.Error()
		return result, Transient(ErrHandlerNotRegistered)
	}
	if !handler.Available(ctx) {
		result.Error = ErrChannelUnavailable.Error()
		return result, Transient(ErrChannelUnavailable)
	}

	sent, err := handler.Send(ctx, *n)
	if err != nil {
		result.Error = err.Error()
		return result, Transient(err)
	}

	result.Success = true
	result.MessageID = sent.MessageID

	applied, err := d.store.UpdateStatusIf(ctx, n.ID, notification.StatusSent, "", deliverableStatuses...)
	if err != nil {
		// The message is out but the mark did not stick. Retrying risks a
		// duplicate send, which at-least-once delivery accepts over loss.
		return result, Transient(err)
	}
	if !applied {
		// Another writer finalized the record while the send was in flight.
		// The message is out the door; surface the race in logs only.
		d.logger.LogAttrs(ctx, slog.LevelWarn, "delivered but status changed concurrently",
			logger.NotificationID(n.ID),
			logger.Channel(n.Channel),
		)
		return result, nil
	}

	if err := d.store.LogAction(ctx, notification.ActionLog{
		NotificationID: n.ID,
		UserID:         n.UserID,
		Action:         notification.ActionSent,
		Metadata: map[string]any{
			"channel":    string(n.Channel),
			"message_id": sent.MessageID,
		},
	}); err != nil {
		d.logger.LogAttrs(ctx, slog.LevelWarn, "failed to log sent action",
			logger.NotificationID(n.ID),
			logger.Error(err),
		)
	}

	return result, nil
}

// MarkFailed finalizes a notification whose retry budget is exhausted. Kept
// here rather than in the worker so every status transition lives in one
// component.
func (d *Dispatcher) MarkFailed(ctx context.Context, id uuid.UUID, lastErr string) error {
	n, err := d.store.FindByID(ctx, id)
	if err != nil {
		return err
	}

	applied, err := d.store.UpdateStatusIf(ctx, id, notification.StatusFailed, lastErr, deliverableStatuses...)
	if err != nil {
		return err
	}
	if !applied {
		return nil
	}

	return d.store.LogAction(ctx, notification.ActionLog{
		NotificationID: id,
		UserID:         n.UserID,
		Action:         notification.ActionFailed,
		Metadata:       map[string]any{"error": lastErr},
	})
}

func (d *Dispatcher) markExpired(ctx context.Context, n *notification.Notification) error {
	applied, err := d.store.UpdateStatusIf(ctx, n.ID, notification.StatusExpired, "", deliverableStatuses...)
	if err != nil {
		return err
	}
	if !applied {
		return nil
	}

	return d.store.LogAction(ctx, notification.ActionLog{
		NotificationID: n.ID,
		UserID:         n.UserID,
		Action:         notification.ActionExpired,
	})
}
