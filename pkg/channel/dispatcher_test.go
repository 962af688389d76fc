package channel_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardwise/notifq/pkg/channel"
	"github.com/cardwise/notifq/pkg/notification"
)

// fakeHandler is a configurable channel handler for dispatcher tests.
type fakeHandler struct {
	ch        notification.Channel
	available bool
	sendErr   error
	messageID string
	sends     int
}

func (h *fakeHandler) Channel() notification.Channel      { return h.ch }
func (h *fakeHandler) Available(ctx context.Context) bool { return h.available }

func (h *fakeHandler) Send(ctx context.Context, n notification.Notification) (channel.SendResult, error) {
	h.sends++
	if h.sendErr != nil {
		return channel.SendResult{}, h.sendErr
	}
	return channel.SendResult{MessageID: h.messageID}, nil
}

func newFakeHandler(ch notification.Channel) *fakeHandler {
	return &fakeHandler{ch: ch, available: true, messageID: "provider-msg-1"}
}

func createPending(t *testing.T, store *notification.MemoryStore, mutate func(*notification.Notification)) notification.Notification {
	t.Helper()

	n := notification.Notification{
		ID:      uuid.New(),
		UserID:  uuid.New(),
		Type:    notification.TypeTransactionSuggestion,
		Title:   "Better card for this purchase",
		Message: "Your travel card earns 3x on this merchant.",
		Channel: notification.ChannelInApp,
	}
	if mutate != nil {
		mutate(&n)
	}
	require.NoError(t, store.Create(context.Background(), n))
	return n
}

// brokenStore fails reads with a fixed error, standing in for a store outage.
type brokenStore struct {
	*notification.MemoryStore
	readErr error
}

func (s *brokenStore) FindByID(ctx context.Context, id uuid.UUID) (*notification.Notification, error) {
	return nil, s.readErr
}

func TestNewDispatcher(t *testing.T) {
	t.Parallel()

	store := notification.NewMemoryStore()

	t.Run("nil store", func(t *testing.T) {
		t.Parallel()
		_, err := channel.NewDispatcher(nil, channel.NewRegistry())
		assert.ErrorIs(t, err, channel.ErrStoreNil)
	})

	t.Run("nil registry", func(t *testing.T) {
		t.Parallel()
		_, err := channel.NewDispatcher(store, nil)
		assert.ErrorIs(t, err, channel.ErrRegistryNil)
	})
}

func TestDispatcherSendNotification(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("successful delivery", func(t *testing.T) {
		t.Parallel()

		store := notification.NewMemoryStore()
		handler := newFakeHandler(notification.ChannelInApp)
		d, err := channel.NewDispatcher(store, channel.NewRegistry(handler))
		require.NoError(t, err)

		n := createPending(t, store, nil)

		result, err := d.SendNotification(ctx, n.ID)
		require.NoError(t, err)
		assert.True(t, result.Success)
		assert.Equal(t, "provider-msg-1", result.MessageID)
		assert.Equal(t, notification.ChannelInApp, result.Channel)

		got, err := store.FindByID(ctx, n.ID)
		require.NoError(t, err)
		assert.Equal(t, notification.StatusSent, got.Status)

		actions := store.Actions()
		require.Len(t, actions, 1)
		assert.Equal(t, notification.ActionSent, actions[0].Action)
	})

	t.Run("unknown notification", func(t *testing.T) {
		t.Parallel()

		store := notification.NewMemoryStore()
		d, err := channel.NewDispatcher(store, channel.NewRegistry(newFakeHandler(notification.ChannelInApp)))
		require.NoError(t, err)

		_, err = d.SendNotification(ctx, uuid.New())
		assert.ErrorIs(t, err, notification.ErrNotFound)
		assert.False(t, channel.IsTransient(err), "a missing record cannot recover")
	})

	t.Run("store read failure is transient", func(t *testing.T) {
		t.Parallel()

		readErr := errors.New("store connection refused")
		store := &brokenStore{MemoryStore: notification.NewMemoryStore(), readErr: readErr}
		handler := newFakeHandler(notification.ChannelInApp)
		d, err := channel.NewDispatcher(store, channel.NewRegistry(handler))
		require.NoError(t, err)

		_, err = d.SendNotification(ctx, uuid.New())
		assert.ErrorIs(t, err, readErr)
		assert.True(t, channel.IsTransient(err), "a store outage must not consume the attempt")
		assert.Zero(t, handler.sends)
	})

	t.Run("terminal status refused", func(t *testing.T) {
		t.Parallel()

		store := notification.NewMemoryStore()
		handler := newFakeHandler(notification.ChannelInApp)
		d, err := channel.NewDispatcher(store, channel.NewRegistry(handler))
		require.NoError(t, err)

		n := createPending(t, store, func(n *notification.Notification) {
			n.Status = notification.StatusSent
		})

		_, err = d.SendNotification(ctx, n.ID)
		assert.ErrorIs(t, err, channel.ErrAlreadyFinalized)
		assert.Zero(t, handler.sends, "no duplicate delivery for a sent notification")
	})

	t.Run("expired is finalized without sending", func(t *testing.T) {
		t.Parallel()

		store := notification.NewMemoryStore()
		handler := newFakeHandler(notification.ChannelInApp)
		d, err := channel.NewDispatcher(store, channel.NewRegistry(handler))
		require.NoError(t, err)

		past := time.Now().Add(-time.Minute)
		n := createPending(t, store, func(n *notification.Notification) {
			n.ExpiresAt = &past
		})

		_, err = d.SendNotification(ctx, n.ID)
		assert.ErrorIs(t, err, channel.ErrNotificationExpired)
		assert.Zero(t, handler.sends)

		got, err := store.FindByID(ctx, n.ID)
		require.NoError(t, err)
		assert.Equal(t, notification.StatusExpired, got.Status)

		actions := store.Actions()
		require.Len(t, actions, 1)
		assert.Equal(t, notification.ActionExpired, actions[0].Action)
	})

	t.Run("no handler registered is transient", func(t *testing.T) {
		t.Parallel()

		store := notification.NewMemoryStore()
		d, err := channel.NewDispatcher(store, channel.NewRegistry())
		require.NoError(t, err)

		n := createPending(t, store, nil)

		_, err = d.SendNotification(ctx, n.ID)
		assert.ErrorIs(t, err, channel.ErrHandlerNotRegistered)
		assert.True(t, channel.IsTransient(err))
	})

	t.Run("unavailable channel is transient", func(t *testing.T) {
		t.Parallel()

		store := notification.NewMemoryStore()
		handler := newFakeHandler(notification.ChannelInApp)
		handler.available = false
		d, err := channel.NewDispatcher(store, channel.NewRegistry(handler))
		require.NoError(t, err)

		n := createPending(t, store, nil)

		_, err = d.SendNotification(ctx, n.ID)
		assert.ErrorIs(t, err, channel.ErrChannelUnavailable)
		assert.True(t, channel.IsTransient(err))
		assert.Zero(t, handler.sends)
	})

	t.Run("provider failure is transient and leaves status alone", func(t *testing.T) {
		t.Parallel()

		store := notification.NewMemoryStore()
		handler := newFakeHandler(notification.ChannelInApp)
		handler.sendErr = errors.New("rate limited")
		d, err := channel.NewDispatcher(store, channel.NewRegistry(handler))
		require.NoError(t, err)

		n := createPending(t, store, nil)

		result, err := d.SendNotification(ctx, n.ID)
		require.Error(t, err)
		assert.True(t, channel.IsTransient(err))
		assert.False(t, result.Success)
		assert.Contains(t, result.Error, "rate limited")

		// The caller decides between retry and failure; the dispatcher must
		// not finalize on a send error.
		got, err := store.FindByID(ctx, n.ID)
		require.NoError(t, err)
		assert.Equal(t, notification.StatusPending, got.Status)
	})

	t.Run("failed notification can still be delivered", func(t *testing.T) {
		t.Parallel()

		store := notification.NewMemoryStore()
		handler := newFakeHandler(notification.ChannelInApp)
		d, err := channel.NewDispatcher(store, channel.NewRegistry(handler))
		require.NoError(t, err)

		n := createPending(t, store, func(n *notification.Notification) {
			n.Status = notification.StatusFailed
			n.Attempts = 1
		})

		result, err := d.SendNotification(ctx, n.ID)
		require.NoError(t, err)
		assert.True(t, result.Success)

		got, err := store.FindByID(ctx, n.ID)
		require.NoError(t, err)
		assert.Equal(t, notification.StatusSent, got.Status)
	})
}

func TestDispatcherMarkFailed(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("marks and logs", func(t *testing.T) {
		t.Parallel()

		store := notification.NewMemoryStore()
		d, err := channel.NewDispatcher(store, channel.NewRegistry())
		require.NoError(t, err)

		n := createPending(t, store, nil)

		require.NoError(t, d.MarkFailed(ctx, n.ID, "smtp connect timeout"))

		got, err := store.FindByID(ctx, n.ID)
		require.NoError(t, err)
		assert.Equal(t, notification.StatusFailed, got.Status)
		assert.Equal(t, "smtp connect timeout", got.LastError)

		actions := store.Actions()
		require.Len(t, actions, 1)
		assert.Equal(t, notification.ActionFailed, actions[0].Action)
	})

	t.Run("terminal record stays untouched", func(t *testing.T) {
		t.Parallel()

		store := notification.NewMemoryStore()
		d, err := channel.NewDispatcher(store, channel.NewRegistry())
		require.NoError(t, err)

		n := createPending(t, store, func(n *notification.Notification) {
			n.Status = notification.StatusSent
		})

		require.NoError(t, d.MarkFailed(ctx, n.ID, "late failure"))

		got, err := store.FindByID(ctx, n.ID)
		require.NoError(t, err)
		assert.Equal(t, notification.StatusSent, got.Status)
		assert.Empty(t, store.Actions())
	})
}
