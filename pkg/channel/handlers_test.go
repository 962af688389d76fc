package channel_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardwise/notifq/pkg/channel"
	"github.com/cardwise/notifq/pkg/email"
	"github.com/cardwise/notifq/pkg/notification"
	"github.com/cardwise/notifq/pkg/push"
)

// recordingSender captures the emails a handler asks to send.
type recordingSender struct {
	sent []email.SendEmailParams
	err  error
}

func (s *recordingSender) SendEmail(ctx context.Context, params email.SendEmailParams) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, params)
	return nil
}

func sampleNotification(ch notification.Channel) notification.Notification {
	return notification.Notification{
		ID:      uuid.New(),
		UserID:  uuid.New(),
		Type:    notification.TypeRewardMilestone,
		Title:   "You hit $500 cashback",
		Message: "Your rewards balance crossed $500 this month.",
		Channel: ch,
	}
}

func TestInAppHandler(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("nil store", func(t *testing.T) {
		t.Parallel()
		_, err := channel.NewInApp(nil)
		assert.ErrorIs(t, err, channel.ErrStoreNil)
	})

	t.Run("delivers against the stored record", func(t *testing.T) {
		t.Parallel()

		store := notification.NewMemoryStore()
		h, err := channel.NewInApp(store)
		require.NoError(t, err)
		assert.Equal(t, notification.ChannelInApp, h.Channel())
		assert.True(t, h.Available(ctx))

		n := sampleNotification(notification.ChannelInApp)
		require.NoError(t, store.Create(ctx, n))

		result, err := h.Send(ctx, n)
		require.NoError(t, err)
		assert.Equal(t, n.ID.String(), result.MessageID)
	})

	t.Run("missing record fails", func(t *testing.T) {
		t.Parallel()

		h, err := channel.NewInApp(notification.NewMemoryStore())
		require.NoError(t, err)

		_, err = h.Send(ctx, sampleNotification(notification.ChannelInApp))
		assert.ErrorIs(t, err, notification.ErrNotFound)
	})
}

func TestEmailHandler(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	resolveTo := func(addr string) channel.EmailResolver {
		return func(ctx context.Context, userID uuid.UUID) (string, error) {
			return addr, nil
		}
	}

	t.Run("constructor validation", func(t *testing.T) {
		t.Parallel()

		_, err := channel.NewEmail(nil, resolveTo("user@example.com"))
		assert.ErrorIs(t, err, channel.ErrSenderNil)

		_, err = channel.NewEmail(&recordingSender{}, nil)
		assert.Error(t, err)
	})

	t.Run("renders and sends", func(t *testing.T) {
		t.Parallel()

		sender := &recordingSender{}
		h, err := channel.NewEmail(sender, resolveTo("user@example.com"))
		require.NoError(t, err)
		assert.Equal(t, notification.ChannelEmail, h.Channel())
		assert.True(t, h.Available(ctx))

		n := sampleNotification(notification.ChannelEmail)
		n.Title = "Alert <script>"
		result, err := h.Send(ctx, n)
		require.NoError(t, err)
		assert.Equal(t, n.ID.String(), result.MessageID)

		require.Len(t, sender.sent, 1)
		sent := sender.sent[0]
		assert.Equal(t, "user@example.com", sent.SendTo)
		assert.Equal(t, "Alert <script>", sent.Subject)
		assert.Contains(t, sent.BodyHTML, "Alert &lt;script&gt;", "title must be HTML-escaped in the body")
		assert.Equal(t, string(n.Type), sent.Tag)
	})

	t.Run("no address", func(t *testing.T) {
		t.Parallel()

		h, err := channel.NewEmail(&recordingSender{}, resolveTo(""))
		require.NoError(t, err)

		_, err = h.Send(ctx, sampleNotification(notification.ChannelEmail))
		assert.ErrorIs(t, err, channel.ErrNoRecipientAddress)
	})

	t.Run("sender failure propagates", func(t *testing.T) {
		t.Parallel()

		sender := &recordingSender{err: errors.New("postmark 500")}
		h, err := channel.NewEmail(sender, resolveTo("user@example.com"))
		require.NoError(t, err)

		_, err = h.Send(ctx, sampleNotification(notification.ChannelEmail))
		assert.ErrorContains(t, err, "postmark 500")
	})
}

func TestPushHandler(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	resolveTokens := func(tokens ...string) channel.TokenResolver {
		return func(ctx context.Context, userID uuid.UUID) ([]string, error) {
			return tokens, nil
		}
	}

	t.Run("constructor validation", func(t *testing.T) {
		t.Parallel()

		_, err := channel.NewPush(nil, resolveTokens())
		assert.ErrorIs(t, err, channel.ErrGatewayNil)

		_, err = channel.NewPush(&push.SimulatedGateway{}, nil)
		assert.Error(t, err)
	})

	t.Run("delivers to all devices", func(t *testing.T) {
		t.Parallel()

		gateway := &push.SimulatedGateway{}
		h, err := channel.NewPush(gateway, resolveTokens("device-1", "device-2"))
		require.NoError(t, err)
		assert.Equal(t, notification.ChannelPush, h.Channel())
		assert.True(t, h.Available(ctx))

		result, err := h.Send(ctx, sampleNotification(notification.ChannelPush))
		require.NoError(t, err)
		assert.NotEmpty(t, result.MessageID)
		assert.Equal(t, int64(2), gateway.Sends())
	})

	t.Run("one device succeeding is enough", func(t *testing.T) {
		t.Parallel()

		// FailEvery 2 fails the second send; the first already succeeded.
		gateway := &push.SimulatedGateway{FailEvery: 2}
		h, err := channel.NewPush(gateway, resolveTokens("device-1", "device-2"))
		require.NoError(t, err)

		result, err := h.Send(ctx, sampleNotification(notification.ChannelPush))
		require.NoError(t, err)
		assert.NotEmpty(t, result.MessageID)
	})

	t.Run("all devices failing fails the send", func(t *testing.T) {
		t.Parallel()

		gateway := &push.SimulatedGateway{FailEvery: 1}
		h, err := channel.NewPush(gateway, resolveTokens("device-1", "device-2"))
		require.NoError(t, err)

		_, err = h.Send(ctx, sampleNotification(notification.ChannelPush))
		assert.Error(t, err)
	})

	t.Run("no device tokens", func(t *testing.T) {
		t.Parallel()

		h, err := channel.NewPush(&push.SimulatedGateway{}, resolveTokens())
		require.NoError(t, err)

		_, err = h.Send(ctx, sampleNotification(notification.ChannelPush))
		assert.ErrorIs(t, err, channel.ErrNoDeviceTokens)
	})

	t.Run("preference tokens resolver", func(t *testing.T) {
		t.Parallel()

		store := notification.NewMemoryStore()
		userID := uuid.New()
		store.SetPreferences(notification.Preferences{
			UserID:     userID,
			PushTokens: []string{"device-9"},
		})

		resolve := channel.PreferenceTokens(store)
		tokens, err := resolve(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, []string{"device-9"}, tokens)

		tokens, err = resolve(ctx, uuid.New())
		require.NoError(t, err)
		assert.Empty(t, tokens)
	})
}
