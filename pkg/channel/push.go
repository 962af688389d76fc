package channel

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/cardwise/notifq/pkg/notification"
	"github.com/cardwise/notifq/pkg/push"
)

// ErrGatewayNil is returned when a nil push gateway is provided.
var ErrGatewayNil = errors.New("push gateway cannot be nil")

// ErrNoDeviceTokens is returned when the recipient has no registered devices.
var ErrNoDeviceTokens = errors.New("no device tokens for recipient")

// TokenResolver maps a user id to their registered device tokens.
type TokenResolver func(ctx context.Context, userID uuid.UUID) ([]string, error)

// PreferenceTokens resolves device tokens from the user's stored preferences.
func PreferenceTokens(store notification.Store) TokenResolver {
	return func(ctx context.Context, userID uuid.UUID) ([]string, error) {
		prefs, err := store.Preferences(ctx, userID)
		if err != nil {
			return nil, err
		}
		if prefs == nil {
			return nil, nil
		}
		return prefs.PushTokens, nil
	}
}

// Push delivers notifications to the user's devices through a push gateway.
type Push struct {
	gateway push.Gateway
	resolve TokenResolver
}

// NewPush creates the push channel handler.
func NewPush(gateway push.Gateway, resolve TokenResolver) (*Push, error) {
	if gateway == nil {
		return nil, ErrGatewayNil
	}
	if resolve == nil {
		return nil, errors.New("token resolver cannot be nil")
	}
	return &Push{gateway: gateway, resolve: resolve}, nil
}

// Channel implements Handler.
func (h *Push) Channel() notification.Channel {
	return notification.ChannelPush
}

// Send implements Handler. Delivery to any one of the user's devices counts
// as success; per-device failures are reported only when every device fails.
func (h *Push) Send(ctx context.Context, n notification.Notification) (SendResult, error) {
	tokens, err := h.resolve(ctx, n.UserID)
	if err != nil {
		return SendResult{}, err
	}
	if len(tokens) == 0 {
		return SendResult{}, ErrNoDeviceTokens
	}

	msg := push.Message{
		Title: n.Title,
		Body:  n.Message,
		Data:  pushData(n),
	}

	var firstID string
	var sendErrs []error
	for _, token := range tokens {
		msg.Token = token
		id, err := h.gateway.Send(ctx, msg)
		if err != nil {
			sendErrs = append(sendErrs, err)
			continue
		}
		if firstID == "" {
			firstID = id
		}
	}

	if firstID == "" {
		return SendResult{}, errors.Join(sendErrs...)
	}
	return SendResult{MessageID: firstID}, nil
}

// Available implements Handler.
func (h *Push) Available(ctx context.Context) bool {
	return h.gateway.Healthy(ctx)
}

// pushData flattens the notification payload into the string map FCM expects.
func pushData(n notification.Notification) map[string]string {
	data := map[string]string{
		"notification_id": n.ID.String(),
		"type":            string(n.Type),
	}
	for k, v := range n.Data {
		data[k] = fmt.Sprint(v)
	}
	return data
}
