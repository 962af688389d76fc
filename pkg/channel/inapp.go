package channel

import (
	"context"

	"github.com/cardwise/notifq/pkg/notification"
)

// InApp delivers to the user's in-app notification feed. The stored record is
// the delivery: once the dispatcher marks it sent it appears in the feed, so
// Send only verifies the record still exists. Always available.
type InApp struct {
	store notification.Store
}

// NewInApp creates the in-app channel handler.
func NewInApp(store notification.Store) (*InApp, error) {
	if store == nil {
		return nil, ErrStoreNil
	}
	return &InApp{store: store}, nil
}

// Channel implements Handler.
func (h *InApp) Channel() notification.Channel {
	return notification.ChannelInApp
}

// Send implements Handler.
func (h *InApp) Send(ctx context.Context, n notification.Notification) (SendResult, error) {
	if _, err := h.store.FindByID(ctx, n.ID); err != nil {
		return SendResult{}, err
	}
	return SendResult{MessageID: n.ID.String()}, nil
}

// Available implements Handler.
func (h *InApp) Available(ctx context.Context) bool {
	return true
}
