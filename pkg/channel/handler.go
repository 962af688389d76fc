package channel

import (
	"context"

	"github.com/cardwise/notifq/pkg/notification"
)

// SendResult carries the provider-side identifier of a successful send.
type SendResult struct {
	MessageID string
}

// Handler is the capability a delivery medium must satisfy. Adding a channel
// means implementing this interface and registering it; there is no base
// notification type to subclass and no switch statement to patch.
type Handler interface {
	// Channel identifies the medium this handler delivers to.
	Channel() notification.Channel

	// Send performs one delivery attempt.
	Send(ctx context.Context, n notification.Notification) (SendResult, error)

	// Available reports whether the handler can currently accept sends.
	// An unavailable handler is treated as a transient delivery failure.
	Available(ctx context.Context) bool
}
