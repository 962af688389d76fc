package channel

import (
	"context"
	"errors"
	"fmt"
	"html"

	"github.com/google/uuid"

	"github.com/cardwise/notifq/pkg/email"
	"github.com/cardwise/notifq/pkg/notification"
)

// ErrSenderNil is returned when a nil email sender is provided.
var ErrSenderNil = errors.New("email sender cannot be nil")

// ErrNoRecipientAddress is returned when the recipient's email address cannot
// be resolved.
var ErrNoRecipientAddress = errors.New("no email address for recipient")

// EmailResolver maps a user id to their email address. User profiles live
// outside this subsystem, so the embedding service supplies the lookup.
type EmailResolver func(ctx context.Context, userID uuid.UUID) (string, error)

// Email delivers notifications over email through a provider-agnostic sender.
type Email struct {
	sender  email.EmailSender
	resolve EmailResolver
}

// NewEmail creates the email channel handler.
func NewEmail(sender email.EmailSender, resolve EmailResolver) (*Email, error) {
	if sender == nil {
		return nil, ErrSenderNil
	}
	if resolve == nil {
		return nil, errors.New("email resolver cannot be nil")
	}
	return &Email{sender: sender, resolve: resolve}, nil
}

// Channel implements Handler.
func (h *Email) Channel() notification.Channel {
	return notification.ChannelEmail
}

// Send implements Handler.
func (h *Email) Send(ctx context.Context, n notification.Notification) (SendResult, error) {
	addr, err := h.resolve(ctx, n.UserID)
	if err != nil {
		return SendResult{}, err
	}
	if addr == "" {
		return SendResult{}, ErrNoRecipientAddress
	}

	params := email.SendEmailParams{
		SendTo:   addr,
		Subject:  n.Title,
		BodyHTML: renderBody(n),
		Tag:      string(n.Type),
	}
	if err := h.sender.SendEmail(ctx, params); err != nil {
		return SendResult{}, err
	}

	return SendResult{MessageID: n.ID.String()}, nil
}

// Available implements Handler.
func (h *Email) Available(ctx context.Context) bool {
	return h.sender != nil
}

// renderBody wraps the notification message in minimal HTML. Rich templating
// belongs to the embedding service; the queue only guarantees the message
// arrives.
func renderBody(n notification.Notification) string {
	return fmt.Sprintf("<h2>%s</h2><p>%s</p>",
		html.EscapeString(n.Title),
		html.EscapeString(n.Message),
	)
}
