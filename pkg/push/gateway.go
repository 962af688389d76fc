package push

import "context"

// Message is a single push notification addressed to one device token.
type Message struct {
	Token string            `json:"token"`
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data,omitempty"`
	Badge *int              `json:"badge,omitempty"`
	Sound string            `json:"sound,omitempty"`
}

// Gateway abstracts the push provider so the channel handler stays testable
// without a live FCM project.
type Gateway interface {
	// Send delivers the message and returns the provider message id.
	Send(ctx context.Context, msg Message) (string, error)

	// Healthy reports whether the gateway is ready to accept sends.
	Healthy(ctx context.Context) bool
}
