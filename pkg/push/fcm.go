package push

import (
	"context"
	"errors"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

// Config holds Firebase Cloud Messaging configuration.
type Config struct {
	CredentialsPath string `env:"FCM_CREDENTIALS_PATH"`
	ProjectID       string `env:"FCM_PROJECT_ID"`
}

// FCMGateway implements Gateway on top of Firebase Cloud Messaging.
type FCMGateway struct {
	client *messaging.Client
}

// NewFCMGateway initializes the Firebase app and its messaging client.
func NewFCMGateway(ctx context.Context, cfg Config) (*FCMGateway, error) {
	if cfg.ProjectID == "" {
		return nil, fmt.Errorf("%w: ProjectID is required", ErrInvalidConfig)
	}

	var opts []option.ClientOption
	if cfg.CredentialsPath != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsPath))
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.ProjectID}, opts...)
	if err != nil {
		return nil, errors.Join(ErrGatewayInit, err)
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, errors.Join(ErrGatewayInit, err)
	}

	return &FCMGateway{client: client}, nil
}

// Send implements Gateway.
func (g *FCMGateway) Send(ctx context.Context, msg Message) (string, error) {
	if msg.Token == "" {
		return "", ErrMissingToken
	}

	out := &messaging.Message{
		Token: msg.Token,
		Notification: &messaging.Notification{
			Title: msg.Title,
			Body:  msg.Body,
		},
		Data: msg.Data,
		Android: &messaging.AndroidConfig{
			Priority: "high",
			Notification: &messaging.AndroidNotification{
				Sound: msg.Sound,
			},
		},
		APNS: &messaging.APNSConfig{
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					Badge: msg.Badge,
					Sound: msg.Sound,
				},
			},
		},
	}

	id, err := g.client.Send(ctx, out)
	if err != nil {
		return "", errors.Join(ErrSendFailed, err)
	}
	return id, nil
}

// Healthy implements Gateway. The FCM client has no ping endpoint; a
// successfully initialized client is treated as ready.
func (g *FCMGateway) Healthy(ctx context.Context) bool {
	return g.client != nil
}
