// Package push wraps the push provider behind a small Gateway interface.
// FCMGateway is the production implementation (Firebase Cloud Messaging);
// tests and development environments substitute their own Gateway.
package push
