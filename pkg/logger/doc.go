// Package logger provides a slog.Logger factory with environment presets,
// context-driven attribute injection, and attr helpers for the identifiers
// this system logs most (notification, user, worker, channel).
//
// # Usage
//
//	log := logger.New(
//	    logger.WithProduction("notifq"),
//	    logger.WithContextValue("request_id", requestIDKey),
//	)
//	log.Info("notification sent",
//	    logger.NotificationID(id),
//	    logger.Channel(ch),
//	)
//
// The returned logger is a standard *slog.Logger and can be passed to any
// component accepting one.
package logger
