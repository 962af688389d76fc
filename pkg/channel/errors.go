package channel

import "errors"

var (
	// ErrHandlerNotRegistered is returned when no handler exists for a
	// notification's channel. Treated as transient: the handler may be
	// registered by the time the retry fires.
	ErrHandlerNotRegistered = errors.New("no handler registered for channel")

	// ErrChannelUnavailable is returned when the handler reports it cannot
	// currently accept sends.
	ErrChannelUnavailable = errors.New("channel is currently unavailable")

	// ErrNotificationExpired is returned when a notification's expiry passed
	// before delivery. Terminal, never retried.
	ErrNotificationExpired = errors.New("notification expired before delivery")

	// ErrAlreadyFinalized is returned when a notification is in a terminal
	// status and no further delivery attempt is allowed.
	ErrAlreadyFinalized = errors.New("notification is in a terminal status")
)

// TransientError marks a delivery failure that may succeed on a later
// attempt. The queue retries transient failures within the attempt budget and
// converts the last one into a permanent failure.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return "transient delivery failure: " + e.Err.Error()
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// Transient wraps err as a TransientError. Nil stays nil.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Err: err}
}

// IsTransient reports whether err is (or wraps) a TransientError.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}
