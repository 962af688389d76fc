package queue

import "errors"

// Common errors
var (
	// ErrStorageNil is returned when a nil queue storage is provided
	ErrStorageNil = errors.New("queue storage cannot be nil")

	// ErrDispatcherNil is returned when a nil channel dispatcher is provided
	ErrDispatcherNil = errors.New("channel dispatcher cannot be nil")

	// ErrStoreNil is returned when a nil notification store is provided
	ErrStoreNil = errors.New("notification store cannot be nil")

	// ErrNoItemToClaim is returned by an atomic pop on an empty ready queue.
	// Normal condition, transparently absorbed by the worker loop.
	ErrNoItemToClaim = errors.New("no ready item to claim")

	// ErrInvalidPriority is returned when an unknown priority tier is requested
	ErrInvalidPriority = errors.New("invalid priority")

	// ErrTerminalStatus is returned when enqueueing a notification whose
	// status permits no further delivery attempts
	ErrTerminalStatus = errors.New("notification is in a terminal status")

	// ErrAlreadyRunning is returned by Start on a running queue
	ErrAlreadyRunning = errors.New("queue is already running")

	// ErrNotRunning is returned by Stop on a stopped queue
	ErrNotRunning = errors.New("queue is not running")

	// ErrNoItemsToEnqueue is returned when batch enqueue is called with no entries
	ErrNoItemsToEnqueue = errors.New("no items to enqueue")
)
