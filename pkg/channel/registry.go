package channel

import (
	"sync"

	"github.com/cardwise/notifq/pkg/notification"
)

// Registry maps channels to their handlers. It is populated at startup;
// Register is safe for concurrent use so late wiring doesn't race the
// worker pool.
type Registry struct {
	mu       sync.RWMutex
	handlers map[notification.Channel]Handler
}

// NewRegistry creates a registry pre-populated with the given handlers.
func NewRegistry(handlers ...Handler) *Registry {
	r := &Registry{
		handlers: make(map[notification.Channel]Handler, len(handlers)),
	}
	for _, h := range handlers {
		r.Register(h)
	}
	return r
}

// Register adds or replaces the handler for its channel. Nil handlers are
// ignored.
func (r *Registry) Register(h Handler) {
	if h == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[h.Channel()] = h
}

// Resolve returns the handler registered for the channel, if any.
func (r *Registry) Resolve(ch notification.Channel) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	h, ok := r.handlers[ch]
	return h, ok
}

// Channels lists the channels with a registered handler.
func (r *Registry) Channels() []notification.Channel {
	r.mu.RLock()
	defer r.mu.RUnlock()

	chs := make([]notification.Channel, 0, len(r.handlers))
	for ch := range r.handlers {
		chs = append(chs, ch)
	}
	return chs
}
