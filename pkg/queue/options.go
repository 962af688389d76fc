package queue

import (
	"log/slog"
	"time"
)

// Option is a functional option for configuring a Queue.
type Option func(*options)

type options struct {
	concurrency       int
	maxAttempts       int
	retryDelays       []time.Duration
	promoteInterval   time.Duration
	promoteBackoff    time.Duration
	promoteBatch      int
	idleSleep         time.Duration
	idleJitter        time.Duration
	leaseTTL          time.Duration
	processingTimeout time.Duration
	reapInterval      time.Duration
	statsInterval     time.Duration
	logger            *slog.Logger
}

func defaultOptions() *options {
	return &options{
		concurrency:       3,
		maxAttempts:       4,
		retryDelays:       []time.Duration{time.Second, 5 * time.Second, 15 * time.Second, time.Minute},
		promoteInterval:   time.Second,
		promoteBackoff:    5 * time.Second,
		promoteBatch:      100,
		idleSleep:         100 * time.Millisecond,
		idleJitter:        25 * time.Millisecond,
		leaseTTL:          5 * time.Second,
		processingTimeout: 30 * time.Second,
		reapInterval:      10 * time.Second,
		statsInterval:     time.Minute,
	}
}

// WithConcurrency sets the number of delivery workers.
func WithConcurrency(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.concurrency = n
		}
	}
}

// WithMaxAttempts sets the default per-item delivery attempt budget.
func WithMaxAttempts(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxAttempts = n
		}
	}
}

// WithRetryDelays sets the escalating backoff table, indexed by completed
// attempt count and clamped to its last entry. Delays must be non-decreasing;
// out-of-order tables are ignored to preserve backoff monotonicity.
func WithRetryDelays(delays ...time.Duration) Option {
	return func(o *options) {
		if len(delays) == 0 {
			return
		}
		for i := 1; i < len(delays); i++ {
			if delays[i] < delays[i-1] {
				return
			}
		}
		o.retryDelays = delays
	}
}

// WithPromoteInterval sets how often due scheduled items are promoted.
func WithPromoteInterval(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.promoteInterval = d
		}
	}
}

// WithPromoteBackoff sets the promoter's wait after a failed tick.
func WithPromoteBackoff(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.promoteBackoff = d
		}
	}
}

// WithPromoteBatch bounds how many items one promoter tick may move.
func WithPromoteBatch(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.promoteBatch = n
		}
	}
}

// WithIdleSleep sets the worker's sleep between empty polls, plus a jitter
// bound added per sleep to spread workers apart.
func WithIdleSleep(d, jitter time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.idleSleep = d
		}
		if jitter >= 0 {
			o.idleJitter = jitter
		}
	}
}

// WithLeaseTTL sets the expiry of the worker claim lease.
func WithLeaseTTL(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.leaseTTL = d
		}
	}
}

// WithProcessingTimeout sets how long a claimed item may stay in the
// processing set before the reaper requeues it.
func WithProcessingTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.processingTimeout = d
		}
	}
}

// WithReapInterval sets how often the reaper scans for abandoned claims.
func WithReapInterval(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.reapInterval = d
		}
	}
}

// WithStatsInterval sets how often the stats collector runs.
func WithStatsInterval(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.statsInterval = d
		}
	}
}

// WithLogger sets the logger for the queue and its background tasks.
func WithLogger(log *slog.Logger) Option {
	return func(o *options) {
		if log != nil {
			o.logger = log
		}
	}
}
