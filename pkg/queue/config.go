package queue

import "time"

// Config holds the environment-driven configuration for the delivery queue.
type Config struct {
	Concurrency       int             `env:"QUEUE_CONCURRENCY" envDefault:"3"`
	MaxAttempts       int             `env:"QUEUE_MAX_ATTEMPTS" envDefault:"4"`
	RetryDelays       []time.Duration `env:"QUEUE_RETRY_DELAYS" envDefault:"1s,5s,15s,60s"`
	PromoteInterval   time.Duration   `env:"QUEUE_PROMOTE_INTERVAL" envDefault:"1s"`
	PromoteBackoff    time.Duration   `env:"QUEUE_PROMOTE_BACKOFF" envDefault:"5s"`
	PromoteBatch      int             `env:"QUEUE_PROMOTE_BATCH" envDefault:"100"`
	IdleSleep         time.Duration   `env:"QUEUE_IDLE_SLEEP" envDefault:"100ms"`
	IdleJitter        time.Duration   `env:"QUEUE_IDLE_JITTER" envDefault:"25ms"`
	LeaseTTL          time.Duration   `env:"QUEUE_LEASE_TTL" envDefault:"5s"`
	ProcessingTimeout time.Duration   `env:"QUEUE_PROCESSING_TIMEOUT" envDefault:"30s"`
	ReapInterval      time.Duration   `env:"QUEUE_REAP_INTERVAL" envDefault:"10s"`
	StatsInterval     time.Duration   `env:"QUEUE_STATS_INTERVAL" envDefault:"60s"`
}

// Options converts the config into functional options for New.
func (c Config) Options() []Option {
	return []Option{
		WithConcurrency(c.Concurrency),
		WithMaxAttempts(c.MaxAttempts),
		WithRetryDelays(c.RetryDelays...),
		WithPromoteInterval(c.PromoteInterval),
		WithPromoteBackoff(c.PromoteBackoff),
		WithPromoteBatch(c.PromoteBatch),
		WithIdleSleep(c.IdleSleep, c.IdleJitter),
		WithLeaseTTL(c.LeaseTTL),
		WithProcessingTimeout(c.ProcessingTimeout),
		WithReapInterval(c.ReapInterval),
		WithStatsInterval(c.StatsInterval),
	}
}
