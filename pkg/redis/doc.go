// Package redis provides connection management for the Redis instance that
// holds all queue coordination state (ready queue, scheduled set, processing
// set, leases, stats counters): env-driven Config, Connect with bounded
// retries, and a Healthcheck probe.
package redis
