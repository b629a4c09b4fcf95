package delivery

import (
	"context"
	"time"
)

// HeadFunc returns the newest sequence number of the watched topic.
type HeadFunc func(ctx context.Context) (int64, error)

// Handler is invoked once for every new sequence number, in order.
type Handler func(ctx context.Context, seq int64)

// Config holds polling configuration.
type Config struct {
	// InitialInterval is the starting interval between polls.
	// If zero, defaults to DefaultInitialInterval.
	InitialInterval time.Duration

	// MaxBackoff is the maximum interval between polls.
	// If zero, defaults to DefaultMaxBackoff.
	MaxBackoff time.Duration

	// BackoffMultiplier is the factor by which the interval
	// increases after each poll with no new messages.
	// If zero, defaults to DefaultBackoffMultiplier.
	BackoffMultiplier float64

	// JitterFactor is the maximum random jitter added to
	// poll intervals (as a fraction of the interval).
	// If zero, defaults to DefaultJitterFactor.
	JitterFactor float64
}

// Default polling configuration values.
const (
	DefaultInitialInterval   = 2 * time.Second
	DefaultMaxBackoff        = 30 * time.Second
	DefaultBackoffMultiplier = 1.5
	DefaultJitterFactor      = 0.3
)

func (c Config) withDefaults() Config {
	if c.InitialInterval <= 0 {
		c.InitialInterval = DefaultInitialInterval
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = DefaultMaxBackoff
	}
	if c.BackoffMultiplier <= 0 {
		c.BackoffMultiplier = DefaultBackoffMultiplier
	}
	if c.JitterFactor <= 0 {
		c.JitterFactor = DefaultJitterFactor
	}
	return c
}
