package delivery

import (
	"context"
	"math/rand"
	"time"
)

// Poller watches one topic for new sequence numbers.
type Poller struct {
	cfg      Config
	head     HeadFunc
	last     int64
	interval time.Duration
}

// NewPoller creates a poller that asks head for the newest sequence number.
func NewPoller(cfg Config, head HeadFunc) *Poller {
	cfg = cfg.withDefaults()
	return &Poller{
		cfg:      cfg,
		head:     head,
		interval: cfg.InitialInterval,
	}
}

// Run polls until ctx is done, calling handler for every sequence number
// after last. It polls once immediately.
func (p *Poller) Run(ctx context.Context, last int64, handler Handler) {
	p.last = last
	for {
		p.poll(ctx, handler)

		select {
		case <-ctx.Done():
			return
		case <-time.After(p.waitDuration()):
		}
	}
}

// poll fetches the head once and delivers anything new.
func (p *Poller) poll(ctx context.Context, handler Handler) {
	head, err := p.head(ctx)
	if err != nil || head <= p.last {
		// No changes - increase backoff
		p.interval = time.Duration(float64(p.interval) * p.cfg.BackoffMultiplier)
		if p.interval > p.cfg.MaxBackoff {
			p.interval = p.cfg.MaxBackoff
		}
		return
	}

	for seq := p.last + 1; seq <= head; seq++ {
		if ctx.Err() != nil {
			return
		}
		handler(ctx, seq)
		p.last = seq
	}
	p.interval = p.cfg.InitialInterval
}

func (p *Poller) waitDuration() time.Duration {
	jitter := time.Duration(rand.Float64() * p.cfg.JitterFactor * float64(p.interval))
	return p.interval + jitter
}

// Last returns the last sequence number handed to the handler.
func (p *Poller) Last() int64 {
	return p.last
}
