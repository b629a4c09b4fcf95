package cryptotopic

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/cryptotopic/client-go/internal/delivery"
)

func (t *Topic) head(ctx context.Context) (int64, error) {
	info, err := t.client.ledger.GetTopicInfo(ctx, t.id)
	if err != nil {
		return 0, wrapLedgerError("GetTopicInfo", err)
	}
	return info.SequenceNumber, nil
}

// Watch returns a channel that receives messages as they are submitted.
// Messages the private key cannot decrypt are skipped. The channel is closed
// once ctx is done, or immediately if the topic cannot be read.
//
// Example:
//
//	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
//	defer cancel()
//
//	for msg := range topic.Watch(ctx) {
//	    fmt.Printf("#%d: %s\n", msg.SequenceNumber, msg.Plaintext)
//	}
func (t *Topic) Watch(ctx context.Context, opts ...WatchOption) <-chan *Message {
	ch, err := t.Subscribe(ctx, opts...)
	if err != nil {
		t.logger().Errorf("Error starting watch: %v", err)
		closed := make(chan *Message)
		close(closed)
		return closed
	}
	return ch
}

// Subscribe is Watch for callers that need to know whether the watch
// started. It reads the topic head before returning and reports a missing
// or unreadable topic as an error.
func (t *Topic) Subscribe(ctx context.Context, opts ...WatchOption) (<-chan *Message, error) {
	cfg := &watchConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	head, err := t.head(ctx)
	if err != nil {
		return nil, err
	}
	last := cfg.from - 1
	if cfg.from <= 0 {
		last = head
	}

	ch := make(chan *Message, 16)
	go func() {
		defer close(ch)

		poller := delivery.NewPoller(t.client.poll, t.head)
		poller.Run(ctx, last, func(ctx context.Context, seq int64) {
			msg, err := t.getMessage(ctx, seq)
			if err != nil {
				t.logger().WithFields(logrus.Fields{
					"sequence": seq,
				}).Debugf("Skipping message: %v", err)
				return
			}
			select {
			case ch <- msg:
			case <-ctx.Done():
			}
		})
	}()
	return ch, nil
}

// WaitForMessage returns the first message, existing or new, for which
// match returns true. A nil match accepts any message.
func (t *Topic) WaitForMessage(ctx context.Context, match func(*Message) bool, opts ...WatchOption) (*Message, error) {
	cfg := &watchConfig{
		from:    1,
		timeout: defaultWaitTimeout,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if match == nil {
		match = func(*Message) bool { return true }
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.timeout)
	defer cancel()

	from := cfg.from
	if from < 1 {
		from = 1
	}
	ch, err := t.Subscribe(ctx, WithStartSequence(from))
	if err != nil {
		return nil, err
	}
	for msg := range ch {
		if match(msg) {
			return msg, nil
		}
	}
	return nil, ctx.Err()
}
