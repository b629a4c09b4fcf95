// Package delivery discovers new messages on a ledger topic by polling its
// newest sequence number.
//
// # Backoff
//
// A [Poller] starts at the initial interval and multiplies it after every
// poll that finds nothing new, up to the maximum backoff (2s to 30s by
// default). Finding a new message resets the interval. Random jitter up to
// a fraction of the interval keeps many watchers from polling in lockstep.
//
// # Usage
//
//	p := delivery.NewPoller(delivery.Config{}, func(ctx context.Context) (int64, error) {
//	    info, err := l.GetTopicInfo(ctx, topicID)
//	    if err != nil {
//	        return 0, err
//	    }
//	    return info.SequenceNumber, nil
//	})
//	p.Run(ctx, 0, func(ctx context.Context, seq int64) {
//	    // fetch and decrypt seq
//	})
package delivery
