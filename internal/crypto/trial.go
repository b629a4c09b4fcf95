package crypto

import (
	"context"
	"errors"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"
)

// errFound stops the errgroup once a probe succeeds.
var errFound = errors.New("candidate found")

// candidate is a recovered topic key together with the opened target payload.
type candidate struct {
	key     TopicKey
	payload []byte
}

// probeFunc tests the outer candidate i. It reports false when i yields
// nothing; individual failures inside a probe are not errors.
type probeFunc func(ctx context.Context, i int) (candidate, bool)

// search runs probe for every i in [0, n) and returns the first success.
// Probes run concurrently, bounded by GOMAXPROCS, and the first success
// cancels the rest. Exhausting every candidate yields ErrAccessDenied.
func search(ctx context.Context, n int, probe probeFunc) (candidate, error) {
	var (
		once   sync.Once
		result candidate
		found  bool
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))

	for i := 0; i < n; i++ {
		if gctx.Err() != nil {
			break
		}
		i := i
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			c, ok := probe(gctx, i)
			if !ok {
				return nil
			}
			once.Do(func() {
				result = c
				found = true
			})
			return errFound
		})
	}
	_ = g.Wait()

	if found {
		return result, nil
	}
	if err := ctx.Err(); err != nil {
		return candidate{}, err
	}
	return candidate{}, ErrAccessDenied
}
