package delivery

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestConfig_Defaults(t *testing.T) {
	cfg := Config{}.withDefaults()

	if cfg.InitialInterval != 2*time.Second {
		t.Errorf("InitialInterval = %v, want 2s", cfg.InitialInterval)
	}
	if cfg.MaxBackoff != 30*time.Second {
		t.Errorf("MaxBackoff = %v, want 30s", cfg.MaxBackoff)
	}
	if cfg.BackoffMultiplier != 1.5 {
		t.Errorf("BackoffMultiplier = %v, want 1.5", cfg.BackoffMultiplier)
	}
	if cfg.JitterFactor != 0.3 {
		t.Errorf("JitterFactor = %v, want 0.3", cfg.JitterFactor)
	}

	custom := Config{InitialInterval: time.Second, MaxBackoff: 5 * time.Second}.withDefaults()
	if custom.InitialInterval != time.Second || custom.MaxBackoff != 5*time.Second {
		t.Errorf("custom config overridden: %+v", custom)
	}
}

func TestPoller_Backoff(t *testing.T) {
	p := NewPoller(Config{InitialInterval: time.Second, MaxBackoff: 3 * time.Second}, func(ctx context.Context) (int64, error) {
		return 0, nil
	})
	noop := func(ctx context.Context, seq int64) {}

	want := []time.Duration{1500 * time.Millisecond, 2250 * time.Millisecond, 3 * time.Second, 3 * time.Second}
	for i, w := range want {
		p.poll(context.Background(), noop)
		if p.interval != w {
			t.Errorf("poll %d: interval = %v, want %v", i, p.interval, w)
		}
	}
}

func TestPoller_ResetsOnNewMessages(t *testing.T) {
	head := int64(0)
	p := NewPoller(Config{InitialInterval: time.Second}, func(ctx context.Context) (int64, error) {
		return head, nil
	})

	var got []int64
	handler := func(ctx context.Context, seq int64) { got = append(got, seq) }

	p.poll(context.Background(), handler)
	p.poll(context.Background(), handler)
	if p.interval == time.Second {
		t.Fatal("interval did not back off")
	}

	head = 3
	p.poll(context.Background(), handler)
	if p.interval != time.Second {
		t.Errorf("interval = %v, want reset to 1s", p.interval)
	}
	if len(got) != 3 || got[0] != 1 || got[2] != 3 {
		t.Errorf("handled %v, want [1 2 3]", got)
	}
	if p.Last() != 3 {
		t.Errorf("Last() = %d, want 3", p.Last())
	}
}

func TestPoller_HeadError(t *testing.T) {
	p := NewPoller(Config{InitialInterval: time.Second}, func(ctx context.Context) (int64, error) {
		return 0, errors.New("unavailable")
	})
	called := false
	p.poll(context.Background(), func(ctx context.Context, seq int64) { called = true })

	if called {
		t.Error("handler called after head error")
	}
	if p.interval <= time.Second {
		t.Errorf("interval = %v, want backoff after error", p.interval)
	}
}

func TestPoller_WaitDurationJitter(t *testing.T) {
	p := NewPoller(Config{InitialInterval: time.Second, JitterFactor: 0.3}, nil)

	for i := 0; i < 100; i++ {
		d := p.waitDuration()
		if d < time.Second || d > 1300*time.Millisecond {
			t.Fatalf("waitDuration() = %v, want between 1s and 1.3s", d)
		}
	}
}

func TestPoller_Run(t *testing.T) {
	var mu sync.Mutex
	head := int64(2)
	p := NewPoller(Config{InitialInterval: 5 * time.Millisecond, MaxBackoff: 10 * time.Millisecond}, func(ctx context.Context) (int64, error) {
		mu.Lock()
		defer mu.Unlock()
		return head, nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	seen := make(chan int64, 10)
	done := make(chan struct{})
	go func() {
		p.Run(ctx, 1, func(ctx context.Context, seq int64) { seen <- seq })
		close(done)
	}()

	if seq := <-seen; seq != 2 {
		t.Fatalf("first seq = %d, want 2", seq)
	}

	mu.Lock()
	head = 4
	mu.Unlock()

	for _, want := range []int64{3, 4} {
		select {
		case seq := <-seen:
			if seq != want {
				t.Errorf("seq = %d, want %d", seq, want)
			}
		case <-ctx.Done():
			t.Fatal("timed out waiting for messages")
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancellation")
	}
}
