package cryptotopic

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cryptotopic/client-go/ledger/memledger"
)

func newWatchClient(t *testing.T) *Client {
	t.Helper()

	c, err := New(memledger.New(memledger.WithLogger(quietLogger())),
		WithLogger(quietLogger()),
		WithPollingInitialInterval(10*time.Millisecond),
		WithPollingMaxBackoff(50*time.Millisecond),
		WithPollingJitterFactor(0),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c
}

func TestWatch_NewMessages(t *testing.T) {
	c := newWatchClient(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	kp := mustKeyPair(t, Kyber512)

	id, err := c.CreateTopic(ctx, []string{kp.PublicKey}, Kyber512)
	if err != nil {
		t.Fatalf("CreateTopic() error = %v", err)
	}
	topic := c.OpenTopic(id, kp.PrivateKey)
	if _, err := topic.SubmitMessage(ctx, []byte("old")); err != nil {
		t.Fatalf("SubmitMessage() error = %v", err)
	}

	watchCtx, stop := context.WithCancel(ctx)
	ch := topic.Watch(watchCtx)

	// Give the watcher time to read the head before submitting.
	time.Sleep(50 * time.Millisecond)
	for _, text := range []string{"one", "two"} {
		if _, err := topic.SubmitMessage(ctx, []byte(text)); err != nil {
			t.Fatalf("SubmitMessage() error = %v", err)
		}
	}

	for _, want := range []string{"one", "two"} {
		select {
		case msg := <-ch:
			if string(msg.Plaintext) != want {
				t.Errorf("Watch() message = %q, want %q", msg.Plaintext, want)
			}
		case <-ctx.Done():
			t.Fatalf("timed out waiting for %q", want)
		}
	}

	stop()
	for range ch {
	}
}

func TestWatch_SkipsUnreadable(t *testing.T) {
	c := newWatchClient(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	p1 := mustKeyPair(t, RSA2048)
	p2 := mustKeyPair(t, RSA2048)

	id, err := c.CreateTopic(ctx, []string{p1.PublicKey, p2.PublicKey}, RSA2048, fullTopic()...)
	if err != nil {
		t.Fatalf("CreateTopic() error = %v", err)
	}
	t1 := c.OpenTopic(id, p1.PrivateKey)
	if _, err := t1.SubmitMessage(ctx, []byte("shared")); err != nil {
		t.Fatalf("SubmitMessage() error = %v", err)
	}
	if err := t1.RotateEncryptionKey(ctx, ExcludeParticipants(p2.PublicKey)); err != nil {
		t.Fatalf("RotateEncryptionKey() error = %v", err)
	}
	if _, err := t1.SubmitMessage(ctx, []byte("private")); err != nil {
		t.Fatalf("SubmitMessage() error = %v", err)
	}

	watchCtx, stop := context.WithTimeout(ctx, 500*time.Millisecond)
	defer stop()

	var got []string
	for msg := range c.OpenTopic(id, p2.PrivateKey).Watch(watchCtx, WithStartSequence(1)) {
		got = append(got, string(msg.Plaintext))
	}
	if len(got) != 1 || got[0] != "shared" {
		t.Errorf("Watch() delivered %q, want [shared]", got)
	}
}

func TestWaitForMessage(t *testing.T) {
	c := newWatchClient(t)
	ctx := context.Background()
	kp := mustKeyPair(t, Kyber768)

	id, err := c.CreateTopic(ctx, []string{kp.PublicKey}, Kyber768)
	if err != nil {
		t.Fatalf("CreateTopic() error = %v", err)
	}
	topic := c.OpenTopic(id, kp.PrivateKey)

	t.Run("existing message", func(t *testing.T) {
		seq, err := topic.SubmitMessage(ctx, []byte("ready"))
		if err != nil {
			t.Fatalf("SubmitMessage() error = %v", err)
		}
		msg, err := topic.WaitForMessage(ctx, nil, WithWaitTimeout(5*time.Second))
		if err != nil {
			t.Fatalf("WaitForMessage() error = %v", err)
		}
		if msg.SequenceNumber != seq {
			t.Errorf("SequenceNumber = %d, want %d", msg.SequenceNumber, seq)
		}
	})

	t.Run("future message", func(t *testing.T) {
		go func() {
			time.Sleep(50 * time.Millisecond)
			_, _ = topic.SubmitMessage(ctx, []byte("later"))
		}()
		msg, err := topic.WaitForMessage(ctx, func(m *Message) bool {
			return string(m.Plaintext) == "later"
		}, WithWaitTimeout(5*time.Second))
		if err != nil {
			t.Fatalf("WaitForMessage() error = %v", err)
		}
		if string(msg.Plaintext) != "later" {
			t.Errorf("Plaintext = %q, want %q", msg.Plaintext, "later")
		}
	})

	t.Run("timeout", func(t *testing.T) {
		_, err := topic.WaitForMessage(ctx, func(*Message) bool { return false }, WithWaitTimeout(100*time.Millisecond))
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("WaitForMessage() error = %v, want context.DeadlineExceeded", err)
		}
	})
}

func TestSubscribe_MissingTopic(t *testing.T) {
	c := newWatchClient(t)
	kp := mustKeyPair(t, Kyber512)
	topic := c.OpenTopic("0.0.9999", kp.PrivateKey)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := topic.Subscribe(ctx); !errors.Is(err, ErrTopicNotFound) {
		t.Errorf("Subscribe() error = %v, want ErrTopicNotFound", err)
	}
	if _, err := topic.Subscribe(ctx, WithStartSequence(1)); !errors.Is(err, ErrTopicNotFound) {
		t.Errorf("Subscribe(WithStartSequence(1)) error = %v, want ErrTopicNotFound", err)
	}

	select {
	case _, ok := <-topic.Watch(ctx):
		if ok {
			t.Error("Watch() delivered a message for a missing topic")
		}
	case <-ctx.Done():
		t.Fatal("Watch() channel was not closed for a missing topic")
	}

	start := time.Now()
	_, err := topic.WaitForMessage(ctx, nil, WithWaitTimeout(3*time.Second))
	if !errors.Is(err, ErrTopicNotFound) {
		t.Errorf("WaitForMessage() error = %v, want ErrTopicNotFound", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("WaitForMessage() took %v on a missing topic", elapsed)
	}
}
