package memledger

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cryptotopic/client-go/ledger"
	"github.com/cryptotopic/client-go/ledger/ledgertest"
)

func TestLedger_Conformance(t *testing.T) {
	ledgertest.Run(t, New())
}

func TestLedger_WithChunking(t *testing.T) {
	l := New(WithChunking(4, 2))
	assert.Equal(t, 8, l.MaxMessageSize())

	ctx := context.Background()
	id, err := l.CreateTopic(ctx, "k", "")
	require.NoError(t, err)

	seq, err := l.SubmitMessageToTopic(ctx, "k", id, "12345678")
	require.NoError(t, err)
	got, err := l.GetMessageFromTopic(ctx, seq, id)
	require.NoError(t, err)
	assert.Equal(t, "12345678", got)

	_, err = l.SubmitMessageToTopic(ctx, "k", id, "123456789")
	assert.ErrorIs(t, err, ledger.ErrMessageTooLarge)
}

func TestLedger_ConcurrentSubmit(t *testing.T) {
	l := New()
	ctx := context.Background()
	id, err := l.CreateTopic(ctx, "k", "")
	require.NoError(t, err)

	msg := strings.Repeat("m", ledger.ChunkSize+1)
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			seq, err := l.SubmitMessageToTopic(ctx, "k", id, msg)
			assert.NoError(t, err)
			got, err := l.GetMessageFromTopic(ctx, seq, id)
			assert.NoError(t, err)
			assert.Equal(t, msg, got)
		}()
	}
	wg.Wait()

	info, err := l.GetTopicInfo(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int64(20), info.SequenceNumber)
}

func TestLedger_CancelledContext(t *testing.T) {
	l := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := l.CreateTopic(ctx, "k", "")
	assert.ErrorIs(t, err, context.Canceled)
}
