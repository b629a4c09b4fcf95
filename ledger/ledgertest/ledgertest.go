// Package ledgertest provides a conformance suite for ledger.Ledger
// implementations.
package ledgertest

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cryptotopic/client-go/ledger"
)

// Run exercises l against the ledger contract. l must be empty.
func Run(t *testing.T, l ledger.Ledger) {
	t.Helper()

	t.Run("Topics", func(t *testing.T) { testTopics(t, l) })
	t.Run("SubmitKey", func(t *testing.T) { testSubmitKey(t, l) })
	t.Run("Chunking", func(t *testing.T) { testChunking(t, l) })
	t.Run("Files", func(t *testing.T) { testFiles(t, l) })
	t.Run("NotFound", func(t *testing.T) { testNotFound(t, l) })
}

func testTopics(t *testing.T, l ledger.Ledger) {
	ctx := context.Background()

	id, err := l.CreateTopic(ctx, "submit", "memo-1")
	require.NoError(t, err)

	info, err := l.GetTopicInfo(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "memo-1", info.Memo)
	assert.Equal(t, int64(0), info.SequenceNumber)

	_, err = l.GetMessageFromTopic(ctx, 1, id)
	assert.ErrorIs(t, err, ledger.ErrSequenceNumberOutOfRange)

	seq1, err := l.SubmitMessageToTopic(ctx, "submit", id, "first")
	require.NoError(t, err)
	seq2, err := l.SubmitMessageToTopic(ctx, "submit", id, "second")
	require.NoError(t, err)
	assert.Equal(t, int64(1), seq1)
	assert.Equal(t, int64(2), seq2)

	got, err := l.GetMessageFromTopic(ctx, seq2, id)
	require.NoError(t, err)
	assert.Equal(t, "second", got)

	_, err = l.GetMessageFromTopic(ctx, 0, id)
	assert.ErrorIs(t, err, ledger.ErrSequenceNumberOutOfRange)
	_, err = l.GetMessageFromTopic(ctx, 3, id)
	assert.ErrorIs(t, err, ledger.ErrSequenceNumberOutOfRange)

	require.NoError(t, l.UpdateTopicMemo(ctx, id, "memo-2"))
	info, err = l.GetTopicInfo(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "memo-2", info.Memo)
	assert.Equal(t, int64(2), info.SequenceNumber)

	other, err := l.CreateTopic(ctx, "submit", "")
	require.NoError(t, err)
	assert.NotEqual(t, id, other)
}

func testSubmitKey(t *testing.T, l ledger.Ledger) {
	ctx := context.Background()

	id, err := l.CreateTopic(ctx, "old", "")
	require.NoError(t, err)

	_, err = l.SubmitMessageToTopic(ctx, "wrong", id, "x")
	assert.ErrorIs(t, err, ledger.ErrInvalidSubmitKey)

	err = l.UpdateTopicSubmitKey(ctx, id, "wrong", "new")
	assert.ErrorIs(t, err, ledger.ErrInvalidSubmitKey)

	require.NoError(t, l.UpdateTopicSubmitKey(ctx, id, "old", "new"))

	_, err = l.SubmitMessageToTopic(ctx, "old", id, "x")
	assert.ErrorIs(t, err, ledger.ErrInvalidSubmitKey)
	_, err = l.SubmitMessageToTopic(ctx, "new", id, "x")
	assert.NoError(t, err)
}

func testChunking(t *testing.T, l ledger.Ledger) {
	ctx := context.Background()

	id, err := l.CreateTopic(ctx, "submit", "")
	require.NoError(t, err)

	large := strings.Repeat("0123456789abcdef", ledger.ChunkSize/16*3+1)
	seq, err := l.SubmitMessageToTopic(ctx, "submit", id, large)
	require.NoError(t, err)
	assert.Equal(t, int64(1), seq)

	next, err := l.SubmitMessageToTopic(ctx, "submit", id, "after")
	require.NoError(t, err)
	assert.Equal(t, int64(5), next)

	got, err := l.GetMessageFromTopic(ctx, seq, id)
	require.NoError(t, err)
	assert.Equal(t, large, got)

	_, err = l.GetMessageFromTopic(ctx, 2, id)
	assert.ErrorIs(t, err, ledger.ErrContinuationChunk)

	tooLarge := strings.Repeat("x", l.MaxMessageSize()+1)
	_, err = l.SubmitMessageToTopic(ctx, "submit", id, tooLarge)
	assert.ErrorIs(t, err, ledger.ErrMessageTooLarge)

	info, err := l.GetTopicInfo(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int64(5), info.SequenceNumber)
}

func testFiles(t *testing.T, l ledger.Ledger) {
	ctx := context.Background()

	id, err := l.CreateFile(ctx, "head")
	require.NoError(t, err)

	got, err := l.GetFileContents(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "head", got)

	large := strings.Repeat("y", ledger.MaxTransactionSize*2+7)
	require.NoError(t, l.AppendToFile(ctx, id, large))
	require.NoError(t, l.AppendToFile(ctx, id, ",tail"))

	got, err = l.GetFileContents(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "head"+large+",tail", got)

	empty, err := l.CreateFile(ctx, "")
	require.NoError(t, err)
	got, err = l.GetFileContents(ctx, empty)
	require.NoError(t, err)
	assert.Equal(t, "", got)
}

func testNotFound(t *testing.T, l ledger.Ledger) {
	ctx := context.Background()

	_, err := l.GetTopicInfo(ctx, "0.0.999999")
	assert.ErrorIs(t, err, ledger.ErrTopicNotFound)
	_, err = l.SubmitMessageToTopic(ctx, "k", "0.0.999999", "x")
	assert.ErrorIs(t, err, ledger.ErrTopicNotFound)
	_, err = l.GetMessageFromTopic(ctx, 1, "0.0.999999")
	assert.ErrorIs(t, err, ledger.ErrTopicNotFound)
	assert.ErrorIs(t, l.UpdateTopicMemo(ctx, "0.0.999999", "m"), ledger.ErrTopicNotFound)
	_, err = l.GetFileContents(ctx, "0.0.999999")
	assert.ErrorIs(t, err, ledger.ErrFileNotFound)
	assert.ErrorIs(t, l.AppendToFile(ctx, "0.0.999999", "x"), ledger.ErrFileNotFound)
}
