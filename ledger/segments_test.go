package ledger

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSegments(t *testing.T) {
	tests := []struct {
		name     string
		contents string
		size     int
		want     []string
	}{
		{"empty", "", 4, []string{}},
		{"shorter than size", "abc", 4, []string{"abc"}},
		{"exact multiple", "abcdefgh", 4, []string{"abcd", "efgh"}},
		{"trailing data", "abcdefghij", 4, []string{"abcd", "efgh", "ij"}},
		{"size one", "abc", 1, []string{"a", "b", "c"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Segments(tt.contents, tt.size)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.contents, strings.Join(got, ""))
		})
	}
}

func TestSegments_InvalidSize(t *testing.T) {
	_, err := Segments("abc", 0)
	assert.Error(t, err)
}

func TestSegments_Large(t *testing.T) {
	contents := strings.Repeat("0123456789", 1000)
	got, err := Segments(contents, MaxTransactionSize)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Len(t, got[0], MaxTransactionSize)
	assert.Len(t, got[2], len(contents)-2*MaxTransactionSize)
	assert.Equal(t, contents, strings.Join(got, ""))
}

func TestChunks(t *testing.T) {
	chunks, err := Chunks("", ChunkSize, MaxChunks)
	require.NoError(t, err)
	assert.Equal(t, []string{""}, chunks)

	chunks, err = Chunks(strings.Repeat("x", DefaultMaxMessageSize), ChunkSize, MaxChunks)
	require.NoError(t, err)
	assert.Len(t, chunks, MaxChunks)

	_, err = Chunks(strings.Repeat("x", DefaultMaxMessageSize+1), ChunkSize, MaxChunks)
	assert.True(t, errors.Is(err, ErrMessageTooLarge))
}
