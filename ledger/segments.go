package ledger

import (
	"errors"
	"fmt"
	"io"
	"strings"

	boxochunker "github.com/ipfs/boxo/chunker"
)

// Segments splits contents into consecutive pieces of at most size bytes.
// Concatenating the result yields contents. Empty contents yield no segments.
func Segments(contents string, size int) ([]string, error) {
	if size <= 0 {
		return nil, fmt.Errorf("invalid segment size %d", size)
	}

	splitter := boxochunker.NewSizeSplitter(strings.NewReader(contents), int64(size))
	segments := make([]string, 0, len(contents)/size+1)
	for {
		b, err := splitter.NextBytes()
		if errors.Is(err, io.EOF) {
			return segments, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to split contents: %w", err)
		}
		segments = append(segments, string(b))
	}
}

// Chunks splits a topic message into at most maxChunks chunks of chunkSize
// bytes. An empty message is a single empty chunk.
func Chunks(contents string, chunkSize, maxChunks int) ([]string, error) {
	if len(contents) > chunkSize*maxChunks {
		return nil, fmt.Errorf("%w: %d bytes, limit %d", ErrMessageTooLarge, len(contents), chunkSize*maxChunks)
	}
	chunks, err := Segments(contents, chunkSize)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		chunks = append(chunks, "")
	}
	return chunks, nil
}
