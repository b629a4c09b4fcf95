package ledger

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"
)

// Chunk is one physical topic message.
type Chunk struct {
	// Initial is the sequence number of the first chunk of the message.
	Initial int64 `json:"i"`
	// Number is the 0-based position of the chunk in its message.
	Number int `json:"n"`
	// Total is the number of chunks in the message.
	Total int `json:"t"`
	// Data is the chunk payload.
	Data string `json:"d"`
}

// SplitMessage chunks contents for submission at sequence number first.
func SplitMessage(contents string, first int64, chunkSize, maxChunks int) ([]Chunk, error) {
	parts, err := Chunks(contents, chunkSize, maxChunks)
	if err != nil {
		return nil, err
	}
	chunks := make([]Chunk, len(parts))
	for i, p := range parts {
		chunks[i] = Chunk{Initial: first, Number: i, Total: len(parts), Data: p}
	}
	return chunks, nil
}

// Reassemble joins the chunks of the message starting at seq. fetch returns
// the chunk stored at a sequence number.
func Reassemble(seq int64, fetch func(seq int64) (Chunk, error)) (string, error) {
	first, err := fetch(seq)
	if err != nil {
		return "", err
	}
	if first.Initial != seq || first.Number != 0 {
		return "", fmt.Errorf("%w: %d belongs to message %d", ErrContinuationChunk, seq, first.Initial)
	}

	var sb strings.Builder
	sb.WriteString(first.Data)
	for i := 1; i < first.Total; i++ {
		c, err := fetch(seq + int64(i))
		if err != nil {
			return "", err
		}
		if c.Initial != seq || c.Number != i {
			return "", fmt.Errorf("chunk %d of message %d is missing", i, seq)
		}
		sb.WriteString(c.Data)
	}
	return sb.String(), nil
}

// EntityID formats a numeric ledger entity id.
func EntityID(n int64) string {
	return fmt.Sprintf("0.0.%d", n)
}

// SubmitKeyDigest returns the stored form of a submit key.
func SubmitKeyDigest(submitKey string) string {
	sum := sha256.Sum256([]byte(submitKey))
	return hex.EncodeToString(sum[:])
}

// CheckSubmitKey compares submitKey with a digest from SubmitKeyDigest.
func CheckSubmitKey(digest, submitKey string) error {
	if subtle.ConstantTimeCompare([]byte(digest), []byte(SubmitKeyDigest(submitKey))) != 1 {
		return ErrInvalidSubmitKey
	}
	return nil
}
