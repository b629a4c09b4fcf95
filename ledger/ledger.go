// Package ledger defines the storage collaborator an encrypted topic runs on:
// an append-only, publicly readable medium of topics (ordered messages) and
// files (append-only blobs).
//
// Implementations live in the subpackages memledger, badgerledger and
// redisledger.
package ledger

import (
	"context"
	"errors"
)

const (
	// ChunkSize is the largest physical topic message in bytes.
	ChunkSize = 1024

	// MaxChunks is the largest number of chunks one logical message may span.
	MaxChunks = 20

	// MaxTransactionSize is the largest file segment written in one append.
	MaxTransactionSize = 4096

	// DefaultMaxMessageSize is ChunkSize * MaxChunks.
	DefaultMaxMessageSize = ChunkSize * MaxChunks
)

// Sentinel errors for errors.Is() checks
var (
	// ErrInvalidSubmitKey is returned when a submit key does not match the topic's.
	ErrInvalidSubmitKey = errors.New("invalid submit key")

	// ErrTopicNotFound is returned for unknown topic ids.
	ErrTopicNotFound = errors.New("topic not found")

	// ErrFileNotFound is returned for unknown file ids.
	ErrFileNotFound = errors.New("file not found")

	// ErrSequenceNumberOutOfRange is returned when reading a sequence number
	// below 1 or past the topic's last message.
	ErrSequenceNumberOutOfRange = errors.New("sequence number out of range")

	// ErrMessageTooLarge is returned when a message needs more than MaxChunks chunks.
	ErrMessageTooLarge = errors.New("message too large")

	// ErrContinuationChunk is returned when a sequence number holds a
	// non-initial chunk of a larger message.
	ErrContinuationChunk = errors.New("sequence number holds a continuation chunk")
)

// TopicInfo is the public state of a topic.
type TopicInfo struct {
	// Memo is the topic's public memo.
	Memo string
	// SequenceNumber is the sequence number of the newest physical message,
	// or 0 when the topic is empty.
	SequenceNumber int64
}

// Ledger is the storage collaborator. Every call may block on I/O.
type Ledger interface {
	// CreateTopic creates a topic guarded by submitKey and returns its id.
	CreateTopic(ctx context.Context, submitKey, memo string) (string, error)

	// UpdateTopicMemo replaces the memo of a topic.
	UpdateTopicMemo(ctx context.Context, topicID, memo string) error

	// UpdateTopicSubmitKey replaces the submit key of a topic. currentSubmitKey
	// must match.
	UpdateTopicSubmitKey(ctx context.Context, topicID, currentSubmitKey, newSubmitKey string) error

	// SubmitMessageToTopic appends contents to a topic and returns the
	// sequence number of its first chunk.
	SubmitMessageToTopic(ctx context.Context, submitKey, topicID, contents string) (int64, error)

	// GetMessageFromTopic returns the message whose first chunk has sequence
	// number seq, reassembled.
	GetMessageFromTopic(ctx context.Context, seq int64, topicID string) (string, error)

	// GetTopicInfo returns the memo and newest sequence number of a topic.
	GetTopicInfo(ctx context.Context, topicID string) (*TopicInfo, error)

	// CreateFile stores contents as a new file and returns its id.
	CreateFile(ctx context.Context, contents string) (string, error)

	// AppendToFile appends contents to a file.
	AppendToFile(ctx context.Context, fileID, contents string) error

	// GetFileContents returns the full contents of a file.
	GetFileContents(ctx context.Context, fileID string) (string, error)

	// MaxMessageSize returns the largest logical message the ledger accepts.
	MaxMessageSize() int
}
