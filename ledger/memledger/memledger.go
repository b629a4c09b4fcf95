// Package memledger is an in-memory ledger.Ledger for tests and local use.
package memledger

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/cryptotopic/client-go/ledger"
)

// firstEntityID is the number of the first topic or file created.
const firstEntityID = 1001

type topic struct {
	submitKey string // digest
	memo      string
	chunks    []ledger.Chunk
}

// Ledger keeps topics and files in memory. It is safe for concurrent use.
type Ledger struct {
	mu     sync.RWMutex
	topics map[string]*topic
	files  map[string]*strings.Builder
	nextID int64

	chunkSize int
	maxChunks int
	log       *logrus.Logger
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithLogger sets the logger. The default is logrus.New().
func WithLogger(log *logrus.Logger) Option {
	return func(l *Ledger) {
		l.log = log
	}
}

// WithChunking overrides the chunk size and chunk limit of topic messages.
func WithChunking(chunkSize, maxChunks int) Option {
	return func(l *Ledger) {
		l.chunkSize = chunkSize
		l.maxChunks = maxChunks
	}
}

// New returns an empty in-memory ledger.
func New(opts ...Option) *Ledger {
	l := &Ledger{
		topics:    make(map[string]*topic),
		files:     make(map[string]*strings.Builder),
		nextID:    firstEntityID,
		chunkSize: ledger.ChunkSize,
		maxChunks: ledger.MaxChunks,
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.log == nil {
		l.log = logrus.New()
	}
	return l
}

func (l *Ledger) newID() string {
	id := ledger.EntityID(l.nextID)
	l.nextID++
	return id
}

func (l *Ledger) topic(id string) (*topic, error) {
	t, ok := l.topics[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ledger.ErrTopicNotFound, id)
	}
	return t, nil
}

// CreateTopic implements ledger.Ledger.
func (l *Ledger) CreateTopic(ctx context.Context, submitKey, memo string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	id := l.newID()
	l.topics[id] = &topic{submitKey: ledger.SubmitKeyDigest(submitKey), memo: memo}
	l.log.WithField("topic", id).Debug("Created topic")
	return id, nil
}

// UpdateTopicMemo implements ledger.Ledger.
func (l *Ledger) UpdateTopicMemo(ctx context.Context, topicID, memo string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	t, err := l.topic(topicID)
	if err != nil {
		return err
	}
	t.memo = memo
	return nil
}

// UpdateTopicSubmitKey implements ledger.Ledger.
func (l *Ledger) UpdateTopicSubmitKey(ctx context.Context, topicID, currentSubmitKey, newSubmitKey string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	t, err := l.topic(topicID)
	if err != nil {
		return err
	}
	if err := ledger.CheckSubmitKey(t.submitKey, currentSubmitKey); err != nil {
		return err
	}
	t.submitKey = ledger.SubmitKeyDigest(newSubmitKey)
	return nil
}

// SubmitMessageToTopic implements ledger.Ledger.
func (l *Ledger) SubmitMessageToTopic(ctx context.Context, submitKey, topicID, contents string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	t, err := l.topic(topicID)
	if err != nil {
		return 0, err
	}
	if err := ledger.CheckSubmitKey(t.submitKey, submitKey); err != nil {
		return 0, err
	}

	first := int64(len(t.chunks)) + 1
	chunks, err := ledger.SplitMessage(contents, first, l.chunkSize, l.maxChunks)
	if err != nil {
		return 0, err
	}
	t.chunks = append(t.chunks, chunks...)

	l.log.WithFields(logrus.Fields{
		"topic":    topicID,
		"sequence": first,
		"chunks":   len(chunks),
	}).Debug("Submitted message")
	return first, nil
}

// GetMessageFromTopic implements ledger.Ledger.
func (l *Ledger) GetMessageFromTopic(ctx context.Context, seq int64, topicID string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	l.mu.RLock()
	defer l.mu.RUnlock()

	t, err := l.topic(topicID)
	if err != nil {
		return "", err
	}
	return ledger.Reassemble(seq, func(s int64) (ledger.Chunk, error) {
		if s < 1 || s > int64(len(t.chunks)) {
			return ledger.Chunk{}, fmt.Errorf("%w: %d", ledger.ErrSequenceNumberOutOfRange, s)
		}
		return t.chunks[s-1], nil
	})
}

// GetTopicInfo implements ledger.Ledger.
func (l *Ledger) GetTopicInfo(ctx context.Context, topicID string) (*ledger.TopicInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.mu.RLock()
	defer l.mu.RUnlock()

	t, err := l.topic(topicID)
	if err != nil {
		return nil, err
	}
	return &ledger.TopicInfo{Memo: t.memo, SequenceNumber: int64(len(t.chunks))}, nil
}

// CreateFile implements ledger.Ledger.
func (l *Ledger) CreateFile(ctx context.Context, contents string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	l.mu.Lock()
	id := l.newID()
	l.files[id] = &strings.Builder{}
	l.mu.Unlock()

	if err := l.AppendToFile(ctx, id, contents); err != nil {
		return "", err
	}
	l.log.WithField("file", id).Debug("Created file")
	return id, nil
}

// AppendToFile implements ledger.Ledger. Contents are written in segments of
// at most ledger.MaxTransactionSize bytes.
func (l *Ledger) AppendToFile(ctx context.Context, fileID, contents string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	segments, err := ledger.Segments(contents, ledger.MaxTransactionSize)
	if err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	f, ok := l.files[fileID]
	if !ok {
		return fmt.Errorf("%w: %s", ledger.ErrFileNotFound, fileID)
	}
	for _, s := range segments {
		f.WriteString(s)
	}
	return nil
}

// GetFileContents implements ledger.Ledger.
func (l *Ledger) GetFileContents(ctx context.Context, fileID string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	l.mu.RLock()
	defer l.mu.RUnlock()

	f, ok := l.files[fileID]
	if !ok {
		return "", fmt.Errorf("%w: %s", ledger.ErrFileNotFound, fileID)
	}
	return f.String(), nil
}

// MaxMessageSize implements ledger.Ledger.
func (l *Ledger) MaxMessageSize() int {
	return l.chunkSize * l.maxChunks
}

var _ ledger.Ledger = (*Ledger)(nil)
