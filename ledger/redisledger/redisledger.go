// Package redisledger is a ledger.Ledger shared through a Redis server.
//
// Topics are hashes holding the submit key digest, memo and sequence number,
// with their chunks in a list. Files are lists of segments. Writes that check
// a submit key run as Lua scripts so they are atomic on the server.
package redisledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/cryptotopic/client-go/ledger"
)

const (
	// DefaultPrefix namespaces every key the ledger writes.
	DefaultPrefix = "cryptotopic:"

	firstEntityID = 1001
)

// Script results below zero are failures.
const (
	scriptNotFound   = -1
	scriptInvalidKey = -2
)

var submitScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 0 then
  return -1
end
if redis.call("HGET", KEYS[1], "submit") ~= ARGV[1] then
  return -2
end
local first = tonumber(redis.call("HGET", KEYS[1], "seq")) + 1
local total = #ARGV - 1
for i = 2, #ARGV do
  redis.call("RPUSH", KEYS[2], cjson.encode({i = first, n = i - 2, t = total, d = ARGV[i]}))
end
redis.call("HINCRBY", KEYS[1], "seq", total)
return first
`)

var updateSubmitKeyScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 0 then
  return -1
end
if redis.call("HGET", KEYS[1], "submit") ~= ARGV[1] then
  return -2
end
redis.call("HSET", KEYS[1], "submit", ARGV[2])
return 0
`)

var appendScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 0 then
  return -1
end
for i = 1, #ARGV do
  redis.call("RPUSH", KEYS[2], ARGV[i])
end
return 0
`)

// Config configures a Ledger.
type Config struct {
	Addr     string
	Password string
	DB       int
	// Prefix namespaces keys. The default is DefaultPrefix.
	Prefix string
	// Retry configures retries of idempotent calls. The default is
	// DefaultRetryConfig().
	Retry *RetryConfig
	// Logger receives ledger logs. The default is logrus.New().
	Logger *logrus.Logger
}

// Ledger stores topics and files in Redis.
type Ledger struct {
	client *redis.Client
	prefix string
	retry  *RetryConfig
	log    *logrus.Logger
}

// New connects to the server described by config.
func New(ctx context.Context, config Config) (*Ledger, error) {
	if config.Addr == "" {
		return nil, errors.New("redis addr is required")
	}
	if config.Prefix == "" {
		config.Prefix = DefaultPrefix
	}
	if config.Retry == nil {
		config.Retry = DefaultRetryConfig()
	}
	if config.Logger == nil {
		config.Logger = logrus.New()
	}

	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", config.Addr, err)
	}

	config.Logger.WithFields(logrus.Fields{
		"addr":   config.Addr,
		"db":     config.DB,
		"prefix": config.Prefix,
	}).Info("Connected redis ledger")

	return &Ledger{
		client: client,
		prefix: config.Prefix,
		retry:  config.Retry,
		log:    config.Logger,
	}, nil
}

// Close closes the connection pool.
func (l *Ledger) Close() error {
	return l.client.Close()
}

func (l *Ledger) topicKey(id string) string  { return l.prefix + "topic:" + id }
func (l *Ledger) chunksKey(id string) string { return l.prefix + "topic:" + id + ":chunks" }
func (l *Ledger) fileKey(id string) string   { return l.prefix + "file:" + id }
func (l *Ledger) segmentsKey(id string) string {
	return l.prefix + "file:" + id + ":segments"
}

func (l *Ledger) newID(ctx context.Context) (string, error) {
	n, err := l.client.Incr(ctx, l.prefix+"ids").Result()
	if err != nil {
		return "", fmt.Errorf("failed to allocate id: %w", err)
	}
	return ledger.EntityID(firstEntityID + n - 1), nil
}

func scriptError(code int64, id string, notFound error) error {
	switch code {
	case scriptNotFound:
		return fmt.Errorf("%w: %s", notFound, id)
	case scriptInvalidKey:
		return ledger.ErrInvalidSubmitKey
	}
	return nil
}

// CreateTopic implements ledger.Ledger.
func (l *Ledger) CreateTopic(ctx context.Context, submitKey, memo string) (string, error) {
	id, err := l.newID(ctx)
	if err != nil {
		return "", err
	}
	err = l.client.HSet(ctx, l.topicKey(id),
		"submit", ledger.SubmitKeyDigest(submitKey),
		"memo", memo,
		"seq", 0,
	).Err()
	if err != nil {
		l.log.WithField("topic", id).Errorf("Error creating topic: %v", err)
		return "", fmt.Errorf("failed to create topic: %w", err)
	}
	return id, nil
}

// UpdateTopicMemo implements ledger.Ledger.
func (l *Ledger) UpdateTopicMemo(ctx context.Context, topicID, memo string) error {
	return l.retry.Do(ctx, func() error {
		if err := l.checkTopic(ctx, topicID); err != nil {
			return err
		}
		return l.client.HSet(ctx, l.topicKey(topicID), "memo", memo).Err()
	})
}

// UpdateTopicSubmitKey implements ledger.Ledger.
func (l *Ledger) UpdateTopicSubmitKey(ctx context.Context, topicID, currentSubmitKey, newSubmitKey string) error {
	code, err := updateSubmitKeyScript.Run(ctx, l.client,
		[]string{l.topicKey(topicID)},
		ledger.SubmitKeyDigest(currentSubmitKey), ledger.SubmitKeyDigest(newSubmitKey),
	).Int64()
	if err != nil {
		return fmt.Errorf("failed to update submit key: %w", err)
	}
	return scriptError(code, topicID, ledger.ErrTopicNotFound)
}

// SubmitMessageToTopic implements ledger.Ledger.
func (l *Ledger) SubmitMessageToTopic(ctx context.Context, submitKey, topicID, contents string) (int64, error) {
	chunks, err := ledger.Chunks(contents, ledger.ChunkSize, ledger.MaxChunks)
	if err != nil {
		return 0, err
	}

	args := make([]any, 0, len(chunks)+1)
	args = append(args, ledger.SubmitKeyDigest(submitKey))
	for _, c := range chunks {
		args = append(args, c)
	}

	first, err := submitScript.Run(ctx, l.client,
		[]string{l.topicKey(topicID), l.chunksKey(topicID)}, args...,
	).Int64()
	if err != nil {
		return 0, fmt.Errorf("failed to submit message: %w", err)
	}
	if err := scriptError(first, topicID, ledger.ErrTopicNotFound); err != nil {
		return 0, err
	}

	l.log.WithFields(logrus.Fields{
		"topic":    topicID,
		"sequence": first,
		"chunks":   len(chunks),
	}).Debug("Submitted message")
	return first, nil
}

func (l *Ledger) checkTopic(ctx context.Context, topicID string) error {
	n, err := l.client.Exists(ctx, l.topicKey(topicID)).Result()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ledger.ErrTopicNotFound, topicID)
	}
	return nil
}

// GetMessageFromTopic implements ledger.Ledger.
func (l *Ledger) GetMessageFromTopic(ctx context.Context, seq int64, topicID string) (string, error) {
	var contents string
	err := l.retry.Do(ctx, func() error {
		if err := l.checkTopic(ctx, topicID); err != nil {
			return err
		}
		var err error
		contents, err = ledger.Reassemble(seq, func(s int64) (ledger.Chunk, error) {
			var c ledger.Chunk
			if s < 1 {
				return c, fmt.Errorf("%w: %d", ledger.ErrSequenceNumberOutOfRange, s)
			}
			raw, err := l.client.LIndex(ctx, l.chunksKey(topicID), s-1).Result()
			if errors.Is(err, redis.Nil) {
				return c, fmt.Errorf("%w: %d", ledger.ErrSequenceNumberOutOfRange, s)
			}
			if err != nil {
				return c, err
			}
			if err := json.Unmarshal([]byte(raw), &c); err != nil {
				return c, fmt.Errorf("failed to decode chunk %d: %w", s, err)
			}
			return c, nil
		})
		return err
	})
	return contents, err
}

// GetTopicInfo implements ledger.Ledger.
func (l *Ledger) GetTopicInfo(ctx context.Context, topicID string) (*ledger.TopicInfo, error) {
	var info *ledger.TopicInfo
	err := l.retry.Do(ctx, func() error {
		vals, err := l.client.HMGet(ctx, l.topicKey(topicID), "memo", "seq").Result()
		if err != nil {
			return err
		}
		if vals[1] == nil {
			return fmt.Errorf("%w: %s", ledger.ErrTopicNotFound, topicID)
		}
		memo, _ := vals[0].(string)
		var seq int64
		if _, err := fmt.Sscan(vals[1].(string), &seq); err != nil {
			return fmt.Errorf("invalid sequence number for topic %s: %w", topicID, err)
		}
		info = &ledger.TopicInfo{Memo: memo, SequenceNumber: seq}
		return nil
	})
	return info, err
}

// CreateFile implements ledger.Ledger.
func (l *Ledger) CreateFile(ctx context.Context, contents string) (string, error) {
	id, err := l.newID(ctx)
	if err != nil {
		return "", err
	}
	if err := l.client.Set(ctx, l.fileKey(id), "1", 0).Err(); err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	if err := l.AppendToFile(ctx, id, contents); err != nil {
		return "", err
	}
	return id, nil
}

// AppendToFile implements ledger.Ledger.
func (l *Ledger) AppendToFile(ctx context.Context, fileID, contents string) error {
	segments, err := ledger.Segments(contents, ledger.MaxTransactionSize)
	if err != nil {
		return err
	}
	args := make([]any, len(segments))
	for i, s := range segments {
		args[i] = s
	}

	code, err := appendScript.Run(ctx, l.client,
		[]string{l.fileKey(fileID), l.segmentsKey(fileID)}, args...,
	).Int64()
	if err != nil {
		return fmt.Errorf("failed to append to file: %w", err)
	}
	return scriptError(code, fileID, ledger.ErrFileNotFound)
}

// GetFileContents implements ledger.Ledger.
func (l *Ledger) GetFileContents(ctx context.Context, fileID string) (string, error) {
	var contents string
	err := l.retry.Do(ctx, func() error {
		n, err := l.client.Exists(ctx, l.fileKey(fileID)).Result()
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("%w: %s", ledger.ErrFileNotFound, fileID)
		}
		segments, err := l.client.LRange(ctx, l.segmentsKey(fileID), 0, -1).Result()
		if err != nil {
			return err
		}
		contents = strings.Join(segments, "")
		return nil
	})
	return contents, err
}

// MaxMessageSize implements ledger.Ledger.
func (l *Ledger) MaxMessageSize() int {
	return ledger.DefaultMaxMessageSize
}

var _ ledger.Ledger = (*Ledger)(nil)
