// Package badgerledger is a ledger.Ledger persisted in an embedded badger
// database.
package badgerledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"github.com/sirupsen/logrus"

	"github.com/cryptotopic/client-go/ledger"
)

const (
	firstEntityID = 1001
	idBandwidth   = 100
)

var entitySequenceKey = []byte("seq/entity")

// Config configures a Ledger.
type Config struct {
	// Path is the database directory. It is ignored when InMemory is set.
	Path string
	// InMemory keeps the database in memory only.
	InMemory bool
	// Logger receives ledger logs. The default is logrus.New().
	Logger *logrus.Logger
}

type topicRecord struct {
	SubmitKey string `json:"s"`
	Memo      string `json:"m"`
	Sequence  int64  `json:"n"`
}

type fileRecord struct {
	Segments int64 `json:"n"`
}

// Ledger stores topics and files in badger.
type Ledger struct {
	db  *badger.DB
	ids *badger.Sequence
	log *logrus.Logger

	// writes serializes read-modify-write transactions.
	writes sync.Mutex
}

// New opens the database described by config.
func New(config Config) (*Ledger, error) {
	if config.Logger == nil {
		config.Logger = logrus.New()
	}
	if !config.InMemory && config.Path == "" {
		return nil, errors.New("no path provided in configuration")
	}

	opts := badger.DefaultOptions(config.Path)
	if config.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger ledger: %w", err)
	}

	ids, err := db.GetSequence(entitySequenceKey, idBandwidth)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open id sequence: %w", err)
	}

	config.Logger.WithFields(logrus.Fields{
		"path":     config.Path,
		"inMemory": config.InMemory,
	}).Info("Opened badger ledger")

	return &Ledger{db: db, ids: ids, log: config.Logger}, nil
}

// Close releases the id sequence and closes the database.
func (l *Ledger) Close() error {
	if err := l.ids.Release(); err != nil {
		l.log.Errorf("Error releasing id sequence: %v", err)
	}
	if err := l.db.Close(); err != nil {
		return fmt.Errorf("failed to close badger ledger: %w", err)
	}
	l.log.Info("Closed badger ledger")
	return nil
}

func topicKey(id string) []byte {
	return []byte("t/" + id)
}

func chunkKey(id string, seq int64) []byte {
	return []byte(fmt.Sprintf("t/%s/c/%020d", id, seq))
}

func fileKey(id string) []byte {
	return []byte("f/" + id)
}

func segmentPrefix(id string) []byte {
	return []byte("f/" + id + "/s/")
}

func segmentKey(id string, n int64) []byte {
	return []byte(fmt.Sprintf("f/%s/s/%020d", id, n))
}

func (l *Ledger) newID() (string, error) {
	n, err := l.ids.Next()
	if err != nil {
		return "", fmt.Errorf("failed to allocate id: %w", err)
	}
	return ledger.EntityID(firstEntityID + int64(n)), nil
}

func getJSON(txn *badger.Txn, key []byte, v any) error {
	item, err := txn.Get(key)
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, v)
	})
}

func setJSON(txn *badger.Txn, key []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return txn.Set(key, data)
}

func getTopic(txn *badger.Txn, id string) (*topicRecord, error) {
	var rec topicRecord
	if err := getJSON(txn, topicKey(id), &rec); err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, fmt.Errorf("%w: %s", ledger.ErrTopicNotFound, id)
		}
		return nil, err
	}
	return &rec, nil
}

func getFile(txn *badger.Txn, id string) (*fileRecord, error) {
	var rec fileRecord
	if err := getJSON(txn, fileKey(id), &rec); err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, fmt.Errorf("%w: %s", ledger.ErrFileNotFound, id)
		}
		return nil, err
	}
	return &rec, nil
}

// update runs fn in a serialized read-write transaction.
func (l *Ledger) update(ctx context.Context, fn func(txn *badger.Txn) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.writes.Lock()
	defer l.writes.Unlock()
	return l.db.Update(fn)
}

func (l *Ledger) view(ctx context.Context, fn func(txn *badger.Txn) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return l.db.View(fn)
}

// CreateTopic implements ledger.Ledger.
func (l *Ledger) CreateTopic(ctx context.Context, submitKey, memo string) (string, error) {
	id, err := l.newID()
	if err != nil {
		return "", err
	}
	err = l.update(ctx, func(txn *badger.Txn) error {
		return setJSON(txn, topicKey(id), &topicRecord{
			SubmitKey: ledger.SubmitKeyDigest(submitKey),
			Memo:      memo,
		})
	})
	if err != nil {
		l.log.WithField("topic", id).Errorf("Error creating topic: %v", err)
		return "", err
	}
	return id, nil
}

// UpdateTopicMemo implements ledger.Ledger.
func (l *Ledger) UpdateTopicMemo(ctx context.Context, topicID, memo string) error {
	return l.update(ctx, func(txn *badger.Txn) error {
		rec, err := getTopic(txn, topicID)
		if err != nil {
			return err
		}
		rec.Memo = memo
		return setJSON(txn, topicKey(topicID), rec)
	})
}

// UpdateTopicSubmitKey implements ledger.Ledger.
func (l *Ledger) UpdateTopicSubmitKey(ctx context.Context, topicID, currentSubmitKey, newSubmitKey string) error {
	return l.update(ctx, func(txn *badger.Txn) error {
		rec, err := getTopic(txn, topicID)
		if err != nil {
			return err
		}
		if err := ledger.CheckSubmitKey(rec.SubmitKey, currentSubmitKey); err != nil {
			return err
		}
		rec.SubmitKey = ledger.SubmitKeyDigest(newSubmitKey)
		return setJSON(txn, topicKey(topicID), rec)
	})
}

// SubmitMessageToTopic implements ledger.Ledger.
func (l *Ledger) SubmitMessageToTopic(ctx context.Context, submitKey, topicID, contents string) (int64, error) {
	var first int64
	err := l.update(ctx, func(txn *badger.Txn) error {
		rec, err := getTopic(txn, topicID)
		if err != nil {
			return err
		}
		if err := ledger.CheckSubmitKey(rec.SubmitKey, submitKey); err != nil {
			return err
		}

		first = rec.Sequence + 1
		chunks, err := ledger.SplitMessage(contents, first, ledger.ChunkSize, ledger.MaxChunks)
		if err != nil {
			return err
		}
		for _, c := range chunks {
			if err := setJSON(txn, chunkKey(topicID, c.Initial+int64(c.Number)), &c); err != nil {
				return err
			}
		}
		rec.Sequence += int64(len(chunks))
		return setJSON(txn, topicKey(topicID), rec)
	})
	if err != nil {
		return 0, err
	}
	return first, nil
}

// GetMessageFromTopic implements ledger.Ledger.
func (l *Ledger) GetMessageFromTopic(ctx context.Context, seq int64, topicID string) (string, error) {
	var contents string
	err := l.view(ctx, func(txn *badger.Txn) error {
		if _, err := getTopic(txn, topicID); err != nil {
			return err
		}
		var err error
		contents, err = ledger.Reassemble(seq, func(s int64) (ledger.Chunk, error) {
			var c ledger.Chunk
			if err := getJSON(txn, chunkKey(topicID, s), &c); err != nil {
				if errors.Is(err, badger.ErrKeyNotFound) {
					return c, fmt.Errorf("%w: %d", ledger.ErrSequenceNumberOutOfRange, s)
				}
				return c, err
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
	err := l.view(ctx, func(txn *badger.Txn) error {
		rec, err := getTopic(txn, topicID)
		if err != nil {
			return err
		}
		info = &ledger.TopicInfo{Memo: rec.Memo, SequenceNumber: rec.Sequence}
		return nil
	})
	return info, err
}

// CreateFile implements ledger.Ledger.
func (l *Ledger) CreateFile(ctx context.Context, contents string) (string, error) {
	id, err := l.newID()
	if err != nil {
		return "", err
	}
	err = l.update(ctx, func(txn *badger.Txn) error {
		return setJSON(txn, fileKey(id), &fileRecord{})
	})
	if err != nil {
		return "", err
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
	return l.update(ctx, func(txn *badger.Txn) error {
		rec, err := getFile(txn, fileID)
		if err != nil {
			return err
		}
		for _, s := range segments {
			if err := txn.Set(segmentKey(fileID, rec.Segments), []byte(s)); err != nil {
				return err
			}
			rec.Segments++
		}
		return setJSON(txn, fileKey(fileID), rec)
	})
}

// GetFileContents implements ledger.Ledger.
func (l *Ledger) GetFileContents(ctx context.Context, fileID string) (string, error) {
	var sb strings.Builder
	err := l.view(ctx, func(txn *badger.Txn) error {
		if _, err := getFile(txn, fileID); err != nil {
			return err
		}

		prefix := segmentPrefix(fileID)
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				sb.Write(val)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return sb.String(), nil
}

// MaxMessageSize implements ledger.Ledger.
func (l *Ledger) MaxMessageSize() int {
	return ledger.DefaultMaxMessageSize
}

var _ ledger.Ledger = (*Ledger)(nil)
