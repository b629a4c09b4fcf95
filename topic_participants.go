package cryptotopic

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/cryptotopic/client-go/internal/crypto"
	"github.com/cryptotopic/client-go/internal/topicerr"
	"github.com/cryptotopic/client-go/internal/wire"
	"github.com/cryptotopic/client-go/ledger"
)

// revocationPrefix marks a participant topic entry that removes a key.
const revocationPrefix = "-"

// AddParticipant grants publicKey access to the current generation. With
// forwardSecrecy the key is rotated first, so the new participant cannot
// read anything encrypted before it was added.
//
// With stored participants the key is recorded before it is granted access.
// If granting fails, calling AddParticipant again or the next rotation
// grants it.
//
// The topic must have file-backed configuration. Forward secrecy also
// requires stored participants.
func (t *Topic) AddParticipant(ctx context.Context, publicKey string, forwardSecrecy bool) error {
	st, err := t.load(ctx)
	if err != nil {
		return err
	}
	if !st.memo.Storage.Configuration.File {
		return topicerr.Unsupported("AddParticipant", "file-backed configuration", ErrAddParticipantOnMessageStorage)
	}

	if forwardSecrecy {
		if err := t.rotate(ctx, st, nil); err != nil {
			return err
		}
		if st, err = t.load(ctx); err != nil {
			return err
		}
	}

	current := st.config.Current()
	gen := st.config.Generations[current]
	adapter, err := crypto.NewAdapter(gen.Algorithm)
	if err != nil {
		return err
	}
	if err := adapter.ValidateParticipantKeys([]string{publicKey}); err != nil {
		return err
	}

	data, topicKey, err := st.topicData(ctx, current, t.privateKey)
	if err != nil {
		return err
	}
	keys, err := adapter.EncryptedTopicKeysObject(topicKey, []string{publicKey})
	if err != nil {
		return err
	}

	if st.memo.Storage.Participants.Stored {
		if _, err := t.submit(ctx, st, data, st.memo.Storage.Participants.ID, publicKey); err != nil {
			return err
		}
	}
	if err := t.client.ledger.AppendToFile(ctx, st.memo.Storage.Configuration.ID, wire.ParticipantSuffix(keys)); err != nil {
		return wrapLedgerError("AppendToFile", err)
	}

	t.logger().WithFields(logrus.Fields{
		"generation":     current,
		"forwardSecrecy": forwardSecrecy,
	}).Debug("Added participant")
	return nil
}

// RotateEncryptionKey appends a new generation with a fresh topic key and
// submit key. Keys passed to ExcludeParticipants are revoked: they get no
// slot in the new generation and are recorded as revoked in the participant
// topic. Earlier generations stay readable by their participants.
//
// A rotation interrupted after its generation was appended is completed by
// the next write to the topic. If recording revocations fails, calling
// RotateEncryptionKey again with the same exclusions records them.
//
// The topic must have file-backed configuration and stored participants.
func (t *Topic) RotateEncryptionKey(ctx context.Context, opts ...RotateOption) error {
	cfg := &rotateConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	st, err := t.load(ctx)
	if err != nil {
		return err
	}
	return t.rotate(ctx, st, cfg.exclude)
}

func (t *Topic) rotate(ctx context.Context, st *topicState, exclude []string) error {
	if !st.memo.Storage.Configuration.File {
		return topicerr.Unsupported("RotateEncryptionKey", "file-backed configuration", ErrRotateKeyOnMessageStorage)
	}
	if !st.memo.Storage.Participants.Stored {
		return topicerr.Unsupported("RotateEncryptionKey", "stored participants", ErrRotateKeyWithoutStoredParticipants)
	}

	current := st.config.Current()
	data, _, err := st.topicData(ctx, current, t.privateKey)
	if err != nil {
		return err
	}
	if err := t.settleSubmitKeys(ctx, st, data); err != nil {
		return err
	}

	participants, err := t.participants(ctx, st.memo.Storage.Participants.ID)
	if err != nil {
		return err
	}
	excluded := make(map[string]struct{}, len(exclude))
	for _, key := range exclude {
		excluded[key] = struct{}{}
	}
	remaining := make([]string, 0, len(participants))
	for _, key := range participants {
		if _, ok := excluded[key]; !ok {
			remaining = append(remaining, key)
		}
	}
	if len(remaining) == 0 {
		return ErrNoParticipants
	}

	submitKey, err := crypto.NewSubmitKey()
	if err != nil {
		return err
	}
	gen, err := newGeneration(st.config.Generations[current].Algorithm, remaining, &wire.TopicData{
		SubmitKey: submitKey,
		Metadata:  data.Metadata,
	})
	if err != nil {
		return err
	}

	l := t.client.ledger
	participantTopic := st.memo.Storage.Participants.ID
	if err := l.AppendToFile(ctx, st.memo.Storage.Configuration.ID, wire.GenerationSuffix(gen)); err != nil {
		return wrapLedgerError("AppendToFile", err)
	}
	for _, id := range st.keyedTopics(t.id) {
		if err := l.UpdateTopicSubmitKey(ctx, id, data.SubmitKey, submitKey); err != nil {
			return wrapLedgerError("UpdateTopicSubmitKey", err)
		}
	}
	for _, key := range exclude {
		if _, err := l.SubmitMessageToTopic(ctx, submitKey, participantTopic, revocationPrefix+key); err != nil {
			return wrapLedgerError("SubmitMessageToTopic", err)
		}
	}

	t.logger().WithFields(logrus.Fields{
		"generation":   current + 1,
		"participants": len(remaining),
		"revoked":      len(exclude),
	}).Debug("Rotated encryption key")
	return nil
}

// keyedTopics returns the topics guarded by the topic's submit key: the
// topic itself and, when stored, its participant topic.
func (s *topicState) keyedTopics(topicID string) []string {
	ids := []string{topicID}
	if s.memo.Storage.Participants.Stored {
		ids = append(ids, s.memo.Storage.Participants.ID)
	}
	return ids
}

// settleSubmitKeys completes a rotation whose submit key handover was
// interrupted. Afterwards the ledger accepts data.SubmitKey, the current
// generation's submit key, on every keyed topic.
func (t *Topic) settleSubmitKeys(ctx context.Context, st *topicState, data *wire.TopicData) error {
	l := t.client.ledger
	current := st.config.Current()

	var previous *wire.TopicData
	for _, id := range st.keyedTopics(t.id) {
		// Replacing the key with itself only checks it.
		err := l.UpdateTopicSubmitKey(ctx, id, data.SubmitKey, data.SubmitKey)
		if err == nil {
			continue
		}
		if !errors.Is(err, ledger.ErrInvalidSubmitKey) || current == 0 {
			return wrapLedgerError("UpdateTopicSubmitKey", err)
		}

		if previous == nil {
			if previous, _, err = st.topicData(ctx, current-1, t.privateKey); err != nil {
				return fmt.Errorf("complete interrupted rotation: %w", err)
			}
		}
		if err := l.UpdateTopicSubmitKey(ctx, id, previous.SubmitKey, data.SubmitKey); err != nil {
			return wrapLedgerError("UpdateTopicSubmitKey", err)
		}
		t.logger().WithFields(logrus.Fields{
			"generation": current,
			"keyedTopic": id,
		}).Warn("Completed interrupted key rotation")
	}
	return nil
}

// GetParticipants returns the current participant keys in the order they
// were first added. Revoked keys are omitted.
//
// The topic must have stored participants.
func (t *Topic) GetParticipants(ctx context.Context) ([]string, error) {
	st, err := t.load(ctx)
	if err != nil {
		return nil, err
	}
	if !st.memo.Storage.Participants.Stored {
		return nil, topicerr.Unsupported("GetParticipants", "stored participants", ErrGetParticipantsWithoutStoredParticipants)
	}
	return t.participants(ctx, st.memo.Storage.Participants.ID)
}

// participants replays the participant topic.
func (t *Topic) participants(ctx context.Context, topicID string) ([]string, error) {
	l := t.client.ledger
	info, err := l.GetTopicInfo(ctx, topicID)
	if err != nil {
		return nil, wrapLedgerError("GetTopicInfo", err)
	}

	entries := make([]string, 0, info.SequenceNumber)
	for seq := int64(1); seq <= info.SequenceNumber; seq++ {
		entry, err := l.GetMessageFromTopic(ctx, seq, topicID)
		if errors.Is(err, ledger.ErrContinuationChunk) {
			continue
		}
		if err != nil {
			return nil, wrapLedgerError("GetMessageFromTopic", err)
		}
		entries = append(entries, entry)
	}
	return replayParticipants(entries), nil
}

// replayParticipants applies participant topic entries in order. A key is
// present after its latest addition unless a later revocation removed it.
func replayParticipants(entries []string) []string {
	var keys []string
	present := make(map[string]bool)
	for _, entry := range entries {
		if revoked, ok := strings.CutPrefix(entry, revocationPrefix); ok {
			if present[revoked] {
				present[revoked] = false
				keys = remove(keys, revoked)
			}
			continue
		}
		if entry == "" || present[entry] {
			continue
		}
		present[entry] = true
		keys = append(keys, entry)
	}
	if keys == nil {
		keys = []string{}
	}
	return keys
}

func remove(keys []string, key string) []string {
	out := keys[:0]
	for _, k := range keys {
		if k != key {
			out = append(out, k)
		}
	}
	return out
}

// MigrateConfigurationToFile moves a message-stored configuration into a
// ledger file and points the memo at it, enabling AddParticipant and
// RotateEncryptionKey. It returns the new file id.
func (t *Topic) MigrateConfigurationToFile(ctx context.Context) (string, error) {
	st, err := t.load(ctx)
	if err != nil {
		return "", err
	}
	if st.memo.Storage.Configuration.File {
		return "", fmt.Errorf("%w: file %s", ErrRedundantMigration, st.memo.Storage.Configuration.ID)
	}
	if _, _, err := st.topicData(ctx, st.config.Current(), t.privateKey); err != nil {
		return "", err
	}

	l := t.client.ledger
	fileID, err := l.CreateFile(ctx, st.configuration)
	if err != nil {
		return "", wrapLedgerError("CreateFile", err)
	}

	memo := *st.memo
	memo.Storage.Configuration = wire.ConfigurationStorage{File: true, ID: fileID}
	encoded, err := memo.Encode()
	if err != nil {
		return "", err
	}
	if err := l.UpdateTopicMemo(ctx, t.id, encoded); err != nil {
		return "", wrapLedgerError("UpdateTopicMemo", err)
	}

	t.logger().WithField("file", fileID).Debug("Migrated configuration to file")
	return fileID, nil
}
