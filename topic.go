package cryptotopic

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/cryptotopic/client-go/internal/crypto"
	"github.com/cryptotopic/client-go/internal/wire"
	"github.com/cryptotopic/client-go/ledger"
)

// configurationSequence is the topic message holding a message-stored
// configuration.
const configurationSequence = 1

// Topic is an encrypted topic opened with one participant's private key.
// A Topic must not be used by more than one goroutine at a time.
type Topic struct {
	client     *Client
	id         string
	privateKey string
}

// Message is a decrypted topic message.
type Message struct {
	// SequenceNumber is where the message starts on the topic.
	SequenceNumber int64
	// Generation is the generation whose topic key encrypted the message.
	Generation int
	// Plaintext is the decrypted payload.
	Plaintext []byte
}

// ID returns the topic id.
func (t *Topic) ID() string {
	return t.id
}

// topicState is the ledger state fetched at the start of one operation.
type topicState struct {
	info          *ledger.TopicInfo
	memo          *wire.Memo
	configuration string
	config        *wire.Configuration
}

func (t *Topic) logger() *logrus.Entry {
	return t.client.log.WithField("topic", t.id)
}

// load fetches the memo and configuration of the topic.
func (t *Topic) load(ctx context.Context) (*topicState, error) {
	l := t.client.ledger

	info, err := l.GetTopicInfo(ctx, t.id)
	if err != nil {
		return nil, wrapLedgerError("GetTopicInfo", err)
	}
	memo, err := wire.ParseMemo(info.Memo)
	if err != nil {
		return nil, err
	}

	var configuration string
	if memo.Storage.Configuration.File {
		configuration, err = l.GetFileContents(ctx, memo.Storage.Configuration.ID)
		if err != nil {
			return nil, wrapLedgerError("GetFileContents", err)
		}
	} else {
		configuration, err = l.GetMessageFromTopic(ctx, configurationSequence, t.id)
		if err != nil {
			return nil, wrapLedgerError("GetMessageFromTopic", err)
		}
	}

	config, err := wire.ParseConfiguration(configuration)
	if err != nil {
		return nil, err
	}

	return &topicState{
		info:          info,
		memo:          memo,
		configuration: configuration,
		config:        config,
	}, nil
}

// topicData recovers and decodes the topic data of generation version.
func (s *topicState) topicData(ctx context.Context, version int, privateKey string) (*wire.TopicData, crypto.TopicKey, error) {
	gen, err := s.config.At(version)
	if err != nil {
		return nil, crypto.TopicKey{}, err
	}
	adapter, err := crypto.NewAdapter(gen.Algorithm)
	if err != nil {
		return nil, crypto.TopicKey{}, err
	}

	plaintext, topicKey, err := adapter.DecryptTopicData(ctx, gen.Keys, gen.EncryptedTopicData, privateKey)
	if err != nil {
		return nil, crypto.TopicKey{}, err
	}
	data, err := wire.DecodeTopicData(plaintext)
	if err != nil {
		return nil, crypto.TopicKey{}, err
	}
	return data, topicKey, nil
}

// SubmitMessage encrypts plaintext and appends it to the topic, returning its
// sequence number. The message is encrypted under the current generation
// unless WithGenerationVersion selects another.
func (t *Topic) SubmitMessage(ctx context.Context, plaintext []byte, opts ...SubmitOption) (int64, error) {
	cfg := &submitConfig{generation: -1}
	for _, opt := range opts {
		opt(cfg)
	}

	st, err := t.load(ctx)
	if err != nil {
		return 0, err
	}

	current := st.config.Current()
	version := cfg.generation
	if version < 0 {
		version = current
	}

	data, topicKey, err := st.topicData(ctx, current, t.privateKey)
	if err != nil {
		return 0, err
	}
	if version != current {
		if _, topicKey, err = st.topicData(ctx, version, t.privateKey); err != nil {
			return 0, err
		}
	}

	envelope, err := sealMessage(plaintext, topicKey, version)
	if err != nil {
		return 0, err
	}

	l := t.client.ledger
	contents := envelope
	if st.memo.Storage.Messages.File {
		contents, err = l.CreateFile(ctx, envelope)
		if err != nil {
			return 0, wrapLedgerError("CreateFile", err)
		}
	} else if len(envelope) > l.MaxMessageSize() {
		return 0, fmt.Errorf("%w: message is %d bytes, limit %d", ErrMessageTooLarge, len(envelope), l.MaxMessageSize())
	}

	seq, err := t.submit(ctx, st, data, t.id, contents)
	if err != nil {
		return 0, err
	}

	t.logger().WithFields(logrus.Fields{
		"generation": version,
		"sequence":   seq,
	}).Debug("Submitted message")
	return seq, nil
}

// submit appends contents to topicID under the current submit key. When the
// ledger rejects the key after a rotation, the interrupted rotation is
// completed and the submission retried once.
func (t *Topic) submit(ctx context.Context, st *topicState, data *wire.TopicData, topicID, contents string) (int64, error) {
	l := t.client.ledger
	seq, err := l.SubmitMessageToTopic(ctx, data.SubmitKey, topicID, contents)
	if errors.Is(err, ledger.ErrInvalidSubmitKey) && st.config.Current() > 0 {
		if err := t.settleSubmitKeys(ctx, st, data); err != nil {
			return 0, err
		}
		seq, err = l.SubmitMessageToTopic(ctx, data.SubmitKey, topicID, contents)
	}
	if err != nil {
		return 0, wrapLedgerError("SubmitMessageToTopic", err)
	}
	return seq, nil
}

// HKDF labels binding a message's wrapping nonces to its ciphertext.
const (
	messageKeyLabel   = "cryptotopic message key"
	messageNonceLabel = "cryptotopic message nonce"
)

// wrappingKeys derives the keys that wrap the message key and nonce of the
// message with the given ciphertext. Each message gets its own nonces.
func wrappingKeys(topicKey crypto.TopicKey, ciphertext string) (key, nonce crypto.TopicKey, err error) {
	if key, err = topicKey.Derive(messageKeyLabel, []byte(ciphertext)); err != nil {
		return crypto.TopicKey{}, crypto.TopicKey{}, err
	}
	if nonce, err = topicKey.Derive(messageNonceLabel, []byte(ciphertext)); err != nil {
		return crypto.TopicKey{}, crypto.TopicKey{}, err
	}
	return key, nonce, nil
}

// sealMessage encrypts plaintext under a fresh message key and wraps the
// message key and nonce under topicKey.
func sealMessage(plaintext []byte, topicKey crypto.TopicKey, version int) (string, error) {
	messageKey, err := crypto.NewTopicKey()
	if err != nil {
		return "", err
	}
	ciphertext, err := messageKey.Seal(plaintext)
	if err != nil {
		return "", err
	}
	keyWrap, nonceWrap, err := wrappingKeys(topicKey, ciphertext)
	if err != nil {
		return "", err
	}
	key, err := keyWrap.Seal(messageKey.Key)
	if err != nil {
		return "", err
	}
	nonce, err := nonceWrap.Seal(messageKey.Nonce)
	if err != nil {
		return "", err
	}

	msg := &wire.Message{
		Ciphertext: ciphertext,
		Key:        key,
		Nonce:      nonce,
		Generation: version,
	}
	return msg.Encode()
}

// openMessageKey unwraps the message key and nonce of msg.
func openMessageKey(msg *wire.Message, topicKey crypto.TopicKey) (crypto.TopicKey, error) {
	keyWrap, nonceWrap, err := wrappingKeys(topicKey, msg.Ciphertext)
	if err != nil {
		return crypto.TopicKey{}, err
	}
	key, err := keyWrap.Open(msg.Key)
	if err != nil {
		return crypto.TopicKey{}, err
	}
	nonce, err := nonceWrap.Open(msg.Nonce)
	if err != nil {
		return crypto.TopicKey{}, err
	}
	return crypto.TopicKey{Key: key, Nonce: nonce}, nil
}

// openMessage reverses sealMessage.
func openMessage(msg *wire.Message, topicKey crypto.TopicKey) ([]byte, error) {
	messageKey, err := openMessageKey(msg, topicKey)
	if err != nil {
		return nil, err
	}
	return messageKey.Open(msg.Ciphertext)
}

// GetMessage returns the decrypted message at sequence number seq.
func (t *Topic) GetMessage(ctx context.Context, seq int64) ([]byte, error) {
	msg, err := t.getMessage(ctx, seq)
	if err != nil {
		return nil, err
	}
	return msg.Plaintext, nil
}

func (t *Topic) getMessage(ctx context.Context, seq int64) (*Message, error) {
	st, err := t.load(ctx)
	if err != nil {
		return nil, err
	}
	return t.readMessage(ctx, st, seq)
}

func (t *Topic) readMessage(ctx context.Context, st *topicState, seq int64) (*Message, error) {
	if seq < 1 || seq > st.info.SequenceNumber {
		return nil, fmt.Errorf("%w: %d, topic has %d", ErrSequenceNumberOutOfRange, seq, st.info.SequenceNumber)
	}
	if seq == configurationSequence && !st.memo.Storage.Configuration.File {
		return nil, fmt.Errorf("%w: sequence %d holds the topic configuration", ErrNotAMessage, seq)
	}

	l := t.client.ledger
	contents, err := l.GetMessageFromTopic(ctx, seq, t.id)
	if err != nil {
		if errors.Is(err, ledger.ErrContinuationChunk) {
			return nil, fmt.Errorf("%w: %v", ErrNotAMessage, err)
		}
		return nil, wrapLedgerError("GetMessageFromTopic", err)
	}
	if st.memo.Storage.Messages.File {
		contents, err = l.GetFileContents(ctx, contents)
		if err != nil {
			return nil, wrapLedgerError("GetFileContents", err)
		}
	}

	msg, err := wire.DecodeMessage(contents)
	if err != nil {
		return nil, err
	}
	if _, err := st.config.At(msg.Generation); err != nil {
		return nil, err
	}

	_, topicKey, err := st.topicData(ctx, msg.Generation, t.privateKey)
	if err != nil {
		return nil, err
	}
	plaintext, err := openMessage(msg, topicKey)
	if err != nil {
		return nil, err
	}

	t.logger().WithFields(logrus.Fields{
		"generation": msg.Generation,
		"sequence":   seq,
	}).Debug("Read message")
	return &Message{
		SequenceNumber: seq,
		Generation:     msg.Generation,
		Plaintext:      plaintext,
	}, nil
}

// CurrentGeneration returns the index of the newest generation.
func (t *Topic) CurrentGeneration(ctx context.Context) (int, error) {
	st, err := t.load(ctx)
	if err != nil {
		return 0, err
	}
	return st.config.Current(), nil
}
