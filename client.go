package cryptotopic

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/cryptotopic/client-go/internal/crypto"
	"github.com/cryptotopic/client-go/internal/delivery"
	"github.com/cryptotopic/client-go/internal/wire"
	"github.com/cryptotopic/client-go/ledger"
)

// Client creates and opens encrypted topics on a ledger. It holds no
// per-topic state and is safe for concurrent use.
type Client struct {
	ledger ledger.Ledger
	log    *logrus.Logger
	poll   delivery.Config
}

// New creates a client for the given ledger.
func New(l ledger.Ledger, opts ...Option) (*Client, error) {
	if l == nil {
		return nil, ErrMissingLedger
	}

	cfg := &clientConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.logger == nil {
		cfg.logger = logrus.New()
	}

	return &Client{
		ledger: l,
		log:    cfg.logger,
		poll: delivery.Config{
			InitialInterval:   cfg.pollingInitialInterval,
			MaxBackoff:        cfg.pollingMaxBackoff,
			BackoffMultiplier: cfg.pollingBackoffMultiplier,
			JitterFactor:      cfg.pollingJitterFactor,
		},
	}, nil
}

// Ledger returns the client's ledger.
func (c *Client) Ledger() ledger.Ledger {
	return c.ledger
}

// CreateTopic creates an encrypted topic readable by the holders of the
// private keys matching participants, and returns its id.
//
// Generation 0 is fully encoded before anything is written to the ledger.
// A configuration that does not fit in one topic message fails with
// ErrMessageTooLarge without touching the ledger; use
// WithConfigurationStorage(StorageFile) for large participant sets.
func (c *Client) CreateTopic(ctx context.Context, participants []string, alg Algorithm, opts ...CreateOption) (string, error) {
	cfg := &createConfig{
		configurationStorage: StorageMessage,
		messageStorage:       StorageMessage,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if !cfg.configurationStorage.valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidStorageMedium, cfg.configurationStorage)
	}
	if !cfg.messageStorage.valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidStorageMedium, cfg.messageStorage)
	}
	if len(participants) == 0 {
		return "", ErrNoParticipants
	}

	submitKey, err := crypto.NewSubmitKey()
	if err != nil {
		return "", err
	}
	gen, err := newGeneration(alg, participants, &wire.TopicData{
		SubmitKey: submitKey,
		Metadata:  cfg.metadata,
	})
	if err != nil {
		return "", err
	}

	configuration := wire.AppendGeneration("", gen)
	if cfg.configurationStorage == StorageMessage && len(configuration) > c.ledger.MaxMessageSize() {
		return "", fmt.Errorf("%w: configuration is %d bytes, limit %d", ErrMessageTooLarge, len(configuration), c.ledger.MaxMessageSize())
	}

	memo := &wire.Memo{Storage: wire.MemoStorage{
		Messages: wire.MessageStorage{File: cfg.messageStorage == StorageFile},
	}}

	if cfg.configurationStorage == StorageFile {
		fileID, err := c.ledger.CreateFile(ctx, configuration)
		if err != nil {
			return "", wrapLedgerError("CreateFile", err)
		}
		memo.Storage.Configuration = wire.ConfigurationStorage{File: true, ID: fileID}
	}

	if cfg.storeParticipants {
		participantTopic, err := c.createParticipantTopic(ctx, submitKey, participants)
		if err != nil {
			return "", err
		}
		memo.Storage.Participants = wire.ParticipantStorage{Stored: true, ID: participantTopic}
	}

	encodedMemo, err := memo.Encode()
	if err != nil {
		return "", err
	}
	topicID, err := c.ledger.CreateTopic(ctx, submitKey, encodedMemo)
	if err != nil {
		return "", wrapLedgerError("CreateTopic", err)
	}

	if cfg.configurationStorage == StorageMessage {
		if _, err := c.ledger.SubmitMessageToTopic(ctx, submitKey, topicID, configuration); err != nil {
			return "", wrapLedgerError("SubmitMessageToTopic", err)
		}
	}

	c.log.WithFields(logrus.Fields{
		"topic":        topicID,
		"algorithm":    alg.String(),
		"participants": len(participants),
	}).Debug("Created topic")
	return topicID, nil
}

// createParticipantTopic records each participant key, verbatim, as one
// message of a new side topic.
func (c *Client) createParticipantTopic(ctx context.Context, submitKey string, participants []string) (string, error) {
	topicID, err := c.ledger.CreateTopic(ctx, submitKey, "")
	if err != nil {
		return "", wrapLedgerError("CreateTopic", err)
	}
	for _, key := range participants {
		if _, err := c.ledger.SubmitMessageToTopic(ctx, submitKey, topicID, key); err != nil {
			return "", wrapLedgerError("SubmitMessageToTopic", err)
		}
	}
	return topicID, nil
}

// OpenTopic returns a handle on an existing topic for the holder of
// privateKey. Nothing is fetched until an operation is called.
func (c *Client) OpenTopic(topicID, privateKey string) *Topic {
	return &Topic{
		client:     c,
		id:         topicID,
		privateKey: privateKey,
	}
}

// newGeneration encrypts data under a fresh topic key and wraps the key for
// every participant.
func newGeneration(alg Algorithm, participants []string, data *wire.TopicData) (*wire.Generation, error) {
	adapter, err := crypto.NewAdapter(alg)
	if err != nil {
		return nil, err
	}
	if err := adapter.ValidateParticipantKeys(participants); err != nil {
		return nil, err
	}

	topicKey, err := crypto.NewTopicKey()
	if err != nil {
		return nil, err
	}
	plaintext, err := data.Encode()
	if err != nil {
		return nil, err
	}
	encrypted, err := topicKey.Seal(plaintext)
	if err != nil {
		return nil, err
	}
	keys, err := adapter.EncryptedTopicKeysObject(topicKey, participants)
	if err != nil {
		return nil, err
	}

	gen := &wire.Generation{
		EncryptedTopicData: encrypted,
		Algorithm:          alg,
		Keys:               keys,
	}
	if err := gen.Validate(); err != nil {
		return nil, err
	}
	return gen, nil
}
