package cryptotopic

import (
	"time"

	"github.com/sirupsen/logrus"
)

// StorageMedium selects where a topic keeps its configuration or messages.
type StorageMedium string

const (
	// StorageMessage keeps the data in topic messages.
	StorageMessage StorageMedium = "message"
	// StorageFile keeps the data in ledger files.
	StorageFile StorageMedium = "file"
)

const defaultWaitTimeout = 60 * time.Second

// clientConfig holds configuration for the client.
type clientConfig struct {
	logger *logrus.Logger

	// Polling configuration
	pollingInitialInterval   time.Duration
	pollingMaxBackoff        time.Duration
	pollingBackoffMultiplier float64
	pollingJitterFactor      float64
}

// createConfig holds configuration for topic creation.
type createConfig struct {
	configurationStorage StorageMedium
	messageStorage       StorageMedium
	storeParticipants    bool
	metadata             []byte
}

// submitConfig holds configuration for message submission.
type submitConfig struct {
	generation int // -1 selects the current generation
}

// rotateConfig holds configuration for key rotation.
type rotateConfig struct {
	exclude []string
}

// watchConfig holds configuration for watching a topic.
type watchConfig struct {
	from    int64 // 0 starts after the newest message
	timeout time.Duration
}

// Option configures the client.
type Option func(*clientConfig)

// CreateOption configures topic creation.
type CreateOption func(*createConfig)

// SubmitOption configures message submission.
type SubmitOption func(*submitConfig)

// RotateOption configures key rotation.
type RotateOption func(*rotateConfig)

// WatchOption configures Watch and WaitForMessage.
type WatchOption func(*watchConfig)

// WithLogger sets the logger. Default: logrus.New()
func WithLogger(logger *logrus.Logger) Option {
	return func(c *clientConfig) {
		c.logger = logger
	}
}

// WithPollingInitialInterval sets the initial interval between polls of a
// watched topic. The interval resets to this value whenever new messages arrive.
// Default: 2 seconds
func WithPollingInitialInterval(interval time.Duration) Option {
	return func(c *clientConfig) {
		c.pollingInitialInterval = interval
	}
}

// WithPollingMaxBackoff sets the maximum polling backoff interval.
// Default: 30 seconds
func WithPollingMaxBackoff(maxBackoff time.Duration) Option {
	return func(c *clientConfig) {
		c.pollingMaxBackoff = maxBackoff
	}
}

// WithPollingBackoffMultiplier sets the backoff multiplier for polling.
// After each poll with no new messages, the interval is multiplied by this factor.
// Default: 1.5
func WithPollingBackoffMultiplier(multiplier float64) Option {
	return func(c *clientConfig) {
		c.pollingBackoffMultiplier = multiplier
	}
}

// WithPollingJitterFactor sets the jitter factor for polling intervals.
// Default: 0.3 (30%)
func WithPollingJitterFactor(factor float64) Option {
	return func(c *clientConfig) {
		c.pollingJitterFactor = factor
	}
}

// WithConfigurationStorage selects where the topic configuration lives.
// File storage is required for AddParticipant and RotateEncryptionKey.
// Default: StorageMessage
func WithConfigurationStorage(medium StorageMedium) CreateOption {
	return func(c *createConfig) {
		c.configurationStorage = medium
	}
}

// WithMessageStorage selects where message envelopes live. With file
// storage the topic message carries only the file id.
// Default: StorageMessage
func WithMessageStorage(medium StorageMedium) CreateOption {
	return func(c *createConfig) {
		c.messageStorage = medium
	}
}

// WithStoredParticipants keeps the participant keys in a side topic.
// Required for RotateEncryptionKey and GetParticipants.
func WithStoredParticipants() CreateOption {
	return func(c *createConfig) {
		c.storeParticipants = true
	}
}

// WithMetadata attaches opaque metadata to the topic data of generation 0.
// It is encrypted with the rest of the topic data.
func WithMetadata(metadata []byte) CreateOption {
	return func(c *createConfig) {
		c.metadata = metadata
	}
}

// WithGenerationVersion encrypts the message under an older generation's
// topic key instead of the current one.
func WithGenerationVersion(version int) SubmitOption {
	return func(c *submitConfig) {
		c.generation = version
	}
}

// ExcludeParticipants revokes the given participant keys during rotation.
func ExcludeParticipants(keys ...string) RotateOption {
	return func(c *rotateConfig) {
		c.exclude = append(c.exclude, keys...)
	}
}

// WithStartSequence starts watching at the given sequence number instead of
// after the newest message.
func WithStartSequence(seq int64) WatchOption {
	return func(c *watchConfig) {
		c.from = seq
	}
}

// WithWaitTimeout sets the timeout for WaitForMessage.
// Default: 60 seconds
func WithWaitTimeout(timeout time.Duration) WatchOption {
	return func(c *watchConfig) {
		c.timeout = timeout
	}
}

func (m StorageMedium) valid() bool {
	return m == StorageMessage || m == StorageFile
}
