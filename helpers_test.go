package cryptotopic

import (
	"io"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/cryptotopic/client-go/ledger/memledger"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newTestClient(t *testing.T, opts ...memledger.Option) (*Client, *memledger.Ledger) {
	t.Helper()

	opts = append([]memledger.Option{memledger.WithLogger(quietLogger())}, opts...)
	l := memledger.New(opts...)
	c, err := New(l, WithLogger(quietLogger()))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c, l
}

func mustKeyPair(t *testing.T, alg Algorithm) *KeyPair {
	t.Helper()

	kp, err := GenerateKeyPair(alg)
	if err != nil {
		t.Fatalf("GenerateKeyPair(%s) error = %v", alg, err)
	}
	return kp
}

// fullTopic is the creation options that enable every operation.
func fullTopic() []CreateOption {
	return []CreateOption{
		WithConfigurationStorage(StorageFile),
		WithStoredParticipants(),
	}
}
