package crypto

import (
	"context"
	"fmt"
)

// KeyPair is a participant keypair in its portable textual encoding.
type KeyPair struct {
	Algorithm  Algorithm
	PublicKey  string
	PrivateKey string
}

// KeysObject is the per-generation key material. A, B and C are parallel
// but unindexed: nothing ties a slot to a participant, and a reader finds
// its slots by trial decryption.
type KeysObject struct {
	// A holds the encrypted topic keys.
	A []string
	// B holds the encrypted topic nonces.
	B []string
	// C holds the KEM capsules. It is nil for RSA.
	C []string
}

// Len returns the number of participant slots.
func (k *KeysObject) Len() int {
	return len(k.A)
}

// Adapter is the hybrid public-key scheme behind one algorithm.
type Adapter interface {
	// Algorithm returns the algorithm the adapter implements.
	Algorithm() Algorithm

	// GenerateKeyPair creates a new participant keypair.
	GenerateKeyPair() (*KeyPair, error)

	// ValidateParticipantKeys fails with ErrInvalidKeySize if any key has the
	// wrong encoded length.
	ValidateParticipantKeys(keys []string) error

	// EncryptedTopicKeysObject encrypts topicKey for every participant.
	EncryptedTopicKeysObject(topicKey TopicKey, participants []string) (*KeysObject, error)

	// DecryptTopicData recovers the topic key from keys by trial decryption
	// and uses it to open encryptedTopicData. It fails with ErrAccessDenied
	// when no slot combination works.
	DecryptTopicData(ctx context.Context, keys *KeysObject, encryptedTopicData, privateKey string) ([]byte, TopicKey, error)

	// TopicEncryptionKeyAndNonce recovers the topic key without opening a payload.
	TopicEncryptionKeyAndNonce(ctx context.Context, keys *KeysObject, privateKey string) (TopicKey, error)
}

// NewAdapter returns the adapter for alg.
func NewAdapter(alg Algorithm) (Adapter, error) {
	switch alg.Kind {
	case KindRSA:
		if alg != RSA2048 {
			break
		}
		return &rsaAdapter{}, nil
	case KindKyber:
		scheme, err := kyberScheme(alg.Size)
		if err != nil {
			return nil, err
		}
		return &kyberAdapter{alg: alg, scheme: scheme}, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedAlgorithm, alg)
}

// GenerateKeyPair creates a keypair for alg.
func GenerateKeyPair(alg Algorithm) (*KeyPair, error) {
	adapter, err := NewAdapter(alg)
	if err != nil {
		return nil, err
	}
	return adapter.GenerateKeyPair()
}

func validateKeyLengths(alg Algorithm, keys []string) error {
	want, err := alg.PublicKeyLength()
	if err != nil {
		return err
	}
	for i, key := range keys {
		if len(key) != want {
			return fmt.Errorf("%w: participant %d has length %d, want %d for %s", ErrInvalidKeySize, i, len(key), want, alg)
		}
	}
	return nil
}

// openTopicData returns a target check that opens the topic data envelope.
func openTopicData(encryptedTopicData string) func(TopicKey) ([]byte, bool) {
	return func(tk TopicKey) ([]byte, bool) {
		plaintext, err := tk.Open(encryptedTopicData)
		return plaintext, err == nil
	}
}

// acceptKey is the target check used when only the key is wanted.
func acceptKey(tk TopicKey) ([]byte, bool) {
	return nil, tk.valid()
}
