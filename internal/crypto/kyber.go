package crypto

import (
	"context"
	"fmt"

	"github.com/cloudflare/circl/kem"
	"github.com/cloudflare/circl/kem/kyber/kyber1024"
	"github.com/cloudflare/circl/kem/kyber/kyber512"
	"github.com/cloudflare/circl/kem/kyber/kyber768"
)

func kyberScheme(size int) (kem.Scheme, error) {
	switch size {
	case 512:
		return kyber512.Scheme(), nil
	case 768:
		return kyber768.Scheme(), nil
	case 1024:
		return kyber1024.Scheme(), nil
	}
	return nil, fmt.Errorf("%w: Kyber-%d", ErrUnsupportedAlgorithm, size)
}

type kyberAdapter struct {
	alg    Algorithm
	scheme kem.Scheme
}

func (k *kyberAdapter) Algorithm() Algorithm {
	return k.alg
}

// GenerateKeyPair derives a keypair from a seed drawn from the package
// random source. Both keys are base64 of the packed circl encoding.
func (k *kyberAdapter) GenerateKeyPair() (*KeyPair, error) {
	seed, err := RandomBytes(k.scheme.SeedSize())
	if err != nil {
		return nil, fmt.Errorf("generate seed: %w", err)
	}
	pub, priv := k.scheme.DeriveKeyPair(seed)

	// MarshalBinary never fails for keys from DeriveKeyPair
	pubBytes, _ := pub.MarshalBinary()
	privBytes, _ := priv.MarshalBinary()

	return &KeyPair{
		Algorithm:  k.alg,
		PublicKey:  ToBase64(pubBytes),
		PrivateKey: ToBase64(privBytes),
	}, nil
}

func (k *kyberAdapter) ValidateParticipantKeys(keys []string) error {
	return validateKeyLengths(k.alg, keys)
}

func (k *kyberAdapter) EncryptedTopicKeysObject(topicKey TopicKey, participants []string) (*KeysObject, error) {
	if err := k.ValidateParticipantKeys(participants); err != nil {
		return nil, err
	}

	keys := &KeysObject{
		A: make([]string, 0, len(participants)),
		B: make([]string, 0, len(participants)),
		C: make([]string, 0, len(participants)),
	}
	for i, participant := range participants {
		raw, err := FromBase64(participant)
		if err != nil {
			return nil, fmt.Errorf("participant %d: %w: %v", i, ErrInvalidKeySize, err)
		}
		pub, err := k.scheme.UnmarshalBinaryPublicKey(raw)
		if err != nil {
			return nil, fmt.Errorf("participant %d: %w: %v", i, ErrInvalidKeySize, err)
		}

		capsule, shared, err := k.encapsulate(pub)
		if err != nil {
			return nil, fmt.Errorf("participant %d: %w", i, err)
		}
		nonce := deriveKyberNonce(shared)

		encKey, err := Encrypt(topicKey.Key, shared, nonce)
		if err != nil {
			return nil, fmt.Errorf("encrypt topic key: %w", err)
		}
		encNonce, err := Encrypt(topicKey.Nonce, shared, nonce)
		if err != nil {
			return nil, fmt.Errorf("encrypt topic nonce: %w", err)
		}

		keys.A = append(keys.A, encKey)
		keys.B = append(keys.B, encNonce)
		keys.C = append(keys.C, ToBase64(capsule))
	}
	return keys, nil
}

func (k *kyberAdapter) encapsulate(pub kem.PublicKey) (capsule, shared []byte, err error) {
	seed, err := RandomBytes(k.scheme.EncapsulationSeedSize())
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrEncapsulationFailed, err)
	}
	capsule, shared, err = k.scheme.EncapsulateDeterministically(pub, seed)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrEncapsulationFailed, err)
	}
	if len(capsule) != k.scheme.CiphertextSize() || len(shared) != TopicKeySize {
		return nil, nil, ErrEncapsulationFailed
	}
	return capsule, shared, nil
}

func (k *kyberAdapter) DecryptTopicData(ctx context.Context, keys *KeysObject, encryptedTopicData, privateKey string) ([]byte, TopicKey, error) {
	c, err := k.trial(ctx, keys, privateKey, openTopicData(encryptedTopicData))
	if err != nil {
		return nil, TopicKey{}, err
	}
	return c.payload, c.key, nil
}

func (k *kyberAdapter) TopicEncryptionKeyAndNonce(ctx context.Context, keys *KeysObject, privateKey string) (TopicKey, error) {
	c, err := k.trial(ctx, keys, privateKey, acceptKey)
	if err != nil {
		return TopicKey{}, err
	}
	return c.key, nil
}

// trial decapsulates every capsule and, for each candidate shared secret,
// searches every (A[i], B[j]) pair. Decapsulation with a foreign key does not
// fail, it yields an unrelated secret; the AEAD tag rejects those.
func (k *kyberAdapter) trial(ctx context.Context, keys *KeysObject, privateKey string, target func(TopicKey) ([]byte, bool)) (candidate, error) {
	if keys.C == nil {
		return candidate{}, ErrKyberUsedOnNonKyberTopic
	}

	raw, err := FromBase64(privateKey)
	if err != nil {
		return candidate{}, fmt.Errorf("%w: decode private key: %v", ErrInvalidKeySize, err)
	}
	if len(raw) != k.scheme.PrivateKeySize() {
		return candidate{}, fmt.Errorf("%w: private key has %d bytes, want %d for %s", ErrInvalidKeySize, len(raw), k.scheme.PrivateKeySize(), k.alg)
	}
	priv, err := k.scheme.UnmarshalBinaryPrivateKey(raw)
	if err != nil {
		return candidate{}, fmt.Errorf("%w: parse private key: %v", ErrInvalidKeySize, err)
	}

	return search(ctx, len(keys.C), func(ctx context.Context, c int) (candidate, bool) {
		capsule, err := FromBase64(keys.C[c])
		if err != nil || len(capsule) != k.scheme.CiphertextSize() {
			return candidate{}, false
		}
		shared, err := k.scheme.Decapsulate(priv, capsule)
		if err != nil {
			return candidate{}, false
		}
		nonce := deriveKyberNonce(shared)

		for i := range keys.A {
			if ctx.Err() != nil {
				return candidate{}, false
			}
			key, err := Decrypt(keys.A[i], shared, nonce)
			if err != nil || len(key) != TopicKeySize {
				continue
			}
			for j := range keys.B {
				topicNonce, err := Decrypt(keys.B[j], shared, nonce)
				if err != nil || len(topicNonce) != TopicNonceSize {
					continue
				}
				tk := TopicKey{Key: key, Nonce: topicNonce}
				if payload, ok := target(tk); ok {
					return candidate{key: tk, payload: payload}, true
				}
			}
		}
		return candidate{}, false
	})
}

// deriveKyberNonce takes every other byte of the shared secret, in order,
// until the nonce is full. See the package documentation.
func deriveKyberNonce(shared []byte) []byte {
	nonce := make([]byte, 0, TopicNonceSize)
	for i := 0; i < len(shared) && len(nonce) < TopicNonceSize; i += 2 {
		nonce = append(nonce, shared[i])
	}
	return nonce
}
