package crypto

import (
	"context"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"fmt"
)

type rsaAdapter struct{}

func (r *rsaAdapter) Algorithm() Algorithm {
	return RSA2048
}

// GenerateKeyPair creates an RSA-2048 keypair. The public key is base64 PKIX
// DER and the private key is base64 PKCS#8 DER.
func (r *rsaAdapter) GenerateKeyPair() (*KeyPair, error) {
	priv, err := rsa.GenerateKey(randReader, RSAKeyBits)
	if err != nil {
		return nil, fmt.Errorf("generate rsa key: %w", err)
	}

	pubDER, err := x509.MarshalPKIXPublicKey(&priv.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("marshal public key: %w", err)
	}
	privDER, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		return nil, fmt.Errorf("marshal private key: %w", err)
	}

	return &KeyPair{
		Algorithm:  RSA2048,
		PublicKey:  ToBase64(pubDER),
		PrivateKey: ToBase64(privDER),
	}, nil
}

func (r *rsaAdapter) ValidateParticipantKeys(keys []string) error {
	return validateKeyLengths(RSA2048, keys)
}

func (r *rsaAdapter) EncryptedTopicKeysObject(topicKey TopicKey, participants []string) (*KeysObject, error) {
	if err := r.ValidateParticipantKeys(participants); err != nil {
		return nil, err
	}

	keys := &KeysObject{
		A: make([]string, 0, len(participants)),
		B: make([]string, 0, len(participants)),
	}
	for i, participant := range participants {
		pub, err := parseRSAPublicKey(participant)
		if err != nil {
			return nil, fmt.Errorf("participant %d: %w", i, err)
		}

		encKey, err := rsa.EncryptOAEP(sha256.New(), randReader, pub, topicKey.Key, nil)
		if err != nil {
			return nil, fmt.Errorf("encrypt topic key: %w", err)
		}
		encNonce, err := rsa.EncryptOAEP(sha256.New(), randReader, pub, topicKey.Nonce, nil)
		if err != nil {
			return nil, fmt.Errorf("encrypt topic nonce: %w", err)
		}

		keys.A = append(keys.A, ToBase64(encKey))
		keys.B = append(keys.B, ToBase64(encNonce))
	}
	return keys, nil
}

func (r *rsaAdapter) DecryptTopicData(ctx context.Context, keys *KeysObject, encryptedTopicData, privateKey string) ([]byte, TopicKey, error) {
	c, err := r.trial(ctx, keys, privateKey, openTopicData(encryptedTopicData))
	if err != nil {
		return nil, TopicKey{}, err
	}
	return c.payload, c.key, nil
}

func (r *rsaAdapter) TopicEncryptionKeyAndNonce(ctx context.Context, keys *KeysObject, privateKey string) (TopicKey, error) {
	c, err := r.trial(ctx, keys, privateKey, acceptKey)
	if err != nil {
		return TopicKey{}, err
	}
	return c.key, nil
}

// trial searches every (A[i], B[j]) pair. RSA-OAEP rejects a foreign key,
// so most pairs fail at the asymmetric step; the target check removes the rest.
func (r *rsaAdapter) trial(ctx context.Context, keys *KeysObject, privateKey string, target func(TopicKey) ([]byte, bool)) (candidate, error) {
	if keys.C != nil {
		return candidate{}, ErrAlgorithmMismatch
	}

	priv, err := parseRSAPrivateKey(privateKey)
	if err != nil {
		return candidate{}, err
	}

	return search(ctx, len(keys.A), func(ctx context.Context, i int) (candidate, bool) {
		key, err := rsaDecrypt(priv, keys.A[i])
		if err != nil || len(key) != TopicKeySize {
			return candidate{}, false
		}
		for j := range keys.B {
			if ctx.Err() != nil {
				return candidate{}, false
			}
			nonce, err := rsaDecrypt(priv, keys.B[j])
			if err != nil || len(nonce) != TopicNonceSize {
				continue
			}
			tk := TopicKey{Key: key, Nonce: nonce}
			if payload, ok := target(tk); ok {
				return candidate{key: tk, payload: payload}, true
			}
		}
		return candidate{}, false
	})
}

func rsaDecrypt(priv *rsa.PrivateKey, encoded string) ([]byte, error) {
	ciphertext, err := FromBase64(encoded)
	if err != nil {
		return nil, err
	}
	return rsa.DecryptOAEP(sha256.New(), nil, priv, ciphertext, nil)
}

func parseRSAPublicKey(encoded string) (*rsa.PublicKey, error) {
	der, err := FromBase64(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: decode public key: %v", ErrInvalidKeySize, err)
	}
	key, err := x509.ParsePKIXPublicKey(der)
	if err != nil {
		return nil, fmt.Errorf("%w: parse public key: %v", ErrInvalidKeySize, err)
	}
	pub, ok := key.(*rsa.PublicKey)
	if !ok || pub.N.BitLen() != RSAKeyBits {
		return nil, fmt.Errorf("%w: not an RSA-%d public key", ErrInvalidKeySize, RSAKeyBits)
	}
	return pub, nil
}

func parseRSAPrivateKey(encoded string) (*rsa.PrivateKey, error) {
	der, err := FromBase64(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: decode private key: %v", ErrInvalidKeySize, err)
	}
	key, err := x509.ParsePKCS8PrivateKey(der)
	if err != nil {
		return nil, fmt.Errorf("%w: parse private key: %v", ErrInvalidKeySize, err)
	}
	priv, ok := key.(*rsa.PrivateKey)
	if !ok || priv.N.BitLen() != RSAKeyBits {
		return nil, fmt.Errorf("%w: not an RSA-%d private key", ErrInvalidKeySize, RSAKeyBits)
	}
	return priv, nil
}
