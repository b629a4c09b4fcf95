package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// envelope is the self-describing AEAD output. Both fields are base64.
type envelope struct {
	Ciphertext string `json:"c"`
	Tag        string `json:"t"`
}

func newGCM(key, nonce []byte) (cipher.AEAD, error) {
	if len(key) != TopicKeySize {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrInvalidKeySize, len(key), TopicKeySize)
	}
	if len(nonce) != TopicNonceSize {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrInvalidNonceSize, len(nonce), TopicNonceSize)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCMWithNonceSize(block, TopicNonceSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return gcm, nil
}

// Encrypt encrypts plaintext with AES-256-GCM under key and a 16-byte nonce.
// The result is base64 of the JSON envelope {"c": ciphertext, "t": tag}.
func Encrypt(plaintext, key, nonce []byte) (string, error) {
	gcm, err := newGCM(key, nonce)
	if err != nil {
		return "", err
	}

	sealed := gcm.Seal(nil, nonce, plaintext, nil)
	split := len(sealed) - TagSize

	data, err := json.Marshal(envelope{
		Ciphertext: ToBase64(sealed[:split]),
		Tag:        ToBase64(sealed[split:]),
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal envelope: %w", err)
	}
	return ToBase64(data), nil
}

// Decrypt opens an envelope produced by Encrypt. A malformed envelope, a
// wrong key or nonce, and a failed tag check all return ErrAuthenticationFailed.
func Decrypt(sealed string, key, nonce []byte) ([]byte, error) {
	gcm, err := newGCM(key, nonce)
	if err != nil {
		return nil, err
	}

	raw, err := FromBase64(sealed)
	if err != nil {
		return nil, fmt.Errorf("%w: decode envelope: %v", ErrAuthenticationFailed, err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: parse envelope: %v", ErrAuthenticationFailed, err)
	}

	ciphertext, err := FromBase64(env.Ciphertext)
	if err != nil {
		return nil, fmt.Errorf("%w: decode ciphertext: %v", ErrAuthenticationFailed, err)
	}
	tag, err := FromBase64(env.Tag)
	if err != nil || len(tag) != TagSize {
		return nil, fmt.Errorf("%w: invalid tag", ErrAuthenticationFailed)
	}

	plaintext, err := gcm.Open(nil, nonce, append(ciphertext, tag...), nil)
	if err != nil {
		return nil, ErrAuthenticationFailed
	}
	return plaintext, nil
}

// TopicKey is a symmetric key and nonce pair. It is used both for topic
// generations and for the ephemeral key of a single message.
type TopicKey struct {
	Key   []byte
	Nonce []byte
}

// NewTopicKey generates a fresh random key and nonce.
func NewTopicKey() (TopicKey, error) {
	key, err := RandomBytes(TopicKeySize)
	if err != nil {
		return TopicKey{}, fmt.Errorf("generate key: %w", err)
	}
	nonce, err := RandomBytes(TopicNonceSize)
	if err != nil {
		return TopicKey{}, fmt.Errorf("generate nonce: %w", err)
	}
	return TopicKey{Key: key, Nonce: nonce}, nil
}

func (k TopicKey) valid() bool {
	return len(k.Key) == TopicKeySize && len(k.Nonce) == TopicNonceSize
}

// Seal encrypts plaintext under the key and nonce.
func (k TopicKey) Seal(plaintext []byte) (string, error) {
	return Encrypt(plaintext, k.Key, k.Nonce)
}

// Open decrypts an envelope sealed under the key and nonce.
func (k TopicKey) Open(sealed string) ([]byte, error) {
	return Decrypt(sealed, k.Key, k.Nonce)
}

// Derive returns a key sharing k.Key whose nonce is derived from k, label
// and data with HKDF-SHA256. Distinct (label, data) pairs give
// distinct nonces, so envelopes sealed under derived keys never share a
// keystream.
func (k TopicKey) Derive(label string, data []byte) (TopicKey, error) {
	if !k.valid() {
		return TopicKey{}, fmt.Errorf("%w: got %d, want %d", ErrInvalidKeySize, len(k.Key), TopicKeySize)
	}
	info := make([]byte, 0, len(label)+1+len(data))
	info = append(info, label...)
	info = append(info, 0)
	info = append(info, data...)

	nonce := make([]byte, TopicNonceSize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, k.Key, k.Nonce, info), nonce); err != nil {
		return TopicKey{}, fmt.Errorf("derive nonce: %w", err)
	}
	return TopicKey{Key: k.Key, Nonce: nonce}, nil
}

// NewSubmitKey generates the secret that authorizes posting to a topic.
func NewSubmitKey() (string, error) {
	b, err := RandomBytes(SubmitKeySize)
	if err != nil {
		return "", fmt.Errorf("generate submit key: %w", err)
	}
	return ToBase64(b), nil
}
