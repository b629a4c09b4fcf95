package cryptotopic

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"golang.org/x/crypto/argon2"

	"github.com/cryptotopic/client-go/internal/crypto"
)

// ExportVersion is the current key export format version.
const ExportVersion = 1

// Argon2id parameters for deriving the wrapping key from a passphrase.
const (
	exportArgonTime    = 3
	exportArgonMemory  = 64 * 1024
	exportArgonThreads = 4
	exportSaltSize     = 16
)

// ExportedKeyPair is a keypair whose private key is encrypted under a
// passphrase. It is safe to store but should not be published.
type ExportedKeyPair struct {
	// Version is the export format version. MUST be 1.
	Version int `json:"version"`
	// Algorithm is the algorithm kind, "RSA" or "Kyber".
	Algorithm string `json:"algorithm"`
	// KeySize is the algorithm key size, e.g. 2048 or 768.
	KeySize int `json:"keySize"`
	// PublicKey is the participant key (standard base64).
	PublicKey string `json:"publicKey"`
	// EncryptedPrivateKey is the private key sealed with AES-256-GCM under
	// the Argon2id-derived key.
	EncryptedPrivateKey string `json:"encryptedPrivateKey"`
	// Salt is the Argon2id salt (standard base64, 16 bytes decoded).
	Salt string `json:"salt"`
	// Nonce is the AES-GCM nonce (standard base64, 16 bytes decoded).
	Nonce string `json:"nonce"`
	// ExportedAt is the export timestamp. Informational only.
	ExportedAt time.Time `json:"exportedAt"`
}

// Validate checks the structure of the export without decrypting it.
func (e *ExportedKeyPair) Validate() error {
	if e.Version != ExportVersion {
		return fmt.Errorf("%w: unsupported version %d, expected %d", ErrInvalidExport, e.Version, ExportVersion)
	}

	alg, err := crypto.ParseAlgorithm(e.Algorithm, e.KeySize)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidExport, err)
	}
	want, _ := alg.PublicKeyLength()
	if len(e.PublicKey) != want {
		return fmt.Errorf("%w: publicKey length %d, expected %d", ErrInvalidExport, len(e.PublicKey), want)
	}

	if e.EncryptedPrivateKey == "" {
		return fmt.Errorf("%w: encryptedPrivateKey is required", ErrInvalidExport)
	}
	salt, err := crypto.FromBase64(e.Salt)
	if err != nil || len(salt) != exportSaltSize {
		return fmt.Errorf("%w: invalid salt", ErrInvalidExport)
	}
	nonce, err := crypto.FromBase64(e.Nonce)
	if err != nil || len(nonce) != crypto.TopicNonceSize {
		return fmt.Errorf("%w: invalid nonce", ErrInvalidExport)
	}
	return nil
}

func exportKey(passphrase string, salt []byte) []byte {
	return argon2.IDKey([]byte(passphrase), salt, exportArgonTime, exportArgonMemory, exportArgonThreads, crypto.TopicKeySize)
}

// Export encrypts the private key under passphrase.
func (k *KeyPair) Export(passphrase string) (*ExportedKeyPair, error) {
	salt, err := crypto.RandomBytes(exportSaltSize)
	if err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}
	nonce, err := crypto.RandomBytes(crypto.TopicNonceSize)
	if err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}

	sealed, err := crypto.Encrypt([]byte(k.PrivateKey), exportKey(passphrase, salt), nonce)
	if err != nil {
		return nil, err
	}

	return &ExportedKeyPair{
		Version:             ExportVersion,
		Algorithm:           string(k.Algorithm.Kind),
		KeySize:             k.Algorithm.Size,
		PublicKey:           k.PublicKey,
		EncryptedPrivateKey: sealed,
		Salt:                crypto.ToBase64(salt),
		Nonce:               crypto.ToBase64(nonce),
		ExportedAt:          time.Now().UTC(),
	}, nil
}

// ImportKeyPair decrypts an exported keypair. A wrong passphrase fails with
// ErrAuthenticationFailed.
func ImportKeyPair(data *ExportedKeyPair, passphrase string) (*KeyPair, error) {
	if err := data.Validate(); err != nil {
		return nil, err
	}

	// Validate() already verified these decode
	salt, _ := crypto.FromBase64(data.Salt)
	nonce, _ := crypto.FromBase64(data.Nonce)
	alg, _ := crypto.ParseAlgorithm(data.Algorithm, data.KeySize)

	privateKey, err := crypto.Decrypt(data.EncryptedPrivateKey, exportKey(passphrase, salt), nonce)
	if err != nil {
		return nil, err
	}

	return &KeyPair{
		Algorithm:  alg,
		PublicKey:  data.PublicKey,
		PrivateKey: string(privateKey),
	}, nil
}

// ExportToFile writes the passphrase-protected keypair to path as JSON.
// The file is created with 0600 permissions.
func (k *KeyPair) ExportToFile(path, passphrase string) error {
	exported, err := k.Export(passphrase)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(exported, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal export: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("write export file: %w", err)
	}
	return nil
}

// ImportKeyPairFromFile reads a file written by ExportToFile.
func ImportKeyPairFromFile(path, passphrase string) (*KeyPair, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read export file: %w", err)
	}
	var exported ExportedKeyPair
	if err := json.Unmarshal(data, &exported); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidExport, err)
	}
	return ImportKeyPair(&exported, passphrase)
}
