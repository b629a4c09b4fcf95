package cryptotopic

import (
	"github.com/cryptotopic/client-go/internal/crypto"
)

// Algorithm identifies the public-key scheme of a topic generation.
type Algorithm = crypto.Algorithm

// Supported algorithms.
var (
	RSA2048   = crypto.RSA2048
	Kyber512  = crypto.Kyber512
	Kyber768  = crypto.Kyber768
	Kyber1024 = crypto.Kyber1024
)

// ParseAlgorithm parses an algorithm name such as "RSA-2048" or "Kyber-768".
// Matching is case-insensitive.
func ParseAlgorithm(name string) (Algorithm, error) {
	return crypto.ParseAlgorithmName(name)
}

// KeyPair is a participant keypair. Both keys are standard base64.
// PublicKey is what the participant hands to topic creators; PrivateKey
// opens every topic the public key was added to.
type KeyPair struct {
	Algorithm  Algorithm
	PublicKey  string
	PrivateKey string
}

// GenerateKeyPair creates a new participant keypair for alg.
func GenerateKeyPair(alg Algorithm) (*KeyPair, error) {
	kp, err := crypto.GenerateKeyPair(alg)
	if err != nil {
		return nil, err
	}
	return &KeyPair{
		Algorithm:  kp.Algorithm,
		PublicKey:  kp.PublicKey,
		PrivateKey: kp.PrivateKey,
	}, nil
}
