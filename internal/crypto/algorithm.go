package crypto

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind is the algorithm tag carried in the topic configuration.
type Kind string

const (
	// KindRSA selects the RSA-OAEP adapter.
	KindRSA Kind = "RSA"
	// KindKyber selects the Kyber KEM adapter.
	KindKyber Kind = "Kyber"
)

// Algorithm identifies an adapter: a kind and a key size.
type Algorithm struct {
	Kind Kind
	Size int
}

// Supported algorithms.
var (
	RSA2048   = Algorithm{Kind: KindRSA, Size: 2048}
	Kyber512  = Algorithm{Kind: KindKyber, Size: 512}
	Kyber768  = Algorithm{Kind: KindKyber, Size: 768}
	Kyber1024 = Algorithm{Kind: KindKyber, Size: 1024}
)

// String returns the algorithm as "<Kind>-<Size>", e.g. "Kyber-768".
func (a Algorithm) String() string {
	return fmt.Sprintf("%s-%d", a.Kind, a.Size)
}

// IsKEM reports whether the algorithm stores capsules in the keys object.
func (a Algorithm) IsKEM() bool {
	return a.Kind == KindKyber
}

// PublicKeyLength returns the expected encoded length of a participant key.
func (a Algorithm) PublicKeyLength() (int, error) {
	switch a {
	case RSA2048:
		return RSAPublicKeyLength, nil
	case Kyber512:
		return Kyber512PublicKeyLength, nil
	case Kyber768:
		return Kyber768PublicKeyLength, nil
	case Kyber1024:
		return Kyber1024PublicKeyLength, nil
	}
	return 0, fmt.Errorf("%w: %s", ErrUnsupportedAlgorithm, a)
}

// ParseAlgorithm resolves a configuration tag and key size.
func ParseAlgorithm(tag string, size int) (Algorithm, error) {
	alg := Algorithm{Kind: Kind(tag), Size: size}
	if _, err := alg.PublicKeyLength(); err != nil {
		return Algorithm{}, err
	}
	return alg, nil
}

// ParseAlgorithmName parses the String form, e.g. "RSA-2048" or "kyber-512".
func ParseAlgorithmName(name string) (Algorithm, error) {
	kind, size, ok := strings.Cut(name, "-")
	if !ok {
		return Algorithm{}, fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, name)
	}
	n, err := strconv.Atoi(size)
	if err != nil {
		return Algorithm{}, fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, name)
	}
	switch strings.ToLower(kind) {
	case "rsa":
		return ParseAlgorithm(string(KindRSA), n)
	case "kyber":
		return ParseAlgorithm(string(KindKyber), n)
	}
	return Algorithm{}, fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, name)
}
