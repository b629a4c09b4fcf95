package wire

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cryptotopic/client-go/internal/crypto"
)

const (
	generationSeparator  = ","
	fieldSeparator       = "#"
	participantSeparator = "_"
)

// Generation is one immutable version of a topic's key material.
type Generation struct {
	EncryptedTopicData string
	Algorithm          crypto.Algorithm
	Keys               *crypto.KeysObject
}

// Validate checks the slot count invariant: |A| = |B| and, when capsules
// are present, |C| = |A|.
func (g *Generation) Validate() error {
	if g.EncryptedTopicData == "" {
		return fmt.Errorf("%w: empty topic data", ErrMalformedConfiguration)
	}
	if g.Keys == nil {
		return fmt.Errorf("%w: missing keys object", ErrMalformedConfiguration)
	}
	if len(g.Keys.A) != len(g.Keys.B) {
		return fmt.Errorf("%w: %d keys but %d nonces", ErrMalformedConfiguration, len(g.Keys.A), len(g.Keys.B))
	}
	if g.Keys.C != nil && len(g.Keys.C) != len(g.Keys.A) {
		return fmt.Errorf("%w: %d keys but %d capsules", ErrMalformedConfiguration, len(g.Keys.A), len(g.Keys.C))
	}
	return nil
}

// Encode returns the textual form of the generation.
func (g *Generation) Encode() string {
	var sb strings.Builder
	sb.WriteString(g.EncryptedTopicData)
	sb.WriteString(fieldSeparator)
	sb.WriteString(string(g.Algorithm.Kind))
	sb.WriteString(fieldSeparator)
	sb.WriteString(strconv.Itoa(g.Algorithm.Size))
	sb.WriteString(ParticipantSuffix(g.Keys))
	return sb.String()
}

// ParticipantSuffix encodes the slots of keys as "#p1#p2...". Appending it
// to a configuration extends the last generation.
func ParticipantSuffix(keys *crypto.KeysObject) string {
	if keys == nil {
		return ""
	}
	var sb strings.Builder
	for i := range keys.A {
		sb.WriteString(fieldSeparator)
		sb.WriteString(keys.A[i])
		sb.WriteString(participantSeparator)
		sb.WriteString(keys.B[i])
		if keys.C != nil {
			sb.WriteString(participantSeparator)
			sb.WriteString(keys.C[i])
		}
	}
	return sb.String()
}

// DecodeGeneration parses one generation. Empty participant segments are
// skipped. The capsule collection is nil when participants carry two fields.
func DecodeGeneration(s string) (*Generation, error) {
	fields := strings.Split(s, fieldSeparator)
	if len(fields) < 3 {
		return nil, fmt.Errorf("%w: generation has %d header fields, want 3", ErrMalformedConfiguration, len(fields))
	}
	if fields[0] == "" {
		return nil, fmt.Errorf("%w: empty topic data", ErrMalformedConfiguration)
	}

	size, err := strconv.Atoi(fields[2])
	if err != nil {
		return nil, fmt.Errorf("%w: key size %q", ErrMalformedConfiguration, fields[2])
	}
	alg, err := crypto.ParseAlgorithm(fields[1], size)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedConfiguration, err)
	}

	keys := &crypto.KeysObject{A: []string{}, B: []string{}}
	if alg.IsKEM() {
		keys.C = []string{}
	}

	width := 0
	for _, p := range fields[3:] {
		if p == "" {
			continue
		}
		parts := strings.Split(p, participantSeparator)
		if len(parts) != 2 && len(parts) != 3 {
			return nil, fmt.Errorf("%w: participant has %d fields", ErrMalformedConfiguration, len(parts))
		}
		if width == 0 {
			width = len(parts)
			if width == 2 {
				keys.C = nil
			} else if keys.C == nil {
				keys.C = []string{}
			}
		} else if len(parts) != width {
			return nil, fmt.Errorf("%w: participants mix %d and %d fields", ErrMalformedConfiguration, width, len(parts))
		}

		keys.A = append(keys.A, parts[0])
		keys.B = append(keys.B, parts[1])
		if width == 3 {
			keys.C = append(keys.C, parts[2])
		}
	}

	return &Generation{
		EncryptedTopicData: fields[0],
		Algorithm:          alg,
		Keys:               keys,
	}, nil
}
