package wire

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/cryptotopic/client-go/internal/crypto"
)

func rsaGeneration(data string, n int) *Generation {
	keys := &crypto.KeysObject{A: []string{}, B: []string{}}
	for i := 0; i < n; i++ {
		keys.A = append(keys.A, "QUE"+strings.Repeat("a", i)+"=")
		keys.B = append(keys.B, "QkI"+strings.Repeat("b", i)+"=")
	}
	return &Generation{EncryptedTopicData: data, Algorithm: crypto.RSA2048, Keys: keys}
}

func kyberGeneration(data string, alg crypto.Algorithm, n int) *Generation {
	gen := rsaGeneration(data, n)
	gen.Algorithm = alg
	gen.Keys.C = []string{}
	for i := 0; i < n; i++ {
		gen.Keys.C = append(gen.Keys.C, "Q0M+/"+strings.Repeat("c", i))
	}
	return gen
}

func TestGeneration_Encode(t *testing.T) {
	gen := &Generation{
		EncryptedTopicData: "ZGF0YQ==",
		Algorithm:          crypto.Kyber512,
		Keys: &crypto.KeysObject{
			A: []string{"a1", "a2"},
			B: []string{"b1", "b2"},
			C: []string{"c1", "c2"},
		},
	}
	want := "ZGF0YQ==#Kyber#512#a1_b1_c1#a2_b2_c2"
	if got := gen.Encode(); got != want {
		t.Errorf("Encode() = %q, want %q", got, want)
	}

	gen = &Generation{
		EncryptedTopicData: "ZGF0YQ==",
		Algorithm:          crypto.RSA2048,
		Keys:               &crypto.KeysObject{A: []string{"a1"}, B: []string{"b1"}},
	}
	want = "ZGF0YQ==#RSA#2048#a1_b1"
	if got := gen.Encode(); got != want {
		t.Errorf("Encode() = %q, want %q", got, want)
	}
}

func TestGeneration_RoundTrip(t *testing.T) {
	tests := []struct {
		name string
		gen  *Generation
	}{
		{"rsa one", rsaGeneration("ZA==", 1)},
		{"rsa many", rsaGeneration("ZA==", 5)},
		{"rsa none", rsaGeneration("ZA==", 0)},
		{"kyber512", kyberGeneration("ZA==", crypto.Kyber512, 3)},
		{"kyber768", kyberGeneration("ZA==", crypto.Kyber768, 1)},
		{"kyber1024 none", kyberGeneration("ZA==", crypto.Kyber1024, 0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decoded, err := DecodeGeneration(tt.gen.Encode())
			if err != nil {
				t.Fatalf("DecodeGeneration() error = %v", err)
			}
			if !reflect.DeepEqual(decoded, tt.gen) {
				t.Errorf("decoded = %+v, want %+v", decoded, tt.gen)
			}
			if err := decoded.Validate(); err != nil {
				t.Errorf("Validate() error = %v", err)
			}
		})
	}
}

func TestDecodeGeneration_SkipsEmptyParticipants(t *testing.T) {
	gen, err := DecodeGeneration("ZA==#RSA#2048##a1_b1##a2_b2#")
	if err != nil {
		t.Fatalf("DecodeGeneration() error = %v", err)
	}
	if !reflect.DeepEqual(gen.Keys.A, []string{"a1", "a2"}) || !reflect.DeepEqual(gen.Keys.B, []string{"b1", "b2"}) {
		t.Errorf("keys = %+v", gen.Keys)
	}
}

func TestDecodeGeneration_KyberTagWithoutCapsules(t *testing.T) {
	gen, err := DecodeGeneration("ZA==#Kyber#768#a1_b1")
	if err != nil {
		t.Fatalf("DecodeGeneration() error = %v", err)
	}
	if gen.Keys.C != nil {
		t.Errorf("C = %v, want nil", gen.Keys.C)
	}
}

func TestDecodeGeneration_Malformed(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"too few fields", "ZA==#RSA"},
		{"empty data", "#RSA#2048#a_b"},
		{"bad size", "ZA==#RSA#big#a_b"},
		{"unknown algorithm", "ZA==#DSA#2048#a_b"},
		{"unsupported size", "ZA==#Kyber#333#a_b_c"},
		{"one field participant", "ZA==#RSA#2048#a"},
		{"four field participant", "ZA==#Kyber#512#a_b_c_d"},
		{"mixed widths", "ZA==#Kyber#512#a_b_c#a_b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DecodeGeneration(tt.in); !errors.Is(err, ErrMalformedConfiguration) {
				t.Errorf("expected ErrMalformedConfiguration, got %v", err)
			}
		})
	}
}

func TestGeneration_Validate(t *testing.T) {
	gen := kyberGeneration("ZA==", crypto.Kyber512, 2)
	gen.Keys.C = gen.Keys.C[:1]
	if err := gen.Validate(); !errors.Is(err, ErrMalformedConfiguration) {
		t.Errorf("short C: expected ErrMalformedConfiguration, got %v", err)
	}

	gen = rsaGeneration("ZA==", 2)
	gen.Keys.B = gen.Keys.B[:1]
	if err := gen.Validate(); !errors.Is(err, ErrMalformedConfiguration) {
		t.Errorf("short B: expected ErrMalformedConfiguration, got %v", err)
	}
}
