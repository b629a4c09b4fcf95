package crypto

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func mustTopicKey(t *testing.T) TopicKey {
	t.Helper()
	tk, err := NewTopicKey()
	if err != nil {
		t.Fatalf("NewTopicKey() error = %v", err)
	}
	return tk
}

func TestEncrypt_Decrypt_RoundTrip(t *testing.T) {
	tests := []struct {
		name      string
		plaintext []byte
	}{
		{"empty", []byte{}},
		{"simple", []byte("hello world")},
		{"json", []byte(`{"foo": "bar", "num": 123}`)},
		{"binary", []byte{0x00, 0xff, 0x7f, 0x80}},
		{"large", make([]byte, 10000)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tk := mustTopicKey(t)

			sealed, err := Encrypt(tt.plaintext, tk.Key, tk.Nonce)
			if err != nil {
				t.Fatalf("Encrypt() error = %v", err)
			}

			decrypted, err := Decrypt(sealed, tk.Key, tk.Nonce)
			if err != nil {
				t.Fatalf("Decrypt() error = %v", err)
			}
			if !bytes.Equal(decrypted, tt.plaintext) {
				t.Errorf("decrypted = %v, want %v", decrypted, tt.plaintext)
			}
		})
	}
}

func TestEncrypt_EnvelopeIsSelfDescribing(t *testing.T) {
	tk := mustTopicKey(t)
	sealed, err := Encrypt([]byte("payload"), tk.Key, tk.Nonce)
	if err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}

	for _, delim := range []string{"#", "_", ","} {
		if strings.Contains(sealed, delim) {
			t.Errorf("envelope contains wire delimiter %q", delim)
		}
	}

	raw, err := FromBase64(sealed)
	if err != nil {
		t.Fatalf("FromBase64() error = %v", err)
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		t.Fatalf("envelope is not JSON: %v", err)
	}
	tag, err := FromBase64(env.Tag)
	if err != nil {
		t.Fatalf("decode tag: %v", err)
	}
	if len(tag) != TagSize {
		t.Errorf("tag length = %d, want %d", len(tag), TagSize)
	}
}

func TestDecrypt_WrongKeyOrNonce(t *testing.T) {
	tk := mustTopicKey(t)
	other := mustTopicKey(t)

	sealed, err := tk.Seal([]byte("secret"))
	if err != nil {
		t.Fatalf("Seal() error = %v", err)
	}

	if _, err := Decrypt(sealed, other.Key, tk.Nonce); !errors.Is(err, ErrAuthenticationFailed) {
		t.Errorf("wrong key: expected ErrAuthenticationFailed, got %v", err)
	}
	if _, err := Decrypt(sealed, tk.Key, other.Nonce); !errors.Is(err, ErrAuthenticationFailed) {
		t.Errorf("wrong nonce: expected ErrAuthenticationFailed, got %v", err)
	}
}

func TestDecrypt_Tampered(t *testing.T) {
	tk := mustTopicKey(t)
	sealed, err := tk.Seal([]byte("secret message"))
	if err != nil {
		t.Fatalf("Seal() error = %v", err)
	}

	raw, _ := FromBase64(sealed)
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		t.Fatal(err)
	}
	ct, _ := FromBase64(env.Ciphertext)
	ct[0] ^= 0x01
	env.Ciphertext = ToBase64(ct)
	data, _ := json.Marshal(env)

	if _, err := tk.Open(ToBase64(data)); !errors.Is(err, ErrAuthenticationFailed) {
		t.Errorf("expected ErrAuthenticationFailed, got %v", err)
	}
}

func TestDecrypt_MalformedEnvelope(t *testing.T) {
	tk := mustTopicKey(t)
	tests := []struct {
		name   string
		sealed string
	}{
		{"not base64", "!!!"},
		{"not json", ToBase64([]byte("plain"))},
		{"short tag", ToBase64([]byte(`{"c":"","t":"AAAA"}`))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tk.Open(tt.sealed); !errors.Is(err, ErrAuthenticationFailed) {
				t.Errorf("expected ErrAuthenticationFailed, got %v", err)
			}
		})
	}
}

func TestEncrypt_InvalidSizes(t *testing.T) {
	nonce := make([]byte, TopicNonceSize)
	key := make([]byte, TopicKeySize)

	for _, size := range []int{0, 16, 64} {
		if _, err := Encrypt([]byte("x"), make([]byte, size), nonce); !errors.Is(err, ErrInvalidKeySize) {
			t.Errorf("key size %d: expected ErrInvalidKeySize, got %v", size, err)
		}
	}
	for _, size := range []int{0, 12, 32} {
		if _, err := Encrypt([]byte("x"), key, make([]byte, size)); !errors.Is(err, ErrInvalidNonceSize) {
			t.Errorf("nonce size %d: expected ErrInvalidNonceSize, got %v", size, err)
		}
	}
}

func TestNewSubmitKey_Unique(t *testing.T) {
	a, err := NewSubmitKey()
	if err != nil {
		t.Fatalf("NewSubmitKey() error = %v", err)
	}
	b, err := NewSubmitKey()
	if err != nil {
		t.Fatalf("NewSubmitKey() error = %v", err)
	}
	if a == b {
		t.Error("submit keys are identical")
	}
	raw, err := FromBase64(a)
	if err != nil || len(raw) != SubmitKeySize {
		t.Errorf("submit key decodes to %d bytes (err %v), want %d", len(raw), err, SubmitKeySize)
	}
}

func TestTopicKey_Derive(t *testing.T) {
	tk := mustTopicKey(t)

	a, err := tk.Derive("label", []byte("one"))
	if err != nil {
		t.Fatalf("Derive() error = %v", err)
	}
	again, err := tk.Derive("label", []byte("one"))
	if err != nil {
		t.Fatalf("Derive() error = %v", err)
	}
	if !bytes.Equal(a.Nonce, again.Nonce) {
		t.Error("Derive() is not deterministic")
	}
	if !bytes.Equal(a.Key, tk.Key) {
		t.Error("Derive() changed the key")
	}
	if len(a.Nonce) != TopicNonceSize {
		t.Errorf("derived nonce is %d bytes, want %d", len(a.Nonce), TopicNonceSize)
	}

	others := []struct {
		label   string
		data    []byte
	}{
		{"label", []byte("two")},
		{"other", []byte("one")},
		{"labe", []byte("lone")},
	}
	for _, o := range others {
		b, err := tk.Derive(o.label, o.data)
		if err != nil {
			t.Fatalf("Derive(%q, %q) error = %v", o.label, o.data, err)
		}
		if bytes.Equal(a.Nonce, b.Nonce) {
			t.Errorf("Derive(%q, %q) repeats the nonce of Derive(%q, %q)", o.label, o.data, "label", "one")
		}
	}
	if bytes.Equal(a.Nonce, tk.Nonce) {
		t.Error("derived nonce equals the base nonce")
	}

	if _, err := (TopicKey{}).Derive("label", nil); !errors.Is(err, ErrInvalidKeySize) {
		t.Errorf("Derive() on empty key error = %v, want ErrInvalidKeySize", err)
	}
}
