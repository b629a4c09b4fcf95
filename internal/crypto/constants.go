package crypto

const (
	// TopicKeySize is the size of a topic or message key in bytes (AES-256).
	TopicKeySize = 32
	// TopicNonceSize is the size of a topic or message nonce in bytes.
	TopicNonceSize = 16
	// TagSize is the size of an AES-GCM authentication tag in bytes.
	TagSize = 16

	// SubmitKeySize is the number of random bytes in a submit key.
	SubmitKeySize = 32

	// RSAKeyBits is the modulus size of generated RSA keys.
	RSAKeyBits = 2048

	// RSAPublicKeyLength is the encoded length of an RSA-2048 public key:
	// base64 of the 294-byte PKIX DER encoding.
	RSAPublicKeyLength = 392
	// Kyber512PublicKeyLength is the encoded length of a Kyber-512 public key (800 bytes).
	Kyber512PublicKeyLength = 1068
	// Kyber768PublicKeyLength is the encoded length of a Kyber-768 public key (1184 bytes).
	Kyber768PublicKeyLength = 1580
	// Kyber1024PublicKeyLength is the encoded length of a Kyber-1024 public key (1568 bytes).
	Kyber1024PublicKeyLength = 2092
)
