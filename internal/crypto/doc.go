// Package crypto provides the hybrid encryption used by encrypted topics.
//
// # Algorithm Suite
//
//   - AES-256-GCM with a 16-byte nonce: the symmetric cipher every adapter
//     uses. Ciphertexts travel as a textual envelope carrying the ciphertext
//     and the authentication tag, so a decryption can be attempted without
//     any external context.
//
//   - RSA-2048 with OAEP (SHA-256): the classical adapter. The topic key and
//     nonce are encrypted directly under each participant's public key.
//
//   - Kyber-512, Kyber-768, Kyber-1024: the post-quantum adapters. Each
//     participant gets a fresh encapsulation; the shared secret encrypts the
//     topic key and nonce with AES-256-GCM.
//
// # Keys Objects
//
// A [KeysObject] holds three parallel collections: A (encrypted topic keys),
// B (encrypted topic nonces) and, for Kyber, C (capsules). Slots carry no
// participant identity. A reader discovers the slots meant for them by trial
// decryption, see [Adapter.DecryptTopicData].
//
// # Kyber Nonce Derivation
//
// The per-participant nonce for Kyber is every other byte of the shared
// secret (bytes 0, 2, 4, ... 30). This is not a KDF and halves the entropy
// that reaches the nonce. It is kept because existing topics were encoded
// with it; changing it breaks every Kyber topic already on a ledger.
//
// # Base64 Encoding
//
// All values crossing the wire use standard base64 with padding (RFC 4648 §4).
// The URL-safe alphabet is avoided because '_' is a field separator in the
// topic configuration format.
package crypto
