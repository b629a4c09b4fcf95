// Package cryptotopic provides encrypted topics over an append-only,
// publicly readable ledger.
//
// A topic is readable only by the holders of the private keys it was
// created for. Every participant gets a slot of wrapped key material in the
// topic configuration, and slots carry no identity: a reader finds theirs
// by trial decryption. Topic keys can be rotated to revoke participants or
// to give new ones forward secrecy, and every message records the
// generation it was encrypted under, so rotation never breaks old messages.
//
// RSA-2048 and the post-quantum Kyber-512, Kyber-768 and Kyber-1024 are
// supported.
//
// Basic usage:
//
//	client, err := cryptotopic.New(memledger.New())
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	alice, _ := cryptotopic.GenerateKeyPair(cryptotopic.Kyber768)
//	bob, _ := cryptotopic.GenerateKeyPair(cryptotopic.Kyber768)
//
//	topicID, err := client.CreateTopic(ctx,
//	    []string{alice.PublicKey, bob.PublicKey},
//	    cryptotopic.Kyber768,
//	    cryptotopic.WithConfigurationStorage(cryptotopic.StorageFile),
//	    cryptotopic.WithStoredParticipants(),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	seq, err := client.OpenTopic(topicID, alice.PrivateKey).SubmitMessage(ctx, []byte("hello"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	plaintext, err := client.OpenTopic(topicID, bob.PrivateKey).GetMessage(ctx, seq)
//
// # Storage Choices
//
// The configuration (every generation's key material) lives either in the
// first topic message or in a ledger file. Only file-backed configurations
// can grow, so AddParticipant and RotateEncryptionKey need
// WithConfigurationStorage(StorageFile); an existing topic can move with
// MigrateConfigurationToFile. RotateEncryptionKey and GetParticipants also
// need WithStoredParticipants, which keeps the participant keys in a side
// topic.
//
// # Errors
//
// Failures match the package sentinels with errors.Is. A reader without
// access gets ErrAccessDenied, which is also what corrupted key material
// yields. Operations a topic was not created for return an
// *UnsupportedOperationError, and ledger failures are wrapped in a
// *LedgerError.
package cryptotopic
