// Package topicerr provides the error taxonomy shared by the encrypted topic
// engine and its internal packages.
package topicerr

import (
	"errors"
	"fmt"
)

// Sentinel errors for errors.Is() checks
var (
	// ErrInvalidKeySize is returned when a participant key, symmetric key or
	// private key does not have the length its algorithm requires.
	ErrInvalidKeySize = errors.New("invalid key size")

	// ErrInvalidNonceSize is returned when a symmetric nonce has the wrong length.
	ErrInvalidNonceSize = errors.New("invalid nonce size")

	// ErrEncapsulationFailed is returned when a KEM encapsulation yields no usable output.
	ErrEncapsulationFailed = errors.New("key encapsulation failed")

	// ErrAuthenticationFailed is returned when an AEAD tag does not verify.
	ErrAuthenticationFailed = errors.New("authentication failed")

	// ErrAccessDenied is returned when trial decryption exhausts every slot
	// combination. It is also returned for corrupted key material.
	ErrAccessDenied = errors.New("access denied")

	// ErrKyberUsedOnNonKyberTopic is returned when a Kyber adapter is handed a
	// keys object without capsules.
	ErrKyberUsedOnNonKyberTopic = errors.New("kyber used on non-kyber topic")

	// ErrAlgorithmMismatch is returned when a non-KEM adapter is handed a keys
	// object carrying capsules.
	ErrAlgorithmMismatch = errors.New("algorithm does not match key material")

	// ErrUnsupportedAlgorithm is returned for unknown algorithm tags or sizes.
	ErrUnsupportedAlgorithm = errors.New("unsupported algorithm")

	// ErrMalformedConfiguration is returned when a configuration message cannot be parsed.
	ErrMalformedConfiguration = errors.New("malformed topic configuration")

	// ErrGenerationNotFound is returned when a generation index is out of range.
	ErrGenerationNotFound = errors.New("generation not found")

	// ErrNotAMessage is returned when a sequence number holds something other
	// than a message envelope, such as the configuration itself.
	ErrNotAMessage = errors.New("ledger entry is not a topic message")

	// ErrNoParticipants is returned when a topic would have no participants.
	ErrNoParticipants = errors.New("at least one participant is required")

	// ErrInvalidExport is returned when exported key data is invalid.
	ErrInvalidExport = errors.New("invalid key export")

	// ErrUnsupportedOperation is matched by every UnsupportedOperationError.
	ErrUnsupportedOperation = errors.New("unsupported operation")

	// ErrUnsupportedStorageMedium is matched when an operation needs
	// file-backed configuration storage.
	ErrUnsupportedStorageMedium = errors.New("unsupported storage medium")

	// ErrParticipantsNotStored is matched when an operation needs the
	// participant side topic.
	ErrParticipantsNotStored = errors.New("participants are not stored")

	ErrAddParticipantOnMessageStorage           = errors.New("cannot add participant: configuration is stored in a topic message")
	ErrRotateKeyOnMessageStorage                = errors.New("cannot rotate key: configuration is stored in a topic message")
	ErrRotateKeyWithoutStoredParticipants       = errors.New("cannot rotate key: participants are not stored")
	ErrGetParticipantsWithoutStoredParticipants = errors.New("cannot get participants: participants are not stored")
	ErrRedundantMigration                       = errors.New("configuration is already stored in a file")
)

// UnsupportedOperationError is returned when an operation requires a feature
// that was not chosen when the topic was created.
type UnsupportedOperationError struct {
	// Operation is the public operation that was attempted.
	Operation string
	// Capability names what the topic lacks, e.g. "file-backed configuration".
	Capability string
	// Reason is the specific sentinel, e.g. ErrRotateKeyOnMessageStorage.
	Reason error
}

func (e *UnsupportedOperationError) Error() string {
	return fmt.Sprintf("unsupported operation %s: requires %s", e.Operation, e.Capability)
}

// Unwrap returns the specific sentinel.
func (e *UnsupportedOperationError) Unwrap() error {
	return e.Reason
}

// Is implements errors.Is for the family sentinels.
func (e *UnsupportedOperationError) Is(target error) bool {
	switch target {
	case ErrUnsupportedOperation:
		return true
	case ErrUnsupportedStorageMedium:
		return e.Reason == ErrAddParticipantOnMessageStorage || e.Reason == ErrRotateKeyOnMessageStorage
	case ErrParticipantsNotStored:
		return e.Reason == ErrRotateKeyWithoutStoredParticipants || e.Reason == ErrGetParticipantsWithoutStoredParticipants
	}
	return false
}

// CryptoTopicError implements the CryptoTopicError marker interface.
func (e *UnsupportedOperationError) CryptoTopicError() {}

// Unsupported builds an UnsupportedOperationError.
func Unsupported(operation, capability string, reason error) error {
	return &UnsupportedOperationError{
		Operation:  operation,
		Capability: capability,
		Reason:     reason,
	}
}
