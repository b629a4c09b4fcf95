package cryptotopic

import (
	"errors"
	"fmt"

	"github.com/cryptotopic/client-go/internal/topicerr"
	"github.com/cryptotopic/client-go/ledger"
)

// Sentinel errors for errors.Is() checks
var (
	// ErrMissingLedger is returned when New is called without a ledger.
	ErrMissingLedger = errors.New("ledger is required")

	// ErrInvalidStorageMedium is returned for an unknown StorageMedium.
	ErrInvalidStorageMedium = errors.New("invalid storage medium")

	ErrInvalidKeySize           = topicerr.ErrInvalidKeySize
	ErrEncapsulationFailed      = topicerr.ErrEncapsulationFailed
	ErrAuthenticationFailed     = topicerr.ErrAuthenticationFailed
	ErrAccessDenied             = topicerr.ErrAccessDenied
	ErrKyberUsedOnNonKyberTopic = topicerr.ErrKyberUsedOnNonKyberTopic
	ErrAlgorithmMismatch        = topicerr.ErrAlgorithmMismatch
	ErrUnsupportedAlgorithm     = topicerr.ErrUnsupportedAlgorithm
	ErrMalformedConfiguration   = topicerr.ErrMalformedConfiguration
	ErrGenerationNotFound       = topicerr.ErrGenerationNotFound
	ErrNotAMessage              = topicerr.ErrNotAMessage
	ErrNoParticipants           = topicerr.ErrNoParticipants
	ErrInvalidExport            = topicerr.ErrInvalidExport

	ErrUnsupportedOperation                     = topicerr.ErrUnsupportedOperation
	ErrUnsupportedStorageMedium                 = topicerr.ErrUnsupportedStorageMedium
	ErrParticipantsNotStored                    = topicerr.ErrParticipantsNotStored
	ErrAddParticipantOnMessageStorage           = topicerr.ErrAddParticipantOnMessageStorage
	ErrRotateKeyOnMessageStorage                = topicerr.ErrRotateKeyOnMessageStorage
	ErrRotateKeyWithoutStoredParticipants       = topicerr.ErrRotateKeyWithoutStoredParticipants
	ErrGetParticipantsWithoutStoredParticipants = topicerr.ErrGetParticipantsWithoutStoredParticipants
	ErrRedundantMigration                       = topicerr.ErrRedundantMigration

	ErrInvalidSubmitKey         = ledger.ErrInvalidSubmitKey
	ErrTopicNotFound            = ledger.ErrTopicNotFound
	ErrFileNotFound             = ledger.ErrFileNotFound
	ErrSequenceNumberOutOfRange = ledger.ErrSequenceNumberOutOfRange
	ErrMessageTooLarge          = ledger.ErrMessageTooLarge
)

// CryptoTopicError is implemented by all typed errors of this package.
type CryptoTopicError interface {
	error
	CryptoTopicError() // marker method
}

// UnsupportedOperationError is returned when a topic lacks a capability an
// operation needs. It matches ErrUnsupportedOperation and its specific sentinel.
type UnsupportedOperationError = topicerr.UnsupportedOperationError

// LedgerError wraps a failure of the storage collaborator.
type LedgerError struct {
	// Op is the ledger call that failed, e.g. "GetTopicInfo".
	Op  string
	Err error
}

func (e *LedgerError) Error() string {
	return fmt.Sprintf("ledger %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *LedgerError) Unwrap() error {
	return e.Err
}

// CryptoTopicError implements the CryptoTopicError interface.
func (e *LedgerError) CryptoTopicError() {}

// wrapLedgerError tags err as a ledger failure of op.
func wrapLedgerError(op string, err error) error {
	if err == nil {
		return nil
	}
	var le *LedgerError
	if errors.As(err, &le) {
		return err
	}
	return &LedgerError{Op: op, Err: err}
}
