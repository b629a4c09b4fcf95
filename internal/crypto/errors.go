package crypto

import "github.com/cryptotopic/client-go/internal/topicerr"

var (
	ErrInvalidKeySize           = topicerr.ErrInvalidKeySize
	ErrInvalidNonceSize         = topicerr.ErrInvalidNonceSize
	ErrEncapsulationFailed      = topicerr.ErrEncapsulationFailed
	ErrAuthenticationFailed     = topicerr.ErrAuthenticationFailed
	ErrAccessDenied             = topicerr.ErrAccessDenied
	ErrKyberUsedOnNonKyberTopic = topicerr.ErrKyberUsedOnNonKyberTopic
	ErrAlgorithmMismatch        = topicerr.ErrAlgorithmMismatch
	ErrUnsupportedAlgorithm     = topicerr.ErrUnsupportedAlgorithm
)
