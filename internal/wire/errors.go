package wire

import "github.com/cryptotopic/client-go/internal/topicerr"

var (
	ErrMalformedConfiguration = topicerr.ErrMalformedConfiguration
	ErrGenerationNotFound     = topicerr.ErrGenerationNotFound
	ErrNotAMessage            = topicerr.ErrNotAMessage
)
