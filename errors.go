package alohareader

import (
	"errors"

	"github.com/lanikai/alohareader/internal/media"
)

var (
	ErrInvalidArgument        = media.ErrInvalidArgument
	ErrInvalidRequest         = media.ErrInvalidRequest
	ErrUnexpected             = media.ErrUnexpected
	ErrOutOfMemory            = media.ErrOutOfMemory
	ErrNoMoreSamples          = media.ErrNoMoreSamples
	ErrNotImplemented         = media.ErrNotImplemented
	ErrInvalidOutputFormat    = media.ErrInvalidOutputFormat
	ErrIncompatibleFormat     = media.ErrIncompatibleFormat
	ErrAudioCodecNotInstalled = media.ErrAudioCodecNotInstalled

	errQueueClosed = errors.New("Command queue closed")
	errPending     = errors.New("Sample pending")
)
