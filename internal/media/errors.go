//////////////////////////////////////////////////////////////////////////////
//
// Media errors
//
// Copyright 2019 Lanikai Labs LLC. All rights reserved.
//
//////////////////////////////////////////////////////////////////////////////

package media

import "errors"

// Errors shared by the reader, the sample source and the demuxers. The root
// package re-exports them, so callers compare against a single identity.
var (
	ErrInvalidArgument        = errors.New("Invalid argument")
	ErrInvalidRequest         = errors.New("Invalid request")
	ErrUnexpected             = errors.New("Unexpected call")
	ErrOutOfMemory            = errors.New("Out of memory")
	ErrNoMoreSamples          = errors.New("No more samples")
	ErrNotImplemented         = errors.New("Not implemented") // "to do" items
	ErrNotSupported           = errors.New("Not supported")   // "can't do" items
	ErrInvalidOutputFormat    = errors.New("Invalid output format")
	ErrIncompatibleFormat     = errors.New("Incompatible format")
	ErrAudioCodecNotInstalled = errors.New("Audio codec not installed")
)
