//////////////////////////////////////////////////////////////////////////////
//
// Media encoder interface for codecs
//
// Copyright 2019 Lanikai Labs LLC. All rights reserved.
//
//////////////////////////////////////////////////////////////////////////////

package media

import "io"

// Encoder is the interface for audio and video encoders. Only the synthetic
// demuxer encodes, to produce compressed test streams.
type Encoder interface {
	io.Closer

	Encode([]byte) ([]byte, error)
}
