//////////////////////////////////////////////////////////////////////////////
//
// Media decoder interface for codecs
//
// Copyright 2019 Lanikai Labs LLC. All rights reserved.
//
//////////////////////////////////////////////////////////////////////////////

package media

import (
	"io"
	"sort"

	"github.com/pkg/errors"
)

// Decoder is the interface for audio and video decoders
type Decoder interface {
	io.Closer

	Decode(b []byte) ([]byte, error)

	// OutputTypes lists the formats the decoder produces, preferred first.
	OutputTypes() []Type

	// OutputSize returns the decoded size of an input of n bytes.
	OutputSize(n int) int
}

// A function used to create a decoder for a specific compressed type.
type DecoderFunc func(in Type) (Decoder, error)

var decoders = map[string]DecoderFunc{}

// Register a decoder for streams whose subtype is the given codec name.
func RegisterDecoder(subtype string, open DecoderFunc) {
	decoders[subtype] = open
}

// NewDecoder creates a decoder for streams of type t. The returned error wraps
// ErrNotSupported if no decoder is registered for t.Subtype.
func NewDecoder(t Type) (Decoder, error) {
	open, found := decoders[t.Subtype]
	if !found {
		var names []string
		for name := range decoders {
			names = append(names, name)
		}
		sort.Strings(names)
		log.Trace(2, "No decoder for %s (have %v)", t, names)
		return nil, errors.Wrapf(ErrNotSupported, "decoder for %q", t.Subtype)
	}
	return open(t)
}
