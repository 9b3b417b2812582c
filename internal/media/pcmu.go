//////////////////////////////////////////////////////////////////////////////
//
// PCM μ-law (ITU-T G.711) audio codec.
//
// Copyright 2019 Lanikai Labs LLC. All rights reserved.
//
//////////////////////////////////////////////////////////////////////////////

package media

import (
	"encoding/binary"
)

const (
	pcmuBias = 0x84
	pcmuClip = 32635
)

var (
	pcmuDecoderTable [256]int16
	pcmuEncoderTable [8192]byte
)

func init() {
	for i := range pcmuDecoderTable {
		pcmuDecoderTable[i] = pcmuExpand(byte(i))
	}
	for i := range pcmuEncoderTable {
		// Index is the upper 13 bits of a 16-bit sample.
		pcmuEncoderTable[i] = pcmuCompress(int16(uint16(i << 3)))
	}

	RegisterDecoder("PCMU", func(in Type) (Decoder, error) {
		return NewPCMUDecoder(in), nil
	})
}

func pcmuExpand(u byte) int16 {
	u = ^u
	t := (int(u&0x0f) << 3) + pcmuBias
	t <<= (u & 0x70) >> 4
	if u&0x80 != 0 {
		return int16(pcmuBias - t)
	}
	return int16(t - pcmuBias)
}

func pcmuCompress(pcm int16) byte {
	var sign byte
	s := int(pcm)
	if s < 0 {
		s = -s
		sign = 0x80
	}
	if s > pcmuClip {
		s = pcmuClip
	}
	s += pcmuBias

	exponent := 7
	for mask := 0x4000; s&mask == 0 && exponent > 0; mask >>= 1 {
		exponent--
	}
	mantissa := (s >> uint(exponent+3)) & 0x0f
	return ^(sign | byte(exponent<<4) | byte(mantissa))
}

///////////////////////////////////  PCMU  ///////////////////////////////////

// PCMUDecoder implements the Decoder interface for PCM μ-law
type PCMUDecoder struct {
	out Type
}

// NewPCMUDecoder returns a new μ-law decoder for input of type in. A zero
// sample rate or channel count defaults to 8 kHz mono.
func NewPCMUDecoder(in Type) *PCMUDecoder {
	out := Type{
		Major:         Audio,
		Subtype:       "PCM",
		SampleRate:    in.SampleRate,
		Channels:      in.Channels,
		BitsPerSample: 16,
	}
	if out.SampleRate == 0 {
		out.SampleRate = 8000
	}
	if out.Channels == 0 {
		out.Channels = 1
	}
	return &PCMUDecoder{out}
}

// Decode μ-law encoded buffer b into plain audio.
// Decodes each 8-bit sample into a 14-bit signed linear audio sample,
// normalized into a 16-bit signed linear audio sample (see companding
// table). Thus, the output buffer will be twice the length of the input
// buffer.
func (d *PCMUDecoder) Decode(b []byte) ([]byte, error) {
	buffer := make([]byte, 2*len(b))
	for i, sample := range b {
		pcm := pcmuDecoderTable[sample]
		binary.LittleEndian.PutUint16(buffer[2*i:], uint16(pcm))
	}
	return buffer, nil
}

func (d *PCMUDecoder) OutputTypes() []Type {
	return []Type{d.out}
}

func (d *PCMUDecoder) OutputSize(n int) int {
	return 2 * n
}

func (d *PCMUDecoder) Close() error {
	return nil
}

// PCMUEncoder implements the Encoder interface for PCM μ-law
type PCMUEncoder struct {
}

// NewPCMUEncoder returns a new μ-law encoder
func NewPCMUEncoder() *PCMUEncoder {
	return &PCMUEncoder{}
}

// Encode plain audio buffer b into μ-law.
// Audio samples in b are expected in 16-bit little endian format, normalized
// to use the entire 16-bit range. Only the upper 13-bits of each sample are
// used for companding.
func (e *PCMUEncoder) Encode(b []byte) ([]byte, error) {
	buffer := make([]byte, len(b)>>1)
	for i := 0; i+1 < len(b); i += 2 {
		sample := binary.LittleEndian.Uint16(b[i:])
		buffer[i>>1] = pcmuEncoderTable[sample>>3]
	}
	return buffer, nil
}

func (e *PCMUEncoder) Close() error {
	return nil
}
