package syncreader

import (
	"github.com/lanikai/alohareader/internal/media"
)

// SetStreamsSelected changes the selection of several streams at once. No
// stream changes unless every number is valid.
func (r *Reader) SetStreamsSelected(numbers []int, selections []Selection) error {
	if len(numbers) == 0 || len(numbers) != len(selections) {
		return media.ErrInvalidArgument
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for i, n := range numbers {
		if _, err := r.stream(n); err != nil {
			log.Warn("Invalid stream number %d", n)
			return media.ErrInvalidRequest
		}
		if selections[i] < SelectionOff || selections[i] > SelectionOn {
			return media.ErrInvalidArgument
		}
	}
	for i, n := range numbers {
		r.streams[n-1].selection = selections[i]
	}
	return nil
}

func (r *Reader) StreamSelected(number int) (Selection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, err := r.stream(number)
	if err != nil {
		return SelectionOff, err
	}
	return s.selection, nil
}

// SetReadStreamSamples switches a stream between compressed and decoded
// delivery. Streams without a decoder stay compressed.
func (r *Reader) SetReadStreamSamples(number int, compressed bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, err := r.stream(number)
	if err != nil {
		return err
	}
	if compressed || s.decoder != nil {
		s.compressed = compressed
	}
	return nil
}

func (r *Reader) ReadStreamSamples(number int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, err := r.stream(number)
	if err != nil {
		return false, err
	}
	return s.compressed, nil
}

// SetAllocateForStream sets the allocator for compressed samples of a stream.
// A nil allocator restores default buffers.
func (r *Reader) SetAllocateForStream(number int, a Allocator) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, err := r.stream(number)
	if err != nil {
		return err
	}
	s.streamAllocator = a
	return nil
}

// SetAllocateForOutput sets the allocator for decoded samples of an output.
func (r *Reader) SetAllocateForOutput(output int, a Allocator) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, err := r.stream(output + 1)
	if err != nil {
		return err
	}
	s.outputAllocator = a
	return nil
}

// OutputFormatCount returns how many formats an output can produce.
func (r *Reader) OutputFormatCount(output int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, err := r.stream(output + 1)
	if err != nil {
		return 0, err
	}
	if s.decoder != nil && !s.compressed {
		return len(s.decoder.OutputTypes()), nil
	}
	return 1, nil
}

// OutputFormat returns one of the formats an output can produce.
func (r *Reader) OutputFormat(output, index int) (media.Type, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, err := r.stream(output + 1)
	if err != nil {
		return media.Type{}, err
	}
	if s.decoder != nil && !s.compressed {
		types := s.decoder.OutputTypes()
		if index < 0 || index >= len(types) {
			return media.Type{}, media.ErrInvalidOutputFormat
		}
		return types[index], nil
	}
	if index != 0 {
		return media.Type{}, media.ErrInvalidOutputFormat
	}
	return s.info.Type, nil
}

// OutputProps returns the current format of an output.
func (r *Reader) OutputProps(output int) (media.Type, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, err := r.stream(output + 1)
	if err != nil {
		return media.Type{}, err
	}
	if s.decoder == nil {
		return s.info.Type, nil
	}
	return s.output, nil
}

// SetOutputProps selects the decoded format of an output. The format must
// keep the stream's picture size or channel count and be one the decoder
// produces.
func (r *Reader) SetOutputProps(output int, t media.Type) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, err := r.stream(output + 1)
	if err != nil {
		return err
	}
	if s.decoder == nil {
		return media.ErrInvalidArgument
	}

	in := s.info.Type
	switch {
	case in.Major == media.Video && t.Major == media.Video:
		if in.Width != t.Width || in.Height != t.Height {
			return media.ErrInvalidOutputFormat
		}
	case in.Major == media.Audio && t.Major == media.Audio:
		if in.Channels != t.Channels {
			return media.ErrAudioCodecNotInstalled
		}
	default:
		log.Warn("Unsupported format change %v -> %v", in, t)
		return media.ErrIncompatibleFormat
	}

	for _, candidate := range s.decoder.OutputTypes() {
		if candidate == t {
			s.output = t
			return nil
		}
	}
	return media.ErrInvalidOutputFormat
}

// MaxStreamSampleSize returns the largest sample a stream can produce.
func (r *Reader) MaxStreamSampleSize(number int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, err := r.stream(number)
	if err != nil {
		return 0, err
	}
	if s.decoder == nil || s.compressed {
		return maxCompressedSampleSize, nil
	}
	return s.decoder.OutputSize(maxCompressedSampleSize), nil
}

// MaxOutputSampleSize returns the largest decoded sample of an output.
func (r *Reader) MaxOutputSampleSize(output int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, err := r.stream(output + 1)
	if err != nil {
		return 0, err
	}
	if s.decoder == nil {
		return maxCompressedSampleSize, nil
	}
	return s.decoder.OutputSize(maxCompressedSampleSize), nil
}
