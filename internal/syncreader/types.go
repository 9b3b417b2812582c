package syncreader

import (
	"time"

	"github.com/lanikai/alohareader/internal/media"
)

// Selection controls whether samples of a stream are delivered.
type Selection int

const (
	SelectionOff Selection = iota
	SelectionCleanPointOnly
	SelectionOn
)

func (s Selection) String() string {
	switch s {
	case SelectionOff:
		return "off"
	case SelectionCleanPointOnly:
		return "cleanpoint"
	case SelectionOn:
		return "on"
	default:
		return "invalid"
	}
}

// Allocator provides sample buffers. Stream numbers are 1-based, output
// numbers 0-based.
type Allocator interface {
	AllocateForStreamEx(stream, size int, flags media.SampleFlags, pts, duration time.Duration) (media.Buffer, error)
	AllocateForOutputEx(output, size int, flags media.SampleFlags, pts, duration time.Duration) (media.Buffer, error)
}

// Sample is one unit read from a stream. The caller owns Buffer and must
// release it.
type Sample struct {
	Stream   int // 1-based
	Buffer   media.Buffer
	PTS      time.Duration
	Duration time.Duration
	Flags    media.SampleFlags

	// The stream was in compressed mode when the sample was read.
	Compressed bool
}

// Output number corresponding to the sample's stream.
func (s *Sample) Output() int {
	return s.Stream - 1
}
