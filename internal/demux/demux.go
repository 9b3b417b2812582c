// Package demux splits container files into elementary stream packets.
package demux

import (
	"time"

	"github.com/lanikai/alohareader/internal/logging"
	"github.com/lanikai/alohareader/internal/media"
)

var log = logging.DefaultLogger.WithTag("demux")

// StreamInfo describes one elementary stream of a container.
type StreamInfo struct {
	Type media.Type
}

// Packet is one compressed unit of an elementary stream.
type Packet struct {
	// Index into Streams().
	Stream int

	Time     time.Duration
	Duration time.Duration // zero if unknown
	KeyFrame bool
	Data     []byte
}

// Demuxer reads interleaved packets from a container.
type Demuxer interface {
	// Streams lists the elementary streams in container order.
	Streams() []StreamInfo

	// ReadPacket returns the next packet in container order, or io.EOF.
	ReadPacket() (Packet, error)

	// Seek repositions so that the next packet of every stream is the first
	// one at or after t (or the preceding key frame, where the format only
	// supports key frame seeking).
	Seek(t time.Duration) error

	// Duration of the presentation, zero if unknown.
	Duration() time.Duration

	Close() error
}
