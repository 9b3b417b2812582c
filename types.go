package alohareader

import (
	"time"

	"github.com/lanikai/alohareader/internal/logging"
	"github.com/lanikai/alohareader/internal/media"
	"github.com/lanikai/alohareader/internal/syncreader"
)

var log = logging.DefaultLogger.WithTag("reader")

type (
	Buffer      = media.Buffer
	MediaType   = media.Type
	MajorType   = media.MajorType
	SampleFlags = media.SampleFlags
	Selection   = syncreader.Selection
)

const (
	FlagCleanPoint    = media.FlagCleanPoint
	FlagDiscontinuity = media.FlagDiscontinuity
	FlagDataLoss      = media.FlagDataLoss

	MajorUnknown = media.Unknown
	MajorAudio   = media.Audio
	MajorVideo   = media.Video

	SelectionOff            = syncreader.SelectionOff
	SelectionCleanPointOnly = syncreader.SelectionCleanPointOnly
	SelectionOn             = syncreader.SelectionOn
)

// NewBuffer allocates a default sample buffer, for use by client allocators.
func NewBuffer(capacity int) Buffer {
	return media.NewBuffer(capacity)
}

// Status identifies a status notification.
type Status int

const (
	StatusOpened Status = iota
	StatusStarted
	StatusStopped
	StatusClosed
	StatusEndOfStreaming
	StatusEOF
)

func (s Status) String() string {
	switch s {
	case StatusOpened:
		return "opened"
	case StatusStarted:
		return "started"
	case StatusStopped:
		return "stopped"
	case StatusClosed:
		return "closed"
	case StatusEndOfStreaming:
		return "end-of-streaming"
	case StatusEOF:
		return "eof"
	default:
		return "unknown"
	}
}

// Callback receives status changes and decoded samples. Callbacks run on the
// reader's delivery goroutine, or on an output's dedicated goroutine, never
// concurrently for the same output. They may call back into the reader,
// except for Close.
//
// The reader releases buf when OnSample returns. Hold it to keep it longer.
type Callback interface {
	OnStatus(status Status, err error, userData interface{})
	OnSample(output int, pts, duration time.Duration, flags SampleFlags, buf Buffer, userData interface{})
}

// AdvancedCallback is implemented by callbacks that also want compressed
// samples, user clock notifications or to allocate sample buffers.
type AdvancedCallback interface {
	Callback

	OnStreamSample(stream int, pts, duration time.Duration, flags SampleFlags, buf Buffer, userData interface{})

	// OnTime reports that every sample up to t, as passed to DeliverTime,
	// has been delivered.
	OnTime(t time.Duration, userData interface{})

	// The allocators run on a stream's fetch goroutine, possibly
	// concurrently for different streams. Like the other callbacks they may
	// call back into the reader, except for Close.
	AllocateForStream(stream, size int, userData interface{}) (Buffer, error)
	AllocateForOutput(output, size int, userData interface{}) (Buffer, error)
}
