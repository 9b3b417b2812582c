// Package syncreader pulls samples from a demuxer one stream at a time,
// decoding them on the way unless the stream reads compressed samples.
package syncreader

import (
	"io"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/lanikai/alohareader/internal/demux"
	"github.com/lanikai/alohareader/internal/logging"
	"github.com/lanikai/alohareader/internal/media"
)

var log = logging.DefaultLogger.WithTag("syncreader")

const (
	// Reported for samples without a duration.
	defaultDuration = time.Millisecond

	maxCompressedSampleSize = 0x10000
)

type streamState int

const (
	stateStarting streamState = iota
	stateRunning
	stateEnded
)

type stream struct {
	index int
	info  demux.StreamInfo

	selection  Selection
	compressed bool
	decoder    media.Decoder
	output     media.Type

	queue   []demux.Packet
	state   streamState
	pastEnd bool

	streamAllocator Allocator
	outputAllocator Allocator
}

// Reader is a synchronous sample source. It is safe for concurrent use; calls
// are serialized and NextSample may block on the demuxer.
type Reader struct {
	mu sync.Mutex

	demuxer demux.Demuxer
	streams []*stream

	// End of the current range, zero if unbounded.
	end time.Duration
	eof bool
}

// New returns a closed reader.
func New() *Reader {
	return &Reader{}
}

// Open a demuxer by spec, see demux.Open.
func (r *Reader) Open(spec string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.demuxer != nil {
		return media.ErrUnexpected
	}
	d, err := demux.Open(spec)
	if err != nil {
		return errors.Wrapf(err, "open %s", spec)
	}
	r.attach(d)
	return nil
}

// OpenStream demuxes rs with the named container format.
func (r *Reader) OpenStream(rs io.ReadSeeker, format string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.demuxer != nil {
		return media.ErrUnexpected
	}
	d, err := demux.OpenReader(rs, format)
	if err != nil {
		return errors.Wrapf(err, "open %s stream", format)
	}
	r.attach(d)
	return nil
}

// OpenDemuxer takes ownership of an already open demuxer.
func (r *Reader) OpenDemuxer(d demux.Demuxer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.demuxer != nil {
		return media.ErrUnexpected
	}
	r.attach(d)
	return nil
}

func (r *Reader) attach(d demux.Demuxer) {
	r.demuxer = d
	r.end = 0
	r.eof = false
	r.streams = nil
	for i, info := range d.Streams() {
		s := &stream{
			index:     i,
			info:      info,
			selection: SelectionOn,
			output:    info.Type,
		}
		if dec, err := media.NewDecoder(info.Type); err == nil {
			s.decoder = dec
			s.output = dec.OutputTypes()[0]
		} else {
			s.compressed = true
		}
		log.Debug("Stream %d: %v, decoder %v", i+1, info.Type, s.decoder != nil)
		r.streams = append(r.streams, s)
	}
}

// Close releases the demuxer, decoders and queued packets.
func (r *Reader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.demuxer == nil {
		return media.ErrInvalidRequest
	}
	for _, s := range r.streams {
		if s.decoder != nil {
			s.decoder.Close()
		}
		s.queue = nil
	}
	err := r.demuxer.Close()
	r.demuxer = nil
	r.streams = nil
	return err
}

func (r *Reader) stream(number int) (*stream, error) {
	if number < 1 || number > len(r.streams) {
		return nil, media.ErrInvalidArgument
	}
	return r.streams[number-1], nil
}

// StreamCount returns the number of streams, which is also the number of
// outputs.
func (r *Reader) StreamCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.streams)
}

// StreamType returns the container type of a stream.
func (r *Reader) StreamType(number int) (media.Type, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, err := r.stream(number)
	if err != nil {
		return media.Type{}, err
	}
	return s.info.Type, nil
}

// Duration of the open presentation.
func (r *Reader) Duration() (time.Duration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.demuxer == nil {
		return 0, media.ErrInvalidRequest
	}
	return r.demuxer.Duration(), nil
}

// SetRange seeks to start and discards queued packets. Streams end at
// start+duration if duration is positive. The first sample of every stream
// afterwards carries FlagDiscontinuity.
func (r *Reader) SetRange(start, duration time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.demuxer == nil {
		return media.ErrInvalidRequest
	}
	if err := r.demuxer.Seek(start); err != nil {
		return errors.Wrapf(err, "seek to %v", start)
	}
	r.end = 0
	if duration > 0 {
		r.end = start + duration
	}
	r.eof = false
	for _, s := range r.streams {
		s.queue = nil
		s.state = stateStarting
		s.pastEnd = false
	}
	return nil
}

// NextSample returns the next sample of the given stream, or of whichever
// stream has one first if number is 0. It returns ErrNoMoreSamples at the end
// of the stream, and for streams that are not selected.
func (r *Reader) NextSample(number int) (*Sample, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.demuxer == nil {
		return nil, media.ErrInvalidRequest
	}

	var target *stream
	if number != 0 {
		s, err := r.stream(number)
		if err != nil {
			return nil, err
		}
		if s.selection == SelectionOff || s.state == stateEnded {
			return nil, media.ErrNoMoreSamples
		}
		target = s
	}

	for {
		if sample, err := r.popQueued(target); sample != nil || err != nil {
			return sample, err
		}

		if r.eof {
			if target != nil {
				target.state = stateEnded
			}
			return nil, media.ErrNoMoreSamples
		}

		pkt, err := r.demuxer.ReadPacket()
		if err == io.EOF {
			r.eof = true
			continue
		} else if err != nil {
			return nil, errors.Wrapf(err, "stream %d", number)
		}
		r.route(pkt)
	}
}

// route queues a demuxed packet on its stream, or drops it.
func (r *Reader) route(pkt demux.Packet) {
	if pkt.Stream < 0 || pkt.Stream >= len(r.streams) {
		log.Warn("Dropping packet for unknown stream %d", pkt.Stream+1)
		return
	}
	s := r.streams[pkt.Stream]
	switch {
	case s.selection == SelectionOff:
		return
	case s.selection == SelectionCleanPointOnly && !pkt.KeyFrame:
		return
	case r.end > 0 && pkt.Time >= r.end:
		s.pastEnd = true
		r.checkRangeEnd()
		return
	}
	s.queue = append(s.queue, pkt)
}

// Once every selected stream has passed the end of the range, nothing more
// can be queued.
func (r *Reader) checkRangeEnd() {
	for _, s := range r.streams {
		if s.selection != SelectionOff && !s.pastEnd {
			return
		}
	}
	r.eof = true
}

func (r *Reader) popQueued(target *stream) (*Sample, error) {
	if target != nil {
		if len(target.queue) == 0 {
			return nil, nil
		}
		return r.read(target)
	}
	for _, s := range r.streams {
		if len(s.queue) > 0 && s.selection != SelectionOff {
			return r.read(s)
		}
	}
	return nil, nil
}

// read converts the head of the stream's queue into a sample. r.mu is held
// on entry and exit but released while the buffer is allocated.
func (r *Reader) read(s *stream) (*Sample, error) {
	pkt := s.queue[0]
	s.queue = s.queue[1:]

	sample := &Sample{
		Stream:     s.index + 1,
		PTS:        pkt.Time,
		Duration:   pkt.Duration,
		Compressed: s.compressed,
	}
	if sample.Duration == 0 {
		sample.Duration = defaultDuration
	}
	if pkt.KeyFrame {
		sample.Flags |= media.FlagCleanPoint
	}
	if s.state == stateStarting {
		sample.Flags |= media.FlagDiscontinuity
	}
	s.state = stateRunning

	data := pkt.Data
	if !s.compressed {
		var err error
		if data, err = s.decoder.Decode(pkt.Data); err != nil {
			return nil, errors.Wrapf(err, "decode stream %d", sample.Stream)
		}
	}

	// Allocators may call back into the reader, so they run unlocked. The
	// packet is already off the queue.
	allocate := s.allocator()
	r.mu.Unlock()
	buf, err := allocate(len(data), sample)
	if err == nil {
		if err = media.CopyInto(buf, data); err != nil {
			buf.Release()
			err = errors.Wrapf(err, "copy %d bytes into stream %d buffer", len(data), sample.Stream)
		}
	} else {
		err = errors.Wrapf(err, "allocate %d bytes for stream %d", len(data), sample.Stream)
	}
	r.mu.Lock()
	if err != nil {
		return nil, err
	}
	sample.Buffer = buf
	return sample, nil
}

func (s *stream) allocator() func(int, *Sample) (media.Buffer, error) {
	index, compressed := s.index, s.compressed
	if compressed && s.streamAllocator != nil {
		a := s.streamAllocator
		return func(size int, sample *Sample) (media.Buffer, error) {
			return a.AllocateForStreamEx(index+1, size, sample.Flags, sample.PTS, sample.Duration)
		}
	}
	if !compressed && s.outputAllocator != nil {
		a := s.outputAllocator
		return func(size int, sample *Sample) (media.Buffer, error) {
			return a.AllocateForOutputEx(index, size, sample.Flags, sample.PTS, sample.Duration)
		}
	}
	return func(size int, _ *Sample) (media.Buffer, error) {
		return media.NewBuffer(size), nil
	}
}
