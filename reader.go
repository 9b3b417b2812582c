////////////////////////////////////////////////////////////////////////////////
//
// Copyright 2019 Lanikai Labs LLC. All rights reserved.
//
////////////////////////////////////////////////////////////////////////////////

// Package alohareader plays media files asynchronously. A Reader demuxes and
// decodes a file on background goroutines and pushes time-stamped samples to
// a client callback, paced by the wall clock or by a clock the client drives.
//
//	r := alohareader.New()
//	r.Open("clip.mp4", cb, nil)
//	// wait for StatusOpened
//	r.Start(0, 0, 1, nil)
//	// samples arrive through cb.OnSample until StatusEOF
//	r.Close()
package alohareader

import (
	"io"
	"sync"
	"time"

	"github.com/lanikai/alohareader/internal/syncreader"
)

// Player is the basic playback interface.
type Player interface {
	Open(path string, cb Callback, userData interface{}) error
	Close() error
	Start(start, duration time.Duration, rate float64, userData interface{}) error
	Stop() error

	OutputCount() int
	OutputProps(output int) (MediaType, error)
	SetOutputProps(output int, t MediaType) error
	OutputFormatCount(output int) (int, error)
	OutputFormat(output, index int) (MediaType, error)
}

// Advanced exposes clocking, compressed delivery, allocation and stream
// selection.
type Advanced interface {
	Clock() *ReferenceClock
	SetUserProvidedClock(enabled bool) error
	UserProvidedClock() bool
	DeliverTime(t time.Duration) error

	SetReceiveStreamSamples(stream int, compressed bool) error
	ReceiveStreamSamples(stream int) (bool, error)

	SetAllocateForStream(stream int, enabled bool) error
	AllocateForStream(stream int) (bool, error)
	SetAllocateForOutput(output int, enabled bool) error
	AllocateForOutput(output int) (bool, error)

	SetStreamsSelected(streams []int, selections []Selection) error
	StreamSelected(stream int) (Selection, error)

	OutputNumberForStream(stream int) (int, error)
	StreamNumberForOutput(output int) (int, error)

	SetOutputSetting(output int, name string, value interface{}) error
	OutputSetting(output int, name string) (interface{}, error)

	MaxStreamSampleSize(stream int) (int, error)
	MaxOutputSampleSize(output int) (int, error)
}

// HeaderInfo describes the open file.
type HeaderInfo interface {
	Duration() (time.Duration, error)
	StreamType(stream int) (MediaType, error)
}

var (
	_ Player     = (*Reader)(nil)
	_ Advanced   = (*Reader)(nil)
	_ HeaderInfo = (*Reader)(nil)
)

// Reader is an asynchronous media reader. Stream numbers start at 1, output
// numbers at 0; stream n feeds output n-1.
type Reader struct {
	// Serializes Open and Close.
	apiMu sync.Mutex

	mu   sync.Mutex
	cond *sync.Cond

	source   *syncreader.Reader
	alloc    *allocator
	clock    *clock
	refClock *ReferenceClock

	cb       Callback
	adv      AdvancedCallback
	userData interface{}

	// Closed when the delivery goroutine exits; nil without a session.
	done    chan struct{}
	running bool

	commands []command

	opened       bool
	started      bool
	everStarted  bool
	sampleReady  bool
	eos          bool
	closeEmitted bool

	// Set while the sample source seeks; fetching counts pullers inside it.
	seeking  bool
	fetching int

	streams  []*puller
	pullerWG sync.WaitGroup

	outputs   []*output
	selection []Selection

	// Applied when the next session opens.
	pending *Config
}

// New returns a reader without a session.
func New() *Reader {
	r := &Reader{
		source:   syncreader.New(),
		alloc:    &allocator{},
		clock:    newClock(),
		refClock: newReferenceClock(),
	}
	r.cond = sync.NewCond(&r.mu)
	return r
}

// Open starts a session on a file, see demux.Open for the accepted names. It
// returns once the request is queued; the outcome arrives as StatusOpened.
// If cb also implements AdvancedCallback, the advanced notifications are
// enabled.
func (r *Reader) Open(path string, cb Callback, userData interface{}) error {
	return r.begin(command{kind: cmdOpenFile, path: path}, cb, userData)
}

// OpenStream is like Open, reading a container of the given format from rs.
func (r *Reader) OpenStream(rs io.ReadSeeker, format string, cb Callback, userData interface{}) error {
	if rs == nil {
		return ErrInvalidArgument
	}
	return r.begin(command{kind: cmdOpenStream, stream: rs, format: format}, cb, userData)
}

func (r *Reader) begin(c command, cb Callback, userData interface{}) error {
	if cb == nil {
		return ErrInvalidArgument
	}

	r.apiMu.Lock()
	defer r.apiMu.Unlock()
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.done != nil {
		select {
		case <-r.done:
			// A failed open left its session behind.
			r.resetLocked()
		default:
			return ErrUnexpected
		}
	}

	r.cb = cb
	r.adv, _ = cb.(AdvancedCallback)
	r.userData = userData
	r.running = true
	r.done = make(chan struct{})
	r.commands = append(r.commands[:0], c)
	go r.run(r.done)
	return nil
}

// Close ends the session and waits for the delivery goroutine to finish.
// StatusClosed is delivered before Close returns. Close must not be called
// from a callback.
func (r *Reader) Close() error {
	r.apiMu.Lock()
	defer r.apiMu.Unlock()

	r.mu.Lock()
	done := r.done
	if done == nil {
		r.mu.Unlock()
		return ErrInvalidRequest
	}
	if err := r.enqueueLocked(command{kind: cmdClose}); err != nil {
		log.Debug("Closing a failed session")
	}
	r.mu.Unlock()

	<-done

	r.mu.Lock()
	emit := !r.closeEmitted
	cb, userData := r.cb, r.userData
	r.resetLocked()
	r.mu.Unlock()

	if emit {
		cb.OnStatus(StatusClosed, nil, userData)
	}
	return nil
}

func (r *Reader) resetLocked() {
	r.done = nil
	r.running = false
	r.commands = nil
	r.opened = false
	r.started = false
	r.everStarted = false
	r.sampleReady = false
	r.eos = false
	r.closeEmitted = false
	r.outputs = nil
	r.selection = nil
	r.streams = nil
	r.cb = nil
	r.adv = nil
	r.userData = nil
	r.clock.userTime = 0
	r.clock.pending = false
	r.alloc.reset(0, nil, nil)
}

// Start delivers samples from start on, for duration or to the end if
// duration is zero, at the given rate. userData replaces the one passed to
// Open for all later callbacks. Start also resumes a stopped session.
func (r *Reader) Start(start, duration time.Duration, rate float64, userData interface{}) error {
	if rate <= 0 || start < 0 || duration < 0 {
		return ErrInvalidArgument
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.done == nil {
		return ErrInvalidRequest
	}
	c := command{kind: cmdStart, start: start, duration: duration, rate: rate, userData: userData}
	if err := r.enqueueLocked(c); err != nil {
		return ErrInvalidRequest
	}
	return nil
}

// Stop pauses delivery. The outcome arrives as StatusStopped.
func (r *Reader) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.done == nil {
		return ErrUnexpected
	}
	if err := r.enqueueLocked(command{kind: cmdStop}); err != nil {
		return ErrUnexpected
	}
	return nil
}

// OutputCount returns the number of outputs of the open file.
func (r *Reader) OutputCount() int {
	return r.source.StreamCount()
}

func (r *Reader) OutputProps(output int) (MediaType, error) {
	return r.source.OutputProps(output)
}

func (r *Reader) SetOutputProps(output int, t MediaType) error {
	return r.source.SetOutputProps(output, t)
}

func (r *Reader) OutputFormatCount(output int) (int, error) {
	return r.source.OutputFormatCount(output)
}

func (r *Reader) OutputFormat(output, index int) (MediaType, error) {
	return r.source.OutputFormat(output, index)
}

func (r *Reader) OutputNumberForStream(stream int) (int, error) {
	if stream < 1 || stream > r.source.StreamCount() {
		return 0, ErrInvalidArgument
	}
	return stream - 1, nil
}

func (r *Reader) StreamNumberForOutput(output int) (int, error) {
	if output < 0 || output >= r.source.StreamCount() {
		return 0, ErrInvalidArgument
	}
	return output + 1, nil
}

func (r *Reader) Duration() (time.Duration, error) {
	return r.source.Duration()
}

func (r *Reader) StreamType(stream int) (MediaType, error) {
	return r.source.StreamType(stream)
}

// Clock returns the reader's reference clock.
func (r *Reader) Clock() *ReferenceClock {
	return r.refClock
}

// SetUserProvidedClock switches between wall clock pacing and pacing by
// DeliverTime. It may be called at any time once a presentation is open, and
// the choice is kept across Close.
func (r *Reader) SetUserProvidedClock(enabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.opened {
		return ErrInvalidRequest
	}
	if r.clock.user != enabled {
		log.Debug("User provided clock: %v", enabled)
	}
	r.clock.user = enabled
	r.cond.Broadcast()
	return nil
}

func (r *Reader) UserProvidedClock() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.clock.user
}

// DeliverTime lets the user clock advance to t. Samples due by t are
// delivered, followed by OnTime(t).
func (r *Reader) DeliverTime(t time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.clock.user {
		return ErrUnexpected
	}
	r.clock.deliver(t)
	r.cond.Broadcast()
	return nil
}

// SetReceiveStreamSamples chooses whether a stream is delivered compressed
// through OnStreamSample or decoded through OnSample.
func (r *Reader) SetReceiveStreamSamples(stream int, compressed bool) error {
	if err := r.source.SetReadStreamSamples(stream, compressed); err != nil {
		return err
	}
	r.alloc.setCompressed(stream, compressed)

	r.mu.Lock()
	defer r.mu.Unlock()
	if stream <= len(r.outputs) {
		r.outputs[stream-1].receiveStream = compressed
	}
	return nil
}

func (r *Reader) ReceiveStreamSamples(stream int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if stream < 1 || stream > len(r.outputs) {
		return false, ErrInvalidArgument
	}
	return r.outputs[stream-1].receiveStream, nil
}

// SetAllocateForStream makes compressed samples of a stream use buffers from
// the callback's AllocateForStream. It can't change once a buffer was
// allocated this session.
func (r *Reader) SetAllocateForStream(stream int, enabled bool) error {
	return r.alloc.setForStream(stream, enabled)
}

func (r *Reader) AllocateForStream(stream int) (bool, error) {
	return r.alloc.allocatesForStream(stream)
}

// SetAllocateForOutput is SetAllocateForStream for decoded samples.
func (r *Reader) SetAllocateForOutput(output int, enabled bool) error {
	return r.alloc.setForOutput(output, enabled)
}

func (r *Reader) AllocateForOutput(output int) (bool, error) {
	return r.alloc.allocatesForOutput(output)
}

// SetStreamsSelected changes the selection of several streams at once.
// Streams that were off when the session started stay silent until the
// next Start.
func (r *Reader) SetStreamsSelected(streams []int, selections []Selection) error {
	if err := r.source.SetStreamsSelected(streams, selections); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for i, n := range streams {
		if n <= len(r.selection) {
			r.selection[n-1] = selections[i]
		}
	}
	r.cond.Broadcast()
	return nil
}

func (r *Reader) StreamSelected(stream int) (Selection, error) {
	return r.source.StreamSelected(stream)
}

func (r *Reader) MaxStreamSampleSize(stream int) (int, error) {
	return r.source.MaxStreamSampleSize(stream)
}

func (r *Reader) MaxOutputSampleSize(output int) (int, error) {
	return r.source.MaxOutputSampleSize(output)
}
