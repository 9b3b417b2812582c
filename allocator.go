package alohareader

import (
	"sync"
	"time"

	"github.com/lanikai/alohareader/internal/media"
)

// allocator hands out sample buffers to the sample source, delegating to the
// client for streams and outputs where it was asked to. It has its own lock
// since the sample source calls it while a puller is fetching.
type allocator struct {
	mu sync.Mutex

	adv      AdvancedCallback
	userData interface{}

	// Streams the client receives compressed. The others are passthrough
	// streams when the sample source reads them compressed anyway, and their
	// buffers come from the output allocator.
	compressed []bool

	forStream  []bool
	forOutput  []bool
	streamUsed []bool
	outputUsed []bool
}

// reset prepares the allocator for a session with n streams. All flags and
// usage marks are cleared.
func (a *allocator) reset(n int, adv AdvancedCallback, userData interface{}) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.adv = adv
	a.userData = userData
	a.compressed = make([]bool, n)
	a.forStream = make([]bool, n)
	a.forOutput = make([]bool, n)
	a.streamUsed = make([]bool, n)
	a.outputUsed = make([]bool, n)
}

func (a *allocator) setUserData(userData interface{}) {
	a.mu.Lock()
	a.userData = userData
	a.mu.Unlock()
}

// set changes one flag. Once the client allocated a buffer for an index, its
// flag is frozen until the next reset.
func (a *allocator) set(flags, used []bool, index int, enabled bool) error {
	if index < 0 || index >= len(flags) {
		return ErrInvalidArgument
	}
	if used[index] {
		return ErrInvalidRequest
	}
	flags[index] = enabled
	return nil
}

func (a *allocator) setCompressed(stream int, compressed bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if stream >= 1 && stream <= len(a.compressed) {
		a.compressed[stream-1] = compressed
	}
}

func (a *allocator) get(flags []bool, index int) (bool, error) {
	if index < 0 || index >= len(flags) {
		return false, ErrInvalidArgument
	}
	return flags[index], nil
}

func (a *allocator) setForStream(stream int, enabled bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.set(a.forStream, a.streamUsed, stream-1, enabled)
}

func (a *allocator) setForOutput(output int, enabled bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.set(a.forOutput, a.outputUsed, output, enabled)
}

func (a *allocator) allocatesForStream(stream int) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.get(a.forStream, stream-1)
}

func (a *allocator) allocatesForOutput(output int) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.get(a.forOutput, output)
}

func (a *allocator) AllocateForStreamEx(stream, size int, flags media.SampleFlags, pts, duration time.Duration) (media.Buffer, error) {
	a.mu.Lock()
	i := stream - 1
	if i < 0 || i >= len(a.forStream) {
		a.mu.Unlock()
		return nil, ErrInvalidArgument
	}
	if !a.compressed[i] {
		a.mu.Unlock()
		return a.AllocateForOutputEx(i, size, flags, pts, duration)
	}
	if !a.forStream[i] || a.adv == nil {
		a.mu.Unlock()
		return media.NewBuffer(size), nil
	}
	adv, userData := a.adv, a.userData
	a.mu.Unlock()

	buf, err := adv.AllocateForStream(stream, size, userData)
	if err != nil {
		return nil, err
	}
	if buf == nil {
		return nil, ErrOutOfMemory
	}

	a.mu.Lock()
	if i < len(a.streamUsed) {
		a.streamUsed[i] = true
	}
	a.mu.Unlock()
	return buf, nil
}

func (a *allocator) AllocateForOutputEx(output, size int, flags media.SampleFlags, pts, duration time.Duration) (media.Buffer, error) {
	a.mu.Lock()
	if output < 0 || output >= len(a.forOutput) {
		a.mu.Unlock()
		return nil, ErrInvalidArgument
	}
	if !a.forOutput[output] || a.adv == nil {
		a.mu.Unlock()
		return media.NewBuffer(size), nil
	}
	adv, userData := a.adv, a.userData
	a.mu.Unlock()

	buf, err := adv.AllocateForOutput(output, size, userData)
	if err != nil {
		return nil, err
	}
	if buf == nil {
		return nil, ErrOutOfMemory
	}

	a.mu.Lock()
	if output < len(a.outputUsed) {
		a.outputUsed[output] = true
	}
	a.mu.Unlock()
	return buf, nil
}
