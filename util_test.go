package alohareader

import (
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const testTimeout = 10 * time.Second

type event struct {
	kind     string // status, sample, stream or time
	status   Status
	err      error
	index    int // output for samples, stream for stream samples
	pts      time.Duration
	duration time.Duration
	flags    SampleFlags
	size     int
	buf      Buffer
	userData interface{}
}

// recorder is an AdvancedCallback that logs every call.
type recorder struct {
	mu     sync.Mutex
	events []event

	statuses chan event

	// Optional hooks, run inside the callbacks.
	onSample          func(e event)
	allocateForStream func(stream, size int) (Buffer, error)
	allocateForOutput func(output, size int) (Buffer, error)
}

func newRecorder() *recorder {
	return &recorder{statuses: make(chan event, 256)}
}

func (rec *recorder) add(e event) {
	rec.mu.Lock()
	rec.events = append(rec.events, e)
	hook := rec.onSample
	rec.mu.Unlock()
	if hook != nil && (e.kind == "sample" || e.kind == "stream") {
		hook(e)
	}
}

func (rec *recorder) OnStatus(status Status, err error, userData interface{}) {
	e := event{kind: "status", status: status, err: err, userData: userData}
	rec.add(e)
	rec.statuses <- e
}

func (rec *recorder) OnSample(output int, pts, duration time.Duration, flags SampleFlags, buf Buffer, userData interface{}) {
	rec.add(event{kind: "sample", index: output, pts: pts, duration: duration, flags: flags, size: buf.Len(), buf: buf, userData: userData})
}

func (rec *recorder) OnStreamSample(stream int, pts, duration time.Duration, flags SampleFlags, buf Buffer, userData interface{}) {
	rec.add(event{kind: "stream", index: stream, pts: pts, duration: duration, flags: flags, size: buf.Len(), buf: buf, userData: userData})
}

func (rec *recorder) OnTime(t time.Duration, userData interface{}) {
	rec.add(event{kind: "time", pts: t, userData: userData})
}

func (rec *recorder) AllocateForStream(stream, size int, userData interface{}) (Buffer, error) {
	rec.add(event{kind: "alloc-stream", index: stream, size: size})
	if rec.allocateForStream != nil {
		return rec.allocateForStream(stream, size)
	}
	return NewBuffer(size), nil
}

func (rec *recorder) AllocateForOutput(output, size int, userData interface{}) (Buffer, error) {
	rec.add(event{kind: "alloc-output", index: output, size: size})
	if rec.allocateForOutput != nil {
		return rec.allocateForOutput(output, size)
	}
	return NewBuffer(size), nil
}

// wait blocks until the given status arrives and returns its error. Other
// statuses received on the way are skipped.
func (rec *recorder) wait(t *testing.T, status Status) error {
	t.Helper()
	timeout := time.After(testTimeout)
	for {
		select {
		case e := <-rec.statuses:
			if e.status == status {
				return e.err
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %v", status)
		}
	}
}

// snapshot returns the events recorded so far.
func (rec *recorder) snapshot() []event {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return append([]event(nil), rec.events...)
}

// filter returns the recorded events of the given kinds.
func (rec *recorder) filter(kinds ...string) []event {
	var out []event
	for _, e := range rec.snapshot() {
		for _, k := range kinds {
			if e.kind == k {
				out = append(out, e)
			}
		}
	}
	return out
}

func (rec *recorder) count(status Status) int {
	n := 0
	for _, e := range rec.filter("status") {
		if e.status == status {
			n++
		}
	}
	return n
}

// basic hides the advanced callbacks of a recorder.
type basic struct {
	rec *recorder
}

func (b basic) OnStatus(status Status, err error, userData interface{}) {
	b.rec.OnStatus(status, err, userData)
}

func (b basic) OnSample(output int, pts, duration time.Duration, flags SampleFlags, buf Buffer, userData interface{}) {
	b.rec.OnSample(output, pts, duration, flags, buf, userData)
}

// openSynth opens a synthetic presentation and waits until it is open.
func openSynth(t *testing.T, desc string, cb Callback, rec *recorder) *Reader {
	t.Helper()
	r := New()
	require.NoError(t, r.Open("synth:"+desc, cb, nil))
	require.NoError(t, rec.wait(t, StatusOpened))
	return r
}

// playUserClock starts r under a user clock, lets the clock run past the
// end and waits for StatusEOF.
func playUserClock(t *testing.T, r *Reader, rec *recorder) {
	t.Helper()
	require.NoError(t, r.SetUserProvidedClock(true))
	require.NoError(t, r.Start(0, 0, 1, nil))
	require.NoError(t, rec.wait(t, StatusStarted))
	d, err := r.Duration()
	require.NoError(t, err)
	require.NoError(t, r.DeliverTime(2*d))
	require.NoError(t, rec.wait(t, StatusEOF))
}

func closeReader(t *testing.T, r *Reader, rec *recorder) {
	t.Helper()
	require.NoError(t, r.Close())
	require.Equal(t, 1, rec.count(StatusClosed))
}

func stringReadSeeker(s string) io.ReadSeeker {
	return strings.NewReader(s)
}

// eventually waits until cond holds.
func eventually(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(testTimeout)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out: %s", msg)
		}
		time.Sleep(time.Millisecond)
	}
}
