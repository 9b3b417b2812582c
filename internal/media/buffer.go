package media

import "sync/atomic"

/*
A Buffer holds the payload of one sample. It has a fixed capacity and a
current length; SetLength never grows it past the capacity.

Buffers are shared between the reader and the client. Whoever hands a buffer
over keeps its own hold until it is done with it, and a consumer that wants to
keep the buffer after its callback returns must Hold() it and Release() it
later:

	func (c *client) OnSample(output int, pts, duration time.Duration, flags media.SampleFlags, buf media.Buffer, userData interface{}) {
		buf.Hold()
		c.queue <- buf // released by the consumer of c.queue
	}

Client allocators may return their own Buffer implementations; the reader
delivers them untouched.
*/
type Buffer interface {
	// Buffer returns the whole backing storage, Cap() bytes long.
	Buffer() []byte

	// Bytes returns the valid portion of the buffer, Len() bytes long.
	Bytes() []byte

	Len() int
	Cap() int

	// SetLength changes the valid length. It fails with ErrInvalidArgument if
	// n is negative or exceeds the capacity.
	SetLength(n int) error

	// Hold increments the hold count.
	Hold()

	// Release decrements the hold count, freeing the buffer at zero.
	Release()
}

// SharedBuffer is the default Buffer implementation.
type SharedBuffer struct {
	data   []byte
	length int

	count   int32
	release func()
}

// Number of SharedBuffers created and not yet fully released. Diagnostic only.
var outstanding int64

// NewBuffer allocates an empty buffer with the given capacity.
func NewBuffer(capacity int) *SharedBuffer {
	return NewSharedBuffer(make([]byte, capacity)[:0], nil)
}

// NewSharedBuffer wraps data. The capacity is cap(data) and the length is
// len(data). release, if not nil, runs when the last hold is released.
func NewSharedBuffer(data []byte, release func()) *SharedBuffer {
	atomic.AddInt64(&outstanding, 1)
	return &SharedBuffer{data[:cap(data)], len(data), 1, release}
}

// OutstandingBuffers returns the number of SharedBuffers that are still held.
func OutstandingBuffers() int64 {
	return atomic.LoadInt64(&outstanding)
}

func (buf *SharedBuffer) Buffer() []byte {
	return buf.data
}

func (buf *SharedBuffer) Bytes() []byte {
	return buf.data[:buf.length]
}

func (buf *SharedBuffer) Len() int {
	return buf.length
}

func (buf *SharedBuffer) Cap() int {
	return len(buf.data)
}

func (buf *SharedBuffer) SetLength(n int) error {
	if n < 0 || n > len(buf.data) {
		return ErrInvalidArgument
	}
	buf.length = n
	return nil
}

// Increments the hold count.
func (buf *SharedBuffer) Hold() {
	atomic.AddInt32(&buf.count, 1)
}

// Decrements the hold count. When the hold count reaches zero, the underlying
// byte buffer will be released.
func (buf *SharedBuffer) Release() {
	if buf == nil {
		return
	}
	newCount := atomic.AddInt32(&buf.count, -1)
	if newCount == 0 {
		atomic.AddInt64(&outstanding, -1)
		if buf.release != nil {
			buf.release()
		}
	}
}

// CopyInto writes src into dst, setting dst's length. It fails with
// ErrInvalidArgument if src does not fit.
func CopyInto(dst Buffer, src []byte) error {
	if len(src) > dst.Cap() {
		return ErrInvalidArgument
	}
	n := copy(dst.Buffer(), src)
	return dst.SetLength(n)
}
