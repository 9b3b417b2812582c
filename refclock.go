package alohareader

import (
	"sync"
	"time"
)

// ReferenceClock is the reader's time source. It runs on system time and is
// usable whether or not a presentation is open.
type ReferenceClock struct {
	mu     sync.Mutex
	now    func() time.Time
	last   uint64
	timers map[uint64]*time.Timer
}

func newReferenceClock() *ReferenceClock {
	return &ReferenceClock{
		now:    time.Now,
		timers: make(map[uint64]*time.Timer),
	}
}

// Now returns the time elapsed since the Unix epoch.
func (c *ReferenceClock) Now() time.Duration {
	return time.Duration(c.now().UnixNano())
}

// AdviseTime sends the clock's time on ch once it reaches base+offset. The
// send never blocks, so ch should have room for it. The returned cookie is
// never zero.
func (c *ReferenceClock) AdviseTime(base, offset time.Duration, ch chan<- time.Duration) (uint64, error) {
	if ch == nil || base < 0 || offset < 0 {
		return 0, ErrInvalidArgument
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.last++
	cookie := c.last
	c.timers[cookie] = time.AfterFunc(base+offset-c.Now(), func() {
		c.mu.Lock()
		_, ok := c.timers[cookie]
		delete(c.timers, cookie)
		c.mu.Unlock()
		if !ok {
			return
		}
		select {
		case ch <- c.Now():
		default:
			log.Debug("Advise %d dropped, channel full", cookie)
		}
	})
	return cookie, nil
}

// Unadvise cancels an advise. Cancelling one that already fired is not an
// error.
func (c *ReferenceClock) Unadvise(cookie uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cookie == 0 || cookie > c.last {
		return ErrInvalidArgument
	}
	if t, ok := c.timers[cookie]; ok {
		t.Stop()
		delete(c.timers, cookie)
	}
	return nil
}
