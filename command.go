package alohareader

import (
	"io"
	"time"
)

type commandKind int

const (
	cmdOpenFile commandKind = iota
	cmdOpenStream
	cmdStart
	cmdStop
	cmdClose
)

func (k commandKind) String() string {
	switch k {
	case cmdOpenFile:
		return "open-file"
	case cmdOpenStream:
		return "open-stream"
	case cmdStart:
		return "start"
	case cmdStop:
		return "stop"
	case cmdClose:
		return "close"
	default:
		return "invalid"
	}
}

// command is a request executed in order by the delivery goroutine.
type command struct {
	kind commandKind

	// cmdOpenFile
	path string

	// cmdOpenStream
	stream io.ReadSeeker
	format string

	// cmdStart
	start    time.Duration
	duration time.Duration
	rate     float64
	userData interface{}
}

// enqueueLocked appends c to the command queue and wakes the delivery
// goroutine. It fails once the delivery goroutine is gone. Called with r.mu
// held.
func (r *Reader) enqueueLocked(c command) error {
	if !r.running {
		return errQueueClosed
	}
	r.commands = append(r.commands, c)
	r.cond.Broadcast()
	return nil
}

// popLocked removes the oldest queued command.
func (r *Reader) popLocked() (command, bool) {
	if len(r.commands) == 0 {
		return command{}, false
	}
	c := r.commands[0]
	r.commands[0] = command{}
	r.commands = r.commands[1:]
	return c, true
}
