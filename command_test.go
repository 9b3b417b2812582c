package alohareader

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandQueue(t *testing.T) {
	r := New()
	r.mu.Lock()
	defer r.mu.Unlock()

	assert.Equal(t, errQueueClosed, r.enqueueLocked(command{kind: cmdStart}))

	r.running = true
	require.NoError(t, r.enqueueLocked(command{kind: cmdStart, rate: 1}))
	require.NoError(t, r.enqueueLocked(command{kind: cmdStop}))
	require.NoError(t, r.enqueueLocked(command{kind: cmdStart, rate: 2}))

	var kinds []commandKind
	for {
		c, ok := r.popLocked()
		if !ok {
			break
		}
		kinds = append(kinds, c.kind)
		if c.kind == cmdStart {
			assert.True(t, c.rate > 0)
		}
	}
	assert.Equal(t, []commandKind{cmdStart, cmdStop, cmdStart}, kinds)
}

func TestCommandKindString(t *testing.T) {
	assert.Equal(t, "open-file", cmdOpenFile.String())
	assert.Equal(t, "close", cmdClose.String())
	assert.Equal(t, "invalid", commandKind(42).String())
}

func TestQueuedCommandsRunInOrder(t *testing.T) {
	rec := newRecorder()
	r := New()

	// Everything may be queued before the file is even open. Nothing is due
	// for an hour.
	require.NoError(t, r.Open("synth:audio,start=1h,count=3", rec, nil))
	require.NoError(t, r.Stop())
	require.NoError(t, r.Start(0, 0, 1, nil))
	require.NoError(t, r.Stop())
	closeReader(t, r, rec)

	var statuses []Status
	for _, e := range rec.filter("status") {
		statuses = append(statuses, e.status)
	}
	assert.Equal(t, []Status{StatusOpened, StatusStopped, StatusStarted, StatusStopped, StatusClosed}, statuses)
	assert.Empty(t, rec.filter("sample"))
}
