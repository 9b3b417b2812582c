package alohareader

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lanikai/alohareader/internal/media"
)

func TestAllocatorDefaults(t *testing.T) {
	a := &allocator{}
	a.reset(2, nil, nil)

	buf, err := a.AllocateForOutputEx(1, 32, 0, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 32, buf.Cap())
	assert.Equal(t, 0, buf.Len())
	buf.Release()

	// No client allocator: enabling has no effect on the buffers.
	require.NoError(t, a.setForOutput(1, true))
	buf, err = a.AllocateForOutputEx(1, 8, 0, 0, 0)
	require.NoError(t, err)
	assert.IsType(t, &media.SharedBuffer{}, buf)
	buf.Release()

	_, err = a.AllocateForOutputEx(2, 8, 0, 0, 0)
	assert.Equal(t, ErrInvalidArgument, err)
	_, err = a.AllocateForStreamEx(0, 8, 0, 0, 0)
	assert.Equal(t, ErrInvalidArgument, err)
}

func TestAllocatorFlags(t *testing.T) {
	a := &allocator{}
	a.reset(2, newRecorder(), nil)

	enabled, err := a.allocatesForStream(2)
	require.NoError(t, err)
	assert.False(t, enabled)

	require.NoError(t, a.setForStream(2, true))
	enabled, err = a.allocatesForStream(2)
	require.NoError(t, err)
	assert.True(t, enabled)

	assert.Equal(t, ErrInvalidArgument, a.setForStream(0, true))
	assert.Equal(t, ErrInvalidArgument, a.setForStream(3, true))
	assert.Equal(t, ErrInvalidArgument, a.setForOutput(2, true))
	_, err = a.allocatesForOutput(-1)
	assert.Equal(t, ErrInvalidArgument, err)
}

func TestAllocatorDelegates(t *testing.T) {
	rec := newRecorder()
	a := &allocator{}
	a.reset(2, rec, "ctx")
	a.setCompressed(1, true)
	require.NoError(t, a.setForStream(1, true))
	require.NoError(t, a.setForOutput(1, true))

	buf, err := a.AllocateForStreamEx(1, 10, 0, 0, 0)
	require.NoError(t, err)
	buf.Release()

	// Stream 2 isn't received compressed, so the output allocator serves it.
	buf, err = a.AllocateForStreamEx(2, 20, 0, 0, 0)
	require.NoError(t, err)
	buf.Release()

	allocs := rec.filter("alloc-stream", "alloc-output")
	require.Len(t, allocs, 2)
	assert.Equal(t, event{kind: "alloc-stream", index: 1, size: 10}, allocs[0])
	assert.Equal(t, event{kind: "alloc-output", index: 1, size: 20}, allocs[1])

	// Both are frozen now; output 0 is still free.
	assert.Equal(t, ErrInvalidRequest, a.setForStream(1, false))
	assert.Equal(t, ErrInvalidRequest, a.setForOutput(1, false))
	assert.NoError(t, a.setForOutput(0, true))

	a.reset(2, rec, nil)
	assert.NoError(t, a.setForStream(1, false))
}

func TestAllocatorNilBuffer(t *testing.T) {
	rec := newRecorder()
	rec.allocateForOutput = func(output, size int) (Buffer, error) {
		return nil, nil
	}
	a := &allocator{}
	a.reset(1, rec, nil)
	require.NoError(t, a.setForOutput(0, true))

	_, err := a.AllocateForOutputEx(0, 4, 0, 0, 0)
	assert.Equal(t, ErrOutOfMemory, err)
	assert.NoError(t, a.setForOutput(0, false), "failed allocations don't count")
}
