package syncreader

import (
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lanikai/alohareader/internal/media"
)

const ms = time.Millisecond

func openSynth(t *testing.T, desc string) *Reader {
	r := New()
	require.NoError(t, r.Open("synth:"+desc))
	t.Cleanup(func() { r.Close() })
	return r
}

func next(t *testing.T, r *Reader, stream int) *Sample {
	s, err := r.NextSample(stream)
	require.NoError(t, err)
	require.NotNil(t, s)
	s.Buffer.Release()
	return s
}

func TestNextSampleAnyStream(t *testing.T) {
	r := openSynth(t, "audio,interval=10ms,count=2;video,interval=10ms,count=2,size=4")

	var got []int
	var times []time.Duration
	for i := 0; i < 4; i++ {
		s := next(t, r, 0)
		got = append(got, s.Stream)
		times = append(times, s.PTS)
	}
	assert.Equal(t, []int{1, 2, 1, 2}, got)
	assert.Equal(t, []time.Duration{0, 0, 10 * ms, 10 * ms}, times)

	_, err := r.NextSample(0)
	assert.Equal(t, media.ErrNoMoreSamples, err)
}

func TestNextSampleRoutesToQueues(t *testing.T) {
	r := openSynth(t, "audio,interval=10ms,count=2;video,interval=10ms,count=2,size=4")

	s := next(t, r, 2)
	assert.Equal(t, 2, s.Stream)
	assert.Equal(t, 1, s.Output())

	// Audio at 0 was demuxed on the way and is served from its queue.
	s = next(t, r, 1)
	assert.Equal(t, 1, s.Stream)
	assert.Equal(t, time.Duration(0), s.PTS)

	next(t, r, 2)
	_, err := r.NextSample(2)
	assert.Equal(t, media.ErrNoMoreSamples, err)

	// Ended streams stay ended until SetRange.
	next(t, r, 1)
	_, err = r.NextSample(1)
	assert.Equal(t, media.ErrNoMoreSamples, err)
	_, err = r.NextSample(1)
	assert.Equal(t, media.ErrNoMoreSamples, err)

	require.NoError(t, r.SetRange(0, 0))
	assert.Equal(t, 1, next(t, r, 1).Stream)
}

func TestSampleFlags(t *testing.T) {
	r := openSynth(t, "video,interval=10ms,count=3,key=2,size=4")

	assert.Equal(t, media.FlagCleanPoint|media.FlagDiscontinuity, next(t, r, 1).Flags)
	assert.Equal(t, media.SampleFlags(0), next(t, r, 1).Flags)
	assert.Equal(t, media.FlagCleanPoint, next(t, r, 1).Flags)

	require.NoError(t, r.SetRange(10*ms, 0))
	s := next(t, r, 1)
	assert.Equal(t, 10*ms, s.PTS)
	assert.Equal(t, media.FlagDiscontinuity, s.Flags)
}

func TestDefaultDuration(t *testing.T) {
	r := openSynth(t, "video,interval=10ms,count=1,size=4")
	assert.Equal(t, 10*ms, next(t, r, 1).Duration)

	// Packets without a duration are reported as lasting one millisecond.
	r.demuxer = &zeroDuration{r.demuxer}
	require.NoError(t, r.SetRange(0, 0))
	assert.Equal(t, ms, next(t, r, 1).Duration)
}

func TestStreamSelection(t *testing.T) {
	r := openSynth(t, "audio,interval=10ms,count=2;video,interval=10ms,count=4,key=2,size=4")

	assert.Equal(t, media.ErrInvalidArgument, r.SetStreamsSelected(nil, nil))
	assert.Equal(t, media.ErrInvalidRequest, r.SetStreamsSelected([]int{1, 3}, []Selection{SelectionOff, SelectionOff}))
	sel, err := r.StreamSelected(1)
	require.NoError(t, err)
	assert.Equal(t, SelectionOn, sel, "no stream changes when any number is invalid")

	require.NoError(t, r.SetStreamsSelected([]int{2}, []Selection{SelectionOff}))
	_, err = r.NextSample(2)
	assert.Equal(t, media.ErrNoMoreSamples, err)

	assert.Equal(t, 1, next(t, r, 0).Stream)
	assert.Equal(t, 1, next(t, r, 0).Stream)
	_, err = r.NextSample(0)
	assert.Equal(t, media.ErrNoMoreSamples, err)

	require.NoError(t, r.SetStreamsSelected([]int{1, 2}, []Selection{SelectionOff, SelectionCleanPointOnly}))
	require.NoError(t, r.SetRange(0, 0))
	assert.Equal(t, time.Duration(0), next(t, r, 2).PTS)
	assert.Equal(t, 20*ms, next(t, r, 2).PTS)
	_, err = r.NextSample(2)
	assert.Equal(t, media.ErrNoMoreSamples, err)
}

func TestSetRangeDuration(t *testing.T) {
	r := openSynth(t, "audio,interval=10ms,count=10")

	require.NoError(t, r.SetRange(20*ms, 30*ms))
	for _, want := range []time.Duration{20 * ms, 30 * ms, 40 * ms} {
		assert.Equal(t, want, next(t, r, 1).PTS)
	}
	_, err := r.NextSample(1)
	assert.Equal(t, media.ErrNoMoreSamples, err)
}

func TestCompressedAndDecoded(t *testing.T) {
	r := openSynth(t, "audio,interval=20ms,count=4;video,interval=20ms,count=4,size=7")

	compressed, err := r.ReadStreamSamples(1)
	require.NoError(t, err)
	assert.False(t, compressed)

	s, err := r.NextSample(1)
	require.NoError(t, err)
	assert.Equal(t, 320, s.Buffer.Len(), "decoded μ-law doubles in size")
	assert.False(t, s.Compressed)
	s.Buffer.Release()

	require.NoError(t, r.SetReadStreamSamples(1, true))
	s, err = r.NextSample(1)
	require.NoError(t, err)
	assert.Equal(t, 160, s.Buffer.Len())
	assert.True(t, s.Compressed)
	s.Buffer.Release()

	// No decoder for video, so it stays compressed.
	require.NoError(t, r.SetReadStreamSamples(2, false))
	compressed, err = r.ReadStreamSamples(2)
	require.NoError(t, err)
	assert.True(t, compressed)

	assert.Equal(t, media.ErrInvalidArgument, r.SetReadStreamSamples(3, true))
}

type recordingAllocator struct {
	streams []int
	outputs []int
	err     error
}

func (a *recordingAllocator) AllocateForStreamEx(stream, size int, flags media.SampleFlags, pts, duration time.Duration) (media.Buffer, error) {
	a.streams = append(a.streams, stream)
	if a.err != nil {
		return nil, a.err
	}
	return media.NewBuffer(size), nil
}

func (a *recordingAllocator) AllocateForOutputEx(output, size int, flags media.SampleFlags, pts, duration time.Duration) (media.Buffer, error) {
	a.outputs = append(a.outputs, output)
	if a.err != nil {
		return nil, a.err
	}
	return media.NewBuffer(size), nil
}

func TestAllocators(t *testing.T) {
	r := openSynth(t, "audio,interval=10ms,count=4;video,interval=10ms,count=4,size=4")

	a := &recordingAllocator{}
	require.NoError(t, r.SetAllocateForOutput(0, a))
	require.NoError(t, r.SetAllocateForStream(2, a))
	assert.Equal(t, media.ErrInvalidArgument, r.SetAllocateForOutput(2, a))
	assert.Equal(t, media.ErrInvalidArgument, r.SetAllocateForStream(0, a))

	next(t, r, 1)
	next(t, r, 2)
	assert.Equal(t, []int{0}, a.outputs)
	assert.Equal(t, []int{2}, a.streams)

	// The stream allocator is not consulted for decoded samples.
	require.NoError(t, r.SetAllocateForStream(1, a))
	next(t, r, 1)
	assert.Equal(t, []int{0, 0}, a.outputs)
	assert.Equal(t, []int{2}, a.streams)

	failure := errors.New("allocator failed")
	a.err = failure
	_, err := r.NextSample(1)
	assert.Equal(t, failure, errors.Cause(err))

	// Only that sample is lost.
	a.err = nil
	assert.Equal(t, 30*ms, next(t, r, 1).PTS)
}

// reentrantAllocator queries the reader it allocates for.
type reentrantAllocator struct {
	r      *Reader
	counts []int
}

func (a *reentrantAllocator) AllocateForStreamEx(stream, size int, flags media.SampleFlags, pts, duration time.Duration) (media.Buffer, error) {
	a.counts = append(a.counts, a.r.StreamCount())
	return media.NewBuffer(size), nil
}

func (a *reentrantAllocator) AllocateForOutputEx(output, size int, flags media.SampleFlags, pts, duration time.Duration) (media.Buffer, error) {
	if _, err := a.r.StreamSelected(output + 1); err != nil {
		return nil, err
	}
	a.counts = append(a.counts, a.r.StreamCount())
	return media.NewBuffer(size), nil
}

func TestAllocatorCallsBackIntoReader(t *testing.T) {
	r := openSynth(t, "audio,interval=10ms,count=2;video,interval=10ms,count=2,size=4")

	a := &reentrantAllocator{r: r}
	require.NoError(t, r.SetAllocateForOutput(0, a))
	require.NoError(t, r.SetAllocateForStream(2, a))

	errs := make(chan error, 1)
	go func() {
		for _, stream := range []int{1, 2, 0} {
			s, err := r.NextSample(stream)
			if err != nil {
				errs <- err
				return
			}
			s.Buffer.Release()
		}
		errs <- nil
	}()
	select {
	case err := <-errs:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("allocator deadlocked")
	}
	assert.Equal(t, []int{2, 2, 2}, a.counts)
}

func TestOutputFormats(t *testing.T) {
	r := openSynth(t, "audio,count=1;video,count=1,width=64,height=48")

	n, err := r.OutputFormatCount(0)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	pcm, err := r.OutputFormat(0, 0)
	require.NoError(t, err)
	assert.Equal(t, "PCM", pcm.Subtype)
	_, err = r.OutputFormat(0, 1)
	assert.Equal(t, media.ErrInvalidOutputFormat, err)

	video, err := r.OutputFormat(1, 0)
	require.NoError(t, err)
	assert.Equal(t, media.Video, video.Major)
	assert.Equal(t, 64, video.Width)
	_, err = r.OutputFormat(1, 1)
	assert.Equal(t, media.ErrInvalidOutputFormat, err)
	_, err = r.OutputFormatCount(2)
	assert.Equal(t, media.ErrInvalidArgument, err)

	// Compressed output exposes the stream type.
	require.NoError(t, r.SetReadStreamSamples(1, true))
	ulaw, err := r.OutputFormat(0, 0)
	require.NoError(t, err)
	assert.Equal(t, "PCMU", ulaw.Subtype)
	require.NoError(t, r.SetReadStreamSamples(1, false))

	props, err := r.OutputProps(0)
	require.NoError(t, err)
	assert.Equal(t, pcm, props)

	assert.NoError(t, r.SetOutputProps(0, pcm))
	stereo := pcm
	stereo.Channels = 2
	assert.Equal(t, media.ErrAudioCodecNotInstalled, r.SetOutputProps(0, stereo))
	assert.Equal(t, media.ErrIncompatibleFormat, r.SetOutputProps(0, video))
	float := pcm
	float.Subtype = "FLOAT"
	assert.Equal(t, media.ErrInvalidOutputFormat, r.SetOutputProps(0, float))
	assert.Equal(t, media.ErrInvalidArgument, r.SetOutputProps(1, video))
}

func TestMaxSampleSizes(t *testing.T) {
	r := openSynth(t, "audio,count=1;video,count=1")

	size, err := r.MaxStreamSampleSize(2)
	require.NoError(t, err)
	assert.Equal(t, 0x10000, size)

	size, err = r.MaxStreamSampleSize(1)
	require.NoError(t, err)
	assert.Equal(t, 0x20000, size)

	size, err = r.MaxOutputSampleSize(0)
	require.NoError(t, err)
	assert.Equal(t, 0x20000, size)

	require.NoError(t, r.SetReadStreamSamples(1, true))
	size, err = r.MaxStreamSampleSize(1)
	require.NoError(t, err)
	assert.Equal(t, 0x10000, size)

	_, err = r.MaxStreamSampleSize(0)
	assert.Equal(t, media.ErrInvalidArgument, err)
}

func TestOpenClose(t *testing.T) {
	r := New()
	_, err := r.NextSample(0)
	assert.Equal(t, media.ErrInvalidRequest, err)
	assert.Equal(t, media.ErrInvalidRequest, r.Close())

	require.NoError(t, r.Open("synth:audio,interval=10ms,count=5"))
	assert.Equal(t, media.ErrUnexpected, r.Open("synth:audio"))
	assert.Equal(t, 1, r.StreamCount())
	d, err := r.Duration()
	require.NoError(t, err)
	assert.Equal(t, 50*ms, d)

	require.NoError(t, r.Close())
	assert.Equal(t, media.ErrInvalidRequest, r.Close())
	assert.Equal(t, 0, r.StreamCount())

	assert.Error(t, r.Open("synth:nonsense"))
	require.NoError(t, r.Open("synth:video"))
	require.NoError(t, r.Close())
}

func TestDemuxErrors(t *testing.T) {
	r := openSynth(t, "audio,interval=10ms,count=3,fail=2")

	next(t, r, 1)
	_, err := r.NextSample(1)
	assert.Error(t, err)
	assert.NotEqual(t, media.ErrNoMoreSamples, err)
	assert.Equal(t, 20*ms, next(t, r, 1).PTS)
}
