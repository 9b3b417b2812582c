package demux

import (
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/xerrors"

	"github.com/lanikai/alohareader/internal/media"
)

func readAll(t *testing.T, d Demuxer) []Packet {
	var pkts []Packet
	for {
		pkt, err := d.ReadPacket()
		if err == io.EOF {
			return pkts
		}
		require.NoError(t, err)
		pkts = append(pkts, pkt)
	}
}

func TestParseSynthetic(t *testing.T) {
	streams, err := ParseSynthetic("audio,interval=26ms,count=79; video,interval=79ms,count=26,key=5,size=16")
	require.NoError(t, err)
	require.Len(t, streams, 2)

	assert.Equal(t, media.Audio, streams[0].Type.Major)
	assert.Equal(t, "PCMU", streams[0].Type.Subtype)
	assert.Equal(t, 26*time.Millisecond, streams[0].Interval)
	assert.Equal(t, 79, streams[0].Count)

	assert.Equal(t, media.Video, streams[1].Type.Major)
	assert.Equal(t, 5, streams[1].KeyEvery)
	assert.Equal(t, 16, streams[1].Size)

	for _, bad := range []string{"", "subtitle", "audio,count", "audio,bogus=1", "video,interval=0s", "audio,interval=abc"} {
		_, err := ParseSynthetic(bad)
		assert.Error(t, err, "%q", bad)
	}
}

func TestSyntheticInterleaving(t *testing.T) {
	d, err := OpenSynthetic("audio,interval=10ms,count=4;video,interval=20ms,count=2")
	require.NoError(t, err)
	defer d.Close()

	var got []int
	var times []time.Duration
	for _, pkt := range readAll(t, d) {
		got = append(got, pkt.Stream)
		times = append(times, pkt.Time)
	}
	// Ties at 0 and 20ms go to the lower stream index.
	assert.Equal(t, []int{0, 1, 0, 0, 1, 0}, got)
	assert.Equal(t, []time.Duration{0, 0, 10 * time.Millisecond, 20 * time.Millisecond, 20 * time.Millisecond, 30 * time.Millisecond}, times)
	assert.Equal(t, 40*time.Millisecond, d.Duration())
}

func TestSyntheticPayloads(t *testing.T) {
	d, err := OpenSynthetic("audio,interval=20ms,count=1;video,count=3,size=8,key=2")
	require.NoError(t, err)

	pkts := readAll(t, d)
	require.Len(t, pkts, 4)

	// 20ms of 8kHz μ-law.
	assert.Len(t, pkts[0].Data, 160)
	assert.True(t, pkts[0].KeyFrame)

	var video []Packet
	for _, pkt := range pkts {
		if pkt.Stream == 1 {
			video = append(video, pkt)
		}
	}
	require.Len(t, video, 3)
	assert.Equal(t, []bool{true, false, true}, []bool{video[0].KeyFrame, video[1].KeyFrame, video[2].KeyFrame})
	assert.Equal(t, []byte{2, 2, 2, 2, 2, 2, 2, 2}, video[2].Data)
}

func TestSyntheticSeek(t *testing.T) {
	d, err := OpenSynthetic("audio,interval=10ms,count=10")
	require.NoError(t, err)

	readAll(t, d)
	require.NoError(t, d.Seek(35*time.Millisecond))
	pkts := readAll(t, d)
	require.Len(t, pkts, 6)
	assert.Equal(t, 40*time.Millisecond, pkts[0].Time)

	require.NoError(t, d.Seek(time.Second))
	assert.Empty(t, readAll(t, d))

	require.NoError(t, d.Seek(0))
	assert.Len(t, readAll(t, d), 10)
}

func TestSyntheticFailure(t *testing.T) {
	d, err := OpenSynthetic("audio,count=3,fail=2")
	require.NoError(t, err)

	_, err = d.ReadPacket()
	require.NoError(t, err)
	_, err = d.ReadPacket()
	assert.True(t, xerrors.Is(err, io.ErrUnexpectedEOF))
	pkt, err := d.ReadPacket()
	require.NoError(t, err)
	assert.Equal(t, 40*time.Millisecond, pkt.Time)
}

func TestSyntheticSeekFailure(t *testing.T) {
	d, err := OpenSynthetic("audio,count=3,seekfail=2")
	require.NoError(t, err)

	require.NoError(t, d.Seek(0))
	err = d.Seek(20*time.Millisecond)
	assert.True(t, xerrors.Is(err, media.ErrUnexpected))

	// The failed seek left the position alone.
	pkts := readAll(t, d)
	require.Len(t, pkts, 3)
	assert.Equal(t, time.Duration(0), pkts[0].Time)

	require.NoError(t, d.Seek(20*time.Millisecond))
	assert.Len(t, readAll(t, d), 2)
}

func TestSyntheticLongTone(t *testing.T) {
	d, err := OpenSynthetic("audio,interval=1h,count=2")
	require.NoError(t, err)

	pkts := readAll(t, d)
	require.Len(t, pkts, 2)
	assert.Len(t, pkts[0].Data, maxToneSamples)
	assert.Equal(t, time.Hour, pkts[1].Time)
}

func TestRegistry(t *testing.T) {
	assert.Subset(t, Formats(), []string{"flv", "mp4", "synth", "ts"})

	d, err := Open("synth:video,count=2")
	require.NoError(t, err)
	assert.Len(t, d.Streams(), 1)
	assert.Len(t, readAll(t, d), 2)

	d, err = OpenReader(strings.NewReader("audio,count=1;video,count=1"), "synth")
	require.NoError(t, err)
	assert.Len(t, d.Streams(), 2)

	_, err = Open("movie.unknown")
	assert.True(t, xerrors.Is(err, media.ErrNotSupported))

	_, err = OpenReader(strings.NewReader(""), "avi")
	assert.True(t, xerrors.Is(err, media.ErrNotSupported))

	_, err = Open("/nonexistent/movie.mp4")
	assert.Error(t, err)
}
