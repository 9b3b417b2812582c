package demux

import (
	"encoding/binary"
	"io"
	"io/ioutil"
	"math"
	"strconv"
	"strings"
	"time"

	"golang.org/x/xerrors"

	"github.com/lanikai/alohareader/internal/media"
)

func init() {
	Register(&Format{
		Name:       "synth",
		Extensions: []string{".synth"},
		NewDemuxer: func(r io.ReadSeeker) (Demuxer, error) {
			b, err := ioutil.ReadAll(r)
			if err != nil {
				return nil, xerrors.Errorf("read synth description: %w", err)
			}
			return OpenSynthetic(string(b))
		},
		OpenPath: OpenSynthetic,
	})
}

// SyntheticStream describes one generated stream.
type SyntheticStream struct {
	Type     media.Type
	Start    time.Duration
	Interval time.Duration
	Count    int

	// Payload size of video packets. Audio size follows from the interval.
	Size int

	// Every KeyEvery'th packet is a key frame. 0 and 1 mean every packet.
	KeyEvery int

	// ReadPacket fails in place of packet number FailAt (1-based). 0 = never.
	FailAt int

	// Time spent producing each packet.
	Delay time.Duration

	// Seek call number SeekFailAt (1-based) fails. 0 = never.
	SeekFailAt int
}

// Longest tone generated per audio packet. Longer intervals repeat it.
const maxToneSamples = 8000

func (s *SyntheticStream) time(i int) time.Duration {
	return s.Start + time.Duration(i)*s.Interval
}

// Synthetic generates interleaved packets without any backing file. Packets
// come out in time order, ties going to the lower stream index. Audio is an
// 8-bit μ-law tone; video packets are filled with their frame number.
type Synthetic struct {
	streams []SyntheticStream
	next    []int
	seeks   int
	encoder media.Encoder
}

// NewSynthetic creates a generator for the given streams.
func NewSynthetic(streams []SyntheticStream) *Synthetic {
	return &Synthetic{
		streams: streams,
		next:    make([]int, len(streams)),
		encoder: media.NewPCMUEncoder(),
	}
}

// OpenSynthetic parses a description and returns a generator for it.
//
// The description is a semicolon-separated list of streams. Each stream is a
// kind ("audio" or "video") followed by comma-separated key=value options:
//
//	audio,interval=20ms,count=50;video,interval=40ms,count=25,key=5
//
// Options are interval, count, start, size, key, fail, seekfail, delay, rate,
// width and height.
func OpenSynthetic(desc string) (Demuxer, error) {
	streams, err := ParseSynthetic(desc)
	if err != nil {
		return nil, err
	}
	return NewSynthetic(streams), nil
}

// ParseSynthetic parses a stream description, see OpenSynthetic.
func ParseSynthetic(desc string) ([]SyntheticStream, error) {
	var streams []SyntheticStream
	for _, part := range strings.Split(strings.TrimSpace(desc), ";") {
		if part = strings.TrimSpace(part); part == "" {
			continue
		}
		fields := strings.Split(part, ",")

		var s SyntheticStream
		switch strings.TrimSpace(fields[0]) {
		case "audio":
			s = SyntheticStream{
				Type:     media.Type{Major: media.Audio, Subtype: "PCMU", SampleRate: 8000, Channels: 1, BitsPerSample: 8},
				Interval: 20 * time.Millisecond,
				Count:    50,
			}
		case "video":
			s = SyntheticStream{
				Type:     media.Type{Major: media.Video, Subtype: "SYNV", Width: 320, Height: 240},
				Interval: 40 * time.Millisecond,
				Count:    25,
				Size:     1024,
			}
		default:
			return nil, xerrors.Errorf("synth: unknown stream kind %q: %w", fields[0], media.ErrInvalidArgument)
		}

		for _, field := range fields[1:] {
			kv := strings.SplitN(strings.TrimSpace(field), "=", 2)
			if len(kv) != 2 {
				return nil, xerrors.Errorf("synth: malformed option %q: %w", field, media.ErrInvalidArgument)
			}
			if err := s.set(kv[0], kv[1]); err != nil {
				return nil, xerrors.Errorf("synth: option %s: %w", kv[0], err)
			}
		}
		if s.Interval <= 0 || s.Count < 0 {
			return nil, xerrors.Errorf("synth: %q: %w", part, media.ErrInvalidArgument)
		}
		streams = append(streams, s)
	}
	if len(streams) == 0 {
		return nil, xerrors.Errorf("synth: no streams: %w", media.ErrInvalidArgument)
	}
	return streams, nil
}

func (s *SyntheticStream) set(key, value string) error {
	var err error
	switch key {
	case "interval":
		s.Interval, err = time.ParseDuration(value)
	case "start":
		s.Start, err = time.ParseDuration(value)
	case "delay":
		s.Delay, err = time.ParseDuration(value)
	case "count":
		s.Count, err = strconv.Atoi(value)
	case "size":
		s.Size, err = strconv.Atoi(value)
	case "key":
		s.KeyEvery, err = strconv.Atoi(value)
	case "fail":
		s.FailAt, err = strconv.Atoi(value)
	case "seekfail":
		s.SeekFailAt, err = strconv.Atoi(value)
	case "rate":
		s.Type.SampleRate, err = strconv.Atoi(value)
	case "width":
		s.Type.Width, err = strconv.Atoi(value)
	case "height":
		s.Type.Height, err = strconv.Atoi(value)
	default:
		return media.ErrInvalidArgument
	}
	return err
}

func (d *Synthetic) Streams() []StreamInfo {
	infos := make([]StreamInfo, len(d.streams))
	for i, s := range d.streams {
		infos[i] = StreamInfo{Type: s.Type}
	}
	return infos
}

func (d *Synthetic) ReadPacket() (Packet, error) {
	idx := -1
	for i := range d.streams {
		s := &d.streams[i]
		if d.next[i] >= s.Count {
			continue
		}
		if idx < 0 || s.time(d.next[i]) < d.streams[idx].time(d.next[idx]) {
			idx = i
		}
	}
	if idx < 0 {
		return Packet{}, io.EOF
	}

	s := &d.streams[idx]
	n := d.next[idx]
	d.next[idx]++

	if s.Delay > 0 {
		time.Sleep(s.Delay)
	}
	if s.FailAt == n+1 {
		return Packet{}, xerrors.Errorf("synth: stream %d packet %d: %w", idx+1, n+1, io.ErrUnexpectedEOF)
	}

	pkt := Packet{
		Stream:   idx,
		Time:     s.time(n),
		Duration: s.Interval,
		KeyFrame: s.KeyEvery <= 1 || n%s.KeyEvery == 0,
	}
	if s.Type.Major == media.Audio {
		data, err := d.tone(s, n)
		if err != nil {
			return Packet{}, xerrors.Errorf("synth: stream %d packet %d: %w", idx+1, n+1, err)
		}
		pkt.Data = data
	} else {
		pkt.Data = make([]byte, s.Size)
		for i := range pkt.Data {
			pkt.Data[i] = byte(n)
		}
	}
	return pkt, nil
}

// tone encodes one interval of a 440 Hz sine wave, at most maxToneSamples of
// it.
func (d *Synthetic) tone(s *SyntheticStream, n int) ([]byte, error) {
	samples := int(int64(s.Type.SampleRate) * int64(s.Interval) / int64(time.Second))
	if samples > maxToneSamples {
		samples = maxToneSamples
	}
	first := samples * n
	pcm := make([]byte, 2*samples)
	for i := 0; i < samples; i++ {
		phase := 2 * math.Pi * 440 * float64(first+i) / float64(s.Type.SampleRate)
		binary.LittleEndian.PutUint16(pcm[2*i:], uint16(int16(8000*math.Sin(phase))))
	}
	return d.encoder.Encode(pcm)
}

func (d *Synthetic) Seek(t time.Duration) error {
	d.seeks++
	for i := range d.streams {
		if d.streams[i].SeekFailAt == d.seeks {
			return xerrors.Errorf("synth: seek %d to %v: %w", d.seeks, t, media.ErrUnexpected)
		}
	}
	for i := range d.streams {
		s := &d.streams[i]
		n := 0
		if t > s.Start {
			n = int((t - s.Start + s.Interval - 1) / s.Interval)
		}
		if n > s.Count {
			n = s.Count
		}
		d.next[i] = n
	}
	return nil
}

func (d *Synthetic) Duration() time.Duration {
	var max time.Duration
	for i := range d.streams {
		if end := d.streams[i].time(d.streams[i].Count); end > max {
			max = end
		}
	}
	return max
}

func (d *Synthetic) Close() error {
	return nil
}
