package demux

import (
	"io"
	"time"

	"github.com/nareix/joy4/av"
	"github.com/nareix/joy4/format/flv"
	"github.com/nareix/joy4/format/mp4"
	"github.com/nareix/joy4/format/mp4/mp4io"
	"github.com/nareix/joy4/format/ts"
	"golang.org/x/xerrors"

	"github.com/lanikai/alohareader/internal/media"
)

func init() {
	Register(&Format{
		Name:       "mp4",
		Extensions: []string{".mp4", ".m4a", ".m4v", ".mov"},
		NewDemuxer: func(r io.ReadSeeker) (Demuxer, error) {
			return newAVDemuxer(r, func(r io.ReadSeeker) av.Demuxer { return mp4.NewDemuxer(r) })
		},
	})
	Register(&Format{
		Name:       "ts",
		Extensions: []string{".ts", ".m2ts"},
		NewDemuxer: func(r io.ReadSeeker) (Demuxer, error) {
			return newAVDemuxer(r, func(r io.ReadSeeker) av.Demuxer { return ts.NewDemuxer(r) })
		},
	})
	Register(&Format{
		Name:       "flv",
		Extensions: []string{".flv"},
		NewDemuxer: func(r io.ReadSeeker) (Demuxer, error) {
			return newAVDemuxer(r, func(r io.ReadSeeker) av.Demuxer { return flv.NewDemuxer(r) })
		},
	})
}

type timeSeeker interface {
	SeekToTime(time.Duration) error
}

// avDemuxer adapts a joy4 demuxer. Formats without native seeking are
// rewound and skipped forward.
type avDemuxer struct {
	r        io.ReadSeeker
	open     func(io.ReadSeeker) av.Demuxer
	demuxer  av.Demuxer
	codecs   []av.CodecData
	streams  []StreamInfo
	duration time.Duration

	// Packet read ahead while skipping to a seek target.
	pending *av.Packet
}

func newAVDemuxer(r io.ReadSeeker, open func(io.ReadSeeker) av.Demuxer) (*avDemuxer, error) {
	d := &avDemuxer{r: r, open: open}
	d.duration = movieDuration(r)
	if err := d.reopen(); err != nil {
		return nil, err
	}
	for i, codec := range d.codecs {
		t := codecType(codec)
		log.Info("Stream %d: %v", i+1, t)
		d.streams = append(d.streams, StreamInfo{Type: t})
	}
	return d, nil
}

func (d *avDemuxer) reopen() error {
	if _, err := d.r.Seek(0, io.SeekStart); err != nil {
		return xerrors.Errorf("rewind: %w", err)
	}
	d.demuxer = d.open(d.r)
	codecs, err := d.demuxer.Streams()
	if err != nil {
		return xerrors.Errorf("probe streams: %w", err)
	}
	d.codecs = codecs
	d.pending = nil
	return nil
}

// movieDuration reads the mp4 movie header, if there is one.
func movieDuration(r io.ReadSeeker) time.Duration {
	defer r.Seek(0, io.SeekStart)
	atoms, err := mp4io.ReadFileAtoms(r)
	if err != nil {
		return 0
	}
	for _, atom := range atoms {
		if atom.Tag() != mp4io.MOOV {
			continue
		}
		moov := atom.(*mp4io.Movie)
		if moov.Header == nil || moov.Header.TimeScale <= 0 {
			return 0
		}
		return time.Duration(moov.Header.Duration) * time.Second / time.Duration(moov.Header.TimeScale)
	}
	return 0
}

func codecType(codec av.CodecData) media.Type {
	t := media.Type{Subtype: codec.Type().String()}
	if codec.Type() == av.PCM_MULAW {
		t.Subtype = "PCMU"
	}
	switch info := codec.(type) {
	case av.VideoCodecData:
		t.Major = media.Video
		t.Width = info.Width()
		t.Height = info.Height()
	case av.AudioCodecData:
		t.Major = media.Audio
		t.SampleRate = info.SampleRate()
		t.Channels = info.ChannelLayout().Count()
		t.BitsPerSample = 8 * info.SampleFormat().BytesPerSample()
	}
	return t
}

func (d *avDemuxer) Streams() []StreamInfo {
	return d.streams
}

func (d *avDemuxer) ReadPacket() (Packet, error) {
	var pkt av.Packet
	if d.pending != nil {
		pkt, d.pending = *d.pending, nil
	} else {
		var err error
		if pkt, err = d.demuxer.ReadPacket(); err != nil {
			if err == io.EOF {
				return Packet{}, io.EOF
			}
			return Packet{}, xerrors.Errorf("read packet: %w", err)
		}
	}

	idx := int(pkt.Idx)
	if idx < 0 || idx >= len(d.codecs) {
		return Packet{}, xerrors.Errorf("packet for unknown stream %d", idx)
	}

	p := Packet{
		Stream:   idx,
		Time:     pkt.Time,
		KeyFrame: pkt.IsKeyFrame,
		Data:     pkt.Data,
	}
	if audio, ok := d.codecs[idx].(av.AudioCodecData); ok {
		p.KeyFrame = true
		if dur, err := audio.PacketDuration(pkt.Data); err == nil {
			p.Duration = dur
		}
	}
	return p, nil
}

func (d *avDemuxer) Seek(t time.Duration) error {
	d.pending = nil
	if s, ok := d.demuxer.(timeSeeker); ok {
		if err := s.SeekToTime(t); err != nil {
			return xerrors.Errorf("seek to %v: %w", t, err)
		}
		return nil
	}

	if err := d.reopen(); err != nil {
		return err
	}
	for t > 0 {
		pkt, err := d.demuxer.ReadPacket()
		if err == io.EOF {
			return nil
		} else if err != nil {
			return xerrors.Errorf("seek to %v: %w", t, err)
		}
		if pkt.Time >= t {
			d.pending = &pkt
			break
		}
	}
	return nil
}

func (d *avDemuxer) Duration() time.Duration {
	return d.duration
}

func (d *avDemuxer) Close() error {
	return nil
}
