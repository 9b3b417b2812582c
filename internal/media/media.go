package media

import "fmt"

// MajorType classifies a stream.
type MajorType int

const (
	Unknown MajorType = iota
	Audio
	Video
)

func (m MajorType) String() string {
	switch m {
	case Audio:
		return "audio"
	case Video:
		return "video"
	default:
		return "unknown"
	}
}

// Type describes the format of a stream or of a reader output.
type Type struct {
	Major MajorType

	// Codec or raw format name, e.g. "H264", "AAC", "PCMU", "PCM".
	Subtype string

	// Video only.
	Width, Height int

	// Audio only.
	SampleRate    int
	Channels      int
	BitsPerSample int
}

func (t Type) String() string {
	switch t.Major {
	case Video:
		return fmt.Sprintf("video/%s %dx%d", t.Subtype, t.Width, t.Height)
	case Audio:
		return fmt.Sprintf("audio/%s %dHz %dch", t.Subtype, t.SampleRate, t.Channels)
	default:
		return "unknown/" + t.Subtype
	}
}

// SampleFlags annotate a delivered sample.
type SampleFlags uint32

const (
	// The sample can be decoded without reference to earlier samples.
	FlagCleanPoint SampleFlags = 1 << iota

	// First sample of a stream after open, start or seek.
	FlagDiscontinuity

	// Data preceding this sample was lost.
	FlagDataLoss
)

func (f SampleFlags) String() string {
	s := ""
	for _, n := range []struct {
		flag SampleFlags
		name string
	}{
		{FlagCleanPoint, "C"},
		{FlagDiscontinuity, "D"},
		{FlagDataLoss, "L"},
	} {
		if f&n.flag != 0 {
			s += n.name
		}
	}
	if s == "" {
		return "-"
	}
	return s
}
