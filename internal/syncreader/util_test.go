package syncreader

import (
	"github.com/lanikai/alohareader/internal/demux"
)

// zeroDuration strips packet durations.
type zeroDuration struct {
	demux.Demuxer
}

func (d *zeroDuration) ReadPacket() (demux.Packet, error) {
	pkt, err := d.Demuxer.ReadPacket()
	pkt.Duration = 0
	return pkt, err
}
