package capture

import (
	"encoding/binary"
	"fmt"
	"io"
	"time"

	"github.com/lars-sto/rtp-capture-simulation/internal/packet"
)

// rtpdump file layout, all integers big-endian.
type rtpdumpHeader struct {
	StartSec  uint32
	StartUsec uint32
	Source    [4]byte
	Port      uint16
	_         uint16
}

type rtpdumpPacketHeader struct {
	// length of the record including this header
	Length uint16
	// RTP header plus payload length
	PacketLength uint16
	// milliseconds since the start of recording
	Offset uint32
}

const rtpdumpPacketHeaderLen = 8

// RtpdumpWriter writes rtpplay 1.0 files. Records are written in arrival
// order; the format has no reordering stage.
type RtpdumpWriter struct {
	w         io.Writer
	ep        Endpoints
	clockRate int
	written   int
}

// NewRtpdumpWriter writes the signature line and start record to w.
// clockRate converts RTP timestamps to the record offset in milliseconds.
func NewRtpdumpWriter(w io.Writer, ep Endpoints, start time.Time, clockRate int) (*RtpdumpWriter, error) {
	if clockRate <= 0 {
		return nil, fmt.Errorf("capture: clock rate %d", clockRate)
	}
	if _, err := fmt.Fprintf(w, "#!rtpplay1.0 %s/%d\n", ep.DstIP, ep.DstPort); err != nil {
		return nil, fmt.Errorf("write rtpdump signature: %w", err)
	}
	hdr := rtpdumpHeader{
		StartSec:  uint32(start.Unix()),
		StartUsec: uint32(start.Nanosecond() / 1000),
		Port:      ep.SrcPort,
	}
	copy(hdr.Source[:], ep.SrcIP.To4())
	if err := binary.Write(w, binary.BigEndian, hdr); err != nil {
		return nil, fmt.Errorf("write rtpdump header: %w", err)
	}
	return &RtpdumpWriter{w: w, ep: ep, clockRate: clockRate}, nil
}

func (r *RtpdumpWriter) WritePacket(v packet.View) error {
	body, err := EncodeRTP(r.ep, v)
	if err != nil {
		return err
	}
	if len(body)+rtpdumpPacketHeaderLen > 0xFFFF {
		return fmt.Errorf("capture: rtpdump record of %d bytes", len(body))
	}
	ph := rtpdumpPacketHeader{
		Length:       uint16(len(body) + rtpdumpPacketHeaderLen),
		PacketLength: uint16(len(body)),
		Offset:       uint32(uint64(v.Timestamp()) * 1000 / uint64(r.clockRate)),
	}
	if err := binary.Write(r.w, binary.BigEndian, ph); err != nil {
		return fmt.Errorf("write rtpdump record header: %w", err)
	}
	if _, err := r.w.Write(body); err != nil {
		return fmt.Errorf("write rtpdump record: %w", err)
	}
	r.written++
	return nil
}

func (r *RtpdumpWriter) Written() int { return r.written }
