package capture

import (
	"fmt"
	"io"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"github.com/lars-sto/rtp-capture-simulation/internal/olist"
)

// Snaplen is the maximum capture length written into the global header.
const Snaplen = 65535

// PendingRecord is a serialized frame waiting in the reorder buffer.
type PendingRecord struct {
	At   time.Time
	Data []byte

	seq uint64 // arrival order, breaks timestamp ties
}

func byCaptureTime(a, b PendingRecord) int {
	if c := a.At.Compare(b.At); c != 0 {
		return c
	}
	switch {
	case a.seq < b.seq:
		return -1
	case a.seq > b.seq:
		return 1
	}
	return 0
}

// PcapWriter writes Ethernet pcap records in non-decreasing timestamp order.
// Records are staged in a reorder buffer until a watermark proves that no
// later record can carry an earlier timestamp.
type PcapWriter struct {
	w       *pcapgo.Writer
	pending *olist.List[PendingRecord]
	seq     uint64
	written int
	last    time.Time
}

// NewPcapWriter writes the global header to w.
func NewPcapWriter(w io.Writer) (*PcapWriter, error) {
	pw := pcapgo.NewWriter(w)
	if err := pw.WriteFileHeader(Snaplen, layers.LinkTypeEthernet); err != nil {
		return nil, fmt.Errorf("write pcap header: %w", err)
	}
	return &PcapWriter{
		w:       pw,
		pending: olist.New(olist.WithComparator(byCaptureTime)),
	}, nil
}

// Add stages data for capture time at.
func (p *PcapWriter) Add(at time.Time, data []byte) error {
	if len(data) > Snaplen {
		return fmt.Errorf("capture: record of %d bytes exceeds snaplen", len(data))
	}
	p.seq++
	return p.pending.Append(PendingRecord{At: at, Data: data, seq: p.seq})
}

// Flush writes every staged record with a timestamp at or before watermark.
func (p *PcapWriter) Flush(watermark time.Time) (int, error) {
	return p.flush(func(r PendingRecord) bool { return !r.At.After(watermark) })
}

// FlushAll writes every staged record.
func (p *PcapWriter) FlushAll() (int, error) {
	return p.flush(func(PendingRecord) bool { return true })
}

func (p *PcapWriter) flush(ready func(PendingRecord) bool) (int, error) {
	if p.pending.Empty() {
		return 0, nil
	}
	if err := p.pending.Sort(); err != nil {
		return 0, err
	}
	n := 0
	for !p.pending.Empty() {
		r, _ := p.pending.First()
		if !ready(r) {
			break
		}
		if _, err := p.pending.ExtractAt(0); err != nil {
			return n, err
		}
		if err := p.write(r); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

func (p *PcapWriter) write(r PendingRecord) error {
	if r.At.Before(p.last) {
		return fmt.Errorf("capture: record at %v written after %v", r.At, p.last)
	}
	ci := gopacket.CaptureInfo{
		Timestamp:     r.At,
		CaptureLength: len(r.Data),
		Length:        len(r.Data),
	}
	if err := p.w.WritePacket(ci, r.Data); err != nil {
		return fmt.Errorf("write pcap record: %w", err)
	}
	p.last = r.At
	p.written++
	return nil
}

// Pending is the number of staged records.
func (p *PcapWriter) Pending() int { return p.pending.Len() }

// Written is the number of records written so far.
func (p *PcapWriter) Written() int { return p.written }
