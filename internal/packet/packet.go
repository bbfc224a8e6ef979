// Package packet holds the RTP packet that flows through the filter pipeline.
//
// A *Packet is owned: whoever holds it may mutate it and must Release it.
// Observers receive a View, a borrowed read-only handle that cannot release
// or mutate the frames it looks at. A filter that needs to keep or modify a
// packet past the current notification takes an owned Clone.
package packet

import (
	"errors"
	"fmt"
	"time"

	"github.com/lars-sto/rtp-capture-simulation/internal/olist"
)

var (
	ErrReleased = errors.New("packet: use after release")
	ErrTooLarge = errors.New("packet: payload exceeds UDP datagram limit")
)

// HeaderSize is the fixed RTP header length without CSRC entries.
const HeaderSize = 12

// MaxPayload is the largest RTP payload that still fits one IPv4 UDP datagram.
const MaxPayload = 65507 - HeaderSize

// Frame is one encoded audio chunk.
type Frame struct {
	Data     []byte
	Duration time.Duration
}

func (f Frame) clone() Frame {
	return Frame{Data: append([]byte(nil), f.Data...), Duration: f.Duration}
}

// CloneFrames deep-copies frames.
func CloneFrames(frames []Frame) []Frame {
	if frames == nil {
		return nil
	}
	out := make([]Frame, len(frames))
	for i, f := range frames {
		out[i] = f.clone()
	}
	return out
}

type Packet struct {
	PayloadType    uint8
	SequenceNumber uint16
	Marker         bool
	Timestamp      uint32 // media clock ticks

	// Wallclock is the send clock of the packet.
	Wallclock time.Time
	// Delay is the network delay assigned by the emulator.
	Delay time.Duration

	frames   *olist.List[Frame]
	size     int
	released bool
}

func New(pt uint8, seq uint16, marker bool, ts uint32, wallclock time.Time) *Packet {
	return &Packet{
		PayloadType:    pt,
		SequenceNumber: seq,
		Marker:         marker,
		Timestamp:      ts,
		Wallclock:      wallclock,
		frames:         olist.New[Frame](),
	}
}

// AddFrame copies data into a new frame appended to the packet.
func (p *Packet) AddFrame(data []byte, d time.Duration) error {
	if p.released {
		return ErrReleased
	}
	if p.size+len(data) > MaxPayload {
		return fmt.Errorf("%w: %d bytes", ErrTooLarge, p.size+len(data))
	}
	if err := p.frames.Append(Frame{Data: append([]byte(nil), data...), Duration: d}); err != nil {
		return err
	}
	p.size += len(data)
	return nil
}

// ReplaceFrames drops the current frames and installs copies of frames.
func (p *Packet) ReplaceFrames(frames []Frame) error {
	if p.released {
		return ErrReleased
	}
	if err := p.frames.Clear(); err != nil {
		return err
	}
	p.size = 0
	for _, f := range frames {
		if err := p.AddFrame(f.Data, f.Duration); err != nil {
			return err
		}
	}
	return nil
}

// Clone returns an independent deep copy, frame bytes included.
func (p *Packet) Clone() *Packet {
	c := New(p.PayloadType, p.SequenceNumber, p.Marker, p.Timestamp, p.Wallclock)
	c.Delay = p.Delay
	if p.released {
		c.released = true
		return c
	}
	for _, f := range p.frames.All() {
		_ = c.frames.Append(f.clone())
	}
	c.size = p.size
	return c
}

// Release frees the frames. Further mutation fails with ErrReleased.
func (p *Packet) Release() {
	if p.released {
		return
	}
	_ = p.frames.Clear()
	p.size = 0
	p.released = true
}

func (p *Packet) Released() bool { return p.released }

func (p *Packet) View() View { return View{p: p} }

// CaptureTime is the send clock plus the assigned network delay.
func (p *Packet) CaptureTime() time.Time { return p.Wallclock.Add(p.Delay) }

func (p *Packet) PayloadSize() int { return p.size }

func (p *Packet) FrameCount() int { return p.frames.Len() }

// Frames returns deep copies of the frames.
func (p *Packet) Frames() []Frame { return CloneFrames(p.frames.Slice()) }

func (p *Packet) Duration() time.Duration {
	var d time.Duration
	for _, f := range p.frames.All() {
		d += f.Duration
	}
	return d
}

func (p *Packet) String() string {
	return fmt.Sprintf("rtp pt=%d seq=%d ts=%d m=%t frames=%d bytes=%d",
		p.PayloadType, p.SequenceNumber, p.Timestamp, p.Marker, p.frames.Len(), p.size)
}
