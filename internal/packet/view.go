package packet

import (
	"iter"
	"time"
)

// View is a borrowed, read-only handle to a packet owned by someone else.
// It is valid only for the duration of the notification that delivered it.
// Byte slices yielded by Frames must not be modified or retained; use Clone
// to keep data.
type View struct {
	p *Packet
}

// IsZero reports whether v refers to no packet, as for START and END events.
func (v View) IsZero() bool { return v.p == nil }

func (v View) PayloadType() uint8      { return v.p.PayloadType }
func (v View) SequenceNumber() uint16  { return v.p.SequenceNumber }
func (v View) Marker() bool            { return v.p.Marker }
func (v View) Timestamp() uint32       { return v.p.Timestamp }
func (v View) Wallclock() time.Time    { return v.p.Wallclock }
func (v View) Delay() time.Duration    { return v.p.Delay }
func (v View) CaptureTime() time.Time  { return v.p.CaptureTime() }
func (v View) PayloadSize() int        { return v.p.size }
func (v View) FrameCount() int         { return v.p.frames.Len() }
func (v View) Duration() time.Duration { return v.p.Duration() }
func (v View) Released() bool          { return v.p.released }
func (v View) String() string          { return v.p.String() }

// Frames ranges over the frames in order.
func (v View) Frames() iter.Seq2[int, Frame] { return v.p.frames.All() }

// AppendPayload appends the concatenated frame bytes to dst.
func (v View) AppendPayload(dst []byte) []byte {
	for _, f := range v.p.frames.All() {
		dst = append(dst, f.Data...)
	}
	return dst
}

// Clone returns an owned deep copy of the viewed packet.
func (v View) Clone() *Packet { return v.p.Clone() }
