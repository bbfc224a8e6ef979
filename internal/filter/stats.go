package filter

import (
	"fmt"
	"time"

	"github.com/lars-sto/rtp-capture-simulation/internal/packet"
	"github.com/lars-sto/rtp-capture-simulation/internal/pipeline"
)

// Counters summarize the packets seen at one point of the graph.
type Counters struct {
	Packets    int64
	Frames     int64
	Bytes      int64
	Reordered  int64
	MaxDelay   time.Duration
	TotalDelay time.Duration
	First      time.Time
	Last       time.Time
}

func (c Counters) MeanDelay() time.Duration {
	if c.Packets == 0 {
		return 0
	}
	return c.TotalDelay / time.Duration(c.Packets)
}

// Stats counts what passes through it and forwards every event.
type Stats struct {
	pipeline.Base
	c       Counters
	lastSeq uint16
}

func NewStats(env Env, name string) *Stats {
	return &Stats{Base: pipeline.NewBase(name, pipeline.KindStats, env.Logger)}
}

func (s *Stats) Counters() Counters { return s.c }

func (s *Stats) Notify(ev pipeline.Event, v packet.View) error {
	switch ev {
	case pipeline.TransmissionStart:
		if err := s.Begin(); err != nil {
			return err
		}
	case pipeline.NewPacket:
		if err := s.Running(); err != nil {
			return err
		}
		s.count(v)
	case pipeline.TransmissionEnd:
		if s.Finish() {
			s.Log.Debugf("%s: packets=%d bytes=%d reordered=%d", s.Name(), s.c.Packets, s.c.Bytes, s.c.Reordered)
		}
	default:
		return fmt.Errorf("%s: unknown event %s", s.Name(), ev)
	}
	return s.NotifyObservers(ev, v)
}

func (s *Stats) count(v packet.View) {
	at := v.CaptureTime()
	if s.c.Packets == 0 {
		s.c.First = at
	} else if int16(v.SequenceNumber()-s.lastSeq) < 0 {
		s.c.Reordered++
	}
	s.c.Last = at
	s.lastSeq = v.SequenceNumber()
	s.c.Packets++
	s.c.Frames += int64(v.FrameCount())
	s.c.Bytes += int64(v.PayloadSize())
	s.c.TotalDelay += v.Delay()
	s.c.MaxDelay = max(s.c.MaxDelay, v.Delay())
}
