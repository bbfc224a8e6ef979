package filter

import (
	"fmt"

	"github.com/lars-sto/rtp-capture-simulation/internal/olist"
	"github.com/lars-sto/rtp-capture-simulation/internal/packet"
	"github.com/lars-sto/rtp-capture-simulation/internal/pipeline"
)

// Sort holds up to sort:buffer_size packets and forwards them in capture
// time order, so that sinks without their own reorder stage see arrivals
// the way a receiver would.
type Sort struct {
	pipeline.Base
	env Env

	enabled bool
	size    int
	buf     *olist.List[*packet.Packet]
}

func NewSort(env Env) *Sort {
	return &Sort{
		Base: pipeline.NewBase("sort", pipeline.KindSort, env.Logger),
		env:  env,
		buf:  olist.New(olist.WithComparator(byArrival)),
	}
}

func byArrival(a, b *packet.Packet) int {
	if c := a.CaptureTime().Compare(b.CaptureTime()); c != 0 {
		return c
	}
	return int(a.SequenceNumber) - int(b.SequenceNumber)
}

func (s *Sort) Notify(ev pipeline.Event, v packet.View) error {
	switch ev {
	case pipeline.TransmissionStart:
		if err := s.Begin(); err != nil {
			return err
		}
		var err error
		if s.enabled, err = s.env.Config.Bool("sort:enabled", true); err != nil {
			return err
		}
		if s.size, err = s.env.Config.Int("sort:buffer_size", 1); err != nil {
			return err
		}
		if s.size < 0 {
			return fmt.Errorf("sort:buffer_size must not be negative, got %d", s.size)
		}
		return s.NotifyObservers(ev, v)
	case pipeline.NewPacket:
		if err := s.Running(); err != nil {
			return err
		}
		if !s.enabled {
			return s.NotifyObservers(ev, v)
		}
		if err := s.buf.Append(v.Clone()); err != nil {
			return err
		}
		if s.buf.Len() <= s.size {
			return nil
		}
		if err := s.buf.Sort(); err != nil {
			return err
		}
		return s.emitFirst()
	case pipeline.TransmissionEnd:
		if !s.Finish() {
			return s.NotifyObservers(ev, v)
		}
		err := s.drain()
		if endErr := s.NotifyObservers(ev, v); err == nil {
			err = endErr
		}
		return err
	}
	return fmt.Errorf("%s: unknown event %s", s.Name(), ev)
}

func (s *Sort) emitFirst() error {
	p, err := s.buf.ExtractAt(0)
	if err != nil {
		return err
	}
	err = s.NotifyObservers(pipeline.NewPacket, p.View())
	p.Release()
	return err
}

// drain forwards the buffered packets in order. After a fatal error the
// rest is released unseen.
func (s *Sort) drain() error {
	defer func() {
		for !s.buf.Empty() {
			p, _ := s.buf.ExtractAt(0)
			p.Release()
		}
	}()
	if err := s.buf.Sort(); err != nil {
		return err
	}
	for !s.buf.Empty() {
		if err := s.emitFirst(); err != nil {
			return err
		}
	}
	return nil
}

// Buffered is the number of packets held back.
func (s *Sort) Buffered() int { return s.buf.Len() }
