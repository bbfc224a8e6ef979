package filter

import (
	"fmt"

	"github.com/lars-sto/rtp-capture-simulation/internal/capture"
	"github.com/lars-sto/rtp-capture-simulation/internal/packet"
	"github.com/lars-sto/rtp-capture-simulation/internal/pipeline"
	"github.com/pion/interceptor"
)

type delayKey struct{}

// DelayAttribute is the interceptor attribute key carrying the accumulated
// network delay of a packet.
var DelayAttribute = delayKey{}

// RTPWriterSink hands every packet to an interceptor.RTPWriter, so captured
// traffic can drive a pion interceptor chain. The accumulated delay travels
// in the DelayAttribute attribute.
type RTPWriterSink struct {
	pipeline.Base
	env    Env
	writer interceptor.RTPWriter
	ep     capture.Endpoints

	written int
}

func NewRTPWriterSink(env Env, w interceptor.RTPWriter) *RTPWriterSink {
	return &RTPWriterSink{
		Base:   pipeline.NewBase("rtp-writer", pipeline.KindRTPWriter, env.Logger),
		env:    env,
		writer: w,
	}
}

func (s *RTPWriterSink) Notify(ev pipeline.Event, v packet.View) error {
	switch ev {
	case pipeline.TransmissionStart:
		if err := s.Begin(); err != nil {
			return err
		}
		var err error
		s.ep, err = capture.EndpointsFromConfig(s.env.Config)
		return err
	case pipeline.NewPacket:
		if err := s.Running(); err != nil {
			return err
		}
		h := capture.RTPHeader(s.ep, v)
		attrs := interceptor.Attributes{}
		attrs.Set(DelayAttribute, v.Delay())
		if _, err := s.writer.Write(&h, v.AppendPayload(nil), attrs); err != nil {
			return fmt.Errorf("rtp write seq %d: %w", v.SequenceNumber(), err)
		}
		s.written++
		return nil
	case pipeline.TransmissionEnd:
		s.Finish()
		return nil
	}
	return fmt.Errorf("%s: unknown event %s", s.Name(), ev)
}

func (s *RTPWriterSink) Written() int { return s.written }
