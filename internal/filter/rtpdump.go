package filter

import (
	"fmt"

	"github.com/lars-sto/rtp-capture-simulation/internal/capture"
	"github.com/lars-sto/rtp-capture-simulation/internal/packet"
	"github.com/lars-sto/rtp-capture-simulation/internal/pipeline"
)

// RtpdumpSink writes rtpplay 1.0 records to rtpdump:filename in arrival
// order.
type RtpdumpSink struct {
	pipeline.Base
	env Env

	out *outputFile
	w   *capture.RtpdumpWriter
}

func NewRtpdumpSink(env Env) *RtpdumpSink {
	return &RtpdumpSink{
		Base: pipeline.NewBase("rtpdump", pipeline.KindRtpdumpSink, env.Logger),
		env:  env,
	}
}

func (s *RtpdumpSink) Notify(ev pipeline.Event, v packet.View) error {
	switch ev {
	case pipeline.TransmissionStart:
		if err := s.Begin(); err != nil {
			return err
		}
		return s.open()
	case pipeline.NewPacket:
		if err := s.Running(); err != nil {
			return err
		}
		return s.w.WritePacket(v)
	case pipeline.TransmissionEnd:
		if !s.Finish() || s.out == nil {
			return nil
		}
		s.Log.Infof("%s: %d records", s.out.path, s.w.Written())
		return s.out.Close()
	}
	return fmt.Errorf("%s: unknown event %s", s.Name(), ev)
}

func (s *RtpdumpSink) open() error {
	cfg := s.env.Config
	ep, err := capture.EndpointsFromConfig(cfg)
	if err != nil {
		return err
	}
	start, err := StartTime(cfg)
	if err != nil {
		return err
	}
	rate, err := cfg.Int("rtpdump:clock_rate", 8000)
	if err != nil {
		return err
	}
	if s.out, err = createOutput(cfg.String("rtpdump:filename", "")); err != nil {
		return err
	}
	if s.w, err = capture.NewRtpdumpWriter(s.out, ep, start, rate); err != nil {
		_ = s.out.Close()
		s.out = nil
		return err
	}
	return nil
}
