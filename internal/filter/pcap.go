package filter

import (
	"fmt"

	"github.com/lars-sto/rtp-capture-simulation/internal/capture"
	"github.com/lars-sto/rtp-capture-simulation/internal/packet"
	"github.com/lars-sto/rtp-capture-simulation/internal/pipeline"
)

// PcapSink writes every packet it sees as an Ethernet/IPv4/UDP/RTP record
// into pcap:filename. Records are ordered by capture time; the send clock of
// the current packet serves as the flush watermark, since no later packet
// can be captured before it was sent.
type PcapSink struct {
	pipeline.Base
	env Env

	ep         capture.Endpoints
	out        *outputFile
	w          *capture.PcapWriter
	flushEvery int
	since      int
}

func NewPcapSink(env Env) *PcapSink {
	return &PcapSink{
		Base: pipeline.NewBase("pcap", pipeline.KindPcapSink, env.Logger),
		env:  env,
	}
}

// Path is the output file, empty before START.
func (s *PcapSink) Path() string {
	if s.out == nil {
		return ""
	}
	return s.out.path
}

func (s *PcapSink) Notify(ev pipeline.Event, v packet.View) error {
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
		return s.packet(v)
	case pipeline.TransmissionEnd:
		if !s.Finish() || s.out == nil {
			return nil
		}
		return s.close()
	}
	return fmt.Errorf("%s: unknown event %s", s.Name(), ev)
}

func (s *PcapSink) open() error {
	cfg := s.env.Config
	var err error
	if s.ep, err = capture.EndpointsFromConfig(cfg); err != nil {
		return err
	}
	if s.flushEvery, err = cfg.Int("pcap:flush_every", 1); err != nil {
		return err
	}
	if s.out, err = createOutput(cfg.String("pcap:filename", "")); err != nil {
		return err
	}
	if s.w, err = capture.NewPcapWriter(s.out); err != nil {
		_ = s.out.Close()
		s.out = nil
		return err
	}
	s.Log.Infof("writing %s", s.out.path)
	return nil
}

func (s *PcapSink) packet(v packet.View) error {
	frame, err := capture.EncodeFrame(s.ep, v)
	if err != nil {
		return err
	}
	if err := s.w.Add(v.CaptureTime(), frame); err != nil {
		return err
	}
	s.since++
	if s.flushEvery <= 0 || s.since < s.flushEvery {
		return nil
	}
	s.since = 0
	_, err = s.w.Flush(v.Wallclock())
	return err
}

func (s *PcapSink) close() error {
	_, err := s.w.FlushAll()
	if cerr := s.out.Close(); err == nil {
		err = cerr
	}
	s.Log.Infof("%s: %d records", s.out.path, s.w.Written())
	return err
}

// Written is the number of records on disk.
func (s *PcapSink) Written() int {
	if s.w == nil {
		return 0
	}
	return s.w.Written()
}
