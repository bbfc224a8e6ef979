package filter

import (
	"fmt"
	"time"

	"github.com/lars-sto/rtp-capture-simulation/internal/codec"
	"github.com/lars-sto/rtp-capture-simulation/internal/packet"
	"github.com/lars-sto/rtp-capture-simulation/internal/pipeline"
)

// WavSink decodes what reaches it and renders it as a 16-bit mono WAV file,
// placing each packet at its capture time. Gaps stay silent and a late
// packet overwrites what was already there, like a receiver without a
// jitter buffer.
type WavSink struct {
	pipeline.Base
	env Env

	path    string
	start   time.Time
	rate    int
	samples []int16
	skipped int
}

func NewWavSink(env Env) *WavSink {
	return &WavSink{
		Base: pipeline.NewBase("wav", pipeline.KindWavSink, env.Logger),
		env:  env,
	}
}

func (s *WavSink) Notify(ev pipeline.Event, v packet.View) error {
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
		if !s.Finish() {
			return nil
		}
		return s.write()
	}
	return fmt.Errorf("%s: unknown event %s", s.Name(), ev)
}

func (s *WavSink) open() error {
	cfg := s.env.Config
	if s.path = cfg.String("wavfile_output:filename", ""); s.path == "" {
		return ErrNoOutput
	}
	var err error
	if s.start, err = StartTime(cfg); err != nil {
		return err
	}
	if s.rate, err = cfg.Int("wavfile_output:sample_rate", 8000); err != nil {
		return err
	}
	if s.rate <= 0 {
		return fmt.Errorf("wavfile_output:sample_rate must be positive, got %d", s.rate)
	}
	return nil
}

func (s *WavSink) packet(v packet.View) error {
	dec, err := codec.ForPayloadType(v.PayloadType())
	if err != nil {
		s.skipped++
		return pipeline.Warn(err)
	}
	if dec.SampleRate() != s.rate {
		s.skipped++
		return pipeline.Warn(fmt.Errorf("%s runs at %d Hz, output at %d Hz", dec.Name(), dec.SampleRate(), s.rate))
	}
	offset := v.CaptureTime().Sub(s.start)
	if offset < 0 {
		s.skipped++
		return pipeline.Warn(fmt.Errorf("packet %d captured before start", v.SequenceNumber()))
	}
	pos := int(offset * time.Duration(s.rate) / time.Second)
	for _, f := range v.Frames() {
		pcm, err := dec.Decode(f.Data)
		if err != nil {
			return pipeline.Warn(err)
		}
		if end := pos + len(pcm); end > len(s.samples) {
			s.samples = append(s.samples, make([]int16, end-len(s.samples))...)
		}
		copy(s.samples[pos:], pcm)
		pos += len(pcm)
	}
	return nil
}

func (s *WavSink) write() error {
	out, err := openOutput(s.path)
	if err != nil {
		return err
	}
	err = codec.WriteWAV(out, s.rate, s.samples)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	s.Log.Infof("%s: %d samples, %d packets skipped", s.path, len(s.samples), s.skipped)
	return err
}

// Samples is the rendered signal so far.
func (s *WavSink) Samples() []int16 { return s.samples }
