package filter

import (
	"fmt"
	"text/template"
	"time"

	"github.com/lars-sto/rtp-capture-simulation/internal/codec"
	"github.com/lars-sto/rtp-capture-simulation/internal/packet"
	"github.com/lars-sto/rtp-capture-simulation/internal/pipeline"
)

var sippTemplate = template.Must(template.New("sipp").Parse(`v=0
o=user1 53655765 2353687637 IN IP4 {{.SrcIP}}
s=-
c=IN IP4 {{.SrcIP}}
t=0 0
m=audio {{.SrcPort}} RTP/AVP {{.PayloadType}}
a=rtpmap:{{.PayloadType}} {{.Encoding}}/{{.ClockRate}}

<nop>
  <action>
    <exec play_pcap_audio="{{.Pcap}}"/>
  </action>
</nop>
<pause milliseconds="{{.Milliseconds}}"/>
`))

type sippData struct {
	SrcIP        string
	SrcPort      uint16
	PayloadType  uint8
	Encoding     string
	ClockRate    int
	Pcap         string
	Milliseconds int64
}

// Sipp passes everything through and, at END, prints the SDP body and the
// scenario fragment a SIPp script needs to replay the generated pcap.
type Sipp struct {
	pipeline.Base
	env Env

	enabled     bool
	seen        bool
	pt          uint8
	first, last time.Time
	lastDur     time.Duration
}

func NewSipp(env Env) *Sipp {
	return &Sipp{
		Base: pipeline.NewBase("sipp", pipeline.KindSipp, env.Logger),
		env:  env,
	}
}

func (s *Sipp) Notify(ev pipeline.Event, v packet.View) error {
	switch ev {
	case pipeline.TransmissionStart:
		if err := s.Begin(); err != nil {
			return err
		}
		var err error
		if s.enabled, err = s.env.Config.Bool("sipp:enabled", false); err != nil {
			return err
		}
	case pipeline.NewPacket:
		if err := s.Running(); err != nil {
			return err
		}
		s.track(v)
	case pipeline.TransmissionEnd:
		var err error
		if s.Finish() && s.enabled {
			err = s.report()
		}
		if fwd := s.NotifyObservers(ev, v); err == nil {
			err = fwd
		}
		return err
	default:
		return fmt.Errorf("%s: unknown event %s", s.Name(), ev)
	}
	return s.NotifyObservers(ev, v)
}

func (s *Sipp) track(v packet.View) {
	at := v.CaptureTime()
	if !s.seen || at.Before(s.first) {
		s.first = at
	}
	if !s.seen || !at.Before(s.last) {
		s.last = at
		s.lastDur = v.Duration()
	}
	s.pt = v.PayloadType()
	s.seen = true
}

// Playout is the time from the first captured packet to the end of the last.
func (s *Sipp) Playout() time.Duration {
	if !s.seen {
		return 0
	}
	return s.last.Sub(s.first) + s.lastDur
}

func (s *Sipp) report() error {
	cfg := s.env.Config
	srcPort, err := cfg.Int("global:src_port", 8001)
	if err != nil {
		return err
	}
	d := sippData{
		SrcIP:        cfg.String("global:src_ip", "127.0.0.1"),
		SrcPort:      uint16(srcPort),
		PayloadType:  s.pt,
		Encoding:     "PCMU",
		ClockRate:    8000,
		Pcap:         cfg.String("pcap:filename", ""),
		Milliseconds: s.Playout().Milliseconds(),
	}
	if c, err := codec.ForPayloadType(s.pt); err == nil {
		d.Encoding = encodingName(c.Name())
		d.ClockRate = c.SampleRate()
	}
	out, closeFn, err := textOutput(cfg.String("sipp:filename", ""), s.env.stdout())
	if err != nil {
		return err
	}
	err = sippTemplate.Execute(out, d)
	if cerr := closeFn(); err == nil {
		err = cerr
	}
	return err
}

func encodingName(codecName string) string {
	switch codecName {
	case "pcmu":
		return "PCMU"
	case "pcma":
		return "PCMA"
	}
	return codecName
}
