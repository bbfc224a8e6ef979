package sim

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/lars-sto/rtp-capture-simulation/internal/filter"
	"github.com/pion/interceptor"
	"github.com/pion/interceptor/pkg/packetdump"
	"github.com/pion/rtp"
)

// rtpTrace runs delivered packets through a pion interceptor chain whose
// packet dumper writes one text line per packet.
type rtpTrace struct {
	file   *os.File
	chain  interceptor.Interceptor
	info   *interceptor.StreamInfo
	writer interceptor.RTPWriter
}

func newRTPTrace(path string, info *interceptor.StreamInfo, next interceptor.RTPWriter) (*rtpTrace, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	dump, err := packetdump.NewSenderInterceptor(
		packetdump.RTPWriter(f),
		packetdump.RTPFormatter(traceLine),
	)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	reg := &interceptor.Registry{}
	reg.Add(dump)
	chain, err := reg.Build("")
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	if next == nil {
		next = interceptor.RTPWriterFunc(func(_ *rtp.Header, payload []byte, _ interceptor.Attributes) (int, error) {
			return len(payload), nil
		})
	}
	return &rtpTrace{
		file:   f,
		chain:  chain,
		info:   info,
		writer: chain.BindLocalStream(info, next),
	}, nil
}

// Close stops the dumper, which flushes pending lines, then closes the file.
func (t *rtpTrace) Close() error {
	t.chain.UnbindLocalStream(t.info)
	err := t.chain.Close()
	if cerr := t.file.Close(); err == nil {
		err = cerr
	}
	return err
}

func traceLine(p *rtp.Packet, a interceptor.Attributes) string {
	d, _ := a.Get(filter.DelayAttribute).(time.Duration)
	return fmt.Sprintf("ssrc=%08x seq=%d ts=%d pt=%d marker=%t size=%d delay_us=%d\n",
		p.SSRC, p.SequenceNumber, p.Timestamp, p.PayloadType, p.Marker, len(p.Payload), d.Microseconds())
}
