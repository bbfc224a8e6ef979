package filter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/lars-sto/rtp-capture-simulation/internal/codec"
	"github.com/lars-sto/rtp-capture-simulation/internal/packet"
	"github.com/lars-sto/rtp-capture-simulation/internal/pipeline"
)

var ErrProducerInput = errors.New("filter: producer accepts no events")

type ProducerStats struct {
	Packets int64
	Frames  int64
	Samples int64
}

// Producer encodes PCM from a Source and emits one RTP packet per
// global:rtp_in_frame frames. It is the root of a pipeline.
type Producer struct {
	pipeline.Base
	env Env
	enc codec.Encoder
	src codec.Source

	stats ProducerStats
}

func NewProducer(env Env, enc codec.Encoder, src codec.Source) *Producer {
	return &Producer{
		Base: pipeline.NewBase("producer", pipeline.KindProducer, env.Logger),
		env:  env,
		enc:  enc,
		src:  src,
	}
}

func (p *Producer) Notify(ev pipeline.Event, _ packet.View) error {
	return fmt.Errorf("%w: %s", ErrProducerInput, ev)
}

func (p *Producer) Stats() ProducerStats { return p.stats }

type producerParams struct {
	perPacket int
	seq       uint16
	ts        uint32
	start     time.Time
}

func (p *Producer) params() (producerParams, error) {
	cfg := p.env.Config
	var errs []error
	perPacket, err := cfg.Int("global:rtp_in_frame", 1)
	errs = append(errs, err)
	seq, err := cfg.Int("global:start_seq", 0)
	errs = append(errs, err)
	ts, err := cfg.Int("global:start_rtp_ts", 0)
	errs = append(errs, err)
	start, err := StartTime(cfg)
	errs = append(errs, err)
	if err := errors.Join(errs...); err != nil {
		return producerParams{}, err
	}
	if perPacket < 1 {
		return producerParams{}, fmt.Errorf("global:rtp_in_frame must be positive, got %d", perPacket)
	}
	return producerParams{perPacket: perPacket, seq: uint16(seq), ts: uint32(ts), start: start}, nil
}

// Run drives the whole pipeline: START, one NEW_PACKET per accumulated packet
// and END. A fatal observer error stops production after the broadcast that
// raised it; END is still delivered so sinks can close their files.
func (p *Producer) Run(ctx context.Context) error {
	if err := p.Begin(); err != nil {
		return err
	}
	defer p.Finish()

	prm, err := p.params()
	if err != nil {
		return err
	}
	if err := p.NotifyObservers(pipeline.TransmissionStart, packet.View{}); err != nil {
		p.end()
		return err
	}

	runErr := p.produce(ctx, prm)
	if err := p.end(); runErr == nil {
		runErr = err
	}
	return runErr
}

func (p *Producer) end() error {
	return p.NotifyObservers(pipeline.TransmissionEnd, packet.View{})
}

func (p *Producer) produce(ctx context.Context, prm producerParams) error {
	frameSize := p.enc.InputFrameSize()
	frameDur := codec.FrameDuration(p.enc)
	pcm := make([]int16, frameSize)

	seq, ts, wall := prm.seq, prm.ts, prm.start
	marker := true
	var cur *packet.Packet

	emit := func() error {
		n := cur.FrameCount()
		err := p.NotifyObservers(pipeline.NewPacket, cur.View())
		cur.Release()
		cur = nil
		p.stats.Packets++
		seq++
		ts += uint32(n * frameSize)
		wall = wall.Add(time.Duration(n) * frameDur)
		marker = false
		return err
	}

	for {
		if err := ctx.Err(); err != nil {
			if cur != nil {
				cur.Release()
			}
			return err
		}
		n, err := readFrame(p.src, pcm)
		if err != nil && !errors.Is(err, io.EOF) {
			if cur != nil {
				cur.Release()
			}
			return fmt.Errorf("read pcm: %w", err)
		}
		if n == 0 {
			break
		}
		clear(pcm[n:])

		data, encErr := p.enc.Encode(pcm)
		if encErr != nil {
			return fmt.Errorf("encode %s: %w", p.enc.Name(), encErr)
		}
		if cur == nil {
			cur = packet.New(p.enc.PayloadType(), seq, marker, ts, wall)
		}
		if err := cur.AddFrame(data, frameDur); err != nil {
			cur.Release()
			return err
		}
		p.stats.Frames++
		p.stats.Samples += int64(n)

		if cur.FrameCount() == prm.perPacket {
			if err := emit(); err != nil {
				return err
			}
		}
		if n < frameSize {
			break
		}
	}
	if cur != nil {
		return emit()
	}
	return nil
}

// readFrame fills buf from src, returning fewer samples only at end of input.
func readFrame(src codec.Source, buf []int16) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := src.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
		if n == 0 {
			return total, io.ErrNoProgress
		}
	}
	return total, nil
}
