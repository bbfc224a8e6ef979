package filter

import (
	"fmt"

	"github.com/lars-sto/rtp-capture-simulation/internal/netem"
	"github.com/lars-sto/rtp-capture-simulation/internal/packet"
	"github.com/lars-sto/rtp-capture-simulation/internal/pipeline"
)

type ImpairmentStats struct {
	Passed      int64
	Dropped     int64
	Substituted int64
}

// Impairment applies one half of the network emulator. The loss filter
// drops or replays packets, the delay filter adds a drawn one-way delay.
// Both read their model from network_emulator:* at START and share the
// random source so a seed reproduces the whole run.
type Impairment struct {
	pipeline.Base
	env Env
	rng *netem.Rand
	em  *netem.Emulator

	stats ImpairmentStats
}

func NewLoss(env Env, rng *netem.Rand) *Impairment {
	return &Impairment{
		Base: pipeline.NewBase("loss", pipeline.KindLoss, env.Logger),
		env:  env,
		rng:  rng,
	}
}

func NewDelay(env Env, rng *netem.Rand) *Impairment {
	return &Impairment{
		Base: pipeline.NewBase("delay", pipeline.KindDelay, env.Logger),
		env:  env,
		rng:  rng,
	}
}

func (f *Impairment) Stats() ImpairmentStats { return f.stats }

// Emulator is nil before START.
func (f *Impairment) Emulator() *netem.Emulator { return f.em }

func (f *Impairment) Notify(ev pipeline.Event, v packet.View) error {
	switch ev {
	case pipeline.TransmissionStart:
		if err := f.Begin(); err != nil {
			return err
		}
		if err := f.start(); err != nil {
			return err
		}
		return f.NotifyObservers(ev, v)
	case pipeline.NewPacket:
		if err := f.Running(); err != nil {
			return err
		}
		return f.packet(v)
	case pipeline.TransmissionEnd:
		if f.Finish() {
			f.Log.Debugf("passed=%d dropped=%d substituted=%d",
				f.stats.Passed, f.stats.Dropped, f.stats.Substituted)
		}
		return f.NotifyObservers(ev, v)
	}
	return fmt.Errorf("%s: unknown event %s", f.Name(), ev)
}

func (f *Impairment) start() error {
	var (
		loss  netem.LossModel  = netem.NoLoss{}
		delay netem.DelayModel = netem.NoDelay{}
		err   error
	)
	if f.Kind() == pipeline.KindLoss {
		loss, err = netem.LossFromConfig(f.env.Config)
	} else {
		delay, err = netem.DelayFromConfig(f.env.Config)
	}
	if err != nil {
		return err
	}
	rng := f.rng
	if rng == nil {
		seed, err := f.env.Config.Int("network_emulator:random_seed", 0)
		if err != nil {
			return err
		}
		rng = netem.NewRand(int64(seed))
	}
	f.em, err = netem.New(loss, delay, rng)
	if err != nil {
		return err
	}
	f.Log.Infof("loss=%s delay=%s seed=%d", loss.Name(), delay.Name(), rng.Seed())
	return nil
}

func (f *Impairment) packet(v packet.View) error {
	c := v.Clone()
	d := f.em.Next(c.Frames())
	if d.Lost {
		c.Release()
		f.stats.Dropped++
		return nil
	}
	f.stats.Passed++
	if !d.Substituted() && d.Delay == 0 {
		c.Release()
		return f.NotifyObservers(pipeline.NewPacket, v)
	}
	if d.Substituted() {
		if err := c.ReplaceFrames(d.Frames); err != nil {
			c.Release()
			return err
		}
		f.stats.Substituted++
	}
	c.Delay += d.Delay
	err := f.NotifyObservers(pipeline.NewPacket, c.View())
	c.Release()
	return err
}
