// Package netem decides per packet whether the simulated network loses it
// and how long it is delayed.
package netem

import (
	"fmt"
	"time"

	"github.com/lars-sto/rtp-capture-simulation/internal/packet"
	"gonum.org/v1/gonum/stat/distuv"
)

// Decision is the verdict for one packet. Frames is non-nil when the packet
// survives only because its frames were replaced by a replayed window.
type Decision struct {
	Lost   bool
	Delay  time.Duration
	Frames []packet.Frame
}

func (d Decision) Substituted() bool { return d.Frames != nil }

// Emulator is a stochastic state machine advanced once per packet. It is not
// safe for concurrent use; draws must come from one sequential caller.
type Emulator struct {
	loss  LossModel
	delay DelayModel
	rng   *Rand

	prevLost bool // markov

	pos        int  // position inside the current window
	windowLost bool // fate of the current window
	window     [][]packet.Frame
	cache      [][]packet.Frame // last fully delivered window

	gamma *distuv.Gamma
}

// New validates and normalizes the models: probabilities are clamped to
// [0,1], window sizes to at least 1 and swapped uniform bounds are reordered.
func New(loss LossModel, delay DelayModel, rng *Rand) (*Emulator, error) {
	if rng == nil {
		return nil, fmt.Errorf("%w: nil generator", ErrBadParameter)
	}
	if loss == nil {
		loss = NoLoss{}
	}
	if delay == nil {
		delay = NoDelay{}
	}
	e := &Emulator{rng: rng}

	switch m := loss.(type) {
	case NoLoss:
		e.loss = m
	case IndependentLoss:
		m.P = clamp01(m.P)
		e.loss = m
	case MarkovLoss:
		m.P01, m.P11 = clamp01(m.P01), clamp01(m.P11)
		e.loss = m
	case ChainedLoss:
		m.Rate, m.N = clamp01(m.Rate), max(m.N, 1)
		e.loss = m
	case InterpolatedChainedLoss:
		m.Rate, m.N = clamp01(m.Rate), max(m.N, 1)
		e.loss = m
	default:
		return nil, fmt.Errorf("%w: loss %T", ErrUnknownModel, loss)
	}

	switch m := delay.(type) {
	case NoDelay:
		e.delay = m
	case UniformDelay:
		if m.Min < 0 || m.Max < 0 {
			return nil, fmt.Errorf("%w: negative uniform delay bounds", ErrBadParameter)
		}
		if m.Min > m.Max {
			m.Min, m.Max = m.Max, m.Min
		}
		e.delay = m
	case GammaDelay:
		if m.Shape <= 0 || m.Scale <= 0 {
			return nil, fmt.Errorf("%w: gamma shape=%g scale=%g", ErrBadParameter, m.Shape, m.Scale)
		}
		e.delay = m
		e.gamma = &distuv.Gamma{Alpha: m.Shape, Beta: 1 / m.Scale, Src: rng}
	default:
		return nil, fmt.Errorf("%w: delay %T", ErrUnknownModel, delay)
	}
	return e, nil
}

func (e *Emulator) Loss() LossModel   { return e.loss }
func (e *Emulator) Delay() DelayModel { return e.delay }

// Next advances the emulator by one packet. frames are the packet's current
// frames; they are read, never retained or modified. Lost packets advance the
// history exactly like delivered ones.
func (e *Emulator) Next(frames []packet.Frame) Decision {
	var d Decision

	switch m := e.loss.(type) {
	case IndependentLoss:
		d.Lost = e.rng.Float64() < m.P
	case MarkovLoss:
		threshold := m.P01
		if e.prevLost {
			threshold = m.P11
		}
		e.prevLost = e.rng.Float64() < threshold
		d.Lost = e.prevLost
	case ChainedLoss:
		if e.pos == 0 {
			e.windowLost = e.rng.Float64() < m.Rate/float64(m.N)
		}
		d.Lost = e.windowLost
		e.pos = (e.pos + 1) % m.N
	case InterpolatedChainedLoss:
		d = e.nextInterpolated(m, frames)
	}

	d.Delay = e.nextDelay()
	return d
}

func (e *Emulator) nextInterpolated(m InterpolatedChainedLoss, frames []packet.Frame) Decision {
	var d Decision
	pos := e.pos
	if pos == 0 {
		e.windowLost = e.rng.Float64() < m.Rate/float64(m.N)
		e.window = nil
	}
	e.pos = (pos + 1) % m.N

	if !e.windowLost {
		e.window = append(e.window, packet.CloneFrames(frames))
		if pos == m.N-1 {
			e.cache, e.window = e.window, nil
		}
		return d
	}
	if e.cache == nil {
		d.Lost = true
		return d
	}
	d.Frames = packet.CloneFrames(e.cache[pos])
	if d.Frames == nil {
		d.Frames = []packet.Frame{}
	}
	return d
}

func (e *Emulator) nextDelay() time.Duration {
	switch m := e.delay.(type) {
	case UniformDelay:
		lo, hi := m.Min.Microseconds(), m.Max.Microseconds()
		return time.Duration(lo+e.rng.Int64N(hi-lo+1)) * time.Microsecond
	case GammaDelay:
		return time.Duration(e.gamma.Rand() * float64(time.Microsecond))
	}
	return 0
}
