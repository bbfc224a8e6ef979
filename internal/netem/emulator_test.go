package netem

import (
	"testing"
	"time"

	"github.com/lars-sto/rtp-capture-simulation/internal/config"
	"github.com/lars-sto/rtp-capture-simulation/internal/packet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func frameOf(b byte) []packet.Frame {
	return []packet.Frame{{Data: []byte{b, b}, Duration: 20 * time.Millisecond}}
}

func mustNew(t *testing.T, loss LossModel, delay DelayModel, seed int64) *Emulator {
	t.Helper()
	e, err := New(loss, delay, NewRand(seed))
	require.NoError(t, err)
	return e
}

func TestNoLossNeverLoses(t *testing.T) {
	e := mustNew(t, NoLoss{}, NoDelay{}, 1)
	for i := 0; i < 10000; i++ {
		d := e.Next(frameOf(byte(i)))
		require.False(t, d.Lost)
		require.Zero(t, d.Delay)
	}
}

func TestIndependentLossClamped(t *testing.T) {
	always := mustNew(t, IndependentLoss{P: 3}, nil, 1)
	never := mustNew(t, IndependentLoss{P: -1}, nil, 1)
	for i := 0; i < 1000; i++ {
		assert.True(t, always.Next(nil).Lost)
		assert.False(t, never.Next(nil).Lost)
	}

	e := mustNew(t, IndependentLoss{P: 0.2}, nil, 5)
	lost := 0
	const n = 20000
	for i := 0; i < n; i++ {
		if e.Next(nil).Lost {
			lost++
		}
	}
	assert.InDelta(t, 0.2, float64(lost)/n, 0.02)
}

func TestMarkovAbsorbingState(t *testing.T) {
	e := mustNew(t, MarkovLoss{P01: 0.3, P11: 1}, nil, 9)
	seenLoss := false
	for i := 0; i < 5000; i++ {
		lost := e.Next(nil).Lost
		if seenLoss {
			require.True(t, lost, "packet %d delivered after entering the loss state", i)
		}
		seenLoss = seenLoss || lost
	}
	assert.True(t, seenLoss)

	quiet := mustNew(t, MarkovLoss{P01: 0, P11: 1}, nil, 9)
	for i := 0; i < 1000; i++ {
		require.False(t, quiet.Next(nil).Lost)
	}
}

func TestChainedWindowsAreAllOrNothing(t *testing.T) {
	const n = 4
	e := mustNew(t, ChainedLoss{Rate: 1, N: n}, nil, 3)
	lostWindows := 0
	for w := 0; w < 2000; w++ {
		first := e.Next(nil).Lost
		for k := 1; k < n; k++ {
			require.Equal(t, first, e.Next(nil).Lost, "window %d split at %d", w, k)
		}
		if first {
			lostWindows++
		}
	}
	// one draw per window at rate/N
	assert.InDelta(t, 0.25, float64(lostWindows)/2000, 0.04)
}

func TestChainedSizeClamped(t *testing.T) {
	e := mustNew(t, ChainedLoss{Rate: 0.5, N: 0}, nil, 1)
	assert.Equal(t, 1, e.Loss().(ChainedLoss).N)
}

func TestInterpolatedReplaysLastKeptWindow(t *testing.T) {
	const n = 3
	e := mustNew(t, InterpolatedChainedLoss{Rate: 1, N: n}, nil, 17)

	var cache [][]byte
	replayed := 0
	for w := 0; w < 500; w++ {
		var window [][]byte
		var decisions []Decision
		for k := 0; k < n; k++ {
			in := frameOf(byte(w*n + k))
			d := e.Next(in)
			decisions = append(decisions, d)
			window = append(window, in[0].Data)
		}

		switch {
		case !decisions[0].Lost && !decisions[0].Substituted():
			for _, d := range decisions {
				require.False(t, d.Lost)
				require.False(t, d.Substituted())
			}
			cache = window
		case decisions[0].Lost:
			require.Nil(t, cache, "window %d dropped although a kept window exists", w)
			for _, d := range decisions {
				require.True(t, d.Lost)
			}
		default:
			require.NotNil(t, cache)
			for k, d := range decisions {
				require.False(t, d.Lost)
				require.Equal(t, cache[k], d.Frames[0].Data, "window %d pos %d", w, k)
			}
			replayed++
		}
	}
	assert.Positive(t, replayed)
}

func TestSameSeedSameDecisions(t *testing.T) {
	run := func() []Decision {
		e := mustNew(t, MarkovLoss{P01: 0.1, P11: 0.6}, UniformDelay{Min: 0, Max: 5 * time.Millisecond}, 1234)
		out := make([]Decision, 200)
		for i := range out {
			out[i] = e.Next(nil)
		}
		return out
	}
	assert.Equal(t, run(), run())
}

func TestUniformDelayBounds(t *testing.T) {
	e := mustNew(t, nil, UniformDelay{Min: 40 * time.Millisecond, Max: 10 * time.Millisecond}, 2)
	sawLow, sawHigh := false, false
	for i := 0; i < 20000; i++ {
		d := e.Next(nil).Delay
		require.GreaterOrEqual(t, d, 10*time.Millisecond)
		require.LessOrEqual(t, d, 40*time.Millisecond)
		require.Zero(t, d%time.Microsecond)
		sawLow = sawLow || d < 11*time.Millisecond
		sawHigh = sawHigh || d > 39*time.Millisecond
	}
	assert.True(t, sawLow && sawHigh)

	_, err := New(nil, UniformDelay{Min: -1}, NewRand(1))
	assert.ErrorIs(t, err, ErrBadParameter)
}

func TestGammaDelayMean(t *testing.T) {
	e := mustNew(t, nil, GammaDelay{Shape: 2, Scale: 1000}, 8)
	var sum time.Duration
	const n = 20000
	for i := 0; i < n; i++ {
		d := e.Next(nil).Delay
		require.GreaterOrEqual(t, d, time.Duration(0))
		sum += d
	}
	mean := float64(sum/n) / float64(time.Microsecond)
	assert.InDelta(t, 2000, mean, 100)

	_, err := New(nil, GammaDelay{Shape: 0, Scale: 1}, NewRand(1))
	assert.ErrorIs(t, err, ErrBadParameter)
}

func TestModelsFromConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	m, err := LossFromConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, NoLoss{}, m)

	cfg.Set("network_emulator:loss_model", "chained_int")
	cfg.Set("network_emulator:loss_rate", "0.4")
	cfg.Set("network_emulator:chain_size", "5")
	m, err = LossFromConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, InterpolatedChainedLoss{Rate: 0.4, N: 5}, m)

	cfg.Set("network_emulator:loss_model", "bursty")
	_, err = LossFromConfig(cfg)
	assert.ErrorIs(t, err, ErrUnknownModel)

	cfg.Set("network_emulator:delay_model", "uniform")
	cfg.Set("network_emulator:delay_uniform_min", "100")
	cfg.Set("network_emulator:delay_uniform_max", "900")
	dm, err := DelayFromConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, UniformDelay{Min: 100 * time.Microsecond, Max: 900 * time.Microsecond}, dm)

	cfg.Set("network_emulator:delay_model", "gamma")
	cfg.Set("network_emulator:delay_gamma_shape", "abc")
	_, err = DelayFromConfig(cfg)
	assert.ErrorIs(t, err, config.ErrInvalidValue)
}
