package netem

import (
	"errors"
	"fmt"
	"time"

	"github.com/lars-sto/rtp-capture-simulation/internal/config"
)

var (
	ErrUnknownModel = errors.New("netem: unknown model")
	ErrBadParameter = errors.New("netem: bad model parameter")
)

// LossModel is one of NoLoss, IndependentLoss, MarkovLoss, ChainedLoss or
// InterpolatedChainedLoss.
type LossModel interface {
	Name() string
	lossModel()
}

type NoLoss struct{}

// IndependentLoss drops each packet with probability P.
type IndependentLoss struct {
	P float64
}

// MarkovLoss is a two state Gilbert-Elliott chain. P01 is the loss
// probability after a delivered packet, P11 after a lost one.
type MarkovLoss struct {
	P01 float64
	P11 float64
}

// ChainedLoss splits the stream into windows of N packets and drops whole
// windows, deciding once per window with probability Rate/N.
type ChainedLoss struct {
	Rate float64
	N    int
}

// InterpolatedChainedLoss is ChainedLoss that replays the frames of the last
// fully delivered window instead of dropping, once such a window exists.
type InterpolatedChainedLoss struct {
	Rate float64
	N    int
}

func (NoLoss) Name() string                  { return "none" }
func (IndependentLoss) Name() string         { return "independent" }
func (MarkovLoss) Name() string              { return "markov" }
func (ChainedLoss) Name() string             { return "chained" }
func (InterpolatedChainedLoss) Name() string { return "chained_int" }

func (NoLoss) lossModel()                  {}
func (IndependentLoss) lossModel()         {}
func (MarkovLoss) lossModel()              {}
func (ChainedLoss) lossModel()             {}
func (InterpolatedChainedLoss) lossModel() {}

// DelayModel is one of NoDelay, UniformDelay or GammaDelay.
type DelayModel interface {
	Name() string
	delayModel()
}

type NoDelay struct{}

// UniformDelay draws uniformly from [Min, Max] at microsecond resolution.
type UniformDelay struct {
	Min time.Duration
	Max time.Duration
}

// GammaDelay draws Gamma(Shape, Scale) microseconds; the mean is Shape*Scale.
type GammaDelay struct {
	Shape float64
	Scale float64
}

func (NoDelay) Name() string      { return "none" }
func (UniformDelay) Name() string { return "uniform" }
func (GammaDelay) Name() string   { return "gamma" }

func (NoDelay) delayModel()      {}
func (UniformDelay) delayModel() {}
func (GammaDelay) delayModel()   {}

const section = "network_emulator:"

// LossFromConfig reads the network_emulator loss keys.
func LossFromConfig(cfg *config.Config) (LossModel, error) {
	var errs []error
	float := func(key string) float64 {
		v, err := cfg.Float(section+key, 0)
		errs = append(errs, err)
		return v
	}
	integer := func(key string, def int) int {
		v, err := cfg.Int(section+key, def)
		errs = append(errs, err)
		return v
	}

	var m LossModel
	switch name := cfg.String(section+"loss_model", "none"); name {
	case "none":
		m = NoLoss{}
	case "independent":
		m = IndependentLoss{P: float("loss_rate")}
	case "markov":
		m = MarkovLoss{P01: float("loss_0_1"), P11: float("loss_1_1")}
	case "chained":
		m = ChainedLoss{Rate: float("loss_rate"), N: integer("chain_size", 1)}
	case "chained_int":
		m = InterpolatedChainedLoss{Rate: float("loss_rate"), N: integer("chain_size", 1)}
	default:
		return nil, fmt.Errorf("%w: loss_model=%q", ErrUnknownModel, name)
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return m, nil
}

// DelayFromConfig reads the network_emulator delay keys.
func DelayFromConfig(cfg *config.Config) (DelayModel, error) {
	switch name := cfg.String(section+"delay_model", "none"); name {
	case "none":
		return NoDelay{}, nil
	case "uniform":
		lo, err1 := cfg.Int(section+"delay_uniform_min", 0)
		hi, err2 := cfg.Int(section+"delay_uniform_max", 0)
		if err := errors.Join(err1, err2); err != nil {
			return nil, err
		}
		return UniformDelay{Min: time.Duration(lo) * time.Microsecond, Max: time.Duration(hi) * time.Microsecond}, nil
	case "gamma":
		shape, err1 := cfg.Float(section+"delay_gamma_shape", 0)
		scale, err2 := cfg.Float(section+"delay_gamma_scale", 0)
		if err := errors.Join(err1, err2); err != nil {
			return nil, err
		}
		return GammaDelay{Shape: shape, Scale: scale}, nil
	default:
		return nil, fmt.Errorf("%w: delay_model=%q", ErrUnknownModel, name)
	}
}
