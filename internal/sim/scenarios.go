package sim

import (
	"fmt"
	"maps"
	"slices"

	"github.com/lars-sto/rtp-capture-simulation/internal/config"
)

// Scenario is a named set of network_emulator overrides.
type Scenario struct {
	Name     string
	Settings map[string]string
}

var scenarios = map[string]Scenario{
	"clean": {Name: "clean", Settings: map[string]string{
		"network_emulator:loss_model":  "none",
		"network_emulator:delay_model": "none",
	}},
	"random_loss": {Name: "random_loss", Settings: map[string]string{
		"network_emulator:loss_model": "independent",
		"network_emulator:loss_rate":  "0.05",
	}},
	"bursty_loss": {Name: "bursty_loss", Settings: map[string]string{
		"network_emulator:loss_model": "markov",
		"network_emulator:loss_0_1":   "0.02",
		"network_emulator:loss_1_1":   "0.6",
	}},
	"chained_loss": {Name: "chained_loss", Settings: map[string]string{
		"network_emulator:loss_model": "chained",
		"network_emulator:loss_rate":  "0.1",
		"network_emulator:chain_size": "3",
	}},
	"interpolated_loss": {Name: "interpolated_loss", Settings: map[string]string{
		"network_emulator:loss_model": "chained_int",
		"network_emulator:loss_rate":  "0.1",
		"network_emulator:chain_size": "3",
	}},
	"jitter": {Name: "jitter", Settings: map[string]string{
		"network_emulator:delay_model":       "uniform",
		"network_emulator:delay_uniform_min": "20000",
		"network_emulator:delay_uniform_max": "80000",
	}},
	"gamma_jitter": {Name: "gamma_jitter", Settings: map[string]string{
		"network_emulator:delay_model":       "gamma",
		"network_emulator:delay_gamma_shape": "2",
		"network_emulator:delay_gamma_scale": "15000",
	}},
}

// Scenarios lists the preset names.
func Scenarios() []string {
	return slices.Sorted(maps.Keys(scenarios))
}

// ApplyScenario writes the preset's settings into cfg.
func ApplyScenario(cfg *config.Config, name string) (Scenario, error) {
	sc, ok := scenarios[name]
	if !ok {
		return Scenario{}, fmt.Errorf("unknown scenario %q (have %v)", name, Scenarios())
	}
	for k, v := range sc.Settings {
		cfg.Set(k, v)
	}
	return sc, nil
}
