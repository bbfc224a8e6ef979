package sim

import "time"

type RunResult struct {
	Scenario string
	Seed     uint64

	// Duration is the playout time of what was produced.
	Duration time.Duration

	ProducedPkts  int64
	ProducedBytes int64

	DroppedPkts     int64
	SubstitutedPkts int64

	DeliveredPkts  int64
	DeliveredBytes int64
	ReorderedPkts  int64

	// InterceptedPkts went through the interceptor chain.
	InterceptedPkts int64

	MeanDelay time.Duration
	MaxDelay  time.Duration

	Outputs  []string
	Uploaded []string
}

// LossRatio is the share of produced packets that never reached the sinks.
func (r RunResult) LossRatio() float64 {
	if r.ProducedPkts == 0 {
		return 0
	}
	return float64(r.ProducedPkts-r.DeliveredPkts) / float64(r.ProducedPkts)
}
