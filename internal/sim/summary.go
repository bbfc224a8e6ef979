package sim

import "github.com/pion/logging"

// EmitSummary logs the run result at info level.
func EmitSummary(log logging.LeveledLogger, r RunResult) {
	log.Infof("scenario=%s seed=%d duration=%s", r.Scenario, r.Seed, r.Duration)
	log.Infof("produced=%d delivered=%d dropped=%d substituted=%d reordered=%d",
		r.ProducedPkts, r.DeliveredPkts, r.DroppedPkts, r.SubstitutedPkts, r.ReorderedPkts)
	if r.InterceptedPkts > 0 {
		log.Infof("intercepted=%d", r.InterceptedPkts)
	}
	if r.ProducedPkts > 0 {
		log.Infof("loss_ratio=%.4f mean_delay=%s max_delay=%s", r.LossRatio(), r.MeanDelay, r.MaxDelay)
	}
	for _, o := range r.Outputs {
		log.Infof("wrote %s", o)
	}
	for _, u := range r.Uploaded {
		log.Infof("uploaded %s", u)
	}
}
