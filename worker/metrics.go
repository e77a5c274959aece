package worker

import (
	"github.com/rcrowley/go-metrics"
	log "github.com/sirupsen/logrus"
)

type campaignMetrics struct {
	registry  metrics.Registry
	attempted metrics.Counter
	succeeded metrics.Counter
	failed    metrics.Counter
	wins      metrics.Counter
	roundTime metrics.Timer
}

func newCampaignMetrics(registry metrics.Registry) *campaignMetrics {
	return &campaignMetrics{
		registry:  registry,
		attempted: metrics.GetOrRegisterCounter("rounds.attempted", registry),
		succeeded: metrics.GetOrRegisterCounter("rounds.succeeded", registry),
		failed:    metrics.GetOrRegisterCounter("rounds.failed", registry),
		wins:      metrics.GetOrRegisterCounter("wins", registry),
		roundTime: metrics.GetOrRegisterTimer("rounds.duration", registry),
	}
}

func (m *campaignMetrics) failure(kind string) {
	m.failed.Inc(1)
	metrics.GetOrRegisterCounter("failures."+kind, m.registry).Inc(1)
}

// logSnapshot writes every counter and the mean of every timer.
func (m *campaignMetrics) logSnapshot() {
	fields := log.Fields{}
	m.registry.Each(func(name string, i interface{}) {
		switch v := i.(type) {
		case metrics.Counter:
			fields[name] = v.Count()
		case metrics.Timer:
			fields[name+".mean_ms"] = v.Mean() / 1e6
		}
	})
	log.WithFields(fields).WithField("module", "metrics").Info("campaign metrics")
}
