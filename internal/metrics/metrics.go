// Package metrics exports circle loss statistics as Prometheus metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/born-ml/circleloss/internal/nn"
)

// Observer records every forward pass on a Prometheus registry.
type Observer struct {
	// ForwardTotal counts forward passes by policy and similarity.
	ForwardTotal *prometheus.CounterVec
	// LossValue tracks the distribution of loss values by policy.
	LossValue *prometheus.HistogramVec
	// AlphaMean tracks the mean adaptive weight of each pair kind.
	AlphaMean *prometheus.HistogramVec
	// LastLoss holds the most recent loss value by policy.
	LastLoss *prometheus.GaugeVec
	// PairsTotal counts query/candidate pairs scored, by pair kind.
	PairsTotal *prometheus.CounterVec
}

// New registers the circle loss metrics on reg.
// Registering twice on the same registry panics, as with promauto.
func New(reg prometheus.Registerer) *Observer {
	factory := promauto.With(reg)

	return &Observer{
		ForwardTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "circleloss_forward_total",
				Help: "Total number of circle loss evaluations",
			},
			[]string{"policy", "similarity"},
		),
		LossValue: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "circleloss_loss_value",
				Help:    "Distribution of circle loss values",
				Buckets: []float64{0.01, 0.1, 0.5, 1, 2, 5, 10, 25, 50, 100},
			},
			[]string{"policy"},
		),
		AlphaMean: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "circleloss_alpha_mean",
				Help:    "Mean adaptive weight per evaluation",
				Buckets: prometheus.LinearBuckets(0, 0.25, 10),
			},
			[]string{"pair"},
		),
		LastLoss: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "circleloss_last_loss",
				Help: "Most recent circle loss value",
			},
			[]string{"policy"},
		),
		PairsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "circleloss_pairs_total",
				Help: "Total number of scored query/candidate pairs",
			},
			[]string{"pair"},
		),
	}
}

// ObserveForward implements nn.Observer.
func (o *Observer) ObserveForward(stats nn.ForwardStats) {
	policy := stats.Policy.String()

	o.ForwardTotal.WithLabelValues(policy, stats.Similarity.String()).Inc()
	o.LossValue.WithLabelValues(policy).Observe(stats.Loss)
	o.LastLoss.WithLabelValues(policy).Set(stats.Loss)
	o.AlphaMean.WithLabelValues("positive").Observe(stats.AlphaP.Mean)
	o.AlphaMean.WithLabelValues("negative").Observe(stats.AlphaN.Mean)
	o.PairsTotal.WithLabelValues("positive").Add(float64(stats.Queries * stats.Positives))
	o.PairsTotal.WithLabelValues("negative").Add(float64(stats.Queries * stats.Negatives))
}
