package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"donorcal/internal/eligibility"
)

// Metrics provides observability for eligibility checks and record entry.
type Metrics struct {
	// Verdicts by donation type and reason ("available" when not blocked)
	Verdicts *prometheus.CounterVec

	// Full availability check latency, including profile and history loads
	EvaluateLatency prometheus.Histogram

	// Records created by donation type
	Recorded *prometheus.CounterVec
}

// New registers the donation metrics on reg. A nil registerer uses the default one.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		Verdicts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "donorcal_eligibility_verdicts_total",
			Help: "Eligibility verdicts by donation type and reason",
		}, []string{"type", "reason"}),

		EvaluateLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "donorcal_eligibility_evaluate_duration_seconds",
			Help:    "Duration of availability checks including data loading",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),

		Recorded: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "donorcal_donations_recorded_total",
			Help: "Donation records created by type",
		}, []string{"type"}),
	}
}

// ObserveVerdicts counts each verdict of one evaluation.
func (m *Metrics) ObserveVerdicts(verdicts eligibility.Verdicts) {
	if m == nil {
		return
	}
	for _, v := range verdicts {
		reason := "available"
		if !v.Available {
			reason = string(v.Reason)
		}
		m.Verdicts.WithLabelValues(string(v.Type), reason).Inc()
	}
}

func (m *Metrics) ObserveEvaluateLatency(d time.Duration) {
	if m != nil {
		m.EvaluateLatency.Observe(d.Seconds())
	}
}

func (m *Metrics) IncrementRecorded(t eligibility.DonationType) {
	if m != nil {
		m.Recorded.WithLabelValues(string(t)).Inc()
	}
}
