package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	namespace = "recon"
	resultOK  = "ok"
	resultErr = "failed"
)

// Prometheus exports reconciliation outcomes as Prometheus collectors.
type Prometheus struct {
	extractions *prometheus.CounterVec
	matches     *prometheus.CounterVec
	similarity  prometheus.Histogram
}

// NewPrometheus registers the collectors with reg. A nil registerer falls
// back to the default registry. Registering twice against the same registry
// reuses the collectors already present.
func NewPrometheus(reg prometheus.Registerer) (*Prometheus, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	p := &Prometheus{
		extractions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "extract",
				Name:      "responses_total",
				Help:      "Model responses processed, by winning extraction strategy.",
			},
			[]string{"strategy", "result"},
		),
		matches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "patch",
				Name:      "matches_total",
				Help:      "Patches located or rejected, by matching strategy.",
			},
			[]string{"strategy", "result"},
		),
		similarity: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "patch",
				Name:      "match_similarity",
				Help:      "Similarity score of accepted patch matches.",
				Buckets:   []float64{0.5, 0.6, 0.7, 0.8, 0.9, 0.95, 0.99, 1},
			},
		),
	}

	if err := reg.Register(p.extractions); err != nil {
		already, ok := err.(prometheus.AlreadyRegisteredError)
		if !ok {
			return nil, err
		}
		p.extractions = already.ExistingCollector.(*prometheus.CounterVec)
	}
	if err := reg.Register(p.matches); err != nil {
		already, ok := err.(prometheus.AlreadyRegisteredError)
		if !ok {
			return nil, err
		}
		p.matches = already.ExistingCollector.(*prometheus.CounterVec)
	}
	if err := reg.Register(p.similarity); err != nil {
		already, ok := err.(prometheus.AlreadyRegisteredError)
		if !ok {
			return nil, err
		}
		p.similarity = already.ExistingCollector.(prometheus.Histogram)
	}
	return p, nil
}

func (p *Prometheus) ObserveExtraction(strategy string, ok bool) {
	if p == nil {
		return
	}
	if !ok {
		p.extractions.WithLabelValues("none", resultErr).Inc()
		return
	}
	p.extractions.WithLabelValues(strategy, resultOK).Inc()
}

func (p *Prometheus) ObserveMatch(strategy string, ok bool, similarity float64) {
	if p == nil {
		return
	}
	if !ok {
		p.matches.WithLabelValues("none", resultErr).Inc()
		return
	}
	p.matches.WithLabelValues(strategy, resultOK).Inc()
	p.similarity.Observe(similarity)
}
