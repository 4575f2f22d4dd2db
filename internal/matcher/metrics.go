package matcher

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts match outcomes. A nil *Metrics records nothing.
type Metrics struct {
	outcomes *prometheus.CounterVec
	scores   prometheus.Histogram
}

// NewMetrics registers the matcher collectors with reg. Registering twice
// against the same registry reuses the collectors already there.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "areajoin",
		Name:      "matches_total",
		Help:      "Left-hand rows matched or left unmatched.",
	}, []string{"outcome"})
	scores := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "areajoin",
		Name:      "match_score",
		Help:      "Score of accepted matches on the 0-100 scale.",
		Buckets:   prometheus.LinearBuckets(50, 10, 6),
	})

	var err error
	if outcomes, err = register(reg, outcomes); err != nil {
		return nil, err
	}
	if scores, err = register(reg, scores); err != nil {
		return nil, err
	}
	return &Metrics{outcomes: outcomes, scores: scores}, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, fmt.Errorf("failed to register matcher metrics: %w", err)
	}
	return c, nil
}

func (m *Metrics) observe(r MatchResult) {
	if m == nil {
		return
	}
	if !r.Matched {
		m.outcomes.WithLabelValues("unmatched").Inc()
		return
	}
	m.outcomes.WithLabelValues("matched").Inc()
	m.scores.Observe(r.Score)
}
