package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/vncsmyrnk/pollr/internal/core/ports"
)

const namespace = "pollr"

type Metrics struct {
	registry *prometheus.Registry
	votes    *prometheus.CounterVec
	tallies  *prometheus.CounterVec
}

// New registers the vote and tally collectors on a fresh registry, along
// with the go and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		votes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "votes_cast_total",
			Help:      "Vote cast attempts by outcome.",
		}, []string{"outcome"}),
		tallies: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tallies_served_total",
			Help:      "Tally reads by source.",
		}, []string{"source"}),
	}

	m.registry.MustRegister(
		m.votes,
		m.tallies,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

var _ ports.VoteMetrics = (*Metrics)(nil)

func (m *Metrics) VoteCast(outcome string) {
	m.votes.WithLabelValues(outcome).Inc()
}

func (m *Metrics) TallyServed(cached bool) {
	source := "store"
	if cached {
		source = "cache"
	}
	m.tallies.WithLabelValues(source).Inc()
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
