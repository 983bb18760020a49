package rainflow

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// StatsInternal is the internal Prometheus registry and the
// instruments hanging off it. One instance per process,
// attached to the View.
type StatsInternal struct {
	Registry *prometheus.Registry

	Samples  prometheus.Counter
	Cycles   prometheus.Counter
	Damage   prometheus.Gauge
	FeedTime prometheus.Histogram
	WWW      *prometheus.CounterVec
}

// NewStatsInternal builds the registry with every instrument
// registered. MustRegister is fine here, a duplicate register
// is a programming error.
func NewStatsInternal() *StatsInternal {
	reg := prometheus.NewRegistry()

	s := &StatsInternal{
		Registry: reg,
		Samples: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rainflow_samples_total",
			Help: "Raw samples fed into the counting session",
		}),
		Cycles: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rainflow_cycles_closed_total",
			Help: "Cycles closed by the counting session",
		}),
		Damage: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "rainflow_damage_sum",
			Help: "Accumulated Miner damage fraction",
		}),
		FeedTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "rainflow_feed_duration_seconds",
			Help:    "Time spent feeding one chunk through the counter",
			Buckets: prometheus.DefBuckets,
		}),
		WWW: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rainflow_http_requests_total",
			Help: "API requests by status and method",
		}, []string{"status", "method"}),
	}

	reg.MustRegister(s.Samples, s.Cycles, s.Damage, s.FeedTime, s.WWW)
	return s
}

// RecSamples counts raw samples fed.
func (s *StatsInternal) RecSamples(n int) {
	s.Samples.Add(float64(n))
}

// RecCycle counts one closed cycle.
func (s *StatsInternal) RecCycle() {
	s.Cycles.Inc()
}

// RecDamage publishes the running damage sum.
func (s *StatsInternal) RecDamage(d float64) {
	s.Damage.Set(d)
}

// RecFeedTimer observes one chunk feed duration in seconds.
func (s *StatsInternal) RecFeedTimer(seconds float64) {
	s.FeedTime.Observe(seconds)
}

// RecWWW counts one API request.
func (s *StatsInternal) RecWWW(status, method string) {
	s.WWW.WithLabelValues(status, method).Inc()
}

// Handler serves this registry on /metrics.
func (s *StatsInternal) Handler() http.Handler {
	return promhttp.HandlerFor(s.Registry, promhttp.HandlerOpts{})
}
