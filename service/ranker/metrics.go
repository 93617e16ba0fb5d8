package ranker

import (
	"github.com/pregelrank/pregelrank/pagerank"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// metrics bundles the prometheus collectors that track the ranker passes.
type metrics struct {
	passes       *prometheus.CounterVec
	supersteps   prometheus.Counter
	stepDuration prometheus.Histogram
	residual     prometheus.Gauge
	danglingMass prometheus.Gauge
	vertices     prometheus.Gauge
	passDuration prometheus.Gauge
	lastSuccess  prometheus.Gauge
}

func newMetrics(reg prometheus.Registerer) *metrics {
	factory := promauto.With(reg)
	return &metrics{
		passes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pagerank",
			Name:      "passes_total",
			Help:      "The total number of ranking passes partitioned by outcome",
		}, []string{"outcome"}),
		supersteps: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "pagerank",
			Name:      "supersteps_total",
			Help:      "The total number of executed supersteps",
		}),
		stepDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "pagerank",
			Name:      "superstep_duration_seconds",
			Help:      "The time it took to execute a superstep",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 10),
		}),
		residual: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "pagerank",
			Name:      "residual",
			Help:      "The sum of absolute score differences in the last executed superstep",
		}),
		danglingMass: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "pagerank",
			Name:      "dangling_mass",
			Help:      "The score held by dangling vertices in the last executed superstep",
		}),
		vertices: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "pagerank",
			Name:      "vertices",
			Help:      "The number of vertices processed by the last ranking pass",
		}),
		passDuration: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "pagerank",
			Name:      "last_pass_duration_seconds",
			Help:      "The time it took to complete the last ranking pass",
		}),
		lastSuccess: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "pagerank",
			Name:      "last_success_timestamp_seconds",
			Help:      "The unix timestamp of the last successful ranking pass",
		}),
	}
}

// observeStep implements the pagerank.Config.StepObserver hook.
func (m *metrics) observeStep(st pagerank.StepStats) {
	m.supersteps.Inc()
	m.stepDuration.Observe(st.Duration.Seconds())
	m.residual.Set(st.Residual)
	m.danglingMass.Set(st.DanglingMass)
}
