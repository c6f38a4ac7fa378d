package session

import "github.com/prometheus/client_golang/prometheus"

var (
	loadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "askd",
			Subsystem: "session",
			Name:      "loads_total",
			Help:      "Model acquisitions started, by result",
		},
		[]string{"result"},
	)

	loadDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "askd",
			Subsystem: "session",
			Name:      "load_duration_seconds",
			Help:      "Duration of model acquisitions in seconds",
			Buckets:   []float64{0.5, 1, 5, 15, 30, 60, 120, 300, 600},
		},
	)

	generationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "askd",
			Subsystem: "session",
			Name:      "generations_total",
			Help:      "Generate calls, by result (ok, fallback, error, busy, not_ready)",
		},
		[]string{"result"},
	)

	generationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "askd",
			Subsystem: "session",
			Name:      "generation_duration_seconds",
			Help:      "Duration of chat completions in seconds",
			Buckets:   prometheus.DefBuckets,
		},
	)
)

func init() {
	prometheus.MustRegister(loadsTotal, loadDuration, generationsTotal, generationDuration)
}
