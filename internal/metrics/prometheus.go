package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type counterVec struct {
	vec *prometheus.CounterVec
}

func (c *counterVec) inc(procedure, status string) {
	if c == nil {
		return
	}
	c.vec.WithLabelValues(procedure, status).Inc()
}

type histogramVec struct {
	vec *prometheus.HistogramVec
}

func (h *histogramVec) observe(procedure string, seconds float64) {
	if h == nil {
		return
	}
	h.vec.WithLabelValues(procedure).Observe(seconds)
}

// NewCollector registers the nfsd3 metric families with reg and returns
// a Collector backed by them. Pass nil for reg to disable metrics with
// zero overhead (every Collector method tolerates a nil *Collector).
func NewCollector(reg prometheus.Registerer) *Collector {
	if reg == nil {
		return nil
	}

	requests := promauto.With(reg).NewCounterVec(
		prometheus.CounterOpts{
			Name: "nfsd3_requests_total",
			Help: "Total NFSv3 procedure calls by procedure name and nfsstat3 result.",
		},
		[]string{"procedure", "status"},
	)

	duration := promauto.With(reg).NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "nfsd3_request_duration_seconds",
			Help: "NFSv3 procedure handler latency in seconds.",
			Buckets: []float64{
				0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1,
			},
		},
		[]string{"procedure"},
	)

	return &Collector{
		requests: &counterVec{vec: requests},
		duration: &histogramVec{vec: duration},
	}
}
