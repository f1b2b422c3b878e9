package protocol

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "docreg"

	outcomeOK = "ok"
)

// Metrics counts flow outcomes and times flows.
type Metrics struct {
	flows    *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics registers the flow collectors on reg. A nil reg uses the
// default registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		flows: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "flow_total",
			Help:      "number of protocol flows by outcome",
		}, []string{"flow", "outcome"}),
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "flow_duration_seconds",
			Help:      "duration of protocol flows",
			Buckets:   prometheus.ExponentialBuckets(0.005, 4, 9),
		}, []string{"flow"}),
	}
}

func (m *Metrics) observe(flow, outcome string, started time.Time) {
	if m == nil {
		return
	}
	m.flows.WithLabelValues(flow, outcome).Inc()
	m.duration.WithLabelValues(flow).Observe(time.Since(started).Seconds())
}
