package coordinator

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "metro_"

	resultSuccess = "success"
	resultError   = "error"
)

// Metrics is safe to use as a nil pointer, in which case nothing is recorded.
type Metrics struct {
	platformRefreshes       *prometheus.CounterVec
	platformRefreshDuration *prometheus.HistogramVec
	passes                  *prometheus.CounterVec
	subscriptions           prometheus.Gauge
	platformsCleared        prometheus.Counter
}

func NewMetrics(registerer prometheus.Registerer) *Metrics {
	m := &Metrics{
		platformRefreshes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "platform_refresh_total",
				Help: "Live arrival fetches by result",
			},
			[]string{"result"},
		),
		platformRefreshDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "platform_refresh_duration_seconds",
				Help:    "Live arrival fetch latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		),
		passes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "refresh_pass_total",
				Help: "Coordinator refresh passes by result",
			},
			[]string{"result"},
		),
		subscriptions: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: metricPrefix + "subscriptions",
				Help: "Platforms with a live consumer subscription",
			},
		),
		platformsCleared: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "platforms_cleared_total",
				Help: "Platforms cleared after their subscription expired",
			},
		),
	}

	registerer.MustRegister(
		m.platformRefreshes,
		m.platformRefreshDuration,
		m.passes,
		m.subscriptions,
		m.platformsCleared,
	)

	return m
}

func (m *Metrics) observePlatform(err error, duration time.Duration) {
	if m == nil {
		return
	}

	result := resultLabel(err)
	m.platformRefreshes.WithLabelValues(result).Inc()
	m.platformRefreshDuration.WithLabelValues(result).Observe(duration.Seconds())
}

func (m *Metrics) observePass(err error, subscriptions int, cleared int) {
	if m == nil {
		return
	}

	m.passes.WithLabelValues(resultLabel(err)).Inc()
	m.subscriptions.Set(float64(subscriptions))
	m.platformsCleared.Add(float64(cleared))
}

func resultLabel(err error) string {
	if err != nil {
		return resultError
	}
	return resultSuccess
}
