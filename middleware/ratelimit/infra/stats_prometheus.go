package infra

import (
	"context"

	"github.com/VietQuocHoang/export-user-info/middleware/ratelimit/domain"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "ratelimit"

// PrometheusStatsStore expõe as decisões como métricas Prometheus.
// Não usa Key/Path como label para não explodir a cardinalidade.
type PrometheusStatsStore struct {
	decisions *prometheus.CounterVec
	remaining prometheus.Histogram
}

// NewPrometheusStatsStore registra os coletores em reg.
func NewPrometheusStatsStore(reg prometheus.Registerer) (*PrometheusStatsStore, error) {
	s := &PrometheusStatsStore{
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "decisions_total",
			Help:      "Admission decisions taken by the sliding window limiter.",
		}, []string{"outcome"}),
		remaining: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "remaining",
			Help:      "Remaining quota reported after each decision.",
			Buckets:   []float64{0, 1, 2, 5, 10, 25, 50, 100},
		}),
	}
	for _, c := range []prometheus.Collector{s.decisions, s.remaining} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *PrometheusStatsStore) Record(_ context.Context, ev domain.StatsEvent) error {
	outcome := "rejected"
	if ev.Allowed {
		outcome = "admitted"
	}
	s.decisions.WithLabelValues(outcome).Inc()
	s.remaining.Observe(float64(ev.Remaining))
	return nil
}

// RegisterWindowStoreCollectors expõe o estado do store: chaves rastreadas e
// configuração da janela.
func RegisterWindowStoreCollectors(reg prometheus.Registerer, s *SlidingWindowStore) error {
	collectors := []prometheus.Collector{
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "tracked_keys",
			Help:      "Keys currently held by the sliding window store.",
		}, func() float64 { return float64(s.Len()) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "limit",
			Help:      "Configured requests per window.",
		}, func() float64 { return float64(s.Limit()) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "window_seconds",
			Help:      "Configured window length in seconds.",
		}, func() float64 { return s.Window().Seconds() }),
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}
