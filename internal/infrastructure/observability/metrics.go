package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	registry          *prometheus.Registry
	AgentRunning      prometheus.Gauge
	ClicksTotal       prometheus.Counter
	ScrollsTotal      *prometheus.CounterVec
	CapturedExchanges prometheus.Counter
	ExportsTotal      *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	r := prometheus.NewRegistry()
	m := &Metrics{
		registry: r,
		AgentRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "yq_monitor",
			Name:      "agent_running",
			Help:      "1 while the click-scroll loop is running",
		}),
		ClicksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "yq_monitor",
			Name:      "clicks_total",
			Help:      "Total feed items activated",
		}),
		ScrollsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "yq_monitor",
			Name:      "scrolls_total",
			Help:      "Total scroll attempts by outcome",
		}, []string{"outcome"}),
		CapturedExchanges: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "yq_monitor",
			Name:      "captured_exchanges_total",
			Help:      "Total network exchanges accepted by the recorder",
		}),
		ExportsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "yq_monitor",
			Name:      "exports_total",
			Help:      "Total log exports by kind and result",
		}, []string{"kind", "result"}),
	}
	r.MustRegister(m.AgentRunning, m.ClicksTotal, m.ScrollsTotal, m.CapturedExchanges, m.ExportsTotal)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }
