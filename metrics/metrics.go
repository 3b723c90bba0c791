// Package metrics exposes engine counters and gauges via Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	SignalsTotal     prometheus.Counter
	AdmissionsTotal  prometheus.Counter
	RejectionsTotal  *prometheus.CounterVec
	SubmissionsTotal prometheus.Counter
	RetriesTotal     prometheus.Counter
	FillsTotal       prometheus.Counter
	ExpiriesTotal    prometheus.Counter
	ClosesTotal      prometheus.Counter

	OpenTrades    prometheus.Gauge
	DailyRiskUsed prometheus.Gauge
}

func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		SignalsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "riskgate_signals_total",
			Help: "Entry signals consumed from the strategy.",
		}),
		AdmissionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "riskgate_admissions_total",
			Help: "Signals admitted by the risk manager.",
		}),
		RejectionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "riskgate_rejections_total",
			Help: "Risk rejections by reason.",
		}, []string{"reason"}),
		SubmissionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "riskgate_submissions_total",
			Help: "Order submissions sent to the venue.",
		}),
		RetriesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "riskgate_submission_retries_total",
			Help: "Submission retries after transient venue errors.",
		}),
		FillsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "riskgate_fills_total",
			Help: "Fill events applied to orders.",
		}),
		ExpiriesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "riskgate_expiries_total",
			Help: "Orders expired waiting for a fill.",
		}),
		ClosesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "riskgate_closes_total",
			Help: "Trades closed.",
		}),
		OpenTrades: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "riskgate_open_trades",
			Help: "Currently open trades.",
		}),
		DailyRiskUsed: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "riskgate_daily_risk_used",
			Help: "Daily risk budget consumed, in account currency.",
		}),
	}

	reg.MustRegister(
		m.SignalsTotal,
		m.AdmissionsTotal,
		m.RejectionsTotal,
		m.SubmissionsTotal,
		m.RetriesTotal,
		m.FillsTotal,
		m.ExpiriesTotal,
		m.ClosesTotal,
		m.OpenTrades,
		m.DailyRiskUsed,
	)
	return m
}

// Handler serves the registry for scraping.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
