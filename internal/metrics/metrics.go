// Package metrics implements the executor's metrics sink on Prometheus.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	executor "github.com/michael-watson/federation/internal/executor"
)

// Prometheus is an executor.MetricsSink backed by a Prometheus registry.
type Prometheus struct {
	fetchesTotal          *prometheus.CounterVec
	fetchDuration         *prometheus.HistogramVec
	downstreamErrorsTotal *prometheus.CounterVec
}

var _ executor.MetricsSink = (*Prometheus)(nil)

// NewPrometheus registers the gateway metrics with reg and returns the sink.
func NewPrometheus(reg prometheus.Registerer) *Prometheus {
	factory := promauto.With(reg)
	return &Prometheus{
		fetchesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "federation_subgraph_fetches_total",
				Help: "Total number of subgraph fetches issued by the executor",
			},
			[]string{"service", "outcome"},
		),
		fetchDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "federation_subgraph_fetch_duration_seconds",
				Help:    "Duration of subgraph fetches in seconds",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"service"},
		),
		downstreamErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "federation_downstream_errors_total",
				Help: "GraphQL errors relayed from subgraphs, by error code",
			},
			[]string{"service", "code"},
		),
	}
}

func (p *Prometheus) ObserveFetch(serviceName string, duration time.Duration, errorCount int) {
	outcome := "ok"
	if errorCount > 0 {
		outcome = "error"
	}
	p.fetchesTotal.WithLabelValues(serviceName, outcome).Inc()
	p.fetchDuration.WithLabelValues(serviceName).Observe(duration.Seconds())
}

func (p *Prometheus) RecordDownstreamError(serviceName, code string, _ executor.Path) {
	if code == "" {
		code = executor.CodeDownstreamServiceError
	}
	p.downstreamErrorsTotal.WithLabelValues(serviceName, code).Inc()
}
