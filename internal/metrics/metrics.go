// Package metrics holds the Prometheus instruments for the auth forms.
// All collectors are registered with the global registry and exposed on
// /metrics by the server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	ViewsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "durian_views_active",
			Help: "Number of form views currently mounted.",
		})

	ViewEvictionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "durian_view_evictions_total",
			Help: "Cumulative number of form views unmounted by the idle sweeper or the size cap.",
		})

	GatewayCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "durian_gateway_calls_total",
			Help: "Auth gateway calls by action and outcome.",
		}, []string{"action", "outcome"})

	ValidationFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "durian_validation_failures_total",
			Help: "Form submissions rejected by the validation schema.",
		}, []string{"form"})
)

func init() {
	prometheus.MustRegister(
		ViewsActive,
		ViewEvictionsTotal,
		GatewayCallsTotal,
		ValidationFailuresTotal,
	)
}
