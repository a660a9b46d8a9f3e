// Package exporters serves the collected metrics.
package exporters

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTPHandler returns the Prometheus handler for the default registry,
// which holds every promauto metric. OpenMetrics is offered to scrapers
// that ask for it.
func HTTPHandler() http.Handler {
	return promhttp.InstrumentMetricHandler(
		prometheus.DefaultRegisterer,
		promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{
			EnableOpenMetrics: true,
		}),
	)
}

// RegisterBuildInfo adds a gpioled_build_info gauge labelled with the version.
func RegisterBuildInfo(reg prometheus.Registerer, version, commit string) error {
	return reg.Register(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace:   "gpioled",
		Name:        "build_info",
		Help:        "Build metadata, always 1",
		ConstLabels: prometheus.Labels{"version": version, "commit": commit},
	}, func() float64 { return 1 }))
}
