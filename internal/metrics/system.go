package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var systemLoad = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: "gpioled",
	Subsystem: "system",
	Name:      "load_average",
	Help:      "System load average, which paces the heartbeat trigger",
}, []string{"window"})

// SetLoadAverage records the 1, 5 and 15 minute load averages.
func SetLoadAverage(load1, load5, load15 float64) {
	systemLoad.WithLabelValues("1m").Set(load1)
	systemLoad.WithLabelValues("5m").Set(load5)
	systemLoad.WithLabelValues("15m").Set(load15)
}
