// Package metrics provides Prometheus metrics for registered LEDs, fed
// from the event bus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/smazurov/gpioled/internal/events"
)

var (
	ledBrightness = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "gpioled",
		Subsystem: "led",
		Name:      "brightness",
		Help:      "Last brightness written to the LED",
	}, []string{"led"})

	ledBrightnessWrites = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gpioled",
		Subsystem: "led",
		Name:      "brightness_writes_total",
		Help:      "Brightness writes that reached the GPIO line",
	}, []string{"led", "source"})

	ledRegistered = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "gpioled",
		Subsystem: "led",
		Name:      "registered",
		Help:      "Whether the LED is registered with the LED class (1) or not (0)",
	}, []string{"led"})

	ledTrigger = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "gpioled",
		Subsystem: "led",
		Name:      "trigger_info",
		Help:      "Active trigger of the LED, always 1",
	}, []string{"led", "trigger"})
)

// Subscribe keeps the LED metrics current from bus events.
// Returns a function removing all subscriptions.
func Subscribe(bus *events.Bus) func() {
	unsubscribers := []func(){
		bus.Subscribe(handleRegistered),
		bus.Subscribe(handleUnregistered),
		bus.Subscribe(handleTriggerChanged),
		bus.Subscribe(handleBrightnessChanged),
	}
	return func() {
		for _, unsub := range unsubscribers {
			unsub()
		}
	}
}

func handleRegistered(e events.LEDRegisteredEvent) {
	ledRegistered.WithLabelValues(e.Name).Set(1)
	setTrigger(e.Name, e.Trigger)
}

func handleUnregistered(e events.LEDUnregisteredEvent) {
	ledRegistered.WithLabelValues(e.Name).Set(0)
	ledTrigger.DeletePartialMatch(prometheus.Labels{"led": e.Name})
}

func handleTriggerChanged(e events.TriggerChangedEvent) {
	setTrigger(e.Name, e.Trigger)
}

func handleBrightnessChanged(e events.BrightnessChangedEvent) {
	ledBrightness.WithLabelValues(e.Name).Set(float64(e.Brightness))
	ledBrightnessWrites.WithLabelValues(e.Name, e.Source).Inc()
}

func setTrigger(name, trigger string) {
	ledTrigger.DeletePartialMatch(prometheus.Labels{"led": name})
	if trigger == "" {
		trigger = "none"
	}
	ledTrigger.WithLabelValues(name, trigger).Set(1)
}
