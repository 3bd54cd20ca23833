package scheduler

import "github.com/prometheus/client_golang/prometheus"

var (
	// firesTotal counts matured timers, whether or not delivery succeeded.
	firesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "reminder_fires_total",
		Help: "Total number of reminder timers that matured.",
	})

	// deliveryFailures counts fires whose notification could not be delivered.
	deliveryFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "reminder_delivery_failures_total",
		Help: "Total number of reminder notifications that failed to deliver.",
	})

	// retiredTotal counts reminders removed after their last occurrence.
	retiredTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "reminder_retired_total",
		Help: "Total number of reminders retired after exhausting their schedule.",
	})

	// timersActive gauges live registrations in the timer table.
	timersActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "reminder_timers_active",
		Help: "Current number of registered reminder timers.",
	})
)

func init() {
	prometheus.MustRegister(firesTotal, deliveryFailures, retiredTotal, timersActive)
}
