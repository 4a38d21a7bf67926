package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics
type Metrics struct {
	// Sweep job metrics
	SweepRuns     *prometheus.CounterVec
	SweepDuration *prometheus.HistogramVec
	SweepItems    *prometheus.CounterVec

	// Delivery metrics
	PushDispatch *prometheus.CounterVec
	InAppPublish *prometheus.CounterVec
	Emitted      *prometheus.CounterVec
}

// NewMetrics creates the application metrics and registers them with reg.
// A nil registerer leaves them unregistered, which is what tests want.
func NewMetrics(reg prometheus.Registerer, namespace string) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		SweepRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sweep",
			Name:      "runs_total",
			Help:      "Total number of sweep job runs",
		}, []string{"job", "status"}),
		SweepDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "sweep",
			Name:      "duration_seconds",
			Help:      "Time spent in a single sweep job run",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}, []string{"job"}),
		SweepItems: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sweep",
			Name:      "items_total",
			Help:      "Records touched by sweep jobs",
		}, []string{"job", "outcome"}),

		PushDispatch: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notification",
			Name:      "push_dispatch_total",
			Help:      "Push dispatch attempts by outcome",
		}, []string{"outcome"}),
		InAppPublish: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notification",
			Name:      "inapp_publish_total",
			Help:      "In-app fan-out publishes by status",
		}, []string{"status"}),
		Emitted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "appointment",
			Name:      "events_emitted_total",
			Help:      "Appointment lifecycle events emitted",
		}, []string{"event"}),
	}
}

// Nop returns unregistered metrics.
func Nop() *Metrics {
	return NewMetrics(nil, "")
}
