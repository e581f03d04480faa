package consumer

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Dead-letter reasons
const (
	ReasonMalformed        = "malformed"
	ReasonRetriesExhausted = "retries_exhausted"
)

// Metrics are the worker pipeline counters
type Metrics struct {
	Persisted     prometheus.Counter
	Retries       prometheus.Counter
	DeadLettered  *prometheus.CounterVec
	AckFailures   prometheus.Counter
	ReceiveErrors prometheus.Counter
}

// NewMetrics registers the pipeline counters with reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Persisted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "analytics",
			Subsystem: "worker",
			Name:      "events_persisted_total",
			Help:      "Events written to the event store.",
		}),
		Retries: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "analytics",
			Subsystem: "worker",
			Name:      "persist_retries_total",
			Help:      "Failed persist attempts that were retried.",
		}),
		DeadLettered: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "analytics",
			Subsystem: "worker",
			Name:      "dead_lettered_total",
			Help:      "Messages moved to the dead-letter queue.",
		}, []string{"reason"}),
		AckFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "analytics",
			Subsystem: "worker",
			Name:      "ack_failures_total",
			Help:      "Persisted events whose source message could not be deleted.",
		}),
		ReceiveErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "analytics",
			Subsystem: "worker",
			Name:      "receive_errors_total",
			Help:      "Failed queue receive calls.",
		}),
	}
}
