package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	DeliveriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hookline_deliveries_total",
		Help: "Delivery attempts by outcome and event type.",
	}, []string{"outcome", "event"})

	DeliveryDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "hookline_delivery_duration_seconds",
		Help:    "Wall time of a single delivery attempt.",
		Buckets: prometheus.DefBuckets,
	})

	RetriesScheduledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hookline_retries_scheduled_total",
		Help: "Failed attempts that were scheduled for another try.",
	})

	EventsDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hookline_events_dropped_total",
		Help: "Ingested events dropped because the dispatch queue was full.",
	})
)
