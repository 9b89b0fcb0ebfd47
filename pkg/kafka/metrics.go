package kafka

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Publish outcomes.
const (
	outcomePublished = "published"
	outcomeFailed    = "failed"
)

var (
	producerEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kafka_producer_events_total",
			Help: "Domain events handed to Kafka, by topic, event type and outcome",
		},
		[]string{"topic", "event_type", "outcome"},
	)

	producerPublishSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kafka_producer_publish_seconds",
			Help:    "Time spent writing one event to Kafka",
			Buckets: []float64{.001, .005, .01, .05, .1, .5, 1, 5},
		},
		[]string{"topic"},
	)
)

func countEvent(topic, eventType, outcome string) {
	producerEvents.WithLabelValues(topic, eventType, outcome).Inc()
}
