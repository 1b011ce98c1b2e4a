package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	EventsPublishedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "events_published_total",
		Help: "Facts successfully handed to the broker",
	}, []string{"type"})
	PublishRetriesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "publish_retries_total",
		Help: "Publish attempts that failed and were retried",
	}, []string{"type"})
	DeadLetteredTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dead_lettered_total",
		Help: "Messages routed to the dead-letter exchange",
	}, []string{"type", "reason"})
	EventsConsumedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "events_consumed_total",
		Help: "Facts handled and acknowledged by subscribers",
	}, []string{"type", "subscriber"})
	ConsumerFailuresTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "consumer_failures_total",
		Help: "Subscriber handler invocations that returned an error",
	}, []string{"type", "subscriber"})
	BreakerState = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "publish_breaker_state",
		Help: "Publish circuit breaker state (0 closed, 1 open, 2 half-open)",
	})
	ReconnectsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "rabbit_reconnects_total",
		Help: "Broker reconnection attempts",
	})
)

func init() {
	prometheus.MustRegister(
		EventsPublishedTotal,
		PublishRetriesTotal,
		DeadLetteredTotal,
		EventsConsumedTotal,
		ConsumerFailuresTotal,
		BreakerState,
		ReconnectsTotal,
	)
}
