package rabbit

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"github.com/aaronwittchen/logistics-platform-sub000/shared/pkg/domain"
	"github.com/aaronwittchen/logistics-platform-sub000/shared/pkg/events"
	"github.com/aaronwittchen/logistics-platform-sub000/shared/pkg/metrics"
)

// Subscriber declares its identity, the fact types it wants, and the
// handler invoked for each reconstructed fact.
type Subscriber interface {
	Name() string
	SubscribedTo() []string
	Handle(ctx context.Context, event domain.Event) error
}

type ConsumerConfig struct {
	Exchange           string
	DeadLetterExchange string
	MaxRetries         int
	RetryDelay         time.Duration
	Prefetch           int
}

// EventConsumer binds one durable queue per (fact type, subscriber),
// reconstructs typed facts through the registry, and acknowledges only
// after the handler succeeds. Handler failures are retried in-process
// with linear backoff; exhaustion dead-letters the message tagged with
// the subscriber's identity.
type EventConsumer struct {
	channels ChannelProvider
	registry *events.Registry
	cfg      ConsumerConfig
	log      zerolog.Logger

	sleep func(time.Duration)
}

func NewEventConsumer(channels ChannelProvider, registry *events.Registry, cfg ConsumerConfig, log zerolog.Logger) *EventConsumer {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	return &EventConsumer{
		channels: channels,
		registry: registry,
		cfg:      cfg,
		log:      log,
		sleep:    time.Sleep,
	}
}

// Subscribe declares and binds the subscriber's queues and starts one
// consume loop per fact type. Loops run until ctx is cancelled or the
// delivery channel closes.
func (c *EventConsumer) Subscribe(ctx context.Context, sub Subscriber) error {
	ch, err := c.channels.Channel()
	if err != nil {
		return err
	}
	if c.cfg.Prefetch > 0 {
		if err := ch.Qos(c.cfg.Prefetch, 0, false); err != nil {
			return err
		}
	}

	for _, typeName := range sub.SubscribedTo() {
		queue, err := declareSubscriberQueue(ch, c.cfg.Exchange, typeName, sub.Name())
		if err != nil {
			return err
		}
		deliveries, err := ch.Consume(queue, sub.Name(), false, false, false, false, nil)
		if err != nil {
			return err
		}
		go c.run(ctx, sub, queue, deliveries)
	}
	return nil
}

func (c *EventConsumer) run(ctx context.Context, sub Subscriber, queue string, deliveries <-chan amqp.Delivery) {
	c.log.Info().Str("queue", queue).Str("subscriber", sub.Name()).Msg("consumer started")
	for {
		select {
		case <-ctx.Done():
			c.log.Info().Str("queue", queue).Msg("consumer stopped")
			return
		case d, ok := <-deliveries:
			if !ok {
				c.log.Info().Str("queue", queue).Msg("deliveries closed")
				return
			}
			c.handle(ctx, sub, d)
		}
	}
}

func (c *EventConsumer) handle(ctx context.Context, sub Subscriber, d amqp.Delivery) {
	body, err := events.ParseEnvelope(d.Body)
	if err != nil {
		c.reject(ctx, sub, d, d.RoutingKey, err)
		return
	}

	rebuild, _, err := c.registry.Resolve(body.Type)
	if err != nil {
		c.reject(ctx, sub, d, body.Type, err)
		return
	}
	event, err := rebuild(body)
	if err != nil {
		c.reject(ctx, sub, d, body.Type, err)
		return
	}

	var lastErr error
	for attempt := 1; attempt <= c.cfg.MaxRetries; attempt++ {
		if err := sub.Handle(ctx, event); err == nil {
			_ = d.Ack(false)
			metrics.EventsConsumedTotal.WithLabelValues(body.Type, sub.Name()).Inc()
			return
		} else {
			lastErr = err
		}
		metrics.ConsumerFailuresTotal.WithLabelValues(body.Type, sub.Name()).Inc()
		c.log.Warn().Err(lastErr).
			Str("type", body.Type).
			Str("event_id", body.ID).
			Str("subscriber", sub.Name()).
			Int("attempt", attempt).
			Msg("handler failed")
		if attempt < c.cfg.MaxRetries {
			c.sleep(c.cfg.RetryDelay * time.Duration(attempt))
		}
	}

	body.Metadata.FailureReason = events.FailureMaxRetries
	body.Error = &events.ErrorInfo{
		Message:   lastErr.Error(),
		Stack:     "",
		Timestamp: time.Now().UTC(),
	}
	if err := c.deadLetter(ctx, sub, body.Type, events.Envelope{Data: body}); err != nil {
		c.log.Error().Err(err).Str("type", body.Type).Msg("dead-letter publish failed, requeueing")
		_ = d.Nack(false, true)
		return
	}
	metrics.DeadLetteredTotal.WithLabelValues(body.Type, events.FailureMaxRetries).Inc()
	_ = d.Ack(false)
}

// reject handles messages that can never be processed: malformed
// envelopes and unknown types go straight to the dead-letter exchange.
func (c *EventConsumer) reject(ctx context.Context, sub Subscriber, d amqp.Delivery, typeName string, cause error) {
	c.log.Error().Err(cause).
		Str("type", typeName).
		Str("subscriber", sub.Name()).
		Msg("unprocessable message")

	env := events.Envelope{Data: events.Body{
		Type:       typeName,
		Attributes: map[string]any{"raw": string(d.Body)},
		Metadata: events.Metadata{
			PublishedAt:   time.Now().UTC(),
			Publisher:     sub.Name(),
			FailureReason: events.FailureUnprocessable,
		},
		Error: &events.ErrorInfo{
			Message:   cause.Error(),
			Timestamp: time.Now().UTC(),
		},
	}}
	if err := c.deadLetter(ctx, sub, typeName, env); err != nil {
		c.log.Error().Err(err).Str("type", typeName).Msg("dead-letter publish failed, requeueing")
		_ = d.Nack(false, true)
		return
	}
	metrics.DeadLetteredTotal.WithLabelValues(typeName, events.FailureUnprocessable).Inc()
	_ = d.Ack(false)
}

func (c *EventConsumer) deadLetter(ctx context.Context, sub Subscriber, typeName string, env events.Envelope) error {
	ch, err := c.channels.Channel()
	if err != nil {
		return err
	}
	body, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return ch.PublishWithContext(ctx, c.cfg.DeadLetterExchange, events.DeadLetterKey(typeName), false, false, amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		Headers: amqp.Table{
			"x-subscriber": sub.Name(),
		},
	})
}
