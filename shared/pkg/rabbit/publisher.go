package rabbit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"github.com/aaronwittchen/logistics-platform-sub000/shared/pkg/breaker"
	"github.com/aaronwittchen/logistics-platform-sub000/shared/pkg/domain"
	"github.com/aaronwittchen/logistics-platform-sub000/shared/pkg/events"
	"github.com/aaronwittchen/logistics-platform-sub000/shared/pkg/metrics"
)

type PublisherConfig struct {
	Exchange           string
	DeadLetterExchange string
	// Publisher is the identity stamped into metadata.publisher.
	Publisher  string
	MaxRetries int
	RetryDelay time.Duration
}

// ErrDeadLettered reports that a fact exhausted its delivery attempts
// and was parked on the dead-letter exchange. The fact is not lost, but
// the caller must know live delivery degraded.
var ErrDeadLettered = errors.New("fact dead-lettered after retries")

// EventPublisher delivers each fact independently: bounded retries with
// linear backoff, then dead-lettering. Exhaustion always surfaces — as
// ErrDeadLettered when the park succeeded, as the original send error
// when even the dead-letter exchange was unreachable.
type EventPublisher struct {
	channels ChannelProvider
	brk      *breaker.Breaker
	cfg      PublisherConfig
	log      zerolog.Logger

	sleep func(time.Duration)
}

func NewEventPublisher(channels ChannelProvider, brk *breaker.Breaker, cfg PublisherConfig, log zerolog.Logger) *EventPublisher {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	return &EventPublisher{
		channels: channels,
		brk:      brk,
		cfg:      cfg,
		log:      log,
		sleep:    time.Sleep,
	}
}

// Publish sends facts in order. One fact exhausting its retries does not
// block the rest of the batch; all terminal failures are joined.
func (p *EventPublisher) Publish(ctx context.Context, evts []domain.Event) error {
	var errs []error
	for _, e := range evts {
		if err := p.publishOne(ctx, e); err != nil {
			errs = append(errs, fmt.Errorf("publish %s: %w", e.EventName(), err))
		}
	}
	return errors.Join(errs...)
}

func (p *EventPublisher) publishOne(ctx context.Context, e domain.Event) error {
	var lastErr error
	for attempt := 1; attempt <= p.cfg.MaxRetries; attempt++ {
		env := events.NewEnvelope(e, p.cfg.Publisher, attempt)
		body, err := json.Marshal(env)
		if err != nil {
			return err
		}

		err = p.brk.Execute(func() error {
			return p.send(ctx, p.cfg.Exchange, e.EventName(), body)
		})
		metrics.BreakerState.Set(float64(p.brk.State()))
		if err == nil {
			metrics.EventsPublishedTotal.WithLabelValues(e.EventName()).Inc()
			return nil
		}
		lastErr = err
		if errors.Is(err, breaker.ErrOpen) {
			// Terminal: don't burn retries against an open breaker.
			return err
		}

		metrics.PublishRetriesTotal.WithLabelValues(e.EventName()).Inc()
		p.log.Warn().Err(err).
			Str("type", e.EventName()).
			Str("event_id", e.EventID().String()).
			Int("attempt", attempt).
			Msg("publish attempt failed")
		if attempt < p.cfg.MaxRetries {
			p.sleep(p.cfg.RetryDelay * time.Duration(attempt))
		}
	}

	if dlErr := p.deadLetter(ctx, e, lastErr); dlErr != nil {
		p.log.Error().Err(dlErr).
			Str("type", e.EventName()).
			Str("event_id", e.EventID().String()).
			Msg("dead-letter publish failed")
		return lastErr
	}
	metrics.DeadLetteredTotal.WithLabelValues(e.EventName(), events.FailureMaxRetries).Inc()
	p.log.Error().
		Str("type", e.EventName()).
		Str("event_id", e.EventID().String()).
		Int("attempts", p.cfg.MaxRetries).
		Msg("retries exhausted, fact dead-lettered")
	return fmt.Errorf("%w: %v", ErrDeadLettered, lastErr)
}

func (p *EventPublisher) deadLetter(ctx context.Context, e domain.Event, cause error) error {
	env := events.NewEnvelope(e, p.cfg.Publisher, p.cfg.MaxRetries)
	env.Data.Metadata.FailureReason = events.FailureMaxRetries
	env.Data.Error = &events.ErrorInfo{
		Message:   cause.Error(),
		Stack:     string(debug.Stack()),
		Timestamp: time.Now().UTC(),
	}
	body, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return p.send(ctx, p.cfg.DeadLetterExchange, events.DeadLetterKey(e.EventName()), body)
}

func (p *EventPublisher) send(ctx context.Context, exchange, routingKey string, body []byte) error {
	ch, err := p.channels.Channel()
	if err != nil {
		return err
	}
	return ch.PublishWithContext(ctx, exchange, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
	})
}
