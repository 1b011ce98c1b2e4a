package rabbit

import (
	"errors"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"github.com/aaronwittchen/logistics-platform-sub000/shared/pkg/metrics"
)

// ErrNotConnected is returned by Channel when no live channel exists.
// Callers must not assume a reconnect happens mid-call.
var ErrNotConnected = errors.New("rabbit: not connected")

type ManagerConfig struct {
	URL                  string
	MaxReconnectAttempts int
	BaseReconnectDelay   time.Duration
}

// Manager owns the single logical connection and channel. Connect is
// idempotent and coalesces concurrent callers; an unexpected close
// triggers reconnection with exponential backoff until the attempt
// budget runs out.
type Manager struct {
	cfg  ManagerConfig
	dial DialFunc
	log  zerolog.Logger

	// sleep is a seam for tests.
	sleep func(time.Duration)

	mu         sync.Mutex
	conn       Connection
	ch         Channel
	connecting chan struct{}
	lastErr    error
	closed     bool
}

func NewManager(cfg ManagerConfig, log zerolog.Logger) *Manager {
	if cfg.MaxReconnectAttempts <= 0 {
		cfg.MaxReconnectAttempts = 10
	}
	if cfg.BaseReconnectDelay <= 0 {
		cfg.BaseReconnectDelay = time.Second
	}
	return &Manager{
		cfg:   cfg,
		dial:  Dial,
		log:   log,
		sleep: time.Sleep,
	}
}

// Connect establishes the connection and channel. A no-op when already
// connected; a caller arriving mid-connect waits for the in-flight
// attempt instead of racing a second one.
func (m *Manager) Connect() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrNotConnected
	}
	if m.ch != nil {
		m.mu.Unlock()
		return nil
	}
	if m.connecting != nil {
		done := m.connecting
		m.mu.Unlock()
		<-done
		m.mu.Lock()
		defer m.mu.Unlock()
		if m.ch != nil {
			return nil
		}
		return m.lastErr
	}
	done := make(chan struct{})
	m.connecting = done
	m.mu.Unlock()

	err := m.establish()

	m.mu.Lock()
	m.connecting = nil
	m.lastErr = err
	m.mu.Unlock()
	close(done)
	return err
}

func (m *Manager) establish() error {
	conn, err := m.dial(m.cfg.URL)
	if err != nil {
		return err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return err
	}
	closes := conn.NotifyClose(make(chan *amqp.Error, 1))

	m.mu.Lock()
	m.conn = conn
	m.ch = ch
	m.mu.Unlock()

	go m.watch(closes)
	return nil
}

// watch clears the handles on an unexpected close and schedules
// reconnection. A graceful Close delivers nil and is ignored.
func (m *Manager) watch(closes chan *amqp.Error) {
	amqpErr, ok := <-closes
	if !ok || amqpErr == nil {
		return
	}

	m.mu.Lock()
	m.conn = nil
	m.ch = nil
	closed := m.closed
	m.mu.Unlock()
	if closed {
		return
	}

	m.log.Warn().Err(amqpErr).Msg("connection lost, reconnecting")
	m.reconnect()
}

func (m *Manager) reconnect() {
	for attempt := 0; attempt < m.cfg.MaxReconnectAttempts; attempt++ {
		m.sleep(m.cfg.BaseReconnectDelay * (1 << attempt))
		metrics.ReconnectsTotal.Inc()
		err := m.Connect()
		if err == nil {
			m.log.Info().Int("attempt", attempt+1).Msg("reconnected")
			return
		}
		m.log.Warn().Err(err).Int("attempt", attempt+1).Msg("reconnect failed")
	}
	m.log.Error().Int("attempts", m.cfg.MaxReconnectAttempts).Msg("reconnect attempts exhausted")
}

// Channel fails fast when nothing is connected.
func (m *Manager) Channel() (Channel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ch == nil {
		return nil, ErrNotConnected
	}
	return m.ch, nil
}

func (m *Manager) Close() error {
	m.mu.Lock()
	m.closed = true
	conn := m.conn
	ch := m.ch
	m.conn = nil
	m.ch = nil
	m.mu.Unlock()

	if ch != nil {
		_ = ch.Close()
	}
	if conn != nil {
		return conn.Close()
	}
	return nil
}
