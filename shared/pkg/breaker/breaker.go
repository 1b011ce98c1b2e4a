// Package breaker provides a generic failure-isolating wrapper around any
// fallible operation. It knows nothing about messaging or transports.
package breaker

import (
	"errors"
	"sync"
	"time"
)

type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// ErrOpen is returned without invoking the wrapped operation while the
// breaker is open and the recovery timeout has not elapsed.
var ErrOpen = errors.New("circuit breaker is open")

type Config struct {
	// FailureThreshold is the number of consecutive failures that trips
	// the breaker while closed.
	FailureThreshold int
	// RecoveryTimeout is how long the breaker stays open before letting
	// a probe call through.
	RecoveryTimeout time.Duration
	// SuccessThreshold is the number of consecutive probe successes that
	// close the breaker again.
	SuccessThreshold int
}

type Breaker struct {
	cfg Config
	now func() time.Time

	mu            sync.Mutex
	state         State
	failures      int
	successes     int
	lastFailureAt time.Time
	// probing marks one in-flight half-open call; everyone else is
	// refused until its outcome is known.
	probing bool
}

func New(cfg Config) *Breaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.RecoveryTimeout <= 0 {
		cfg.RecoveryTimeout = 30 * time.Second
	}
	if cfg.SuccessThreshold <= 0 {
		cfg.SuccessThreshold = 2
	}
	return &Breaker{cfg: cfg, now: time.Now}
}

func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Execute runs op under the breaker's state machine. While open it fails
// fast with ErrOpen until the recovery timeout elapses, at which point a
// single probe is let through (half-open). op's error is returned as-is.
func (b *Breaker) Execute(op func() error) error {
	if err := b.beforeCall(); err != nil {
		return err
	}

	err := op()

	b.mu.Lock()
	defer b.mu.Unlock()
	if err != nil {
		b.onFailure()
		return err
	}
	b.onSuccess()
	return nil
}

func (b *Breaker) beforeCall() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch b.state {
	case StateOpen:
		if b.now().Sub(b.lastFailureAt) < b.cfg.RecoveryTimeout {
			return ErrOpen
		}
		b.state = StateHalfOpen
		b.successes = 0
		b.probing = true
		return nil
	case StateHalfOpen:
		// One probe at a time.
		if b.probing {
			return ErrOpen
		}
		b.probing = true
		return nil
	default:
		return nil
	}
}

func (b *Breaker) onFailure() {
	b.probing = false
	switch b.state {
	case StateHalfOpen:
		// One failed probe cancels all accumulated successes.
		b.state = StateOpen
		b.successes = 0
		b.lastFailureAt = b.now()
	case StateClosed:
		b.failures++
		if b.failures >= b.cfg.FailureThreshold {
			b.state = StateOpen
			b.lastFailureAt = b.now()
		}
	}
}

func (b *Breaker) onSuccess() {
	b.probing = false
	switch b.state {
	case StateHalfOpen:
		b.successes++
		if b.successes >= b.cfg.SuccessThreshold {
			b.state = StateClosed
			b.failures = 0
			b.successes = 0
		}
	case StateClosed:
		b.failures = 0
	}
}
