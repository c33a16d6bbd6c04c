package resilience

import (
	"errors"
	"sync"
	"time"
)

var ErrCircuitOpen = errors.New("circuit breaker is open")

type CircuitState string

const (
	CircuitStateClosed   CircuitState = "closed"
	CircuitStateOpen     CircuitState = "open"
	CircuitStateHalfOpen CircuitState = "half_open"
)

// StateChangeFunc is called outside the breaker lock after a transition.
type StateChangeFunc func(name string, from, to CircuitState)

// CircuitBreaker guards one remote dependency. It opens after
// FailureThreshold consecutive failures, rejects calls for OpenTimeout and
// then lets HalfOpenMaxReq probes through. A disabled breaker passes every
// call and never changes state.
type CircuitBreaker struct {
	name     string
	cfg      CircuitBreakerConfig
	onChange StateChangeFunc
	now      func() time.Time

	mu        sync.Mutex
	state     CircuitState
	failures  int
	openedAt  time.Time
	probes    int
	successes int
}

func NewCircuitBreaker(name string, cfg CircuitBreakerConfig, onChange StateChangeFunc) *CircuitBreaker {
	return &CircuitBreaker{
		name:     name,
		cfg:      cfg.Normalize(),
		onChange: onChange,
		now:      time.Now,
		state:    CircuitStateClosed,
	}
}

func (b *CircuitBreaker) Name() string { return b.name }

func (b *CircuitBreaker) Enabled() bool { return b.cfg.Enabled }

// Execute runs fn when the breaker allows it. Errors for which isFailure
// returns false count as successes; a nil isFailure counts every error.
func (b *CircuitBreaker) Execute(fn func() error, isFailure func(error) bool) error {
	if err := b.Allow(); err != nil {
		return err
	}
	err := fn()
	if err != nil && (isFailure == nil || isFailure(err)) {
		b.RecordFailure()
	} else {
		b.RecordSuccess()
	}
	return err
}

func (b *CircuitBreaker) Allow() error {
	if !b.cfg.Enabled {
		return nil
	}

	b.mu.Lock()
	from := b.state
	if b.state == CircuitStateOpen {
		if b.now().Sub(b.openedAt) < b.cfg.OpenTimeout {
			b.mu.Unlock()
			return ErrCircuitOpen
		}
		b.setLocked(CircuitStateHalfOpen)
	}
	if b.state == CircuitStateHalfOpen {
		if b.probes >= b.cfg.HalfOpenMaxReq {
			to := b.state
			b.mu.Unlock()
			b.notify(from, to)
			return ErrCircuitOpen
		}
		b.probes++
	}
	to := b.state
	b.mu.Unlock()

	b.notify(from, to)
	return nil
}

func (b *CircuitBreaker) RecordSuccess() {
	if !b.cfg.Enabled {
		return
	}

	b.mu.Lock()
	from := b.state
	switch b.state {
	case CircuitStateClosed:
		b.failures = 0
	case CircuitStateHalfOpen:
		if b.probes > 0 {
			b.probes--
		}
		b.successes++
		if b.successes >= b.cfg.HalfOpenMaxReq && b.probes == 0 {
			b.setLocked(CircuitStateClosed)
		}
	}
	to := b.state
	b.mu.Unlock()

	b.notify(from, to)
}

func (b *CircuitBreaker) RecordFailure() {
	if !b.cfg.Enabled {
		return
	}

	b.mu.Lock()
	from := b.state
	switch b.state {
	case CircuitStateClosed:
		b.failures++
		if b.failures >= b.cfg.FailureThreshold {
			b.setLocked(CircuitStateOpen)
		}
	case CircuitStateHalfOpen:
		b.setLocked(CircuitStateOpen)
	case CircuitStateOpen:
		b.openedAt = b.now()
	}
	to := b.state
	b.mu.Unlock()

	b.notify(from, to)
}

// State reports half_open once the open timeout has passed even if no call
// has probed yet.
func (b *CircuitBreaker) State() CircuitState {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == CircuitStateOpen && b.now().Sub(b.openedAt) >= b.cfg.OpenTimeout {
		return CircuitStateHalfOpen
	}
	return b.state
}

func (b *CircuitBreaker) setLocked(state CircuitState) {
	b.state = state
	b.probes = 0
	b.successes = 0
	switch state {
	case CircuitStateClosed:
		b.failures = 0
		b.openedAt = time.Time{}
	case CircuitStateOpen:
		b.openedAt = b.now()
	}
}

func (b *CircuitBreaker) notify(from, to CircuitState) {
	if from != to && b.onChange != nil {
		b.onChange(b.name, from, to)
	}
}
