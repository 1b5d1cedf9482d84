package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// ErrCircuitOpen is returned while the breaker rejects calls.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// CircuitBreakerState represents the current state of the circuit breaker
type CircuitBreakerState int

const (
	Closed CircuitBreakerState = iota
	Open
	HalfOpen
)

// String returns the state name used in logs and JSON.
func (s CircuitBreakerState) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreakerConfig holds configuration for the circuit breaker
type CircuitBreakerConfig struct {
	FailureThreshold int           `json:"failure_threshold"` // Number of failures before opening
	SuccessThreshold int           `json:"success_threshold"` // Number of successes to close from half-open
	Timeout          time.Duration `json:"timeout"`           // Time to wait before trying half-open
	MaxRequests      int           `json:"max_requests"`      // Max requests allowed in half-open state
	ResetTimeout     time.Duration `json:"reset_timeout"`     // Time to reset failure count
}

// CircuitBreakerStats holds statistics for the circuit breaker
type CircuitBreakerStats struct {
	State              string    `json:"state"`
	TotalRequests      int64     `json:"total_requests"`
	SuccessfulRequests int64     `json:"successful_requests"`
	FailedRequests     int64     `json:"failed_requests"`
	RejectedRequests   int64     `json:"rejected_requests"`
	LastFailureTime    time.Time `json:"last_failure_time"`
	LastSuccessTime    time.Time `json:"last_success_time"`
	StateChanges       int64     `json:"state_changes"`
}

// CircuitBreaker stops calling a failing dependency for a while after
// FailureThreshold consecutive failures.
type CircuitBreaker struct {
	name            string
	config          CircuitBreakerConfig
	logger          *logrus.Logger
	clock           func() time.Time
	mu              sync.Mutex
	state           CircuitBreakerState
	failureCount    int
	successCount    int
	lastFailureTime time.Time
	lastStateChange time.Time
	requestCount    int
	stats           CircuitBreakerStats
}

// NewCircuitBreaker creates a new circuit breaker
func NewCircuitBreaker(name string, config CircuitBreakerConfig, logger *logrus.Logger) *CircuitBreaker {
	if config.FailureThreshold <= 0 {
		config.FailureThreshold = 5
	}
	if config.SuccessThreshold <= 0 {
		config.SuccessThreshold = 3
	}
	if config.Timeout <= 0 {
		config.Timeout = 60 * time.Second
	}
	if config.MaxRequests <= 0 {
		config.MaxRequests = 10
	}
	if config.ResetTimeout <= 0 {
		config.ResetTimeout = 300 * time.Second
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	return &CircuitBreaker{
		name:            name,
		config:          config,
		logger:          logger,
		clock:           time.Now,
		state:           Closed,
		lastStateChange: time.Now(),
	}
}

// Execute runs fn unless the breaker is open. The lock is not held while fn runs.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func(context.Context) error) error {
	cb.mu.Lock()
	cb.stats.TotalRequests++
	if !cb.canExecute() {
		cb.stats.RejectedRequests++
		cb.mu.Unlock()
		return ErrCircuitOpen
	}
	if cb.state == HalfOpen {
		cb.requestCount++
	}
	cb.mu.Unlock()

	start := cb.clock()
	err := fn(ctx)
	duration := cb.clock().Sub(start)

	cb.mu.Lock()
	defer cb.mu.Unlock()
	if err != nil {
		cb.onFailure(err, duration)
	} else {
		cb.onSuccess(duration)
	}
	return err
}

// Allow reports whether a call would currently be let through.
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.canExecute()
}

// canExecute determines if the circuit breaker should allow execution
func (cb *CircuitBreaker) canExecute() bool {
	now := cb.clock()

	switch cb.state {
	case Closed:
		// Reset failure count if enough time has passed
		if now.Sub(cb.lastFailureTime) > cb.config.ResetTimeout {
			cb.failureCount = 0
		}
		return true

	case Open:
		if now.Sub(cb.lastStateChange) > cb.config.Timeout {
			cb.setState(HalfOpen)
			cb.requestCount = 0
			cb.successCount = 0
			return true
		}
		return false

	case HalfOpen:
		return cb.requestCount < cb.config.MaxRequests

	default:
		return false
	}
}

// onSuccess handles successful execution
func (cb *CircuitBreaker) onSuccess(duration time.Duration) {
	cb.stats.SuccessfulRequests++
	cb.stats.LastSuccessTime = cb.clock()

	switch cb.state {
	case Closed:
		cb.failureCount = 0

	case HalfOpen:
		cb.successCount++
		if cb.successCount >= cb.config.SuccessThreshold {
			cb.setState(Closed)
			cb.failureCount = 0
			cb.successCount = 0
			cb.requestCount = 0
		}
	}

	cb.logger.WithFields(logrus.Fields{
		"circuit_breaker": cb.name,
		"state":           cb.state.String(),
		"duration_ms":     duration.Milliseconds(),
	}).Debug("Circuit breaker: successful execution")
}

// onFailure handles failed execution
func (cb *CircuitBreaker) onFailure(err error, duration time.Duration) {
	now := cb.clock()
	cb.stats.FailedRequests++
	cb.stats.LastFailureTime = now
	cb.lastFailureTime = now

	switch cb.state {
	case Closed:
		cb.failureCount++
		if cb.failureCount >= cb.config.FailureThreshold {
			cb.setState(Open)
		}

	case HalfOpen:
		// Any failure in half-open state reopens the circuit
		cb.setState(Open)
		cb.failureCount++
		cb.successCount = 0
		cb.requestCount = 0
	}

	cb.logger.WithFields(logrus.Fields{
		"circuit_breaker": cb.name,
		"state":           cb.state.String(),
		"error":           err.Error(),
		"duration_ms":     duration.Milliseconds(),
		"failure_count":   cb.failureCount,
	}).Warn("Circuit breaker: failed execution")
}

// setState changes the circuit breaker state
func (cb *CircuitBreaker) setState(newState CircuitBreakerState) {
	if cb.state == newState {
		return
	}
	oldState := cb.state
	cb.state = newState
	cb.lastStateChange = cb.clock()
	cb.stats.StateChanges++

	cb.logger.WithFields(logrus.Fields{
		"circuit_breaker": cb.name,
		"old_state":       oldState.String(),
		"new_state":       newState.String(),
		"failure_count":   cb.failureCount,
	}).Info("Circuit breaker state changed")
}

// GetState returns the current state of the circuit breaker
func (cb *CircuitBreaker) GetState() CircuitBreakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// GetStats returns the current statistics
func (cb *CircuitBreaker) GetStats() CircuitBreakerStats {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	stats := cb.stats
	stats.State = cb.state.String()
	return stats
}

// Reset manually resets the circuit breaker to closed state
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.setState(Closed)
	cb.failureCount = 0
	cb.successCount = 0
	cb.requestCount = 0

	cb.logger.WithField("circuit_breaker", cb.name).Info("Circuit breaker manually reset")
}
