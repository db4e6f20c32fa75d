// Package resilience wraps external collaborator calls (LLM, tool adapters,
// memory backends) with a circuit breaker so a failing collaborator fails
// fast instead of exhausting MAX_ADAPT_ATTEMPTS on every request while it is
// down (§7 AdapterUnavailable).
package resilience

import (
	"context"
	"time"

	agenterrors "github.com/lehelkovach/osl-agent-prototype-sub000/internal/errors"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// BreakerConfig tunes a single named circuit breaker.
type BreakerConfig struct {
	Name             string
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold float64
	MinRequests      uint32
}

// DefaultBreakerConfig returns sane defaults for a collaborator named name.
func DefaultBreakerConfig(name string) BreakerConfig {
	return BreakerConfig{
		Name:             name,
		MaxRequests:      3,
		Interval:         10 * time.Second,
		Timeout:          30 * time.Second,
		FailureThreshold: 0.6,
		MinRequests:      3,
	}
}

// Breaker guards calls to a single external collaborator.
type Breaker struct {
	name string
	cb   *gobreaker.CircuitBreaker
	log  *zap.Logger
}

// NewBreaker builds a breaker from config, logging state transitions.
func NewBreaker(cfg BreakerConfig, log *zap.Logger) *Breaker {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state change",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})

	return &Breaker{name: cfg.Name, cb: cb, log: log}
}

// Call runs fn through the breaker. A rejection because the breaker is open
// or saturated surfaces as AdapterUnavailable, matching §7's policy: the
// caller must not count that toward MAX_ADAPT_ATTEMPTS since the collaborator
// never actually ran.
func (b *Breaker) Call(ctx context.Context, fn func(ctx context.Context) (interface{}, error)) (interface{}, error) {
	result, err := b.cb.Execute(func() (interface{}, error) {
		return fn(ctx)
	})
	if err == nil {
		return result, nil
	}

	if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
		return nil, agenterrors.AdapterUnavailable(b.name, err)
	}

	return nil, err
}

// State reports the breaker's current state for health/metrics reporting.
func (b *Breaker) State() string {
	return b.cb.State().String()
}
