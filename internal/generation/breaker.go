package generation

import (
	"context"
	"errors"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/spherical-ai/phone-advisor/internal/observability"
)

// BreakerConfig configures the circuit breaker.
type BreakerConfig struct {
	FailureThreshold uint32
	OpenTimeout      time.Duration
	Interval         time.Duration
}

// Breaker wraps a Completer with a circuit breaker. Every failure, including
// a rejected call while open, surfaces as ErrUnavailable.
type Breaker struct {
	inner    Completer
	provider string
	cb       *gobreaker.CircuitBreaker[string]
	logger   *observability.Logger
}

// NewBreaker wraps inner.
func NewBreaker(inner Completer, cfg BreakerConfig, logger *observability.Logger) *Breaker {
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = 30 * time.Second
	}
	if logger == nil {
		logger = observability.NopLogger()
	}

	b := &Breaker{
		inner:    inner,
		provider: providerOf(inner),
		logger:   logger.WithOperation("generation"),
	}

	b.cb = gobreaker.NewCircuitBreaker[string](gobreaker.Settings{
		Name:        "generation-" + b.provider,
		MaxRequests: 1,
		Interval:    cfg.Interval,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		// A caller hanging up says nothing about the provider's health.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			b.logger.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Circuit breaker state changed")
		},
	})

	return b
}

// Complete calls the wrapped completer through the breaker.
func (b *Breaker) Complete(ctx context.Context, prompt string) (string, error) {
	start := time.Now()
	reply, err := b.cb.Execute(func() (string, error) {
		return b.inner.Complete(ctx, prompt)
	})
	observability.GenerationDuration.WithLabelValues(b.provider).Observe(time.Since(start).Seconds())

	if err != nil {
		observability.GenerationErrors.WithLabelValues(b.provider).Inc()
		b.logger.WithContext(ctx).Error().
			Err(err).
			Str("provider", b.provider).
			Str("state", b.cb.State().String()).
			Msg("Completion failed")
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return reply, nil
}

// Provider returns the wrapped completer's provider.
func (b *Breaker) Provider() string { return b.provider }

// State returns the breaker state name.
func (b *Breaker) State() string { return b.cb.State().String() }
