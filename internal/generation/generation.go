// Package generation adapts text completion services behind a single
// prompt-in, text-out interface.
package generation

import (
	"context"
	"errors"
	"fmt"

	"github.com/spherical-ai/phone-advisor/internal/config"
	"github.com/spherical-ai/phone-advisor/internal/observability"
)

// ErrUnavailable is returned when the completion service cannot produce a reply
// (network failure, timeout, provider error or an open circuit breaker).
var ErrUnavailable = errors.New("generation unavailable")

// Provider names.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Completer turns a prompt into text.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Named is implemented by completers that can report their provider.
type Named interface {
	Provider() string
}

// New builds the configured completer wrapped in a circuit breaker.
func New(cfg config.GenerationConfig, logger *observability.Logger) (*Breaker, error) {
	var (
		inner Completer
		err   error
	)

	switch cfg.Provider {
	case ProviderOpenAI, "":
		inner = NewOpenAICompleter(OpenAIConfig{
			BaseURL:     cfg.BaseURL,
			APIKey:      cfg.APIKey,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
			MaxTokens:   cfg.MaxTokens,
			Timeout:     cfg.Timeout,
			MaxRetries:  cfg.MaxRetries,
		})
	case ProviderAnthropic:
		inner, err = NewAnthropicCompleter(AnthropicConfig{
			APIKey:      cfg.APIKey,
			BaseURL:     cfg.BaseURL,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
			MaxTokens:   cfg.MaxTokens,
			Timeout:     cfg.Timeout,
			MaxRetries:  cfg.MaxRetries,
		})
	default:
		return nil, fmt.Errorf("unknown generation provider: %s", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}

	return NewBreaker(inner, BreakerConfig{
		FailureThreshold: cfg.Breaker.FailureThreshold,
		OpenTimeout:      cfg.Breaker.OpenTimeout,
		Interval:         cfg.Breaker.Interval,
	}, logger), nil
}

func providerOf(c Completer) string {
	if n, ok := c.(Named); ok {
		return n.Provider()
	}
	return "custom"
}
