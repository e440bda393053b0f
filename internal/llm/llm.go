// Package llm wraps the text-completion providers used for employee ranking
// and natural-language SQL generation behind a single Completer interface.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/demanddesk/demanddesk/internal/config"
	"github.com/demanddesk/demanddesk/internal/observability"
)

// ErrDisabled is returned by New when the configuration has no usable
// provider credentials.
var ErrDisabled = errors.New("llm is disabled")

// Completer sends a single prompt and returns the raw model text.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// New builds the configured provider. Every returned completer records
// completion latency by provider and status.
func New(ctx context.Context, cfg config.LLMConfig) (Completer, error) {
	if !cfg.Enabled {
		return nil, ErrDisabled
	}
	var (
		inner Completer
		err   error
	)
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case config.LLMProviderGemini:
		inner, err = NewGemini(ctx, GeminiConfig{
			APIKey:      cfg.APIKey,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
			Timeout:     cfg.Timeout,
		})
	case config.LLMProviderOpenAI:
		inner, err = NewOpenAI(OpenAIConfig{
			BaseURL:     cfg.BaseURL,
			APIKey:      cfg.APIKey,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
			Timeout:     cfg.Timeout,
		})
	default:
		return nil, fmt.Errorf("unsupported llm provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}
	return Instrument(cfg.Provider, inner), nil
}

// Instrument wraps a completer with latency metrics.
func Instrument(provider string, next Completer) Completer {
	return instrumented{provider: strings.ToLower(provider), next: next}
}

type instrumented struct {
	provider string
	next     Completer
}

func (c instrumented) Complete(ctx context.Context, prompt string) (string, error) {
	start := time.Now()
	text, err := c.next.Complete(ctx, prompt)
	observability.ObserveLLMCompletion(c.provider, err, time.Since(start))
	return text, err
}

// CompleterFunc adapts a function to the Completer interface.
type CompleterFunc func(ctx context.Context, prompt string) (string, error)

func (f CompleterFunc) Complete(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}
