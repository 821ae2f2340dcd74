package llm

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Generator abstracts text-generation providers.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GeneratorFunc adapts a function to the Generator interface.
type GeneratorFunc func(ctx context.Context, prompt string) (string, error)

// Generate calls f.
func (f GeneratorFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// ErrNotImplemented is returned by the placeholder generator.
var ErrNotImplemented = errors.New("LLM not implemented")

// ErrTimeout marks a generation call that exceeded its deadline.
var ErrTimeout = errors.New("llm request timeout")

// PlaceholderGenerator is used when no provider is configured.
type PlaceholderGenerator struct{}

// Generate returns ErrNotImplemented.
func (PlaceholderGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	_ = ctx
	_ = prompt
	return "", ErrNotImplemented
}

type timeoutGenerator struct {
	base    Generator
	timeout time.Duration
}

// WithTimeout bounds every Generate call on base. A non-positive timeout returns base unchanged.
func WithTimeout(base Generator, timeout time.Duration) Generator {
	if base == nil || timeout <= 0 {
		return base
	}
	return timeoutGenerator{base: base, timeout: timeout}
}

func (g timeoutGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	out, err := g.base.Generate(callCtx, prompt)
	if err != nil {
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return "", fmt.Errorf("%w after %s: %v", ErrTimeout, g.timeout, err)
		}
		return "", err
	}
	return out, nil
}
