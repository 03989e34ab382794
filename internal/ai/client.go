// Package ai provides the text-generation boundary used by the glossary
// expander: a provider-neutral client with Anthropic and Gemini
// implementations, plus resilient JSON extraction from model output.
package ai

import (
	"context"
	"fmt"
	"os"

	"github.com/marketops/mopctl/internal/retry"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Client generates a completion for a prompt.
type Client interface {
	// Generate returns the model's text output for the prompt.
	Generate(ctx context.Context, prompt string) (string, error)

	// Model returns the model identifier in use, for logging.
	Model() string
}

// Config selects and configures a provider.
type Config struct {
	// Provider is "anthropic" or "gemini".
	Provider string

	// Model overrides the provider default.
	Model string

	// APIKey falls back to the provider's conventional environment
	// variable when empty (ANTHROPIC_API_KEY / GEMINI_API_KEY).
	APIKey string

	// RequestsPerMinute paces generation calls (default: 30).
	RequestsPerMinute int

	// Retry configures the retry wrapper around each call.
	Retry retry.Config
}

// New creates the configured provider client wrapped with rate limiting
// and retries.
func New(ctx context.Context, cfg Config, logger *zap.Logger) (Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var inner Client
	var err error
	switch cfg.Provider {
	case "", "anthropic":
		inner, err = newAnthropicClient(cfg)
	case "gemini":
		inner, err = newGeminiClient(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown AI provider %q (want anthropic or gemini)", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}

	rpm := cfg.RequestsPerMinute
	if rpm <= 0 {
		rpm = 30
	}

	return &resilientClient{
		inner:    inner,
		limiter:  rate.NewLimiter(rate.Limit(float64(rpm)/60.0), 1),
		retryCfg: cfg.Retry,
		logger:   logger,
	}, nil
}

// resilientClient paces and retries calls to the underlying provider.
type resilientClient struct {
	inner    Client
	limiter  *rate.Limiter
	retryCfg retry.Config
	logger   *zap.Logger
}

func (c *resilientClient) Generate(ctx context.Context, prompt string) (string, error) {
	var out string
	err := retry.Do(ctx, c.retryCfg, c.logger, "ai.generate", func(ctx context.Context) error {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
		text, err := c.inner.Generate(ctx, prompt)
		if err != nil {
			return err
		}
		out = text
		return nil
	})
	return out, err
}

func (c *resilientClient) Model() string {
	return c.inner.Model()
}

// apiKeyFromEnv returns the configured key or the named environment
// variable's value.
func apiKeyFromEnv(configured, envVar string) (string, error) {
	if configured != "" {
		return configured, nil
	}
	if key := os.Getenv(envVar); key != "" {
		return key, nil
	}
	return "", fmt.Errorf("%s not set", envVar)
}
