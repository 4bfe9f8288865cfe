// Package invoker sends prompts to model providers. It is deliberately dumb
// transport with retry: no parsing, no validation, just a text answer or an
// error the orchestrator can act on.
package invoker

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/convocatorias-pro/search-service/internal/prompt"
	"github.com/convocatorias-pro/search-service/internal/resilience"
)

// Tier groups models by size/cost so generation parameters can differ.
type Tier string

const (
	// TierFast is the small/cheap tier used for list steps and as the
	// secondary fallback model.
	TierFast Tier = "fast"
	// TierStrong is the large tier used for detail and single-step calls.
	TierStrong Tier = "strong"
)

// GenerationConfig holds sampling parameters for one call.
type GenerationConfig struct {
	Temperature float64
	MaxTokens   int
	TopP        float64
	TopK        int
}

// ConfigForTier returns the default generation parameters per tier. Smaller
// models run hotter with tighter output caps.
func ConfigForTier(t Tier) GenerationConfig {
	switch t {
	case TierFast:
		return GenerationConfig{Temperature: 0.9, MaxTokens: 1024, TopP: 0.95, TopK: 40}
	default:
		return GenerationConfig{Temperature: 0.3, MaxTokens: 4096, TopP: 0.9, TopK: 40}
	}
}

// ModelRef identifies a model on a provider.
type ModelRef struct {
	Provider string `yaml:"provider" mapstructure:"provider"`
	ID       string `yaml:"id" mapstructure:"id"`
	Tier     Tier   `yaml:"tier" mapstructure:"tier"`
}

// Provider is the transport behind one vendor API.
type Provider interface {
	Name() string
	Generate(ctx context.Context, modelID string, p prompt.Prompt, cfg GenerationConfig) (string, error)
}

// ErrEmptyResponse marks a 2xx answer with no usable text. It is a failure,
// not a valid empty result, and is not retried.
var ErrEmptyResponse = eris.New("invoker: provider returned empty response")

// ErrUnknownProvider is returned when no transport is registered for the
// requested provider (typically: no credential could be resolved for it).
var ErrUnknownProvider = eris.New("invoker: no provider registered")

// Invoker routes calls to registered providers with retry, rate limiting and
// circuit breaking.
type Invoker struct {
	providers map[string]Provider
	policy    resilience.Policy
	limiters  map[string]*rate.Limiter
	breakers  *resilience.BreakerSet
}

// Option configures the invoker.
type Option func(*Invoker)

// WithPolicy overrides the retry policy.
func WithPolicy(p resilience.Policy) Option {
	return func(i *Invoker) { i.policy = p }
}

// WithRateLimit installs a request rate limit for one provider.
func WithRateLimit(provider string, limit rate.Limit, burst int) Option {
	return func(i *Invoker) { i.limiters[provider] = rate.NewLimiter(limit, burst) }
}

// New creates an invoker over the given providers.
func New(providers []Provider, opts ...Option) *Invoker {
	inv := &Invoker{
		providers: make(map[string]Provider, len(providers)),
		policy:    resilience.DefaultPolicy(),
		limiters:  make(map[string]*rate.Limiter),
		breakers:  resilience.NewBreakerSet(0, 0),
	}
	for _, p := range providers {
		inv.providers[p.Name()] = p
	}
	for _, o := range opts {
		o(inv)
	}
	return inv
}

// Has reports whether a transport is registered for the provider.
func (i *Invoker) Has(provider string) bool {
	_, ok := i.providers[provider]
	return ok
}

// Invoke sends the prompt to the referenced model and returns its raw text.
// All errors mean "this model produced nothing"; the caller decides the
// fallback.
func (i *Invoker) Invoke(ctx context.Context, ref ModelRef, p prompt.Prompt) (string, error) {
	provider, ok := i.providers[ref.Provider]
	if !ok {
		return "", eris.Wrapf(ErrUnknownProvider, "invoker: provider %s", ref.Provider)
	}

	breaker := i.breakers.Get(ref.Provider)
	if err := breaker.Allow(); err != nil {
		return "", err
	}

	if limiter, ok := i.limiters[ref.Provider]; ok {
		if err := limiter.Wait(ctx); err != nil {
			return "", eris.Wrap(err, "invoker: rate limiter")
		}
	}

	cfg := ConfigForTier(ref.Tier)
	policy := i.policy
	policy.OnRetry = resilience.RetryLogger(ref.Provider, ref.ID)

	text, err := resilience.DoVal(ctx, policy, func(ctx context.Context) (string, error) {
		return provider.Generate(ctx, ref.ID, p, cfg)
	})
	breaker.Record(err)
	if err != nil {
		zap.L().Warn("model call failed",
			zap.String("provider", ref.Provider),
			zap.String("model", ref.ID),
			zap.Error(err),
		)
		return "", err
	}

	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}
