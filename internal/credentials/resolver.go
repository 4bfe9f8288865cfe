// Package credentials resolves API keys for model providers through an
// ordered fallback chain: process environment, remote secret store, then
// configuration-injected last-resort keys probed for validity.
package credentials

import (
	"context"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// ErrNoCredential signals that every tier was exhausted. Callers must treat
// it as "proceed with the fallback pipeline", never as a hard failure.
var ErrNoCredential = eris.New("credentials: no usable credential")

// SecretStore is a remote key-value secret lookup. Absence is not an error.
type SecretStore interface {
	Get(ctx context.Context, key string) (value string, found bool, err error)
}

// Prober checks whether a candidate key is actually accepted by the provider
// before the resolver hands it out.
type Prober interface {
	Probe(ctx context.Context, provider, key string) error
}

// envVarByProvider names the environment variable checked first per provider.
var envVarByProvider = map[string]string{
	"openrouter": "OPENROUTER_API_KEY",
	"gemini":     "GEMINI_API_KEY",
}

// Resolver resolves credentials for providers.
type Resolver struct {
	store      SecretStore
	prober     Prober
	lastResort map[string][]string

	// lookupEnv is swappable for tests.
	lookupEnv func(string) (string, bool)
}

// Option configures the resolver.
type Option func(*Resolver)

// WithSecretStore attaches a remote secret store (tier 2).
func WithSecretStore(s SecretStore) Option {
	return func(r *Resolver) { r.store = s }
}

// WithLastResort injects last-resort keys per provider (tier 3). Keys come
// from deployment configuration, never from source.
func WithLastResort(keys map[string][]string, p Prober) Option {
	return func(r *Resolver) {
		r.lastResort = keys
		r.prober = p
	}
}

// NewResolver creates a credential resolver.
func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{lookupEnv: os.LookupEnv}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Resolve returns an API key for the provider, or ErrNoCredential. The chain
// short-circuits on the first tier that yields a key.
func (r *Resolver) Resolve(ctx context.Context, provider string) (string, error) {
	provider = strings.ToLower(provider)

	// Tier 1: environment.
	if envVar, ok := envVarByProvider[provider]; ok {
		if v, ok := r.lookupEnv(envVar); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v), nil
		}
	}

	// Tier 2: remote secret store, best-effort. Store outages fall through.
	if r.store != nil {
		v, found, err := r.store.Get(ctx, provider)
		if err != nil {
			zap.L().Warn("secret store lookup failed, falling through",
				zap.String("provider", provider),
				zap.Error(err),
			)
		} else if found && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v), nil
		}
	}

	// Tier 3: configured last-resort keys, each probed before acceptance so
	// a revoked key is never handed out.
	for _, key := range r.lastResort[provider] {
		if strings.TrimSpace(key) == "" {
			continue
		}
		if r.prober == nil {
			break
		}
		if err := r.prober.Probe(ctx, provider, key); err != nil {
			zap.L().Warn("last-resort key rejected by probe",
				zap.String("provider", provider),
				zap.Error(err),
			)
			continue
		}
		return key, nil
	}

	return "", eris.Wrapf(ErrNoCredential, "credentials: provider %s", provider)
}
