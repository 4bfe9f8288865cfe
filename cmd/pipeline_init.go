package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/convocatorias-pro/search-service/internal/credentials"
	"github.com/convocatorias-pro/search-service/internal/fallback"
	"github.com/convocatorias-pro/search-service/internal/invoker"
	"github.com/convocatorias-pro/search-service/internal/prompt"
	"github.com/convocatorias-pro/search-service/internal/search"
	"github.com/convocatorias-pro/search-service/internal/sink"
	"github.com/convocatorias-pro/search-service/internal/store"
	"github.com/convocatorias-pro/search-service/internal/validate"
	geminipkg "github.com/convocatorias-pro/search-service/pkg/gemini"
	openrouterpkg "github.com/convocatorias-pro/search-service/pkg/openrouter"
)

// searchEnv holds the initialized store and service needed by the serve,
// search, and batch commands.
type searchEnv struct {
	Store   store.Store
	Service *search.Service
}

// Close releases resources held by the search environment.
func (se *searchEnv) Close() {
	if se.Store != nil {
		_ = se.Store.Close()
	}
}

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "convoca.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, cfg.Store.Pool)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// initResolver builds the tiered credential resolver: environment first,
// then the secret store, then keys injected through configuration.
func initResolver() *credentials.Resolver {
	var opts []credentials.Option
	if cfg.Credentials.SecretStoreURL != "" {
		opts = append(opts, credentials.WithSecretStore(
			credentials.NewHTTPSecretStore(cfg.Credentials.SecretStoreURL, cfg.Credentials.SecretStoreToken),
		))
	}
	if len(cfg.Credentials.LastResort) > 0 {
		prober := credentials.NewProviderProber().
			WithEndpoints(cfg.OpenRouter.BaseURL, cfg.Gemini.BaseURL)
		opts = append(opts, credentials.WithLastResort(cfg.Credentials.LastResort, prober))
	}
	return credentials.NewResolver(opts...)
}

// initInvoker resolves provider credentials and assembles the rate-limited
// model invoker. Providers without a usable credential are skipped; with no
// provider at all, every model call fails and searches degrade to the
// rule-based fallback.
func initInvoker(ctx context.Context) *invoker.Invoker {
	resolver := initResolver()

	var providers []invoker.Provider
	var opts []invoker.Option

	if key, err := resolver.Resolve(ctx, "openrouter"); err == nil {
		orOpts := []openrouterpkg.Option{openrouterpkg.WithBaseURL(cfg.OpenRouter.BaseURL)}
		if cfg.OpenRouter.Referer != "" {
			orOpts = append(orOpts, openrouterpkg.WithReferer(cfg.OpenRouter.Referer, cfg.OpenRouter.Title))
		}
		providers = append(providers, invoker.NewOpenRouterProvider(openrouterpkg.NewClient(key, orOpts...)))
		opts = append(opts, invoker.WithRateLimit("openrouter", rate.Limit(cfg.OpenRouter.RPS), 1))
	} else {
		zap.L().Warn("no openrouter credential, provider disabled", zap.Error(err))
	}

	if key, err := resolver.Resolve(ctx, "gemini"); err == nil {
		providers = append(providers, invoker.NewGeminiProvider(
			geminipkg.NewClient(key, geminipkg.WithBaseURL(cfg.Gemini.BaseURL)),
		))
		opts = append(opts, invoker.WithRateLimit("gemini", rate.Limit(cfg.Gemini.RPS), 1))
	} else {
		zap.L().Warn("no gemini credential, provider disabled", zap.Error(err))
	}

	if len(providers) == 0 {
		zap.L().Warn("no model provider has a usable credential, searches will use the rule-based fallback")
	}

	return invoker.New(providers, opts...)
}

// initSearch sets up the store, credential chain, model invoker, and the
// search service. Callers should defer env.Close().
func initSearch(ctx context.Context) (*searchEnv, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	rules, err := validate.LoadRules(cfg.Rules.Path)
	if err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "load fabrication rules")
	}

	orch := fallback.New(
		prompt.NewBuilder(cfg.Search.MaxResults),
		initInvoker(ctx),
		validate.NewValidator(rules),
	)

	plan := fallback.Plan{
		TwoStep:        cfg.Models.TwoStep,
		ListModel:      cfg.Models.List,
		DetailModel:    cfg.Models.Detail,
		SecondaryModel: cfg.Models.Secondary,
	}

	svc := search.New(orch, st, sink.New(st), plan)

	return &searchEnv{Store: st, Service: svc}, nil
}
