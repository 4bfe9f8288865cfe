// Package config loads application configuration from file and environment
// and bootstraps the global logger.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/convocatorias-pro/search-service/internal/invoker"
	"github.com/convocatorias-pro/search-service/internal/store"
)

// Config holds the full application configuration.
type Config struct {
	Store       StoreConfig       `yaml:"store" mapstructure:"store"`
	Models      ModelsConfig      `yaml:"models" mapstructure:"models"`
	OpenRouter  OpenRouterConfig  `yaml:"openrouter" mapstructure:"openrouter"`
	Gemini      GeminiConfig      `yaml:"gemini" mapstructure:"gemini"`
	Credentials CredentialsConfig `yaml:"credentials" mapstructure:"credentials"`
	Search      SearchConfig      `yaml:"search" mapstructure:"search"`
	Rules       RulesConfig       `yaml:"rules" mapstructure:"rules"`
	Batch       BatchConfig       `yaml:"batch" mapstructure:"batch"`
	Server      ServerConfig      `yaml:"server" mapstructure:"server"`
	Log         LogConfig         `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string            `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string            `yaml:"database_url" mapstructure:"database_url"`
	Pool        *store.PoolConfig `yaml:"pool" mapstructure:"pool"`
}

// ModelsConfig fixes the model chain for the fallback plan.
type ModelsConfig struct {
	TwoStep   bool             `yaml:"two_step" mapstructure:"two_step"`
	List      invoker.ModelRef `yaml:"list" mapstructure:"list"`
	Detail    invoker.ModelRef `yaml:"detail" mapstructure:"detail"`
	Secondary invoker.ModelRef `yaml:"secondary" mapstructure:"secondary"`
}

// OpenRouterConfig holds OpenRouter transport settings.
type OpenRouterConfig struct {
	BaseURL string  `yaml:"base_url" mapstructure:"base_url"`
	Referer string  `yaml:"referer" mapstructure:"referer"`
	Title   string  `yaml:"title" mapstructure:"title"`
	RPS     float64 `yaml:"rps" mapstructure:"rps"`
}

// GeminiConfig holds Gemini transport settings.
type GeminiConfig struct {
	BaseURL string  `yaml:"base_url" mapstructure:"base_url"`
	RPS     float64 `yaml:"rps" mapstructure:"rps"`
}

// CredentialsConfig configures the tiered credential resolver. LastResort
// keys are injected here, never compiled in.
type CredentialsConfig struct {
	SecretStoreURL   string              `yaml:"secret_store_url" mapstructure:"secret_store_url"`
	SecretStoreToken string              `yaml:"secret_store_token" mapstructure:"secret_store_token"`
	LastResort       map[string][]string `yaml:"last_resort" mapstructure:"last_resort"`
}

// SearchConfig tunes the search pipeline.
type SearchConfig struct {
	MaxResults int `yaml:"max_results" mapstructure:"max_results"`
}

// RulesConfig points at the fabrication rule set; empty path uses the
// embedded default.
type RulesConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// BatchConfig configures batch search processing.
type BatchConfig struct {
	MaxConcurrentSearches int `yaml:"max_concurrent_searches" mapstructure:"max_concurrent_searches"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("CONVOCA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("batch.max_concurrent_searches", 4)
	v.SetDefault("search.max_results", 10)
	v.SetDefault("models.two_step", true)
	v.SetDefault("models.list.provider", "openrouter")
	v.SetDefault("models.list.id", "meta-llama/llama-3.1-8b-instruct")
	v.SetDefault("models.list.tier", "fast")
	v.SetDefault("models.detail.provider", "openrouter")
	v.SetDefault("models.detail.id", "anthropic/claude-sonnet-4.5")
	v.SetDefault("models.detail.tier", "strong")
	v.SetDefault("models.secondary.provider", "gemini")
	v.SetDefault("models.secondary.id", "gemini-2.0-flash")
	v.SetDefault("models.secondary.tier", "fast")
	v.SetDefault("openrouter.base_url", "https://openrouter.ai/api/v1")
	v.SetDefault("openrouter.rps", 2.0)
	v.SetDefault("gemini.base_url", "https://generativelanguage.googleapis.com/v1beta")
	v.SetDefault("gemini.rps", 2.0)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
