// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Strata Contributors

package config

import (
	"errors"
	"strings"

	"github.com/spf13/viper"
	strataerr "github.com/strata-dev/strata/pkg/errors"
)

// Config is the top-level Strata configuration.
type Config struct {
	Environment string           `mapstructure:"environment"`
	Embeddings  EmbeddingsConfig `mapstructure:"embeddings"`
	Storage     StorageConfig    `mapstructure:"storage"`
	Log         LogConfig        `mapstructure:"log"`
}

// EmbeddingsConfig selects the active embedding provider and the model
// name to use per provider. The registry resolves these against its
// catalog; an unknown model name falls back to the registry default.
type EmbeddingsConfig struct {
	Provider string         `mapstructure:"provider"` // "openai" or "custom"
	OpenAI   ModelSelection `mapstructure:"openai"`
	Custom   ModelSelection `mapstructure:"custom"`
}

// ModelSelection names the embedding model for one provider.
type ModelSelection struct {
	Model string `mapstructure:"model"`
}

// StorageConfig selects the storage backend and its database path.
type StorageConfig struct {
	Backend string `mapstructure:"backend"` // "sqlite" or "memory"
	Path    string `mapstructure:"path"`
}

// LogConfig controls the slog handler.
type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // text or json
}

// ProviderOpenAI and ProviderCustom are the accepted embeddings.provider
// selector values.
const (
	ProviderOpenAI = "openai"
	ProviderCustom = "custom"
)

// SetDefaults installs default values on a viper instance.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")
	v.SetDefault("embeddings.provider", ProviderOpenAI)
	v.SetDefault("embeddings.openai.model", "text-embedding-3-small")
	v.SetDefault("embeddings.custom.model", "gte-multilingual-base")
	v.SetDefault("storage.backend", "sqlite")
	v.SetDefault("storage.path", "strata.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// SetupEnv binds STRATA_-prefixed environment variables, so
// STRATA_EMBEDDINGS_PROVIDER overrides embeddings.provider and so on.
func SetupEnv(v *viper.Viper) {
	v.SetEnvPrefix("STRATA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load reads configuration from the given path (or defaults) with
// environment variable overrides.
func Load(path string) (*Config, error) {
	v := viper.New()

	SetDefaults(v)
	SetupEnv(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, strataerr.Errorf(strataerr.CodeConfigLoadReadFailure, "reading config %s: %w", path, err)
		}
	}

	return FromViper(v)
}

// FromViper unmarshals and validates a fully populated viper instance.
func FromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, strataerr.Errorf(strataerr.CodeConfigValidateInvalidValue, "unmarshalling config: %w", err)
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, strataerr.Errorf(strataerr.CodeConfigValidateInvalidValue, "validating config: %w", errors.Join(errs...))
	}

	return &cfg, nil
}

// Validate checks the configuration for logical errors. It returns all
// validation errors found rather than stopping at the first one.
func (c *Config) Validate() []error {
	var errs []error

	errs = append(errs, c.validateEmbeddings()...)
	errs = append(errs, c.validateStorage()...)
	errs = append(errs, c.validateLog()...)

	return errs
}

func (c *Config) validateEmbeddings() []error {
	var errs []error

	validProviders := map[string]bool{ProviderOpenAI: true, ProviderCustom: true}
	if !validProviders[c.Embeddings.Provider] {
		errs = append(errs, strataerr.Errorf(strataerr.CodeConfigValidateInvalidValue,
			"config: embeddings.provider must be one of [openai, custom], got %q",
			c.Embeddings.Provider))
	}

	if c.Embeddings.OpenAI.Model == "" && c.Embeddings.Custom.Model == "" {
		errs = append(errs, strataerr.Errorf(strataerr.CodeConfigValidateInvalidValue,
			"config: at least one of embeddings.openai.model or embeddings.custom.model must be set"))
	}

	return errs
}

func (c *Config) validateStorage() []error {
	var errs []error

	validBackends := map[string]bool{"sqlite": true, "memory": true}
	if !validBackends[c.Storage.Backend] {
		errs = append(errs, strataerr.Errorf(strataerr.CodeConfigValidateInvalidValue,
			"config: storage.backend must be one of [sqlite, memory], got %q",
			c.Storage.Backend))
	}

	if c.Storage.Backend == "sqlite" && c.Storage.Path == "" {
		errs = append(errs, strataerr.Errorf(strataerr.CodeConfigValidateInvalidValue,
			"config: storage.path is required for the sqlite backend"))
	}

	return errs
}

func (c *Config) validateLog() []error {
	var errs []error

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Log.Level] {
		errs = append(errs, strataerr.Errorf(strataerr.CodeConfigValidateInvalidValue,
			"config: log.level must be one of [debug, info, warn, error], got %q",
			c.Log.Level))
	}

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[c.Log.Format] {
		errs = append(errs, strataerr.Errorf(strataerr.CodeConfigValidateInvalidValue,
			"config: log.format must be one of [text, json], got %q",
			c.Log.Format))
	}

	return errs
}

// ActiveModel returns the configured model name for the active provider.
func (c *Config) ActiveModel() string {
	if c.Embeddings.Provider == ProviderCustom {
		return c.Embeddings.Custom.Model
	}
	return c.Embeddings.OpenAI.Model
}
