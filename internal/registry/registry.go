// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Strata Contributors

// Package registry is the single source of truth for which embedding
// models exist and what dimension each produces. A Registry is built
// once at startup and is read-only thereafter, so a single value can be
// shared by reference across all concurrent callers.
package registry

import (
	"fmt"
	"log/slog"

	"github.com/strata-dev/strata/internal/config"
)

// Provider classifies where an embedding model runs. It informs cost
// and latency expectations only, never correctness.
type Provider string

const (
	ProviderExternalAPI Provider = "external_api"
	ProviderSelfHosted  Provider = "self_hosted"
)

// Descriptor describes one supported embedding model.
type Descriptor struct {
	Name            string
	Provider        Provider
	Dimension       int
	Description     string
	MaxTokens       int
	CostPer1KTokens float64
	// Default marks the fallback model for this provider class.
	// At most one descriptor per provider may set it.
	Default bool
}

// Registry holds an immutable catalog of model descriptors.
type Registry struct {
	models   map[string]Descriptor
	order    []string
	defaults map[Provider]string
	logger   *slog.Logger
}

// New builds a registry from descriptors, validating that names are
// unique, dimensions are positive, and each provider class has at most
// one default.
func New(descriptors []Descriptor) (*Registry, error) {
	r := &Registry{
		models:   make(map[string]Descriptor, len(descriptors)),
		defaults: make(map[Provider]string),
		logger:   slog.Default(),
	}

	for _, d := range descriptors {
		if d.Name == "" {
			return nil, fmt.Errorf("registry: descriptor with empty name")
		}
		if d.Dimension <= 0 {
			return nil, fmt.Errorf("registry: model %s has non-positive dimension %d", d.Name, d.Dimension)
		}
		if _, dup := r.models[d.Name]; dup {
			return nil, fmt.Errorf("registry: duplicate model name %s", d.Name)
		}
		if d.Default {
			if prev, ok := r.defaults[d.Provider]; ok {
				return nil, fmt.Errorf("registry: provider %s has two defaults: %s and %s", d.Provider, prev, d.Name)
			}
			r.defaults[d.Provider] = d.Name
		}
		r.models[d.Name] = d
		r.order = append(r.order, d.Name)
	}

	if len(r.models) == 0 {
		return nil, fmt.Errorf("registry: no models")
	}

	return r, nil
}

// Builtin returns the registry of supported models.
func Builtin() *Registry {
	r, err := New([]Descriptor{
		{
			Name:            "text-embedding-3-small",
			Provider:        ProviderExternalAPI,
			Dimension:       1536,
			Description:     "OpenAI's latest small embedding model with high performance",
			MaxTokens:       8192,
			CostPer1KTokens: 0.00002,
			Default:         true,
		},
		{
			Name:            "text-embedding-ada-002",
			Provider:        ProviderExternalAPI,
			Dimension:       1536,
			Description:     "OpenAI's previous generation embedding model",
			MaxTokens:       8192,
			CostPer1KTokens: 0.0001,
		},
		{
			Name:        "gte-multilingual-base",
			Provider:    ProviderSelfHosted,
			Dimension:   768,
			Description: "Alibaba's multilingual embedding model",
			MaxTokens:   512,
			Default:     true,
		},
	})
	if err != nil {
		// Builtin descriptors are compile-time constants; a failure here
		// is a programming error.
		panic(err)
	}
	return r
}

// Get returns the descriptor for name, if registered.
func (r *Registry) Get(name string) (Descriptor, bool) {
	d, ok := r.models[name]
	return d, ok
}

// Validate reports whether name is a known model whose registered
// dimension equals dimension. It never errors; callers decide how a
// false result fails.
func (r *Registry) Validate(name string, dimension int) bool {
	d, ok := r.models[name]
	if !ok {
		r.logger.Warn("unknown embedding model", "embedding_model", name)
		return false
	}
	if d.Dimension != dimension {
		r.logger.Warn("embedding dimension mismatch",
			"embedding_model", name,
			"expected_dimension", d.Dimension,
			"got_dimension", dimension,
		)
		return false
	}
	return true
}

// Dimension returns the registered dimension for name.
func (r *Registry) Dimension(name string) (int, bool) {
	d, ok := r.models[name]
	if !ok {
		return 0, false
	}
	return d.Dimension, true
}

// List returns all descriptors in registration order.
func (r *Registry) List() []Descriptor {
	out := make([]Descriptor, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.models[name])
	}
	return out
}

// Default returns the registry-wide fallback descriptor: the external
// API default if one exists, otherwise any provider default, otherwise
// the first registered model.
func (r *Registry) Default() Descriptor {
	if name, ok := r.defaults[ProviderExternalAPI]; ok {
		return r.models[name]
	}
	for _, name := range r.defaults {
		return r.models[name]
	}
	return r.models[r.order[0]]
}

// DefaultFor returns the default descriptor for a provider class.
func (r *Registry) DefaultFor(p Provider) (Descriptor, bool) {
	name, ok := r.defaults[p]
	if !ok {
		return Descriptor{}, false
	}
	return r.models[name], true
}

// Resolve returns the active model for the configured provider
// selection. An unrecognised model name falls back to the provider
// class default (or the registry-wide default) with a logged warning
// rather than failing: the write and search paths re-validate every
// (model, dimension) pair, so the substitution can never corrupt data.
func (r *Registry) Resolve(cfg *config.Config) Descriptor {
	name := cfg.ActiveModel()

	if d, ok := r.models[name]; ok {
		return d
	}

	fallback, ok := r.DefaultFor(providerClass(cfg.Embeddings.Provider))
	if !ok {
		fallback = r.Default()
	}
	r.logger.Warn("configured embedding model not registered, falling back to default",
		"configured_model", name,
		"fallback_model", fallback.Name,
	)
	return fallback
}

// providerClass maps the config provider selector onto the descriptor
// provider classification.
func providerClass(selector string) Provider {
	if selector == config.ProviderCustom {
		return ProviderSelfHosted
	}
	return ProviderExternalAPI
}

// Profile is a point-in-time snapshot of the embedding configuration,
// consumed by operational tooling.
type Profile struct {
	Environment  string       `json:"environment"`
	Provider     string       `json:"provider"`
	CurrentModel ProfileModel `json:"current_model"`
	Supported    []ProfileModel `json:"supported_models"`
}

// ProfileModel is one model entry in a Profile.
type ProfileModel struct {
	Name      string `json:"name"`
	Provider  string `json:"provider"`
	Dimension int    `json:"dimension"`
	Default   bool   `json:"is_default,omitempty"`
}

// Profile builds the environment profile for the given configuration.
func (r *Registry) Profile(cfg *config.Config) Profile {
	current := r.Resolve(cfg)

	p := Profile{
		Environment: cfg.Environment,
		Provider:    cfg.Embeddings.Provider,
		CurrentModel: ProfileModel{
			Name:      current.Name,
			Provider:  string(current.Provider),
			Dimension: current.Dimension,
			Default:   current.Default,
		},
	}
	for _, d := range r.List() {
		p.Supported = append(p.Supported, ProfileModel{
			Name:      d.Name,
			Provider:  string(d.Provider),
			Dimension: d.Dimension,
			Default:   d.Default,
		})
	}
	return p
}
