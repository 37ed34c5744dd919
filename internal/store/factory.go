// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Strata Contributors

package store

import (
	"sync"

	strataerr "github.com/strata-dev/strata/pkg/errors"
)

// Config selects which backend Open uses and where it keeps state.
type Config struct {
	Backend string // "sqlite" (default) or "memory"
	Path    string // database path for file-backed backends
}

// Factory creates an EmbeddingStore for one backend. The validator is
// the registry handle every backend uses for write-path governance.
type Factory func(cfg *Config, validator ModelValidator) (EmbeddingStore, error)

var (
	factories   = map[string]Factory{}
	factoriesMu sync.RWMutex
)

// RegisterBackend registers a factory for a named storage backend.
// Backend packages call this from init(). Goroutine-safe.
func RegisterBackend(name string, f Factory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	factories[name] = f
}

// Open creates the embedding store for the configured backend,
// defaulting to sqlite.
func Open(cfg *Config, validator ModelValidator) (EmbeddingStore, error) {
	backend := cfg.Backend
	if backend == "" {
		backend = "sqlite"
	}

	factoriesMu.RLock()
	factory, ok := factories[backend]
	factoriesMu.RUnlock()
	if !ok {
		return nil, strataerr.Errorf(strataerr.CodeStoreBackendUnsupported,
			"unsupported storage backend: %q", backend)
	}

	return factory(cfg, validator)
}
