// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Strata Contributors

package sqlite

import (
	"github.com/strata-dev/strata/internal/store"
)

func init() {
	store.RegisterBackend("sqlite", func(cfg *store.Config, validator store.ModelValidator) (store.EmbeddingStore, error) {
		return NewEmbeddingStore(cfg.Path, validator)
	})
}
