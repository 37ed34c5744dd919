// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Strata Contributors

// Package search ranks stored embeddings against a query vector across
// the knowledge hierarchy. Results order lexicographically on
// (priority, similarity): client-specific knowledge always outranks
// generic class and skill knowledge, and similarity breaks ties only
// within one hierarchy level. A blended score would let a mediocre but
// highly similar generic match outrank an authoritative client
// override, which is exactly the precedence this package exists to
// prevent.
package search

import (
	"context"
	"log/slog"

	"github.com/strata-dev/strata/internal/store"
	strataerr "github.com/strata-dev/strata/pkg/errors"
)

const (
	// DefaultLimit caps results when the caller does not say otherwise.
	DefaultLimit = 10
	// DefaultThreshold is the minimum similarity a hit must reach.
	DefaultThreshold = 0.7
)

// Engine validates queries against the model registry and delegates
// the ranked scan to the backing store.
type Engine struct {
	store     store.EmbeddingStore
	validator store.ModelValidator
	logger    *slog.Logger
}

// NewEngine creates a similarity engine over the given store and
// registry handle.
func NewEngine(s store.EmbeddingStore, validator store.ModelValidator) *Engine {
	return &Engine{store: s, validator: validator, logger: slog.Default()}
}

// Search returns the top hits for the query, ranked by hierarchy
// priority then similarity. The query model and vector length must
// validate against the registry: a query embedded with one model can
// never be meaningfully compared against rows embedded with another,
// even when the dimensions coincide. An empty candidate set returns an
// empty slice, not an error.
func (e *Engine) Search(ctx context.Context, query store.SearchQuery) ([]store.SearchResult, error) {
	if len(query.Vector) == 0 {
		return nil, strataerr.New(strataerr.CodeStoreInvalidInput, "query vector must be non-empty")
	}
	if !e.validator.Validate(query.Model, len(query.Vector)) {
		return nil, strataerr.New(strataerr.CodeStoreModelUnknown,
			"query embedding model not registered for this dimension",
			strataerr.FieldModel(query.Model),
			strataerr.FieldDimension(len(query.Vector)),
		)
	}
	for _, at := range query.ActorTypes {
		if !at.Valid() {
			return nil, strataerr.New(strataerr.CodeStoreInvalidInput,
				"unknown actor_type", strataerr.FieldActorType(string(at)))
		}
	}

	if query.Limit <= 0 {
		query.Limit = DefaultLimit
	}
	if query.Threshold == 0 {
		query.Threshold = DefaultThreshold
	}

	results, err := e.store.Search(ctx, query)
	if err != nil {
		return nil, err
	}

	e.logger.DebugContext(ctx, "hierarchical search",
		"embedding_model", query.Model,
		"dimension", len(query.Vector),
		"limit", query.Limit,
		"threshold", query.Threshold,
		"hits", len(results),
	)
	return results, nil
}
