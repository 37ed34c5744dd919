// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Strata Contributors

// Package store defines the embedding record store: durable,
// idempotent persistence of embedding rows with model-governance and
// tenancy invariants enforced before any mutation is committed.
package store

import "context"

// EmbeddingStore persists embedding records and answers similarity
// queries over them.
//
// Upsert must be implemented as a single atomic conditional write on
// the logical-key uniqueness constraint, never as read-then-write:
// concurrent writers targeting the same key must end with exactly one
// row holding the last writer's vector. Reads are side-effect-free and
// may run with arbitrary concurrency; a reader observes either the
// pre- or post-upsert state of a concurrently written row, never a
// partial one.
type EmbeddingStore interface {
	Upsert(ctx context.Context, req *UpsertRequest) (*UpsertResult, error)
	FetchBySource(ctx context.Context, filter SourceFilter) ([]*EmbeddingRecord, error)
	Delete(ctx context.Context, filter DeleteFilter) (int64, error)
	Stats(ctx context.Context, filter StatsFilter) (*Stats, error)
	ModelUsage(ctx context.Context) ([]ModelUsage, error)
	Search(ctx context.Context, query SearchQuery) ([]SearchResult, error)
	Close() error
}

// ModelValidator is the registry surface the store depends on. The
// concrete registry is immutable after construction, so a single value
// is safely shared by every store and engine.
type ModelValidator interface {
	Validate(name string, dimension int) bool
}
