// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Strata Contributors

package store

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	strataerr "github.com/strata-dev/strata/pkg/errors"
)

func init() {
	RegisterBackend("memory", func(_ *Config, validator ModelValidator) (EmbeddingStore, error) {
		return NewMemoryStore(validator), nil
	})
}

// Compile-time interface check.
var _ EmbeddingStore = (*MemoryStore)(nil)

// MemoryStore is a mutex-guarded in-memory EmbeddingStore. It backs
// unit tests and cgo-free environments; durability comes from the
// sqlite backend.
type MemoryStore struct {
	mu        sync.RWMutex
	validator ModelValidator
	rows      map[logicalKey]*EmbeddingRecord
}

// logicalKey is the upsert uniqueness key.
type logicalKey struct {
	sourceTable string
	sourceID    string
	sourceField string
	actorType   ActorType
	actorID     string
	model       string
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(validator ModelValidator) *MemoryStore {
	return &MemoryStore{
		validator: validator,
		rows:      make(map[logicalKey]*EmbeddingRecord),
	}
}

func (m *MemoryStore) Upsert(_ context.Context, req *UpsertRequest) (*UpsertResult, error) {
	if err := ValidateUpsert(m.validator, req); err != nil {
		return nil, err
	}

	key := logicalKey{
		sourceTable: req.SourceTable,
		sourceID:    req.SourceID,
		sourceField: req.SourceField,
		actorType:   req.ActorType,
		actorID:     req.ActorID,
		model:       req.Model,
	}
	now := time.Now().UTC()

	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.rows[key]; ok {
		existing.Vector = append([]float32(nil), req.Vector...)
		existing.Metadata = cloneMetadata(req.Metadata)
		existing.UpdatedAt = now
		return &UpsertResult{Record: cloneRecord(existing), Inserted: false}, nil
	}

	rec := &EmbeddingRecord{
		ID:          uuid.NewString(),
		ClientID:    req.ClientID,
		SourceTable: req.SourceTable,
		SourceID:    req.SourceID,
		SourceField: req.SourceField,
		Model:       req.Model,
		Dimension:   len(req.Vector),
		Vector:      append([]float32(nil), req.Vector...),
		ActorType:   req.ActorType,
		ActorID:     req.ActorID,
		Metadata:    cloneMetadata(req.Metadata),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	m.rows[key] = rec

	return &UpsertResult{Record: cloneRecord(rec), Inserted: true}, nil
}

func (m *MemoryStore) FetchBySource(_ context.Context, filter SourceFilter) ([]*EmbeddingRecord, error) {
	if filter.SourceTable == "" {
		return nil, strataerr.New(strataerr.CodeStoreInvalidInput, "source_table is required")
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*EmbeddingRecord
	for _, rec := range m.rows {
		if rec.SourceTable != filter.SourceTable {
			continue
		}
		if filter.SourceField != "" && rec.SourceField != filter.SourceField {
			continue
		}
		if filter.ActorType != "" && rec.ActorType != filter.ActorType {
			continue
		}
		if filter.ActorID != "" && rec.ActorID != filter.ActorID {
			continue
		}
		if filter.ClientID != "" && rec.ClientID != filter.ClientID {
			continue
		}
		out = append(out, cloneRecord(rec))
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *MemoryStore) Delete(_ context.Context, filter DeleteFilter) (int64, error) {
	if err := ValidateDelete(filter); err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var deleted int64
	for key, rec := range m.rows {
		if !matchesDelete(rec, filter) {
			continue
		}
		delete(m.rows, key)
		deleted++
	}
	return deleted, nil
}

func matchesDelete(rec *EmbeddingRecord, f DeleteFilter) bool {
	if f.SourceTable != "" && rec.SourceTable != f.SourceTable {
		return false
	}
	if f.SourceField != "" && rec.SourceField != f.SourceField {
		return false
	}
	if f.ActorType != "" && rec.ActorType != f.ActorType {
		return false
	}
	if f.ActorID != "" && rec.ActorID != f.ActorID {
		return false
	}
	if f.ClientID != "" && rec.ClientID != f.ClientID {
		return false
	}
	if f.Model != "" && rec.Model != f.Model {
		return false
	}
	return true
}

func matchesStats(rec *EmbeddingRecord, f StatsFilter) bool {
	if f.ClientID != "" && rec.ClientID != f.ClientID {
		return false
	}
	if f.ActorType != "" && rec.ActorType != f.ActorType {
		return false
	}
	if f.ActorID != "" && rec.ActorID != f.ActorID {
		return false
	}
	return true
}

func (m *MemoryStore) Stats(_ context.Context, filter StatsFilter) (*Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := &Stats{
		BySourceTable: make(map[string]int64),
		ByActorType:   make(map[ActorType]int64),
	}
	byModel := make(map[ModelUsage]int64)

	for _, rec := range m.rows {
		if !matchesStats(rec, filter) {
			continue
		}
		stats.Total++
		stats.BySourceTable[rec.SourceTable]++
		stats.ByActorType[rec.ActorType]++
		byModel[ModelUsage{Model: rec.Model, Dimension: rec.Dimension}]++
	}

	for usage, count := range byModel {
		usage.Count = count
		stats.ByModel = append(stats.ByModel, usage)
	}
	sortModelUsage(stats.ByModel)

	return stats, nil
}

func (m *MemoryStore) ModelUsage(_ context.Context) ([]ModelUsage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	byModel := make(map[ModelUsage]int64)
	for _, rec := range m.rows {
		byModel[ModelUsage{Model: rec.Model, Dimension: rec.Dimension}]++
	}

	var out []ModelUsage
	for usage, count := range byModel {
		usage.Count = count
		out = append(out, usage)
	}
	sortModelUsage(out)
	return out, nil
}

// Search ranks candidates lexicographically on (priority, similarity).
// The engine validates the query and applies defaults before it reaches
// a backend.
func (m *MemoryStore) Search(_ context.Context, query SearchQuery) ([]SearchResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var results []SearchResult
	for _, rec := range m.rows {
		if rec.Model != query.Model || rec.Dimension != len(query.Vector) {
			continue
		}
		if len(query.ActorTypes) > 0 && !containsActor(query.ActorTypes, rec.ActorType) {
			continue
		}
		if len(query.ActorIDs) > 0 && !containsString(query.ActorIDs, rec.ActorID) {
			continue
		}
		if query.ClientID != "" && rec.ClientID != query.ClientID {
			continue
		}
		if query.SourceTable != "" && rec.SourceTable != query.SourceTable {
			continue
		}

		similarity := cosineSimilarity(query.Vector, rec.Vector)
		if similarity < query.Threshold {
			continue
		}

		results = append(results, SearchResult{
			Record:     cloneRecord(rec),
			Similarity: similarity,
			Priority:   rec.ActorType.Priority(),
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Priority != results[j].Priority {
			return results[i].Priority < results[j].Priority
		}
		return results[i].Similarity > results[j].Similarity
	})

	if query.Limit > 0 && len(results) > query.Limit {
		results = results[:query.Limit]
	}
	return results, nil
}

func (m *MemoryStore) Close() error {
	return nil
}

func containsActor(list []ActorType, a ActorType) bool {
	for _, v := range list {
		if v == a {
			return true
		}
	}
	return false
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func sortModelUsage(usages []ModelUsage) {
	sort.Slice(usages, func(i, j int) bool {
		if usages[i].Count != usages[j].Count {
			return usages[i].Count > usages[j].Count
		}
		return usages[i].Model < usages[j].Model
	})
}

// cosineSimilarity is 1 minus cosine distance. A zero vector on either
// side yields 0.
func cosineSimilarity(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func cloneRecord(rec *EmbeddingRecord) *EmbeddingRecord {
	out := *rec
	out.Vector = append([]float32(nil), rec.Vector...)
	out.Metadata = cloneMetadata(rec.Metadata)
	return &out
}

func cloneMetadata(meta map[string]any) map[string]any {
	if meta == nil {
		return nil
	}
	out := make(map[string]any, len(meta))
	for k, v := range meta {
		out[k] = v
	}
	return out
}
