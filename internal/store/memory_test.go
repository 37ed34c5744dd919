// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Strata Contributors

package store

import (
	"context"
	"math"
	"testing"

	strataerr "github.com/strata-dev/strata/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// simVector builds a unit vector whose cosine similarity with
// [1, 0, 0] equals sim.
func simVector(sim float64) []float32 {
	return []float32{float32(sim), float32(math.Sqrt(1 - sim*sim)), 0}
}

func mustUpsert(t *testing.T, s EmbeddingStore, req *UpsertRequest) *UpsertResult {
	t.Helper()
	res, err := s.Upsert(context.Background(), req)
	require.NoError(t, err)
	return res
}

func TestMemoryUpsertInsertThenUpdate(t *testing.T) {
	s := NewMemoryStore(testValidator())
	ctx := context.Background()

	first := mustUpsert(t, s, validUpsert())
	assert.True(t, first.Inserted)
	assert.NotEmpty(t, first.Record.ID)
	assert.Equal(t, 3, first.Record.Dimension)
	assert.Equal(t, first.Record.CreatedAt, first.Record.UpdatedAt)

	// Same logical key, new vector and metadata: update in place.
	req := validUpsert()
	req.Vector = []float32{0.9, 0.1, 0.0}
	req.Metadata = map[string]any{"version": "2"}

	second := mustUpsert(t, s, req)
	assert.False(t, second.Inserted)
	assert.Equal(t, first.Record.ID, second.Record.ID)
	assert.Equal(t, first.Record.CreatedAt, second.Record.CreatedAt)
	assert.Equal(t, []float32{0.9, 0.1, 0.0}, second.Record.Vector)
	assert.Equal(t, map[string]any{"version": "2"}, second.Record.Metadata)

	rows, err := s.FetchBySource(ctx, SourceFilter{SourceTable: "memories"})
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestMemoryUpsertDistinctKeys(t *testing.T) {
	s := NewMemoryStore(testValidator())
	ctx := context.Background()

	mustUpsert(t, s, validUpsert())

	// A different model under the same source is a separate row.
	req := validUpsert()
	req.Model = "other-model"
	req.Vector = []float32{0.1, 0.2, 0.3, 0.4}
	res := mustUpsert(t, s, req)
	assert.True(t, res.Inserted)

	// So is a different source field.
	req = validUpsert()
	req.SourceField = "summary"
	res = mustUpsert(t, s, req)
	assert.True(t, res.Inserted)

	rows, err := s.FetchBySource(ctx, SourceFilter{SourceTable: "memories"})
	require.NoError(t, err)
	assert.Len(t, rows, 3)
}

func TestMemoryUpsertRejectsScopeViolation(t *testing.T) {
	s := NewMemoryStore(testValidator())

	req := validUpsert()
	req.ActorType = ActorSynthClass
	req.ClientID = "acme" // shared realm must not carry a tenant

	_, err := s.Upsert(context.Background(), req)
	require.Error(t, err)
	assert.True(t, strataerr.IsScopeViolation(err))
}

func TestMemoryFetchBySourceFilters(t *testing.T) {
	s := NewMemoryStore(testValidator())
	ctx := context.Background()

	a := validUpsert()
	mustUpsert(t, s, a)

	b := validUpsert()
	b.SourceID = "22222222-2222-2222-2222-222222222222"
	b.ActorType = ActorSynthClass
	b.ActorID = "24"
	b.ClientID = ""
	mustUpsert(t, s, b)

	_, err := s.FetchBySource(ctx, SourceFilter{})
	require.Error(t, err)
	assert.True(t, strataerr.IsInvalidInput(err))

	rows, err := s.FetchBySource(ctx, SourceFilter{SourceTable: "memories"})
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	rows, err = s.FetchBySource(ctx, SourceFilter{SourceTable: "memories", ActorType: ActorSynthClass})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "24", rows[0].ActorID)

	rows, err = s.FetchBySource(ctx, SourceFilter{SourceTable: "memories", ClientID: "acme"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, ActorSynth, rows[0].ActorType)

	rows, err = s.FetchBySource(ctx, SourceFilter{SourceTable: "documents"})
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestMemoryDelete(t *testing.T) {
	s := NewMemoryStore(testValidator())
	ctx := context.Background()

	mustUpsert(t, s, validUpsert())

	other := validUpsert()
	other.SourceID = "22222222-2222-2222-2222-222222222222"
	other.ActorID = "99"
	mustUpsert(t, s, other)

	// An unscoped delete is refused and removes nothing.
	_, err := s.Delete(ctx, DeleteFilter{})
	require.Error(t, err)
	assert.True(t, strataerr.IsUnscopedDelete(err))

	deleted, err := s.Delete(ctx, DeleteFilter{ActorType: ActorSynth, ActorID: "42"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	// Deleting an already-empty scope reports zero, not an error.
	deleted, err = s.Delete(ctx, DeleteFilter{ActorType: ActorSynth, ActorID: "42"})
	require.NoError(t, err)
	assert.Equal(t, int64(0), deleted)

	rows, err := s.FetchBySource(ctx, SourceFilter{SourceTable: "memories"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "99", rows[0].ActorID)
}

func TestMemoryStats(t *testing.T) {
	s := NewMemoryStore(testValidator())
	ctx := context.Background()

	mustUpsert(t, s, validUpsert())

	b := validUpsert()
	b.SourceID = "22222222-2222-2222-2222-222222222222"
	b.ActorType = ActorSkillModule
	b.ActorID = "sm-1"
	b.ClientID = ""
	mustUpsert(t, s, b)

	c := validUpsert()
	c.SourceTable = "documents"
	c.Model = "other-model"
	c.Vector = []float32{1, 0, 0, 0}
	mustUpsert(t, s, c)

	stats, err := s.Stats(ctx, StatsFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.Total)
	assert.Equal(t, int64(2), stats.BySourceTable["memories"])
	assert.Equal(t, int64(1), stats.BySourceTable["documents"])
	assert.Equal(t, int64(2), stats.ByActorType[ActorSynth])
	assert.Equal(t, int64(1), stats.ByActorType[ActorSkillModule])
	require.Len(t, stats.ByModel, 2)
	assert.Equal(t, ModelUsage{Model: "test-model", Dimension: 3, Count: 2}, stats.ByModel[0])

	scoped, err := s.Stats(ctx, StatsFilter{ClientID: "acme"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), scoped.Total)

	scoped, err = s.Stats(ctx, StatsFilter{ActorType: ActorSkillModule})
	require.NoError(t, err)
	assert.Equal(t, int64(1), scoped.Total)
}

func TestMemoryModelUsage(t *testing.T) {
	s := NewMemoryStore(testValidator())

	mustUpsert(t, s, validUpsert())

	b := validUpsert()
	b.SourceID = "22222222-2222-2222-2222-222222222222"
	mustUpsert(t, s, b)

	c := validUpsert()
	c.Model = "other-model"
	c.Vector = []float32{1, 0, 0, 0}
	mustUpsert(t, s, c)

	usage, err := s.ModelUsage(context.Background())
	require.NoError(t, err)
	require.Len(t, usage, 2)
	assert.Equal(t, ModelUsage{Model: "test-model", Dimension: 3, Count: 2}, usage[0])
	assert.Equal(t, ModelUsage{Model: "other-model", Dimension: 4, Count: 1}, usage[1])
}

func TestMemorySearchHierarchyOrdering(t *testing.T) {
	s := NewMemoryStore(testValidator())
	ctx := context.Background()

	// A weaker client match must outrank a stronger shared-class match.
	client := validUpsert()
	client.ActorType = ActorClient
	client.ActorID = "C1"
	client.Vector = simVector(0.80)
	mustUpsert(t, s, client)

	class := validUpsert()
	class.SourceID = "22222222-2222-2222-2222-222222222222"
	class.ActorType = ActorSynthClass
	class.ActorID = "24"
	class.ClientID = ""
	class.Vector = simVector(0.90)
	mustUpsert(t, s, class)

	// Below the threshold: never returned, regardless of realm.
	skill := validUpsert()
	skill.SourceID = "33333333-3333-3333-3333-333333333333"
	skill.ActorType = ActorSkillModule
	skill.ActorID = "sm-1"
	skill.ClientID = ""
	skill.Vector = simVector(0.50)
	mustUpsert(t, s, skill)

	results, err := s.Search(ctx, SearchQuery{
		Vector:    []float32{1, 0, 0},
		Model:     "test-model",
		Threshold: 0.7,
		Limit:     10,
	})
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, ActorClient, results[0].Record.ActorType)
	assert.Equal(t, 1, results[0].Priority)
	assert.InDelta(t, 0.80, results[0].Similarity, 1e-6)

	assert.Equal(t, ActorSynthClass, results[1].Record.ActorType)
	assert.Equal(t, 3, results[1].Priority)
	assert.InDelta(t, 0.90, results[1].Similarity, 1e-6)
}

func TestMemorySearchSimilarityWithinRealm(t *testing.T) {
	s := NewMemoryStore(testValidator())

	sims := []float64{0.75, 0.95, 0.85}
	for i, sim := range sims {
		req := validUpsert()
		req.SourceID = string(rune('a' + i))
		req.Vector = simVector(sim)
		mustUpsert(t, s, req)
	}

	results, err := s.Search(context.Background(), SearchQuery{
		Vector:    []float32{1, 0, 0},
		Model:     "test-model",
		Threshold: 0.7,
		Limit:     10,
	})
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.InDelta(t, 0.95, results[0].Similarity, 1e-6)
	assert.InDelta(t, 0.85, results[1].Similarity, 1e-6)
	assert.InDelta(t, 0.75, results[2].Similarity, 1e-6)
}

func TestMemorySearchFilters(t *testing.T) {
	s := NewMemoryStore(testValidator())
	ctx := context.Background()

	a := validUpsert()
	a.Vector = simVector(0.9)
	mustUpsert(t, s, a)

	b := validUpsert()
	b.SourceID = "22222222-2222-2222-2222-222222222222"
	b.ClientID = "globex"
	b.Vector = simVector(0.9)
	mustUpsert(t, s, b)

	query := SearchQuery{
		Vector:    []float32{1, 0, 0},
		Model:     "test-model",
		ClientID:  "acme",
		Threshold: 0.7,
		Limit:     10,
	}
	results, err := s.Search(ctx, query)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "acme", results[0].Record.ClientID)

	query.ClientID = ""
	query.ActorIDs = []string{"42"}
	query.ActorTypes = []ActorType{ActorSynth}
	results, err = s.Search(ctx, query)
	require.NoError(t, err)
	assert.Len(t, results, 2)

	query.ActorTypes = []ActorType{ActorClient}
	results, err = s.Search(ctx, query)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestMemorySearchDimensionMismatchExcluded(t *testing.T) {
	s := NewMemoryStore(testValidator())

	// Rows under other-model (dimension 4) never match a 3-dimension
	// query even under the same source.
	req := validUpsert()
	req.Model = "other-model"
	req.Vector = []float32{1, 0, 0, 0}
	mustUpsert(t, s, req)

	results, err := s.Search(context.Background(), SearchQuery{
		Vector: []float32{1, 0, 0},
		Model:  "other-model",
		Limit:  10,
	})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestMemorySearchLimit(t *testing.T) {
	s := NewMemoryStore(testValidator())

	for i := 0; i < 5; i++ {
		req := validUpsert()
		req.SourceID = string(rune('a' + i))
		req.Vector = simVector(0.8)
		mustUpsert(t, s, req)
	}

	results, err := s.Search(context.Background(), SearchQuery{
		Vector:    []float32{1, 0, 0},
		Model:     "test-model",
		Threshold: 0.7,
		Limit:     2,
	})
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, cosineSimilarity([]float32{1, 0}, []float32{2, 0}), 1e-9)
	assert.InDelta(t, 0.0, cosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.InDelta(t, -1.0, cosineSimilarity([]float32{1, 0}, []float32{-1, 0}), 1e-9)
	assert.Equal(t, 0.0, cosineSimilarity([]float32{0, 0}, []float32{1, 0}))
}
