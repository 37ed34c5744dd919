// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Strata Contributors

package sqlite

import (
	"context"
	"math"
	"path/filepath"
	"testing"

	"github.com/strata-dev/strata/internal/store"
	"github.com/stretchr/testify/require"
)

// fakeValidator accepts exactly the (model, dimension) pairs in dims.
type fakeValidator struct {
	dims map[string]int
}

func (f fakeValidator) Validate(name string, dimension int) bool {
	d, ok := f.dims[name]
	return ok && d == dimension
}

// newTestStore opens a store on a throwaway database file.
func newTestStore(t *testing.T) *EmbeddingStore {
	t.Helper()

	s, err := NewEmbeddingStore(filepath.Join(t.TempDir(), "strata-test.db"), fakeValidator{
		dims: map[string]int{
			"test-model":  3,
			"other-model": 4,
		},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// simVector builds a unit vector whose cosine similarity with
// [1, 0, 0] equals sim.
func simVector(sim float64) []float32 {
	return []float32{float32(sim), float32(math.Sqrt(1 - sim*sim)), 0}
}

func validUpsert() *store.UpsertRequest {
	return &store.UpsertRequest{
		SourceTable: "memories",
		SourceID:    "11111111-1111-1111-1111-111111111111",
		SourceField: "observation",
		Model:       "test-model",
		Vector:      []float32{0.1, 0.2, 0.3},
		ActorType:   store.ActorSynth,
		ActorID:     "42",
		ClientID:    "acme",
	}
}

func mustUpsert(t *testing.T, s *EmbeddingStore, req *store.UpsertRequest) *store.UpsertResult {
	t.Helper()
	res, err := s.Upsert(context.Background(), req)
	require.NoError(t, err)
	return res
}
