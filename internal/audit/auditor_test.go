// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Strata Contributors

package audit_test

import (
	"context"
	"testing"

	"github.com/strata-dev/strata/internal/audit"
	"github.com/strata-dev/strata/internal/store"
	strataerr "github.com/strata-dev/strata/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRegistry struct {
	dims map[string]int
}

func (f fakeRegistry) Dimension(name string) (int, bool) {
	d, ok := f.dims[name]
	return d, ok
}

// usageStore serves canned model usage; the auditor touches nothing
// else on the store.
type usageStore struct {
	store.EmbeddingStore
	usage []store.ModelUsage
	err   error
}

func (u *usageStore) ModelUsage(context.Context) ([]store.ModelUsage, error) {
	return u.usage, u.err
}

func testRegistry() fakeRegistry {
	return fakeRegistry{dims: map[string]int{
		"test-model":  3,
		"other-model": 4,
	}}
}

func TestAuditEmptyStorePasses(t *testing.T) {
	auditor := audit.New(&usageStore{}, testRegistry(), "test-model")

	report, err := auditor.Audit(context.Background())
	require.NoError(t, err)

	assert.True(t, report.Valid)
	assert.Empty(t, report.Errors)
	assert.Empty(t, report.Warnings)
	assert.False(t, report.CheckedAt.IsZero())
}

func TestAuditConsistentStorePasses(t *testing.T) {
	s := &usageStore{usage: []store.ModelUsage{
		{Model: "test-model", Dimension: 3, Count: 12},
		{Model: "other-model", Dimension: 4, Count: 2},
	}}
	auditor := audit.New(s, testRegistry(), "test-model")

	report, err := auditor.Audit(context.Background())
	require.NoError(t, err)

	assert.True(t, report.Valid)
	assert.Len(t, report.DatabaseModels, 2)
	assert.Empty(t, report.Errors)
	assert.Empty(t, report.Warnings)
}

func TestAuditFlagsUnsupportedModel(t *testing.T) {
	s := &usageStore{usage: []store.ModelUsage{
		{Model: "test-model", Dimension: 3, Count: 5},
		{Model: "retired-model", Dimension: 3, Count: 1},
	}}
	auditor := audit.New(s, testRegistry(), "test-model")

	report, err := auditor.Audit(context.Background())
	require.NoError(t, err)

	assert.False(t, report.Valid)
	assert.Equal(t, []string{"retired-model"}, report.UnsupportedModels)
	require.Len(t, report.Errors, 1)
	assert.Contains(t, report.Errors[0], "retired-model")
}

func TestAuditFlagsDimensionMismatch(t *testing.T) {
	s := &usageStore{usage: []store.ModelUsage{
		{Model: "test-model", Dimension: 8, Count: 3},
	}}
	auditor := audit.New(s, testRegistry(), "test-model")

	report, err := auditor.Audit(context.Background())
	require.NoError(t, err)

	assert.False(t, report.Valid)
	require.Len(t, report.DimensionMismatches, 1)
	assert.Equal(t, audit.DimensionMismatch{Model: "test-model", Expected: 3, Actual: 8}, report.DimensionMismatches[0])
}

func TestAuditWarnsWhenActiveModelUnused(t *testing.T) {
	s := &usageStore{usage: []store.ModelUsage{
		{Model: "other-model", Dimension: 4, Count: 9},
	}}
	auditor := audit.New(s, testRegistry(), "test-model")

	report, err := auditor.Audit(context.Background())
	require.NoError(t, err)

	// Drift errors only come from unknown models or bad dimensions; an
	// unused active model stays a warning.
	assert.True(t, report.Valid)
	require.Len(t, report.Warnings, 1)
	assert.Contains(t, report.Warnings[0], "test-model")
}

func TestAuditPropagatesStoreFailure(t *testing.T) {
	s := &usageStore{err: strataerr.New(strataerr.CodeStoreDatabaseFailure, "boom")}
	auditor := audit.New(s, testRegistry(), "test-model")

	_, err := auditor.Audit(context.Background())
	require.Error(t, err)
	assert.Equal(t, strataerr.CodeAuditQueryFailure, strataerr.CodeOf(err))
}
