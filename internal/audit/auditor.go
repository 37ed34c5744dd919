// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Strata Contributors

// Package audit reconciles what the store actually holds against what
// the model registry currently considers valid. The auditor only
// reads; it reports drift and never repairs it.
package audit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/strata-dev/strata/internal/store"
	strataerr "github.com/strata-dev/strata/pkg/errors"
)

// DimensionMismatch records a stored dimension that disagrees with the
// registry for a known model.
type DimensionMismatch struct {
	Model    string `json:"model"`
	Expected int    `json:"expected_dimension"`
	Actual   int    `json:"actual_dimension"`
}

// Report is the consistency audit output. It is a plain data structure
// consumed by external reporting tooling.
type Report struct {
	Valid               bool                `json:"valid"`
	CheckedAt           time.Time           `json:"checked_at"`
	DatabaseModels      []store.ModelUsage  `json:"database_models"`
	UnsupportedModels   []string            `json:"unsupported_models,omitempty"`
	DimensionMismatches []DimensionMismatch `json:"dimension_mismatches,omitempty"`
	Errors              []string            `json:"errors,omitempty"`
	Warnings            []string            `json:"warnings,omitempty"`
}

// Registry is the registry surface the auditor needs, satisfied by
// *registry.Registry.
type Registry interface {
	Dimension(name string) (int, bool)
}

// Auditor compares stored (model, dimension) pairs with the registry.
type Auditor struct {
	store       store.EmbeddingStore
	registry    Registry
	activeModel string
	logger      *slog.Logger
}

// New creates an auditor. activeModel is the currently resolved model
// name; the auditor warns when it has zero stored rows.
func New(s store.EmbeddingStore, reg Registry, activeModel string) *Auditor {
	return &Auditor{store: s, registry: reg, activeModel: activeModel, logger: slog.Default()}
}

// Audit enumerates the distinct (model, dimension) pairs present in
// the store and classifies each against the registry. Unknown model
// names and dimension disagreements are errors; an active model with
// no stored rows is only a warning, since a fresh rollout legitimately
// has no embeddings yet.
func (a *Auditor) Audit(ctx context.Context) (*Report, error) {
	usage, err := a.store.ModelUsage(ctx)
	if err != nil {
		return nil, strataerr.Wrap(err, strataerr.CodeAuditQueryFailure, "enumerating stored models")
	}

	report := &Report{
		Valid:          true,
		CheckedAt:      time.Now().UTC(),
		DatabaseModels: usage,
	}

	activeRows := int64(0)
	for _, u := range usage {
		if u.Model == a.activeModel {
			activeRows += u.Count
		}

		expected, known := a.registry.Dimension(u.Model)
		if !known {
			report.UnsupportedModels = append(report.UnsupportedModels, u.Model)
			report.Errors = append(report.Errors,
				fmt.Sprintf("unsupported model in store: %s", u.Model))
			report.Valid = false
			continue
		}

		if expected != u.Dimension {
			report.DimensionMismatches = append(report.DimensionMismatches, DimensionMismatch{
				Model:    u.Model,
				Expected: expected,
				Actual:   u.Dimension,
			})
			report.Errors = append(report.Errors,
				fmt.Sprintf("dimension mismatch for %s: expected %d, found %d", u.Model, expected, u.Dimension))
			report.Valid = false
		}
	}

	if len(usage) > 0 && activeRows == 0 {
		report.Warnings = append(report.Warnings,
			fmt.Sprintf("active model %s has no stored embeddings; a model rollout may not have produced any yet", a.activeModel))
	}

	if report.Valid {
		a.logger.InfoContext(ctx, "embedding consistency audit passed",
			"models", len(usage), "warnings", len(report.Warnings))
	} else {
		a.logger.WarnContext(ctx, "embedding consistency audit failed",
			"errors", len(report.Errors), "warnings", len(report.Warnings))
	}

	return report, nil
}
