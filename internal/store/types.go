// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Strata Contributors

package store

import "time"

// ActorType identifies which level of the knowledge hierarchy owns an
// embedding row.
type ActorType string

const (
	ActorClient      ActorType = "client"
	ActorSynth       ActorType = "synth"
	ActorSynthClass  ActorType = "synth_class"
	ActorSkillModule ActorType = "skill_module"
)

// Valid reports whether a is one of the four knowledge realms.
func (a ActorType) Valid() bool {
	switch a {
	case ActorClient, ActorSynth, ActorSynthClass, ActorSkillModule:
		return true
	}
	return false
}

// Priority returns the hierarchy rank for search ordering. Lower is
// higher priority: client-specific knowledge outranks generic class and
// skill knowledge.
func (a ActorType) Priority() int {
	switch a {
	case ActorClient:
		return 1
	case ActorSynth:
		return 2
	case ActorSynthClass:
		return 3
	case ActorSkillModule:
		return 4
	}
	return 5
}

// RequiresClient reports whether rows for this realm are tenant-scoped.
// Client and synth knowledge belongs to one tenant; class and skill
// knowledge is shared across tenants and must not carry a client ID.
func (a ActorType) RequiresClient() bool {
	return a == ActorClient || a == ActorSynth
}

// EmbeddingRecord is one persisted embedding row.
type EmbeddingRecord struct {
	ID          string
	ClientID    string // empty for shared (synth_class / skill_module) rows
	SourceTable string
	SourceID    string
	SourceField string
	Model       string
	Dimension   int
	Vector      []float32
	ActorType   ActorType
	ActorID     string
	Metadata    map[string]any
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// UpsertRequest carries one write. The logical upsert key is
// (SourceTable, SourceID, SourceField, ActorType, ActorID, Model); a
// second write with the same key updates Vector, Metadata, and
// UpdatedAt on the existing row.
type UpsertRequest struct {
	SourceTable string
	SourceID    string
	SourceField string
	Model       string
	Vector      []float32
	ActorType   ActorType
	ActorID     string
	ClientID    string
	Metadata    map[string]any
}

// UpsertResult is the post-upsert row plus whether a fresh row was
// created. Inserted exists for caller logging and metrics, not
// correctness.
type UpsertResult struct {
	Record   *EmbeddingRecord
	Inserted bool
}

// SourceFilter selects rows by provenance. SourceTable is required;
// the remaining fields narrow the result when non-zero.
type SourceFilter struct {
	SourceTable string
	SourceField string
	ActorType   ActorType
	ActorID     string
	ClientID    string
}

// DeleteFilter scopes a delete. At least one field must be populated;
// a zero-value filter is refused so a caller cannot wipe the table by
// accident.
type DeleteFilter struct {
	SourceTable string
	SourceField string
	ActorType   ActorType
	ActorID     string
	ClientID    string
	Model       string
}

// Empty reports whether no filter field is populated.
func (f DeleteFilter) Empty() bool {
	return f.SourceTable == "" && f.SourceField == "" && f.ActorType == "" &&
		f.ActorID == "" && f.ClientID == "" && f.Model == ""
}

// StatsFilter optionally narrows Stats aggregation.
type StatsFilter struct {
	ClientID  string
	ActorType ActorType
	ActorID   string
}

// ModelUsage counts rows stored under one (model, dimension) pair.
// Tagged for the audit report and CLI JSON output.
type ModelUsage struct {
	Model     string `json:"model"`
	Dimension int    `json:"dimension"`
	Count     int64  `json:"count"`
}

// Stats aggregates the store contents for dashboards and the auditor.
type Stats struct {
	Total         int64
	BySourceTable map[string]int64
	ByModel       []ModelUsage
	ByActorType   map[ActorType]int64
}

// SearchQuery is one hierarchical similarity search. Vector and Model
// are required; the optional filters intersect the candidate set.
// Limit and Threshold of zero receive the engine defaults.
type SearchQuery struct {
	Vector      []float32
	Model       string
	ActorTypes  []ActorType
	ActorIDs    []string
	ClientID    string
	SourceTable string
	Limit       int
	Threshold   float64
}

// SearchResult is one ranked hit. Similarity is 1 minus cosine
// distance, in [-1, 1]. Priority is the hierarchy rank of the row's
// actor type; callers must treat it as an opaque ordering hint.
type SearchResult struct {
	Record     *EmbeddingRecord
	Similarity float64
	Priority   int
}
