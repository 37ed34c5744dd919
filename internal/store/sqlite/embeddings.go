// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Strata Contributors

// Package sqlite implements the durable embedding store on SQLite with
// the sqlite-vec extension providing in-database cosine ranking.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"log/slog"
	"math"
	"strings"
	"time"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/strata-dev/strata/internal/store"
	strataerr "github.com/strata-dev/strata/pkg/errors"
)

func init() {
	sqlite_vec.Auto()
}

// Compile-time interface check.
var _ store.EmbeddingStore = (*EmbeddingStore)(nil)

// EmbeddingStore implements store.EmbeddingStore backed by SQLite.
// Vectors live as float32 BLOBs in the row itself; sqlite-vec's
// vec_distance_cosine ranks them in SQL, scoped by
// (embedding_model, embedding_dimension) so vector spaces never mix.
type EmbeddingStore struct {
	db        *sql.DB
	validator store.ModelValidator
	logger    *slog.Logger
}

// NewEmbeddingStore opens (or creates) a SQLite database at dbPath and
// initialises the embeddings table.
func NewEmbeddingStore(dbPath string, validator store.ModelValidator) (*EmbeddingStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, strataerr.Errorf(strataerr.CodeStoreUnavailable, "opening sqlite db: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, strataerr.Errorf(strataerr.CodeStoreUnavailable, "pinging sqlite db: %w", err)
	}

	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, strataerr.Errorf(strataerr.CodeStoreDatabaseFailure, "migrating embeddings table: %w", err)
	}

	return &EmbeddingStore{db: db, validator: validator, logger: slog.Default()}, nil
}

func migrate(db *sql.DB) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS object_embeddings (
	id                  TEXT PRIMARY KEY,
	client_id           TEXT NOT NULL DEFAULT '',
	source_table        TEXT NOT NULL,
	source_id           TEXT NOT NULL,
	source_field        TEXT NOT NULL,
	embedding_model     TEXT NOT NULL,
	embedding_dimension INTEGER NOT NULL,
	embedding           BLOB NOT NULL,
	actor_type          TEXT NOT NULL,
	actor_id            TEXT NOT NULL,
	metadata            TEXT NOT NULL DEFAULT '{}',
	created_at          TEXT NOT NULL,
	updated_at          TEXT NOT NULL,
	UNIQUE(source_table, source_id, source_field, actor_type, actor_id, embedding_model)
);

CREATE INDEX IF NOT EXISTS idx_embeddings_model_dim ON object_embeddings(embedding_model, embedding_dimension);
CREATE INDEX IF NOT EXISTS idx_embeddings_actor ON object_embeddings(actor_type, actor_id);
CREATE INDEX IF NOT EXISTS idx_embeddings_client ON object_embeddings(client_id);
`
	_, err := db.Exec(ddl)
	return err
}

// Close closes the underlying database connection.
func (s *EmbeddingStore) Close() error {
	return s.db.Close()
}

const recordColumns = `id, client_id, source_table, source_id, source_field,
	embedding_model, embedding_dimension, embedding, actor_type, actor_id,
	metadata, created_at, updated_at`

// Upsert inserts a new row or, when the logical key already exists,
// updates the existing row's vector, metadata, and updated_at. The
// write is a single conditional statement on the UNIQUE constraint, so
// concurrent writers for the same key cannot duplicate rows or lose an
// update. created_at is written once and compared afterwards to report
// insert vs update.
func (s *EmbeddingStore) Upsert(ctx context.Context, req *store.UpsertRequest) (*store.UpsertResult, error) {
	if err := store.ValidateUpsert(s.validator, req); err != nil {
		return nil, err
	}

	blob, err := sqlite_vec.SerializeFloat32(req.Vector)
	if err != nil {
		return nil, strataerr.Errorf(strataerr.CodeStoreInvalidInput, "serializing embedding: %w", err)
	}

	metaJSON := []byte("{}")
	if len(req.Metadata) > 0 {
		metaJSON, err = json.Marshal(req.Metadata)
		if err != nil {
			return nil, strataerr.Errorf(strataerr.CodeStoreInvalidInput, "marshalling metadata: %w", err)
		}
	}

	now := formatTime(time.Now())

	const q = `INSERT INTO object_embeddings (` + recordColumns + `)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(source_table, source_id, source_field, actor_type, actor_id, embedding_model) DO UPDATE SET
	embedding = excluded.embedding,
	embedding_dimension = excluded.embedding_dimension,
	metadata = excluded.metadata,
	updated_at = excluded.updated_at`

	_, err = s.db.ExecContext(ctx, q,
		uuid.NewString(), req.ClientID,
		req.SourceTable, req.SourceID, req.SourceField,
		req.Model, len(req.Vector), blob,
		string(req.ActorType), req.ActorID,
		string(metaJSON), now, now,
	)
	if err != nil {
		return nil, strataerr.Errorf(strataerr.CodeStoreDatabaseFailure, "upserting embedding: %w", err)
	}

	const sel = `SELECT ` + recordColumns + ` FROM object_embeddings
WHERE source_table = ? AND source_id = ? AND source_field = ? AND actor_type = ? AND actor_id = ? AND embedding_model = ?`

	rec, err := s.scanOne(s.db.QueryRowContext(ctx, sel,
		req.SourceTable, req.SourceID, req.SourceField,
		string(req.ActorType), req.ActorID, req.Model,
	))
	if err != nil {
		return nil, strataerr.Errorf(strataerr.CodeStoreDatabaseFailure, "reading back upserted embedding: %w", err)
	}

	inserted := formatTime(rec.CreatedAt) == now
	s.logger.InfoContext(ctx, "stored embedding",
		"source_table", req.SourceTable,
		"source_field", req.SourceField,
		"embedding_model", req.Model,
		"actor_type", string(req.ActorType),
		"actor_id", req.ActorID,
		"inserted", inserted,
	)

	return &store.UpsertResult{Record: rec, Inserted: inserted}, nil
}

// FetchBySource returns rows filtered by provenance and scope. Rows
// come back in storage order; no ordering is guaranteed.
func (s *EmbeddingStore) FetchBySource(ctx context.Context, filter store.SourceFilter) ([]*store.EmbeddingRecord, error) {
	if filter.SourceTable == "" {
		return nil, strataerr.New(strataerr.CodeStoreInvalidInput, "source_table is required")
	}

	var (
		qb   strings.Builder
		args []any
	)

	qb.WriteString(`SELECT ` + recordColumns + ` FROM object_embeddings WHERE source_table = ?`)
	args = append(args, filter.SourceTable)

	if filter.SourceField != "" {
		qb.WriteString(` AND source_field = ?`)
		args = append(args, filter.SourceField)
	}
	if filter.ActorType != "" {
		qb.WriteString(` AND actor_type = ?`)
		args = append(args, string(filter.ActorType))
	}
	if filter.ActorID != "" {
		qb.WriteString(` AND actor_id = ?`)
		args = append(args, filter.ActorID)
	}
	if filter.ClientID != "" {
		qb.WriteString(` AND client_id = ?`)
		args = append(args, filter.ClientID)
	}

	rows, err := s.db.QueryContext(ctx, qb.String(), args...)
	if err != nil {
		return nil, strataerr.Errorf(strataerr.CodeStoreDatabaseFailure, "fetching embeddings for %s: %w", filter.SourceTable, err)
	}
	defer func() { _ = rows.Close() }()

	var out []*store.EmbeddingRecord
	for rows.Next() {
		rec, err := s.scanOne(rows)
		if err != nil {
			return nil, strataerr.Errorf(strataerr.CodeStoreDatabaseFailure, "scanning embedding row: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, strataerr.Errorf(strataerr.CodeStoreDatabaseFailure, "iterating embedding rows: %w", err)
	}

	return out, nil
}

// Delete removes rows matching the filter in a single statement and
// returns the number removed. A zero-value filter is refused.
func (s *EmbeddingStore) Delete(ctx context.Context, filter store.DeleteFilter) (int64, error) {
	if err := store.ValidateDelete(filter); err != nil {
		return 0, err
	}

	var (
		qb   strings.Builder
		args []any
	)

	qb.WriteString(`DELETE FROM object_embeddings WHERE 1=1`)
	if filter.SourceTable != "" {
		qb.WriteString(` AND source_table = ?`)
		args = append(args, filter.SourceTable)
	}
	if filter.SourceField != "" {
		qb.WriteString(` AND source_field = ?`)
		args = append(args, filter.SourceField)
	}
	if filter.ActorType != "" {
		qb.WriteString(` AND actor_type = ?`)
		args = append(args, string(filter.ActorType))
	}
	if filter.ActorID != "" {
		qb.WriteString(` AND actor_id = ?`)
		args = append(args, filter.ActorID)
	}
	if filter.ClientID != "" {
		qb.WriteString(` AND client_id = ?`)
		args = append(args, filter.ClientID)
	}
	if filter.Model != "" {
		qb.WriteString(` AND embedding_model = ?`)
		args = append(args, filter.Model)
	}

	result, err := s.db.ExecContext(ctx, qb.String(), args...)
	if err != nil {
		return 0, strataerr.Errorf(strataerr.CodeStoreDatabaseFailure, "deleting embeddings: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, strataerr.Errorf(strataerr.CodeStoreDatabaseFailure, "counting deleted embeddings: %w", err)
	}

	s.logger.InfoContext(ctx, "deleted embeddings",
		"count", deleted,
		"source_table", filter.SourceTable,
		"source_field", filter.SourceField,
		"actor_type", string(filter.ActorType),
		"actor_id", filter.ActorID,
	)
	return deleted, nil
}

// statsWhere builds the shared WHERE clause for the stats queries.
func statsWhere(filter store.StatsFilter) (string, []any) {
	var (
		qb   strings.Builder
		args []any
	)
	qb.WriteString(` WHERE 1=1`)
	if filter.ClientID != "" {
		qb.WriteString(` AND client_id = ?`)
		args = append(args, filter.ClientID)
	}
	if filter.ActorType != "" {
		qb.WriteString(` AND actor_type = ?`)
		args = append(args, string(filter.ActorType))
	}
	if filter.ActorID != "" {
		qb.WriteString(` AND actor_id = ?`)
		args = append(args, filter.ActorID)
	}
	return qb.String(), args
}

// Stats aggregates the store contents: total, by source table, by
// (model, dimension), and by actor type.
func (s *EmbeddingStore) Stats(ctx context.Context, filter store.StatsFilter) (*store.Stats, error) {
	where, args := statsWhere(filter)

	stats := &store.Stats{
		BySourceTable: make(map[string]int64),
		ByActorType:   make(map[store.ActorType]int64),
	}

	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM object_embeddings`+where, args...,
	).Scan(&stats.Total); err != nil {
		return nil, strataerr.Errorf(strataerr.CodeStoreDatabaseFailure, "counting embeddings: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT source_table, COUNT(*) FROM object_embeddings`+where+` GROUP BY source_table`, args...)
	if err != nil {
		return nil, strataerr.Errorf(strataerr.CodeStoreDatabaseFailure, "counting embeddings by table: %w", err)
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var table string
		var count int64
		if err := rows.Scan(&table, &count); err != nil {
			return nil, strataerr.Errorf(strataerr.CodeStoreDatabaseFailure, "scanning table count: %w", err)
		}
		stats.BySourceTable[table] = count
	}
	if err := rows.Err(); err != nil {
		return nil, strataerr.Errorf(strataerr.CodeStoreDatabaseFailure, "iterating table counts: %w", err)
	}

	modelRows, err := s.db.QueryContext(ctx,
		`SELECT embedding_model, embedding_dimension, COUNT(*) AS count FROM object_embeddings`+where+
			` GROUP BY embedding_model, embedding_dimension ORDER BY count DESC, embedding_model`, args...)
	if err != nil {
		return nil, strataerr.Errorf(strataerr.CodeStoreDatabaseFailure, "counting embeddings by model: %w", err)
	}
	defer func() { _ = modelRows.Close() }()
	for modelRows.Next() {
		var usage store.ModelUsage
		if err := modelRows.Scan(&usage.Model, &usage.Dimension, &usage.Count); err != nil {
			return nil, strataerr.Errorf(strataerr.CodeStoreDatabaseFailure, "scanning model count: %w", err)
		}
		stats.ByModel = append(stats.ByModel, usage)
	}
	if err := modelRows.Err(); err != nil {
		return nil, strataerr.Errorf(strataerr.CodeStoreDatabaseFailure, "iterating model counts: %w", err)
	}

	actorRows, err := s.db.QueryContext(ctx,
		`SELECT actor_type, COUNT(*) FROM object_embeddings`+where+` GROUP BY actor_type`, args...)
	if err != nil {
		return nil, strataerr.Errorf(strataerr.CodeStoreDatabaseFailure, "counting embeddings by actor type: %w", err)
	}
	defer func() { _ = actorRows.Close() }()
	for actorRows.Next() {
		var actorType string
		var count int64
		if err := actorRows.Scan(&actorType, &count); err != nil {
			return nil, strataerr.Errorf(strataerr.CodeStoreDatabaseFailure, "scanning actor count: %w", err)
		}
		stats.ByActorType[store.ActorType(actorType)] = count
	}
	if err := actorRows.Err(); err != nil {
		return nil, strataerr.Errorf(strataerr.CodeStoreDatabaseFailure, "iterating actor counts: %w", err)
	}

	return stats, nil
}

// ModelUsage enumerates the distinct (model, dimension) pairs actually
// present in the store, most used first. Auditor input.
func (s *EmbeddingStore) ModelUsage(ctx context.Context) ([]store.ModelUsage, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT embedding_model, embedding_dimension, COUNT(*) AS count
FROM object_embeddings
GROUP BY embedding_model, embedding_dimension
ORDER BY count DESC, embedding_model`)
	if err != nil {
		return nil, strataerr.Errorf(strataerr.CodeStoreDatabaseFailure, "querying model usage: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []store.ModelUsage
	for rows.Next() {
		var usage store.ModelUsage
		if err := rows.Scan(&usage.Model, &usage.Dimension, &usage.Count); err != nil {
			return nil, strataerr.Errorf(strataerr.CodeStoreDatabaseFailure, "scanning model usage: %w", err)
		}
		out = append(out, usage)
	}
	if err := rows.Err(); err != nil {
		return nil, strataerr.Errorf(strataerr.CodeStoreDatabaseFailure, "iterating model usage: %w", err)
	}

	return out, nil
}

// Search ranks candidates lexicographically on (priority ASC,
// similarity DESC) entirely in SQL. Candidates are scoped to the query
// model AND dimension so incompatible vector spaces never meet. The
// engine validates the query and fills defaults before calling here.
func (s *EmbeddingStore) Search(ctx context.Context, query store.SearchQuery) ([]store.SearchResult, error) {
	blob, err := sqlite_vec.SerializeFloat32(query.Vector)
	if err != nil {
		return nil, strataerr.Errorf(strataerr.CodeStoreInvalidInput, "serializing query vector: %w", err)
	}

	var (
		qb   strings.Builder
		args []any
	)

	qb.WriteString(`SELECT ` + recordColumns + `,
	1.0 - vec_distance_cosine(embedding, ?) AS similarity,
	CASE actor_type
		WHEN 'client' THEN 1
		WHEN 'synth' THEN 2
		WHEN 'synth_class' THEN 3
		WHEN 'skill_module' THEN 4
		ELSE 5
	END AS priority
FROM object_embeddings
WHERE embedding_model = ? AND embedding_dimension = ?`)
	args = append(args, blob, query.Model, len(query.Vector))

	if len(query.ActorTypes) > 0 {
		qb.WriteString(` AND actor_type IN (` + placeholders(len(query.ActorTypes)) + `)`)
		for _, at := range query.ActorTypes {
			args = append(args, string(at))
		}
	}
	if len(query.ActorIDs) > 0 {
		qb.WriteString(` AND actor_id IN (` + placeholders(len(query.ActorIDs)) + `)`)
		for _, id := range query.ActorIDs {
			args = append(args, id)
		}
	}
	if query.ClientID != "" {
		qb.WriteString(` AND client_id = ?`)
		args = append(args, query.ClientID)
	}
	if query.SourceTable != "" {
		qb.WriteString(` AND source_table = ?`)
		args = append(args, query.SourceTable)
	}

	// SQLite does not allow the similarity alias in WHERE; repeat the
	// expression for the threshold cut.
	qb.WriteString(` AND 1.0 - vec_distance_cosine(embedding, ?) >= ?`)
	args = append(args, blob, query.Threshold)

	qb.WriteString(` ORDER BY priority ASC, similarity DESC LIMIT ?`)
	args = append(args, query.Limit)

	rows, err := s.db.QueryContext(ctx, qb.String(), args...)
	if err != nil {
		return nil, strataerr.Errorf(strataerr.CodeStoreDatabaseFailure, "searching embeddings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []store.SearchResult
	for rows.Next() {
		var (
			rec        store.EmbeddingRecord
			vecBlob    []byte
			metaJSON   string
			created    string
			updated    string
			actorType  string
			similarity float64
			priority   int
		)
		if err := rows.Scan(
			&rec.ID, &rec.ClientID, &rec.SourceTable, &rec.SourceID, &rec.SourceField,
			&rec.Model, &rec.Dimension, &vecBlob, &actorType, &rec.ActorID,
			&metaJSON, &created, &updated,
			&similarity, &priority,
		); err != nil {
			return nil, strataerr.Errorf(strataerr.CodeStoreDatabaseFailure, "scanning search row: %w", err)
		}

		vec, err := deserializeFloat32(vecBlob)
		if err != nil {
			return nil, err
		}
		rec.Vector = vec
		rec.ActorType = store.ActorType(actorType)
		rec.CreatedAt = parseTime(created)
		rec.UpdatedAt = parseTime(updated)
		if metaJSON != "" && metaJSON != "{}" {
			if err := json.Unmarshal([]byte(metaJSON), &rec.Metadata); err != nil {
				return nil, strataerr.Errorf(strataerr.CodeStoreDatabaseFailure, "unmarshalling search row metadata: %w", err)
			}
		}

		results = append(results, store.SearchResult{
			Record:     &rec,
			Similarity: similarity,
			Priority:   priority,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, strataerr.Errorf(strataerr.CodeStoreDatabaseFailure, "iterating search rows: %w", err)
	}

	return results, nil
}

// placeholders returns n comma-joined "?" markers.
func placeholders(n int) string {
	ps := strings.Repeat("?,", n)
	return ps[:len(ps)-1]
}

// scanner abstracts *sql.Row and *sql.Rows for scanOne.
type scanner interface {
	Scan(dest ...any) error
}

// scanOne decodes a full embedding row.
func (s *EmbeddingStore) scanOne(row scanner) (*store.EmbeddingRecord, error) {
	var (
		rec       store.EmbeddingRecord
		blob      []byte
		metaJSON  string
		created   string
		updated   string
		actorType string
	)

	if err := row.Scan(
		&rec.ID, &rec.ClientID, &rec.SourceTable, &rec.SourceID, &rec.SourceField,
		&rec.Model, &rec.Dimension, &blob, &actorType, &rec.ActorID,
		&metaJSON, &created, &updated,
	); err != nil {
		return nil, err
	}

	vec, err := deserializeFloat32(blob)
	if err != nil {
		return nil, err
	}
	rec.Vector = vec
	rec.ActorType = store.ActorType(actorType)
	rec.CreatedAt = parseTime(created)
	rec.UpdatedAt = parseTime(updated)

	if metaJSON != "" && metaJSON != "{}" {
		if err := json.Unmarshal([]byte(metaJSON), &rec.Metadata); err != nil {
			return nil, err
		}
	}

	return &rec, nil
}

// deserializeFloat32 decodes the sqlite-vec blob layout: contiguous
// little-endian float32 values.
func deserializeFloat32(blob []byte) ([]float32, error) {
	if len(blob)%4 != 0 {
		return nil, strataerr.Errorf(strataerr.CodeStoreDatabaseFailure,
			"embedding blob length %d is not a multiple of 4", len(blob))
	}
	vec := make([]float32, len(blob)/4)
	for i := range vec {
		bits := binary.LittleEndian.Uint32(blob[i*4:])
		vec[i] = math.Float32frombits(bits)
	}
	return vec, nil
}

// formatTime serialises a time.Time to RFC3339 with nanosecond precision.
func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

// parseTime deserialises a time string stored in the database.
func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}
