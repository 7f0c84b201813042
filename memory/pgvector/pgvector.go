// Package pgvector implements the memory.Backend interface on Postgres with
// the pgvector extension.
package pgvector

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	// Import the Postgres driver.
	_ "github.com/lib/pq"
	pgv "github.com/pgvector/pgvector-go"
	"github.com/pkg/errors"

	"github.com/medvani/medvani/memory"
)

// Backend stores memory events in a single pgvector-indexed table. Rows are
// keyed by event id; similarity is cosine.
type Backend struct {
	db         *sql.DB
	dimensions int
}

// New opens the vector database and ensures the schema exists.
func New(dsn string, dimensions int) (*Backend, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open vector db")
	}
	b := &Backend{db: db, dimensions: dimensions}
	if err := b.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return b, nil
}

func (b *Backend) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS memory_event (
			id TEXT PRIMARY KEY,
			namespace TEXT NOT NULL,
			owner_id TEXT NOT NULL,
			embedding vector(%d) NOT NULL,
			metadata JSONB NOT NULL DEFAULT '{}'::jsonb,
			created_ts BIGINT NOT NULL DEFAULT extract(epoch from now())::bigint
		)`, b.dimensions),
		`CREATE INDEX IF NOT EXISTS idx_memory_event_owner ON memory_event (namespace, owner_id)`,
	}
	for _, stmt := range stmts {
		if _, err := b.db.ExecContext(ctx, stmt); err != nil {
			return errors.Wrapf(err, "failed to run migration: %s", stmt)
		}
	}
	return nil
}

func (b *Backend) Close() error {
	return b.db.Close()
}

// Upsert writes records with last-write-wins semantics on the event id.
func (b *Backend) Upsert(ctx context.Context, namespace string, records []memory.Record) error {
	stmt := `
		INSERT INTO memory_event (id, namespace, owner_id, embedding, metadata)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id)
		DO UPDATE SET
			owner_id = EXCLUDED.owner_id,
			embedding = EXCLUDED.embedding,
			metadata = EXCLUDED.metadata
	`
	for _, r := range records {
		ownerID, _ := r.Metadata["owner_id"].(string)
		rawMeta, err := json.Marshal(r.Metadata)
		if err != nil {
			return errors.Wrap(err, "failed to encode record metadata")
		}
		if _, err := b.db.ExecContext(ctx, stmt,
			r.ID, namespace, ownerID, pgv.NewVector(r.Vector), rawMeta,
		); err != nil {
			return errors.Wrapf(err, "failed to upsert memory event %s", r.ID)
		}
	}
	return nil
}

// Query returns the topK nearest records for the owner, most similar first.
// Scores are cosine similarity (1 - cosine distance).
func (b *Backend) Query(ctx context.Context, namespace string, vector []float32, topK int, ownerID string) ([]memory.QueryMatch, error) {
	if topK <= 0 {
		topK = 5
	}
	query := `
		SELECT id, metadata, 1 - (embedding <=> $1) AS score
		FROM memory_event
		WHERE namespace = $2 AND owner_id = $3
		ORDER BY embedding <=> $1
		LIMIT $4
	`
	rows, err := b.db.QueryContext(ctx, query, pgv.NewVector(vector), namespace, ownerID, topK)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query memory events")
	}
	defer rows.Close()

	matches := []memory.QueryMatch{}
	for rows.Next() {
		var m memory.QueryMatch
		var rawMeta []byte
		if err := rows.Scan(&m.ID, &rawMeta, &m.Score); err != nil {
			return nil, errors.Wrap(err, "failed to scan memory event")
		}
		if err := json.Unmarshal(rawMeta, &m.Metadata); err != nil {
			return nil, errors.Wrapf(err, "failed to decode metadata for event %s", m.ID)
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return matches, nil
}
