// Package postgres provides the PostgreSQL-backed implementation of the
// session blob store and the unit vector audit index.
//
// Both share a single [pgxpool.Pool]. The pgvector extension must be
// available in the target database; [Migrate] installs it automatically via
// CREATE EXTENSION IF NOT EXISTS.
//
// Usage:
//
//	st, err := postgres.NewStore(ctx, dsn, 1536)
//	if err != nil { … }
//	defer st.Close()
//
//	_ = st.Put(ctx, sessionID, blob)
//	recs, _ := st.Nearest(ctx, sessionID, centroid, 5)
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const ddlSessionBlobs = `
CREATE TABLE IF NOT EXISTS session_blobs (
    session_id  TEXT         PRIMARY KEY,
    blob        JSONB        NOT NULL,
    updated_at  TIMESTAMPTZ  NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_session_blobs_updated_at
    ON session_blobs (updated_at);
`

// ddlUnitVectors returns the unit vector DDL with the embedding dimension
// substituted. The dimension is baked into the column type at schema creation
// time.
func ddlUnitVectors(embeddingDimensions int) string {
	return fmt.Sprintf(`
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS unit_vectors (
    session_id    TEXT              NOT NULL,
    unit_id       TEXT              NOT NULL,
    title         TEXT              NOT NULL DEFAULT '',
    section_kind  TEXT              NOT NULL DEFAULT '',
    cohesion      DOUBLE PRECISION  NOT NULL DEFAULT 0,
    word_count    INTEGER           NOT NULL DEFAULT 0,
    embedding     vector(%d),
    created_at    TIMESTAMPTZ       NOT NULL DEFAULT now(),
    PRIMARY KEY (session_id, unit_id)
);

CREATE INDEX IF NOT EXISTS idx_unit_vectors_session_id
    ON unit_vectors (session_id);

CREATE INDEX IF NOT EXISTS idx_unit_vectors_embedding
    ON unit_vectors USING hnsw (embedding vector_cosine_ops);
`, embeddingDimensions)
}

// Migrate creates or ensures all required tables and extensions exist. It is
// idempotent and safe to call on every application start.
//
// embeddingDimensions must match the embedding model configured for the
// deployment (e.g., 1536 for OpenAI text-embedding-3-small, 768 for
// nomic-embed-text). Changing it after the first migration requires a manual
// schema update.
func Migrate(ctx context.Context, pool *pgxpool.Pool, embeddingDimensions int) error {
	statements := []string{
		ddlSessionBlobs,
		ddlUnitVectors(embeddingDimensions),
	}
	for _, stmt := range statements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("postgres migrate: %w", err)
		}
	}
	return nil
}
