package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	pgxvec "github.com/pgvector/pgvector-go/pgx"

	"github.com/didaxa/didaxa/pkg/store"
)

// Compile-time interface checks.
var (
	_ store.SessionStore = (*Store)(nil)
	_ store.UnitIndex    = (*Store)(nil)
)

// Store is the PostgreSQL-backed session store and unit vector index. It
// holds a single [pgxpool.Pool]; all operations are safe for concurrent use.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore establishes a connection pool to the database at dsn, registers
// pgvector types on every connection, and runs [Migrate] to ensure all
// required tables and extensions exist.
//
// embeddingDimensions must match the output dimension of the embedding model
// producing unit centroids.
func NewStore(ctx context.Context, dsn string, embeddingDimensions int) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres store: parse dsn: %w", err)
	}

	// Register pgvector types on every new connection so vector columns can
	// be scanned into and inserted from pgvector.Vector values.
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres store: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres store: ping: %w", err)
	}
	if err := Migrate(ctx, pool, embeddingDimensions); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres store: migrate: %w", err)
	}

	return &Store{pool: pool}, nil
}

// Close releases all connections held by the underlying pool. Call it when
// the Store is no longer needed, typically via defer.
func (s *Store) Close() {
	s.pool.Close()
}

// Ping verifies connectivity to the database. Used as a readiness check.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Put implements [store.SessionStore] as an upsert on session_blobs.
func (s *Store) Put(ctx context.Context, sessionID string, blob []byte) error {
	const q = `
		INSERT INTO session_blobs (session_id, blob, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (session_id)
		DO UPDATE SET blob = EXCLUDED.blob, updated_at = now()`

	if _, err := s.pool.Exec(ctx, q, sessionID, blob); err != nil {
		return fmt.Errorf("postgres store: put %s: %w", sessionID, err)
	}
	return nil
}

// Get implements [store.SessionStore].
func (s *Store) Get(ctx context.Context, sessionID string) ([]byte, error) {
	const q = `SELECT blob FROM session_blobs WHERE session_id = $1`

	var blob []byte
	if err := s.pool.QueryRow(ctx, q, sessionID).Scan(&blob); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", store.ErrNotFound, sessionID)
		}
		return nil, fmt.Errorf("postgres store: get %s: %w", sessionID, err)
	}
	return blob, nil
}

// Delete implements [store.SessionStore]. Missing sessions delete cleanly.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	const q = `DELETE FROM session_blobs WHERE session_id = $1`
	if _, err := s.pool.Exec(ctx, q, sessionID); err != nil {
		return fmt.Errorf("postgres store: delete %s: %w", sessionID, err)
	}
	const qv = `DELETE FROM unit_vectors WHERE session_id = $1`
	if _, err := s.pool.Exec(ctx, qv, sessionID); err != nil {
		return fmt.Errorf("postgres store: delete vectors %s: %w", sessionID, err)
	}
	return nil
}

// List implements [store.SessionStore].
func (s *Store) List(ctx context.Context) ([]string, error) {
	const q = `SELECT session_id FROM session_blobs ORDER BY session_id`

	rows, err := s.pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("postgres store: list: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("postgres store: scan ids: %w", err)
	}
	if ids == nil {
		ids = []string{}
	}
	return ids, nil
}

// IndexUnit implements [store.UnitIndex] as an upsert on unit_vectors.
func (s *Store) IndexUnit(ctx context.Context, rec store.UnitRecord) error {
	const q = `
		INSERT INTO unit_vectors
		    (session_id, unit_id, title, section_kind, cohesion, word_count, embedding)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (session_id, unit_id)
		DO UPDATE SET
		    title        = EXCLUDED.title,
		    section_kind = EXCLUDED.section_kind,
		    cohesion     = EXCLUDED.cohesion,
		    word_count   = EXCLUDED.word_count,
		    embedding    = EXCLUDED.embedding`

	_, err := s.pool.Exec(ctx, q,
		rec.SessionID,
		rec.UnitID,
		rec.Title,
		rec.SectionKind,
		rec.Cohesion,
		rec.WordCount,
		pgvector.NewVector(rec.Embedding),
	)
	if err != nil {
		return fmt.Errorf("postgres store: index unit %s/%s: %w", rec.SessionID, rec.UnitID, err)
	}
	return nil
}

// Nearest implements [store.UnitIndex] using pgvector's cosine distance
// operator and the HNSW index on unit_vectors.
func (s *Store) Nearest(ctx context.Context, sessionID string, embedding []float32, limit int) ([]store.UnitRecord, error) {
	const q = `
		SELECT session_id, unit_id, title, section_kind, cohesion, word_count, embedding
		FROM   unit_vectors
		WHERE  session_id = $1
		ORDER  BY embedding <=> $2
		LIMIT  $3`

	rows, err := s.pool.Query(ctx, q, sessionID, pgvector.NewVector(embedding), limit)
	if err != nil {
		return nil, fmt.Errorf("postgres store: nearest: %w", err)
	}
	recs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (store.UnitRecord, error) {
		var (
			rec store.UnitRecord
			vec pgvector.Vector
		)
		if err := row.Scan(
			&rec.SessionID,
			&rec.UnitID,
			&rec.Title,
			&rec.SectionKind,
			&rec.Cohesion,
			&rec.WordCount,
			&vec,
		); err != nil {
			return store.UnitRecord{}, err
		}
		rec.Embedding = vec.Slice()
		return rec, nil
	})
	if err != nil {
		return nil, fmt.Errorf("postgres store: scan units: %w", err)
	}
	if recs == nil {
		recs = []store.UnitRecord{}
	}
	return recs, nil
}
