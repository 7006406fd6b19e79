// Package store defines the persistence collaborators for dialogue sessions:
// a session blob store keyed by session id and a unit vector index that keeps
// each document unit's embedding centroid for auditing what was taught.
//
// Two implementations exist: [Memory] for tests and single-process use, and
// the postgres subpackage for durable storage with pgvector-backed nearest
// neighbour queries.
package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a session id has no stored blob.
var ErrNotFound = errors.New("store: session not found")

// SessionStore persists serialized session snapshots keyed by session id.
// Implementations must be safe for concurrent use.
type SessionStore interface {
	// Put stores blob under sessionID, replacing any existing snapshot.
	Put(ctx context.Context, sessionID string, blob []byte) error

	// Get returns the snapshot stored under sessionID, or [ErrNotFound].
	Get(ctx context.Context, sessionID string) ([]byte, error)

	// Delete removes the snapshot for sessionID. Deleting a missing session
	// is not an error.
	Delete(ctx context.Context, sessionID string) error

	// List returns all stored session ids, sorted.
	List(ctx context.Context) ([]string, error)
}

// UnitRecord is one document unit's audit entry in the vector index.
type UnitRecord struct {
	// SessionID is the owning session.
	SessionID string

	// UnitID is the unit's id within its document.
	UnitID string

	// Title is the unit's section heading.
	Title string

	// SectionKind is the unit's section classification.
	SectionKind string

	// Cohesion is the unit's mean pairwise paragraph similarity.
	Cohesion float64

	// WordCount is the unit's word count.
	WordCount int

	// Embedding is the unit's paragraph embedding centroid.
	Embedding []float32
}

// UnitIndex stores unit embedding centroids and answers nearest neighbour
// queries over them. Implementations must be safe for concurrent use.
type UnitIndex interface {
	// IndexUnit stores or replaces rec.
	IndexUnit(ctx context.Context, rec UnitRecord) error

	// Nearest returns up to limit units of sessionID ordered by ascending
	// cosine distance to embedding.
	Nearest(ctx context.Context, sessionID string, embedding []float32, limit int) ([]UnitRecord, error)
}
