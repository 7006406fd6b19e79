package store

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
)

// Compile-time interface checks.
var (
	_ SessionStore = (*Memory)(nil)
	_ UnitIndex    = (*Memory)(nil)
)

// Memory is an in-process implementation of [SessionStore] and [UnitIndex].
// Snapshots are copied on write and read, so callers can mutate their slices
// freely. Safe for concurrent use.
type Memory struct {
	mu    sync.RWMutex
	blobs map[string][]byte
	units map[string][]UnitRecord
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		blobs: make(map[string][]byte),
		units: make(map[string][]UnitRecord),
	}
}

// Put implements [SessionStore].
func (m *Memory) Put(_ context.Context, sessionID string, blob []byte) error {
	if sessionID == "" {
		return fmt.Errorf("store: put: empty session id")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[sessionID] = append([]byte(nil), blob...)
	return nil
}

// Get implements [SessionStore].
func (m *Memory) Get(_ context.Context, sessionID string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	blob, ok := m.blobs[sessionID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, sessionID)
	}
	return append([]byte(nil), blob...), nil
}

// Delete implements [SessionStore].
func (m *Memory) Delete(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.blobs, sessionID)
	delete(m.units, sessionID)
	return nil
}

// List implements [SessionStore].
func (m *Memory) List(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.blobs))
	for id := range m.blobs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// IndexUnit implements [UnitIndex].
func (m *Memory) IndexUnit(_ context.Context, rec UnitRecord) error {
	if rec.SessionID == "" || rec.UnitID == "" {
		return fmt.Errorf("store: index unit: empty session or unit id")
	}
	rec.Embedding = append([]float32(nil), rec.Embedding...)
	m.mu.Lock()
	defer m.mu.Unlock()
	recs := m.units[rec.SessionID]
	for i := range recs {
		if recs[i].UnitID == rec.UnitID {
			recs[i] = rec
			return nil
		}
	}
	m.units[rec.SessionID] = append(recs, rec)
	return nil
}

// Nearest implements [UnitIndex]. Distance is cosine distance; records with a
// zero-magnitude embedding sort last.
func (m *Memory) Nearest(_ context.Context, sessionID string, embedding []float32, limit int) ([]UnitRecord, error) {
	m.mu.RLock()
	recs := append([]UnitRecord(nil), m.units[sessionID]...)
	m.mu.RUnlock()

	sort.SliceStable(recs, func(i, j int) bool {
		return cosineDistance(embedding, recs[i].Embedding) < cosineDistance(embedding, recs[j].Embedding)
	})
	if limit > 0 && len(recs) > limit {
		recs = recs[:limit]
	}
	return recs, nil
}

// cosineDistance returns 1 - cosine similarity, or 2 when either vector has
// zero magnitude or the lengths differ.
func cosineDistance(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 2
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 2
	}
	return 1 - dot/(math.Sqrt(na)*math.Sqrt(nb))
}
