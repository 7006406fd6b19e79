package postgres_test

import (
	"context"
	"errors"
	"os"
	"reflect"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgxvec "github.com/pgvector/pgvector-go/pgx"

	"github.com/didaxa/didaxa/pkg/store"
	"github.com/didaxa/didaxa/pkg/store/postgres"
)

const testEmbeddingDim = 4

// testDSN returns the test database DSN from the environment, or skips the
// test if DIDAXA_TEST_POSTGRES_DSN is not set.
func testDSN(t *testing.T) string {
	t.Helper()
	dsn := os.Getenv("DIDAXA_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("DIDAXA_TEST_POSTGRES_DSN not set — skipping PostgreSQL integration tests")
	}
	return dsn
}

// newTestStore creates a fresh [postgres.Store] with a clean schema and
// registers cleanup to close it.
func newTestStore(t *testing.T) *postgres.Store {
	t.Helper()
	dsn := testDSN(t)
	ctx := context.Background()

	cleanPool := mustPool(t, ctx, dsn)
	t.Cleanup(cleanPool.Close)
	dropSchema(t, ctx, cleanPool)

	st, err := postgres.NewStore(ctx, dsn, testEmbeddingDim)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(st.Close)
	return st
}

func mustPool(t *testing.T, ctx context.Context, dsn string) *pgxpool.Pool {
	t.Helper()
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		// best-effort: pgvector may not be installed yet on a fresh DB
		_ = pgxvec.RegisterTypes(ctx, conn)
		return nil
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		t.Fatalf("pool: %v", err)
	}
	return pool
}

func dropSchema(t *testing.T, ctx context.Context, pool *pgxpool.Pool) {
	t.Helper()
	for _, stmt := range []string{
		"DROP TABLE IF EXISTS unit_vectors CASCADE",
		"DROP TABLE IF EXISTS session_blobs CASCADE",
	} {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			t.Fatalf("dropSchema %q: %v", stmt, err)
		}
	}
}

func TestSessionBlobRoundTrip(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	if err := st.Put(ctx, "sess-1", []byte(`{"state":"engaged"}`)); err != nil {
		t.Fatalf("Put: %v", err)
	}
	blob, err := st.Get(ctx, "sess-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(blob) != `{"state": "engaged"}` && string(blob) != `{"state":"engaged"}` {
		t.Errorf("blob = %s", blob)
	}

	// Upsert replaces.
	if err := st.Put(ctx, "sess-1", []byte(`{"state":"completed"}`)); err != nil {
		t.Fatalf("Put upsert: %v", err)
	}
	blob, _ = st.Get(ctx, "sess-1")
	if want := "completed"; !strings.Contains(string(blob), want) {
		t.Errorf("blob after upsert = %s, want it to mention %q", blob, want)
	}

	// Missing session maps to the store sentinel.
	if _, err := st.Get(ctx, "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Get missing = %v, want ErrNotFound", err)
	}

	if err := st.Put(ctx, "sess-0", []byte(`{}`)); err != nil {
		t.Fatalf("Put second: %v", err)
	}
	ids, err := st.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if !reflect.DeepEqual(ids, []string{"sess-0", "sess-1"}) {
		t.Errorf("ids = %v", ids)
	}

	if err := st.Delete(ctx, "sess-1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := st.Get(ctx, "sess-1"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Get after delete = %v, want ErrNotFound", err)
	}
	if err := st.Delete(ctx, "never-existed"); err != nil {
		t.Errorf("Delete non-existent: %v", err)
	}
}

func TestUnitIndexNearest(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	recs := []store.UnitRecord{
		{SessionID: "s1", UnitID: "S0_0", Title: "Introduction", SectionKind: "introduction",
			Cohesion: 0.9, WordCount: 120, Embedding: []float32{1, 0, 0, 0}},
		{SessionID: "s1", UnitID: "S1_0", Title: "Methods", SectionKind: "methodology",
			Cohesion: 0.8, WordCount: 240, Embedding: []float32{0, 1, 0, 0}},
		{SessionID: "s2", UnitID: "S0_0", Title: "Other", SectionKind: "body",
			Cohesion: 0.7, WordCount: 90, Embedding: []float32{0, 0, 1, 0}},
	}
	for _, rec := range recs {
		if err := st.IndexUnit(ctx, rec); err != nil {
			t.Fatalf("IndexUnit %s/%s: %v", rec.SessionID, rec.UnitID, err)
		}
	}

	got, err := st.Nearest(ctx, "s1", []float32{1, 0, 0, 0}, 10)
	if err != nil {
		t.Fatalf("Nearest: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2 (session scoped)", len(got))
	}
	if got[0].UnitID != "S0_0" {
		t.Errorf("closest = %s, want S0_0", got[0].UnitID)
	}
	if got[0].Title != "Introduction" || got[0].WordCount != 120 {
		t.Errorf("record fields did not round trip: %+v", got[0])
	}

	// Upsert replaces the embedding.
	updated := recs[0]
	updated.Embedding = []float32{0, 0, 0, 1}
	if err := st.IndexUnit(ctx, updated); err != nil {
		t.Fatalf("IndexUnit upsert: %v", err)
	}
	got, _ = st.Nearest(ctx, "s1", []float32{0, 0, 0, 1}, 1)
	if len(got) != 1 || got[0].UnitID != "S0_0" {
		t.Errorf("after upsert nearest = %+v", got)
	}

	// Deleting the session clears its vectors.
	if err := st.Delete(ctx, "s1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	got, _ = st.Nearest(ctx, "s1", []float32{1, 0, 0, 0}, 10)
	if len(got) != 0 {
		t.Errorf("vectors remain after session delete: %d", len(got))
	}
}
