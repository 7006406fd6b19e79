package session_test

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"testing"

	"github.com/didaxa/didaxa/internal/conversation"
	"github.com/didaxa/didaxa/internal/segment"
	"github.com/didaxa/didaxa/internal/session"
	"github.com/didaxa/didaxa/pkg/provider/llm/mock"
	"github.com/didaxa/didaxa/pkg/store"
)

func testUnits(n int) []segment.Unit {
	units := make([]segment.Unit, n)
	for i := range units {
		units[i] = segment.Unit{
			ID:          fmt.Sprintf("S0_%d", i),
			Title:       "Introduction",
			Text:        "Photosynthesis converts sunlight into chemical energy.",
			SectionKind: segment.SectionIntroduction,
			Position:    i,
			Cohesion:    0.9,
			WordCount:   7,
		}
	}
	return units
}

func TestCreateAndGet(t *testing.T) {
	t.Parallel()
	r := session.NewRegistry(store.NewMemory(), &mock.Generator{})

	id, m, err := r.Create(context.Background())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if id == "" {
		t.Fatal("empty session id")
	}
	if got := m.State(); got != conversation.StateIdle {
		t.Errorf("new machine state = %s, want idle", got)
	}

	got, err := r.Get(id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != m {
		t.Error("Get returned a different machine")
	}
	if r.Len() != 1 {
		t.Errorf("Len = %d, want 1", r.Len())
	}

	if _, err := r.Get("unknown"); !errors.Is(err, session.ErrSessionNotFound) {
		t.Errorf("Get unknown = %v, want ErrSessionNotFound", err)
	}
}

func TestCreateMintsUniqueIDs(t *testing.T) {
	t.Parallel()
	r := session.NewRegistry(store.NewMemory(), &mock.Generator{})
	seen := make(map[string]bool)
	for i := 0; i < 20; i++ {
		id, _, err := r.Create(context.Background())
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		if seen[id] {
			t.Fatalf("duplicate session id %s", id)
		}
		seen[id] = true
	}
}

func TestSaveAndRestore(t *testing.T) {
	t.Parallel()
	st := store.NewMemory()
	ctx := context.Background()
	r := session.NewRegistry(st, &mock.Generator{})

	id, m, err := r.Create(ctx)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := m.LoadDocument(testUnits(2)); err != nil {
		t.Fatalf("LoadDocument: %v", err)
	}
	if err := r.Save(ctx, id); err != nil {
		t.Fatalf("Save: %v", err)
	}

	// A fresh registry sharing the store can rebuild the session.
	r2 := session.NewRegistry(st, &mock.Generator{})
	restored, err := r2.Restore(ctx, id)
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if got, want := restored.Summary(), m.Summary(); !reflect.DeepEqual(got, want) {
		t.Errorf("restored summary = %+v, want %+v", got, want)
	}
	if r2.Len() != 1 {
		t.Errorf("Len after restore = %d, want 1", r2.Len())
	}

	if _, err := r2.Restore(ctx, "unknown"); !errors.Is(err, session.ErrSessionNotFound) {
		t.Errorf("Restore unknown = %v, want ErrSessionNotFound", err)
	}
}

func TestSaveAllWritesEverySession(t *testing.T) {
	t.Parallel()
	st := store.NewMemory()
	ctx := context.Background()
	r := session.NewRegistry(st, &mock.Generator{})

	var want []string
	for i := 0; i < 5; i++ {
		id, _, err := r.Create(ctx)
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		want = append(want, id)
	}
	if err := r.SaveAll(ctx); err != nil {
		t.Fatalf("SaveAll: %v", err)
	}

	stored, err := st.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	sort.Strings(want)
	if !reflect.DeepEqual(stored, want) {
		t.Errorf("stored ids = %v, want %v", stored, want)
	}
}

func TestRemovePersistsBeforeDropping(t *testing.T) {
	t.Parallel()
	st := store.NewMemory()
	ctx := context.Background()
	r := session.NewRegistry(st, &mock.Generator{})

	id, _, err := r.Create(ctx)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := r.Remove(ctx, id); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if r.Len() != 0 {
		t.Errorf("Len = %d, want 0", r.Len())
	}
	if _, err := st.Get(ctx, id); err != nil {
		t.Errorf("session not persisted on remove: %v", err)
	}
	if err := r.Remove(ctx, id); !errors.Is(err, session.ErrSessionNotFound) {
		t.Errorf("second Remove = %v, want ErrSessionNotFound", err)
	}
}

func TestSweepIdleEvictsAndSaves(t *testing.T) {
	t.Parallel()
	st := store.NewMemory()
	ctx := context.Background()
	// Zero timeout makes every session idle immediately.
	r := session.NewRegistry(st, &mock.Generator{}, session.WithIdleTimeout(0))

	id1, _, err := r.Create(ctx)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	id2, _, err := r.Create(ctx)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	evicted, err := r.SweepIdle(ctx)
	if err != nil {
		t.Fatalf("SweepIdle: %v", err)
	}
	if len(evicted) != 2 {
		t.Fatalf("evicted %d sessions, want 2", len(evicted))
	}
	if r.Len() != 0 {
		t.Errorf("Len = %d, want 0", r.Len())
	}
	for _, id := range []string{id1, id2} {
		if _, err := st.Get(ctx, id); err != nil {
			t.Errorf("evicted session %s not saved: %v", id, err)
		}
	}
}

func TestSweepIdleKeepsActiveSessions(t *testing.T) {
	t.Parallel()
	r := session.NewRegistry(store.NewMemory(), &mock.Generator{})

	if _, _, err := r.Create(context.Background()); err != nil {
		t.Fatalf("Create: %v", err)
	}
	evicted, err := r.SweepIdle(context.Background())
	if err != nil {
		t.Fatalf("SweepIdle: %v", err)
	}
	if len(evicted) != 0 {
		t.Errorf("evicted %d sessions with the default timeout, want 0", len(evicted))
	}
	if r.Len() != 1 {
		t.Errorf("Len = %d, want 1", r.Len())
	}
}
