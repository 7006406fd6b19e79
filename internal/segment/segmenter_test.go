package segment_test

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/didaxa/didaxa/internal/segment"
	"github.com/didaxa/didaxa/pkg/provider/embeddings/mock"
)

// topicEmbedder returns an embeddings mock that maps paragraphs mentioning
// "light" onto one axis and everything else onto an orthogonal one, so
// similarity grouping follows the topic.
func topicEmbedder() *mock.Provider {
	return &mock.Provider{
		EmbedFunc: func(text string) ([]float32, error) {
			if strings.Contains(strings.ToLower(text), "light") {
				return []float32{1, 0}, nil
			}
			return []float32{0, 1}, nil
		},
		DimensionsValue: 2,
	}
}

const introDoc = `1. Introduction

Light reactions capture photons in the thylakoid membranes of chloroplasts.

Light intensity directly controls the rate of photon capture in most plants.

Water molecules are split by the oxygen evolving complex during this stage.

Water availability therefore limits the overall rate under drought conditions.
`

// TestSegmentGroupsBySimilarity verifies that consecutive paragraphs about the
// same topic land in one unit and a topic shift opens a new one.
func TestSegmentGroupsBySimilarity(t *testing.T) {
	t.Parallel()

	s := segment.New(topicEmbedder())
	units, err := s.Segment(context.Background(), introDoc)
	if err != nil {
		t.Fatalf("Segment: %v", err)
	}
	if len(units) != 2 {
		t.Fatalf("Segment returned %d units, want 2: %+v", len(units), units)
	}

	for i, u := range units {
		if u.Position != i {
			t.Errorf("unit %d position = %d", i, u.Position)
		}
		if u.SectionKind != segment.SectionIntroduction {
			t.Errorf("unit %d kind = %q, want introduction", i, u.SectionKind)
		}
		if u.Title != "Introduction" {
			t.Errorf("unit %d title = %q", i, u.Title)
		}
		if u.WordCount == 0 {
			t.Errorf("unit %d has zero word count", i)
		}
		if len(u.Centroid) != 2 {
			t.Errorf("unit %d centroid has %d components, want 2", i, len(u.Centroid))
		}
		// Identical member vectors give perfect cohesion.
		if u.Cohesion != 1.0 {
			t.Errorf("unit %d cohesion = %v, want 1.0", i, u.Cohesion)
		}
	}

	if units[0].ID != "S0_0" || units[1].ID != "S0_1" {
		t.Errorf("unit IDs = %q, %q", units[0].ID, units[1].ID)
	}
	if !strings.Contains(units[0].Text, "photons") || !strings.Contains(units[1].Text, "Water") {
		t.Errorf("unit texts split on wrong boundary:\n%q\n%q", units[0].Text, units[1].Text)
	}
}

// TestSegmentDeterministic verifies identical input yields identical units for
// a fixed embedding backend.
func TestSegmentDeterministic(t *testing.T) {
	t.Parallel()

	s := segment.New(topicEmbedder())
	first, err := s.Segment(context.Background(), introDoc)
	if err != nil {
		t.Fatalf("first Segment: %v", err)
	}
	second, err := s.Segment(context.Background(), introDoc)
	if err != nil {
		t.Fatalf("second Segment: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("runs differ:\n%+v\n%+v", first, second)
	}
}

// TestSegmentMergesTrailingSmallGroup verifies a trailing group below the
// minimum size folds into the previous group.
func TestSegmentMergesTrailingSmallGroup(t *testing.T) {
	t.Parallel()

	doc := `Light reactions capture photons in the thylakoid membranes of chloroplasts.

Light intensity directly controls the rate of photon capture in most plants.

Water molecules are split by the oxygen evolving complex during this stage.
`
	s := segment.New(topicEmbedder())
	units, err := s.Segment(context.Background(), doc)
	if err != nil {
		t.Fatalf("Segment: %v", err)
	}
	if len(units) != 1 {
		t.Fatalf("Segment returned %d units, want 1 after merge: %+v", len(units), units)
	}
	if units[0].Metadata["paragraph_count"] != "3" {
		t.Errorf("paragraph_count = %q, want 3", units[0].Metadata["paragraph_count"])
	}
	if units[0].Cohesion >= 1.0 {
		t.Errorf("cohesion = %v, want < 1.0 for a mixed-topic unit", units[0].Cohesion)
	}
}

// TestSegmentDropsShortParagraphs verifies the minimum paragraph length
// filter.
func TestSegmentDropsShortParagraphs(t *testing.T) {
	t.Parallel()

	doc := `Light reactions capture photons in the thylakoid membranes of chloroplasts.

Too short.

Light intensity directly controls the rate of photon capture in most plants.
`
	embedder := topicEmbedder()
	s := segment.New(embedder)
	units, err := s.Segment(context.Background(), doc)
	if err != nil {
		t.Fatalf("Segment: %v", err)
	}
	if len(units) != 1 {
		t.Fatalf("Segment returned %d units, want 1", len(units))
	}
	if strings.Contains(units[0].Text, "Too short") {
		t.Errorf("short paragraph survived the filter: %q", units[0].Text)
	}
	if len(embedder.EmbedBatchCalls) != 1 || len(embedder.EmbedBatchCalls[0].Texts) != 2 {
		t.Errorf("embedder saw %+v, want one batch of 2 texts", embedder.EmbedBatchCalls)
	}
}

// TestSegmentEmptyInput verifies empty and whitespace-only input yields zero
// units without error.
func TestSegmentEmptyInput(t *testing.T) {
	t.Parallel()

	s := segment.New(topicEmbedder())
	for _, text := range []string{"", "   \n\n   "} {
		units, err := s.Segment(context.Background(), text)
		if err != nil {
			t.Fatalf("Segment(%q): %v", text, err)
		}
		if len(units) != 0 {
			t.Errorf("Segment(%q) returned %d units, want 0", text, len(units))
		}
	}
}

// TestSegmentEmbeddingFailure verifies a backend failure aborts the run and
// surfaces as ErrEmbedding.
func TestSegmentEmbeddingFailure(t *testing.T) {
	t.Parallel()

	embedder := &mock.Provider{
		EmbedBatchErr: errors.New("model unavailable"),
	}
	s := segment.New(embedder)
	units, err := s.Segment(context.Background(), introDoc)
	if !errors.Is(err, segment.ErrEmbedding) {
		t.Fatalf("Segment error = %v, want ErrEmbedding", err)
	}
	if units != nil {
		t.Errorf("Segment returned partial units on failure: %+v", units)
	}
}

// TestStats verifies the summary statistics over a segmented document.
func TestStats(t *testing.T) {
	t.Parallel()

	s := segment.New(topicEmbedder())
	units, err := s.Segment(context.Background(), introDoc)
	if err != nil {
		t.Fatalf("Segment: %v", err)
	}

	stats := segment.Stats(units)
	if stats.UnitCount != 2 {
		t.Errorf("UnitCount = %d, want 2", stats.UnitCount)
	}
	if stats.TotalWords == 0 {
		t.Error("TotalWords = 0, want > 0")
	}
	if stats.MeanCohesion != 1.0 {
		t.Errorf("MeanCohesion = %v, want 1.0", stats.MeanCohesion)
	}
	if stats.SectionDistribution[segment.SectionIntroduction] != 2 {
		t.Errorf("SectionDistribution = %+v", stats.SectionDistribution)
	}

	empty := segment.Stats(nil)
	if empty.UnitCount != 0 || empty.MeanCohesion != 0 {
		t.Errorf("Stats(nil) = %+v", empty)
	}
}
