// Package segment turns raw document text into an ordered list of semantic
// units, the atoms of dialogue progression.
//
// # Architecture
//
// The pipeline is deterministic for a fixed embedding backend:
//
//  1. Heading detection partitions the document into sections, each tagged
//     with a [SectionKind].
//  2. Each section splits into paragraphs on blank lines; paragraphs shorter
//     than the minimum length are dropped.
//  3. Every surviving paragraph is embedded through the embeddings provider.
//  4. Paragraphs group greedily: a paragraph joins the current group while
//     its cosine similarity to the group centroid stays at or above the
//     threshold and the group is below the maximum size.
//  5. Groups below the minimum size merge into the following group (or the
//     previous one for the trailing group).
//  6. Each group materialises as one [Unit] with a cohesion score equal to
//     the mean pairwise cosine similarity of its members.
//
// Empty input, or input in which no paragraph survives the length filter,
// yields zero units; callers must treat that as a usage error.
package segment

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/didaxa/didaxa/internal/observe"
	"github.com/didaxa/didaxa/pkg/provider/embeddings"
)

// Defaults for the grouping stage.
const (
	DefaultSimilarityThreshold = 0.75
	DefaultMinGroupSize        = 2
	DefaultMaxGroupSize        = 5
	DefaultMinParagraphLen     = 20
)

// Unit is one semantic unit of a document. Units are immutable once produced
// by [Segmenter.Segment].
type Unit struct {
	// ID is unique within the document and monotone in source order,
	// formatted "S{section}_{group}".
	ID string

	// Title is the parent section's heading, empty only when the heading
	// itself was empty.
	Title string

	// Text is the unit content: its paragraphs joined by blank lines.
	Text string

	// SectionKind is inherited from the parent section.
	SectionKind SectionKind

	// Position is the zero-based index of the unit in document order.
	Position int

	// Cohesion is the mean pairwise cosine similarity of the unit's
	// paragraphs in [0, 1]. Singleton groups score 1.0.
	Cohesion float64

	// WordCount is the total whitespace-separated word count.
	WordCount int

	// Metadata carries free-form context such as the heading level and
	// paragraph count.
	Metadata map[string]string

	// Centroid is the component-wise mean of the unit's paragraph
	// embeddings, kept for the unit vector audit index.
	Centroid []float32
}

// Segmenter runs the segmentation pipeline. Safe for concurrent use; all
// mutable state lives in local variables of Segment.
type Segmenter struct {
	embedder embeddings.Provider

	threshold       float64
	minGroupSize    int
	maxGroupSize    int
	minParagraphLen int

	log     *slog.Logger
	metrics *observe.Metrics
}

// Option configures a [Segmenter].
type Option func(*Segmenter)

// WithSimilarityThreshold sets the minimum centroid similarity for a
// paragraph to join the current group.
func WithSimilarityThreshold(t float64) Option {
	return func(s *Segmenter) { s.threshold = t }
}

// WithGroupSizes sets the minimum and maximum paragraphs per group.
func WithGroupSizes(min, max int) Option {
	return func(s *Segmenter) { s.minGroupSize, s.maxGroupSize = min, max }
}

// WithMinParagraphLen sets the minimum trimmed paragraph length in bytes.
func WithMinParagraphLen(n int) Option {
	return func(s *Segmenter) { s.minParagraphLen = n }
}

// WithLogger sets the logger used for pipeline progress.
func WithLogger(l *slog.Logger) Option {
	return func(s *Segmenter) { s.log = l }
}

// WithMetrics sets the metrics sink for segmentation latency.
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Segmenter) { s.metrics = m }
}

// New creates a Segmenter backed by the given embeddings provider.
func New(embedder embeddings.Provider, opts ...Option) *Segmenter {
	s := &Segmenter{
		embedder:        embedder,
		threshold:       DefaultSimilarityThreshold,
		minGroupSize:    DefaultMinGroupSize,
		maxGroupSize:    DefaultMaxGroupSize,
		minParagraphLen: DefaultMinParagraphLen,
		log:             slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Segment runs the full pipeline over text and returns units in document
// order. Identical input yields identical output for a fixed embedding
// backend and configuration. Embedding failures abort the whole run; no
// partial unit list is returned.
func (s *Segmenter) Segment(ctx context.Context, text string) ([]Unit, error) {
	ctx, span := observe.StartSpan(ctx, "segment.Segment")
	defer span.End()
	start := time.Now()

	units := []Unit{}
	sections := SplitSections(text)

	for sectionID, section := range sections {
		paragraphs := s.extractParagraphs(section.Text)
		if len(paragraphs) == 0 {
			s.log.Debug("section has no usable paragraphs",
				slog.Int("section", sectionID),
				slog.String("title", section.Title),
			)
			continue
		}

		vectors, err := s.embedder.EmbedBatch(ctx, paragraphs)
		if err != nil {
			return nil, fmt.Errorf("%w: section %d: %w", ErrEmbedding, sectionID, err)
		}
		if len(vectors) != len(paragraphs) {
			return nil, fmt.Errorf("%w: section %d: got %d vectors for %d paragraphs",
				ErrEmbedding, sectionID, len(vectors), len(paragraphs))
		}

		groups := s.groupBySimilarity(vectors)
		groups = s.mergeSmallGroups(groups)

		for groupID, group := range groups {
			unit := s.materialize(section, sectionID, groupID, len(units), paragraphs, vectors, group)
			units = append(units, unit)
		}
	}

	if s.metrics != nil {
		s.metrics.SegmentDuration.Record(ctx, time.Since(start).Seconds())
	}
	s.log.Info("document segmented",
		slog.Int("sections", len(sections)),
		slog.Int("units", len(units)),
	)
	return units, nil
}

// extractParagraphs splits section text on blank lines and drops paragraphs
// shorter than the minimum length after trimming.
func (s *Segmenter) extractParagraphs(text string) []string {
	var paragraphs []string
	for _, p := range strings.Split(text, "\n\n") {
		p = strings.TrimSpace(p)
		if len(p) >= s.minParagraphLen {
			paragraphs = append(paragraphs, p)
		}
	}
	return paragraphs
}

// groupBySimilarity walks paragraph vectors in order and returns groups of
// paragraph indices. A vector joins the current group while its cosine
// similarity to the group centroid is at least the threshold and the group
// has room.
func (s *Segmenter) groupBySimilarity(vectors [][]float32) [][]int {
	if len(vectors) == 0 {
		return nil
	}

	var groups [][]int
	current := []int{0}

	for i := 1; i < len(vectors); i++ {
		c := centroid(vectors, current)
		sim := cosine(vectors[i], c)
		if sim >= s.threshold && len(current) < s.maxGroupSize {
			current = append(current, i)
			continue
		}
		groups = append(groups, current)
		current = []int{i}
	}
	return append(groups, current)
}

// mergeSmallGroups folds any group below the minimum size into the next
// group, or into the previous group when it is the last one.
func (s *Segmenter) mergeSmallGroups(groups [][]int) [][]int {
	if len(groups) <= 1 {
		return groups
	}

	var merged [][]int
	for i := 0; i < len(groups); i++ {
		g := groups[i]
		if len(g) >= s.minGroupSize {
			merged = append(merged, g)
			continue
		}
		if i < len(groups)-1 {
			merged = append(merged, append(g, groups[i+1]...))
			i++
			continue
		}
		if len(merged) > 0 {
			merged[len(merged)-1] = append(merged[len(merged)-1], g...)
			continue
		}
		merged = append(merged, g)
	}
	return merged
}

// materialize builds one Unit from a group of paragraph indices.
func (s *Segmenter) materialize(section Section, sectionID, groupID, position int, paragraphs []string, vectors [][]float32, group []int) Unit {
	texts := make([]string, len(group))
	words := 0
	for i, idx := range group {
		texts[i] = paragraphs[idx]
		words += len(strings.Fields(paragraphs[idx]))
	}

	return Unit{
		ID:          fmt.Sprintf("S%d_%d", sectionID, groupID),
		Title:       section.Title,
		Text:        strings.Join(texts, "\n\n"),
		SectionKind: section.Kind,
		Position:    position,
		Cohesion:    cohesion(vectors, group),
		WordCount:   words,
		Metadata: map[string]string{
			"heading_level":   strconv.Itoa(section.Level),
			"paragraph_count": strconv.Itoa(len(group)),
			"section_id":      strconv.Itoa(sectionID),
			"group_id":        strconv.Itoa(groupID),
		},
		Centroid: centroid(vectors, group),
	}
}
