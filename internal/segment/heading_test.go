package segment_test

import (
	"testing"

	"github.com/didaxa/didaxa/internal/segment"
)

// TestDetectHeadingsAllCaps verifies the all-caps pattern, including the word
// count bounds and the leading-digit exclusion.
func TestDetectHeadingsAllCaps(t *testing.T) {
	t.Parallel()

	text := "INTRODUCTION TO CELLULAR RESPIRATION\n" +
		"Cells convert glucose into usable energy.\n" +
		"TOO SHORT\n" +
		"42 STEPS OF THE PROCESS EXPLAINED\n"

	headings := segment.DetectHeadings(text)
	if len(headings) != 1 {
		t.Fatalf("DetectHeadings returned %d headings, want 1: %+v", len(headings), headings)
	}
	h := headings[0]
	if h.Text != "INTRODUCTION TO CELLULAR RESPIRATION" {
		t.Errorf("heading text = %q", h.Text)
	}
	if h.Level != 1 {
		t.Errorf("heading level = %d, want 1", h.Level)
	}
	if h.Line != 0 {
		t.Errorf("heading line = %d, want 0", h.Line)
	}
}

// TestDetectHeadingsNumbered verifies that the dot count of the numeric prefix
// becomes the heading level.
func TestDetectHeadingsNumbered(t *testing.T) {
	t.Parallel()

	text := "1. Overview\n\nSome text here.\n\n2.3. Finer Details\n\nMore text.\n"
	headings := segment.DetectHeadings(text)
	if len(headings) != 2 {
		t.Fatalf("DetectHeadings returned %d headings, want 2: %+v", len(headings), headings)
	}
	if headings[0].Text != "Overview" || headings[0].Level != 1 {
		t.Errorf("first heading = %+v, want Overview level 1", headings[0])
	}
	if headings[1].Text != "Finer Details" || headings[1].Level != 2 {
		t.Errorf("second heading = %+v, want Finer Details level 2", headings[1])
	}
}

// TestDetectHeadingsUnderlined verifies the underline pattern: "=" rules mark
// level 1, "-" rules mark level 2, and the underlined line must stay short.
func TestDetectHeadingsUnderlined(t *testing.T) {
	t.Parallel()

	text := "Photosynthesis Basics\n" +
		"=====================\n" +
		"Light reactions capture photons.\n" +
		"\n" +
		"Dark Reactions\n" +
		"--------------\n" +
		"Carbon fixation happens here.\n"

	headings := segment.DetectHeadings(text)
	if len(headings) != 2 {
		t.Fatalf("DetectHeadings returned %d headings, want 2: %+v", len(headings), headings)
	}
	if headings[0].Text != "Photosynthesis Basics" || headings[0].Level != 1 {
		t.Errorf("first heading = %+v, want Photosynthesis Basics level 1", headings[0])
	}
	if headings[1].Text != "Dark Reactions" || headings[1].Level != 2 {
		t.Errorf("second heading = %+v, want Dark Reactions level 2", headings[1])
	}
}

// TestDetectHeadingsNoDoubleCount verifies that an all-caps heading that is
// also underlined is reported once.
func TestDetectHeadingsNoDoubleCount(t *testing.T) {
	t.Parallel()

	text := "METHODS AND EXPERIMENTAL SETUP\n" +
		"==============================\n" +
		"We measured oxygen output.\n"

	headings := segment.DetectHeadings(text)
	if len(headings) != 1 {
		t.Fatalf("DetectHeadings returned %d headings, want 1: %+v", len(headings), headings)
	}
}

// TestSplitSectionsNoHeadings verifies the whole document becomes a single
// implicit body section when no heading is found.
func TestSplitSectionsNoHeadings(t *testing.T) {
	t.Parallel()

	text := "Just a plain paragraph without any structure at all."
	sections := segment.SplitSections(text)
	if len(sections) != 1 {
		t.Fatalf("SplitSections returned %d sections, want 1", len(sections))
	}
	s := sections[0]
	if s.Title != "Document" {
		t.Errorf("title = %q, want Document", s.Title)
	}
	if s.Level != 0 {
		t.Errorf("level = %d, want 0", s.Level)
	}
	if s.Kind != segment.SectionBody {
		t.Errorf("kind = %q, want body", s.Kind)
	}
}

// TestSplitSectionsBodies verifies each section runs from its heading to the
// next one, with the underline marker stripped and empty sections dropped.
func TestSplitSectionsBodies(t *testing.T) {
	t.Parallel()

	text := "1. Introduction\n" +
		"Plants feed themselves through photosynthesis.\n" +
		"\n" +
		"2. Empty Section\n" +
		"3. Conclusion\n" +
		"Sunlight is ultimately the energy source.\n"

	sections := segment.SplitSections(text)
	if len(sections) != 2 {
		t.Fatalf("SplitSections returned %d sections, want 2: %+v", len(sections), sections)
	}
	if sections[0].Title != "Introduction" || sections[0].Kind != segment.SectionIntroduction {
		t.Errorf("first section = %+v", sections[0])
	}
	if sections[0].Text != "Plants feed themselves through photosynthesis." {
		t.Errorf("first section text = %q", sections[0].Text)
	}
	if sections[1].Title != "Conclusion" || sections[1].Kind != segment.SectionConclusion {
		t.Errorf("second section = %+v", sections[1])
	}
}

// TestClassifySection verifies the keyword lookup, the check order, and the
// body fallback.
func TestClassifySection(t *testing.T) {
	t.Parallel()

	tests := []struct {
		heading string
		want    segment.SectionKind
	}{
		{"Introduction", segment.SectionIntroduction},
		{"Historical Background", segment.SectionIntroduction},
		{"Abstract", segment.SectionIntroduction},
		{"Summary of Findings", segment.SectionConclusion},
		{"Final Remarks", segment.SectionConclusion},
		{"Methods", segment.SectionMethodology},
		{"Our Approach", segment.SectionMethodology},
		{"Experimental Setup", segment.SectionMethodology},
		{"The Krebs Cycle", segment.SectionBody},
	}
	for _, tc := range tests {
		if got := segment.ClassifySection(tc.heading); got != tc.want {
			t.Errorf("ClassifySection(%q) = %q, want %q", tc.heading, got, tc.want)
		}
	}
}
