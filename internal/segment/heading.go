package segment

import (
	"regexp"
	"strings"
	"unicode"
)

// SectionKind classifies what part of a document a section belongs to.
type SectionKind string

const (
	SectionIntroduction SectionKind = "introduction"
	SectionBody         SectionKind = "body"
	SectionMethodology  SectionKind = "methodology"
	SectionConclusion   SectionKind = "conclusion"
)

// IsValid reports whether k is a recognised section kind.
func (k SectionKind) IsValid() bool {
	switch k {
	case SectionIntroduction, SectionBody, SectionMethodology, SectionConclusion:
		return true
	}
	return false
}

// Heading is a detected section heading.
type Heading struct {
	// Text is the heading text without any numeric prefix or underline.
	Text string

	// Level is the heading depth: 1 for top-level, 2 for subsections, and so
	// on for deeper numbered headings.
	Level int

	// Line is the zero-based line number of the heading in the document.
	Line int
}

// Section is a contiguous span of document text under one heading.
type Section struct {
	// Title is the heading text, or "Document" when the document has no
	// headings at all.
	Title string

	// Text is the section body without the heading line.
	Text string

	// Level is the heading level, 0 for the implicit whole-document section.
	Level int

	// Kind is the classified section kind.
	Kind SectionKind
}

var (
	numberedHeading = regexp.MustCompile(`^((?:\d+\.)+)\s+(.+)$`)
	underlineRule   = regexp.MustCompile(`^[=\-]{3,}$`)
)

// DetectHeadings scans text line by line and returns all headings in document
// order. Three patterns are recognised:
//
//   - All-caps lines of 3 to 10 words not starting with a digit (level 1).
//   - Numbered lines such as "1. Overview" or "2.3. Details"; the level is
//     the number of dots in the prefix.
//   - A short line (at most 10 words) underlined by three or more "=" (level
//     1) or "-" (level 2) characters.
func DetectHeadings(text string) []Heading {
	var headings []Heading
	lines := strings.Split(text, "\n")
	seen := make(map[int]bool)

	add := func(h Heading) {
		if seen[h.Line] {
			return
		}
		seen[h.Line] = true
		headings = append(headings, h)
	}

	for i, line := range lines {
		stripped := strings.TrimSpace(line)
		if stripped == "" {
			continue
		}

		words := strings.Fields(stripped)
		if isAllUpper(stripped) && len(words) >= 3 && len(words) <= 10 && !startsWithDigit(stripped) {
			add(Heading{Text: stripped, Level: 1, Line: i})
			continue
		}

		if m := numberedHeading.FindStringSubmatch(stripped); m != nil {
			add(Heading{Text: m[2], Level: strings.Count(m[1], "."), Line: i})
			continue
		}

		if i > 0 && underlineRule.MatchString(stripped) {
			prev := strings.TrimSpace(lines[i-1])
			if prev != "" && len(strings.Fields(prev)) <= 10 {
				level := 2
				if strings.Contains(stripped, "=") {
					level = 1
				}
				add(Heading{Text: prev, Level: level, Line: i - 1})
			}
		}
	}

	return headings
}

// SplitSections partitions text into sections at the detected headings. Each
// section runs from the line after its heading to the line before the next
// heading. A document without any heading becomes a single level-0 "Document"
// section of kind body. Sections whose body is empty are dropped.
func SplitSections(text string) []Section {
	headings := DetectHeadings(text)
	if len(headings) == 0 {
		return []Section{{
			Title: "Document",
			Text:  text,
			Level: 0,
			Kind:  SectionBody,
		}}
	}

	var sections []Section
	lines := strings.Split(text, "\n")

	for i, h := range headings {
		start := h.Line + 1
		end := len(lines)
		if i+1 < len(headings) {
			end = headings[i+1].Line
		}
		if start > len(lines) {
			start = len(lines)
		}

		body := lines[start:end]
		// Drop the underline marker of an underlined heading.
		if len(body) > 0 && underlineRule.MatchString(strings.TrimSpace(body[0])) {
			body = body[1:]
		}

		sectionText := strings.TrimSpace(strings.Join(body, "\n"))
		if sectionText == "" {
			continue
		}

		sections = append(sections, Section{
			Title: h.Text,
			Text:  sectionText,
			Level: h.Level,
			Kind:  ClassifySection(h.Text),
		})
	}

	return sections
}

// sectionKeywords maps heading vocabulary to section kinds. Checked in order:
// introduction, conclusion, methodology.
var sectionKeywords = []struct {
	kind     SectionKind
	keywords []string
}{
	{SectionIntroduction, []string{"introduction", "overview", "background", "preface", "abstract"}},
	{SectionConclusion, []string{"conclusion", "summary", "final", "closing", "recap"}},
	{SectionMethodology, []string{"method", "approach", "implementation", "procedure", "experiment"}},
}

// ClassifySection maps a heading text to a [SectionKind] by keyword lookup.
// Headings matching no keyword set classify as body.
func ClassifySection(heading string) SectionKind {
	lower := strings.ToLower(heading)
	for _, set := range sectionKeywords {
		for _, kw := range set.keywords {
			if strings.Contains(lower, kw) {
				return set.kind
			}
		}
	}
	return SectionBody
}

// isAllUpper reports whether s contains at least one letter and no lowercase
// letters.
func isAllUpper(s string) bool {
	hasLetter := false
	for _, r := range s {
		if unicode.IsLower(r) {
			return false
		}
		if unicode.IsLetter(r) {
			hasLetter = true
		}
	}
	return hasLetter
}

// startsWithDigit reports whether any of the first three bytes of s is a
// decimal digit.
func startsWithDigit(s string) bool {
	for i, r := range s {
		if i >= 3 {
			break
		}
		if unicode.IsDigit(r) {
			return true
		}
	}
	return false
}
