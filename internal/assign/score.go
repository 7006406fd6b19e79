package assign

import (
	"math"
	"regexp"
	"strings"

	"github.com/didaxa/didaxa/internal/role"
	"github.com/didaxa/didaxa/internal/segment"
)

// Score holds the three sub-scores and the weighted total for one (unit, role)
// pair. Sub-scores live in [0, 10].
type Score struct {
	Structural float64 `json:"structural"`
	Lexical    float64 `json:"lexical"`
	Topic      float64 `json:"topic"`
	Total      float64 `json:"total"`
}

// Sub-score weights for the total.
const (
	structuralWeight = 0.4
	lexicalWeight    = 0.3
	topicWeight      = 0.3
)

// Role-specific linguistic patterns. Unit text is lowercased before matching.
var (
	questionPattern      = regexp.MustCompile(`\b(what|why|how|when|where|who)\b`)
	definitionPattern    = regexp.MustCompile(`\b(is defined as|refers to|means|is|are|defined as)\b`)
	examplePattern       = regexp.MustCompile(`\b(for example|for instance|such as|e\.g\.|like|consider)\b`)
	misconceptionPattern = regexp.MustCompile(`\b(mistake|error|misconception|incorrect|wrong|not|confuse|misunderstand)\b`)
	summaryPattern       = regexp.MustCompile(`\b(in summary|in conclusion|overall|to summarize|key points|main|important)\b`)
	challengePattern     = regexp.MustCompile(`\b(however|but|limitation|issue|problem|challenge|consider|alternative)\b`)
)

// sectionBonus is the structural bonus by (section kind, role).
var sectionBonus = map[segment.SectionKind]map[role.Name]float64{
	segment.SectionIntroduction: {
		role.Summarizer:           2.0,
		role.Explainer:            2.0,
		role.MisconceptionSpotter: 1.0,
	},
	segment.SectionConclusion: {
		role.Summarizer: 3.0,
		role.Explainer:  0.5,
		role.Challenger: 0.5,
	},
	segment.SectionMethodology: {
		role.MisconceptionSpotter: 2.5,
		role.Explainer:            2.0,
		role.ExampleGenerator:     1.5,
	},
	segment.SectionBody: {
		role.Challenger:       1.5,
		role.ExampleGenerator: 1.0,
	},
}

// scoreUnit computes all three sub-scores and the total for one (unit, role)
// pair.
func scoreUnit(r role.Role, u segment.Unit, totalUnits int) Score {
	s := Score{
		Structural: structuralScore(r, u, totalUnits),
		Lexical:    lexicalScore(r, u),
		Topic:      topicScore(r, u),
	}
	s.Total = structuralWeight*s.Structural + lexicalWeight*s.Lexical + topicWeight*s.Topic
	return s
}

// structuralScore starts from the role's base weight and adds the section
// bonus, a position-in-document bias of at most 1.0, and a word-count bias of
// 0.2 when the unit length falls in the role's preferred band. Capped at 10.
func structuralScore(r role.Role, u segment.Unit, totalUnits int) float64 {
	s := r.BaseWeight
	s += sectionBonus[u.SectionKind][r.Name]

	rel := float64(u.Position) / math.Max(float64(totalUnits), 1)
	switch r.Name {
	case role.Explainer:
		s += 1.0 - rel
	case role.Summarizer:
		s += rel
	case role.Challenger:
		s += 1.0 - math.Abs(0.5-rel)*2
	}

	if wordCountMatch(r.Name, u.WordCount) {
		s += 0.2
	}
	return math.Min(s, 10)
}

// wordCountMatch reports whether the unit length falls in the role's preferred
// band: Summarizer under 100 words, Explainer 100 to 300, everyone else 50 to
// 250.
func wordCountMatch(n role.Name, words int) bool {
	switch n {
	case role.Summarizer:
		return words < 100
	case role.Explainer:
		return words >= 100 && words <= 300
	default:
		return words >= 50 && words <= 250
	}
}

// lexicalScore counts priority-keyword occurrences normalised by unit length,
// seeds with half the base weight, penalises avoid keywords, and adds a capped
// bonus for role-specific linguistic patterns. Clipped to [0, 10].
func lexicalScore(r role.Role, u segment.Unit) float64 {
	text := strings.ToLower(u.Text)

	matches := 0
	for _, kw := range r.PriorityKeywords {
		matches += strings.Count(text, kw)
	}
	norm := math.Max(float64(u.WordCount)/100.0, 1.0)
	s := float64(matches)/norm*2.0 + 0.5*r.BaseWeight

	for _, kw := range r.AvoidKeywords {
		s -= 0.5 * float64(strings.Count(text, kw))
	}

	s += patternBonus(r.Name, text)
	return math.Max(0, math.Min(s, 10))
}

// patternBonus contributes 0.5 per linguistic pattern match, capped at 1.5.
func patternBonus(n role.Name, text string) float64 {
	var count int
	switch n {
	case role.Explainer:
		count = len(definitionPattern.FindAllString(text, -1))
	case role.Challenger:
		count = len(challengePattern.FindAllString(text, -1)) +
			len(questionPattern.FindAllString(text, -1))
	case role.Summarizer:
		count = len(summaryPattern.FindAllString(text, -1))
	case role.ExampleGenerator:
		count = len(examplePattern.FindAllString(text, -1))
	case role.MisconceptionSpotter:
		count = len(misconceptionPattern.FindAllString(text, -1))
	}
	return math.Min(0.5*float64(count), 1.5)
}

// topicScore starts from the base weight, adds 1.5 per affinity tag matching
// the unit's section kind, 1.0 for high-complexity units when the role is
// Explainer or Misconception-Spotter, and a cohesion-scaled bonus when the
// unit title carries one of the role's priority keywords. Capped at 10.
func topicScore(r role.Role, u segment.Unit) float64 {
	s := r.BaseWeight

	for _, tag := range r.AffinityTags {
		if tag == string(u.SectionKind) {
			s += 1.5
		}
	}

	if u.Metadata["complexity"] == "high" &&
		(r.Name == role.Explainer || r.Name == role.MisconceptionSpotter) {
		s += 1.0
	}

	if u.Title != "" {
		title := strings.ToLower(u.Title)
		for _, kw := range r.PriorityKeywords {
			if strings.Contains(title, kw) {
				s += 0.3 * u.Cohesion * 10
				break
			}
		}
	}

	return math.Min(s, 10)
}
