// Package role defines the closed set of five pedagogical roles used to voice
// the tutoring dialogue: Explainer, Challenger, Summarizer, Example-Generator,
// and Misconception-Spotter.
//
// The catalog is a compile-time immutable registry. Every session shares the
// same [Role] values; there is no mutation path. The assignment engine reads
// base weights, keywords, and affinity tags from here, and the conversation
// layer reads system prompts, temperatures, and token budgets.
package role

import (
	"sort"
	"strings"
)

// Name identifies one of the five pedagogical roles.
type Name string

const (
	Explainer            Name = "Explainer"
	Challenger           Name = "Challenger"
	Summarizer           Name = "Summarizer"
	ExampleGenerator     Name = "Example-Generator"
	MisconceptionSpotter Name = "Misconception-Spotter"
)

// IsValid reports whether n is one of the five catalog roles.
func (n Name) IsValid() bool {
	switch n {
	case Explainer, Challenger, Summarizer, ExampleGenerator, MisconceptionSpotter:
		return true
	}
	return false
}

// Metadata carries display hints for UI layers. The engine itself never
// branches on these values.
type Metadata struct {
	// Color is a hex color for rendering the role's turns.
	Color string

	// Icon is a short glyph shown next to the role name.
	Icon string

	// Priority orders roles in catalog listings (lower shows first).
	Priority int

	// ZPDLevel tags the role's place in the zone of proximal development
	// (foundational, advanced, review, application, corrective).
	ZPDLevel string
}

// Role is one immutable catalog entry. Callers must treat the slice fields
// as read-only; they are shared across all sessions.
type Role struct {
	// Name is the role's canonical name.
	Name Name

	// SystemPrompt is the complete instruction template for this role. The
	// conversation layer appends it verbatim to the per-turn context block;
	// no variables are interpolated into it.
	SystemPrompt string

	// BaseWeight is the role's prior suitability in [0, 10]. It seeds both
	// the structural and topic scores and the reallocation score.
	BaseWeight float64

	// PriorityKeywords are lowercase tokens whose presence in a unit raises
	// this role's lexical score.
	PriorityKeywords []string

	// AvoidKeywords are lowercase tokens whose presence penalises this
	// role's lexical score.
	AvoidKeywords []string

	// AffinityTags lists the section kinds this role is naturally suited
	// to. Matching a unit's section kind raises the topic score.
	AffinityTags []string

	// Temperature is the sampling temperature passed to the generator for
	// this role's turns. Deterministic roles use 0.0.
	Temperature float64

	// MaxTokens caps the generator output for this role's turns.
	MaxTokens int

	// Metadata holds display hints.
	Metadata Metadata
}

// catalog holds the five role definitions keyed by name.
var catalog = map[Name]Role{
	Explainer: {
		Name: Explainer,
		SystemPrompt: "You are the Explainer, a patient and clear educator. " +
			"Your role is to break down complex concepts into understandable parts, " +
			"provide clear definitions, and explain 'how' and 'why' things work. " +
			"Use simple language and build understanding step-by-step.\n\n" +
			"Explain the following concept clearly and thoroughly. " +
			"Focus on:\n" +
			"- Breaking down complex ideas into simpler components\n" +
			"- Providing clear definitions and explanations\n" +
			"- Using analogies or comparisons when helpful\n" +
			"- Ensuring the explanation is accessible to learners",
		BaseWeight: 8.0,
		PriorityKeywords: []string{
			"explain", "definition", "meaning",
			"understand", "concept", "basics", "fundamental", "principle",
			"what is", "how does", "tell me about",
		},
		AvoidKeywords: []string{
			"challenge", "question", "critique", "example", "instance",
			"misconception", "mistake", "error", "summary", "overview",
		},
		AffinityTags: []string{"introduction", "methodology"},
		Temperature:  0.0,
		MaxTokens:    500,
		Metadata:     Metadata{Color: "#4CAF50", Icon: "💡", Priority: 1, ZPDLevel: "foundational"},
	},
	Challenger: {
		Name: Challenger,
		SystemPrompt: "You are the Challenger, a critical thinker who encourages deeper analysis. " +
			"Your role is to question assumptions, probe for edge cases, " +
			"stimulate critical thinking, and push learners beyond surface understanding. " +
			"Ask thought-provoking questions without being confrontational.\n\n" +
			"Challenge the learner's understanding by:\n" +
			"- Asking probing questions about the concept\n" +
			"- Identifying assumptions that should be questioned\n" +
			"- Presenting edge cases or limitations\n" +
			"- Encouraging deeper critical analysis\n" +
			"- Pushing beyond surface-level understanding",
		BaseWeight: 6.0,
		PriorityKeywords: []string{
			"limitation", "limitations", "edge case", "alternative",
			"critique", "challenge", "deeper", "analysis",
			"implications", "consequences", "trade-off", "assume",
			"why not", "what if", "consider",
		},
		AvoidKeywords: []string{
			"explain", "define", "summarize", "example", "instance",
			"misconception", "mistake", "basic", "simple",
		},
		AffinityTags: []string{"body"},
		Temperature:  0.1,
		MaxTokens:    400,
		Metadata:     Metadata{Color: "#FF9800", Icon: "🤔", Priority: 2, ZPDLevel: "advanced"},
	},
	Summarizer: {
		Name: Summarizer,
		SystemPrompt: "You are the Summarizer, skilled at distilling complex information. " +
			"Your role is to synthesize key points, create concise overviews, " +
			"and help learners see the big picture. " +
			"Extract and organize the most important information efficiently.\n\n" +
			"Provide a clear, concise summary by:\n" +
			"- Identifying and extracting key points\n" +
			"- Organizing information logically\n" +
			"- Highlighting the most important concepts\n" +
			"- Creating a coherent overview\n" +
			"- Using bullet points or structured format when helpful",
		BaseWeight: 8.5,
		PriorityKeywords: []string{
			"summary", "summarize", "overview", "key points", "main idea",
			"briefly", "concise", "recap", "synthesize", "gist",
			"takeaway", "essence", "core",
		},
		AvoidKeywords: []string{
			"detail", "explain", "depth", "challenge", "question",
			"example", "instance", "misconception", "elaborate",
		},
		AffinityTags: []string{"introduction", "conclusion"},
		Temperature:  0.0,
		MaxTokens:    300,
		Metadata:     Metadata{Color: "#2196F3", Icon: "📋", Priority: 3, ZPDLevel: "review"},
	},
	ExampleGenerator: {
		Name: ExampleGenerator,
		SystemPrompt: "You are the Example-Generator, adept at creating concrete illustrations. " +
			"Your role is to provide real-world examples, use cases, and practical applications " +
			"that make abstract concepts tangible. " +
			"Create clear, relevant examples that reinforce understanding.\n\n" +
			"Generate concrete examples by:\n" +
			"- Providing real-world applications or use cases\n" +
			"- Creating practical illustrations of the concept\n" +
			"- Using familiar contexts when possible\n" +
			"- Showing multiple examples if helpful\n" +
			"- Making abstract concepts concrete and relatable",
		BaseWeight: 7.0,
		PriorityKeywords: []string{
			"example", "instance", "case", "application", "use case",
			"scenario", "practical", "real-world", "demonstrate",
			"illustrate", "show", "sample", "analogy",
		},
		AvoidKeywords: []string{
			"define", "explain", "theory", "challenge", "question",
			"summarize", "overview", "misconception", "mistake",
		},
		AffinityTags: []string{"body", "methodology"},
		Temperature:  0.2,
		MaxTokens:    450,
		Metadata:     Metadata{Color: "#9C27B0", Icon: "💼", Priority: 2, ZPDLevel: "application"},
	},
	MisconceptionSpotter: {
		Name: MisconceptionSpotter,
		SystemPrompt: "You are the Misconception-Spotter, vigilant about common errors. " +
			"Your role is to identify typical misunderstandings, correct faulty assumptions, " +
			"and clarify confusing points before they become ingrained. " +
			"Be gentle but clear in addressing misconceptions.\n\n" +
			"Address potential misconceptions by:\n" +
			"- Identifying common misunderstandings about this concept\n" +
			"- Explaining why these misconceptions occur\n" +
			"- Providing clear corrections\n" +
			"- Distinguishing between similar but different concepts\n" +
			"- Preventing confusion before it develops",
		BaseWeight: 6.5,
		PriorityKeywords: []string{
			"misconception", "misconceptions", "mistake", "error", "confuse", "wrong",
			"common error", "pitfall", "misunderstand", "clarify",
			"distinguish", "difference", "versus", "vs", "common mistake",
		},
		AvoidKeywords: []string{
			"example", "summarize", "overview", "detail", "explain how",
		},
		AffinityTags: []string{"methodology"},
		Temperature:  0.0,
		MaxTokens:    400,
		Metadata:     Metadata{Color: "#F44336", Icon: "⚠️", Priority: 3, ZPDLevel: "corrective"},
	},
}

// Lookup returns the catalog entry for n. The second return value is false
// when n is not a catalog role.
func Lookup(n Name) (Role, bool) {
	r, ok := catalog[n]
	return r, ok
}

// ByName returns the catalog entry whose name matches s case-insensitively.
func ByName(s string) (Role, bool) {
	for n, r := range catalog {
		if strings.EqualFold(string(n), s) {
			return r, true
		}
	}
	return Role{}, false
}

// All returns the five roles sorted lexicographically by name. The returned
// slice is a fresh copy; the Role values inside still share the catalog's
// keyword slices.
func All() []Role {
	roles := make([]Role, 0, len(catalog))
	for _, r := range catalog {
		roles = append(roles, r)
	}
	sort.Slice(roles, func(i, j int) bool { return roles[i].Name < roles[j].Name })
	return roles
}

// Names returns the five role names sorted lexicographically. This ordering
// is the deterministic tie-break used by the assignment engine and the
// reallocator.
func Names() []Name {
	names := make([]Name, 0, len(catalog))
	for n := range catalog {
		names = append(names, n)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}
