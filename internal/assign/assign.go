// Package assign maps semantic units to ordered role queues.
//
// Assignment is a pure function of its inputs: for a fixed unit list and mode,
// repeated calls produce identical output. Every queue is a permutation of the
// five catalog roles; ties in total score break lexicographically on role name
// so that no ordering depends on map iteration.
package assign

import (
	"errors"
	"fmt"
	"sort"

	"github.com/didaxa/didaxa/internal/role"
	"github.com/didaxa/didaxa/internal/segment"
)

// ErrInvalidMode is returned when the assignment mode is not one of the
// recognised values.
var ErrInvalidMode = errors.New("assign: invalid mode")

// Mode selects the queue construction strategy.
type Mode string

const (
	// ModeGreedy orders each queue purely by descending total score.
	ModeGreedy Mode = "greedy"

	// ModeBalanced additionally steers primary roles toward global target
	// ratios across the document.
	ModeBalanced Mode = "balanced"
)

// IsValid reports whether m is a recognised mode.
func (m Mode) IsValid() bool {
	return m == ModeGreedy || m == ModeBalanced
}

// targetRatios is the desired share of primary assignments per role in
// balanced mode.
var targetRatios = map[role.Name]float64{
	role.Explainer:            0.30,
	role.Challenger:           0.20,
	role.ExampleGenerator:     0.20,
	role.Summarizer:           0.15,
	role.MisconceptionSpotter: 0.15,
}

// UnitAssignment is the result for one unit: its queue, full score table,
// primary role, and confidence.
type UnitAssignment struct {
	// UnitID is the unit this assignment belongs to.
	UnitID string `json:"unit_id"`

	// Queue is the ordered list of all five roles. Queue[0] is the primary.
	Queue []role.Name `json:"queue"`

	// Scores holds the three sub-scores and total for every role.
	Scores map[role.Name]Score `json:"scores"`

	// Primary is Queue[0], kept explicit for reporting layers.
	Primary role.Name `json:"primary"`

	// Confidence is the gap between the two highest totals, normalised to
	// [0, 1] by dividing by 10.
	Confidence float64 `json:"confidence"`
}

// Assignment maps every unit to its role queue, in document order.
type Assignment struct {
	// Mode is the strategy the assignment was computed with.
	Mode Mode `json:"mode"`

	// Units holds one entry per unit in document order.
	Units []UnitAssignment `json:"units"`

	byID map[string]int
}

// ForUnit returns the assignment for the given unit id.
func (a *Assignment) ForUnit(id string) (UnitAssignment, bool) {
	i, ok := a.byID[id]
	if !ok {
		return UnitAssignment{}, false
	}
	return a.Units[i], true
}

// Queues returns the unit id to role queue mapping, for persistence.
func (a *Assignment) Queues() map[string][]role.Name {
	queues := make(map[string][]role.Name, len(a.Units))
	for _, u := range a.Units {
		q := make([]role.Name, len(u.Queue))
		copy(q, u.Queue)
		queues[u.UnitID] = q
	}
	return queues
}

// Assign scores every (unit, role) pair against the catalog and builds one
// role queue per unit. Pure and deterministic: identical inputs yield
// identical output.
func Assign(units []segment.Unit, mode Mode) (*Assignment, error) {
	if !mode.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidMode, mode)
	}

	a := &Assignment{
		Mode:  mode,
		Units: make([]UnitAssignment, 0, len(units)),
		byID:  make(map[string]int, len(units)),
	}

	counts := make(map[role.Name]int, 5)
	assigned := 0

	for _, unit := range units {
		scores := make(map[role.Name]Score, 5)
		for _, r := range role.All() {
			scores[r.Name] = scoreUnit(r, unit, len(units))
		}

		queue := rankedRoles(scores)
		if mode == ModeBalanced {
			primary := balancedPrimary(queue, counts, assigned)
			queue = promote(queue, primary)
			counts[primary]++
			assigned++
		}

		ua := UnitAssignment{
			UnitID:     unit.ID,
			Queue:      queue,
			Scores:     scores,
			Primary:    queue[0],
			Confidence: confidence(scores),
		}
		a.byID[ua.UnitID] = len(a.Units)
		a.Units = append(a.Units, ua)
	}

	return a, nil
}

// rankedRoles sorts the five roles by descending total, breaking ties by
// ascending role name.
func rankedRoles(scores map[role.Name]Score) []role.Name {
	names := role.Names()
	sort.SliceStable(names, func(i, j int) bool {
		si, sj := scores[names[i]].Total, scores[names[j]].Total
		if si != sj {
			return si > sj
		}
		return names[i] < names[j]
	})
	return names
}

// balancedPrimary walks the ranked queue and picks the first role whose
// projected primary ratio stays within its target. When every candidate would
// exceed its target, the globally highest-scoring role wins. With no units
// assigned yet every projected ratio is zero, so the first unit always keeps
// its top-scoring role.
func balancedPrimary(ranked []role.Name, counts map[role.Name]int, assigned int) role.Name {
	if assigned == 0 {
		return ranked[0]
	}
	for _, r := range ranked {
		projected := float64(counts[r]+1) / float64(assigned)
		if projected <= targetRatios[r] {
			return r
		}
	}
	return ranked[0]
}

// promote moves r to the front of the queue, keeping the relative order of
// the others.
func promote(queue []role.Name, r role.Name) []role.Name {
	out := make([]role.Name, 0, len(queue))
	out = append(out, r)
	for _, q := range queue {
		if q != r {
			out = append(out, q)
		}
	}
	return out
}

// confidence is the gap between the two highest totals, scaled into [0, 1].
func confidence(scores map[role.Name]Score) float64 {
	totals := make([]float64, 0, len(scores))
	for _, s := range scores {
		totals = append(totals, s.Total)
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(totals)))
	if len(totals) < 2 {
		return 0
	}
	return (totals[0] - totals[1]) / 10
}
