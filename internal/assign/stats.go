package assign

import "github.com/didaxa/didaxa/internal/role"

// Distribution summarises an assignment for reporting layers.
type Distribution struct {
	// PrimaryCounts is the number of units per primary role.
	PrimaryCounts map[role.Name]int

	// PrimaryRatios is PrimaryCounts divided by the unit count.
	PrimaryRatios map[role.Name]float64

	// MeanConfidence is the average per-unit confidence.
	MeanConfidence float64
}

// Distribution computes primary-role statistics over the assignment.
func (a *Assignment) Distribution() Distribution {
	d := Distribution{
		PrimaryCounts: make(map[role.Name]int),
		PrimaryRatios: make(map[role.Name]float64),
	}
	if len(a.Units) == 0 {
		return d
	}

	var confidenceSum float64
	for _, u := range a.Units {
		d.PrimaryCounts[u.Primary]++
		confidenceSum += u.Confidence
	}
	for name, count := range d.PrimaryCounts {
		d.PrimaryRatios[name] = float64(count) / float64(len(a.Units))
	}
	d.MeanConfidence = confidenceSum / float64(len(a.Units))
	return d
}
