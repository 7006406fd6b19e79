package segment

// DocumentStats summarises a segmented document for reporting layers.
type DocumentStats struct {
	// UnitCount is the number of semantic units.
	UnitCount int

	// TotalWords is the word count summed over all units.
	TotalWords int

	// MeanCohesion is the average unit cohesion, 0 for an empty document.
	MeanCohesion float64

	// SectionDistribution counts units per section kind.
	SectionDistribution map[SectionKind]int
}

// Stats computes summary statistics over units.
func Stats(units []Unit) DocumentStats {
	stats := DocumentStats{
		SectionDistribution: make(map[SectionKind]int),
	}
	if len(units) == 0 {
		return stats
	}

	var cohesionSum float64
	for _, u := range units {
		stats.UnitCount++
		stats.TotalWords += u.WordCount
		cohesionSum += u.Cohesion
		stats.SectionDistribution[u.SectionKind]++
	}
	stats.MeanCohesion = cohesionSum / float64(len(units))
	return stats
}
